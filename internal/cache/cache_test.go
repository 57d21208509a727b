package cache

import (
	"errors"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inodb/oncokb-transcript/internal/genome"
)

func TestCache_SetGet(t *testing.T) {
	c := New()
	k := Key{Kind: KindTranscript, ID: "ENST00000288602", Assembly: genome.GRCh37}

	_, ok := c.Get(k)
	assert.False(t, ok)

	c.Set(k, &Transcript{ID: "ENST00000288602"})
	v, ok := c.Get(k)
	require.True(t, ok)
	assert.Equal(t, "ENST00000288602", v.(*Transcript).ID)

	// Same id on another assembly is a different key.
	_, ok = c.Get(Key{Kind: KindTranscript, ID: "ENST00000288602", Assembly: genome.GRCh38})
	assert.False(t, ok)
}

func TestCache_InvalidateKey(t *testing.T) {
	c := New()
	k37 := Key{Kind: KindCanonicalTranscript, ID: "673", Assembly: genome.GRCh37}
	k38 := Key{Kind: KindCanonicalTranscript, ID: "673", Assembly: genome.GRCh38}
	seq := Key{Kind: KindSequence, ID: "673", Assembly: genome.GRCh37}
	for _, k := range []Key{k37, k38, seq} {
		c.Set(k, "x")
	}

	c.InvalidateKey(k37)

	_, ok := c.Get(k37)
	assert.False(t, ok)
	_, ok = c.Get(k38)
	assert.True(t, ok, "other assemblies are untouched")
	_, ok = c.Get(seq)
	assert.True(t, ok, "other kinds with the same id are untouched")
	assert.Equal(t, 2, c.Len())
}

func TestCache_GetOrLoad_InvalidatedDuringLoad(t *testing.T) {
	c := New()
	k := Key{Kind: KindCanonicalTranscript, ID: "673", Assembly: genome.GRCh37}

	v, err := c.GetOrLoad(k, func() (any, error) {
		// A writer changes the canonical flag while the old row is in flight.
		c.InvalidateKey(k)
		return "ENST00000288602", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ENST00000288602", v, "the caller still gets its value")
	_, ok := c.Get(k)
	assert.False(t, ok, "a value loaded across an invalidation is not cached")

	v, err = c.GetOrLoad(k, func() (any, error) { return "ENST00000496384", nil })
	require.NoError(t, err)
	assert.Equal(t, "ENST00000496384", v)
	_, ok = c.Get(k)
	assert.True(t, ok)
}

func TestCache_GetOrLoad(t *testing.T) {
	c := New()
	k := Key{Kind: KindCanonicalID, ID: "BRAF", Assembly: genome.GRCh37}

	calls := 0
	load := func() (any, error) {
		calls++
		return "ENST00000288602", nil
	}

	v, err := c.GetOrLoad(k, load)
	require.NoError(t, err)
	assert.Equal(t, "ENST00000288602", v)

	v, err = c.GetOrLoad(k, load)
	require.NoError(t, err)
	assert.Equal(t, "ENST00000288602", v)
	assert.Equal(t, 1, calls)
}

func TestCache_GetOrLoad_ErrorAndNilNotCached(t *testing.T) {
	c := New()
	k := Key{Kind: KindCanonicalID, ID: "KRAS", Assembly: genome.GRCh38}

	_, err := c.GetOrLoad(k, func() (any, error) { return nil, errors.New("boom") })
	require.Error(t, err)
	assert.Equal(t, 0, c.Len())

	v, err := c.GetOrLoad(k, func() (any, error) { return nil, nil })
	require.NoError(t, err)
	assert.Nil(t, v)
	assert.Equal(t, 0, c.Len())
}

func TestCache_GetOrLoad_Concurrent(t *testing.T) {
	c := New()
	var calls atomic.Int32

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			k := Key{Kind: KindSequence, ID: "ENSP" + strconv.Itoa(i%5), Assembly: genome.GRCh37}
			_, err := c.GetOrLoad(k, func() (any, error) {
				calls.Add(1)
				return k.ID, nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 5, c.Len())
	assert.LessOrEqual(t, int(calls.Load()), 50)
}
