package annotate

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inodb/oncokb-transcript/internal/cache"
)

func makeItems(n int) <-chan WorkItem {
	ch := make(chan WorkItem, n)
	for i := 0; i < n; i++ {
		raw := fmt.Sprintf("V%dE", 100+i)
		if i%10 == 9 {
			raw = "not an alteration"
		}
		ch <- WorkItem{Seq: i, Raw: raw, Genes: []*cache.Gene{braf}}
	}
	close(ch)
	return ch
}

func TestParallelAnnotate_OrderPreservation(t *testing.T) {
	ann, _ := newTestAnnotator(nil)

	results := ann.ParallelAnnotate(context.Background(), makeItems(200), 8)

	var collected []int
	err := OrderedCollect(results, func(r WorkResult) error {
		if r.Seq%10 == 9 {
			assert.ErrorIs(t, r.Err, ErrUnparsableAlteration)
		} else {
			require.NoError(t, r.Err)
			assert.Equal(t, r.Raw, r.Alteration.Alteration)
		}
		collected = append(collected, r.Seq)
		return nil
	})
	require.NoError(t, err)

	assert.Len(t, collected, 200)
	for i, seq := range collected {
		assert.Equal(t, i, seq, "result %d out of order", i)
	}
}

func TestParallelAnnotate_DefaultWorkers(t *testing.T) {
	ann, _ := newTestAnnotator(nil)

	count := 0
	err := OrderedCollect(ann.ParallelAnnotate(context.Background(), makeItems(50), 0), func(WorkResult) error {
		count++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 50, count)
}

func TestOrderedCollect_StopsOnError(t *testing.T) {
	ann, _ := newTestAnnotator(nil)

	stop := errors.New("stop")
	count := 0
	err := OrderedCollect(ann.ParallelAnnotate(context.Background(), makeItems(100), 4), func(WorkResult) error {
		count++
		if count == 5 {
			return stop
		}
		return nil
	})
	assert.ErrorIs(t, err, stop)
	assert.Equal(t, 5, count)
}

func TestParallelAnnotate_Canceled(t *testing.T) {
	ann, _ := newTestAnnotator(nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	count := 0
	err := OrderedCollect(ann.ParallelAnnotate(ctx, makeItems(20), 2), func(r WorkResult) error {
		count++
		assert.ErrorIs(t, r.Err, context.Canceled)
		assert.Nil(t, r.Alteration)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 20, count)
}
