package cache

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inodb/oncokb-transcript/internal/genome"
)

const canonicalHeader = "hgnc_symbol\tensembl_canonical_gene\tensembl_canonical_transcript\tensembl_explanation\tgenome_nexus_canonical_transcript\tgenome_nexus_explanation\n"

func TestCanonicalOverrides_Parse(t *testing.T) {
	input := canonicalHeader +
		"KRAS\tENSG00000133703\tENST00000311936\tensembl\tENST00000256078.10\tgn\n" +
		"BRAF\tENSG00000157764\tENST00000288602\tensembl\tENST00000288602\tgn\n" +
		"EMPTY\tENSG00000000001\tENST00000000001\tensembl\tnan\tgn\n" +
		"SHORT\tENSG00000000002\n"

	o := NewCanonicalOverrides()
	require.NoError(t, o.parse(genome.GRCh38, strings.NewReader(input)))

	assert.Equal(t, 2, o.Len(genome.GRCh38))
	assert.Equal(t, 0, o.Len(genome.GRCh37))

	ctx := context.Background()
	id, err := o.CanonicalTranscriptID(ctx, genome.GRCh38, &Gene{HugoSymbol: "KRAS"})
	require.NoError(t, err)
	assert.Equal(t, "ENST00000256078", id, "version is stripped")

	id, err = o.CanonicalTranscriptID(ctx, genome.GRCh37, &Gene{HugoSymbol: "KRAS"})
	require.NoError(t, err)
	assert.Empty(t, id, "overrides are per assembly")

	id, err = o.CanonicalTranscriptID(ctx, genome.GRCh38, &Gene{HugoSymbol: "EMPTY"})
	require.NoError(t, err)
	assert.Empty(t, id, "nan values should be skipped")
}

func TestCanonicalOverrides_LoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), CanonicalFileName())
	require.NoError(t, os.WriteFile(path, []byte(canonicalHeader+
		"TP53\tENSG00000141510\tENST00000269305\tensembl\tENST00000269305.4\tgn\n"), 0644))

	o := NewCanonicalOverrides()
	require.NoError(t, o.LoadFile(genome.GRCh37, path))
	assert.Equal(t, 1, o.Len(genome.GRCh37))

	assert.Error(t, o.LoadFile(genome.GRCh37, "/nonexistent/file.txt"))
}

func TestCanonicalFileURL(t *testing.T) {
	assert.Contains(t, CanonicalFileURL(genome.GRCh37), "grch37")
	assert.Contains(t, CanonicalFileURL(genome.GRCh38), "grch38")
}
