package cache

import (
	"compress/gzip"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inodb/oncokb-transcript/internal/genome"
)

const testTranslations = `>ENSP00000288602.6|ENST00000288602.11|ENSG00000157764.14|OTTHUMG00000157457.5|OTTHUMT00000348211.3|BRAF-201|BRAF|766
MAALSGGGGGGAEPGQALFNGDMEPEAGAGAGAAASSAADPAIPEEVWNIKQMIKLTQEH
IEALLDKFGGEHNPPSIYLEAYEEYTSKLDALQQREQQLLESLGNGTDFSVSSSASMDTV
>ENSP00000256078.4|ENST00000256078.10|ENSG00000133703.14|OTTHUMG|OTTHUMT|KRAS-201|KRAS|189
MTEYKLVVVGAGGVGKSALTIQLIQNHFVDEYDPTIEDSYRKQVVIDGETCLLDILDTAG*
`

func TestParseHeader(t *testing.T) {
	tests := []struct {
		header     string
		protein    string
		transcript string
	}{
		{">ENSP00000288602.6|ENST00000288602.11|ENSG00000157764.14|BRAF-201|BRAF|766", "ENSP00000288602", "ENST00000288602"},
		{">ENSP00000288602.6 pep chromosome:GRCh38:7:140719327:140924929:-1 gene:ENSG00000157764.14 transcript:ENST00000288602.11", "ENSP00000288602", "ENST00000288602"},
		{">ENSP00000288602", "ENSP00000288602", ""},
	}
	for _, tt := range tests {
		t.Run(tt.header, func(t *testing.T) {
			p, tx := parseHeader(tt.header)
			assert.Equal(t, tt.protein, p)
			assert.Equal(t, tt.transcript, tx)
		})
	}
}

func TestFASTALoader_ParseFASTA(t *testing.T) {
	loader := NewFASTALoader("", genome.GRCh38)
	require.NoError(t, loader.parseFASTA(strings.NewReader(testTranslations)))

	assert.Equal(t, 2, loader.SequenceCount())

	ps, ok := loader.Lookup("ENSP00000288602.6")
	require.True(t, ok)
	assert.Equal(t, "ENST00000288602", ps.TranscriptID)
	assert.Equal(t, genome.GRCh38, ps.Assembly)
	assert.Equal(t, 120, ps.Len())
	assert.Equal(t, byte('M'), ps.ResidueAt(1))

	kras, ok := loader.Lookup("ENSP00000256078")
	require.True(t, ok)
	assert.Equal(t, "ENST00000256078", kras.TranscriptID)
	assert.False(t, strings.HasSuffix(kras.Sequence, "*"), "trailing stop is trimmed")
	assert.Equal(t, byte('G'), kras.ResidueAt(12))

	_, ok = loader.Lookup("ENSP99999999999")
	assert.False(t, ok)
}

func TestFASTALoader_LoadGzip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pc_translations.fa.gz")
	f, err := os.Create(path)
	require.NoError(t, err)
	gz := gzip.NewWriter(f)
	_, err = gz.Write([]byte(testTranslations))
	require.NoError(t, err)
	require.NoError(t, gz.Close())
	require.NoError(t, f.Close())

	loader := NewFASTALoader(path, genome.GRCh37)
	require.NoError(t, loader.Load())
	assert.Equal(t, 2, loader.SequenceCount())
	assert.Equal(t, genome.GRCh37, loader.Assembly())
}

func TestFASTALoader_LoadMissing(t *testing.T) {
	loader := NewFASTALoader("/nonexistent/file.fa", genome.GRCh37)
	assert.Error(t, loader.Load())
}
