// Package oncokb loads the OncoKB cancer gene list as a gene catalog with
// curated per-assembly canonical isoforms.
package oncokb

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/inodb/oncokb-transcript/internal/cache"
	"github.com/inodb/oncokb-transcript/internal/genome"
)

// Column names in cancerGeneList.tsv.
const (
	colHugo          = "Hugo Symbol"
	colEntrez        = "Entrez Gene ID"
	colGeneType      = "Gene Type"
	colGRCh37Isoform = "GRCh37 Isoform"
	colGRCh37RefSeq  = "GRCh37 RefSeq"
	colGRCh38Isoform = "GRCh38 Isoform"
	colGRCh38RefSeq  = "GRCh38 RefSeq"
)

// CancerGeneList is the set of curated genes indexed by Entrez ID and Hugo symbol.
type CancerGeneList struct {
	byEntrez map[int]*cache.Gene
	byHugo   map[string]*cache.Gene
}

// NewCancerGeneList builds a catalog from genes. Later duplicates win.
func NewCancerGeneList(genes ...*cache.Gene) *CancerGeneList {
	c := &CancerGeneList{
		byEntrez: make(map[int]*cache.Gene, len(genes)),
		byHugo:   make(map[string]*cache.Gene, len(genes)),
	}
	for _, g := range genes {
		c.add(g)
	}
	return c
}

func (c *CancerGeneList) add(g *cache.Gene) {
	if g.EntrezGeneID != 0 {
		c.byEntrez[g.EntrezGeneID] = g
	}
	c.byHugo[strings.ToUpper(g.HugoSymbol)] = g
}

// Len returns the number of genes.
func (c *CancerGeneList) Len() int {
	return len(c.byHugo)
}

// IsCancerGene returns true if the gene is in the cancer gene list.
func (c *CancerGeneList) IsCancerGene(hugo string) bool {
	_, ok := c.byHugo[strings.ToUpper(hugo)]
	return ok
}

// FindByHugoSymbol looks a gene up case-insensitively.
func (c *CancerGeneList) FindByHugoSymbol(hugo string) (*cache.Gene, bool) {
	g, ok := c.byHugo[strings.ToUpper(hugo)]
	return g, ok
}

// FindByEntrezGeneID looks a gene up by Entrez ID.
func (c *CancerGeneList) FindByEntrezGeneID(id int) (*cache.Gene, bool) {
	g, ok := c.byEntrez[id]
	return g, ok
}

// Genes returns all genes sorted by Hugo symbol.
func (c *CancerGeneList) Genes() []*cache.Gene {
	out := make([]*cache.Gene, 0, len(c.byHugo))
	for _, g := range c.byHugo {
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].HugoSymbol < out[j].HugoSymbol })
	return out
}

// CanonicalTranscriptID returns the curated OncoKB isoform of the gene on
// the assembly, or "" if none is curated.
func (c *CancerGeneList) CanonicalTranscriptID(_ context.Context, a genome.Assembly, g *cache.Gene) (string, error) {
	if curated, ok := c.FindByHugoSymbol(g.HugoSymbol); ok {
		g = curated
	}
	return cache.StripVersion(g.Isoform(a)), nil
}

// LoadCancerGeneList loads an OncoKB cancerGeneList.tsv file.
func LoadCancerGeneList(path string) (*CancerGeneList, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open cancer gene list: %w", err)
	}
	defer f.Close()

	return ParseCancerGeneList(f)
}

// ParseCancerGeneList parses cancerGeneList.tsv content. Only "Hugo Symbol"
// is required; the other columns are read when present.
func ParseCancerGeneList(r io.Reader) (*CancerGeneList, error) {
	scanner := bufio.NewScanner(r)

	// Read header to find column indices
	if !scanner.Scan() {
		return nil, fmt.Errorf("cancer gene list: empty file")
	}
	idx := make(map[string]int)
	for i, col := range strings.Split(scanner.Text(), "\t") {
		idx[strings.TrimSpace(col)] = i
	}
	if _, ok := idx[colHugo]; !ok {
		return nil, fmt.Errorf("cancer gene list: missing %q column", colHugo)
	}

	c := NewCancerGeneList()
	line := 1
	for scanner.Scan() {
		line++
		fields := strings.Split(scanner.Text(), "\t")
		get := func(col string) string {
			i, ok := idx[col]
			if !ok || i >= len(fields) {
				return ""
			}
			return strings.TrimSpace(fields[i])
		}

		hugo := get(colHugo)
		if hugo == "" {
			continue
		}
		g := &cache.Gene{
			HugoSymbol:    hugo,
			GeneType:      get(colGeneType),
			GRCh37Isoform: cache.StripVersion(get(colGRCh37Isoform)),
			GRCh37RefSeq:  get(colGRCh37RefSeq),
			GRCh38Isoform: cache.StripVersion(get(colGRCh38Isoform)),
			GRCh38RefSeq:  get(colGRCh38RefSeq),
		}
		if s := get(colEntrez); s != "" {
			id, err := strconv.Atoi(s)
			if err != nil {
				return nil, fmt.Errorf("cancer gene list line %d: invalid Entrez Gene ID %q: %w", line, s, err)
			}
			g.EntrezGeneID = id
		}
		c.add(g)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading cancer gene list: %w", err)
	}

	return c, nil
}
