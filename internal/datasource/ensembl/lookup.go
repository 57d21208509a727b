package ensembl

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/inodb/oncokb-transcript/internal/cache"
	"github.com/inodb/oncokb-transcript/internal/datasource"
	"github.com/inodb/oncokb-transcript/internal/genome"
)

// restFeature is a genomic feature (exon or UTR) in a lookup response.
type restFeature struct {
	ID            string `json:"id"`
	Type          string `json:"type"`
	SeqRegionName string `json:"seq_region_name"`
	Start         int64  `json:"start"`
	End           int64  `json:"end"`
	Strand        int    `json:"strand"`
}

// restTranscript represents the JSON response from the lookup endpoint with expand=1.
type restTranscript struct {
	ID            string `json:"id"`
	Parent        string `json:"Parent"`
	DisplayName   string `json:"display_name"`
	Biotype       string `json:"biotype"`
	IsCanonical   int    `json:"is_canonical"`
	SeqRegionName string `json:"seq_region_name"`
	Start         int64  `json:"start"`
	End           int64  `json:"end"`
	Strand        int    `json:"strand"`
	Translation   *struct {
		ID     string `json:"id"`
		Length int    `json:"length"`
	} `json:"Translation"`
	Exon []restFeature `json:"Exon"`
	UTR  []restFeature `json:"UTR"`
}

// restGene represents a gene lookup response.
type restGene struct {
	ID            string           `json:"id"`
	DisplayName   string           `json:"display_name"`
	Biotype       string           `json:"biotype"`
	SeqRegionName string           `json:"seq_region_name"`
	Start         int64            `json:"start"`
	End           int64            `json:"end"`
	Strand        int              `json:"strand"`
	Transcript    []restTranscript `json:"Transcript"`
}

func (rt *restTranscript) toTranscript(a genome.Assembly) *cache.Transcript {
	if rt.ID == "" {
		return nil
	}

	t := &cache.Transcript{
		Assembly:  a,
		ID:        cache.StripVersion(rt.ID),
		GeneID:    cache.StripVersion(rt.Parent),
		Biotype:   rt.Biotype,
		Canonical: rt.IsCanonical == 1,
		Chrom:     cache.NormalizeChrom(rt.SeqRegionName),
		Start:     rt.Start,
		End:       rt.End,
		Strand:    int8(rt.Strand),
	}
	if rt.Translation != nil {
		t.ProteinID = cache.StripVersion(rt.Translation.ID)
		t.ProteinLength = rt.Translation.Length
	}

	// Exons come back in transcript order.
	for i, e := range rt.Exon {
		t.Fragments = append(t.Fragments, cache.Fragment{
			Type:   cache.FragmentExon,
			Rank:   i + 1,
			Chrom:  cache.NormalizeChrom(e.SeqRegionName),
			Start:  e.Start,
			End:    e.End,
			Strand: int8(e.Strand),
		})
	}
	for _, u := range rt.UTR {
		var typ cache.FragmentType
		switch u.Type {
		case "five_prime_UTR":
			typ = cache.FragmentFivePrimeUTR
		case "three_prime_UTR":
			typ = cache.FragmentThreePrimeUTR
		default:
			continue
		}
		t.Fragments = append(t.Fragments, cache.Fragment{
			Type:   typ,
			Chrom:  cache.NormalizeChrom(u.SeqRegionName),
			Start:  u.Start,
			End:    u.End,
			Strand: int8(u.Strand),
		})
	}
	return t
}

func (rg *restGene) toEnsemblGene(a genome.Assembly) *cache.EnsemblGene {
	return &cache.EnsemblGene{
		ID:       cache.StripVersion(rg.ID),
		Assembly: a,
		Chrom:    cache.NormalizeChrom(rg.SeqRegionName),
		Start:    rg.Start,
		End:      rg.End,
		Strand:   int8(rg.Strand),
	}
}

var expandQuery = url.Values{"expand": {"1"}, "utr": {"1"}}

func cloneQuery(q url.Values) url.Values {
	out := url.Values{}
	for k, v := range q {
		out[k] = append([]string(nil), v...)
	}
	return out
}

// FetchTranscript returns the transcript with its exons and UTRs.
func (c *Client) FetchTranscript(ctx context.Context, a genome.Assembly, transcriptID string) (*cache.Transcript, error) {
	u, err := c.endpoint(a, "/lookup/id/"+url.PathEscape(cache.StripVersion(transcriptID)), cloneQuery(expandQuery))
	if err != nil {
		return nil, err
	}

	var rt restTranscript
	if err := c.do(ctx, http.MethodGet, u, nil, &rt); err != nil {
		return nil, fmt.Errorf("lookup transcript %s on %s: %w", transcriptID, a, err)
	}
	t := rt.toTranscript(a)
	if t == nil {
		return nil, fmt.Errorf("lookup transcript %s on %s: %w", transcriptID, a, datasource.ErrTranscriptNotFound)
	}
	return t, nil
}

// FetchEnsemblGene returns the gene-level record for an Ensembl gene ID.
func (c *Client) FetchEnsemblGene(ctx context.Context, a genome.Assembly, geneID string) (*cache.EnsemblGene, error) {
	u, err := c.endpoint(a, "/lookup/id/"+url.PathEscape(cache.StripVersion(geneID)), nil)
	if err != nil {
		return nil, err
	}

	var rg restGene
	if err := c.do(ctx, http.MethodGet, u, nil, &rg); err != nil {
		return nil, fmt.Errorf("lookup gene %s on %s: %w", geneID, a, err)
	}
	return rg.toEnsemblGene(a), nil
}

// fetchGene looks a gene up by symbol with all of its transcripts.
func (c *Client) fetchGene(ctx context.Context, a genome.Assembly, hugo string) (*restGene, error) {
	u, err := c.endpoint(a, "/lookup/symbol/homo_sapiens/"+url.PathEscape(hugo), cloneQuery(expandQuery))
	if err != nil {
		return nil, err
	}

	var rg restGene
	if err := c.do(ctx, http.MethodGet, u, nil, &rg); err != nil {
		return nil, fmt.Errorf("lookup gene %s on %s: %w", hugo, a, err)
	}
	return &rg, nil
}

// FetchGeneTranscripts returns the protein-coding transcripts of a gene.
func (c *Client) FetchGeneTranscripts(ctx context.Context, a genome.Assembly, hugo string) ([]*cache.Transcript, error) {
	rg, err := c.fetchGene(ctx, a, hugo)
	if err != nil {
		return nil, err
	}

	var out []*cache.Transcript
	for i := range rg.Transcript {
		t := rg.Transcript[i].toTranscript(a)
		if t == nil || !t.IsProteinCoding() {
			continue
		}
		t.HugoSymbol = hugo
		if t.GeneID == "" {
			t.GeneID = cache.StripVersion(rg.ID)
		}
		out = append(out, t)
	}
	c.logger.Debug("fetched gene transcripts",
		zap.String("gene", hugo),
		zap.String("assembly", string(a)),
		zap.Int("protein_coding", len(out)))
	return out, nil
}

// CanonicalTranscriptID returns the transcript Ensembl flags as canonical, or ""
// if none is flagged.
func (c *Client) CanonicalTranscriptID(ctx context.Context, a genome.Assembly, g *cache.Gene) (string, error) {
	rg, err := c.fetchGene(ctx, a, g.HugoSymbol)
	if err != nil {
		if errors.Is(err, datasource.ErrTranscriptNotFound) {
			return "", nil
		}
		return "", err
	}
	for _, rt := range rg.Transcript {
		if rt.IsCanonical == 1 {
			return cache.StripVersion(rt.ID), nil
		}
	}
	return "", nil
}

type sequenceRequest struct {
	IDs  []string `json:"ids"`
	Type string   `json:"type"`
}

type sequenceResponse struct {
	ID    string `json:"id"`
	Query string `json:"query"`
	Seq   string `json:"seq"`
}

// FetchProteinSequences fetches protein sequences for Ensembl protein IDs,
// batching up to 50 IDs per request. IDs unknown to Ensembl are absent from
// the result.
func (c *Client) FetchProteinSequences(ctx context.Context, a genome.Assembly, proteinIDs []string) (map[string]cache.ProteinSequence, error) {
	out := make(map[string]cache.ProteinSequence, len(proteinIDs))

	ids := dedupe(proteinIDs)
	for start := 0; start < len(ids); start += maxBatchSize {
		batch := ids[start:min(start+maxBatchSize, len(ids))]

		u, err := c.endpoint(a, "/sequence/id", nil)
		if err != nil {
			return nil, err
		}

		var resp []sequenceResponse
		err = c.do(ctx, http.MethodPost, u, sequenceRequest{IDs: batch, Type: "protein"}, &resp)
		if errors.Is(err, datasource.ErrTranscriptNotFound) {
			// One unknown ID fails the whole batch; fall back to single lookups.
			for _, id := range batch {
				ps, err := c.FetchProteinSequence(ctx, a, id)
				if errors.Is(err, datasource.ErrTranscriptNotFound) {
					continue
				}
				if err != nil {
					return nil, err
				}
				out[id] = ps
			}
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("fetch protein sequences on %s: %w", a, err)
		}

		for _, r := range resp {
			id := cache.StripVersion(r.Query)
			if id == "" {
				id = cache.StripVersion(r.ID)
			}
			out[id] = cache.ProteinSequence{ProteinID: id, Assembly: a, Sequence: r.Seq}
		}
	}
	return out, nil
}

// FetchProteinSequence fetches a single protein sequence.
func (c *Client) FetchProteinSequence(ctx context.Context, a genome.Assembly, proteinID string) (cache.ProteinSequence, error) {
	id := cache.StripVersion(proteinID)
	u, err := c.endpoint(a, "/sequence/id/"+url.PathEscape(id), url.Values{"type": {"protein"}})
	if err != nil {
		return cache.ProteinSequence{}, err
	}

	var r sequenceResponse
	if err := c.do(ctx, http.MethodGet, u, nil, &r); err != nil {
		return cache.ProteinSequence{}, fmt.Errorf("fetch protein sequence %s on %s: %w", id, a, err)
	}
	return cache.ProteinSequence{ProteinID: id, Assembly: a, Sequence: r.Seq}, nil
}

func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(cache.StripVersion(id))
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
