// Package gencode serves transcripts and protein sequences from local
// GENCODE annotation files, for resolving without the Ensembl REST API.
package gencode

import (
	"bufio"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"slices"
	"sort"
	"strconv"
	"strings"

	"github.com/inodb/oncokb-transcript/internal/cache"
	"github.com/inodb/oncokb-transcript/internal/genome"
)

const tagEnsemblCanonical = "Ensembl_canonical"

// gtfFeature represents a parsed GTF line.
type gtfFeature struct {
	chrom       string
	featureType string
	start       int64
	end         int64
	strand      int8
	attributes  map[string]string
	tags        []string
}

// transcriptBuilder collects the features of one transcript.
type transcriptBuilder struct {
	t         *cache.Transcript
	exons     []cache.Fragment
	cds       [][2]int64
	stop      bool
	canonical bool
}

// LoadGTF reads a GENCODE GTF file (optionally gzipped) for an assembly.
func LoadGTF(path string, a genome.Assembly) (*Annotation, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open GTF file: %w", err)
	}
	defer f.Close()

	var reader io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("open gzip reader: %w", err)
		}
		defer gz.Close()
		reader = gz
	}

	ann, err := ParseGTF(reader, a)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return ann, nil
}

// ParseGTF builds an Annotation from GTF content. Only protein-coding
// transcripts with at least one exon are kept.
func ParseGTF(reader io.Reader, a genome.Assembly) (*Annotation, error) {
	scanner := bufio.NewScanner(reader)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 1024*1024)

	builders := make(map[string]*transcriptBuilder)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "#") || line == "" {
			continue
		}

		feat, err := parseLine(line)
		if err != nil {
			continue
		}

		id := cache.StripVersion(feat.attributes["transcript_id"])
		if id == "" {
			continue
		}
		if feat.attributes["transcript_type"] != "" && feat.attributes["transcript_type"] != "protein_coding" {
			continue
		}

		b, ok := builders[id]
		if !ok {
			b = &transcriptBuilder{t: &cache.Transcript{
				ID:         id,
				Assembly:   a,
				GeneID:     cache.StripVersion(feat.attributes["gene_id"]),
				HugoSymbol: feat.attributes["gene_name"],
				Biotype:    "protein_coding",
				Chrom:      feat.chrom,
				Strand:     feat.strand,
			}}
			builders[id] = b
		}
		if pid := feat.attributes["protein_id"]; pid != "" {
			b.t.ProteinID = cache.StripVersion(pid)
		}
		if slices.Contains(feat.tags, tagEnsemblCanonical) {
			b.canonical = true
		}

		switch feat.featureType {
		case "transcript":
			b.t.Start, b.t.End = feat.start, feat.end
		case "exon":
			rank, _ := strconv.Atoi(feat.attributes["exon_number"])
			b.exons = append(b.exons, cache.Fragment{
				Type:   cache.FragmentExon,
				Rank:   rank,
				Chrom:  feat.chrom,
				Start:  feat.start,
				End:    feat.end,
				Strand: feat.strand,
			})
		case "CDS":
			b.cds = append(b.cds, [2]int64{feat.start, feat.end})
		case "stop_codon":
			b.cds = append(b.cds, [2]int64{feat.start, feat.end})
			b.stop = true
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan GTF: %w", err)
	}

	ann := newAnnotation(a)
	for _, b := range builders {
		if len(b.exons) == 0 || b.t.ProteinID == "" {
			continue
		}
		ann.add(b.build(), b.canonical)
	}
	return ann, nil
}

// build assembles exons in rank order followed by UTRs derived from the
// coding span.
func (b *transcriptBuilder) build() *cache.Transcript {
	t := b.t
	sort.Slice(b.exons, func(i, j int) bool {
		if b.exons[i].Rank != b.exons[j].Rank {
			return b.exons[i].Rank < b.exons[j].Rank
		}
		return b.exons[i].Start < b.exons[j].Start
	})
	if t.Start == 0 || t.End == 0 {
		t.Start, t.End = b.exons[0].Start, b.exons[0].End
		for _, e := range b.exons[1:] {
			t.Start = min(t.Start, e.Start)
			t.End = max(t.End, e.End)
		}
	}
	t.Fragments = append(t.Fragments, b.exons...)

	if len(b.cds) == 0 {
		return t
	}
	cdsStart, cdsEnd := b.cds[0][0], b.cds[0][1]
	var codingLen int64
	for _, r := range b.cds {
		cdsStart = min(cdsStart, r[0])
		cdsEnd = max(cdsEnd, r[1])
		codingLen += r[1] - r[0] + 1
	}
	t.ProteinLength = int(codingLen / 3)
	if b.stop {
		t.ProteinLength--
	}

	before, after := cache.FragmentFivePrimeUTR, cache.FragmentThreePrimeUTR
	if t.Strand == -1 {
		before, after = after, before
	}
	for _, e := range b.exons {
		if e.Start < cdsStart {
			t.Fragments = append(t.Fragments, cache.Fragment{
				Type: before, Chrom: e.Chrom, Start: e.Start, End: min(e.End, cdsStart-1), Strand: e.Strand,
			})
		}
		if e.End > cdsEnd {
			t.Fragments = append(t.Fragments, cache.Fragment{
				Type: after, Chrom: e.Chrom, Start: max(e.Start, cdsEnd+1), End: e.End, Strand: e.Strand,
			})
		}
	}
	return t
}

// parseLine parses a single GTF line.
func parseLine(line string) (*gtfFeature, error) {
	fields := strings.Split(line, "\t")
	if len(fields) < 9 {
		return nil, fmt.Errorf("invalid GTF line: expected 9 fields, got %d", len(fields))
	}

	start, err := strconv.ParseInt(fields[3], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("parse start: %w", err)
	}
	end, err := strconv.ParseInt(fields[4], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("parse end: %w", err)
	}

	attrs, tags := parseAttributes(fields[8])
	return &gtfFeature{
		chrom:       cache.NormalizeChrom(fields[0]),
		featureType: fields[2],
		start:       start,
		end:         end,
		strand:      parseStrand(fields[6]),
		attributes:  attrs,
		tags:        tags,
	}, nil
}

// parseAttributes parses the GTF attribute column: key "value"; key "value";
// Repeated tag attributes are collected separately.
func parseAttributes(attrStr string) (map[string]string, []string) {
	attrs := make(map[string]string)
	var tags []string

	for _, part := range strings.Split(attrStr, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		key, value, ok := strings.Cut(part, " ")
		if !ok {
			continue
		}
		value = strings.Trim(strings.TrimSpace(value), "\"")
		if key == "tag" {
			tags = append(tags, value)
			continue
		}
		attrs[key] = value
	}
	return attrs, tags
}

func parseStrand(s string) int8 {
	if s == "-" {
		return -1
	}
	return 1
}
