package cache

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/inodb/oncokb-transcript/internal/genome"
)

// CanonicalOverrides maps gene symbol -> canonical transcript ID per assembly.
type CanonicalOverrides struct {
	byAssembly map[genome.Assembly]map[string]string
}

// Genome Nexus canonical transcript file URLs.
const (
	canonicalFileGRCh38 = "https://raw.githubusercontent.com/genome-nexus/genome-nexus-importer/master/data/grch38_ensembl95/export/ensembl_biomart_canonical_transcripts_per_hgnc.txt"
	canonicalFileGRCh37 = "https://raw.githubusercontent.com/genome-nexus/genome-nexus-importer/master/data/grch37_ensembl92/export/ensembl_biomart_canonical_transcripts_per_hgnc.txt"
	canonicalFileName   = "ensembl_biomart_canonical_transcripts_per_hgnc.txt"
)

// CanonicalFileURL returns the URL for the canonical transcript file for the given assembly.
func CanonicalFileURL(assembly genome.Assembly) string {
	if assembly == genome.GRCh37 {
		return canonicalFileGRCh37
	}
	return canonicalFileGRCh38
}

// CanonicalFileName returns the filename for the canonical transcript file.
func CanonicalFileName() string {
	return canonicalFileName
}

// NewCanonicalOverrides creates an empty override set.
func NewCanonicalOverrides() *CanonicalOverrides {
	return &CanonicalOverrides{byAssembly: make(map[genome.Assembly]map[string]string)}
}

// Set records a canonical transcript for a gene on an assembly.
func (o *CanonicalOverrides) Set(assembly genome.Assembly, hugo, transcriptID string) {
	m, ok := o.byAssembly[assembly]
	if !ok {
		m = make(map[string]string)
		o.byAssembly[assembly] = m
	}
	m[hugo] = StripVersion(transcriptID)
}

// Len returns the number of overrides for an assembly.
func (o *CanonicalOverrides) Len(assembly genome.Assembly) int {
	return len(o.byAssembly[assembly])
}

// CanonicalTranscriptID returns the override for the gene, or "" when none is known.
func (o *CanonicalOverrides) CanonicalTranscriptID(_ context.Context, assembly genome.Assembly, g *Gene) (string, error) {
	return o.byAssembly[assembly][g.HugoSymbol], nil
}

// LoadFile loads canonical transcript overrides for an assembly from a Genome Nexus TSV file.
// The file has columns: hgnc_symbol (col 0) and genome_nexus_canonical_transcript (col 4).
func (o *CanonicalOverrides) LoadFile(assembly genome.Assembly, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open canonical overrides file: %w", err)
	}
	defer f.Close()

	return o.parse(assembly, f)
}

// parse parses the TSV content.
func (o *CanonicalOverrides) parse(assembly genome.Assembly, reader io.Reader) error {
	scanner := bufio.NewScanner(reader)

	// Skip header line
	if !scanner.Scan() {
		return scanner.Err()
	}

	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}

		fields := strings.Split(line, "\t")
		if len(fields) < 5 {
			continue
		}

		hgnc := fields[0]
		transcript := fields[4]

		if hgnc == "" || transcript == "" || transcript == "nan" {
			continue
		}

		o.Set(assembly, hgnc, transcript)
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("scan canonical overrides: %w", err)
	}

	return nil
}

// DownloadCanonicalOverrides downloads the canonical transcript file to the given path.
func DownloadCanonicalOverrides(ctx context.Context, assembly genome.Assembly, destPath string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, CanonicalFileURL(assembly), nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	client := &http.Client{Timeout: 5 * time.Minute}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("download canonical overrides: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download canonical overrides: HTTP %s", resp.Status)
	}

	f, err := os.Create(destPath + ".tmp")
	if err != nil {
		return fmt.Errorf("create file: %w", err)
	}

	if _, err := io.Copy(f, resp.Body); err != nil {
		f.Close()
		os.Remove(destPath + ".tmp")
		return fmt.Errorf("write canonical overrides: %w", err)
	}
	f.Close()

	if err := os.Rename(destPath+".tmp", destPath); err != nil {
		os.Remove(destPath + ".tmp")
		return fmt.Errorf("rename canonical overrides: %w", err)
	}

	return nil
}
