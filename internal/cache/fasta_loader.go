package cache

import (
	"bufio"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/inodb/oncokb-transcript/internal/genome"
)

// FASTALoader loads protein sequences from GENCODE translation FASTA files
// (gencode.vNN.pc_translations.fa.gz) for a single assembly.
type FASTALoader struct {
	path        string
	assembly    genome.Assembly
	sequences   map[string]string // protein_id -> sequence
	transcripts map[string]string // protein_id -> transcript_id
}

// NewFASTALoader creates a new FASTA loader.
func NewFASTALoader(path string, assembly genome.Assembly) *FASTALoader {
	return &FASTALoader{
		path:        path,
		assembly:    assembly,
		sequences:   make(map[string]string),
		transcripts: make(map[string]string),
	}
}

// Load parses the FASTA file and stores sequences indexed by protein ID.
func (l *FASTALoader) Load() error {
	f, err := os.Open(l.path)
	if err != nil {
		return fmt.Errorf("open FASTA file: %w", err)
	}
	defer f.Close()

	var reader io.Reader = f

	// Handle gzipped files
	if strings.HasSuffix(l.path, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return fmt.Errorf("open gzip reader: %w", err)
		}
		defer gz.Close()
		reader = gz
	}

	return l.parseFASTA(reader)
}

// parseFASTA parses FASTA content.
// GENCODE translation headers look like:
// >ENSP00000288602.6|ENST00000288602.11|ENSG00000157764.14|OTTHUMG00000157457.5|OTTHUMT00000348211.3|BRAF-201|BRAF|766
func (l *FASTALoader) parseFASTA(reader io.Reader) error {
	scanner := bufio.NewScanner(reader)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 10*1024*1024)

	var currentID string
	var currentSeq strings.Builder

	flush := func() {
		if currentID != "" && currentSeq.Len() > 0 {
			// Translations may carry a trailing stop symbol.
			l.sequences[currentID] = strings.TrimSuffix(currentSeq.String(), "*")
		}
	}

	for scanner.Scan() {
		line := scanner.Text()

		if strings.HasPrefix(line, ">") {
			flush()
			var transcriptID string
			currentID, transcriptID = parseHeader(line)
			if transcriptID != "" {
				l.transcripts[currentID] = transcriptID
			}
			currentSeq.Reset()
		} else {
			currentSeq.WriteString(strings.TrimSpace(line))
		}
	}
	flush()

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("scan FASTA: %w", err)
	}

	return nil
}

// parseHeader extracts the protein ID and, for GENCODE headers, the transcript ID.
// Handles GENCODE pipe-delimited, Ensembl space-delimited and bare-ID headers.
func parseHeader(header string) (proteinID, transcriptID string) {
	header = strings.TrimPrefix(header, ">")

	if strings.Contains(header, "|") {
		fields := strings.Split(header, "|")
		proteinID = StripVersion(fields[0])
		if len(fields) > 1 && strings.HasPrefix(fields[1], "ENST") {
			transcriptID = StripVersion(fields[1])
		}
		return proteinID, transcriptID
	}

	// Ensembl: >ENSP00000288602.6 pep chromosome:GRCh38:7:... transcript:ENST00000288602.11 ...
	fields := strings.Fields(header)
	if len(fields) == 0 {
		return "", ""
	}
	proteinID = StripVersion(fields[0])
	for _, f := range fields[1:] {
		if v, ok := strings.CutPrefix(f, "transcript:"); ok {
			transcriptID = StripVersion(v)
		}
	}
	return proteinID, transcriptID
}

// Lookup returns the protein sequence for a protein ID (version suffix ignored).
func (l *FASTALoader) Lookup(proteinID string) (ProteinSequence, bool) {
	id := StripVersion(proteinID)
	seq, ok := l.sequences[id]
	if !ok {
		return ProteinSequence{}, false
	}
	return ProteinSequence{
		ProteinID:    id,
		TranscriptID: l.transcripts[id],
		Assembly:     l.assembly,
		Sequence:     seq,
	}, true
}

// Assembly returns the assembly the sequences belong to.
func (l *FASTALoader) Assembly() genome.Assembly {
	return l.assembly
}

// SequenceCount returns the number of loaded sequences.
func (l *FASTALoader) SequenceCount() int {
	return len(l.sequences)
}
