// Package output writes resolver results in tab-delimited format.
package output

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/inodb/oncokb-transcript/internal/annotate"
	"github.com/inodb/oncokb-transcript/internal/cache"
	"github.com/inodb/oncokb-transcript/internal/match"
)

// tabWriter is the shared row writer.
type tabWriter struct {
	w       *bufio.Writer
	columns []string
}

func newTabWriter(w io.Writer, columns ...string) tabWriter {
	return tabWriter{w: bufio.NewWriter(w), columns: columns}
}

// WriteHeader writes the header line.
func (tw *tabWriter) WriteHeader() error {
	_, err := tw.w.WriteString(strings.Join(tw.columns, "\t") + "\n")
	return err
}

func (tw *tabWriter) writeRow(values []string) error {
	for i, v := range values {
		if v == "" {
			values[i] = "-"
		}
	}
	_, err := tw.w.WriteString(strings.Join(values, "\t") + "\n")
	return err
}

// Flush flushes any buffered data to the underlying writer.
func (tw *tabWriter) Flush() error {
	return tw.w.Flush()
}

func yesNo(b bool) string {
	if b {
		return "YES"
	}
	return ""
}

func positive(n int) string {
	if n <= 0 {
		return ""
	}
	return strconv.Itoa(n)
}

// TranscriptWriter writes one row per transcript.
type TranscriptWriter struct {
	tabWriter
}

// NewTranscriptWriter creates a transcript writer.
func NewTranscriptWriter(w io.Writer) *TranscriptWriter {
	return &TranscriptWriter{newTabWriter(w,
		"#Gene",
		"Entrez_Gene_Id",
		"Reference_Genome",
		"Transcript",
		"Protein",
		"Ensembl_Gene",
		"RefSeq",
		"CANONICAL",
		"Location",
		"Strand",
		"Exons",
		"Protein_Length",
	)}
}

// Write writes a single transcript.
func (tw *TranscriptWriter) Write(t *cache.Transcript) error {
	location := ""
	if t.Chrom != "" {
		location = fmt.Sprintf("%s:%d-%d", t.Chrom, t.Start, t.End)
	}
	return tw.writeRow([]string{
		t.HugoSymbol,
		positive(t.EntrezGeneID),
		string(t.Assembly),
		t.ID,
		t.ProteinID,
		t.GeneID,
		t.RefSeqID,
		yesNo(t.Canonical),
		location,
		strconv.Itoa(int(t.Strand)),
		strconv.Itoa(len(t.Exons())),
		positive(t.ProteinLength),
	})
}

// MatchWriter writes one row per cross-assembly match.
type MatchWriter struct {
	tabWriter
}

// NewMatchWriter creates a match writer.
func NewMatchWriter(w io.Writer) *MatchWriter {
	return &MatchWriter{newTabWriter(w,
		"#Gene",
		"Reference_Genome",
		"Transcript",
		"Target_Reference_Genome",
		"Target_Transcript",
		"Target_Protein",
		"Tier",
		"Note",
	)}
}

// Write writes the match of a reference transcript.
func (mw *MatchWriter) Write(ref *cache.Transcript, res *match.Result) error {
	var target, targetAssembly, protein string
	if res.Target != nil {
		target = res.Target.ID
		targetAssembly = string(res.Target.Assembly)
		protein = res.Target.ProteinID
	}
	return mw.writeRow([]string{
		ref.HugoSymbol,
		string(ref.Assembly),
		ref.ID,
		targetAssembly,
		target,
		protein,
		res.Tier.String(),
		res.Note,
	})
}

// AlterationWriter writes one row per annotated alteration.
type AlterationWriter struct {
	tabWriter
}

// NewAlterationWriter creates an alteration writer.
func NewAlterationWriter(w io.Writer) *AlterationWriter {
	return &AlterationWriter{newTabWriter(w,
		"#Input",
		"Gene",
		"Alteration",
		"Name",
		"Consequence",
		"Protein_Start",
		"Protein_End",
		"Ref_Residues",
		"Variant_Residues",
		"HGVSp",
		"Reference_Genomes",
		"ID",
	)}
}

// Write writes an annotated alteration. id is the stored alteration ID, if
// any.
func (aw *AlterationWriter) Write(input string, alt *annotate.Alteration, id string) error {
	genomes := make([]string, 0, 2)
	for _, a := range alt.SortedReferenceGenomes() {
		genomes = append(genomes, string(a))
	}
	return aw.writeRow([]string{
		input,
		strings.Join(alt.HugoSymbols(), ","),
		alt.Alteration,
		alt.Name(),
		alt.Consequence.Term,
		positive(alt.ProteinStart),
		positive(alt.ProteinEnd),
		alt.RefResidues,
		alt.VariantResidues,
		annotate.FormatHGVSp(alt),
		strings.Join(genomes, ","),
		id,
	})
}

// WriteError writes a row for an input that could not be annotated.
func (aw *AlterationWriter) WriteError(input, gene string, err error) error {
	values := make([]string, len(aw.columns))
	values[0] = input
	values[1] = gene
	values[2] = "ERROR: " + err.Error()
	return aw.writeRow(values)
}
