// Package maf reads protein changes from MAF (Mutation Annotation Format)
// and similar tab-separated mutation tables.
package maf

import (
	"bufio"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"strings"
)

// Standard MAF column names
const (
	ColHugoSymbol    = "Hugo_Symbol"
	ColHGVSpShort    = "HGVSp_Short"
	ColHGVSp         = "HGVSp"
	ColProteinChange = "Protein_Change"
	ColAlteration    = "Alteration"
	ColConsequence   = "Consequence"
	ColTranscriptID  = "Transcript_ID"
	ColNCBIBuild     = "NCBI_Build"
)

// proteinChangeColumns lists accepted protein change columns, preferred first.
var proteinChangeColumns = []string{ColHGVSpShort, ColProteinChange, ColAlteration, ColHGVSp}

// ColumnIndices holds the indices of the columns the parser reads. Missing
// optional columns are -1.
type ColumnIndices struct {
	HugoSymbol    int
	ProteinChange int
	Consequence   int
	TranscriptID  int
	NCBIBuild     int
}

// Record is one mutation row.
type Record struct {
	Line          int
	HugoSymbol    string
	ProteinChange string
	Consequence   string
	TranscriptID  string
	NCBIBuild     string
}

// Parser reads records from a MAF file.
type Parser struct {
	reader     *bufio.Reader
	file       *os.File
	gzipReader *gzip.Reader
	lineNumber int
	columns    ColumnIndices
	headerLine string
}

// NewParser creates a new MAF parser for the given file.
// Supports both plain MAF and gzipped MAF (.maf.gz) files.
func NewParser(path string) (*Parser, error) {
	if path == "-" {
		return NewParserFromReader(os.Stdin)
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open maf file: %w", err)
	}

	p := &Parser{file: file}

	buf := make([]byte, 2)
	if _, err := io.ReadFull(file, buf); err != nil {
		file.Close()
		return nil, fmt.Errorf("read maf header: %w", err)
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		file.Close()
		return nil, fmt.Errorf("seek maf file: %w", err)
	}

	// gzip magic number
	if buf[0] == 0x1f && buf[1] == 0x8b {
		p.gzipReader, err = gzip.NewReader(file)
		if err != nil {
			file.Close()
			return nil, fmt.Errorf("create gzip reader: %w", err)
		}
		p.reader = bufio.NewReader(p.gzipReader)
	} else {
		p.reader = bufio.NewReader(file)
	}

	if err := p.parseHeader(); err != nil {
		p.Close()
		return nil, err
	}
	return p, nil
}

// NewParserFromReader creates a parser from an io.Reader (e.g., stdin).
func NewParserFromReader(r io.Reader) (*Parser, error) {
	p := &Parser{reader: bufio.NewReader(r)}
	if err := p.parseHeader(); err != nil {
		return nil, err
	}
	return p, nil
}

// readLine returns the next non-empty, non-comment line, or io.EOF.
func (p *Parser) readLine() (string, error) {
	for {
		line, err := p.reader.ReadString('\n')
		if err != nil && (err != io.EOF || line == "") {
			return "", err
		}
		p.lineNumber++

		line = strings.TrimRight(line, "\r\n")
		if line == "" || strings.HasPrefix(line, "#") {
			if err == io.EOF {
				return "", io.EOF
			}
			continue
		}
		return line, nil
	}
}

// parseHeader reads the header line and finds column indices.
func (p *Parser) parseHeader() error {
	line, err := p.readLine()
	if err == io.EOF {
		return &ParseError{Line: p.lineNumber, Message: "no header line found"}
	}
	if err != nil {
		return fmt.Errorf("read header: %w", err)
	}
	p.headerLine = line
	return p.parseColumnIndices(line)
}

func (p *Parser) parseColumnIndices(headerLine string) error {
	p.columns = ColumnIndices{
		HugoSymbol:    -1,
		ProteinChange: -1,
		Consequence:   -1,
		TranscriptID:  -1,
		NCBIBuild:     -1,
	}

	index := make(map[string]int)
	for i, col := range strings.Split(headerLine, "\t") {
		index[strings.TrimSpace(col)] = i
	}
	lookup := func(name string) int {
		if i, ok := index[name]; ok {
			return i
		}
		return -1
	}

	p.columns.HugoSymbol = lookup(ColHugoSymbol)
	p.columns.Consequence = lookup(ColConsequence)
	p.columns.TranscriptID = lookup(ColTranscriptID)
	p.columns.NCBIBuild = lookup(ColNCBIBuild)
	for _, name := range proteinChangeColumns {
		if i := lookup(name); i >= 0 {
			p.columns.ProteinChange = i
			break
		}
	}

	if p.columns.HugoSymbol == -1 {
		return &ParseError{
			Line:    p.lineNumber,
			Message: "required column 'Hugo_Symbol' not found in header",
		}
	}
	if p.columns.ProteinChange == -1 {
		return &ParseError{
			Line:    p.lineNumber,
			Message: "no protein change column (" + strings.Join(proteinChangeColumns, ", ") + ") found in header",
		}
	}
	return nil
}

// Next reads the next record. Returns nil, nil when there are no more rows.
func (p *Parser) Next() (*Record, error) {
	line, err := p.readLine()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read mutation line: %w", err)
	}
	return p.parseLine(line)
}

func (p *Parser) parseLine(line string) (*Record, error) {
	fields := strings.Split(line, "\t")

	minCols := max(p.columns.HugoSymbol, p.columns.ProteinChange)
	if len(fields) <= minCols {
		return nil, &ParseError{
			Line:    p.lineNumber,
			Message: fmt.Sprintf("expected at least %d columns, found %d", minCols+1, len(fields)),
		}
	}

	field := func(i int) string {
		if i < 0 || i >= len(fields) {
			return ""
		}
		return strings.TrimSpace(fields[i])
	}

	return &Record{
		Line:          p.lineNumber,
		HugoSymbol:    field(p.columns.HugoSymbol),
		ProteinChange: field(p.columns.ProteinChange),
		Consequence:   field(p.columns.Consequence),
		TranscriptID:  field(p.columns.TranscriptID),
		NCBIBuild:     field(p.columns.NCBIBuild),
	}, nil
}

// Header returns the MAF header line.
func (p *Parser) Header() string {
	return p.headerLine
}

// Columns returns the parsed column indices.
func (p *Parser) Columns() ColumnIndices {
	return p.columns
}

// LineNumber returns the current line number being processed.
func (p *Parser) LineNumber() int {
	return p.lineNumber
}

// Close closes the parser and underlying file.
func (p *Parser) Close() error {
	if p.gzipReader != nil {
		p.gzipReader.Close()
	}
	if p.file != nil {
		return p.file.Close()
	}
	return nil
}

// ParseError represents an error during MAF parsing with line context.
type ParseError struct {
	Line    int
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("maf parse error at line %d: %s", e.Line, e.Message)
}
