// Package seqio reads and writes FASTA sequence files and builds the
// per-sequence composition index used by length and content filters.
package seqio

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"
)

// Sequence is one FASTA record. ID is the first whitespace-delimited token
// of the header line; Header keeps the full line without the leading '>'.
type Sequence struct {
	ID     string
	Header string
	Seq    []byte
}

// Reader streams FASTA records one at a time.
type Reader struct {
	file    *os.File
	br      *bufio.Reader
	pending string
	done    bool
}

func OpenFASTA(path string) (*Reader, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sequences file: %s", err)
	}
	return &Reader{file: file, br: bufio.NewReaderSize(file, 1<<20)}, nil
}

// Next returns the next record, or io.EOF after the last one.
func (r *Reader) Next() (*Sequence, error) {
	if r.done {
		return nil, io.EOF
	}

	header := r.pending
	for header == "" {
		line, err := r.readLine()
		if err == io.EOF {
			r.done = true
			return nil, io.EOF
		}
		if err != nil {
			return nil, err
		}
		if line == "" {
			continue
		}
		if !strings.HasPrefix(line, ">") {
			return nil, fmt.Errorf("failed to parse sequences file: expected a '>' header, got %q", line)
		}
		header = line
	}
	r.pending = ""

	var seq bytes.Buffer
	for {
		line, err := r.readLine()
		if err == io.EOF {
			r.done = true
			break
		}
		if err != nil {
			return nil, err
		}
		if strings.HasPrefix(line, ">") {
			r.pending = line
			break
		}
		seq.WriteString(strings.TrimSpace(line))
	}

	full := strings.TrimSpace(strings.TrimPrefix(header, ">"))
	id := full
	if i := strings.IndexAny(full, " \t"); i >= 0 {
		id = full[:i]
	}
	return &Sequence{ID: id, Header: full, Seq: seq.Bytes()}, nil
}

func (r *Reader) readLine() (string, error) {
	line, err := r.br.ReadString('\n')
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("failed to read sequences file: %s", err)
	}
	if line == "" && err == io.EOF {
		return "", io.EOF
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func (r *Reader) Close() error { return r.file.Close() }

// fastaLineWidth is the column at which written sequences wrap.
const fastaLineWidth = 60

// Writer emits FASTA records with fixed-width sequence lines.
type Writer struct {
	w   io.WriteCloser
	buf *bufio.Writer
}

func NewFASTAWriter(path string) (*Writer, error) {
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create sequences file: %s", err)
	}
	return &Writer{w: file, buf: bufio.NewWriterSize(file, 1<<20)}, nil
}

func (w *Writer) Write(seq *Sequence) error {
	header := seq.Header
	if header == "" {
		header = seq.ID
	}
	if _, err := fmt.Fprintf(w.buf, ">%s\n", header); err != nil {
		return fmt.Errorf("failed to write sequence: %s", err)
	}
	for start := 0; start < len(seq.Seq); start += fastaLineWidth {
		end := start + fastaLineWidth
		if end > len(seq.Seq) {
			end = len(seq.Seq)
		}
		if _, err := w.buf.Write(seq.Seq[start:end]); err != nil {
			return fmt.Errorf("failed to write sequence: %s", err)
		}
		if err := w.buf.WriteByte('\n'); err != nil {
			return fmt.Errorf("failed to write sequence: %s", err)
		}
	}
	return nil
}

func (w *Writer) Close() error {
	if err := w.buf.Flush(); err != nil {
		return fmt.Errorf("failed to flush sequences file: %s", err)
	}
	return w.w.Close()
}
