// Package metadata streams delimited sample metadata in bounded-size
// chunks. The delimiter is sniffed from the header line and the identifier
// column is picked from a configurable candidate list.
package metadata

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/cheggaaa/pb/v3"

	"github.com/seqsift/seqsift/constants"
	"github.com/seqsift/seqsift/types"
)

// Source describes a metadata file and how to read it. A Source can be
// opened any number of times, so an engine may make more than one pass.
type Source struct {
	Path      string
	IDColumns []string
	ChunkSize int64
	Progress  bool
}

func NewSource(path string, idColumns []string, chunkSize int64) *Source {
	if len(idColumns) == 0 {
		idColumns = constants.DefaultIDColumns
	}
	return &Source{
		Path:      path,
		IDColumns: idColumns,
		ChunkSize: chunkSize,
	}
}

// Probe reads only the header and reports the column layout.
func (s *Source) Probe() (columns []string, idColumn string, err error) {
	reader, err := s.Open()
	if err != nil {
		return nil, "", err
	}
	defer reader.Close()
	return reader.Columns(), reader.IDColumn(), nil
}

// Open positions a new Reader at the first record.
func (s *Source) Open() (*Reader, error) {
	delimiter, err := detectDelimiter(s.Path)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(s.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open metadata file: %s", err)
	}

	var (
		bar *pb.ProgressBar
		src io.Reader = file
	)
	if s.Progress {
		if info, err := file.Stat(); err == nil && info.Size() > 0 {
			bar = pb.Full.Start64(info.Size())
			bar.Set("prefix", "metadata ")
			bar.Set(pb.CleanOnFinish, true)
			src = bar.NewProxyReader(file)
		}
	}

	cr := csv.NewReader(bufio.NewReader(src))
	cr.Comma = delimiter
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		file.Close()
		if err == io.EOF {
			return nil, types.Configf("metadata file %s is empty", s.Path)
		}
		return nil, fmt.Errorf("failed to read metadata header: %s", err)
	}
	header[0] = strings.TrimPrefix(header[0], "\uFEFF")

	idColumn := ""
	for _, candidate := range s.IDColumns {
		for _, col := range header {
			if col == candidate {
				idColumn = candidate
				break
			}
		}
		if idColumn != "" {
			break
		}
	}
	if idColumn == "" {
		file.Close()
		return nil, types.Configf(
			"none of the possible id columns (%s) were found in the metadata's columns (%s)",
			strings.Join(s.IDColumns, ", "), strings.Join(header, ", "))
	}

	return &Reader{
		file:     file,
		bar:      bar,
		csv:      cr,
		columns:  header,
		idColumn: idColumn,
		chunk:    s.ChunkSize,
	}, nil
}

// Reader yields batches of records in file order.
type Reader struct {
	file     *os.File
	bar      *pb.ProgressBar
	csv      *csv.Reader
	columns  []string
	idColumn string
	chunk    int64
	next     int64
}

func (r *Reader) Columns() []string { return r.columns }
func (r *Reader) IDColumn() string  { return r.idColumn }

// Next returns the next batch, or io.EOF once the file is exhausted. With
// a zero chunk size the whole file comes back as a single batch.
func (r *Reader) Next() (*types.Batch, error) {
	batch := &types.Batch{
		Columns:  r.columns,
		IDColumn: r.idColumn,
		Start:    r.next,
	}
	for {
		row, err := r.csv.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read metadata row: %s", err)
		}
		record := make(types.Record, len(r.columns))
		for i, col := range r.columns {
			if i < len(row) {
				record[col] = row[i]
			}
		}
		batch.Records = append(batch.Records, record)
		r.next++
		if r.chunk > 0 && int64(len(batch.Records)) >= r.chunk {
			return batch, nil
		}
	}
	if len(batch.Records) == 0 {
		return nil, io.EOF
	}
	return batch, nil
}

func (r *Reader) Close() error {
	if r.bar != nil {
		r.bar.Finish()
	}
	return r.file.Close()
}

// detectDelimiter infers tab or comma from the header line. Single-column
// files default to tab.
func detectDelimiter(path string) (rune, error) {
	file, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("failed to open metadata file: %s", err)
	}
	defer file.Close()

	line, err := bufio.NewReader(file).ReadString('\n')
	if err != nil && err != io.EOF {
		return 0, fmt.Errorf("failed to read metadata header: %s", err)
	}
	if strings.ContainsRune(line, constants.TSVDelimiter) {
		return constants.TSVDelimiter, nil
	}
	if strings.ContainsRune(line, constants.CSVDelimiter) {
		return constants.CSVDelimiter, nil
	}
	return constants.TSVDelimiter, nil
}

// ReadStrains collects identifiers from plain-text files, one per line.
// Anything after a # is a comment; blank lines are skipped.
func ReadStrains(paths ...string) (map[string]struct{}, error) {
	strains := make(map[string]struct{})
	for _, path := range paths {
		file, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open strains file: %s", err)
		}
		scanner := bufio.NewScanner(file)
		scanner.Buffer(make([]byte, 0, 1024*1024), 1024*1024)
		for scanner.Scan() {
			name := strings.TrimSpace(strings.SplitN(scanner.Text(), "#", 2)[0])
			if name != "" {
				strains[name] = struct{}{}
			}
		}
		if err := scanner.Err(); err != nil {
			file.Close()
			return nil, fmt.Errorf("failed to read strains file %s: %s", path, err)
		}
		file.Close()
	}
	return strains, nil
}
