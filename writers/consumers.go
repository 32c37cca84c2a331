package writers

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"

	"github.com/seqsift/seqsift/constants"
	"github.com/seqsift/seqsift/utils"
)

type strainsWriter struct {
	file *os.File
	bw   *bufio.Writer
}

// newStrainsWriter writes one passed identifier per line, in input order.
func newStrainsWriter(path string) (*strainsWriter, error) {
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create strains output: %s", err)
	}
	return &strainsWriter{file: file, bw: bufio.NewWriter(file)}, nil
}

func (w *strainsWriter) Name() string { return "strains output" }

func (w *strainsWriter) Consume(row Row) error {
	if !row.Passed {
		return nil
	}
	_, err := w.bw.WriteString(row.ID + "\n")
	return err
}

func (w *strainsWriter) Close() error {
	if err := w.bw.Flush(); err != nil {
		w.file.Close()
		return err
	}
	return w.file.Close()
}

type textMetadataWriter struct {
	columns []string
	file    *os.File
	csv     *csv.Writer
}

// newTextMetadataWriter writes the passed records with the original
// columns. The delimiter follows the extension: comma for .csv, tab
// otherwise.
func newTextMetadataWriter(path string, columns []string) (*textMetadataWriter, error) {
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create metadata output: %s", err)
	}
	cw := csv.NewWriter(file)
	cw.Comma = utils.Ternary(filepath.Ext(path) == ".csv", constants.CSVDelimiter, constants.TSVDelimiter).(rune)
	if err := cw.Write(columns); err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to write metadata header: %s", err)
	}
	return &textMetadataWriter{columns: columns, file: file, csv: cw}, nil
}

func (w *textMetadataWriter) Name() string { return "metadata output" }

func (w *textMetadataWriter) Consume(row Row) error {
	if !row.Passed {
		return nil
	}
	fields := make([]string, len(w.columns))
	for i, col := range w.columns {
		fields[i] = row.Record[col]
	}
	return w.csv.Write(fields)
}

func (w *textMetadataWriter) Close() error {
	w.csv.Flush()
	if err := w.csv.Error(); err != nil {
		w.file.Close()
		return err
	}
	return w.file.Close()
}

type runLogWriter struct {
	file *os.File
	csv  *csv.Writer
}

// newRunLogWriter writes one line per record that matched any rule: the
// identifier, the rule name, and the rendered kwargs.
func newRunLogWriter(path string) (*runLogWriter, error) {
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create log output: %s", err)
	}
	cw := csv.NewWriter(file)
	cw.Comma = constants.TSVDelimiter
	if err := cw.Write([]string{"strain", "filter", "kwargs"}); err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to write log header: %s", err)
	}
	return &runLogWriter{file: file, csv: cw}, nil
}

func (w *runLogWriter) Name() string { return "log output" }

func (w *runLogWriter) Consume(row Row) error {
	if row.Reason == nil {
		return nil
	}
	return w.csv.Write([]string{row.ID, row.Reason.Rule, row.Reason.Kwargs})
}

func (w *runLogWriter) Close() error {
	w.csv.Flush()
	if err := w.csv.Error(); err != nil {
		w.file.Close()
		return err
	}
	return w.file.Close()
}
