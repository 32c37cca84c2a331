package writers

import (
	"fmt"

	pqgo "github.com/parquet-go/parquet-go"
	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/source"
)

type parquetMetadataWriter struct {
	columns []string
	file    source.ParquetFile
	writer  *pqgo.GenericWriter[map[string]any]
}

// newParquetMetadataWriter writes the passed records as parquet. Every
// column is an optional UTF8 string, mirroring the text form.
func newParquetMetadataWriter(path string, columns []string) (*parquetMetadataWriter, error) {
	group := pqgo.Group{}
	for _, col := range columns {
		group[col] = pqgo.Optional(pqgo.String())
	}
	schema := pqgo.NewSchema("metadata", group)

	file, err := local.NewLocalFileWriter(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create metadata output: %s", err)
	}
	return &parquetMetadataWriter{
		columns: columns,
		file:    file,
		writer:  pqgo.NewGenericWriter[map[string]any](file, schema, pqgo.Compression(&pqgo.Snappy)),
	}, nil
}

func (w *parquetMetadataWriter) Name() string { return "metadata output" }

func (w *parquetMetadataWriter) Consume(row Row) error {
	if !row.Passed {
		return nil
	}
	record := make(map[string]any, len(w.columns))
	for _, col := range w.columns {
		record[col] = row.Record[col]
	}
	_, err := w.writer.Write([]map[string]any{record})
	return err
}

func (w *parquetMetadataWriter) Close() error {
	if err := w.writer.Close(); err != nil {
		w.file.Close()
		return err
	}
	return w.file.Close()
}
