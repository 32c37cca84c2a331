// Package writers produces the selected output files from a finished
// run. Strains, metadata, and run log are derived from one re-read of the
// metadata source so every output preserves the input's row order;
// sequences stream straight from the FASTA input.
package writers

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	"github.com/hashicorp/go-multierror"
	"golang.org/x/sync/errgroup"

	"github.com/seqsift/seqsift/constants"
	"github.com/seqsift/seqsift/pkg/metadata"
	"github.com/seqsift/seqsift/pkg/seqio"
	"github.com/seqsift/seqsift/types"
	"github.com/seqsift/seqsift/utils"
	"github.com/seqsift/seqsift/utils/safego"
)

// Row is one metadata record annotated with its outcome, delivered to
// every consumer in input order.
type Row struct {
	ID     string
	Record types.Record
	Passed bool
	// Reason is the last rule that matched the record, nil when none did.
	Reason *types.Reason
}

// rowConsumer is one output file fed from the metadata re-read.
type rowConsumer interface {
	Name() string
	Consume(row Row) error
	Close() error
}

// Plan is everything needed to produce the selected outputs.
type Plan struct {
	Config  *types.FilterConfig
	Columns []string
	Passed  map[string]struct{}
	Reasons map[string]types.Reason
	// Index gates the sequence sync warning; nil when no index was used.
	Index map[string]seqio.Composition
}

// WriteOutputs writes every output the config selects. Metadata-derived
// outputs run concurrently off a single producer pass; the sequence
// output streams the FASTA input in parallel with it.
func WriteOutputs(ctx context.Context, plan *Plan) error {
	consumers, err := buildConsumers(plan)
	if err != nil {
		return err
	}

	jobs := make([]func() error, 0, 2)
	if len(consumers) > 0 {
		jobs = append(jobs, func() error {
			return fanOut(ctx, plan, consumers)
		})
	}
	if plan.Config.OutputSequences != "" {
		jobs = append(jobs, func() error {
			return writeSequences(plan.Config.Sequences, plan.Config.OutputSequences, plan.Passed, plan.Index)
		})
	}
	return utils.ErrExec(jobs...)
}

func buildConsumers(plan *Plan) ([]rowConsumer, error) {
	var consumers []rowConsumer
	if plan.Config.OutputStrains != "" {
		w, err := newStrainsWriter(plan.Config.OutputStrains)
		if err != nil {
			return nil, err
		}
		consumers = append(consumers, w)
	}
	if plan.Config.OutputMetadata != "" {
		w, err := newMetadataWriter(plan.Config.OutputMetadata, plan.Columns)
		if err != nil {
			return nil, err
		}
		consumers = append(consumers, w)
	}
	if plan.Config.OutputLog != "" {
		w, err := newRunLogWriter(plan.Config.OutputLog)
		if err != nil {
			return nil, err
		}
		consumers = append(consumers, w)
	}
	return consumers, nil
}

// newMetadataWriter picks the output format from the file extension:
// parquet for .parquet, delimited text otherwise.
func newMetadataWriter(path string, columns []string) (rowConsumer, error) {
	if filepath.Ext(path) == constants.ParquetFileExt {
		return newParquetMetadataWriter(path, columns)
	}
	return newTextMetadataWriter(path, columns)
}

func fanOut(ctx context.Context, plan *Plan, consumers []rowConsumer) error {
	group, ctx := errgroup.WithContext(ctx)

	channels := make([]chan Row, len(consumers))
	for i, consumer := range consumers {
		ch := make(chan Row, 256)
		channels[i] = ch
		consumer := consumer
		group.Go(func() error {
			for row := range ch {
				if err := consumer.Consume(row); err != nil {
					return fmt.Errorf("failed to write %s: %s", consumer.Name(), err)
				}
			}
			return nil
		})
	}

	group.Go(func() error {
		defer func() {
			for _, ch := range channels {
				safego.Close(ch)
			}
		}()

		source := metadata.NewSource(plan.Config.Metadata, plan.Config.MetadataIDColumns, int64(plan.Config.MetadataChunkSize))
		reader, err := source.Open()
		if err != nil {
			return err
		}
		defer reader.Close()

		for {
			batch, err := reader.Next()
			if err == io.EOF {
				return nil
			}
			if err != nil {
				return err
			}
			for i := range batch.Records {
				id := batch.Identifier(i)
				row := Row{ID: id, Record: batch.Records[i]}
				_, row.Passed = plan.Passed[id]
				if reason, found := plan.Reasons[id]; found {
					row.Reason = &reason
				}
				for _, ch := range channels {
					select {
					case ch <- row:
					case <-ctx.Done():
						return ctx.Err()
					}
				}
			}
		}
	})

	err := group.Wait()
	closers := make([]func() error, 0, len(consumers))
	for _, consumer := range consumers {
		closers = append(closers, utils.ErrExecFormat("failed to close "+consumer.Name()+": %s", consumer.Close))
	}
	if closeErr := utils.ErrExecSequential(closers...); closeErr != nil {
		err = multierror.Append(err, closeErr)
	}
	return err
}
