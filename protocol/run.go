package protocol

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/seqsift/seqsift/engines"
	"github.com/seqsift/seqsift/filter"
	"github.com/seqsift/seqsift/pkg/metadata"
	"github.com/seqsift/seqsift/pkg/priorities"
	"github.com/seqsift/seqsift/pkg/seqio"
	"github.com/seqsift/seqsift/types"
	"github.com/seqsift/seqsift/utils/logger"
	"github.com/seqsift/seqsift/writers"
)

// runFilter drives one filtering run end to end: probe the metadata
// header, build the rule set, load every chunk into the engine, subsample,
// write the selected outputs, and print the drop report. Output files are
// only written once the whole run is known to be free of fatal data
// faults, except for the all-dropped case, which still produces its empty
// outputs.
func runFilter(ctx context.Context, cfg *types.FilterConfig) error {
	source := metadata.NewSource(cfg.Metadata, cfg.MetadataIDColumns, int64(cfg.MetadataChunkSize))
	columns, idColumn, err := source.Probe()
	if err != nil {
		return err
	}
	logger.Debugf("identifier column %s among metadata columns %s", idColumn, strings.Join(columns, ", "))

	var group *filter.GroupSpec
	if cfg.Subsampling() {
		group, err = filter.ValidateGroupBy(cfg.GroupBy, columns)
		if err != nil {
			return err
		}
	}

	rules, err := filter.BuildRules(cfg, columns, group, cfg.UseSequences())
	if err != nil {
		return err
	}

	var table priorities.Table
	if cfg.Priority != "" {
		if table, err = priorities.LoadFile(cfg.Priority); err != nil {
			return err
		}
	}

	seed := priorities.RandomSeed()
	if cfg.SubsampleSeed != nil {
		seed = uint64(*cfg.SubsampleSeed)
	}

	index, cleanupIndex, err := loadSequenceIndex(cfg)
	if err != nil {
		return err
	}
	defer cleanupIndex()

	run := &engines.Run{
		Config:     cfg,
		Columns:    columns,
		IDColumn:   idColumn,
		Rules:      rules,
		Group:      group,
		Index:      index,
		Priorities: table,
		Generator:  priorities.NewGenerator(seed),
	}

	eng, err := engines.NewEngine(cfg.Engine)
	if err != nil {
		return err
	}
	if err := eng.Setup(ctx, run); err != nil {
		return err
	}
	defer func() {
		if closeErr := eng.Close(ctx); closeErr != nil {
			logger.Warnf("failed to close %s engine: %s", cfg.Engine, closeErr)
		}
	}()

	if err := loadMetadata(ctx, eng, source); err != nil {
		return err
	}

	duplicates, err := eng.FinishLoad(ctx)
	if err != nil {
		return err
	}
	if len(duplicates) > 0 {
		return types.Dataf("The following strains are duplicated in '%s':\n%s", cfg.Metadata, strings.Join(duplicates, "\n"))
	}

	if cfg.Subsampling() {
		sizes, err := eng.GroupSizes(ctx)
		if err != nil {
			return err
		}
		quotas, err := filter.ComputeQuotas(sizes, cfg, run.Generator, os.Stdout)
		if err != nil {
			return err
		}
		if err := eng.ApplyQuotas(ctx, quotas); err != nil {
			return err
		}
	}

	results, err := eng.Results(ctx)
	if err != nil {
		return err
	}

	plan := &writers.Plan{
		Config:  cfg,
		Columns: columns,
		Passed:  results.Passed,
		Reasons: results.Reasons,
		Index:   index,
	}
	if err := writers.WriteOutputs(ctx, plan); err != nil {
		return err
	}

	report := &types.Report{
		MetadataStrains: results.MetadataStrains,
		NoMetadata:      missingMetadata(index, results.Strains),
		Counts:          results.Counts,
		SubsampledOut:   results.SubsampledOut,
		Subsampled:      cfg.Subsampling(),
		Seed:            cfg.SubsampleSeed,
		Passed:          int64(len(results.Passed)),
	}
	return filter.Render(os.Stderr, report)
}

// loadMetadata streams every metadata chunk into the engine, with load
// progress on stderr.
func loadMetadata(ctx context.Context, eng engines.Engine, source *metadata.Source) error {
	source.Progress = true
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
		if err := eng.Load(ctx, batch); err != nil {
			return err
		}
	}
}

// loadSequenceIndex returns the composition index when sequence data is in
// play, building a throwaway index from the FASTA input when none was
// given. The returned cleanup removes that throwaway file.
func loadSequenceIndex(cfg *types.FilterConfig) (map[string]seqio.Composition, func(), error) {
	cleanup := func() {}
	if !cfg.UseSequences() {
		return nil, cleanup, nil
	}

	path := cfg.SequenceIndex
	if path == "" {
		fmt.Fprintln(os.Stderr, "Note: You did not provide a sequence index, so one will be generated. "+
			"You can generate your own index ahead of time with `seqsift index` and pass it with `seqsift filter --sequence-index`.")
		path = filepath.Join(os.TempDir(), fmt.Sprintf("seqsift-index-%s.tsv", uuid.New().String()))
		if _, err := seqio.BuildIndex(cfg.Sequences, path); err != nil {
			return nil, cleanup, err
		}
		temp := path
		cleanup = func() {
			if err := os.Remove(temp); err != nil && !os.IsNotExist(err) {
				logger.Warnf("failed to remove temporary sequence index %s: %s", temp, err)
			}
		}
	}

	index, err := seqio.LoadIndex(path)
	if err != nil {
		cleanup()
		return nil, func() {}, err
	}
	return index, cleanup, nil
}

// missingMetadata counts indexed sequences with no metadata record.
func missingMetadata(index map[string]seqio.Composition, strains map[string]struct{}) int64 {
	var count int64
	for id := range index {
		if _, found := strains[id]; !found {
			count++
		}
	}
	return count
}
