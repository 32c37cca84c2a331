package writers

import (
	"io"

	"github.com/seqsift/seqsift/pkg/seqio"
	"github.com/seqsift/seqsift/utils/logger"
)

// writeSequences streams the FASTA input and keeps the passed records,
// preserving file order. When the observed identifiers differ from the
// index the filters ran against, the filters were judging stale data, so
// a warning is raised.
func writeSequences(sequencesPath, outputPath string, passed map[string]struct{}, index map[string]seqio.Composition) error {
	reader, err := seqio.OpenFASTA(sequencesPath)
	if err != nil {
		return err
	}
	defer reader.Close()

	writer, err := seqio.NewFASTAWriter(outputPath)
	if err != nil {
		return err
	}

	observed := make(map[string]struct{})
	for {
		seq, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			writer.Close()
			return err
		}
		observed[seq.ID] = struct{}{}
		if _, found := passed[seq.ID]; found {
			if err := writer.Write(seq); err != nil {
				writer.Close()
				return err
			}
		}
	}
	if err := writer.Close(); err != nil {
		return err
	}

	if index != nil && !sameStrains(observed, index) {
		logger.Warnf("the sequence index is out of sync with the provided sequences")
	}
	return nil
}

func sameStrains(observed map[string]struct{}, index map[string]seqio.Composition) bool {
	if len(observed) != len(index) {
		return false
	}
	for id := range index {
		if _, found := observed[id]; !found {
			return false
		}
	}
	return true
}
