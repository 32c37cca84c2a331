package protocol

import (
	"github.com/spf13/cobra"

	"github.com/seqsift/seqsift/pkg/seqio"
	"github.com/seqsift/seqsift/types"
	"github.com/seqsift/seqsift/utils/logger"
)

var indexConfig types.IndexConfig

// indexCmd represents the index command
var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "index command",
	Long:  `Index precomputes per-strain sequence length and composition counts, so later filter runs can apply sequence rules without re-reading the FASTA`,
	PreRunE: func(_ *cobra.Command, _ []string) error {
		return indexConfig.Validate()
	},
	RunE: func(_ *cobra.Command, _ []string) error {
		count, err := seqio.BuildIndex(indexConfig.Sequences, indexConfig.Output)
		if err != nil {
			return err
		}

		logger.Infof("indexed %d sequences into %s", count, indexConfig.Output)
		return nil
	},
}

func init() {
	indexCmd.Flags().StringVarP(&indexConfig.Sequences, "sequences", "", "", "(Required) FASTA file of sequences to index")
	indexCmd.Flags().StringVarP(&indexConfig.Output, "output", "", "", "(Required) Path of the index TSV to write")
}
