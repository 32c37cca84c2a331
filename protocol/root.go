package protocol

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/seqsift/seqsift/constants"
	"github.com/seqsift/seqsift/utils"
	"github.com/seqsift/seqsift/utils/logger"
)

var (
	logLevel    string
	logFile     string
	profilePath string

	commands = []*cobra.Command{}
)

// RootCmd represents the base command when called without any subcommands
var RootCmd = &cobra.Command{
	Use:   "seqsift",
	Short: "filter and subsample genomic sample metadata",
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
		// SEQSIFT_DATABASE_URI and friends
		viper.SetEnvPrefix(constants.EnvPrefix)
		viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
		viper.AutomaticEnv()

		return logger.Init(logLevel, logFile)
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			return cmd.Help()
		}

		if ok := utils.IsValidSubcommand(commands, args[0]); !ok {
			return fmt.Errorf("'%s' is an invalid command. Use 'seqsift --help' to display usage guide", args[0])
		}

		return nil
	},
}

// CreateRootCommand wires the subcommands onto the root command.
func CreateRootCommand() *cobra.Command {
	RootCmd.AddCommand(commands...)
	return RootCmd
}

func init() {
	commands = append(commands, filterCmd, indexCmd)
	RootCmd.PersistentFlags().StringVarP(&logLevel, "log-level", "", "", "(Optional) Log level: trace, debug, info, warn, error")
	RootCmd.PersistentFlags().StringVarP(&logFile, "log-file", "", "", "(Optional) Also append logs to this file, with rotation")
	// Disable Cobra CLI's built-in usage and error handling
	RootCmd.SilenceUsage = true
	RootCmd.SilenceErrors = true
}
