package commands

import (
	"github.com/spf13/cobra"

	"github.com/ppiankov/regioncost/internal/logging"
)

var (
	verbose bool
	logFile string
	version string
	commit  string
	date    string
)

var rootCmd = &cobra.Command{
	Use:   "regioncost",
	Short: "regioncost — cheapest AWS region for a resource mix",
	Long: `regioncost ranks AWS regions by the cost of a requested mix of EC2 instances,
S3 storage and RDS instances, using a pricing table collected from the AWS
Price List API.

Rankings can be served over HTTP, and the region a user finally selects is
persisted and forwarded to a build webhook.`,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		if logFile != "" {
			logging.InitWithFile(verbose, logFile)
			return
		}
		logging.Init(verbose)
	},
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command with injected build info.
func Execute(v, c, d string) error {
	version = v
	commit = c
	date = d
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "Also write logs to this file (rotated)")
	rootCmd.AddCommand(rankCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(refreshCmd)
	rootCmd.AddCommand(selectCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(versionCmd)
}
