package cmd

import (
	"github.com/spf13/cobra"
)

var cfgPath string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "deals-service",
	Short: "Deal progression workflow service",
	Long: `Deal service for managing loan deal progression: stage sequencing,
task dependencies, conditions precedent, legal requisitions and
drawdown approvals for the BuildFund platform.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main().
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", ".", "directory containing config.yaml")
}
