package main

import (
	"fmt"
	"os"

	"github.com/farmaudit/farmaudit/internal/logger"
	"github.com/spf13/cobra"
)

var (
	configPath string
	logLevel   string
	logJSON    bool

	rootCmd = &cobra.Command{
		Use:   "farmaudit",
		Short: "Farmaudit - Batch account auditor",
		Long: `Farmaudit checks batches of stored accounts against their service.
It signs each account in through a rate-limited, proxy-sharded queue,
classifies it from ban and level signals, and archives accounts whose
status warrants it.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logger.Init(logLevel, logJSON)
		},
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file path (default: farmaudit.toml in the accounts directory)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (trace, debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&logJSON, "log-json", false, "emit JSON logs instead of console output")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
