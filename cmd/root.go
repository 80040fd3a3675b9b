package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/divar-cli/internal/config"
)

var (
	cfg         *config.Config
	configPath  string
	metricsAddr string
)

var rootCmd = &cobra.Command{
	Use:   "divar-cli",
	Short: "Marketplace store harvesting pipeline",
	Long:  "Crawls marketplace store listings per category, joins each store with its contact details, and exports a ranked spreadsheet.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load(configPath)
		if err != nil {
			return eris.Wrap(err, "load config")
		}
		if cmd.Flags().Changed("metrics-addr") {
			c.Metrics.Addr = metricsAddr
		}
		if err := c.Validate(cmd.Name()); err != nil {
			return err
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return eris.Wrap(err, "init logger")
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config file (default ./config.yaml)")
	rootCmd.PersistentFlags().StringVar(&metricsAddr, "metrics-addr", "", "serve /metrics and /healthz on this address while running")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
