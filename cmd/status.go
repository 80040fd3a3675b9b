package main

import (
	"github.com/spf13/cobra"

	"github.com/sells-group/divar-cli/internal/exporter"
	"github.com/sells-group/divar-cli/internal/pipeline"
)

var (
	statusCategories []string
	statusFormat     string
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show collection sizes, exported artifacts and the last run",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		s, err := pipeline.LoadStatus(ctx, st, exporter.New(st, cfg.Export.Dir), categoriesOrDefault(statusCategories))
		if err != nil {
			return err
		}
		return s.Format(cmd.OutOrStdout(), statusFormat)
	},
}

func init() {
	statusCmd.Flags().StringSliceVar(&statusCategories, "category", nil, "categories to report (default from pipeline.categories)")
	addFormatFlag(statusCmd, &statusFormat)
	rootCmd.AddCommand(statusCmd)
}
