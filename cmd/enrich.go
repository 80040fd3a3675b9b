package main

import (
	"github.com/spf13/cobra"

	"github.com/sells-group/divar-cli/internal/model"
)

var (
	enrichCategories []string
	enrichFormat     string
)

var enrichCmd = &cobra.Command{
	Use:   "enrich",
	Short: "Join collected stores with their contact details",
	RunE: func(cmd *cobra.Command, args []string) error {
		return executePlan(cmd, stagePlan(model.StageEnrich, enrichCategories), enrichFormat)
	},
}

func init() {
	enrichCmd.Flags().StringSliceVar(&enrichCategories, "category", nil, "categories to enrich (default from pipeline.categories)")
	addFormatFlag(enrichCmd, &enrichFormat)
	rootCmd.AddCommand(enrichCmd)
}
