package main

import (
	"github.com/spf13/cobra"

	"github.com/sells-group/divar-cli/internal/model"
)

var (
	exportCategories []string
	exportFormat     string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write each category's cleaned records to a ranked spreadsheet",
	RunE: func(cmd *cobra.Command, args []string) error {
		return executePlan(cmd, stagePlan(model.StageExport, exportCategories), exportFormat)
	},
}

func init() {
	exportCmd.Flags().StringSliceVar(&exportCategories, "category", nil, "categories to export (default from pipeline.categories)")
	addFormatFlag(exportCmd, &exportFormat)
	rootCmd.AddCommand(exportCmd)
}
