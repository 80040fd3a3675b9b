package main

import (
	"github.com/spf13/cobra"

	"github.com/sells-group/divar-cli/internal/model"
)

var (
	runCategories []string
	runStage      string
	runFormat     string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the pipeline stages for each category",
	Long:  "Runs collect, enrich and export in order for one category at a time, or a single stage with --stage. The first failure stops the run.",
	RunE: func(cmd *cobra.Command, args []string) error {
		name := cfg.Pipeline.Stage
		if cmd.Flags().Changed("stage") {
			name = runStage
		}
		stage, err := model.ParseStage(name)
		if err != nil {
			return err
		}
		return executePlan(cmd, stagePlan(stage, runCategories), runFormat)
	},
}

func init() {
	runCmd.Flags().StringSliceVar(&runCategories, "category", nil, "categories to process (default from pipeline.categories)")
	runCmd.Flags().StringVar(&runStage, "stage", "", "collect, enrich, export or all (default from pipeline.stage)")
	addFormatFlag(runCmd, &runFormat)
	rootCmd.AddCommand(runCmd)
}
