package main

import (
	"github.com/spf13/cobra"

	"github.com/sells-group/divar-cli/internal/model"
)

var (
	collectCategories []string
	collectStores     []string
	collectFormat     string
)

var collectCmd = &cobra.Command{
	Use:   "collect",
	Short: "Crawl store listings for each category into the store",
	Long:  "Walks every page of each category's store listing and appends the raw widgets to a collection named after the category. --store additionally crawls a store's product listing.",
	RunE: func(cmd *cobra.Command, args []string) error {
		plan := stagePlan(model.StageCollect, collectCategories)
		plan.Stores = collectStores
		if len(collectStores) > 0 && !cmd.Flags().Changed("category") {
			plan.Categories = nil
		}
		return executePlan(cmd, plan, collectFormat)
	},
}

func init() {
	collectCmd.Flags().StringSliceVar(&collectCategories, "category", nil, "categories to crawl (default from pipeline.categories)")
	collectCmd.Flags().StringSliceVar(&collectStores, "store", nil, "store slugs whose product listings to crawl")
	addFormatFlag(collectCmd, &collectFormat)
	rootCmd.AddCommand(collectCmd)
}
