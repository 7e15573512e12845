package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wangwingzero/caac-monitor/internal/document"
)

var categoriesCommand = &cobra.Command{
	Use:   "categories",
	Short: "List the known category ids and names",
	RunE:  runCategoriesCmd,
}

func init() {
	rootCmd.AddCommand(categoriesCommand)
}

func runCategoriesCmd(cmd *cobra.Command, _ []string) error {
	for _, id := range document.CategoryIDs() {
		fmt.Fprintf(cmd.OutOrStdout(), "%4s  %s\n", id, document.CategoryName(id))
	}
	return nil
}
