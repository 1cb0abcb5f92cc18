package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var (
	queryArchived bool
	queryPage     int
	queryJSON     bool
)

var queryCmd = &cobra.Command{
	Use:   "query <text>",
	Short: "Search tasks by fuzzy text match or exact ID",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		services, err := loadServicesForCurrentDir()
		if err != nil {
			return err
		}
		defer services.Close()

		if queryArchived {
			if err := services.Archiver.RebuildArchivedIndex(); err != nil {
				return MapError(err)
			}
		}

		page, err := services.Query.Query(strings.Join(args, " "), queryArchived, queryPage)
		if err != nil {
			return MapError(fmt.Errorf("query failed: %w", err))
		}

		if queryJSON {
			return printJSON(page)
		}
		if len(page.Items) == 0 {
			fmt.Println("No matching tasks.")
			return nil
		}
		for _, t := range page.Items {
			fmt.Printf("%s  [%s]  %s\n", t.ID, t.Status, t.Name)
		}
		fmt.Printf("Page %d of %d result(s).\n", page.Page, page.Total)
		return nil
	},
}

func init() {
	queryCmd.Flags().BoolVar(&queryArchived, "archived", false, "Include archived tasks")
	queryCmd.Flags().IntVar(&queryPage, "page", 1, "Result page")
	queryCmd.Flags().BoolVar(&queryJSON, "json", false, "Output JSON")
	RootCmd.AddCommand(queryCmd)
}
