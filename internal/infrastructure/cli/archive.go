package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var archiveCmd = &cobra.Command{
	Use:   "archive",
	Short: "Manage cold storage of old completed tasks",
}

var archiveRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one archival pass now",
	RunE: func(cmd *cobra.Command, args []string) error {
		services, err := loadServicesForCurrentDir()
		if err != nil {
			return err
		}
		defer services.Close()

		moved, err := services.Archiver.RunPass()
		if err != nil {
			return MapError(fmt.Errorf("archival pass failed: %w", err))
		}
		fmt.Printf("Archived %d task(s).\n", len(moved))
		return nil
	},
}

var archiveListCmd = &cobra.Command{
	Use:   "list",
	Short: "List archive buckets",
	RunE: func(cmd *cobra.Command, args []string) error {
		services, err := loadServicesForCurrentDir()
		if err != nil {
			return err
		}
		defer services.Close()

		buckets, err := services.Query.ArchiveBuckets()
		if err != nil {
			return MapError(err)
		}
		if len(buckets) == 0 {
			fmt.Println("No archives yet.")
			return nil
		}
		for _, b := range buckets {
			tasks, err := services.Query.ListArchived(b)
			if err != nil {
				return MapError(err)
			}
			fmt.Printf("%s  %d task(s)\n", b, len(tasks))
		}
		return nil
	},
}

var archiveShowCmd = &cobra.Command{
	Use:   "show <bucket>",
	Short: "Show the tasks in one archive bucket (e.g. 2026-08)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		services, err := loadServicesForCurrentDir()
		if err != nil {
			return err
		}
		defer services.Close()

		tasks, err := services.Query.ListArchived(args[0])
		if err != nil {
			return MapError(err)
		}
		return printJSON(tasks)
	},
}

func init() {
	archiveCmd.AddCommand(archiveRunCmd, archiveListCmd, archiveShowCmd)
	RootCmd.AddCommand(archiveCmd)
}
