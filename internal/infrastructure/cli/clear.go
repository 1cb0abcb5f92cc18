package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var clearConfirm bool

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every task after writing a timestamped backup",
	RunE: func(cmd *cobra.Command, args []string) error {
		services, err := loadServicesForCurrentDir()
		if err != nil {
			return err
		}
		defer services.Close()

		backup, removed, err := services.Task.ClearAllTasks(clearConfirm)
		if err != nil {
			return MapError(err)
		}
		fmt.Printf("Removed %d task(s). Backup written to %s.\n", removed, backup)
		return nil
	},
}

func init() {
	clearCmd.Flags().BoolVar(&clearConfirm, "confirm", false, "Required; clearing is destructive")
	RootCmd.AddCommand(clearCmd)
}
