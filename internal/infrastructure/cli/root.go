package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/farazpawle/agent-flow-sub001/internal/infrastructure/wiring"
)

var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// RootCmd represents the base command when called without any subcommands
var RootCmd = &cobra.Command{
	Use:     "agentflow",
	Version: Version,
	Short:   "A task dependency graph and persistence engine for agent workflows",
	Long: `Agentflow tracks units of work with dependency relationships,
computes a safe execution order across the whole graph, and persists
every change durably with debounced batched writes.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the RootCmd.
func Execute() error {
	return RootCmd.Execute()
}

// loadServicesForCurrentDir wires the engine against the working
// directory. Callers own the returned services and must Close them so
// pending writes flush before exit.
func loadServicesForCurrentDir() (*wiring.AppServices, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	return wiring.BuildAppServices(cwd)
}
