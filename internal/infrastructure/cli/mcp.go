package cli

import (
	"os"

	"github.com/spf13/cobra"

	inframcp "github.com/farazpawle/agent-flow-sub001/internal/infrastructure/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the Agentflow MCP server over stdio",
	RunE: func(cmd *cobra.Command, args []string) error {
		cwd, err := os.Getwd()
		if err != nil {
			return err
		}
		server, err := inframcp.NewServer(cwd)
		if err != nil {
			return MapError(err)
		}
		return server.ServeStdio(cmd.Context())
	},
}

func init() {
	RootCmd.AddCommand(mcpCmd)
}
