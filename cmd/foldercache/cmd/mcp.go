package cmd

import (
	"github.com/spf13/cobra"
	mcpserver "github.com/wesm/foldercache/internal/mcp"
)

const mcpServerVersion = "1.0.0"

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run MCP server over the folder cache",
	Long: `Start an MCP (Model Context Protocol) server over stdio.

MCP clients can read the cache with the tools list_folders, list_messages,
search_messages, get_user, and get_stats. The tools are read-only; updates
still go through apply, ingest, or the HTTP API.

In remote mode the tools read from the configured server.

Example client config:
  {
    "mcpServers": {
      "foldercache": {
        "command": "foldercache",
        "args": ["mcp"]
      }
    }
  }`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		reader, err := openReader()
		if err != nil {
			return err
		}
		defer reader.Close()

		return mcpserver.Serve(cmd.Context(), reader, mcpServerVersion)
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
