package main

import (
	mandrillmcp "github.com/hyperengineering/mandrill/mcp"
	"github.com/spf13/cobra"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start MCP server for coding agent integration",
	Long: `Start a Model Context Protocol (MCP) server over stdio.

Tools: mandrill_inspect, mandrill_render, mandrill_fix. The API key is
resolved once at startup under the configured key policy.

Example client configuration:

  {
    "mcpServers": {
      "mandrill": {
        "command": "mandrill",
        "args": ["mcp"],
        "env": {
          "MANDRILL_KEY_POLICY": "file",
          "MANDRILL_API_KEY_FILE": "/run/secrets/mandrill"
        }
      }
    }
  }`,
	Args: cobra.NoArgs,
	RunE: runMCP,
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

func runMCP(cmd *cobra.Command, args []string) error {
	s, err := newSession()
	if err != nil {
		return err
	}
	defer s.Close()

	key, err := resolveKey(cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	s.logger.Debug().Msg("serving MCP over stdio")
	return mandrillmcp.NewServer(s.client, key).Run()
}
