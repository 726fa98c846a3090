package main

import (
	"github.com/spf13/cobra"

	"greenroom/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the synchronous tools over MCP on stdio",
	Long: `Expose the synchronous tool catalog over the Model Context Protocol so a
desktop assistant can call Greenroom tools directly. Requests run as the
local user. Async research tools are not exposed: MCP clients cannot
poll a job.`,
	RunE: runMCP,
}

func runMCP(cmd *cobra.Command, args []string) error {
	rt, err := buildRuntime()
	if err != nil {
		return err
	}
	defer rt.Close()

	return mcp.New(rt.registry, rt.executor, rt.repos, rt.logger).ServeStdio()
}
