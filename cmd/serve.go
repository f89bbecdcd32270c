package cmd

import (
	"fmt"

	mcpserver "github.com/lukman83/matcha-stock/mcp"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start MCP stdio server",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	a, cleanup, err := newApp()
	if err != nil {
		return err
	}
	defer cleanup()

	fmt.Fprintln(cmd.ErrOrStderr(), "Starting Matcha Stock MCP server on stdio...")

	if err := mcpserver.Serve(a); err != nil {
		return fmt.Errorf("MCP server error: %w", err)
	}
	return nil
}
