package cmd

import (
	"fmt"

	mcpserver "github.com/lukman83/beast-antidetect/mcp"
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
	svc, closeSvc, err := newService()
	if err != nil {
		return err
	}
	defer closeSvc()

	fmt.Fprintln(cmd.ErrOrStderr(), "Starting Beast MCP server on stdio...")

	if err := mcpserver.Serve(svc); err != nil {
		return fmt.Errorf("MCP server error: %w", err)
	}
	return nil
}
