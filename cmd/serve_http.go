package cmd

import (
	"fmt"

	mcpserver "github.com/lukman83/beast-antidetect/mcp"
	"github.com/spf13/cobra"
)

var serveHTTPCmd = &cobra.Command{
	Use:   "serve-http",
	Short: "Start MCP HTTP server",
	Long:  "Start the MCP server over HTTP for remote access. Set BEAST_API_KEY to require a Bearer token.",
	RunE:  runServeHTTP,
}

func init() {
	serveHTTPCmd.Flags().String("port", "", "HTTP port (default from $PORT or 3001)")
	rootCmd.AddCommand(serveHTTPCmd)
}

func runServeHTTP(cmd *cobra.Command, args []string) error {
	svc, closeSvc, err := newService()
	if err != nil {
		return err
	}
	defer closeSvc()

	ctx, cancel := signalContext(cmd)
	defer cancel()

	addr := fmt.Sprintf(":%s", httpPort(cmd))
	return mcpserver.ServeHTTP(ctx, svc, addr, cfg.APIKey, logger)
}

func httpPort(cmd *cobra.Command) string {
	if p, _ := cmd.Flags().GetString("port"); p != "" {
		return p
	}
	return cfg.HTTPPort
}
