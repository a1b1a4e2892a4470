package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/lukman83/beast-antidetect/internal/api"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "Start the JSON HTTP API",
	Long:  "Serve the identity operations under /api. Set BEAST_API_KEY to require a Bearer token.",
	RunE:  runAPI,
}

func init() {
	apiCmd.Flags().String("port", "", "HTTP port (default from $PORT or 3001)")
	rootCmd.AddCommand(apiCmd)
}

func runAPI(cmd *cobra.Command, args []string) error {
	svc, closeSvc, err := newService()
	if err != nil {
		return err
	}
	defer closeSvc()

	ctx, cancel := signalContext(cmd)
	defer cancel()

	srv := api.NewServer(svc, cfg.APIKey, logger)
	errc := make(chan error, 1)
	go func() { errc <- srv.Start(fmt.Sprintf(":%s", httpPort(cmd))) }()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		logger.Info("shutting down API server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("API shutdown", zap.Error(err))
		}
		return <-errc
	}
}
