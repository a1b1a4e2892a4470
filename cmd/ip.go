package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var ipCmd = &cobra.Command{
	Use:   "ip",
	Short: "Launch a session and report the exit IP it is seen from",
	RunE:  runIP,
}

func init() {
	addLaunchFlags(ipCmd)
	ipCmd.Flags().String("format", "json", "Output format: json, table")
	rootCmd.AddCommand(ipCmd)
}

func runIP(cmd *cobra.Command, args []string) error {
	spec, err := launchSpecFromFlags(cmd)
	if err != nil {
		return err
	}
	svc, closeSvc, err := newService()
	if err != nil {
		return err
	}
	defer closeSvc()

	ctx, cancel := signalContext(cmd)
	defer cancel()

	ctx, stop := withSpinner(ctx, cmd, "Starting...")
	res, err := svc.QueryIP(ctx, spec)
	stop()
	if err != nil {
		return fmt.Errorf("ip query failed: %w", err)
	}

	format, _ := cmd.Flags().GetString("format")
	if format == "table" {
		printIPResult(cmd.OutOrStdout(), res)
		return nil
	}
	return printJSON(cmd.OutOrStdout(), res)
}
