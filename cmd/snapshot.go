package cmd

import (
	"encoding/base64"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var snapshotCmd = &cobra.Command{
	Use:   "snapshot [url]",
	Short: "Open a URL under a fingerprint and capture a full-page screenshot",
	Args:  cobra.ExactArgs(1),
	RunE:  runSnapshot,
}

var cookiesCmd = &cobra.Command{
	Use:   "cookies [url]",
	Short: "Open a URL under a fingerprint and print the cookies it set",
	Args:  cobra.ExactArgs(1),
	RunE:  runCookies,
}

func init() {
	addLaunchFlags(snapshotCmd)
	snapshotCmd.Flags().String("out", "", "Write the PNG here instead of printing JSON")
	snapshotCmd.Flags().Bool("cookies", false, "Include cookies in the result")
	rootCmd.AddCommand(snapshotCmd)

	addLaunchFlags(cookiesCmd)
	cookiesCmd.Flags().String("format", "json", "Output format: json, table")
	rootCmd.AddCommand(cookiesCmd)
}

func runSnapshot(cmd *cobra.Command, args []string) error {
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

	withCookies, _ := cmd.Flags().GetBool("cookies")
	ctx, stop := withSpinner(ctx, cmd, "Starting...")
	res, err := svc.Snapshot(ctx, spec, args[0], withCookies)
	stop()
	if err != nil {
		return fmt.Errorf("snapshot failed: %w", err)
	}

	out, _ := cmd.Flags().GetString("out")
	if out == "" {
		return printJSON(cmd.OutOrStdout(), res)
	}
	img, err := base64.StdEncoding.DecodeString(res.Screenshot)
	if err != nil {
		return err
	}
	if err := os.WriteFile(out, img, 0o644); err != nil {
		return err
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Saved %s (%d bytes)\n", out, len(img))
	if withCookies {
		printCookies(cmd.OutOrStdout(), res.Cookies)
	}
	return nil
}

func runCookies(cmd *cobra.Command, args []string) error {
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
	res, err := svc.Cookies(ctx, spec, args[0])
	stop()
	if err != nil {
		return fmt.Errorf("cookie capture failed: %w", err)
	}

	format, _ := cmd.Flags().GetString("format")
	if format == "table" {
		printCookies(cmd.OutOrStdout(), res.Cookies)
		return nil
	}
	return printJSON(cmd.OutOrStdout(), res)
}
