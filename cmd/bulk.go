package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/lukman83/beast-antidetect/internal/identity"
	"github.com/lukman83/beast-antidetect/internal/models"
	"github.com/spf13/cobra"
)

var bulkCmd = &cobra.Command{
	Use:   "bulk [specs.json|-]",
	Short: "Query the exit IP for several profiles, one session at a time",
	Long: "Reads a JSON array of launch specs from a file (or stdin with -) and " +
		"queries each in order. Without a file, --count runs that many fresh profiles.",
	Args: cobra.MaximumNArgs(1),
	RunE: runBulk,
}

func init() {
	bulkCmd.Flags().String("policy", "", "Failure policy: abort, collect (default from config)")
	bulkCmd.Flags().Int("count", 0, "Run this many generated profiles instead of reading specs")
	bulkCmd.Flags().String("format", "json", "Output format: json, table")
	rootCmd.AddCommand(bulkCmd)
}

func runBulk(cmd *cobra.Command, args []string) error {
	var policy models.BulkPolicy
	if name, _ := cmd.Flags().GetString("policy"); name != "" {
		p, err := identity.ParsePolicy(name)
		if err != nil {
			return err
		}
		policy = p
	}

	specs, err := readSpecs(cmd, args)
	if err != nil {
		return err
	}
	if len(specs) == 0 {
		return errors.New("no launch specs given (pass a file or --count)")
	}

	svc, closeSvc, err := newService()
	if err != nil {
		return err
	}
	defer closeSvc()

	ctx, cancel := signalContext(cmd)
	defer cancel()

	ctx, stop := withSpinner(ctx, cmd, fmt.Sprintf("Running %d profiles...", len(specs)))
	report, err := svc.RunBulk(ctx, specs, policy)
	stop()
	if err != nil {
		return err
	}

	format, _ := cmd.Flags().GetString("format")
	if format == "table" {
		printBulkReport(cmd.OutOrStdout(), report)
		return nil
	}
	return printJSON(cmd.OutOrStdout(), report)
}

func readSpecs(cmd *cobra.Command, args []string) ([]models.LaunchSpec, error) {
	if len(args) == 0 {
		n, _ := cmd.Flags().GetInt("count")
		return make([]models.LaunchSpec, max(n, 0)), nil
	}

	var r io.Reader = cmd.InOrStdin()
	if args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	}

	var specs []models.LaunchSpec
	if err := json.NewDecoder(r).Decode(&specs); err != nil {
		return nil, fmt.Errorf("decode launch specs: %w", err)
	}
	return specs, nil
}
