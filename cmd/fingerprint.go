package cmd

import (
	"github.com/lukman83/beast-antidetect/internal/models"
	"github.com/lukman83/beast-antidetect/internal/stealth"
	"github.com/spf13/cobra"
)

var fingerprintCmd = &cobra.Command{
	Use:   "fingerprint",
	Short: "Generate a random fingerprint, or echo a custom one",
	RunE:  runFingerprint,
}

func init() {
	fingerprintCmd.Flags().Uint64("seed", 0, "Seed for a reproducible fingerprint")
	fingerprintCmd.Flags().String("from", "", "JSON file holding a custom fingerprint to return unchanged")
	fingerprintCmd.Flags().String("format", "json", "Output format: json, table")
	rootCmd.AddCommand(fingerprintCmd)
}

func runFingerprint(cmd *cobra.Command, args []string) error {
	gen := stealth.NewRandomGenerator()
	if cmd.Flags().Changed("seed") {
		seed, _ := cmd.Flags().GetUint64("seed")
		gen = stealth.NewSeededGenerator(seed)
	}

	var custom *models.Fingerprint
	if path, _ := cmd.Flags().GetString("from"); path != "" {
		fp, err := readFingerprint(path)
		if err != nil {
			return err
		}
		custom = fp
	}
	fp := gen.Resolve(custom)

	format, _ := cmd.Flags().GetString("format")
	if format == "table" {
		printFingerprint(cmd.OutOrStdout(), fp)
		return nil
	}
	return printJSON(cmd.OutOrStdout(), fp)
}
