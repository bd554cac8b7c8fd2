package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/AditiSurve17/intelligent-cloud-waste-detector/internal/version"
)

func newRootCmd() *cobra.Command {
	return newRootCmdWith(newApp())
}

func newRootCmdWith(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "cwd",
		Short:         "Cloud waste detector: score AWS billing data for wasted spend",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.load(cmd)
		},
	}
	root.PersistentFlags().StringVar(&a.configPath, "config", defaultConfigPath, "Path to the application config file")
	root.PersistentFlags().StringVar(&a.policyPath, "policy", defaultPolicyPath, "Path to the detection policy file")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "Log level: debug, info, warn or error (overrides config)")
	root.PersistentFlags().StringVar(&a.profile, "profile", "", "AWS profile (overrides config)")

	root.AddCommand(
		newCollectCmd(a),
		newServeCmd(a),
		newRescoreCmd(a),
		newRecommendationsCmd(a),
		newPredictCmd(a),
		newAnalyticsCmd(a),
		newTerraformCmd(a),
		newPolicyCmd(a),
		newDoctorCmd(a),
		newVersionCmd(),
	)
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		// Version must work without a config file.
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprint(cmd.OutOrStdout(), version.Info())
		},
	}
}

// printJSON writes v as indented JSON to w.
func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// writeJSONFile serialises v as indented JSON and writes it to path,
// creating or overwriting the file. It does not affect stdout output.
func writeJSONFile(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write report file %q: %w", path, err)
	}
	return nil
}
