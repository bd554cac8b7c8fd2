package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/AditiSurve17/intelligent-cloud-waste-detector/internal/policy"
	"github.com/AditiSurve17/intelligent-cloud-waste-detector/internal/rules"
	"github.com/AditiSurve17/intelligent-cloud-waste-detector/internal/rulepacks/waste"
)

func newPolicyCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "policy",
		Short: "Work with detection policy files",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "validate [file]",
		Short: "Check a policy file for errors",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := a.policyPath
			if len(args) == 1 {
				path = args[0]
			}
			cfg, err := policy.LoadPolicy(path)
			if err != nil {
				return err
			}
			errs := policy.Validate(cfg, rules.IDs(waste.New()))
			w := cmd.OutOrStdout()
			if len(errs) == 0 {
				fmt.Fprintf(w, "%s: OK\n", path)
				return nil
			}
			for _, e := range errs {
				fmt.Fprintf(w, "%s: %v\n", path, e)
			}
			return errSilentExit
		},
	})
	return cmd
}
