package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/AditiSurve17/intelligent-cloud-waste-detector/internal/models"
	"github.com/AditiSurve17/intelligent-cloud-waste-detector/internal/policy"
	"github.com/AditiSurve17/intelligent-cloud-waste-detector/internal/rules"
	"github.com/AditiSurve17/intelligent-cloud-waste-detector/internal/rulepacks/waste"
)

// DoctorResult is the structured output of cwd doctor. It can be serialised
// to JSON via --format=json or rendered as a human-readable list (default).
type DoctorResult struct {
	Config struct {
		Path   string   `json:"path"`
		Valid  bool     `json:"valid"`
		Errors []string `json:"errors,omitempty"`
	} `json:"config"`

	AWS struct {
		Profile     string `json:"profile,omitempty"`
		Credentials bool   `json:"credentials_ok"`
		AccountID   string `json:"account_id,omitempty"`
		Region      string `json:"region,omitempty"`
		Error       string `json:"error,omitempty"`
	} `json:"aws"`

	Storage struct {
		Backend   string `json:"backend"`
		Reachable bool   `json:"reachable"`
		Error     string `json:"error,omitempty"`
	} `json:"storage"`

	Policy struct {
		Path    string   `json:"path"`
		Present bool     `json:"present"`
		Valid   bool     `json:"valid"`
		Errors  []string `json:"errors,omitempty"`
	} `json:"policy"`

	OverallHealthy bool `json:"overall_healthy"`
}

func newDoctorCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Run environment diagnostics",
		// Diagnose a broken config instead of refusing to start.
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.loadLenient(cmd)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			format, _ := cmd.Flags().GetString("format")
			result, err := runDoctor(cmd.Context(), a, cmd.OutOrStdout(), format)
			if err != nil {
				return err
			}
			if !result.OverallHealthy {
				return errSilentExit
			}
			return nil
		},
	}
	cmd.Flags().String("format", "table", `Output format: "table" or "json"`)
	return cmd
}

// runDoctor collects all diagnostic results, renders them to w in the
// requested format, and returns the result. The returned error covers only
// rendering failures; callers inspect result.OverallHealthy.
func runDoctor(ctx context.Context, a *app, w io.Writer, format string) (DoctorResult, error) {
	result := collectDoctorResult(ctx, a)

	switch format {
	case "json":
		if err := json.NewEncoder(w).Encode(result); err != nil {
			return result, fmt.Errorf("encode doctor result: %w", err)
		}
	default:
		renderDoctorTable(result, w)
	}
	return result, nil
}

// collectDoctorResult runs every check. Storage is skipped when the config
// is invalid, and AWS is only required for the dynamodb backend.
func collectDoctorResult(ctx context.Context, a *app) DoctorResult {
	var result DoctorResult

	result.Config.Path = a.configPath
	result.Config.Valid = len(a.cfgErrs) == 0
	for _, e := range a.cfgErrs {
		result.Config.Errors = append(result.Config.Errors, e.Error())
	}

	result.AWS.Profile = a.cfg.AWS.Profile
	if p, err := a.awsConfig(ctx); err != nil {
		result.AWS.Error = err.Error()
	} else {
		result.AWS.Credentials = true
		result.AWS.AccountID = p.AccountID
		result.AWS.Region = p.Region
	}

	result.Storage.Backend = a.cfg.Storage.Backend
	if !result.Config.Valid {
		result.Storage.Error = "skipped: config invalid"
	} else if st, err := a.store(ctx); err != nil {
		result.Storage.Error = err.Error()
	} else if _, err := st.ListByStatus(ctx, models.StatusActive); err != nil {
		result.Storage.Error = err.Error()
	} else {
		result.Storage.Reachable = true
	}

	result.Policy.Path = a.policyPath
	switch {
	case a.policy != nil:
		result.Policy.Present = true
		errs := policy.Validate(a.policy, rules.IDs(waste.New()))
		result.Policy.Valid = len(errs) == 0
		for _, e := range errs {
			result.Policy.Errors = append(result.Policy.Errors, e.Error())
		}
	case a.polErr != nil:
		result.Policy.Present = fileExists(a.policyPath)
		result.Policy.Errors = []string{a.polErr.Error()}
	}

	awsNeeded := a.cfg.Storage.Backend == "dynamodb"
	result.OverallHealthy = result.Config.Valid &&
		result.Storage.Reachable &&
		(!awsNeeded || result.AWS.Credentials) &&
		(!result.Policy.Present || result.Policy.Valid) &&
		a.polErr == nil

	return result
}

// renderDoctorTable writes the human-readable diagnostic output from result to w.
func renderDoctorTable(result DoctorResult, w io.Writer) {
	fmt.Fprintln(w, "Environment Diagnostics")

	fmt.Fprintf(w, "\nConfig (%s):\n", result.Config.Path)
	if result.Config.Valid {
		doctorPrint(w, "Valid", "OK", "")
	} else {
		for _, e := range result.Config.Errors {
			doctorPrint(w, "Valid", "FAIL", e)
		}
	}

	if result.AWS.Profile != "" {
		fmt.Fprintf(w, "\nAWS (profile: %s):\n", result.AWS.Profile)
	} else {
		fmt.Fprintln(w, "\nAWS:")
	}
	if !result.AWS.Credentials {
		doctorPrint(w, "Credentials", "FAIL", result.AWS.Error)
		doctorPrint(w, "STS Identity", "FAIL", "skipped")
	} else {
		doctorPrint(w, "Credentials", "OK", "")
		doctorPrint(w, "STS Identity", "OK", "Account: "+result.AWS.AccountID)
		doctorPrint(w, "Region", "OK", result.AWS.Region)
	}

	fmt.Fprintf(w, "\nStorage (%s):\n", result.Storage.Backend)
	if result.Storage.Reachable {
		doctorPrint(w, "Reachable", "OK", "")
	} else {
		doctorPrint(w, "Reachable", "FAIL", result.Storage.Error)
	}

	fmt.Fprintf(w, "\nPolicy (%s):\n", result.Policy.Path)
	switch {
	case !result.Policy.Present && len(result.Policy.Errors) == 0:
		doctorPrint(w, "Present", "Not found (optional)", "")
	case result.Policy.Valid:
		doctorPrint(w, "Present", "YES", "")
		doctorPrint(w, "Valid", "OK", "")
	default:
		for _, e := range result.Policy.Errors {
			doctorPrint(w, "Valid", "FAIL", e)
		}
	}
}

// doctorPrint writes a single diagnostic check line to w.
// When detail is non-empty it is appended in parentheses.
func doctorPrint(w io.Writer, label, status, detail string) {
	if detail != "" {
		fmt.Fprintf(w, "  %s: %s (%s)\n", label, status, detail)
	} else {
		fmt.Fprintf(w, "  %s: %s\n", label, status)
	}
}
