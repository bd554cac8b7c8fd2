package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/AditiSurve17/intelligent-cloud-waste-detector/internal/engine"
	"github.com/AditiSurve17/intelligent-cloud-waste-detector/internal/models"
	"github.com/AditiSurve17/intelligent-cloud-waste-detector/internal/output"
	"github.com/AditiSurve17/intelligent-cloud-waste-detector/internal/render"
	"github.com/AditiSurve17/intelligent-cloud-waste-detector/internal/store"
)

func newRescoreCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "rescore <resource-id>",
		Short: "Re-score one resource from its stored usage history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			st, err := a.store(ctx)
			if err != nil {
				return err
			}
			res, err := a.pipeline(st, nil).Rescore(ctx, args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), res)
		},
	}
}

func newRecommendationsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "recommendations",
		Aliases: []string{"recs"},
		Short:   "Inspect and update stored recommendations",
	}
	cmd.AddCommand(newRecsListCmd(a), newRecsSetStatusCmd(a), newRecsExplainCmd(a))
	return cmd
}

func newRecsListCmd(a *app) *cobra.Command {
	var (
		statusName string
		report     string
		colored    bool
		rationale  bool
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recommendations with the given status",
		RunE: func(cmd *cobra.Command, args []string) error {
			status, err := models.ParseStatus(statusName)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			st, err := a.store(ctx)
			if err != nil {
				return err
			}
			recs, err := st.ListByStatus(ctx, status)
			if err != nil {
				return fmt.Errorf("list %s recommendations: %w", status, err)
			}
			engine.SortRecommendations(recs)

			w := cmd.OutOrStdout()
			if report == "json" {
				if recs == nil {
					recs = []models.WasteRecommendation{}
				}
				return printJSON(w, map[string]any{"count": len(recs), "recommendations": recs})
			}
			output.RenderTable(w, recs, output.TableOptions{
				Colored:          colored,
				IncludeStatus:    status != models.StatusActive,
				IncludeRationale: rationale,
			})
			if len(recs) > 0 {
				output.RenderSummary(w, recs)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&statusName, "status", string(models.StatusActive), "Status to list: Active, Terminated or Dismissed")
	cmd.Flags().StringVar(&report, "report", "table", "Output format: json or table")
	cmd.Flags().BoolVar(&colored, "color", false, "Colour priorities in table output")
	cmd.Flags().BoolVar(&rationale, "rationale", false, "Include the rationale column")
	return cmd
}

func newRecsSetStatusCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "set-status <resource-id> <Active|Terminated|Dismissed>",
		Short: "Record an operator decision on a recommendation",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := engine.ValidateResourceID(args[0]); err != nil {
				return err
			}
			status, err := models.ParseStatus(args[1])
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			st, err := a.store(ctx)
			if err != nil {
				return err
			}
			rec, err := st.UpdateStatus(ctx, args[0], status, time.Now().UTC())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", rec.ResourceID, rec.Status)
			return nil
		},
	}
}

func newRecsExplainCmd(a *app) *cobra.Command {
	var report string
	cmd := &cobra.Command{
		Use:   "explain <resource-id>",
		Short: "Show the score breakdown of one recommendation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := args[0]
			if err := engine.ValidateResourceID(id); err != nil {
				return err
			}
			ctx := cmd.Context()
			st, err := a.store(ctx)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()

			rec, err := st.Get(ctx, id)
			switch {
			case errors.Is(err, store.ErrNotFound):
				if report == "json" {
					if err := render.WriteExplainJSON(w, nil, id); err != nil {
						return err
					}
					return errSilentExit
				}
				return fmt.Errorf("no recommendation found for resource %s", id)
			case err != nil:
				return fmt.Errorf("get recommendation %s: %w", id, err)
			}

			if report == "json" {
				return render.WriteExplainJSON(w, &rec, id)
			}
			render.RenderRecommendationExplanation(w, rec)
			return nil
		},
	}
	cmd.Flags().StringVar(&report, "report", "table", "Output format: json or table")
	return cmd
}
