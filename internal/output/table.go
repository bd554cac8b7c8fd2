package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/AditiSurve17/intelligent-cloud-waste-detector/internal/models"
)

// ANSI color codes for priority output (used when Colored=true).
const (
	ansiReset   = "\033[0m"
	ansiBoldRed = "\033[1;31m"
	ansiYellow  = "\033[0;33m"
	ansiBlue    = "\033[0;34m"
)

// TableOptions controls which optional columns RenderTable renders.
type TableOptions struct {
	// Colored wraps priority labels with ANSI codes. Default false (CI-safe).
	Colored bool

	// IncludeStatus adds a STATUS column, useful when listing non-Active
	// recommendations.
	IncludeStatus bool

	// IncludeRationale adds a RATIONALE column.
	IncludeRationale bool
}

func priorityColor(p models.Priority) string {
	switch p {
	case models.PriorityHigh:
		return ansiBoldRed
	case models.PriorityMedium:
		return ansiYellow
	case models.PriorityLow:
		return ansiBlue
	}
	return ""
}

// ColorPriority wraps a priority with ANSI codes when colored is true.
func ColorPriority(p models.Priority, colored bool) string {
	code := priorityColor(p)
	if !colored || code == "" {
		return string(p)
	}
	return code + string(p) + ansiReset
}

// ShortenMessage truncates msg to at most max runes, appending "..." when truncated.
// max is treated as at least 4 to guarantee space for the ellipsis.
func ShortenMessage(msg string, max int) string {
	if max < 4 {
		max = 4
	}
	runes := []rune(msg)
	if len(runes) <= max {
		return msg
	}
	return string(runes[:max-3]) + "..."
}

// priorityCell pads the priority to width. ANSI codes wrap only the text so
// the padding stays plain and later columns line up.
func priorityCell(p models.Priority, width int, colored bool) string {
	text := string(p)
	code := priorityColor(p)
	if !colored || code == "" {
		return fmt.Sprintf("%-*s", width, text)
	}
	spaces := max(width-len(text), 0)
	return code + text + ansiReset + strings.Repeat(" ", spaces)
}

// truncateField shortens s to at most max runes for ID/label columns.
func truncateField(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-1]) + "…"
}

// RenderTable writes a recommendations table to w.
//
// Column order:
//
//	RESOURCE ID  SERVICE  REGION  PRIORITY  SCORE  SAVINGS/MO  [STATUS]  [RATIONALE]
func RenderTable(w io.Writer, recs []models.WasteRecommendation, opts TableOptions) {
	if len(recs) == 0 {
		fmt.Fprintln(w, "No recommendations.")
		return
	}

	const (
		wResource  = 30
		wService   = 8
		wRegion    = 15
		wPriority  = 8
		wScore     = 6
		wSavings   = 12
		wStatus    = 10
		wRationale = 60
	)

	var hb strings.Builder
	hb.WriteString(fmt.Sprintf("%-*s", wResource, "RESOURCE ID"))
	hb.WriteString(fmt.Sprintf("  %-*s", wService, "SERVICE"))
	hb.WriteString(fmt.Sprintf("  %-*s", wRegion, "REGION"))
	hb.WriteString(fmt.Sprintf("  %-*s", wPriority, "PRIORITY"))
	hb.WriteString(fmt.Sprintf("  %*s", wScore, "SCORE"))
	hb.WriteString(fmt.Sprintf("  %*s", wSavings, "SAVINGS/MO"))
	if opts.IncludeStatus {
		hb.WriteString(fmt.Sprintf("  %-*s", wStatus, "STATUS"))
	}
	if opts.IncludeRationale {
		hb.WriteString("  RATIONALE")
	}
	header := hb.String()

	fmt.Fprintln(w, header)
	fmt.Fprintln(w, strings.Repeat("-", len(header)))

	for _, r := range recs {
		var rb strings.Builder
		rb.WriteString(fmt.Sprintf("%-*s", wResource, truncateField(r.ResourceID, wResource)))
		rb.WriteString(fmt.Sprintf("  %-*s", wService, truncateField(string(r.Service), wService)))
		rb.WriteString(fmt.Sprintf("  %-*s", wRegion, truncateField(r.Region, wRegion)))
		rb.WriteString("  " + priorityCell(r.Priority, wPriority, opts.Colored))
		rb.WriteString(fmt.Sprintf("  %*.0f", wScore, r.CompositeScore))
		rb.WriteString(fmt.Sprintf("  %*s", wSavings, "$"+r.EstimatedMonthlySavings.StringFixed(2)))
		if opts.IncludeStatus {
			rb.WriteString(fmt.Sprintf("  %-*s", wStatus, r.Status))
		}
		if opts.IncludeRationale {
			rb.WriteString("  " + ShortenMessage(r.Rationale, wRationale))
		}
		fmt.Fprintln(w, strings.TrimRight(rb.String(), " "))
	}
}

// RenderSummary writes one line with counts per priority and the total
// estimated monthly savings.
func RenderSummary(w io.Writer, recs []models.WasteRecommendation) {
	s := models.Summarize(recs)
	fmt.Fprintf(w, "\n%d recommendations (High: %d, Medium: %d, Low: %d); estimated savings $%s/month\n",
		s.Total, s.High, s.Medium, s.Low, s.TotalEstimatedMonthlySavings.StringFixed(2))
}
