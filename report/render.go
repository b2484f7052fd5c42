// Package report renders comparison and run results for the terminal and
// for spreadsheet export.
package report

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/patientflow-sim/patientflow/sim"
	"github.com/patientflow-sim/patientflow/sim/compare"
)

var (
	accent  = lipgloss.Color("#5FAFFF")
	muted   = lipgloss.Color("#808080")
	better  = lipgloss.Color("#00CC66")
	worse   = lipgloss.Color("#FF5F5F")
	warning = lipgloss.Color("#FFAF00")

	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(accent)
	mutedStyle   = lipgloss.NewStyle().Foreground(muted)
	headerStyle  = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle    = lipgloss.NewStyle().Padding(0, 1)
	numberStyle  = cellStyle.Align(lipgloss.Right)
	betterStyle  = numberStyle.Foreground(better)
	worseStyle   = numberStyle.Foreground(worse)
	warningStyle = lipgloss.NewStyle().Foreground(warning).Bold(true)
)

// FormatValue renders a metric value in its unit.
func FormatValue(v float64, unit string) string {
	switch unit {
	case "$":
		return fmt.Sprintf("$%.2f", v)
	case "ratio":
		return fmt.Sprintf("%.1f%%", v*100)
	default:
		return fmt.Sprintf("%.1f", v)
	}
}

// FormatDelta renders a percentage delta, or "n/a" when the baseline is zero.
func FormatDelta(d compare.Delta) string {
	if !d.Defined {
		return "n/a"
	}
	return fmt.Sprintf("%+.1f%%", d.Percent)
}

func deltaStyle(d compare.Delta) lipgloss.Style {
	if !d.Defined || d.Baseline == d.Enhanced {
		return numberStyle
	}
	if d.Improved() {
		return betterStyle
	}
	return worseStyle
}

// RenderComparison writes one table per hospital, then any run failures.
func RenderComparison(w io.Writer, cmp *compare.Comparison) error {
	var b strings.Builder
	heading := fmt.Sprintf("Baseline vs enhanced, %d replication(s), seed %d", cmp.Replications, cmp.Seed)
	if cmp.Days > 0 {
		heading += fmt.Sprintf(", %.4g day(s)", cmp.Days)
	}
	b.WriteString(titleStyle.Render(heading))
	b.WriteString("\n")

	for i := range cmp.Hospitals {
		h := &cmp.Hospitals[i]
		b.WriteString("\n")
		b.WriteString(titleStyle.Render(h.Hospital))
		b.WriteString(mutedStyle.Render(fmt.Sprintf("  (%d baseline / %d enhanced runs)", h.Baseline.Runs, h.Enhanced.Runs)))
		b.WriteString("\n")
		b.WriteString(hospitalTable(h).Render())
		b.WriteString("\n")
		if h.Incomplete > 0 {
			b.WriteString(warningStyle.Render(fmt.Sprintf("! %d patient(s) still in flight at the horizon across runs", h.Incomplete)))
			b.WriteString("\n")
		}
	}

	if len(cmp.Failures) > 0 {
		b.WriteString("\n")
		b.WriteString(warningStyle.Render(fmt.Sprintf("%d run(s) failed", len(cmp.Failures))))
		b.WriteString("\n")
		for _, f := range cmp.Failures {
			fmt.Fprintf(&b, "  %s/%s replication %d (seed %d): %s\n", f.Hospital, f.Configuration, f.Replication, f.Seed, f.Error)
		}
	}
	b.WriteString(mutedStyle.Render(fmt.Sprintf("completed in %v", cmp.WallTime.Round(time.Millisecond))))
	b.WriteString("\n")
	_, err := io.WriteString(w, b.String())
	return err
}

func hospitalTable(h *compare.HospitalComparison) *table.Table {
	rows := make([][]string, 0, len(h.Deltas))
	for _, d := range h.Deltas {
		rows = append(rows, []string{
			d.Label,
			FormatValue(d.Baseline, d.Unit),
			FormatValue(d.Enhanced, d.Unit),
			FormatDelta(d),
		})
	}
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(mutedStyle).
		Headers("Metric", "Baseline", "Enhanced", "Change").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case col == 0:
				return cellStyle
			case col == 3 && row >= 0 && row < len(h.Deltas):
				return deltaStyle(h.Deltas[row])
			default:
				return numberStyle
			}
		})
}

// RenderRun writes the summary of a single run.
func RenderRun(w io.Writer, res *sim.RunResult) error {
	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf("%s/%s seed %d", res.Hospital, res.Configuration, res.Seed)))
	b.WriteString("\n")

	m := res.Metrics()
	rows := make([][]string, 0, len(sim.MetricDefs))
	for _, def := range sim.MetricDefs {
		v := "n/a"
		if _, ok := def.Observe(res); ok {
			v = FormatValue(def.Value(m), def.Unit)
		}
		rows = append(rows, []string{def.Label, v})
	}
	metrics := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(mutedStyle).
		Headers("Metric", "Value").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			if col == 1 {
				return numberStyle
			}
			return cellStyle
		})
	b.WriteString(metrics.Render())
	b.WriteString("\n")

	pools := make([]string, 0, len(res.Pools))
	for name := range res.Pools {
		pools = append(pools, name)
	}
	sort.Strings(pools)
	poolRows := make([][]string, 0, len(pools))
	for _, name := range pools {
		st := res.Pools[name]
		if st.Capacity == 0 && st.StillWaiting == 0 {
			continue
		}
		poolRows = append(poolRows, []string{
			name,
			fmt.Sprintf("%d", st.Capacity),
			fmt.Sprintf("%.1f%%", st.Utilization*100),
			fmt.Sprintf("%.1f", st.MeanWait),
			fmt.Sprintf("%d", st.PeakQueue),
		})
	}
	poolTable := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(mutedStyle).
		Headers("Pool", "Capacity", "Utilization", "Mean wait", "Peak queue").
		Rows(poolRows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			if col == 0 {
				return cellStyle
			}
			return numberStyle
		})
	b.WriteString(poolTable.Render())
	b.WriteString("\n")

	fmt.Fprintf(&b, "%s\n", mutedStyle.Render(fmt.Sprintf("%d arrivals, %d completed, %d events in %v",
		res.Arrivals, res.Completed, res.EventsDispatched, res.WallTime.Round(time.Millisecond))))
	if res.Incomplete > 0 {
		b.WriteString(warningStyle.Render(fmt.Sprintf("! %d patient(s) still in flight at the horizon", res.Incomplete)))
		b.WriteString("\n")
	}
	_, err := io.WriteString(w, b.String())
	return err
}
