// Package report renders analysis reports for the terminal.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/olekukonko/tablewriter"

	"sweepstat/internal/analyzer"
	"sweepstat/internal/stats"
	"sweepstat/internal/timing"
	"sweepstat/pkg/model"
)

// MaxEventRows caps the event listing; summaries always cover every event.
const MaxEventRows = 25

// JSON writes the report as indented JSON.
func JSON(w io.Writer, rep *analyzer.Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(rep)
}

// Text writes the report as tables.
func Text(w io.Writer, rep *analyzer.Report) error {
	fmt.Fprintf(w, "== %s", rep.Analysis)
	if rep.Timeframe != "" {
		fmt.Fprintf(w, " [%s]", rep.Timeframe)
	}
	fmt.Fprintf(w, " bars=%d", rep.Bars)
	if rep.Periods > 0 {
		fmt.Fprintf(w, " periods=%d", rep.Periods)
	}
	if rep.Skipped > 0 {
		fmt.Fprintf(w, " skipped=%d", rep.Skipped)
	}
	fmt.Fprintln(w)

	steps := []func(io.Writer, *analyzer.Report) error{
		timingTables, otfTable, profileTable, summaryTable, groupTable, curveTable, histogramTable, eventTable,
	}
	for _, step := range steps {
		if err := step(w, rep); err != nil {
			return err
		}
	}
	return nil
}

func render(w io.Writer, header []string, rows [][]string) error {
	table := tablewriter.NewTable(w, tablewriter.WithHeader(header))
	for _, r := range rows {
		if err := table.Append(r); err != nil {
			return err
		}
	}
	return table.Render()
}

func timingTables(w io.Writer, rep *analyzer.Report) error {
	tr := rep.Timing
	if tr == nil {
		return nil
	}
	// One table with a count/percent column pair per metric.
	header := []string{string(tr.Bucketing)}
	for _, t := range tr.Tables {
		header = append(header, string(t.Metric), string(t.Metric)+" %")
	}
	var rows [][]string
	if len(tr.Tables) > 0 {
		for i, b := range tr.Tables[0].Buckets {
			row := []string{b.Key}
			for _, t := range tr.Tables {
				row = append(row, fmt.Sprintf("%d", t.Buckets[i].Count), fmt.Sprintf("%.1f", t.Buckets[i].Percent))
			}
			rows = append(rows, row)
		}
	}
	if err := render(w, header, rows); err != nil {
		return err
	}

	fmt.Fprintf(w, "High first %d (%.1f%%), low first %d (%.1f%%)\n",
		tr.P1.HighFirst, tr.P1.HighFirstPct, tr.P1.LowFirst, tr.P1.LowFirstPct)

	var gaps [][]string
	for _, g := range tr.LastGap {
		since := "never"
		if g.Found {
			since = fmt.Sprintf("%d", g.Periods)
		}
		gaps = append(gaps, []string{string(g.Metric), g.Key, since})
	}
	if err := render(w, []string{"Metric", "Latest bucket", "Periods since previous"}, gaps); err != nil {
		return err
	}

	if n := len(tr.HitRate); n > 0 {
		last := tr.HitRate[n-1]
		fmt.Fprintf(w, "%s in %q: cumulative %.1f%%, rolling(%d) %.1f%%\n",
			metricOr(rep.Params.HitRateMetric), tr.HitKey, last.Cumulative, rep.Params.HitRateWindow, last.Rolling)
	}
	return nil
}

func metricOr(m string) string {
	if m == "" {
		return string(timing.MetricHigh)
	}
	return m
}

func otfTable(w io.Writer, rep *analyzer.Report) error {
	o := rep.OTF
	if o == nil {
		return nil
	}
	return render(w, []string{"Runs", "Bullish", "Bearish", "Success", "Bull success", "Bear success", "Avg net"}, [][]string{{
		fmt.Sprintf("%d", len(o.Runs)),
		fmt.Sprintf("%d", o.Bullish),
		fmt.Sprintf("%d", o.Bearish),
		pct(o.SuccessRate),
		pct(o.BullishRate),
		pct(o.BearishRate),
		fmt.Sprintf("%+.2f%%", o.AvgNetPercent),
	}})
}

func profileTable(w io.Writer, rep *analyzer.Report) error {
	if len(rep.Profiles) == 0 {
		return nil
	}
	var rows [][]string
	for _, p := range rep.Profiles {
		a := p.Analysis
		label := p.Start.Format("2006-01-02")
		if p.Session != "" {
			label += " " + p.Session
		}
		rows = append(rows, []string{
			label,
			fmt.Sprintf("%g", p.Tick),
			fmt.Sprintf("%.2f", a.High),
			poor(a.PoorHigh, a.TPOsAtHigh, p.HighSwept, p.HighPeriods),
			fmt.Sprintf("%.2f", a.Low),
			poor(a.PoorLow, a.TPOsAtLow, p.LowSwept, p.LowPeriods),
			fmt.Sprintf("%.2f", a.POC),
			fmt.Sprintf("%.2f-%.2f", a.VALow, a.VAHigh),
		})
	}
	return render(w, []string{"Period", "Tick", "High", "High TPOs", "Low", "Low TPOs", "POC", "Value area"}, rows)
}

func poor(isPoor bool, tpos int, swept bool, periods int) string {
	if !isPoor {
		return fmt.Sprintf("%d", tpos)
	}
	if swept {
		return fmt.Sprintf("%d poor, swept +%d", tpos, periods)
	}
	return fmt.Sprintf("%d poor", tpos)
}

func summaryTable(w io.Writer, rep *analyzer.Report) error {
	if rep.Summary == nil {
		return nil
	}
	return render(w, summaryHeader("Events"), [][]string{summaryRow(fmt.Sprintf("%d", rep.Summary.Events), *rep.Summary)})
}

func groupTable(w io.Writer, rep *analyzer.Report) error {
	if len(rep.Groups) < 2 {
		return nil
	}
	var rows [][]string
	for _, g := range rep.Groups {
		rows = append(rows, summaryRow(fmt.Sprintf("%s (%d)", g.Key, g.Summary.Events), g.Summary))
	}
	return render(w, summaryHeader("Group"), rows)
}

func summaryHeader(first string) []string {
	return []string{first, "Hits", "Partial", "Hit rate", "Median bars", "Winsor mean", "Avg MAE", "Avg MAE (hit)"}
}

func summaryRow(first string, s stats.Summary) []string {
	return []string{
		first,
		fmt.Sprintf("%d", s.Hits),
		fmt.Sprintf("%d", s.Partials),
		pct(s.HitRate),
		optional(s.MedianBars),
		optional(s.WinsorMean),
		pct(s.AvgMAEPct),
		pct(s.AvgMAEPctHit),
	}
}

func curveTable(w io.Writer, rep *analyzer.Report) error {
	if len(rep.Curve) == 0 {
		return nil
	}
	// Only print the steps where the probability moved.
	var rows [][]string
	prev := -1.0
	for _, p := range rep.Curve {
		if p.Percent == prev {
			continue
		}
		prev = p.Percent
		rows = append(rows, []string{fmt.Sprintf("%d", p.Bars), pct(p.Percent)})
	}
	return render(w, []string{"Bars forward", "P(hit)"}, rows)
}

func histogramTable(w io.Writer, rep *analyzer.Report) error {
	if len(rep.Histogram) == 0 {
		return nil
	}
	var rows [][]string
	for _, b := range rep.Histogram {
		rows = append(rows, []string{fmt.Sprintf("%.2f-%.2f%%", b.Lo, b.Hi), fmt.Sprintf("%d", b.Count)})
	}
	return render(w, []string{"MAE", "Events"}, rows)
}

func eventTable(w io.Writer, rep *analyzer.Report) error {
	if len(rep.Events) == 0 {
		return nil
	}
	events := rep.Events
	if len(events) > MaxEventRows {
		events = events[len(events)-MaxEventRows:]
		fmt.Fprintf(w, "Last %d of %d events\n", MaxEventRows, len(rep.Events))
	}
	var rows [][]string
	for _, e := range events {
		rows = append(rows, eventRow(e))
	}
	return render(w, []string{"Time", "Kind", "Dir", "Level", "Status", "Bars", "MAE"}, rows)
}

func eventRow(e model.EventOutcome) []string {
	level := "-"
	if e.Event.Level != nil {
		level = fmt.Sprintf("%.2f", *e.Event.Level)
	}
	bars := "-"
	if e.Outcome.BarsToHit != nil {
		bars = fmt.Sprintf("%d", *e.Outcome.BarsToHit)
	}
	return []string{
		e.Event.AnchorTime.UTC().Format(time.DateTime),
		e.Event.Kind,
		string(e.Event.Direction),
		level,
		string(e.Outcome.FillStatus),
		bars,
		pct(e.Outcome.MAEPercent),
	}
}

func pct(v float64) string { return fmt.Sprintf("%.1f%%", v) }

func optional(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%.1f", *v)
}
