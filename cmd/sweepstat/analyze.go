package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"sweepstat/internal/analyzer"
	"sweepstat/internal/report"
	"sweepstat/internal/scanner"
)

var (
	format      string
	from        string
	to          string
	days        string
	tf          string
	sessions    string
	lookforward int
	partialPct  float64
	wickMode    string
	wickSide    string
	wickMinPct  float64
	gapStart    string
	gapEnd      string
	gapMinPct   float64
	roundStep   float64
	roundPct    float64
	pivotPeriod string
	tpoPeriod   string
	tpoTick     float64
	hitMetric   string
	hitKey      string
	hitWindow   int
	otfRun      int
	workers     int
)

func analyzeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze <name|all>",
		Short: "Run an analysis over the configured series",
		Long: `Run one registered analysis, or every analysis with "all".
See 'sweepstat list' for the available names.`,
		Args: cobra.ExactArgs(1),
		RunE: runAnalyze,
	}

	f := cmd.Flags()
	f.StringVar(&format, "format", "table", "output format: table, json")
	f.StringVar(&from, "from", "", "first date, YYYY-MM-DD")
	f.StringVar(&to, "to", "", "last date, YYYY-MM-DD")
	f.StringVar(&days, "days", "", "comma-separated weekdays to keep, e.g. Monday,Friday")
	f.StringVar(&tf, "timeframe", "", "analysis timeframe: 15m, 30m, 1h, 4h, 1D, 1W, 1M, Session")
	f.StringVar(&sessions, "sessions", "", "comma-separated sessions: Asia, London, NewYork, Close")
	f.IntVar(&lookforward, "lookforward", 0, "bars scanned after each event (0 = analysis default)")
	f.Float64Var(&partialPct, "partial", 0, "partial fill level, percent of the distance to target")
	f.StringVar(&wickMode, "wick-mode", "", "wick size mode: price, body")
	f.StringVar(&wickSide, "wick-side", "", "wick side: top, bottom, both")
	f.Float64Var(&wickMinPct, "wick-min", 0, "minimum wick size percent")
	f.StringVar(&gapStart, "gap-start", "", "time of the gap-open bar, HH:MM UTC")
	f.StringVar(&gapEnd, "gap-end", "", "time of the gap-close bar, HH:MM UTC")
	f.Float64Var(&gapMinPct, "gap-min", 0, "minimum gap size percent")
	f.Float64Var(&roundStep, "round-interval", 0, "round-number spacing, e.g. 1000")
	f.Float64Var(&roundPct, "round-threshold", 0, "front-run threshold, percent of the level")
	f.StringVar(&pivotPeriod, "pivot-period", "", "pivot period: day, week")
	f.StringVar(&tpoPeriod, "tpo-period", "", "TPO profile period: day, session")
	f.Float64Var(&tpoTick, "tpo-tick", 0, "TPO tick size (0 = from ATR)")
	f.StringVar(&hitMetric, "hit-metric", "", "hit-rate metric: High, Low, P1, P2")
	f.StringVar(&hitKey, "hit-key", "", "hit-rate bucket (default: most frequent)")
	f.IntVar(&hitWindow, "hit-window", 0, "rolling hit-rate window in periods")
	f.IntVar(&otfRun, "otf-run", 0, "one-time-framing run length")
	f.IntVar(&workers, "workers", 0, "parallel analyses for 'all' (0 = one per CPU)")
	return cmd
}

// flagParams collects analysis flags. Unset flags stay zero and fall back to
// the config file, then to the defaults.
func flagParams() analyzer.Params {
	p := analyzer.Params{
		From:              from,
		To:                to,
		Days:              splitList(days),
		Timeframe:         tf,
		Lookforward:       lookforward,
		PartialPct:        partialPct,
		WickMode:          wickMode,
		WickSide:          wickSide,
		WickMinPct:        wickMinPct,
		GapStart:          gapStart,
		GapEnd:            gapEnd,
		GapMinPct:         gapMinPct,
		RoundInterval:     roundStep,
		RoundThresholdPct: roundPct,
		PivotPeriod:       pivotPeriod,
		TPOPeriod:         tpoPeriod,
		TPOTick:           tpoTick,
		HitRateMetric:     hitMetric,
		HitRateKey:        hitKey,
		HitRateWindow:     hitWindow,
		OTFRun:            otfRun,
	}
	if sessions != "" {
		p.Sessions = splitList(sessions)
	}
	return p
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	if format != "table" && format != "json" {
		return fmt.Errorf("unknown format %q (table, json)", format)
	}
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	defer log.Sync()

	names := args
	if args[0] == "all" {
		names = analyzer.List()
	} else if _, err := analyzer.Get(args[0]); err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	series, base, err := loadSeries(ctx, cfg, log)
	if err != nil {
		return err
	}
	params := flagParams().Merge(cfg.Analysis)

	var reports []*analyzer.Report
	if len(names) == 1 {
		rep, err := analyzer.Run(ctx, names[0], series, base, params, log)
		if err != nil {
			return err
		}
		reports = append(reports, rep)
	} else {
		bar := progressbar.NewOptions(len(names),
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionEnableColorCodes(true),
			progressbar.OptionShowCount(),
			progressbar.OptionShowIts(),
			progressbar.OptionSetWidth(40),
			progressbar.OptionSetDescription("Analyzing"),
			progressbar.OptionSetTheme(progressbar.Theme{
				Saucer:        "[green]█[reset]",
				SaucerHead:    "[green]█[reset]",
				SaucerPadding: "░",
				BarStart:      "[",
				BarEnd:        "]",
			}),
		)
		sc := scanner.NewScanner(workers, 0, log)
		sc.SetProgressCallback(func(done, total int) {
			bar.Set(done)
		})
		res, err := sc.Scan(ctx, names, series, base, params)
		bar.Finish()
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return err
		}
		for _, r := range res.Results {
			if r.Err == nil {
				reports = append(reports, r.Report)
			}
		}
		if res.Failed > 0 {
			fmt.Fprintf(os.Stderr, "%d of %d analyses failed, see log\n", res.Failed, len(names))
		}
	}

	if format == "json" {
		if len(reports) == 1 {
			return report.JSON(os.Stdout, reports[0])
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(reports)
	}
	for i, rep := range reports {
		if i > 0 {
			fmt.Println()
		}
		if err := report.Text(os.Stdout, rep); err != nil {
			return err
		}
	}
	return nil
}
