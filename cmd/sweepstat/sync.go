package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"sweepstat/internal/config"
	"sweepstat/internal/ingest"
	"sweepstat/internal/ratelimit"
	"sweepstat/internal/store"
	"sweepstat/internal/timeframe"
)

var (
	schedule string
	onlyEx   string
)

func syncCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Fetch new candles from the configured exchanges into the store",
		Long: `Fetch everything newer than the last stored candle for each configured
exchange and symbol. The first sync of a pair looks back sync.lookback_days.
With --schedule the sync repeats on a cron schedule (with a seconds field)
until interrupted.`,
		RunE: runSync,
	}
	cmd.Flags().StringVar(&schedule, "schedule", "", `cron schedule with seconds, e.g. "0 */15 * * * *"; "config" uses sync.schedule`)
	cmd.Flags().StringVar(&onlyEx, "only", "", "sync only this exchange")
	return cmd
}

func newSyncer(cfg *config.Config, st store.Store, log *zap.Logger, progress bool) (*ingest.Syncer, error) {
	tf, err := timeframe.Parse(cfg.Sync.Timeframe)
	if err != nil {
		return nil, err
	}
	exchanges := cfg.Exchanges
	if onlyEx != "" {
		ex, ok := cfg.Exchange(onlyEx)
		if !ok {
			return nil, fmt.Errorf("exchange %q not configured", onlyEx)
		}
		ex.Enabled = true
		exchanges = []config.ExchangeConfig{ex}
	}

	sources, err := ingest.Sources(exchanges, ratelimit.NewMultiLimiter())
	if err != nil {
		return nil, err
	}
	opts := ingest.Options{
		Timeframe:    tf,
		LookbackDays: cfg.Sync.LookbackDays,
		SymbolPause:  cfg.Sync.SymbolPause,
	}
	if progress {
		opts.Progress = os.Stderr
	}
	return ingest.NewSyncer(st, sources, opts, log), nil
}

func runSync(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	defer log.Sync()

	ctx, cancel := signalContext()
	defer cancel()

	st, err := store.Open(ctx, cfg.Store.Driver, cfg.Store.DSN, log)
	if err != nil {
		return err
	}
	defer st.Close()

	syncer, err := newSyncer(cfg, st, log, schedule == "")
	if err != nil {
		return err
	}

	if schedule == "" {
		res, err := syncer.Run(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("Synced %d pairs, %d candles written, %d failed (%s)\n",
			len(res.Pairs), res.Written, res.Failed, res.Elapsed.Round(time.Millisecond))
		if res.Failed == len(res.Pairs) && res.Failed > 0 {
			return fmt.Errorf("all %d pairs failed", res.Failed)
		}
		return nil
	}

	spec := schedule
	if spec == "config" {
		spec = cfg.Sync.Schedule
	}
	sch := ingest.NewScheduler(ctx, syncer, log)
	if err := sch.Register(spec); err != nil {
		return err
	}
	sch.Start()
	go sch.RunNow()

	<-ctx.Done()
	sch.Stop()
	return nil
}
