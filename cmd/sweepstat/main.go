package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"sweepstat/internal/analyzer"
	"sweepstat/internal/config"
	"sweepstat/internal/logging"
	"sweepstat/internal/provider"
	"sweepstat/internal/store"
	"sweepstat/internal/timeframe"
	"sweepstat/pkg/model"
)

var (
	cfgFile  string
	logLevel string

	// series selection
	exchange string
	symbol   string
	baseTF   string
	csvPath  string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "sweepstat",
		Short: "Statistics on when and how often price levels get swept",
		Long: `sweepstat measures crypto market structure on historical OHLCV data:
when highs and lows form, how often naked opens, wicks, gaps, quartile
opens, round numbers, pivots and poor TPO extremes get revisited.

Examples:
  sweepstat sync
  sweepstat analyze extremes-hour --days Monday,Tuesday
  sweepstat analyze wick-fills --timeframe 4h --partial 50 --format json
  sweepstat analyze all --from 2024-01-01
  sweepstat serve --port 8080`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "config.yaml", "config file path")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&exchange, "exchange", "", "exchange of the analysed series")
	rootCmd.PersistentFlags().StringVar(&symbol, "symbol", "", "symbol of the analysed series, e.g. BTC/USDT")
	rootCmd.PersistentFlags().StringVar(&baseTF, "base", "", "resolution of the stored series")
	rootCmd.PersistentFlags().StringVar(&csvPath, "csv", "", "read the series from a CSV file instead of the store")

	rootCmd.AddCommand(listCmd(), analyzeCmd(), syncCmd(), serveCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// setup loads config, applies global flags and builds the logger.
func setup() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if exchange != "" {
		cfg.Data.Exchange = exchange
	}
	if symbol != "" {
		cfg.Data.Symbol = symbol
	}
	if baseTF != "" {
		cfg.Data.Timeframe = baseTF
	}
	if csvPath != "" {
		cfg.Data.Source = "csv"
		cfg.Data.CSVPath = csvPath
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid config: %w", err)
	}

	log, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, nil, err
	}
	return cfg, log, nil
}

// signalContext is cancelled on SIGINT/SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case <-sigChan:
			fmt.Fprintln(os.Stderr, "\nInterrupted. Stopping...")
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigChan)
	}()
	return ctx, cancel
}

// seriesSource returns the configured series source. The store, when opened,
// is returned too so callers can close it or list its series.
func seriesSource(ctx context.Context, cfg *config.Config, log *zap.Logger) (provider.Source, store.Store, error) {
	if cfg.Data.Source == "csv" {
		return provider.CSVFile{Path: cfg.Data.CSVPath}, nil, nil
	}
	st, err := store.Open(ctx, cfg.Store.Driver, cfg.Store.DSN, log)
	if err != nil {
		return nil, nil, err
	}
	return st, st, nil
}

func dataKey(cfg *config.Config) store.Key {
	return store.Key{Exchange: cfg.Data.Exchange, Symbol: cfg.Data.Symbol, Timeframe: cfg.Data.Timeframe}
}

// loadSeries reads the configured series once.
func loadSeries(ctx context.Context, cfg *config.Config, log *zap.Logger) ([]model.Candle, timeframe.Timeframe, error) {
	base, err := timeframe.Parse(cfg.Data.Timeframe)
	if err != nil {
		return nil, 0, err
	}
	src, st, err := seriesSource(ctx, cfg, log)
	if err != nil {
		return nil, 0, err
	}
	if st != nil {
		defer st.Close()
	}

	key := dataKey(cfg)
	series, err := src.Load(ctx, key, time.Time{}, time.Time{})
	if err != nil {
		return nil, 0, fmt.Errorf("loading %s: %w", key, err)
	}
	if len(series) == 0 {
		if cfg.Data.Source == "csv" {
			return nil, 0, fmt.Errorf("no candles in %s", cfg.Data.CSVPath)
		}
		return nil, 0, fmt.Errorf("no candles stored for %s; run 'sweepstat sync' first", key)
	}
	log.Info("series loaded", zap.Stringer("key", key), zap.Int("candles", len(series)))
	return series, base, nil
}

func listCmd() *cobra.Command {
	var showSeries bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List analyses, or stored series with --series",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !showSeries {
				table := tablewriter.NewTable(os.Stdout, tablewriter.WithHeader([]string{"Analysis", "Description"}))
				for _, a := range analyzer.All() {
					if err := table.Append([]string{a.Name, a.Description}); err != nil {
						return err
					}
				}
				return table.Render()
			}

			cfg, log, err := setup()
			if err != nil {
				return err
			}
			defer log.Sync()
			st, err := store.Open(cmd.Context(), cfg.Store.Driver, cfg.Store.DSN, log)
			if err != nil {
				return err
			}
			defer st.Close()

			series, err := st.Series(cmd.Context())
			if err != nil {
				return err
			}
			table := tablewriter.NewTable(os.Stdout, tablewriter.WithHeader([]string{"Exchange", "Symbol", "TF", "Candles", "First", "Last"}))
			for _, s := range series {
				row := []string{s.Exchange, s.Symbol, s.Timeframe, fmt.Sprint(s.Count),
					s.First.Format(time.DateTime), s.Last.Format(time.DateTime)}
				if err := table.Append(row); err != nil {
					return err
				}
			}
			return table.Render()
		},
	}
	cmd.Flags().BoolVar(&showSeries, "series", false, "list stored series instead of analyses")
	return cmd
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
