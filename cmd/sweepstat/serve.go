package main

import (
	"context"
	"errors"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"sweepstat/internal/ingest"
	"sweepstat/internal/provider"
	"sweepstat/internal/web"
)

var (
	port        int
	withSync    bool
	releaseMode bool
)

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve analyses as a JSON API",
		RunE:  runServe,
	}
	cmd.Flags().IntVar(&port, "port", 0, "listen port (default from config)")
	cmd.Flags().BoolVar(&withSync, "sync", false, "also run the scheduled sync (sync.schedule)")
	cmd.Flags().BoolVar(&releaseMode, "release", true, "run gin in release mode")
	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	defer log.Sync()
	if port > 0 {
		cfg.Server.Port = port
	}

	ctx, cancel := signalContext()
	defer cancel()

	src, st, err := seriesSource(ctx, cfg, log)
	if err != nil {
		return err
	}
	if st != nil {
		defer st.Close()
	}
	loader := provider.NewLoader(src, cfg.Data.CacheTTL)

	var lister web.SeriesLister
	if st != nil {
		lister = st
	}
	srv := web.NewServer(loader, lister, web.Options{
		Port:           cfg.Server.Port,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Data:           cfg.Data,
		Defaults:       cfg.Analysis,
		Release:        releaseMode,
	}, log)

	if withSync {
		if st == nil {
			return errors.New("--sync needs the store data source")
		}
		syncer, err := newSyncer(cfg, st, log, false)
		if err != nil {
			return err
		}
		syncer.OnWrite = loader.Invalidate
		sch := ingest.NewScheduler(ctx, syncer, log)
		if err := sch.Register(cfg.Sync.Schedule); err != nil {
			return err
		}
		sch.Start()
		defer sch.Stop()
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, done := context.WithTimeout(context.Background(), 10*time.Second)
	defer done()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("shutdown", zap.Error(err))
	}
	return nil
}
