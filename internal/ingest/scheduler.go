package ingest

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Scheduler runs the syncer on a cron schedule. Overlapping runs are
// skipped.
type Scheduler struct {
	cron    *cron.Cron
	syncer  *Syncer
	log     *zap.Logger
	ctx     context.Context
	running atomic.Bool
	runs    atomic.Int64
}

// NewScheduler creates a scheduler. Specs include a seconds field.
func NewScheduler(ctx context.Context, syncer *Syncer, log *zap.Logger) *Scheduler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Scheduler{
		cron:   cron.New(cron.WithSeconds()),
		syncer: syncer,
		log:    log,
		ctx:    ctx,
	}
}

// Register adds the sync job.
func (s *Scheduler) Register(spec string) error {
	if _, err := s.cron.AddFunc(spec, s.RunNow); err != nil {
		return fmt.Errorf("register sync %q: %w", spec, err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info("scheduler started", zap.Int("jobs", len(s.cron.Entries())))
}

// Stop stops scheduling and waits for a running sync to return.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.log.Info("scheduler stopped", zap.Int64("runs", s.runs.Load()))
}

// RunNow runs one sync unless one is already in progress.
func (s *Scheduler) RunNow() {
	if !s.running.CompareAndSwap(false, true) {
		s.log.Warn("previous sync still running, skipping")
		return
	}
	defer s.running.Store(false)

	s.runs.Add(1)
	if _, err := s.syncer.Run(s.ctx); err != nil {
		s.log.Error("sync aborted", zap.Error(err))
	}
}

// Runs returns how many syncs have started.
func (s *Scheduler) Runs() int64 {
	return s.runs.Load()
}
