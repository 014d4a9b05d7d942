package listing

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Refresher re-syncs the listing on a cron schedule so the console picks up
// changes made by other admins.
type Refresher struct {
	syncer  *Syncer
	cron    *cron.Cron
	timeout time.Duration
	logger  *slog.Logger
}

// NewRefresher validates spec (standard five-field cron or a descriptor such
// as "@every 5m").
func NewRefresher(syncer *Syncer, spec string, timeout time.Duration, logger *slog.Logger) (*Refresher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Refresher{
		syncer:  syncer,
		cron:    cron.New(),
		timeout: timeout,
		logger:  logger,
	}
	if _, err := r.cron.AddFunc(spec, r.run); err != nil {
		return nil, fmt.Errorf("parse refresh schedule %q: %w", spec, err)
	}
	return r, nil
}

func (r *Refresher) Start() {
	r.cron.Start()
	r.logger.Info("listing refresher started")
}

// Stop halts the schedule and waits for a running refresh to finish.
func (r *Refresher) Stop() {
	<-r.cron.Stop().Done()
	r.logger.Info("listing refresher stopped")
}

func (r *Refresher) run() {
	ctx := context.Background()
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}
	if _, err := r.syncer.Refresh(ctx); err != nil {
		r.logger.Warn("scheduled refresh failed", "error", err)
	}
}
