package service

import (
	"context"
	"time"

	"go.uber.org/zap"
)

type ErrorLogStore interface {
	PruneErrorsBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// ErrorLogPruner periodically deletes error-log rows older than the
// retention window. A retention of 0 disables it.
type ErrorLogPruner struct {
	store     ErrorLogStore
	retention time.Duration
	interval  time.Duration
	logger    *zap.Logger
	now       func() time.Time
	cancel    context.CancelFunc
	done      chan struct{}
}

type PrunerConfig struct {
	// RetentionDays of error log to keep. 0 keeps everything.
	RetentionDays int

	// IntervalHours between runs. Defaults to 6.
	IntervalHours int
}

// NewErrorLogPruner creates a pruner but does not start it.
func NewErrorLogPruner(s ErrorLogStore, cfg PrunerConfig, logger *zap.Logger) *ErrorLogPruner {
	interval := time.Duration(cfg.IntervalHours) * time.Hour
	if interval <= 0 {
		interval = 6 * time.Hour
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ErrorLogPruner{
		store:     s,
		retention: time.Duration(cfg.RetentionDays) * 24 * time.Hour,
		interval:  interval,
		logger:    logger,
		now:       time.Now,
		done:      make(chan struct{}),
	}
}

// Start prunes once immediately, then on every interval until ctx is
// cancelled or Stop is called.
func (p *ErrorLogPruner) Start(ctx context.Context) {
	if p.retention <= 0 {
		p.logger.Info("error log pruner disabled", zap.Int("retention_days", 0))
		close(p.done)
		return
	}

	ctx, p.cancel = context.WithCancel(ctx)
	go p.loop(ctx)

	p.logger.Info("error log pruner started",
		zap.Int("retention_days", int(p.retention.Hours()/24)),
		zap.Duration("interval", p.interval))
}

// Stop signals the loop to exit and waits for it.
func (p *ErrorLogPruner) Stop() {
	if p.cancel != nil {
		p.cancel()
	}
	<-p.done
}

func (p *ErrorLogPruner) loop(ctx context.Context) {
	defer close(p.done)

	p.PruneOnce(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.PruneOnce(ctx)
		}
	}
}

// PruneOnce runs a single pass and returns the number of rows removed.
func (p *ErrorLogPruner) PruneOnce(ctx context.Context) int64 {
	cutoff := p.now().Add(-p.retention)
	deleted, err := p.store.PruneErrorsBefore(ctx, cutoff)
	if err != nil {
		p.logger.Warn("error log prune failed", zap.Error(err))
		return 0
	}
	if deleted > 0 {
		p.logger.Info("error log pruned",
			zap.Int64("deleted", deleted),
			zap.Time("cutoff", cutoff))
	}
	return deleted
}
