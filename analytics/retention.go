package analytics

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Purger deletes events older than a cutoff.
type Purger interface {
	PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// RetentionJob deletes events past the retention period. It implements
// cron.Job.
type RetentionJob struct {
	purger Purger
	keep   time.Duration
	logger *zap.Logger
	now    func() time.Time
}

func NewRetentionJob(p Purger, days int, logger *zap.Logger) *RetentionJob {
	if days <= 0 {
		days = 365
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RetentionJob{
		purger: p,
		keep:   time.Duration(days) * 24 * time.Hour,
		logger: logger,
		now:    time.Now,
	}
}

// Purge runs one retention pass.
func (j *RetentionJob) Purge(ctx context.Context) (int64, error) {
	cutoff := j.now().Add(-j.keep)
	n, err := j.purger.PurgeBefore(ctx, cutoff)
	if err != nil {
		return 0, errors.Wrap(err, "analytics: retention")
	}
	return n, nil
}

func (j *RetentionJob) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	n, err := j.Purge(ctx)
	if err != nil {
		j.logger.Error("retention pass failed", zap.Error(err))
		return
	}
	j.logger.Info("retention pass", zap.Int64("deleted", n))
}

// NewScheduler returns a stopped cron scheduler that runs job daily and
// sweeps idle limiter keys every ten minutes.
func NewScheduler(job *RetentionJob, limiter *Limiter, logger *zap.Logger) (*cron.Cron, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	cl := cronLogger{logger.Sugar()}
	c := cron.New(
		cron.WithLocation(time.UTC),
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)
	if job != nil {
		if _, err := c.AddJob("@daily", job); err != nil {
			return nil, errors.Wrap(err, "analytics: schedule retention")
		}
	}
	if limiter != nil {
		if _, err := c.AddFunc("@every 10m", limiter.Sweep); err != nil {
			return nil, errors.Wrap(err, "analytics: schedule limiter sweep")
		}
	}
	return c, nil
}

type cronLogger struct {
	s *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.s.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.s.Errorw(msg, append(keysAndValues, "error", err)...)
}
