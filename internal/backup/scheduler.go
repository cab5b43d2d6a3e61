package backup

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/robfig/cron/v3"

	"github.com/m3rciful/notifybot/core/logger"
)

// DefaultSchedule runs weekly on Sunday at midnight.
const DefaultSchedule = "0 0 * * 0"

var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// Scheduler runs Create on a cron schedule.
type Scheduler struct {
	mgr     *Manager
	cron    *cron.Cron
	onStart bool
	startup cron.Job
	wg      sync.WaitGroup
	// OnResult observes every scheduled run.
	OnResult func(err error)
}

// NewScheduler validates the schedule. onStart also runs one backup when Start is called.
func NewScheduler(mgr *Manager, spec string, onStart bool) (*Scheduler, error) {
	if spec == "" {
		spec = DefaultSchedule
	}
	log := cronLogger{}
	c := cron.New(
		cron.WithParser(parser),
		cron.WithLogger(log),
	)
	s := &Scheduler{mgr: mgr, cron: c, onStart: onStart}
	// Scheduled and startup runs share one chain so they never overlap.
	job := cron.NewChain(cron.Recover(log), cron.SkipIfStillRunning(log)).Then(cron.FuncJob(s.run))
	if _, err := c.AddJob(spec, job); err != nil {
		return nil, fmt.Errorf("backup schedule %q: %w", spec, err)
	}
	s.startup = job
	return s, nil
}

// Start launches the cron goroutine.
func (s *Scheduler) Start() {
	if s.onStart {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.startup.Run()
		}()
	}
	s.cron.Start()
	logger.BAK.Info("backup scheduler started", slog.String("event", "backup.scheduler"))
}

// Stop waits for running backups, scheduled or startup, to finish or ctx to end.
func (s *Scheduler) Stop(ctx context.Context) {
	stopped := s.cron.Stop()
	done := make(chan struct{})
	go func() {
		<-stopped.Done()
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
	}
}

func (s *Scheduler) run() {
	ctx := logger.Background()
	_, err := s.mgr.Create(ctx)
	if s.OnResult != nil {
		s.OnResult(err)
	}
	if err != nil {
		logger.BAK.ErrorContext(ctx, "scheduled backup failed",
			slog.String("event", "backup.scheduled"),
			slog.String("err", err.Error()),
		)
	}
}

// cronLogger routes cron's logr-style calls into the backup logger.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...any) {
	logger.BAK.Debug(msg, keysAndValues...)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...any) {
	logger.BAK.Error(msg, append([]any{slog.String("err", err.Error())}, keysAndValues...)...)
}
