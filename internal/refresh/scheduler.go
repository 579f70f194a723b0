package refresh

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorhill/cronexpr"
)

const (
	LockKey        = "refresh:lock"
	DefaultLockTTL = 10 * time.Minute
)

// DefaultCrons fire at 11:00 and 23:00 local time.
var DefaultCrons = []string{"0 11 * * *", "0 23 * * *"}

// Runner is satisfied by *Job.
type Runner interface {
	Run(ctx context.Context, trigger string) Report
}

// Locker guards a firing against concurrent replicas. Implemented by
// redis_repository.Locker.
type Locker interface {
	Acquire(ctx context.Context, key, owner string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key, owner string) error
}

type SchedulerOptions struct {
	// Locker is optional; nil runs every firing unguarded.
	Locker  Locker
	LockTTL time.Duration
	Logger  *slog.Logger
}

// Scheduler runs a job at every firing of a set of cron expressions.
type Scheduler struct {
	job     Runner
	exprs   []*cronexpr.Expression
	locker  Locker
	lockTTL time.Duration
	logger  *slog.Logger
	now     func() time.Time

	started  atomic.Bool
	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

func NewScheduler(job Runner, crons []string, opts SchedulerOptions) (*Scheduler, error) {
	if len(crons) == 0 {
		crons = DefaultCrons
	}
	exprs := make([]*cronexpr.Expression, 0, len(crons))
	for _, c := range crons {
		e, err := cronexpr.Parse(c)
		if err != nil {
			return nil, fmt.Errorf("parse cron %q: %w", c, err)
		}
		exprs = append(exprs, e)
	}
	if opts.LockTTL <= 0 {
		opts.LockTTL = DefaultLockTTL
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Scheduler{
		job:     job,
		exprs:   exprs,
		locker:  opts.Locker,
		lockTTL: opts.LockTTL,
		logger:  opts.Logger.With("component", "scheduler"),
		now:     time.Now,
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}, nil
}

// Next returns the earliest firing strictly after from, or the zero time when
// no expression fires again.
func (s *Scheduler) Next(from time.Time) time.Time {
	var next time.Time
	for _, e := range s.exprs {
		t := e.Next(from)
		if t.IsZero() {
			continue
		}
		if next.IsZero() || t.Before(next) {
			next = t
		}
	}
	return next
}

// Start launches the scheduling loop. It returns immediately.
func (s *Scheduler) Start(ctx context.Context) {
	if !s.started.CompareAndSwap(false, true) {
		return
	}
	go s.loop(ctx)
}

// Stop ends the loop and waits for an in-flight run to finish.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() { close(s.stop) })
	if s.started.Load() {
		<-s.done
	}
}

func (s *Scheduler) loop(ctx context.Context) {
	defer close(s.done)
	for {
		next := s.Next(s.now())
		if next.IsZero() {
			s.logger.Warn("no future firings, scheduler exiting")
			return
		}
		s.logger.Info("next refresh scheduled", "at", next)
		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-s.stop:
			timer.Stop()
			return
		case <-timer.C:
			s.fire(ctx, next)
		}
	}
}

// fire runs the job for slot. Lock errors are logged and never block the run.
func (s *Scheduler) fire(ctx context.Context, slot time.Time) {
	owner := slot.UTC().Format(time.RFC3339)
	if s.locker != nil {
		ok, err := s.locker.Acquire(ctx, LockKey, owner, s.lockTTL)
		switch {
		case err != nil:
			s.logger.Warn("refresh lock unavailable, running anyway", "error", err)
		case !ok:
			s.logger.Info("refresh already running elsewhere, skipping", "slot", owner)
			return
		default:
			defer func() {
				if err := s.locker.Release(context.WithoutCancel(ctx), LockKey, owner); err != nil && !errors.Is(err, context.Canceled) {
					s.logger.Warn("release refresh lock", "error", err)
				}
			}()
		}
	}
	s.job.Run(ctx, TriggerSchedule)
}
