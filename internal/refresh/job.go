package refresh

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/mohammad-safakhou/newshub/internal/runtime"
	"github.com/mohammad-safakhou/newshub/models"
)

const (
	TriggerSchedule = "schedule"
	TriggerManual   = "manual"
)

// Fetcher collects items from every configured provider.
type Fetcher interface {
	FetchAll(ctx context.Context, base string) []models.NewsItem
}

// Saver persists items with insert-if-absent semantics.
type Saver interface {
	SaveItems(ctx context.Context, items []models.NewsItem) (int, error)
}

// Report summarises one refresh run.
type Report struct {
	RunID      string    `json:"run_id"`
	Trigger    string    `json:"trigger"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Fetched    int       `json:"fetched"`
	Inserted   int       `json:"inserted"`
	Failed     int       `json:"failed"`
	Error      string    `json:"error,omitempty"`
}

// Job pulls the base query from all providers into the store.
type Job struct {
	fetcher   Fetcher
	saver     Saver
	baseQuery string
	logger    *slog.Logger
	metrics   *runtime.Metrics
	now       func() time.Time
}

func NewJob(fetcher Fetcher, saver Saver, baseQuery string, logger *slog.Logger, metrics *runtime.Metrics) *Job {
	if logger == nil {
		logger = slog.Default()
	}
	return &Job{
		fetcher:   fetcher,
		saver:     saver,
		baseQuery: baseQuery,
		logger:    logger.With("component", "refresh"),
		metrics:   metrics,
		now:       time.Now,
	}
}

// Run never panics; failures are reported in the returned Report.
func (j *Job) Run(ctx context.Context, trigger string) (rep Report) {
	rep = Report{RunID: uuid.NewString(), Trigger: trigger, StartedAt: j.now()}
	j.logger.Info("refresh started", "run_id", rep.RunID, "trigger", trigger)

	defer func() {
		if r := recover(); r != nil {
			rep.Error = fmt.Sprintf("panic: %v", r)
		}
		rep.FinishedAt = j.now()
		outcome := "ok"
		if rep.Error != "" {
			outcome = "error"
			j.logger.Error("refresh failed", "run_id", rep.RunID, "error", rep.Error, "inserted", rep.Inserted)
		} else {
			j.logger.Info("refresh finished", "run_id", rep.RunID, "fetched", rep.Fetched, "inserted", rep.Inserted, "failed", rep.Failed)
		}
		j.metrics.RefreshRun(trigger, outcome, rep.Inserted)
	}()

	items := j.fetcher.FetchAll(ctx, j.baseQuery)
	rep.Fetched = len(items)
	if len(items) == 0 {
		return rep
	}
	inserted, err := j.saver.SaveItems(ctx, items)
	rep.Inserted = inserted
	if err != nil {
		rep.Failed = countErrors(err)
		rep.Error = err.Error()
	}
	return rep
}

func countErrors(err error) int {
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		return len(joined.Unwrap())
	}
	return 1
}
