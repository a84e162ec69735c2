package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/manajemen-lele/lele/internal/jobs"
	"github.com/manajemen-lele/lele/internal/ledger"
	"github.com/manajemen-lele/lele/internal/reconcile"
)

// ReportWarmer recomputes a report and replaces its cached copy.
type ReportWarmer interface {
	Warm(ctx context.Context, filter ledger.DateFilter) (*reconcile.Report, error)
}

// ReportWarmJob keeps the dashboard month hot in the report cache.
type ReportWarmJob struct {
	Reports ReportWarmer
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
	clock   func() time.Time
}

// NewReportWarmJob wires dependencies for the warm-up handler.
func NewReportWarmJob(reports ReportWarmer, logger *slog.Logger, metrics *jobmetrics.Metrics) *ReportWarmJob {
	return &ReportWarmJob{
		Reports: reports,
		Logger:  logger,
		Metrics: metrics,
		clock: func() time.Time {
			return time.Now()
		},
	}
}

// Handle processes warm-up tasks.
func (j *ReportWarmJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Reports == nil {
		return errors.New("report warm: handler not configured")
	}
	var payload ReportWarmPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
	}
	month := j.now()
	if payload.Month != "" {
		parsed, err := time.Parse("2006-01", payload.Month)
		if err != nil {
			return fmt.Errorf("report warm: month %q: %w", payload.Month, asynq.SkipRetry)
		}
		month = parsed
	}

	tracker := j.metrics().Track(TaskReportWarm)
	filter := ledger.MonthOf(month)
	logger := j.logger().With(slog.String("filter", filter.Key()))

	// Keep each run well inside the schedule interval.
	runCtx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()
	report, err := j.Reports.Warm(runCtx, filter)
	if err != nil {
		logger.Error("warm report", slog.Any("error", err))
		return tracker.End(err)
	}
	if !report.Complete() {
		logger.Warn("report incomplete, not cached", slog.Any("failed", report.Failed()))
		return tracker.End(nil)
	}
	logger.Info("report warmed")
	return tracker.End(nil)
}

func (j *ReportWarmJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskReportWarm))
	}
	return slog.Default().With(slog.String("job", TaskReportWarm))
}

func (j *ReportWarmJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}

func (j *ReportWarmJob) now() time.Time {
	if j.clock != nil {
		return j.clock()
	}
	return time.Now()
}
