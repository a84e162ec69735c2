package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	jobmetrics "github.com/manajemen-lele/lele/internal/jobs"
	"github.com/manajemen-lele/lele/internal/ledger"
	"github.com/manajemen-lele/lele/internal/reconcile"
	"github.com/manajemen-lele/lele/internal/reconcile/export"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// ReportSource loads reconciled reports.
type ReportSource interface {
	Report(ctx context.Context, filter ledger.DateFilter) (*reconcile.Report, error)
}

// ReportExportJob renders a report and stores the file under Dir.
type ReportExportJob struct {
	Reports ReportSource
	Exports *export.Set
	Dir     string
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
	newID   func() string
}

// NewReportExportJob wires dependencies for the export handler.
func NewReportExportJob(reports ReportSource, exports *export.Set, dir string, logger *slog.Logger, metrics *jobmetrics.Metrics) *ReportExportJob {
	return &ReportExportJob{Reports: reports, Exports: exports, Dir: dir, Logger: logger, Metrics: metrics, newID: uuid.NewString}
}

// Handle processes report export tasks. Malformed payloads are not retried.
func (j *ReportExportJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Reports == nil || j.Exports == nil {
		return errors.New("report export: handler not configured")
	}
	var payload ReportExportPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	format, err := export.ParseFormat(payload.Format)
	if err != nil {
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}
	filter := ledger.NewDateFilter(payload.From, payload.To)
	if err := filter.Validate(); err != nil {
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}

	tracker := j.metrics().Track(TaskReportExport)
	logger := j.logger().With(slog.String("format", string(format)), slog.String("filter", filter.Key()))

	path, err := j.run(ctx, format, filter, logger)
	if err != nil {
		logger.Error("report export", slog.Any("error", err))
		return tracker.End(err)
	}
	if rw := t.ResultWriter(); rw != nil {
		_, _ = rw.Write([]byte(path))
	}
	logger.Info("report exported", slog.String("path", path), slog.String("requested_by", payload.RequestedBy))
	return tracker.End(nil)
}

func (j *ReportExportJob) run(ctx context.Context, format export.Format, filter ledger.DateFilter, logger *slog.Logger) (string, error) {
	report, err := j.Reports.Report(ctx, filter)
	if err != nil {
		return "", err
	}
	if failed := report.Failed(); len(failed) > 0 {
		logger.Warn("exporting incomplete report", slog.Any("failed", failed))
	}
	artifact, err := j.Exports.Render(ctx, format, report)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(j.Dir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(j.Dir, j.id()+"-"+artifact.Filename)
	if err := os.WriteFile(path, artifact.Body, 0o644); err != nil {
		return "", err
	}
	j.metrics().AddArtifact(string(format), len(artifact.Body))
	return path, nil
}

func (j *ReportExportJob) id() string {
	if j.newID != nil {
		return j.newID()
	}
	return uuid.NewString()
}

func (j *ReportExportJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskReportExport))
	}
	return slog.Default().With(slog.String("job", TaskReportExport))
}

func (j *ReportExportJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}
