package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskReportExport renders a report into EXPORT_STORAGE_DIR.
	TaskReportExport = "report:export"
	// TaskReportWarm pre-computes the current month report into the cache.
	TaskReportWarm = "report:warm"
	// WarmSchedule is the cron spec of TaskReportWarm.
	WarmSchedule = "@every 15m"
)

// ReportExportPayload describes one asynchronous export.
type ReportExportPayload struct {
	From        string `json:"from,omitempty"`
	To          string `json:"to,omitempty"`
	Format      string `json:"format"`
	RequestedBy string `json:"requested_by,omitempty"`
}

// ReportWarmPayload optionally pins the warmed month as YYYY-MM.
type ReportWarmPayload struct {
	Month string `json:"month,omitempty"`
}

// NewReportExportTask constructs an export task.
func NewReportExportTask(payload ReportExportPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskReportExport, data, asynq.MaxRetry(3)), nil
}

// NewReportWarmTask constructs a warm-up task.
func NewReportWarmTask(payload ReportWarmPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskReportWarm, data, asynq.MaxRetry(0)), nil
}
