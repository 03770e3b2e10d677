package service

import (
	"context"
	"time"

	apperrors "smsgate/internal/errors"
	"smsgate/internal/metrics"
	"smsgate/internal/models"

	"github.com/sirupsen/logrus"
)

const statusLabelUnknown = "unknown"

// StatusJournal persists delivery status reports
type StatusJournal interface {
	RecordStatusReport(ctx context.Context, report models.StatusReport) error
}

// StatusRecorder accepts delivery status reports from the pull device. It
// never acts on them; FAILED messages are not re-enqueued.
type StatusRecorder struct {
	journal StatusJournal
	logger  *logrus.Logger
}

// NewStatusRecorder accepts a nil journal, in which case reports are only logged
func NewStatusRecorder(journal StatusJournal, logger *logrus.Logger) *StatusRecorder {
	return &StatusRecorder{journal: journal, logger: logger}
}

func (s *StatusRecorder) Record(ctx context.Context, report models.StatusReport) {
	if report.ReceivedAt.IsZero() {
		report.ReceivedAt = time.Now()
	}

	fields := logrus.Fields{
		LogFieldCorrelationID: report.CorrelationID,
		LogFieldStatus:        report.Status,
	}
	// Unknown statuses share one label; the body is unauthenticated
	label := statusLabelUnknown
	if report.Status.IsKnown() {
		label = string(report.Status)
		s.logger.WithFields(fields).Info("Received delivery status report")
	} else {
		s.logger.WithFields(fields).Warn("Received delivery status report with unknown status")
	}
	metrics.IncrementCounter("sms_status_reports_total", map[string]string{"status": label}, "Delivery status reports by status")

	if s.journal == nil {
		return
	}
	if err := s.journal.RecordStatusReport(ctx, report); err != nil {
		apperrors.LogWarn(s.logger, err, "Failed to journal delivery status report", fields)
	}
}
