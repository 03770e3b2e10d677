package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"smsgate/internal/metrics"
	"smsgate/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusRecorder_JournalsReports(t *testing.T) {
	journal := &fakeJournal{}
	rec := NewStatusRecorder(journal, quietLogger())

	rec.Record(context.Background(), models.StatusReport{CorrelationID: "abc", Status: models.DeliveryStatusSent})
	rec.Record(context.Background(), models.StatusReport{CorrelationID: "def", Status: models.DeliveryStatusFailed})

	require.Len(t, journal.reports, 2)
	assert.Equal(t, "abc", journal.reports[0].CorrelationID)
	assert.False(t, journal.reports[0].ReceivedAt.IsZero())
	assert.Equal(t, models.DeliveryStatusFailed, journal.reports[1].Status)
}

func TestStatusRecorder_NilJournal(t *testing.T) {
	rec := NewStatusRecorder(nil, quietLogger())
	assert.NotPanics(t, func() {
		rec.Record(context.Background(), models.StatusReport{CorrelationID: "abc", Status: models.DeliveryStatusQueued})
	})
}

func TestStatusRecorder_UnknownStatusWarns(t *testing.T) {
	logger, buf := bufferedLogger()
	rec := NewStatusRecorder(nil, logger)

	rec.Record(context.Background(), models.StatusReport{CorrelationID: "abc", Status: "LOST"})
	assert.Contains(t, buf.String(), "unknown status")
	assert.Contains(t, buf.String(), `"level":"warning"`)
}

func TestStatusRecorder_JournalErrorIsLogged(t *testing.T) {
	logger, buf := bufferedLogger()
	rec := NewStatusRecorder(&fakeJournal{err: errors.New("disk full")}, logger)

	rec.Record(context.Background(), models.StatusReport{CorrelationID: "abc", Status: models.DeliveryStatusSent})
	assert.Contains(t, buf.String(), "Failed to journal delivery status report")
}

func statusReportCounters() map[string]float64 {
	out := map[string]float64{}
	for _, m := range metrics.GetSnapshot().Counters {
		if m.Name == "sms_status_reports_total" {
			out[m.Labels["status"]] = m.Value
		}
	}
	return out
}

func TestStatusRecorder_UnknownStatusesShareOneLabel(t *testing.T) {
	rec := NewStatusRecorder(nil, quietLogger())
	before := statusReportCounters()

	for i := 0; i < 500; i++ {
		rec.Record(context.Background(), models.StatusReport{CorrelationID: "abc", Status: models.DeliveryStatus(fmt.Sprintf("junk-%d", i))})
	}
	rec.Record(context.Background(), models.StatusReport{CorrelationID: "abc", Status: models.DeliveryStatusSent})

	after := statusReportCounters()
	for label := range after {
		assert.NotContains(t, label, "junk-")
	}
	assert.Equal(t, before[statusLabelUnknown]+500, after[statusLabelUnknown])
	assert.Equal(t, before[string(models.DeliveryStatusSent)]+1, after[string(models.DeliveryStatusSent)])
	assert.LessOrEqual(t, len(after), 4)
}
