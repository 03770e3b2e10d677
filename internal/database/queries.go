package database

const (
	insertStatusReportQuery = `
		INSERT INTO status_reports (correlation_id, status, received_at)
		VALUES (?, ?, ?)
	`

	selectRecentStatusReportsQuery = `
		SELECT correlation_id, status, received_at
		FROM status_reports
		ORDER BY received_at DESC, id DESC
		LIMIT ?
	`

	selectStatusReportsByCorrelationQuery = `
		SELECT correlation_id, status, received_at
		FROM status_reports
		WHERE correlation_id = ?
		ORDER BY received_at ASC, id ASC
	`
)
