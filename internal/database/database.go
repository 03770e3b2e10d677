package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"time"

	"smsgate/internal/migrations"
	"smsgate/internal/models"
	"smsgate/internal/security"

	_ "github.com/mattn/go-sqlite3"
)

// Database journals delivery status reports to SQLite
type Database struct {
	db *sql.DB
}

func New(dbPath string) (*Database, error) {
	if err := security.ValidateFilePath(dbPath); err != nil {
		return nil, fmt.Errorf("invalid database path: %w", err)
	}

	file, err := os.OpenFile(dbPath, os.O_RDWR|os.O_CREATE, 0600)
	if err != nil {
		return nil, fmt.Errorf("failed to create database file: %w", err)
	}
	if err := file.Close(); err != nil {
		return nil, fmt.Errorf("failed to close database file: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, closeOnError(db, fmt.Errorf("failed to ping database: %w", err))
	}

	schema, err := migrations.GetInitialSchema()
	if err != nil {
		return nil, closeOnError(db, fmt.Errorf("failed to read schema: %w", err))
	}

	if _, err := db.Exec(schema); err != nil {
		return nil, closeOnError(db, fmt.Errorf("failed to initialize schema: %w", err))
	}

	return &Database{db: db}, nil
}

func closeOnError(db *sql.DB, err error) error {
	if closeErr := db.Close(); closeErr != nil {
		return fmt.Errorf("%w (close error: %v)", err, closeErr)
	}
	return err
}

func (d *Database) Close() error {
	return d.db.Close()
}

// RecordStatusReport appends report to the journal
func (d *Database) RecordStatusReport(ctx context.Context, report models.StatusReport) error {
	receivedAt := report.ReceivedAt
	if receivedAt.IsZero() {
		receivedAt = time.Now()
	}

	return retryableDBOperation(ctx, func() error {
		_, err := d.db.ExecContext(ctx, insertStatusReportQuery,
			report.CorrelationID,
			string(report.Status),
			receivedAt.UTC(),
		)
		return err
	}, "record status report")
}

// RecentStatusReports returns up to limit reports, newest first
func (d *Database) RecentStatusReports(ctx context.Context, limit int) ([]models.StatusReport, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := d.db.QueryContext(ctx, selectRecentStatusReportsQuery, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query status reports: %w", err)
	}
	defer rows.Close()

	var reports []models.StatusReport
	for rows.Next() {
		var report models.StatusReport
		var status string
		if err := rows.Scan(&report.CorrelationID, &status, &report.ReceivedAt); err != nil {
			return nil, fmt.Errorf("failed to scan status report: %w", err)
		}
		report.Status = models.DeliveryStatus(status)
		reports = append(reports, report)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate status reports: %w", err)
	}
	return reports, nil
}

// StatusReportsFor returns every report recorded for correlationID, oldest first
func (d *Database) StatusReportsFor(ctx context.Context, correlationID string) ([]models.StatusReport, error) {
	rows, err := d.db.QueryContext(ctx, selectStatusReportsByCorrelationQuery, correlationID)
	if err != nil {
		return nil, fmt.Errorf("failed to query status reports: %w", err)
	}
	defer rows.Close()

	var reports []models.StatusReport
	for rows.Next() {
		var report models.StatusReport
		var status string
		if err := rows.Scan(&report.CorrelationID, &status, &report.ReceivedAt); err != nil {
			return nil, fmt.Errorf("failed to scan status report: %w", err)
		}
		report.Status = models.DeliveryStatus(status)
		reports = append(reports, report)
	}
	return reports, rows.Err()
}
