package sqlite

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/yegors/narsim-bridge/pkg/logger"
)

// timestampLayout is fixed width so stored text sorts chronologically
const timestampLayout = "2006-01-02T15:04:05.000000000Z07:00"

// LifecycleStorage handles storage of lifecycle records
type LifecycleStorage struct {
	db     *sql.DB
	logger *logger.Logger
}

// NewLifecycleStorage creates a new SQLite lifecycle journal
func NewLifecycleStorage(db *sql.DB, logger *logger.Logger) (*LifecycleStorage, error) {
	storage := &LifecycleStorage{
		db:     db,
		logger: logger.Named("sqlite-journal"),
	}

	if err := storage.initDB(); err != nil {
		return nil, fmt.Errorf("failed to initialize lifecycle storage: %w", err)
	}

	return storage, nil
}

// initDB initializes the database tables
func (s *LifecycleStorage) initDB() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS lifecycle_events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT NOT NULL,
			callsign TEXT NOT NULL,
			intent TEXT NOT NULL,
			proxy_id INTEGER,
			outcome TEXT NOT NULL,
			error TEXT,
			latitude REAL NOT NULL DEFAULT 0,
			longitude REAL NOT NULL DEFAULT 0,
			altitude REAL NOT NULL DEFAULT 0,
			timestamp TEXT NOT NULL,
			created_at TEXT NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create lifecycle_events table: %w", err)
	}

	indexes := []string{
		`CREATE INDEX IF NOT EXISTS idx_lifecycle_callsign ON lifecycle_events(callsign)`,
		`CREATE INDEX IF NOT EXISTS idx_lifecycle_timestamp ON lifecycle_events(timestamp)`,
		`CREATE INDEX IF NOT EXISTS idx_lifecycle_session ON lifecycle_events(session_id)`,
	}

	for _, indexSQL := range indexes {
		if _, err = s.db.Exec(indexSQL); err != nil {
			return fmt.Errorf("failed to create lifecycle index: %w", err)
		}
	}

	s.logger.Debug("Lifecycle journal schema ready")
	return nil
}

// StoreEvent stores a lifecycle record
func (s *LifecycleStorage) StoreEvent(record *LifecycleRecord) (int64, error) {
	createdAt := record.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	var proxyID sql.NullInt64
	if record.ProxyID != nil {
		proxyID = sql.NullInt64{Int64: *record.ProxyID, Valid: true}
	}
	var errText sql.NullString
	if record.Error != "" {
		errText = sql.NullString{String: record.Error, Valid: true}
	}

	result, err := s.db.Exec(
		`INSERT INTO lifecycle_events
		(session_id, callsign, intent, proxy_id, outcome, error, latitude, longitude, altitude, timestamp, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		record.SessionID,
		record.Callsign,
		record.Intent,
		proxyID,
		record.Outcome,
		errText,
		record.Latitude,
		record.Longitude,
		record.Altitude,
		record.Timestamp.UTC().Format(timestampLayout),
		createdAt.UTC().Format(timestampLayout),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert lifecycle event: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get last insert ID: %w", err)
	}

	return id, nil
}

const selectColumns = `SELECT id, session_id, callsign, intent, proxy_id, outcome, error, latitude, longitude, altitude, timestamp, created_at
		FROM lifecycle_events`

// GetEventsByCallsign returns the most recent events for one flight, newest first
func (s *LifecycleStorage) GetEventsByCallsign(callsign string, limit int) ([]*LifecycleRecord, error) {
	rows, err := s.db.Query(
		selectColumns+`
		WHERE callsign = ?
		ORDER BY timestamp DESC, id DESC
		LIMIT ?`,
		callsign, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query lifecycle events by callsign: %w", err)
	}
	defer rows.Close()

	return s.scanRows(rows)
}

// GetEventsByTimeRange returns events within a time range, newest first
func (s *LifecycleStorage) GetEventsByTimeRange(startTime, endTime time.Time) ([]*LifecycleRecord, error) {
	rows, err := s.db.Query(
		selectColumns+`
		WHERE timestamp BETWEEN ? AND ?
		ORDER BY timestamp DESC, id DESC`,
		startTime.UTC().Format(timestampLayout), endTime.UTC().Format(timestampLayout),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query lifecycle events by time range: %w", err)
	}
	defer rows.Close()

	return s.scanRows(rows)
}

// GetRecentEvents returns recent events across all flights
func (s *LifecycleStorage) GetRecentEvents(limit int) ([]*LifecycleRecord, error) {
	rows, err := s.db.Query(
		selectColumns+`
		ORDER BY timestamp DESC, id DESC
		LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent lifecycle events: %w", err)
	}
	defer rows.Close()

	return s.scanRows(rows)
}

// CountByOutcome returns per intent/outcome totals for one session
func (s *LifecycleStorage) CountByOutcome(sessionID string) ([]OutcomeCount, error) {
	rows, err := s.db.Query(
		`SELECT intent, outcome, COUNT(*)
		FROM lifecycle_events
		WHERE session_id = ?
		GROUP BY intent, outcome
		ORDER BY intent, outcome`,
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to count lifecycle events: %w", err)
	}
	defer rows.Close()

	var counts []OutcomeCount
	for rows.Next() {
		var c OutcomeCount
		if err := rows.Scan(&c.Intent, &c.Outcome, &c.Count); err != nil {
			return nil, fmt.Errorf("failed to scan lifecycle count: %w", err)
		}
		counts = append(counts, c)
	}
	return counts, rows.Err()
}

// scanRows scans database rows into LifecycleRecord structs
func (s *LifecycleStorage) scanRows(rows *sql.Rows) ([]*LifecycleRecord, error) {
	var records []*LifecycleRecord
	for rows.Next() {
		var record LifecycleRecord
		var timestamp, createdAt string
		var proxyID sql.NullInt64
		var errText sql.NullString

		if err := rows.Scan(
			&record.ID,
			&record.SessionID,
			&record.Callsign,
			&record.Intent,
			&proxyID,
			&record.Outcome,
			&errText,
			&record.Latitude,
			&record.Longitude,
			&record.Altitude,
			&timestamp,
			&createdAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan lifecycle event: %w", err)
		}

		var err error
		record.Timestamp, err = time.Parse(timestampLayout, timestamp)
		if err != nil {
			return nil, fmt.Errorf("failed to parse timestamp: %w", err)
		}
		record.CreatedAt, err = time.Parse(timestampLayout, createdAt)
		if err != nil {
			return nil, fmt.Errorf("failed to parse created_at: %w", err)
		}

		if proxyID.Valid {
			id := proxyID.Int64
			record.ProxyID = &id
		}
		if errText.Valid {
			record.Error = errText.String
		}

		records = append(records, &record)
	}

	return records, rows.Err()
}
