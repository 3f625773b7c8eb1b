package callout

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// MySQLStore is the MySQL-backed Store. Table names are qualified with the
// database name when one is configured, matching deployments where the
// connection's default schema differs from the jobs schema.
type MySQLStore struct {
	db     *sql.DB
	dbName string
}

// NewMySQLStore creates a store over db. dbName may be empty.
func NewMySQLStore(db *sql.DB, dbName string) *MySQLStore {
	return &MySQLStore{db: db, dbName: dbName}
}

func (s *MySQLStore) table(name string) string {
	if s.dbName == "" {
		return name
	}
	return s.dbName + "." + name
}

// CreateJob implements Store.
func (s *MySQLStore) CreateJob(ctx context.Context, op Operation, payload []byte, availableAt time.Time) (uint64, error) {
	now := time.Now().UTC().Round(time.Microsecond)
	query := fmt.Sprintf(
		"INSERT INTO %s (operation, status, payload, locked_by, locked_until, available_at, created_at, updated_at) VALUES (?, ?, ?, NULL, NULL, ?, ?, ?)",
		s.table("callout_jobs"),
	)
	res, err := s.db.ExecContext(ctx, query, op, JobPending, payload, availableAt, now, now)
	if err != nil {
		return 0, fmt.Errorf("failed to insert job: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get lastInsertId: %w", err)
	}
	return uint64(id), nil
}

// ClaimJob implements Store. The row is selected FOR UPDATE and flipped to
// IN_PROGRESS within one transaction so concurrent workers never claim the
// same job.
func (s *MySQLStore) ClaimJob(ctx context.Context, workerID string, lockUntil time.Time) (*JobRecord, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("starting claim tx: %w", err)
	}

	query := `
		SELECT
		  id,
		  operation,
		  status,
		  payload,
		  locked_by,
		  locked_until,
		  available_at,
		  created_at,
		  updated_at
		FROM ` + s.table("callout_jobs") + `
		WHERE
		  status = 'PENDING'
		  AND (locked_until IS NULL OR locked_until < NOW())
		  AND available_at <= NOW()
		ORDER BY available_at
		LIMIT 1
		FOR UPDATE
`
	row := tx.QueryRowContext(ctx, query)
	var rec JobRecord
	var operationStr, statusStr string
	err = row.Scan(
		&rec.ID,
		&operationStr,
		&statusStr,
		&rec.Payload,
		&rec.LockedBy,
		&rec.LockedUntil,
		&rec.AvailableAt,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			_ = tx.Commit()
			return nil, nil
		}
		_ = tx.Rollback()
		return nil, fmt.Errorf("fetching pending job: %w", err)
	}
	rec.Operation = Operation(operationStr)
	rec.Status = JobStatus(statusStr)

	stmt := fmt.Sprintf(`UPDATE %s
		SET
		  status = ?,
		  locked_by = ?,
		  locked_until = ?,
		  updated_at = ?
		WHERE id = ?`, s.table("callout_jobs"))
	_, err = tx.ExecContext(ctx, stmt,
		JobInProgress,
		workerID,
		lockUntil,
		time.Now().UTC().Round(time.Microsecond),
		rec.ID,
	)
	if err != nil {
		_ = tx.Rollback()
		return nil, fmt.Errorf("assigning job %d to %s: %w", rec.ID, workerID, err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing claim of job %d: %w", rec.ID, err)
	}

	rec.Status = JobInProgress
	return &rec, nil
}

// FinishJob implements Store.
func (s *MySQLStore) FinishJob(ctx context.Context, jobID uint64, status JobStatus, detail string) error {
	var detailQ any
	if detail != "" {
		detailQ = detail
	}
	query := fmt.Sprintf(`UPDATE %s
		SET
		  status = ?,
		  detail = ?,
		  updated_at = ?,
		  locked_by = NULL,
		  locked_until = NULL
		WHERE id = ?`, s.table("callout_jobs"))
	_, err := s.db.ExecContext(ctx, query,
		status,
		detailQ,
		time.Now().UTC().Round(time.Microsecond),
		jobID,
	)
	if err != nil {
		return fmt.Errorf("finishing job %d: %w", jobID, err)
	}
	return nil
}

// AppendLog implements Store. Entries are append-only; there is no update
// path for callout_logs.
func (s *MySQLStore) AppendLog(ctx context.Context, entry LogEntry) error {
	query := fmt.Sprintf(
		"INSERT INTO %s (id, endpoint, method, path, request_body, response_body, status_code, error_class, detail, elapsed_ms, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
		s.table("callout_logs"),
	)
	_, err := s.db.ExecContext(ctx, query,
		entry.ID,
		entry.Endpoint,
		entry.Method,
		entry.Path,
		entry.RequestBody,
		entry.ResponseBody,
		entry.Status,
		entry.Class,
		entry.Detail,
		entry.Elapsed.Milliseconds(),
		entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("appending callout log: %w", err)
	}
	return nil
}
