package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/mhoang/mailflow/internal/model"
)

// SQLiteStore implements the Store interface using a local SQLite database.
type SQLiteStore struct {
	db *sqlx.DB
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath,
// enables WAL mode, and runs any pending schema migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	// Enable foreign keys.
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.runMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// runMigrations checks the current schema version and applies any
// outstanding migrations in order.
func (s *SQLiteStore) runMigrations() error {
	currentVersion := 0

	// Check if schema_version table exists.
	var tableCount int
	err := s.db.Get(
		&tableCount,
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	)
	if err != nil {
		return fmt.Errorf("checking schema_version table: %w", err)
	}

	if tableCount > 0 {
		err = s.db.Get(&currentVersion, "SELECT COALESCE(MAX(version), 0) FROM schema_version")
		if err != nil {
			return fmt.Errorf("reading schema version: %w", err)
		}
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}
		if _, err := s.db.Exec(m.sql); err != nil {
			return fmt.Errorf("applying migration v%d: %w", m.version, err)
		}
	}

	return nil
}

// UpsertMessages inserts or replaces a batch of message metadata rows.
func (s *SQLiteStore) UpsertMessages(ctx context.Context, msgs []model.MessageRecord) error {
	if len(msgs) == 0 {
		return nil
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	const query = `
		INSERT OR REPLACE INTO messages (
			id, account, folder, uid,
			message_id, subject, from_name, from_addr,
			to_addrs, date, flags, attachment_count, fetched_at
		) VALUES (
			?, ?, ?, ?,
			?, ?, ?, ?,
			?, ?, ?, ?, ?
		)`

	stmt, err := tx.PreparexContext(ctx, query)
	if err != nil {
		return fmt.Errorf("preparing upsert statement: %w", err)
	}
	defer stmt.Close()

	for _, m := range msgs {
		id := m.ID
		if id == "" {
			id = fmt.Sprintf("%s/%s/%d", m.Account, m.Folder, m.UID)
		}

		toAddrs, err := json.Marshal(m.ToAddrs)
		if err != nil {
			return fmt.Errorf("marshaling to_addrs for message %s: %w", id, err)
		}
		flags, err := json.Marshal(m.Flags)
		if err != nil {
			return fmt.Errorf("marshaling flags for message %s: %w", id, err)
		}

		_, err = stmt.ExecContext(ctx,
			id, m.Account, m.Folder, m.UID,
			m.MessageID, m.Subject, m.FromName, m.FromAddr,
			string(toAddrs), m.Date.UTC(), string(flags),
			m.AttachmentCount, m.FetchedAt.UTC(),
		)
		if err != nil {
			return fmt.Errorf("upserting message %s: %w", id, err)
		}
	}

	return tx.Commit()
}

// GetMessages retrieves message metadata matching the filter options.
func (s *SQLiteStore) GetMessages(
	ctx context.Context,
	opts MessageFilter,
) ([]model.MessageRecord, error) {
	var conditions []string
	var args []interface{}

	if opts.Account != nil {
		conditions = append(conditions, "account = ?")
		args = append(args, *opts.Account)
	}
	if opts.Folder != nil {
		conditions = append(conditions, "folder = ?")
		args = append(args, *opts.Folder)
	}
	if opts.Query != nil && *opts.Query != "" {
		conditions = append(conditions, "(subject LIKE ? OR from_addr LIKE ?)")
		q := "%" + *opts.Query + "%"
		args = append(args, q, q)
	}

	query := "SELECT * FROM messages"
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}

	// Determine sort column.
	sortBy := "date"
	if opts.SortBy != "" {
		allowedSorts := map[string]bool{
			"date":       true,
			"subject":    true,
			"from_addr":  true,
			"fetched_at": true,
		}
		if allowedSorts[opts.SortBy] {
			sortBy = opts.SortBy
		}
	}

	direction := "ASC"
	if opts.SortDesc {
		direction = "DESC"
	}
	query += fmt.Sprintf(" ORDER BY %s %s", sortBy, direction)

	if opts.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", opts.Limit)
	}
	if opts.Offset > 0 {
		query += fmt.Sprintf(" OFFSET %d", opts.Offset)
	}

	rows, err := s.db.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying messages: %w", err)
	}
	defer rows.Close()

	var msgs []model.MessageRecord
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, m)
	}

	return msgs, rows.Err()
}

// CreateSendJob inserts a new send job record.
// If the job has no ID, a new UUID is generated.
func (s *SQLiteStore) CreateSendJob(ctx context.Context, job model.SendJob) error {
	if job.ID == "" {
		job.ID = uuid.New().String()
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO send_jobs (
			id, name, mode, account, subject, total, sent, failed, dry_run, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		job.ID, job.Name, job.Mode, job.Account, job.Subject,
		job.Total, job.Sent, job.Failed, boolToInt(job.DryRun),
		job.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("creating send job %s: %w", job.ID, err)
	}

	return nil
}

// RecordSend inserts one send outcome row for a job.
func (s *SQLiteStore) RecordSend(ctx context.Context, rec model.SendRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	if rec.SentAt.IsZero() {
		rec.SentAt = time.Now()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sends (id, job_id, recipient, status, error, sent_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.JobID, rec.Recipient, rec.Status, rec.Error, rec.SentAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("recording send for job %s: %w", rec.JobID, err)
	}

	return nil
}

// FinishSendJob stores final counters and the completion time on a job.
func (s *SQLiteStore) FinishSendJob(ctx context.Context, id string, sent, failed int) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE send_jobs SET sent = ?, failed = ?, finished_at = ? WHERE id = ?`,
		sent, failed, time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("finishing send job %s: %w", id, err)
	}
	return nil
}

// GetSendJob retrieves a single send job by its ID.
func (s *SQLiteStore) GetSendJob(ctx context.Context, id string) (*model.SendJob, error) {
	row := s.db.QueryRowxContext(ctx, "SELECT * FROM send_jobs WHERE id = ?", id)

	var (
		job        model.SendJob
		dryRun     int
		createdAt  time.Time
		finishedAt sql.NullTime
	)
	err := row.Scan(
		&job.ID, &job.Name, &job.Mode, &job.Account, &job.Subject,
		&job.Total, &job.Sent, &job.Failed, &dryRun,
		&createdAt, &finishedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("getting send job %s: %w", id, err)
	}

	job.DryRun = dryRun != 0
	job.CreatedAt = createdAt
	if finishedAt.Valid {
		job.FinishedAt = finishedAt.Time
	}

	return &job, nil
}

// GetSends retrieves the send outcomes of a job in send order.
func (s *SQLiteStore) GetSends(ctx context.Context, jobID string) ([]model.SendRecord, error) {
	rows, err := s.db.QueryxContext(ctx,
		"SELECT * FROM sends WHERE job_id = ? ORDER BY sent_at, id", jobID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying sends for job %s: %w", jobID, err)
	}
	defer rows.Close()

	var recs []model.SendRecord
	for rows.Next() {
		var (
			rec    model.SendRecord
			sentAt time.Time
		)
		err := rows.Scan(
			&rec.ID, &rec.JobID, &rec.Recipient, &rec.Status, &rec.Error, &sentAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning send row: %w", err)
		}
		rec.SentAt = sentAt
		recs = append(recs, rec)
	}

	return recs, rows.Err()
}

// scanMessage scans a message row from a sqlx.Rows result set.
func scanMessage(rows *sqlx.Rows) (model.MessageRecord, error) {
	var (
		m         model.MessageRecord
		toAddrs   string
		flags     string
		date      time.Time
		fetchedAt time.Time
	)

	err := rows.Scan(
		&m.ID, &m.Account, &m.Folder, &m.UID,
		&m.MessageID, &m.Subject, &m.FromName, &m.FromAddr,
		&toAddrs, &date, &flags, &m.AttachmentCount, &fetchedAt,
	)
	if err != nil {
		return model.MessageRecord{}, fmt.Errorf("scanning message row: %w", err)
	}

	m.Date = date
	m.FetchedAt = fetchedAt

	if toAddrs != "" {
		if err := json.Unmarshal([]byte(toAddrs), &m.ToAddrs); err != nil {
			return model.MessageRecord{}, fmt.Errorf("unmarshaling to_addrs: %w", err)
		}
	}
	if flags != "" {
		if err := json.Unmarshal([]byte(flags), &m.Flags); err != nil {
			return model.MessageRecord{}, fmt.Errorf("unmarshaling flags: %w", err)
		}
	}

	return m, nil
}

// boolToInt converts a boolean to 0 or 1 for SQLite storage.
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
