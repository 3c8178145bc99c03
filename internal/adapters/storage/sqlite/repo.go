package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hylla/projboard/internal/app"
	"github.com/hylla/projboard/internal/domain"
	_ "modernc.org/sqlite"
)

// driverName defines the registered modernc driver.
const driverName = "sqlite"

// defaultListLimit bounds list queries without an explicit limit.
const defaultListLimit = 50

var (
	_ app.ActivityRecorder = (*Repository)(nil)
	_ app.ActivityReader   = (*Repository)(nil)
)

// Repository is the append-only activity ledger.
type Repository struct {
	db        *sql.DB
	sessionID string
}

// Option configures a repository.
type Option func(*Repository)

// WithSessionID overrides the generated session id.
func WithSessionID(id string) Option {
	return func(r *Repository) {
		if id = strings.TrimSpace(id); id != "" {
			r.sessionID = id
		}
	}
}

// Open opens or creates a ledger file at path.
func Open(path string, opts ...Option) (*Repository, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("sqlite path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create sqlite dir: %w", err)
	}
	db, err := sql.Open(driverName, path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	return newRepository(db, opts)
}

// OpenInMemory opens a private in-memory ledger.
func OpenInMemory(opts ...Option) (*Repository, error) {
	dsn := fmt.Sprintf("file:projboard-%s?mode=memory&cache=shared", uuid.NewString())
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite memory: %w", err)
	}
	return newRepository(db, opts)
}

// newRepository applies options and runs migrations.
func newRepository(db *sql.DB, opts []Option) (*Repository, error) {
	repo := &Repository{db: db, sessionID: uuid.NewString()}
	for _, opt := range opts {
		if opt != nil {
			opt(repo)
		}
	}
	if err := repo.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return repo, nil
}

// Close closes the database handle.
func (r *Repository) Close() error {
	return r.db.Close()
}

// SessionID returns the id stamped on every event recorded by this process.
func (r *Repository) SessionID() string {
	return r.sessionID
}

// migrate creates the ledger schema.
func (r *Repository) migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS change_events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT NOT NULL,
			project_id INTEGER NOT NULL,
			title TEXT NOT NULL DEFAULT '',
			operation TEXT NOT NULL,
			actor TEXT NOT NULL DEFAULT 'unknown',
			from_status TEXT NOT NULL DEFAULT '',
			to_status TEXT NOT NULL,
			occurred_at TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_change_events_project_occurred ON change_events(project_id, occurred_at DESC, id DESC);`,
		`CREATE INDEX IF NOT EXISTS idx_change_events_session ON change_events(session_id);`,
	}
	for _, stmt := range stmts {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate sqlite: %w", err)
		}
	}
	return nil
}

// RecordChange appends one event to the ledger.
func (r *Repository) RecordChange(ctx context.Context, event domain.ChangeEvent) error {
	if event.ProjectID <= 0 {
		return fmt.Errorf("record change: %w", domain.ErrInvalidID)
	}
	sessionID := strings.TrimSpace(event.SessionID)
	if sessionID == "" {
		sessionID = r.sessionID
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO change_events(session_id, project_id, title, operation, actor, from_status, to_status, occurred_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		sessionID,
		event.ProjectID,
		event.Title,
		string(normalizeChangeOperation(string(event.Operation))),
		chooseActor(event.Actor),
		string(event.FromStatus),
		string(event.ToStatus),
		ts(normalizeEventTS(event.OccurredAt)),
	)
	if err != nil {
		return fmt.Errorf("insert change event: %w", err)
	}
	return nil
}

// ListChangeEvents lists the newest events across every session.
func (r *Repository) ListChangeEvents(ctx context.Context, limit int) ([]domain.ChangeEvent, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, session_id, project_id, title, operation, actor, from_status, to_status, occurred_at
		FROM change_events
		ORDER BY occurred_at DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	return scanChangeEvents(rows)
}

// ListProjectChangeEvents lists the newest events of one project.
func (r *Repository) ListProjectChangeEvents(ctx context.Context, projectID int64, limit int) ([]domain.ChangeEvent, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, session_id, project_id, title, operation, actor, from_status, to_status, occurred_at
		FROM change_events
		WHERE project_id = ?
		ORDER BY occurred_at DESC, id DESC
		LIMIT ?
	`, projectID, limit)
	if err != nil {
		return nil, err
	}
	return scanChangeEvents(rows)
}

// scanChangeEvents drains rows into events and closes them.
func scanChangeEvents(rows *sql.Rows) ([]domain.ChangeEvent, error) {
	defer rows.Close()
	out := make([]domain.ChangeEvent, 0)
	for rows.Next() {
		var (
			event      domain.ChangeEvent
			opRaw      string
			fromRaw    string
			toRaw      string
			occurredAt string
		)
		if err := rows.Scan(&event.ID, &event.SessionID, &event.ProjectID, &event.Title, &opRaw, &event.Actor, &fromRaw, &toRaw, &occurredAt); err != nil {
			return nil, err
		}
		event.Operation = normalizeChangeOperation(opRaw)
		event.FromStatus = domain.ProjectStatus(fromRaw)
		event.ToStatus = domain.ProjectStatus(toRaw)
		event.OccurredAt = parseTS(occurredAt)
		out = append(out, event)
	}
	return out, rows.Err()
}

// chooseActor falls back to the unknown actor for blank values.
func chooseActor(actor string) string {
	if actor = strings.TrimSpace(actor); actor != "" {
		return actor
	}
	return string(app.ActorUnknown)
}

// normalizeChangeOperation canonicalizes persisted operation values.
func normalizeChangeOperation(raw string) domain.ChangeOperation {
	switch domain.ChangeOperation(strings.TrimSpace(strings.ToLower(raw))) {
	case domain.ChangeOperationMove:
		return domain.ChangeOperationMove
	default:
		return domain.ChangeOperationCreate
	}
}

// normalizeEventTS ensures event timestamps are always populated and UTC-normalized.
func normalizeEventTS(in time.Time) time.Time {
	if in.IsZero() {
		return time.Now().UTC()
	}
	return in.UTC()
}

// tsLayout keeps every fraction nine digits wide so text order matches time order.
const tsLayout = "2006-01-02T15:04:05.000000000Z07:00"

// ts formats a timestamp for storage.
func ts(t time.Time) string {
	return t.UTC().Format(tsLayout)
}

// parseTS parses a stored timestamp.
func parseTS(v string) time.Time {
	parsed, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		return time.Time{}
	}
	return parsed.UTC()
}
