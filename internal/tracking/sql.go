package tracking

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"

	defaultTable = "cv_tracking"
	statusOK     = "success"
)

var tableNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// SQLConfig configures the database sink.
type SQLConfig struct {
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
	Table  string `mapstructure:"table"`
}

// SQLSink keeps one row per session. Uploads and generations both upsert it,
// so the order they arrive in does not matter.
type SQLSink struct {
	db     *sql.DB
	driver string
	table  string
	mu     sync.Mutex
}

func NewSQLSink(ctx context.Context, cfg SQLConfig) (*SQLSink, error) {
	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	if driver == "" {
		driver = DriverSQLite
	}
	if driver != DriverPostgres && driver != DriverSQLite {
		return nil, fmt.Errorf("unsupported sql driver %q", cfg.Driver)
	}

	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, errors.New("sql dsn is required")
	}

	table := strings.TrimSpace(cfg.Table)
	if table == "" {
		table = defaultTable
	}
	if !tableNamePattern.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}

	db, err := sql.Open(driver, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	if driver == DriverSQLite {
		db.SetMaxOpenConns(1)
	}

	s := &SQLSink{db: db, driver: driver, table: table}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

func (s *SQLSink) Name() string { return "sql" }

func (s *SQLSink) migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS `+s.table+` (
		session_id          TEXT PRIMARY KEY,
		created_at          TEXT NOT NULL,
		updated_at          TEXT NOT NULL,
		filename            TEXT NOT NULL DEFAULT '',
		cv_text             TEXT NOT NULL DEFAULT '',
		name                TEXT NOT NULL DEFAULT '',
		email               TEXT NOT NULL DEFAULT '',
		phone               TEXT NOT NULL DEFAULT '',
		location            TEXT NOT NULL DEFAULT '',
		skills              TEXT NOT NULL DEFAULT '',
		experience_years    TEXT NOT NULL DEFAULT '',
		education           TEXT NOT NULL DEFAULT '',
		word_count          INTEGER NOT NULL DEFAULT 0,
		company_name        TEXT NOT NULL DEFAULT '',
		generated_cv        TEXT NOT NULL DEFAULT '',
		cover_letter        TEXT NOT NULL DEFAULT '',
		job_keywords        TEXT NOT NULL DEFAULT '',
		original_word_count INTEGER NOT NULL DEFAULT 0,
		match_before        DOUBLE PRECISION NOT NULL DEFAULT 0,
		match_after         DOUBLE PRECISION NOT NULL DEFAULT 0,
		status              TEXT NOT NULL DEFAULT ''
	)`)
	if err != nil {
		return fmt.Errorf("create table %s: %w", s.table, err)
	}
	return nil
}

func (s *SQLSink) Write(ctx context.Context, e Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ts := e.Timestamp.UTC().Format(time.RFC3339)

	switch {
	case e.Upload != nil:
		d := e.Upload.Details
		return s.upsert(ctx, e.SessionID, ts, []column{
			{"filename", e.Upload.Filename},
			{"cv_text", e.Upload.Text},
			{"name", d.Name},
			{"email", d.Email},
			{"phone", d.Phone},
			{"location", d.Location},
			{"skills", d.Skills},
			{"experience_years", d.ExperienceYears},
			{"education", d.Education},
			{"word_count", e.Upload.WordCount},
			{"status", statusOK},
		})
	case e.Generation != nil:
		g := e.Generation
		return s.upsert(ctx, e.SessionID, ts, []column{
			{"company_name", g.Company},
			{"generated_cv", g.GeneratedCV},
			{"cover_letter", g.CoverLetter},
			{"job_keywords", strings.Join(g.JobKeywords, ", ")},
			{"original_word_count", g.OriginalWordCount},
			{"match_before", g.MatchBefore},
			{"match_after", g.MatchAfter},
			{"status", statusOK},
		})
	default:
		return fmt.Errorf("event %s has no payload", e.Action)
	}
}

type column struct {
	name  string
	value any
}

func (s *SQLSink) upsert(ctx context.Context, sessionID, ts string, cols []column) error {
	names := []string{"session_id", "created_at", "updated_at"}
	args := []any{sessionID, ts, ts}
	updates := []string{"updated_at = excluded.updated_at"}

	for _, col := range cols {
		names = append(names, col.name)
		args = append(args, col.value)
		updates = append(updates, col.name+" = excluded."+col.name)
	}

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) ON CONFLICT (session_id) DO UPDATE SET %s",
		s.table,
		strings.Join(names, ", "),
		s.placeholders(len(names)),
		strings.Join(updates, ", "),
	)

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert session %s: %w", sessionID, err)
	}
	return nil
}

func (s *SQLSink) placeholders(n int) string {
	parts := make([]string, n)
	for i := range parts {
		if s.driver == DriverPostgres {
			parts[i] = "$" + strconv.Itoa(i+1)
		} else {
			parts[i] = "?"
		}
	}
	return strings.Join(parts, ", ")
}

func (s *SQLSink) Close() error {
	return s.db.Close()
}
