package db

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib" // driver: pgx
	_ "modernc.org/sqlite"             // driver: sqlite
)

type Driver string

const (
	DriverSQLite   Driver = "sqlite"
	DriverPostgres Driver = "postgres"
)

// Open opens a DB and ensures schema exists.
func Open(ctx context.Context, driver Driver, dsn string) (*sql.DB, error) {
	var drvName string
	switch driver {
	case DriverSQLite:
		drvName = "sqlite" // modernc driver
		if dsn == "" {
			dsn = "file:quizd.db?mode=rwc&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
		}
	case DriverPostgres:
		drvName = "pgx" // pgx stdlib driver
		if dsn == "" {
			dsn = "postgres://localhost:5432/quizd?sslmode=disable"
		}
	default:
		return nil, fmt.Errorf("unsupported driver: %s", driver)
	}

	db, err := sql.Open(drvName, dsn)
	if err != nil {
		return nil, err
	}
	if driver == DriverSQLite {
		// one writer; also keeps ":memory:" databases on a single connection
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	if err := ensureSchema(ctx, db, driver); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// Rebind rewrites '?' placeholders into the driver's native form.
func Rebind(driver Driver, query string) string {
	if driver != DriverPostgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}

func ensureSchema(ctx context.Context, db *sql.DB, driver Driver) error {
	var stmts []string
	switch driver {
	case DriverSQLite:
		stmts = schemaSQLite
	case DriverPostgres:
		stmts = schemaPostgres
	}
	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("schema: %w", err)
		}
	}
	return nil
}

var schemaSQLite = []string{
	`PRAGMA foreign_keys=ON;`,
	`CREATE TABLE IF NOT EXISTS categories (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  name TEXT NOT NULL UNIQUE
);`,
	`CREATE TABLE IF NOT EXISTS questions (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  prompt TEXT NOT NULL,
  qtype TEXT NOT NULL,
  difficulty TEXT NOT NULL,
  category_id INTEGER REFERENCES categories(id) ON DELETE SET NULL,
  text_answer TEXT,
  numeric_answer REAL,
  image_required INTEGER NOT NULL DEFAULT 0,
  created_at INTEGER NOT NULL
);`,
	`CREATE TABLE IF NOT EXISTS choices (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  question_id INTEGER NOT NULL REFERENCES questions(id) ON DELETE CASCADE,
  position INTEGER NOT NULL,
  text TEXT NOT NULL,
  is_correct INTEGER NOT NULL DEFAULT 0
);`,
	`CREATE TABLE IF NOT EXISTS players (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  player_uuid TEXT NOT NULL UNIQUE,
  created_at INTEGER NOT NULL
);`,
	`CREATE TABLE IF NOT EXISTS attempts (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  player_id INTEGER NOT NULL REFERENCES players(id) ON DELETE CASCADE,
  status TEXT NOT NULL,
  score INTEGER,
  total INTEGER NOT NULL,
  created_at INTEGER NOT NULL,
  submitted_at INTEGER
);`,
	`CREATE TABLE IF NOT EXISTS attempt_questions (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  attempt_id INTEGER NOT NULL REFERENCES attempts(id) ON DELETE CASCADE,
  question_id INTEGER NOT NULL REFERENCES questions(id) ON DELETE RESTRICT,
  position INTEGER NOT NULL,
  prompt TEXT NOT NULL,
  qtype TEXT NOT NULL,
  choices_json TEXT NOT NULL DEFAULT '[]',
  text_answer TEXT,
  numeric_answer REAL,
  image_required INTEGER NOT NULL DEFAULT 0,
  selected_json TEXT NOT NULL DEFAULT '[]',
  text_response TEXT,
  numeric_response REAL,
  image TEXT NOT NULL DEFAULT '',
  is_correct INTEGER,
  correct_json TEXT,
  needs_review INTEGER NOT NULL DEFAULT 0
);`,
	`CREATE TABLE IF NOT EXISTS event_log (
  seq INTEGER PRIMARY KEY AUTOINCREMENT,
  site_id TEXT NOT NULL DEFAULT 'local',
  typ TEXT NOT NULL,
  key TEXT NOT NULL,
  data TEXT NOT NULL,
  created_at INTEGER NOT NULL
);`,
	`CREATE INDEX IF NOT EXISTS idx_choices_question ON choices(question_id, position);`,
	`CREATE INDEX IF NOT EXISTS idx_attempts_player ON attempts(player_id, created_at DESC);`,
	`CREATE INDEX IF NOT EXISTS idx_aq_attempt ON attempt_questions(attempt_id, position);`,
	`CREATE INDEX IF NOT EXISTS idx_aq_question ON attempt_questions(question_id);`,
}

var schemaPostgres = []string{
	`CREATE TABLE IF NOT EXISTS categories (
  id BIGSERIAL PRIMARY KEY,
  name TEXT NOT NULL UNIQUE
);`,
	`CREATE TABLE IF NOT EXISTS questions (
  id BIGSERIAL PRIMARY KEY,
  prompt TEXT NOT NULL,
  qtype TEXT NOT NULL,
  difficulty TEXT NOT NULL,
  category_id BIGINT REFERENCES categories(id) ON DELETE SET NULL,
  text_answer TEXT,
  numeric_answer DOUBLE PRECISION,
  image_required INTEGER NOT NULL DEFAULT 0,
  created_at BIGINT NOT NULL
);`,
	`CREATE TABLE IF NOT EXISTS choices (
  id BIGSERIAL PRIMARY KEY,
  question_id BIGINT NOT NULL REFERENCES questions(id) ON DELETE CASCADE,
  position INTEGER NOT NULL,
  text TEXT NOT NULL,
  is_correct INTEGER NOT NULL DEFAULT 0
);`,
	`CREATE TABLE IF NOT EXISTS players (
  id BIGSERIAL PRIMARY KEY,
  player_uuid TEXT NOT NULL UNIQUE,
  created_at BIGINT NOT NULL
);`,
	`CREATE TABLE IF NOT EXISTS attempts (
  id BIGSERIAL PRIMARY KEY,
  player_id BIGINT NOT NULL REFERENCES players(id) ON DELETE CASCADE,
  status TEXT NOT NULL,
  score INTEGER,
  total INTEGER NOT NULL,
  created_at BIGINT NOT NULL,
  submitted_at BIGINT
);`,
	`CREATE TABLE IF NOT EXISTS attempt_questions (
  id BIGSERIAL PRIMARY KEY,
  attempt_id BIGINT NOT NULL REFERENCES attempts(id) ON DELETE CASCADE,
  question_id BIGINT NOT NULL REFERENCES questions(id) ON DELETE RESTRICT,
  position INTEGER NOT NULL,
  prompt TEXT NOT NULL,
  qtype TEXT NOT NULL,
  choices_json TEXT NOT NULL DEFAULT '[]',
  text_answer TEXT,
  numeric_answer DOUBLE PRECISION,
  image_required INTEGER NOT NULL DEFAULT 0,
  selected_json TEXT NOT NULL DEFAULT '[]',
  text_response TEXT,
  numeric_response DOUBLE PRECISION,
  image TEXT NOT NULL DEFAULT '',
  is_correct INTEGER,
  correct_json TEXT,
  needs_review INTEGER NOT NULL DEFAULT 0
);`,
	`CREATE TABLE IF NOT EXISTS event_log (
  seq BIGSERIAL PRIMARY KEY,
  site_id TEXT NOT NULL DEFAULT 'local',
  typ TEXT NOT NULL,
  key TEXT NOT NULL,
  data TEXT NOT NULL,
  created_at BIGINT NOT NULL
);`,
	`CREATE INDEX IF NOT EXISTS idx_choices_question ON choices(question_id, position);`,
	`CREATE INDEX IF NOT EXISTS idx_attempts_player ON attempts(player_id, created_at DESC);`,
	`CREATE INDEX IF NOT EXISTS idx_aq_attempt ON attempt_questions(attempt_id, position);`,
	`CREATE INDEX IF NOT EXISTS idx_aq_question ON attempt_questions(question_id);`,
}
