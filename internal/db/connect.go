package db

import (
	"context"
	"database/sql"
	"fmt"

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
			dsn = "file:coursegrades.db?cache=shared&mode=rwc&_pragma=busy_timeout(5000)"
		}
	case DriverPostgres:
		drvName = "pgx" // pgx stdlib driver
		if dsn == "" {
			dsn = "postgres://localhost:5432/coursegrades?sslmode=disable"
		}
	default:
		return nil, fmt.Errorf("unsupported driver: %s", driver)
	}

	db, err := sql.Open(drvName, dsn)
	if err != nil {
		return nil, err
	}
	if driver == DriverSQLite {
		// modernc sqlite dislikes concurrent writers; keep the pool small.
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}

	if err := ensureSchema(ctx, db, driver); err != nil {
		return nil, err
	}
	return db, nil
}

func ensureSchema(ctx context.Context, db *sql.DB, driver Driver) error {
	var schema string
	switch driver {
	case DriverSQLite:
		schema = schemaSQLite
	case DriverPostgres:
		schema = schemaPostgres
	}
	_, err := db.ExecContext(ctx, schema)
	return err
}

// Grade snapshots are append-only: each computation inserts a new row and
// readers take the newest by created_at. Concurrent computations for the
// same (user, subsection) may both insert; duplicates are harmless.
const schemaSQLite = `
PRAGMA foreign_keys=ON;

CREATE TABLE IF NOT EXISTS users (
  id TEXT PRIMARY KEY,
  username TEXT NOT NULL UNIQUE,
  password_hash TEXT NOT NULL,
  role TEXT NOT NULL DEFAULT 'student'
);

CREATE TABLE IF NOT EXISTS subsection_grades (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  course_id TEXT NOT NULL,
  usage_key TEXT NOT NULL,
  earned_all REAL NOT NULL,
  possible_all REAL NOT NULL,
  earned_graded REAL NOT NULL,
  possible_graded REAL NOT NULL,
  block_records_json TEXT NOT NULL,
  created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_subsection_grades_user_key
  ON subsection_grades (user_id, usage_key, created_at);

CREATE TABLE IF NOT EXISTS course_grades (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  course_id TEXT NOT NULL,
  percent REAL NOT NULL,
  letter_grade TEXT NOT NULL DEFAULT '',
  created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_course_grades_user_course
  ON course_grades (user_id, course_id, created_at);

-- Read models fed by the external submissions and attempt-store services.
CREATE TABLE IF NOT EXISTS submission_scores (
  user_id TEXT NOT NULL,
  course_id TEXT NOT NULL,
  usage_key TEXT NOT NULL,
  weighted_earned REAL NOT NULL,
  weighted_possible REAL NOT NULL,
  updated_at INTEGER NOT NULL,
  PRIMARY KEY (user_id, usage_key)
);

CREATE TABLE IF NOT EXISTS attempt_scores (
  user_id TEXT NOT NULL,
  course_id TEXT NOT NULL,
  usage_key TEXT NOT NULL,
  correct REAL,
  total REAL,
  updated_at INTEGER NOT NULL,
  PRIMARY KEY (user_id, usage_key)
);

CREATE TABLE IF NOT EXISTS grade_events (
  offset_id INTEGER PRIMARY KEY AUTOINCREMENT, -- BIGSERIAL in Postgres
  typ TEXT NOT NULL,                        -- e.g., CourseGradeComputed
  key TEXT NOT NULL,                        -- natural key: userID|courseID
  data TEXT NOT NULL,                       -- JSON payload
  created_at INTEGER NOT NULL
);
`

const schemaPostgres = `
CREATE TABLE IF NOT EXISTS users (
  id TEXT PRIMARY KEY,
  username TEXT NOT NULL UNIQUE,
  password_hash TEXT NOT NULL,
  role TEXT NOT NULL DEFAULT 'student'
);

CREATE TABLE IF NOT EXISTS subsection_grades (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  course_id TEXT NOT NULL,
  usage_key TEXT NOT NULL,
  earned_all DOUBLE PRECISION NOT NULL,
  possible_all DOUBLE PRECISION NOT NULL,
  earned_graded DOUBLE PRECISION NOT NULL,
  possible_graded DOUBLE PRECISION NOT NULL,
  block_records_json TEXT NOT NULL,
  created_at BIGINT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_subsection_grades_user_key
  ON subsection_grades (user_id, usage_key, created_at);

CREATE TABLE IF NOT EXISTS course_grades (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  course_id TEXT NOT NULL,
  percent DOUBLE PRECISION NOT NULL,
  letter_grade TEXT NOT NULL DEFAULT '',
  created_at BIGINT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_course_grades_user_course
  ON course_grades (user_id, course_id, created_at);

CREATE TABLE IF NOT EXISTS submission_scores (
  user_id TEXT NOT NULL,
  course_id TEXT NOT NULL,
  usage_key TEXT NOT NULL,
  weighted_earned DOUBLE PRECISION NOT NULL,
  weighted_possible DOUBLE PRECISION NOT NULL,
  updated_at BIGINT NOT NULL,
  PRIMARY KEY (user_id, usage_key)
);

CREATE TABLE IF NOT EXISTS attempt_scores (
  user_id TEXT NOT NULL,
  course_id TEXT NOT NULL,
  usage_key TEXT NOT NULL,
  correct DOUBLE PRECISION,
  total DOUBLE PRECISION,
  updated_at BIGINT NOT NULL,
  PRIMARY KEY (user_id, usage_key)
);

CREATE TABLE IF NOT EXISTS grade_events (
  offset_id BIGSERIAL PRIMARY KEY,
  typ TEXT NOT NULL,
  key TEXT NOT NULL,
  data TEXT NOT NULL,
  created_at BIGINT NOT NULL
);
`
