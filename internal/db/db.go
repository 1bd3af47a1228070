package db

import (
	"database/sql"
	"database/sql/driver"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sync"

	"modernc.org/sqlite"
)

// DB wraps a sql.DB holding the table-of-contents schema.
type DB struct {
	*sql.DB
	path string
}

func init() {
	sqlite.MustRegisterDeterministicScalarFunction("regexp", 2, sqlRegexp)
}

// Open creates or opens a SQLite database at the given path.
func Open(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	sqlDB, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if err := sqlDB.Ping(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	d := &DB{DB: sqlDB, path: path}
	if err := d.migrate(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return d, nil
}

// OpenMemory creates an in-memory SQLite database (useful for testing).
// A single connection is kept so every query sees the same database.
func OpenMemory() (*DB, error) {
	sqlDB, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("opening in-memory database: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)

	d := &DB{DB: sqlDB, path: ":memory:"}
	if err := d.migrate(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return d, nil
}

// Path returns the file the database was opened from.
func (d *DB) Path() string { return d.path }

// migrate runs all schema statements. Every statement is idempotent.
func (d *DB) migrate() error {
	for _, stmt := range schema {
		if _, err := d.Exec(stmt); err != nil {
			return fmt.Errorf("%w\nstatement: %s", err, stmt)
		}
	}
	return nil
}

// schema holds the TOC tables. An absent content hash is stored as ''
// so that the unique index treats two absent hashes as equal.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS features (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		repo TEXT NOT NULL,
		program TEXT NOT NULL,
		bucket TEXT NOT NULL DEFAULT '',
		path TEXT NOT NULL,
		matched_glob TEXT NOT NULL DEFAULT '',
		notes TEXT NOT NULL DEFAULT '',
		source_artifact TEXT NOT NULL DEFAULT '',
		hash TEXT NOT NULL DEFAULT '',
		lang TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS features_meta_uniq ON features(repo, path, hash)`,
	`CREATE INDEX IF NOT EXISTS features_bucket ON features(bucket)`,
	`CREATE INDEX IF NOT EXISTS features_repo_program ON features(repo, program)`,
	`CREATE VIRTUAL TABLE IF NOT EXISTS features_fts USING fts5(
		terms, bucket, notes,
		feature_id UNINDEXED,
		tokenize='porter unicode61'
	)`,
}

var regexpCache sync.Map // pattern -> *regexp.Regexp

// sqlRegexp implements "X REGEXP Y" as a case-insensitive match of
// pattern Y against X. SQLite passes the pattern first.
func sqlRegexp(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
	pattern, ok := args[0].(string)
	if !ok {
		return int64(0), nil
	}
	var subject string
	switch v := args[1].(type) {
	case string:
		subject = v
	case []byte:
		subject = string(v)
	case nil:
		return int64(0), nil
	default:
		subject = fmt.Sprint(v)
	}

	var re *regexp.Regexp
	if cached, ok := regexpCache.Load(pattern); ok {
		re = cached.(*regexp.Regexp)
	} else {
		compiled, err := regexp.Compile("(?i)" + pattern)
		if err != nil {
			return nil, fmt.Errorf("regexp %q: %w", pattern, err)
		}
		regexpCache.Store(pattern, compiled)
		re = compiled
	}
	if re.MatchString(subject) {
		return int64(1), nil
	}
	return int64(0), nil
}
