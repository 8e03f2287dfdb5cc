package database

import (
	"database/sql"
	"fmt"
	"log"
	"net/url"
	"path/filepath"
	"strings"
	"sync"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/mattn/go-sqlite3"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Question)

// Querier is satisfied by both *sql.DB and *sql.Tx so repository helpers can
// run standalone or inside a transaction.
type Querier interface {
	Exec(query string, args ...interface{}) (sql.Result, error)
	Query(query string, args ...interface{}) (*sql.Rows, error)
	QueryRow(query string, args ...interface{}) *sql.Row
}

const (
	busyTimeoutMs = 5000
	writeRetries  = 5
	writeBackoff  = 50 * time.Millisecond
)

// Store is the single SQLite-backed repository for projects, folders,
// photo/video metadata, branches, face clusters and tags. It is constructed
// once at startup and passed by reference to workers and the CLI; writes are
// serialized through an internal mutex so lock contention from background
// workers never surfaces to callers of composite operations.
type Store struct {
	db   *sql.DB
	path string

	writeMu sync.Mutex

	// now is swappable for tests of wall-clock-dependent queries
	now func() time.Time
}

// Open resolves dbPath to an absolute path, opens the database with
// foreign-key enforcement and a busy timeout, and ensures the schema is
// current. It is safe to call on every startup.
func Open(dbPath string) (*Store, error) {
	abs, err := filepath.Abs(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve database path %s: %w", dbPath, err)
	}

	dsn := fmt.Sprintf("file:%s?_fk=1&_busy_timeout=%d", url.PathEscape(abs), busyTimeoutMs)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// enable write-ahead logging for better concurrency with background workers
	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		log.Printf("warning: failed to set WAL mode: %v", err)
	}

	s := &Store{db: db, path: abs, now: time.Now}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ensure schema: %w", err)
	}

	log.Println("database initialized successfully at", abs)
	return s, nil
}

// Path returns the absolute path of the underlying database file.
func (s *Store) Path() string {
	return s.path
}

func (s *Store) Close() error {
	return s.db.Close()
}

// isBusyErr reports whether err is a transient SQLite lock error worth
// retrying.
func isBusyErr(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "database table is locked")
}

// exec serializes a single write statement behind the writer mutex and
// retries with bounded backoff when the database is locked.
func (s *Store) exec(sqlStr string, args ...interface{}) (sql.Result, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	var res sql.Result
	var err error
	for attempt := 0; ; attempt++ {
		res, err = s.db.Exec(sqlStr, args...)
		if err == nil || !isBusyErr(err) || attempt >= writeRetries {
			return res, err
		}
		wait := writeBackoff << uint(attempt)
		log.Printf("database: locked, retrying write in %v (attempt %d/%d)", wait, attempt+1, writeRetries)
		time.Sleep(wait)
	}
}

// withTx runs fn inside a transaction held under the writer mutex. The
// transaction is rolled back when fn fails and the whole unit is retried on
// lock errors.
func (s *Store) withTx(fn func(tx *sql.Tx) error) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	var err error
	for attempt := 0; ; attempt++ {
		err = s.runTx(fn)
		if err == nil || !isBusyErr(err) || attempt >= writeRetries {
			return err
		}
		wait := writeBackoff << uint(attempt)
		log.Printf("database: locked, retrying transaction in %v (attempt %d/%d)", wait, attempt+1, writeRetries)
		time.Sleep(wait)
	}
}

func (s *Store) runTx(fn func(tx *sql.Tx) error) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
