package archive

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/arcbet/livefeed/internal/telemetry"

	_ "modernc.org/sqlite"
)

const (
	maxStoreBytes  int64 = 1 << 30 // 1 GiB
	evictBatchSize       = 100
	vacuumInterval       = 50
)

// Store persists raw channel messages in a FIFO SQLite database capped at
// ~1 GiB. Oldest rows are evicted when the budget is exceeded. A nil *Store
// is a valid no-op archive.
type Store struct {
	db           *sql.DB
	mu           sync.Mutex
	cachedSize   int64
	evictCounter int
}

func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create archive dir: %w", err)
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	db.SetMaxOpenConns(1)

	var avMode int
	if err := db.QueryRow(`PRAGMA auto_vacuum`).Scan(&avMode); err != nil {
		db.Close()
		return nil, fmt.Errorf("read auto_vacuum: %w", err)
	}
	if avMode != 2 { // 2 = INCREMENTAL
		telemetry.Plainf("archive: auto_vacuum=%d, switching to INCREMENTAL via full VACUUM", avMode)
		if _, err := db.Exec(`PRAGMA auto_vacuum = INCREMENTAL`); err != nil {
			db.Close()
			return nil, fmt.Errorf("set auto_vacuum: %w", err)
		}
		if _, err := db.Exec(`VACUUM`); err != nil {
			telemetry.Warnf("archive: VACUUM to enable auto_vacuum failed: %v", err)
		}
	}

	for _, stmt := range []string{
		`CREATE TABLE IF NOT EXISTS channel_messages (
			id        INTEGER PRIMARY KEY AUTOINCREMENT,
			topic     TEXT    NOT NULL,
			event     TEXT    NOT NULL,
			received  TEXT    NOT NULL,
			byte_size INTEGER NOT NULL,
			raw       BLOB    NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_cm_received ON channel_messages(received)`,
		`CREATE INDEX IF NOT EXISTS idx_cm_topic    ON channel_messages(topic)`,
	} {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("init archive schema (%s): %w", stmt, err)
		}
	}

	var size int64
	row := db.QueryRow(`SELECT COALESCE(SUM(byte_size), 0) FROM channel_messages`)
	if err := row.Scan(&size); err != nil {
		db.Close()
		return nil, fmt.Errorf("read current archive size: %w", err)
	}

	telemetry.Plainf("archive: opened %s  rows_bytes=%d", path, size)

	return &Store{db: db, cachedSize: size}, nil
}

// Insert stores a raw channel message asynchronously.
func (s *Store) Insert(topic, event string, raw []byte) {
	if s == nil {
		return
	}
	rawLen := int64(len(raw))
	rawCopy := make([]byte, rawLen)
	copy(rawCopy, raw)

	go func() {
		s.mu.Lock()
		defer s.mu.Unlock()

		_, err := s.db.Exec(
			`INSERT INTO channel_messages (topic, event, received, byte_size, raw) VALUES (?, ?, ?, ?, ?)`,
			topic,
			event,
			time.Now().UTC().Format(time.RFC3339Nano),
			rawLen,
			rawCopy,
		)
		if err != nil {
			telemetry.Warnf("archive: insert failed: %v", err)
			return
		}

		s.cachedSize += rawLen
		if s.cachedSize > maxStoreBytes {
			s.evict()
		}
	}()
}

func (s *Store) evict() {
	for s.cachedSize > maxStoreBytes {
		var freed int64
		err := s.db.QueryRow(
			`WITH deleted AS (
				DELETE FROM channel_messages
				WHERE id IN (SELECT id FROM channel_messages ORDER BY id ASC LIMIT ?)
				RETURNING byte_size
			)
			SELECT COALESCE(SUM(byte_size), 0) FROM deleted`,
			evictBatchSize,
		).Scan(&freed)
		if err != nil {
			telemetry.Warnf("archive: eviction query failed: %v", err)
			break
		}
		if freed == 0 {
			telemetry.Warnf("archive: eviction freed 0 bytes, cachedSize=%d", s.cachedSize)
			break
		}
		s.cachedSize -= freed
		s.evictCounter++

		if s.evictCounter%vacuumInterval == 0 {
			if _, err := s.db.Exec(`PRAGMA incremental_vacuum`); err != nil {
				telemetry.Warnf("archive: incremental_vacuum failed: %v", err)
			}
		}
	}
}

// Stats returns the row count and total payload bytes currently stored.
func (s *Store) Stats() (rows int64, bytes int64) {
	if s == nil {
		return 0, 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	row := s.db.QueryRow(`SELECT COUNT(*), COALESCE(SUM(byte_size), 0) FROM channel_messages`)
	if err := row.Scan(&rows, &bytes); err != nil {
		telemetry.Warnf("archive: stats query failed: %v", err)
		return 0, 0
	}
	return rows, bytes
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
