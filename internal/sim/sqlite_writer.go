package sim

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"

	// SQLite driver registration.
	_ "github.com/mattn/go-sqlite3"

	"github.com/AdiPat/ai-simulator/internal/lifecycle"
)

const sqliteBatchSize = 64

// SQLiteWriter buffers lifecycle records and persists them to a local
// SQLite database in batches. Flush writes any buffered records; Close
// flushes and releases the database.
type SQLiteWriter struct {
	db    *sql.DB
	table string

	mu  sync.Mutex
	buf []lifecycle.Record
}

// NewSQLiteWriter opens (or creates) the database at path and ensures
// the records table exists.
func NewSQLiteWriter(path string) (*SQLiteWriter, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	w := &SQLiteWriter{db: db, table: lifecycle.RecordTableName}

	ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	run_id TEXT NOT NULL,
	name TEXT NOT NULL,
	event TEXT NOT NULL,
	level TEXT,
	message TEXT,
	data TEXT,
	ts TIMESTAMP NOT NULL
)`, w.table)
	if _, err := db.Exec(ddl); err != nil {
		db.Close()
		return nil, fmt.Errorf("cannot create records table: %w", err)
	}
	return w, nil
}

// Write buffers a single record, flushing when the batch is full.
func (w *SQLiteWriter) Write(rec lifecycle.Record) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.buf = append(w.buf, rec)
	if len(w.buf) >= sqliteBatchSize {
		return w.flushLocked()
	}
	return nil
}

// WriteBatch buffers multiple records, flushing when the batch is full.
func (w *SQLiteWriter) WriteBatch(recs []lifecycle.Record) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.buf = append(w.buf, recs...)
	if len(w.buf) >= sqliteBatchSize {
		return w.flushLocked()
	}
	return nil
}

// Flush writes all buffered records inside one transaction.
func (w *SQLiteWriter) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.flushLocked()
}

func (w *SQLiteWriter) flushLocked() error {
	if len(w.buf) == 0 {
		return nil
	}

	tx, err := w.db.Begin()
	if err != nil {
		return err
	}
	stmt, err := tx.Prepare(fmt.Sprintf("INSERT INTO %s VALUES (?, ?, ?, ?, ?, ?, ?)", w.table))
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()

	for _, r := range w.buf {
		data := "{}"
		if len(r.Data) > 0 {
			b, err := json.Marshal(r.Data)
			if err != nil {
				tx.Rollback()
				return err
			}
			data = string(b)
		}
		if _, err := stmt.Exec(r.RunID, r.Name, string(r.Event), r.Level, r.Message, data, r.Timestamp); err != nil {
			tx.Rollback()
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	w.buf = w.buf[:0]
	return nil
}

// Close flushes buffered records and closes the database.
func (w *SQLiteWriter) Close() error {
	if err := w.Flush(); err != nil {
		w.db.Close()
		return err
	}
	return w.db.Close()
}
