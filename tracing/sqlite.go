package tracing

import (
	"database/sql"
	"fmt"
	"os"
	"sync"

	// Need to use SQLite connections.
	_ "github.com/mattn/go-sqlite3"

	"github.com/rs/xid"
	"github.com/tebeka/atexit"
)

// SQLiteWriter buffers records and writes them to a SQLite database in
// batches.
type SQLiteWriter struct {
	*sql.DB

	mu        sync.Mutex
	statement *sql.Stmt
	fileName  string
	buffered  []Record
	batchSize int
}

// NewSQLiteWriter creates the database file path + ".sqlite3". An empty path
// picks a unique name. The writer flushes itself when the program exits
// through atexit.
func NewSQLiteWriter(path string) (*SQLiteWriter, error) {
	if path == "" {
		path = "nicsim_trace_" + xid.New().String()
	}

	w := &SQLiteWriter{
		fileName:  path + ".sqlite3",
		batchSize: 10000,
	}

	if err := w.init(); err != nil {
		return nil, err
	}

	atexit.Register(func() {
		if err := w.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "trace %s: %v\n", w.fileName, err)
		}
	})

	return w, nil
}

// FileName returns the path of the database file.
func (w *SQLiteWriter) FileName() string {
	return w.fileName
}

// SetBatchSize sets how many records are buffered before they are written.
func (w *SQLiteWriter) SetBatchSize(n int) {
	w.batchSize = n
}

func (w *SQLiteWriter) init() error {
	if _, err := os.Stat(w.fileName); err == nil {
		return fmt.Errorf("file %s already exists", w.fileName)
	}

	db, err := sql.Open("sqlite3", w.fileName)
	if err != nil {
		return err
	}

	w.DB = db

	if err := w.createTable(); err != nil {
		return err
	}

	w.statement, err = w.Prepare(
		`INSERT INTO trace VALUES (?, ?, ?, ?, ?, ?, ?)`)

	return err
}

func (w *SQLiteWriter) createTable() error {
	stmts := []string{`
		create table trace
		(
			msg_id    varchar(200) not null,
			time_ps   integer      not null,
			port      varchar(200) not null,
			direction varchar(8)   not null,
			kind      varchar(100) not null,
			addr      integer      default 0,
			len       integer      default 0
		);`,
		`create index trace_time_index on trace (time_ps);`,
		`create index trace_port_index on trace (port);`,
		`create index trace_kind_index on trace (kind);`,
		`create index trace_msg_id_index on trace (msg_id);`,
	}

	for _, s := range stmts {
		if _, err := w.Exec(s); err != nil {
			return err
		}
	}

	return nil
}

// Write buffers a record.
func (w *SQLiteWriter) Write(r Record) {
	w.mu.Lock()
	w.buffered = append(w.buffered, r)
	full := len(w.buffered) >= w.batchSize
	w.mu.Unlock()

	if full {
		if err := w.Flush(); err != nil {
			panic(err)
		}
	}
}

// Flush writes all the buffered records to the database.
func (w *SQLiteWriter) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if len(w.buffered) == 0 {
		return nil
	}

	tx, err := w.Begin()
	if err != nil {
		return err
	}

	stmt := tx.Stmt(w.statement)
	for _, r := range w.buffered {
		_, err := stmt.Exec(
			r.ID, r.TimePs, r.Port, string(r.Direction), r.Kind, r.Addr, r.Len)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("inserting %s: %w", r.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	w.buffered = nil

	return nil
}

// Close flushes the buffer and closes the database. Closing twice is a
// no-op.
func (w *SQLiteWriter) Close() error {
	if w.DB == nil {
		return nil
	}

	if err := w.Flush(); err != nil {
		return err
	}

	err := w.DB.Close()
	w.DB = nil

	return err
}
