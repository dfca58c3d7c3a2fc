package livesql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	_ "modernc.org/sqlite" // registers the "sqlite" driver
)

// Result is an ordered query result. Row values are rendered as strings the
// same way snapshot fields are stored.
type Result struct {
	// Columns are the result column names in SELECT order.
	Columns []string
	// Rows are the result rows in engine order.
	Rows [][]string
}

// Len returns the number of result rows.
func (r *Result) Len() int {
	return len(r.Rows)
}

// Maps returns the rows as column-name keyed maps, one per row.
func (r *Result) Maps() []map[string]string {
	out := make([]map[string]string, len(r.Rows))
	for i, row := range r.Rows {
		m := make(map[string]string, len(r.Columns))
		for j, col := range r.Columns {
			if j < len(row) {
				m[col] = row[j]
			}
		}
		out[i] = m
	}
	return out
}

// snapshotDB is an in-memory SQLite database loaded with one snapshot.
// refs counts active queries plus one for the engine cache while the
// snapshot is current; the database closes when the count drains.
type snapshotDB struct {
	db   *sql.DB
	refs int
}

// engine evaluates SQL against snapshots. It caches the database for the
// most recently queried snapshot so repeated queries between polls do not
// reload the data. Queries capture their snapshot reference on entry, so a
// poll replacing the snapshot mid-query never affects a running query; the
// superseded database stays open until its last query releases it.
type engine struct {
	mu      sync.Mutex
	current *Snapshot
	cached  *snapshotDB
}

func newEngine() *engine {
	return &engine{}
}

// acquire returns a loaded database for snap, building one if the cache
// holds a different snapshot. The caller must release the returned handle.
func (e *engine) acquire(ctx context.Context, snap *Snapshot) (*snapshotDB, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.current == snap && e.cached != nil {
		e.cached.refs++
		return e.cached, nil
	}

	sdb, err := loadSnapshotDB(ctx, snap)
	if err != nil {
		return nil, err
	}

	old := e.cached
	e.current = snap
	e.cached = sdb
	sdb.refs = 2 // the cache slot and the calling query

	if old != nil {
		e.dropLocked(old)
	}
	return sdb, nil
}

// release returns a handle obtained from acquire.
func (e *engine) release(sdb *snapshotDB) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.dropLocked(sdb)
}

// close releases the cache's own reference. Outstanding queries keep their
// database alive until they finish.
func (e *engine) close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.cached != nil {
		e.dropLocked(e.cached)
		e.cached = nil
		e.current = nil
	}
}

func (e *engine) dropLocked(sdb *snapshotDB) {
	sdb.refs--
	if sdb.refs == 0 {
		_ = sdb.db.Close()
	}
}

// query runs one statement against the given snapshot.
func (e *engine) query(ctx context.Context, snap *Snapshot, text string) (*Result, error) {
	// A snapshot with no columns cannot back a table; any query against it
	// is an empty result rather than an error.
	if snap == nil || len(snap.header) == 0 {
		return &Result{}, nil
	}

	sdb, err := e.acquire(ctx, snap)
	if err != nil {
		return nil, err
	}
	defer e.release(sdb)

	rows, err := sdb.db.QueryContext(ctx, text)
	if err != nil {
		return nil, classifyQueryError(text, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	columns, err := rows.Columns()
	if err != nil {
		return nil, classifyQueryError(text, err)
	}

	result := &Result{Columns: columns}
	for rows.Next() {
		values := make([]any, len(columns))
		scanTargets := make([]any, len(columns))
		for i := range values {
			scanTargets[i] = &values[i]
		}
		if err := rows.Scan(scanTargets...); err != nil {
			return nil, classifyQueryError(text, err)
		}

		row := make([]string, len(columns))
		for i, v := range values {
			row[i] = formatSQLValue(v)
		}
		result.Rows = append(result.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, classifyQueryError(text, err)
	}
	return result, nil
}

// loadSnapshotDB creates an in-memory database holding the snapshot as its
// single table.
func loadSnapshotDB(ctx context.Context, snap *Snapshot) (*snapshotDB, error) {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to open in-memory database: %w", err)
	}
	// every new connection to ":memory:" is a distinct database, so the
	// pool must stay at a single connection
	db.SetMaxOpenConns(1)

	if err := createSnapshotTable(ctx, db, snap); err != nil {
		return nil, errors.Join(err, db.Close())
	}
	if err := insertSnapshotRows(ctx, db, snap); err != nil {
		return nil, errors.Join(err, db.Close())
	}
	return &snapshotDB{db: db}, nil
}

// createSnapshotTable creates the snapshot's table with inferred column types.
func createSnapshotTable(ctx context.Context, db *sql.DB, snap *Snapshot) error {
	columns := make([]string, 0, len(snap.columns))
	for _, col := range snap.columns {
		columns = append(columns, fmt.Sprintf(`%s %s`, quoteIdent(col.Name), col.Type.string()))
	}

	query := fmt.Sprintf(
		`CREATE TABLE %s (%s)`,
		quoteIdent(snap.table),
		strings.Join(columns, ", "),
	)
	if _, err := db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to create table %s: %w", snap.table, err)
	}
	return nil
}

// insertSnapshotRows loads all snapshot records through one prepared
// statement inside a transaction.
func insertSnapshotRows(ctx context.Context, db *sql.DB, snap *Snapshot) error {
	if len(snap.records) == 0 {
		return nil
	}

	placeholders := make([]string, len(snap.header))
	for i := range placeholders {
		placeholders[i] = "?"
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(
		`INSERT INTO %s VALUES (%s)`,
		quoteIdent(snap.table),
		strings.Join(placeholders, ", "),
	))
	if err != nil {
		return errors.Join(err, tx.Rollback())
	}

	for _, record := range snap.records {
		values := make([]any, len(snap.header))
		for i := range snap.header {
			if i < len(record) {
				values[i] = record[i]
			} else {
				values[i] = ""
			}
		}
		if _, err := stmt.ExecContext(ctx, values...); err != nil {
			return errors.Join(fmt.Errorf("failed to insert record: %w", err), stmt.Close(), tx.Rollback())
		}
	}

	if err := stmt.Close(); err != nil {
		return errors.Join(err, tx.Rollback())
	}
	return tx.Commit()
}

// quoteIdent quotes a SQL identifier, escaping embedded quotes.
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// formatSQLValue renders one scanned SQLite value as a result field.
func formatSQLValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case []byte:
		return string(val)
	case int64:
		return fmt.Sprintf("%d", val)
	case float64:
		return strconv.FormatFloat(val, 'g', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return fmt.Sprintf("%v", val)
	}
}
