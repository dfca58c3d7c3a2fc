package livesql

import "time"

// Snapshot is one complete, immutable copy of the source data together with
// the time it was captured. The poller replaces the current snapshot wholesale
// after every successful fetch; a snapshot is never mutated after creation, so
// readers may hold one across queries without locking.
type Snapshot struct {
	table      string
	header     header
	records    []Record
	columns    []columnInfo
	capturedAt time.Time
}

// newSnapshot builds a snapshot and infers a SQL type for every column.
func newSnapshot(table string, h []string, records []Record) *Snapshot {
	hdr := newHeader(h)
	return &Snapshot{
		table:      sanitizeTableName(table),
		header:     hdr,
		records:    records,
		columns:    inferColumnsInfo(hdr, records),
		capturedAt: time.Now(),
	}
}

// emptySnapshot is the snapshot of a source that exists but has no rows yet.
func emptySnapshot(table string) *Snapshot {
	return newSnapshot(table, nil, nil)
}

// Table returns the SQL table name the snapshot is exposed under.
func (s *Snapshot) Table() string {
	return s.table
}

// Header returns a copy of the column names in source order.
func (s *Snapshot) Header() []string {
	out := make([]string, len(s.header))
	copy(out, s.header)
	return out
}

// Len returns the number of data rows.
func (s *Snapshot) Len() int {
	return len(s.records)
}

// Empty reports whether the snapshot holds no columns and no rows.
func (s *Snapshot) Empty() bool {
	return len(s.header) == 0 && len(s.records) == 0
}

// Rows returns a copy of all data rows. The copy is deep enough that callers
// cannot alter the snapshot through it.
func (s *Snapshot) Rows() [][]string {
	out := make([][]string, len(s.records))
	for i, r := range s.records {
		row := make([]string, len(r))
		copy(row, r)
		out[i] = row
	}
	return out
}

// CapturedAt returns the time the fetch that produced this snapshot started.
func (s *Snapshot) CapturedAt() time.Time {
	return s.capturedAt
}
