package livesql

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors exposed by the package. Callers classify failures with
// errors.Is rather than matching message text.
var (
	// errDuplicateColumnName is returned when a payload contains duplicate column names
	errDuplicateColumnName = errors.New("duplicate column name")

	// ErrInvalidInterval indicates a zero or negative polling interval
	ErrInvalidInterval = errors.New("livesql: polling interval must be positive")

	// ErrInvalidSource indicates a source location that cannot be used
	ErrInvalidSource = errors.New("livesql: invalid source")

	// ErrFetchFailed indicates the source could not be retrieved
	ErrFetchFailed = errors.New("livesql: fetch failed")

	// ErrParseFailed indicates a retrieved payload could not be decoded
	ErrParseFailed = errors.New("livesql: parse failed")

	// ErrQuerySyntax indicates a query that SQLite could not compile
	ErrQuerySyntax = errors.New("livesql: query syntax error")

	// ErrQueryExecution indicates a query that compiled but failed to run
	ErrQueryExecution = errors.New("livesql: query execution error")

	// ErrStopped indicates an operation on a stream that has been stopped
	ErrStopped = errors.New("livesql: stream stopped")

	// ErrEmptyData indicates that the data source contains no records
	ErrEmptyData = errors.New("livesql: empty data source")

	// ErrUnsupportedFormat indicates an unsupported payload format
	ErrUnsupportedFormat = errors.New("livesql: unsupported format")
)

// classifyQueryError maps a SQLite error onto the package's query sentinels.
// modernc.org/sqlite reports compile-time problems with "syntax error" or
// "incomplete input" in the message; everything else that surfaces from a
// well-formed statement is an execution failure.
func classifyQueryError(query string, err error) error {
	if err == nil {
		return nil
	}
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "syntax error") || strings.Contains(msg, "incomplete input") || strings.Contains(msg, "unrecognized token") {
		return fmt.Errorf("%w: %q: %v", ErrQuerySyntax, query, err)
	}
	return fmt.Errorf("%w: %q: %v", ErrQueryExecution, query, err)
}
