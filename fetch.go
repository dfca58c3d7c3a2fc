package livesql

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// maxPayloadSize caps how much of a response body a single fetch will read.
const maxPayloadSize = 256 << 20 // 256MB

// Connection pooling limits so long-lived pollers do not exhaust sockets.
const (
	defaultMaxIdleConns        = 100
	defaultMaxIdleConnsPerHost = 10
	defaultMaxConnsPerHost     = 10
	defaultIdleConnTimeout     = 60 * time.Second
)

// fetcher retrieves one complete snapshot of a source. One fetcher is owned
// by one stream and is only called from its polling goroutine, so
// implementations need no internal locking.
type fetcher interface {
	Fetch(ctx context.Context) (*Snapshot, error)
	Close() error
}

// newFetcher builds the fetcher for a source. Postgres sources dial their
// pool here so a bad DSN fails at start rather than on the first poll.
func newFetcher(ctx context.Context, source Source, table string) (fetcher, error) {
	switch source.Kind {
	case SourceHTTP:
		return newHTTPFetcher(source, table), nil
	case SourceFile:
		return &fileFetcher{source: source, table: table}, nil
	case SourcePostgres:
		return newPostgresFetcher(ctx, source, table)
	default:
		return nil, fmt.Errorf("%w: unknown source kind %v", ErrInvalidSource, source.Kind)
	}
}

// httpFetcher fetches a payload over HTTP and decodes it.
type httpFetcher struct {
	source Source
	table  string
	client *http.Client
}

func newHTTPFetcher(source Source, table string) *httpFetcher {
	return &httpFetcher{
		source: source,
		table:  table,
		client: &http.Client{
			// no global timeout; the per-fetch context carries the bound
			Transport: &http.Transport{
				MaxIdleConns:        defaultMaxIdleConns,
				MaxIdleConnsPerHost: defaultMaxIdleConnsPerHost,
				MaxConnsPerHost:     defaultMaxConnsPerHost,
				IdleConnTimeout:     defaultIdleConnTimeout,
			},
		},
	}
}

// Fetch performs one GET against the source URL and parses the body.
func (f *httpFetcher) Fetch(ctx context.Context) (*Snapshot, error) {
	if f.source.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.source.Timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.source.Location, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}
	for k, v := range f.source.Headers {
		req.Header.Set(k, v)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrFetchFailed, f.source.Location, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: %s: unexpected status %s", ErrFetchFailed, f.source.Location, resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPayloadSize))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrFetchFailed, f.source.Location, err)
	}

	hdr, records, err := parsePayload(body, f.source.Format, f.source.Compression)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrParseFailed, f.source.Location, err)
	}
	return newSnapshot(f.table, hdr, records), nil
}

// Close releases idle connections held by the client.
func (f *httpFetcher) Close() error {
	f.client.CloseIdleConnections()
	return nil
}

// fileFetcher re-reads a local file on every fetch.
type fileFetcher struct {
	source Source
	table  string
}

func (f *fileFetcher) Fetch(ctx context.Context) (*Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}

	data, err := os.ReadFile(f.source.Location)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}

	hdr, records, err := parsePayload(data, f.source.Format, f.source.Compression)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrParseFailed, f.source.Location, err)
	}
	return newSnapshot(f.table, hdr, records), nil
}

func (f *fileFetcher) Close() error {
	return nil
}

// postgresFetcher runs a fixed query against a connection pool on every fetch.
type postgresFetcher struct {
	source Source
	table  string
	pool   *pgxpool.Pool
}

func newPostgresFetcher(ctx context.Context, source Source, table string) (*postgresFetcher, error) {
	poolCfg, err := pgxpool.ParseConfig(source.Location)
	if err != nil {
		return nil, fmt.Errorf("%w: parse connection string: %v", ErrInvalidSource, err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("%w: create pool: %v", ErrInvalidSource, err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%w: ping: %v", ErrInvalidSource, err)
	}

	return &postgresFetcher{source: source, table: table, pool: pool}, nil
}

func (f *postgresFetcher) Fetch(ctx context.Context) (*Snapshot, error) {
	if f.source.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.source.Timeout)
		defer cancel()
	}

	rows, err := f.pool.Query(ctx, f.source.Query)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	hdr := make([]string, len(fields))
	for i, fd := range fields {
		hdr[i] = fd.Name
	}
	if err := validateColumnNames(hdr); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParseFailed, err)
	}

	var records []Record
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrFetchFailed, err)
		}
		rec := make(Record, len(values))
		for i, v := range values {
			rec[i] = formatPostgresValue(v)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}

	return newSnapshot(f.table, hdr, records), nil
}

func (f *postgresFetcher) Close() error {
	f.pool.Close()
	return nil
}

// formatPostgresValue renders one pgx row value as a snapshot field.
func formatPostgresValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case []byte:
		return string(val)
	case bool:
		return strconv.FormatBool(val)
	case int16:
		return strconv.FormatInt(int64(val), 10)
	case int32:
		return strconv.FormatInt(int64(val), 10)
	case int64:
		return strconv.FormatInt(val, 10)
	case float32:
		return strconv.FormatFloat(float64(val), 'g', -1, 32)
	case float64:
		return strconv.FormatFloat(val, 'g', -1, 64)
	case time.Time:
		return val.Format(time.RFC3339)
	default:
		return fmt.Sprintf("%v", val)
	}
}
