package livesql

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// Builder configures a live data stream before it starts. Configuration is
// collected through chained With* calls, validated once by Build, and then
// turned into a running stream by Start.
//
// Example:
//
//	builder, err := livesql.NewBuilder().
//		WithSource("https://example.com/metrics.csv").
//		WithInterval(30 * time.Second).
//		Build(ctx)
//	if err != nil {
//		return err
//	}
//	data, err := builder.Start(ctx)
//	if err != nil {
//		return err
//	}
//	defer data.Stop()
type Builder struct {
	location  string
	interval  time.Duration
	format    *Format
	table     string
	query     string
	headers   map[string]string
	timeout   time.Duration
	logger    *slog.Logger
	source    Source
	validated bool
}

// NewBuilder creates a builder with no source configured.
func NewBuilder() *Builder {
	return &Builder{
		table:   defaultTableName,
		headers: make(map[string]string),
	}
}

// WithSource sets the source location: an HTTP(S) URL, a local file path, or
// a postgres:// DSN. A leading "@" is accepted and stripped.
// Returns the builder for method chaining.
func (b *Builder) WithSource(location string) *Builder {
	b.location = location
	return b
}

// WithInterval sets the polling cadence. The interval is measured from the
// start of one fetch to the start of the next.
func (b *Builder) WithInterval(interval time.Duration) *Builder {
	b.interval = interval
	return b
}

// WithFormat overrides format detection for sources whose location does not
// carry a recognized extension.
func (b *Builder) WithFormat(format Format) *Builder {
	b.format = &format
	return b
}

// WithTable renames the SQL table the data is exposed under. The default is
// "data". The name is sanitized to a valid SQLite identifier.
func (b *Builder) WithTable(name string) *Builder {
	b.table = name
	return b
}

// WithQuery sets the SQL run against a postgres source on every fetch.
// Required for postgres sources, ignored for the rest.
func (b *Builder) WithQuery(query string) *Builder {
	b.query = query
	return b
}

// WithHTTPHeader adds a header sent on every HTTP fetch.
func (b *Builder) WithHTTPHeader(key, value string) *Builder {
	b.headers[key] = value
	return b
}

// WithTimeout bounds each individual fetch attempt. Zero means no per-fetch
// bound beyond the stream context.
func (b *Builder) WithTimeout(timeout time.Duration) *Builder {
	b.timeout = timeout
	return b
}

// WithLogger sets the logger for poll-cycle warnings. Defaults to
// slog.Default().
func (b *Builder) WithLogger(logger *slog.Logger) *Builder {
	b.logger = logger
	return b
}

// Build validates the configuration and resolves the source. It must be
// called before Start.
func (b *Builder) Build(_ context.Context) (*Builder, error) {
	if b.interval <= 0 {
		return nil, fmt.Errorf("%w: got %v", ErrInvalidInterval, b.interval)
	}
	if err := b.resolve(); err != nil {
		return nil, err
	}
	b.validated = true
	return b, nil
}

// resolve parses the location and applies the builder's overrides to it.
func (b *Builder) resolve() error {
	source, err := ParseSource(b.location)
	if err != nil {
		return err
	}
	if b.format != nil {
		source.Format = *b.format
	}
	if source.Kind == SourcePostgres {
		if b.query == "" {
			return fmt.Errorf("%w: postgres source requires a query", ErrInvalidSource)
		}
		source.Query = b.query
	}
	if len(b.headers) > 0 {
		source.Headers = b.headers
	}
	source.Timeout = b.timeout
	b.source = source
	return nil
}

// Start begins polling and returns the running stream. The first fetch
// happens before Start returns; if it fails the stream still starts, serving
// an empty snapshot and reporting the failure through LastError.
func (b *Builder) Start(ctx context.Context) (*LiveData, error) {
	if !b.validated {
		return nil, errors.New("livesql: must call Build() before Start()")
	}

	table := sanitizeTableName(b.table)
	f, err := newFetcher(ctx, b.source, table)
	if err != nil {
		return nil, err
	}

	ld := newLiveData(b.source, b.interval, table, f, b.logger)
	ld.start(ctx)
	return ld, nil
}

// Open starts a polling stream for a location with default settings. It is
// shorthand for NewBuilder().WithSource(location).WithInterval(interval).
// Build(ctx) followed by Start(ctx).
func Open(ctx context.Context, location string, interval time.Duration) (*LiveData, error) {
	builder, err := NewBuilder().WithSource(location).WithInterval(interval).Build(ctx)
	if err != nil {
		return nil, err
	}
	return builder.Start(ctx)
}

// Load fetches a location exactly once and returns a queryable LiveData
// that never polls. Unlike a polling stream, a failed fetch is returned to
// the caller.
func Load(ctx context.Context, location string) (*LiveData, error) {
	source, err := ParseSource(location)
	if err != nil {
		return nil, err
	}

	f, err := newFetcher(ctx, source, defaultTableName)
	if err != nil {
		return nil, err
	}

	ld := newLiveData(source, 0, defaultTableName, f, nil)
	if err := ld.Refresh(ctx); err != nil {
		_ = f.Close()
		return nil, err
	}
	return ld, nil
}
