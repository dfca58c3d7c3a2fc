package livesql

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// defaultTableName is the relation name queries address unless the builder
// renames it.
const defaultTableName = "data"

// SourceKind identifies how a source location is reached.
type SourceKind int

const (
	// SourceFile is a path on the local filesystem.
	SourceFile SourceKind = iota
	// SourceHTTP is an http:// or https:// URL.
	SourceHTTP
	// SourcePostgres is a postgres:// or postgresql:// DSN paired with a query.
	SourcePostgres
)

// String returns a human readable name for the source kind.
func (k SourceKind) String() string {
	switch k {
	case SourceFile:
		return "file"
	case SourceHTTP:
		return "http"
	case SourcePostgres:
		return "postgres"
	default:
		return "unknown"
	}
}

// Source describes where and how to fetch data. A Source is resolved once by
// ParseSource or the builder and never changes while a stream is running.
type Source struct {
	// Location is the URL, file path, or DSN with any "@" prefix stripped.
	Location string
	// Kind is derived from the location.
	Kind SourceKind
	// Format is how fetched payloads decode. Ignored for postgres sources.
	Format Format
	// Compression wraps the payload, detected from the location extension.
	Compression Compression
	// Query is the SQL to run against a postgres source.
	Query string
	// Headers are extra HTTP headers sent on every fetch.
	Headers map[string]string
	// Timeout bounds a single fetch attempt. Zero means no per-fetch bound.
	Timeout time.Duration
}

// ParseSource resolves a location string into a Source. Locations may carry
// the "@" prefix some callers use to mark live sources; it is stripped.
// HTTP URLs without a recognized extension default to CSV since API endpoints
// rarely advertise one. File paths must have a recognized extension.
func ParseSource(location string) (Source, error) {
	loc := strings.TrimSpace(location)
	loc = strings.TrimPrefix(loc, "@")
	if loc == "" {
		return Source{}, fmt.Errorf("%w: empty location", ErrInvalidSource)
	}

	switch {
	case strings.HasPrefix(loc, "http://") || strings.HasPrefix(loc, "https://"):
		u, err := url.Parse(loc)
		if err != nil {
			return Source{}, fmt.Errorf("%w: %v", ErrInvalidSource, err)
		}
		format, compression, err := detectFormat(u.Path)
		if err != nil {
			// No telling extension; assume CSV and let the parser decide.
			format, compression = FormatCSV, CompressionNone
		}
		return Source{Location: loc, Kind: SourceHTTP, Format: format, Compression: compression}, nil

	case strings.HasPrefix(loc, "postgres://") || strings.HasPrefix(loc, "postgresql://"):
		return Source{Location: loc, Kind: SourcePostgres}, nil

	default:
		format, compression, err := detectFormat(loc)
		if err != nil {
			return Source{}, err
		}
		return Source{Location: loc, Kind: SourceFile, Format: format, Compression: compression}, nil
	}
}
