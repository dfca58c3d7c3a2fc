package livesql

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
)

// SaveOptions controls how a snapshot is written to disk. The zero value
// writes plain CSV; use the With* methods to change it.
type SaveOptions struct {
	// Format is the output format. Only the delimited formats are writable.
	Format Format
	// Compression wraps the output file. Bzip2 has no writer and is rejected.
	Compression Compression
}

// NewSaveOptions returns the default options: uncompressed CSV.
func NewSaveOptions() SaveOptions {
	return SaveOptions{Format: FormatCSV, Compression: CompressionNone}
}

// WithFormat sets the output format.
func (o SaveOptions) WithFormat(format Format) SaveOptions {
	o.Format = format
	return o
}

// WithCompression sets the output compression.
func (o SaveOptions) WithCompression(compression Compression) SaveOptions {
	o.Compression = compression
	return o
}

// delimiter returns the field separator for the configured format.
func (o SaveOptions) delimiter() (rune, error) {
	switch o.Format {
	case FormatCSV:
		return csvDelimiter, nil
	case FormatTSV:
		return tsvDelimiter, nil
	default:
		return 0, fmt.Errorf("%w: cannot write %s", ErrUnsupportedFormat, o.Format)
	}
}

// Save writes the current snapshot to path, overwriting any existing file.
// The snapshot written is the one current when Save is called; a poll
// completing mid-write has no effect on the output. Saving a stream that has
// never fetched data returns ErrEmptyData.
func (ld *LiveData) Save(path string, options ...SaveOptions) error {
	opts := NewSaveOptions()
	if len(options) > 0 {
		opts = options[0]
	}

	snap := ld.current.Load()
	if snap.Empty() {
		return ErrEmptyData
	}
	return writeSnapshot(snap, path, opts)
}

// writeSnapshot writes one snapshot as a delimited file with optional
// compression.
func writeSnapshot(snap *Snapshot, path string, opts SaveOptions) error {
	delimiter, err := opts.delimiter()
	if err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}

	writer, closeCompression, err := newCompressionWriter(f, opts.Compression)
	if err != nil {
		return errors.Join(err, f.Close())
	}

	csvWriter := csv.NewWriter(writer)
	csvWriter.Comma = delimiter

	writeErr := func() error {
		if len(snap.header) > 0 {
			if err := csvWriter.Write(snap.header); err != nil {
				return err
			}
		}
		for _, record := range snap.records {
			if err := csvWriter.Write(record); err != nil {
				return err
			}
		}
		csvWriter.Flush()
		return csvWriter.Error()
	}()

	return errors.Join(writeErr, closeCompression(), f.Close())
}
