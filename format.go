package livesql

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"
)

// Format identifies how a fetched payload is encoded.
type Format int

const (
	// FormatCSV is comma separated values with a header row.
	FormatCSV Format = iota
	// FormatTSV is tab separated values with a header row.
	FormatTSV
	// FormatLTSV is labeled tab separated values, one "label:value" pair per field.
	FormatLTSV
	// FormatParquet is the Apache Parquet columnar format.
	FormatParquet
	// FormatXLSX is an Excel workbook; the first sheet is used.
	FormatXLSX
)

// String returns the canonical lowercase name of the format.
func (f Format) String() string {
	switch f {
	case FormatCSV:
		return "csv"
	case FormatTSV:
		return "tsv"
	case FormatLTSV:
		return "ltsv"
	case FormatParquet:
		return "parquet"
	case FormatXLSX:
		return "xlsx"
	default:
		return "unknown"
	}
}

// Ext returns the file extension for the format, including the dot.
func (f Format) Ext() string {
	switch f {
	case FormatCSV:
		return extCSV
	case FormatTSV:
		return extTSV
	case FormatLTSV:
		return extLTSV
	case FormatParquet:
		return extParquet
	case FormatXLSX:
		return extXLSX
	default:
		return ""
	}
}

// ParseFormat converts a user-supplied format name into a Format.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "csv":
		return FormatCSV, nil
	case "tsv":
		return FormatTSV, nil
	case "ltsv":
		return FormatLTSV, nil
	case "parquet":
		return FormatParquet, nil
	case "xlsx":
		return FormatXLSX, nil
	default:
		return FormatCSV, fmt.Errorf("%w: %q", ErrUnsupportedFormat, s)
	}
}

// Compression identifies the compression wrapping a payload, if any.
type Compression int

const (
	// CompressionNone means the payload is not compressed.
	CompressionNone Compression = iota
	// CompressionGZ is gzip.
	CompressionGZ
	// CompressionBZ2 is bzip2. Reading only; the standard library has no bzip2 writer.
	CompressionBZ2
	// CompressionXZ is xz.
	CompressionXZ
	// CompressionZSTD is zstandard.
	CompressionZSTD
)

// String returns the canonical name of the compression type.
func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionGZ:
		return "gz"
	case CompressionBZ2:
		return "bz2"
	case CompressionXZ:
		return "xz"
	case CompressionZSTD:
		return "zstd"
	default:
		return "unknown"
	}
}

// Ext returns the file extension for the compression type, including the dot.
// CompressionNone has no extension.
func (c Compression) Ext() string {
	switch c {
	case CompressionGZ:
		return extGZ
	case CompressionBZ2:
		return extBZ2
	case CompressionXZ:
		return extXZ
	case CompressionZSTD:
		return extZSTD
	default:
		return ""
	}
}

// File extensions recognized when detecting a source's format.
const (
	extCSV     = ".csv"
	extTSV     = ".tsv"
	extLTSV    = ".ltsv"
	extParquet = ".parquet"
	extXLSX    = ".xlsx"
	extGZ      = ".gz"
	extBZ2     = ".bz2"
	extXZ      = ".xz"
	extZSTD    = ".zst"
)

// detectCompression strips a recognized compression extension from path and
// reports which compression it indicated.
func detectCompression(path string) (string, Compression) {
	switch {
	case strings.HasSuffix(path, extGZ):
		return strings.TrimSuffix(path, extGZ), CompressionGZ
	case strings.HasSuffix(path, extBZ2):
		return strings.TrimSuffix(path, extBZ2), CompressionBZ2
	case strings.HasSuffix(path, extXZ):
		return strings.TrimSuffix(path, extXZ), CompressionXZ
	case strings.HasSuffix(path, extZSTD):
		return strings.TrimSuffix(path, extZSTD), CompressionZSTD
	default:
		return path, CompressionNone
	}
}

// detectFormat determines format and compression from a path or URL path.
// "data.csv.gz" is gzip-compressed CSV; a path without a recognized format
// extension returns an ErrUnsupportedFormat error.
func detectFormat(path string) (Format, Compression, error) {
	base, compression := detectCompression(path)
	switch filepath.Ext(base) {
	case extCSV:
		return FormatCSV, compression, nil
	case extTSV:
		return FormatTSV, compression, nil
	case extLTSV:
		return FormatLTSV, compression, nil
	case extParquet:
		return FormatParquet, compression, nil
	case extXLSX:
		return FormatXLSX, compression, nil
	default:
		return FormatCSV, compression, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
}

// Magic byte prefixes for the supported compression formats.
var (
	magicGZ   = []byte{0x1f, 0x8b}
	magicBZ2  = []byte{'B', 'Z', 'h'}
	magicXZ   = []byte{0xfd, '7', 'z', 'X', 'Z', 0x00}
	magicZSTD = []byte{0x28, 0xb5, 0x2f, 0xfd}
)

// sniffCompression inspects the first bytes of a payload. Sources behind
// plain URLs sometimes serve compressed bodies without a telling extension.
func sniffCompression(data []byte) Compression {
	switch {
	case bytes.HasPrefix(data, magicGZ):
		return CompressionGZ
	case bytes.HasPrefix(data, magicBZ2):
		return CompressionBZ2
	case bytes.HasPrefix(data, magicXZ):
		return CompressionXZ
	case bytes.HasPrefix(data, magicZSTD):
		return CompressionZSTD
	default:
		return CompressionNone
	}
}
