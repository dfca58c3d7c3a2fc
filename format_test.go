package livesql

import (
	"bytes"
	"compress/gzip"
	"testing"

	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFormat(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		input    string
		expected Format
		wantErr  bool
	}{
		{name: "csv", input: "csv", expected: FormatCSV},
		{name: "uppercase TSV", input: "TSV", expected: FormatTSV},
		{name: "ltsv with spaces", input: " ltsv ", expected: FormatLTSV},
		{name: "parquet", input: "parquet", expected: FormatParquet},
		{name: "xlsx", input: "xlsx", expected: FormatXLSX},
		{name: "unknown", input: "json", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			format, err := ParseFormat(tt.input)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnsupportedFormat)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.expected, format)
		})
	}
}

func TestDetectFormat(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name            string
		path            string
		wantFormat      Format
		wantCompression Compression
		wantErr         bool
	}{
		{name: "plain csv", path: "data.csv", wantFormat: FormatCSV, wantCompression: CompressionNone},
		{name: "gzipped csv", path: "data.csv.gz", wantFormat: FormatCSV, wantCompression: CompressionGZ},
		{name: "zstd tsv", path: "export.tsv.zst", wantFormat: FormatTSV, wantCompression: CompressionZSTD},
		{name: "xz ltsv", path: "access.ltsv.xz", wantFormat: FormatLTSV, wantCompression: CompressionXZ},
		{name: "bzip2 csv", path: "old.csv.bz2", wantFormat: FormatCSV, wantCompression: CompressionBZ2},
		{name: "parquet", path: "metrics.parquet", wantFormat: FormatParquet, wantCompression: CompressionNone},
		{name: "xlsx", path: "report.xlsx", wantFormat: FormatXLSX, wantCompression: CompressionNone},
		{name: "url path", path: "/download/prices.csv", wantFormat: FormatCSV, wantCompression: CompressionNone},
		{name: "unknown extension", path: "data.json", wantErr: true},
		{name: "no extension", path: "data", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			format, compression, err := detectFormat(tt.path)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnsupportedFormat)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.wantFormat, format)
			assert.Equal(t, tt.wantCompression, compression)
		})
	}
}

func TestSniffCompression(t *testing.T) {
	t.Parallel()

	t.Run("gzip magic", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		gz := gzip.NewWriter(&buf)
		_, err := gz.Write([]byte("a,b\n1,2\n"))
		require.NoError(t, err)
		require.NoError(t, gz.Close())

		assert.Equal(t, CompressionGZ, sniffCompression(buf.Bytes()))
	})

	t.Run("zstd magic", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		enc, err := zstd.NewWriter(&buf)
		require.NoError(t, err)
		_, err = enc.Write([]byte("a,b\n1,2\n"))
		require.NoError(t, err)
		require.NoError(t, enc.Close())

		assert.Equal(t, CompressionZSTD, sniffCompression(buf.Bytes()))
	})

	t.Run("plain text", func(t *testing.T) {
		t.Parallel()
		assert.Equal(t, CompressionNone, sniffCompression([]byte("a,b\n1,2\n")))
	})

	t.Run("empty data", func(t *testing.T) {
		t.Parallel()
		assert.Equal(t, CompressionNone, sniffCompression(nil))
	})
}

func TestFormatString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "csv", FormatCSV.String())
	assert.Equal(t, "parquet", FormatParquet.String())
	assert.Equal(t, ".tsv", FormatTSV.Ext())
	assert.Equal(t, "zstd", CompressionZSTD.String())
	assert.Equal(t, ".gz", CompressionGZ.Ext())
	assert.Equal(t, "", CompressionNone.Ext())
}
