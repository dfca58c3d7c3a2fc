package livesql

import (
	"bytes"
	"compress/gzip"
	"testing"

	"github.com/apache/arrow/go/v18/arrow"
	"github.com/apache/arrow/go/v18/arrow/array"
	"github.com/apache/arrow/go/v18/arrow/memory"
	"github.com/apache/arrow/go/v18/parquet"
	"github.com/apache/arrow/go/v18/parquet/pqarrow"
	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ulikunitz/xz"
	"github.com/xuri/excelize/v2"
)

func TestParsePayload_CSV(t *testing.T) {
	t.Parallel()

	t.Run("Header and records", func(t *testing.T) {
		t.Parallel()

		hdr, records, err := parsePayload([]byte("id,name\n1,a\n2,b\n"), FormatCSV, CompressionNone)
		require.NoError(t, err)
		assert.Equal(t, header{"id", "name"}, hdr)
		require.Len(t, records, 2)
		assert.Equal(t, Record{"1", "a"}, records[0])
		assert.Equal(t, Record{"2", "b"}, records[1])
	})

	t.Run("Header only", func(t *testing.T) {
		t.Parallel()

		hdr, records, err := parsePayload([]byte("id,name\n"), FormatCSV, CompressionNone)
		require.NoError(t, err)
		assert.Equal(t, header{"id", "name"}, hdr)
		assert.Empty(t, records)
	})

	t.Run("Empty payload is an empty dataset", func(t *testing.T) {
		t.Parallel()

		hdr, records, err := parsePayload(nil, FormatCSV, CompressionNone)
		require.NoError(t, err)
		assert.Nil(t, hdr)
		assert.Nil(t, records)
	})

	t.Run("Duplicate columns rejected", func(t *testing.T) {
		t.Parallel()

		_, _, err := parsePayload([]byte("id,id\n1,2\n"), FormatCSV, CompressionNone)
		assert.ErrorIs(t, err, errDuplicateColumnName)
	})

	t.Run("Quoted fields", func(t *testing.T) {
		t.Parallel()

		_, records, err := parsePayload([]byte("id,note\n1,\"hello, world\"\n"), FormatCSV, CompressionNone)
		require.NoError(t, err)
		assert.Equal(t, Record{"1", "hello, world"}, records[0])
	})
}

func TestParsePayload_TSV(t *testing.T) {
	t.Parallel()

	hdr, records, err := parsePayload([]byte("id\tname\n1\ta\n"), FormatTSV, CompressionNone)
	require.NoError(t, err)
	assert.Equal(t, header{"id", "name"}, hdr)
	assert.Equal(t, Record{"1", "a"}, records[0])
}

func TestParsePayload_LTSV(t *testing.T) {
	t.Parallel()

	t.Run("Labels form the header", func(t *testing.T) {
		t.Parallel()

		data := []byte("host:web1\tstatus:200\nhost:web2\tstatus:500\tpath:/login\n")
		hdr, records, err := parsePayload(data, FormatLTSV, CompressionNone)
		require.NoError(t, err)
		assert.Equal(t, header{"host", "status", "path"}, hdr)
		require.Len(t, records, 2)
		assert.Equal(t, Record{"web1", "200", ""}, records[0])
		assert.Equal(t, Record{"web2", "500", "/login"}, records[1])
	})

	t.Run("Malformed field rejected", func(t *testing.T) {
		t.Parallel()

		_, _, err := parsePayload([]byte("host:web1\tnolabel\n"), FormatLTSV, CompressionNone)
		assert.Error(t, err)
	})
}

func TestParsePayload_Compressed(t *testing.T) {
	t.Parallel()

	const plain = "id,name\n1,a\n2,b\n"

	t.Run("Gzip by extension hint", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		gz := gzip.NewWriter(&buf)
		_, err := gz.Write([]byte(plain))
		require.NoError(t, err)
		require.NoError(t, gz.Close())

		hdr, records, err := parsePayload(buf.Bytes(), FormatCSV, CompressionGZ)
		require.NoError(t, err)
		assert.Equal(t, header{"id", "name"}, hdr)
		assert.Len(t, records, 2)
	})

	t.Run("Gzip detected by magic bytes", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		gz := gzip.NewWriter(&buf)
		_, err := gz.Write([]byte(plain))
		require.NoError(t, err)
		require.NoError(t, gz.Close())

		// CompressionNone: the payload announces itself
		hdr, _, err := parsePayload(buf.Bytes(), FormatCSV, CompressionNone)
		require.NoError(t, err)
		assert.Equal(t, header{"id", "name"}, hdr)
	})

	t.Run("Zstd", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		enc, err := zstd.NewWriter(&buf)
		require.NoError(t, err)
		_, err = enc.Write([]byte(plain))
		require.NoError(t, err)
		require.NoError(t, enc.Close())

		_, records, err := parsePayload(buf.Bytes(), FormatCSV, CompressionZSTD)
		require.NoError(t, err)
		assert.Len(t, records, 2)
	})

	t.Run("Xz", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w, err := xz.NewWriter(&buf)
		require.NoError(t, err)
		_, err = w.Write([]byte(plain))
		require.NoError(t, err)
		require.NoError(t, w.Close())

		_, records, err := parsePayload(buf.Bytes(), FormatCSV, CompressionXZ)
		require.NoError(t, err)
		assert.Len(t, records, 2)
	})

	t.Run("Corrupt gzip payload fails", func(t *testing.T) {
		t.Parallel()

		_, _, err := parsePayload([]byte{0x1f, 0x8b, 0xff, 0xff}, FormatCSV, CompressionNone)
		assert.Error(t, err)
	})
}

func TestParsePayload_XLSX(t *testing.T) {
	t.Parallel()

	t.Run("First sheet with padding", func(t *testing.T) {
		t.Parallel()

		f := excelize.NewFile()
		require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]any{"id", "name", "price"}))
		require.NoError(t, f.SetSheetRow("Sheet1", "A2", &[]any{1, "apple", 9.99}))
		require.NoError(t, f.SetSheetRow("Sheet1", "A3", &[]any{2, "banana"}))

		var buf bytes.Buffer
		require.NoError(t, f.Write(&buf))
		require.NoError(t, f.Close())

		hdr, records, err := parsePayload(buf.Bytes(), FormatXLSX, CompressionNone)
		require.NoError(t, err)
		assert.Equal(t, header{"id", "name", "price"}, hdr)
		require.Len(t, records, 2)
		assert.Equal(t, Record{"1", "apple", "9.99"}, records[0])
		// short row padded with empty fields
		assert.Equal(t, Record{"2", "banana", ""}, records[1])
	})

	t.Run("Garbage payload fails", func(t *testing.T) {
		t.Parallel()

		_, _, err := parsePayload([]byte("not a workbook"), FormatXLSX, CompressionNone)
		assert.Error(t, err)
	})
}

func TestParsePayload_Parquet(t *testing.T) {
	t.Parallel()

	schema := arrow.NewSchema([]arrow.Field{
		{Name: "id", Type: arrow.PrimitiveTypes.Int64},
		{Name: "name", Type: arrow.BinaryTypes.String, Nullable: true},
	}, nil)

	builder := array.NewRecordBuilder(memory.NewGoAllocator(), schema)
	defer builder.Release()
	builder.Field(0).(*array.Int64Builder).AppendValues([]int64{1, 2}, nil)
	builder.Field(1).(*array.StringBuilder).AppendValues([]string{"a", ""}, []bool{true, false})

	rec := builder.NewRecord()
	defer rec.Release()
	tbl := array.NewTableFromRecords(schema, []arrow.Record{rec})
	defer tbl.Release()

	var buf bytes.Buffer
	require.NoError(t, pqarrow.WriteTable(tbl, &buf, 1024,
		parquet.NewWriterProperties(), pqarrow.DefaultWriterProps()))

	hdr, records, err := parsePayload(buf.Bytes(), FormatParquet, CompressionNone)
	require.NoError(t, err)
	assert.Equal(t, header{"id", "name"}, hdr)
	require.Len(t, records, 2)
	assert.Equal(t, Record{"1", "a"}, records[0])
	// null renders as an empty field
	assert.Equal(t, Record{"2", ""}, records[1])
}
