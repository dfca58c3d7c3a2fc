package livesql

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/apache/arrow/go/v18/arrow"
	"github.com/apache/arrow/go/v18/arrow/array"
	pqfile "github.com/apache/arrow/go/v18/parquet/file"
	"github.com/apache/arrow/go/v18/parquet/pqarrow"
	"github.com/xuri/excelize/v2"
)

// parsePayload decodes a fetched payload into header and records.
// Compression is applied first; CompressionNone payloads are additionally
// sniffed for magic bytes so sources that serve compressed bodies without a
// telling extension still decode. An empty payload is an empty dataset, not
// an error.
func parsePayload(data []byte, format Format, compression Compression) (header, []Record, error) {
	if len(data) == 0 {
		return nil, nil, nil
	}

	if compression == CompressionNone {
		compression = sniffCompression(data)
	}
	if compression != CompressionNone {
		reader, closer, err := newDecompressionReader(bytes.NewReader(data), compression)
		if err != nil {
			return nil, nil, err
		}
		decompressed, err := io.ReadAll(reader)
		closeErr := closer()
		if err != nil {
			return nil, nil, fmt.Errorf("failed to decompress %s payload: %w", compression, err)
		}
		if closeErr != nil {
			return nil, nil, closeErr
		}
		data = decompressed
	}

	switch format {
	case FormatCSV:
		return parseDelimited(data, csvDelimiter)
	case FormatTSV:
		return parseDelimited(data, tsvDelimiter)
	case FormatLTSV:
		return parseLTSV(data)
	case FormatParquet:
		return parseParquet(data)
	case FormatXLSX:
		return parseXLSX(data)
	default:
		return nil, nil, fmt.Errorf("%w: %v", ErrUnsupportedFormat, format)
	}
}

// parseDelimited parses CSV or TSV data. The first row is the header.
func parseDelimited(data []byte, delimiter rune) (header, []Record, error) {
	csvReader := csv.NewReader(bytes.NewReader(data))
	csvReader.Comma = delimiter
	rows, err := csvReader.ReadAll()
	if err != nil {
		return nil, nil, err
	}
	if len(rows) == 0 {
		return nil, nil, nil
	}

	if err := validateColumnNames(rows[0]); err != nil {
		return nil, nil, err
	}
	hdr := newHeader(rows[0])

	records := make([]Record, 0, len(rows)-1)
	for i := 1; i < len(rows); i++ {
		records = append(records, newRecord(rows[i]))
	}
	return hdr, records, nil
}

// parseLTSV parses labeled TSV data. Labels seen across all lines form the
// header, in first-appearance order; missing labels become empty fields.
func parseLTSV(data []byte) (header, []Record, error) {
	var hdr header
	seen := make(map[string]bool)
	var rowMaps []map[string]string

	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		row := make(map[string]string)
		for _, pair := range strings.Split(line, "\t") {
			kv := strings.SplitN(pair, ":", 2)
			if len(kv) != 2 {
				return nil, nil, fmt.Errorf("malformed ltsv field %q", pair)
			}
			key := strings.TrimSpace(kv[0])
			row[key] = strings.TrimSpace(kv[1])
			if !seen[key] {
				seen[key] = true
				hdr = append(hdr, key)
			}
		}
		if len(row) > 0 {
			rowMaps = append(rowMaps, row)
		}
	}

	if len(rowMaps) == 0 {
		return nil, nil, nil
	}

	records := make([]Record, 0, len(rowMaps))
	for _, row := range rowMaps {
		rec := make(Record, len(hdr))
		for i, key := range hdr {
			rec[i] = row[key]
		}
		records = append(records, rec)
	}
	return hdr, records, nil
}

// parseParquet parses a Parquet payload through the arrow reader.
// Parquet requires random access, so the payload stays in memory.
func parseParquet(data []byte) (header, []Record, error) {
	pqReader, err := pqfile.NewParquetReader(bytes.NewReader(data))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create parquet reader: %w", err)
	}
	defer pqReader.Close()

	arrowReader, err := pqarrow.NewFileReader(pqReader, pqarrow.ArrowReadProperties{}, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create arrow reader: %w", err)
	}

	tbl, err := arrowReader.ReadTable(context.Background())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read parquet table: %w", err)
	}
	defer tbl.Release()

	schema := tbl.Schema()
	hdr := make(header, schema.NumFields())
	for i, field := range schema.Fields() {
		hdr[i] = field.Name
	}
	if err := validateColumnNames(hdr); err != nil {
		return nil, nil, err
	}

	tableReader := array.NewTableReader(tbl, 0)
	defer tableReader.Release()

	var records []Record
	for tableReader.Next() {
		batch := tableReader.Record()
		numRows := batch.NumRows()
		for i := int64(0); i < numRows; i++ {
			row := make(Record, batch.NumCols())
			for j, col := range batch.Columns() {
				row[j] = arrowValueAt(col, int(i))
			}
			records = append(records, row)
		}
	}
	if err := tableReader.Err(); err != nil {
		return nil, nil, fmt.Errorf("error reading parquet records: %w", err)
	}

	return hdr, records, nil
}

// arrowValueAt renders one arrow cell as a string. Nulls become empty fields
// to match how the delimited formats represent missing values.
func arrowValueAt(col arrow.Array, i int) string {
	if col.IsNull(i) {
		return ""
	}
	return col.ValueStr(i)
}

// parseXLSX parses the first sheet of an Excel workbook. The first row is
// the header; short rows are padded with empty fields.
func parseXLSX(data []byte) (header, []Record, error) {
	xlsxFile, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, nil, err
	}
	defer func() {
		_ = xlsxFile.Close()
	}()

	sheetNames := xlsxFile.GetSheetList()
	if len(sheetNames) == 0 {
		return nil, nil, errors.New("no sheets found in workbook")
	}

	rows, err := xlsxFile.GetRows(sheetNames[0])
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read sheet %s: %w", sheetNames[0], err)
	}
	if len(rows) == 0 {
		return nil, nil, nil
	}

	if err := validateColumnNames(rows[0]); err != nil {
		return nil, nil, err
	}
	hdr := make(header, len(rows[0]))
	copy(hdr, rows[0])

	records := make([]Record, 0, len(rows)-1)
	for _, row := range rows[1:] {
		rec := make(Record, len(hdr))
		for j := range hdr {
			if j < len(row) {
				rec[j] = row[j]
			}
		}
		records = append(records, rec)
	}
	return hdr, records, nil
}
