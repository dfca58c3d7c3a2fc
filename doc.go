// Package livesql keeps a periodically refreshed copy of a tabular data
// source and answers SQL queries against it.
//
// A LiveData stream fetches its source on a fixed interval (an HTTP(S) URL,
// a local file, or a PostgreSQL query), parses the payload, and atomically
// replaces the current Snapshot. Queries run through an in-memory SQLite3
// engine with the snapshot bound as a single table, so the full SQLite SQL
// dialect is available: aggregations, window functions, CTEs.
//
// # Features
//
//   - CSV, TSV, LTSV, Parquet, and Excel (XLSX) payloads
//   - Transparent decompression (gzip, bzip2, xz, zstandard)
//   - HTTP(S), local file, and postgres:// sources
//   - Lock-free snapshot reads; polling never blocks queries
//   - Stale-but-available: a failing source keeps the last good snapshot
//
// # Basic Usage
//
// The simplest way to start a stream is Open:
//
//	data, err := livesql.Open(ctx, "https://example.com/prices.csv", 30*time.Second)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer data.Stop()
//
//	result, err := data.Query(ctx, "SELECT symbol, price FROM data WHERE price > 100")
//
// The first fetch happens before Open returns. Later fetches run in the
// background; a fetch failure is reported by LastError while queries keep
// seeing the previous snapshot.
//
// # Advanced Usage
//
// The Builder configures sources that need more than a location:
//
//	builder, err := livesql.NewBuilder().
//	    WithSource("postgres://user:pass@db:5432/app").
//	    WithQuery("SELECT id, name, amount FROM orders").
//	    WithInterval(time.Minute).
//	    WithTimeout(10 * time.Second).
//	    Build(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	data, err := builder.Start(ctx)
//
// One-shot loads, for data that does not change, skip polling entirely:
//
//	data, err := livesql.Load(ctx, "testdata/sample.csv")
package livesql
