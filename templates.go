package livesql

import (
	"fmt"
	"strings"
)

// Query template helpers. They build SQL text against the default "data"
// table for callers that assemble queries from fragments; the result is
// passed to LiveData.Query like any hand-written statement.

// BuildFilterQuery returns a SELECT * filtered by the given condition.
//
//	BuildFilterQuery("price > 100") // SELECT * FROM data WHERE price > 100
func BuildFilterQuery(condition string) string {
	if strings.TrimSpace(condition) == "" {
		return "SELECT * FROM data"
	}
	return fmt.Sprintf("SELECT * FROM data WHERE %s", condition)
}

// BuildSelectQuery returns a SELECT of the given columns, optionally
// filtered. No columns means SELECT *.
func BuildSelectQuery(columns []string, condition string) string {
	cols := "*"
	if len(columns) > 0 {
		quoted := make([]string, len(columns))
		for i, c := range columns {
			quoted[i] = quoteIdent(c)
		}
		cols = strings.Join(quoted, ", ")
	}
	if strings.TrimSpace(condition) == "" {
		return fmt.Sprintf("SELECT %s FROM data", cols)
	}
	return fmt.Sprintf("SELECT %s FROM data WHERE %s", cols, condition)
}

// BuildAggregateQuery returns an aggregate grouped by one column.
//
//	BuildAggregateQuery("SUM", "amount", "region")
//	// SELECT "region", SUM("amount") AS value FROM data GROUP BY "region"
func BuildAggregateQuery(aggregate, column, groupBy string) string {
	return fmt.Sprintf(
		"SELECT %s, %s(%s) AS value FROM data GROUP BY %s",
		quoteIdent(groupBy), strings.ToUpper(aggregate), quoteIdent(column), quoteIdent(groupBy),
	)
}
