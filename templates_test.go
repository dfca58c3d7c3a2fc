package livesql

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildFilterQuery(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "SELECT * FROM data WHERE price > 100", BuildFilterQuery("price > 100"))
	assert.Equal(t, "SELECT * FROM data", BuildFilterQuery(""))
	assert.Equal(t, "SELECT * FROM data", BuildFilterQuery("  "))
}

func TestBuildSelectQuery(t *testing.T) {
	t.Parallel()

	assert.Equal(t, `SELECT "id", "name" FROM data`, BuildSelectQuery([]string{"id", "name"}, ""))
	assert.Equal(t, `SELECT "name" FROM data WHERE id = 1`, BuildSelectQuery([]string{"name"}, "id = 1"))
	assert.Equal(t, "SELECT * FROM data", BuildSelectQuery(nil, ""))
}

func TestBuildAggregateQuery(t *testing.T) {
	t.Parallel()

	assert.Equal(t,
		`SELECT "region", SUM("amount") AS value FROM data GROUP BY "region"`,
		BuildAggregateQuery("sum", "amount", "region"))
}

func TestQueryTemplatesExecute(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	e := newEngine()
	defer e.close()
	snap := newSnapshot("data",
		[]string{"region", "amount"},
		[]Record{{"east", "10"}, {"west", "5"}, {"east", "7"}})

	result, err := e.query(ctx, snap, BuildFilterQuery("amount > 6"))
	require.NoError(t, err)
	assert.Equal(t, 2, result.Len())

	result, err = e.query(ctx, snap, BuildAggregateQuery("sum", "amount", "region"))
	require.NoError(t, err)
	require.Equal(t, 2, result.Len())
	totals := make(map[string]string)
	for _, m := range result.Maps() {
		totals[m["region"]] = m["value"]
	}
	assert.Equal(t, "17", totals["east"])
	assert.Equal(t, "5", totals["west"])
}
