package livesql

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuilder_Build(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("Missing interval", func(t *testing.T) {
		t.Parallel()

		_, err := NewBuilder().WithSource("data.csv").Build(ctx)
		assert.ErrorIs(t, err, ErrInvalidInterval)
	})

	t.Run("Negative interval", func(t *testing.T) {
		t.Parallel()

		_, err := NewBuilder().WithSource("data.csv").WithInterval(-time.Second).Build(ctx)
		assert.ErrorIs(t, err, ErrInvalidInterval)
	})

	t.Run("Missing source", func(t *testing.T) {
		t.Parallel()

		_, err := NewBuilder().WithInterval(time.Second).Build(ctx)
		assert.ErrorIs(t, err, ErrInvalidSource)
	})

	t.Run("Postgres source without query", func(t *testing.T) {
		t.Parallel()

		_, err := NewBuilder().
			WithSource("postgres://localhost/app").
			WithInterval(time.Second).
			Build(ctx)
		assert.ErrorIs(t, err, ErrInvalidSource)
	})

	t.Run("Format override wins over extension", func(t *testing.T) {
		t.Parallel()

		builder, err := NewBuilder().
			WithSource("https://example.com/export").
			WithFormat(FormatTSV).
			WithInterval(time.Second).
			Build(ctx)
		require.NoError(t, err)
		assert.Equal(t, FormatTSV, builder.source.Format)
	})

	t.Run("Headers and timeout carried to the source", func(t *testing.T) {
		t.Parallel()

		builder, err := NewBuilder().
			WithSource("https://example.com/data.csv").
			WithInterval(time.Second).
			WithHTTPHeader("Authorization", "Bearer x").
			WithTimeout(5 * time.Second).
			Build(ctx)
		require.NoError(t, err)
		assert.Equal(t, "Bearer x", builder.source.Headers["Authorization"])
		assert.Equal(t, 5*time.Second, builder.source.Timeout)
	})
}

func TestBuilder_StartRequiresBuild(t *testing.T) {
	t.Parallel()

	_, err := NewBuilder().WithSource("data.csv").WithInterval(time.Second).Start(context.Background())
	assert.Error(t, err)
}

func TestBuilder_HTTPHeadersSent(t *testing.T) {
	t.Parallel()

	gotAuth := make(chan string, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case gotAuth <- r.Header.Get("Authorization"):
		default:
		}
		fmt.Fprint(w, "id\n1\n")
	}))
	defer server.Close()

	builder, err := NewBuilder().
		WithSource(server.URL + "/data.csv").
		WithInterval(time.Hour).
		WithHTTPHeader("Authorization", "Bearer secret").
		Build(context.Background())
	require.NoError(t, err)

	data, err := builder.Start(context.Background())
	require.NoError(t, err)
	defer data.Stop()

	assert.Equal(t, "Bearer secret", <-gotAuth)
}

func TestBuilder_WithTableRenamesRelation(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "id,name\n1,a\n")
	}))
	defer server.Close()

	builder, err := NewBuilder().
		WithSource(server.URL + "/data.csv").
		WithInterval(time.Hour).
		WithTable("prices").
		Build(context.Background())
	require.NoError(t, err)

	data, err := builder.Start(context.Background())
	require.NoError(t, err)
	defer data.Stop()

	result, err := data.Query(context.Background(), "SELECT name FROM prices WHERE id = 1")
	require.NoError(t, err)
	assert.Equal(t, "a", result.Rows[0][0])

	_, err = data.Query(context.Background(), "SELECT name FROM data")
	assert.ErrorIs(t, err, ErrQueryExecution)
}

func TestOpen_InvalidArguments(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	_, err := Open(ctx, "data.csv", 0)
	assert.ErrorIs(t, err, ErrInvalidInterval)

	_, err = Open(ctx, "", time.Second)
	assert.ErrorIs(t, err, ErrInvalidSource)

	_, err = Open(ctx, "data.json", time.Second)
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}
