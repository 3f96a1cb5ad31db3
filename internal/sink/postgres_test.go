package sink

import (
	"context"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/cannabis-pipeline/internal/fetcher"
)

func TestPostgres_EnsureStoresTable(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec(`CREATE SCHEMA IF NOT EXISTS "cannabis"`).WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS "cannabis"\."store_locations"`).WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, NewPostgres(mock, "cannabis").EnsureStoresTable(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_EnsureStoresTableError(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec(`CREATE SCHEMA`).WillReturnError(fmt.Errorf("permission denied"))

	err = NewPostgres(mock, "cannabis").EnsureStoresTable(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "create schema cannabis")
}

func TestPostgres_CopyStores(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectCopyFrom(pgx.Identifier{"public", "store_locations"}, storeColumns).WillReturnResult(2)

	n, err := NewPostgres(mock, "").CopyStores(context.Background(), "run-1", testStores())
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_CopyStoresEmpty(t *testing.T) {
	n, err := NewPostgres(nil, "").CopyStores(context.Background(), "run-1", nil)
	assert.NoError(t, err)
	assert.Zero(t, n)
}

func TestPostgres_CopyTable(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	tbl := fetcher.NewTable([]string{"REF_DATE", "VALUE"})
	tbl.Append([]string{"2019-01", "100"})
	tbl.Append([]string{"2019-02", ""})

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS "public"\."sales_data" \("REF_DATE" TEXT, "VALUE" TEXT\)`).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"public", "sales_data"}, []string{"REF_DATE", "VALUE"}).WillReturnResult(2)

	n, err := NewPostgres(mock, "public").CopyTable(context.Background(), "sales_data", tbl)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_CopyError(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectCopyFrom(pgx.Identifier{"public", "store_locations"}, storeColumns).WillReturnError(fmt.Errorf("copy failed"))

	_, err = NewPostgres(mock, "public").CopyStores(context.Background(), "run-1", testStores())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "COPY INTO public.store_locations")
}
