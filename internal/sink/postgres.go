package sink

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/cannabis-pipeline/internal/fetcher"
	"github.com/sells-group/cannabis-pipeline/internal/model"
)

// Pool is the subset of pgxpool.Pool used by the Postgres sink.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error)
}

// Connect opens a pgx connection pool.
func Connect(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: connect")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return pool, nil
}

// StoresTableName is the Postgres table holding enriched store records.
const StoresTableName = "store_locations"

var storeColumns = []string{
	"run_id", "store_name", "city", "province", "full_province_name",
	"address", "postal_code", "latitude", "longitude",
}

// Postgres bulk-loads pipeline output into one schema using COPY.
type Postgres struct {
	pool   Pool
	schema string
}

// NewPostgres returns a sink writing into schema.
func NewPostgres(pool Pool, schema string) *Postgres {
	if schema == "" {
		schema = "public"
	}
	return &Postgres{pool: pool, schema: schema}
}

// EnsureStoresTable creates the schema and store table if missing.
func (p *Postgres) EnsureStoresTable(ctx context.Context) error {
	schemaDDL := "CREATE SCHEMA IF NOT EXISTS " + pgx.Identifier{p.schema}.Sanitize()
	if _, err := p.pool.Exec(ctx, schemaDDL); err != nil {
		return eris.Wrapf(err, "postgres: create schema %s", p.schema)
	}

	ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	run_id             TEXT NOT NULL,
	store_name         TEXT NOT NULL,
	city               TEXT NOT NULL,
	province           CHAR(2) NOT NULL,
	full_province_name TEXT NOT NULL,
	address            TEXT NOT NULL,
	postal_code        TEXT,
	latitude           DOUBLE PRECISION,
	longitude          DOUBLE PRECISION
)`,
		pgx.Identifier{p.schema, StoresTableName}.Sanitize(),
	)
	if _, err := p.pool.Exec(ctx, ddl); err != nil {
		return eris.Wrapf(err, "postgres: create %s.%s", p.schema, StoresTableName)
	}
	return nil
}

// CopyStores bulk-inserts store records tagged with runID.
func (p *Postgres) CopyStores(ctx context.Context, runID string, stores []model.StoreLocation) (int64, error) {
	rows := make([][]any, len(stores))
	for i := range stores {
		s := &stores[i]
		var postal any
		if s.PostalCode != "" {
			postal = s.PostalCode
		}
		rows[i] = []any{
			runID, s.StoreName, s.City, string(s.Province), s.FullProvinceName,
			s.Address, postal, s.Latitude, s.Longitude,
		}
	}
	return p.copyFrom(ctx, StoresTableName, storeColumns, rows)
}

// CopyTable creates table with one TEXT column per table column, if missing,
// and bulk-inserts every row. Empty cells become NULL.
func (p *Postgres) CopyTable(ctx context.Context, table string, t *fetcher.Table) (int64, error) {
	defs := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		defs[i] = pgx.Identifier{c}.Sanitize() + " TEXT"
	}
	ddl := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)",
		pgx.Identifier{p.schema, table}.Sanitize(),
		strings.Join(defs, ", "),
	)
	if _, err := p.pool.Exec(ctx, ddl); err != nil {
		return 0, eris.Wrapf(err, "postgres: create %s.%s", p.schema, table)
	}

	rows := make([][]any, len(t.Rows))
	for i, cells := range t.Rows {
		row := make([]any, len(cells))
		for j, v := range cells {
			if v != "" {
				row[j] = v
			}
		}
		rows[i] = row
	}
	return p.copyFrom(ctx, table, t.Columns, rows)
}

func (p *Postgres) copyFrom(ctx context.Context, table string, columns []string, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	n, err := p.pool.CopyFrom(ctx, pgx.Identifier{p.schema, table}, columns, pgx.CopyFromRows(rows))
	if err != nil {
		return 0, eris.Wrapf(err, "postgres: COPY INTO %s.%s", p.schema, table)
	}
	return n, nil
}
