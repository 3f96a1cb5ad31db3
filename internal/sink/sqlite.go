package sink

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/cannabis-pipeline/internal/model"
)

// SQLiteStore keeps a run log and the enriched store records in a SQLite
// database. Store geometry is kept as an EWKB point blob.
type SQLiteStore struct {
	db    *sql.DB
	clock clockwork.Clock
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string, clock clockwork.Clock) (*SQLiteStore, error) {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db, clock: clock}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY,
	command     TEXT NOT NULL,
	status      TEXT NOT NULL DEFAULT 'running',
	error       TEXT,
	summary     TEXT,
	started_at  DATETIME NOT NULL,
	finished_at DATETIME
);

CREATE TABLE IF NOT EXISTS store_locations (
	id                 TEXT PRIMARY KEY,
	run_id             TEXT NOT NULL REFERENCES runs(id),
	store_name         TEXT NOT NULL,
	city               TEXT NOT NULL,
	province           TEXT NOT NULL,
	full_province_name TEXT NOT NULL,
	address            TEXT NOT NULL,
	postal_code        TEXT,
	latitude           REAL,
	longitude          REAL,
	geom               BLOB
);

CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
CREATE INDEX IF NOT EXISTS idx_store_locations_run_id ON store_locations(run_id);
CREATE INDEX IF NOT EXISTS idx_store_locations_province ON store_locations(province);
`

// Migrate creates the schema if it does not exist.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// CreateRun records the start of a pipeline command.
func (s *SQLiteStore) CreateRun(ctx context.Context, command string) (*model.Run, error) {
	run := &model.Run{
		ID:        uuid.New().String(),
		Command:   command,
		Status:    model.RunStatusRunning,
		StartedAt: s.now(),
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, command, status, started_at) VALUES (?, ?, ?, ?)`,
		run.ID, run.Command, string(run.Status), run.StartedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert run")
	}
	return run, nil
}

// FinishRun marks a run complete, or failed when runErr is non-nil, and
// stores its enrichment summary.
func (s *SQLiteStore) FinishRun(ctx context.Context, runID string, summary model.EnrichmentSummary, runErr error) error {
	summaryJSON, err := json.Marshal(summary)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal summary")
	}

	status := model.RunStatusComplete
	var errText sql.NullString
	if runErr != nil {
		status = model.RunStatusFailed
		errText = sql.NullString{String: runErr.Error(), Valid: true}
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, error = ?, summary = ?, finished_at = ? WHERE id = ?`,
		string(status), errText, string(summaryJSON), s.now(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: finish run %s", runID)
	}
	return checkRowsAffected(res, "run", runID)
}

const runColumns = `id, command, status, error, started_at, finished_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*model.Run, error) {
	var (
		r        model.Run
		status   string
		errText  sql.NullString
		finished sql.NullTime
	)
	if err := row.Scan(&r.ID, &r.Command, &status, &errText, &r.StartedAt, &finished); err != nil {
		return nil, err
	}
	r.Status = model.RunStatus(status)
	r.Error = errText.String
	if finished.Valid {
		r.FinishedAt = finished.Time
	}
	return &r, nil
}

// GetRun loads a run by ID.
func (s *SQLiteStore) GetRun(ctx context.Context, runID string) (*model.Run, error) {
	r, err := scanRun(s.db.QueryRowContext(ctx,
		`SELECT `+runColumns+` FROM runs WHERE id = ?`, runID,
	))
	if err == sql.ErrNoRows {
		return nil, eris.Errorf("run not found: %s", runID)
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan run")
	}
	return r, nil
}

// ListRuns returns up to limit runs, most recent first. A non-positive limit
// returns 20.
func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]model.Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+runColumns+` FROM runs ORDER BY started_at DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close() //nolint:errcheck

	var runs []model.Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan run")
		}
		runs = append(runs, *r)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: iterate runs")
}

// SaveStores inserts the run's store records in a single transaction.
func (s *SQLiteStore) SaveStores(ctx context.Context, runID string, stores []model.StoreLocation) (int64, error) {
	if len(stores) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin tx")
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO store_locations
		(id, run_id, store_name, city, province, full_province_name, address, postal_code, latitude, longitude, geom)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: prepare store insert")
	}
	defer stmt.Close() //nolint:errcheck

	var n int64
	for i := range stores {
		st := &stores[i]
		point, err := EncodePoint(st)
		if err != nil {
			return 0, err
		}
		if _, err := stmt.ExecContext(ctx,
			uuid.New().String(), runID, st.StoreName, st.City, string(st.Province), st.FullProvinceName,
			st.Address, nullString(st.PostalCode), st.Latitude, st.Longitude, point,
		); err != nil {
			return 0, eris.Wrapf(err, "sqlite: insert store %q", st.StoreName)
		}
		n++
	}

	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: commit stores")
	}
	return n, nil
}

// ListStores returns the store records saved for a run, with coordinates read
// back from the stored geometry.
func (s *SQLiteStore) ListStores(ctx context.Context, runID string) ([]model.StoreLocation, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT store_name, city, province, full_province_name, address, postal_code, geom
		 FROM store_locations WHERE run_id = ? ORDER BY rowid`,
		runID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list stores")
	}
	defer rows.Close() //nolint:errcheck

	var out []model.StoreLocation
	for rows.Next() {
		var (
			st       model.StoreLocation
			province string
			postal   sql.NullString
			point    []byte
		)
		if err := rows.Scan(&st.StoreName, &st.City, &province, &st.FullProvinceName, &st.Address, &postal, &point); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan store")
		}
		st.Province = model.Province(province)
		st.PostalCode = postal.String
		if len(point) > 0 {
			lat, lng, err := DecodePoint(point)
			if err != nil {
				return nil, err
			}
			st.SetCoordinates(lat, lng)
		}
		out = append(out, st)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list stores iterate")
}

func (s *SQLiteStore) now() time.Time {
	return s.clock.Now().UTC()
}

func nullString(v string) sql.NullString {
	return sql.NullString{String: v, Valid: v != ""}
}

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Errorf("%s not found: %s", entity, id)
	}
	return nil
}
