package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"analyticsScope/internal/dashboard"
	"analyticsScope/internal/model"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS entity_histories (
	surface        TEXT        NOT NULL,
	entity_name    TEXT        NOT NULL,
	kind           TEXT        NOT NULL,
	bucket_ts      BIGINT      NOT NULL,
	bucket_id      TEXT        NOT NULL,
	account_source TEXT        NOT NULL,
	data           JSONB       NOT NULL,
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (surface, entity_name, kind, bucket_ts)
);
CREATE TABLE IF NOT EXISTS dashboard_state (
	name         TEXT        PRIMARY KEY,
	generated_at TIMESTAMPTZ NOT NULL,
	summary      JSONB       NOT NULL,
	updated_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

const stateName = "latest"

// Store persists reconciled histories in Postgres.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

func (s *Store) Name() string { return "postgres" }

// EnsureSchema creates the tables when missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, schemaSQL)
	return err
}

// Row is one bucket ready for upsert.
type Row struct {
	Surface       string
	EntityName    string
	Kind          model.Kind
	Timestamp     int64
	BucketID      string
	AccountSource string
	Data          []byte
}

// PutSnapshot upserts every bucket of snap and records the refresh summary.
func (s *Store) PutSnapshot(ctx context.Context, snap *dashboard.Snapshot) error {
	if snap == nil {
		return nil
	}
	rows, err := Rows(snap)
	if err != nil {
		return err
	}
	if err := s.UpsertHistories(ctx, rows); err != nil {
		return fmt.Errorf("upsert histories: %w", err)
	}
	summary, err := json.Marshal(snap.Summary)
	if err != nil {
		return fmt.Errorf("marshal summary: %w", err)
	}
	return s.SaveState(ctx, stateName, snap.GeneratedAt, summary)
}

// UpsertHistories inserts or updates history buckets.
func (s *Store) UpsertHistories(ctx context.Context, rows []Row) error {
	if len(rows) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, row := range rows {
		batch.Queue(`
			INSERT INTO entity_histories (
				surface, entity_name, kind, bucket_ts, bucket_id, account_source, data, created_at, updated_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, now(), now())
			ON CONFLICT (surface, entity_name, kind, bucket_ts)
			DO UPDATE SET
				bucket_id = EXCLUDED.bucket_id,
				account_source = EXCLUDED.account_source,
				data = EXCLUDED.data,
				updated_at = now()
		`,
			row.Surface,
			row.EntityName,
			string(row.Kind),
			row.Timestamp,
			row.BucketID,
			row.AccountSource,
			row.Data,
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range rows {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

// LoadState returns the generation time of the last stored snapshot.
func (s *Store) LoadState(ctx context.Context, name string) (time.Time, bool, error) {
	if name == "" {
		return time.Time{}, false, fmt.Errorf("state name required")
	}
	var at time.Time
	row := s.pool.QueryRow(ctx, `SELECT generated_at FROM dashboard_state WHERE name=$1`, name)
	if err := row.Scan(&at); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return time.Time{}, false, nil
		}
		return time.Time{}, false, err
	}
	return at, true, nil
}

// SaveState upserts the latest refresh summary for a name.
func (s *Store) SaveState(ctx context.Context, name string, at time.Time, summary []byte) error {
	if name == "" {
		return fmt.Errorf("state name required")
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO dashboard_state (name, generated_at, summary, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (name) DO UPDATE
		SET generated_at = EXCLUDED.generated_at, summary = EXCLUDED.summary, updated_at = now()
	`, name, at, summary)
	return err
}

// Rows flattens every bucket of snap into upsert rows.
func Rows(snap *dashboard.Snapshot) ([]Row, error) {
	var rows []Row
	for _, a := range snap.Affiliates {
		var err error
		if rows, err = appendRows(rows, "affiliate", a.Index.Name, model.KindDaily, a.Daily); err != nil {
			return nil, err
		}
		if rows, err = appendRows(rows, "affiliate", a.Index.Name, model.KindWeekly, a.Weekly); err != nil {
			return nil, err
		}
		if rows, err = appendRows(rows, "affiliate", a.Index.Name, model.KindMonthly, a.Monthly); err != nil {
			return nil, err
		}
	}
	for _, sv := range snap.Solvers {
		var err error
		if rows, err = appendRows(rows, "solver", sv.Index.Name, model.KindSolverDaily, sv.Daily); err != nil {
			return nil, err
		}
	}
	return rows, nil
}

func appendRows[T model.Bucket](rows []Row, surface, name string, kind model.Kind, buckets []T) ([]Row, error) {
	for _, b := range buckets {
		data, err := json.Marshal(b)
		if err != nil {
			return nil, fmt.Errorf("marshal %s bucket: %w", kind, err)
		}
		header := b.Header()
		rows = append(rows, Row{
			Surface:       surface,
			EntityName:    name,
			Kind:          kind,
			Timestamp:     header.Timestamp,
			BucketID:      header.ID,
			AccountSource: header.AccountSource,
			Data:          data,
		})
	}
	return rows, nil
}
