package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JonMunkholm/measurestats/internal/config"
	"github.com/JonMunkholm/measurestats/internal/core"
)

const pgSummaryColumns = `file_name, import_id, delta_seconds, first_start, avg_execution_time,
	avg_value, median_value, max_value, min_value, sample_count, imported_at`

var sampleCopyColumns = []string{"import_id", "file_name", "ts", "execution_time_seconds", "value"}

// Postgres is the pgxpool-backed store.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres opens a pool for cfg.URL and verifies connectivity.
func NewPostgres(ctx context.Context, cfg config.DatabaseConfig) (*Postgres, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}

	if cfg.MaxConns > 0 {
		poolConfig.MaxConns = int32(cfg.MaxConns)
	}
	if cfg.MinConns > 0 {
		poolConfig.MinConns = int32(cfg.MinConns)
	}
	if cfg.MaxConnLifetime > 0 {
		poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	}
	if cfg.MaxConnIdleTime > 0 {
		poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	slog.Info("database pool configured",
		"max_conns", poolConfig.MaxConns,
		"min_conns", poolConfig.MinConns,
		"max_conn_lifetime", poolConfig.MaxConnLifetime,
		"max_conn_idle_time", poolConfig.MaxConnIdleTime,
	)
	return &Postgres{pool: pool}, nil
}

// NewPostgresFromPool wraps an existing pool. The caller keeps ownership of
// the pool unless it calls Close on the returned store.
func NewPostgresFromPool(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

// EnsureSchema creates the PostgreSQL tables if they do not exist.
func (p *Postgres) EnsureSchema(ctx context.Context) error {
	return applySchema(ctx, DriverPostgres, func(ctx context.Context, sql string) error {
		_, err := p.pool.Exec(ctx, sql)
		return err
	})
}

func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}

func (p *Postgres) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

// WithTx runs fn in a READ COMMITTED transaction.
func (p *Postgres) WithTx(ctx context.Context, fn func(tx core.Tx) error) (err error) {
	tx, err := p.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	defer func() {
		if rec := recover(); rec != nil {
			_ = tx.Rollback(context.WithoutCancel(ctx))
			panic(rec)
		}
	}()

	if err := fn(&pgTx{tx: tx}); err != nil {
		if rbErr := tx.Rollback(context.WithoutCancel(ctx)); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			slog.Error("rollback failed", "error", rbErr)
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func (p *Postgres) CountSummaries(ctx context.Context, fs core.FilterSet) (int64, error) {
	wb := NewWhereBuilder(Dollar)
	if err := wb.AddFilters(fs); err != nil {
		return 0, err
	}
	where, args := wb.Build()

	var count int64
	if err := p.pool.QueryRow(ctx, "SELECT COUNT(*) FROM summaries"+where, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count summaries: %w", err)
	}
	return count, nil
}

func (p *Postgres) FindSummaries(ctx context.Context, fs core.FilterSet, w core.Window) ([]core.Summary, error) {
	wb := NewWhereBuilder(Dollar)
	if err := wb.AddFilters(fs); err != nil {
		return nil, err
	}
	where, args := wb.Build()

	query := "SELECT " + pgSummaryColumns + " FROM summaries" + where + summaryOrder
	if w.Limit > 0 {
		n := wb.NextArgIndex()
		query += " LIMIT " + wb.Placeholder(n) + " OFFSET " + wb.Placeholder(n+1)
		args = append(args, w.Limit, w.Offset)
	}

	rows, err := p.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query summaries: %w", err)
	}
	items, err := pgx.CollectRows(rows, scanPgSummary)
	if err != nil {
		return nil, fmt.Errorf("scan summaries: %w", err)
	}
	return items, nil
}

func (p *Postgres) GetSummary(ctx context.Context, fileName string) (core.Summary, error) {
	rows, err := p.pool.Query(ctx, "SELECT "+pgSummaryColumns+" FROM summaries WHERE file_name = $1", fileName)
	if err != nil {
		return core.Summary{}, fmt.Errorf("query summary: %w", err)
	}
	s, err := pgx.CollectExactlyOneRow(rows, scanPgSummary)
	if errors.Is(err, pgx.ErrNoRows) {
		return core.Summary{}, core.ErrNotFound
	}
	if err != nil {
		return core.Summary{}, fmt.Errorf("scan summary: %w", err)
	}
	return s, nil
}

func (p *Postgres) RecentSamples(ctx context.Context, fileName string, limit int) ([]core.RecentSample, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT ts, execution_time_seconds, value
		FROM samples
		WHERE file_name = $1
		ORDER BY ts DESC, id DESC
		LIMIT $2`, fileName, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent samples: %w", err)
	}
	items, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (core.RecentSample, error) {
		var r core.RecentSample
		if err := row.Scan(&r.Date, &r.ExecutionTimeSeconds, &r.Value); err != nil {
			return r, err
		}
		r.Date = r.Date.UTC()
		return r, nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan recent samples: %w", err)
	}
	return items, nil
}

func scanPgSummary(row pgx.CollectableRow) (core.Summary, error) {
	var (
		s  core.Summary
		id pgtype.UUID
	)
	err := row.Scan(&s.FileName, &id, &s.DeltaSeconds, &s.FirstStart, &s.AvgExecutionTime,
		&s.AvgValue, &s.MedianValue, &s.MaxValue, &s.MinValue, &s.SampleCount, &s.ImportedAt)
	if err != nil {
		return s, err
	}
	if id.Valid {
		s.ImportID = uuid.UUID(id.Bytes).String()
	}
	s.FirstStart = s.FirstStart.UTC()
	s.ImportedAt = s.ImportedAt.UTC()
	return s, nil
}

func pgUUID(s string) (pgtype.UUID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return pgtype.UUID{}, fmt.Errorf("invalid import id %q: %w", s, err)
	}
	return pgtype.UUID{Bytes: id, Valid: true}, nil
}

// pgTx implements core.Tx on a pgx transaction.
type pgTx struct {
	tx pgx.Tx
}

// LockFile takes a transaction-scoped advisory lock keyed by the file name,
// so concurrent replacements of one file run one after another.
func (t *pgTx) LockFile(ctx context.Context, fileName string) error {
	if _, err := t.tx.Exec(ctx, "SELECT pg_advisory_xact_lock(hashtext($1))", fileName); err != nil {
		return fmt.Errorf("lock file: %w", err)
	}
	return nil
}

func (t *pgTx) DeleteSamples(ctx context.Context, fileName string) (int64, error) {
	tag, err := t.tx.Exec(ctx, "DELETE FROM samples WHERE file_name = $1", fileName)
	if err != nil {
		return 0, fmt.Errorf("delete samples: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (t *pgTx) DeleteSummary(ctx context.Context, fileName string) (int64, error) {
	tag, err := t.tx.Exec(ctx, "DELETE FROM summaries WHERE file_name = $1", fileName)
	if err != nil {
		return 0, fmt.Errorf("delete summary: %w", err)
	}
	return tag.RowsAffected(), nil
}

// InsertSamples bulk loads one batch with COPY.
func (t *pgTx) InsertSamples(ctx context.Context, importID string, samples []core.Sample) (int64, error) {
	id, err := pgUUID(importID)
	if err != nil {
		return 0, err
	}

	n, err := t.tx.CopyFrom(ctx, pgx.Identifier{"samples"}, sampleCopyColumns,
		pgx.CopyFromSlice(len(samples), func(i int) ([]any, error) {
			s := samples[i]
			return []any{id, s.FileName, s.Date, s.ExecutionTimeSeconds, s.Value}, nil
		}))
	if err != nil {
		return 0, fmt.Errorf("copy samples: %w", err)
	}
	return n, nil
}

func (t *pgTx) InsertSummary(ctx context.Context, s core.Summary) error {
	id, err := pgUUID(s.ImportID)
	if err != nil {
		return err
	}

	_, err = t.tx.Exec(ctx, `
		INSERT INTO summaries (`+pgSummaryColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		s.FileName, id, s.DeltaSeconds, s.FirstStart, s.AvgExecutionTime,
		s.AvgValue, s.MedianValue, s.MaxValue, s.MinValue, s.SampleCount, s.ImportedAt)
	if err != nil {
		return fmt.Errorf("insert summary: %w", err)
	}
	return nil
}
