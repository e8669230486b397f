package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/JonMunkholm/measurestats/internal/core"
)

const (
	sqliteSummaryColumns = `file_name, import_id, delta_seconds, first_start, avg_execution_time,
	avg_value, median_value, max_value, min_value, sample_count, imported_at`

	// SQLite caps bound parameters per statement (32766 since 3.32).
	sqliteMaxVars        = 32766
	sqliteParamsPerRow   = 5
	sqliteMaxRowsPerStmt = sqliteMaxVars / sqliteParamsPerRow
)

// SQLite is the single-file store backed by modernc.org/sqlite.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens (creating if needed) the database at path. busyTimeout is
// how long a writer waits on a locked database before failing.
func NewSQLite(ctx context.Context, path string, busyTimeout time.Duration) (*SQLite, error) {
	db, err := sql.Open("sqlite", sqliteDSN(path, busyTimeout))
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	return &SQLite{db: db}, nil
}

func sqliteDSN(path string, busyTimeout time.Duration) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	ms := busyTimeout.Milliseconds()
	if ms <= 0 {
		ms = 5000
	}
	return path + sep +
		"_pragma=busy_timeout(" + strconv.FormatInt(ms, 10) + ")" +
		"&_pragma=journal_mode(WAL)" +
		"&_pragma=synchronous(NORMAL)"
}

// EnsureSchema creates the SQLite tables if they do not exist.
func (s *SQLite) EnsureSchema(ctx context.Context) error {
	return applySchema(ctx, DriverSQLite, func(ctx context.Context, q string) error {
		_, err := s.db.ExecContext(ctx, q)
		return err
	})
}

func (s *SQLite) Close() error {
	return s.db.Close()
}

func (s *SQLite) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// WithTx runs fn on a dedicated connection inside BEGIN IMMEDIATE, which
// takes the database write lock up front. Writers are therefore serialized
// and LockFile has nothing further to do.
func (s *SQLite) WithTx(ctx context.Context, fn func(tx core.Tx) error) error {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Close()

	if _, err := conn.ExecContext(ctx, "BEGIN IMMEDIATE"); err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	committed := false
	defer func() {
		if committed {
			return
		}
		if _, rbErr := conn.ExecContext(context.WithoutCancel(ctx), "ROLLBACK"); rbErr != nil {
			slog.Error("rollback failed", "error", rbErr)
		}
	}()

	if err := fn(&sqliteTx{conn: conn}); err != nil {
		return err
	}

	if _, err := conn.ExecContext(ctx, "COMMIT"); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	committed = true
	return nil
}

func (s *SQLite) CountSummaries(ctx context.Context, fs core.FilterSet) (int64, error) {
	wb := NewWhereBuilder(Question).WithArgConverter(sqliteArg)
	if err := wb.AddFilters(fs); err != nil {
		return 0, err
	}
	where, args := wb.Build()

	var count int64
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM summaries"+where, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count summaries: %w", err)
	}
	return count, nil
}

func (s *SQLite) FindSummaries(ctx context.Context, fs core.FilterSet, w core.Window) ([]core.Summary, error) {
	wb := NewWhereBuilder(Question).WithArgConverter(sqliteArg)
	if err := wb.AddFilters(fs); err != nil {
		return nil, err
	}
	where, args := wb.Build()

	query := "SELECT " + sqliteSummaryColumns + " FROM summaries" + where + summaryOrder
	if w.Limit > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, w.Limit, w.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query summaries: %w", err)
	}
	defer rows.Close()

	var items []core.Summary
	for rows.Next() {
		sum, err := scanSQLiteSummary(rows)
		if err != nil {
			return nil, fmt.Errorf("scan summary: %w", err)
		}
		items = append(items, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate summaries: %w", err)
	}
	return items, nil
}

func (s *SQLite) GetSummary(ctx context.Context, fileName string) (core.Summary, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+sqliteSummaryColumns+" FROM summaries WHERE file_name = ?", fileName)
	sum, err := scanSQLiteSummary(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Summary{}, core.ErrNotFound
	}
	if err != nil {
		return core.Summary{}, fmt.Errorf("scan summary: %w", err)
	}
	return sum, nil
}

func (s *SQLite) RecentSamples(ctx context.Context, fileName string, limit int) ([]core.RecentSample, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT ts, execution_time_seconds, value
		FROM samples
		WHERE file_name = ?
		ORDER BY ts DESC, id DESC
		LIMIT ?`, fileName, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent samples: %w", err)
	}
	defer rows.Close()

	var items []core.RecentSample
	for rows.Next() {
		var (
			r  core.RecentSample
			ts int64
		)
		if err := rows.Scan(&ts, &r.ExecutionTimeSeconds, &r.Value); err != nil {
			return nil, fmt.Errorf("scan recent sample: %w", err)
		}
		r.Date = fromUnixNano(ts)
		items = append(items, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate recent samples: %w", err)
	}
	return items, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteSummary(row rowScanner) (core.Summary, error) {
	var (
		s                      core.Summary
		firstStart, importedAt int64
	)
	err := row.Scan(&s.FileName, &s.ImportID, &s.DeltaSeconds, &firstStart, &s.AvgExecutionTime,
		&s.AvgValue, &s.MedianValue, &s.MaxValue, &s.MinValue, &s.SampleCount, &importedAt)
	if err != nil {
		return s, err
	}
	s.FirstStart = fromUnixNano(firstStart)
	s.ImportedAt = fromUnixNano(importedAt)
	return s, nil
}

// sqliteArg converts bound values to their stored representation.
func sqliteArg(v any) any {
	if t, ok := v.(time.Time); ok {
		return t.UTC().UnixNano()
	}
	return v
}

func fromUnixNano(n int64) time.Time {
	return time.Unix(0, n).UTC()
}

// sqliteTx implements core.Tx on a connection holding an open transaction.
type sqliteTx struct {
	conn *sql.Conn
}

func (t *sqliteTx) LockFile(context.Context, string) error {
	return nil
}

func (t *sqliteTx) DeleteSamples(ctx context.Context, fileName string) (int64, error) {
	res, err := t.conn.ExecContext(ctx, "DELETE FROM samples WHERE file_name = ?", fileName)
	if err != nil {
		return 0, fmt.Errorf("delete samples: %w", err)
	}
	return res.RowsAffected()
}

func (t *sqliteTx) DeleteSummary(ctx context.Context, fileName string) (int64, error) {
	res, err := t.conn.ExecContext(ctx, "DELETE FROM summaries WHERE file_name = ?", fileName)
	if err != nil {
		return 0, fmt.Errorf("delete summary: %w", err)
	}
	return res.RowsAffected()
}

// InsertSamples writes samples with multi-row INSERT statements sized to
// stay under the bound parameter limit.
func (t *sqliteTx) InsertSamples(ctx context.Context, importID string, samples []core.Sample) (int64, error) {
	var total int64
	for start := 0; start < len(samples); start += sqliteMaxRowsPerStmt {
		end := min(start+sqliteMaxRowsPerStmt, len(samples))
		part := samples[start:end]

		var sb strings.Builder
		sb.WriteString("INSERT INTO samples (import_id, file_name, ts, execution_time_seconds, value) VALUES ")
		args := make([]any, 0, len(part)*sqliteParamsPerRow)
		for i, s := range part {
			if i > 0 {
				sb.WriteString(",")
			}
			sb.WriteString("(?,?,?,?,?)")
			args = append(args, importID, s.FileName, s.Date.UTC().UnixNano(), s.ExecutionTimeSeconds, s.Value)
		}

		res, err := t.conn.ExecContext(ctx, sb.String(), args...)
		if err != nil {
			return total, fmt.Errorf("insert samples: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}

func (t *sqliteTx) InsertSummary(ctx context.Context, s core.Summary) error {
	_, err := t.conn.ExecContext(ctx, `
		INSERT INTO summaries (`+sqliteSummaryColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.FileName, s.ImportID, s.DeltaSeconds, s.FirstStart.UTC().UnixNano(), s.AvgExecutionTime,
		s.AvgValue, s.MedianValue, s.MaxValue, s.MinValue, s.SampleCount, s.ImportedAt.UTC().UnixNano())
	if err != nil {
		return fmt.Errorf("insert summary: %w", err)
	}
	return nil
}
