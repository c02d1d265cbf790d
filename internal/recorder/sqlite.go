package recorder

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/Masterminds/squirrel"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/andrea060103/bot-trading-simulazione/internal/model"
)

// observationBatch bounds the rows per INSERT statement.
const observationBatch = 200

// SQLiteRecorder persists runs and their observations to a SQLite database.
type SQLiteRecorder struct {
	db     *sql.DB
	sq     squirrel.StatementBuilderType
	logger *zap.Logger
	mu     sync.Mutex
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string, logger *zap.Logger) (*SQLiteRecorder, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL mode so readers (the web page, external dashboards) do not block the writer.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{
		db:     db,
		sq:     squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question),
		logger: logger,
	}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	logger.Info("sqlite recorder opened", zap.String("path", dbPath))
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id               TEXT PRIMARY KEY,
			recorded_at      INTEGER NOT NULL,
			symbol           TEXT NOT NULL,
			period           TEXT,
			bar_interval     TEXT,
			source           TEXT,
			rule             TEXT,
			sizer            TEXT,
			walker           TEXT,
			initial_balance  REAL,
			final_value      REAL,
			profit_pct       REAL,
			buys             INTEGER,
			sells            INTEGER,
			holds            INTEGER,
			trades           INTEGER,
			last_label       TEXT,
			last_price       REAL,
			price_high       REAL,
			price_low        REAL,
			max_drawdown_pct REAL,
			row_count        INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_recorded ON runs(recorded_at)`,

		`CREATE TABLE IF NOT EXISTS observations (
			run_id      TEXT NOT NULL REFERENCES runs(id),
			idx         INTEGER NOT NULL,
			timestamp   INTEGER NOT NULL,
			price       REAL,
			ma          REAL,
			rsi         REAL,
			macd        REAL,
			signal_line REAL,
			label       TEXT NOT NULL,
			fraction    REAL,
			cash        REAL,
			units       REAL,
			value       REAL,
			profit_pct  REAL,
			traded      INTEGER,
			PRIMARY KEY (run_id, idx)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_observations_ts ON observations(timestamp)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

// RecordRun writes the run summary and every observation in one transaction.
func (r *SQLiteRecorder) RecordRun(run *RunRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	res := run.Result
	s := res.Summary

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	_, err = r.sq.Insert("runs").
		Columns("id", "recorded_at", "symbol", "period", "bar_interval", "source", "rule", "sizer", "walker",
			"initial_balance", "final_value", "profit_pct", "buys", "sells", "holds", "trades",
			"last_label", "last_price", "price_high", "price_low", "max_drawdown_pct", "row_count").
		Values(run.ID.String(), run.RecordedAt.Unix(), res.Request.Symbol, res.Request.Period, res.Request.Interval,
			res.Source, res.Rule, res.Sizer, res.Walker,
			finite(s.InitialBalance), finite(s.FinalValue), finite(s.ProfitPct), s.Buys, s.Sells, s.Holds, s.Trades,
			s.Last.Label.String(), finite(s.Last.Price), finite(s.High), finite(s.Low), finite(s.MaxDrawdownPct), len(res.Rows)).
		RunWith(tx).
		Exec()
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	for start := 0; start < len(res.Rows); start += observationBatch {
		end := min(start+observationBatch, len(res.Rows))
		q := r.sq.Insert("observations").
			Columns("run_id", "idx", "timestamp", "price", "ma", "rsi", "macd", "signal_line",
				"label", "fraction", "cash", "units", "value", "profit_pct", "traded")
		for i := start; i < end; i++ {
			row := res.Rows[i]
			q = q.Values(run.ID.String(), i, row.Time.Unix(), finite(row.Price),
				nullable(row.Features.MA), nullable(row.Features.RSI),
				nullable(row.Features.MACD), nullable(row.Features.SignalLine),
				row.Label.String(), finite(row.Fraction), finite(row.Cash), finite(row.Units),
				finite(row.Value), finite(row.ProfitPct), row.Traded)
		}
		if _, err := q.RunWith(tx).Exec(); err != nil {
			return fmt.Errorf("insert observations: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	r.logger.Debug("run recorded", zap.String("run_id", run.ID.String()), zap.Int("rows", len(res.Rows)))
	return nil
}

// LastRuns returns the most recent runs, newest first.
func (r *SQLiteRecorder) LastRuns(limit int) ([]StoredRun, error) {
	query, args, err := r.sq.
		Select("id", "recorded_at", "symbol", "bar_interval", "rule", "last_label",
			"last_price", "final_value", "profit_pct", "row_count").
		From("runs").
		OrderBy("recorded_at DESC", "rowid DESC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var out []StoredRun
	for rows.Next() {
		var (
			run        StoredRun
			recordedAt int64
			label      string
			lastPrice  sql.NullFloat64
			finalValue sql.NullFloat64
			profitPct  sql.NullFloat64
		)
		if err := rows.Scan(&run.ID, &recordedAt, &run.Symbol, &run.Interval, &run.Rule, &label,
			&lastPrice, &finalValue, &profitPct, &run.Rows); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		run.RecordedAt = time.Unix(recordedAt, 0).UTC()
		run.LastLabel = model.Label(label)
		run.LastPrice = lastPrice.Float64
		run.FinalValue = finalValue.Float64
		run.ProfitPct = profitPct.Float64
		out = append(out, run)
	}
	return out, rows.Err()
}

func (r *SQLiteRecorder) Close() error {
	r.logger.Info("closing sqlite recorder")
	return r.db.Close()
}
