package storage

// sqlite.go: historial de experimentos.
//
// Estrategia:
//   - `runs`: una fila por experimento ejecutado (métricas escalares + parámetros).
//     Las series completas no se persisten: se recalculan al re-ejecutar.
//   - Índice por created_at para listar los más recientes primero.
//   - Prune automático al arrancar: runs con más de 90 días.

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/alejandrodnm/predtrader/internal/domain"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
    id              TEXT PRIMARY KEY,
    data_path       TEXT     NOT NULL,
    epochs          INTEGER  NOT NULL,
    window_size     INTEGER  NOT NULL,
    initial_balance REAL     NOT NULL,
    final_value     REAL     NOT NULL DEFAULT 0,
    net_profit      REAL     NOT NULL DEFAULT 0,
    roi             REAL     NOT NULL DEFAULT 0,
    total_trades    INTEGER  NOT NULL DEFAULT 0,
    sharpe_ratio    REAL     NOT NULL DEFAULT 0,
    max_drawdown    REAL     NOT NULL DEFAULT 0,
    created_at      DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_runs_created ON runs(created_at DESC);
CREATE INDEX IF NOT EXISTS idx_runs_key     ON runs(data_path, epochs, window_size);
`

const (
	retentionRuns   = 90 * 24 * time.Hour // runs: 90 días
	defaultRunLimit = 20
)

// SQLiteStorage implementa ports.RunStorage usando SQLite (pure Go, sin CGo).
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage abre (o crea) la base de datos en la ruta dada.
// Aplica el schema y limpia runs antiguos.
func NewSQLiteStorage(path string) (*SQLiteStorage, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("storage.NewSQLiteStorage: open %q: %w", path, err)
	}
	db.SetMaxOpenConns(1) // SQLite es single-writer
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage.NewSQLiteStorage: apply schema: %w", err)
	}

	s := &SQLiteStorage{db: db}
	s.pruneOld(context.Background())
	return s, nil
}

// SaveRun persiste el resumen de un experimento. Un id repetido se sobreescribe.
func (s *SQLiteStorage) SaveRun(ctx context.Context, run domain.RunRecord) error {
	if run.ID == "" {
		return fmt.Errorf("storage.SaveRun: empty run id")
	}
	createdAt := run.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs
			(id, data_path, epochs, window_size, initial_balance,
			 final_value, net_profit, roi, total_trades, sharpe_ratio, max_drawdown,
			 created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			final_value  = excluded.final_value,
			net_profit   = excluded.net_profit,
			roi          = excluded.roi,
			total_trades = excluded.total_trades,
			sharpe_ratio = excluded.sharpe_ratio,
			max_drawdown = excluded.max_drawdown
	`,
		run.ID,
		run.Params.DataPath,
		run.Params.Epochs,
		run.Params.Window,
		run.Params.InitialBalance,
		run.FinalValue,
		run.NetProfit,
		run.ROI,
		run.TotalTrades,
		run.SharpeRatio,
		run.MaxDrawdown,
		createdAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("storage.SaveRun: insert %s: %w", run.ID, err)
	}
	return nil
}

// GetRuns devuelve los últimos limit runs, el más reciente primero.
// limit <= 0 usa el default (20).
func (s *SQLiteStorage) GetRuns(ctx context.Context, limit int) ([]domain.RunRecord, error) {
	if limit <= 0 {
		limit = defaultRunLimit
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, data_path, epochs, window_size, initial_balance,
		       final_value, net_profit, roi, total_trades, sharpe_ratio, max_drawdown,
		       created_at
		FROM runs
		ORDER BY created_at DESC, id
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("storage.GetRuns: query: %w", err)
	}
	defer rows.Close()

	var runs []domain.RunRecord
	for rows.Next() {
		var r domain.RunRecord
		var createdAt any
		if err := rows.Scan(
			&r.ID,
			&r.Params.DataPath,
			&r.Params.Epochs,
			&r.Params.Window,
			&r.Params.InitialBalance,
			&r.FinalValue,
			&r.NetProfit,
			&r.ROI,
			&r.TotalTrades,
			&r.SharpeRatio,
			&r.MaxDrawdown,
			&createdAt,
		); err != nil {
			return nil, fmt.Errorf("storage.GetRuns: scan row: %w", err)
		}
		r.CreatedAt = parseTime(createdAt)
		runs = append(runs, r)
	}

	return runs, rows.Err()
}

// Close cierra la conexión a la base de datos.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// --- helpers internos ---

// pruneOld elimina runs antiguos para mantener la DB ligera.
func (s *SQLiteStorage) pruneOld(ctx context.Context) {
	cutoff := time.Now().UTC().Add(-retentionRuns)
	s.db.ExecContext(ctx, `DELETE FROM runs WHERE created_at < ?`, cutoff)
}

var timeLayouts = []string{
	"2006-01-02 15:04:05.999999999-07:00",
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
}

// parseTime acepta lo que devuelva el driver para una columna DATETIME.
func parseTime(v any) time.Time {
	var s string
	switch t := v.(type) {
	case time.Time:
		return t.UTC()
	case string:
		s = t
	case []byte:
		s = string(t)
	default:
		return time.Time{}
	}
	for _, layout := range timeLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			return parsed.UTC()
		}
	}
	return time.Time{}
}
