package store

import (
	"database/sql"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"

	"QuantChannel/internal/model"
)

// SQLiteStore persists analysis records to a SQLite database.
type SQLiteStore struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteStore opens (or creates) the SQLite database and runs migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL mode for better concurrent read performance (dashboards read
	// while the scanner writes).
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Info().Str("path", dbPath).Msg("sqlite store opened")
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS analysis_records (
			id                   INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id               TEXT NOT NULL,
			symbol               TEXT NOT NULL,
			interval             TEXT NOT NULL,
			current_price        REAL,
			signal               TEXT,
			potential_return_pct REAL,
			lower_band           REAL,
			upper_band           REAL,
			total_return_pct     REAL,
			sharpe_ratio         REAL,
			max_drawdown_pct     REAL,
			degree               INTEGER,
			k_std                REAL,
			lookback             INTEGER,
			analyzed_at          INTEGER NOT NULL,
			UNIQUE(symbol, interval)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_records_run ON analysis_records(run_id)`,
		`CREATE INDEX IF NOT EXISTS idx_records_ts ON analysis_records(analyzed_at)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("exec %q: %w", stmt[:40], err)
		}
	}
	return nil
}

// Save upserts one record: the previous analysis of the same symbol and
// interval is replaced, never mutated in place.
func (s *SQLiteStore) Save(rec *model.AnalysisRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`INSERT INTO analysis_records
		(run_id, symbol, interval, current_price, signal, potential_return_pct,
		 lower_band, upper_band, total_return_pct, sharpe_ratio, max_drawdown_pct,
		 degree, k_std, lookback, analyzed_at)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)
		ON CONFLICT(symbol, interval) DO UPDATE SET
		 run_id=excluded.run_id,
		 current_price=excluded.current_price,
		 signal=excluded.signal,
		 potential_return_pct=excluded.potential_return_pct,
		 lower_band=excluded.lower_band,
		 upper_band=excluded.upper_band,
		 total_return_pct=excluded.total_return_pct,
		 sharpe_ratio=excluded.sharpe_ratio,
		 max_drawdown_pct=excluded.max_drawdown_pct,
		 degree=excluded.degree,
		 k_std=excluded.k_std,
		 lookback=excluded.lookback,
		 analyzed_at=excluded.analyzed_at`,
		rec.RunID, rec.Symbol, rec.Interval, rec.CurrentPrice, string(rec.Signal),
		rec.PotentialReturnPercent, rec.LowerBand, rec.UpperBand,
		rec.Stats.TotalReturnPercent, rec.Stats.SharpeRatio, rec.Stats.MaxDrawdownPercent,
		rec.Degree, rec.KStd, rec.Lookback, rec.AnalyzedAt.Unix(),
	)
	return err
}

func (s *SQLiteStore) Close() error {
	log.Info().Msg("closing sqlite store")
	return s.db.Close()
}
