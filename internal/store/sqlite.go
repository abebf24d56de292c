package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

type Store struct {
	db *sql.DB
}

type QuoteRecord struct {
	TS        int64   `json:"ts"`
	Symbol    string  `json:"symbol"`
	Name      string  `json:"name"`
	Price     float64 `json:"price"`
	PrevClose float64 `json:"prev_close"`
	ChangePct float64 `json:"change_pct"`
	Volume    float64 `json:"volume"`
	Source    string  `json:"source"`
	CreatedAt string  `json:"created_at"`
}

type SignalRecord struct {
	ID          int64   `json:"id"`
	TS          int64   `json:"ts"`
	Symbol      string  `json:"symbol"`
	Type        string  `json:"type"`
	Direction   string  `json:"direction"`
	Strength    float64 `json:"strength"`
	Confidence  float64 `json:"confidence"`
	Description string  `json:"description"`
	CreatedAt   string  `json:"created_at"`
}

func Open(path string) (*Store, error) {
	if path == "" {
		path = "data/app.db"
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("pragma wal: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=3000;"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("pragma busy_timeout: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS quote_snapshot (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			ts INTEGER NOT NULL,
			symbol TEXT,
			name TEXT,
			price REAL,
			prev_close REAL,
			change_pct REAL,
			volume REAL,
			source TEXT,
			created_at TEXT
		);`,
		`CREATE INDEX IF NOT EXISTS idx_quote_snapshot_ts ON quote_snapshot(ts);`,
		`CREATE INDEX IF NOT EXISTS idx_quote_snapshot_symbol ON quote_snapshot(symbol);`,
		`CREATE TABLE IF NOT EXISTS signals (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			ts INTEGER NOT NULL,
			symbol TEXT,
			type TEXT,
			direction TEXT,
			strength REAL,
			confidence REAL,
			description TEXT,
			created_at TEXT
		);`,
		`CREATE INDEX IF NOT EXISTS idx_signals_ts ON signals(ts);`,
		`CREATE INDEX IF NOT EXISTS idx_signals_symbol ON signals(symbol);`,
		`CREATE INDEX IF NOT EXISTS idx_signals_type ON signals(type);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

func (s *Store) InsertQuote(q QuoteRecord) error {
	if s == nil || s.db == nil {
		return nil
	}
	if q.CreatedAt == "" {
		q.CreatedAt = time.Now().Format(time.RFC3339)
	}
	_, err := s.db.Exec(
		`INSERT INTO quote_snapshot (ts, symbol, name, price, prev_close, change_pct, volume, source, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		q.TS, q.Symbol, q.Name, q.Price, q.PrevClose, q.ChangePct, q.Volume, q.Source, q.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert quote: %w", err)
	}
	return nil
}

func (s *Store) QueryQuotes(symbol string, limit int, offset int) ([]QuoteRecord, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("store not initialized")
	}
	limit, offset = clampPage(limit, offset)
	rows, err := s.db.Query(
		`SELECT ts, symbol, name, price, prev_close, change_pct, volume, source, created_at
		 FROM quote_snapshot WHERE symbol = ?
		 ORDER BY ts DESC LIMIT ? OFFSET ?`,
		symbol, limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("query quotes: %w", err)
	}
	defer rows.Close()
	var out []QuoteRecord
	for rows.Next() {
		var q QuoteRecord
		if err := rows.Scan(&q.TS, &q.Symbol, &q.Name, &q.Price, &q.PrevClose, &q.ChangePct, &q.Volume, &q.Source, &q.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan quote: %w", err)
		}
		out = append(out, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows quote: %w", err)
	}
	return out, nil
}

func (s *Store) InsertSignal(rec SignalRecord) error {
	if s == nil || s.db == nil {
		return nil
	}
	if rec.CreatedAt == "" {
		rec.CreatedAt = time.Now().Format(time.RFC3339)
	}
	_, err := s.db.Exec(
		`INSERT INTO signals (ts, symbol, type, direction, strength, confidence, description, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.TS, rec.Symbol, rec.Type, rec.Direction, rec.Strength, rec.Confidence, rec.Description, rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert signal: %w", err)
	}
	return nil
}

func (s *Store) QuerySignalsByDate(date string, symbol string, sigType string, limit int, offset int) ([]SignalRecord, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("store not initialized")
	}
	start, end, err := dateRange(date)
	if err != nil {
		return nil, err
	}
	limit, offset = clampPage(limit, offset)

	query := `SELECT id, ts, symbol, type, direction, strength, confidence, description, created_at
		FROM signals WHERE ts >= ? AND ts < ?`
	args := []any{start, end}
	if symbol != "" {
		query += " AND symbol = ?"
		args = append(args, symbol)
	}
	if sigType != "" {
		query += " AND type = ?"
		args = append(args, sigType)
	}
	query += " ORDER BY ts DESC LIMIT ? OFFSET ?"
	args = append(args, limit, offset)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query signals: %w", err)
	}
	defer rows.Close()
	var out []SignalRecord
	for rows.Next() {
		var rec SignalRecord
		if err := rows.Scan(&rec.ID, &rec.TS, &rec.Symbol, &rec.Type, &rec.Direction, &rec.Strength, &rec.Confidence, &rec.Description, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan signal: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows signal: %w", err)
	}
	return out, nil
}

func clampPage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = 200
	}
	if limit > 1000 {
		limit = 1000
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

func dateRange(date string) (int64, int64, error) {
	loc, err := time.LoadLocation("Asia/Shanghai")
	if err != nil {
		return 0, 0, fmt.Errorf("load tz: %w", err)
	}
	t, err := time.ParseInLocation("2006-01-02", date, loc)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid date: %q", date)
	}
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
	end := start.Add(24 * time.Hour)
	return start.Unix(), end.Unix(), nil
}
