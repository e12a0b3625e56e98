package sqlite

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"ltprelay/internal/application/port"
)

type Repo struct {
	db *sql.DB
}

func New(path string) (*Repo, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		_ = os.MkdirAll(dir, 0o755)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)

	r := &Repo{db: db}
	if err := r.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return r, nil
}

func (r *Repo) Close() error { return r.db.Close() }

func (r *Repo) migrate(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS latest_prices (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  segment TEXT NOT NULL,
  symbol TEXT NOT NULL,
  price REAL NOT NULL,
  ts_ms INTEGER NOT NULL,
  updated_at INTEGER NOT NULL,
  UNIQUE(segment, symbol)
);
CREATE INDEX IF NOT EXISTS idx_latest_prices_symbol ON latest_prices(symbol);

CREATE TABLE IF NOT EXISTS notifications (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  ts_ms INTEGER NOT NULL,
  symbol TEXT NOT NULL,
  price REAL NOT NULL,
  seq INTEGER NOT NULL,
  created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_notifications_ts ON notifications(ts_ms);
CREATE INDEX IF NOT EXISTS idx_notifications_symbol ON notifications(symbol);
`)
	return err
}

func (r *Repo) UpsertLatestPrice(ctx context.Context, segment, symbol string, price float64, ts int64) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO latest_prices(segment, symbol, price, ts_ms, updated_at)
		VALUES(?, ?, ?, ?, ?)
		ON CONFLICT(segment, symbol) DO UPDATE SET
		price=excluded.price, ts_ms=excluded.ts_ms, updated_at=excluded.updated_at
	`, segment, symbol, price, ts, time.Now().UnixMilli())
	return err
}

func (r *Repo) InsertNotification(ctx context.Context, ts int64, symbol string, price float64, seq uint64) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO notifications(ts_ms, symbol, price, seq, created_at)
		VALUES(?, ?, ?, ?, ?)
	`, ts, symbol, price, int64(seq), time.Now().UnixMilli())
	return err
}

var _ port.Repository = (*Repo)(nil)
