package postgres

import (
	"context"
	"database/sql"

	_ "github.com/jackc/pgx/v5/stdlib"

	"ltprelay/internal/application/port"
)

type Repo struct {
	db *sql.DB
}

func New(dsn string) (*Repo, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)

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
  segment TEXT NOT NULL,
  symbol TEXT NOT NULL,
  price DOUBLE PRECISION NOT NULL,
  ts_ms BIGINT NOT NULL,
  PRIMARY KEY(segment, symbol)
);

CREATE TABLE IF NOT EXISTS notifications (
  id BIGSERIAL PRIMARY KEY,
  ts_ms BIGINT NOT NULL,
  symbol TEXT NOT NULL,
  price DOUBLE PRECISION NOT NULL,
  seq BIGINT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_notifications_ts ON notifications(ts_ms);
`)
	return err
}

func (r *Repo) UpsertLatestPrice(ctx context.Context, segment, symbol string, price float64, ts int64) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO latest_prices(segment, symbol, price, ts_ms)
		VALUES($1, $2, $3, $4)
		ON CONFLICT(segment, symbol) DO UPDATE SET
		price=excluded.price, ts_ms=excluded.ts_ms
	`, segment, symbol, price, ts)
	return err
}

func (r *Repo) InsertNotification(ctx context.Context, ts int64, symbol string, price float64, seq uint64) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO notifications(ts_ms, symbol, price, seq) VALUES($1, $2, $3, $4)
	`, ts, symbol, price, int64(seq))
	return err
}

var _ port.Repository = (*Repo)(nil)
