package relay

import (
	"context"

	"ltprelay/internal/application/port"
)

type noopRepo struct{}

// NewNoopRepo returns a Repository that discards everything; used when no
// storage backend is configured.
func NewNoopRepo() port.Repository { return &noopRepo{} }

func (n *noopRepo) UpsertLatestPrice(ctx context.Context, segment, symbol string, price float64, ts int64) error {
	return nil
}

func (n *noopRepo) InsertNotification(ctx context.Context, ts int64, symbol string, price float64, seq uint64) error {
	return nil
}

func (n *noopRepo) Close() error { return nil }
