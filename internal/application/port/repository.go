package port

import "context"

// Repository persists relay observations. Implementations must be safe for
// concurrent use; failures are logged by callers and never block the relay.
type Repository interface {
	// UpsertLatestPrice stores the most recent accepted price per instrument.
	UpsertLatestPrice(ctx context.Context, segment, symbol string, price float64, ts int64) error

	// InsertNotification records one message delivered to the channel.
	InsertNotification(ctx context.Context, ts int64, symbol string, price float64, seq uint64) error

	Close() error
}
