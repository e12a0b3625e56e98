package port

import (
	"context"
	"time"

	"ltprelay/internal/domain"
)

// Tick is a decoded feed event before normalization. SecurityID may be
// unknown to the configured instrument set; the normalizer filters those.
type Tick struct {
	SecurityID string
	Segment    string
	Price      float64
	EventTime  time.Time // exchange timestamp (LTT)
}

// TickFeed is a supervised market data source. Subscribe starts the feed's
// run loop and returns a channel of decoded ticks. The channel is closed
// only when ctx is done; connection loss is handled inside the feed.
type TickFeed interface {
	Name() string
	Subscribe(ctx context.Context, instruments []domain.Instrument) (<-chan Tick, error)
}
