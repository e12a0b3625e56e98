package domain

import "time"

// Instrument is one entry of the configured watch set. The set is resolved
// once at startup and never changes for the lifetime of the process.
type Instrument struct {
	SecurityID string // exchange-assigned opaque id, e.g. "2885"
	Segment    string // e.g. "NSE_EQ", "NSE_INDEX", "BSE_INDEX"
	Symbol     string // display name, e.g. "RELIANCE"
}

// PriceUpdate is a normalized last-traded-price event.
//
// Sequence is assigned by the normalizer and strictly increases per
// instrument; consumers may rely on it for ordering and staleness checks.
type PriceUpdate struct {
	Instrument Instrument
	Price      float64
	EventTime  time.Time
	Sequence   uint64
}
