package relay

import (
	"math"
	"time"

	"github.com/rs/zerolog/log"

	"ltprelay/internal/application/port"
	"ltprelay/internal/domain"
)

type instrumentTrack struct {
	seq       uint64
	eventTime time.Time
}

// Normalizer turns raw feed ticks into PriceUpdates. It drops ticks for
// unknown security ids, non-positive or non-finite prices, and ticks whose
// exchange timestamp regresses (ordering is not guaranteed by the
// transport). Accepted updates get a per-instrument strictly increasing
// sequence.
//
// Not safe for concurrent use; the relay service is its only caller.
type Normalizer struct {
	byID  map[string]domain.Instrument
	track map[string]*instrumentTrack

	droppedUnknown uint64
	droppedPrice   uint64
	droppedStale   uint64
}

func NewNormalizer(instruments []domain.Instrument) *Normalizer {
	byID := make(map[string]domain.Instrument, len(instruments))
	track := make(map[string]*instrumentTrack, len(instruments))
	for _, inst := range instruments {
		byID[inst.SecurityID] = inst
		track[inst.SecurityID] = &instrumentTrack{}
	}
	return &Normalizer{byID: byID, track: track}
}

func (n *Normalizer) Normalize(t port.Tick) (domain.PriceUpdate, bool) {
	inst, ok := n.byID[t.SecurityID]
	if !ok {
		n.droppedUnknown++
		log.Debug().Str("security_id", t.SecurityID).Str("segment", t.Segment).Msg("tick for unknown security id")
		return domain.PriceUpdate{}, false
	}

	if t.Price <= 0 || math.IsNaN(t.Price) || math.IsInf(t.Price, 0) {
		n.droppedPrice++
		return domain.PriceUpdate{}, false
	}

	tr := n.track[inst.SecurityID]
	if !tr.eventTime.IsZero() && t.EventTime.Before(tr.eventTime) {
		n.droppedStale++
		return domain.PriceUpdate{}, false
	}

	tr.seq++
	tr.eventTime = t.EventTime
	return domain.PriceUpdate{
		Instrument: inst,
		Price:      t.Price,
		EventTime:  t.EventTime,
		Sequence:   tr.seq,
	}, true
}

// Drops reports how many ticks were discarded, by cause.
func (n *Normalizer) Drops() (unknown, badPrice, stale uint64) {
	return n.droppedUnknown, n.droppedPrice, n.droppedStale
}
