package securities

import (
	"strings"

	"github.com/rs/zerolog/log"

	"ltprelay/internal/domain"
)

// Kind selects which reference table a configured symbol is resolved
// against.
const (
	KindNSEIndex = "indices_nse"
	KindBSEIndex = "indices_bse"
	KindEquity   = "equity"
)

// Spec is one instrument line from configuration. SecurityID and Segment
// may be set explicitly to bypass the reference tables (e.g. instruments
// not in the shipped set).
type Spec struct {
	Symbol     string
	Kind       string
	SecurityID string
	Segment    string
}

// Resolve maps a Spec to a concrete Instrument. Returns false when the
// symbol is not in the reference table and no explicit id was given.
func Resolve(s Spec) (domain.Instrument, bool) {
	sym := strings.ToUpper(strings.TrimSpace(s.Symbol))
	if sym == "" {
		return domain.Instrument{}, false
	}

	if id := strings.TrimSpace(s.SecurityID); id != "" {
		seg := strings.TrimSpace(s.Segment)
		if seg == "" {
			seg = SegmentNSEEq
		}
		return domain.Instrument{SecurityID: id, Segment: seg, Symbol: sym}, true
	}

	var (
		id  string
		seg string
	)
	switch strings.ToLower(strings.TrimSpace(s.Kind)) {
	case KindNSEIndex:
		id = indicesNSE[sym]
		seg = SegmentNSEIndex
	case KindBSEIndex:
		id = indicesBSE[sym]
		seg = SegmentBSEIndex
	default:
		id = nifty50Stocks[sym]
		seg = SegmentNSEEq
	}
	if id == "" {
		return domain.Instrument{}, false
	}
	return domain.Instrument{SecurityID: id, Segment: seg, Symbol: sym}, true
}

// ResolveAll resolves every spec, logging and skipping the ones the tables
// do not know. Duplicate security ids keep the first occurrence.
func ResolveAll(specs []Spec) []domain.Instrument {
	out := make([]domain.Instrument, 0, len(specs))
	seen := map[string]struct{}{}
	for _, s := range specs {
		inst, ok := Resolve(s)
		if !ok {
			log.Warn().Str("symbol", s.Symbol).Str("kind", s.Kind).Msg("could not resolve symbol")
			continue
		}
		if _, dup := seen[inst.SecurityID]; dup {
			continue
		}
		seen[inst.SecurityID] = struct{}{}
		out = append(out, inst)
		log.Info().Str("symbol", inst.Symbol).Str("segment", inst.Segment).Str("security_id", inst.SecurityID).Msg("resolved instrument")
	}
	return out
}
