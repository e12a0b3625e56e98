package relay

import (
	"fmt"

	"ltprelay/internal/domain"
)

const defaultTimeLayout = "15:04:05"

// Formatter renders one outbound chat line per update, e.g.
//
//	LTP RELIANCE (NSE_EQ): 2885.40 @ 13:37:05
type Formatter struct {
	TimeLayout string
}

func NewFormatter() *Formatter {
	return &Formatter{TimeLayout: defaultTimeLayout}
}

func (f *Formatter) Format(u domain.PriceUpdate) string {
	return fmt.Sprintf("LTP %s (%s): %.2f @ %s",
		u.Instrument.Symbol, u.Instrument.Segment, u.Price, u.EventTime.Format(f.TimeLayout))
}
