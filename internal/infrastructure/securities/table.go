package securities

// Static security-id reference tables for the instruments this relay knows
// how to watch. Ids are the exchange-assigned scrip codes used by the feed;
// they are stable and shipped with the binary rather than fetched.

const (
	SegmentNSEIndex = "NSE_INDEX"
	SegmentBSEIndex = "BSE_INDEX"
	SegmentNSEEq    = "NSE_EQ"
)

var indicesNSE = map[string]string{
	"NIFTY 50":   "13",
	"NIFTY BANK": "25",
	"BANKNIFTY":  "25",
}

var indicesBSE = map[string]string{
	"SENSEX": "51",
}

var nifty50Stocks = map[string]string{
	"AXISBANK":   "5900",
	"BHARTIARTL": "10604",
	"HDFCBANK":   "1333",
	"ICICIBANK":  "4963",
	"INFY":       "1594",
	"ITC":        "1660",
	"KOTAKBANK":  "1922",
	"LT":         "11483",
	"MARUTI":     "10999",
	"RELIANCE":   "2885",
	"SBIN":       "3045",
	"TATAMOTORS": "3456",
	"TCS":        "11536",
	"WIPRO":      "3787",
}
