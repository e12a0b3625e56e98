package dhan

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"ltprelay/internal/application/port"
)

// Binary response framing. Every message starts with an 8-byte
// little-endian header:
//
//	offset 0  uint8   packet code
//	offset 1  uint16  message length including header
//	offset 3  uint8   exchange segment
//	offset 4  uint32  security id
//
// A ticker packet (code 2) carries LTP as float32 and the last trade time
// as uint32 epoch seconds. Code 50 is a server-initiated disconnect with a
// uint16 reason code.
const (
	headerSize = 8

	codeTicker       = 2
	codePrevClose    = 6
	codeMarketStatus = 7
	codeDisconnect   = 50
)

var (
	errShortFrame = errors.New("frame shorter than declared length")
)

// DisconnectError is surfaced when the server sends a disconnect packet;
// the connection is unusable afterwards.
type DisconnectError struct {
	Reason uint16
}

func (e *DisconnectError) Error() string {
	return fmt.Sprintf("server disconnect, reason code %d", e.Reason)
}

var segmentNames = map[byte]string{
	0: "IDX",
	1: "NSE_EQ",
	2: "NSE_FNO",
	3: "NSE_CURRENCY",
	4: "BSE_EQ",
	5: "MCX_COMM",
	7: "BSE_CURRENCY",
	8: "BSE_FNO",
}

func segmentName(b byte) string {
	if n, ok := segmentNames[b]; ok {
		return n
	}
	return strconv.Itoa(int(b))
}

// decodeFrame parses one binary message. ok is false for packet types the
// relay does not consume (prev close, market status, quote depth). A
// non-nil error means the frame is malformed or the server disconnected;
// only the disconnect error is fatal to the connection.
func decodeFrame(b []byte) (t port.Tick, ok bool, err error) {
	if len(b) < headerSize {
		return port.Tick{}, false, errShortFrame
	}
	code := b[0]
	length := int(binary.LittleEndian.Uint16(b[1:3]))
	segment := b[3]
	sid := binary.LittleEndian.Uint32(b[4:8])

	if length > len(b) {
		return port.Tick{}, false, errShortFrame
	}

	switch code {
	case codeTicker:
		if len(b) < headerSize+8 {
			return port.Tick{}, false, errShortFrame
		}
		px := math.Float32frombits(binary.LittleEndian.Uint32(b[8:12]))
		ltt := binary.LittleEndian.Uint32(b[12:16])
		return port.Tick{
			SecurityID: strconv.FormatUint(uint64(sid), 10),
			Segment:    segmentName(segment),
			Price:      float64(px),
			EventTime:  time.Unix(int64(ltt), 0),
		}, true, nil

	case codeDisconnect:
		var reason uint16
		if len(b) >= headerSize+2 {
			reason = binary.LittleEndian.Uint16(b[8:10])
		}
		return port.Tick{}, false, &DisconnectError{Reason: reason}

	default:
		// quote/prev-close/market-status packets are not subscribed in
		// ticker mode but may still arrive; skip them.
		return port.Tick{}, false, nil
	}
}
