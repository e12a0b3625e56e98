package dhan

import (
	"encoding/binary"
	"errors"
	"math"
	"testing"
	"time"
)

func tickerFrame(segment byte, sid uint32, price float32, ltt uint32) []byte {
	b := make([]byte, 16)
	b[0] = codeTicker
	binary.LittleEndian.PutUint16(b[1:3], 16)
	b[3] = segment
	binary.LittleEndian.PutUint32(b[4:8], sid)
	binary.LittleEndian.PutUint32(b[8:12], math.Float32bits(price))
	binary.LittleEndian.PutUint32(b[12:16], ltt)
	return b
}

func TestDecodeTickerFrame(t *testing.T) {
	ltt := uint32(1_700_000_000)
	frame := tickerFrame(1, 2885, 2885.4, ltt)

	tick, ok, err := decodeFrame(frame)
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("ticker frame not decoded")
	}
	if tick.SecurityID != "2885" {
		t.Errorf("security id: got %s, want 2885", tick.SecurityID)
	}
	if tick.Segment != "NSE_EQ" {
		t.Errorf("segment: got %s, want NSE_EQ", tick.Segment)
	}
	if want := float64(float32(2885.4)); tick.Price != want {
		t.Errorf("price: got %v, want %v", tick.Price, want)
	}
	if !tick.EventTime.Equal(time.Unix(int64(ltt), 0)) {
		t.Errorf("event time: got %v", tick.EventTime)
	}
}

func TestDecodeShortFrames(t *testing.T) {
	cases := [][]byte{
		nil,
		{codeTicker},
		tickerFrame(1, 2885, 2885.4, 0)[:7],  // truncated header
		tickerFrame(1, 2885, 2885.4, 0)[:12], // truncated payload
	}
	for i, frame := range cases {
		if _, ok, err := decodeFrame(frame); err == nil || ok {
			t.Errorf("case %d: truncated frame not rejected (ok=%v err=%v)", i, ok, err)
		}
	}
}

func TestDecodeDisconnectFrame(t *testing.T) {
	b := make([]byte, 10)
	b[0] = codeDisconnect
	binary.LittleEndian.PutUint16(b[1:3], 10)
	binary.LittleEndian.PutUint16(b[8:10], 805)

	_, ok, err := decodeFrame(b)
	if ok {
		t.Fatal("disconnect frame produced a tick")
	}
	var disc *DisconnectError
	if !errors.As(err, &disc) {
		t.Fatalf("expected DisconnectError, got %v", err)
	}
	if disc.Reason != 805 {
		t.Errorf("reason: got %d, want 805", disc.Reason)
	}
}

func TestDecodeSkipsUnconsumedPacketTypes(t *testing.T) {
	b := make([]byte, 16)
	b[0] = codePrevClose
	binary.LittleEndian.PutUint16(b[1:3], 16)

	_, ok, err := decodeFrame(b)
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("prev-close packet should be skipped, not decoded")
	}
}

func TestDecodeUnknownSegmentFallsBackToNumber(t *testing.T) {
	tick, ok, err := decodeFrame(tickerFrame(42, 7, 100.5, 1_700_000_000))
	if err != nil || !ok {
		t.Fatalf("decode failed: ok=%v err=%v", ok, err)
	}
	if tick.Segment != "42" {
		t.Errorf("segment: got %s, want 42", tick.Segment)
	}
}
