package relay

import (
	"context"
	"strings"
	"testing"
	"time"

	"ltprelay/internal/application/port"
	"ltprelay/internal/domain"
)

type fakeTickFeed struct {
	ch chan port.Tick
}

func (f *fakeTickFeed) Name() string { return "fake" }

func (f *fakeTickFeed) Subscribe(ctx context.Context, _ []domain.Instrument) (<-chan port.Tick, error) {
	return f.ch, nil
}

// blockingRepo hangs every latest-price write until its context dies,
// standing in for an unreachable storage backend.
type blockingRepo struct{}

func (r *blockingRepo) UpsertLatestPrice(ctx context.Context, segment, symbol string, price float64, ts int64) error {
	<-ctx.Done()
	return ctx.Err()
}

func (r *blockingRepo) InsertNotification(ctx context.Context, ts int64, symbol string, price float64, seq uint64) error {
	return nil
}

func (r *blockingRepo) Close() error { return nil }

func TestServiceBurstYieldsOneMessagePerFlush(t *testing.T) {
	feed := &fakeTickFeed{ch: make(chan port.Tick, 64)}
	sink := &fakeSink{}

	svc := NewService(ServiceDeps{
		Feed:          feed,
		Instruments:   testInstruments,
		Sink:          sink,
		Repo:          NewNoopRepo(),
		FlushInterval: 50 * time.Millisecond,
		ShutdownGrace: time.Second,
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Run(ctx) }()

	base := time.Unix(1_700_000_000, 0)
	for i := 1; i <= 50; i++ {
		feed.ch <- port.Tick{
			SecurityID: "2885",
			Segment:    "NSE_EQ",
			Price:      2800 + float64(i),
			EventTime:  base.Add(time.Duration(i) * time.Millisecond),
		}
	}

	waitFor(t, func() bool { _, sent := sink.snapshot(); return len(sent) >= 1 })

	// no further flush output without new ticks
	time.Sleep(120 * time.Millisecond)
	_, sent := sink.snapshot()
	if len(sent) != 1 {
		t.Fatalf("expected exactly 1 message for the burst, got %d: %v", len(sent), sent)
	}
	if !strings.Contains(sent[0], "2850.00") {
		t.Errorf("message %q does not carry the newest price", sent[0])
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("service did not stop on cancel")
	}
}

func TestServiceStalledStorageDoesNotBlockTickPath(t *testing.T) {
	feed := &fakeTickFeed{ch: make(chan port.Tick, 64)}
	sink := &fakeSink{}

	svc := NewService(ServiceDeps{
		Feed:          feed,
		Instruments:   testInstruments,
		Sink:          sink,
		Repo:          &blockingRepo{},
		FlushInterval: 50 * time.Millisecond,
		ShutdownGrace: time.Second,
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Run(ctx) }()

	// keep ticking across several flush periods while every storage write
	// hangs; messages must still flow
	base := time.Unix(1_700_000_000, 0)
	feeding := make(chan struct{})
	go func() {
		defer close(feeding)
		for i := 1; i <= 40; i++ {
			feed.ch <- port.Tick{
				SecurityID: "2885",
				Segment:    "NSE_EQ",
				Price:      2800 + float64(i),
				EventTime:  base.Add(time.Duration(i) * time.Second),
			}
			time.Sleep(10 * time.Millisecond)
		}
	}()

	waitFor(t, func() bool { _, sent := sink.snapshot(); return len(sent) >= 2 })

	cancel()
	<-feeding
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("service did not stop with storage stalled")
	}
}
