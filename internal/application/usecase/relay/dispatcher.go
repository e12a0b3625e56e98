package relay

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"ltprelay/internal/application/port"
	"ltprelay/internal/domain"
)

const (
	defaultMaxAttempts = 3
	defaultRetryBase   = 1 * time.Second
)

// DispatcherConfig tunes channel-side retries. These are independent of
// the feed's reconnect policy.
type DispatcherConfig struct {
	MaxAttempts int
	RetryBase   time.Duration
}

func (c *DispatcherConfig) applyDefaults() {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = defaultMaxAttempts
	}
	if c.RetryBase <= 0 {
		c.RetryBase = defaultRetryBase
	}
}

type dispatchWorker struct {
	inst     domain.Instrument
	slot     chan domain.PriceUpdate // capacity 1, newest update wins
	lastSent uint64
}

// Dispatcher delivers throttled updates to the message sink. One worker
// goroutine per instrument serializes sends, so messages for the same
// instrument go out in non-decreasing sequence order; an update that loses
// its slot to a newer one is simply never sent.
//
// Rate-limit errors are retried up to MaxAttempts using the channel's
// retry-after hint when present, then the message is dropped: the next
// flush carries a fresher price, so re-queueing stale snapshots is
// counterproductive. Permanent errors stop the relay via Fatal.
type Dispatcher struct {
	sink port.MessageSink
	repo port.Repository
	fm   *Formatter
	cfg  DispatcherConfig

	workers map[string]*dispatchWorker
	wg      sync.WaitGroup

	fatalOnce sync.Once
	fatalCh   chan error

	sleep func(ctx context.Context, d time.Duration) bool
}

func NewDispatcher(sink port.MessageSink, repo port.Repository, fm *Formatter, instruments []domain.Instrument, cfg DispatcherConfig) *Dispatcher {
	cfg.applyDefaults()
	workers := make(map[string]*dispatchWorker, len(instruments))
	for _, inst := range instruments {
		workers[inst.SecurityID] = &dispatchWorker{
			inst: inst,
			slot: make(chan domain.PriceUpdate, 1),
		}
	}
	return &Dispatcher{
		sink:    sink,
		repo:    repo,
		fm:      fm,
		cfg:     cfg,
		workers: workers,
		fatalCh: make(chan error, 1),
		sleep:   sleepCtx,
	}
}

// Start launches the per-instrument workers. Workers exit when ctx ends.
func (d *Dispatcher) Start(ctx context.Context) {
	for _, w := range d.workers {
		d.wg.Add(1)
		go d.runWorker(ctx, w)
	}
}

// Dispatch hands an update to its instrument's worker. If the worker is
// still busy with an older update, the pending one is replaced.
func (d *Dispatcher) Dispatch(u domain.PriceUpdate) {
	w, ok := d.workers[u.Instrument.SecurityID]
	if !ok {
		return
	}
	for {
		select {
		case w.slot <- u:
			return
		default:
			select {
			case <-w.slot:
			default:
			}
		}
	}
}

// Fatal yields the first permanent channel error, if any.
func (d *Dispatcher) Fatal() <-chan error { return d.fatalCh }

// Shutdown waits for in-flight sends to finish or abort, bounded by grace.
func (d *Dispatcher) Shutdown(grace time.Duration) {
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(grace):
		log.Warn().Dur("grace", grace).Msg("dispatch workers did not drain in time")
	}
}

func (d *Dispatcher) runWorker(ctx context.Context, w *dispatchWorker) {
	defer d.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case u := <-w.slot:
			if u.Sequence <= w.lastSent {
				continue
			}
			if err := d.deliver(ctx, u); err != nil {
				continue
			}
			w.lastSent = u.Sequence
			_ = d.repo.InsertNotification(ctx, u.EventTime.UnixMilli(), u.Instrument.Symbol, u.Price, u.Sequence)
		}
	}
}

func (d *Dispatcher) deliver(ctx context.Context, u domain.PriceUpdate) error {
	text := d.fm.Format(u)

	var lastErr error
	for attempt := 1; attempt <= d.cfg.MaxAttempts; attempt++ {
		err := d.sink.Send(ctx, text)
		if err == nil {
			return nil
		}
		lastErr = err

		var perm *port.PermanentError
		if errors.As(err, &perm) {
			d.fail(err)
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if attempt == d.cfg.MaxAttempts {
			break
		}

		// fixed retry-after when the channel advertises one, else
		// exponential from RetryBase
		delay := d.cfg.RetryBase << (attempt - 1)
		var rl *port.RateLimitedError
		if errors.As(err, &rl) && rl.RetryAfter > 0 {
			delay = rl.RetryAfter
		}
		log.Warn().Str("sink", d.sink.Name()).
			Str("symbol", u.Instrument.Symbol).
			Int("attempt", attempt).
			Dur("delay", delay).
			Err(err).
			Msg("send failed, retrying")
		if !d.sleep(ctx, delay) {
			return ctx.Err()
		}
	}

	log.Warn().Str("sink", d.sink.Name()).
		Str("symbol", u.Instrument.Symbol).
		Uint64("seq", u.Sequence).
		Err(lastErr).
		Msg("message dropped after retries")
	return lastErr
}

func (d *Dispatcher) fail(err error) {
	d.fatalOnce.Do(func() {
		d.fatalCh <- err
	})
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
