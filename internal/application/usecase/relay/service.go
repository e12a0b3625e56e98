package relay

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"ltprelay/internal/application/port"
	"ltprelay/internal/domain"
)

const (
	defaultFlushInterval = 5 * time.Second
	persistQueueSize     = 256
)

// ServiceDeps wires the relay pipeline together.
type ServiceDeps struct {
	Feed        port.TickFeed
	Instruments []domain.Instrument
	Sink        port.MessageSink
	Repo        port.Repository

	FlushInterval time.Duration
	ShutdownGrace time.Duration
	Dispatch      DispatcherConfig
}

// Service runs the relay: feed ticks are normalized and recorded into the
// throttler; a timer drains the throttler into the dispatcher. One
// goroutine owns the tick/flush loop, dispatch workers run on their own.
type Service struct {
	deps ServiceDeps
	norm *Normalizer
	thr  *Throttler
	disp *Dispatcher
}

func NewService(deps ServiceDeps) *Service {
	if deps.FlushInterval <= 0 {
		deps.FlushInterval = defaultFlushInterval
	}
	if deps.ShutdownGrace <= 0 {
		deps.ShutdownGrace = 5 * time.Second
	}
	return &Service{
		deps: deps,
		norm: NewNormalizer(deps.Instruments),
		thr:  NewThrottler(deps.Instruments),
		disp: NewDispatcher(deps.Sink, deps.Repo, NewFormatter(), deps.Instruments, deps.Dispatch),
	}
}

func (s *Service) Run(ctx context.Context) error {
	if len(s.deps.Instruments) == 0 {
		return errors.New("no instruments")
	}

	ticks, err := s.deps.Feed.Subscribe(ctx, s.deps.Instruments)
	if err != nil {
		return err
	}
	log.Info().Str("feed", s.deps.Feed.Name()).
		Int("instruments", len(s.deps.Instruments)).
		Dur("flush_interval", s.deps.FlushInterval).
		Msg("relay started")

	s.disp.Start(ctx)
	defer s.disp.Shutdown(s.deps.ShutdownGrace)

	// latest-price writes go through their own goroutine so a slow storage
	// backend never stalls tick consumption or the flush timer
	pctx, pcancel := context.WithCancel(ctx)
	persist := make(chan domain.PriceUpdate, persistQueueSize)
	persistDone := make(chan struct{})
	go s.persistLoop(pctx, persist, persistDone)
	defer func() {
		pcancel()
		<-persistDone
	}()

	flushTicker := time.NewTicker(s.deps.FlushInterval)
	defer flushTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case err := <-s.disp.Fatal():
			return err

		case now := <-flushTicker.C:
			for _, u := range s.thr.Flush(now) {
				s.disp.Dispatch(u)
			}

		case t, ok := <-ticks:
			if !ok {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				return errors.New("tick stream closed")
			}
			u, accepted := s.norm.Normalize(t)
			if !accepted {
				continue
			}
			s.thr.Record(u)
			select {
			case persist <- u:
			default:
				// storage is lagging; drop the write, a later tick for the
				// same instrument supersedes it anyway
			}
		}
	}
}

func (s *Service) persistLoop(ctx context.Context, in <-chan domain.PriceUpdate, done chan<- struct{}) {
	defer close(done)
	for {
		select {
		case <-ctx.Done():
			return
		case u := <-in:
			if err := s.deps.Repo.UpsertLatestPrice(ctx, u.Instrument.Segment, u.Instrument.Symbol, u.Price, u.EventTime.UnixMilli()); err != nil {
				log.Warn().Err(err).Str("symbol", u.Instrument.Symbol).Msg("persist latest price failed")
			}
		}
	}
}
