package feed

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"ltprelay/internal/application/port"
	"ltprelay/internal/domain"
)

// Conn is one live feed connection as the supervisor sees it.
type Conn interface {
	Subscribe(instruments []domain.Instrument) error
	Run(ctx context.Context, out chan<- port.Tick) error
	Close() error
}

// DialFunc opens a fresh connection. The supervisor never reuses one.
type DialFunc func(ctx context.Context) (Conn, error)

// Options tunes the reconnect policy.
type Options struct {
	Backoff *Backoff
	// MaxFailures is the consecutive-failure count after which the state
	// is reported as degraded. Zero means never; retries continue either
	// way.
	MaxFailures int
}

// Supervisor owns the connect/retry state machine around a feed
// connection. It implements port.TickFeed: Subscribe starts one long-lived
// run loop that dials, subscribes the full instrument set, pumps ticks,
// and starts over with backoff whenever the connection dies. Subscription
// state is never assumed to survive a reconnect.
type Supervisor struct {
	name  string
	dial  DialFunc
	opts  Options
	state atomic.Int32
}

func NewSupervisor(name string, dial DialFunc, opts Options) *Supervisor {
	if opts.Backoff == nil {
		opts.Backoff = NewBackoff(DefaultBackoffBase, DefaultBackoffMax, DefaultBackoffJitter)
	}
	return &Supervisor{name: name, dial: dial, opts: opts}
}

func (s *Supervisor) Name() string { return s.name }

// State reports the authoritative connection state, for observability only.
func (s *Supervisor) State() State { return State(s.state.Load()) }

func (s *Supervisor) setState(st State) {
	if State(s.state.Swap(int32(st))) != st {
		log.Info().Str("feed", s.name).Str("state", st.String()).Msg("feed state")
	}
}

func (s *Supervisor) Subscribe(ctx context.Context, instruments []domain.Instrument) (<-chan port.Tick, error) {
	if len(instruments) == 0 {
		return nil, errors.New("no instruments to subscribe")
	}
	set := make([]domain.Instrument, len(instruments))
	copy(set, instruments)

	out := make(chan port.Tick, 1024)
	go s.run(ctx, set, out)
	return out, nil
}

func (s *Supervisor) run(ctx context.Context, instruments []domain.Instrument, out chan<- port.Tick) {
	defer close(out)

	failures := 0
	for {
		if ctx.Err() != nil {
			return
		}

		if failures > 0 {
			delay := s.opts.Backoff.Next()
			log.Warn().Str("feed", s.name).
				Int("failures", failures).
				Dur("delay", delay).
				Msg("reconnecting after backoff")
			if !sleep(ctx, delay) {
				return
			}
		}

		subscribed, err := s.connectOnce(ctx, instruments, out)
		if subscribed {
			// the failure streak is consecutive dial/subscribe failures;
			// a session that reached Subscribed breaks it even if the
			// connection drops later
			failures = 0
		}
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			failures++
			if s.opts.MaxFailures > 0 && failures >= s.opts.MaxFailures {
				s.setState(StateDegraded)
			} else {
				s.setState(StateDisconnected)
			}
			log.Error().Str("feed", s.name).Err(err).Msg("feed connection failed")
			continue
		}
	}
}

// connectOnce runs a single dial → subscribe → pump cycle. subscribed
// reports whether the session reached the Subscribed state. The error is
// nil only when ctx ended; any other outcome is an error to retry.
func (s *Supervisor) connectOnce(ctx context.Context, instruments []domain.Instrument, out chan<- port.Tick) (subscribed bool, _ error) {
	s.setState(StateConnecting)
	conn, err := s.dial(ctx)
	if err != nil {
		return false, err
	}
	defer conn.Close()

	s.setState(StateAuthenticating)
	if err := conn.Subscribe(instruments); err != nil {
		return false, err
	}

	s.setState(StateSubscribed)
	s.opts.Backoff.Reset()
	log.Info().Str("feed", s.name).Int("instruments", len(instruments)).Msg("subscribed")

	err = conn.Run(ctx, out)
	s.setState(StateDisconnected)
	if ctx.Err() != nil {
		return true, nil
	}
	if err == nil {
		err = errors.New("feed stream ended")
	}
	return true, err
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
