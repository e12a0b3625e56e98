package dhan

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"ltprelay/internal/application/port"
	"ltprelay/internal/domain"
)

const (
	// Ticker-mode subscription request code.
	requestCodeSubscribe = 15

	defaultSubscribeBatch = 100
	defaultSilenceTimeout = 30 * time.Second
	defaultPingInterval   = 10 * time.Second
	dialTimeout           = 10 * time.Second
)

// Config carries connection parameters for the market feed.
type Config struct {
	WSURL       string // e.g. wss://api-feed.dhan.co
	ClientID    string
	AccessToken string

	// SilenceTimeout is the read deadline: no frame of any kind within it
	// (pongs included) kills the connection.
	SilenceTimeout time.Duration
	PingInterval   time.Duration
	SubscribeBatch int
}

func (c *Config) applyDefaults() {
	if c.SilenceTimeout <= 0 {
		c.SilenceTimeout = defaultSilenceTimeout
	}
	if c.PingInterval <= 0 {
		c.PingInterval = defaultPingInterval
	}
	if c.SubscribeBatch <= 0 {
		c.SubscribeBatch = defaultSubscribeBatch
	}
}

// Client dials authenticated feed connections. It holds no connection
// state itself; every Dial returns a fresh Conn.
type Client struct {
	cfg Config
}

func NewClient(cfg Config) *Client {
	cfg.applyDefaults()
	cfg.WSURL = strings.TrimSpace(cfg.WSURL)
	return &Client{cfg: cfg}
}

func buildFeedURL(cfg Config) (string, error) {
	if cfg.WSURL == "" {
		return "", errors.New("feed ws_url empty")
	}
	u, err := url.Parse(cfg.WSURL)
	if err != nil {
		return "", err
	}
	q := url.Values{}
	q.Set("version", "2")
	q.Set("token", cfg.AccessToken)
	q.Set("clientId", cfg.ClientID)
	q.Set("authType", "2")
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Dial opens the websocket. Credentials ride in the query string; a bad
// token typically surfaces as a handshake rejection here, or as an
// immediate disconnect packet on the first read.
func (c *Client) Dial(ctx context.Context) (*Conn, error) {
	wsURL, err := buildFeedURL(c.cfg)
	if err != nil {
		return nil, err
	}

	dctx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()
	ws, _, err := websocket.DefaultDialer.DialContext(dctx, wsURL, nil)
	if err != nil {
		return nil, err
	}
	return &Conn{ws: ws, cfg: c.cfg}, nil
}

// Conn is one live feed connection. Not restartable: after Run returns the
// connection is dead and a new Dial is required.
type Conn struct {
	ws  *websocket.Conn
	cfg Config
}

type subscribeInstrument struct {
	ExchangeSegment string `json:"ExchangeSegment"`
	SecurityID      string `json:"SecurityId"`
}

type subscribeRequest struct {
	RequestCode     int                   `json:"RequestCode"`
	InstrumentCount int                   `json:"InstrumentCount"`
	InstrumentList  []subscribeInstrument `json:"InstrumentList"`
}

// Subscribe issues ticker subscriptions for the whole set, split into
// frames of at most SubscribeBatch instruments (provider limit).
func (c *Conn) Subscribe(instruments []domain.Instrument) error {
	if len(instruments) == 0 {
		return errors.New("no instruments to subscribe")
	}
	for start := 0; start < len(instruments); start += c.cfg.SubscribeBatch {
		end := start + c.cfg.SubscribeBatch
		if end > len(instruments) {
			end = len(instruments)
		}
		batch := instruments[start:end]

		req := subscribeRequest{
			RequestCode:     requestCodeSubscribe,
			InstrumentCount: len(batch),
			InstrumentList:  make([]subscribeInstrument, 0, len(batch)),
		}
		for _, inst := range batch {
			req.InstrumentList = append(req.InstrumentList, subscribeInstrument{
				ExchangeSegment: inst.Segment,
				SecurityID:      inst.SecurityID,
			})
		}
		b, err := json.Marshal(req)
		if err != nil {
			return err
		}
		_ = c.ws.SetWriteDeadline(time.Now().Add(5 * time.Second))
		if err := c.ws.WriteMessage(websocket.TextMessage, b); err != nil {
			return err
		}
	}
	return nil
}

// Run pumps decoded ticks into out until the context is canceled or the
// transport dies. Individual malformed frames are logged and skipped; the
// returned error is the transport-level cause. Run returns only after the
// reader goroutine has stopped, so no send on out can happen afterwards
// and the caller is free to close the channel.
func (c *Conn) Run(ctx context.Context, out chan<- port.Tick) error {
	_ = c.ws.SetReadDeadline(time.Now().Add(c.cfg.SilenceTimeout))
	c.ws.SetPongHandler(func(string) error {
		_ = c.ws.SetReadDeadline(time.Now().Add(c.cfg.SilenceTimeout))
		return nil
	})

	pingTicker := time.NewTicker(c.cfg.PingInterval)
	defer pingTicker.Stop()

	readerDone := make(chan error, 1)
	go func() {
		readerDone <- c.readLoop(ctx, out)
	}()

	for {
		select {
		case <-ctx.Done():
			// unblock a reader parked in ReadMessage, then join it
			_ = c.ws.Close()
			<-readerDone
			return ctx.Err()
		case err := <-readerDone:
			return err
		case <-pingTicker.C:
			_ = c.ws.WriteControl(websocket.PingMessage, []byte("ping"), time.Now().Add(5*time.Second))
		}
	}
}

// readLoop owns every send on out.
func (c *Conn) readLoop(ctx context.Context, out chan<- port.Tick) error {
	for {
		_, b, err := c.ws.ReadMessage()
		if err != nil {
			return err
		}
		_ = c.ws.SetReadDeadline(time.Now().Add(c.cfg.SilenceTimeout))

		t, ok, derr := c.decode(b)
		if derr != nil {
			var disc *DisconnectError
			if errors.As(derr, &disc) {
				return derr
			}
			log.Warn().Err(derr).Int("len", len(b)).Msg("bad feed frame, skipped")
			continue
		}
		if !ok {
			continue
		}
		select {
		case out <- t:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (c *Conn) decode(b []byte) (port.Tick, bool, error) {
	return decodeFrame(b)
}

func (c *Conn) Close() error { return c.ws.Close() }
