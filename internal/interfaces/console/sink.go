package console

import (
	"context"
	"fmt"
	"time"

	"ltprelay/internal/application/port"
)

// Sink prints relay messages to stdout. Used as the dry-run channel when
// Telegram is not configured.
type Sink struct{}

func NewSink() port.MessageSink { return &Sink{} }

func (s *Sink) Name() string { return "console" }

func (s *Sink) Send(ctx context.Context, text string) error {
	fmt.Printf("%s %s\n", time.Now().Format("2006-01-02 15:04:05"), text)
	return nil
}
