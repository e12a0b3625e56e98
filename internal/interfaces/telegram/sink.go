package telegram

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"

	"ltprelay/internal/application/port"
)

// Sink sends relay messages to one Telegram chat or channel. The chat
// destination is fixed at construction; Send is safe for concurrent use.
type Sink struct {
	bot     *tgbotapi.BotAPI
	chatID  int64  // used when channel is empty
	channel string // "@name" form
}

// NewSink authenticates the bot (getMe) and parses the destination: either
// a numeric chat id or an "@channel" username.
func NewSink(token, chat string) (*Sink, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	log.Info().Str("bot", bot.Self.UserName).Msg("telegram bot authorized")

	s := &Sink{bot: bot}
	chat = strings.TrimSpace(chat)
	if strings.HasPrefix(chat, "@") {
		s.channel = chat
		return s, nil
	}
	id, err := strconv.ParseInt(chat, 10, 64)
	if err != nil {
		return nil, errors.New("telegram chat must be a numeric id or @channel name")
	}
	s.chatID = id
	return s, nil
}

func (s *Sink) Name() string { return "telegram" }

// Send delivers one text message. The underlying client has no context
// support, so ctx is only honored between attempts.
func (s *Sink) Send(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var msg tgbotapi.MessageConfig
	if s.channel != "" {
		msg = tgbotapi.NewMessageToChannel(s.channel, text)
	} else {
		msg = tgbotapi.NewMessage(s.chatID, text)
	}

	_, err := s.bot.Send(msg)
	return classify(err)
}

// classify maps Telegram API errors onto the port taxonomy: 429 with its
// retry_after hint is retryable, auth/chat errors are permanent, anything
// else (network) is transient.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var apiErr *tgbotapi.Error
	if !errors.As(err, &apiErr) {
		return err
	}
	switch apiErr.Code {
	case 429:
		return &port.RateLimitedError{RetryAfter: time.Duration(apiErr.RetryAfter) * time.Second}
	case 400, 401, 403:
		return &port.PermanentError{Err: apiErr}
	default:
		return err
	}
}

var _ port.MessageSink = (*Sink)(nil)
