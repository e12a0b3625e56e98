package telegram

import (
	"errors"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"ltprelay/internal/application/port"
)

func TestClassifyNil(t *testing.T) {
	if err := classify(nil); err != nil {
		t.Fatalf("nil error classified as %v", err)
	}
}

func TestClassifyRateLimitCarriesRetryAfter(t *testing.T) {
	src := &tgbotapi.Error{
		Code:               429,
		Message:            "Too Many Requests: retry after 7",
		ResponseParameters: tgbotapi.ResponseParameters{RetryAfter: 7},
	}

	var rl *port.RateLimitedError
	if err := classify(src); !errors.As(err, &rl) {
		t.Fatalf("expected RateLimitedError, got %v", err)
	}
	if rl.RetryAfter != 7*time.Second {
		t.Errorf("retry after: got %s, want 7s", rl.RetryAfter)
	}
}

func TestClassifyAuthErrorsArePermanent(t *testing.T) {
	for _, code := range []int{400, 401, 403} {
		err := classify(&tgbotapi.Error{Code: code, Message: "nope"})
		var perm *port.PermanentError
		if !errors.As(err, &perm) {
			t.Errorf("code %d: expected PermanentError, got %v", code, err)
		}
	}
}

func TestClassifyPassesThroughTransientErrors(t *testing.T) {
	netErr := errors.New("dial tcp: connection refused")
	if err := classify(netErr); !errors.Is(err, netErr) {
		t.Errorf("network error rewritten: %v", err)
	}

	apiErr := &tgbotapi.Error{Code: 502, Message: "bad gateway"}
	err := classify(apiErr)
	var rl *port.RateLimitedError
	var perm *port.PermanentError
	if errors.As(err, &rl) || errors.As(err, &perm) {
		t.Errorf("5xx should stay transient, got %v", err)
	}
}
