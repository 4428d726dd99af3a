package telegram

import (
	"errors"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"cligate/internal/chatapi"
)

func TestClassifyErrNotModified(t *testing.T) {
	err := errors.New("Bad Request: message is not modified")
	got := classifyErr(err)
	if !errors.Is(got, chatapi.ErrNotModified) {
		t.Errorf("classifyErr(%v) = %v, want ErrNotModified", err, got)
	}
}

func TestClassifyErrForbidden(t *testing.T) {
	tests := []string{
		"Forbidden: bot was blocked by the user",
		"Forbidden: user is deactivated",
		"Bad Request: chat not found",
	}
	for _, msg := range tests {
		got := classifyErr(errors.New(msg))
		if !errors.Is(got, chatapi.ErrForbidden) {
			t.Errorf("classifyErr(%q) = %v, want ErrForbidden", msg, got)
		}
	}
}

func TestClassifyErrParseError(t *testing.T) {
	err := errors.New("Bad Request: can't parse entities: unsupported start tag \"div\"")
	got := classifyErr(err)
	var pe *chatapi.ParseError
	if !errors.As(got, &pe) {
		t.Errorf("classifyErr(%v) = %v, want *ParseError", err, got)
	}
}

func TestClassifyErrRateLimit(t *testing.T) {
	apiErr := &tgbotapi.Error{
		Code:    429,
		Message: "Too Many Requests: retry after 5",
		ResponseParameters: tgbotapi.ResponseParameters{
			RetryAfter: 5,
		},
	}
	got := classifyErr(apiErr)
	var rl *chatapi.RateLimitError
	if !errors.As(got, &rl) {
		t.Fatalf("classifyErr(%v) = %v, want *RateLimitError", apiErr, got)
	}
	if rl.RetryAfter != 5*time.Second {
		t.Errorf("RetryAfter = %v, want 5s", rl.RetryAfter)
	}
}

func TestClassifyErrPassesThroughUnknown(t *testing.T) {
	err := errors.New("network timeout")
	got := classifyErr(err)
	if got != err {
		t.Errorf("classifyErr(%v) = %v, want passthrough", err, got)
	}
}

func TestParseChatID(t *testing.T) {
	id, err := parseChatID("12345")
	if err != nil {
		t.Fatalf("parseChatID: %v", err)
	}
	if id != 12345 {
		t.Errorf("id = %d, want 12345", id)
	}

	if _, err := parseChatID("not-a-number"); err == nil {
		t.Error("expected error for non-numeric chat id")
	}
}
