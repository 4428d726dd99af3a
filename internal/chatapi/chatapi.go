// Package chatapi defines the narrow interface the rendering pipeline uses
// to talk to a chat platform, reconstructed in the shape of the teacher's
// bridge.Sender/bridge.TypingIndicator family (seen only through their
// mock implementations in bridgeservice/service_test.go, since the
// interface-defining file itself wasn't part of the retrieved pack).
package chatapi

import (
	"context"
	"errors"
	"time"
)

// MessageSender is the edit-in-place chat surface streammsg drives.
type MessageSender interface {
	// Send posts a new HTML message and returns its platform message ID.
	Send(ctx context.Context, chatID, html string) (messageID string, err error)
	// Edit replaces the content of an already-sent message.
	Edit(ctx context.Context, chatID, messageID, html string) error
	// SendTyping posts a one-shot typing indicator.
	SendTyping(ctx context.Context, chatID string) error
}

// ErrForbidden signals the user has blocked the bot; the pipeline runner
// treats this as fatal for the session (spec.md §4.G, §4.H exception policy).
var ErrForbidden = errors.New("chatapi: forbidden")

// ErrNotModified is returned by Edit when the platform rejects an edit
// because the content is unchanged; callers should ignore it silently.
var ErrNotModified = errors.New("chatapi: message not modified")

// ParseError indicates the platform rejected the HTML payload. streammsg
// retries such an edit once with the <b>, <i> and <code> tags removed;
// MessageSender has no parse-mode switch, so that retry is still sent in
// the platform's HTML mode.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string { return "chatapi: html parse error: " + e.Err.Error() }
func (e *ParseError) Unwrap() error { return e.Err }

// RateLimitError carries the platform's advertised retry-after duration.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string { return "chatapi: rate limited" }
