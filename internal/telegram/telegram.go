// Package telegram implements chatapi.MessageSender against the Telegram
// Bot API, grounded on the other_examples/ reference bridge
// (telegram.go's TelegramSink/TelegramBridge, which drives the bot with
// tgbotapi.NewMessage/NewChatAction) and on the teacher's
// internal/config.TelegramConfig (bot_token/chat_id/allowed_commands),
// which named Telegram as the one bridge platform but never shipped the
// concrete client.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"cligate/internal/chatapi"
	"cligate/internal/classify"
)

// Bridge sends and edits chat messages via the Telegram Bot API.
type Bridge struct {
	bot *tgbotapi.BotAPI
}

// New constructs a Bridge authenticated with botToken.
func New(botToken string) (*Bridge, error) {
	bot, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return nil, fmt.Errorf("telegram: new bot: %w", err)
	}
	return &Bridge{bot: bot}, nil
}

var _ chatapi.MessageSender = (*Bridge)(nil)

// Bot exposes the underlying tgbotapi client for the inbound update loop
// (internal/gateway), which needs it for GetUpdatesChan/Request beyond
// what the narrow chatapi.MessageSender surface offers.
func (b *Bridge) Bot() *tgbotapi.BotAPI { return b.bot }

// Send posts html as a new message in chatID and returns Telegram's
// message ID (stringified, since chatapi's MessageSender is
// platform-agnostic).
func (b *Bridge) Send(ctx context.Context, chatID, html string) (string, error) {
	id, err := parseChatID(chatID)
	if err != nil {
		return "", err
	}
	msg := tgbotapi.NewMessage(id, html)
	msg.ParseMode = tgbotapi.ModeHTML
	sent, err := b.bot.Send(msg)
	if err != nil {
		return "", classifyErr(err)
	}
	return strconv.Itoa(sent.MessageID), nil
}

// Edit replaces the content of an already-sent message.
func (b *Bridge) Edit(ctx context.Context, chatID, messageID, html string) error {
	id, err := parseChatID(chatID)
	if err != nil {
		return err
	}
	msgID, err := strconv.Atoi(messageID)
	if err != nil {
		return fmt.Errorf("telegram: invalid message id %q: %w", messageID, err)
	}
	edit := tgbotapi.NewEditMessageText(id, msgID, html)
	edit.ParseMode = tgbotapi.ModeHTML
	_, err = b.bot.Send(edit)
	if err != nil {
		return classifyErr(err)
	}
	return nil
}

// SendTyping posts a one-shot "typing..." chat action.
func (b *Bridge) SendTyping(ctx context.Context, chatID string) error {
	id, err := parseChatID(chatID)
	if err != nil {
		return err
	}
	action := tgbotapi.NewChatAction(id, tgbotapi.ChatTyping)
	_, err = b.bot.Request(action)
	return err
}

// ChatSession binds a Bridge to one chat, satisfying pipeline.KeyboardSender
// and pipeline.Notifier, whose send_keyboard/auth-warning actions (spec.md
// §4.H) carry no chat ID of their own — a session's Telegram chat is fixed
// for its lifetime, so the gateway constructs one ChatSession per
// session it starts rather than threading chatID through every action.
type ChatSession struct {
	bridge *Bridge
	chatID string
}

// NewChatSession binds bridge to chatID.
func NewChatSession(bridge *Bridge, chatID string) *ChatSession {
	return &ChatSession{bridge: bridge, chatID: chatID}
}

// SendApprovalMenu posts question with an inline keyboard carrying one
// callback button per tool option plus a Deny button. Callback data
// follows the "tool:<n>" / "tool:deny" grammar; the bot's update handler
// maps a press back to terminal keystrokes (down-arrow presses to reach
// the option followed by Enter, or Escape for Deny).
func (c *ChatSession) SendApprovalMenu(ctx context.Context, question string, options []classify.ToolRequestOption, selectedIndex int) error {
	id, err := parseChatID(c.chatID)
	if err != nil {
		return err
	}

	var rows [][]tgbotapi.InlineKeyboardButton
	for _, opt := range options {
		label := opt.Label
		if opt.Number == selectedIndex {
			label = "› " + label
		}
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(label, fmt.Sprintf("tool:%d", opt.Number)),
		))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("Deny", "tool:deny"),
	))

	msg := tgbotapi.NewMessage(id, question)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(rows...)
	_, err = c.bridge.bot.Send(msg)
	if err != nil {
		return classifyErr(err)
	}
	return nil
}

// Notify sends a one-shot plain-text message to the bound chat (used for
// the auth-required warning).
func (c *ChatSession) Notify(ctx context.Context, text string) error {
	id, err := parseChatID(c.chatID)
	if err != nil {
		return err
	}
	msg := tgbotapi.NewMessage(id, text)
	_, err = c.bridge.bot.Send(msg)
	if err != nil {
		return classifyErr(err)
	}
	return nil
}

func parseChatID(chatID string) (int64, error) {
	id, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("telegram: invalid chat id %q: %w", chatID, err)
	}
	return id, nil
}

// classifyErr maps Telegram's textual API error responses onto the
// chatapi error taxonomy (spec.md §4.G's _edit() failure matrix), since
// the Bot API reports every failure as a 200 with an "ok": false body
// rather than distinct HTTP status codes or typed errors.
func classifyErr(err error) error {
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "message is not modified"):
		return chatapi.ErrNotModified
	case strings.Contains(msg, "bot was blocked") ||
		strings.Contains(msg, "user is deactivated") ||
		strings.Contains(msg, "chat not found") ||
		strings.Contains(msg, "forbidden"):
		return chatapi.ErrForbidden
	case strings.Contains(msg, "can't parse entities") ||
		strings.Contains(msg, "can't find end of") ||
		strings.Contains(msg, "unsupported start tag"):
		return &chatapi.ParseError{Err: err}
	case strings.Contains(msg, "too many requests") || strings.Contains(msg, "retry after"):
		return &chatapi.RateLimitError{RetryAfter: retryAfter(err)}
	default:
		return err
	}
}

// retryAfter extracts the retry_after hint tgbotapi embeds in a
// *tgbotapi.Error, falling back to zero (caller applies its own default
// backoff) if the error isn't that concrete type.
func retryAfter(err error) time.Duration {
	var apiErr *tgbotapi.Error
	if errors.As(err, &apiErr) && apiErr.ResponseParameters.RetryAfter > 0 {
		return time.Duration(apiErr.ResponseParameters.RetryAfter) * time.Second
	}
	return 0
}
