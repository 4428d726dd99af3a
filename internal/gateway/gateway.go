// Package gateway wires a Telegram bot's inbound update stream to the
// session supervisor: plain text becomes terminal input for a chat's
// active session, and inline-keyboard callbacks (spec.md §6's
// switch:<id> / kill:<id> grammar, plus this package's own tool:<n> /
// tool:deny grammar for the approval keyboard) drive session switching,
// teardown, and tool-approval keystrokes. Grounded on the allowlist and
// update-dispatch shape of other_examples/bbd5f94b_jazztong-remote-terminal's
// TelegramBridge.Listen, generalized from "one shared session" to "a
// per-chat active session selected from the supervisor registry".
package gateway

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"cligate/internal/activitylog"
	"cligate/internal/cliproc"
	"cligate/internal/config"
	"cligate/internal/pipeline"
	"cligate/internal/streammsg"
	"cligate/internal/supervisor"
	"cligate/internal/telegram"
)

// Launcher starts a new CLI process for a user, returning the live
// Process. Supplied by the caller (cmd/cligate) so gateway stays free of
// exec/command-string parsing concerns.
type Launcher func(user string, uc *config.UserConfig) (*cliproc.Process, error)

// Gateway dispatches one Telegram bot's update stream across every
// configured user's sessions.
type Gateway struct {
	bridge   *telegram.Bridge
	registry *supervisor.Registry
	users    map[string]userBinding // chatID string -> binding
	launch   Launcher
	activity *activitylog.Logger
	gw       config.GatewayConfig

	mu     sync.Mutex
	active map[string]string // chatID -> session ID currently receiving input
}

type userBinding struct {
	name string
	cfg  *config.UserConfig
}

// New builds a Gateway around bridge, with one binding per user whose
// bridges.telegram section is set, keyed by that section's chat_id.
func New(bridge *telegram.Bridge, cfg *config.Config, registry *supervisor.Registry, launch Launcher, activity *activitylog.Logger) *Gateway {
	if activity == nil {
		activity = activitylog.Nop()
	}
	users := map[string]userBinding{}
	for name, uc := range cfg.Users {
		if uc == nil || uc.Bridges.Telegram == nil {
			continue
		}
		chatID := strconv.FormatInt(uc.Bridges.Telegram.ChatID, 10)
		users[chatID] = userBinding{name: name, cfg: uc}
	}
	return &Gateway{
		bridge:   bridge,
		registry: registry,
		users:    users,
		launch:   launch,
		activity: activity,
		gw:       cfg.Gateway,
		active:   map[string]string{},
	}
}

// Run blocks, dispatching Telegram updates until ctx is cancelled.
func (g *Gateway) Run(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := g.bridge.Bot().GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			g.bridge.Bot().StopReceivingUpdates()
			return ctx.Err()
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			g.dispatch(ctx, update)
		}
	}
}

func (g *Gateway) dispatch(ctx context.Context, update tgbotapi.Update) {
	switch {
	case update.CallbackQuery != nil:
		g.handleCallback(ctx, update.CallbackQuery)
	case update.Message != nil:
		g.handleMessage(ctx, update.Message)
	}
}

func (g *Gateway) bindingFor(chatID int64) (userBinding, bool) {
	b, ok := g.users[strconv.FormatInt(chatID, 10)]
	return b, ok
}

func (g *Gateway) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	chatIDStr := strconv.FormatInt(chatID, 10)

	binding, ok := g.bindingFor(chatID)
	if !ok {
		log.Printf("gateway: rejecting message from unrecognized chat %d", chatID)
		return
	}

	text := strings.TrimSpace(msg.Text)
	switch {
	case text == "/new":
		g.startSession(ctx, chatIDStr, binding)
		return
	case strings.HasPrefix(text, "/switch "):
		id := strings.TrimSpace(strings.TrimPrefix(text, "/switch "))
		g.switchSession(chatIDStr, binding.name, id)
		return
	case strings.HasPrefix(text, "/kill "):
		id := strings.TrimSpace(strings.TrimPrefix(text, "/kill "))
		g.killSession(chatIDStr, binding.name, id)
		return
	}

	g.mu.Lock()
	sessionID := g.active[chatIDStr]
	g.mu.Unlock()
	if sessionID == "" {
		g.reply(ctx, chatIDStr, "No active session. Send /new to start one.")
		return
	}
	sess := g.registry.Get(sessionID)
	if sess == nil {
		g.reply(ctx, chatIDStr, "That session is gone. Send /new to start another.")
		return
	}
	if err := sess.Process.Submit(text); err != nil {
		log.Printf("gateway: submit to session %s: %v", sessionID, err)
	}
}

// handleCallback dispatches an inline-keyboard press: tool:<n> / tool:deny
// drive the approval keyboard's terminal keystrokes, switch:<id> / kill:<id>
// drive session management (spec.md §6).
func (g *Gateway) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	ack := tgbotapi.NewCallback(cb.ID, "")
	_, _ = g.bridge.Bot().Request(ack)

	chatID := cb.Message.Chat.ID
	chatIDStr := strconv.FormatInt(chatID, 10)
	binding, ok := g.bindingFor(chatID)
	if !ok {
		return
	}

	data := cb.Data
	switch {
	case strings.HasPrefix(data, "tool:"):
		g.handleToolCallback(chatIDStr, strings.TrimPrefix(data, "tool:"))
	case strings.HasPrefix(data, "switch:"):
		g.switchSession(chatIDStr, binding.name, strings.TrimPrefix(data, "switch:"))
	case strings.HasPrefix(data, "kill:"):
		g.killSession(chatIDStr, binding.name, strings.TrimPrefix(data, "kill:"))
	}
}

func (g *Gateway) handleToolCallback(chatIDStr, arg string) {
	g.mu.Lock()
	sessionID := g.active[chatIDStr]
	g.mu.Unlock()
	if sessionID == "" {
		return
	}
	sess := g.registry.Get(sessionID)
	if sess == nil {
		return
	}

	if arg == "deny" {
		if err := sess.Process.SendKey("\x1b"); err != nil {
			log.Printf("gateway: deny keystroke on %s: %v", sessionID, err)
		}
		sess.Runner.MarkToolActed()
		return
	}

	n, err := strconv.Atoi(arg)
	if err != nil {
		return
	}
	// Navigate to option n from whatever the CLI currently has
	// highlighted, then confirm. The CLI's own cursor position isn't
	// observable here beyond what the classifier last reported, so this
	// assumes option 1 starts selected (true of every retrieved
	// tool-approval TUI) and walks down n-1 times.
	for i := 1; i < n; i++ {
		if err := sess.Process.SendKey("\x1b[B"); err != nil {
			log.Printf("gateway: navigate keystroke on %s: %v", sessionID, err)
			return
		}
	}
	if err := sess.Process.SendKey("\r"); err != nil {
		log.Printf("gateway: confirm keystroke on %s: %v", sessionID, err)
	}
	sess.Runner.MarkToolActed()
}

func (g *Gateway) startSession(ctx context.Context, chatIDStr string, binding userBinding) {
	proc, err := g.launch(binding.name, binding.cfg)
	if err != nil {
		g.reply(ctx, chatIDStr, fmt.Sprintf("Failed to start session: %v", err))
		return
	}
	go proc.PipeOutput(nil)

	chatSession := telegram.NewChatSession(g.bridge, chatIDStr)
	msg := streammsg.New(g.bridge, chatIDStr, g.gw.EditRateLimit, nil)
	runner := pipeline.New(pipeline.Deps{
		Message:  msg,
		Terminal: proc.Terminal,
		Keyboard: chatSession,
		Notifier: chatSession,
		Kill: func() {
			g.killActiveByProcess(proc)
		},
	})

	sess, err := g.registry.Register(binding.name, chatIDStr, proc, runner, msg)
	if err != nil {
		g.reply(ctx, chatIDStr, fmt.Sprintf("Could not start session: %v", err))
		proc.Kill()
		proc.Close()
		return
	}

	g.mu.Lock()
	g.active[chatIDStr] = sess.ID
	g.mu.Unlock()

	g.reply(ctx, chatIDStr, fmt.Sprintf("Session %s started.", sess.ID))
}

func (g *Gateway) killActiveByProcess(proc *cliproc.Process) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for chatID, id := range g.active {
		if sess := g.registry.Get(id); sess != nil && sess.Process == proc {
			delete(g.active, chatID)
			g.registry.Remove(id)
			return
		}
	}
}

func (g *Gateway) switchSession(chatIDStr, user, id string) {
	sess, ok := g.registry.Switch(user, id)
	if !ok {
		g.reply(context.Background(), chatIDStr, "No such session.")
		return
	}
	g.mu.Lock()
	g.active[chatIDStr] = sess.ID
	g.mu.Unlock()
	g.reply(context.Background(), chatIDStr, fmt.Sprintf("Switched to session %s.", sess.ID))
}

func (g *Gateway) killSession(chatIDStr, user, id string) {
	if sess, ok := g.registry.Switch(user, id); ok {
		g.registry.Remove(sess.ID)
		g.mu.Lock()
		if g.active[chatIDStr] == sess.ID {
			delete(g.active, chatIDStr)
		}
		g.mu.Unlock()
		g.reply(context.Background(), chatIDStr, fmt.Sprintf("Session %s killed.", sess.ID))
	}
}

func (g *Gateway) reply(ctx context.Context, chatIDStr, text string) {
	id, err := strconv.ParseInt(chatIDStr, 10, 64)
	if err != nil {
		return
	}
	_, _ = g.bridge.Bot().Send(tgbotapi.NewMessage(id, text))
}
