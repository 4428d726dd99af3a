package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"cligate/internal/activitylog"
	"cligate/internal/cliproc"
	"cligate/internal/config"
	"cligate/internal/gateway"
	"cligate/internal/socketlock"
	"cligate/internal/supervisor"
	"cligate/internal/telegram"
	"cligate/internal/version"
)

// newServeCmd runs the gateway: the Session Output Loop polling every
// live PTY session plus the Telegram update dispatcher feeding it new
// sessions and terminal input, per spec.md §4.I and §6.
func newServeCmd() *cobra.Command {
	var activityLogPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the chat gateway, polling CLI sessions and relaying them to chat",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			lock, err := socketlock.Acquire(config.ConfigDir(), "gateway")
			if err != nil {
				return fmt.Errorf("acquire gateway lock (already running?): %w", err)
			}
			defer lock.Release()

			token := firstBotToken(cfg)
			if token == "" {
				return fmt.Errorf("no user configures bridges.telegram.bot_token")
			}
			bridge, err := telegram.New(token)
			if err != nil {
				return fmt.Errorf("telegram: %w", err)
			}

			activity := activitylog.Nop()
			if activityLogPath != "" {
				activity = activitylog.New(true, activityLogPath, "gateway", "")
				defer activity.Close()
			}

			registry := supervisor.NewRegistry(cfg.Gateway.MaxSessions, cfg.Gateway.IdleTimeout)

			printBanner(cmd.OutOrStdout(), fmt.Sprintf("%d user(s)", len(cfg.Users)), version.DisplayVersion())

			gw := gateway.New(bridge, cfg, registry, launchUserSession(cfg), activity)
			loop := supervisor.NewLoop(registry, cfg.Gateway.PollInterval, activity, log.Default())

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
			go func() {
				<-sigCh
				log.Println("serve: shutting down")
				cancel()
			}()

			errCh := make(chan error, 2)
			go func() { errCh <- loop.Run(ctx) }()
			go func() { errCh <- gw.Run(ctx) }()

			err = <-errCh
			if err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&activityLogPath, "activity-log", "", "path to write pipeline activity JSONL (disabled if empty)")
	return cmd
}

// firstBotToken picks the bot token from whichever configured user set
// one; the gateway serves a single Telegram bot shared across all of a
// deployment's users (an Open Question resolved in DESIGN.md).
func firstBotToken(cfg *config.Config) string {
	for _, uc := range cfg.Users {
		if uc != nil && uc.Bridges.Telegram != nil && uc.Bridges.Telegram.BotToken != "" {
			return uc.Bridges.Telegram.BotToken
		}
	}
	return ""
}

// launchUserSession builds a gateway.Launcher that starts uc.Command
// under a PTY sized per cfg.Gateway.
func launchUserSession(cfg *config.Config) gateway.Launcher {
	return func(user string, uc *config.UserConfig) (*cliproc.Process, error) {
		command, args, err := cliproc.ParseCommand(uc.Command)
		if err != nil {
			return nil, fmt.Errorf("parse command for user %s: %w", user, err)
		}

		procCfg := cliproc.Config{
			Command: command,
			Args:    args,
			Rows:    cfg.Gateway.Rows,
			Cols:    cfg.Gateway.Cols,
		}
		proc := cliproc.New(procCfg)
		if err := proc.Start(procCfg); err != nil {
			return nil, err
		}
		return proc, nil
	}
}
