package main

import (
	"bufio"
	"context"
	"errors"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/comigor/ridechat/internal/backfill"
	"github.com/comigor/ridechat/internal/chat"
	"github.com/comigor/ridechat/internal/config"
	"github.com/comigor/ridechat/internal/conversation"
	"github.com/comigor/ridechat/internal/history"
	"github.com/comigor/ridechat/internal/logger"
	"github.com/comigor/ridechat/internal/realtime"
	"github.com/comigor/ridechat/internal/view"
)

var configPath string // overridable via --config flag

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "ridechat",
		Short:        "Ride conversation client",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config.yaml (default: $CONFIG_PATH or ./config.yaml)")

	root.AddCommand(chatCmd())
	root.AddCommand(contactCmd())
	root.AddCommand(transcriptCmd())
	return root
}

func conversationFlags(cmd *cobra.Command) {
	cmd.Flags().String("ride", "", "ride (conversation) id; overrides conversation.ride_id")
	cmd.Flags().Int64("user", 0, "current participant id; overrides conversation.participant_id")
}

// loadConfig loads the configuration, applies flag overrides and sets the log level.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		logger.L.Error("failed to load configuration", "error", err)
		return nil, err
	}
	if f := cmd.Flags().Lookup("ride"); f != nil && f.Changed {
		cfg.Conversation.RideID = f.Value.String()
	}
	if f := cmd.Flags().Lookup("user"); f != nil && f.Changed {
		cfg.Conversation.ParticipantID, _ = cmd.Flags().GetInt64("user")
	}
	logger.SetLevel(cfg.Log.Level)
	return cfg, nil
}

func timeFormat(cfg *config.Config) view.TimeFormat {
	return view.TimeFormat{TimeLayout: cfg.Display.TimeLayout, DateLayout: cfg.Display.DateLayout}
}

// isTerminal reports whether w is a terminal that understands escape sequences.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func chatCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Join a ride conversation; each stdin line is sent as a message",
		RunE:  runChat,
	}
	conversationFlags(cmd)
	return cmd
}

// lineInput is the compose box fed from stdin.
type lineInput struct {
	mu    sync.Mutex
	value string
}

func (l *lineInput) Value() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.value
}

func (l *lineInput) SetValue(v string) {
	l.mu.Lock()
	l.value = v
	l.mu.Unlock()
}

func runChat(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	sigCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(sigCtx)
	defer cancel()

	store := history.Open(cfg.History.DBPath)
	defer store.Close()

	transport, err := realtime.New(*cfg)
	if err != nil {
		return err
	}

	input := &lineInput{}
	client, err := conversation.New(conversation.Options{
		ConversationID: chat.ConversationID(cfg.Conversation.RideID),
		ParticipantID:  cfg.Conversation.ParticipantID,
		Transport:      transport,
		Backfill:       backfill.NewClient(cfg.Server),
		Thread:         view.NewTerminal(cmd.OutOrStdout(), cfg.Display.UseANSI(isTerminal(cmd.OutOrStdout()))),
		Input:          input,
		Transcript:     store,
		Labels:         timeFormat(cfg),
	})
	if err != nil {
		return err
	}

	runErr := make(chan error, 1)
	go func() { runErr <- client.Run(ctx) }()

	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(cmd.InOrStdin())
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case err := <-runErr:
			return err
		case line, ok := <-lines:
			if !ok {
				// stdin closed: leave the conversation
				cancel()
				return <-runErr
			}
			input.SetValue(line)
			if err := client.Submit(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.L.Warn("message not sent", "error", err)
			}
		}
	}
}
