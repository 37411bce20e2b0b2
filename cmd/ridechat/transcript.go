package main

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/comigor/ridechat/internal/chat"
	"github.com/comigor/ridechat/internal/conversation"
	"github.com/comigor/ridechat/internal/history"
	"github.com/comigor/ridechat/internal/view"
)

func transcriptCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "transcript",
		Short: "Print the locally recorded transcript of a ride conversation",
		RunE:  runTranscript,
	}
	conversationFlags(cmd)
	return cmd
}

func runTranscript(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cfg.History.DBPath == "" {
		return errors.New("history.db_path is not configured; nothing was recorded")
	}

	store := history.Open(cfg.History.DBPath)
	defer store.Close()
	if !store.Persistent() {
		return errors.New("history database could not be opened")
	}

	thread := view.NewTerminal(cmd.OutOrStdout(), false)
	labels := timeFormat(cfg)
	for _, msg := range store.List(chat.ConversationID(cfg.Conversation.RideID)) {
		thread.Append(conversation.EntryFor(msg, cfg.Conversation.ParticipantID, labels))
	}
	thread.ScrollToBottom()
	return nil
}
