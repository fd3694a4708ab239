package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var (
	pageNum   int
	pageLimit int
	before    string
)

func addPageFlags(cmd *cobra.Command) {
	cmd.Flags().IntVar(&pageNum, "page", 1, "1-based page number")
	cmd.Flags().IntVar(&pageLimit, "limit", 0, "page size (default: DEFAULT_PAGE_SIZE)")
}

var messagesCmd = &cobra.Command{
	Use:   "messages <conversation-id>",
	Short: "List a conversation's messages, newest first",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseConversationID(args[0])
		if err != nil {
			return err
		}
		var cutoff time.Time
		if before != "" {
			if cutoff, err = time.Parse(time.RFC3339Nano, before); err != nil {
				return fmt.Errorf("invalid --before %q: %w", before, err)
			}
		}
		a, err := newApp(cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		if cutoff.IsZero() {
			page, err := a.messages.ConversationMessages(cmd.Context(), id, pageNum, pageLimit)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), page)
		}
		page, err := a.messages.MessagesBefore(cmd.Context(), id, cutoff, pageNum, pageLimit)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), page)
	},
}

var userMessagesCmd = &cobra.Command{
	Use:   "user-messages <user-id>",
	Short: "List every message a user sent or received",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		page, err := a.messages.UserMessages(cmd.Context(), args[0], pageNum, pageLimit)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), page)
	},
}

var conversationsCmd = &cobra.Command{
	Use:   "conversations <user-id>",
	Short: "List a user's conversations, most recent activity first",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		page, err := a.conversations.UserConversations(cmd.Context(), args[0], pageNum, pageLimit)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), page)
	},
}

func init() {
	addPageFlags(messagesCmd)
	messagesCmd.Flags().StringVar(&before, "before", "", "only messages strictly older than this RFC 3339 time")
	addPageFlags(userMessagesCmd)
	addPageFlags(conversationsCmd)

	AddCommand(messagesCmd)
	AddCommand(userMessagesCmd)
	AddCommand(conversationsCmd)
}
