package commands

import (
	"github.com/spf13/cobra"

	"github.com/tbourn/go-messenger-store/internal/services"
)

var sendIn services.SendInput

var sendCmd = &cobra.Command{
	Use:   "send --from <user-id> --to <user-id> <content>",
	Short: "Send a message, creating the conversation if needed",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		in := sendIn
		in.Content = args[0]
		m, err := a.messages.Send(cmd.Context(), in)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), m)
	},
}

var resolveCmd = &cobra.Command{
	Use:   "resolve <user-id> <user-id>",
	Short: "Return the conversation between two users, creating it if absent",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		conv, err := a.conversations.ResolveOrCreate(cmd.Context(), args[0], args[1])
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), conv)
	},
}

var conversationCmd = &cobra.Command{
	Use:   "conversation <id>",
	Short: "Show one conversation",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseConversationID(args[0])
		if err != nil {
			return err
		}
		a, err := newApp(cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		conv, err := a.conversations.GetConversation(cmd.Context(), id)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), conv)
	},
}

func init() {
	sendCmd.Flags().StringVar(&sendIn.SenderID, "from", "", "sender user id")
	sendCmd.Flags().StringVar(&sendIn.ReceiverID, "to", "", "receiver user id")
	sendCmd.Flags().Int64Var(&sendIn.ConversationID, "conversation", 0, "existing conversation id (resolved from the pair when 0)")
	_ = sendCmd.MarkFlagRequired("from")
	_ = sendCmd.MarkFlagRequired("to")

	AddCommand(sendCmd)
	AddCommand(resolveCmd)
	AddCommand(conversationCmd)
}
