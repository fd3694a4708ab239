package commands

import (
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/tbourn/go-messenger-store/internal/seed"
)

var seedOpts = seed.DefaultOptions()

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Generate users, conversations and alternating messages",
	Long: `seed writes fixture data through the same resolver and fan-out paths
the application uses, so every view stays consistent.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		s := &seed.Seeder{
			Async:         a.gw,
			Conversations: a.conversations,
			Messages:      a.messages,
			Log:           log.Logger,
		}
		res, err := s.Run(cmd.Context(), seedOpts)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), res)
	},
}

func init() {
	f := seedCmd.Flags()
	f.IntVar(&seedOpts.Users, "users", seedOpts.Users, "users to create")
	f.IntVar(&seedOpts.Conversations, "conversations", seedOpts.Conversations, "conversations to create (capped by distinct pairs)")
	f.IntVar(&seedOpts.MinMessages, "min-messages", seedOpts.MinMessages, "minimum messages per conversation")
	f.IntVar(&seedOpts.MaxMessages, "max-messages", seedOpts.MaxMessages, "maximum messages per conversation")
	f.Float64Var(&seedOpts.Rate, "rate", 0, "operations (user inserts, resolutions, sends) per second, 0 for unlimited")
	f.Uint64Var(&seedOpts.Seed, "seed", 0, "random seed for reproducible fixtures")
	AddCommand(seedCmd)
}
