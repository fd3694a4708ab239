package commands

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/tbourn/go-messenger-store/internal/domain"
	"github.com/tbourn/go-messenger-store/internal/repo"
)

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage user records",
}

var userAddCmd = &cobra.Command{
	Use:   "add <username>",
	Short: "Create a user with a fresh id",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := strings.TrimSpace(args[0])
		if name == "" {
			return errors.New("username must not be empty")
		}
		a, err := newApp(cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		u := &domain.User{
			ID:        uuid.NewString(),
			Username:  name,
			CreatedAt: time.Now().UTC().Truncate(time.Millisecond),
		}
		if err := repo.InsertUser(cmd.Context(), a.gw, u); err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), u)
	},
}

var userGetCmd = &cobra.Command{
	Use:   "get <user-id>",
	Short: "Show a user",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		u, err := repo.GetUser(cmd.Context(), a.gw, args[0])
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), u)
	},
}

var userLoginCmd = &cobra.Command{
	Use:   "login <user-id>",
	Short: "Record a login for a user",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		ctx := cmd.Context()
		if err := repo.TouchLastLogin(ctx, a.gw, args[0], time.Now().UTC().Truncate(time.Millisecond)); err != nil {
			return err
		}
		u, err := repo.GetUser(ctx, a.gw, args[0])
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), u)
	},
}

func init() {
	userCmd.AddCommand(userAddCmd, userGetCmd, userLoginCmd)
	AddCommand(userCmd)
}
