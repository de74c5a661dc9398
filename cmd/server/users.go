package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/vovakirdan/relaychat/internal/app"
)

func newUsersCmd(opts *rootOptions) *cobra.Command {
	users := &cobra.Command{
		Use:   "users",
		Short: "Manage users referenced by messages",
	}

	users.AddCommand(&cobra.Command{
		Use:   "add <username>",
		Short: "Create a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig(opts)
			if err != nil {
				return err
			}
			st, err := app.OpenStore(cfg.Database)
			if err != nil {
				return err
			}
			defer st.Close()

			u, err := st.CreateUser(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("create user: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d\t%s\n", u.ID, u.Username)
			return nil
		},
	})

	users.AddCommand(&cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a user; their messages are kept without an author reference",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid user id %q: %w", args[0], err)
			}
			cfg, _, err := loadConfig(opts)
			if err != nil {
				return err
			}
			st, err := app.OpenStore(cfg.Database)
			if err != nil {
				return err
			}
			defer st.Close()

			if err := st.DeleteUser(cmd.Context(), id); err != nil {
				return fmt.Errorf("delete user: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted user %d\n", id)
			return nil
		},
	})

	return users
}
