package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/example/dps-agent/internal/auth"
	"github.com/example/dps-agent/internal/config"
	"github.com/example/dps-agent/internal/db"
	"github.com/example/dps-agent/internal/migrate"
)

func newUserCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage users",
	}
	cmd.AddCommand(newUserAddCmd())
	return cmd
}

func newUserAddCmd() *cobra.Command {
	var username, password string

	c := &cobra.Command{
		Use:   "add",
		Short: "Add a local user (username/password)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.FromEnv()
			if err != nil {
				return err
			}

			username = strings.ToLower(strings.TrimSpace(username))
			if username == "" {
				return fmt.Errorf("username required")
			}
			if password == "" {
				// Read from stdin so the password stays out of shell history.
				fmt.Fprint(os.Stderr, "password: ")
				line, err := bufio.NewReader(os.Stdin).ReadString('\n')
				if err != nil {
					return fmt.Errorf("reading password: %w", err)
				}
				password = strings.TrimRight(line, "\r\n")
			}
			if password == "" {
				return fmt.Errorf("password required")
			}

			ctx := context.Background()
			d, err := db.Open(ctx, cfg.DatabaseURL)
			if err != nil {
				return err
			}
			defer d.Close()

			if err := migrate.Up(ctx, d); err != nil {
				return err
			}

			store := auth.NewStore(d, cfg.CookieHashKey, cfg.CookieBlockKey)
			if err := store.CreateUser(ctx, username, password); err != nil {
				return err
			}
			fmt.Fprintf(os.Stdout, "created user %q\n", username)
			return nil
		},
	}

	c.Flags().StringVar(&username, "username", "", "username")
	c.Flags().StringVar(&password, "password", "", "password (omit to read from stdin)")
	_ = c.MarkFlagRequired("username")
	return c
}
