package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/example/dps-agent/internal/config"
	"github.com/example/dps-agent/internal/db"
	"github.com/example/dps-agent/internal/domain/booking"
	"github.com/example/dps-agent/internal/jobs"
	"github.com/example/dps-agent/internal/migrate"
	"github.com/example/dps-agent/internal/profiles"
)

func newJobCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "job",
		Short: "Manage monitoring jobs (non-UI)",
	}
	cmd.AddCommand(newJobCreateCmd())
	cmd.AddCommand(newJobListCmd())
	return cmd
}

func newJobCreateCmd() *cobra.Command {
	var (
		userID          int64
		profileID       int64
		name            string
		serviceKey      string
		autoBook        bool
		intervalMinutes int
		maxAttempts     int
	)

	c := &cobra.Command{
		Use:   "create",
		Short: "Create a monitoring job for a profile",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.FromEnv()
			if err != nil {
				return err
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

			if serviceKey == "" {
				rec, err := profiles.NewRepo(d).GetByIDForUser(ctx, profileID, userID)
				if err != nil {
					return fmt.Errorf("profile %d: %w", profileID, err)
				}
				serviceKey = string(booking.Classify(rec.Profile).Service.Key)
			}

			id, err := jobs.NewRepo(d).Create(ctx, jobs.Job{
				UserID:               userID,
				ProfileID:            profileID,
				Name:                 name,
				ServiceKey:           serviceKey,
				AutoBook:             autoBook,
				CheckIntervalMinutes: intervalMinutes,
				MaxAttempts:          maxAttempts,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(os.Stdout, "created job %d (service=%s); start it via the API\n", id, serviceKey)
			return nil
		},
	}

	c.Flags().Int64Var(&userID, "user-id", 0, "owning user id")
	c.Flags().Int64Var(&profileID, "profile-id", 0, "applicant profile id")
	c.Flags().StringVar(&name, "name", "", "job label")
	c.Flags().StringVar(&serviceKey, "service", "", "service key (empty = recommend from profile)")
	c.Flags().BoolVar(&autoBook, "auto-book", false, "book automatically when a good slot appears")
	c.Flags().IntVar(&intervalMinutes, "interval-minutes", 5, "minutes between availability checks")
	c.Flags().IntVar(&maxAttempts, "max-attempts", 100, "give up after this many checks")
	_ = c.MarkFlagRequired("user-id")
	_ = c.MarkFlagRequired("profile-id")
	_ = c.MarkFlagRequired("name")
	return c
}

func newJobListCmd() *cobra.Command {
	var userID int64

	c := &cobra.Command{
		Use:   "list",
		Short: "List jobs for a user",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.FromEnv()
			if err != nil {
				return err
			}
			ctx := context.Background()
			d, err := db.Open(ctx, cfg.DatabaseURL)
			if err != nil {
				return err
			}
			defer d.Close()

			js, err := jobs.NewRepo(d).ListByUser(ctx, userID)
			if err != nil {
				return err
			}
			for _, j := range js {
				line := fmt.Sprintf("%d\t%s\t%s\tservice=%s\tattempts=%d/%d",
					j.ID, j.Name, j.Status, j.ServiceKey, j.Attempts, j.MaxAttempts)
				if j.AppointmentDate != nil {
					line += fmt.Sprintf("\tbooked=%s", *j.AppointmentDate)
				}
				fmt.Fprintln(os.Stdout, line)
			}
			return nil
		},
	}

	c.Flags().Int64Var(&userID, "user-id", 0, "owning user id")
	_ = c.MarkFlagRequired("user-id")
	return c
}
