package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/example/dps-agent/internal/config"
	"github.com/example/dps-agent/internal/db"
	"github.com/example/dps-agent/internal/domain/booking"
	"github.com/example/dps-agent/internal/domain/profile"
	"github.com/example/dps-agent/internal/migrate"
	"github.com/example/dps-agent/internal/profiles"
)

func newProfileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Manage applicant profiles (non-UI)",
	}
	cmd.AddCommand(newProfileAddCmd())
	cmd.AddCommand(newProfileListCmd())
	cmd.AddCommand(newProfileAnalyzeCmd())
	return cmd
}

func profileFlags(c *cobra.Command, rec *profiles.Record, priority *string) {
	c.Flags().StringVar(&rec.Name, "name", "", "profile label")
	c.Flags().StringVar(&rec.FirstName, "first-name", "", "first name")
	c.Flags().StringVar(&rec.LastName, "last-name", "", "last name")
	c.Flags().StringVar(&rec.DOB, "dob", "", "date of birth (MM/DD/YYYY)")
	c.Flags().StringVar(&rec.SSNLast4, "ssn-last4", "", "last 4 digits of SSN")
	c.Flags().StringVar(&rec.Phone, "phone", "", "cell phone")
	c.Flags().StringVar(&rec.Email, "email", "", "email address")
	c.Flags().StringVar(&rec.ZIPCode, "zip", "", "ZIP code for location search")
	c.Flags().StringVar(priority, "slot-priority", "any", "same_day|next_day|this_week|any")
	c.Flags().BoolVar(&rec.HasTexasLicense, "has-texas-license", false, "holds a Texas license")
	c.Flags().BoolVar(&rec.HasOutOfStateLicense, "has-oos-license", false, "holds an out-of-state license")
	c.Flags().BoolVar(&rec.LicenseExpired, "license-expired", false, "license is expired")
	c.Flags().BoolVar(&rec.LicenseLostStolen, "license-lost", false, "license lost or stolen")
	c.Flags().BoolVar(&rec.IsCommercial, "commercial", false, "needs a commercial license")
	c.Flags().BoolVar(&rec.IDOnly, "id-only", false, "wants an ID card, not a license")
	c.Flags().BoolVar(&rec.NeedsPermit, "permit", false, "needs a learner permit")
	c.Flags().IntVar(&rec.Age, "age", 0, "applicant age (0 = unknown)")
	c.Flags().StringVar(&rec.NotifyEmail, "notify-email", "", "notification address (defaults to --email)")
}

func newProfileAddCmd() *cobra.Command {
	var (
		rec      profiles.Record
		userID   int64
		priority string
	)

	c := &cobra.Command{
		Use:   "add",
		Short: "Add an applicant profile",
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

			rec.UserID = userID
			rec.SlotPriority = profile.SlotPriority(priority)
			id, err := profiles.NewRepo(d).Create(ctx, rec)
			if err != nil {
				return err
			}
			fmt.Fprintf(os.Stdout, "created profile %d (%s)\n", id, rec.Name)
			return nil
		},
	}

	c.Flags().Int64Var(&userID, "user-id", 0, "owning user id")
	profileFlags(c, &rec, &priority)
	_ = c.MarkFlagRequired("user-id")
	_ = c.MarkFlagRequired("name")
	_ = c.MarkFlagRequired("first-name")
	_ = c.MarkFlagRequired("last-name")
	_ = c.MarkFlagRequired("dob")
	_ = c.MarkFlagRequired("ssn-last4")
	_ = c.MarkFlagRequired("email")
	return c
}

func newProfileListCmd() *cobra.Command {
	var userID int64

	c := &cobra.Command{
		Use:   "list",
		Short: "List profiles for a user",
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

			recs, err := profiles.NewRepo(d).ListByUser(ctx, userID)
			if err != nil {
				return err
			}
			for _, r := range recs {
				rec := booking.Classify(r.Profile)
				fmt.Fprintf(os.Stdout, "%d\t%s\t%s %s\tzip=%s\tservice=%s\n",
					r.ID, r.Name, r.FirstName, r.LastName, r.ZIPCode, rec.Service.Key)
			}
			return nil
		},
	}

	c.Flags().Int64Var(&userID, "user-id", 0, "owning user id")
	_ = c.MarkFlagRequired("user-id")
	return c
}

// newProfileAnalyzeCmd runs the decision engine from flags alone, no
// database needed.
func newProfileAnalyzeCmd() *cobra.Command {
	var (
		rec      profiles.Record
		priority string
	)

	c := &cobra.Command{
		Use:   "analyze",
		Short: "Recommend a service type for an applicant",
		RunE: func(cmd *cobra.Command, args []string) error {
			rec.SlotPriority = profile.SlotPriority(priority)
			out := booking.Classify(rec.Profile)
			fmt.Fprintf(os.Stdout, "service:    %s (%s)\n", out.Service.Name, out.Service.Key)
			fmt.Fprintf(os.Stdout, "confidence: %.2f\n", out.Confidence)
			fmt.Fprintf(os.Stdout, "reasoning:  %s\n", out.Reasoning)
			for _, tip := range out.Tips {
				fmt.Fprintf(os.Stdout, "  - %s\n", tip)
			}
			return nil
		},
	}

	profileFlags(c, &rec, &priority)
	return c
}
