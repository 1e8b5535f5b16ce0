package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/example/dps-agent/internal/config"
	"github.com/example/dps-agent/internal/domain/booking"
	"github.com/example/dps-agent/internal/domain/profile"
	"github.com/example/dps-agent/internal/engine"
	"github.com/example/dps-agent/internal/mailbox"
	"github.com/example/dps-agent/internal/profiles"
)

// newCheckCmd runs a single availability check from flags, no database or
// server needed. Useful for trying out a profile before creating a job.
func newCheckCmd() *cobra.Command {
	var (
		rec      profiles.Record
		priority string
		service  string
		autoBook bool
	)

	c := &cobra.Command{
		Use:   "check",
		Short: "Run one availability check for an applicant",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.FromEnv()
			if err != nil {
				return err
			}
			log, err := newLogger()
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			rec.SlotPriority = profile.SlotPriority(priority)
			prof := rec.Profile

			var svc booking.Service
			if service != "" {
				var ok bool
				svc, ok = booking.LookupService(booking.ServiceKey(service))
				if !ok {
					return fmt.Errorf("unknown service %q", service)
				}
			} else {
				out := booking.Classify(prof)
				svc = out.Service
				fmt.Fprintf(os.Stdout, "recommended service: %s (confidence %.2f)\n", svc.Name, out.Confidence)
			}

			var codes engine.CodeSource
			if cfg.IMAPAddr != "" {
				codes = mailbox.NewRetriever(&mailbox.IMAPFetcher{
					Addr:     cfg.IMAPAddr,
					Username: cfg.IMAPUser,
					Password: cfg.IMAPPassword,
				}, log)
			}

			eng := engine.New(engine.Config{
				BaseURL:          cfg.SchedulerURL,
				Profile:          prof,
				PreferredService: svc,
				AutoBook:         autoBook,
				AutoBookLimit:    cfg.AutoBookThreshold,
			}, engine.NewPlaywrightLauncher(cfg.Headless, cfg.ScreenshotDir), codes, nil, log)

			res, err := eng.Run(ctx)
			if err != nil {
				return err
			}
			if res == nil {
				fmt.Fprintln(os.Stdout, "no appointments available")
				return nil
			}

			fmt.Fprintf(os.Stdout, "location:       %s (near %s)\n", res.Location, res.ZIPCode)
			fmt.Fprintf(os.Stdout, "next available: %s\n", res.NextAvailable)
			fmt.Fprintf(os.Stdout, "open dates:     %s\n", strings.Join(res.AvailableDates, ", "))
			if res.BookingAttempted {
				fmt.Fprintf(os.Stdout, "booking:        target=%s confirmed=%v\n", res.TargetDate, res.BookingConfirmed)
			}
			return nil
		},
	}

	profileFlags(c, &rec, &priority)
	c.Flags().StringVar(&service, "service", "", "service key (empty = recommend from profile)")
	c.Flags().BoolVar(&autoBook, "auto-book", false, "book the best slot if it scores above the threshold")
	_ = c.MarkFlagRequired("first-name")
	_ = c.MarkFlagRequired("last-name")
	_ = c.MarkFlagRequired("dob")
	_ = c.MarkFlagRequired("ssn-last4")
	_ = c.MarkFlagRequired("email")
	return c
}
