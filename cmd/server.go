package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/example/dps-agent/internal/auth"
	"github.com/example/dps-agent/internal/config"
	"github.com/example/dps-agent/internal/db"
	"github.com/example/dps-agent/internal/domain/booking"
	"github.com/example/dps-agent/internal/domain/profile"
	"github.com/example/dps-agent/internal/engine"
	"github.com/example/dps-agent/internal/events"
	"github.com/example/dps-agent/internal/jobs"
	"github.com/example/dps-agent/internal/mailbox"
	"github.com/example/dps-agent/internal/migrate"
	"github.com/example/dps-agent/internal/notify"
	"github.com/example/dps-agent/internal/profiles"
	"github.com/example/dps-agent/internal/scheduler"
	"github.com/example/dps-agent/internal/web"
)

func newServerCmd() *cobra.Command {
	var migrateUp bool

	cmd := &cobra.Command{
		Use:   "server",
		Short: "Run the API server + job scheduler",
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

			d, err := db.Open(ctx, cfg.DatabaseURL)
			if err != nil {
				return err
			}
			defer d.Close()

			if err := d.Ping(ctx); err != nil {
				return fmt.Errorf("db ping: %w", err)
			}

			if migrateUp {
				if err := migrate.Up(ctx, d); err != nil {
					return err
				}
			}

			authStore := auth.NewStore(d, cfg.CookieHashKey, cfg.CookieBlockKey)
			profileRepo := profiles.NewRepo(d)
			jobRepo := jobs.NewRepo(d)

			var broadcaster *events.Broadcaster
			var schedEvents scheduler.Broadcaster
			if cfg.RedisAddr != "" {
				rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
				defer func() { _ = rdb.Close() }()
				broadcaster = events.NewBroadcaster(rdb, log)
				schedEvents = broadcaster
			}

			var mailer notify.Mailer
			if cfg.SMTPHost != "" {
				mailer = notify.NewSMTPMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, "", log)
			}

			sched := scheduler.New(jobRepo, profileRepo, engineFactory(cfg, log), mailer, schedEvents, log)
			if err := sched.Start(ctx); err != nil {
				return err
			}
			defer sched.Stop()

			ws := &web.Server{
				Auth:      authStore,
				Profiles:  profileRepo,
				Jobs:      jobRepo,
				Scheduler: sched,
				Events:    broadcaster,
				Log:       log,
			}
			log.Info("serving", zap.String("addr", cfg.ListenAddr))
			return web.Start(ctx, cfg.ListenAddr, ws.Routes())
		},
	}

	cmd.Flags().BoolVar(&migrateUp, "migrate", true, "run database migrations on startup")
	cmd.Flags().Lookup("migrate").NoOptDefVal = "true"
	return cmd
}

// engineFactory builds a per-run engine from the server config and the
// job's profile.
func engineFactory(cfg config.Config, log *zap.Logger) scheduler.EngineFactory {
	launcher := engine.NewPlaywrightLauncher(cfg.Headless, cfg.ScreenshotDir)
	return func(j jobs.Job, prof profile.Profile, svc booking.Service, sink engine.Sink) *engine.Engine {
		var codes engine.CodeSource
		if cfg.IMAPAddr != "" {
			codes = mailbox.NewRetriever(&mailbox.IMAPFetcher{
				Addr:     cfg.IMAPAddr,
				Username: cfg.IMAPUser,
				Password: cfg.IMAPPassword,
			}, log)
		}
		return engine.New(engine.Config{
			BaseURL:          cfg.SchedulerURL,
			Profile:          prof,
			PreferredService: svc,
			AutoBook:         j.AutoBook,
			AutoBookLimit:    cfg.AutoBookThreshold,
		}, launcher, codes, sink, log.With(zap.Int64("job_id", j.ID)))
	}
}
