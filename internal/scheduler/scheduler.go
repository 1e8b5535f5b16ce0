// Package scheduler runs monitoring jobs on their check intervals.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/example/dps-agent/internal/domain/booking"
	"github.com/example/dps-agent/internal/domain/profile"
	"github.com/example/dps-agent/internal/engine"
	"github.com/example/dps-agent/internal/jobs"
	"github.com/example/dps-agent/internal/notify"
	"github.com/example/dps-agent/internal/profiles"
)

// EngineFactory builds the engine for one job run. Each run gets a fresh
// engine so per-run config (service, auto-book) stays immutable.
type EngineFactory func(job jobs.Job, prof profile.Profile, svc booking.Service, sink engine.Sink) *engine.Engine

// Broadcaster mirrors status events to live subscribers. Optional.
type Broadcaster interface {
	Sink(jobID int64) engine.Sink
}

// Scheduler owns the cron table mapping job IDs to periodic checks. One
// check per job runs at a time; a tick that fires while the previous check
// is still going is skipped.
type Scheduler struct {
	Jobs     *jobs.Repo
	Profiles *profiles.Repo
	Factory  EngineFactory
	Mailer   notify.Mailer
	Events   Broadcaster
	Log      *zap.Logger

	cron    *cron.Cron
	mu      sync.Mutex
	entries map[int64]cron.EntryID
	running map[int64]bool
	wg      sync.WaitGroup

	ctx    context.Context
	cancel context.CancelFunc
}

func New(jobRepo *jobs.Repo, profRepo *profiles.Repo, factory EngineFactory, mailer notify.Mailer, events Broadcaster, log *zap.Logger) *Scheduler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Scheduler{
		Jobs:     jobRepo,
		Profiles: profRepo,
		Factory:  factory,
		Mailer:   mailer,
		Events:   events,
		Log:      log,
		cron:     cron.New(),
		entries:  make(map[int64]cron.EntryID),
		running:  make(map[int64]bool),
	}
}

// Start brings the cron loop up and resumes jobs that were active before a
// restart.
func (s *Scheduler) Start(ctx context.Context) error {
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.cron.Start()

	active, err := s.Jobs.Active(ctx)
	if err != nil {
		return fmt.Errorf("loading active jobs: %w", err)
	}
	for _, j := range active {
		if err := s.schedule(j); err != nil {
			s.Log.Error("resuming job failed", zap.Int64("job_id", j.ID), zap.Error(err))
		}
	}
	s.Log.Info("scheduler started", zap.Int("resumed_jobs", len(active)))
	return nil
}

// Stop halts the cron table and waits for in-flight checks.
func (s *Scheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	stopCtx := s.cron.Stop()
	<-stopCtx.Done()
	s.wg.Wait()
}

// StartJob begins monitoring: first check immediately, then on the job's
// interval.
func (s *Scheduler) StartJob(ctx context.Context, jobID int64) error {
	j, err := s.Jobs.Get(ctx, jobID)
	if err != nil {
		return err
	}
	if jobs.Terminal(j.Status) {
		return fmt.Errorf("job %d is %s", jobID, j.Status)
	}

	if err := s.Jobs.SetStatus(ctx, jobID, jobs.StatusRunning, nil); err != nil {
		return err
	}
	if err := s.schedule(j); err != nil {
		return err
	}

	// Immediate first check; the cron entry handles the rest.
	s.spawnCheck(jobID)
	return nil
}

// StopJob stops monitoring and marks the job stopped.
func (s *Scheduler) StopJob(ctx context.Context, jobID int64) error {
	s.unschedule(jobID)
	return s.Jobs.SetStatus(ctx, jobID, jobs.StatusStopped, nil)
}

func (s *Scheduler) schedule(j jobs.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[j.ID]; ok {
		return nil
	}
	spec := fmt.Sprintf("@every %dm", j.CheckIntervalMinutes)
	id, err := s.cron.AddFunc(spec, func() { s.spawnCheck(j.ID) })
	if err != nil {
		return fmt.Errorf("scheduling job %d: %w", j.ID, err)
	}
	s.entries[j.ID] = id
	return nil
}

func (s *Scheduler) unschedule(jobID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id, ok := s.entries[jobID]; ok {
		s.cron.Remove(id)
		delete(s.entries, jobID)
	}
}

// spawnCheck runs one check in its own goroutine unless the previous check
// for this job is still in flight.
func (s *Scheduler) spawnCheck(jobID int64) {
	s.mu.Lock()
	if s.running[jobID] {
		s.mu.Unlock()
		s.Log.Debug("check still in flight, skipping tick", zap.Int64("job_id", jobID))
		return
	}
	s.running[jobID] = true
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() {
			s.mu.Lock()
			delete(s.running, jobID)
			s.mu.Unlock()
		}()
		s.runCheck(s.ctx, jobID)
	}()
}

// runCheck performs one availability check for the job and applies the
// resulting status transition.
func (s *Scheduler) runCheck(ctx context.Context, jobID int64) {
	j, err := s.Jobs.Get(ctx, jobID)
	if err != nil {
		s.Log.Error("loading job", zap.Int64("job_id", jobID), zap.Error(err))
		return
	}
	if jobs.Terminal(j.Status) {
		s.unschedule(jobID)
		return
	}

	rec, err := s.Profiles.GetByIDForUser(ctx, j.ProfileID, j.UserID)
	if err != nil {
		s.failJob(ctx, j, fmt.Sprintf("loading profile: %v", err))
		return
	}
	svc, ok := booking.LookupService(booking.ServiceKey(j.ServiceKey))
	if !ok {
		s.failJob(ctx, j, fmt.Sprintf("unknown service %q", j.ServiceKey))
		return
	}

	attempts, err := s.Jobs.MarkChecked(ctx, jobID)
	if err != nil {
		s.Log.Error("marking attempt", zap.Int64("job_id", jobID), zap.Error(err))
	}

	// Status events go through a bus so log persistence and broadcast never
	// stall the browser interaction loop.
	bus := engine.NewStatusBus(s.Log, s.sinkFor(jobID))
	go bus.Run(context.Background())
	defer bus.Close()

	eng := s.Factory(j, rec.Profile, svc, func(_ context.Context, ev engine.StatusEvent) {
		bus.Publish(ev)
	})
	res, runErr := eng.Run(ctx)

	switch {
	case runErr != nil:
		s.handleRunError(ctx, j, attempts, runErr)
	case res == nil:
		_ = s.Jobs.SetStatus(ctx, jobID, jobs.StatusMonitoring, nil)
		s.enforceAttemptCap(ctx, j, attempts)
	case res.BookingConfirmed:
		_ = s.Jobs.AddResult(ctx, jobID, res)
		if err := s.Jobs.MarkBooked(ctx, jobID, res.TargetDate, res.Location); err != nil {
			s.Log.Error("marking booked", zap.Int64("job_id", jobID), zap.Error(err))
		}
		s.unschedule(jobID)
		s.notifyBooked(rec.Profile, res)
	default:
		_ = s.Jobs.AddResult(ctx, jobID, res)
		status := jobs.StatusAppointmentFound
		if res.BookingAttempted {
			// Booking ran but did not confirm; keep watching.
			status = jobs.StatusMonitoring
		}
		_ = s.Jobs.SetStatus(ctx, jobID, status, nil)
		s.notifyFound(rec.Profile, res)
		s.enforceAttemptCap(ctx, j, attempts)
	}
}

func (s *Scheduler) handleRunError(ctx context.Context, j jobs.Job, attempts int, runErr error) {
	msg := runErr.Error()
	_ = s.Jobs.AddLog(ctx, jobs.Log{JobID: j.ID, Level: string(engine.LevelError), Message: msg})

	// An unverifiable confirm must stop the job: retrying risks booking the
	// same applicant twice.
	if errors.Is(runErr, engine.ErrConfirmationNotDetected) {
		s.failJob(ctx, j, msg)
		return
	}

	_ = s.Jobs.SetStatus(ctx, j.ID, jobs.StatusMonitoring, &msg)
	s.enforceAttemptCap(ctx, j, attempts)
}

func (s *Scheduler) enforceAttemptCap(ctx context.Context, j jobs.Job, attempts int) {
	if attempts < j.MaxAttempts {
		return
	}
	s.failJob(ctx, j, fmt.Sprintf("gave up after %d checks", attempts))
}

func (s *Scheduler) failJob(ctx context.Context, j jobs.Job, msg string) {
	s.Log.Warn("job failed", zap.Int64("job_id", j.ID), zap.String("reason", msg))
	_ = s.Jobs.SetStatus(ctx, j.ID, jobs.StatusFailed, &msg)
	s.unschedule(j.ID)
}

// sinkFor persists every status event and mirrors it to live subscribers.
func (s *Scheduler) sinkFor(jobID int64) engine.Sink {
	var broadcast engine.Sink
	if s.Events != nil {
		broadcast = s.Events.Sink(jobID)
	}
	return func(ctx context.Context, ev engine.StatusEvent) {
		if err := s.Jobs.AddLog(ctx, jobs.Log{
			JobID:      jobID,
			Level:      string(ev.Level),
			Message:    ev.Message,
			Screenshot: ev.Screenshot,
		}); err != nil {
			s.Log.Warn("persisting job log", zap.Int64("job_id", jobID), zap.Error(err))
		}
		if broadcast != nil {
			broadcast(ctx, ev)
		}
	}
}

func (s *Scheduler) notifyFound(p profile.Profile, res *booking.RunResult) {
	if s.Mailer == nil {
		return
	}
	if err := s.Mailer.AppointmentFound(p.MailAddress(), res); err != nil {
		s.Log.Warn("found notification failed", zap.Error(err))
	}
}

func (s *Scheduler) notifyBooked(p profile.Profile, res *booking.RunResult) {
	if s.Mailer == nil {
		return
	}
	if err := s.Mailer.BookingConfirmed(p.MailAddress(), res); err != nil {
		s.Log.Warn("booked notification failed", zap.Error(err))
	}
}
