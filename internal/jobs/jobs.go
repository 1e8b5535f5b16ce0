// Package jobs persists monitoring jobs and their run history.
package jobs

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/example/dps-agent/internal/db"
	"github.com/example/dps-agent/internal/domain/booking"
)

// Job statuses. A job moves pending -> running -> monitoring and loops
// until it lands in one of the terminal states booked, failed or stopped.
const (
	StatusPending          = "pending"
	StatusRunning          = "running"
	StatusMonitoring       = "monitoring"
	StatusAppointmentFound = "appointment_found"
	StatusBooking          = "booking"
	StatusOTPWaiting       = "otp_waiting"
	StatusBooked           = "booked"
	StatusFailed           = "failed"
	StatusStopped          = "stopped"
)

// Terminal reports whether a status ends the job's scheduling.
func Terminal(status string) bool {
	switch status {
	case StatusBooked, StatusFailed, StatusStopped:
		return true
	}
	return false
}

type Job struct {
	ID         int64
	UserID     int64
	ProfileID  int64
	Name       string
	ServiceKey string

	Status               string
	AutoBook             bool
	CheckIntervalMinutes int
	Attempts             int
	MaxAttempts          int

	AppointmentDate     *string
	AppointmentLocation *string
	LastCheckedAt       *time.Time
	BookedAt            *time.Time
	LastError           *string

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (j Job) Validate() error {
	if j.Name == "" {
		return fmt.Errorf("name required")
	}
	if j.ProfileID == 0 {
		return fmt.Errorf("profile_id required")
	}
	if _, ok := booking.LookupService(booking.ServiceKey(j.ServiceKey)); !ok {
		return fmt.Errorf("unknown service_key %q", j.ServiceKey)
	}
	if j.CheckIntervalMinutes < 1 {
		return fmt.Errorf("check_interval_minutes must be >= 1")
	}
	if j.MaxAttempts < 1 {
		return fmt.Errorf("max_attempts must be >= 1")
	}
	return nil
}

// Log is one persisted status line from a run.
type Log struct {
	ID         int64
	JobID      int64
	Level      string
	Message    string
	Screenshot string
	CreatedAt  time.Time
}

// Result is one persisted availability check outcome.
type Result struct {
	ID               int64
	JobID            int64
	Location         string
	ZIPCode          string
	NextAvailable    string
	AvailableDates   []string
	TotalSlots       int
	TargetDate       string
	BookingAttempted bool
	BookingConfirmed bool
	CheckedAt        time.Time
}

type Repo struct{ db *db.DB }

func NewRepo(d *db.DB) *Repo { return &Repo{db: d} }

const jobColumns = `id,user_id,profile_id,name,service_key,status,auto_book,check_interval_minutes,
attempts,max_attempts,appointment_date,appointment_location,last_checked_at,booked_at,last_error,created_at,updated_at`

func (r *Repo) Create(ctx context.Context, j Job) (int64, error) {
	if err := j.Validate(); err != nil {
		return 0, err
	}
	var id int64
	err := r.db.QueryRow(ctx, `
INSERT INTO jobs(user_id,profile_id,name,service_key,status,auto_book,check_interval_minutes,max_attempts)
VALUES ($1,$2,$3,$4,'pending',$5,$6,$7)
RETURNING id`,
		j.UserID, j.ProfileID, j.Name, j.ServiceKey, j.AutoBook, j.CheckIntervalMinutes, j.MaxAttempts,
	).Scan(&id)
	return id, db.WrapNotFound(err)
}

func (r *Repo) Get(ctx context.Context, id int64) (Job, error) {
	j, err := scanJob(r.db.QueryRow(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id=$1`, id))
	if err != nil {
		return Job{}, db.WrapNotFound(err)
	}
	return j, nil
}

func (r *Repo) GetByIDForUser(ctx context.Context, id, userID int64) (Job, error) {
	j, err := scanJob(r.db.QueryRow(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id=$1 AND user_id=$2`, id, userID))
	if err != nil {
		return Job{}, db.WrapNotFound(err)
	}
	return j, nil
}

func (r *Repo) ListByUser(ctx context.Context, userID int64) ([]Job, error) {
	rows, err := r.db.Query(ctx, `SELECT `+jobColumns+` FROM jobs WHERE user_id=$1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectJobs(rows)
}

// Active returns the jobs that should be scheduled after a restart.
func (r *Repo) Active(ctx context.Context) ([]Job, error) {
	rows, err := r.db.Query(ctx, `
SELECT `+jobColumns+` FROM jobs
WHERE status NOT IN ('booked','failed','stopped','pending')
ORDER BY created_at ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectJobs(rows)
}

func (r *Repo) SetStatus(ctx context.Context, jobID int64, status string, lastErr *string) error {
	return r.db.Exec(ctx, `UPDATE jobs SET status=$2, last_error=$3, updated_at=now() WHERE id=$1`, jobID, status, lastErr)
}

// MarkChecked bumps the attempt counter after one availability check.
func (r *Repo) MarkChecked(ctx context.Context, jobID int64) (attempts int, err error) {
	err = r.db.QueryRow(ctx, `
UPDATE jobs SET attempts=attempts+1, last_checked_at=now(), updated_at=now()
WHERE id=$1
RETURNING attempts`, jobID).Scan(&attempts)
	return attempts, db.WrapNotFound(err)
}

// MarkBooked records the booked appointment and finishes the job.
func (r *Repo) MarkBooked(ctx context.Context, jobID int64, date, location string) error {
	return r.db.Exec(ctx, `
UPDATE jobs SET status='booked', appointment_date=$2, appointment_location=$3,
  booked_at=now(), last_error=NULL, updated_at=now()
WHERE id=$1`, jobID, date, location)
}

func (r *Repo) AddLog(ctx context.Context, l Log) error {
	return r.db.Exec(ctx, `INSERT INTO agent_logs(job_id, level, message, screenshot) VALUES ($1,$2,$3,$4)`,
		l.JobID, l.Level, l.Message, l.Screenshot)
}

func (r *Repo) ListLogs(ctx context.Context, jobID int64, limit int) ([]Log, error) {
	if limit < 1 {
		limit = 100
	}
	rows, err := r.db.Query(ctx, `
SELECT id, job_id, level, message, screenshot, created_at
FROM agent_logs WHERE job_id=$1 ORDER BY created_at DESC LIMIT $2`, jobID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Log
	for rows.Next() {
		var l Log
		if err := rows.Scan(&l.ID, &l.JobID, &l.Level, &l.Message, &l.Screenshot, &l.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (r *Repo) AddResult(ctx context.Context, jobID int64, res *booking.RunResult) error {
	return r.db.Exec(ctx, `
INSERT INTO booking_results(job_id, location, zip_code, next_available, available_dates, total_slots,
  target_date, booking_attempted, booking_confirmed, checked_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		jobID, res.Location, res.ZIPCode, res.NextAvailable, strings.Join(res.AvailableDates, ","),
		res.TotalSlots, res.TargetDate, res.BookingAttempted, res.BookingConfirmed, res.CheckedAt)
}

func (r *Repo) ListResults(ctx context.Context, jobID int64, limit int) ([]Result, error) {
	if limit < 1 {
		limit = 50
	}
	rows, err := r.db.Query(ctx, `
SELECT id, job_id, location, zip_code, next_available, available_dates, total_slots,
  target_date, booking_attempted, booking_confirmed, checked_at
FROM booking_results WHERE job_id=$1 ORDER BY checked_at DESC LIMIT $2`, jobID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Result
	for rows.Next() {
		var res Result
		var dates string
		if err := rows.Scan(&res.ID, &res.JobID, &res.Location, &res.ZIPCode, &res.NextAvailable, &dates,
			&res.TotalSlots, &res.TargetDate, &res.BookingAttempted, &res.BookingConfirmed, &res.CheckedAt); err != nil {
			return nil, err
		}
		res.AvailableDates = splitDates(dates)
		out = append(out, res)
	}
	return out, rows.Err()
}

func scanJob(row db.Row) (Job, error) {
	var j Job
	err := row.Scan(
		&j.ID, &j.UserID, &j.ProfileID, &j.Name, &j.ServiceKey, &j.Status, &j.AutoBook, &j.CheckIntervalMinutes,
		&j.Attempts, &j.MaxAttempts, &j.AppointmentDate, &j.AppointmentLocation,
		&j.LastCheckedAt, &j.BookedAt, &j.LastError, &j.CreatedAt, &j.UpdatedAt,
	)
	return j, err
}

func collectJobs(rows db.Rows) ([]Job, error) {
	var out []Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, j)
	}
	return out, rows.Err()
}

func splitDates(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := parts[:0]
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
