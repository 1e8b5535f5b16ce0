// Package web serves the JSON API for profiles, jobs and run history.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/example/dps-agent/internal/auth"
	"github.com/example/dps-agent/internal/db"
	"github.com/example/dps-agent/internal/domain/booking"
	"github.com/example/dps-agent/internal/domain/profile"
	"github.com/example/dps-agent/internal/events"
	"github.com/example/dps-agent/internal/jobs"
	"github.com/example/dps-agent/internal/profiles"
	"github.com/example/dps-agent/internal/scheduler"
)

type Server struct {
	Auth      *auth.Store
	Profiles  *profiles.Repo
	Jobs      *jobs.Repo
	Scheduler *scheduler.Scheduler
	Events    *events.Broadcaster // nil when redis is not configured
	Log       *zap.Logger
}

func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})

	mux.HandleFunc("POST /api/login", s.handleLogin)
	mux.HandleFunc("POST /api/logout", s.handleLogout)

	mux.Handle("POST /api/profiles", s.authed(s.handleProfileCreate))
	mux.Handle("GET /api/profiles", s.authed(s.handleProfileList))
	mux.Handle("DELETE /api/profiles/{id}", s.authed(s.handleProfileDelete))
	mux.Handle("POST /api/analyze", s.authed(s.handleAnalyze))

	mux.Handle("POST /api/jobs", s.authed(s.handleJobCreate))
	mux.Handle("GET /api/jobs", s.authed(s.handleJobList))
	mux.Handle("GET /api/jobs/{id}", s.authed(s.handleJobGet))
	mux.Handle("POST /api/jobs/{id}/start", s.authed(s.handleJobStart))
	mux.Handle("POST /api/jobs/{id}/stop", s.authed(s.handleJobStop))
	mux.Handle("GET /api/jobs/{id}/logs", s.authed(s.handleJobLogs))
	mux.Handle("GET /api/jobs/{id}/results", s.authed(s.handleJobResults))
	mux.Handle("GET /api/jobs/{id}/events", s.authed(s.handleJobEvents))

	return mux
}

func (s *Server) authed(h http.HandlerFunc) http.Handler {
	return s.Auth.RequireAuth(h)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if !s.decode(w, r, &req) {
		return
	}
	id, err := s.Auth.Authenticate(r.Context(), strings.TrimSpace(req.Username), req.Password)
	if err != nil {
		s.writeErr(w, http.StatusUnauthorized, "invalid username/password")
		return
	}
	if err := s.Auth.SetSession(w, r, id); err != nil {
		s.writeErr(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"user_id": id})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.Auth.ClearSession(w)
	s.writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

type profilePayload struct {
	Name               string `json:"name"`
	FirstName          string `json:"first_name"`
	LastName           string `json:"last_name"`
	DOB                string `json:"dob"`
	SSNLast4           string `json:"ssn_last4"`
	Phone              string `json:"phone"`
	Email              string `json:"email"`
	ZIPCode            string `json:"zip_code"`
	LocationPreference string `json:"location_preference"`
	MaxDistanceMiles   int    `json:"max_distance_miles"`
	SlotPriority       string `json:"slot_priority"`

	HasTexasLicense      bool `json:"has_texas_license"`
	HasOutOfStateLicense bool `json:"has_out_of_state_license"`
	LicenseExpired       bool `json:"license_expired"`
	LicenseLostStolen    bool `json:"license_lost_stolen"`
	IsCommercial         bool `json:"is_commercial"`
	IDOnly               bool `json:"id_only"`
	NeedsPermit          bool `json:"needs_permit"`
	Age                  int  `json:"age"`

	NotifyEmail string `json:"notify_email"`
}

func (p profilePayload) toProfile() profile.Profile {
	priority := profile.SlotPriority(p.SlotPriority)
	if priority == "" {
		priority = profile.PriorityAny
	}
	return profile.Profile{
		FirstName:            p.FirstName,
		LastName:             p.LastName,
		DOB:                  p.DOB,
		SSNLast4:             p.SSNLast4,
		Phone:                p.Phone,
		Email:                p.Email,
		ZIPCode:              p.ZIPCode,
		LocationPreference:   p.LocationPreference,
		MaxDistanceMiles:     p.MaxDistanceMiles,
		SlotPriority:         priority,
		HasTexasLicense:      p.HasTexasLicense,
		HasOutOfStateLicense: p.HasOutOfStateLicense,
		LicenseExpired:       p.LicenseExpired,
		LicenseLostStolen:    p.LicenseLostStolen,
		IsCommercial:         p.IsCommercial,
		IDOnly:               p.IDOnly,
		NeedsPermit:          p.NeedsPermit,
		Age:                  p.Age,
		NotifyEmail:          p.NotifyEmail,
	}
}

func (s *Server) handleProfileCreate(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())
	var req profilePayload
	if !s.decode(w, r, &req) {
		return
	}
	rec := profiles.Record{UserID: uid, Name: req.Name, Profile: req.toProfile()}
	id, err := s.Profiles.Create(r.Context(), rec)
	if err != nil {
		s.writeErr(w, http.StatusBadRequest, err.Error())
		return
	}
	s.writeJSON(w, http.StatusCreated, map[string]any{"id": id})
}

func (s *Server) handleProfileList(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())
	recs, err := s.Profiles.ListByUser(r.Context(), uid)
	if err != nil {
		s.writeErr(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, recs)
}

func (s *Server) handleProfileDelete(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	if err := s.Profiles.Delete(r.Context(), id, uid); err != nil {
		s.writeErr(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

// handleAnalyze runs the decision engine over a profile without persisting
// anything: which service to book and how to approach it.
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req profilePayload
	if !s.decode(w, r, &req) {
		return
	}
	rec := booking.Classify(req.toProfile())
	s.writeJSON(w, http.StatusOK, map[string]any{
		"service_key": rec.Service.Key,
		"service":     rec.Service.Name,
		"confidence":  rec.Confidence,
		"reasoning":   rec.Reasoning,
		"tips":        rec.Tips,
	})
}

type jobPayload struct {
	Name                 string `json:"name"`
	ProfileID            int64  `json:"profile_id"`
	ServiceKey           string `json:"service_key"`
	AutoBook             bool   `json:"auto_book"`
	CheckIntervalMinutes int    `json:"check_interval_minutes"`
	MaxAttempts          int    `json:"max_attempts"`
}

func (s *Server) handleJobCreate(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())
	var req jobPayload
	if !s.decode(w, r, &req) {
		return
	}
	if req.CheckIntervalMinutes == 0 {
		req.CheckIntervalMinutes = 5
	}
	if req.MaxAttempts == 0 {
		req.MaxAttempts = 100
	}

	// The profile must belong to the caller.
	rec, err := s.Profiles.GetByIDForUser(r.Context(), req.ProfileID, uid)
	if err != nil {
		s.writeErr(w, http.StatusBadRequest, "profile not found")
		return
	}
	if req.ServiceKey == "" {
		// No explicit service: let the decision engine pick from the profile.
		req.ServiceKey = string(booking.Classify(rec.Profile).Service.Key)
	}

	id, err := s.Jobs.Create(r.Context(), jobs.Job{
		UserID:               uid,
		ProfileID:            req.ProfileID,
		Name:                 req.Name,
		ServiceKey:           req.ServiceKey,
		AutoBook:             req.AutoBook,
		CheckIntervalMinutes: req.CheckIntervalMinutes,
		MaxAttempts:          req.MaxAttempts,
	})
	if err != nil {
		s.writeErr(w, http.StatusBadRequest, err.Error())
		return
	}
	s.writeJSON(w, http.StatusCreated, map[string]any{"id": id, "service_key": req.ServiceKey})
}

func (s *Server) handleJobList(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())
	js, err := s.Jobs.ListByUser(r.Context(), uid)
	if err != nil {
		s.writeErr(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, js)
}

func (s *Server) handleJobGet(w http.ResponseWriter, r *http.Request) {
	j, ok := s.ownedJob(w, r)
	if !ok {
		return
	}
	s.writeJSON(w, http.StatusOK, j)
}

func (s *Server) handleJobStart(w http.ResponseWriter, r *http.Request) {
	j, ok := s.ownedJob(w, r)
	if !ok {
		return
	}
	if err := s.Scheduler.StartJob(r.Context(), j.ID); err != nil {
		s.writeErr(w, http.StatusConflict, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"id": j.ID, "status": jobs.StatusRunning})
}

func (s *Server) handleJobStop(w http.ResponseWriter, r *http.Request) {
	j, ok := s.ownedJob(w, r)
	if !ok {
		return
	}
	if err := s.Scheduler.StopJob(r.Context(), j.ID); err != nil {
		s.writeErr(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"id": j.ID, "status": jobs.StatusStopped})
}

func (s *Server) handleJobLogs(w http.ResponseWriter, r *http.Request) {
	j, ok := s.ownedJob(w, r)
	if !ok {
		return
	}
	logs, err := s.Jobs.ListLogs(r.Context(), j.ID, queryLimit(r))
	if err != nil {
		s.writeErr(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, logs)
}

func (s *Server) handleJobResults(w http.ResponseWriter, r *http.Request) {
	j, ok := s.ownedJob(w, r)
	if !ok {
		return
	}
	results, err := s.Jobs.ListResults(r.Context(), j.ID, queryLimit(r))
	if err != nil {
		s.writeErr(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, results)
}

// handleJobEvents streams a job's status updates as server-sent events
// until the client disconnects.
func (s *Server) handleJobEvents(w http.ResponseWriter, r *http.Request) {
	j, ok := s.ownedJob(w, r)
	if !ok {
		return
	}
	if s.Events == nil {
		s.writeErr(w, http.StatusNotImplemented, "live events require redis")
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		s.writeErr(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	ch, err := s.Events.Subscribe(r.Context(), j.ID)
	if err != nil {
		s.writeErr(w, http.StatusInternalServerError, err.Error())
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for ev := range ch {
		payload, err := json.Marshal(ev)
		if err != nil {
			continue
		}
		if _, err := w.Write(append(append([]byte("data: "), payload...), '\n', '\n')); err != nil {
			return
		}
		flusher.Flush()
	}
}

func (s *Server) ownedJob(w http.ResponseWriter, r *http.Request) (jobs.Job, bool) {
	uid, _ := auth.UserIDFromContext(r.Context())
	id, ok := s.pathID(w, r)
	if !ok {
		return jobs.Job{}, false
	}
	j, err := s.Jobs.GetByIDForUser(r.Context(), id, uid)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			s.writeErr(w, http.StatusNotFound, "job not found")
		} else {
			s.writeErr(w, http.StatusInternalServerError, err.Error())
		}
		return jobs.Job{}, false
	}
	return j, true
}

func (s *Server) pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id < 1 {
		s.writeErr(w, http.StatusBadRequest, "invalid id")
		return 0, false
	}
	return id, true
}

func queryLimit(r *http.Request) int {
	n, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	return n
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		s.writeErr(w, http.StatusBadRequest, "invalid json body")
		return false
	}
	return true
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil && s.Log != nil {
		s.Log.Warn("encoding response", zap.Error(err))
	}
}

func (s *Server) writeErr(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}

// Start serves until the context ends, then drains with a short grace
// period.
func Start(ctx context.Context, addr string, h http.Handler) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
