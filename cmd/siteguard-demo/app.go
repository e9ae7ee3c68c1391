package main

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/mail"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/MrEthical07/siteguard"
	"github.com/MrEthical07/siteguard/middleware"
)

type job struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Location  string    `json:"location"`
	CompanyID string    `json:"companyId"`
	CreatedAt time.Time `json:"createdAt"`
}

// options gate the endpoints that trust the caller.
type options struct {
	// demoLogin mounts POST /api/session/demo for non-admin roles.
	demoLogin bool
	// demoAdmin also lets it mint admin sessions.
	demoAdmin bool
}

// app is the business side of the demo. Storage is process memory.
type app struct {
	engine *siteguard.Engine
	logger *slog.Logger
	opts   options

	mu       sync.RWMutex
	jobs     map[string]job
	nextID   int
	waitlist []string
}

func newApp(engine *siteguard.Engine, logger *slog.Logger, opts options) *app {
	return &app{
		engine: engine,
		logger: logger,
		opts:   opts,
		jobs:   make(map[string]job),
	}
}

func (a *app) routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/health", a.health)
	mux.Handle("GET /api/csrf", middleware.CSRFTokenHandler(a.engine))
	mux.HandleFunc("POST /api/waitlist", a.joinWaitlist)

	if a.opts.demoLogin || a.opts.demoAdmin {
		mux.HandleFunc("POST /api/session/demo", a.demoLogin)
	}
	mux.HandleFunc("GET /api/session", a.currentSession)
	mux.HandleFunc("POST /api/session/refresh", a.refreshSession)
	mux.HandleFunc("DELETE /api/session", a.logout)

	mux.HandleFunc("GET /api/jobs", a.listJobs)
	mux.HandleFunc("POST /api/jobs", a.createJob)
	mux.HandleFunc("PUT /api/jobs/{id}", a.updateJob)
	mux.HandleFunc("DELETE /api/jobs/{id}", a.deleteJob)

	mux.HandleFunc("GET /api/admin/stats", a.stats)
	mux.HandleFunc("GET /api/admin/security", a.security)
	return mux
}

func (a *app) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (a *app) joinWaitlist(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}
	addr, err := mail.ParseAddress(body.Email)
	if err != nil {
		badRequest(w, "invalid email")
		return
	}

	a.mu.Lock()
	a.waitlist = append(a.waitlist, addr.Address)
	a.mu.Unlock()

	writeJSON(w, http.StatusCreated, map[string]string{"status": "joined"})
}

// demoLogin issues a session for whatever identity is posted. Admin sessions need
// demoAdmin. A real deployment calls CreateSession from the identity provider
// callback instead.
func (a *app) demoLogin(w http.ResponseWriter, r *http.Request) {
	var body struct {
		ID        string  `json:"id"`
		Email     string  `json:"email"`
		Role      string  `json:"role"`
		CompanyID *string `json:"companyId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}
	if siteguard.Role(body.Role) == siteguard.RoleAdmin && !a.opts.demoAdmin {
		a.logger.Warn("refused demo admin login", "user_id", body.ID)
		middleware.WriteError(w, siteguard.ErrForbidden)
		return
	}

	_, err := a.engine.CreateSession(r.Context(), w, siteguard.Identity{
		ID:        body.ID,
		Email:     body.Email,
		Role:      siteguard.Role(body.Role),
		CompanyID: body.CompanyID,
	})
	switch {
	case errors.Is(err, siteguard.ErrInvalidRole), errors.Is(err, siteguard.ErrInvalidIdentity):
		badRequest(w, "invalid identity")
		return
	case err != nil:
		middleware.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *app) currentSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := middleware.SessionFromContext(r.Context())
	if !ok {
		middleware.WriteError(w, siteguard.ErrUnauthenticated)
		return
	}
	writeJSON(w, http.StatusOK, sessionView(sess))
}

func (a *app) refreshSession(w http.ResponseWriter, r *http.Request) {
	sess, err := a.engine.RefreshSession(r.Context(), w, r)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	if sess == nil {
		middleware.WriteError(w, siteguard.ErrUnauthenticated)
		return
	}
	writeJSON(w, http.StatusOK, sessionView(sess))
}

func (a *app) logout(w http.ResponseWriter, _ *http.Request) {
	if err := a.engine.DestroySession(w); err != nil {
		middleware.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *app) listJobs(w http.ResponseWriter, _ *http.Request) {
	a.mu.RLock()
	out := make([]job, 0, len(a.jobs))
	for _, j := range a.jobs {
		out = append(out, j)
	}
	a.mu.RUnlock()

	slices.SortFunc(out, func(x, y job) int { return y.CreatedAt.Compare(x.CreatedAt) })
	writeJSON(w, http.StatusOK, out)
}

type jobInput struct {
	Title    string `json:"title"`
	Location string `json:"location"`
}

func (in jobInput) valid() bool {
	return strings.TrimSpace(in.Title) != "" && strings.TrimSpace(in.Location) != ""
}

func (a *app) createJob(w http.ResponseWriter, r *http.Request) {
	sess, _ := middleware.SessionFromContext(r.Context())
	if sess == nil || sess.CompanyID == nil {
		middleware.WriteError(w, siteguard.ErrForbidden)
		return
	}

	var in jobInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil || !in.valid() {
		badRequest(w, "title and location are required")
		return
	}

	a.mu.Lock()
	a.nextID++
	j := job{
		ID:        strconv.Itoa(a.nextID),
		Title:     in.Title,
		Location:  in.Location,
		CompanyID: *sess.CompanyID,
		CreatedAt: a.engine.Now(),
	}
	a.jobs[j.ID] = j
	a.mu.Unlock()

	writeJSON(w, http.StatusCreated, j)
}

func (a *app) updateJob(w http.ResponseWriter, r *http.Request) {
	j, ok := a.ownedJob(w, r, siteguard.PermJobsEdit)
	if !ok {
		return
	}

	var in jobInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil || !in.valid() {
		badRequest(w, "title and location are required")
		return
	}
	j.Title, j.Location = in.Title, in.Location

	if !a.replaceJob(j) {
		notFound(w)
		return
	}
	writeJSON(w, http.StatusOK, j)
}

// replaceJob stores j only if its ID is still present, so an update racing a
// delete cannot bring the job back.
func (a *app) replaceJob(j job) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.jobs[j.ID]; !ok {
		return false
	}
	a.jobs[j.ID] = j
	return true
}

func (a *app) deleteJob(w http.ResponseWriter, r *http.Request) {
	j, ok := a.ownedJob(w, r, siteguard.PermJobsDelete)
	if !ok {
		return
	}

	a.mu.Lock()
	delete(a.jobs, j.ID)
	a.mu.Unlock()

	w.WriteHeader(http.StatusNoContent)
}

// ownedJob loads the job named in the path and checks the caller may act on it.
// It writes the response itself when it returns false.
func (a *app) ownedJob(w http.ResponseWriter, r *http.Request, perm siteguard.Permission) (job, bool) {
	a.mu.RLock()
	j, found := a.jobs[r.PathValue("id")]
	a.mu.RUnlock()
	if !found {
		notFound(w)
		return job{}, false
	}

	sess, _ := middleware.SessionFromContext(r.Context())
	if err := a.engine.RequireOwnership(r.Context(), sess, perm, j.CompanyID); err != nil {
		middleware.WriteError(w, err)
		return job{}, false
	}
	return j, true
}

func (a *app) stats(w http.ResponseWriter, _ *http.Request) {
	snap := a.engine.MetricsSnapshot()

	a.mu.RLock()
	jobs, waitlist := len(a.jobs), len(a.waitlist)
	a.mu.RUnlock()

	writeJSON(w, http.StatusOK, map[string]uint64{
		"jobs":               uint64(jobs),
		"waitlist":           uint64(waitlist),
		"sessionsCreated":    snap.Counters[siteguard.MetricSessionCreated],
		"csrfRejected":       snap.Counters[siteguard.MetricCSRFMissing] + snap.Counters[siteguard.MetricCSRFMismatch] + snap.Counters[siteguard.MetricCSRFInvalid],
		"rateLimited":        snap.Counters[siteguard.MetricRateLimitRejected],
		"authzDenied":        snap.Counters[siteguard.MetricAuthzUnauthenticated] + snap.Counters[siteguard.MetricAuthzForbidden],
		"auditEventsDropped": a.engine.AuditDropped(),
	})
}

func (a *app) security(w http.ResponseWriter, _ *http.Request) {
	report := a.engine.SecurityReport()

	warnings := make([]map[string]string, 0, len(report.Lint))
	for _, lw := range report.Lint {
		warnings = append(warnings, map[string]string{
			"code":     lw.Code,
			"severity": lw.Severity.String(),
			"message":  lw.Message,
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"production":      report.Production,
		"secureCookies":   report.SecureCookies,
		"sessionCookie":   report.SessionCookie,
		"csrfCookie":      report.CSRFCookie,
		"csrfHeader":      report.CSRFHeader,
		"csrfKeyDerived":  report.CSRFKeyDerived,
		"sharedRateStore": report.SharedRateStore,
		"rateLimits": map[string]any{
			"short": map[string]any{"window": report.ShortWindow.String(), "limit": report.ShortLimit},
			"daily": map[string]any{"window": report.DailyWindow.String(), "limit": report.DailyLimit},
		},
		"roles":        report.Roles,
		"permissions":  report.Permissions,
		"auditDropped": report.AuditDropped,
		"lint":         warnings,
	})
}

type sessionJSON struct {
	UserID      string                 `json:"userId"`
	Email       string                 `json:"email"`
	Role        siteguard.Role         `json:"role"`
	CompanyID   *string                `json:"companyId"`
	Permissions []siteguard.Permission `json:"permissions"`
	ExpiresAt   time.Time              `json:"expiresAt"`
}

func sessionView(s *siteguard.Session) sessionJSON {
	return sessionJSON{
		UserID:      s.UserID,
		Email:       s.Email,
		Role:        s.Role,
		CompanyID:   s.CompanyID,
		Permissions: s.Permissions,
		ExpiresAt:   s.ExpiresAt,
	}
}

func notFound(w http.ResponseWriter) {
	writeJSON(w, http.StatusNotFound, middleware.ErrorBody{Error: "Not found", Category: "not_found"})
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, middleware.ErrorBody{Error: msg, Category: "bad_request"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
