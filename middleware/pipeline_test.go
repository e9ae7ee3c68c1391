package middleware

import (
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/MrEthical07/siteguard"
)

func testTable(t *testing.T) *PolicyTable {
	t.Helper()
	table, err := NewPolicyTable(Policy{},
		Rule{Path: "/api/waitlist", Methods: []string{http.MethodPost}, Policy: Policy{RateLimit: true}},
		Rule{Path: "/api/webhooks", Match: MatchPrefix, Policy: Policy{SkipCSRF: true}},
		Rule{Path: "/api/admin", Match: MatchPrefix, Policy: Policy{Roles: []siteguard.Role{siteguard.RoleAdmin}}},
		Rule{Path: "/api/jobs", Methods: []string{http.MethodPost}, Policy: Policy{
			Permissions: []siteguard.Permission{siteguard.PermJobsCreate},
		}},
		Rule{Path: "/api/me", Policy: Policy{Authenticated: true}},
	)
	if err != nil {
		t.Fatalf("NewPolicyTable: %v", err)
	}
	return table
}

type recordingHandler struct {
	calls   int
	session *siteguard.Session
}

func (h *recordingHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.calls++
	h.session, _ = SessionFromContext(r.Context())
	w.WriteHeader(http.StatusOK)
}

func TestPipelineAuthorization(t *testing.T) {
	engine, _ := newTestEngine(t)
	next := &recordingHandler{}
	h := Pipeline(engine, testTable(t))(next)

	tests := []struct {
		name     string
		identity *siteguard.Identity
		method   string
		target   string
		status   int
		category string
	}{
		{"anonymous admin", nil, http.MethodGet, "/api/admin/stats", http.StatusUnauthorized, CategoryUnauthenticated},
		{"candidate admin", &siteguard.Identity{ID: "c1", Role: siteguard.RoleCandidate}, http.MethodGet, "/api/admin/stats", http.StatusForbidden, CategoryForbidden},
		{"admin admin", &siteguard.Identity{ID: "a1", Role: siteguard.RoleAdmin}, http.MethodGet, "/api/admin/stats", http.StatusOK, ""},
		{"candidate post job", &siteguard.Identity{ID: "c1", Role: siteguard.RoleCandidate}, http.MethodPost, "/api/jobs", http.StatusForbidden, CategoryForbidden},
		{"employer post job", &siteguard.Identity{ID: "e1", Role: siteguard.RoleEmployer, CompanyID: strPtr("co1")}, http.MethodPost, "/api/jobs", http.StatusOK, ""},
		{"anonymous me", nil, http.MethodGet, "/api/me", http.StatusUnauthorized, CategoryUnauthenticated},
		{"guest me", &siteguard.Identity{ID: "g1", Role: siteguard.RoleGuest}, http.MethodGet, "/api/me", http.StatusOK, ""},
		{"anonymous public", nil, http.MethodGet, "/jobs", http.StatusOK, ""},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			*next = recordingHandler{}
			c := newClient(t, h)
			if tc.identity != nil {
				c.login(engine, *tc.identity)
			}
			c.fetchCSRF(engine)

			rec := c.do(tc.method, tc.target)
			if rec.Code != tc.status {
				t.Fatalf("expected %d, got %d (%s)", tc.status, rec.Code, rec.Body.String())
			}
			if tc.status != http.StatusOK {
				if next.calls != 0 {
					t.Fatal("handler must not run on rejection")
				}
				if body := decodeError(t, rec); body.Category != tc.category {
					t.Fatalf("expected category %q, got %q", tc.category, body.Category)
				}
				return
			}
			if next.calls != 1 {
				t.Fatalf("expected handler to run once, ran %d", next.calls)
			}
			if tc.identity != nil && tc.target != "/jobs" {
				if next.session == nil || next.session.UserID != tc.identity.ID {
					t.Fatalf("expected session for %s in context, got %+v", tc.identity.ID, next.session)
				}
			}
		})
	}
}

func TestPipelineCSRF(t *testing.T) {
	engine, _ := newTestEngine(t)
	next := &recordingHandler{}
	h := Pipeline(engine, testTable(t))(next)

	t.Run("missing", func(t *testing.T) {
		c := newClient(t, h)
		rec := c.do(http.MethodPost, "/api/waitlist")
		if rec.Code != http.StatusForbidden {
			t.Fatalf("expected 403, got %d", rec.Code)
		}
		if body := decodeError(t, rec); body.Category != CategoryCSRF {
			t.Fatalf("expected csrf category, got %q", body.Category)
		}
		if rec.Header().Get("X-RateLimit-Limit") != "" {
			t.Fatal("rate limit must not run after a csrf rejection")
		}
	})

	t.Run("mismatch", func(t *testing.T) {
		c := newClient(t, h)
		c.fetchCSRF(engine)
		c.csrf = strings.Repeat("x", len(c.csrf))
		rec := c.do(http.MethodPost, "/api/waitlist")
		if rec.Code != http.StatusForbidden {
			t.Fatalf("expected 403, got %d", rec.Code)
		}
		body := decodeError(t, rec)
		if body.Category != CategoryCSRF || strings.Contains(strings.ToLower(body.Error), "mismatch") {
			t.Fatalf("expected a generic csrf rejection, got %+v", body)
		}
	})

	t.Run("safe method exempt", func(t *testing.T) {
		c := newClient(t, h)
		if rec := c.do(http.MethodGet, "/jobs"); rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
	})

	t.Run("policy skip", func(t *testing.T) {
		c := newClient(t, h)
		if rec := c.do(http.MethodPost, "/api/webhooks/stripe"); rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
	})

	t.Run("engine exempt path", func(t *testing.T) {
		c := newClient(t, h)
		if rec := c.do(http.MethodPost, "/api/health"); rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
	})

	t.Run("csrf precedes authorization", func(t *testing.T) {
		c := newClient(t, h)
		rec := c.do(http.MethodPost, "/api/jobs")
		if body := decodeError(t, rec); body.Category != CategoryCSRF {
			t.Fatalf("expected csrf rejection first, got %q", body.Category)
		}
	})
}

func TestPipelineRateLimit(t *testing.T) {
	engine, clock := newTestEngine(t)
	next := &recordingHandler{}
	h := Pipeline(engine, testTable(t))(next)

	c := newClient(t, h)
	c.fetchCSRF(engine)

	for i, wantRemaining := range []string{"2", "1", "0"} {
		rec := c.do(http.MethodPost, "/api/waitlist")
		if rec.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i+1, rec.Code)
		}
		if got := rec.Header().Get("X-RateLimit-Limit"); got != "3" {
			t.Fatalf("request %d: expected limit 3, got %q", i+1, got)
		}
		if got := rec.Header().Get("X-RateLimit-Remaining"); got != wantRemaining {
			t.Fatalf("request %d: expected remaining %s, got %q", i+1, wantRemaining, got)
		}
		if rec.Header().Get("Retry-After") != "" {
			t.Fatalf("request %d: Retry-After only belongs on throttled responses", i+1)
		}
	}

	rec := c.do(http.MethodPost, "/api/waitlist")
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
	if got := rec.Header().Get("Retry-After"); got != "900" {
		t.Fatalf("expected Retry-After 900, got %q", got)
	}
	wantReset := clock.Now().Add(15 * time.Minute).UTC().Format(time.RFC3339)
	if got := rec.Header().Get("X-RateLimit-Reset"); got != wantReset {
		t.Fatalf("expected reset %s, got %s", wantReset, got)
	}
	body := decodeError(t, rec)
	if body.Category != CategoryRateLimited || !strings.Contains(body.Error, "15 minutes") {
		t.Fatalf("unexpected body: %+v", body)
	}
	if next.calls != 3 {
		t.Fatalf("expected 3 handler calls, got %d", next.calls)
	}

	// Unlimited routes are unaffected.
	if rec := c.do(http.MethodGet, "/jobs"); rec.Code != http.StatusOK || rec.Header().Get("X-RateLimit-Limit") != "" {
		t.Fatalf("unexpected response on unlimited route: %d %v", rec.Code, rec.Header())
	}

	clock.Advance(15*time.Minute + time.Second)
	if rec := c.do(http.MethodPost, "/api/waitlist"); rec.Code != http.StatusOK {
		t.Fatalf("expected 200 after the window slides, got %d", rec.Code)
	}
}

func TestPipelineRateLimitIdentifier(t *testing.T) {
	engine, _ := newTestEngine(t)
	h := Pipeline(engine, testTable(t), WithTrustProxyHeaders(true))(&recordingHandler{})

	send := func(c *client, ip string) int {
		r := c.request(http.MethodPost, "/api/waitlist")
		r.Header.Set("X-Forwarded-For", ip+", 10.0.0.1")
		return c.send(r).Code
	}

	c := newClient(t, h)
	c.fetchCSRF(engine)
	for range 3 {
		if code := send(c, "203.0.113.7"); code != http.StatusOK {
			t.Fatalf("expected 200, got %d", code)
		}
	}
	if code := send(c, "203.0.113.7"); code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", code)
	}
	if code := send(c, "203.0.113.8"); code != http.StatusOK {
		t.Fatalf("other client must have its own budget, got %d", code)
	}
}

func TestPipelineNilEngine(t *testing.T) {
	h := Pipeline(nil, nil)(&recordingHandler{})
	c := newClient(t, h)
	rec := c.do(http.MethodGet, "/")
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
}
