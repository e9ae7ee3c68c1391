package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/MrEthical07/siteguard"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestEngine(t *testing.T) (*siteguard.Engine, *testClock) {
	t.Helper()

	cfg := siteguard.DefaultConfig()
	cfg.Session.Secret = append([]byte(nil), testSecret...)

	clock := &testClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	engine, err := siteguard.New().WithConfig(cfg).WithNow(clock.Now).Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)
	return engine, clock
}

// client accumulates cookies across requests like a browser would.
type client struct {
	t       *testing.T
	handler http.Handler
	cookies map[string]*http.Cookie
	csrf    string
}

func newClient(t *testing.T, h http.Handler) *client {
	return &client{t: t, handler: h, cookies: make(map[string]*http.Cookie)}
}

func (c *client) absorb(rec *httptest.ResponseRecorder) {
	for _, ck := range rec.Result().Cookies() {
		if ck.MaxAge < 0 {
			delete(c.cookies, ck.Name)
			continue
		}
		c.cookies[ck.Name] = ck
	}
}

func (c *client) login(engine *siteguard.Engine, id siteguard.Identity) {
	c.t.Helper()
	rec := httptest.NewRecorder()
	if _, err := engine.CreateSession(c.t.Context(), rec, id); err != nil {
		c.t.Fatalf("CreateSession: %v", err)
	}
	c.absorb(rec)
}

func (c *client) fetchCSRF(engine *siteguard.Engine) {
	c.t.Helper()
	rec := httptest.NewRecorder()
	tok, err := engine.IssueCSRFToken(rec)
	if err != nil {
		c.t.Fatalf("IssueCSRFToken: %v", err)
	}
	c.absorb(rec)
	c.csrf = tok
}

// request builds a request carrying the client's cookies and CSRF header.
func (c *client) request(method, target string) *http.Request {
	req := httptest.NewRequest(method, target, nil)
	for _, ck := range c.cookies {
		req.AddCookie(ck)
	}
	if c.csrf != "" {
		req.Header.Set("x-csrf-token", c.csrf)
	}
	return req
}

func (c *client) send(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	c.handler.ServeHTTP(rec, req)
	c.absorb(rec)
	return rec
}

func (c *client) do(method, target string) *httptest.ResponseRecorder {
	return c.send(c.request(method, target))
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorBody {
	t.Helper()
	var body ErrorBody
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode error body: %v (%q)", err, rec.Body.String())
	}
	return body
}

func strPtr(s string) *string { return &s }
