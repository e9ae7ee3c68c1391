//go:build integration
// +build integration

package test

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/MrEthical07/siteguard"
)

func TestInstancesShareRateLimitCounters(t *testing.T) {
	ctx := t.Context()
	_, dial := newSharedRedis(t)
	a := newInstance(t, dial, sharedSecret)
	b := newInstance(t, dial, sharedSecret)

	for i, engine := range []*siteguard.Engine{a, b, a} {
		if res := engine.CheckLimit(ctx, "203.0.113.7"); !res.Success {
			t.Fatalf("hit %d rejected: %+v", i+1, res)
		}
	}

	res := b.CheckLimit(ctx, "203.0.113.7")
	if res.Success || res.Reason != siteguard.ReasonShortWindow {
		t.Fatalf("fourth hit across instances must hit the short window, got %+v", res)
	}
	if res.Degraded {
		t.Fatal("shared store was reachable")
	}
}

func TestConcurrentInstancesNeverOvershoot(t *testing.T) {
	ctx := t.Context()
	_, dial := newSharedRedis(t)
	instances := []*siteguard.Engine{
		newInstance(t, dial, sharedSecret),
		newInstance(t, dial, sharedSecret),
		newInstance(t, dial, sharedSecret),
	}

	var admitted atomic.Int64
	var wg sync.WaitGroup
	for i := range 30 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if instances[i%len(instances)].CheckLimit(ctx, "burst").Success {
				admitted.Add(1)
			}
		}()
	}
	wg.Wait()

	if got := admitted.Load(); got != 3 {
		t.Fatalf("expected exactly 3 admitted hits across instances, got %d", got)
	}
}

func TestInstancesDegradeIndependentlyWhenStoreStops(t *testing.T) {
	ctx := t.Context()
	mr, dial := newSharedRedis(t)
	a := newInstance(t, dial, sharedSecret)
	b := newInstance(t, dial, sharedSecret)

	a.CheckLimit(ctx, "ip")
	mr.Close()

	for _, engine := range []*siteguard.Engine{a, b} {
		res := engine.CheckLimit(ctx, "ip")
		if !res.Success || !res.Degraded {
			t.Fatalf("expected degraded admission, got %+v", res)
		}
	}
}

func TestSessionsPortableAcrossInstances(t *testing.T) {
	_, dial := newSharedRedis(t)
	a := newInstance(t, dial, sharedSecret)
	b := newInstance(t, dial, sharedSecret)

	rec := httptest.NewRecorder()
	company := "acme"
	if _, err := a.CreateSession(t.Context(), rec, siteguard.Identity{ID: "u1", Role: siteguard.RoleEmployer, CompanyID: &company}); err != nil {
		t.Fatalf("CreateSession: %v", err)
	}

	sess := b.GetSession(replay(rec, http.MethodGet, "/api/jobs"))
	if sess == nil {
		t.Fatal("a session issued by one instance must verify on another")
	}
	if err := b.RequireOwnership(t.Context(), sess, siteguard.PermJobsEdit, "acme"); err != nil {
		t.Fatalf("RequireOwnership: %v", err)
	}

	other := newInstance(t, dial, []byte("another-deployment-secret-0123456789"))
	if other.GetSession(replay(rec, http.MethodGet, "/api/jobs")) != nil {
		t.Fatal("a different secret must not accept the session")
	}
}

func TestCSRFTokensPortableAcrossInstances(t *testing.T) {
	_, dial := newSharedRedis(t)
	a := newInstance(t, dial, sharedSecret)
	b := newInstance(t, dial, sharedSecret)

	rec := httptest.NewRecorder()
	tok, err := a.IssueCSRFToken(rec)
	if err != nil {
		t.Fatalf("IssueCSRFToken: %v", err)
	}

	req := replay(rec, http.MethodPost, "/api/waitlist")
	req.Header.Set("x-csrf-token", tok)
	if err := b.ValidateCSRF(req); err != nil {
		t.Fatalf("ValidateCSRF on second instance: %v", err)
	}
}
