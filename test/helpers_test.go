//go:build integration
// +build integration

package test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/MrEthical07/siteguard"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

var sharedSecret = []byte("integration-secret-0123456789abcdef")

func newSharedRedis(t *testing.T) (*miniredis.Miniredis, func() *redis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis run failed: %v", err)
	}
	t.Cleanup(mr.Close)

	return mr, func() *redis.Client {
		rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		t.Cleanup(func() { _ = rdb.Close() })
		return rdb
	}
}

// newInstance builds one application instance. Instances built from the same
// dial function share the rate limit store.
func newInstance(t *testing.T, dial func() *redis.Client, secret []byte) *siteguard.Engine {
	t.Helper()

	cfg := siteguard.DefaultConfig()
	cfg.Session.Secret = secret

	engine, err := siteguard.New().WithConfig(cfg).WithRedis(dial()).Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)
	return engine
}

func replay(rec *httptest.ResponseRecorder, method, target string) *http.Request {
	req := httptest.NewRequest(method, target, nil)
	for _, c := range rec.Result().Cookies() {
		req.AddCookie(c)
	}
	return req
}
