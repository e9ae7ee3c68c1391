package test

import (
	"context"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/MrEthical07/siteguard"
	"github.com/MrEthical07/siteguard/middleware"
)

// This test intentionally guards public API compile-compat for consumers.
func TestPublicAPISurfaceCompile(t *testing.T) {
	_ = siteguard.New

	var _ *siteguard.Engine
	var _ siteguard.Config
	var _ siteguard.Session
	var _ siteguard.Identity
	var _ siteguard.Requirement
	var _ siteguard.RateLimitResult
	var _ siteguard.SecurityReport
	var _ siteguard.AuditSink

	var _ error = siteguard.ErrUnauthenticated
	var _ error = siteguard.ErrForbidden
	var _ error = siteguard.ErrCSRFMissing
	var _ error = siteguard.ErrCSRFMismatch
	var _ error = siteguard.ErrCSRFInvalid
	var _ error = siteguard.ErrInvalidRole

	var _ func(*siteguard.Engine, *middleware.PolicyTable, ...middleware.Option) func(http.Handler) http.Handler = middleware.Pipeline
	var _ func(*siteguard.Engine, siteguard.Requirement) func(http.Handler) http.Handler = middleware.Guard
	var _ func(*siteguard.Engine) http.Handler = middleware.CSRFTokenHandler
	var _ func(io.Reader, middleware.Vocabulary) (*middleware.PolicyTable, error) = middleware.LoadPolicyTable
	var _ middleware.Vocabulary = (*siteguard.Engine)(nil)

	var _ func(*siteguard.Engine, context.Context, http.ResponseWriter, siteguard.Identity) (string, error) = (*siteguard.Engine).CreateSession
	var _ func(*siteguard.Engine, *http.Request) *siteguard.Session = (*siteguard.Engine).GetSession
	var _ func(*siteguard.Engine, http.ResponseWriter) error = (*siteguard.Engine).DestroySession
	var _ func(*siteguard.Engine, context.Context, http.ResponseWriter, *http.Request) (*siteguard.Session, error) = (*siteguard.Engine).RefreshSession
	var _ func(*siteguard.Engine, context.Context, *siteguard.Session, siteguard.Requirement) error = (*siteguard.Engine).Authorize
	var _ func(*siteguard.Engine, http.ResponseWriter) (string, error) = (*siteguard.Engine).IssueCSRFToken
	var _ func(*siteguard.Engine, *http.Request) error = (*siteguard.Engine).ValidateCSRF
	var _ func(*siteguard.Engine, context.Context, string) siteguard.RateLimitResult = (*siteguard.Engine).CheckLimit
	var _ func(siteguard.RateLimitResult, time.Time) string = middleware.WaitMessage
}
