package middleware

import (
	"net/http"

	"github.com/MrEthical07/siteguard"
)

type csrfTokenBody struct {
	CSRFToken string `json:"csrfToken"`
}

// CSRFTokenHandler serves {"csrfToken": "..."}. The CSRF cookie is HttpOnly, so
// browser code learns the value to echo from this endpoint. The token is reused
// while it is still valid.
func CSRFTokenHandler(engine *siteguard.Engine) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if engine == nil {
			WriteError(w, siteguard.ErrEngineNotReady)
			return
		}

		tok, err := engine.GetOrIssueCSRFToken(w, r)
		if err != nil {
			engine.Logger().Error("csrf token endpoint failed", "error", err)
			WriteError(w, err)
			return
		}

		w.Header().Set("Cache-Control", "no-store")
		writeJSON(w, http.StatusOK, csrfTokenBody{CSRFToken: tok})
	})
}
