package middleware

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strings"

	"github.com/hexveil/authgate"
)

type errorBody struct {
	Error             string `json:"error"`
	RetryAfterSeconds int64  `json:"retry_after_seconds,omitempty"`
}

// writeError converts an Engine failure into the uniform client-facing
// shape: the Kind's message and status code, operator detail withheld.
func writeError(w http.ResponseWriter, err error) {
	kind, ok := authgate.KindOf(err)
	if !ok {
		kind = authgate.KindStoreUnavailable
	}

	body := errorBody{Error: kind.String()}

	var e *authgate.Error
	if errors.As(err, &e) && e.RetryAfter > 0 {
		secs := int64(e.RetryAfter.Seconds())
		if secs < 1 {
			secs = 1
		}
		body.RetryAfterSeconds = secs
	}

	writeJSON(w, kind.HTTPStatus(), body)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// clientIP extracts the caller address: first X-Forwarded-For hop if present,
// otherwise the connection's remote host.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if i := strings.IndexByte(fwd, ','); i >= 0 {
			fwd = fwd[:i]
		}
		return strings.TrimSpace(fwd)
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
