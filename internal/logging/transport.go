package logging

import (
	"crypto/rand"
	"encoding/hex"
	"net/http"
	"time"
)

// generateRequestID generates a random request ID.
func generateRequestID() string {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		// Fallback to timestamp if random generation fails
		return hex.EncodeToString([]byte(time.Now().String()))[:16]
	}
	return hex.EncodeToString(b)
}

// Transport is an http.RoundTripper that tags each request with an
// X-Request-ID header and logs it at debug level once it completes.
type Transport struct {
	// Base is the underlying round tripper; http.DefaultTransport when nil.
	Base http.RoundTripper
}

// NewTransport wraps base with request logging.
func NewTransport(base http.RoundTripper) *Transport {
	return &Transport{Base: base}
}

// RoundTrip implements http.RoundTripper.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}

	requestID := req.Header.Get("X-Request-ID")
	if requestID == "" {
		requestID = generateRequestID()
		req = req.Clone(req.Context())
		req.Header.Set("X-Request-ID", requestID)
	}

	start := time.Now()
	resp, err := base.RoundTrip(req)
	duration := time.Since(start)

	if err != nil {
		HTTPRequestContext(req.Context(), req.Method, req.URL.String(), 0, duration,
			"request_id", requestID, "error", err.Error())
		return nil, err
	}
	HTTPRequestContext(req.Context(), req.Method, req.URL.String(), resp.StatusCode, duration,
		"request_id", requestID)
	return resp, nil
}
