package util

import (
	"log"
	"net/http"
	"strings"
	"time"
)

// LoggingTransport is an http.RoundTripper that traces outbound requests
// when the log level is debug. Response bodies are whole ebooks, so only
// status and timing are logged, never content.
type LoggingTransport struct {
	Base     http.RoundTripper
	LogLevel string
}

func (t *LoggingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}

	if strings.ToLower(t.LogLevel) != "debug" {
		return base.RoundTrip(req)
	}

	start := time.Now()
	log.Printf("DEBUG OUTBOUND REQUEST: [%s] %s", req.Method, req.URL.String())

	resp, err := base.RoundTrip(req)
	if err != nil {
		log.Printf("DEBUG OUTBOUND ERROR: %s (%v): %v", req.URL.String(), time.Since(start), err)
		return resp, err
	}

	log.Printf("DEBUG OUTBOUND RESPONSE: %d %s (%v, %d bytes)",
		resp.StatusCode, req.URL.String(), time.Since(start), resp.ContentLength)
	return resp, nil
}
