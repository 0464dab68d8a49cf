package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tendant/simple-publish/pkg/simplepublish/config"
)

func newTestHandler(t *testing.T, opts ...config.Option) http.Handler {
	t.Helper()
	opts = append([]config.Option{config.WithEventLogging(false), config.WithFeedbackRateLimit(2)}, opts...)
	cfg, err := config.Load(opts...)
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	comps, err := cfg.Build(context.Background(), logger)
	require.NoError(t, err)
	t.Cleanup(comps.Close)

	return newHandler(cfg, comps, logger)
}

func postFeedback(h http.Handler, remoteAddr, forwardedFor string) int {
	body := `{"name":"Ada","email":"ada@example.com","message":"hello"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/feedback", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.RemoteAddr = remoteAddr
	if forwardedFor != "" {
		req.Header.Set("X-Forwarded-For", forwardedFor)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr.Code
}

func TestFeedbackLimitIgnoresForwardedForByDefault(t *testing.T) {
	h := newTestHandler(t)

	codes := make([]int, 0, 20)
	for i := 0; i < 20; i++ {
		codes = append(codes, postFeedback(h, "192.0.2.10:4000", fmt.Sprintf("203.0.113.%d", i)))
	}

	assert.Equal(t, http.StatusCreated, codes[0])
	assert.Equal(t, http.StatusCreated, codes[1])
	for _, code := range codes[2:] {
		assert.Equal(t, http.StatusTooManyRequests, code)
	}
}

func TestFeedbackLimitUsesForwardedForBehindTrustedProxy(t *testing.T) {
	h := newTestHandler(t, config.WithTrustProxy(true))

	for i := 0; i < 5; i++ {
		assert.Equal(t, http.StatusCreated, postFeedback(h, "10.0.0.1:4000", fmt.Sprintf("203.0.113.%d", i)))
	}
	assert.Equal(t, http.StatusCreated, postFeedback(h, "10.0.0.1:4000", "198.51.100.7"))
	assert.Equal(t, http.StatusCreated, postFeedback(h, "10.0.0.1:4000", "198.51.100.7"))
	assert.Equal(t, http.StatusTooManyRequests, postFeedback(h, "10.0.0.1:4000", "198.51.100.7"))
}

func TestHealthWithCORS(t *testing.T) {
	h := newTestHandler(t, config.WithCORSOrigins("https://app.example.com"))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://app.example.com")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "https://app.example.com", rr.Header().Get("Access-Control-Allow-Origin"))
}
