package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Counters(t *testing.T) {
	t.Parallel()
	m := New()

	m.LoginAttempt("authenticated")
	m.LoginAttempt("invalid_credentials")
	m.LoginAttempt("invalid_credentials")
	m.PasswordChange("mismatch")
	m.FlashRejected()
	m.ObserveHTTP("GET /login", http.MethodGet, http.StatusOK, 20*time.Millisecond)
	m.Subscription("created")
	m.Subscription("duplicate")
	m.NewsletterIssue("published", 3, 1)
	m.NewsletterIssue("failed", 1, 0)

	assert.InDelta(t, 1, testutil.ToFloat64(m.loginAttempts.WithLabelValues("authenticated")), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(m.loginAttempts.WithLabelValues("invalid_credentials")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.passwordChanges.WithLabelValues("mismatch")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.flashRejected), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.httpRequests.WithLabelValues("GET /login", "GET", "200")), 0)
	assert.Equal(t, 1, testutil.CollectAndCount(m.httpDuration))
	assert.InDelta(t, 1, testutil.ToFloat64(m.subscriptions.WithLabelValues("duplicate")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.newsletters.WithLabelValues("published")), 0)
	assert.InDelta(t, 4, testutil.ToFloat64(m.deliveries.WithLabelValues("sent")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.deliveries.WithLabelValues("skipped")), 0)
}

func TestMetrics_NilIsNoop(t *testing.T) {
	t.Parallel()
	var m *Metrics

	assert.NotPanics(t, func() {
		m.LoginAttempt("authenticated")
		m.PasswordChange("changed")
		m.FlashRejected()
		m.Subscription("created")
		m.NewsletterIssue("published", 1, 0)
		m.ObserveHTTP("GET /", http.MethodGet, http.StatusOK, time.Millisecond)
	})
}

func TestMetrics_Handler(t *testing.T) {
	t.Parallel()
	m := New()
	m.FlashRejected()

	rr := httptest.NewRecorder()
	m.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	body, err := io.ReadAll(rr.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "herald_flash_rejected_total 1")
	assert.Contains(t, string(body), "go_goroutines")
}
