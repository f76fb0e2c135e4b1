package subapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"herald/cmd/internal/metrics"
	"herald/cmd/subscriptions"
)

type fakeSender struct {
	sent []subscriptions.Email
	err  error
}

func (f *fakeSender) Send(_ context.Context, to subscriptions.Email, _ subscriptions.Issue) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, to)
	return nil
}

// headerAuth stands in for the session guard: X-User carries the user id.
func headerAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-User") == "" {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type testEnv struct {
	mux     *http.ServeMux
	store   *subscriptions.MemoryStore
	sender  *fakeSender
	metrics *metrics.Metrics
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		store:   subscriptions.NewMemoryStore(),
		sender:  &fakeSender{},
		metrics: metrics.New(),
		mux:     http.NewServeMux(),
	}
	pub, err := subscriptions.NewPublisher(env.store, env.sender, slog.New(slog.DiscardHandler))
	require.NoError(t, err)

	h, err := NewHandler(slog.New(slog.DiscardHandler), Config{MaxBodyBytes: 1024}, Deps{
		Store:       env.store,
		Publisher:   pub,
		RequireUser: headerAuth,
		UserID:      func(r *http.Request) string { return r.Header.Get("X-User") },
		Metrics:     env.metrics,
	})
	require.NoError(t, err)
	h.Register(env.mux)
	return env
}

func (e *testEnv) subscribe(form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/subscriptions", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr := httptest.NewRecorder()
	e.mux.ServeHTTP(rr, req)
	return rr
}

func (e *testEnv) publish(body, user string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/admin/newsletters", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if user != "" {
		req.Header.Set("X-User", user)
	}
	rr := httptest.NewRecorder()
	e.mux.ServeHTTP(rr, req)
	return rr
}

func TestSubscribe_Valid(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	rr := env.subscribe(url.Values{"name": {"le guin"}, "email": {"ursula_le_guin@gmail.com"}})
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.InDelta(t, 1, counter(t, env.metrics, "herald_subscriptions_requests_total", "created"), 0)
}

func counter(t *testing.T, m *metrics.Metrics, name, outcome string) float64 {
	t.Helper()
	families, err := m.Registry.Gather()
	require.NoError(t, err)
	for _, f := range families {
		if f.GetName() != name {
			continue
		}
		for _, metric := range f.GetMetric() {
			for _, l := range metric.GetLabel() {
				if l.GetName() == "outcome" && l.GetValue() == outcome {
					return metric.GetCounter().GetValue()
				}
			}
		}
	}
	return 0
}

func TestSubscribe_InvalidInput(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	cases := map[string]url.Values{
		"missing name":  {"email": {"ursula_le_guin@gmail.com"}},
		"missing email": {"name": {"le guin"}},
		"missing both":  {},
		"empty name":    {"name": {""}, "email": {"ursula_le_guin@gmail.com"}},
		"bad email":     {"name": {"Ursula"}, "email": {"definitely-not-an-email"}},
		"markup name":   {"name": {"<script>"}, "email": {"ursula_le_guin@gmail.com"}},
	}
	for name, form := range cases {
		rr := env.subscribe(form)
		assert.Equal(t, http.StatusBadRequest, rr.Code, name)
	}
}

func TestSubscribe_DuplicateIsConflict(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	form := url.Values{"name": {"le guin"}, "email": {"ursula_le_guin@gmail.com"}}
	require.Equal(t, http.StatusOK, env.subscribe(form).Code)

	form.Set("email", "Ursula_Le_Guin@gmail.com")
	assert.Equal(t, http.StatusConflict, env.subscribe(form).Code)
}

func TestSubscribe_BodyTooLarge(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	rr := env.subscribe(url.Values{"name": {strings.Repeat("a", 2048)}, "email": {"a@example.com"}})
	assert.Equal(t, http.StatusRequestEntityTooLarge, rr.Code)
}

func TestPublish_RequiresLogin(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	rr := env.publish(`{"title":"t","content":{"text":"x"}}`, "")
	assert.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, "/login", rr.Header().Get("Location"))
	assert.Empty(t, env.sender.sent)
}

func TestPublish_SendsToConfirmedSubscribers(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()

	sub, err := env.store.Insert(ctx, subscriptions.NewSubscriber{Email: "a@example.com", Name: "A"})
	require.NoError(t, err)
	require.NoError(t, env.store.Confirm(ctx, sub.ID))
	_, err = env.store.Insert(ctx, subscriptions.NewSubscriber{Email: "pending@example.com", Name: "P"})
	require.NoError(t, err)

	rr := env.publish(`{"title":"Issue 1","content":{"html":"<p>hi</p>","text":"hi"}}`, "user-1")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))

	var rep subscriptions.Report
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &rep))
	assert.Equal(t, subscriptions.Report{Sent: 1}, rep)
	assert.Equal(t, []subscriptions.Email{"a@example.com"}, env.sender.sent)
	assert.InDelta(t, 1, counter(t, env.metrics, "herald_newsletter_issues_total", "published"), 0)
}

func TestPublish_RejectsBadBodies(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	for name, body := range map[string]string{
		"not json":      `title=x`,
		"unknown field": `{"title":"t","content":{"text":"x"},"extra":1}`,
		"no title":      `{"content":{"text":"x"}}`,
		"no content":    `{"title":"t"}`,
		"wrong type":    `{"title":1,"content":{"text":"x"}}`,
		"trailing data": `{"title":"t","content":{"text":"x"}}{}`,
	} {
		rr := env.publish(body, "user-1")
		assert.Equal(t, http.StatusBadRequest, rr.Code, name)
	}
}

func TestPublish_SendFailureIsInternalError(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()

	sub, err := env.store.Insert(ctx, subscriptions.NewSubscriber{Email: "a@example.com", Name: "A"})
	require.NoError(t, err)
	require.NoError(t, env.store.Confirm(ctx, sub.ID))
	env.sender.err = errors.New("smtp down")

	rr := env.publish(`{"title":"t","content":{"text":"x"}}`, "user-1")
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.NotContains(t, rr.Body.String(), "smtp")
	assert.InDelta(t, 1, counter(t, env.metrics, "herald_newsletter_issues_total", "failed"), 0)
}

func TestNewHandler_Validation(t *testing.T) {
	t.Parallel()

	_, err := NewHandler(nil, Config{}, Deps{})
	assert.Error(t, err)

	_, err = NewHandler(nil, Config{}, Deps{Store: subscriptions.NewMemoryStore(), RequireUser: headerAuth})
	assert.Error(t, err)

	h, err := NewHandler(nil, Config{}, Deps{Store: subscriptions.NewMemoryStore()})
	require.NoError(t, err)
	mux := http.NewServeMux()
	h.Register(mux)

	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/admin/newsletters", strings.NewReader("{}")))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}
