// Package subapi serves the public subscription form endpoint and the
// admin newsletter publish endpoint.
package subapi

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"herald/cmd/internal/metrics"
	"herald/cmd/subscriptions"
)

// Config controls request limits.
type Config struct {
	MaxBodyBytes int64
}

// Deps are the collaborators a Handler needs. Metrics may be nil. Without
// RequireUser the publish route is not registered.
type Deps struct {
	Store       subscriptions.Store
	Publisher   *subscriptions.Publisher
	RequireUser func(http.Handler) http.Handler
	UserID      func(r *http.Request) string
	Metrics     *metrics.Metrics
}

// Handler serves subscription routes.
type Handler struct {
	log  *slog.Logger
	cfg  Config
	deps Deps
}

// NewHandler constructs a Handler.
func NewHandler(log *slog.Logger, cfg Config, deps Deps) (*Handler, error) {
	if log == nil {
		log = slog.Default()
	}
	if deps.Store == nil {
		return nil, errors.New("subapi: nil store")
	}
	if deps.RequireUser != nil && deps.Publisher == nil {
		return nil, errors.New("subapi: nil publisher")
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = 64 << 10
	}
	return &Handler{log: log, cfg: cfg, deps: deps}, nil
}

// Register wires the routes onto mux.
func (h *Handler) Register(mux *http.ServeMux) {
	if h == nil || mux == nil {
		return
	}
	mux.HandleFunc("POST /subscriptions", h.handleSubscribe)
	if h.deps.RequireUser != nil {
		mux.Handle("POST /admin/newsletters", h.deps.RequireUser(http.HandlerFunc(h.handlePublish)))
	}
}

func (h *Handler) handleSubscribe(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.cfg.MaxBodyBytes)
	if err := r.ParseForm(); err != nil {
		h.badBody(w, err, "invalid form")
		return
	}

	ns, err := subscriptions.ParseNewSubscriber(r.PostForm.Get("email"), r.PostForm.Get("name"))
	if err != nil {
		h.deps.Metrics.Subscription("invalid")
		msg := "invalid email"
		if errors.Is(err, subscriptions.ErrInvalidName) {
			msg = "invalid name"
		}
		http.Error(w, msg, http.StatusBadRequest)
		return
	}

	sub, err := h.deps.Store.Insert(r.Context(), ns)
	switch {
	case errors.Is(err, subscriptions.ErrAlreadySubscribed):
		h.deps.Metrics.Subscription("duplicate")
		http.Error(w, "already subscribed", http.StatusConflict)
		return
	case err != nil:
		h.deps.Metrics.Subscription("error")
		h.log.ErrorContext(r.Context(), "subscriptions.insert.fail", "err", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	h.deps.Metrics.Subscription("created")
	h.log.InfoContext(r.Context(), "subscriptions.created", "subscription_id", sub.ID)
	w.WriteHeader(http.StatusOK)
}

type publishRequest struct {
	Title   string `json:"title"`
	Content struct {
		HTML string `json:"html"`
		Text string `json:"text"`
	} `json:"content"`
}

func (h *Handler) handlePublish(w http.ResponseWriter, r *http.Request) {
	var req publishRequest
	if err := decodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		h.badBody(w, err, "invalid json")
		return
	}

	issue := subscriptions.Issue{Title: req.Title, HTML: req.Content.HTML, Text: req.Content.Text}
	rep, err := h.deps.Publisher.Publish(r.Context(), issue)
	if errors.Is(err, subscriptions.ErrInvalidIssue) {
		h.deps.Metrics.NewsletterIssue("invalid", 0, 0)
		http.Error(w, "title and content are required", http.StatusBadRequest)
		return
	}

	var userID string
	if h.deps.UserID != nil {
		userID = h.deps.UserID(r)
	}
	if err != nil {
		h.deps.Metrics.NewsletterIssue("failed", rep.Sent, rep.Skipped)
		h.log.ErrorContext(r.Context(), "newsletter.publish.fail",
			"user_id", userID, "sent", rep.Sent, "skipped", rep.Skipped, "err", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	h.deps.Metrics.NewsletterIssue("published", rep.Sent, rep.Skipped)
	h.log.InfoContext(r.Context(), "newsletter.published",
		"user_id", userID, "sent", rep.Sent, "skipped", rep.Skipped)

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(rep)
}

// decodeJSON reads exactly one JSON object with no unknown fields.
func decodeJSON(w http.ResponseWriter, r *http.Request, maxBytes int64, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return err
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return errors.New("extra data after JSON object")
	}
	return nil
}

func (h *Handler) badBody(w http.ResponseWriter, err error, msg string) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		http.Error(w, "request body too large", http.StatusRequestEntityTooLarge)
		return
	}
	http.Error(w, msg, http.StatusBadRequest)
}
