package authapi

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"herald/cmd/identity"
	"herald/cmd/internal/auth/credentials"
	"herald/cmd/internal/auth/session"
	"herald/cmd/internal/metrics"
	"herald/cmd/security/msgauth"
	"herald/cmd/security/password"
	"herald/cmd/security/secret"
)

// Handler serves the login and admin pages.
type Handler struct {
	log *slog.Logger
	cfg Config

	validator *credentials.Validator
	users     identity.CredentialStore
	sessions  *session.Manager
	flash     *msgauth.Authenticator
	metrics   *metrics.Metrics

	now func() time.Time
}

// Deps are the collaborators a Handler needs. Metrics may be nil.
type Deps struct {
	Validator *credentials.Validator
	Users     identity.CredentialStore
	Sessions  *session.Manager
	Flash     *msgauth.Authenticator
	Metrics   *metrics.Metrics
}

// NewHandler constructs an auth Handler.
func NewHandler(log *slog.Logger, cfg Config, deps Deps) (*Handler, error) {
	if log == nil {
		log = slog.Default()
	}
	switch {
	case deps.Validator == nil:
		return nil, errors.New("auth: nil validator")
	case deps.Users == nil:
		return nil, errors.New("auth: nil user store")
	case deps.Sessions == nil:
		return nil, errors.New("auth: nil session manager")
	case deps.Flash == nil:
		return nil, errors.New("auth: nil flash authenticator")
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = 64 << 10
	}

	return &Handler{
		log:       log,
		cfg:       cfg,
		validator: deps.Validator,
		users:     deps.Users,
		sessions:  deps.Sessions,
		flash:     deps.Flash,
		metrics:   deps.Metrics,
		now:       func() time.Time { return time.Now().UTC() },
	}, nil
}

// Register wires auth routes onto the provided mux.
func (h *Handler) Register(mux *http.ServeMux) {
	if h == nil || mux == nil {
		return
	}
	mux.HandleFunc("GET /login", h.handleLoginForm)
	mux.HandleFunc("POST /login", h.handleLogin)

	mux.Handle("GET /admin/{$}", h.requireUser(func(w http.ResponseWriter, r *http.Request, _ string) {
		seeOther(w, r, "/admin/dashboard")
	}))
	mux.Handle("GET /admin/dashboard", h.requireUser(h.handleDashboard))
	mux.Handle("GET /admin/password", h.requireUser(h.handlePasswordForm))
	mux.Handle("POST /admin/password", h.requireUser(h.handleChangePassword))
	mux.Handle("POST /admin/logout", h.requireUser(h.handleLogout))
}

// ---- handlers ----

func (h *Handler) handleLoginForm(w http.ResponseWriter, r *http.Request) {
	h.renderPage(w, r, "login", pageData{Title: "Login", Flash: h.readFlash(r)})
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	if !h.parseForm(w, r) {
		return
	}

	ctx := r.Context()
	ip := clientIP(r, h.cfg.TrustProxy)
	ua := strings.TrimSpace(r.UserAgent())
	username := strings.TrimSpace(r.PostFormValue("username"))

	userID, err := h.validator.ValidateCredentials(ctx, credentials.Credentials{
		Username: username,
		Password: secret.New(r.PostFormValue("password")),
	})
	outcome := credentials.OutcomeOf(err)
	h.metrics.LoginAttempt(outcome.String())

	switch outcome {
	case credentials.OutcomeAuthenticated:
		if err := h.sessions.SetCookie(w, userID, h.now()); err != nil {
			h.log.ErrorContext(ctx, "auth.login.session.fail", "err", err)
			h.seeOtherWithFlash(w, r, "/login", msgSomethingWrong)
			return
		}
		h.auditLoginSuccess(ctx, userID, ip, ua)
		seeOther(w, r, "/admin/dashboard")
	case credentials.OutcomeInvalidCredentials:
		h.auditLoginFailed(ctx, ip, ua, identity.NormalizeUsername(username), outcome.String())
		h.seeOtherWithFlash(w, r, "/login", msgAuthFailed)
	default:
		h.log.ErrorContext(ctx, "auth.login.error", "err", err)
		h.seeOtherWithFlash(w, r, "/login", msgSomethingWrong)
	}
}

func (h *Handler) handleDashboard(w http.ResponseWriter, r *http.Request, userID string) {
	username, ok := h.lookupUsername(w, r, userID)
	if !ok {
		return
	}
	h.renderPage(w, r, "dashboard", pageData{
		Title:    "Admin dashboard",
		Flash:    h.readFlash(r),
		Username: username,
	})
}

func (h *Handler) handlePasswordForm(w http.ResponseWriter, r *http.Request, _ string) {
	h.renderPage(w, r, "password", pageData{Title: "Change Password", Flash: h.readFlash(r)})
}

func (h *Handler) handleChangePassword(w http.ResponseWriter, r *http.Request, userID string) {
	if !h.parseForm(w, r) {
		return
	}
	ctx := r.Context()
	ip := clientIP(r, h.cfg.TrustProxy)

	current := secret.New(r.PostFormValue("current_password"))
	next := secret.New(r.PostFormValue("new_password"))
	check := secret.New(r.PostFormValue("new_password_check"))

	if next.Expose() != check.Expose() {
		h.metrics.PasswordChange("mismatch")
		h.auditPasswordRejected(ctx, userID, ip, "mismatch")
		h.seeOtherWithFlash(w, r, "/admin/password", msgPasswordMismatch)
		return
	}

	username, ok := h.lookupUsername(w, r, userID)
	if !ok {
		return
	}

	_, err := h.validator.ValidateCredentials(ctx, credentials.Credentials{Username: username, Password: current})
	switch credentials.OutcomeOf(err) {
	case credentials.OutcomeAuthenticated:
	case credentials.OutcomeInvalidCredentials:
		h.metrics.PasswordChange("wrong_current")
		h.auditPasswordRejected(ctx, userID, ip, "wrong_current")
		h.seeOtherWithFlash(w, r, "/admin/password", msgCurrentIncorrect)
		return
	default:
		h.metrics.PasswordChange("error")
		h.internalError(w, r, "auth.password.verify.fail", err)
		return
	}

	err = h.validator.ChangePassword(ctx, userID, next)
	switch credentials.OutcomeOf(err) {
	case credentials.OutcomeAuthenticated:
		h.metrics.PasswordChange("changed")
		h.auditPasswordChanged(ctx, userID, ip)
		h.seeOtherWithFlash(w, r, "/admin/password", msgPasswordChanged)
	case credentials.OutcomePasswordPolicy:
		h.metrics.PasswordChange("policy")
		h.auditPasswordRejected(ctx, userID, ip, "policy")
		h.seeOtherWithFlash(w, r, "/admin/password", h.policyMessage(err))
	default:
		h.metrics.PasswordChange("error")
		h.internalError(w, r, "auth.password.change.fail", err)
	}
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request, userID string) {
	h.sessions.ClearCookie(w)
	h.auditLogout(r.Context(), userID, clientIP(r, h.cfg.TrustProxy))
	h.seeOtherWithFlash(w, r, "/login", msgLoggedOut)
}

// ---- helpers ----

type userHandler func(w http.ResponseWriter, r *http.Request, userID string)

// requireUser sends anonymous requests to the login page.
func (h *Handler) requireUser(next userHandler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, err := h.sessions.FromRequest(r, h.now())
		if err != nil {
			if errors.Is(err, session.ErrInvalidToken) {
				h.sessions.ClearCookie(w)
			}
			seeOther(w, r, "/login")
			return
		}
		next(w, r, claims.UserID)
	})
}

// lookupUsername resolves the session's user. A session for a user that no
// longer exists is cleared.
func (h *Handler) lookupUsername(w http.ResponseWriter, r *http.Request, userID string) (string, bool) {
	username, err := h.users.GetUsername(r.Context(), userID)
	if err == nil {
		return username, true
	}
	if identity.IsNotFound(err) {
		h.sessions.ClearCookie(w)
		seeOther(w, r, "/login")
		return "", false
	}
	h.internalError(w, r, "auth.user.lookup.fail", err)
	return "", false
}

func (h *Handler) parseForm(w http.ResponseWriter, r *http.Request) bool {
	r.Body = http.MaxBytesReader(w, r.Body, h.cfg.MaxBodyBytes)
	if err := r.ParseForm(); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			http.Error(w, "request body too large", http.StatusRequestEntityTooLarge)
			return false
		}
		http.Error(w, "invalid form", http.StatusBadRequest)
		return false
	}
	return true
}

func (h *Handler) internalError(w http.ResponseWriter, r *http.Request, event string, err error) {
	h.log.ErrorContext(r.Context(), event, "err", err)
	http.Error(w, msgSomethingWrong, http.StatusInternalServerError)
}

// policyMessage explains a rejected new password. Length is the common case;
// the optional weak-password check gets its own wording.
func (h *Handler) policyMessage(err error) string {
	if errors.Is(err, password.ErrWeakPassword) {
		return msgPasswordTooWeak
	}
	return fmt.Sprintf("The new password must be between %d and %d characters long.",
		h.cfg.PasswordMinLength, h.cfg.PasswordMaxLength)
}

func clientIP(r *http.Request, trustProxy bool) net.IP {
	if trustProxy {
		if ip := parseForwardedIP(r.Header.Get("X-Forwarded-For")); ip != nil {
			return ip
		}
		if ip := net.ParseIP(strings.TrimSpace(r.Header.Get("X-Real-IP"))); ip != nil {
			return ip
		}
	}
	host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
	if err == nil {
		if ip := net.ParseIP(host); ip != nil {
			return ip
		}
	}
	return nil
}

func parseForwardedIP(raw string) net.IP {
	if raw == "" {
		return nil
	}
	for _, p := range strings.Split(raw, ",") {
		if ip := net.ParseIP(strings.TrimSpace(p)); ip != nil {
			return ip
		}
	}
	return nil
}
