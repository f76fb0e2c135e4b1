package authapi

import (
	"errors"
	"net/http"

	"herald/cmd/security/msgauth"
)

// User-visible messages. They travel signed in the redirect URL.
const (
	msgAuthFailed       = "Authentication failed."
	msgSomethingWrong   = "Something went wrong."
	msgPasswordMismatch = "You entered two different new passwords - the field values must match."
	msgCurrentIncorrect = "The current password is incorrect."
	msgPasswordChanged  = "Your password has been changed."
	msgPasswordTooWeak  = "The new password is too easy to guess. Choose a less common one."
	msgLoggedOut        = "You have successfully logged out."
)

// seeOtherWithFlash redirects to path carrying a signed message.
func (h *Handler) seeOtherWithFlash(w http.ResponseWriter, r *http.Request, path, msg string) {
	http.Redirect(w, r, h.flash.RedirectURL(path, msg), http.StatusSeeOther)
}

func seeOther(w http.ResponseWriter, r *http.Request, path string) {
	http.Redirect(w, r, path, http.StatusSeeOther)
}

// readFlash returns the verified message on r, or "" if there is none or it
// does not verify. A rejected message is logged and the page renders without it.
func (h *Handler) readFlash(r *http.Request) string {
	msg, err := h.flash.Open(r.URL.Query())
	switch {
	case err == nil:
		return msg
	case errors.Is(err, msgauth.ErrMissing):
		return ""
	default:
		h.metrics.FlashRejected()
		h.log.WarnContext(r.Context(), "auth.flash.rejected",
			"err", err,
			"path", r.URL.Path,
			ipAttr(clientIP(r, h.cfg.TrustProxy)))
		return ""
	}
}
