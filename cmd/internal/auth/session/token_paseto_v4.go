package session

import (
	"net/http"
	"time"

	paseto "aidanwoods.dev/go-paseto"
)

// CookieName is the session cookie.
const CookieName = "herald_session"

// Claims is what a verified session token asserts.
type Claims struct {
	UserID    string
	Issuer    string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Manager issues and verifies session tokens. It is safe for concurrent use.
type Manager struct {
	issuer       string
	ttl          time.Duration
	clockSkew    time.Duration
	cookieSecure bool
	ephemeral    bool

	secret paseto.V4AsymmetricSecretKey
	public paseto.V4AsymmetricPublicKey
}

// NewManager builds a Manager based on PASETO v4.public.
//
// When cfg has no secret key a fresh keypair is generated; sessions then do
// not survive a restart (see Ephemeral).
func NewManager(cfg Config) (*Manager, error) {
	if cfg.TTL <= 0 || cfg.Issuer == "" {
		return nil, ErrConfig
	}

	var (
		sk        paseto.V4AsymmetricSecretKey
		ephemeral bool
	)
	if keyHex := cfg.PasetoV4SecretKeyHex.Expose(); keyHex == "" {
		sk = paseto.NewV4AsymmetricSecretKey()
		ephemeral = true
	} else {
		k, err := paseto.NewV4AsymmetricSecretKeyFromHex(keyHex)
		if err != nil {
			return nil, ErrConfig
		}
		sk = k
	}

	return &Manager{
		issuer:       cfg.Issuer,
		ttl:          cfg.TTL,
		clockSkew:    cfg.ClockSkew,
		cookieSecure: cfg.CookieSecure,
		ephemeral:    ephemeral,
		secret:       sk,
		public:       sk.Public(),
	}, nil
}

// Ephemeral reports whether the signing key was generated at startup.
func (m *Manager) Ephemeral() bool { return m.ephemeral }

// PublicKeyHex exports the verification key.
func (m *Manager) PublicKeyHex() string { return m.public.ExportHex() }

// Issue signs a session token for userID.
func (m *Manager) Issue(userID string, now time.Time) (string, time.Time, error) {
	if userID == "" {
		return "", time.Time{}, ErrInvalidToken
	}
	exp := now.Add(m.ttl)

	tok := paseto.NewToken()
	tok.SetIssuer(m.issuer)
	tok.SetIssuedAt(now)
	tok.SetNotBefore(now)
	tok.SetExpiration(exp)
	if err := tok.Set("uid", userID); err != nil {
		return "", time.Time{}, err
	}

	return tok.V4Sign(m.secret, nil), exp, nil
}

// Verify checks signature, issuer and validity window.
func (m *Manager) Verify(token string, now time.Time) (Claims, error) {
	// Validate slightly in the future so a small clock difference does not fail "nbf".
	validNow := now.Add(m.clockSkew)

	// Build a fresh parser per call to avoid accumulating rules across verifies.
	p := paseto.NewParser()
	p.AddRule(paseto.IssuedBy(m.issuer))
	p.AddRule(paseto.ValidAt(validNow))

	parsed, err := p.ParseV4Public(m.public, token, nil)
	if err != nil {
		return Claims{}, ErrInvalidToken
	}

	uid, err := parsed.GetString("uid")
	if err != nil || uid == "" {
		return Claims{}, ErrInvalidToken
	}
	iss, _ := parsed.GetIssuer()
	exp, _ := parsed.GetExpiration()
	iat, _ := parsed.GetIssuedAt()

	return Claims{UserID: uid, Issuer: iss, IssuedAt: iat, ExpiresAt: exp}, nil
}

// SetCookie issues a token for userID and writes it as the session cookie.
func (m *Manager) SetCookie(w http.ResponseWriter, userID string, now time.Time) error {
	tok, exp, err := m.Issue(userID, now)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    tok,
		Path:     "/",
		Expires:  exp,
		MaxAge:   int(m.ttl.Seconds()),
		HttpOnly: true,
		Secure:   m.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// ClearCookie expires the session cookie.
func (m *Manager) ClearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

// FromRequest verifies the session cookie on r.
func (m *Manager) FromRequest(r *http.Request, now time.Time) (Claims, error) {
	c, err := r.Cookie(CookieName)
	if err != nil || c.Value == "" {
		return Claims{}, ErrNoSession
	}
	return m.Verify(c.Value, now)
}
