package auth

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"motorsporthub/config"
	"motorsporthub/models"
	"motorsporthub/utils"
)

const (
	CookieSession  = "session"
	ContextBrowser = "browser"
	ContextSession = "session"

	contextNewBrowser = "browser.new"

	MessageEmailRequired = "Please enter your email address."
)

// AuthManager resolves the browser and session behind a request and serves the
// login, link confirmation and logout endpoints.
type AuthManager struct {
	sessions *Sessions
	holders  *Registry
	logins   *LoginFlow
	operator string
	secure   bool
	logger   zerolog.Logger
	now      func() time.Time
}

func NewAuthManager(sessions *Sessions, holders *Registry, logins *LoginFlow, cfg *config.HTTPConfig, logger zerolog.Logger) *AuthManager {
	return &AuthManager{
		sessions: sessions,
		holders:  holders,
		logins:   logins,
		operator: cfg.OperatorEmail,
		secure:   cfg.CookieSecure,
		logger:   logger,
		now:      time.Now,
	}
}

// Operator returns the email address allowed into the admin console.
func (am *AuthManager) Operator() string {
	return am.operator
}

// BrowserKey returns the key of the requesting browser, issuing a new cookie
// when the browser has none.
func (am *AuthManager) BrowserKey(c echo.Context) string {
	key, _ := am.browserKey(c)
	return key
}

// browserKey also reports whether the key was issued by this request.
func (am *AuthManager) browserKey(c echo.Context) (string, bool) {
	if key, ok := c.Get(ContextBrowser).(string); ok {
		issued, _ := c.Get(contextNewBrowser).(bool)
		return key, issued
	}

	var key string
	issued := false
	if cookie, err := c.Cookie(CookieSession); err == nil && utils.ValidBrowserKey(cookie.Value) {
		key = cookie.Value
	} else {
		key = utils.NewBrowserKey()
		issued = true
		c.SetCookie(&http.Cookie{
			Path:     "/",
			Name:     CookieSession,
			Value:    key,
			Expires:  am.now().Add(24 * 365 * 5 * time.Hour),
			HttpOnly: true,
			Secure:   am.secure,
			SameSite: http.SameSiteLaxMode,
		})
	}
	c.Set(ContextBrowser, key)
	c.Set(contextNewBrowser, issued)
	return key, issued
}

// CurrentSession returns the session of the requesting browser, or nil.
func (am *AuthManager) CurrentSession(c echo.Context) *models.Session {
	if s, ok := c.Get(ContextSession).(*models.Session); ok {
		return s
	}

	key, issued := am.browserKey(c)
	if issued {
		// A key issued by this request has nothing stored behind it.
		c.Set(ContextSession, (*models.Session)(nil))
		return nil
	}
	h := am.holders.Acquire(key)
	ctx := c.Request().Context()
	if err := h.Wait(ctx); err != nil {
		return nil
	}

	s := h.Current()
	if s.Expired(am.now()) {
		refreshed, err := am.sessions.Refresh(ctx, key)
		if err != nil {
			am.logger.Warn().Err(err).Msg("session refresh failed")
		}
		s = refreshed
	}
	c.Set(ContextSession, s)
	return s
}

// Guard allows the request through when the access policy allows view,
// and redirects otherwise.
func (am *AuthManager) Guard(view View) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			s := am.CurrentSession(c)
			d := Decide(s, am.operator, view)
			if d.Allow {
				return next(c)
			}
			if view == ViewAdmin && s != nil {
				am.logger.Warn().Str("email", s.User.Email).Msg("admin access denied")
			}
			return Redirect(c, d.Redirect)
		}
	}
}

// Redirect sends the browser to target. HTMX requests get an HX-Redirect
// header so the whole page navigates instead of a fragment swap.
func Redirect(c echo.Context, target string) error {
	if c.Request().Header.Get("Hx-Request") == "true" {
		c.Response().Header().Set("HX-Redirect", target)
		return c.NoContent(http.StatusOK)
	}
	return c.Redirect(http.StatusFound, target)
}

func (am *AuthManager) LoginHandler(c echo.Context) error {
	return c.Render(http.StatusOK, "loginPage", am.loginData(c, am.logins.Take(am.BrowserKey(c)), ""))
}

func (am *AuthManager) LoginPostHandler(c echo.Context) error {
	key := am.BrowserKey(c)
	email := c.FormValue("email")

	status := http.StatusOK
	st, err := am.logins.RequestLoginLink(c.Request().Context(), key, email)
	switch err {
	case nil:
		am.logins.Take(key)
	case ErrEmailRequired:
		status = http.StatusBadRequest
		st = LoginState{Message: MessageEmailRequired, Failed: true}
	case ErrLoginPending:
		status = http.StatusConflict
	default:
		return err
	}

	// HTMX only swaps 2xx responses.
	block := "loginPage"
	if c.Request().Header.Get("Hx-Request") == "true" {
		block = "loginForm"
		status = http.StatusOK
	}
	return c.Render(status, block, am.loginData(c, st, email))
}

func (am *AuthManager) loginData(c echo.Context, st LoginState, email string) map[string]interface{} {
	return map[string]interface{}{
		"CSRF":  c.Get(middleware.DefaultCSRFConfig.ContextKey),
		"State": st,
		"Email": email,
	}
}

// ConfirmHandler exchanges the token of a one-time link for a session.
func (am *AuthManager) ConfirmHandler(c echo.Context) error {
	key := am.BrowserKey(c)
	tokenHash := strings.TrimSpace(c.QueryParam("token_hash"))
	kind := c.QueryParam("type")
	if kind == "" {
		kind = "email"
	}

	if tokenHash == "" {
		am.logins.SetMessage(key, MessageLinkFailed, true)
		return c.Redirect(http.StatusFound, PathLogin)
	}
	if _, err := am.sessions.SignIn(c.Request().Context(), key, tokenHash, kind); err != nil {
		am.logger.Error().Err(err).Msg("one-time link exchange failed")
		am.logins.SetMessage(key, MessageLinkFailed, true)
		return c.Redirect(http.StatusFound, PathLogin)
	}
	am.logins.Take(key)
	return c.Redirect(http.StatusFound, PathAdmin)
}

func (am *AuthManager) LogoutHandler(c echo.Context) error {
	if err := am.sessions.SignOut(c.Request().Context(), am.BrowserKey(c)); err != nil {
		am.logger.Error().Err(err).Msg("sign out failed")
		return err
	}
	return Redirect(c, PathHome)
}
