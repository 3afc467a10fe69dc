package echo

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/skyhook-logistics/portal/domain"
)

// Context keys set by the middleware below.
const (
	ContextKeySession        = "portal_session"
	ContextKeyAdminCharacter = "portal_admin_character"
)

// WithSession decodes the session cookie into the request context. A missing
// or tampered cookie yields an empty session, never an error.
func (a *AuthAPI) WithSession() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Set(ContextKeySession, a.sessions.Decode(a.sessionToken(c)))
			return next(c)
		}
	}
}

// SessionFromContext returns the session decoded by WithSession, or an empty
// session when the middleware did not run.
func SessionFromContext(c echo.Context) *domain.CharacterSession {
	if session, ok := c.Get(ContextKeySession).(*domain.CharacterSession); ok {
		return session
	}
	return domain.NewCharacterSession()
}

// RequireAdmin gates admin-only routes. Eligibility is re-derived on every
// request from the registry and the session's current character in an
// admin-capable namespace; the admin cookie on its own proves nothing.
func (a *AuthAPI) RequireAdmin() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			session := a.sessions.Decode(a.sessionToken(c))

			character, ok := a.adminCharacter(session)
			if !ok {
				// Not logged in against an admin-capable application, or the
				// gate expired. Either way the admin login surface is the
				// answer, never a bare 404.
				return c.Redirect(http.StatusFound, domain.DomainAdmin.LoginPath())
			}

			adminToken := ""
			if cookie, err := c.Cookie(AdminCookieName); err == nil {
				adminToken = cookie.Value
			}
			if !a.adminGate.Check(adminToken, character.CharacterID) {
				return c.Redirect(http.StatusFound, domain.DomainAdmin.LoginPath())
			}

			c.Set(ContextKeyAdminCharacter, character)
			return next(c)
		}
	}
}

// adminCharacter finds the current character of an admin-capable namespace.
func (a *AuthAPI) adminCharacter(session *domain.CharacterSession) (domain.Character, bool) {
	for _, namespace := range a.registry.AdminNamespaces() {
		if character, ok := session.Current(namespace); ok {
			return character, true
		}
	}
	return domain.Character{}, false
}

func parseCharacterID(raw string) (int64, error) {
	return strconv.ParseInt(raw, 10, 64)
}
