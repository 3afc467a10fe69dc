package echo

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"github.com/skyhook-logistics/portal/domain"
	"github.com/skyhook-logistics/portal/internal/obfuscate"
	"github.com/skyhook-logistics/portal/services"
)

// AuthAPI exposes the login, callback, and session endpoints.
type AuthAPI struct {
	login     *services.LoginService
	sessions  *services.SessionService
	adminGate *services.AdminGateService
	registry  *domain.Registry
	cookies   CookieConfig
}

// NewAuthAPI initializes the auth HTTP surface.
func NewAuthAPI(
	login *services.LoginService,
	sessions *services.SessionService,
	adminGate *services.AdminGateService,
	registry *domain.Registry,
	cookies CookieConfig,
) *AuthAPI {
	return &AuthAPI{
		login:     login,
		sessions:  sessions,
		adminGate: adminGate,
		registry:  registry,
		cookies:   cookies,
	}
}

// RegisterRoutes registers the auth routes.
func (a *AuthAPI) RegisterRoutes(e *echo.Echo) {
	e.GET("/auth/login", a.LoginHandler)
	e.GET("/auth/callback/:app", a.CallbackHandler)
	e.POST("/auth/character/select", a.SelectCharacterHandler)
	e.POST("/auth/logout", a.LogoutHandler)
	e.GET("/auth/session", a.SessionHandler)
}

// LoginHandler starts a login attempt and redirects the browser to the
// identity provider's authorize endpoint.
//
// Query parameters: app (application id, defaults to "login"), return
// (path to land on after the round trip), admin (request admin privilege).
func (a *AuthAPI) LoginHandler(c echo.Context) error {
	appID := domain.AppID(c.QueryParam("app"))
	if appID == "" {
		appID = domain.AppLogin
	}

	returnPath := sanitizeReturnPath(c.QueryParam("return"))
	adminIntent := c.QueryParam("admin") == "true" || c.QueryParam("admin") == "1"

	loginDomain := domain.DomainUser
	if adminIntent || strings.HasPrefix(returnPath, "/admin") {
		loginDomain = domain.DomainAdmin
	}

	result, err := a.login.Begin(c.Request().Context(), services.BeginInput{
		AppID:       appID,
		ReturnPath:  returnPath,
		Domain:      loginDomain,
		AdminIntent: adminIntent,
	})
	if err != nil {
		if errors.Is(err, domain.ErrAppNotFound) {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "unknown application"})
		}
		log.Error().Err(err).Str("app", string(appID)).Msg("failed to start login attempt")
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "login could not be started"})
	}

	return c.Redirect(http.StatusFound, result.AuthorizeURL)
}

// CallbackHandler receives the provider redirect, runs the exchange and
// identity resolution, updates the session cookie, and forwards the browser
// to the path recorded when the attempt began.
func (a *AuthAPI) CallbackHandler(c echo.Context) error {
	result, _ := a.login.Complete(c.Request().Context(), services.CallbackInput{
		AppID:        domain.AppID(c.Param("app")),
		Code:         c.QueryParam("code"),
		State:        c.QueryParam("state"),
		SessionToken: a.sessionToken(c),
	})

	if result.SessionToken != "" {
		c.SetCookie(a.cookies.sessionCookie(result.SessionToken))
	}
	if result.AdminToken != "" {
		c.SetCookie(a.cookies.adminCookie(result.AdminToken))
	}

	// Success and failure both end in a redirect: the recorded return path on
	// success, the domain's login entry point on failure. The classified
	// failure reason stays in the logs, never in the user-facing surface.
	return c.Redirect(http.StatusFound, result.RedirectTo)
}

// SelectCharacterHandler switches the current character within one namespace.
// Form values: namespace, character_id.
func (a *AuthAPI) SelectCharacterHandler(c echo.Context) error {
	namespace := c.FormValue("namespace")
	characterID, err := parseCharacterID(c.FormValue("character_id"))
	if err != nil || namespace == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "namespace and character_id are required"})
	}

	token, err := a.sessions.SetCurrent(a.sessionToken(c), namespace, characterID)
	if err != nil {
		if errors.Is(err, domain.ErrCharacterNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "character not in namespace"})
		}
		log.Error().Err(err).Msg("failed to switch current character")
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "session update failed"})
	}

	c.SetCookie(a.cookies.sessionCookie(token))
	return c.NoContent(http.StatusNoContent)
}

// LogoutHandler clears one namespace, or the whole session when no namespace
// is given. Clearing one namespace never disturbs the others.
func (a *AuthAPI) LogoutHandler(c echo.Context) error {
	namespace := c.FormValue("namespace")
	if namespace == "" {
		c.SetCookie(a.cookies.expiredCookie(SessionCookieName))
		c.SetCookie(a.cookies.expiredCookie(AdminCookieName))
		return c.NoContent(http.StatusNoContent)
	}

	token, err := a.sessions.ClearNamespace(a.sessionToken(c), namespace)
	if err != nil {
		log.Error().Err(err).Msg("failed to clear session namespace")
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "session update failed"})
	}
	c.SetCookie(a.cookies.sessionCookie(token))

	// Dropping an admin-capable namespace invalidates the admin surface too.
	if app, err := a.registry.AppForNamespace(namespace); err == nil && app.CanGrantAdmin {
		c.SetCookie(a.cookies.expiredCookie(AdminCookieName))
	}
	return c.NoContent(http.StatusNoContent)
}

// characterView is the client-facing projection of a session character.
// Refresh tokens never leave the server through this endpoint.
type characterView struct {
	CharacterID   int64  `json:"character_id"`
	ObfuscatedID  string `json:"obfuscated_id"`
	Name          string `json:"name"`
	CorporationID int64  `json:"corporation_id"`
	AllianceID    int64  `json:"alliance_id,omitempty"`
	Current       bool   `json:"current"`
}

// SessionHandler returns the decoded session for the client UI.
func (a *AuthAPI) SessionHandler(c echo.Context) error {
	session := a.sessions.Decode(a.sessionToken(c))

	view := make(map[string][]characterView, len(session.Namespaces))
	for ns, nsSession := range session.Namespaces {
		characters := make([]characterView, 0, len(nsSession.Characters))
		for _, ch := range nsSession.Characters {
			characters = append(characters, characterView{
				CharacterID:   ch.CharacterID,
				ObfuscatedID:  obfuscate.CharacterHash(ch.CharacterID),
				Name:          ch.Name,
				CorporationID: ch.CorporationID,
				AllianceID:    ch.AllianceID,
				Current:       ch.CharacterID == nsSession.CurrentID,
			})
		}
		view[ns] = characters
	}
	return c.JSON(http.StatusOK, view)
}

func (a *AuthAPI) sessionToken(c echo.Context) string {
	cookie, err := c.Cookie(SessionCookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}

// sanitizeReturnPath keeps redirects on-site: only rooted paths survive, and
// protocol-relative ones are rejected.
func sanitizeReturnPath(path string) string {
	if path == "" || !strings.HasPrefix(path, "/") || strings.HasPrefix(path, "//") {
		return ""
	}
	return path
}
