package echo

import (
	"net/http"
	"time"
)

// Cookie names. The session cookie is readable client-side for display; the
// admin cookie is server-validated only and never independently sufficient.
const (
	SessionCookieName = "skyhook_session"
	AdminCookieName   = "skyhook_admin"
)

// CookieConfig controls the attributes of the cookies the auth surface sets.
type CookieConfig struct {
	BaseDomain string
	DevMode    bool // drops the secure flag for plain-HTTP development
	SessionTTL time.Duration
	AdminTTL   time.Duration
}

func (c CookieConfig) sessionCookie(value string) *http.Cookie {
	return c.cookie(SessionCookieName, value, c.SessionTTL, false)
}

func (c CookieConfig) adminCookie(value string) *http.Cookie {
	return c.cookie(AdminCookieName, value, c.AdminTTL, true)
}

func (c CookieConfig) expiredCookie(name string) *http.Cookie {
	cookie := c.cookie(name, "", 0, false)
	cookie.MaxAge = -1
	return cookie
}

func (c CookieConfig) cookie(name, value string, ttl time.Duration, httpOnly bool) *http.Cookie {
	cookie := &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Domain:   c.BaseDomain,
		Secure:   !c.DevMode,
		HttpOnly: httpOnly,
		SameSite: http.SameSiteLaxMode,
	}
	if ttl > 0 {
		cookie.Expires = time.Now().Add(ttl)
	}
	return cookie
}
