package forumauth

import (
	"net/http"
	"time"

	"github.com/MrEthical07/forumauth/tokens"
)

// AccessCookieName is <Cookie.Name>_access.
func (e *Engine) AccessCookieName() string { return e.config.Cookie.Name + "_access" }

// RefreshCookieName is <Cookie.Name>_refresh.
func (e *Engine) RefreshCookieName() string { return e.config.Cookie.Name + "_refresh" }

// TokenCookies renders pair as two HttpOnly cookies whose MaxAge equals each
// token's lifetime. Cookies are Secure in production, and SameSite=None only
// for production cross-site deployments; otherwise SameSite=Lax.
func (e *Engine) TokenCookies(pair tokens.Pair) []*http.Cookie {
	return []*http.Cookie{
		e.cookie(e.AccessCookieName(), pair.AccessToken, pair.AccessExpiresIn, pair.AccessExpiresAt),
		e.cookie(e.RefreshCookieName(), pair.RefreshToken, pair.RefreshExpiresIn, pair.RefreshExpiresAt),
	}
}

// ClearCookies expires both token cookies.
func (e *Engine) ClearCookies() []*http.Cookie {
	access := e.cookie(e.AccessCookieName(), "", 0, time.Unix(0, 0))
	refresh := e.cookie(e.RefreshCookieName(), "", 0, time.Unix(0, 0))
	access.MaxAge, refresh.MaxAge = -1, -1
	return []*http.Cookie{access, refresh}
}

func (e *Engine) cookie(name, value string, ttl time.Duration, expires time.Time) *http.Cookie {
	sameSite := http.SameSiteLaxMode
	if e.config.Security.ProductionMode && e.config.Cookie.CrossSite {
		sameSite = http.SameSiteNoneMode
	}
	path := e.config.Cookie.Path
	if path == "" {
		path = "/"
	}
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     path,
		Domain:   e.config.Cookie.Domain,
		MaxAge:   int(ttl / time.Second),
		Expires:  expires,
		HttpOnly: true,
		Secure:   e.config.Security.ProductionMode,
		SameSite: sameSite,
	}
}
