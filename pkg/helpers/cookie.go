package helpers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

const (
	AccessTokenCookie  = "access_token"
	RefreshTokenCookie = "refresh_token"

	// the refresh token is only ever sent to the auth endpoints
	refreshCookiePath = "/api/auth"
)

// CookieManager writes the token pair as HttpOnly, SameSite=Lax cookies.
type CookieManager struct {
	Domain string
	Secure bool
}

func NewCookie(domain string, secure bool) *CookieManager {
	return &CookieManager{Domain: domain, Secure: secure}
}

func (m *CookieManager) SetPair(c *gin.Context, access string, accessExp time.Time, refresh string, refreshExp time.Time) {
	m.set(c, AccessTokenCookie, access, "/", secondsUntil(accessExp))
	m.set(c, RefreshTokenCookie, refresh, refreshCookiePath, secondsUntil(refreshExp))
}

// Clear expires both cookies on the paths SetPair used.
func (m *CookieManager) Clear(c *gin.Context) {
	m.set(c, AccessTokenCookie, "", "/", -1)
	m.set(c, RefreshTokenCookie, "", refreshCookiePath, -1)
}

func (m *CookieManager) set(c *gin.Context, name, value, path string, maxAge int) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(name, value, maxAge, path, m.Domain, m.Secure, true)
}

func secondsUntil(t time.Time) int {
	return max(int(time.Until(t).Seconds()), 0)
}
