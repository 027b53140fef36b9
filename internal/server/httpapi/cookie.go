package httpapi

import (
	"net/http"
	"net/url"
	"time"
)

// CookieName is the bearer session cookie.
const CookieName = "sid"

// readToken extracts the bearer token from the inbound sid cookie.
// Percent-encoded values are tolerated; a missing or malformed cookie
// degrades to "" (anonymous), never to an error.
func readToken(r *http.Request) string {
	c, err := r.Cookie(CookieName)
	if err != nil || c.Value == "" {
		return ""
	}
	v, err := url.QueryUnescape(c.Value)
	if err != nil {
		return ""
	}
	return v
}

// sessionCookie builds the sid cookie carrying token until expires.
// Secure is set only in production so local development over plain HTTP
// still works.
func sessionCookie(token string, expires time.Time, secure bool) *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
}

// clearedCookie expires the sid cookie at the epoch.
func clearedCookie(secure bool) *http.Cookie {
	c := sessionCookie("", time.Unix(0, 0), secure)
	c.MaxAge = -1
	return c
}
