package httpapi

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestReadToken(t *testing.T) {
	// Missing cookie.
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	require.Empty(t, readToken(r))

	// Plain value.
	r = httptest.NewRequest(http.MethodGet, "/", nil)
	r.AddCookie(&http.Cookie{Name: CookieName, Value: "abc_DEF-123"})
	require.Equal(t, "abc_DEF-123", readToken(r))

	// Percent-encoded value is tolerated.
	r = httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Cookie", CookieName+"=abc%3D%3D")
	require.Equal(t, "abc==", readToken(r))

	// Malformed escape degrades to anonymous, not an error.
	r = httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Cookie", CookieName+"=bad%zz")
	require.Empty(t, readToken(r))

	// Wrong cookie name.
	r = httptest.NewRequest(http.MethodGet, "/", nil)
	r.AddCookie(&http.Cookie{Name: "other", Value: "x"})
	require.Empty(t, readToken(r))
}

func TestSessionCookieAttributes(t *testing.T) {
	exp := time.Now().Add(48 * time.Hour)

	c := sessionCookie("tok", exp, true)
	require.Equal(t, CookieName, c.Name)
	require.Equal(t, "tok", c.Value)
	require.Equal(t, "/", c.Path)
	require.True(t, c.HttpOnly)
	require.True(t, c.Secure)
	require.Equal(t, http.SameSiteLaxMode, c.SameSite)
	require.WithinDuration(t, exp, c.Expires, time.Second)

	cleared := clearedCookie(false)
	require.Empty(t, cleared.Value)
	require.Equal(t, time.Unix(0, 0), cleared.Expires)
	require.Equal(t, -1, cleared.MaxAge)
	require.False(t, cleared.Secure)
}
