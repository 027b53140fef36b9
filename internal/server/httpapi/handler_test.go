package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/and161185/authcore/internal/errs"
	"github.com/and161185/authcore/internal/model"
	"github.com/and161185/authcore/internal/service"
)

// fakeAuth scripts AuthService responses per test.
type fakeAuth struct {
	registerErr error
	loginErr    error
	logoutErr   error
	authErr     error
	selfErr     error

	account   model.Account
	issued    *service.IssuedSession
	principal *model.Principal

	loggedOut []string
}

var _ service.AuthService = (*fakeAuth)(nil)

func (f *fakeAuth) Register(_ context.Context, _, _ string) (model.Account, *service.IssuedSession, error) {
	if f.registerErr != nil {
		return model.Account{}, nil, f.registerErr
	}
	return f.account, f.issued, nil
}

func (f *fakeAuth) Login(_ context.Context, _, _ string) (model.Account, *service.IssuedSession, error) {
	if f.loginErr != nil {
		return model.Account{}, nil, f.loginErr
	}
	return f.account, f.issued, nil
}

func (f *fakeAuth) Logout(_ context.Context, token string) error {
	if f.logoutErr != nil {
		return f.logoutErr
	}
	f.loggedOut = append(f.loggedOut, token)
	return nil
}

func (f *fakeAuth) Authenticate(_ context.Context, token string) (*model.Principal, error) {
	if f.authErr != nil {
		return nil, f.authErr
	}
	if f.principal != nil && token == f.principal.Token {
		return f.principal, nil
	}
	return nil, nil
}

func (f *fakeAuth) Self(_ context.Context, p *model.Principal) (model.Account, error) {
	if f.selfErr != nil {
		return model.Account{}, f.selfErr
	}
	if p == nil {
		return model.Account{}, errs.ErrUnauthorized
	}
	return f.account, nil
}

func newTestServer(auth *fakeAuth, production bool) *Server {
	return New(auth, production, zap.NewNop(), nil)
}

func fixedAccount() (model.Account, *service.IssuedSession) {
	acc := model.Account{UserID: uuid.Must(uuid.NewV4()), Email: "a@x.com"}
	issued := &service.IssuedSession{Token: "tok-123", ExpiresAt: time.Now().Add(24 * time.Hour).Truncate(time.Second)}
	return acc, issued
}

func findCookie(t *testing.T, res *http.Response) *http.Cookie {
	t.Helper()
	for _, c := range res.Cookies() {
		if c.Name == CookieName {
			return c
		}
	}
	return nil
}

func TestRegister_SetsCookieAnd201(t *testing.T) {
	auth := &fakeAuth{}
	auth.account, auth.issued = fixedAccount()
	srv := newTestServer(auth, false)

	req := httptest.NewRequest(http.MethodPost, "/api/register",
		strings.NewReader(`{"email":"a@x.com","password":"p1"}`))
	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, req)

	res := rec.Result()
	require.Equal(t, http.StatusCreated, res.StatusCode)

	var body struct {
		UserID    string  `json:"userId"`
		Email     string  `json:"email"`
		ProfileID *string `json:"profileId"`
	}
	require.NoError(t, json.NewDecoder(res.Body).Decode(&body))
	require.Equal(t, auth.account.UserID.String(), body.UserID)
	require.Nil(t, body.ProfileID)

	c := findCookie(t, res)
	require.NotNil(t, c)
	require.Equal(t, "tok-123", c.Value)
	require.True(t, c.HttpOnly)
	require.Equal(t, "/", c.Path)
	require.Equal(t, http.SameSiteLaxMode, c.SameSite)
	require.False(t, c.Secure) // not production
	require.WithinDuration(t, auth.issued.ExpiresAt, c.Expires, time.Second)
}

func TestRegister_Conflict(t *testing.T) {
	auth := &fakeAuth{registerErr: errs.ErrAlreadyExists}
	srv := newTestServer(auth, false)

	req := httptest.NewRequest(http.MethodPost, "/api/register",
		strings.NewReader(`{"email":"a@x.com","password":"p2"}`))
	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, req)

	require.Equal(t, http.StatusConflict, rec.Code)
	require.Nil(t, findCookie(t, rec.Result()))
}

func TestRegister_BadBody(t *testing.T) {
	srv := newTestServer(&fakeAuth{}, false)

	for _, body := range []string{`not json`, `{"email":"","password":"p"}`, `{"email":"a@x.com","password":""}`} {
		req := httptest.NewRequest(http.MethodPost, "/api/register", strings.NewReader(body))
		rec := httptest.NewRecorder()
		srv.Routes().ServeHTTP(rec, req)
		require.Equal(t, http.StatusBadRequest, rec.Code, "body %q", body)
	}
}

func TestLogin_SecureCookieInProduction(t *testing.T) {
	auth := &fakeAuth{}
	auth.account, auth.issued = fixedAccount()
	srv := newTestServer(auth, true)

	req := httptest.NewRequest(http.MethodPost, "/api/login",
		strings.NewReader(`{"email":"a@x.com","password":"p1"}`))
	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	c := findCookie(t, rec.Result())
	require.NotNil(t, c)
	require.True(t, c.Secure)
}

func TestLogin_InvalidCredentials(t *testing.T) {
	auth := &fakeAuth{loginErr: errs.ErrInvalidCredentials}
	srv := newTestServer(auth, false)

	req := httptest.NewRequest(http.MethodPost, "/api/login",
		strings.NewReader(`{"email":"a@x.com","password":"wrong"}`))
	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLogout_ClearsCookieEvenWithoutToken(t *testing.T) {
	auth := &fakeAuth{}
	srv := newTestServer(auth, false)

	req := httptest.NewRequest(http.MethodPost, "/api/logout", nil)
	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, req)

	res := rec.Result()
	require.Equal(t, http.StatusNoContent, res.StatusCode)
	require.Empty(t, auth.loggedOut) // no token, nothing to delete

	c := findCookie(t, res)
	require.NotNil(t, c)
	require.Empty(t, c.Value)
	require.True(t, c.Expires.Before(time.Now().Add(-time.Hour)))
}

func TestLogout_DeletesSession(t *testing.T) {
	auth := &fakeAuth{}
	srv := newTestServer(auth, false)

	req := httptest.NewRequest(http.MethodPost, "/api/logout", nil)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: "tok-123"})
	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Equal(t, []string{"tok-123"}, auth.loggedOut)
}

func TestMe_RequiresAuth(t *testing.T) {
	auth := &fakeAuth{}
	auth.account, _ = fixedAccount()
	auth.principal = &model.Principal{
		Token:  "tok-123",
		UserID: auth.account.UserID,
		Email:  auth.account.Email,
	}
	srv := newTestServer(auth, false)

	// Anonymous: 401.
	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	// Unknown token degrades to anonymous, still 401.
	req = httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: "stale"})
	rec = httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	// Valid cookie: 200 with the account.
	req = httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: "tok-123"})
	rec = httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		UserID string `json:"userId"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, auth.account.UserID.String(), body.UserID)
}

func TestWriteError_TransientStorageFault(t *testing.T) {
	auth := &fakeAuth{loginErr: &pgconn.PgError{Code: "08006", Message: "connection failure"}}
	srv := newTestServer(auth, false)

	req := httptest.NewRequest(http.MethodPost, "/api/login",
		strings.NewReader(`{"email":"a@x.com","password":"p1"}`))
	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, req)

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	require.JSONEq(t, `{"error":"Service temporarily unavailable"}`, rec.Body.String())
}

func TestWriteError_InternalHidesCause(t *testing.T) {
	auth := &fakeAuth{loginErr: &pgconn.PgError{Code: "42P01", Message: "relation \"users\" does not exist"}}
	srv := newTestServer(auth, false)

	req := httptest.NewRequest(http.MethodPost, "/api/login",
		strings.NewReader(`{"email":"a@x.com","password":"p1"}`))
	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, req)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.NotContains(t, rec.Body.String(), "users")
}

func TestHealthz(t *testing.T) {
	healthy := New(&fakeAuth{}, false, zap.NewNop(), func(*http.Request) error { return nil })
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	healthy.Routes().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	down := New(&fakeAuth{}, false, zap.NewNop(), func(*http.Request) error { return errs.ErrProbeTimeout })
	rec = httptest.NewRecorder()
	down.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
