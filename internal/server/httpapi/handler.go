// Package httpapi wires the session service into cookie-based HTTP handlers.
package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/and161185/authcore/internal/errs"
	"github.com/and161185/authcore/internal/model"
	"github.com/and161185/authcore/internal/service"
)

// Server wires the session service into HTTP handlers.
type Server struct {
	auth       service.AuthService
	production bool // controls the Secure cookie attribute
	log        *zap.Logger
	health     func(r *http.Request) error
}

// New constructs the HTTP server surface. health is the database liveness
// probe used by /healthz; it may be nil.
func New(auth service.AuthService, production bool, log *zap.Logger, health func(r *http.Request) error) *Server {
	return &Server{auth: auth, production: production, log: log, health: health}
}

// Routes assembles the request router with logging and recovery applied.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/register", s.handleRegister)
	mux.HandleFunc("POST /api/login", s.handleLogin)
	mux.HandleFunc("POST /api/logout", s.handleLogout)
	mux.Handle("GET /api/me", s.RequireAuth(http.HandlerFunc(s.handleMe)))
	mux.HandleFunc("GET /healthz", s.handleHealth)

	return Recover(s.log)(Logging(s.log)(mux))
}

type credentialsReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type accountResp struct {
	UserID    string  `json:"userId"`
	Email     string  `json:"email"`
	ProfileID *string `json:"profileId"`
}

type errBody struct {
	Error string `json:"error"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeCredentials(w, r)
	if !ok {
		return
	}
	acc, issued, err := s.auth.Register(r.Context(), req.Email, req.Password)
	if err != nil {
		s.writeError(w, err)
		return
	}
	http.SetCookie(w, sessionCookie(issued.Token, issued.ExpiresAt, s.production))
	writeJSON(w, http.StatusCreated, toAccountResp(acc))
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeCredentials(w, r)
	if !ok {
		return
	}
	acc, issued, err := s.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		s.writeError(w, err)
		return
	}
	http.SetCookie(w, sessionCookie(issued.Token, issued.ExpiresAt, s.production))
	writeJSON(w, http.StatusOK, toAccountResp(acc))
}

// handleLogout deletes the inbound session, if any, and always clears the
// cookie. No body either way.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if token := readToken(r); token != "" {
		if err := s.auth.Logout(r.Context(), token); err != nil {
			s.writeError(w, err)
			return
		}
	}
	http.SetCookie(w, clearedCookie(s.production))
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	p, _ := PrincipalFromCtx(r.Context())
	acc, err := s.auth.Self(r.Context(), p)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAccountResp(acc))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.health != nil {
		if err := s.health(r); err != nil {
			s.writeError(w, errs.ErrUnavailable)
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Attach resolves the sid cookie into a request principal. Anonymous
// requests pass through; only storage faults fail here.
func (s *Server) Attach(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, err := s.auth.Authenticate(r.Context(), readToken(r))
		if err != nil {
			s.writeError(w, err)
			return
		}
		if p != nil {
			r = r.WithContext(WithPrincipal(r.Context(), p))
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAuth runs Attach and rejects requests that remain anonymous.
func (s *Server) RequireAuth(next http.Handler) http.Handler {
	return s.Attach(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := PrincipalFromCtx(r.Context()); !ok {
			s.writeError(w, errs.ErrUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	}))
}

// writeError maps service errors to responses. Raw storage error text never
// reaches the client.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, errs.ErrAlreadyExists):
		writeJSON(w, http.StatusConflict, errBody{Error: "email already registered"})
	case errors.Is(err, errs.ErrInvalidCredentials):
		writeJSON(w, http.StatusUnauthorized, errBody{Error: "invalid email or password"})
	case errors.Is(err, errs.ErrUnauthorized):
		writeJSON(w, http.StatusUnauthorized, errBody{Error: "unauthorized"})
	case errs.IsTransient(err):
		writeJSON(w, http.StatusServiceUnavailable, errBody{Error: "Service temporarily unavailable"})
	default:
		s.log.Error("request failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errBody{Error: "internal error"})
	}
}

func decodeCredentials(w http.ResponseWriter, r *http.Request) (credentialsReq, bool) {
	var req credentialsReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errBody{Error: "malformed request body"})
		return req, false
	}
	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" || req.Password == "" {
		writeJSON(w, http.StatusBadRequest, errBody{Error: "email and password are required"})
		return req, false
	}
	return req, true
}

func toAccountResp(acc model.Account) accountResp {
	resp := accountResp{UserID: acc.UserID.String(), Email: acc.Email}
	if acc.ProfileID.Valid {
		id := acc.ProfileID.UUID.String()
		resp.ProfileID = &id
	}
	return resp
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
