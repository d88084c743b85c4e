package api

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/homebot/homebot-core/internal/auth"
)

// defaultTokenTTL applies when security.jwt.access_token_ttl is unset.
const defaultTokenTTL = time.Hour

// loginRequest is the request body for POST /auth/login.
type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// loginResponse is the data of a successful login.
type loginResponse struct {
	Token     string     `json:"token"`
	TokenType string     `json:"tokenType"`
	ExpiresIn int        `json:"expiresIn"` // seconds
	User      *auth.User `json:"user"`
}

// handleLogin authenticates against the identity provider and returns a
// signed access token.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !s.decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		s.writeBadRequest(w, "email and password are required")
		return
	}

	user, err := s.identity.Login(mutationContext(r), req.Email, req.Password)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	ttl := time.Duration(s.secCfg.JWT.AccessTokenTTL) * time.Minute
	if ttl <= 0 {
		ttl = defaultTokenTTL
	}
	token, err := auth.GenerateAccessToken(user, s.secCfg.JWT.Secret, ttl)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeData(w, http.StatusOK, loginResponse{
		Token:     token,
		TokenType: "Bearer",
		ExpiresIn: int(ttl.Seconds()),
		User:      user,
	})
}

// handleMe returns the account behind the bearer token.
func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	claims, err := s.bearerClaims(r)
	if err != nil {
		s.writeError(w, http.StatusUnauthorized, msgUnauthorized, err.Error())
		return
	}

	user, err := s.identity.GetUser(r.Context(), claims.Subject)
	if err != nil {
		if errors.Is(err, auth.ErrUserNotFound) {
			s.writeError(w, http.StatusUnauthorized, msgUnauthorized, err.Error())
			return
		}
		s.writeDomainError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, user)
}

// bearerClaims validates the Authorization: Bearer token.
func (s *Server) bearerClaims(r *http.Request) (*auth.CustomClaims, error) {
	header := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || strings.TrimSpace(token) == "" {
		return nil, errors.New("missing bearer token")
	}
	return auth.ParseToken(strings.TrimSpace(token), s.secCfg.JWT.Secret)
}
