package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/dronesight/dronesight-backend/internal/docstore"
	"github.com/dronesight/dronesight-backend/internal/logger"
	"github.com/dronesight/dronesight-backend/internal/middleware"
	"github.com/dronesight/dronesight-backend/internal/models"
	"github.com/dronesight/dronesight-backend/internal/services"
)

// Signup Request
type SignupRequest struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
}

// Signin Request
type SigninRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Auth Response
type AuthResponse struct {
	Success bool               `json:"success"`
	Message string             `json:"message"`
	User    *services.Identity `json:"user,omitempty"`
	Profile *models.User       `json:"profile,omitempty"`
	Token   string             `json:"token,omitempty"`
}

// ProfileReader loads the public profile of a signed-in user.
type ProfileReader interface {
	FindOne(ctx context.Context, id string) (models.User, error)
}

type AuthHandler struct {
	auth     services.Authenticator
	profiles ProfileReader
	log      *logrus.Entry
}

func NewAuthHandler(auth services.Authenticator, profiles ProfileReader) *AuthHandler {
	return &AuthHandler{auth: auth, profiles: profiles, log: logger.For("handlers.auth")}
}

// Signup handles account registration. It does not sign the user in.
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req SignupRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.log, err)
		return
	}

	id, err := h.auth.Register(r.Context(), req.Email, req.Password, req.Username)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, AuthResponse{
		Success: true,
		Message: "Account created successfully",
		User:    &id,
	})
}

// Signin verifies credentials and returns a session token.
func (h *AuthHandler) Signin(w http.ResponseWriter, r *http.Request) {
	var req SigninRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.log, err)
		return
	}
	if req.Email == "" || req.Password == "" {
		writeError(w, h.log, models.NewValidationError("Email and password are required"))
		return
	}

	id, token, err := h.auth.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	h.log.WithField("user_id", id.UserID).Info("user signed in")
	writeJSON(w, http.StatusOK, AuthResponse{
		Success: true,
		Message: "Signed in successfully",
		User:    &id,
		Token:   token,
	})
}

// Signout invalidates the bearer token.
func (h *AuthHandler) Signout(w http.ResponseWriter, r *http.Request) {
	token := middleware.BearerToken(r)
	if token == "" {
		writeError(w, h.log, models.NewUnauthorizedError("Missing session token"))
		return
	}
	if err := h.auth.SignOut(r.Context(), token); err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, AuthResponse{Success: true, Message: "Signed out"})
}

// Me returns the signed-in identity and, when it exists, the profile document.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		writeError(w, h.log, models.NewUnauthorizedError("Authentication required"))
		return
	}
	resp := AuthResponse{Success: true, Message: "OK", User: &id}
	profile, err := h.profiles.FindOne(r.Context(), id.UserID)
	switch {
	case err == nil:
		resp.Profile = &profile
	case !errors.Is(err, docstore.ErrNotFound):
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}
