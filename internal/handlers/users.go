package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"github.com/dronesight/dronesight-backend/internal/logger"
	"github.com/dronesight/dronesight-backend/internal/middleware"
	"github.com/dronesight/dronesight-backend/internal/models"
	"github.com/dronesight/dronesight-backend/internal/repository"
	"github.com/dronesight/dronesight-backend/pkg/utils"
)

// ProfileRequest carries the editable profile fields. Absent fields keep their
// stored value.
type ProfileRequest struct {
	Username           *string `json:"username,omitempty"`
	ProfileImageURL    *string `json:"profileImageUrl,omitempty"`
	ProfileDescription *string `json:"profileDescription,omitempty"`
}

// Renamer changes the username the account signs in as.
type Renamer interface {
	Rename(ctx context.Context, userID, username string) error
}

type UserHandler struct {
	users    *repository.UserRepository
	accounts Renamer
	log      *logrus.Entry
}

func NewUserHandler(users *repository.UserRepository, accounts Renamer) *UserHandler {
	return &UserHandler{users: users, accounts: accounts, log: logger.For("handlers.users")}
}

func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	u, err := h.users.FindOne(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeData(w, http.StatusOK, "", u)
}

// Update changes the caller's own profile and writes the whole document back.
func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, _ := middleware.IdentityFrom(r.Context())
	userID := chi.URLParam(r, "id")
	if userID != id.UserID {
		writeError(w, h.log, models.NewForbiddenError("You can only edit your own profile"))
		return
	}

	var req ProfileRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.log, err)
		return
	}
	u, err := h.users.FindOne(r.Context(), userID)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	renamed := false
	if req.Username != nil {
		name := strings.TrimSpace(*req.Username)
		if err := utils.ValidateUsername(name); err != nil {
			writeError(w, h.log, models.NewValidationError(err.Error()))
			return
		}
		renamed = name != u.Username
		u.Username = name
	}
	if req.ProfileImageURL != nil {
		u.ProfileImageURL = req.ProfileImageURL
	}
	if req.ProfileDescription != nil {
		u.ProfileDescription = req.ProfileDescription
	}

	if err := h.users.Update(r.Context(), userID, u); err != nil {
		writeError(w, h.log, err)
		return
	}
	// New posts take the author name from the account, not the profile.
	if renamed {
		if err := h.accounts.Rename(r.Context(), userID, u.Username); err != nil {
			writeError(w, h.log, err)
			return
		}
	}
	writeData(w, http.StatusOK, "Profile updated", u)
}
