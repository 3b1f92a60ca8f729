package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/dronesight/dronesight-backend/internal/logger"
	"github.com/dronesight/dronesight-backend/internal/models"
	"github.com/dronesight/dronesight-backend/pkg/utils"
)

var (
	ErrInvalidCredentials = errors.New("the email or password is incorrect")
	ErrNotSignedIn        = errors.New("not signed in")
)

// Identity is the signed-in user as seen by the rest of the application.
type Identity struct {
	UserID   string `json:"userId"`
	Email    string `json:"email"`
	Username string `json:"username"`
}

// Accounts is the credential storage used by AuthService.
type Accounts interface {
	Create(ctx context.Context, a Account) error
	FindByEmail(ctx context.Context, email string) (Account, error)
	FindByID(ctx context.Context, id string) (Account, error)
	UpdateUsername(ctx context.Context, id, username string) error
	Delete(ctx context.Context, id string) error
}

// Sessions is the token storage used by AuthService.
type Sessions interface {
	Create(ctx context.Context, userID string) (string, error)
	Validate(ctx context.Context, token string) (string, bool, error)
	Invalidate(ctx context.Context, token string) error
}

// Profiles writes the public user document created at sign-up.
type Profiles interface {
	Post(ctx context.Context, u models.User, id string) (string, error)
}

// AuthService registers accounts and issues session tokens.
type AuthService struct {
	accounts Accounts
	sessions Sessions
	profiles Profiles
	cache    *IdentityCache
	now      func() time.Time
	log      *logrus.Entry
}

func NewAuthService(accounts Accounts, sessions Sessions, profiles Profiles) *AuthService {
	return &AuthService{
		accounts: accounts,
		sessions: sessions,
		profiles: profiles,
		now:      time.Now,
		log:      logger.For("auth"),
	}
}

// WithIdentityCache makes Identify consult cache before the account store.
func (s *AuthService) WithIdentityCache(cache *IdentityCache) *AuthService {
	s.cache = cache
	return s
}

// Register creates the account and its users document. The new account is not
// signed in.
func (s *AuthService) Register(ctx context.Context, email, password, username string) (Identity, error) {
	email = utils.NormalizeEmail(email)
	for _, err := range []error{utils.ValidateEmail(email), utils.ValidatePassword(password), utils.ValidateUsername(username)} {
		if err != nil {
			return Identity{}, models.NewValidationError(err.Error())
		}
	}

	hash, err := utils.HashPassword(password)
	if err != nil {
		return Identity{}, models.NewInternalError(err)
	}

	account := Account{
		ID:           uuid.NewString(),
		Email:        email,
		Username:     username,
		PasswordHash: hash,
		CreatedAt:    s.now().UTC(),
	}
	if err := s.accounts.Create(ctx, account); err != nil {
		if errors.Is(err, ErrEmailTaken) {
			return Identity{}, &models.AppError{Code: models.CodeConflict, Message: ErrEmailTaken.Error(), Err: err}
		}
		return Identity{}, models.NewInternalError(err)
	}

	profile := models.User{
		ID:                account.ID,
		Username:          username,
		Email:             email,
		ReportedSightings: []string{},
		Comments:          []string{},
	}
	if _, err := s.profiles.Post(ctx, profile, account.ID); err != nil {
		if delErr := s.accounts.Delete(ctx, account.ID); delErr != nil {
			s.log.WithError(delErr).WithField("user_id", account.ID).Error("failed to remove account after profile write failure")
		}
		return Identity{}, models.NewInternalError(fmt.Errorf("create profile: %w", err))
	}

	s.log.WithField("user_id", account.ID).Info("account registered")
	return identityOf(account), nil
}

// SignIn verifies the credentials and returns a fresh session token.
func (s *AuthService) SignIn(ctx context.Context, email, password string) (Identity, string, error) {
	account, err := s.accounts.FindByEmail(ctx, utils.NormalizeEmail(email))
	if errors.Is(err, ErrAccountNotFound) {
		return Identity{}, "", &models.AppError{Code: models.CodeUnauthorized, Message: ErrInvalidCredentials.Error(), Err: ErrInvalidCredentials}
	}
	if err != nil {
		return Identity{}, "", models.NewInternalError(err)
	}

	ok, err := utils.VerifyPassword(password, account.PasswordHash)
	if err != nil {
		return Identity{}, "", models.NewInternalError(err)
	}
	if !ok {
		return Identity{}, "", &models.AppError{Code: models.CodeUnauthorized, Message: ErrInvalidCredentials.Error(), Err: ErrInvalidCredentials}
	}

	token, err := s.sessions.Create(ctx, account.ID)
	if err != nil {
		return Identity{}, "", models.NewInternalError(err)
	}
	return identityOf(account), token, nil
}

func (s *AuthService) SignOut(ctx context.Context, token string) error {
	return s.sessions.Invalidate(ctx, token)
}

// Identify resolves a session token to its identity.
func (s *AuthService) Identify(ctx context.Context, token string) (Identity, error) {
	userID, ok, err := s.sessions.Validate(ctx, token)
	if err != nil {
		return Identity{}, models.NewInternalError(err)
	}
	if !ok {
		return Identity{}, &models.AppError{Code: models.CodeUnauthorized, Message: "session expired or invalid", Err: ErrNotSignedIn}
	}
	if s.cache != nil {
		id, hit, err := s.cache.Get(ctx, userID)
		if err != nil {
			s.log.WithError(err).Warn("identity cache unavailable")
		}
		if hit {
			return id, nil
		}
	}

	account, err := s.accounts.FindByID(ctx, userID)
	if errors.Is(err, ErrAccountNotFound) {
		return Identity{}, &models.AppError{Code: models.CodeUnauthorized, Message: "account no longer exists", Err: ErrNotSignedIn}
	}
	if err != nil {
		return Identity{}, models.NewInternalError(err)
	}
	id := identityOf(account)
	if s.cache != nil {
		if err := s.cache.Set(ctx, id); err != nil {
			s.log.WithError(err).Warn("identity cache unavailable")
		}
	}
	return id, nil
}

// Rename changes the account's username and drops its cached identity so the
// next Identify sees the new name.
func (s *AuthService) Rename(ctx context.Context, userID, username string) error {
	if err := utils.ValidateUsername(username); err != nil {
		return models.NewValidationError(err.Error())
	}
	err := s.accounts.UpdateUsername(ctx, userID, username)
	if errors.Is(err, ErrAccountNotFound) {
		return models.NewNotFoundError("account", userID)
	}
	if err != nil {
		return models.NewInternalError(err)
	}
	if s.cache != nil {
		if err := s.cache.Delete(ctx, userID); err != nil {
			s.log.WithError(err).WithField("user_id", userID).Warn("failed to drop cached identity")
		}
	}
	return nil
}

func identityOf(a Account) Identity {
	return Identity{UserID: a.ID, Email: a.Email, Username: a.Username}
}
