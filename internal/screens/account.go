package screens

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/dronesight/dronesight-backend/internal/docstore"
	"github.com/dronesight/dronesight-backend/internal/models"
	"github.com/dronesight/dronesight-backend/internal/navigation"
	"github.com/dronesight/dronesight-backend/internal/repository"
	"github.com/dronesight/dronesight-backend/internal/services"
)

const (
	IntentSignOut = "SignOut"
)

type ProfileState struct {
	SignedIn  bool           `json:"signedIn"`
	User      *models.User   `json:"user"`
	Sightings []SightingCard `json:"sightings"`
}

type Profile struct {
	screen[ProfileState]
	env env
}

func NewProfile(e env) *Profile {
	h := &Profile{env: e}
	h.init(navigation.Profile, ProfileState{Sightings: []SightingCard{}})
	return h
}

// Start follows the signed-in user's profile document and their sightings.
// Without a signed-in user the screen stays empty.
func (h *Profile) Start(ctx context.Context) error {
	ctx = h.begin(ctx)
	user := h.env.auth.CurrentUser()
	if user == nil {
		return nil
	}
	h.state.Update(func(s ProfileState) ProfileState { s.SignedIn = true; return s })

	userSub, err := h.env.Users.Get(ctx, user.UserID)
	if err != nil {
		return err
	}
	follow(&h.screen, userSub, func(u *models.User) {
		h.state.Update(func(s ProfileState) ProfileState { s.User = u; return s })
	})

	sightingSub, err := h.env.Sightings.GetAll(ctx, repository.Order{Field: repository.FieldPostDate, Direction: docstore.Descending})
	if err != nil {
		return err
	}
	follow(&h.screen, sightingSub, func(list []models.Sighting) {
		now := h.env.now()
		cards := make([]SightingCard, 0)
		for _, s := range list {
			if s.UserID == user.UserID {
				cards = append(cards, toSightingCard(s, now))
			}
		}
		h.state.Update(func(s ProfileState) ProfileState { s.Sightings = cards; return s })
	})
	return nil
}

func (h *Profile) Handle(ctx context.Context, in Intent) error {
	var p idPayload
	if err := in.Decode(&p); err != nil {
		return err
	}
	switch in.Name {
	case IntentNavigateBack:
		h.env.nav.PopBackStack()
	case IntentNavigateToSighting:
		h.env.nav.NavToSighting(p.ID)
	case IntentNavigateToSettings:
		h.env.nav.NavToSettings()
	case IntentSignOut:
		signOut(ctx, h.env, h.log)
	default:
		return unknownIntent(in)
	}
	return nil
}

type SettingsState struct {
	SignedIn bool   `json:"signedIn"`
	Username string `json:"username,omitempty"`
	Email    string `json:"email,omitempty"`
}

func settingsState(id *services.Identity) SettingsState {
	if id == nil {
		return SettingsState{}
	}
	return SettingsState{SignedIn: true, Username: id.Username, Email: id.Email}
}

type Settings struct {
	screen[SettingsState]
	env env
}

func NewSettings(e env) *Settings {
	h := &Settings{env: e}
	h.init(navigation.Settings, settingsState(e.auth.CurrentUser()))
	return h
}

func (h *Settings) Start(ctx context.Context) error {
	h.begin(ctx)
	handle := h.env.auth.AddStateListener(func(id *services.Identity) {
		h.state.Set(settingsState(id))
	})
	h.onClose(func() { h.env.auth.RemoveStateListener(handle) })
	return nil
}

func (h *Settings) Handle(ctx context.Context, in Intent) error {
	switch in.Name {
	case IntentNavigateBack:
		h.env.nav.PopBackStack()
	case IntentNavigateToProfile:
		h.env.nav.NavToProfile()
	case IntentSignOut:
		signOut(ctx, h.env, h.log)
	default:
		return unknownIntent(in)
	}
	return nil
}

// signOut drops the session and returns to the login screen. A failure to
// remove the remote session is logged; the local state is cleared regardless.
func signOut(ctx context.Context, e env, log *logrus.Entry) {
	if err := e.auth.Logout(ctx); err != nil {
		log.WithError(err).Warn("sign out failed")
	} else {
		log.Info("user signed out")
	}
	e.nav.NavToLogin()
}

type SplashState struct{}

// Splash routes to the sightings list or the login screen as soon as it starts.
type Splash struct {
	screen[SplashState]
	env env
}

func NewSplash(e env) *Splash {
	h := &Splash{env: e}
	h.init(navigation.Splash, SplashState{})
	return h
}

func (h *Splash) Start(ctx context.Context) error {
	h.begin(ctx)
	if h.env.auth.IsSignedIn() {
		h.env.nav.NavToSightingsList()
	} else {
		h.env.nav.NavToLogin()
	}
	return nil
}

func (h *Splash) Handle(_ context.Context, in Intent) error {
	return unknownIntent(in)
}
