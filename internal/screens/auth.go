package screens

import (
	"context"

	"github.com/dronesight/dronesight-backend/internal/navigation"
)

// Intents shared by several screens.
const (
	IntentNavigateBack  = "NavigateBack"
	IntentDismissError  = "DismissError"
	IntentUpdateEmail   = "UpdateEmail"
	IntentUpdateUser    = "UpdateUsername"
	IntentUpdatePass    = "UpdatePassword"
	IntentAttemptLogin  = "AttemptLogin"
	IntentRegister      = "Register"
	IntentAttemptSignUp = "AttemptRegister"
	IntentGoBack        = "GoBack"
)

type credentialsPayload struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginState struct {
	Username  string  `json:"username"`
	Email     string  `json:"email"`
	Password  string  `json:"-"`
	IsLoading bool    `json:"isLoading"`
	Error     *string `json:"error,omitempty"`
}

type Login struct {
	screen[LoginState]
	env env
}

func NewLogin(e env) *Login {
	h := &Login{env: e}
	h.init(navigation.Login, LoginState{})
	return h
}

func (h *Login) Start(ctx context.Context) error {
	h.begin(ctx)
	return nil
}

func (h *Login) Handle(ctx context.Context, in Intent) error {
	var p credentialsPayload
	if err := in.Decode(&p); err != nil {
		return err
	}
	switch in.Name {
	case IntentUpdateUser:
		h.state.Update(func(s LoginState) LoginState { s.Username = p.Username; return s })
	case IntentUpdateEmail:
		h.state.Update(func(s LoginState) LoginState { s.Email = p.Email; return s })
	case IntentUpdatePass:
		h.state.Update(func(s LoginState) LoginState { s.Password = p.Password; return s })
	case IntentAttemptLogin:
		h.attemptLogin(ctx)
	case IntentRegister:
		h.env.nav.NavToRegister()
	case IntentDismissError:
		h.state.Update(func(s LoginState) LoginState { s.Error = nil; return s })
	case IntentNavigateBack:
		h.env.nav.PopBackStack()
	default:
		return unknownIntent(in)
	}
	return nil
}

func (h *Login) attemptLogin(ctx context.Context) {
	h.state.Update(func(s LoginState) LoginState { s.IsLoading = true; s.Error = nil; return s })
	cur := h.state.Get()

	err := h.env.auth.Login(ctx, cur.Email, cur.Password)
	if err != nil {
		h.log.WithError(err).Warn("login failed")
		h.state.Update(func(s LoginState) LoginState { s.IsLoading = false; s.Error = h.errorText(err); return s })
		return
	}
	h.log.Info("user logged in")
	h.state.Update(func(s LoginState) LoginState { s.IsLoading = false; s.Password = ""; return s })
	h.env.nav.NavToSightingsList()
}

type RegisterState struct {
	Username  string  `json:"username"`
	Email     string  `json:"email"`
	Password  string  `json:"-"`
	IsLoading bool    `json:"isLoading"`
	Error     *string `json:"error,omitempty"`
}

type Register struct {
	screen[RegisterState]
	env env
}

func NewRegister(e env) *Register {
	h := &Register{env: e}
	h.init(navigation.Register, RegisterState{})
	return h
}

func (h *Register) Start(ctx context.Context) error {
	h.begin(ctx)
	return nil
}

func (h *Register) Handle(ctx context.Context, in Intent) error {
	var p credentialsPayload
	if err := in.Decode(&p); err != nil {
		return err
	}
	switch in.Name {
	case IntentUpdateUser:
		h.state.Update(func(s RegisterState) RegisterState { s.Username = p.Username; return s })
	case IntentUpdateEmail:
		h.state.Update(func(s RegisterState) RegisterState { s.Email = p.Email; return s })
	case IntentUpdatePass:
		h.state.Update(func(s RegisterState) RegisterState { s.Password = p.Password; return s })
	case IntentAttemptSignUp:
		h.attemptRegister(ctx)
	case IntentGoBack:
		h.env.nav.PopBackStack()
	case IntentDismissError:
		h.state.Update(func(s RegisterState) RegisterState { s.Error = nil; return s })
	default:
		return unknownIntent(in)
	}
	return nil
}

func (h *Register) attemptRegister(ctx context.Context) {
	h.state.Update(func(s RegisterState) RegisterState { s.IsLoading = true; s.Error = nil; return s })
	cur := h.state.Get()

	err := h.env.auth.Register(ctx, cur.Email, cur.Password, cur.Username)
	if err != nil {
		h.log.WithError(err).Warn("registration failed")
		h.state.Update(func(s RegisterState) RegisterState { s.IsLoading = false; s.Error = h.errorText(err); return s })
		return
	}
	h.log.Info("user registered")
	h.state.Update(func(s RegisterState) RegisterState { s.IsLoading = false; s.Password = ""; return s })
	h.env.nav.NavToLogin()
}
