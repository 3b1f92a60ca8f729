package services

import (
	"context"
	"sync"
)

// Authenticator is the account surface an AuthClient talks to.
type Authenticator interface {
	Register(ctx context.Context, email, password, username string) (Identity, error)
	SignIn(ctx context.Context, email, password string) (Identity, string, error)
	SignOut(ctx context.Context, token string) error
	Identify(ctx context.Context, token string) (Identity, error)
}

// StateListener is told about every sign-in and sign-out. id is nil after sign-out.
type StateListener func(id *Identity)

// AuthClient holds the signed-in state of one connection.
type AuthClient struct {
	auth Authenticator

	mu        sync.Mutex
	identity  *Identity
	token     string
	listeners map[int]StateListener
	nextID    int
}

func NewAuthClient(auth Authenticator) *AuthClient {
	return &AuthClient{auth: auth, listeners: make(map[int]StateListener)}
}

func (c *AuthClient) IsSignedIn() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.identity != nil
}

// CurrentUser returns a copy of the signed-in identity, or nil.
func (c *AuthClient) CurrentUser() *Identity {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.identity == nil {
		return nil
	}
	id := *c.identity
	return &id
}

func (c *AuthClient) Token() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token
}

// Register creates an account without signing in.
func (c *AuthClient) Register(ctx context.Context, email, password, username string) error {
	_, err := c.auth.Register(ctx, email, password, username)
	return err
}

func (c *AuthClient) Login(ctx context.Context, email, password string) error {
	id, token, err := c.auth.SignIn(ctx, email, password)
	if err != nil {
		return err
	}
	c.setState(&id, token)
	return nil
}

// Restore signs in with an existing session token.
func (c *AuthClient) Restore(ctx context.Context, token string) error {
	id, err := c.auth.Identify(ctx, token)
	if err != nil {
		return err
	}
	c.setState(&id, token)
	return nil
}

// Logout drops the local state even when the remote session could not be removed.
func (c *AuthClient) Logout(ctx context.Context) error {
	token := c.Token()
	var err error
	if token != "" {
		err = c.auth.SignOut(ctx, token)
	}
	c.setState(nil, "")
	return err
}

// AddStateListener registers fn and returns a handle for RemoveStateListener.
func (c *AuthClient) AddStateListener(fn StateListener) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextID++
	c.listeners[c.nextID] = fn
	return c.nextID
}

func (c *AuthClient) RemoveStateListener(handle int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.listeners, handle)
}

func (c *AuthClient) setState(id *Identity, token string) {
	c.mu.Lock()
	c.identity = id
	c.token = token
	listeners := make([]StateListener, 0, len(c.listeners))
	for _, l := range c.listeners {
		listeners = append(listeners, l)
	}
	c.mu.Unlock()

	for _, l := range listeners {
		if id == nil {
			l(nil)
			continue
		}
		cp := *id
		l(&cp)
	}
}
