package screens

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dronesight/dronesight-backend/internal/docstore"
	"github.com/dronesight/dronesight-backend/internal/media"
	"github.com/dronesight/dronesight-backend/internal/navigation"
	"github.com/dronesight/dronesight-backend/internal/repository"
	"github.com/dronesight/dronesight-backend/internal/services"
)

var testNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

var errBadPassword = errors.New("the email or password is incorrect")

type stubAuthenticator struct {
	identity    services.Identity
	password    string
	registerErr error
}

func (s *stubAuthenticator) Register(_ context.Context, email, _, username string) (services.Identity, error) {
	if s.registerErr != nil {
		return services.Identity{}, s.registerErr
	}
	return services.Identity{UserID: "new", Email: email, Username: username}, nil
}

func (s *stubAuthenticator) SignIn(_ context.Context, _, password string) (services.Identity, string, error) {
	if password != s.password {
		return services.Identity{}, "", errBadPassword
	}
	return s.identity, "tok", nil
}

func (s *stubAuthenticator) SignOut(context.Context, string) error {
	return nil
}

func (s *stubAuthenticator) Identify(context.Context, string) (services.Identity, error) {
	return s.identity, nil
}

type fakeObjectStore struct {
	mu   sync.Mutex
	keys []string
	err  error
}

func (f *fakeObjectStore) Upload(_ context.Context, key string, r io.Reader) (string, error) {
	if _, err := io.ReadAll(r); err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	f.keys = append(f.keys, key)
	return "https://cdn.test/" + key, nil
}

type fixture struct {
	store   *docstore.MemoryStore
	objects *fakeObjectStore
	deps    Deps
	stack   *navigation.BackStack
	auth    *services.AuthClient
	env     env
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := docstore.NewMemoryStore()
	t.Cleanup(func() { _ = store.Close(context.Background()) })

	staging, err := media.NewStaging(t.TempDir())
	require.NoError(t, err)
	objects := &fakeObjectStore{}
	deps := Deps{
		Users:              repository.NewUserRepository(store),
		Sightings:          repository.NewSightingRepository(store, media.NewSequencer(objects, "sightings")),
		SightingComments:   repository.NewSightingCommentRepository(store),
		Discussions:        repository.NewDiscussionRepository(store),
		DiscussionComments: repository.NewDiscussionCommentRepository(store),
		Staging:            staging,
		Now:                func() time.Time { return testNow },
	}

	nav := navigation.NewNavigator()
	stack := navigation.NewBackStack(navigation.Destination{Route: navigation.StartDestination})
	nav.Initialize(stack)
	auth := services.NewAuthClient(&stubAuthenticator{
		identity: services.Identity{UserID: "u1", Email: "ann@example.com", Username: "ann"},
		password: "secret1",
	})
	return &fixture{
		store:   store,
		objects: objects,
		deps:    deps,
		stack:   stack,
		auth:    auth,
		env:     env{Deps: deps, nav: nav, auth: auth},
	}
}

func (f *fixture) signIn(t *testing.T) {
	t.Helper()
	require.NoError(t, f.auth.Login(context.Background(), "ann@example.com", "secret1"))
}

func handle(t *testing.T, h Holder, name string, payload any) {
	t.Helper()
	require.NoError(t, h.Handle(context.Background(), NewIntent(name, payload)))
}

// waitFor polls the holder's snapshot until cond holds.
func waitFor[S any](t *testing.T, h Holder, cond func(S) bool) S {
	t.Helper()
	var last S
	require.Eventually(t, func() bool {
		last = h.Snapshot().(S)
		return cond(last)
	}, 2*time.Second, 5*time.Millisecond)
	return last
}
