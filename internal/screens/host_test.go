package screens

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dronesight/dronesight-backend/internal/navigation"
)

// nextFrame returns the next frame of type want, skipping others.
func nextFrame(t *testing.T, h *Host, want FrameType) Frame {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case f := <-h.Frames():
			if f.Type == want {
				return f
			}
		case <-timeout:
			t.Fatalf("no %s frame", want)
		}
	}
}

func drainFrames(h *Host) {
	go func() {
		for range h.Frames() {
		}
	}()
}

func TestHost_StartsAtSightingsList(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	h := NewHost(f.deps, f.auth)
	defer h.Close()

	require.NoError(t, h.Start(context.Background()))

	nav := nextFrame(t, h, FrameNavigate)
	assert.Equal(t, navigation.SightingList, nav.Route)
	assert.Equal(t, []navigation.Destination{{Route: navigation.SightingList}}, nav.Stack)
	st := nextFrame(t, h, FrameState)
	assert.IsType(t, SightingsListState{}, st.State)
}

func TestHost_GateNoticeIsForwarded(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	h := NewHost(f.deps, f.auth)
	defer h.Close()
	require.NoError(t, h.Start(context.Background()))

	require.NoError(t, h.Dispatch(context.Background(), NewIntent(IntentNavigateToNewSighting, nil)))

	n := nextFrame(t, h, FrameNotice)
	require.NotNil(t, n.Notice)
	assert.Equal(t, "Log in", n.Notice.ActionLabel)
	assert.Equal(t, navigation.SightingList, h.Current().Route)
}

func TestHost_NavigationSwapsHolder(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	h := NewHost(f.deps, f.auth)
	defer h.Close()
	drainFrames(h)
	ctx := context.Background()
	require.NoError(t, h.Start(ctx))

	require.NoError(t, h.Dispatch(ctx, NewIntent(IntentNavigateToSighting, map[string]string{"id": "s1"})))
	assert.Equal(t, navigation.Destination{Route: navigation.SightingView, Arg: "s1"}, h.Current())

	require.NoError(t, h.Dispatch(ctx, NewIntent(IntentNavigateBack, nil)))
	assert.Equal(t, navigation.SightingList, h.Current().Route)

	// The root entry stays.
	require.NoError(t, h.Dispatch(ctx, NewIntent(IntentNavigateToSettings, nil)))
	require.NoError(t, h.Dispatch(ctx, NewIntent(IntentNavigateBack, nil)))
	assert.Equal(t, navigation.SightingList, h.Current().Route)
}

func TestHost_SplashRedirectsWhileStarting(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	h := NewHost(f.deps, f.auth)
	defer h.Close()
	drainFrames(h)
	ctx := context.Background()
	require.NoError(t, h.Start(ctx))

	h.Navigator().NavToSplash()
	require.NoError(t, h.Dispatch(ctx, NewIntent(IntentNavigateToMap, nil)))
	assert.Equal(t, navigation.Map, h.Current().Route)

	require.NoError(t, h.Dispatch(ctx, NewIntent(IntentNavigateBack, nil)))
	// Back from the map lands on splash, which immediately moves on to login.
	assert.Equal(t, navigation.Login, h.Current().Route)
}

func TestHost_UnknownIntentEmitsError(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	h := NewHost(f.deps, f.auth)
	defer h.Close()
	require.NoError(t, h.Start(context.Background()))

	err := h.Dispatch(context.Background(), Intent{Name: "Bogus"})
	assert.ErrorIs(t, err, ErrUnknownIntent)
	frame := nextFrame(t, h, FrameError)
	assert.Contains(t, frame.Error, "Bogus")
}

func TestHost_ClosedRejectsIntents(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	h := NewHost(f.deps, f.auth)
	drainFrames(h)
	require.NoError(t, h.Start(context.Background()))
	h.Close()
	h.Close()

	err := h.Dispatch(context.Background(), NewIntent(IntentNavigateToMap, nil))
	assert.ErrorIs(t, err, ErrHostClosed)
}

func TestHost_LoginEmitsSession(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	h := NewHost(f.deps, f.auth)
	defer h.Close()
	ctx := context.Background()
	require.NoError(t, h.Start(ctx))

	first := nextFrame(t, h, FrameSession)
	assert.False(t, first.Session.SignedIn)

	require.NoError(t, h.Dispatch(ctx, NewIntent(IntentNavigateToLogin, nil)))
	require.NoError(t, h.Dispatch(ctx, NewIntent(IntentUpdateEmail, map[string]string{"email": "ann@example.com"})))
	require.NoError(t, h.Dispatch(ctx, NewIntent(IntentUpdatePass, map[string]string{"password": "secret1"})))
	require.NoError(t, h.Dispatch(ctx, NewIntent(IntentAttemptLogin, nil)))

	s := nextFrame(t, h, FrameSession)
	assert.Equal(t, &Session{SignedIn: true, UserID: "u1", Username: "ann", Token: "tok"}, s.Session)
	assert.Equal(t, navigation.SightingList, h.Current().Route)
}
