package screens

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dronesight/dronesight-backend/internal/docstore"
	"github.com/dronesight/dronesight-backend/internal/models"
	"github.com/dronesight/dronesight-backend/internal/navigation"
	"github.com/dronesight/dronesight-backend/internal/repository"
)

func TestRelativeTime(t *testing.T) {
	t.Parallel()
	now := testNow
	at := func(d time.Duration) *time.Time {
		v := now.Add(-d)
		return &v
	}
	cases := []struct {
		t    *time.Time
		want string
	}{
		{nil, "Unknown time"},
		{at(30 * time.Second), "0 minutes ago"},
		{at(time.Minute), "1 minute ago"},
		{at(5 * time.Minute), "5 minutes ago"},
		{at(90 * time.Minute), "1 hour ago"},
		{at(5 * time.Hour), "5 hours ago"},
		{at(30 * time.Hour), "1 day ago"},
		{at(72 * time.Hour), "3 days ago"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, RelativeTime(tc.t, now))
	}
}

func TestState_UpdateNotifiesSubscribers(t *testing.T) {
	t.Parallel()
	s := NewState(1)
	var seen []int
	stop := s.Subscribe(func(v int) { seen = append(seen, v) })

	s.Update(func(v int) int { return v + 1 })
	s.Set(10)
	stop()
	s.Set(11)

	assert.Equal(t, []int{2, 10}, seen)
	assert.Equal(t, 11, s.Get())
}

func TestState_DeliversInApplyOrder(t *testing.T) {
	t.Parallel()
	s := NewState(0)
	entered := make(chan struct{})
	release := make(chan struct{})
	var mu sync.Mutex
	var delivered []int
	s.Subscribe(func(v int) {
		if v == 1 {
			close(entered)
			<-release
		}
		mu.Lock()
		delivered = append(delivered, v)
		mu.Unlock()
	})

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		s.Update(func(int) int { return 1 })
	}()
	<-entered
	go func() {
		defer wg.Done()
		s.Update(func(int) int { return 2 })
	}()
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []int{1, 2}, delivered)
	assert.Equal(t, s.Get(), delivered[len(delivered)-1])
}

func TestNotices_DropsWhenFull(t *testing.T) {
	t.Parallel()
	n := NewNotices()
	for i := 0; i < 8; i++ {
		require.True(t, n.Send(Notice{Kind: NoticeToast, Message: "x"}))
	}
	assert.False(t, n.Send(Notice{Kind: NoticeToast, Message: "overflow"}))
	assert.Equal(t, "x", (<-n.C()).Message)
}

func TestHolders_UnknownIntent(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	graph := NewGraph(f.deps, f.env.nav, f.auth)
	assert.Empty(t, graph.Missing())

	for _, route := range navigation.Routes {
		h, err := graph.Build(navigation.Destination{Route: route, Arg: "x"})
		require.NoError(t, err)
		assert.Equal(t, route, h.Route())
		err = h.Handle(context.Background(), Intent{Name: "NoSuchIntent"})
		assert.ErrorIs(t, err, ErrUnknownIntent, route)
		h.Close()
	}
}

func TestLogin_SuccessNavigatesToList(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	h := NewLogin(f.env)
	require.NoError(t, h.Start(context.Background()))
	defer h.Close()

	handle(t, h, IntentUpdateEmail, map[string]string{"email": "ann@example.com"})
	handle(t, h, IntentUpdatePass, map[string]string{"password": "secret1"})
	handle(t, h, IntentAttemptLogin, nil)

	state := h.Snapshot().(LoginState)
	assert.Nil(t, state.Error)
	assert.False(t, state.IsLoading)
	assert.Empty(t, state.Password)
	assert.True(t, f.auth.IsSignedIn())
	assert.Equal(t, navigation.SightingList, f.stack.Current().Route)
	assert.Equal(t, 2, f.stack.Len())
}

func TestLogin_FailureSetsError(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	h := NewLogin(f.env)
	require.NoError(t, h.Start(context.Background()))
	defer h.Close()

	handle(t, h, IntentUpdateEmail, map[string]string{"email": "ann@example.com"})
	handle(t, h, IntentUpdatePass, map[string]string{"password": "wrong"})
	handle(t, h, IntentAttemptLogin, nil)

	state := h.Snapshot().(LoginState)
	require.NotNil(t, state.Error)
	assert.Equal(t, errBadPassword.Error(), *state.Error)
	assert.False(t, f.auth.IsSignedIn())
	assert.Equal(t, 1, f.stack.Len())

	handle(t, h, IntentDismissError, nil)
	assert.Nil(t, h.Snapshot().(LoginState).Error)
}

func TestRegister_SuccessNavigatesToLogin(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	h := NewRegister(f.env)
	require.NoError(t, h.Start(context.Background()))
	defer h.Close()

	handle(t, h, IntentUpdateEmail, map[string]string{"email": "bob@example.com"})
	handle(t, h, IntentUpdateUser, map[string]string{"username": "bob"})
	handle(t, h, IntentUpdatePass, map[string]string{"password": "secret1"})
	handle(t, h, IntentAttemptSignUp, nil)

	assert.Nil(t, h.Snapshot().(RegisterState).Error)
	assert.Equal(t, navigation.Login, f.stack.Current().Route)
}

func TestSightingsList_GateWhenSignedOut(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	h := NewSightingsList(f.env)
	require.NoError(t, h.Start(context.Background()))
	defer h.Close()

	handle(t, h, IntentNavigateToNewSighting, nil)

	assert.Equal(t, 1, f.stack.Len())
	select {
	case n := <-h.Notices():
		assert.Equal(t, NoticeSnackbar, n.Kind)
		assert.Equal(t, "Log in", n.ActionLabel)
		assert.Equal(t, IntentNavigateToLogin, n.ActionIntent)
	default:
		t.Fatal("expected a snackbar notice")
	}
}

func TestSightingsList_SignedInNavigates(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.signIn(t)
	h := NewSightingsList(f.env)
	require.NoError(t, h.Start(context.Background()))
	defer h.Close()

	handle(t, h, IntentNavigateToNewSighting, nil)
	assert.Equal(t, navigation.NewSighting, f.stack.Current().Route)

	handle(t, h, IntentNavigateToSighting, map[string]string{"id": "s9"})
	assert.Equal(t, navigation.Destination{Route: navigation.SightingView, Arg: "s9"}, f.stack.Current())
}

func TestSightingsList_LiveCardsNewestFirst(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	h := NewSightingsList(f.env)
	require.NoError(t, h.Start(ctx))
	defer h.Close()

	older := testNow.Add(-2 * time.Hour)
	newer := testNow.Add(-5 * time.Minute)
	_, err := f.deps.Sightings.Post(ctx, models.Sighting{Title: "old", PostDate: &older, MediaURLs: []string{}}, "a")
	require.NoError(t, err)
	_, err = f.deps.Sightings.Post(ctx, models.Sighting{Title: "new", PostDate: &newer, MediaURLs: []string{}}, "b")
	require.NoError(t, err)

	state := waitFor(t, h, func(s SightingsListState) bool { return len(s.Sightings) == 2 })
	assert.Equal(t, "new", state.Sightings[0].Title)
	assert.Equal(t, "5 minutes ago", state.Sightings[0].Posted)
	assert.Equal(t, "2 hours ago", state.Sightings[1].Posted)
}

func TestSightingsList_DeleteOnlyOwn(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.signIn(t)
	ctx := context.Background()
	_, err := f.deps.Sightings.Post(ctx, models.Sighting{UserID: "someone-else", Title: "x"}, "theirs")
	require.NoError(t, err)
	_, err = f.deps.Sightings.Post(ctx, models.Sighting{UserID: "u1", Title: "y"}, "mine")
	require.NoError(t, err)

	h := NewSightingsList(f.env)
	require.NoError(t, h.Start(ctx))
	defer h.Close()

	handle(t, h, IntentDeleteSighting, map[string]string{"id": "theirs"})
	n := <-h.Notices()
	assert.Equal(t, NoticeToast, n.Kind)
	_, err = f.deps.Sightings.FindOne(ctx, "theirs")
	assert.NoError(t, err)

	handle(t, h, IntentDeleteSighting, map[string]string{"id": "mine"})
	_, err = f.deps.Sightings.FindOne(ctx, "mine")
	assert.ErrorIs(t, err, docstore.ErrNotFound)
}

func TestNewSighting_MediaResultSplitsImagesAndVideos(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	h := NewNewSighting(f.env)
	require.NoError(t, h.Start(context.Background()))
	defer h.Close()

	handle(t, h, IntentHandleMediaResult, map[string]any{"kind": MediaCanceled})
	handle(t, h, IntentHandleMediaResult, map[string]any{"kind": MediaSingle, "uri": "staged://1/a.JPG"})
	handle(t, h, IntentHandleMediaResult, map[string]any{"kind": MediaMultiple, "uris": []string{"staged://2/b.mp4", "staged://3/c.png"}})

	state := h.Snapshot().(NewSightingState)
	assert.Equal(t, []string{"staged://1/a.JPG", "staged://3/c.png"}, state.Images)
	assert.Equal(t, []string{"staged://2/b.mp4"}, state.Videos)

	handle(t, h, IntentRemoveAttachment, map[string]string{"uri": "staged://1/a.JPG"})
	assert.Equal(t, []string{"staged://3/c.png"}, h.Snapshot().(NewSightingState).Images)
}

func TestNewSighting_PostUploadsAndSaves(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.signIn(t)
	f.env.nav.NavToNewSighting()
	ctx := context.Background()

	img, err := f.deps.Staging.Put("photo.jpg", strings.NewReader("jpeg"))
	require.NoError(t, err)
	vid, err := f.deps.Staging.Put("clip.mp4", strings.NewReader("mp4"))
	require.NoError(t, err)

	h := NewNewSighting(f.env)
	require.NoError(t, h.Start(ctx))
	defer h.Close()

	handle(t, h, IntentUpdateTitle, map[string]string{"title": "Lights over the bay"})
	handle(t, h, IntentUpdateContent, map[string]string{"content": "three drones"})
	handle(t, h, IntentUpdateLocation, map[string]any{"location": map[string]float64{"latitude": 52.1, "longitude": 4.3}})
	handle(t, h, IntentHandleMediaResult, map[string]any{"kind": MediaMultiple, "uris": []string{img, vid}})
	handle(t, h, IntentPostSighting, nil)

	assert.Nil(t, h.Snapshot().(NewSightingState).Error)
	assert.Equal(t, navigation.SightingList, f.stack.Current().Route)

	all, err := f.deps.Sightings.Find(ctx, repository.Unordered)
	require.NoError(t, err)
	require.Len(t, all, 1)
	s := all[0]
	assert.Equal(t, "u1", s.UserID)
	assert.Equal(t, "ann", s.Username)
	assert.Equal(t, models.Location{Latitude: 52.1, Longitude: 4.3}, s.Location)
	require.NotNil(t, s.Description)
	assert.Equal(t, "three drones", *s.Description)
	require.Len(t, s.MediaURLs, 2)
	assert.True(t, strings.HasSuffix(s.MediaURLs[0], "_photo.jpg"))
	assert.True(t, strings.HasSuffix(s.MediaURLs[1], "_clip.mp4"))
}

func TestNewSighting_PostRequiresSignIn(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	h := NewNewSighting(f.env)
	require.NoError(t, h.Start(context.Background()))
	defer h.Close()

	handle(t, h, IntentUpdateTitle, map[string]string{"title": "t"})
	handle(t, h, IntentPostSighting, nil)

	state := h.Snapshot().(NewSightingState)
	require.NotNil(t, state.Error)
	assert.Equal(t, ErrSignInRequired.Error(), *state.Error)
	assert.Empty(t, f.objects.keys)
}

func TestSightingView_CommentsAndVotes(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.signIn(t)
	var tick atomic.Int64
	f.env.Now = func() time.Time { return testNow.Add(time.Duration(tick.Add(1)) * time.Second) }
	ctx := context.Background()
	_, err := f.deps.Sightings.Post(ctx, models.Sighting{UserID: "u2", Title: "orb", MediaURLs: []string{}}, "s1")
	require.NoError(t, err)

	h := NewSightingView(f.env, "s1")
	require.NoError(t, h.Start(ctx))
	defer h.Close()
	waitFor(t, h, func(s SightingViewState) bool { return s.Sighting != nil })

	handle(t, h, IntentUpdateComment, map[string]string{"text": "saw it too"})
	handle(t, h, IntentPostComment, nil)
	state := waitFor(t, h, func(s SightingViewState) bool {
		return len(s.Comments) == 1 && s.Sighting != nil && s.Sighting.CommentCount == 1
	})
	assert.Equal(t, "", state.CommentText)
	assert.Equal(t, "ann", state.Comments[0].User)
	assert.Equal(t, "s1", state.Comments[0].ParentID)

	commentID := state.Comments[0].CommentID
	handle(t, h, IntentReply, map[string]string{"commentId": commentID})
	handle(t, h, IntentUpdateComment, map[string]string{"text": "where?"})
	handle(t, h, IntentPostComment, nil)
	state = waitFor(t, h, func(s SightingViewState) bool {
		return len(s.Comments) == 2 && s.Sighting != nil && s.Sighting.CommentCount == 2
	})
	assert.Equal(t, commentID, state.Comments[1].ParentCommentID)

	handle(t, h, IntentUpvote, nil)
	handle(t, h, IntentDownvote, map[string]string{"commentId": commentID})
	state = waitFor(t, h, func(s SightingViewState) bool {
		return s.Sighting != nil && s.Sighting.Upvotes == 1 && s.Comments[0].Downvotes == 1
	})
	assert.Equal(t, "orb", state.Sighting.Title)
	assert.Equal(t, 2, state.Sighting.CommentCount)
}

func TestSightingView_VoteRequiresSignIn(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.deps.Sightings.Post(ctx, models.Sighting{UserID: "u2", Title: "orb", MediaURLs: []string{}}, "s1")
	require.NoError(t, err)

	h := NewSightingView(f.env, "s1")
	require.NoError(t, h.Start(ctx))
	defer h.Close()
	waitFor(t, h, func(s SightingViewState) bool { return s.Sighting != nil })

	handle(t, h, IntentUpvote, nil)
	select {
	case n := <-h.Notices():
		assert.Equal(t, ErrSignInRequired.Error(), n.Message)
	case <-time.After(time.Second):
		t.Fatal("no sign-in notice")
	}

	stored, err := f.deps.Sightings.FindOne(ctx, "s1")
	require.NoError(t, err)
	assert.Zero(t, stored.Upvotes)
	assert.Zero(t, stored.Downvotes)
}

func TestDiscussions_PostAndComment(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.signIn(t)
	ctx := context.Background()

	list := NewDiscussionList(f.env)
	require.NoError(t, list.Start(ctx))
	defer list.Close()

	nd := NewNewDiscussion(f.env)
	require.NoError(t, nd.Start(ctx))
	defer nd.Close()
	handle(t, nd, IntentUpdateTitle, map[string]string{"title": "Regulation news"})
	handle(t, nd, IntentPostDiscussion, nil)
	assert.Nil(t, nd.Snapshot().(NewDiscussionState).Error)

	state := waitFor(t, list, func(s DiscussionListState) bool { return len(s.Discussions) == 1 })
	id := state.Discussions[0].DiscussionID

	d := NewDiscussion(f.env, id)
	require.NoError(t, d.Start(ctx))
	defer d.Close()
	handle(t, d, IntentUpdateComment, map[string]string{"text": "interesting"})
	handle(t, d, IntentPostComment, nil)
	ds := waitFor(t, d, func(s DiscussionState) bool {
		return len(s.Comments) == 1 && s.Discussion != nil && s.Discussion.CommentCount == 1
	})
	assert.Equal(t, "interesting", ds.Comments[0].Text)

	handle(t, d, IntentDeleteComment, map[string]string{"commentId": ds.Comments[0].CommentID})
	waitFor(t, d, func(s DiscussionState) bool { return len(s.Comments) == 0 })
}

func TestProfile_ShowsOwnSightings(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.signIn(t)
	ctx := context.Background()
	_, err := f.deps.Users.Post(ctx, models.User{Username: "ann", Email: "ann@example.com"}, "u1")
	require.NoError(t, err)
	_, err = f.deps.Sightings.Post(ctx, models.Sighting{UserID: "u1", Title: "mine"}, "a")
	require.NoError(t, err)
	_, err = f.deps.Sightings.Post(ctx, models.Sighting{UserID: "u2", Title: "theirs"}, "b")
	require.NoError(t, err)

	h := NewProfile(f.env)
	require.NoError(t, h.Start(ctx))
	defer h.Close()

	state := waitFor(t, h, func(s ProfileState) bool { return s.User != nil && len(s.Sightings) == 1 })
	assert.Equal(t, "ann", state.User.Username)
	assert.Equal(t, "mine", state.Sightings[0].Title)

	handle(t, h, IntentSignOut, nil)
	assert.False(t, f.auth.IsSignedIn())
	assert.Equal(t, navigation.Login, f.stack.Current().Route)
}

func TestSettings_TracksAuthState(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	h := NewSettings(f.env)
	require.NoError(t, h.Start(context.Background()))
	defer h.Close()

	assert.False(t, h.Snapshot().(SettingsState).SignedIn)
	f.signIn(t)
	assert.Equal(t, SettingsState{SignedIn: true, Username: "ann", Email: "ann@example.com"}, h.Snapshot())

	handle(t, h, IntentSignOut, nil)
	assert.Equal(t, SettingsState{}, h.Snapshot())
}
