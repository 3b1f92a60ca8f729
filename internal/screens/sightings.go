package screens

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/dronesight/dronesight-backend/internal/docstore"
	"github.com/dronesight/dronesight-backend/internal/media"
	"github.com/dronesight/dronesight-backend/internal/models"
	"github.com/dronesight/dronesight-backend/internal/navigation"
	"github.com/dronesight/dronesight-backend/internal/repository"
)

const (
	IntentNavigateToNewSighting = "NavigateToNewSighting"
	IntentNavigateToSighting    = "NavigateToSighting"
	IntentNavigateToProfile     = "NavigateToProfile"
	IntentNavigateToSettings    = "NavigateToSettings"
	IntentNavigateToLogin       = "NavigateToLogin"
	IntentNavigateToMap         = "NavigateToMap"
	IntentNavigateToDiscussions = "NavigateToDiscussions"
	IntentDeleteSighting        = "DeleteSighting"

	IntentUpdateTitle        = "UpdateTitle"
	IntentUpdateContent      = "UpdateContent"
	IntentUpdateLocation     = "UpdateLocation"
	IntentUpdateSightingDate = "UpdateSightingDate"
	IntentHandleMediaResult  = "HandleMediaResult"
	IntentRemoveAttachment   = "RemoveAttachment"
	IntentPostSighting       = "PostSighting"

	IntentUpdateComment = "UpdateComment"
	IntentReply         = "Reply"
	IntentCancelReply   = "CancelReply"
	IntentPostComment   = "PostComment"
	IntentUpvote        = "Upvote"
	IntentDownvote      = "Downvote"
)

// Media picker outcomes carried by HandleMediaResult.
const (
	MediaCanceled = "canceled"
	MediaSingle   = "single"
	MediaMultiple = "multiple"
)

var (
	ErrSignInRequired = errors.New("you must be logged in")
	ErrTitleRequired  = errors.New("a title is required")
	ErrEmptyComment   = errors.New("comment cannot be empty")
)

const signInMessage = "You must be logged in to post a sighting"

type idPayload struct {
	ID        string `json:"id"`
	CommentID string `json:"commentId"`
}

type SightingsListState struct {
	Sightings []SightingCard `json:"sightings"`
	IsLoading bool           `json:"isLoading"`
}

type SightingsList struct {
	screen[SightingsListState]
	env env
}

func NewSightingsList(e env) *SightingsList {
	h := &SightingsList{env: e}
	h.init(navigation.SightingList, SightingsListState{Sightings: []SightingCard{}, IsLoading: true})
	h.notices = NewNotices()
	return h
}

func (h *SightingsList) Start(ctx context.Context) error {
	ctx = h.begin(ctx)
	sub, err := h.env.Sightings.GetAll(ctx, repository.Order{Field: repository.FieldPostDate, Direction: docstore.Descending})
	if err != nil {
		return err
	}
	follow(&h.screen, sub, func(list []models.Sighting) {
		now := h.env.now()
		cards := make([]SightingCard, 0, len(list))
		for _, s := range list {
			cards = append(cards, toSightingCard(s, now))
		}
		h.state.Set(SightingsListState{Sightings: cards})
	})
	return nil
}

func (h *SightingsList) Handle(ctx context.Context, in Intent) error {
	var p idPayload
	if err := in.Decode(&p); err != nil {
		return err
	}
	switch in.Name {
	case IntentNavigateToNewSighting:
		if !h.env.auth.IsSignedIn() {
			h.notices.Send(Notice{
				Kind:         NoticeSnackbar,
				Message:      signInMessage,
				ActionLabel:  "Log in",
				ActionIntent: IntentNavigateToLogin,
			})
			return nil
		}
		h.env.nav.NavToNewSighting()
	case IntentNavigateToSighting:
		h.env.nav.NavToSighting(p.ID)
	case IntentNavigateToProfile:
		h.env.nav.NavToProfile()
	case IntentNavigateToSettings:
		h.env.nav.NavToSettings()
	case IntentNavigateToLogin:
		h.env.nav.NavToLogin()
	case IntentNavigateToMap:
		h.env.nav.NavToMap()
	case IntentNavigateToDiscussions:
		h.env.nav.NavToDiscussionList()
	case IntentDeleteSighting:
		return h.deleteSighting(ctx, p.ID)
	default:
		return unknownIntent(in)
	}
	return nil
}

// deleteSighting removes a sighting owned by the signed-in user. Other users get
// a toast instead.
func (h *SightingsList) deleteSighting(ctx context.Context, id string) error {
	user := h.env.auth.CurrentUser()
	s, err := h.env.Sightings.FindOne(ctx, id)
	if err != nil {
		return err
	}
	if user == nil || s.UserID != user.UserID {
		h.notices.Send(Notice{Kind: NoticeToast, Message: "You can only delete your own sightings"})
		return nil
	}
	if err := h.env.Sightings.Delete(ctx, id); err != nil {
		return err
	}
	h.log.WithField("sighting_id", id).Info("sighting deleted")
	return nil
}

type NewSightingState struct {
	Title        string          `json:"title"`
	Content      string          `json:"content"`
	Location     models.Location `json:"location"`
	SightingDate *time.Time      `json:"sightingDate,omitempty"`
	Images       []string        `json:"images"`
	Videos       []string        `json:"videos"`
	IsPosting    bool            `json:"isPosting"`
	Error        *string         `json:"error,omitempty"`
}

type newSightingPayload struct {
	Title        string          `json:"title"`
	Content      string          `json:"content"`
	Location     models.Location `json:"location"`
	SightingDate *time.Time      `json:"sightingDate"`
	Kind         string          `json:"kind"`
	URI          string          `json:"uri"`
	URIs         []string        `json:"uris"`
}

type NewSighting struct {
	screen[NewSightingState]
	env env
}

func NewNewSighting(e env) *NewSighting {
	h := &NewSighting{env: e}
	h.init(navigation.NewSighting, NewSightingState{Images: []string{}, Videos: []string{}})
	h.notices = NewNotices()
	return h
}

func (h *NewSighting) Start(ctx context.Context) error {
	h.begin(ctx)
	return nil
}

func (h *NewSighting) Handle(ctx context.Context, in Intent) error {
	var p newSightingPayload
	if err := in.Decode(&p); err != nil {
		return err
	}
	switch in.Name {
	case IntentUpdateTitle:
		h.state.Update(func(s NewSightingState) NewSightingState { s.Title = p.Title; return s })
	case IntentUpdateContent:
		h.state.Update(func(s NewSightingState) NewSightingState { s.Content = p.Content; return s })
	case IntentUpdateLocation:
		h.state.Update(func(s NewSightingState) NewSightingState { s.Location = p.Location; return s })
	case IntentUpdateSightingDate:
		h.state.Update(func(s NewSightingState) NewSightingState { s.SightingDate = p.SightingDate; return s })
	case IntentHandleMediaResult:
		h.addMedia(p)
	case IntentRemoveAttachment:
		h.removeAttachment(p.URI)
	case IntentPostSighting:
		return h.post(ctx)
	case IntentDismissError:
		h.state.Update(func(s NewSightingState) NewSightingState { s.Error = nil; return s })
	case IntentNavigateBack:
		h.env.nav.PopBackStack()
	default:
		return unknownIntent(in)
	}
	return nil
}

func (h *NewSighting) addMedia(p newSightingPayload) {
	var picked []string
	switch p.Kind {
	case MediaSingle:
		if p.URI != "" {
			picked = []string{p.URI}
		}
	case MediaMultiple:
		picked = p.URIs
	default:
		return
	}
	images, videos := media.Split(picked)
	h.state.Update(func(s NewSightingState) NewSightingState {
		s.Images = append(append([]string{}, s.Images...), images...)
		s.Videos = append(append([]string{}, s.Videos...), videos...)
		return s
	})
}

func (h *NewSighting) removeAttachment(uri string) {
	h.state.Update(func(s NewSightingState) NewSightingState {
		s.Images = without(s.Images, uri)
		s.Videos = without(s.Videos, uri)
		return s
	})
	h.env.Staging.Remove(uri)
}

func (h *NewSighting) post(ctx context.Context) error {
	user := h.env.auth.CurrentUser()
	if user == nil {
		h.fail(ErrSignInRequired)
		return nil
	}
	cur := h.state.Get()
	if strings.TrimSpace(cur.Title) == "" {
		h.fail(ErrTitleRequired)
		return nil
	}

	uris := append(append([]string{}, cur.Images...), cur.Videos...)
	sources, err := h.env.Staging.ResolveAll(uris)
	if err != nil {
		h.fail(err)
		return nil
	}

	h.state.Update(func(s NewSightingState) NewSightingState { s.IsPosting = true; s.Error = nil; return s })
	now := h.env.now().UTC()
	sighting := models.Sighting{
		UserID:       user.UserID,
		Username:     user.Username,
		Title:        strings.TrimSpace(cur.Title),
		PostDate:     &now,
		SightingDate: cur.SightingDate,
		Location:     cur.Location,
	}
	if cur.Content != "" {
		sighting.Description = ptr(cur.Content)
	}

	id, err := h.env.Sightings.UploadMediaAndSave(ctx, sources, sighting)
	if err != nil {
		h.log.WithError(err).Error("failed to post sighting")
		h.fail(err)
		return nil
	}
	for _, uri := range uris {
		h.env.Staging.Remove(uri)
	}
	h.log.WithField("sighting_id", id).Info("sighting posted")
	h.state.Update(func(s NewSightingState) NewSightingState { s.IsPosting = false; return s })
	h.env.nav.PopBackStack()
	return nil
}

func (h *NewSighting) fail(err error) {
	h.state.Update(func(s NewSightingState) NewSightingState {
		s.IsPosting = false
		s.Error = h.errorText(err)
		return s
	})
	h.notices.Send(Notice{Kind: NoticeToast, Message: err.Error()})
}

func without(list []string, v string) []string {
	out := make([]string, 0, len(list))
	for _, item := range list {
		if item != v {
			out = append(out, item)
		}
	}
	return out
}

type SightingViewState struct {
	Sighting         *SightingCard `json:"sighting"`
	Comments         []CommentCard `json:"comments"`
	CommentText      string        `json:"commentText"`
	ReplyingTo       *string       `json:"replyingTo,omitempty"`
	IsPostingComment bool          `json:"isPostingComment"`
	Error            *string       `json:"error,omitempty"`
}

type commentPayload struct {
	Text      string `json:"text"`
	CommentID string `json:"commentId"`
}

type SightingView struct {
	screen[SightingViewState]
	env env
	id  string

	dataMu   sync.Mutex
	sighting *models.Sighting
	comments []models.SightingComment
}

func NewSightingView(e env, id string) *SightingView {
	h := &SightingView{env: e, id: id}
	h.init(navigation.SightingView, SightingViewState{Comments: []CommentCard{}})
	h.notices = NewNotices()
	return h
}

func (h *SightingView) Start(ctx context.Context) error {
	ctx = h.begin(ctx)
	sightingSub, err := h.env.Sightings.Get(ctx, h.id)
	if err != nil {
		return err
	}
	follow(&h.screen, sightingSub, func(s *models.Sighting) {
		h.dataMu.Lock()
		h.sighting = s
		h.dataMu.Unlock()
		var card *SightingCard
		if s != nil {
			c := toSightingCard(*s, h.env.now())
			card = &c
		}
		h.state.Update(func(st SightingViewState) SightingViewState { st.Sighting = card; return st })
	})

	commentSub, err := h.env.SightingComments.GetSightingComments(ctx, h.id,
		repository.Order{Field: repository.FieldTimestamp, Direction: docstore.Ascending})
	if err != nil {
		return err
	}
	follow(&h.screen, commentSub, func(list []models.SightingComment) {
		h.dataMu.Lock()
		h.comments = list
		h.dataMu.Unlock()
		now := h.env.now()
		cards := make([]CommentCard, 0, len(list))
		for _, c := range list {
			cards = append(cards, sightingCommentCard(c, now))
		}
		h.state.Update(func(st SightingViewState) SightingViewState { st.Comments = cards; return st })
	})
	return nil
}

func (h *SightingView) Handle(ctx context.Context, in Intent) error {
	var p commentPayload
	if err := in.Decode(&p); err != nil {
		return err
	}
	switch in.Name {
	case IntentUpdateComment:
		h.state.Update(func(s SightingViewState) SightingViewState { s.CommentText = p.Text; return s })
	case IntentReply:
		h.state.Update(func(s SightingViewState) SightingViewState { s.ReplyingTo = ptr(p.CommentID); return s })
	case IntentCancelReply:
		h.state.Update(func(s SightingViewState) SightingViewState { s.ReplyingTo = nil; return s })
	case IntentPostComment:
		return h.postComment(ctx)
	case IntentUpvote:
		return h.vote(ctx, p.CommentID, 1, 0)
	case IntentDownvote:
		return h.vote(ctx, p.CommentID, 0, 1)
	case IntentDismissError:
		h.state.Update(func(s SightingViewState) SightingViewState { s.Error = nil; return s })
	case IntentNavigateBack:
		h.env.nav.PopBackStack()
	default:
		return unknownIntent(in)
	}
	return nil
}

func (h *SightingView) current() (*models.Sighting, []models.SightingComment) {
	h.dataMu.Lock()
	defer h.dataMu.Unlock()
	var s *models.Sighting
	if h.sighting != nil {
		cp := *h.sighting
		s = &cp
	}
	return s, h.comments
}

func (h *SightingView) postComment(ctx context.Context) error {
	user := h.env.auth.CurrentUser()
	if user == nil {
		h.notices.Send(Notice{Kind: NoticeToast, Message: ErrSignInRequired.Error()})
		return nil
	}
	cur := h.state.Get()
	text := strings.TrimSpace(cur.CommentText)
	if text == "" {
		h.state.Update(func(s SightingViewState) SightingViewState { s.Error = h.errorText(ErrEmptyComment); return s })
		return nil
	}

	h.state.Update(func(s SightingViewState) SightingViewState { s.IsPostingComment = true; return s })
	now := h.env.now().UTC()
	comment := models.SightingComment{
		UserID:          user.UserID,
		Username:        user.Username,
		ParentCommentID: cur.ReplyingTo,
		Content:         text,
		Timestamp:       &now,
	}
	if _, err := h.env.SightingComments.PostComment(ctx, h.id, comment); err != nil {
		h.log.WithError(err).Error("failed to post comment")
		h.state.Update(func(s SightingViewState) SightingViewState {
			s.IsPostingComment = false
			s.Error = h.errorText(err)
			return s
		})
		return nil
	}

	if err := h.bumpCommentCount(ctx); err != nil {
		h.log.WithError(err).Warn("failed to update comment count")
	}
	h.state.Update(func(s SightingViewState) SightingViewState {
		s.IsPostingComment = false
		s.CommentText = ""
		s.ReplyingTo = nil
		return s
	})
	return nil
}

func (h *SightingView) bumpCommentCount(ctx context.Context) error {
	s, _ := h.current()
	if s == nil {
		found, err := h.env.Sightings.FindOne(ctx, h.id)
		if err != nil {
			return err
		}
		s = &found
	}
	s.CommentCount++
	return h.env.Sightings.Update(ctx, s.ID, *s)
}

// vote adds to the counters of the sighting, or of one of its comments when
// commentID is set. The whole record is written back.
func (h *SightingView) vote(ctx context.Context, commentID string, up, down int) error {
	if h.env.auth.CurrentUser() == nil {
		h.notices.Send(Notice{Kind: NoticeToast, Message: ErrSignInRequired.Error()})
		return nil
	}
	s, comments := h.current()
	if commentID == "" {
		if s == nil {
			return docstore.ErrNotFound
		}
		s.Upvotes += up
		s.Downvotes += down
		return h.env.Sightings.Update(ctx, s.ID, *s)
	}
	for _, c := range comments {
		if c.ID == commentID {
			c.Upvotes += up
			c.Downvotes += down
			return h.env.SightingComments.UpdateComment(ctx, h.id, c)
		}
	}
	return docstore.ErrNotFound
}

// Marker is one sighting on the map.
type Marker struct {
	SightingID string          `json:"sightingId"`
	Title      string          `json:"title"`
	Location   models.Location `json:"location"`
	Posted     string          `json:"posted"`
}

type MapState struct {
	Markers []Marker `json:"markers"`
}

type Map struct {
	screen[MapState]
	env env
}

func NewMap(e env) *Map {
	h := &Map{env: e}
	h.init(navigation.Map, MapState{Markers: []Marker{}})
	return h
}

func (h *Map) Start(ctx context.Context) error {
	ctx = h.begin(ctx)
	sub, err := h.env.Sightings.GetAll(ctx, repository.Unordered)
	if err != nil {
		return err
	}
	follow(&h.screen, sub, func(list []models.Sighting) {
		now := h.env.now()
		markers := make([]Marker, 0, len(list))
		for _, s := range list {
			markers = append(markers, Marker{
				SightingID: s.ID,
				Title:      s.Title,
				Location:   s.Location,
				Posted:     RelativeTime(s.PostDate, now),
			})
		}
		h.state.Set(MapState{Markers: markers})
	})
	return nil
}

func (h *Map) Handle(_ context.Context, in Intent) error {
	var p idPayload
	if err := in.Decode(&p); err != nil {
		return err
	}
	switch in.Name {
	case IntentNavigateToSighting:
		h.env.nav.NavToSighting(p.ID)
	case IntentNavigateBack:
		h.env.nav.PopBackStack()
	default:
		return unknownIntent(in)
	}
	return nil
}
