package screens

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/dronesight/dronesight-backend/internal/docstore"
	"github.com/dronesight/dronesight-backend/internal/models"
	"github.com/dronesight/dronesight-backend/internal/navigation"
	"github.com/dronesight/dronesight-backend/internal/repository"
)

const (
	IntentNavigateToDiscussion    = "NavigateToDiscussion"
	IntentNavigateToNewDiscussion = "NavigateToNewDiscussion"
	IntentUpdateDescription       = "UpdateDescription"
	IntentPostDiscussion          = "PostDiscussion"
	IntentDeleteComment           = "DeleteComment"
)

type DiscussionCard struct {
	DiscussionID string  `json:"discussionId"`
	UserID       string  `json:"userId"`
	Username     string  `json:"username"`
	Title        string  `json:"title"`
	Description  *string `json:"description,omitempty"`
	Posted       string  `json:"posted"`
	CommentCount int     `json:"commentCount"`
}

func toDiscussionCard(d models.Discussion, now time.Time) DiscussionCard {
	return DiscussionCard{
		DiscussionID: d.ID,
		UserID:       d.UserID,
		Username:     d.Username,
		Title:        d.Title,
		Description:  d.Description,
		Posted:       RelativeTime(d.PostDate, now),
		CommentCount: d.CommentCount,
	}
}

type DiscussionListState struct {
	Discussions []DiscussionCard `json:"discussions"`
	IsLoading   bool             `json:"isLoading"`
}

type DiscussionList struct {
	screen[DiscussionListState]
	env env
}

func NewDiscussionList(e env) *DiscussionList {
	h := &DiscussionList{env: e}
	h.init(navigation.DiscussionList, DiscussionListState{Discussions: []DiscussionCard{}, IsLoading: true})
	h.notices = NewNotices()
	return h
}

func (h *DiscussionList) Start(ctx context.Context) error {
	ctx = h.begin(ctx)
	sub, err := h.env.Discussions.GetAll(ctx, repository.Order{Field: repository.FieldPostDate, Direction: docstore.Descending})
	if err != nil {
		return err
	}
	follow(&h.screen, sub, func(list []models.Discussion) {
		cards := make([]DiscussionCard, 0, len(list))
		for _, d := range list {
			cards = append(cards, toDiscussionCard(d, h.env.now()))
		}
		h.state.Set(DiscussionListState{Discussions: cards})
	})
	return nil
}

func (h *DiscussionList) Handle(_ context.Context, in Intent) error {
	var p idPayload
	if err := in.Decode(&p); err != nil {
		return err
	}
	switch in.Name {
	case IntentNavigateToDiscussion:
		h.env.nav.NavToDiscussion(p.ID)
	case IntentNavigateToNewDiscussion:
		if !h.env.auth.IsSignedIn() {
			h.notices.Send(Notice{
				Kind:         NoticeSnackbar,
				Message:      "You must be logged in to start a discussion",
				ActionLabel:  "Log in",
				ActionIntent: IntentNavigateToLogin,
			})
			return nil
		}
		h.env.nav.NavToNewDiscussion()
	case IntentNavigateToLogin:
		h.env.nav.NavToLogin()
	case IntentNavigateBack:
		h.env.nav.PopBackStack()
	default:
		return unknownIntent(in)
	}
	return nil
}

type DiscussionState struct {
	Discussion       *DiscussionCard `json:"discussion"`
	Comments         []CommentCard   `json:"comments"`
	CommentText      string          `json:"commentText"`
	ReplyingTo       *string         `json:"replyingTo,omitempty"`
	IsPostingComment bool            `json:"isPostingComment"`
	Error            *string         `json:"error,omitempty"`
}

type Discussion struct {
	screen[DiscussionState]
	env env
	id  string

	dataMu     sync.Mutex
	discussion *models.Discussion
	comments   []models.DiscussionComment
}

func NewDiscussion(e env, id string) *Discussion {
	h := &Discussion{env: e, id: id}
	h.init(navigation.Discussion, DiscussionState{Comments: []CommentCard{}})
	h.notices = NewNotices()
	return h
}

func (h *Discussion) Start(ctx context.Context) error {
	ctx = h.begin(ctx)
	dsub, err := h.env.Discussions.Get(ctx, h.id)
	if err != nil {
		return err
	}
	follow(&h.screen, dsub, func(d *models.Discussion) {
		h.dataMu.Lock()
		h.discussion = d
		h.dataMu.Unlock()
		var card *DiscussionCard
		if d != nil {
			c := toDiscussionCard(*d, h.env.now())
			card = &c
		}
		h.state.Update(func(st DiscussionState) DiscussionState { st.Discussion = card; return st })
	})

	csub, err := h.env.DiscussionComments.GetDiscussionComments(ctx, h.id,
		repository.Order{Field: repository.FieldTimestamp, Direction: docstore.Ascending})
	if err != nil {
		return err
	}
	follow(&h.screen, csub, func(list []models.DiscussionComment) {
		h.dataMu.Lock()
		h.comments = list
		h.dataMu.Unlock()
		now := h.env.now()
		cards := make([]CommentCard, 0, len(list))
		for _, c := range list {
			cards = append(cards, discussionCommentCard(c, now))
		}
		h.state.Update(func(st DiscussionState) DiscussionState { st.Comments = cards; return st })
	})
	return nil
}

func (h *Discussion) Handle(ctx context.Context, in Intent) error {
	var p commentPayload
	if err := in.Decode(&p); err != nil {
		return err
	}
	switch in.Name {
	case IntentUpdateComment:
		h.state.Update(func(s DiscussionState) DiscussionState { s.CommentText = p.Text; return s })
	case IntentReply:
		h.state.Update(func(s DiscussionState) DiscussionState { s.ReplyingTo = ptr(p.CommentID); return s })
	case IntentCancelReply:
		h.state.Update(func(s DiscussionState) DiscussionState { s.ReplyingTo = nil; return s })
	case IntentPostComment:
		return h.postComment(ctx)
	case IntentDeleteComment:
		return h.deleteComment(ctx, p.CommentID)
	case IntentDismissError:
		h.state.Update(func(s DiscussionState) DiscussionState { s.Error = nil; return s })
	case IntentNavigateBack:
		h.env.nav.PopBackStack()
	default:
		return unknownIntent(in)
	}
	return nil
}

func (h *Discussion) postComment(ctx context.Context) error {
	user := h.env.auth.CurrentUser()
	if user == nil {
		h.notices.Send(Notice{Kind: NoticeToast, Message: ErrSignInRequired.Error()})
		return nil
	}
	cur := h.state.Get()
	text := strings.TrimSpace(cur.CommentText)
	if text == "" {
		h.state.Update(func(s DiscussionState) DiscussionState { s.Error = h.errorText(ErrEmptyComment); return s })
		return nil
	}

	h.state.Update(func(s DiscussionState) DiscussionState { s.IsPostingComment = true; return s })
	now := h.env.now().UTC()
	_, err := h.env.DiscussionComments.PostComment(ctx, h.id, models.DiscussionComment{
		UserID:          user.UserID,
		Username:        user.Username,
		ParentCommentID: cur.ReplyingTo,
		Content:         text,
		Timestamp:       &now,
	})
	if err != nil {
		h.log.WithError(err).Error("failed to post comment")
		h.state.Update(func(s DiscussionState) DiscussionState {
			s.IsPostingComment = false
			s.Error = h.errorText(err)
			return s
		})
		return nil
	}

	if err := h.bumpCommentCount(ctx); err != nil {
		h.log.WithError(err).Warn("failed to update comment count")
	}
	h.state.Update(func(s DiscussionState) DiscussionState {
		s.IsPostingComment = false
		s.CommentText = ""
		s.ReplyingTo = nil
		return s
	})
	return nil
}

func (h *Discussion) bumpCommentCount(ctx context.Context) error {
	h.dataMu.Lock()
	var d models.Discussion
	cached := h.discussion != nil
	if cached {
		d = *h.discussion
	}
	h.dataMu.Unlock()
	if !cached {
		found, err := h.env.Discussions.FindOne(ctx, h.id)
		if err != nil {
			return err
		}
		d = found
	}
	d.CommentCount++
	return h.env.Discussions.Update(ctx, d.ID, d)
}

// deleteComment removes one of the signed-in user's own comments.
func (h *Discussion) deleteComment(ctx context.Context, commentID string) error {
	user := h.env.auth.CurrentUser()
	h.dataMu.Lock()
	var owner string
	for _, c := range h.comments {
		if c.ID == commentID {
			owner = c.UserID
		}
	}
	h.dataMu.Unlock()
	if owner == "" {
		return docstore.ErrNotFound
	}
	if user == nil || user.UserID != owner {
		h.notices.Send(Notice{Kind: NoticeToast, Message: "You can only delete your own comments"})
		return nil
	}
	return h.env.DiscussionComments.DeleteComment(ctx, h.id, commentID)
}

type NewDiscussionState struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	IsPosting   bool    `json:"isPosting"`
	Error       *string `json:"error,omitempty"`
}

type NewDiscussionScreen struct {
	screen[NewDiscussionState]
	env env
}

func NewNewDiscussion(e env) *NewDiscussionScreen {
	h := &NewDiscussionScreen{env: e}
	h.init(navigation.NewDiscussion, NewDiscussionState{})
	return h
}

func (h *NewDiscussionScreen) Start(ctx context.Context) error {
	h.begin(ctx)
	return nil
}

func (h *NewDiscussionScreen) Handle(ctx context.Context, in Intent) error {
	var p struct {
		Title       string `json:"title"`
		Description string `json:"description"`
	}
	if err := in.Decode(&p); err != nil {
		return err
	}
	switch in.Name {
	case IntentUpdateTitle:
		h.state.Update(func(s NewDiscussionState) NewDiscussionState { s.Title = p.Title; return s })
	case IntentUpdateDescription:
		h.state.Update(func(s NewDiscussionState) NewDiscussionState { s.Description = p.Description; return s })
	case IntentPostDiscussion:
		h.post(ctx)
	case IntentDismissError:
		h.state.Update(func(s NewDiscussionState) NewDiscussionState { s.Error = nil; return s })
	case IntentNavigateBack:
		h.env.nav.PopBackStack()
	default:
		return unknownIntent(in)
	}
	return nil
}

func (h *NewDiscussionScreen) post(ctx context.Context) {
	fail := func(err error) {
		h.state.Update(func(s NewDiscussionState) NewDiscussionState {
			s.IsPosting = false
			s.Error = h.errorText(err)
			return s
		})
	}
	user := h.env.auth.CurrentUser()
	if user == nil {
		fail(ErrSignInRequired)
		return
	}
	cur := h.state.Get()
	if strings.TrimSpace(cur.Title) == "" {
		fail(ErrTitleRequired)
		return
	}

	h.state.Update(func(s NewDiscussionState) NewDiscussionState { s.IsPosting = true; s.Error = nil; return s })
	now := h.env.now().UTC()
	d := models.Discussion{
		UserID:   user.UserID,
		Username: user.Username,
		Title:    strings.TrimSpace(cur.Title),
		PostDate: &now,
	}
	if cur.Description != "" {
		d.Description = ptr(cur.Description)
	}
	id, err := h.env.Discussions.Post(ctx, d, "")
	if err != nil {
		h.log.WithError(err).Error("failed to post discussion")
		fail(err)
		return
	}
	h.log.WithField("discussion_id", id).Info("discussion posted")
	h.state.Set(NewDiscussionState{})
	h.env.nav.PopBackStack()
}
