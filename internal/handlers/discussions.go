package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"github.com/dronesight/dronesight-backend/internal/docstore"
	"github.com/dronesight/dronesight-backend/internal/logger"
	"github.com/dronesight/dronesight-backend/internal/middleware"
	"github.com/dronesight/dronesight-backend/internal/models"
	"github.com/dronesight/dronesight-backend/internal/repository"
)

type DiscussionRequest struct {
	Title       string  `json:"title"`
	Description *string `json:"description,omitempty"`
}

var discussionOrderFields = map[string]bool{
	repository.FieldPostDate: true,
	"title":                  true,
	"commentCount":           true,
}

type DiscussionHandler struct {
	discussions *repository.DiscussionRepository
	comments    *repository.DiscussionCommentRepository
	now         func() time.Time
	log         *logrus.Entry
}

func NewDiscussionHandler(discussions *repository.DiscussionRepository, comments *repository.DiscussionCommentRepository) *DiscussionHandler {
	return &DiscussionHandler{
		discussions: discussions,
		comments:    comments,
		now:         time.Now,
		log:         logger.For("handlers.discussions"),
	}
}

func (h *DiscussionHandler) List(w http.ResponseWriter, r *http.Request) {
	var q ListQuery
	if err := decodeValues(&q, r.URL.Query()); err != nil {
		writeError(w, h.log, err)
		return
	}
	order, err := q.order(discussionOrderFields)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	list, err := h.discussions.Find(r.Context(), order)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeData(w, http.StatusOK, "", list)
}

func (h *DiscussionHandler) Get(w http.ResponseWriter, r *http.Request) {
	d, err := h.discussions.FindOne(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeData(w, http.StatusOK, "", d)
}

func (h *DiscussionHandler) Create(w http.ResponseWriter, r *http.Request) {
	id, _ := middleware.IdentityFrom(r.Context())
	var req DiscussionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.log, err)
		return
	}
	if strings.TrimSpace(req.Title) == "" {
		writeError(w, h.log, models.NewValidationError("Title is required"))
		return
	}

	now := h.now().UTC()
	d := models.Discussion{
		UserID:      id.UserID,
		Username:    id.Username,
		Title:       strings.TrimSpace(req.Title),
		PostDate:    &now,
		Description: req.Description,
	}
	newID, err := h.discussions.Post(r.Context(), d, "")
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	d.ID = newID
	writeData(w, http.StatusCreated, "Discussion created", d)
}

func (h *DiscussionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, _ := middleware.IdentityFrom(r.Context())
	d, err := h.discussions.FindOne(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	if d.UserID != id.UserID {
		writeError(w, h.log, models.NewForbiddenError("You can only delete your own discussions"))
		return
	}
	if err := h.discussions.Delete(r.Context(), d.ID); err != nil {
		writeError(w, h.log, err)
		return
	}
	writeData(w, http.StatusOK, "Discussion deleted", nil)
}

func (h *DiscussionHandler) ListComments(w http.ResponseWriter, r *http.Request) {
	list, err := h.comments.ListDiscussionComments(r.Context(), chi.URLParam(r, "id"),
		repository.Order{Field: repository.FieldTimestamp, Direction: docstore.Ascending})
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeData(w, http.StatusOK, "", list)
}

func (h *DiscussionHandler) CreateComment(w http.ResponseWriter, r *http.Request) {
	id, _ := middleware.IdentityFrom(r.Context())
	var req CommentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.log, err)
		return
	}
	content := strings.TrimSpace(req.Content)
	if content == "" {
		writeError(w, h.log, models.NewValidationError("Content is required"))
		return
	}

	d, err := h.discussions.FindOne(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	now := h.now().UTC()
	comment := models.DiscussionComment{
		UserID:          id.UserID,
		Username:        id.Username,
		ParentCommentID: req.ParentCommentID,
		Content:         content,
		Timestamp:       &now,
	}
	comment.ID, err = h.comments.PostComment(r.Context(), d.ID, comment)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	comment.DiscussionID = d.ID

	d.CommentCount++
	if err := h.discussions.Update(r.Context(), d.ID, d); err != nil {
		h.log.WithError(err).WithField("discussion_id", d.ID).Warn("failed to update comment count")
	}
	writeData(w, http.StatusCreated, "Comment posted", comment)
}
