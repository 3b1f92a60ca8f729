package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"github.com/dronesight/dronesight-backend/internal/docstore"
	"github.com/dronesight/dronesight-backend/internal/logger"
	"github.com/dronesight/dronesight-backend/internal/media"
	"github.com/dronesight/dronesight-backend/internal/middleware"
	"github.com/dronesight/dronesight-backend/internal/models"
	"github.com/dronesight/dronesight-backend/internal/repository"
)

// ListQuery is the query string of list endpoints.
type ListQuery struct {
	OrderBy   string `schema:"orderBy" default:"postDate"`
	Direction string `schema:"direction" default:"desc"`
	UserID    string `schema:"userId"`
}

var sightingOrderFields = map[string]bool{
	repository.FieldPostDate: true,
	"sightingDate":           true,
	"title":                  true,
	"upvotes":                true,
	"commentCount":           true,
}

func (q ListQuery) order(allowed map[string]bool) (repository.Order, error) {
	if !allowed[q.OrderBy] {
		return repository.Order{}, models.NewValidationError("Unsupported orderBy: " + q.OrderBy)
	}
	dir := docstore.ParseDirection(q.Direction)
	if dir == "" {
		return repository.Order{}, models.NewValidationError("direction must be asc or desc")
	}
	return repository.Order{Field: q.OrderBy, Direction: dir}, nil
}

// SightingForm is the multipart form of a new sighting. Attachments come from
// the "media" file parts and from previously staged URIs.
type SightingForm struct {
	Title        string   `schema:"title"`
	Description  string   `schema:"description"`
	Latitude     float64  `schema:"latitude"`
	Longitude    float64  `schema:"longitude"`
	SightingDate string   `schema:"sightingDate"`
	Staged       []string `schema:"staged"`
}

type CommentRequest struct {
	Content         string  `json:"content"`
	ParentCommentID *string `json:"parentCommentId,omitempty"`
}

type SightingHandler struct {
	sightings *repository.SightingRepository
	comments  *repository.SightingCommentRepository
	staging   *media.Staging
	now       func() time.Time
	log       *logrus.Entry
}

func NewSightingHandler(sightings *repository.SightingRepository, comments *repository.SightingCommentRepository, staging *media.Staging) *SightingHandler {
	return &SightingHandler{
		sightings: sightings,
		comments:  comments,
		staging:   staging,
		now:       time.Now,
		log:       logger.For("handlers.sightings"),
	}
}

// List returns all sightings, newest first unless the query says otherwise.
// userId narrows the result to one author.
func (h *SightingHandler) List(w http.ResponseWriter, r *http.Request) {
	var q ListQuery
	if err := decodeValues(&q, r.URL.Query()); err != nil {
		writeError(w, h.log, err)
		return
	}
	order, err := q.order(sightingOrderFields)
	if err != nil {
		writeError(w, h.log, err)
		return
	}

	list, err := h.sightings.Find(r.Context(), order)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	if q.UserID != "" {
		own := make([]models.Sighting, 0)
		for _, s := range list {
			if s.UserID == q.UserID {
				own = append(own, s)
			}
		}
		list = own
	}
	writeData(w, http.StatusOK, "", list)
}

func (h *SightingHandler) Get(w http.ResponseWriter, r *http.Request) {
	s, err := h.sightings.FindOne(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeData(w, http.StatusOK, "", s)
}

// Create uploads every attachment and then stores the sighting once.
func (h *SightingHandler) Create(w http.ResponseWriter, r *http.Request) {
	id, _ := middleware.IdentityFrom(r.Context())

	if err := r.ParseMultipartForm(maxUploadMemory); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		writeError(w, h.log, models.NewValidationError("Failed to parse form: "+err.Error()))
		return
	}
	var form SightingForm
	if err := decodeValues(&form, r.PostForm); err != nil {
		writeError(w, h.log, err)
		return
	}
	if strings.TrimSpace(form.Title) == "" {
		writeError(w, h.log, models.NewValidationError("Title is required"))
		return
	}

	now := h.now().UTC()
	sighting := models.Sighting{
		UserID:   id.UserID,
		Username: id.Username,
		Title:    strings.TrimSpace(form.Title),
		PostDate: &now,
		Location: models.Location{Latitude: form.Latitude, Longitude: form.Longitude},
	}
	if form.Description != "" {
		sighting.Description = &form.Description
	}
	if form.SightingDate != "" {
		t, err := time.Parse(time.RFC3339, form.SightingDate)
		if err != nil {
			writeError(w, h.log, models.NewValidationError("sightingDate must be RFC 3339"))
			return
		}
		t = t.UTC()
		sighting.SightingDate = &t
	}

	var sources []media.Source
	if r.MultipartForm != nil {
		sources = media.FormFiles(r.MultipartForm.File["media"])
	}
	staged, err := h.staging.ResolveAll(form.Staged)
	if err != nil {
		writeError(w, h.log, models.NewValidationError(err.Error()))
		return
	}
	sources = append(sources, staged...)

	newID, err := h.sightings.UploadMediaAndSave(r.Context(), sources, sighting)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	for _, uri := range form.Staged {
		h.staging.Remove(uri)
	}
	h.log.WithFields(logrus.Fields{"sighting_id": newID, "attachments": len(sources)}).Info("sighting created")

	created, err := h.sightings.FindOne(r.Context(), newID)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeData(w, http.StatusCreated, "Sighting created", created)
}

// Update replaces the whole sighting. The owner fields cannot change.
func (h *SightingHandler) Update(w http.ResponseWriter, r *http.Request) {
	existing, ok := h.owned(w, r)
	if !ok {
		return
	}
	var body models.Sighting
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, h.log, err)
		return
	}
	body.ID = existing.ID
	body.UserID = existing.UserID
	body.Username = existing.Username
	if body.MediaURLs == nil {
		body.MediaURLs = []string{}
	}
	if err := h.sightings.Update(r.Context(), existing.ID, body); err != nil {
		writeError(w, h.log, err)
		return
	}
	writeData(w, http.StatusOK, "Sighting updated", body)
}

func (h *SightingHandler) Delete(w http.ResponseWriter, r *http.Request) {
	existing, ok := h.owned(w, r)
	if !ok {
		return
	}
	if err := h.sightings.Delete(r.Context(), existing.ID); err != nil {
		writeError(w, h.log, err)
		return
	}
	writeData(w, http.StatusOK, "Sighting deleted", nil)
}

// owned loads the sighting of the URL and checks that the caller wrote it.
func (h *SightingHandler) owned(w http.ResponseWriter, r *http.Request) (models.Sighting, bool) {
	id, _ := middleware.IdentityFrom(r.Context())
	s, err := h.sightings.FindOne(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.log, err)
		return models.Sighting{}, false
	}
	if s.UserID != id.UserID {
		writeError(w, h.log, models.NewForbiddenError("You can only change your own sightings"))
		return models.Sighting{}, false
	}
	return s, true
}

func (h *SightingHandler) ListComments(w http.ResponseWriter, r *http.Request) {
	list, err := h.comments.ListSightingComments(r.Context(), chi.URLParam(r, "id"),
		repository.Order{Field: repository.FieldTimestamp, Direction: docstore.Ascending})
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeData(w, http.StatusOK, "", list)
}

// CreateComment stores a comment and bumps the sighting's comment count.
func (h *SightingHandler) CreateComment(w http.ResponseWriter, r *http.Request) {
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

	sighting, err := h.sightings.FindOne(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	now := h.now().UTC()
	comment := models.SightingComment{
		UserID:          id.UserID,
		Username:        id.Username,
		ParentCommentID: req.ParentCommentID,
		Content:         content,
		Timestamp:       &now,
	}
	comment.ID, err = h.comments.PostComment(r.Context(), sighting.ID, comment)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	comment.SightingID = sighting.ID

	sighting.CommentCount++
	if err := h.sightings.Update(r.Context(), sighting.ID, sighting); err != nil {
		h.log.WithError(err).WithField("sighting_id", sighting.ID).Warn("failed to update comment count")
	}
	writeData(w, http.StatusCreated, "Comment posted", comment)
}

func (h *SightingHandler) DeleteComment(w http.ResponseWriter, r *http.Request) {
	id, _ := middleware.IdentityFrom(r.Context())
	sightingID, commentID := chi.URLParam(r, "id"), chi.URLParam(r, "commentId")

	comments, err := h.comments.ListSightingComments(r.Context(), sightingID, repository.Unordered)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	for _, c := range comments {
		if c.ID != commentID {
			continue
		}
		if c.UserID != id.UserID {
			writeError(w, h.log, models.NewForbiddenError("You can only delete your own comments"))
			return
		}
		if err := h.comments.DeleteComment(r.Context(), sightingID, commentID); err != nil {
			writeError(w, h.log, err)
			return
		}
		writeData(w, http.StatusOK, "Comment deleted", nil)
		return
	}
	writeError(w, h.log, models.NewNotFoundError("comment", commentID))
}
