package handlers

import (
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/dronesight/dronesight-backend/internal/logger"
	"github.com/dronesight/dronesight-backend/internal/media"
	"github.com/dronesight/dronesight-backend/internal/models"
)

// maxUploadMemory is the part of a multipart body kept in memory; the rest
// spills to temporary files.
const maxUploadMemory = 32 << 20

type UploadResponse struct {
	Success bool     `json:"success"`
	Message string   `json:"message"`
	URL     string   `json:"url,omitempty"`
	URIs    []string `json:"uris,omitempty"`
}

// MediaHandler uploads single files to object storage and stages attachments
// for screen sessions.
type MediaHandler struct {
	store   media.ObjectStore
	seq     *media.Sequencer
	staging *media.Staging
	log     *logrus.Entry
}

func NewMediaHandler(store media.ObjectStore, seq *media.Sequencer, staging *media.Staging) *MediaHandler {
	return &MediaHandler{store: store, seq: seq, staging: staging, log: logger.For("handlers.media")}
}

// UploadFile handles file uploads to object storage
func (h *MediaHandler) UploadFile(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		writeError(w, h.log, models.NewValidationError("Failed to parse form: "+err.Error()))
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, h.log, models.NewValidationError("No file provided"))
		return
	}
	defer file.Close()

	url, err := h.store.Upload(r.Context(), h.seq.Key(time.Now(), header.Filename), file)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, UploadResponse{
		Success: true,
		Message: "File uploaded successfully",
		URL:     url,
	})
}

// Stage keeps every "file" part on the server and returns one staged URI per
// file, in order. Screen sessions attach them with HandleMediaResult.
func (h *MediaHandler) Stage(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		writeError(w, h.log, models.NewValidationError("Failed to parse form: "+err.Error()))
		return
	}
	headers := r.MultipartForm.File["file"]
	if len(headers) == 0 {
		writeError(w, h.log, models.NewValidationError("No file provided"))
		return
	}

	uris := make([]string, 0, len(headers))
	for _, src := range media.FormFiles(headers) {
		uri, err := h.stage(src)
		if err != nil {
			for _, u := range uris {
				h.staging.Remove(u)
			}
			writeError(w, h.log, err)
			return
		}
		uris = append(uris, uri)
	}
	writeJSON(w, http.StatusCreated, UploadResponse{
		Success: true,
		Message: "Files staged",
		URIs:    uris,
	})
}

func (h *MediaHandler) stage(src media.Source) (string, error) {
	rc, err := src.Open()
	if err != nil {
		return "", err
	}
	defer rc.Close()
	return h.staging.Put(src.Name(), rc)
}
