package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"

	"github.com/creasty/defaults"
	"github.com/gorilla/schema"
	"github.com/sirupsen/logrus"

	"github.com/dronesight/dronesight-backend/internal/docstore"
	"github.com/dronesight/dronesight-backend/internal/models"
	"github.com/dronesight/dronesight-backend/internal/services"
)

// Response is the envelope of every successful JSON reply.
type Response struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeData(w http.ResponseWriter, status int, message string, data any) {
	writeJSON(w, status, Response{Success: true, Message: message, Data: data})
}

// writeError maps err onto a status code and writes the error envelope.
// Internal errors are logged and their details are not sent to the client.
func writeError(w http.ResponseWriter, log *logrus.Entry, err error) {
	status := statusFor(err)
	resp := models.ErrorResponse{Success: false, Message: err.Error(), Code: models.ErrorCode(err)}

	var appErr *models.AppError
	if errors.As(err, &appErr) {
		resp.Message = appErr.Message
	}
	if errors.Is(err, docstore.ErrNotFound) {
		resp.Code = models.CodeNotFound
		resp.Message = "Not found"
	}
	if status == http.StatusInternalServerError {
		log.WithError(err).Error("request failed")
		resp.Message = "Internal server error"
	}
	writeJSON(w, status, resp)
}

func statusFor(err error) int {
	if errors.Is(err, docstore.ErrNotFound) {
		return http.StatusNotFound
	}
	if errors.Is(err, services.ErrInvalidCredentials) || errors.Is(err, services.ErrNotSignedIn) {
		return http.StatusUnauthorized
	}
	switch models.ErrorCode(err) {
	case models.CodeValidation:
		return http.StatusBadRequest
	case models.CodeNotFound:
		return http.StatusNotFound
	case models.CodeUnauthorized:
		return http.StatusUnauthorized
	case models.CodeForbidden:
		return http.StatusForbidden
	case models.CodeConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// maxJSONBody bounds every JSON request body.
const maxJSONBody = 1 << 20

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return models.NewValidationError("Invalid request body")
	}
	return nil
}

var formDecoder = newFormDecoder()

func newFormDecoder() *schema.Decoder {
	d := schema.NewDecoder()
	d.IgnoreUnknownKeys(true)
	return d
}

// decodeValues applies the struct's `default` tags and then the given form or
// query values.
func decodeValues(dst any, values url.Values) error {
	if err := defaults.Set(dst); err != nil {
		return models.NewInternalError(err)
	}
	if err := formDecoder.Decode(dst, values); err != nil {
		return models.NewValidationError("Invalid parameters: " + err.Error())
	}
	return nil
}
