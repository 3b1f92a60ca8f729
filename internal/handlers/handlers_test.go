package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dronesight/dronesight-backend/internal/docstore"
	"github.com/dronesight/dronesight-backend/internal/logger"
	"github.com/dronesight/dronesight-backend/internal/models"
	"github.com/dronesight/dronesight-backend/internal/repository"
)

func TestWriteError_StatusAndMessage(t *testing.T) {
	t.Parallel()
	log := logger.For("test")
	cases := []struct {
		err     error
		status  int
		code    string
		message string
	}{
		{models.NewValidationError("Title is required"), http.StatusBadRequest, models.CodeValidation, "Title is required"},
		{models.NewForbiddenError("nope"), http.StatusForbidden, models.CodeForbidden, "nope"},
		{fmt.Errorf("get sightings/x: %w", docstore.ErrNotFound), http.StatusNotFound, models.CodeNotFound, "Not found"},
		{errors.New("dial tcp: refused"), http.StatusInternalServerError, models.CodeInternal, "Internal server error"},
	}
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		writeError(rec, log, tc.err)

		assert.Equal(t, tc.status, rec.Code, tc.err.Error())
		var resp models.ErrorResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.False(t, resp.Success)
		assert.Equal(t, tc.code, resp.Code)
		assert.Equal(t, tc.message, resp.Message)
	}
}

func TestListQuery_Defaults(t *testing.T) {
	t.Parallel()
	var q ListQuery
	require.NoError(t, decodeValues(&q, url.Values{"userId": {"u1"}, "extra": {"x"}}))
	assert.Equal(t, "postDate", q.OrderBy)
	assert.Equal(t, "desc", q.Direction)
	assert.Equal(t, "u1", q.UserID)

	order, err := q.order(sightingOrderFields)
	require.NoError(t, err)
	assert.Equal(t, repository.Order{Field: "postDate", Direction: docstore.Descending}, order)
}

func TestListQuery_Rejects(t *testing.T) {
	t.Parallel()
	_, err := ListQuery{OrderBy: "email", Direction: "asc"}.order(sightingOrderFields)
	assert.Equal(t, models.CodeValidation, models.ErrorCode(err))

	_, err = ListQuery{OrderBy: "title", Direction: "sideways"}.order(discussionOrderFields)
	assert.Equal(t, models.CodeValidation, models.ErrorCode(err))
}

func TestSightingForm_DecodesStaged(t *testing.T) {
	t.Parallel()
	var f SightingForm
	require.NoError(t, decodeValues(&f, url.Values{
		"title":    {"Orb"},
		"latitude": {"10.5"},
		"staged":   {"staged://a/x.jpg", "staged://b/y.mp4"},
	}))
	assert.Equal(t, "Orb", f.Title)
	assert.Equal(t, 10.5, f.Latitude)
	assert.Equal(t, []string{"staged://a/x.jpg", "staged://b/y.mp4"}, f.Staged)

	err := decodeValues(&f, url.Values{"latitude": {"north"}})
	assert.Equal(t, models.CodeValidation, models.ErrorCode(err))
}
