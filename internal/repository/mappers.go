package repository

import (
	"time"

	"github.com/dronesight/dronesight-backend/internal/docstore"
	"github.com/dronesight/dronesight-backend/internal/models"
)

// Stored field names shared by several collections.
const (
	FieldPostDate  = "postDate"
	FieldTimestamp = "timestamp"
)

// UserMapper maps documents of the users collection.
type UserMapper struct{}

func (UserMapper) FromDocument(doc docstore.Document) (models.User, bool) {
	if doc.ID == "" {
		return models.User{}, false
	}
	r := doc.Reader()
	u := models.User{
		ID:                 doc.ID,
		Username:           r.String("username"),
		Email:              r.String("email"),
		ProfileImageURL:    r.OptString("profileImageUrl"),
		ProfileDescription: r.OptString("profileDescription"),
		ReportedSightings:  r.StringSlice("reportedSightings"),
		Comments:           r.StringSlice("comments"),
	}
	return u, r.Err() == nil
}

func (UserMapper) ToDocument(u models.User) map[string]any {
	doc := map[string]any{
		"username":          u.Username,
		"email":             u.Email,
		"reportedSightings": stringList(u.ReportedSightings),
		"comments":          stringList(u.Comments),
	}
	putOptString(doc, "profileImageUrl", u.ProfileImageURL)
	putOptString(doc, "profileDescription", u.ProfileDescription)
	return doc
}

// SightingMapper maps documents of the sightings collection. A missing location
// reads as the zero location.
type SightingMapper struct{}

func (SightingMapper) FromDocument(doc docstore.Document) (models.Sighting, bool) {
	if doc.ID == "" {
		return models.Sighting{}, false
	}
	r := doc.Reader()
	s := models.Sighting{
		ID:           doc.ID,
		UserID:       r.String("userId"),
		Username:     r.String("username"),
		Title:        r.String("title"),
		PostDate:     r.OptTime(FieldPostDate),
		SightingDate: r.OptTime("sightingDate"),
		MediaURLs:    r.StringSlice("mediaUrls"),
		Description:  r.OptString("description"),
		CommentCount: r.Int("commentCount"),
		Upvotes:      r.Int("upvotes"),
		Downvotes:    r.Int("downvotes"),
	}
	if gp := r.OptGeoPoint("location"); gp != nil {
		s.Location = models.Location{Latitude: gp.Latitude, Longitude: gp.Longitude}
	}
	return s, r.Err() == nil
}

func (SightingMapper) ToDocument(s models.Sighting) map[string]any {
	doc := map[string]any{
		"userId":       s.UserID,
		"username":     s.Username,
		"title":        s.Title,
		"location":     docstore.GeoPoint{Latitude: s.Location.Latitude, Longitude: s.Location.Longitude},
		"mediaUrls":    stringList(s.MediaURLs),
		"commentCount": int64(s.CommentCount),
		"upvotes":      int64(s.Upvotes),
		"downvotes":    int64(s.Downvotes),
	}
	putOptTime(doc, FieldPostDate, s.PostDate)
	putOptTime(doc, "sightingDate", s.SightingDate)
	putOptString(doc, "description", s.Description)
	return doc
}

// SightingCommentMapper maps documents of a sightingComments subcollection.
type SightingCommentMapper struct{}

func (SightingCommentMapper) FromDocument(doc docstore.Document) (models.SightingComment, bool) {
	if doc.ID == "" {
		return models.SightingComment{}, false
	}
	r := doc.Reader()
	c := models.SightingComment{
		ID:              doc.ID,
		UserID:          r.String("userId"),
		Username:        r.String("username"),
		SightingID:      r.String("sightingId"),
		ParentCommentID: r.OptString("parentCommentId"),
		Content:         r.String("content"),
		Timestamp:       r.OptTime(FieldTimestamp),
		Upvotes:         r.Int("upvotes"),
		Downvotes:       r.Int("downvotes"),
	}
	return c, r.Err() == nil
}

func (SightingCommentMapper) ToDocument(c models.SightingComment) map[string]any {
	doc := map[string]any{
		"userId":     c.UserID,
		"username":   c.Username,
		"sightingId": c.SightingID,
		"content":    c.Content,
		"upvotes":    int64(c.Upvotes),
		"downvotes":  int64(c.Downvotes),
	}
	putOptString(doc, "parentCommentId", c.ParentCommentID)
	putOptTime(doc, FieldTimestamp, c.Timestamp)
	return doc
}

// DiscussionMapper maps documents of the discussions collection.
type DiscussionMapper struct{}

func (DiscussionMapper) FromDocument(doc docstore.Document) (models.Discussion, bool) {
	if doc.ID == "" {
		return models.Discussion{}, false
	}
	r := doc.Reader()
	d := models.Discussion{
		ID:           doc.ID,
		UserID:       r.String("userId"),
		Username:     r.String("username"),
		Title:        r.String("title"),
		PostDate:     r.OptTime(FieldPostDate),
		Description:  r.OptString("description"),
		CommentCount: r.Int("commentCount"),
	}
	return d, r.Err() == nil
}

func (DiscussionMapper) ToDocument(d models.Discussion) map[string]any {
	doc := map[string]any{
		"userId":       d.UserID,
		"username":     d.Username,
		"title":        d.Title,
		"commentCount": int64(d.CommentCount),
	}
	putOptTime(doc, FieldPostDate, d.PostDate)
	putOptString(doc, "description", d.Description)
	return doc
}

// DiscussionCommentMapper maps documents of a discussionComments subcollection.
type DiscussionCommentMapper struct{}

func (DiscussionCommentMapper) FromDocument(doc docstore.Document) (models.DiscussionComment, bool) {
	if doc.ID == "" {
		return models.DiscussionComment{}, false
	}
	r := doc.Reader()
	c := models.DiscussionComment{
		ID:              doc.ID,
		UserID:          r.String("userId"),
		Username:        r.String("username"),
		DiscussionID:    r.String("discussionId"),
		ParentCommentID: r.OptString("parentCommentId"),
		Content:         r.String("content"),
		Timestamp:       r.OptTime(FieldTimestamp),
		Upvotes:         r.Int("upvotes"),
		Downvotes:       r.Int("downvotes"),
	}
	return c, r.Err() == nil
}

func (DiscussionCommentMapper) ToDocument(c models.DiscussionComment) map[string]any {
	doc := map[string]any{
		"userId":       c.UserID,
		"username":     c.Username,
		"discussionId": c.DiscussionID,
		"content":      c.Content,
		"upvotes":      int64(c.Upvotes),
		"downvotes":    int64(c.Downvotes),
	}
	putOptString(doc, "parentCommentId", c.ParentCommentID)
	putOptTime(doc, FieldTimestamp, c.Timestamp)
	return doc
}

func stringList(in []string) []any {
	out := make([]any, len(in))
	for i, s := range in {
		out[i] = s
	}
	return out
}

func putOptString(doc map[string]any, key string, v *string) {
	if v != nil {
		doc[key] = *v
	}
}

func putOptTime(doc map[string]any, key string, v *time.Time) {
	if v != nil {
		doc[key] = v.UTC()
	}
}
