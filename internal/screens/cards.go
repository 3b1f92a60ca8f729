package screens

import (
	"fmt"
	"time"

	"github.com/dronesight/dronesight-backend/internal/models"
)

// SightingCard is the list and detail presentation of a sighting.
type SightingCard struct {
	SightingID   string          `json:"sightingId"`
	UserID       string          `json:"userId"`
	Username     string          `json:"username"`
	Title        string          `json:"title"`
	Location     models.Location `json:"location"`
	PostDate     *time.Time      `json:"postDate,omitempty"`
	SightingDate *time.Time      `json:"sightingDate,omitempty"`
	Posted       string          `json:"posted"`
	Description  *string         `json:"description,omitempty"`
	MediaURLs    []string        `json:"mediaUrls"`
	CommentCount int             `json:"commentCount"`
	Upvotes      int             `json:"upvotes"`
	Downvotes    int             `json:"downvotes"`
}

func toSightingCard(s models.Sighting, now time.Time) SightingCard {
	return SightingCard{
		SightingID:   s.ID,
		UserID:       s.UserID,
		Username:     s.Username,
		Title:        s.Title,
		Location:     s.Location,
		PostDate:     s.PostDate,
		SightingDate: s.SightingDate,
		Posted:       RelativeTime(s.PostDate, now),
		Description:  s.Description,
		MediaURLs:    s.MediaURLs,
		CommentCount: s.CommentCount,
		Upvotes:      s.Upvotes,
		Downvotes:    s.Downvotes,
	}
}

// CommentCard is the presentation of a sighting or discussion comment.
type CommentCard struct {
	CommentID       string     `json:"commentId"`
	UserID          string     `json:"userId"`
	User            string     `json:"user"`
	Text            string     `json:"text"`
	Timestamp       *time.Time `json:"timestamp,omitempty"`
	Posted          string     `json:"posted"`
	ParentID        string     `json:"parentId"`
	ParentCommentID string     `json:"parentCommentId"`
	Upvotes         int        `json:"upvotes"`
	Downvotes       int        `json:"downvotes"`
}

func sightingCommentCard(c models.SightingComment, now time.Time) CommentCard {
	return CommentCard{
		CommentID:       c.ID,
		UserID:          c.UserID,
		User:            c.Username,
		Text:            c.Content,
		Timestamp:       c.Timestamp,
		Posted:          RelativeTime(c.Timestamp, now),
		ParentID:        c.SightingID,
		ParentCommentID: deref(c.ParentCommentID),
		Upvotes:         c.Upvotes,
		Downvotes:       c.Downvotes,
	}
}

func discussionCommentCard(c models.DiscussionComment, now time.Time) CommentCard {
	return CommentCard{
		CommentID:       c.ID,
		UserID:          c.UserID,
		User:            c.Username,
		Text:            c.Content,
		Timestamp:       c.Timestamp,
		Posted:          RelativeTime(c.Timestamp, now),
		ParentID:        c.DiscussionID,
		ParentCommentID: deref(c.ParentCommentID),
		Upvotes:         c.Upvotes,
		Downvotes:       c.Downvotes,
	}
}

// RelativeTime renders how long ago t was: "5 minutes ago", "1 hour ago",
// "3 days ago". A missing time renders as "Unknown time".
func RelativeTime(t *time.Time, now time.Time) string {
	if t == nil {
		return "Unknown time"
	}
	d := now.Sub(*t)
	minutes := int64(d / time.Minute)
	hours := int64(d / time.Hour)
	days := hours / 24

	switch {
	case minutes < 60:
		if minutes == 1 {
			return "1 minute ago"
		}
		return fmt.Sprintf("%d minutes ago", minutes)
	case minutes < 120:
		return "1 hour ago"
	case hours < 24:
		return fmt.Sprintf("%d hours ago", hours)
	case hours < 48:
		return "1 day ago"
	default:
		return fmt.Sprintf("%d days ago", days)
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func ptr[T any](v T) *T {
	return &v
}
