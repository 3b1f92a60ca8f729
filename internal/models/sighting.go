package models

import "time"

type Location struct {
	Latitude  float64 `json:"latitude" schema:"latitude"`
	Longitude float64 `json:"longitude" schema:"longitude"`
}

// Sighting is a user-submitted report with media, a location and vote counters.
type Sighting struct {
	ID           string     `json:"id"`
	UserID       string     `json:"userId"`
	Username     string     `json:"username"`
	Title        string     `json:"title"`
	PostDate     *time.Time `json:"postDate,omitempty"`
	SightingDate *time.Time `json:"sightingDate,omitempty"`
	Location     Location   `json:"location"`
	MediaURLs    []string   `json:"mediaUrls"`
	Description  *string    `json:"description,omitempty"`
	CommentCount int        `json:"commentCount"`
	Upvotes      int        `json:"upvotes"`
	Downvotes    int        `json:"downvotes"`
}

// SightingComment lives in the sightingComments subcollection of its sighting.
// ParentCommentID is set for replies.
type SightingComment struct {
	ID              string     `json:"id"`
	UserID          string     `json:"userId"`
	Username        string     `json:"username"`
	SightingID      string     `json:"sightingId"`
	ParentCommentID *string    `json:"parentCommentId,omitempty"`
	Content         string     `json:"content"`
	Timestamp       *time.Time `json:"timestamp,omitempty"`
	Upvotes         int        `json:"upvotes"`
	Downvotes       int        `json:"downvotes"`
}
