package models

import "time"

type Discussion struct {
	ID           string     `json:"id"`
	UserID       string     `json:"userId"`
	Username     string     `json:"username"`
	Title        string     `json:"title"`
	PostDate     *time.Time `json:"postDate,omitempty"`
	Description  *string    `json:"description,omitempty"`
	CommentCount int        `json:"commentCount"`
}

// DiscussionComment lives in the discussionComments subcollection of its discussion.
type DiscussionComment struct {
	ID              string     `json:"id"`
	UserID          string     `json:"userId"`
	Username        string     `json:"username"`
	DiscussionID    string     `json:"discussionId"`
	ParentCommentID *string    `json:"parentCommentId,omitempty"`
	Content         string     `json:"content"`
	Timestamp       *time.Time `json:"timestamp,omitempty"`
	Upvotes         int        `json:"upvotes"`
	Downvotes       int        `json:"downvotes"`
}
