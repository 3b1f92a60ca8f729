package repository

import (
	"context"

	"github.com/dronesight/dronesight-backend/internal/docstore"
	"github.com/dronesight/dronesight-backend/internal/media"
	"github.com/dronesight/dronesight-backend/internal/models"
)

const (
	UsersCollection              = "users"
	SightingsCollection          = "sightings"
	SightingCommentsCollection   = "sightingComments"
	DiscussionsCollection        = "discussions"
	DiscussionCommentsCollection = "discussionComments"
)

type UserRepository struct {
	*Repository[models.User]
}

func NewUserRepository(store docstore.Store) *UserRepository {
	return &UserRepository{New[models.User](store, UsersCollection, UserMapper{})}
}

type SightingRepository struct {
	*Repository[models.Sighting]
	seq *media.Sequencer
}

func NewSightingRepository(store docstore.Store, seq *media.Sequencer) *SightingRepository {
	return &SightingRepository{
		Repository: New[models.Sighting](store, SightingsCollection, SightingMapper{}),
		seq:        seq,
	}
}

// UploadMediaAndSave uploads every source and then writes sighting once with
// mediaUrls set to the uploaded URLs. Nothing is written when an upload fails.
// The sighting's ID is used as the document ID; an empty ID is assigned by the store.
func (r *SightingRepository) UploadMediaAndSave(ctx context.Context, sources []media.Source, sighting models.Sighting) (string, error) {
	var id string
	err := r.seq.UploadAndSave(ctx, sources, func(ctx context.Context, urls []string) error {
		sighting.MediaURLs = urls
		if sighting.MediaURLs == nil {
			sighting.MediaURLs = []string{}
		}
		newID, err := r.Post(ctx, sighting, sighting.ID)
		id = newID
		return err
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

// SightingCommentRepository reads and writes the sightingComments subcollection
// of each sighting.
type SightingCommentRepository struct {
	*Repository[models.SightingComment]
}

func NewSightingCommentRepository(store docstore.Store) *SightingCommentRepository {
	return &SightingCommentRepository{New[models.SightingComment](store, SightingsCollection, SightingCommentMapper{})}
}

func (r *SightingCommentRepository) GetSightingComments(ctx context.Context, sightingID string, order Order) (*Subscription[[]models.SightingComment], error) {
	return r.GetSubCollection(ctx, sightingID, SightingCommentsCollection, order)
}

func (r *SightingCommentRepository) ListSightingComments(ctx context.Context, sightingID string, order Order) ([]models.SightingComment, error) {
	return r.FindInSubCollection(ctx, sightingID, SightingCommentsCollection, order)
}

// PostComment stores c under sightingID and returns the new comment ID.
func (r *SightingCommentRepository) PostComment(ctx context.Context, sightingID string, c models.SightingComment) (string, error) {
	c.SightingID = sightingID
	return r.PostToSubCollection(ctx, sightingID, SightingCommentsCollection, c, c.ID)
}

func (r *SightingCommentRepository) UpdateComment(ctx context.Context, sightingID string, c models.SightingComment) error {
	return r.UpdateInSubCollection(ctx, sightingID, SightingCommentsCollection, c.ID, c)
}

func (r *SightingCommentRepository) DeleteComment(ctx context.Context, sightingID, commentID string) error {
	return r.DeleteFromSubCollection(ctx, sightingID, SightingCommentsCollection, commentID)
}

type DiscussionRepository struct {
	*Repository[models.Discussion]
}

func NewDiscussionRepository(store docstore.Store) *DiscussionRepository {
	return &DiscussionRepository{New[models.Discussion](store, DiscussionsCollection, DiscussionMapper{})}
}

// DiscussionCommentRepository reads and writes the discussionComments
// subcollection of each discussion.
type DiscussionCommentRepository struct {
	*Repository[models.DiscussionComment]
}

func NewDiscussionCommentRepository(store docstore.Store) *DiscussionCommentRepository {
	return &DiscussionCommentRepository{New[models.DiscussionComment](store, DiscussionsCollection, DiscussionCommentMapper{})}
}

func (r *DiscussionCommentRepository) GetDiscussionComments(ctx context.Context, discussionID string, order Order) (*Subscription[[]models.DiscussionComment], error) {
	return r.GetSubCollection(ctx, discussionID, DiscussionCommentsCollection, order)
}

func (r *DiscussionCommentRepository) ListDiscussionComments(ctx context.Context, discussionID string, order Order) ([]models.DiscussionComment, error) {
	return r.FindInSubCollection(ctx, discussionID, DiscussionCommentsCollection, order)
}

func (r *DiscussionCommentRepository) PostComment(ctx context.Context, discussionID string, c models.DiscussionComment) (string, error) {
	c.DiscussionID = discussionID
	return r.PostToSubCollection(ctx, discussionID, DiscussionCommentsCollection, c, c.ID)
}

func (r *DiscussionCommentRepository) DeleteComment(ctx context.Context, discussionID, commentID string) error {
	return r.DeleteFromSubCollection(ctx, discussionID, DiscussionCommentsCollection, commentID)
}
