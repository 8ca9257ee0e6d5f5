package draft

import (
	"context"

	"github.com/debemdeboas/archive-studio/internal/model"
)

// PostsClient is the part of the API client a SiteStore needs.
type PostsClient interface {
	CreatePost(ctx context.Context, site model.SiteID, p model.PostPayload) (*model.Post, error)
	UpdatePost(ctx context.Context, site model.SiteID, id model.PostID, p model.PostPayload) (*model.Post, error)
}

// SiteStore saves posts of one site through the API.
type SiteStore struct {
	Client PostsClient
	Site   model.SiteID
}

func (s SiteStore) Create(ctx context.Context, p model.PostPayload) (model.PostID, error) {
	post, err := s.Client.CreatePost(ctx, s.Site, p)
	if err != nil {
		return "", err
	}
	return post.ID, nil
}

func (s SiteStore) Update(ctx context.Context, id model.PostID, p model.PostPayload) error {
	_, err := s.Client.UpdatePost(ctx, s.Site, id, p)
	return err
}
