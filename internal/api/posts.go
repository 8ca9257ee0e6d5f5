package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/debemdeboas/archive-studio/internal/model"
)

func postsPath(site model.SiteID) string {
	return fmt.Sprintf("/sites/%s/posts", url.PathEscape(string(site)))
}

func postPath(site model.SiteID, id model.PostID) string {
	return postsPath(site) + "/" + url.PathEscape(string(id))
}

type ListPostsInput struct {
	Status model.PostStatus
	Page   int
	Limit  int
}

func (c *Client) ListPosts(ctx context.Context, site model.SiteID, in ListPostsInput) ([]model.Post, error) {
	q := url.Values{}
	if in.Status != "" {
		q.Set("status", string(in.Status))
	}
	if in.Page > 0 {
		q.Set("page", fmt.Sprint(in.Page))
	}
	if in.Limit > 0 {
		q.Set("limit", fmt.Sprint(in.Limit))
	}

	path := postsPath(site)
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var posts []model.Post
	if err := c.do(ctx, http.MethodGet, path, nil, &posts); err != nil {
		return nil, err
	}
	return posts, nil
}

func (c *Client) GetPost(ctx context.Context, site model.SiteID, id model.PostID) (*model.Post, error) {
	var post model.Post
	if err := c.do(ctx, http.MethodGet, postPath(site, id), nil, &post); err != nil {
		return nil, err
	}
	return &post, nil
}

func (c *Client) CreatePost(ctx context.Context, site model.SiteID, p model.PostPayload) (*model.Post, error) {
	var post model.Post
	if err := c.do(ctx, http.MethodPost, postsPath(site), p, &post); err != nil {
		return nil, err
	}
	if post.Status == model.StatusPublished {
		c.Revalidate(ctx, site, post.ID)
	}
	return &post, nil
}

// UpdatePost replaces the editable fields of a post. The whole payload is sent
// on every save.
func (c *Client) UpdatePost(ctx context.Context, site model.SiteID, id model.PostID, p model.PostPayload) (*model.Post, error) {
	var post model.Post
	if err := c.do(ctx, http.MethodPatch, postPath(site, id), p, &post); err != nil {
		return nil, err
	}
	if post.Status == model.StatusPublished {
		c.Revalidate(ctx, site, id)
	}
	return &post, nil
}

type statusRequest struct {
	Status model.PostStatus `json:"status"`
}

// SetPostStatus publishes, unpublishes or archives a post and invalidates the
// site's cached pages.
func (c *Client) SetPostStatus(ctx context.Context, site model.SiteID, id model.PostID, status model.PostStatus) (*model.Post, error) {
	var post model.Post
	if err := c.do(ctx, http.MethodPost, postPath(site, id)+"/status", statusRequest{Status: status}, &post); err != nil {
		return nil, err
	}
	c.Revalidate(ctx, site, id)
	return &post, nil
}

func (c *Client) DeletePost(ctx context.Context, site model.SiteID, id model.PostID) error {
	if err := c.do(ctx, http.MethodDelete, postPath(site, id), nil, nil); err != nil {
		return err
	}
	c.Revalidate(ctx, site, id)
	return nil
}
