package api

import (
	"context"
	"net/http"
	"net/url"

	"github.com/debemdeboas/archive-studio/internal/model"
)

func (c *Client) ListSites(ctx context.Context) ([]model.Site, error) {
	var sites []model.Site
	if err := c.do(ctx, http.MethodGet, "/sites", nil, &sites); err != nil {
		return nil, err
	}
	return sites, nil
}

func (c *Client) ListCategories(ctx context.Context, site model.SiteID) ([]model.Category, error) {
	var categories []model.Category
	if err := c.do(ctx, http.MethodGet, "/sites/"+url.PathEscape(string(site))+"/categories", nil, &categories); err != nil {
		return nil, err
	}
	return categories, nil
}

type revalidateRequest struct {
	SiteID model.SiteID `json:"site_id"`
	PostID model.PostID `json:"post_id,omitempty"`
}

// Revalidate asks the platform to drop cached pages of a site, or of one post
// when id is set. It is best effort: a failure is logged and the write that
// triggered it still counts as successful.
func (c *Client) Revalidate(ctx context.Context, site model.SiteID, id model.PostID) {
	err := c.do(ctx, http.MethodPost, "/revalidate", revalidateRequest{SiteID: site, PostID: id}, nil)
	if err != nil {
		apiLogger.Warn().Err(err).Str("site", string(site)).Str("post", string(id)).Msg("Cache revalidation failed")
	}
}

// TrackCTAClick reports a call-to-action click.
func (c *Client) TrackCTAClick(ctx context.Context, site model.SiteID, click model.CTAClick) error {
	path := "/sites/" + url.PathEscape(string(site)) + "/cta/" + url.PathEscape(click.CTAID) + "/click"
	return c.do(ctx, http.MethodPost, path, click, nil)
}
