package api

import (
	"context"
	"net/http"

	"github.com/debemdeboas/archive-studio/internal/upload"
)

// Client is an upload backend: the platform presigns and commits objects.
var _ upload.Backend = (*Client)(nil)

func (c *Client) Presign(ctx context.Context, in upload.PresignInput) (*upload.Target, error) {
	var target upload.Target
	if err := c.do(ctx, http.MethodPost, "/uploads/presign", in, &target); err != nil {
		return nil, err
	}
	return &target, nil
}

type completeResponse struct {
	PublicURL string `json:"public_url"`
}

func (c *Client) Complete(ctx context.Context, in upload.CompleteInput) (string, error) {
	var res completeResponse
	if err := c.do(ctx, http.MethodPost, "/uploads/complete", in, &res); err != nil {
		return "", err
	}
	return res.PublicURL, nil
}

func (c *Client) Abort(ctx context.Context, key string) error {
	return c.do(ctx, http.MethodPost, "/uploads/abort", map[string]string{"key": key}, nil)
}
