package model

type SiteID string

type CategoryID string

// Site is one tenant of the platform.
type Site struct {
	ID           SiteID `json:"id"`
	Name         string `json:"name"`
	Subdomain    string `json:"subdomain"`
	CustomDomain string `json:"custom_domain,omitempty"`
}

type Category struct {
	ID   CategoryID `json:"id"`
	Name string     `json:"name"`
	Slug string     `json:"slug"`
}

// CTAClick is a call-to-action interaction reported for analytics.
type CTAClick struct {
	CTAID    string `json:"cta_id"`
	PostID   PostID `json:"post_id,omitempty"`
	Referrer string `json:"referrer,omitempty"`
}
