// Package model defines the platform records the studio reads and edits.
package model

import (
	"bytes"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/debemdeboas/archive-studio/internal/config"
	"github.com/debemdeboas/archive-studio/internal/util"
)

type PostID string

type UserID string

type PostStatus string

const (
	StatusDraft     PostStatus = "draft"
	StatusPublished PostStatus = "published"
	StatusScheduled PostStatus = "scheduled"
	StatusArchived  PostStatus = "archived"
)

// Post is a post record as returned by the platform API.
type Post struct {
	ID     PostID `json:"id"`
	SiteID SiteID `json:"site_id"`

	Title         string     `json:"title"`
	Slug          string     `json:"slug"`
	Excerpt       string     `json:"excerpt,omitempty"`
	Content       string     `json:"content"`
	Status        PostStatus `json:"status"`
	CategoryID    CategoryID `json:"category_id,omitempty"`
	CoverImageURL string     `json:"cover_image_url,omitempty"`
	Tags          []string   `json:"tags,omitempty"`

	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	PublishedAt *time.Time `json:"published_at,omitempty"`

	Owner UserID `json:"author_id,omitempty"`

	// Front matter of the local source file, when the post was loaded from disk.
	Info *util.ExtendedTitleData `json:"-"`
}

// GetTitle prefers the front matter title and prepends the series marker.
func (p *Post) GetTitle() string {
	if p.Info != nil && p.Info.TitleData != nil && p.Info.Title != "" {
		var s strings.Builder

		if p.Info.SeriesInfo.Name != "" && p.Info.SeriesInfo.Value != "" {
			s.WriteString("[")
			s.WriteString(p.Info.SeriesInfo.Name)
			s.WriteString("-")
			s.WriteString(p.Info.SeriesInfo.Value)
			s.WriteString("] ")
		}

		s.WriteString(p.Info.Title)

		return s.String()
	}
	return p.Title
}

// Payload returns the editable fields of the post.
func (p *Post) Payload() PostPayload {
	return PostPayload{
		Title:         p.Title,
		Slug:          p.Slug,
		Excerpt:       p.Excerpt,
		Content:       p.Content,
		CategoryID:    p.CategoryID,
		CoverImageURL: p.CoverImageURL,
		Tags:          p.Tags,
	}
}

// PostPayload is the full set of editable fields sent on create and update.
type PostPayload struct {
	Title         string     `json:"title"`
	Slug          string     `json:"slug"`
	Excerpt       string     `json:"excerpt,omitempty"`
	Content       string     `json:"content"`
	CategoryID    CategoryID `json:"category_id,omitempty"`
	CoverImageURL string     `json:"cover_image_url,omitempty"`
	Tags          []string   `json:"tags,omitempty"`
	Status        PostStatus `json:"status,omitempty"`
}

// PayloadFromMarkdown builds a payload from a post source file. Front matter
// fields win; the title falls back to fallbackTitle.
func PayloadFromMarkdown(md []byte, fallbackTitle string) PostPayload {
	info, body := util.SplitFrontMatter(md)

	payload := PostPayload{
		Title:   fallbackTitle,
		Content: string(body),
	}
	if info == nil {
		return payload
	}

	if info.Title != "" {
		payload.Title = info.Title
	}
	payload.Slug = info.Slug
	payload.Excerpt = info.Excerpt
	payload.CategoryID = CategoryID(info.Category)
	payload.CoverImageURL = info.Cover
	payload.Tags = info.Tags
	payload.Status = PostStatus(info.Status)

	return payload
}

type frontMatter struct {
	Title    string   `toml:"title"`
	Slug     string   `toml:"slug,omitempty"`
	Excerpt  string   `toml:"excerpt,omitempty"`
	Category string   `toml:"category,omitempty"`
	Cover    string   `toml:"cover,omitempty"`
	Tags     []string `toml:"tags,omitempty"`
	Status   string   `toml:"status,omitempty"`
}

// Markdown renders p as a post source file that PayloadFromMarkdown reads back.
func (p PostPayload) Markdown() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(config.FrontMatterDelimiter + "\n")
	err := toml.NewEncoder(&buf).Encode(frontMatter{
		Title:    p.Title,
		Slug:     p.Slug,
		Excerpt:  p.Excerpt,
		Category: string(p.CategoryID),
		Cover:    p.CoverImageURL,
		Tags:     p.Tags,
		Status:   string(p.Status),
	})
	if err != nil {
		return nil, err
	}
	buf.WriteString(config.FrontMatterDelimiter + "\n\n")
	buf.WriteString(p.Content)
	return buf.Bytes(), nil
}
