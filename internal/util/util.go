// Package util provides content hashing and front matter parsing for post sources.
package util

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/BurntSushi/toml"
	"github.com/gomarkdown/markdown"
	"github.com/mmarkdown/mmark/v2/mast"

	"github.com/debemdeboas/archive-studio/internal/config"
)

// ExtendedTitleData is the mmark title block plus the post fields the platform
// understands. Unknown keys are ignored.
type ExtendedTitleData struct {
	*mast.TitleData
	Slug     string   `toml:"slug"`
	Excerpt  string   `toml:"excerpt"`
	Category string   `toml:"category"`
	Cover    string   `toml:"cover"`
	Tags     []string `toml:"tags"`
	Status   string   `toml:"status"`

	Consumed int `toml:"-"`
}

func ContentHash(content []byte) string {
	hash := sha256.Sum256(content)
	return hex.EncodeToString(hash[:])
}

func ContentHashString(content string) string {
	return ContentHash([]byte(content))
}

// GetFrontMatter parses a leading %%% delimited TOML block. Consumed is the
// offset of the body in the normalized, left-trimmed document.
func GetFrontMatter(md []byte) (*ExtendedTitleData, error) {
	md = normalize(md)

	delimiter := []byte(config.FrontMatterDelimiter)

	if len(md) < 2*len(delimiter) {
		return nil, fmt.Errorf("invalid front matter format")
	}

	first := bytes.Index(md[:len(delimiter)+1], delimiter)
	if first == -1 {
		return nil, fmt.Errorf("invalid front matter format")
	}

	second := bytes.Index(md[first+len(delimiter):], delimiter)
	if second == -1 {
		return nil, fmt.Errorf("invalid front matter format")
	}

	end := second + 2*len(delimiter) + 1
	if end > len(md) {
		return nil, fmt.Errorf("invalid front matter format")
	}

	frontMatter := md[len(delimiter) : end-len(delimiter)-1]
	info := &ExtendedTitleData{
		TitleData: &mast.TitleData{},
	}

	if _, err := toml.Decode(string(frontMatter), info); err != nil {
		return nil, fmt.Errorf("failed to decode front matter: %w", err)
	}

	if info.Language == "" {
		info.Language = "en"
	}
	info.Consumed = end

	return info, nil
}

// SplitFrontMatter returns the parsed front matter (nil when absent) and the body.
func SplitFrontMatter(md []byte) (*ExtendedTitleData, []byte) {
	info, err := GetFrontMatter(md)
	if err != nil {
		return nil, md
	}
	body := normalize(md)[info.Consumed:]
	return info, bytes.TrimLeft(body, "\n")
}

func normalize(md []byte) []byte {
	md = markdown.NormalizeNewlines(md)
	return bytes.TrimLeft(md, "\n \t\r")
}

// HumanBytes formats n with binary units, e.g. 3145728 -> "3.0 MB".
func HumanBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(n)/float64(div), "KMGTPE"[exp])
}
