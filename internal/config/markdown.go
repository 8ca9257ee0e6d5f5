package config

import "regexp"

const (
	MarkdownRenderer = "mmark"

	FrontMatterDelimiter = "%%%"
)

var (
	RegexCallout = regexp.MustCompile(`//\s*<<(\d+)>>`)
	RegexSlug    = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)
)
