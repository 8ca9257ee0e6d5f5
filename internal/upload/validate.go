package upload

import (
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"strings"

	_ "golang.org/x/image/webp"

	"github.com/debemdeboas/archive-studio/internal/config"
	"github.com/debemdeboas/archive-studio/internal/util"
)

var ErrValidation = errors.New("validation failed")

// ValidationError is raised before any network call.
type ValidationError struct {
	Reason  string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

const (
	ReasonTooLarge   = "too_large"
	ReasonType       = "type"
	ReasonTooWide    = "too_wide"
	ReasonUnreadable = "unreadable"
)

// Validate checks f against the limits in opts. Zero limits are not enforced.
func Validate(f File, opts Options) error {
	if opts.MaxSize > 0 && f.Size > opts.MaxSize {
		return &ValidationError{
			Reason:  ReasonTooLarge,
			Message: fmt.Sprintf(config.ErrFileTooLargeFmt, util.HumanBytes(f.Size), util.HumanBytes(opts.MaxSize)),
		}
	}

	if len(opts.AllowedTypes) > 0 && !typeAllowed(f.ContentType, opts.AllowedTypes) {
		return &ValidationError{
			Reason:  ReasonType,
			Message: fmt.Sprintf(config.ErrFileTypeFmt, f.ContentType),
		}
	}

	if opts.MaxWidth > 0 && strings.HasPrefix(f.ContentType, "image/") && f.ContentType != "image/svg+xml" {
		cfg, _, err := image.DecodeConfig(f.reader())
		if err != nil {
			return &ValidationError{
				Reason:  ReasonUnreadable,
				Message: fmt.Sprintf("could not read image dimensions: %v", err),
			}
		}
		if cfg.Width > opts.MaxWidth {
			return &ValidationError{
				Reason:  ReasonTooWide,
				Message: fmt.Sprintf(config.ErrImageTooWideFmt, cfg.Width, opts.MaxWidth),
			}
		}
	}

	return nil
}

// typeAllowed matches exact types and "type/*" wildcards.
func typeAllowed(contentType string, allowed []string) bool {
	for _, a := range allowed {
		if a == contentType {
			return true
		}
		if prefix, ok := strings.CutSuffix(a, "/*"); ok && strings.HasPrefix(contentType, prefix+"/") {
			return true
		}
	}
	return false
}
