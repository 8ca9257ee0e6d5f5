package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/debemdeboas/archive-studio/internal/config"
)

var (
	ErrSignInRequired = errors.New(config.ErrSignInRequired)
)

// Error codes the platform reports for conflicting writes.
const (
	CodeDuplicateSlug = "DUPLICATE_SLUG"
	CodeConflict      = "CONFLICT"
	CodeNotFound      = "NOT_FOUND"
	CodeValidation    = "VALIDATION_ERROR"
)

// Error is a non-2xx response from the platform.
type Error struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
	// Field names the form field the error applies to, when the server knows.
	Field string `json:"field,omitempty"`
}

func (e *Error) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "api error %d", e.Status)
	if e.Code != "" {
		fmt.Fprintf(&b, " %s", e.Code)
	}
	if e.Message != "" {
		fmt.Fprintf(&b, ": %s", e.Message)
	}
	return b.String()
}

func newError(status int, body []byte) *Error {
	apiErr := &Error{Status: status}

	var env envelope
	if err := json.Unmarshal(body, &env); err == nil && env.Error != nil {
		apiErr.Code = env.Error.Code
		apiErr.Message = env.Error.Message
		apiErr.Field = env.Error.Field
		return apiErr
	}

	var flat Error
	if err := json.Unmarshal(body, &flat); err == nil && (flat.Code != "" || flat.Message != "") {
		apiErr.Code = flat.Code
		apiErr.Message = flat.Message
		apiErr.Field = flat.Field
		return apiErr
	}

	apiErr.Message = http.StatusText(status)
	return apiErr
}

// IsConflict reports a duplicate or conflicting write: HTTP 409 or one of the
// conflict codes.
func IsConflict(err error) bool {
	var apiErr *Error
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.Status == http.StatusConflict ||
		apiErr.Code == CodeDuplicateSlug ||
		apiErr.Code == CodeConflict
}

func IsNotFound(err error) bool {
	var apiErr *Error
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.Status == http.StatusNotFound || apiErr.Code == CodeNotFound
}

// ConflictField returns the field a conflict applies to. A duplicate slug
// without an explicit field maps to "slug".
func ConflictField(err error) string {
	var apiErr *Error
	if !errors.As(err, &apiErr) {
		return ""
	}
	if apiErr.Field != "" {
		return apiErr.Field
	}
	if apiErr.Code == CodeDuplicateSlug {
		return "slug"
	}
	return ""
}
