// Package form maps validation and conflict errors onto the post form fields.
package form

import (
	"errors"
	"strings"

	"github.com/debemdeboas/archive-studio/internal/api"
	"github.com/debemdeboas/archive-studio/internal/config"
	"github.com/debemdeboas/archive-studio/internal/model"
)

type Field string

const (
	FieldTitle    Field = "title"
	FieldSlug     Field = "slug"
	FieldContent  Field = "content"
	FieldCategory Field = "category_id"
	FieldCover    Field = "cover_image_url"
)

// order is the order fields appear on the form, top to bottom.
var order = []Field{FieldTitle, FieldSlug, FieldCategory, FieldCover, FieldContent}

// Errors holds at most one message per field.
type Errors map[Field]string

func (e Errors) Error() string {
	var parts []string
	for _, f := range e.Fields() {
		parts = append(parts, string(f)+": "+e[f])
	}
	return strings.Join(parts, "; ")
}

// Fields lists the fields with errors in form order.
func (e Errors) Fields() []Field {
	var out []Field
	for _, f := range order {
		if _, ok := e[f]; ok {
			out = append(out, f)
		}
	}
	for f := range e {
		if !known(f) {
			out = append(out, f)
		}
	}
	return out
}

func known(f Field) bool {
	for _, o := range order {
		if o == f {
			return true
		}
	}
	return false
}

// Focus is the field the view scrolls to: the topmost one with an error.
func (e Errors) Focus() Field {
	fields := e.Fields()
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

func (e Errors) Has(f Field) bool {
	_, ok := e[f]
	return ok
}

// ValidatePost checks a payload before it is sent. It returns nil when the
// payload is valid.
func ValidatePost(p model.PostPayload) Errors {
	errs := Errors{}
	if strings.TrimSpace(p.Title) == "" {
		errs[FieldTitle] = config.ErrEmptyTitle
	}
	if p.Slug != "" && !config.RegexSlug.MatchString(p.Slug) {
		errs[FieldSlug] = config.ErrInvalidSlug
	}
	if strings.TrimSpace(p.Content) == "" {
		errs[FieldContent] = config.ErrEmptyContent
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}

// FromAPIError maps a failed save onto the form. Only conflicts and field
// validation errors map; anything else returns nil and is shown as a notice.
// A bare 409, with neither code nor field, is a duplicate slug. A coded
// conflict without a field is a stale write and stays a notice.
func FromAPIError(err error) Errors {
	var apiErr *api.Error
	if !errors.As(err, &apiErr) {
		return nil
	}

	if api.IsConflict(err) {
		field := Field(api.ConflictField(err))
		if field == "" && apiErr.Code == "" {
			field = FieldSlug
		}
		if field == "" {
			return nil
		}
		msg := apiErr.Message
		if field == FieldSlug {
			msg = config.ErrSlugTaken
		}
		return Errors{field: msg}
	}

	if apiErr.Code == api.CodeValidation && apiErr.Field != "" {
		return Errors{Field(apiErr.Field): apiErr.Message}
	}
	return nil
}
