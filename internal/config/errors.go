package config

const (
	// Config errors
	ErrParseConfigFmt = "failed to parse config file: %w"

	// Auth errors
	ErrSignInRequired      = "sign-in required"
	ErrRefreshFailed       = "credential refresh failed"
	ErrNoRefreshCredential = "no refresh credential configured"

	// Upload errors
	ErrFileTooLargeFmt     = "file is %s, the limit is %s"
	ErrFileTypeFmt         = "file type %q is not allowed"
	ErrImageTooWideFmt     = "image is %dpx wide, the limit is %dpx"
	ErrUploadStorageFmt    = "upload to storage failed: %v"
	ErrUploadCompleteFmt   = "could not register the uploaded file: %v"
	ErrUploadPresignFmt    = "could not prepare the upload: %v"
	ErrUploadNoPublicURL   = "server did not return a public URL"
	ErrUploadCanceled      = "upload canceled"
	ErrUploadSuperseded    = "upload replaced by a newer one"
	ErrEmptyContent        = "content cannot be empty"
	ErrEmptyTitle          = "title cannot be empty"
	ErrInvalidSlug         = "slug may only contain lowercase letters, digits and dashes"
	ErrSlugTaken           = "this slug is already used by another post"
	ErrSaveFailedFmt       = "auto-save failed: %w"
	ErrUnsavedChangesLeave = "you have unsaved changes"
)
