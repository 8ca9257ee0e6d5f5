package config

const (
	HCType           = "Content-Type"
	HAuthorization   = "Authorization"
	HAccept          = "Accept"
	HUserAgent       = "User-Agent"
	HRequestID       = "X-Request-ID"
	HCacheControl    = "Cache-Control"
	HContentLength   = "Content-Length"
	HETag            = "ETag"
	BearerPrefix     = "Bearer "
	CTypeJSON        = "application/json"
	CTypeHTML        = "text/html"
	CTypeOctet       = "application/octet-stream"
	CTypeEventStream = "text/event-stream"
)

const (
	HTTPErrMethodNotAllowed = "Method not allowed"
)

const (
	EnvConfigPath        = "STUDIO_CONFIG"
	EnvAPIBaseURL        = "STUDIO_API_URL"
	EnvToken             = "STUDIO_TOKEN"
	EnvRefreshToken      = "STUDIO_REFRESH_TOKEN"
	EnvEd25519Key        = "STUDIO_ED25519_KEY"
	EnvS3Bucket          = "STUDIO_S3_BUCKET"
	EnvS3Endpoint        = "STUDIO_S3_ENDPOINT"
	EnvS3AccessKeyID     = "STUDIO_S3_ACCESS_KEY_ID"
	EnvS3SecretAccessKey = "STUDIO_S3_SECRET_ACCESS_KEY"
	EnvS3PublicBaseURL   = "STUDIO_S3_PUBLIC_BASE_URL"
	EnvLogLevel          = "STUDIO_LOG_LEVEL"
)
