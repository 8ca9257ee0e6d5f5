// Package config loads the studio configuration from YAML, struct tag defaults
// and environment overrides.
package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

var configLogger zerolog.Logger

func SetLogger(l zerolog.Logger) {
	configLogger = l
}

// Config represents the complete configuration structure
type Config struct {
	API     APIConfig     `yaml:"api"`
	Auth    AuthConfig    `yaml:"auth"`
	Upload  UploadConfig  `yaml:"upload"`
	Draft   DraftConfig   `yaml:"draft"`
	Storage StorageConfig `yaml:"storage"`
	State   StateConfig   `yaml:"state"`
	Preview PreviewConfig `yaml:"preview"`
	Logging LoggingConfig `yaml:"logging"`
}

type LoggingConfig struct {
	Level string `yaml:"level" default:"info"`
	JSON  bool   `yaml:"json" default:"false"`
}

type APIConfig struct {
	BaseURL   string        `yaml:"base_url" default:"http://localhost:8080/api/v1"`
	Timeout   time.Duration `yaml:"timeout" default:"30s"`
	UserAgent string        `yaml:"user_agent" default:"archive-studio"`
}

type AuthConfig struct {
	// Type is either "token" (bearer + refresh token) or "ed25519" (signed challenge).
	Type           string        `yaml:"type" default:"token"`
	Token          string        `yaml:"token" default:""`
	RefreshToken   string        `yaml:"refresh_token" default:""`
	Ed25519KeyPath string        `yaml:"ed25519_key_path" default:"privkey.pem"`
	RefreshSkew    time.Duration `yaml:"refresh_skew" default:"30s"`
}

type UploadConfig struct {
	Backend       string   `yaml:"backend" default:"api"`
	MaxSizeBytes  int64    `yaml:"max_size_bytes" default:"2097152"`
	AllowedTypes  []string `yaml:"allowed_types" default:"image/jpeg,image/png,image/gif,image/webp"`
	MaxImageWidth int      `yaml:"max_image_width" default:"4096"`
}

type DraftConfig struct {
	AutoSaveInterval time.Duration `yaml:"auto_save_interval" default:"5m"`
	AutoCreate       bool          `yaml:"auto_create" default:"false"`
	Backup           bool          `yaml:"backup" default:"true"`
}

type StorageConfig struct {
	S3 S3Config `yaml:"s3"`
}

type S3Config struct {
	Bucket          string        `yaml:"bucket" default:""`
	Region          string        `yaml:"region" default:"auto"`
	Endpoint        string        `yaml:"endpoint" default:""`
	AccessKeyID     string        `yaml:"access_key_id" default:""`
	SecretAccessKey string        `yaml:"secret_access_key" default:""`
	PublicBaseURL   string        `yaml:"public_base_url" default:""`
	KeyPrefix       string        `yaml:"key_prefix" default:"uploads/"`
	PresignExpiry   time.Duration `yaml:"presign_expiry" default:"15m"`
}

type StateConfig struct {
	Path string `yaml:"path" default:"studio.db"`
}

type PreviewConfig struct {
	Host        string `yaml:"host" default:"127.0.0.1"`
	Port        string `yaml:"port" default:"12600"`
	SyntaxTheme string `yaml:"syntax_theme" default:"gruvbox"`
}

var AppConfig *Config

// LoadConfig reads the YAML file at path on top of the defaults. A missing file
// is not an error. Environment overrides are applied last.
func LoadConfig(path string) (*Config, error) {
	config := &Config{}

	applyDefaults(config)

	data, err := os.ReadFile(path)
	if err != nil {
		configLogger.Info().Str("path", path).Msg("Config file not found, using defaults")
	} else if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf(ErrParseConfigFmt, err)
	}

	ApplyEnv(config)

	AppConfig = config
	return config, nil
}

// ApplyEnv overrides secrets and endpoints from the environment. Secrets are
// expected to live in .env rather than in the YAML file.
func ApplyEnv(config *Config) {
	set := func(dst *string, key string) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			*dst = v
		}
	}

	set(&config.API.BaseURL, EnvAPIBaseURL)
	set(&config.Auth.Token, EnvToken)
	set(&config.Auth.RefreshToken, EnvRefreshToken)
	set(&config.Auth.Ed25519KeyPath, EnvEd25519Key)
	set(&config.Storage.S3.Bucket, EnvS3Bucket)
	set(&config.Storage.S3.Endpoint, EnvS3Endpoint)
	set(&config.Storage.S3.AccessKeyID, EnvS3AccessKeyID)
	set(&config.Storage.S3.SecretAccessKey, EnvS3SecretAccessKey)
	set(&config.Storage.S3.PublicBaseURL, EnvS3PublicBaseURL)
	set(&config.Logging.Level, EnvLogLevel)
}

func ApplyDefaults(config interface{}) {
	applyDefaults(config)
}

var durationType = reflect.TypeOf(time.Duration(0))

func applyDefaults(config interface{}) {
	v := reflect.ValueOf(config)
	if v.Kind() == reflect.Ptr {
		v = v.Elem()
	}

	if v.Kind() != reflect.Struct {
		return
	}

	t := v.Type()
	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		fieldType := t.Field(i)

		if !field.IsValid() || !field.CanSet() {
			continue
		}

		if field.Kind() == reflect.Struct {
			applyDefaults(field.Addr().Interface())
			continue
		}

		defaultValue := fieldType.Tag.Get("default")
		if defaultValue == "" {
			continue
		}

		if field.Type() == durationType {
			if d, err := time.ParseDuration(defaultValue); err == nil {
				field.SetInt(int64(d))
			}
			continue
		}

		switch field.Kind() {
		case reflect.String:
			field.SetString(defaultValue)
		case reflect.Bool:
			if val, err := strconv.ParseBool(defaultValue); err == nil {
				field.SetBool(val)
			}
		case reflect.Int, reflect.Int64:
			if val, err := strconv.ParseInt(defaultValue, 10, 64); err == nil {
				field.SetInt(val)
			}
		case reflect.Float64:
			if val, err := strconv.ParseFloat(defaultValue, 64); err == nil {
				field.SetFloat(val)
			}
		case reflect.Slice:
			if field.Len() == 0 && field.Type().Elem().Kind() == reflect.String {
				parts := strings.Split(defaultValue, ",")
				slice := reflect.MakeSlice(field.Type(), len(parts), len(parts))
				for j, part := range parts {
					slice.Index(j).SetString(strings.TrimSpace(part))
				}
				field.Set(slice)
			}
		default:
			configLogger.Warn().
				Str("field_name", fieldType.Name).
				Str("field_type", field.Kind().String()).
				Msg("Unsupported field type for default value")
		}
	}
}
