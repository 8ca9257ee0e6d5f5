package main

import (
	"strings"
	"testing"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/debemdeboas/archive-studio/internal/config"
)

func TestGenerateRoundTrips(t *testing.T) {
	out, err := generate()
	if err != nil {
		t.Fatalf("Failed to generate: %v", err)
	}

	if !strings.HasPrefix(string(out), "# Archive Studio Configuration Example") {
		t.Errorf("Missing header in %q", out[:40])
	}
	if !strings.Contains(string(out), config.EnvToken) {
		t.Error("Expected the token override to be listed")
	}

	var cfg config.Config
	if err := yaml.Unmarshal(out, &cfg); err != nil {
		t.Fatalf("Generated file does not parse: %v", err)
	}
	if cfg.Draft.AutoSaveInterval != 5*time.Minute {
		t.Errorf("Expected the auto-save default, got %v", cfg.Draft.AutoSaveInterval)
	}
	if cfg.Upload.MaxSizeBytes != 2097152 {
		t.Errorf("Expected the upload size default, got %d", cfg.Upload.MaxSizeBytes)
	}
	if len(cfg.Upload.AllowedTypes) != 4 {
		t.Errorf("Expected four allowed types, got %v", cfg.Upload.AllowedTypes)
	}
}
