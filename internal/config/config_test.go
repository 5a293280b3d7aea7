package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadRequiresAPIKey(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")

	if _, err := Load(""); err == nil {
		t.Fatal("expected error when GEMINI_API_KEY is unset")
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "test-key")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Gemini.TextModel != "gemini-2.5-flash" {
		t.Errorf("text model = %q", cfg.Gemini.TextModel)
	}
	if cfg.Gemini.ImageModel != "gemini-2.5-flash-image-preview" {
		t.Errorf("image model = %q", cfg.Gemini.ImageModel)
	}
	if cfg.Gemini.TextTimeout() != 60*time.Second {
		t.Errorf("text timeout = %v", cfg.Gemini.TextTimeout())
	}
	if cfg.Gemini.ImageTimeout() != 180*time.Second {
		t.Errorf("image timeout = %v", cfg.Gemini.ImageTimeout())
	}
	if cfg.Generation.Rows != 10 {
		t.Errorf("rows = %d, want 10", cfg.Generation.Rows)
	}
	if cfg.Generation.Workers != 1 {
		t.Errorf("workers = %d, want 1", cfg.Generation.Workers)
	}
	if cfg.Export.Dir != "./output" {
		t.Errorf("export dir = %q", cfg.Export.Dir)
	}
	if cfg.Export.WorkbookFile != "memes_export.xlsx" {
		t.Errorf("workbook file = %q", cfg.Export.WorkbookFile)
	}
}

func TestLoadFromFileWithEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := `server:
  port: 9090
  mode: release
gemini:
  text_model: custom-text-model
generation:
  rows: 5
  workers: 3
`
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}

	t.Setenv("GEMINI_API_KEY", "from-env")
	t.Setenv("GEMINI_IMAGE_MODEL", "env-image-model")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.Server.Mode != "release" {
		t.Errorf("mode = %q", cfg.Server.Mode)
	}
	if cfg.Gemini.APIKey != "from-env" {
		t.Errorf("api key = %q", cfg.Gemini.APIKey)
	}
	if cfg.Gemini.TextModel != "custom-text-model" {
		t.Errorf("text model = %q", cfg.Gemini.TextModel)
	}
	if cfg.Gemini.ImageModel != "env-image-model" {
		t.Errorf("env override lost: image model = %q", cfg.Gemini.ImageModel)
	}
	if cfg.Generation.Rows != 5 || cfg.Generation.Workers != 3 {
		t.Errorf("generation = %+v", cfg.Generation)
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "k")

	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error for missing explicit config file")
	}
}
