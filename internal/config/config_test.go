package config

import (
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/pbaille/calsync/internal/domain"
)

func TestGetenv(t *testing.T) {
	t.Setenv("CALSYNC_TEST_GETENV", "")
	if got := getenv("CALSYNC_TEST_GETENV", "default"); got != "default" {
		t.Errorf("Expected 'default', got '%s'", got)
	}

	t.Setenv("CALSYNC_TEST_GETENV", "  value ")
	if got := getenv("CALSYNC_TEST_GETENV", "default"); got != "value" {
		t.Errorf("Expected 'value', got '%s'", got)
	}
}

func TestFromEnvDefaults(t *testing.T) {
	for _, k := range []string{"GEMINI_MODEL", "CALENDAR_URL", "CACHE_DIR", "SCHEMA_FILE", "LOG_LEVEL"} {
		t.Setenv(k, "")
	}

	cfg := FromEnv()
	if cfg.GeminiModel != DefaultGeminiModel {
		t.Errorf("GeminiModel = %q, want %q", cfg.GeminiModel, DefaultGeminiModel)
	}
	if cfg.CalendarURL != DefaultCalendarURL {
		t.Errorf("CalendarURL = %q, want %q", cfg.CalendarURL, DefaultCalendarURL)
	}
	if cfg.CacheDir != "." {
		t.Errorf("CacheDir = %q, want .", cfg.CacheDir)
	}
	if cfg.SchemaFile != DefaultSchemaFile {
		t.Errorf("SchemaFile = %q, want %q", cfg.SchemaFile, DefaultSchemaFile)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want info", cfg.LogLevel)
	}
}

func TestValidate(t *testing.T) {
	cfg := Config{TodoistAPIKey: "key"}
	err := cfg.Validate()
	if !errors.Is(err, domain.ErrConfig) {
		t.Fatalf("Validate() = %v, want ErrConfig", err)
	}
	for _, k := range []string{"TODOIST_SECTION_ID", "TODOIST_PROJECT_ID"} {
		if !strings.Contains(err.Error(), k) {
			t.Errorf("error %q does not mention %s", err, k)
		}
	}
	if strings.Contains(err.Error(), "TODOIST_API_KEY") {
		t.Errorf("error %q mentions a key that is set", err)
	}

	cfg.TodoistProjectID = "p"
	cfg.TodoistSectionID = "s"
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() = %v, want nil", err)
	}
}

func TestValidateIgnoresGeminiKey(t *testing.T) {
	cfg := Config{TodoistAPIKey: "k", TodoistProjectID: "p", TodoistSectionID: "s"}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() without GEMINI_API_KEY = %v, want nil", err)
	}
}

func TestLoad(t *testing.T) {
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(t.TempDir()); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })
	t.Setenv("TODOIST_API_KEY", "k")
	t.Setenv("TODOIST_PROJECT_ID", "p")
	t.Setenv("TODOIST_SECTION_ID", "")

	if _, err := Load(); !errors.Is(err, domain.ErrConfig) {
		t.Errorf("Load() = %v, want ErrConfig", err)
	}

	t.Setenv("TODOIST_SECTION_ID", "s")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() = %v", err)
	}
	if cfg.TodoistSectionID != "s" {
		t.Errorf("TodoistSectionID = %q, want s", cfg.TodoistSectionID)
	}
}
