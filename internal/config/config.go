package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pbaille/calsync/internal/domain"
)

const (
	DefaultCalendarURL = "https://fatecitapira.cps.sp.gov.br/"
	DefaultGeminiModel = "gemini-2.5-pro"
	DefaultSchemaFile  = "agent.json"
)

// Config is loaded once at startup and passed to every component.
type Config struct {
	// Todoist
	TodoistAPIKey    string
	TodoistProjectID string
	TodoistSectionID string
	TodoistBaseURL   string

	// Gemini. The key is only checked when an extraction actually runs.
	GeminiAPIKey  string
	GeminiModel   string
	GeminiBaseURL string

	CalendarURL string
	CacheDir    string
	SchemaFile  string
	LogLevel    string
}

// Load reads .env (if present) and the process environment, then validates
// the required keys.
func Load() (Config, error) {
	LoadDotEnv()

	cfg := FromEnv()
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// LoadDotEnv loads .env from the working directory without overriding
// variables that are already set. A missing file is not an error.
func LoadDotEnv() {
	_ = godotenv.Load()
}

// FromEnv reads the environment without validating it.
func FromEnv() Config {
	return Config{
		TodoistAPIKey:    os.Getenv("TODOIST_API_KEY"),
		TodoistProjectID: os.Getenv("TODOIST_PROJECT_ID"),
		TodoistSectionID: os.Getenv("TODOIST_SECTION_ID"),
		TodoistBaseURL:   os.Getenv("TODOIST_BASE_URL"),

		GeminiAPIKey:  os.Getenv("GEMINI_API_KEY"),
		GeminiModel:   getenv("GEMINI_MODEL", DefaultGeminiModel),
		GeminiBaseURL: os.Getenv("GEMINI_BASE_URL"),

		CalendarURL: getenv("CALENDAR_URL", DefaultCalendarURL),
		CacheDir:    getenv("CACHE_DIR", "."),
		SchemaFile:  getenv("SCHEMA_FILE", DefaultSchemaFile),
		LogLevel:    getenv("LOG_LEVEL", "info"),
	}
}

// Validate reports every missing required variable in one error.
func (c Config) Validate() error {
	var missing []string
	if c.TodoistAPIKey == "" {
		missing = append(missing, "TODOIST_API_KEY")
	}
	if c.TodoistSectionID == "" {
		missing = append(missing, "TODOIST_SECTION_ID")
	}
	if c.TodoistProjectID == "" {
		missing = append(missing, "TODOIST_PROJECT_ID")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing env vars: %s", domain.ErrConfig, strings.Join(missing, ", "))
	}
	return nil
}

func getenv(k, def string) string {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	return v
}
