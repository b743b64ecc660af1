package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Auth type constants
const (
	AuthTypeNone   = "none"
	AuthTypeBasic  = "basic"
	AuthTypeAPIKey = "apikey"
)

// Log format constants
const (
	LogFormatText = "text"
	LogFormatJSON = "json"
)

// PDF engine constants
const (
	PDFEngineLedongthuc = "ledongthuc"
	PDFEngineUniPDF     = "unipdf"
)

// EnvPrefix prefixes every environment variable the server reads.
const EnvPrefix = "REFQA_MCP"

// EnvFile is the dotenv file read from the working directory, if present.
const EnvFile = ".env"

// AuthSettings configuration for authentication
type AuthSettings struct {
	Type    string            `mapstructure:"type"` // AuthTypeNone, AuthTypeBasic, or AuthTypeAPIKey
	Basic   BasicAuthSettings `mapstructure:"basic"`
	APIKeys []string          `mapstructure:"api_keys"`
}

// BasicAuthSettings configuration for basic auth
type BasicAuthSettings struct {
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

// ReferencesSettings configuration for the reference corpus
type ReferencesSettings struct {
	Dir              string        `mapstructure:"dir"`
	BaseURL          string        `mapstructure:"base_url"`
	Files            []string      `mapstructure:"files"`
	Manifest         string        `mapstructure:"manifest"`
	MaxParallelLoads int           `mapstructure:"max_parallel_loads"`
	FetchTimeout     time.Duration `mapstructure:"fetch_timeout"`
	RateLimit        float64       `mapstructure:"rate_limit"` // HTTP fetches per second, 0 disables pacing
	MaxFileSize      int64         `mapstructure:"max_file_size"`
	PDFEngine        string        `mapstructure:"pdf_engine"`
	UnidocLicenseKey string        `mapstructure:"unidoc_license_key"`
	Watch            bool          `mapstructure:"watch"`
	WatchDebounce    time.Duration `mapstructure:"watch_debounce"`
	SearchResults    int           `mapstructure:"search_results"`
}

// QuestionsSettings configuration for question documents and answering
type QuestionsSettings struct {
	MaxUploadSize int64 `mapstructure:"max_upload_size"`
	MaxMatches    int   `mapstructure:"max_matches"`
}

// Settings application settings
type Settings struct {
	Transport  string             `mapstructure:"transport"`
	Host       string             `mapstructure:"host"`
	Port       int                `mapstructure:"port"`
	LogLevel   string             `mapstructure:"log_level"`
	LogFormat  string             `mapstructure:"log_format"`
	Auth       AuthSettings       `mapstructure:"auth"`
	References ReferencesSettings `mapstructure:"references"`
	Questions  QuestionsSettings  `mapstructure:"questions"`
}

// binding ties a settings key to its environment variable suffix and CLI flag.
type binding struct {
	key  string
	flag string
}

func (b binding) env() string {
	return EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(b.key, ".", "_"))
}

var bindings = []binding{
	{"transport", "transport"},
	{"host", "host"},
	{"port", "port"},
	{"log_level", "log-level"},
	{"log_format", "log-format"},
	{"auth.type", "auth-type"},
	{"auth.basic.username", "auth-basic-username"},
	{"auth.basic.password", "auth-basic-password"},
	{"auth.api_keys", "auth-api-keys"},
	{"references.dir", "references-dir"},
	{"references.base_url", "references-base-url"},
	{"references.files", "references-files"},
	{"references.manifest", "references-manifest"},
	{"references.max_parallel_loads", "references-max-parallel-loads"},
	{"references.fetch_timeout", "references-fetch-timeout"},
	{"references.rate_limit", "references-rate-limit"},
	{"references.max_file_size", "references-max-file-size"},
	{"references.pdf_engine", "references-pdf-engine"},
	{"references.unidoc_license_key", "references-unidoc-license-key"},
	{"references.watch", "references-watch"},
	{"references.watch_debounce", "references-watch-debounce"},
	{"references.search_results", "references-search-results"},
	{"questions.max_upload_size", "questions-max-upload-size"},
	{"questions.max_matches", "questions-max-matches"},
}

// LoadSettings loads settings from environment variables and optional .env file
func LoadSettings() (*Settings, error) {
	return LoadSettingsWithFlags(nil)
}

// LoadSettingsWithFlags loads settings with optional CLI flag overrides.
// Priority: CLI flags > environment variables > .env file > defaults.
// If flags is nil, only env vars, .env and defaults are used.
func LoadSettingsWithFlags(flags *pflag.FlagSet) (*Settings, error) {
	v := viper.New()

	// Default values
	v.SetDefault("transport", "stdio")
	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("port", 8080)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", LogFormatText)
	v.SetDefault("auth.type", AuthTypeNone)

	// References defaults
	v.SetDefault("references.dir", "reference-pdfs")
	v.SetDefault("references.base_url", "")
	v.SetDefault("references.manifest", "")
	v.SetDefault("references.max_parallel_loads", 4)
	v.SetDefault("references.fetch_timeout", 30*time.Second)
	v.SetDefault("references.rate_limit", 0.0)
	v.SetDefault("references.max_file_size", int64(50*1024*1024)) // 50MB
	v.SetDefault("references.pdf_engine", PDFEngineLedongthuc)
	v.SetDefault("references.unidoc_license_key", "")
	v.SetDefault("references.watch", false)
	v.SetDefault("references.watch_debounce", 500*time.Millisecond)
	v.SetDefault("references.search_results", 10)

	// Questions defaults
	v.SetDefault("questions.max_upload_size", int64(50*1024*1024)) // 50MB
	v.SetDefault("questions.max_matches", 3)

	// .env values sit between defaults and the real environment
	dotenv, err := readEnvFile(EnvFile)
	if err != nil {
		return nil, err
	}
	for _, b := range bindings {
		if value, ok := dotenv[b.env()]; ok {
			v.SetDefault(b.key, value)
		}
	}

	// Environment variables
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, b := range bindings {
		_ = v.BindEnv(b.key, b.env())
	}

	// Bind CLI flags if provided (highest priority)
	if flags != nil {
		for _, b := range bindings {
			if f := flags.Lookup(b.flag); f != nil {
				_ = v.BindPFlag(b.key, f)
			}
		}
	}

	var settings Settings
	if err := v.Unmarshal(&settings); err != nil {
		return nil, err
	}

	// Comma-separated lists arrive as a single string from env vars and .env
	settings.Auth.APIKeys = filterEmptyStrings(splitList(settings.Auth.APIKeys))
	settings.References.Files = filterEmptyStrings(splitList(settings.References.Files))

	settings.References.Dir = expandHomeDir(settings.References.Dir)
	settings.References.Manifest = expandHomeDir(settings.References.Manifest)

	return &settings, nil
}

// readEnvFile parses a dotenv file without touching the process environment.
// A missing file yields an empty map.
func readEnvFile(path string) (map[string]string, error) {
	values, err := godotenv.Read(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return values, nil
}

// splitList splits comma-separated entries and trims spaces.
func splitList(values []string) []string {
	var result []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			result = append(result, strings.TrimSpace(part))
		}
	}
	return result
}

// expandHomeDir expands ~ to the user's home directory
func expandHomeDir(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	if path == "~" {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return home
	}
	return path
}

// filterEmptyStrings removes empty strings from a slice
func filterEmptyStrings(s []string) []string {
	var result []string
	for _, str := range s {
		if str != "" {
			result = append(result, str)
		}
	}
	return result
}

// ValidateSettings checks for conflicting configurations.
// Returns an error if the settings contain mutually exclusive or incomplete config.
func ValidateSettings(s *Settings) error {
	// Validate transport type
	switch s.Transport {
	case "stdio", "sse":
		// valid
	default:
		return errors.New("transport must be 'stdio' or 'sse', got: " + s.Transport)
	}

	if _, err := ParseLogLevel(s.LogLevel); err != nil {
		return err
	}
	switch s.LogFormat {
	case LogFormatText, LogFormatJSON, "":
		// valid
	default:
		return errors.New("log-format must be 'text' or 'json', got: " + s.LogFormat)
	}

	hasBasicCreds := s.Auth.Basic.Username != "" || s.Auth.Basic.Password != ""
	hasAPIKeys := len(s.Auth.APIKeys) > 0

	switch s.Auth.Type {
	case AuthTypeNone, "":
		if hasBasicCreds || hasAPIKeys {
			return errors.New("auth-type 'none' is incompatible with auth credentials")
		}
	case AuthTypeBasic:
		if hasAPIKeys {
			return errors.New("auth-type 'basic' is mutually exclusive with auth-api-keys")
		}
		if s.Auth.Basic.Username == "" || s.Auth.Basic.Password == "" {
			return errors.New("auth-type 'basic' requires both username and password")
		}
	case AuthTypeAPIKey:
		if hasBasicCreds {
			return errors.New("auth-type 'apikey' is mutually exclusive with basic auth credentials")
		}
		if !hasAPIKeys {
			return errors.New("auth-type 'apikey' requires at least one API key")
		}
	default:
		return errors.New("unknown auth-type: " + s.Auth.Type)
	}

	if err := ValidateReferencesSettings(&s.References); err != nil {
		return err
	}

	return validateQuestionsSettings(&s.Questions)
}

// ValidateReferencesSettings validates the reference corpus configuration
func ValidateReferencesSettings(r *ReferencesSettings) error {
	if r.Dir == "" && r.BaseURL == "" {
		return errors.New("references-dir or references-base-url is required")
	}

	if r.BaseURL != "" {
		if !strings.HasPrefix(r.BaseURL, "http://") && !strings.HasPrefix(r.BaseURL, "https://") {
			return errors.New("references-base-url must be an http(s) URL, got: " + r.BaseURL)
		}
		if r.Watch {
			return errors.New("references-watch requires a local references-dir, not references-base-url")
		}
		if len(r.Files) == 0 && r.Manifest == "" {
			return errors.New("references-base-url requires references-files or references-manifest")
		}
	}

	if r.MaxParallelLoads <= 0 {
		return errors.New("references-max-parallel-loads must be positive")
	}

	if r.FetchTimeout <= 0 {
		return errors.New("references-fetch-timeout must be positive")
	}

	if r.RateLimit < 0 {
		return errors.New("references-rate-limit cannot be negative")
	}

	if r.MaxFileSize <= 0 {
		return errors.New("references-max-file-size must be positive")
	}

	switch r.PDFEngine {
	case PDFEngineLedongthuc, "":
		// valid
	case PDFEngineUniPDF:
		if r.UnidocLicenseKey == "" {
			return errors.New("references-pdf-engine 'unipdf' requires references-unidoc-license-key")
		}
	default:
		return errors.New("unknown references-pdf-engine: " + r.PDFEngine)
	}

	if r.Watch && r.WatchDebounce <= 0 {
		return errors.New("references-watch-debounce must be positive")
	}

	if r.SearchResults <= 0 {
		return errors.New("references-search-results must be positive")
	}

	return nil
}

// validateQuestionsSettings validates the question answering configuration
func validateQuestionsSettings(q *QuestionsSettings) error {
	if q.MaxUploadSize <= 0 {
		return errors.New("questions-max-upload-size must be positive")
	}

	if q.MaxMatches <= 0 {
		return errors.New("questions-max-matches must be positive")
	}

	return nil
}
