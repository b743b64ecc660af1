package config

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
)

// ParseLogLevel maps a log level name to a slog.Level. Empty means info.
func ParseLogLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, errors.New("log-level must be one of debug, info, warn, error, got: " + level)
	}
}

// NewLogger creates a logger writing to w in the configured format and level.
func NewLogger(s *Settings, w io.Writer) *slog.Logger {
	level, err := ParseLogLevel(s.LogLevel)
	if err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if s.LogFormat == LogFormatJSON {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler)
}

// Log logs the resolved settings in a granular way, skipping irrelevant ones
func Log(s *Settings) {
	LogWithLogger(s, slog.Default())
}

// LogWithLogger logs the resolved settings using the provided logger
func LogWithLogger(s *Settings, logger *slog.Logger) {
	ctx := context.Background()
	logger.InfoContext(ctx, "Config: transport", "value", s.Transport)
	if s.Transport == "sse" {
		logger.InfoContext(ctx, "Config: host", "value", s.Host)
		logger.InfoContext(ctx, "Config: port", "value", s.Port)
	}

	logger.InfoContext(ctx, "Config: auth.type", "value", s.Auth.Type)
	switch s.Auth.Type {
	case AuthTypeBasic:
		logger.InfoContext(ctx, "Config: auth.basic.username", "value", s.Auth.Basic.Username)
		logger.InfoContext(ctx, "Config: auth.basic.password", "value", "****")
	case AuthTypeAPIKey:
		logger.InfoContext(ctx, "Config: auth.api_keys", "count", len(s.Auth.APIKeys))
	}

	r := s.References
	if r.BaseURL != "" {
		logger.InfoContext(ctx, "Config: references.base_url", "value", r.BaseURL)
	} else {
		logger.InfoContext(ctx, "Config: references.dir", "value", r.Dir)
	}
	if len(r.Files) > 0 {
		logger.InfoContext(ctx, "Config: references.files", "count", len(r.Files))
	}
	if r.Manifest != "" {
		logger.InfoContext(ctx, "Config: references.manifest", "value", r.Manifest)
	}
	logger.InfoContext(ctx, "Config: references.pdf_engine", "value", r.PDFEngine)
	if r.PDFEngine == PDFEngineUniPDF {
		logger.InfoContext(ctx, "Config: references.unidoc_license_key", "value", "****")
	}
	logger.InfoContext(ctx, "Config: references.max_parallel_loads", "value", r.MaxParallelLoads)
	if r.Watch {
		logger.InfoContext(ctx, "Config: references.watch", "value", r.Watch, "debounce", r.WatchDebounce)
	}

	logger.InfoContext(ctx, "Config: questions.max_matches", "value", s.Questions.MaxMatches)
}

// AuthSettingsLogValue returns a slog.Value for AuthSettings with masked data
func AuthSettingsLogValue(s AuthSettings) slog.Value {
	keys := make([]string, len(s.APIKeys))
	for i := range s.APIKeys {
		keys[i] = "****"
	}
	return slog.GroupValue(
		slog.String("type", s.Type),
		slog.Any("basic", BasicAuthSettingsLogValue(s.Basic)),
		slog.Any("api_keys", keys),
	)
}

// BasicAuthSettingsLogValue returns a slog.Value for BasicAuthSettings with masked data
func BasicAuthSettingsLogValue(s BasicAuthSettings) slog.Value {
	return slog.GroupValue(
		slog.String("username", s.Username),
		slog.String("password", "****"),
	)
}

// ReferencesSettingsLogValue returns a slog.Value for ReferencesSettings with masked data
func ReferencesSettingsLogValue(s ReferencesSettings) slog.Value {
	key := ""
	if s.UnidocLicenseKey != "" {
		key = "****"
	}
	return slog.GroupValue(
		slog.String("dir", s.Dir),
		slog.String("base_url", s.BaseURL),
		slog.Int("files", len(s.Files)),
		slog.String("manifest", s.Manifest),
		slog.String("pdf_engine", s.PDFEngine),
		slog.String("unidoc_license_key", key),
		slog.Bool("watch", s.Watch),
	)
}

// SettingsLogValue returns a slog.Value for Settings with masked data
func SettingsLogValue(s Settings) slog.Value {
	return slog.GroupValue(
		slog.String("transport", s.Transport),
		slog.String("host", s.Host),
		slog.Int("port", s.Port),
		slog.String("log_level", s.LogLevel),
		slog.Any("auth", AuthSettingsLogValue(s.Auth)),
		slog.Any("references", ReferencesSettingsLogValue(s.References)),
	)
}
