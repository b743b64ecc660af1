package app

import "github.com/spf13/pflag"

// RegisterFlags registers all CLI flags on the given FlagSet
func RegisterFlags(flags *pflag.FlagSet) {
	flags.StringP("transport", "t", "", "Transport type: stdio or sse")
	flags.StringP("host", "H", "", "Host for SSE transport")
	flags.IntP("port", "p", 0, "Port for SSE transport")
	flags.String("log-level", "", "Log level: debug, info, warn or error")
	flags.String("log-format", "", "Log format: text or json")
	flags.StringP("auth-type", "a", "", "Authentication type: none, basic, or apikey")
	flags.StringP("auth-basic-username", "u", "", "Basic auth username")
	flags.StringP("auth-basic-password", "P", "", "Basic auth password")
	flags.StringSliceP("auth-api-keys", "k", nil, "API keys (comma-separated)")

	RegisterReferenceFlags(flags)
	RegisterQuestionFlags(flags)
}

// RegisterReferenceFlags registers the reference corpus flags
func RegisterReferenceFlags(flags *pflag.FlagSet) {
	flags.StringP("references-dir", "d", "", "Directory holding the reference documents")
	flags.String("references-base-url", "", "Base URL to fetch reference documents from instead of the directory")
	flags.StringSlice("references-files", nil, "Reference document names (comma-separated); default lists the directory")
	flags.String("references-manifest", "", "YAML manifest listing the reference document names")
	flags.Int("references-max-parallel-loads", 0, "Maximum number of documents loaded concurrently")
	flags.Duration("references-fetch-timeout", 0, "Timeout for each HTTP document fetch")
	flags.Float64("references-rate-limit", 0, "Maximum HTTP fetches per second (0 = unlimited)")
	flags.Int64("references-max-file-size", 0, "Maximum reference document size in bytes")
	flags.String("references-pdf-engine", "", "PDF engine: ledongthuc or unipdf")
	flags.String("references-unidoc-license-key", "", "UniDoc metered license key for the unipdf engine")
	flags.Bool("references-watch", false, "Reload the corpus when the reference directory changes")
	flags.Duration("references-watch-debounce", 0, "Quiet period before a watched change triggers a reload")
	flags.Int("references-search-results", 0, "Default number of full-text search results")
}

// RegisterQuestionFlags registers the question answering flags
func RegisterQuestionFlags(flags *pflag.FlagSet) {
	flags.Int64("questions-max-upload-size", 0, "Maximum question document size in bytes")
	flags.Int("questions-max-matches", 0, "Maximum number of reference documents cited per answer")
}
