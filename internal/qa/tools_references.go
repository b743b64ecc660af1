package qa

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/sha1n/mcp-refqa-server/internal/corpus"
	"github.com/sha1n/mcp-refqa-server/internal/domain"
)

const notReadyText = "Reference documents are still loading. Please try again later."

// ListReferencesArgument defines list_references parameters.
type ListReferencesArgument struct{}

// ListReferencesHandler handles the list_references MCP tool.
type ListReferencesHandler struct {
	service *Service
}

// NewListReferencesHandler creates a new list_references handler.
func NewListReferencesHandler(service *Service) *ListReferencesHandler {
	return &ListReferencesHandler{service: service}
}

// Handle lists the loaded reference documents and the ones that failed to load.
func (h *ListReferencesHandler) Handle(ctx context.Context, req *mcp.CallToolRequest, args ListReferencesArgument) (*mcp.CallToolResult, any, error) {
	refs := h.service.References()
	docs, err := refs.Documents()
	if err != nil {
		return errorResult(h.service.UserMessage(err)), nil, nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%d reference documents loaded:\n\n", len(docs))
	for _, doc := range docs {
		fmt.Fprintf(&sb, "- %s (%d pages)\n", doc.Filename, doc.Pages)
	}

	if failed := refs.LastReport().Failed; len(failed) > 0 {
		fmt.Fprintf(&sb, "\n%d documents failed to load:\n\n", len(failed))
		for _, f := range failed {
			fmt.Fprintf(&sb, "- %s: %s\n", f.Filename, f.Error)
		}
	}

	return textResult(sb.String()), nil, nil
}

// GetToolDefinition returns the MCP tool definition.
func (h *ListReferencesHandler) GetToolDefinition() *mcp.Tool {
	return &mcp.Tool{
		Name:        "list_references",
		Description: "List the loaded reference documents with their page counts",
	}
}

// RegisterListReferencesTool registers the list_references tool with an MCP server.
func RegisterListReferencesTool(server *mcp.Server, service *Service) {
	handler := NewListReferencesHandler(service)
	mcp.AddTool(server, handler.GetToolDefinition(), handler.Handle)
}

// ReloadReferencesArgument defines reload_references parameters.
type ReloadReferencesArgument struct{}

// ReloadReferencesHandler handles the reload_references MCP tool.
type ReloadReferencesHandler struct {
	service *Service
}

// NewReloadReferencesHandler creates a new reload_references handler.
func NewReloadReferencesHandler(service *Service) *ReloadReferencesHandler {
	return &ReloadReferencesHandler{service: service}
}

// Handle rebuilds the reference corpus from scratch.
func (h *ReloadReferencesHandler) Handle(ctx context.Context, req *mcp.CallToolRequest, args ReloadReferencesArgument) (*mcp.CallToolResult, any, error) {
	report, err := h.service.References().Reload(ctx)
	if err != nil {
		return errorResult(fmt.Sprintf("Reload failed: %s", err)), nil, nil
	}

	if report.Superseded {
		return textResult("Reload finished but a newer reload replaced its result."), nil, nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Loaded %d of %d reference documents in %s (generation %d)\n",
		len(report.Loaded), report.Requested, report.Duration.Round(time.Millisecond), report.Generation)
	for _, f := range report.Failed {
		fmt.Fprintf(&sb, "- failed: %s: %s\n", f.Filename, f.Error)
	}
	return textResult(sb.String()), nil, nil
}

// GetToolDefinition returns the MCP tool definition.
func (h *ReloadReferencesHandler) GetToolDefinition() *mcp.Tool {
	return &mcp.Tool{
		Name:        "reload_references",
		Description: "Reload all reference documents from the configured source",
	}
}

// RegisterReloadReferencesTool registers the reload_references tool with an MCP server.
func RegisterReloadReferencesTool(server *mcp.Server, service *Service) {
	handler := NewReloadReferencesHandler(service)
	mcp.AddTool(server, handler.GetToolDefinition(), handler.Handle)
}

// SearchReferencesArgument defines search_references parameters.
type SearchReferencesArgument struct {
	Query    string `json:"query" jsonschema_description:"Search query (supports phrases)"`
	Filename string `json:"filename,omitempty" jsonschema_description:"Restrict the search to one reference document"`
	Limit    int    `json:"limit,omitempty" jsonschema_description:"Maximum number of results"`
}

// SearchReferencesHandler handles the search_references MCP tool.
type SearchReferencesHandler struct {
	service *Service
}

// NewSearchReferencesHandler creates a new search_references handler.
func NewSearchReferencesHandler(service *Service) *SearchReferencesHandler {
	return &SearchReferencesHandler{service: service}
}

// Handle runs a full-text search over the reference documents.
func (h *SearchReferencesHandler) Handle(ctx context.Context, req *mcp.CallToolRequest, args SearchReferencesArgument) (*mcp.CallToolResult, any, error) {
	if strings.TrimSpace(args.Query) == "" {
		return errorResult("Query cannot be empty"), nil, nil
	}

	results, err := h.service.References().Search(args.Query, args.Filename, args.Limit)
	if err != nil {
		if errors.Is(err, corpus.ErrNotReady) || errors.Is(err, domain.ErrNoReferences) {
			return errorResult(h.service.UserMessage(err)), nil, nil
		}
		return errorResult(fmt.Sprintf("Search failed: %s", err)), nil, nil
	}

	return textResult(formatSearchResults(results)), nil, nil
}

// formatSearchResults formats search results for an MCP response.
func formatSearchResults(results *corpus.SearchResults) string {
	if results.Total == 0 {
		return fmt.Sprintf("No results found for query: %s", results.Query)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Found %d results for '%s':\n\n", results.Total, results.Query)

	for i, hit := range results.Hits {
		fmt.Fprintf(&sb, "### %d. %s\n", i+1, hit.Filename)
		fmt.Fprintf(&sb, "**Pages**: %d, **Score**: %.4f\n\n", hit.Pages, hit.Score)
		for _, fragment := range hit.Fragments {
			fmt.Fprintf(&sb, "> %s\n", fragment)
		}
		sb.WriteString("\n")
	}

	if results.Total > uint64(len(results.Hits)) {
		fmt.Fprintf(&sb, "... and %d more results\n", results.Total-uint64(len(results.Hits)))
	}
	return sb.String()
}

// GetToolDefinition returns the MCP tool definition.
func (h *SearchReferencesHandler) GetToolDefinition() *mcp.Tool {
	return &mcp.Tool{
		Name:        "search_references",
		Description: "Search the reference documents using full-text search",
	}
}

// RegisterSearchReferencesTool registers the search_references tool with an MCP server.
func RegisterSearchReferencesTool(server *mcp.Server, service *Service) {
	handler := NewSearchReferencesHandler(service)
	mcp.AddTool(server, handler.GetToolDefinition(), handler.Handle)
}

// ReadReferenceArgument defines read_reference parameters.
type ReadReferenceArgument struct {
	Filename string `json:"filename" jsonschema_description:"Reference document filename as listed by list_references"`
}

// ReadReferenceHandler handles the read_reference MCP tool.
type ReadReferenceHandler struct {
	service *Service
}

// NewReadReferenceHandler creates a new read_reference handler.
func NewReadReferenceHandler(service *Service) *ReadReferenceHandler {
	return &ReadReferenceHandler{service: service}
}

// Handle returns the extracted text of one reference document.
func (h *ReadReferenceHandler) Handle(ctx context.Context, req *mcp.CallToolRequest, args ReadReferenceArgument) (*mcp.CallToolResult, any, error) {
	if strings.TrimSpace(args.Filename) == "" {
		return errorResult("Filename cannot be empty"), nil, nil
	}

	doc, err := h.service.References().Document(args.Filename)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return errorResult(fmt.Sprintf("Reference document not found: %s", args.Filename)), nil, nil
		}
		return errorResult(h.service.UserMessage(err)), nil, nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "**File**: `%s`\n", doc.Filename)
	fmt.Fprintf(&sb, "**Pages**: %d\n", doc.Pages)
	fmt.Fprintf(&sb, "**Length**: %d characters\n\n", len(doc.Content))
	sb.WriteString(doc.Content)

	return textResult(sb.String()), nil, nil
}

// GetToolDefinition returns the MCP tool definition.
func (h *ReadReferenceHandler) GetToolDefinition() *mcp.Tool {
	return &mcp.Tool{
		Name:        "read_reference",
		Description: "Read the extracted text of a reference document",
	}
}

// RegisterReadReferenceTool registers the read_reference tool with an MCP server.
func RegisterReadReferenceTool(server *mcp.Server, service *Service) {
	handler := NewReadReferenceHandler(service)
	mcp.AddTool(server, handler.GetToolDefinition(), handler.Handle)
}
