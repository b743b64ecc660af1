package qa

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// LoadQuestionsArgument defines load_questions parameters.
type LoadQuestionsArgument struct {
	Path string `json:"path,omitempty" jsonschema_description:"Path to a PDF file containing numbered questions"`
	Text string `json:"text,omitempty" jsonschema_description:"Question text, used instead of a file (e.g. '1. Do you encrypt data? (Reference: SEC-1)')"`
	Name string `json:"name,omitempty" jsonschema_description:"Name for the question set when loading text"`
}

// LoadQuestionsHandler handles the load_questions MCP tool.
type LoadQuestionsHandler struct {
	service *Service
}

// NewLoadQuestionsHandler creates a new load_questions handler.
func NewLoadQuestionsHandler(service *Service) *LoadQuestionsHandler {
	return &LoadQuestionsHandler{service: service}
}

// Handle opens a session from a question PDF or from text.
func (h *LoadQuestionsHandler) Handle(ctx context.Context, req *mcp.CallToolRequest, args LoadQuestionsArgument) (*mcp.CallToolResult, any, error) {
	path := strings.TrimSpace(args.Path)
	text := strings.TrimSpace(args.Text)

	if (path == "") == (text == "") {
		return errorResult("Provide exactly one of path or text"), nil, nil
	}

	var (
		session Session
		err     error
	)
	if path != "" {
		session, err = h.loadFile(ctx, path)
	} else {
		name := args.Name
		if name == "" {
			name = "text"
		}
		session, err = h.service.LoadText(ctx, name, text)
	}
	if err != nil {
		return errorResult(h.service.UserMessage(err)), nil, nil
	}

	return textResult(formatSession(session)), nil, nil
}

func (h *LoadQuestionsHandler) loadFile(ctx context.Context, path string) (Session, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Session{}, fmt.Errorf("cannot access %s: %w", path, err)
	}
	if info.IsDir() {
		return Session{}, fmt.Errorf("%s is a directory", path)
	}
	// Check type and size before reading the whole file.
	if err := h.service.ValidateUpload(path, info.Size()); err != nil {
		return Session{}, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Session{}, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return h.service.Upload(ctx, filepath.Base(path), data)
}

// GetToolDefinition returns the MCP tool definition.
func (h *LoadQuestionsHandler) GetToolDefinition() *mcp.Tool {
	return &mcp.Tool{
		Name:        "load_questions",
		Description: "Load a question document (PDF path or text) and extract its numbered questions into a new session",
	}
}

// RegisterLoadQuestionsTool registers the load_questions tool with an MCP server.
func RegisterLoadQuestionsTool(server *mcp.Server, service *Service) {
	handler := NewLoadQuestionsHandler(service)
	mcp.AddTool(server, handler.GetToolDefinition(), handler.Handle)
}

// SessionArgument identifies a question session.
type SessionArgument struct {
	SessionID string `json:"session_id" jsonschema_description:"Session id returned by load_questions"`
}

// AnswerQuestionsHandler handles the answer_questions MCP tool.
type AnswerQuestionsHandler struct {
	service *Service
}

// NewAnswerQuestionsHandler creates a new answer_questions handler.
func NewAnswerQuestionsHandler(service *Service) *AnswerQuestionsHandler {
	return &AnswerQuestionsHandler{service: service}
}

// Handle answers every question of a session against the reference corpus.
func (h *AnswerQuestionsHandler) Handle(ctx context.Context, req *mcp.CallToolRequest, args SessionArgument) (*mcp.CallToolResult, any, error) {
	if strings.TrimSpace(args.SessionID) == "" {
		return errorResult("Session id cannot be empty"), nil, nil
	}

	session, err := h.service.Answer(ctx, args.SessionID)
	if err != nil {
		return errorResult(h.service.UserMessage(err)), nil, nil
	}

	return textResult(formatAnswers(session)), nil, nil
}

// GetToolDefinition returns the MCP tool definition.
func (h *AnswerQuestionsHandler) GetToolDefinition() *mcp.Tool {
	return &mcp.Tool{
		Name:        "answer_questions",
		Description: "Answer every question of a session with the best matching reference snippets and their sources",
	}
}

// RegisterAnswerQuestionsTool registers the answer_questions tool with an MCP server.
func RegisterAnswerQuestionsTool(server *mcp.Server, service *Service) {
	handler := NewAnswerQuestionsHandler(service)
	mcp.AddTool(server, handler.GetToolDefinition(), handler.Handle)
}

// ExportResultsArgument defines export_results parameters.
type ExportResultsArgument struct {
	SessionID  string `json:"session_id" jsonschema_description:"Session id returned by load_questions"`
	OutputPath string `json:"output_path,omitempty" jsonschema_description:"Optional file to write the report to"`
}

// ExportResultsHandler handles the export_results MCP tool.
type ExportResultsHandler struct {
	service *Service
}

// NewExportResultsHandler creates a new export_results handler.
func NewExportResultsHandler(service *Service) *ExportResultsHandler {
	return &ExportResultsHandler{service: service}
}

// Handle renders the session report and optionally writes it to a file.
func (h *ExportResultsHandler) Handle(ctx context.Context, req *mcp.CallToolRequest, args ExportResultsArgument) (*mcp.CallToolResult, any, error) {
	if strings.TrimSpace(args.SessionID) == "" {
		return errorResult("Session id cannot be empty"), nil, nil
	}

	text, err := h.service.Export(args.SessionID)
	if err != nil {
		return errorResult(h.service.UserMessage(err)), nil, nil
	}

	if args.OutputPath == "" {
		return textResult(text), nil, nil
	}

	if err := os.WriteFile(args.OutputPath, []byte(text), 0o644); err != nil {
		return errorResult(fmt.Sprintf("Failed to write report: %s", err)), nil, nil
	}
	return textResult(fmt.Sprintf("Report written to %s (%d bytes)", args.OutputPath, len(text))), nil, nil
}

// GetToolDefinition returns the MCP tool definition.
func (h *ExportResultsHandler) GetToolDefinition() *mcp.Tool {
	return &mcp.Tool{
		Name:        "export_results",
		Description: "Export a session's questions and answers as a plain text report",
	}
}

// RegisterExportResultsTool registers the export_results tool with an MCP server.
func RegisterExportResultsTool(server *mcp.Server, service *Service) {
	handler := NewExportResultsHandler(service)
	mcp.AddTool(server, handler.GetToolDefinition(), handler.Handle)
}

func formatSession(session Session) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Session: %s\n", session.ID)
	fmt.Fprintf(&sb, "Source: %s\n", session.SourceName)
	fmt.Fprintf(&sb, "Questions: %d\n", len(session.Questions))
	if len(session.Questions) == 0 {
		sb.WriteString("\nNo questions found. Questions must be numbered and end with a (Reference: ...) marker.\n")
		return sb.String()
	}

	sb.WriteString("\n")
	for _, q := range session.Questions {
		fmt.Fprintf(&sb, "%d. %s\n", q.ID, q.Text)
	}
	return sb.String()
}

func formatAnswers(session Session) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Answered %d of %d questions (session %s)\n\n", session.AnsweredCount(), len(session.Questions), session.ID)
	for _, q := range session.Questions {
		fmt.Fprintf(&sb, "### %d. %s\n\n", q.ID, q.Text)
		sb.WriteString(q.Answer)
		sb.WriteString("\n\n")
		if q.SourceFile != "" {
			fmt.Fprintf(&sb, "**Sources**: %s\n\n", q.SourceFile)
		}
	}
	return sb.String()
}
