package qa

import (
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// RegisterTools registers every question and reference tool with an MCP server.
func RegisterTools(server *mcp.Server, service *Service) {
	RegisterLoadQuestionsTool(server, service)
	RegisterAnswerQuestionsTool(server, service)
	RegisterExportResultsTool(server, service)
	RegisterListReferencesTool(server, service)
	RegisterReloadReferencesTool(server, service)
	RegisterSearchReferencesTool(server, service)
	RegisterReadReferenceTool(server, service)
}

func errorResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: text},
		},
		IsError: true,
	}
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: text},
		},
	}
}
