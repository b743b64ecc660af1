package mcp

import (
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/sha1n/mcp-refqa-server/internal/qa"
)

// ServerConfig contains configuration for creating an MCP server
type ServerConfig struct {
	Name    string
	Version string

	// QASvc, when set, exposes the question and reference tools.
	QASvc *qa.Service
}

// CreateServer creates and configures the MCP server
func CreateServer(cfg ServerConfig) *mcp.Server {
	s := mcp.NewServer(&mcp.Implementation{
		Name:    cfg.Name,
		Version: cfg.Version,
	}, nil)

	if cfg.QASvc != nil {
		qa.RegisterTools(s, cfg.QASvc)
	}

	return s
}
