package mcpserver

import (
	"github.com/mark3labs/mcp-go/server"
)

// Version is reported to MCP clients during initialization.
const Version = "1.0.0"

// NewMCPServer creates a configured MCP server with all botdesk tools registered.
func NewMCPServer(cfg Config) *server.MCPServer {
	s := server.NewMCPServer("botdesk", Version)
	h := NewHandlers(NewBotdeskClient(cfg))

	s.AddTool(ToolGetSession, h.HandleGetSession)
	s.AddTool(ToolListBots, h.HandleListBots)
	s.AddTool(ToolCreateBot, h.HandleCreateBot)
	s.AddTool(ToolSwitchBot, h.HandleSwitchBot)
	s.AddTool(ToolUpdateBot, h.HandleUpdateBot)
	s.AddTool(ToolDeleteBot, h.HandleDeleteBot)
	s.AddTool(ToolSendMessage, h.HandleSendMessage)
	s.AddTool(ToolAddPages, h.HandleAddPages)
	s.AddTool(ToolGetUsage, h.HandleGetUsage)

	return s
}
