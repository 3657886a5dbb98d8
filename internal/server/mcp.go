package server

import (
	"context"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/slotbot/internal/assistant"
	"github.com/teemow/slotbot/internal/instrumentation"
)

// MCP tool names.
const (
	MCPToolChat              = "chat"
	MCPToolCheckAvailability = "check_availability"
	MCPToolBookSlot          = "book_slot"
)

// ToolRunner runs assistant tools. *assistant.Dispatcher implements it.
type ToolRunner interface {
	Chatter
	RunTool(ctx context.Context, name string, req assistant.Request) (assistant.Reply, error)
	Registry() *assistant.Registry
}

// NewMCPServer returns an MCP server exposing the assistant tools.
func NewMCPServer(runner ToolRunner, version string) *mcpserver.MCPServer {
	s := mcpserver.NewMCPServer("slotbot", version,
		mcpserver.WithToolCapabilities(true),
	)
	RegisterTools(s, runner)
	return s
}

// RegisterTools registers the chat, check_availability and book_slot tools on s.
func RegisterTools(s *mcpserver.MCPServer, runner ToolRunner) {
	messageArg := mcp.WithString("message",
		mcp.Required(),
		mcp.Description("The request in natural language, including date and time."),
	)
	sessionArg := mcp.WithString("session_id",
		mcp.Description("Optional conversation id, used for audit logging only."),
	)

	s.AddTool(mcp.NewTool(MCPToolChat,
		mcp.WithDescription("Talk to the booking assistant. It decides whether to check availability or book a slot."),
		messageArg, sessionArg,
	), chatHandler(runner))

	names := map[string]string{
		assistant.ToolCheckAvailability: MCPToolCheckAvailability,
		assistant.ToolBookSlot:          MCPToolBookSlot,
	}
	for _, tool := range runner.Registry().Tools() {
		name, ok := names[tool.Name()]
		if !ok {
			continue
		}
		s.AddTool(mcp.NewTool(name,
			mcp.WithDescription(tool.Description()),
			messageArg, sessionArg,
		), toolHandler(runner, tool.Name()))
	}
}

func requestFromArgs(request mcp.CallToolRequest) (assistant.Request, bool) {
	args := request.GetArguments()
	message, _ := args["message"].(string)
	sessionID, _ := args["session_id"].(string)
	if strings.TrimSpace(message) == "" {
		return assistant.Request{}, false
	}
	return assistant.Request{Message: message, SessionID: sessionID}, true
}

func chatHandler(runner ToolRunner) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		req, ok := requestFromArgs(request)
		if !ok {
			return mcp.NewToolResultError("message is required"), nil
		}
		return mcp.NewToolResultText(runner.Handle(ctx, req)), nil
	}
}

func toolHandler(runner ToolRunner, toolName string) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		req, ok := requestFromArgs(request)
		if !ok {
			return mcp.NewToolResultError("message is required"), nil
		}

		reply, err := runner.RunTool(ctx, toolName, req)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if reply.Outcome == instrumentation.OutcomeError {
			return mcp.NewToolResultError(reply.Text), nil
		}
		return mcp.NewToolResultText(reply.Text), nil
	}
}
