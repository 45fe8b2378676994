package autofill

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// RegisterMCP registers the engine's actions as MCP tools.
func (e *Engine) RegisterMCP(srv *mcp.Server) {
	router := e.Router()

	recordProps := map[string]any{
		"clientData": map[string]any{"type": "object", "description": "Client record keyed by section name"},
		"recordId":   map[string]any{"type": "string", "description": "Id of a stored client record"},
	}

	registerTool(srv, router, ActionPing, &mcp.Tool{
		Name:        "ds160_ping",
		Description: "Check that the fill engine is loaded.",
		InputSchema: inputSchema(map[string]any{}, nil),
	})
	registerTool(srv, router, ActionFillForm, &mcp.Tool{
		Name:        "ds160_fill_form",
		Description: "Detect the current DS-160 section in the browser and fill it from a client record.",
		InputSchema: inputSchema(recordProps, nil),
	})
	registerTool(srv, router, ActionDetectSection, &mcp.Tool{
		Name:        "ds160_detect_section",
		Description: "Report which DS-160 section the browser is showing.",
		InputSchema: inputSchema(map[string]any{}, nil),
	})
	registerTool(srv, router, ActionPlan, &mcp.Tool{
		Name:        "ds160_plan",
		Description: "List the field instructions and values a fill would apply, without filling.",
		InputSchema: inputSchema(map[string]any{
			"section":    map[string]any{"type": "string", "description": "Section name; detected from the browser when empty"},
			"clientData": recordProps["clientData"],
			"recordId":   recordProps["recordId"],
		}, nil),
	})
	registerTool(srv, router, ActionSaveRecord, &mcp.Tool{
		Name:        "ds160_save_record",
		Description: "Store a client record for later fills.",
		InputSchema: inputSchema(map[string]any{
			"recordId":   map[string]any{"type": "string", "description": "Existing record to replace"},
			"label":      map[string]any{"type": "string", "description": "Human readable label"},
			"clientData": recordProps["clientData"],
		}, []string{"clientData"}),
	})
	registerTool(srv, router, ActionListRuns, &mcp.Tool{
		Name:        "ds160_list_runs",
		Description: "List recent fill runs, optionally for one record.",
		InputSchema: inputSchema(map[string]any{
			"recordId": recordProps["recordId"],
			"limit":    map[string]any{"type": "integer", "description": "Max runs (default 50)"},
		}, nil),
	})
}

// registerTool exposes one router action as a tool: the tool arguments
// become the message body with the action added.
func registerTool(srv *mcp.Server, router *Router, action string, tool *mcp.Tool) {
	srv.AddTool(tool, func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		msg, err := toMessage(action, req.Params.Arguments)
		if err != nil {
			var res mcp.CallToolResult
			res.SetError(fmt.Errorf("invalid arguments: %w", err))
			return &res, nil
		}
		resp, err := router.Call(ctx, msg)
		if err != nil {
			var res mcp.CallToolResult
			res.SetError(err)
			return &res, nil
		}
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: string(resp)}},
		}, nil
	})
}

func toMessage(action string, args json.RawMessage) ([]byte, error) {
	m := map[string]json.RawMessage{}
	if len(args) > 0 && string(args) != "null" {
		if err := json.Unmarshal(args, &m); err != nil {
			return nil, err
		}
	}
	m["action"], _ = json.Marshal(action)
	return json.Marshal(m)
}

// inputSchema builds a JSON Schema object with type "object".
func inputSchema(properties map[string]any, required []string) map[string]any {
	s := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		s["required"] = required
	}
	return s
}
