package triage

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
)

// Payload is a decoded tool result. Server failures carry ok:false plus an
// error field; transport failures are converted to the same shape by the
// client, so callers only ever inspect the payload.
type Payload map[string]any

// Failed reports whether the payload carries an error, from either the tool
// itself or the dispatch transport.
func (p Payload) Failed() bool {
	_, ok := p["error"]
	return ok
}

// String returns the named field, or fallback when it is absent or not a string.
func (p Payload) String(key, fallback string) string {
	if v, ok := p[key].(string); ok {
		return v
	}
	return fallback
}

// Pretty renders the payload as indented JSON for error reports.
func (p Payload) Pretty() string {
	body, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", map[string]any(p))
	}
	return string(body)
}

// DialFunc produces a fresh transport for one tool invocation.
type DialFunc func(ctx context.Context) (mcpsdk.Transport, error)

// Client calls the tool dispatch server. Every invocation runs a full
// connect / call / teardown cycle; no session persists across calls.
type Client struct {
	dial DialFunc
}

func NewClient(dial DialFunc) *Client {
	return &Client{dial: dial}
}

// NewCommandClient dispatches to a tool server subprocess over stdio, one
// process per invocation, mirroring how the server is run in production.
func NewCommandClient(command string, args ...string) *Client {
	return NewClient(func(ctx context.Context) (mcpsdk.Transport, error) {
		if strings.TrimSpace(command) == "" {
			return nil, fmt.Errorf("tool server command is empty")
		}
		cmd := exec.CommandContext(ctx, command, args...)
		return &mcpsdk.CommandTransport{Command: cmd}, nil
	})
}

// NewInProcessClient dispatches to srv over in-memory pipes, still one
// connect/teardown cycle per invocation.
func NewInProcessClient(srv *Server) *Client {
	mcpServer := srv.MCPServer()
	return NewClient(func(ctx context.Context) (mcpsdk.Transport, error) {
		serverTransport, clientTransport := mcpsdk.NewInMemoryTransports()
		session, err := mcpServer.Connect(ctx, serverTransport, nil)
		if err != nil {
			return nil, fmt.Errorf("connect in-process server: %w", err)
		}
		go func() {
			session.Wait()
		}()
		return clientTransport, nil
	})
}

func (c *Client) TriagePatient(ctx context.Context, req TriageRequest) Payload {
	return c.call(ctx, ToolTriagePatient, req)
}

func (c *Client) ScheduleAppointment(ctx context.Context, req ScheduleRequest) Payload {
	return c.call(ctx, ToolScheduleAppointment, req)
}

func (c *Client) NotifyTeam(ctx context.Context, req NotifyRequest) Payload {
	return c.call(ctx, ToolNotifyTeam, req)
}

func (c *Client) call(ctx context.Context, name ToolName, req any) Payload {
	args, err := toArguments(req)
	if err != nil {
		return transportErr(name, "Invalid tool arguments", "details", err.Error())
	}

	transport, err := c.dial(ctx)
	if err != nil {
		return transportErr(name, "Tool server unavailable", "details", err.Error())
	}

	client := mcpsdk.NewClient(&mcpsdk.Implementation{
		Name:    "voice-triage-agent",
		Version: "0.1.0",
	}, nil)

	session, err := client.Connect(ctx, transport, nil)
	if err != nil {
		return transportErr(name, "Tool server connect failed", "details", err.Error())
	}
	defer func() {
		if err := session.Close(); err != nil {
			slog.DebugContext(ctx, "tool session close", "tool", string(name), "error", err)
		}
	}()

	result, err := session.CallTool(ctx, &mcpsdk.CallToolParams{
		Name:      string(name),
		Arguments: args,
	})
	if err != nil {
		return transportErr(name, "Tool call failed", "details", err.Error())
	}
	if len(result.Content) == 0 {
		return transportErr(name, "MCP tool returned no content")
	}

	for _, content := range result.Content {
		tc, ok := content.(*mcpsdk.TextContent)
		if !ok {
			continue
		}
		raw := strings.TrimSpace(tc.Text)
		if raw == "" {
			return transportErr(name, "MCP tool returned empty text content")
		}
		var payload Payload
		if err := json.Unmarshal([]byte(raw), &payload); err != nil {
			return transportErr(name, "Invalid JSON from MCP tool",
				"raw_text", raw, "json_error", err.Error())
		}
		return payload
	}

	return transportErr(name, "No TextContent from MCP tool")
}

func toArguments(req any) (map[string]any, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	var args map[string]any
	if err := json.Unmarshal(body, &args); err != nil {
		return nil, err
	}
	return args, nil
}

func transportErr(name ToolName, msg string, kv ...string) Payload {
	p := Payload{
		"error":     msg,
		"tool_name": string(name),
	}
	for i := 0; i+1 < len(kv); i += 2 {
		p[kv[i]] = kv[i+1]
	}
	return p
}
