package triage

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/jsonschema-go/jsonschema"
	invopop "github.com/invopop/jsonschema"
	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
)

type ToolName string

const (
	ToolTriagePatient       ToolName = "triage_patient"
	ToolScheduleAppointment ToolName = "schedule_appointment"
	ToolNotifyTeam          ToolName = "notify_team"
)

// Server implements the three triage tools. It holds no cross-call state; the
// knowledge base is the only collaborator.
type Server struct {
	kb  KnowledgeBase
	now func() time.Time
}

func NewServer(kb KnowledgeBase) *Server {
	return &Server{kb: kb, now: time.Now}
}

// Dispatch runs one tool call and always returns a payload: successes carry
// ok:true, failures ok:false plus error/details. Errors never cross this
// boundary as Go errors.
func (s *Server) Dispatch(ctx context.Context, name ToolName, args json.RawMessage) map[string]any {
	switch name {
	case ToolTriagePatient:
		var req TriageRequest
		if err := json.Unmarshal(args, &req); err != nil {
			return errPayload("Triage error", err)
		}
		result, err := s.triagePatient(ctx, req)
		if err != nil {
			return errPayload("Triage error", err)
		}
		return okPayload(result)

	case ToolScheduleAppointment:
		var req ScheduleRequest
		if err := json.Unmarshal(args, &req); err != nil {
			return errPayload("Schedule error", err)
		}
		return okPayload(s.scheduleAppointment(req))

	case ToolNotifyTeam:
		var req NotifyRequest
		if err := json.Unmarshal(args, &req); err != nil {
			return errPayload("Notify error", err)
		}
		return okPayload(s.notifyTeam(req))

	default:
		return map[string]any{
			"ok":    false,
			"error": fmt.Sprintf("Unknown tool: %s", name),
		}
	}
}

func okPayload(result map[string]any) map[string]any {
	payload := map[string]any{"ok": true}
	for k, v := range result {
		payload[k] = v
	}
	return payload
}

func errPayload(class string, err error) map[string]any {
	return map[string]any{
		"ok":      false,
		"error":   class,
		"details": err.Error(),
	}
}

// MCPServer registers the tools on a fresh MCP server instance. Input schemas
// are reflected from the typed request structs.
func (s *Server) MCPServer() *mcpsdk.Server {
	srv := mcpsdk.NewServer(&mcpsdk.Implementation{
		Name:    "healthcare-tool-server",
		Version: "0.1.0",
	}, nil)

	srv.AddTool(&mcpsdk.Tool{
		Name: string(ToolTriagePatient),
		Description: "Analyze the patient's profile (symptoms, risk factors, etc.) " +
			"and return an urgency level + recommendations.",
		InputSchema: toolSchema[TriageRequest](),
	}, s.handle(ToolTriagePatient))

	srv.AddTool(&mcpsdk.Tool{
		Name:        string(ToolScheduleAppointment),
		Description: "Propose a simulated appointment slot depending on urgency level.",
		InputSchema: toolSchema[ScheduleRequest](),
	}, s.handle(ToolScheduleAppointment))

	srv.AddTool(&mcpsdk.Tool{
		Name:        string(ToolNotifyTeam),
		Description: "Notify the medical team or emergency department with a summary.",
		InputSchema: toolSchema[NotifyRequest](),
	}, s.handle(ToolNotifyTeam))

	return srv
}

func (s *Server) handle(name ToolName) mcpsdk.ToolHandler {
	return func(ctx context.Context, req *mcpsdk.CallToolRequest) (*mcpsdk.CallToolResult, error) {
		payload := s.Dispatch(ctx, name, req.Params.Arguments)
		body, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshal %s payload: %w", name, err)
		}
		if ok, _ := payload["ok"].(bool); !ok {
			slog.WarnContext(ctx, "tool call failed",
				"tool", string(name),
				"error", payload["error"])
		}
		return &mcpsdk.CallToolResult{
			Content: []mcpsdk.Content{&mcpsdk.TextContent{Text: string(body)}},
		}, nil
	}
}

// toolSchema reflects a request struct into the SDK's schema type. The
// reflection runs over fixed types at registration time, so a failure here is
// a programming error.
func toolSchema[T any]() *jsonschema.Schema {
	reflector := invopop.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	var v T
	raw, err := json.Marshal(reflector.Reflect(v))
	if err != nil {
		panic(fmt.Sprintf("marshal tool schema for %T: %v", v, err))
	}
	var schema jsonschema.Schema
	if err := json.Unmarshal(raw, &schema); err != nil {
		panic(fmt.Sprintf("decode tool schema for %T: %v", v, err))
	}
	return &schema
}
