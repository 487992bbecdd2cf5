package triage

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestDispatchUnknownTool(t *testing.T) {
	s := fixedServer(&fakeKB{})
	payload := s.Dispatch(context.Background(), ToolName("make_coffee"), json.RawMessage(`{}`))
	if ok, _ := payload["ok"].(bool); ok {
		t.Fatalf("unknown tool should not be ok: %v", payload)
	}
	errMsg, _ := payload["error"].(string)
	if errMsg != "Unknown tool: make_coffee" {
		t.Fatalf("error message: %q", errMsg)
	}
}

func TestDispatchTriageFailurePayload(t *testing.T) {
	s := fixedServer(&fakeKB{err: context.DeadlineExceeded})
	payload := s.Dispatch(context.Background(), ToolTriagePatient, json.RawMessage(`{"age":30,"symptoms":"cough","duration":"1 day"}`))
	if ok, _ := payload["ok"].(bool); ok {
		t.Fatalf("kb failure should not be ok: %v", payload)
	}
	if payload["error"] != "Triage error" {
		t.Fatalf("error class: %v", payload["error"])
	}
	if payload["details"] == "" {
		t.Fatalf("details missing: %v", payload)
	}
}

func TestInProcessClientRoundtrip(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client := NewInProcessClient(fixedServer(&fakeKB{answer: "Monitor at home, symptoms are mild."}))

	payload := client.TriagePatient(ctx, TriageRequest{
		Age:      25,
		Symptoms: "runny nose",
		Duration: "3 days",
	})
	if payload.Failed() {
		t.Fatalf("triage failed: %s", payload.Pretty())
	}
	if got := payload.String("urgency_level", ""); got != "low" {
		t.Fatalf("urgency: %q", got)
	}

	// Each invocation gets its own connect/teardown cycle; a second call must
	// work after the first session closed.
	payload = client.ScheduleAppointment(ctx, ScheduleRequest{UrgencyLevel: "high"})
	if payload.Failed() {
		t.Fatalf("schedule failed: %s", payload.Pretty())
	}
	if payload.String("selected_slot", "") != "2025-06-01T14:00:00Z" {
		t.Fatalf("slot: %q", payload.String("selected_slot", ""))
	}
}

// Exercises the critical branch of each tool through the registered schemas
// and the real dispatch transport.
func TestInProcessClientCriticalFlow(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client := NewInProcessClient(fixedServer(&fakeKB{
		answer: "This requires emergency evaluation but symptoms are otherwise mild",
	}))

	payload := client.TriagePatient(ctx, TriageRequest{
		Age:      54,
		Symptoms: "chest pain",
		Duration: "2 hours",
	})
	if payload.Failed() {
		t.Fatalf("triage failed: %s", payload.Pretty())
	}
	if got := payload.String("urgency_level", ""); got != "critical" {
		t.Fatalf("urgency: %q", got)
	}

	payload = client.ScheduleAppointment(ctx, ScheduleRequest{UrgencyLevel: "critical"})
	if payload.Failed() {
		t.Fatalf("schedule failed: %s", payload.Pretty())
	}
	if got := payload.String("selected_slot", ""); got != "IMMEDIATE (emergency department recommended)" {
		t.Fatalf("slot: %q", got)
	}

	payload = client.NotifyTeam(ctx, NotifyRequest{
		UrgencyLevel:    "critical",
		PatientSummary:  "short summary",
		AppointmentSlot: "IMMEDIATE (emergency department recommended)",
	})
	if payload.Failed() {
		t.Fatalf("notify failed: %s", payload.Pretty())
	}
	if got := payload.String("status", ""); got != "sent" {
		t.Fatalf("status: %q", got)
	}
	msg := payload.String("message", "")
	if !strings.HasSuffix(msg, "short summary...") {
		t.Fatalf("message ellipsis: %q", msg)
	}
}

func TestClientTransportFailurePayload(t *testing.T) {
	client := NewCommandClient("") // empty command cannot dial
	payload := client.NotifyTeam(context.Background(), NotifyRequest{
		UrgencyLevel:   "low",
		PatientSummary: "summary",
	})
	if !payload.Failed() {
		t.Fatalf("expected transport failure payload, got %v", payload)
	}
	if payload.String("tool_name", "") != "notify_team" {
		t.Fatalf("tool_name: %v", payload["tool_name"])
	}
}

func TestPayloadHelpers(t *testing.T) {
	p := Payload{"ok": true, "selected_slot": "x"}
	if p.Failed() {
		t.Fatalf("payload without error field should not be failed")
	}
	if p.String("selected_slot", "fallback") != "x" {
		t.Fatalf("String existing key")
	}
	if p.String("missing", "fallback") != "fallback" {
		t.Fatalf("String missing key")
	}
	if p.String("ok", "fallback") != "fallback" {
		t.Fatalf("String non-string value should fall back")
	}
}
