package triage

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

type fakeKB struct {
	answer string
	err    error
	lastQ  string
}

func (f *fakeKB) Answer(_ context.Context, query string) (string, error) {
	f.lastQ = query
	return f.answer, f.err
}

func fixedServer(kb KnowledgeBase) *Server {
	s := NewServer(kb)
	s.now = func() time.Time {
		return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	}
	return s
}

func TestToolSchemaReflection(t *testing.T) {
	schema := toolSchema[TriageRequest]()
	if schema.Type != "object" {
		t.Fatalf("schema type: %q", schema.Type)
	}
	for _, name := range []string{"age", "symptoms", "duration", "risk_factors", "other_context"} {
		if _, ok := schema.Properties[name]; !ok {
			t.Errorf("schema missing property %q", name)
		}
	}
	required := strings.Join(schema.Required, ",")
	for _, name := range []string{"age", "symptoms", "duration"} {
		if !strings.Contains(required, name) {
			t.Errorf("schema should require %q, got %q", name, required)
		}
	}
	for _, name := range []string{"risk_factors", "other_context"} {
		if strings.Contains(required, name) {
			t.Errorf("schema should not require optional %q", name)
		}
	}

	if schema := toolSchema[ScheduleRequest](); schema.Properties["urgency_level"] == nil {
		t.Fatalf("schedule schema missing urgency_level")
	}
	if schema := toolSchema[NotifyRequest](); schema.Properties["patient_summary"] == nil {
		t.Fatalf("notify schema missing patient_summary")
	}
}

func TestClassifyUrgency(t *testing.T) {
	cases := []struct {
		answer string
		want   Urgency
	}{
		{"You should call 911 right now.", UrgencyCritical},
		{"This may be life-threatening.", UrgencyCritical},
		{"Go to the emergency department.", UrgencyCritical}, // "emergency" dominates
		{"Needs urgent evaluation within hours.", UrgencyHigh},
		{"Symptoms are mild, monitor at home.", UrgencyLow},
		{"Schedule a routine follow-up.", UrgencyModerate},
		{"", UrgencyModerate},
		// Cascade tie-break: critical wording wins over milder keywords.
		{"This requires emergency evaluation but symptoms are otherwise mild", UrgencyCritical},
	}
	for _, tc := range cases {
		if got := ClassifyUrgency(tc.answer); got != tc.want {
			t.Errorf("ClassifyUrgency(%q) = %s, want %s", tc.answer, got, tc.want)
		}
	}
}

func TestTriagePatientQueryAndPayload(t *testing.T) {
	kb := &fakeKB{answer: "Call 911 immediately."}
	s := fixedServer(kb)

	result, err := s.triagePatient(context.Background(), TriageRequest{
		Age:      54,
		Symptoms: "chest pain and shortness of breath",
		Duration: "2 hours",
	})
	if err != nil {
		t.Fatalf("triage: %v", err)
	}
	if result["urgency_level"] != "critical" {
		t.Fatalf("urgency: %v", result["urgency_level"])
	}
	if result["guidelines_answer"] != "Call 911 immediately." {
		t.Fatalf("guidelines: %v", result["guidelines_answer"])
	}
	if !strings.Contains(kb.lastQ, "chest pain and shortness of breath") ||
		!strings.Contains(kb.lastQ, "2 hours") ||
		!strings.Contains(kb.lastQ, "54 years old") {
		t.Fatalf("query missing profile fields: %q", kb.lastQ)
	}
}

func TestTriagePatientKBFailure(t *testing.T) {
	s := fixedServer(&fakeKB{err: errors.New("index unavailable")})
	if _, err := s.triagePatient(context.Background(), TriageRequest{Age: 30}); err == nil {
		t.Fatalf("expected error from kb failure")
	}
}

func TestScheduleAppointmentCritical(t *testing.T) {
	s := fixedServer(&fakeKB{})
	result := s.scheduleAppointment(ScheduleRequest{UrgencyLevel: "critical"})
	if result["selected_slot"] != "IMMEDIATE (emergency department recommended)" {
		t.Fatalf("critical slot: %v", result["selected_slot"])
	}
	if result["speciality"] != "general practitioner" {
		t.Fatalf("default speciality: %v", result["speciality"])
	}
}

func TestScheduleAppointmentOffsets(t *testing.T) {
	s := fixedServer(&fakeKB{})
	cases := []struct {
		level string
		want  string
	}{
		{"high", "2025-06-01T14:00:00Z"},
		{"moderate", "2025-06-02T12:00:00Z"},
		{"low", "2025-06-04T12:00:00Z"},
		{"whatever", "2025-06-04T12:00:00Z"}, // unrecognized falls through
	}
	for _, tc := range cases {
		result := s.scheduleAppointment(ScheduleRequest{UrgencyLevel: tc.level})
		slot, _ := result["selected_slot"].(string)
		if slot != tc.want {
			t.Errorf("schedule(%s) = %s, want %s", tc.level, slot, tc.want)
		}
		if !strings.HasSuffix(slot, "Z") {
			t.Errorf("slot %q not Z-suffixed", slot)
		}
	}
}

func TestNotifyTeamEllipsis(t *testing.T) {
	s := fixedServer(&fakeKB{})

	short := s.notifyTeam(NotifyRequest{
		UrgencyLevel:   "high",
		PatientSummary: "0123456789",
	})
	msg, _ := short["message"].(string)
	if !strings.HasSuffix(msg, "0123456789...") {
		t.Fatalf("short summary message: %q", msg)
	}

	long := s.notifyTeam(NotifyRequest{
		UrgencyLevel:   "critical",
		PatientSummary: strings.Repeat("x", 500),
	})
	msg, _ = long["message"].(string)
	if !strings.HasSuffix(msg, "...") {
		t.Fatalf("long summary message missing ellipsis: %q", msg)
	}
	if strings.Count(msg, "x") != 200 {
		t.Fatalf("long summary not truncated to 200, got %d", strings.Count(msg, "x"))
	}
	if !strings.Contains(msg, "Urgency: CRITICAL") {
		t.Fatalf("urgency not upper-cased: %q", msg)
	}

	if long["status"] != "sent" {
		t.Fatalf("status: %v", long["status"])
	}
	stamp, _ := long["timestamp"].(string)
	if _, err := time.Parse(time.RFC3339, stamp); err != nil {
		t.Fatalf("timestamp %q not RFC3339: %v", stamp, err)
	}
}
