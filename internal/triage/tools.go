package triage

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Urgency is the triage severity bucket, ordered critical > high > moderate > low.
type Urgency string

const (
	UrgencyCritical Urgency = "critical"
	UrgencyHigh     Urgency = "high"
	UrgencyModerate Urgency = "moderate"
	UrgencyLow      Urgency = "low"
)

// KnowledgeBase answers a free-text clinical query from the guideline corpus.
type KnowledgeBase interface {
	Answer(ctx context.Context, query string) (string, error)
}

// The three tool request shapes form a closed set; adding a tool means adding
// a type here and a case to Dispatch.

type TriageRequest struct {
	Age          int    `json:"age"`
	Symptoms     string `json:"symptoms"`
	Duration     string `json:"duration"`
	RiskFactors  string `json:"risk_factors,omitempty"`
	OtherContext string `json:"other_context,omitempty"`
}

type ScheduleRequest struct {
	UrgencyLevel string `json:"urgency_level" jsonschema:"enum=critical,enum=high,enum=moderate,enum=low"`
	Speciality   string `json:"speciality,omitempty"`
}

type NotifyRequest struct {
	UrgencyLevel    string `json:"urgency_level"`
	PatientSummary  string `json:"patient_summary"`
	AppointmentSlot string `json:"appointment_slot,omitempty"`
}

const immediateSlot = "IMMEDIATE (emergency department recommended)"

// ClassifyUrgency buckets a guideline answer by case-insensitive substring
// search. The cascade order is the contract: critical-sounding language wins
// even when milder keywords also appear.
func ClassifyUrgency(answer string) Urgency {
	txt := strings.ToLower(answer)
	switch {
	case strings.Contains(txt, "emergency") ||
		strings.Contains(txt, "life-threatening") ||
		strings.Contains(txt, "call 911"):
		return UrgencyCritical
	case strings.Contains(txt, "emergency department") ||
		strings.Contains(txt, "urgent evaluation"):
		return UrgencyHigh
	case strings.Contains(txt, "monitor at home") ||
		strings.Contains(txt, "mild"):
		return UrgencyLow
	default:
		return UrgencyModerate
	}
}

func (s *Server) triagePatient(ctx context.Context, req TriageRequest) (map[string]any, error) {
	query := fmt.Sprintf(
		"Patient aged %d years old. Symptoms: %s. Duration: %s. "+
			"Risk factors: %s. Other context: %s. "+
			"According to the guidelines, what urgency level is appropriate "+
			"(critical / high / moderate / low) and what basic recommendations apply?",
		req.Age, req.Symptoms, req.Duration, req.RiskFactors, req.OtherContext,
	)

	answer, err := s.kb.Answer(ctx, query)
	if err != nil {
		return nil, err
	}

	return map[string]any{
		"urgency_level":     string(ClassifyUrgency(answer)),
		"guidelines_answer": answer,
	}, nil
}

func (s *Server) scheduleAppointment(req ScheduleRequest) map[string]any {
	level := req.UrgencyLevel
	if level == "" {
		level = string(UrgencyModerate)
	}
	speciality := req.Speciality
	if speciality == "" {
		speciality = "general practitioner"
	}

	now := s.now().UTC()
	var slot string
	switch Urgency(level) {
	case UrgencyCritical:
		slot = immediateSlot
	case UrgencyHigh:
		slot = now.Add(2 * time.Hour).Format(time.RFC3339)
	case UrgencyModerate:
		slot = now.Add(24 * time.Hour).Format(time.RFC3339)
	default:
		slot = now.Add(72 * time.Hour).Format(time.RFC3339)
	}

	return map[string]any{
		"selected_slot": slot,
		"speciality":    speciality,
		"note":          "Simulated appointment slot for demo purposes.",
	}
}

func (s *Server) notifyTeam(req NotifyRequest) map[string]any {
	level := req.UrgencyLevel
	if level == "" {
		level = string(UrgencyModerate)
	}

	// Truncation is unconditional: the trailing "..." is part of the message
	// format whether or not anything was cut.
	summary := []rune(req.PatientSummary)
	if len(summary) > 200 {
		summary = summary[:200]
	}

	message := fmt.Sprintf(
		"[MOCK NOTIFICATION] Urgency: %s | Appointment: %s | Patient summary: %s...",
		strings.ToUpper(level), req.AppointmentSlot, string(summary),
	)

	return map[string]any{
		"status":    "sent",
		"message":   message,
		"timestamp": s.now().UTC().Format(time.RFC3339),
	}
}
