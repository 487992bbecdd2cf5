package intake

import (
	"strings"
	"testing"
	"time"
)

func TestRenderReportDefaults(t *testing.T) {
	report := RenderReport(&ReportData{
		GeneratedAt: time.Date(2025, 6, 1, 9, 30, 0, 0, time.Local),
	})

	for _, want := range []string{
		"MEDICAL TRIAGE REPORT: VOICE INTAKE",
		"Generated: 2025-06-01 09:30:00",
		"Age:              Not provided years",
		"Symptoms:         Not provided",
		"Duration:         Not provided",
		"Risk Factors:     None mentioned",
		"Other Context:    None",
		"Urgency Level:    MODERATE",
		"No recommendation available",
		"Slot:             Not scheduled",
		"Specialty:        General",
		"Status:           UNKNOWN",
		"Timestamp:        N/A",
		"CONVERSATION TRANSCRIPT:",
	} {
		if !strings.Contains(report, want) {
			t.Errorf("report missing %q:\n%s", want, report)
		}
	}
}

func TestRenderReportValues(t *testing.T) {
	report := RenderReport(&ReportData{
		GeneratedAt: time.Date(2025, 6, 1, 9, 30, 0, 0, time.Local),
		Profile: PatientProfile{
			Age:          41,
			Symptoms:     "severe headache",
			Duration:     "6 hours",
			RiskFactors:  "hypertension",
			OtherContext: "recent travel",
		},
		Urgency:     "high",
		Guidelines:  "Needs urgent evaluation.",
		Slot:        "2025-06-01T14:00:00Z",
		Speciality:  "neurology",
		Note:        "Simulated appointment slot for demo purposes.",
		NotifStatus: "sent",
		NotifStamp:  "2025-06-01T12:00:00Z",
		Transcript:  "Patient: my head hurts\nAgent: since when?\n",
	})

	for _, want := range []string{
		"Age:              41 years",
		"Symptoms:         severe headache",
		"Risk Factors:     hypertension",
		"Urgency Level:    HIGH",
		"Needs urgent evaluation.",
		"Slot:             2025-06-01T14:00:00Z",
		"Specialty:        neurology",
		"Status:           SENT",
		"Patient: my head hurts",
		"Agent: since when?",
	} {
		if !strings.Contains(report, want) {
			t.Errorf("report missing %q:\n%s", want, report)
		}
	}
}
