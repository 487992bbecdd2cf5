package intake

import (
	"fmt"
	"strconv"
	"strings"
)

// Field defaults used when a pipeline stage produced no value.
const (
	defaultAge         = "Not provided"
	defaultSymptoms    = "Not provided"
	defaultDuration    = "Not provided"
	defaultRiskFactors = "None mentioned"
	defaultContext     = "None"
	defaultGuidelines  = "No recommendation available"
	defaultSlot        = "Not scheduled"
	defaultSpeciality  = "General"
	defaultNotifStatus = "unknown"
)

// RenderReport interpolates the derived values into the fixed report
// template. The transcript is appended verbatim at the end.
func RenderReport(d *ReportData) string {
	age := defaultAge
	if d.Profile.Age > 0 {
		age = strconv.Itoa(d.Profile.Age)
	}

	return fmt.Sprintf(`MEDICAL TRIAGE REPORT: VOICE INTAKE
Generated: %s

PATIENT INFORMATION:
Age:              %s years
Symptoms:         %s
Duration:         %s
Risk Factors:     %s
Other Context:    %s

TRIAGE ASSESSMENT:
Urgency Level:    %s

Clinical Recommendation:
%s

APPOINTMENT SCHEDULED:
Slot:             %s
Specialty:        %s
Note:             %s

TEAM NOTIFICATION:
Status:           %s
Timestamp:        %s

CONVERSATION TRANSCRIPT:
%s`,
		d.GeneratedAt.Format("2006-01-02 15:04:05"),
		age,
		orDefault(d.Profile.Symptoms, defaultSymptoms),
		orDefault(d.Profile.Duration, defaultDuration),
		orDefault(d.Profile.RiskFactors, defaultRiskFactors),
		orDefault(d.Profile.OtherContext, defaultContext),
		strings.ToUpper(orDefault(d.Urgency, "moderate")),
		orDefault(d.Guidelines, defaultGuidelines),
		orDefault(d.Slot, defaultSlot),
		orDefault(d.Speciality, defaultSpeciality),
		d.Note,
		strings.ToUpper(orDefault(d.NotifStatus, defaultNotifStatus)),
		orDefault(d.NotifStamp, "N/A"),
		d.Transcript,
	)
}

func orDefault(v, fallback string) string {
	if strings.TrimSpace(v) == "" {
		return fallback
	}
	return v
}
