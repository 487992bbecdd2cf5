package intake

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RolePatient Role = "patient"
	RoleAgent   Role = "agent"
)

// Turn is one utterance in the intake dialog. Turns are append-only and their
// order is the chronological dialog order.
type Turn struct {
	Role      Role      `json:"role"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// PatientProfile is extracted once, at call end, from the full transcript.
// Missing data is an empty string (or zero age), never an omitted key.
type PatientProfile struct {
	Age          int    `json:"age" jsonschema_description:"Patient age in years, 0 if unknown"`
	Symptoms     string `json:"symptoms"`
	Duration     string `json:"duration"`
	RiskFactors  string `json:"risk_factors"`
	OtherContext string `json:"other_context"`
}

// ReportData aggregates everything interpolated into the triage report.
type ReportData struct {
	GeneratedAt time.Time
	Profile     PatientProfile
	Urgency     string
	Guidelines  string
	Slot        string
	Speciality  string
	Note        string
	NotifStatus string
	NotifStamp  string
	Transcript  string
}

// Session is one intake call: an ordered turn sequence plus, after the call
// ended, the generated report. Created via Store.Create and addressed by ID.
type Session struct {
	ID        uuid.UUID `json:"id"`
	CreatedAt time.Time `json:"created_at"`

	mu     sync.Mutex
	turns  []Turn
	report *ReportData
}
