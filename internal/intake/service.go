package intake

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"voice-triage-agent/internal/triage"
)

// Collaborator interfaces are declared here to decouple from the concrete
// clients in internal/agent and internal/triage.

type ChatClient interface {
	Reply(ctx context.Context, turns []Turn) (string, error)
	ExtractProfile(ctx context.Context, transcript string) (PatientProfile, error)
}

type STTClient interface {
	Transcribe(ctx context.Context, audioData []byte) (string, error)
}

type TTSClient interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

type ToolClient interface {
	TriagePatient(ctx context.Context, req triage.TriageRequest) triage.Payload
	ScheduleAppointment(ctx context.Context, req triage.ScheduleRequest) triage.Payload
	NotifyTeam(ctx context.Context, req triage.NotifyRequest) triage.Payload
}

// ErrCompletion marks a mid-dialog LLM failure. Unlike STT failures, which are
// substituted inline, a failed completion fails the whole turn.
var ErrCompletion = errors.New("dialog completion failed")

type Service struct {
	store *Store
	chat  ChatClient
	stt   STTClient
	tts   TTSClient
	tools ToolClient
}

func NewService(store *Store, chat ChatClient, stt STTClient, tts TTSClient, tools ToolClient) *Service {
	return &Service{
		store: store,
		chat:  chat,
		stt:   stt,
		tts:   tts,
		tools: tools,
	}
}

func (s *Service) CreateSession() *Session {
	return s.store.Create()
}

func (s *Service) Session(id uuid.UUID) (*Session, error) {
	return s.store.Get(id)
}

// ProcessAudioTurn runs one voice turn: transcribe, complete, synthesize,
// strictly in that order. Nil or empty audio is a no-op returning the dialog
// as it stands. STT and TTS failures are non-fatal; a completion failure
// fails the turn.
func (s *Service) ProcessAudioTurn(ctx context.Context, id uuid.UUID, audio []byte) ([]Turn, []byte, error) {
	sess, err := s.store.Get(id)
	if err != nil {
		return nil, nil, err
	}
	if len(audio) == 0 {
		return sess.Turns(), nil, nil
	}

	patientText, err := s.stt.Transcribe(ctx, audio)
	if err != nil {
		slog.WarnContext(ctx, "transcription failed, substituting marker",
			"session_id", id, "error", err)
		patientText = fmt.Sprintf("[STT error: %v]", err)
	} else if patientText == "" {
		patientText = "[Empty transcription]"
	}

	reply, err := s.reply(ctx, sess, patientText)
	if err != nil {
		return nil, nil, err
	}

	audioReply, err := s.tts.Synthesize(ctx, reply)
	if err != nil {
		slog.WarnContext(ctx, "synthesis failed, returning text only",
			"session_id", id, "error", err)
		audioReply = nil
	}

	return sess.Turns(), audioReply, nil
}

// ProcessTextTurn runs one typed turn. Whitespace-only input is a no-op that
// returns an empty snapshot and mutates nothing.
func (s *Service) ProcessTextTurn(ctx context.Context, id uuid.UUID, text string) ([]Turn, error) {
	sess, err := s.store.Get(id)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	if _, err := s.reply(ctx, sess, text); err != nil {
		return nil, err
	}
	return sess.Turns(), nil
}

func (s *Service) reply(ctx context.Context, sess *Session, patientText string) (string, error) {
	sess.Append(Turn{Role: RolePatient, Text: patientText})

	reply, err := s.chat.Reply(ctx, sess.Turns())
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrCompletion, err)
	}

	sess.Append(Turn{Role: RoleAgent, Text: reply})
	return reply, nil
}

// SynthesizeSpeech exposes direct synthesis to the presentation surface.
func (s *Service) SynthesizeSpeech(ctx context.Context, text string) ([]byte, error) {
	return s.tts.Synthesize(ctx, text)
}

// EndCall runs the end-of-call pipeline: transcript, profile extraction, the
// three tool calls in order, then the report. Every stage short-circuits with
// a stage-named message; a partially-filled report is never returned. The
// session is not reset.
func (s *Service) EndCall(ctx context.Context, id uuid.UUID) (string, error) {
	sess, err := s.store.Get(id)
	if err != nil {
		return "", err
	}
	turns := sess.Turns()
	if len(turns) == 0 {
		return "No conversation found.", nil
	}

	transcript := Transcript(turns)

	profile, err := s.chat.ExtractProfile(ctx, transcript)
	if err != nil {
		slog.ErrorContext(ctx, "profile extraction failed", "session_id", id, "error", err)
		return "Error while extracting patient profile:\n" + err.Error(), nil
	}

	triageRes := s.tools.TriagePatient(ctx, triage.TriageRequest{
		Age:          profile.Age,
		Symptoms:     profile.Symptoms,
		Duration:     profile.Duration,
		RiskFactors:  profile.RiskFactors,
		OtherContext: profile.OtherContext,
	})
	if triageRes.Failed() {
		return "MCP error (triage_patient):\n" + triageRes.Pretty(), nil
	}

	urgency := triageRes.String("urgency_level", string(triage.UrgencyModerate))

	scheduleRes := s.tools.ScheduleAppointment(ctx, triage.ScheduleRequest{
		UrgencyLevel: urgency,
		Speciality:   "general practitioner",
	})
	if scheduleRes.Failed() {
		return "MCP error (schedule_appointment):\n" + scheduleRes.Pretty(), nil
	}

	notifyRes := s.tools.NotifyTeam(ctx, triage.NotifyRequest{
		UrgencyLevel:    urgency,
		PatientSummary:  transcript,
		AppointmentSlot: scheduleRes.String("selected_slot", ""),
	})
	if notifyRes.Failed() {
		return "MCP error (notify_team):\n" + notifyRes.Pretty(), nil
	}

	data := &ReportData{
		GeneratedAt: time.Now(),
		Profile:     profile,
		Urgency:     urgency,
		Guidelines:  triageRes.String("guidelines_answer", ""),
		Slot:        scheduleRes.String("selected_slot", ""),
		Speciality:  scheduleRes.String("speciality", ""),
		Note:        scheduleRes.String("note", ""),
		NotifStatus: notifyRes.String("status", ""),
		NotifStamp:  notifyRes.String("timestamp", ""),
		Transcript:  transcript,
	}
	sess.SetReport(data)

	slog.InfoContext(ctx, "triage report generated",
		"session_id", id,
		"urgency", urgency,
		"turns", len(turns))

	return RenderReport(data), nil
}

// Transcript renders turns as role-prefixed lines in chronological order,
// one per line, with a trailing newline.
func Transcript(turns []Turn) string {
	var b strings.Builder
	for _, t := range turns {
		if t.Role == RolePatient {
			b.WriteString("Patient: ")
		} else {
			b.WriteString("Agent: ")
		}
		b.WriteString(t.Text)
		b.WriteString("\n")
	}
	return b.String()
}
