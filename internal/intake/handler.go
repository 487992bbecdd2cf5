package intake

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// ReportRenderer turns the generated report data into a downloadable PDF.
type ReportRenderer interface {
	RenderPDF(data *ReportData) ([]byte, error)
}

type Handler struct {
	svc *Service
	pdf ReportRenderer
}

func NewHandler(svc *Service, pdf ReportRenderer) *Handler {
	return &Handler{svc: svc, pdf: pdf}
}

func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	sess := h.svc.CreateSession()
	writeJSON(w, map[string]string{
		"session_id": sess.ID.String(),
	})
}

type TextTurnRequest struct {
	SessionID string `json:"session_id"`
	Text      string `json:"text"`
}

func (h *Handler) HandleTextTurn(w http.ResponseWriter, r *http.Request) {
	var req TextTurnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}

	id, err := uuid.Parse(req.SessionID)
	if err != nil {
		http.Error(w, "Invalid session ID", http.StatusBadRequest)
		return
	}

	turns, err := h.svc.ProcessTextTurn(r.Context(), id, req.Text)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, map[string]any{
		"turns": turns,
	})
}

func (h *Handler) HandleAudioTurn(w http.ResponseWriter, r *http.Request) {
	// Voice clips are small; 10MB is plenty.
	if err := r.ParseMultipartForm(10 << 20); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}

	id, err := uuid.Parse(r.FormValue("session_id"))
	if err != nil {
		http.Error(w, "Invalid session ID", http.StatusBadRequest)
		return
	}

	var audio []byte
	if file, _, err := r.FormFile("audio"); err == nil {
		defer file.Close()
		var buf bytes.Buffer
		if _, err := io.Copy(&buf, file); err != nil {
			http.Error(w, "Failed to read audio file", http.StatusInternalServerError)
			return
		}
		audio = buf.Bytes()
	}

	turns, audioReply, err := h.svc.ProcessAudioTurn(r.Context(), id, audio)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	resp := map[string]any{
		"turns": turns,
	}
	if len(turns) > 0 {
		last := turns[len(turns)-1]
		if last.Role == RoleAgent {
			resp["response"] = last.Text
		}
		if len(turns) > 1 && turns[len(turns)-2].Role == RolePatient {
			resp["text"] = turns[len(turns)-2].Text
		}
	}
	if len(audioReply) > 0 {
		resp["audio_base64"] = base64.StdEncoding.EncodeToString(audioReply)
	}
	writeJSON(w, resp)
}

type EndCallRequest struct {
	SessionID string `json:"session_id"`
}

func (h *Handler) HandleEndCall(w http.ResponseWriter, r *http.Request) {
	var req EndCallRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}

	id, err := uuid.Parse(req.SessionID)
	if err != nil {
		http.Error(w, "Invalid session ID", http.StatusBadRequest)
		return
	}

	report, err := h.svc.EndCall(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, map[string]string{
		"report": report,
	})
}

func (h *Handler) HandleReportPDF(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "sessionID"))
	if err != nil {
		http.Error(w, "Invalid session ID", http.StatusBadRequest)
		return
	}

	sess, err := h.svc.Session(id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	data := sess.Report()
	if data == nil {
		http.Error(w, "No report generated for this session", http.StatusNotFound)
		return
	}

	pdfBytes, err := h.pdf.RenderPDF(data)
	if err != nil {
		http.Error(w, "PDF rendering failed: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="triage-report.pdf"`)
	w.Write(pdfBytes)
}

type TTSRequest struct {
	Text string `json:"text"`
}

func (h *Handler) HandleTTS(w http.ResponseWriter, r *http.Request) {
	var req TTSRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}

	audioData, err := h.svc.SynthesizeSpeech(r.Context(), req.Text)
	if err != nil {
		http.Error(w, "TTS failed: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "audio/mpeg")
	w.Write(audioData)
}

func RegisterRoutes(r chi.Router, h *Handler) {
	r.Post("/session", h.CreateSession)
	r.Post("/session/chat", h.HandleTextTurn)
	r.Post("/session/audio", h.HandleAudioTurn)
	r.Post("/session/report", h.HandleEndCall)
	r.Get("/session/{sessionID}/report.pdf", h.HandleReportPDF)
	r.Post("/tts", h.HandleTTS)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrSessionNotFound):
		http.Error(w, "Session not found", http.StatusNotFound)
	case errors.Is(err, ErrCompletion):
		http.Error(w, "Processing failed: "+err.Error(), http.StatusBadGateway)
	default:
		http.Error(w, "Processing failed: "+err.Error(), http.StatusInternalServerError)
	}
}
