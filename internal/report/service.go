package report

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/signintech/gopdf"

	"voice-triage-agent/internal/intake"
)

// Service renders the triage report as a PDF for download.
type Service struct {
	fontPaths []string
}

func NewService() *Service {
	return &Service{
		// DejaVuSans covers the character range the transcripts can contain.
		// Common locations across Alpine and Debian images.
		fontPaths: []string{
			"/usr/share/fonts/ttf-dejavu/DejaVuSans.ttf",
			"/usr/share/fonts/dejavu/DejaVuSans.ttf",
			"/usr/share/fonts/truetype/dejavu/DejaVuSans.ttf",
		},
	}
}

func (s *Service) RenderPDF(data *intake.ReportData) ([]byte, error) {
	pdf := gopdf.GoPdf{}
	pdf.Start(gopdf.Config{PageSize: *gopdf.PageSizeA4})
	pdf.AddPage()

	var fontErr error
	fontLoaded := false
	for _, path := range s.fontPaths {
		if err := pdf.AddTTFFont("DejaVu", path); err == nil {
			fontLoaded = true
			break
		} else {
			fontErr = err
		}
	}
	if !fontLoaded {
		return nil, fmt.Errorf("failed to load font for PDF, ensure DejaVuSans is installed: %w", fontErr)
	}

	if err := pdf.SetFont("DejaVu", "", 18); err != nil {
		return nil, err
	}
	pdf.Cell(nil, "Medical Triage Report: Voice Intake")
	pdf.Br(28)

	if err := pdf.SetFont("DejaVu", "", 11); err != nil {
		return nil, err
	}
	pdf.Cell(nil, fmt.Sprintf("Generated: %s", data.GeneratedAt.Format("2006-01-02 15:04:05")))
	pdf.Br(14)
	pdf.Cell(nil, fmt.Sprintf("Urgency Level: %s", strings.ToUpper(data.Urgency)))
	pdf.Br(22)

	age := "Not provided"
	if data.Profile.Age > 0 {
		age = strconv.Itoa(data.Profile.Age)
	}
	if err := s.section(&pdf, "Patient Information", []string{
		fmt.Sprintf("Age: %s years", age),
		fmt.Sprintf("Symptoms: %s", data.Profile.Symptoms),
		fmt.Sprintf("Duration: %s", data.Profile.Duration),
		fmt.Sprintf("Risk Factors: %s", data.Profile.RiskFactors),
		fmt.Sprintf("Other Context: %s", data.Profile.OtherContext),
	}); err != nil {
		return nil, err
	}

	if err := s.section(&pdf, "Clinical Recommendation", []string{data.Guidelines}); err != nil {
		return nil, err
	}

	if err := s.section(&pdf, "Appointment", []string{
		fmt.Sprintf("Slot: %s", data.Slot),
		fmt.Sprintf("Specialty: %s", data.Speciality),
		fmt.Sprintf("Note: %s", data.Note),
	}); err != nil {
		return nil, err
	}

	if err := s.section(&pdf, "Team Notification", []string{
		fmt.Sprintf("Status: %s", strings.ToUpper(data.NotifStatus)),
		fmt.Sprintf("Timestamp: %s", data.NotifStamp),
	}); err != nil {
		return nil, err
	}

	if err := s.section(&pdf, "Conversation Transcript",
		strings.Split(strings.TrimRight(data.Transcript, "\n"), "\n")); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if _, err := pdf.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("failed to write PDF: %w", err)
	}
	return buf.Bytes(), nil
}

func (s *Service) section(pdf *gopdf.GoPdf, title string, lines []string) error {
	if err := pdf.SetFont("DejaVu", "", 13); err != nil {
		return err
	}
	pdf.Cell(nil, title)
	pdf.Br(15)

	if err := pdf.SetFont("DejaVu", "", 10); err != nil {
		return err
	}
	for _, line := range lines {
		if line == "" {
			continue
		}
		wrapped, _ := pdf.SplitText(line, 500)
		for _, l := range wrapped {
			pdf.Cell(nil, l)
			pdf.Br(12)
		}
	}
	pdf.Br(10)
	return nil
}
