package intake

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestHandleAudioTurnMalformedMultipart(t *testing.T) {
	svc := newTestService(&fakeChat{reply: "ok"}, &fakeSTT{text: "hi"}, &fakeTTS{}, happyTools())
	h := NewHandler(svc, nil)

	req := httptest.NewRequest("POST", "/session/audio", strings.NewReader("not a multipart body"))
	req.Header.Set("Content-Type", "multipart/form-data; boundary=")
	rr := httptest.NewRecorder()

	h.HandleAudioTurn(rr, req)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("malformed multipart should be 400, got %d: %s", rr.Code, rr.Body.String())
	}
}

func TestHandleAudioTurnBadSessionID(t *testing.T) {
	svc := newTestService(&fakeChat{reply: "ok"}, &fakeSTT{text: "hi"}, &fakeTTS{}, happyTools())
	h := NewHandler(svc, nil)

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	if err := writer.WriteField("session_id", "not-a-uuid"); err != nil {
		t.Fatalf("write field: %v", err)
	}
	writer.Close()

	req := httptest.NewRequest("POST", "/session/audio", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	rr := httptest.NewRecorder()

	h.HandleAudioTurn(rr, req)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("bad session id should be 400, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "Invalid session ID") {
		t.Fatalf("body: %q", rr.Body.String())
	}
}
