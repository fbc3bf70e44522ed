package interactions

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/heraldbot/backend/internal/models"
	"github.com/heraldbot/backend/internal/registration"
)

type call struct {
	method    string
	userID    int64
	channelID int64
	value     string
}

type fakeController struct {
	calls   []call
	joinErr error
}

func (f *fakeController) ChooseStatus(userID, channelID int64, status models.Status) error {
	f.calls = append(f.calls, call{"status", userID, channelID, string(status)})
	return nil
}

func (f *fakeController) ChooseJob(userID, channelID int64, job models.Job) error {
	f.calls = append(f.calls, call{"job", userID, channelID, string(job)})
	return nil
}

func (f *fakeController) Join(_ context.Context, userID, channelID int64) error {
	f.calls = append(f.calls, call{"join", userID, channelID, ""})
	return f.joinErr
}

func (f *fakeController) Leave(_ context.Context, userID, channelID int64) error {
	f.calls = append(f.calls, call{"leave", userID, channelID, ""})
	return nil
}

type testServer struct {
	router     *gin.Engine
	controller *fakeController
	priv       ed25519.PrivateKey
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	controller := &fakeController{}
	handler, err := NewHandler(controller, hex.EncodeToString(pub), zap.NewNop())
	if err != nil {
		t.Fatalf("new handler: %v", err)
	}
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.POST("/interactions", handler.Handle)
	return &testServer{router: router, controller: controller, priv: priv}
}

func (s *testServer) post(t *testing.T, body string, signed bool) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/interactions", bytes.NewBufferString(body))
	timestamp := "1700000000"
	req.Header.Set("X-Signature-Timestamp", timestamp)
	if signed {
		sig := ed25519.Sign(s.priv, append([]byte(timestamp), []byte(body)...))
		req.Header.Set("X-Signature-Ed25519", hex.EncodeToString(sig))
	} else {
		req.Header.Set("X-Signature-Ed25519", strings.Repeat("00", ed25519.SignatureSize))
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func responseType(t *testing.T, rec *httptest.ResponseRecorder) int {
	t.Helper()
	var body struct {
		Type int `json:"type"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return body.Type
}

func TestHandleRejectsBadSignature(t *testing.T) {
	s := newTestServer(t)
	rec := s.post(t, `{"type":1}`, false)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if len(s.controller.calls) != 0 {
		t.Fatal("expected no controller calls on bad signature")
	}
}

func TestHandlePing(t *testing.T) {
	s := newTestServer(t)
	rec := s.post(t, `{"type":1}`, true)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if responseType(t, rec) != responsePong {
		t.Fatalf("expected pong, got %s", rec.Body.String())
	}
}

func TestHandleStatusSelect(t *testing.T) {
	s := newTestServer(t)
	body := `{"type":3,"channel_id":"10","member":{"user":{"id":"5"}},` +
		`"data":{"custom_id":"FinalFantasyXIVStatus","values":["Attending"]}}`
	rec := s.post(t, body, true)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if responseType(t, rec) != responseDeferredEdit {
		t.Fatalf("expected deferred edit, got %s", rec.Body.String())
	}
	want := call{"status", 5, 10, "Attending"}
	if len(s.controller.calls) != 1 || s.controller.calls[0] != want {
		t.Fatalf("expected %+v, got %+v", want, s.controller.calls)
	}
}

func TestHandleJobSelect(t *testing.T) {
	s := newTestServer(t)
	body := `{"type":3,"channel_id":"10","member":{"user":{"id":"5"}},` +
		`"data":{"custom_id":"FinalFantasyXIVJob","values":["Healer"]}}`
	rec := s.post(t, body, true)
	want := call{"job", 5, 10, "Healer"}
	if len(s.controller.calls) != 1 || s.controller.calls[0] != want {
		t.Fatalf("expected %+v, got %+v", want, s.controller.calls)
	}
	if responseType(t, rec) != responseDeferredEdit {
		t.Fatalf("expected deferred edit, got %s", rec.Body.String())
	}
}

func TestHandleJoinAndLeaveButtons(t *testing.T) {
	s := newTestServer(t)
	s.post(t, `{"type":3,"channel_id":"10","member":{"user":{"id":"5"}},"data":{"custom_id":"EventJoin"}}`, true)
	s.post(t, `{"type":3,"channel_id":"10","member":{"user":{"id":"5"}},"data":{"custom_id":"EventLeave"}}`, true)

	if len(s.controller.calls) != 2 {
		t.Fatalf("expected two calls, got %+v", s.controller.calls)
	}
	if s.controller.calls[0].method != "join" || s.controller.calls[1].method != "leave" {
		t.Fatalf("expected join then leave, got %+v", s.controller.calls)
	}
}

func TestHandleJoinValidationErrorIsEphemeral(t *testing.T) {
	s := newTestServer(t)
	s.controller.joinErr = &registration.ValidationError{Message: "pick a status first"}

	rec := s.post(t, `{"type":3,"channel_id":"10","user":{"id":"5"},"data":{"custom_id":"EventJoin"}}`, true)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if responseType(t, rec) != responseMessage {
		t.Fatalf("expected message response, got %s", rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "pick a status first") {
		t.Fatalf("expected validation message in body, got %s", rec.Body.String())
	}
}

func TestHandleUnknownComponent(t *testing.T) {
	s := newTestServer(t)
	rec := s.post(t, `{"type":3,"channel_id":"10","user":{"id":"5"},"data":{"custom_id":"EventMystery"}}`, true)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}
