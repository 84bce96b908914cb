package telephony

import (
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"voicesurvey-platform/internal/conversation"
)

func postStatus(t *testing.T, h StatusWebhookHandler, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req := httptest.NewRequest("POST", "/webhooks/telephony/status", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	c.Request = req
	h.HandleStatus(c)
	c.Writer.WriteHeaderNow()
	return w
}

func TestStatusWebhook_DispatchesDisconnect(t *testing.T) {
	reg := NewSignalRegistry()
	ch := make(chan conversation.Signal, 1)
	reg.Register("CA123", ch)
	defer reg.Unregister("CA123")

	h := StatusWebhookHandler{Registry: reg, Now: func() time.Time { return time.Unix(1700000000, 0) }}
	w := postStatus(t, h, url.Values{"CallSid": {"CA123"}, "CallStatus": {"completed"}})
	if w.Code != 204 {
		t.Fatalf("status = %d, want 204", w.Code)
	}

	select {
	case sig := <-ch:
		if sig.Kind != conversation.SignalDisconnected {
			t.Fatalf("kind = %q, want disconnected", sig.Kind)
		}
	default:
		t.Fatalf("no signal dispatched")
	}
}

func TestStatusWebhook_IgnoresNonTerminalStatus(t *testing.T) {
	reg := NewSignalRegistry()
	ch := make(chan conversation.Signal, 1)
	reg.Register("CA123", ch)

	h := StatusWebhookHandler{Registry: reg}
	postStatus(t, h, url.Values{"CallSid": {"CA123"}, "CallStatus": {"ringing"}})

	select {
	case sig := <-ch:
		t.Fatalf("unexpected signal for ringing: %+v", sig)
	default:
	}
}

func TestStatusWebhook_RejectsMissingCallSid(t *testing.T) {
	h := StatusWebhookHandler{Registry: NewSignalRegistry()}
	w := postStatus(t, h, url.Values{"CallStatus": {"completed"}})
	if w.Code != 400 {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestSignalRegistry_DispatchUnknownCall(t *testing.T) {
	reg := NewSignalRegistry()
	if reg.Dispatch("nope", conversation.Signal{Kind: conversation.SignalDisconnected}) {
		t.Fatalf("dispatch to unknown call must report false")
	}
}

func TestSanitizeSpokenText(t *testing.T) {
	got := SanitizeSpokenText("Hello <world>!\n\tHow   are you?")
	if got != "Hello world ! How are you?" {
		t.Fatalf("sanitized = %q", got)
	}
	if SanitizeSpokenText("  \n ") != "" {
		t.Fatalf("whitespace-only text should sanitize to empty")
	}
}
