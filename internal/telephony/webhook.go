package telephony

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"voicesurvey-platform/internal/conversation"
)

// StatusForm captures the subset of provider status-callback fields we care
// about. Providers post application/x-www-form-urlencoded by default.
//
// Keep it minimal and adapter-only; conversation logic never sees raw
// provider payloads.
type StatusForm struct {
	ProviderCallID string
	CallStatus     string
	Timestamp      string
}

func ParseStatusCallback(r *http.Request) (StatusForm, error) {
	if err := r.ParseForm(); err != nil {
		return StatusForm{}, err
	}
	return StatusForm{
		ProviderCallID: r.PostFormValue("CallSid"),
		CallStatus:     strings.ToLower(strings.TrimSpace(r.PostFormValue("CallStatus"))),
		Timestamp:      r.PostFormValue("Timestamp"),
	}, nil
}

// terminalStatuses are the provider call states that mean the participant
// leg is gone and the session must observe a disconnection.
var terminalStatuses = map[string]bool{
	"completed": true,
	"failed":    true,
	"busy":      true,
	"no-answer": true,
	"canceled":  true,
}

// SignalRegistry correlates provider call ids with the per-call signal
// channel of the running conversation session.
//
// Safe for concurrent use: webhooks arrive on HTTP goroutines while call
// sessions register and unregister on their own.
type SignalRegistry struct {
	mu    sync.Mutex
	calls map[string]chan<- conversation.Signal
}

func NewSignalRegistry() *SignalRegistry {
	return &SignalRegistry{calls: make(map[string]chan<- conversation.Signal)}
}

func (r *SignalRegistry) Register(providerCallID string, ch chan<- conversation.Signal) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls[providerCallID] = ch
}

func (r *SignalRegistry) Unregister(providerCallID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.calls, providerCallID)
}

// Dispatch delivers a signal to the session owning providerCallID.
// Non-blocking: if the session is not listening anymore the signal is
// dropped, which is correct because the session observes cancellation at its
// next suspension point anyway.
func (r *SignalRegistry) Dispatch(providerCallID string, sig conversation.Signal) bool {
	r.mu.Lock()
	ch, ok := r.calls[providerCallID]
	r.mu.Unlock()
	if !ok {
		return false
	}
	select {
	case ch <- sig:
		return true
	default:
		return false
	}
}

// StatusWebhookHandler translates provider status callbacks into lifecycle
// signals for the owning call session.
//
// NOTE: This endpoint should be protected by provider signature validation
// in production.
type StatusWebhookHandler struct {
	Registry *SignalRegistry

	// Now is injectable for deterministic tests.
	Now func() time.Time
}

func (h StatusWebhookHandler) HandleStatus(c *gin.Context) {
	if h.Registry == nil {
		c.String(http.StatusInternalServerError, "registry not configured")
		return
	}
	form, err := ParseStatusCallback(c.Request)
	if err != nil || form.ProviderCallID == "" {
		c.String(http.StatusBadRequest, "bad status callback")
		return
	}

	if terminalStatuses[form.CallStatus] {
		now := time.Now
		if h.Now != nil {
			now = h.Now
		}
		h.Registry.Dispatch(form.ProviderCallID, conversation.Signal{
			Kind: conversation.SignalDisconnected,
			At:   now(),
		})
	}
	c.Status(http.StatusNoContent)
}
