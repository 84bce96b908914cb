package telephony

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// HTTPGateway talks to the external media gateway that owns the actual SIP
// stack, TTS and streaming transcription. It implements both Trunk and
// MediaSink.
//
// The gateway calls back into this service: status events on the status
// webhook, transcribed speech on the transcript webhook.
type HTTPGateway struct {
	BaseURL string
	Client  *http.Client
}

func NewHTTPGateway(baseURL string) *HTTPGateway {
	return &HTTPGateway{
		BaseURL: baseURL,
		Client:  &http.Client{Timeout: 10 * time.Second},
	}
}

type inviteRequest struct {
	Target       string `json:"target"`
	CallID       string `json:"call_id"`
	Instructions string `json:"instructions,omitempty"`
	Voice        string `json:"voice,omitempty"`
}

type inviteResponse struct {
	ProviderCallID string `json:"provider_call_id"`
}

func (g *HTTPGateway) Invite(ctx context.Context, target string, req DialRequest) (string, error) {
	var out inviteResponse
	err := g.post(ctx, "/calls", inviteRequest{
		Target:       target,
		CallID:       req.CallID,
		Instructions: req.Instructions,
		Voice:        req.Voice,
	}, &out)
	if err != nil {
		return "", err
	}
	if out.ProviderCallID == "" {
		return "", errors.New("telephony: gateway returned no provider call id")
	}
	return out.ProviderCallID, nil
}

func (g *HTTPGateway) Bye(ctx context.Context, providerCallID string) error {
	return g.post(ctx, "/calls/"+providerCallID+"/hangup", struct{}{}, nil)
}

func (g *HTTPGateway) Send(ctx context.Context, cmd SpeakCommand) error {
	return g.post(ctx, "/speak", cmd, nil)
}

func (g *HTTPGateway) post(ctx context.Context, path string, in, out any) error {
	if g.BaseURL == "" {
		return errors.New("telephony: gateway base url not configured")
	}
	body, err := json.Marshal(in)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	client := g.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("telephony: gateway %s returned %d", path, resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return err
	}
	return json.Unmarshal(data, out)
}

// UtteranceSink receives transcribed participant speech for a call.
// Satisfied by SIPProvider.
type UtteranceSink interface {
	DeliverUtterance(callID, text string, at time.Time) bool
}

// TranscriptWebhookHandler ingests transcription callbacks from the media
// gateway and forwards them to the owning call.
type TranscriptWebhookHandler struct {
	Sink UtteranceSink

	// Now is injectable for deterministic tests.
	Now func() time.Time
}

type transcriptPayload struct {
	CallID string `json:"call_id"`
	Text   string `json:"text"`
}

func (h TranscriptWebhookHandler) HandleTranscript(c *gin.Context) {
	if h.Sink == nil {
		c.String(http.StatusInternalServerError, "transcript sink not configured")
		return
	}
	var p transcriptPayload
	if err := c.ShouldBindJSON(&p); err != nil || p.CallID == "" || p.Text == "" {
		c.String(http.StatusBadRequest, "bad transcript payload")
		return
	}
	now := time.Now
	if h.Now != nil {
		now = h.Now
	}
	// Delivery to a finished call is dropped; still a 2xx for the gateway.
	h.Sink.DeliverUtterance(p.CallID, p.Text, now())
	c.Status(http.StatusNoContent)
}
