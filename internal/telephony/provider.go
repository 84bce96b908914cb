package telephony

import (
	"context"
	"time"

	"voicesurvey-platform/internal/conversation"
)

// Provider defines the provider-agnostic telephony interface used by the
// campaign runner.
//
// Rules:
// - No provider SDK calls outside telephony adapters.
// - The core never performs speech recognition or synthesis; the provider
//   delivers transcribed utterances and accepts speak instructions.
// - Request/response types stay provider-agnostic; raw provider payloads
//   belong in adapter metadata, never in core types.
type Provider interface {
	Name() string
	HealthCheck(ctx context.Context) error

	// Dial places one outbound survey call. The returned ActiveCall carries
	// the per-call event streams the conversation session consumes.
	Dial(ctx context.Context, req DialRequest) (*ActiveCall, error)

	// Hangup tears the call down at the provider. Idempotent.
	Hangup(ctx context.Context, callID string) error
}

// DialRequest describes one outbound call attempt.
type DialRequest struct {
	// CallID is the caller-assigned internal identifier for this call. All
	// later provider operations (Hangup, transcript delivery) use it.
	CallID string `json:"call_id"`

	SurveyID  string `json:"survey_id"`
	ContactID string `json:"contact_id"`

	// To is E.164.
	To string `json:"to"`

	// Instructions is the engine prompt built by survey.BuildInstructions.
	// Opaque at this boundary; it only shapes how the agent behaves.
	Instructions string `json:"instructions,omitempty"`

	// Voice selects the TTS voice at the media boundary.
	Voice string `json:"voice,omitempty"`

	OccurredAt time.Time `json:"occurred_at"`
}

// ActiveCall is one live call leg.
//
// Contract: Utterances delivers transcribed participant speech in
// chronological order for this call, no out-of-order delivery. Signals
// delivers hard lifecycle events (disconnection, provider-side limits).
// Both channels are owned by the adapter.
type ActiveCall struct {
	// CallID is the internal call identifier.
	CallID string

	// ProviderCallID is the provider's identifier (e.g. a call SID), used
	// to correlate status webhooks.
	ProviderCallID string

	Utterances <-chan conversation.Utterance
	Signals    <-chan conversation.Signal

	Speaker conversation.Speaker
}
