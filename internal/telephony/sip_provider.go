package telephony

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"voicesurvey-platform/internal/conversation"
)

// Trunk is the signaling side of the SIP boundary: place and tear down call
// legs. Implementations talk to the actual trunk gateway; none of that
// reaches the core.
type Trunk interface {
	// Invite places a call to a sip: target and returns the provider's call
	// id (used to correlate status webhooks).
	Invite(ctx context.Context, target string, req DialRequest) (providerCallID string, err error)
	Bye(ctx context.Context, providerCallID string) error
}

// SIPProvider implements Provider over a SIP trunk plus a media sink.
//
// Event flow per call:
//   - Dial sends an INVITE through the Trunk and allocates the per-call
//     utterance and signal channels.
//   - The transcription gateway pushes participant speech via
//     DeliverUtterance.
//   - Status webhooks reach the session through the shared SignalRegistry,
//     keyed by the provider call id.
//   - Hangup sends BYE, unregisters and closes the utterance stream.
type SIPProvider struct {
	trunk    Trunk
	sink     MediaSink
	registry *SignalRegistry
	domain   string
	log      *slog.Logger

	mu    sync.Mutex
	calls map[string]*bridgedCall
}

type bridgedCall struct {
	providerCallID string
	utterances     chan conversation.Utterance
	signals        chan conversation.Signal
	closed         bool
}

type SIPProviderOptions struct {
	Trunk    Trunk
	Sink     MediaSink
	Registry *SignalRegistry

	// TrunkDomain is the outbound SIP domain, e.g. "trunk.example.net".
	TrunkDomain string

	Log *slog.Logger
}

func NewSIPProvider(opts SIPProviderOptions) (*SIPProvider, error) {
	if opts.Trunk == nil {
		return nil, errors.New("telephony: trunk is required")
	}
	if opts.Sink == nil {
		return nil, errors.New("telephony: media sink is required")
	}
	if opts.Registry == nil {
		return nil, errors.New("telephony: signal registry is required")
	}
	if opts.TrunkDomain == "" {
		return nil, errors.New("telephony: trunk domain is required")
	}
	if opts.Log == nil {
		opts.Log = slog.Default()
	}
	return &SIPProvider{
		trunk:    opts.Trunk,
		sink:     opts.Sink,
		registry: opts.Registry,
		domain:   opts.TrunkDomain,
		log:      opts.Log,
		calls:    map[string]*bridgedCall{},
	}, nil
}

func (p *SIPProvider) Name() string { return "sip" }

func (p *SIPProvider) HealthCheck(ctx context.Context) error {
	if p.trunk == nil {
		return errors.New("telephony: trunk not configured")
	}
	return nil
}

func (p *SIPProvider) Dial(ctx context.Context, req DialRequest) (*ActiveCall, error) {
	if req.CallID == "" {
		return nil, errors.New("telephony: call id is required")
	}
	if !ValidE164(req.To) {
		return nil, fmt.Errorf("telephony: invalid E.164 number %q", req.To)
	}

	target, err := BuildSIPTarget(req.To, p.domain)
	if err != nil {
		return nil, fmt.Errorf("telephony: sip target: %w", err)
	}
	providerCallID, err := p.trunk.Invite(ctx, target, req)
	if err != nil {
		return nil, fmt.Errorf("telephony: invite failed: %w", err)
	}

	// Utterances are buffered so a slow turn (the session speaking) does not
	// stall the transcription gateway. Signals hold one pending event.
	bc := &bridgedCall{
		providerCallID: providerCallID,
		utterances:     make(chan conversation.Utterance, 8),
		signals:        make(chan conversation.Signal, 1),
	}

	p.mu.Lock()
	p.calls[req.CallID] = bc
	p.mu.Unlock()
	p.registry.Register(providerCallID, bc.signals)

	return &ActiveCall{
		CallID:         req.CallID,
		ProviderCallID: providerCallID,
		Utterances:     bc.utterances,
		Signals:        bc.signals,
		Speaker:        SinkSpeaker{Sink: p.sink, Voice: req.Voice},
	}, nil
}

// DeliverUtterance hands one transcribed chunk to the owning call. Returns
// false when the call is unknown, already closed or not consuming; a dropped
// chunk after session end is expected, not an error.
func (p *SIPProvider) DeliverUtterance(callID, text string, at time.Time) bool {
	p.mu.Lock()
	bc, ok := p.calls[callID]
	closed := ok && bc.closed
	p.mu.Unlock()
	if !ok || closed {
		return false
	}
	select {
	case bc.utterances <- conversation.Utterance{Text: text, At: at}:
		return true
	default:
		p.log.Warn("utterance dropped, session not consuming", "call_id", callID)
		return false
	}
}

// Hangup tears the leg down. Idempotent; hanging up an unknown call is a
// no-op because the webhook may already have reported the disconnect.
func (p *SIPProvider) Hangup(ctx context.Context, callID string) error {
	p.mu.Lock()
	bc, ok := p.calls[callID]
	if ok && !bc.closed {
		bc.closed = true
		delete(p.calls, callID)
	} else {
		ok = false
	}
	p.mu.Unlock()
	if !ok {
		return nil
	}

	p.registry.Unregister(bc.providerCallID)
	// Closing the utterance stream wakes a session still waiting on speech.
	close(bc.utterances)

	if err := p.trunk.Bye(ctx, bc.providerCallID); err != nil {
		return fmt.Errorf("telephony: bye failed: %w", err)
	}
	return nil
}
