package conversation

import (
	"context"
	"log/slog"
	"time"

	"voicesurvey-platform/internal/callrecord"
	"voicesurvey-platform/internal/extract"
)

// Utterance is one transcribed chunk of participant speech, delivered by the
// external streaming-transcription source. Per-call delivery is in
// chronological order.
type Utterance struct {
	Text string
	At   time.Time
}

// SignalKind names a hard lifecycle event from the telephony boundary.
type SignalKind string

const (
	SignalDisconnected    SignalKind = "disconnected"
	SignalDurationElapsed SignalKind = "duration_elapsed"
	SignalCanceled        SignalKind = "canceled"
)

type Signal struct {
	Kind SignalKind
	At   time.Time
}

// Speaker emits "speak this text" instructions to the media boundary.
// Fire-and-forget: the session does not wait for playback completion beyond
// the logical return of Speak.
type Speaker interface {
	Speak(ctx context.Context, callID, text string) error
}

// State is the conversation position, exposed for observability.
type State string

const (
	StateAwaitingConsent State = "awaiting_consent"
	StateAsking          State = "asking"
	StateClarifying      State = "clarifying"
	StateCompleted       State = "completed"
	StateDeclined        State = "declined"
	StateFailed          State = "failed"
)

// Config controls one call session.
type Config struct {
	// ClarifyThreshold is the confidence below which a single clarification
	// re-prompt is issued. The default 80 is uncalibrated for non-English
	// deployments; treat it as a starting point, not a constant of nature.
	ClarifyThreshold int

	// MaxCallDuration bounds the whole call, counted from session start,
	// not per turn.
	MaxCallDuration time.Duration

	Vocabulary extract.Vocabulary
	Prompts    Prompts

	// Now is injectable for deterministic tests.
	Now func() time.Time
}

func (c Config) withDefaults() Config {
	out := c
	if out.ClarifyThreshold <= 0 {
		out.ClarifyThreshold = 80
	}
	if out.MaxCallDuration <= 0 {
		out.MaxCallDuration = 5 * time.Minute
	}
	out.Prompts = out.Prompts.withDefaults()
	if out.Now == nil {
		out.Now = time.Now
	}
	return out
}

// Session drives one call turn-by-turn: consent gate, question loop,
// completion or termination.
//
// Ownership: exactly one Session owns one callrecord.Record; all mutation
// happens from the goroutine running Run. Waits for the next utterance block
// on channel receives, never busy-poll. Concurrent calls of the same campaign
// share nothing mutable beyond the immutable questionnaire.
type Session struct {
	cfg     Config
	rec     *callrecord.Record
	speaker Speaker

	utterances <-chan Utterance
	signals    <-chan Signal

	log *slog.Logger

	state         State
	enteredAsking bool
}

func NewSession(cfg Config, rec *callrecord.Record, speaker Speaker, utterances <-chan Utterance, signals <-chan Signal, log *slog.Logger) *Session {
	if log == nil {
		log = slog.Default()
	}
	return &Session{
		cfg:        cfg.withDefaults(),
		rec:        rec,
		speaker:    speaker,
		utterances: utterances,
		signals:    signals,
		log:        log.With("call_id", rec.CallID()),
		state:      StateAwaitingConsent,
	}
}

// State reports the current conversation state.
func (s *Session) State() State { return s.state }

// Run executes the call to a terminal state and returns the final snapshot.
// The returned error only reports contract violations (double termination);
// ordinary call failures are expressed through the snapshot status.
//
// Terminal outcomes are exactly one of completed, declined, incomplete
// (failed after entering a question) or failed (never reached a question).
func (s *Session) Run(ctx context.Context) (callrecord.Snapshot, error) {
	deadline := time.NewTimer(s.cfg.MaxCallDuration)
	defer deadline.Stop()

	qn := s.rec.Questionnaire()

	// Consent gate.
	s.say(ctx, qn.ConsentScript())
	granted := false
	for attempt := 0; attempt < 2; attempt++ {
		u, ok := s.await(ctx, deadline)
		if !ok {
			return s.fail()
		}
		s.rec.AppendTurn(callrecord.Turn{Utterance: u.Text, At: u.At})

		intent := extract.ClassifyConsent(s.cfg.Vocabulary, u.Text)
		s.log.Debug("consent turn", "attempt", attempt, "intent", string(intent))
		if intent == extract.ConsentAffirmative {
			granted = true
			break
		}
		if attempt == 0 {
			// One gentle persuasion re-prompt; anything short of a clear
			// yes on the second attempt declines.
			s.say(ctx, s.cfg.Prompts.Persuasion)
		}
	}
	if !granted {
		s.rec.SetConsent(callrecord.ConsentDeclined)
		s.say(ctx, s.cfg.Prompts.DeclinedClosing)
		s.state = StateDeclined
		if err := s.rec.MarkTerminal(callrecord.StatusDeclined, s.cfg.Now()); err != nil {
			return s.rec.Snapshot(), err
		}
		return s.rec.Snapshot(), nil
	}

	s.rec.SetConsent(callrecord.ConsentGranted)
	s.say(ctx, s.cfg.Prompts.ConsentAck)

	// Question loop. Never revisits a question once advanced past it.
	for i := 0; i < qn.Len(); i++ {
		q := qn.At(i)
		s.state = StateAsking
		s.enteredAsking = true

		s.say(ctx, RenderQuestion(q))
		u, ok := s.await(ctx, deadline)
		if !ok {
			return s.fail()
		}
		s.rec.AppendTurn(callrecord.Turn{QuestionID: q.ID, Utterance: u.Text, At: u.At})

		ans := extract.Extract(s.cfg.Vocabulary, q, u.Text, false)
		if ans.Confidence >= s.cfg.ClarifyThreshold {
			s.rec.PutAnswer(ans)
			continue
		}

		// Record the low-confidence answer before clarifying so a drop
		// mid-clarification still leaves material for reconciliation.
		s.rec.PutAnswer(ans)
		s.state = StateClarifying
		s.log.Debug("clarifying", "question_id", q.ID, "confidence", ans.Confidence)

		s.say(ctx, RenderClarification(s.cfg.Prompts, q))
		u2, ok := s.await(ctx, deadline)
		if !ok {
			return s.fail()
		}
		s.rec.AppendTurn(callrecord.Turn{QuestionID: q.ID, Utterance: u2.Text, At: u2.At})

		// Single clarification only: the retry answer is accepted as-is
		// whatever its confidence.
		s.rec.PutAnswer(extract.Extract(s.cfg.Vocabulary, q, u2.Text, true))
	}

	s.state = StateCompleted
	s.say(ctx, s.cfg.Prompts.Closing)
	if err := s.rec.MarkTerminal(callrecord.StatusCompleted, s.cfg.Now()); err != nil {
		return s.rec.Snapshot(), err
	}
	s.log.Info("call completed", "questions", qn.Len())
	return s.rec.Snapshot(), nil
}

// await blocks for the next utterance, a lifecycle signal, the call-duration
// deadline, or cancellation. Returns ok=false on anything that forces Failed.
func (s *Session) await(ctx context.Context, deadline *time.Timer) (Utterance, bool) {
	select {
	case u, open := <-s.utterances:
		if !open {
			s.log.Warn("transcription stream closed")
			return Utterance{}, false
		}
		return u, true
	case sig := <-s.signals:
		s.log.Info("lifecycle signal", "kind", string(sig.Kind))
		return Utterance{}, false
	case <-deadline.C:
		s.log.Info("max call duration elapsed")
		return Utterance{}, false
	case <-ctx.Done():
		s.log.Info("call canceled", "err", ctx.Err())
		return Utterance{}, false
	}
}

// fail assigns the failure terminal state: incomplete once any question was
// entered, failed otherwise. Already-extracted answers stay in the record.
// No partial turn is fabricated for the interrupted wait.
func (s *Session) fail() (callrecord.Snapshot, error) {
	s.state = StateFailed
	status := callrecord.StatusFailed
	if s.enteredAsking {
		status = callrecord.StatusIncomplete
	}
	if err := s.rec.MarkTerminal(status, s.cfg.Now()); err != nil {
		return s.rec.Snapshot(), err
	}
	s.log.Info("call failed", "status", string(status))
	return s.rec.Snapshot(), nil
}

func (s *Session) say(ctx context.Context, text string) {
	if text == "" {
		return
	}
	if err := s.speaker.Speak(ctx, s.rec.CallID(), text); err != nil {
		// Speech output is fire-and-forget; a speak failure is not a call
		// failure. The telephony layer reports real drops via signals.
		s.log.Warn("speak failed", "err", err)
	}
}
