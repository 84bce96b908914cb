// Package reconcile is the post-call second pass over a finished call record.
//
// The live conversation extracts answers one turn at a time; context spread
// across a clarification exchange ("the second one", "I mean B") is invisible
// to it. Reconciliation re-derives every low-confidence live answer from the
// full per-question turn history before the record is persisted.
package reconcile

import (
	"strings"

	"voicesurvey-platform/internal/callrecord"
	"voicesurvey-platform/internal/extract"
	"voicesurvey-platform/internal/survey"
)

// MaxConfidence caps reconciled answers below full live confidence so it
// stays auditable which answers were algorithmically reconstructed.
const MaxConfidence = 90

// Config controls the reconciliation pass.
type Config struct {
	// Threshold mirrors the conversation clarify threshold: live answers at
	// or above it are kept untouched.
	Threshold int

	Vocabulary extract.Vocabulary
}

func (c Config) withDefaults() Config {
	out := c
	if out.Threshold <= 0 {
		out.Threshold = 80
	}
	return out
}

// Map produces the final per-question structured result for one finished
// call. Runs once, strictly after the call's terminal state and never
// concurrently with its live conversation.
//
// Declined calls are never inspected: the mapping is empty by definition.
// Questions that were never reached stay absent from the mapping. Absent
// means "not collected", which is distinct from the "not answered" skip
// sentinel and from confidence 0 ("captured but uninterpretable").
func Map(cfg Config, snap callrecord.Snapshot, qn *survey.Questionnaire) map[string]extract.ExtractedAnswer {
	cfg = cfg.withDefaults()

	if snap.Consent != callrecord.ConsentGranted {
		return map[string]extract.ExtractedAnswer{}
	}

	out := make(map[string]extract.ExtractedAnswer, len(snap.Answers))
	for id, live := range snap.Answers {
		if live.Source != extract.SourceLive || live.Confidence >= cfg.Threshold {
			out[id] = live
			continue
		}
		q, ok := qn.ByID(id)
		if !ok {
			// Answer for a question this questionnaire does not know;
			// keep the live value rather than invent one.
			out[id] = live
			continue
		}

		turns := snap.TurnsFor(id)
		if len(turns) == 0 {
			out[id] = live
			continue
		}

		// Re-run extraction against the whole per-question exchange read
		// together; the concatenation can recover context lost turn-by-turn.
		joined := joinUtterances(turns)
		re := extract.Extract(cfg.Vocabulary, q, joined, true)
		re.Source = extract.SourceReconciled
		if re.Confidence > MaxConfidence {
			re.Confidence = MaxConfidence
		}
		out[id] = re
	}
	return out
}

func joinUtterances(turns []callrecord.Turn) string {
	parts := make([]string, 0, len(turns))
	for _, t := range turns {
		if s := strings.TrimSpace(t.Utterance); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, ". ")
}
