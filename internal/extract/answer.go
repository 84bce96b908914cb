package extract

// Source records whether an answer was produced during the live call or
// reconstructed by the post-call reconciliation pass.
type Source string

const (
	SourceLive       Source = "live"
	SourceReconciled Source = "reconciled"
)

// Value is the typed structured value of one answer. The question type
// determines which field is populated; NotAnswered is the defined sentinel
// for an explicit, permitted skip (distinct from a question never reached,
// which is simply absent from the answer map).
type Value struct {
	Option  string   `json:"option,omitempty"`  // single_choice
	Options []string `json:"options,omitempty"` // multi_choice, first-mention order
	Scale   int      `json:"scale,omitempty"`   // linear_scale
	Text    string   `json:"text,omitempty"`    // free_text, verbatim

	NotAnswered bool `json:"not_answered,omitempty"`
}

// ExtractedAnswer is one candidate structured answer with its confidence.
//
// Confidence semantics:
//   - >= the clarify threshold (default 80): trusted as final unless
//     reconciliation overrides it
//   - below the threshold: triggers one in-call clarification, then is
//     deferred to reconciliation
//   - 0: captured but uninterpretable
type ExtractedAnswer struct {
	QuestionID string `json:"question_id"`
	Value      Value  `json:"value"`
	Confidence int    `json:"confidence"` // 0..100
	Source     Source `json:"source"`
}

func notAnswered(questionID string, confidence int) ExtractedAnswer {
	return ExtractedAnswer{
		QuestionID: questionID,
		Value:      Value{NotAnswered: true},
		Confidence: confidence,
		Source:     SourceLive,
	}
}
