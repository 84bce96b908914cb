package callrecord

import (
	"errors"
	"time"

	"voicesurvey-platform/internal/extract"
	"voicesurvey-platform/internal/survey"
)

// ErrAlreadyTerminal is returned when a record is terminated twice.
// This is always a programming defect, never an expected runtime condition.
var ErrAlreadyTerminal = errors.New("callrecord: already terminal")

type Status string

const (
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	// StatusIncomplete means the call failed after at least one question was
	// entered; already-extracted answers are kept.
	StatusIncomplete Status = "incomplete"
	StatusDeclined   Status = "declined"
	// StatusFailed means the call never reached any question.
	StatusFailed Status = "failed"
)

func (s Status) Terminal() bool { return s != StatusInProgress }

type Consent string

const (
	ConsentUnknown  Consent = "unknown"
	ConsentGranted  Consent = "granted"
	ConsentDeclined Consent = "declined"
)

// Turn is one recorded utterance from the participant. QuestionID is empty
// for consent-gate turns. Turns are append-only; never mutated or deleted.
type Turn struct {
	QuestionID string    `json:"question_id,omitempty"`
	Utterance  string    `json:"utterance"`
	At         time.Time `json:"at"`
}

// Record accumulates raw turns and extracted answers for exactly one call.
//
// Deliberately not thread-safe: each in-flight call owns one Record and
// drives it from a single goroutine. At terminal state the record is read via
// Snapshot and not mutated further by the core.
type Record struct {
	callID    string
	surveyID  string
	contactID string

	questionnaire *survey.Questionnaire

	consent Consent
	status  Status

	turns   []Turn
	answers map[string]extract.ExtractedAnswer

	// retryCount is the redial attempt this record belongs to, 0 for the
	// first placement. Bounded by the survey's MaxRetryAttempts.
	retryCount int

	startedAt time.Time
	endedAt   time.Time
}

func New(callID, surveyID, contactID string, qn *survey.Questionnaire, retryCount int, startedAt time.Time) *Record {
	return &Record{
		callID:        callID,
		surveyID:      surveyID,
		contactID:     contactID,
		questionnaire: qn,
		consent:       ConsentUnknown,
		status:        StatusInProgress,
		answers:       make(map[string]extract.ExtractedAnswer),
		retryCount:    retryCount,
		startedAt:     startedAt,
	}
}

func (r *Record) CallID() string                       { return r.callID }
func (r *Record) Questionnaire() *survey.Questionnaire { return r.questionnaire }
func (r *Record) Consent() Consent                     { return r.consent }
func (r *Record) Status() Status                       { return r.status }

func (r *Record) SetConsent(c Consent) { r.consent = c }

// AppendTurn records one participant utterance in chronological order.
func (r *Record) AppendTurn(t Turn) { r.turns = append(r.turns, t) }

// PutAnswer upserts the answer for a question id. Later writes replace
// earlier ones, which is how reconciliation overrides a live low-confidence
// entry.
func (r *Record) PutAnswer(a extract.ExtractedAnswer) { r.answers[a.QuestionID] = a }

// MarkTerminal assigns the terminal status exactly once.
func (r *Record) MarkTerminal(s Status, at time.Time) error {
	if r.status.Terminal() {
		return ErrAlreadyTerminal
	}
	if !s.Terminal() {
		return errors.New("callrecord: terminal status required")
	}
	r.status = s
	r.endedAt = at
	return nil
}

// Snapshot is an immutable read view of a Record, safe to hand across
// goroutine boundaries to the reconciliation mapper and persistence.
type Snapshot struct {
	CallID    string `json:"call_id"`
	SurveyID  string `json:"survey_id"`
	ContactID string `json:"contact_id"`

	Consent Consent `json:"consent"`
	Status  Status  `json:"status"`

	Turns   []Turn                             `json:"turns"`
	Answers map[string]extract.ExtractedAnswer `json:"answers"`

	RetryCount int       `json:"retry_count"`
	StartedAt  time.Time `json:"started_at"`
	EndedAt    time.Time `json:"ended_at,omitempty"`
}

// Snapshot deep-copies the mutable collections so the caller cannot observe
// later writes (and the core cannot observe caller mutation).
func (r *Record) Snapshot() Snapshot {
	turns := make([]Turn, len(r.turns))
	copy(turns, r.turns)

	answers := make(map[string]extract.ExtractedAnswer, len(r.answers))
	for id, a := range r.answers {
		ac := a
		ac.Value.Options = append([]string(nil), a.Value.Options...)
		answers[id] = ac
	}

	return Snapshot{
		CallID:     r.callID,
		SurveyID:   r.surveyID,
		ContactID:  r.contactID,
		Consent:    r.consent,
		Status:     r.status,
		Turns:      turns,
		Answers:    answers,
		RetryCount: r.retryCount,
		StartedAt:  r.startedAt,
		EndedAt:    r.endedAt,
	}
}

// TurnsFor returns the turns recorded against one question id, in
// chronological order.
func (s Snapshot) TurnsFor(questionID string) []Turn {
	var out []Turn
	for _, t := range s.Turns {
		if t.QuestionID == questionID {
			out = append(out, t)
		}
	}
	return out
}
