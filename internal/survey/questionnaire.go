package survey

import (
	"encoding/json"
	"errors"
	"fmt"
)

var (
	// ErrMalformedQuestionnaire is wrapped by all construction failures.
	ErrMalformedQuestionnaire = errors.New("survey: malformed questionnaire")

	ErrInvalidSettings = errors.New("survey: invalid settings")
)

// QuestionType determines which auxiliary fields a question carries and which
// extraction rules apply to spoken answers.
type QuestionType string

const (
	QuestionSingleChoice QuestionType = "single_choice"
	QuestionMultiChoice  QuestionType = "multi_choice"
	QuestionLinearScale  QuestionType = "linear_scale"
	QuestionFreeText     QuestionType = "free_text"
)

// Question is one item of a questionnaire.
//
// Invariant: Type fully determines which of Options/ScaleMin/ScaleMax are
// populated. Choice types carry Options and no scale; linear_scale carries
// bounds and no options; free_text carries neither.
type Question struct {
	ID   string       `json:"question_id"`
	Text string       `json:"question_text"`
	Type QuestionType `json:"question_type"`

	// Options is ordered; ordinal references ("the second one") resolve
	// against this order.
	Options []string `json:"options,omitempty"`

	ScaleMin int `json:"scale_min,omitempty"`
	ScaleMax int `json:"scale_max,omitempty"`

	// Required=false means a spoken skip intent yields the defined
	// "not answered" value instead of missing data.
	Required bool `json:"required"`
}

func (q Question) validate() error {
	if q.ID == "" {
		return fmt.Errorf("%w: question id required", ErrMalformedQuestionnaire)
	}
	if q.Text == "" {
		return fmt.Errorf("%w: question %s has no text", ErrMalformedQuestionnaire, q.ID)
	}
	switch q.Type {
	case QuestionSingleChoice, QuestionMultiChoice:
		if len(q.Options) == 0 {
			return fmt.Errorf("%w: question %s is %s but has no options", ErrMalformedQuestionnaire, q.ID, q.Type)
		}
		if q.ScaleMin != 0 || q.ScaleMax != 0 {
			return fmt.Errorf("%w: question %s is %s but carries scale bounds", ErrMalformedQuestionnaire, q.ID, q.Type)
		}
	case QuestionLinearScale:
		if len(q.Options) != 0 {
			return fmt.Errorf("%w: question %s is linear_scale but carries options", ErrMalformedQuestionnaire, q.ID)
		}
		if q.ScaleMin >= q.ScaleMax {
			return fmt.Errorf("%w: question %s has invalid scale bounds [%d,%d]", ErrMalformedQuestionnaire, q.ID, q.ScaleMin, q.ScaleMax)
		}
	case QuestionFreeText:
		if len(q.Options) != 0 || q.ScaleMin != 0 || q.ScaleMax != 0 {
			return fmt.Errorf("%w: question %s is free_text but carries options or scale bounds", ErrMalformedQuestionnaire, q.ID)
		}
	default:
		return fmt.Errorf("%w: question %s has unknown type %q", ErrMalformedQuestionnaire, q.ID, q.Type)
	}
	return nil
}

// Questionnaire is the canonical typed representation of a survey's questions.
//
// Immutable after construction, so it is safe for concurrent read access by
// the many call sessions of one campaign. Question order is the interview
// order; indexes are meaningful for resumption bookkeeping.
type Questionnaire struct {
	title         string
	consentScript string
	voice         VoiceConfig

	questions []Question
	byID      map[string]int
}

// NewQuestionnaire validates and builds a questionnaire.
// Fails with a wrapped ErrMalformedQuestionnaire if the question sequence is
// empty, ids collide, or any question's options/scale combination is
// inconsistent with its type.
func NewQuestionnaire(title, consentScript string, voice VoiceConfig, questions []Question) (*Questionnaire, error) {
	if len(questions) == 0 {
		return nil, fmt.Errorf("%w: no questions", ErrMalformedQuestionnaire)
	}
	if consentScript == "" {
		return nil, fmt.Errorf("%w: consent script required", ErrMalformedQuestionnaire)
	}

	byID := make(map[string]int, len(questions))
	qs := make([]Question, len(questions))
	for i, q := range questions {
		if err := q.validate(); err != nil {
			return nil, err
		}
		if _, dup := byID[q.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate question id %s", ErrMalformedQuestionnaire, q.ID)
		}
		byID[q.ID] = i

		// Defensive copy so callers cannot mutate options after construction.
		qc := q
		qc.Options = append([]string(nil), q.Options...)
		qs[i] = qc
	}

	return &Questionnaire{
		title:         title,
		consentScript: consentScript,
		voice:         voice,
		questions:     qs,
		byID:          byID,
	}, nil
}

func (qn *Questionnaire) Title() string         { return qn.title }
func (qn *Questionnaire) ConsentScript() string { return qn.consentScript }
func (qn *Questionnaire) Voice() VoiceConfig    { return qn.voice }
func (qn *Questionnaire) Len() int              { return len(qn.questions) }

// At returns the question at interview position i.
// Panics on out-of-range access; callers iterate [0, Len()).
func (qn *Questionnaire) At(i int) Question { return qn.questions[i] }

// ByID looks a question up by stable id.
func (qn *Questionnaire) ByID(id string) (Question, bool) {
	i, ok := qn.byID[id]
	if !ok {
		return Question{}, false
	}
	return qn.questions[i], true
}

// IndexOf returns the interview position of a question id.
func (qn *Questionnaire) IndexOf(id string) (int, bool) {
	i, ok := qn.byID[id]
	return i, ok
}

// Questions returns a copy of the question sequence in interview order.
func (qn *Questionnaire) Questions() []Question {
	out := make([]Question, len(qn.questions))
	for i, q := range qn.questions {
		qc := q
		qc.Options = append([]string(nil), q.Options...)
		out[i] = qc
	}
	return out
}

// questionnaireDoc is the storage/wire shape of a Questionnaire. Decoding
// goes through NewQuestionnaire so persisted rows cannot bypass validation.
type questionnaireDoc struct {
	Title         string      `json:"title"`
	ConsentScript string      `json:"consent_script"`
	Voice         VoiceConfig `json:"voice"`
	Questions     []Question  `json:"questions"`
}

func (qn *Questionnaire) MarshalJSON() ([]byte, error) {
	return json.Marshal(questionnaireDoc{
		Title:         qn.title,
		ConsentScript: qn.consentScript,
		Voice:         qn.voice,
		Questions:     qn.Questions(),
	})
}

func (qn *Questionnaire) UnmarshalJSON(data []byte) error {
	var doc questionnaireDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}
	built, err := NewQuestionnaire(doc.Title, doc.ConsentScript, doc.Voice, doc.Questions)
	if err != nil {
		return err
	}
	*qn = *built
	return nil
}
