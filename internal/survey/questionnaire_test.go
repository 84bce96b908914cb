package survey

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"
)

func validQuestions() []Question {
	return []Question{
		{ID: "q1", Text: "What is your favorite color?", Type: QuestionSingleChoice, Options: []string{"Red", "Green", "Blue"}, Required: true},
		{ID: "q2", Text: "How satisfied are you?", Type: QuestionLinearScale, ScaleMin: 1, ScaleMax: 5, Required: true},
		{ID: "q3", Text: "Anything else?", Type: QuestionFreeText},
	}
}

func TestNewQuestionnaire_Valid(t *testing.T) {
	qn, err := NewQuestionnaire("Colors", "Do you agree to participate?", VoiceConfig{Tone: "friendly"}, validQuestions())
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if qn.Len() != 3 {
		t.Fatalf("expected 3 questions, got %d", qn.Len())
	}
	q, ok := qn.ByID("q2")
	if !ok || q.ScaleMax != 5 {
		t.Fatalf("ByID lookup failed: %+v ok=%v", q, ok)
	}
	if i, ok := qn.IndexOf("q3"); !ok || i != 2 {
		t.Fatalf("IndexOf q3 = %d ok=%v", i, ok)
	}
}

func TestNewQuestionnaire_Malformed(t *testing.T) {
	cases := []struct {
		name      string
		questions []Question
	}{
		{"empty sequence", nil},
		{"duplicate ids", []Question{
			{ID: "q1", Text: "a", Type: QuestionFreeText},
			{ID: "q1", Text: "b", Type: QuestionFreeText},
		}},
		{"choice without options", []Question{
			{ID: "q1", Text: "a", Type: QuestionSingleChoice},
		}},
		{"choice with scale bounds", []Question{
			{ID: "q1", Text: "a", Type: QuestionMultiChoice, Options: []string{"x"}, ScaleMax: 5},
		}},
		{"scale with options", []Question{
			{ID: "q1", Text: "a", Type: QuestionLinearScale, ScaleMin: 1, ScaleMax: 5, Options: []string{"x"}},
		}},
		{"scale min >= max", []Question{
			{ID: "q1", Text: "a", Type: QuestionLinearScale, ScaleMin: 5, ScaleMax: 5},
		}},
		{"free text with options", []Question{
			{ID: "q1", Text: "a", Type: QuestionFreeText, Options: []string{"x"}},
		}},
		{"unknown type", []Question{
			{ID: "q1", Text: "a", Type: "yes_no"},
		}},
		{"missing text", []Question{
			{ID: "q1", Type: QuestionFreeText},
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewQuestionnaire("t", "consent?", VoiceConfig{}, tc.questions)
			if !errors.Is(err, ErrMalformedQuestionnaire) {
				t.Fatalf("expected ErrMalformedQuestionnaire, got %v", err)
			}
		})
	}
}

func TestNewQuestionnaire_RequiresConsentScript(t *testing.T) {
	_, err := NewQuestionnaire("t", "", VoiceConfig{}, validQuestions())
	if !errors.Is(err, ErrMalformedQuestionnaire) {
		t.Fatalf("expected ErrMalformedQuestionnaire, got %v", err)
	}
}

func TestNewQuestionnaire_CopiesOptions(t *testing.T) {
	opts := []string{"Red", "Green"}
	qn, err := NewQuestionnaire("t", "consent?", VoiceConfig{}, []Question{
		{ID: "q1", Text: "a", Type: QuestionSingleChoice, Options: opts},
	})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	opts[0] = "mutated"
	if qn.At(0).Options[0] != "Red" {
		t.Fatalf("questionnaire observed caller mutation")
	}
}

func TestSurvey_ValidateSettings(t *testing.T) {
	s := Survey{MaxCallDuration: 5 * time.Minute, MaxRetryAttempts: 2}
	if err := s.ValidateSettings(); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	for _, bad := range []Survey{
		{MaxCallDuration: 30 * time.Second, MaxRetryAttempts: 2},
		{MaxCallDuration: 31 * time.Minute, MaxRetryAttempts: 2},
		{MaxCallDuration: 5 * time.Minute, MaxRetryAttempts: 6},
		{MaxCallDuration: 5 * time.Minute, MaxRetryAttempts: -1},
	} {
		if err := bad.ValidateSettings(); !errors.Is(err, ErrInvalidSettings) {
			t.Fatalf("expected ErrInvalidSettings for %+v, got %v", bad, err)
		}
	}
}

func TestBuildInstructions(t *testing.T) {
	qn, err := NewQuestionnaire("Commute Habits", "Do you agree to participate?", VoiceConfig{Tone: "professional", Instructions: "Mention anonymity."}, validQuestions())
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	out := BuildInstructions(qn, "Acme Research", "Sam")
	for _, want := range []string{
		"Commute Habits",
		"professional tone",
		"1. [single_choice] What is your favorite color?",
		"Options: Red, Green, Blue",
		"Scale: 1 to 5",
		"Hi Sam!",
		"Do you agree to participate?",
		"Mention anonymity.",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("instructions missing %q:\n%s", want, out)
		}
	}
}

func TestQuestionnaire_JSONRoundTripRevalidates(t *testing.T) {
	qn, err := NewQuestionnaire("Commute Habits", "Do you agree to participate?", VoiceConfig{Tone: "friendly"}, validQuestions())
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}

	data, err := json.Marshal(qn)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var back Questionnaire
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if back.Title() != qn.Title() || back.Len() != qn.Len() || back.ConsentScript() != qn.ConsentScript() {
		t.Fatalf("round trip changed the questionnaire")
	}
	if _, ok := back.ByID(validQuestions()[0].ID); !ok {
		t.Fatalf("index not rebuilt on decode")
	}

	// A persisted doc that fails validation must not decode.
	var bad Questionnaire
	if err := json.Unmarshal([]byte(`{"title":"x","consent_script":"","questions":[]}`), &bad); !errors.Is(err, ErrMalformedQuestionnaire) {
		t.Fatalf("expected ErrMalformedQuestionnaire, got %v", err)
	}
}
