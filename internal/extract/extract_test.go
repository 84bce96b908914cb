package extract

import (
	"os"
	"reflect"
	"testing"

	"voicesurvey-platform/internal/survey"
)

var vocab = DefaultVocabulary()

func colorQuestion() survey.Question {
	return survey.Question{
		ID:       "q_color",
		Text:     "What is your favorite color?",
		Type:     survey.QuestionSingleChoice,
		Options:  []string{"Red", "Green", "Blue"},
		Required: true,
	}
}

func TestExtract_SingleChoice(t *testing.T) {
	q := colorQuestion()
	cases := []struct {
		name       string
		utterance  string
		wantOption string
		wantConf   int
		wantNA     bool
	}{
		{"exact case-insensitive", "green", "Green", 100, false},
		{"exact with casing", "BLUE", "Blue", 100, false},
		{"ordinal word", "the second one", "Green", 100, false},
		{"ordinal last", "the last one", "Blue", 100, false},
		{"bare letter", "B", "Green", 100, false},
		{"option N", "option 2", "Green", 100, false},
		{"number word after keyword", "number three", "Blue", 100, false},
		{"bare digit", "2", "Green", 100, false},
		{"fuzzy typo", "Gren", "Green", 70, false},
		{"fuzzy containment", "I like blue best", "Blue", 70, false},
		{"no match", "bananas", "", 0, true},
		{"ambiguous tie", "red or green", "", 0, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			a := Extract(vocab, q, tc.utterance, false)
			if a.Value.NotAnswered != tc.wantNA {
				t.Fatalf("NotAnswered = %v, want %v (%+v)", a.Value.NotAnswered, tc.wantNA, a)
			}
			if a.Value.Option != tc.wantOption {
				t.Fatalf("Option = %q, want %q", a.Value.Option, tc.wantOption)
			}
			if a.Confidence != tc.wantConf {
				t.Fatalf("Confidence = %d, want %d", a.Confidence, tc.wantConf)
			}
			if a.Source != SourceLive {
				t.Fatalf("Source = %q, want live", a.Source)
			}
		})
	}
}

func TestExtract_MultiChoice(t *testing.T) {
	q := survey.Question{
		ID:       "q_contact",
		Text:     "How should we contact you?",
		Type:     survey.QuestionMultiChoice,
		Options:  []string{"Email", "Phone", "Mail"},
		Required: true,
	}

	a := Extract(vocab, q, "email and phone", false)
	if !reflect.DeepEqual(a.Value.Options, []string{"Email", "Phone"}) {
		t.Fatalf("Options = %v, want [Email Phone]", a.Value.Options)
	}
	if a.Confidence != 100 {
		t.Fatalf("Confidence = %d, want 100 (min of two exact clauses)", a.Confidence)
	}

	// A fuzzy clause drags the whole confidence down to its minimum.
	a = Extract(vocab, q, "emai, and phone", false)
	if !reflect.DeepEqual(a.Value.Options, []string{"Email", "Phone"}) {
		t.Fatalf("Options = %v, want [Email Phone]", a.Value.Options)
	}
	if a.Confidence != 70 {
		t.Fatalf("Confidence = %d, want 70", a.Confidence)
	}

	// Order follows first mention, duplicates collapse.
	a = Extract(vocab, q, "phone, email and phone again", false)
	if !reflect.DeepEqual(a.Value.Options, []string{"Phone", "Email"}) {
		t.Fatalf("Options = %v, want [Phone Email]", a.Value.Options)
	}

	a = Extract(vocab, q, "carrier pigeon", false)
	if !a.Value.NotAnswered || a.Confidence != 0 {
		t.Fatalf("expected uninterpretable answer, got %+v", a)
	}
}

func TestExtract_LinearScale(t *testing.T) {
	q := survey.Question{
		ID:       "q_sat",
		Text:     "How satisfied are you?",
		Type:     survey.QuestionLinearScale,
		ScaleMin: 1,
		ScaleMax: 5,
		Required: true,
	}
	cases := []struct {
		name      string
		utterance string
		wantScale int
		wantConf  int
		wantNA    bool
	}{
		{"digit in range", "4", 4, 100, false},
		{"number word in range", "I'd give it a three", 3, 100, false},
		{"out of range clamps high", "I'd say about an eight", 5, 50, false},
		{"out of range clamps low", "zero", 1, 50, false},
		{"several in range is ambiguous", "between 3 and 4", 3, 50, false},
		{"no number", "pretty satisfied", 0, 0, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			a := Extract(vocab, q, tc.utterance, false)
			if a.Value.NotAnswered != tc.wantNA {
				t.Fatalf("NotAnswered = %v, want %v (%+v)", a.Value.NotAnswered, tc.wantNA, a)
			}
			if a.Value.Scale != tc.wantScale {
				t.Fatalf("Scale = %d, want %d", a.Value.Scale, tc.wantScale)
			}
			if a.Confidence != tc.wantConf {
				t.Fatalf("Confidence = %d, want %d", a.Confidence, tc.wantConf)
			}
		})
	}
}

func TestExtract_FreeText(t *testing.T) {
	q := survey.Question{ID: "q_open", Text: "Anything else?", Type: survey.QuestionFreeText}
	utterance := "Honestly, the checkout flow is confusing and slow."
	a := Extract(vocab, q, utterance, false)
	if a.Value.Text != utterance {
		t.Fatalf("Text = %q, want verbatim utterance", a.Value.Text)
	}
	if a.Confidence != 100 {
		t.Fatalf("Confidence = %d, want 100", a.Confidence)
	}
}

func TestExtract_SkipIntent(t *testing.T) {
	optional := survey.Question{ID: "q_open", Text: "Anything else?", Type: survey.QuestionFreeText, Required: false}
	for _, u := range []string{"skip", "pass", "I don't know", "I'd prefer not to say"} {
		a := Extract(vocab, optional, u, false)
		if !a.Value.NotAnswered || a.Confidence != 100 {
			t.Fatalf("utterance %q: expected skip sentinel with confidence 100, got %+v", u, a)
		}
	}

	// Required questions never honor the skip intent.
	required := colorQuestion()
	a := Extract(vocab, required, "skip", false)
	if a.Confidence == 100 && a.Value.NotAnswered {
		t.Fatalf("required question honored skip: %+v", a)
	}
}

func TestExtract_Idempotent(t *testing.T) {
	q := colorQuestion()
	for _, u := range []string{"green", "Gren", "the second one", "mumble"} {
		for _, retry := range []bool{false, true} {
			first := Extract(vocab, q, u, retry)
			second := Extract(vocab, q, u, retry)
			if !reflect.DeepEqual(first, second) {
				t.Fatalf("extract not idempotent for %q retry=%v: %+v vs %+v", u, retry, first, second)
			}
		}
	}
}

func TestExtract_RetryFlagDoesNotChangeValue(t *testing.T) {
	q := colorQuestion()
	a := Extract(vocab, q, "Gren", false)
	b := Extract(vocab, q, "Gren", true)
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("isRetry changed computed answer: %+v vs %+v", a, b)
	}
}

func TestClassifyConsent(t *testing.T) {
	cases := []struct {
		utterance string
		want      ConsentIntent
	}{
		{"yes", ConsentAffirmative},
		{"Yeah, sure.", ConsentAffirmative},
		{"okay go ahead", ConsentAffirmative},
		{"no", ConsentNegative},
		{"Nope, not interested.", ConsentNegative},
		{"please stop calling me", ConsentNegative},
		{"what is this about", ConsentUnclear},
		{"", ConsentUnclear},
		// "no" must not fire inside "know".
		{"I know what you mean", ConsentUnclear},
		{"yes... actually no", ConsentUnclear},
	}
	for _, tc := range cases {
		if got := ClassifyConsent(vocab, tc.utterance); got != tc.want {
			t.Fatalf("ClassifyConsent(%q) = %q, want %q", tc.utterance, got, tc.want)
		}
	}
}

func TestLoadVocabularyFile_FillsDefaults(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/intents.yaml"
	if err := os.WriteFile(path, []byte("yes:\n  - si\n  - claro\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	v, err := LoadVocabularyFile(path)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if len(v.Yes) != 2 || v.Yes[0] != "si" {
		t.Fatalf("Yes = %v, want overridden list", v.Yes)
	}
	if len(v.No) == 0 || len(v.Skip) == 0 {
		t.Fatalf("missing defaults for absent lists: %+v", v)
	}
	if ClassifyConsent(v, "claro") != ConsentAffirmative {
		t.Fatalf("loaded vocabulary not applied")
	}
}
