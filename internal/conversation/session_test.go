package conversation

import (
	"context"
	"reflect"
	"strings"
	"testing"
	"time"

	"voicesurvey-platform/internal/callrecord"
	"voicesurvey-platform/internal/extract"
	"voicesurvey-platform/internal/survey"
)

type scriptSpeaker struct {
	lines []string
}

func (s *scriptSpeaker) Speak(_ context.Context, _ string, text string) error {
	s.lines = append(s.lines, text)
	return nil
}

func (s *scriptSpeaker) spoke(substr string) bool {
	for _, l := range s.lines {
		if strings.Contains(l, substr) {
			return true
		}
	}
	return false
}

type fixture struct {
	session    *Session
	speaker    *scriptSpeaker
	utterances chan Utterance
	signals    chan Signal
}

func newFixture(t *testing.T, questions []survey.Question, cfg Config) fixture {
	t.Helper()
	qn, err := survey.NewQuestionnaire("t", "Do you agree?", survey.VoiceConfig{}, questions)
	if err != nil {
		t.Fatalf("questionnaire: %v", err)
	}
	rec := callrecord.New("call-1", "s1", "ct1", qn, 0, time.Now())
	sp := &scriptSpeaker{}
	// Unbuffered channels: each send completes only when the session has
	// consumed the previous event, which keeps scripted ordering exact.
	utt := make(chan Utterance)
	sig := make(chan Signal)
	return fixture{
		session:    NewSession(cfg, rec, sp, utt, sig, nil),
		speaker:    sp,
		utterances: utt,
		signals:    sig,
	}
}

func (f fixture) speak(texts ...string) {
	go func() {
		for _, s := range texts {
			f.utterances <- Utterance{Text: s, At: time.Now()}
		}
	}()
}

func singleChoiceAB() []survey.Question {
	return []survey.Question{
		{ID: "q1", Text: "Pick one.", Type: survey.QuestionSingleChoice, Options: []string{"A", "B"}, Required: true},
	}
}

func TestRun_ConsentThenAnswer_Completes(t *testing.T) {
	f := newFixture(t, singleChoiceAB(), Config{})
	f.speak("yes", "B")

	snap, err := f.session.Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if snap.Status != callrecord.StatusCompleted {
		t.Fatalf("status = %q, want completed", snap.Status)
	}
	if snap.Consent != callrecord.ConsentGranted {
		t.Fatalf("consent = %q, want granted", snap.Consent)
	}
	a := snap.Answers["q1"]
	if a.Value.Option != "B" || a.Confidence != 100 || a.Source != extract.SourceLive {
		t.Fatalf("answer = %+v, want B/100/live", a)
	}
	if f.session.State() != StateCompleted {
		t.Fatalf("state = %q, want completed", f.session.State())
	}
	if !f.speaker.spoke("Do you agree?") || !f.speaker.spoke("Pick one.") || !f.speaker.spoke("Thank you") {
		t.Fatalf("missing spoken lines: %v", f.speaker.lines)
	}
}

func TestRun_DoubleNo_Declines(t *testing.T) {
	f := newFixture(t, singleChoiceAB(), Config{})
	f.speak("no", "no")

	snap, err := f.session.Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if snap.Status != callrecord.StatusDeclined {
		t.Fatalf("status = %q, want declined", snap.Status)
	}
	if snap.Consent != callrecord.ConsentDeclined {
		t.Fatalf("consent = %q, want declined", snap.Consent)
	}
	if len(snap.Answers) != 0 {
		t.Fatalf("answers must be empty for declined calls, got %v", snap.Answers)
	}
	// The gentle persuasion line is spoken once before declining.
	if !f.speaker.spoke("participate") {
		t.Fatalf("persuasion line not spoken: %v", f.speaker.lines)
	}
	if f.speaker.spoke("Pick one.") {
		t.Fatalf("questions must not be asked on declined consent")
	}
}

func TestRun_PersuasionRecoversUnclearConsent(t *testing.T) {
	f := newFixture(t, singleChoiceAB(), Config{})
	f.speak("what is this about", "yes", "A")

	snap, err := f.session.Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if snap.Status != callrecord.StatusCompleted {
		t.Fatalf("status = %q, want completed", snap.Status)
	}
	if snap.Answers["q1"].Value.Option != "A" {
		t.Fatalf("answer = %+v", snap.Answers["q1"])
	}
}

func TestRun_DisconnectAfterQuestionSpoken_Incomplete(t *testing.T) {
	qs := []survey.Question{
		{ID: "q1", Text: "How satisfied are you?", Type: survey.QuestionLinearScale, ScaleMin: 1, ScaleMax: 5, Required: true},
	}
	f := newFixture(t, qs, Config{})
	go func() {
		f.utterances <- Utterance{Text: "yes", At: time.Now()}
		// Delivered only once the session is listening for the answer.
		f.signals <- Signal{Kind: SignalDisconnected, At: time.Now()}
	}()

	snap, err := f.session.Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if snap.Status != callrecord.StatusIncomplete {
		t.Fatalf("status = %q, want incomplete (question was entered)", snap.Status)
	}
	if len(snap.Answers) != 0 {
		t.Fatalf("no answer should be fabricated, got %v", snap.Answers)
	}
	if f.session.State() != StateFailed {
		t.Fatalf("state = %q, want failed", f.session.State())
	}
}

func TestRun_DisconnectDuringConsent_Failed(t *testing.T) {
	f := newFixture(t, singleChoiceAB(), Config{})
	go func() {
		f.signals <- Signal{Kind: SignalDisconnected, At: time.Now()}
	}()

	snap, err := f.session.Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if snap.Status != callrecord.StatusFailed {
		t.Fatalf("status = %q, want failed (no question entered)", snap.Status)
	}
}

func TestRun_MaxCallDurationForcesFailure(t *testing.T) {
	f := newFixture(t, singleChoiceAB(), Config{MaxCallDuration: 10 * time.Millisecond})

	snap, err := f.session.Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if snap.Status != callrecord.StatusFailed {
		t.Fatalf("status = %q, want failed", snap.Status)
	}
}

func TestRun_CancellationObservedAtSuspensionPoint(t *testing.T) {
	f := newFixture(t, singleChoiceAB(), Config{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	snap, err := f.session.Run(ctx)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if snap.Status != callrecord.StatusFailed {
		t.Fatalf("status = %q, want failed", snap.Status)
	}
}

func TestRun_LowConfidenceTriggersSingleClarification(t *testing.T) {
	qs := []survey.Question{
		{ID: "q1", Text: "Favorite color?", Type: survey.QuestionSingleChoice, Options: []string{"Red", "Green", "Blue"}, Required: true},
	}
	f := newFixture(t, qs, Config{})
	f.speak("yes", "Gren", "green")

	snap, err := f.session.Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if snap.Status != callrecord.StatusCompleted {
		t.Fatalf("status = %q, want completed", snap.Status)
	}
	a := snap.Answers["q1"]
	if a.Value.Option != "Green" || a.Confidence != 100 {
		t.Fatalf("clarified answer = %+v, want Green/100", a)
	}
	if got := len(snap.TurnsFor("q1")); got != 2 {
		t.Fatalf("expected original + clarification turn, got %d", got)
	}
	if !f.speaker.spoke("didn't quite catch") {
		t.Fatalf("clarification prompt not spoken: %v", f.speaker.lines)
	}
}

func TestRun_RetryAnswerAcceptedRegardlessOfConfidence(t *testing.T) {
	qs := []survey.Question{
		{ID: "q1", Text: "How satisfied are you?", Type: survey.QuestionLinearScale, ScaleMin: 1, ScaleMax: 5, Required: true},
	}
	f := newFixture(t, qs, Config{})
	// Both answers are out of bounds; the second is accepted as-is with its
	// clamped value and no further clarification loop.
	f.speak("yes", "an eight", "still an eight")

	snap, err := f.session.Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if snap.Status != callrecord.StatusCompleted {
		t.Fatalf("status = %q, want completed", snap.Status)
	}
	a := snap.Answers["q1"]
	if a.Value.Scale != 5 || a.Confidence != 50 {
		t.Fatalf("retry answer = %+v, want clamped 5 at confidence 50", a)
	}
}

func TestRun_MultiChoiceAnswer(t *testing.T) {
	qs := []survey.Question{
		{ID: "q1", Text: "How should we contact you?", Type: survey.QuestionMultiChoice, Options: []string{"Email", "Phone", "Mail"}, Required: true},
	}
	f := newFixture(t, qs, Config{})
	f.speak("yes", "email and phone")

	snap, err := f.session.Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	a := snap.Answers["q1"]
	if !reflect.DeepEqual(a.Value.Options, []string{"Email", "Phone"}) {
		t.Fatalf("answer = %+v, want [Email Phone]", a)
	}
	if a.Confidence != 100 {
		t.Fatalf("confidence = %d, want 100", a.Confidence)
	}
}

func TestRun_SkipOnOptionalQuestionAdvances(t *testing.T) {
	qs := []survey.Question{
		{ID: "q1", Text: "Anything else?", Type: survey.QuestionFreeText, Required: false},
		{ID: "q2", Text: "Pick one.", Type: survey.QuestionSingleChoice, Options: []string{"A", "B"}, Required: true},
	}
	f := newFixture(t, qs, Config{})
	f.speak("yes", "skip", "A")

	snap, err := f.session.Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if snap.Status != callrecord.StatusCompleted {
		t.Fatalf("status = %q, want completed", snap.Status)
	}
	if a := snap.Answers["q1"]; !a.Value.NotAnswered || a.Confidence != 100 {
		t.Fatalf("skip sentinel missing: %+v", a)
	}
	if snap.Answers["q2"].Value.Option != "A" {
		t.Fatalf("q2 = %+v", snap.Answers["q2"])
	}
}
