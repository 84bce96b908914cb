package reporting

import (
	"context"
	"errors"
	"testing"
	"time"

	"voicesurvey-platform/internal/callrecord"
	"voicesurvey-platform/internal/campaign"
	"voicesurvey-platform/internal/extract"
	"voicesurvey-platform/internal/store"
	"voicesurvey-platform/internal/survey"
)

func seedSurvey(t *testing.T, m *store.Memory, surveyID, orgID string) {
	t.Helper()
	qn, err := survey.NewQuestionnaire("S", "May I ask you a few questions?", survey.VoiceConfig{}, []survey.Question{
		{ID: "q1", Text: "Favorite color?", Type: survey.QuestionSingleChoice, Options: []string{"Red", "Blue"}, Required: true},
		{ID: "q2", Text: "Anything else?", Type: survey.QuestionFreeText},
	})
	if err != nil {
		t.Fatalf("questionnaire: %v", err)
	}
	sv := &survey.Survey{
		SurveyID:        surveyID,
		OrgID:           orgID,
		Title:           "S",
		Status:          survey.SurveyStatusActive,
		Questionnaire:   qn,
		MaxCallDuration: 5 * time.Minute,
	}
	if err := m.CreateSurvey(context.Background(), sv); err != nil {
		t.Fatalf("create survey: %v", err)
	}
}

func seedResult(t *testing.T, m *store.Memory, callID, contactID string, status callrecord.Status, consent callrecord.Consent, started time.Time, dur time.Duration, final map[string]extract.ExtractedAnswer) {
	t.Helper()
	res := campaign.Result{
		Snapshot: callrecord.Snapshot{
			CallID:    callID,
			SurveyID:  "sv1",
			ContactID: contactID,
			Consent:   consent,
			Status:    status,
			StartedAt: started,
			EndedAt:   started.Add(dur),
		},
		Final: final,
	}
	if err := m.SaveResult(context.Background(), res); err != nil {
		t.Fatalf("save result: %v", err)
	}
}

func TestCampaignSummary_AggregatesByEffectiveAttempt(t *testing.T) {
	m := store.NewMemory()
	seedSurvey(t, m, "sv1", "org1")
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	// ct1 failed once, then completed on the redial.
	seedResult(t, m, "c1", "ct1", callrecord.StatusFailed, callrecord.ConsentUnknown, base, 10*time.Second, nil)
	seedResult(t, m, "c2", "ct1", callrecord.StatusCompleted, callrecord.ConsentGranted, base.Add(time.Minute), 90*time.Second,
		map[string]extract.ExtractedAnswer{
			"q1": {QuestionID: "q1", Value: extract.Value{Option: "Red"}, Confidence: 100, Source: extract.SourceLive},
			"q2": {QuestionID: "q2", Value: extract.Value{Text: "no"}, Confidence: 90, Source: extract.SourceReconciled},
		})
	// ct2 declined.
	seedResult(t, m, "c3", "ct2", callrecord.StatusDeclined, callrecord.ConsentDeclined, base.Add(2*time.Minute), 20*time.Second, nil)
	// ct3 hung up mid-survey with one explicit skip recorded.
	seedResult(t, m, "c4", "ct3", callrecord.StatusIncomplete, callrecord.ConsentGranted, base.Add(3*time.Minute), 40*time.Second,
		map[string]extract.ExtractedAnswer{
			"q2": {QuestionID: "q2", Value: extract.Value{NotAnswered: true}, Confidence: 100, Source: extract.SourceLive},
		})

	svc := NewService(m)
	out, err := svc.CampaignSummary(context.Background(), CampaignSummaryRequest{OrgID: "org1", SurveyID: "sv1"})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}

	if out.TotalCalls != 4 || out.EffectiveCalls != 3 {
		t.Fatalf("unexpected call counts: %+v", out)
	}
	if out.CompletedCalls != 1 || out.DeclinedCalls != 1 || out.IncompleteCalls != 1 || out.FailedCalls != 0 {
		t.Fatalf("redial must supersede the failed attempt: %+v", out)
	}
	if out.ConsentRate < 0.66 || out.ConsentRate > 0.67 {
		t.Fatalf("expected consent rate 2/3, got %v", out.ConsentRate)
	}
	if out.CompletionRate < 0.33 || out.CompletionRate > 0.34 {
		t.Fatalf("expected completion rate 1/3, got %v", out.CompletionRate)
	}
	if out.TotalDurationSeconds != 160 || out.AverageDurationSeconds != 40 {
		t.Fatalf("unexpected durations: %+v", out)
	}
	if out.ReconciledAnswers != 1 {
		t.Fatalf("expected 1 reconciled answer, got %d", out.ReconciledAnswers)
	}
	// The explicit skip on ct3's q2 must not count as a collected response;
	// ct1's reconciled q2 does.
	if out.PerQuestion["q1"] != 1 || out.PerQuestion["q2"] != 1 {
		t.Fatalf("unexpected per-question counts: %+v", out.PerQuestion)
	}
}

func TestCampaignSummary_TenantIsolation(t *testing.T) {
	m := store.NewMemory()
	seedSurvey(t, m, "sv1", "org1")

	svc := NewService(m)
	if _, err := svc.CampaignSummary(context.Background(), CampaignSummaryRequest{OrgID: "org2", SurveyID: "sv1"}); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("cross-tenant report must fail with not found, got %v", err)
	}
	if _, err := svc.CampaignSummary(context.Background(), CampaignSummaryRequest{SurveyID: "sv1"}); !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest, got %v", err)
	}
}
