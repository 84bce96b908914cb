package reporting

import (
	"context"
	"errors"

	"voicesurvey-platform/internal/callrecord"
	"voicesurvey-platform/internal/campaign"
	"voicesurvey-platform/internal/extract"
	"voicesurvey-platform/internal/survey"
)

var ErrInvalidRequest = errors.New("reporting: invalid request")

// Repository abstracts data access for reporting.
//
// IMPORTANT:
// - The survey lookup must enforce org filtering; reporting never reads
//   across tenants.
// - Implementations should query immutable sources (call results, audit).
//
// Both methods are satisfied by the store implementations.

type Repository interface {
	GetSurvey(ctx context.Context, orgID, surveyID string) (*survey.Survey, error)
	ListResults(ctx context.Context, surveyID string) ([]campaign.Result, error)
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service { return &Service{repo: repo} }

// CampaignSummary aggregates all persisted call results for one survey.
//
// Redial handling: per-status counts and rates consider only the effective
// (latest) attempt per contact, so a contact who failed once and then
// completed counts as completed, not both.
func (s *Service) CampaignSummary(ctx context.Context, req CampaignSummaryRequest) (CampaignSummary, error) {
	if req.OrgID == "" || req.SurveyID == "" {
		return CampaignSummary{}, ErrInvalidRequest
	}
	if s.repo == nil {
		return CampaignSummary{}, errors.New("reporting: repository not configured")
	}

	if _, err := s.repo.GetSurvey(ctx, req.OrgID, req.SurveyID); err != nil {
		return CampaignSummary{}, err
	}
	rows, err := s.repo.ListResults(ctx, req.SurveyID)
	if err != nil {
		return CampaignSummary{}, err
	}

	out := CampaignSummary{
		OrgID:       req.OrgID,
		SurveyID:    req.SurveyID,
		PerQuestion: map[string]int{},
	}

	// rows are chronological, so the last result per contact wins.
	effective := map[string]campaign.Result{}
	for _, r := range rows {
		out.TotalCalls++
		if !r.Snapshot.EndedAt.IsZero() && r.Snapshot.EndedAt.After(r.Snapshot.StartedAt) {
			out.TotalDurationSeconds += int(r.Snapshot.EndedAt.Sub(r.Snapshot.StartedAt).Seconds())
		}
		effective[r.Snapshot.ContactID] = r
	}

	granted := 0
	for _, r := range effective {
		out.EffectiveCalls++
		switch r.Snapshot.Status {
		case callrecord.StatusCompleted:
			out.CompletedCalls++
		case callrecord.StatusDeclined:
			out.DeclinedCalls++
		case callrecord.StatusIncomplete:
			out.IncompleteCalls++
		default:
			out.FailedCalls++
		}
		if r.Snapshot.Consent == callrecord.ConsentGranted {
			granted++
		}
		for id, a := range r.Final {
			if a.Source == extract.SourceReconciled {
				out.ReconciledAnswers++
			}
			if !a.Value.NotAnswered && a.Confidence > 0 {
				out.PerQuestion[id]++
			}
		}
	}

	if out.EffectiveCalls > 0 {
		out.ConsentRate = float64(granted) / float64(out.EffectiveCalls)
		out.CompletionRate = float64(out.CompletedCalls) / float64(out.EffectiveCalls)
	}
	if out.TotalCalls > 0 {
		out.AverageDurationSeconds = out.TotalDurationSeconds / out.TotalCalls
	}
	return out, nil
}
