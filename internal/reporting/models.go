package reporting

// CampaignSummaryRequest requests aggregated campaign metrics for one survey.
// Tenant isolation: OrgID is required and scopes the survey lookup.

type CampaignSummaryRequest struct {
	OrgID    string `json:"org_id"`
	SurveyID string `json:"survey_id"`
}

type CampaignSummary struct {
	OrgID    string `json:"org_id"`
	SurveyID string `json:"survey_id"`

	// TotalCalls counts every attempt, redials included. EffectiveCalls
	// counts one call per contact, the latest attempt.
	TotalCalls     int `json:"total_calls"`
	EffectiveCalls int `json:"effective_calls"`

	CompletedCalls  int `json:"completed_calls"`
	DeclinedCalls   int `json:"declined_calls"`
	IncompleteCalls int `json:"incomplete_calls"`
	FailedCalls     int `json:"failed_calls"`

	// ConsentRate is grants over effective calls; CompletionRate is
	// completed over effective calls. Both are 0 when no calls were placed.
	ConsentRate    float64 `json:"consent_rate"`
	CompletionRate float64 `json:"completion_rate"`

	TotalDurationSeconds   int `json:"total_duration_seconds"`
	AverageDurationSeconds int `json:"average_duration_seconds"`

	// ReconciledAnswers counts final answers recovered by the post-call
	// pass rather than trusted live.
	ReconciledAnswers int `json:"reconciled_answers"`

	// PerQuestion maps question id to how many effective calls produced a
	// non-skipped answer for it.
	PerQuestion map[string]int `json:"per_question"`
}
