package survey

import "time"

// Survey represents an org-scoped voice survey.
//
// Multi-tenant invariant: OrgID is required on every row.
//
// NOTE: This is a domain model only. Form-provider-specific fields (like a
// Google Form URL) should be stored as separate columns or metadata, not mixed
// into this provider-agnostic core model.
//
// The embedded Questionnaire is immutable once the survey is created; editing
// a live survey's questions would corrupt in-flight call records that
// reference questions by id and index.

type Survey struct {
	SurveyID string `json:"survey_id" db:"survey_id"`
	OrgID    string `json:"org_id" db:"org_id"`

	Title string `json:"title" db:"title"`

	// Researcher is the display name spoken during the call introduction
	// ("calling on behalf of ...").
	Researcher string `json:"researcher_name" db:"researcher_name"`

	Status SurveyStatus `json:"status" db:"status"`

	Questionnaire *Questionnaire `json:"questionnaire" db:"questionnaire"`

	// MaxCallDuration bounds a whole call, counted from call start.
	// Accepted range: 1 to 30 minutes.
	MaxCallDuration time.Duration `json:"max_call_duration" db:"max_call_duration"`

	// MaxRetryAttempts bounds redials for calls that failed before reaching
	// any question. Accepted range: 0 to 5.
	MaxRetryAttempts int `json:"max_retry_attempts" db:"max_retry_attempts"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

type SurveyStatus string

const (
	SurveyStatusDraft     SurveyStatus = "draft"
	SurveyStatusActive    SurveyStatus = "active"
	SurveyStatusPaused    SurveyStatus = "paused"
	SurveyStatusCompleted SurveyStatus = "completed"
)

// ValidateSettings checks the call-control settings on a survey.
// Questionnaire structure is validated separately by NewQuestionnaire.
func (s Survey) ValidateSettings() error {
	if s.MaxCallDuration < time.Minute || s.MaxCallDuration > 30*time.Minute {
		return ErrInvalidSettings
	}
	if s.MaxRetryAttempts < 0 || s.MaxRetryAttempts > 5 {
		return ErrInvalidSettings
	}
	return nil
}

// VoiceConfig carries the spoken-delivery preferences for a survey.
//
// It is opaque to response extraction: it only affects what the agent sounds
// like and what extra instructions the conversational engine receives, never
// how the call state machine transitions.
type VoiceConfig struct {
	// Tone is one of "friendly", "professional", "casual".
	Tone string `json:"tone" db:"tone"`

	// Voice names the TTS voice at the media boundary.
	Voice string `json:"voice,omitempty" db:"voice"`

	// Instructions is free-form behavioral text appended to the agent prompt.
	Instructions string `json:"instructions,omitempty" db:"instructions"`
}
