// Package store holds the persistence contracts and implementations for
// surveys, contacts and finished call results. Postgres is the production
// backend; memory implementations back tests and local development.
package store

import (
	"context"
	"errors"

	"voicesurvey-platform/internal/campaign"
	"voicesurvey-platform/internal/contacts"
	"voicesurvey-platform/internal/survey"
)

var (
	ErrNotFound = errors.New("store: not found")
	ErrConflict = errors.New("store: conflict")
)

// SurveyRepository persists survey definitions.
//
// Multi-tenant rule: every read is scoped by org id. There is no
// cross-tenant lookup path.
type SurveyRepository interface {
	CreateSurvey(ctx context.Context, sv *survey.Survey) error
	GetSurvey(ctx context.Context, orgID, surveyID string) (*survey.Survey, error)
	ListSurveys(ctx context.Context, orgID string) ([]*survey.Survey, error)
	UpdateSurveyStatus(ctx context.Context, orgID, surveyID string, status survey.SurveyStatus) error
}

// ContactRepository persists campaign contact lists.
type ContactRepository interface {
	AddContacts(ctx context.Context, list []contacts.Contact) error
	ListContacts(ctx context.Context, surveyID string) ([]contacts.Contact, error)
}

// CallLogRepository persists finished call results. Every attempt is kept,
// including failed redials; the latest row per contact is the effective one.
type CallLogRepository interface {
	SaveResult(ctx context.Context, res campaign.Result) error
	GetResult(ctx context.Context, callID string) (campaign.Result, error)
	ListResults(ctx context.Context, surveyID string) ([]campaign.Result, error)
}
