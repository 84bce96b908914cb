package store

import (
	"context"
	"sort"
	"sync"

	"voicesurvey-platform/internal/campaign"
	"voicesurvey-platform/internal/contacts"
	"voicesurvey-platform/internal/extract"
	"voicesurvey-platform/internal/survey"
)

// Memory implements all three repositories in process. Useful for tests and
// local development; not intended for production use.
type Memory struct {
	mu sync.RWMutex

	// surveys by survey id, contacts by survey id, results by call id.
	surveys  map[string]*survey.Survey
	contacts map[string][]contacts.Contact
	results  map[string]campaign.Result
}

func NewMemory() *Memory {
	return &Memory{
		surveys:  map[string]*survey.Survey{},
		contacts: map[string][]contacts.Contact{},
		results:  map[string]campaign.Result{},
	}
}

func (m *Memory) CreateSurvey(ctx context.Context, sv *survey.Survey) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.surveys[sv.SurveyID]; exists {
		return ErrConflict
	}
	cp := *sv
	m.surveys[sv.SurveyID] = &cp
	return nil
}

func (m *Memory) GetSurvey(ctx context.Context, orgID, surveyID string) (*survey.Survey, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sv, ok := m.surveys[surveyID]
	if !ok || sv.OrgID != orgID {
		return nil, ErrNotFound
	}
	cp := *sv
	return &cp, nil
}

func (m *Memory) ListSurveys(ctx context.Context, orgID string) ([]*survey.Survey, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*survey.Survey
	for _, sv := range m.surveys {
		if sv.OrgID != orgID {
			continue
		}
		cp := *sv
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *Memory) UpdateSurveyStatus(ctx context.Context, orgID, surveyID string, status survey.SurveyStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	sv, ok := m.surveys[surveyID]
	if !ok || sv.OrgID != orgID {
		return ErrNotFound
	}
	sv.Status = status
	return nil
}

func (m *Memory) AddContacts(ctx context.Context, list []contacts.Contact) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range list {
		for _, have := range m.contacts[c.SurveyID] {
			if have.ContactID == c.ContactID {
				return ErrConflict
			}
		}
	}
	for _, c := range list {
		m.contacts[c.SurveyID] = append(m.contacts[c.SurveyID], c)
	}
	return nil
}

func (m *Memory) ListContacts(ctx context.Context, surveyID string) ([]contacts.Contact, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]contacts.Contact, len(m.contacts[surveyID]))
	copy(out, m.contacts[surveyID])
	return out, nil
}

func (m *Memory) SaveResult(ctx context.Context, res campaign.Result) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.results[res.Snapshot.CallID]; exists {
		return ErrConflict
	}
	m.results[res.Snapshot.CallID] = copyResult(res)
	return nil
}

func (m *Memory) GetResult(ctx context.Context, callID string) (campaign.Result, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res, ok := m.results[callID]
	if !ok {
		return campaign.Result{}, ErrNotFound
	}
	return copyResult(res), nil
}

func (m *Memory) ListResults(ctx context.Context, surveyID string) ([]campaign.Result, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []campaign.Result
	for _, res := range m.results {
		if res.Snapshot.SurveyID == surveyID {
			out = append(out, copyResult(res))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i].Snapshot, out[j].Snapshot
		if !a.StartedAt.Equal(b.StartedAt) {
			return a.StartedAt.Before(b.StartedAt)
		}
		return a.CallID < b.CallID
	})
	return out, nil
}

func copyResult(res campaign.Result) campaign.Result {
	cp := res
	cp.Final = make(map[string]extract.ExtractedAnswer, len(res.Final))
	for id, a := range res.Final {
		cp.Final[id] = a
	}
	return cp
}
