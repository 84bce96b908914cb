package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"voicesurvey-platform/internal/callrecord"
	"voicesurvey-platform/internal/campaign"
	"voicesurvey-platform/internal/contacts"
	"voicesurvey-platform/internal/extract"
	"voicesurvey-platform/internal/survey"
	"voicesurvey-platform/pkg/utils"
)

// NOTE: This repository assumes the following tables exist:
// - surveys (questionnaire stored as JSONB)
// - contacts (UNIQUE (survey_id, contact_id))
// - call_results (append-only; one row per call attempt, JSONB transcript
//   and answer payloads)

// Postgres implements SurveyRepository, ContactRepository and
// CallLogRepository on one database/sql pool (pgx stdlib driver).
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres { return &Postgres{db: db} }

func (s *Postgres) CreateSurvey(ctx context.Context, sv *survey.Survey) error {
	qdoc, err := json.Marshal(sv.Questionnaire)
	if err != nil {
		return fmt.Errorf("encode questionnaire: %w", err)
	}
	const q = `
INSERT INTO surveys (
  survey_id, org_id, title, researcher_name, status, questionnaire,
  max_call_duration_ms, max_retry_attempts, created_at, updated_at
) VALUES (
  $1,$2,$3,$4,$5,$6,$7,$8,$9,$10
)
`
	_, err = s.db.ExecContext(ctx, q,
		sv.SurveyID,
		sv.OrgID,
		sv.Title,
		sv.Researcher,
		sv.Status,
		qdoc,
		sv.MaxCallDuration.Milliseconds(),
		sv.MaxRetryAttempts,
		sv.CreatedAt,
		sv.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return ErrConflict
	}
	return err
}

func (s *Postgres) GetSurvey(ctx context.Context, orgID, surveyID string) (*survey.Survey, error) {
	const q = `
SELECT survey_id, org_id, title, researcher_name, status, questionnaire,
       max_call_duration_ms, max_retry_attempts, created_at, updated_at
FROM surveys
WHERE org_id = $1 AND survey_id = $2
`
	return scanSurvey(s.db.QueryRowContext(ctx, q, orgID, surveyID))
}

func (s *Postgres) ListSurveys(ctx context.Context, orgID string) ([]*survey.Survey, error) {
	const q = `
SELECT survey_id, org_id, title, researcher_name, status, questionnaire,
       max_call_duration_ms, max_retry_attempts, created_at, updated_at
FROM surveys
WHERE org_id = $1
ORDER BY created_at DESC
`
	rows, err := s.db.QueryContext(ctx, q, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*survey.Survey
	for rows.Next() {
		sv, err := scanSurvey(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sv)
	}
	return out, rows.Err()
}

func (s *Postgres) UpdateSurveyStatus(ctx context.Context, orgID, surveyID string, status survey.SurveyStatus) error {
	const q = `
UPDATE surveys
SET status = $3, updated_at = now()
WHERE org_id = $1 AND survey_id = $2
`
	res, err := s.db.ExecContext(ctx, q, orgID, surveyID, status)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSurvey(row rowScanner) (*survey.Survey, error) {
	var (
		sv         survey.Survey
		qdoc       []byte
		durationMS int64
	)
	if err := row.Scan(
		&sv.SurveyID,
		&sv.OrgID,
		&sv.Title,
		&sv.Researcher,
		&sv.Status,
		&qdoc,
		&durationMS,
		&sv.MaxRetryAttempts,
		&sv.CreatedAt,
		&sv.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	sv.MaxCallDuration = time.Duration(durationMS) * time.Millisecond

	var qn survey.Questionnaire
	if err := json.Unmarshal(qdoc, &qn); err != nil {
		return nil, fmt.Errorf("decode questionnaire: %w", err)
	}
	sv.Questionnaire = &qn
	return &sv, nil
}

// AddContacts inserts a batch in one transaction. Duplicate (survey_id,
// contact_id) pairs abort the whole batch with ErrConflict.
func (s *Postgres) AddContacts(ctx context.Context, list []contacts.Contact) error {
	if len(list) == 0 {
		return nil
	}
	return utils.WithTx(ctx, s.db, nil, func(ctx context.Context, tx *sql.Tx) error {
		const q = `
INSERT INTO contacts (contact_id, survey_id, name, phone, created_at)
VALUES ($1,$2,$3,$4,$5)
`
		for _, c := range list {
			if _, err := tx.ExecContext(ctx, q, c.ContactID, c.SurveyID, c.Name, c.Phone, c.CreatedAt); err != nil {
				if isUniqueViolation(err) {
					return ErrConflict
				}
				return err
			}
		}
		return nil
	})
}

func (s *Postgres) ListContacts(ctx context.Context, surveyID string) ([]contacts.Contact, error) {
	const q = `
SELECT contact_id, survey_id, name, phone, created_at
FROM contacts
WHERE survey_id = $1
ORDER BY created_at, contact_id
`
	rows, err := s.db.QueryContext(ctx, q, surveyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []contacts.Contact
	for rows.Next() {
		var c contacts.Contact
		if err := rows.Scan(&c.ContactID, &c.SurveyID, &c.Name, &c.Phone, &c.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Postgres) SaveResult(ctx context.Context, res campaign.Result) error {
	turns, err := json.Marshal(res.Snapshot.Turns)
	if err != nil {
		return fmt.Errorf("encode turns: %w", err)
	}
	answers, err := json.Marshal(res.Snapshot.Answers)
	if err != nil {
		return fmt.Errorf("encode answers: %w", err)
	}
	final, err := json.Marshal(res.Final)
	if err != nil {
		return fmt.Errorf("encode final mapping: %w", err)
	}
	const q = `
INSERT INTO call_results (
  call_id, survey_id, contact_id, consent, status, retry_count,
  turns, answers, final, started_at, ended_at
) VALUES (
  $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11
)
`
	snap := res.Snapshot
	_, err = s.db.ExecContext(ctx, q,
		snap.CallID,
		snap.SurveyID,
		snap.ContactID,
		snap.Consent,
		snap.Status,
		snap.RetryCount,
		turns,
		answers,
		final,
		snap.StartedAt,
		snap.EndedAt,
	)
	if isUniqueViolation(err) {
		return ErrConflict
	}
	return err
}

func (s *Postgres) GetResult(ctx context.Context, callID string) (campaign.Result, error) {
	const q = `
SELECT call_id, survey_id, contact_id, consent, status, retry_count,
       turns, answers, final, started_at, ended_at
FROM call_results
WHERE call_id = $1
`
	return scanResult(s.db.QueryRowContext(ctx, q, callID))
}

func (s *Postgres) ListResults(ctx context.Context, surveyID string) ([]campaign.Result, error) {
	const q = `
SELECT call_id, survey_id, contact_id, consent, status, retry_count,
       turns, answers, final, started_at, ended_at
FROM call_results
WHERE survey_id = $1
ORDER BY started_at, call_id
`
	rows, err := s.db.QueryContext(ctx, q, surveyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []campaign.Result
	for rows.Next() {
		res, err := scanResult(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	return out, rows.Err()
}

func scanResult(row rowScanner) (campaign.Result, error) {
	var (
		snap    callrecord.Snapshot
		turns   []byte
		answers []byte
		final   []byte
	)
	if err := row.Scan(
		&snap.CallID,
		&snap.SurveyID,
		&snap.ContactID,
		&snap.Consent,
		&snap.Status,
		&snap.RetryCount,
		&turns,
		&answers,
		&final,
		&snap.StartedAt,
		&snap.EndedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return campaign.Result{}, ErrNotFound
		}
		return campaign.Result{}, err
	}
	if err := json.Unmarshal(turns, &snap.Turns); err != nil {
		return campaign.Result{}, fmt.Errorf("decode turns: %w", err)
	}
	if err := json.Unmarshal(answers, &snap.Answers); err != nil {
		return campaign.Result{}, fmt.Errorf("decode answers: %w", err)
	}
	res := campaign.Result{Snapshot: snap}
	if err := json.Unmarshal(final, &res.Final); err != nil {
		return campaign.Result{}, fmt.Errorf("decode final mapping: %w", err)
	}
	if res.Final == nil {
		res.Final = map[string]extract.ExtractedAnswer{}
	}
	return res, nil
}

// isUniqueViolation detects Postgres error 23505 without depending on the
// driver's error type at every call site.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	type sqlState interface{ SQLState() string }
	var st sqlState
	if errors.As(err, &st) {
		return st.SQLState() == "23505"
	}
	return false
}
