// Package campaign orchestrates outbound survey call campaigns: dialing
// contacts with bounded concurrency, driving one conversation session per
// call, reconciling low-confidence answers after hangup and persisting the
// final result.
package campaign

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"voicesurvey-platform/internal/audit"
	"voicesurvey-platform/internal/callrecord"
	"voicesurvey-platform/internal/contacts"
	"voicesurvey-platform/internal/conversation"
	"voicesurvey-platform/internal/extract"
	"voicesurvey-platform/internal/reconcile"
	"voicesurvey-platform/internal/survey"
	"voicesurvey-platform/internal/telephony"
)

var (
	ErrSurveyNotActive = errors.New("campaign: survey is not active")
	ErrNoContacts      = errors.New("campaign: no contacts to call")
)

// Result is the persisted outcome of one finished call: the raw call record
// snapshot plus the post-call reconciled answer mapping.
//
// Final holds only questions that were actually asked; a question id absent
// from the map means "never reached", which is distinct from a present
// answer with NotAnswered set.
type Result struct {
	Snapshot callrecord.Snapshot                `json:"snapshot"`
	Final    map[string]extract.ExtractedAnswer `json:"final"`
}

// ResultStore persists finished call results. Implementations live in
// internal/store.
type ResultStore interface {
	SaveResult(ctx context.Context, res Result) error
}

// Summary aggregates one campaign run by terminal call status.
type Summary struct {
	Contacts    int `json:"contacts"`
	CallsPlaced int `json:"calls_placed"`

	Completed  int `json:"completed"`
	Declined   int `json:"declined"`
	Incomplete int `json:"incomplete"`
	Failed     int `json:"failed"`
}

// Runner executes a campaign for one survey.
//
// Rules:
// - At most MaxConcurrent calls are in flight at once.
// - Per-call failures never abort sibling calls; they are counted in the
//   summary. Only context cancellation stops the whole run.
// - Only calls that ended failed (never reached a question) are redialed,
//   up to Survey.MaxRetryAttempts. Incomplete calls are not redialed; the
//   participant already gave partial answers.
type Runner struct {
	provider telephony.Provider
	store    ResultStore

	session conversation.Config

	progress *ProgressCache // optional
	auditor  *audit.Service // optional
	orgID    string

	maxConcurrent int
	now           func() time.Time
	log           *slog.Logger
}

// RunnerOptions configures a Runner. Provider and Store are required.
type RunnerOptions struct {
	Provider telephony.Provider
	Store    ResultStore

	// Session carries the shared conversation settings. MaxCallDuration is
	// overridden per survey.
	Session conversation.Config

	Progress *ProgressCache
	Auditor  *audit.Service
	OrgID    string

	// MaxConcurrent bounds in-flight calls. Defaults to 4.
	MaxConcurrent int

	Now func() time.Time
	Log *slog.Logger
}

func NewRunner(opts RunnerOptions) (*Runner, error) {
	if opts.Provider == nil {
		return nil, errors.New("campaign: provider is required")
	}
	if opts.Store == nil {
		return nil, errors.New("campaign: result store is required")
	}
	if opts.MaxConcurrent <= 0 {
		opts.MaxConcurrent = 4
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Log == nil {
		opts.Log = slog.Default()
	}
	return &Runner{
		provider:      opts.Provider,
		store:         opts.Store,
		session:       opts.Session,
		progress:      opts.Progress,
		auditor:       opts.Auditor,
		orgID:         opts.OrgID,
		maxConcurrent: opts.MaxConcurrent,
		now:           opts.Now,
		log:           opts.Log,
	}, nil
}

// Run calls every contact and blocks until all calls have reached a terminal
// state or ctx is canceled. Calls in flight at cancellation still run their
// session to its failure path so their partial records are persisted.
func (r *Runner) Run(ctx context.Context, sv *survey.Survey, list []contacts.Contact) (Summary, error) {
	if sv.Status != survey.SurveyStatusActive {
		return Summary{}, ErrSurveyNotActive
	}
	if len(list) == 0 {
		return Summary{}, ErrNoContacts
	}

	var (
		mu  sync.Mutex
		sum = Summary{Contacts: len(list)}
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.maxConcurrent)

	for _, ct := range list {
		ct := ct
		g.Go(func() error {
			status, placed := r.callContact(gctx, sv, ct)

			mu.Lock()
			sum.CallsPlaced += placed
			switch status {
			case callrecord.StatusCompleted:
				sum.Completed++
			case callrecord.StatusDeclined:
				sum.Declined++
			case callrecord.StatusIncomplete:
				sum.Incomplete++
			default:
				sum.Failed++
			}
			mu.Unlock()
			return nil
		})
	}

	err := g.Wait()
	if err == nil {
		err = ctx.Err()
	}
	return sum, err
}

// callContact dials one contact, redialing failed attempts up to the survey
// retry budget. Returns the final status and the number of calls placed.
func (r *Runner) callContact(ctx context.Context, sv *survey.Survey, ct contacts.Contact) (callrecord.Status, int) {
	placed := 0
	status := callrecord.StatusFailed
	for attempt := 0; attempt <= sv.MaxRetryAttempts; attempt++ {
		if ctx.Err() != nil && placed > 0 {
			break
		}
		if attempt > 0 {
			r.logEvent(ctx, audit.EventTypeCallRetried, sv, ct.ContactID, "",
				fmt.Sprintf("redial attempt %d of %d", attempt, sv.MaxRetryAttempts))
		}
		status = r.placeCall(ctx, sv, ct, attempt)
		placed++
		if status != callrecord.StatusFailed {
			break
		}
	}
	return status, placed
}

// placeCall runs exactly one call attempt to a terminal state and persists
// the result. Persistence and audit failures are logged, never propagated;
// a saved-nowhere record is still a finished call.
func (r *Runner) placeCall(ctx context.Context, sv *survey.Survey, ct contacts.Contact, attempt int) callrecord.Status {
	callID := uuid.NewString()
	startedAt := r.now().UTC()
	rec := callrecord.New(callID, sv.SurveyID, ct.ContactID, sv.Questionnaire, attempt, startedAt)

	log := r.log.With("call_id", callID, "survey_id", sv.SurveyID, "contact_id", ct.ContactID)

	ac, err := r.provider.Dial(ctx, telephony.DialRequest{
		CallID:       callID,
		SurveyID:     sv.SurveyID,
		ContactID:    ct.ContactID,
		To:           ct.Phone,
		Instructions: survey.BuildInstructions(sv.Questionnaire, sv.Researcher, ct.Name),
		Voice:        sv.Questionnaire.Voice().Voice,
		OccurredAt:   startedAt,
	})
	if err != nil {
		log.Warn("dial failed", "error", err)
		if terr := rec.MarkTerminal(callrecord.StatusFailed, r.now().UTC()); terr != nil {
			log.Error("mark failed after dial error", "error", terr)
		}
		snap := rec.Snapshot()
		r.persist(ctx, sv, ct, Result{Snapshot: snap, Final: map[string]extract.ExtractedAnswer{}})
		return snap.Status
	}

	r.logEvent(ctx, audit.EventTypeCallStarted, sv, ct.ContactID, callID, "outbound call placed")
	r.setProgress(ctx, sv.SurveyID, ct.ContactID, callrecord.StatusInProgress)

	cfg := r.session
	cfg.MaxCallDuration = sv.MaxCallDuration
	cfg.Now = r.now

	sess := conversation.NewSession(cfg, rec, ac.Speaker, ac.Utterances, ac.Signals, log)
	snap, err := sess.Run(ctx)
	if err != nil {
		log.Error("session contract violation", "error", err)
	}
	if herr := r.provider.Hangup(context.WithoutCancel(ctx), callID); herr != nil {
		log.Warn("hangup failed", "error", herr)
	}

	final := reconcile.Map(reconcile.Config{
		Threshold:  cfg.ClarifyThreshold,
		Vocabulary: cfg.Vocabulary,
	}, snap, sv.Questionnaire)
	if reconciled := countReconciled(final); reconciled > 0 {
		r.logEvent(ctx, audit.EventTypeReconciled, sv, ct.ContactID, callID,
			fmt.Sprintf("%d answers reconciled from transcript", reconciled))
	}

	r.persist(ctx, sv, ct, Result{Snapshot: snap, Final: final})
	r.setProgress(ctx, sv.SurveyID, ct.ContactID, snap.Status)
	r.logEvent(ctx, eventForStatus(snap.Status), sv, ct.ContactID, callID, "call reached "+string(snap.Status))
	return snap.Status
}

func (r *Runner) persist(ctx context.Context, sv *survey.Survey, ct contacts.Contact, res Result) {
	// Persist even when the run context is canceled; the record is the only
	// trace of the participant's time.
	if err := r.store.SaveResult(context.WithoutCancel(ctx), res); err != nil {
		r.log.Error("save call result", "error", err,
			"call_id", res.Snapshot.CallID, "survey_id", sv.SurveyID, "contact_id", ct.ContactID)
	}
}

func (r *Runner) setProgress(ctx context.Context, surveyID, contactID string, status callrecord.Status) {
	if r.progress == nil {
		return
	}
	if err := r.progress.SetCallStatus(context.WithoutCancel(ctx), surveyID, contactID, status); err != nil {
		r.log.Warn("progress cache update failed", "error", err, "survey_id", surveyID)
	}
}

func (r *Runner) logEvent(ctx context.Context, typ audit.EventType, sv *survey.Survey, contactID, callID, msg string) {
	if r.auditor == nil {
		return
	}
	orgID := r.orgID
	if orgID == "" {
		orgID = sv.OrgID
	}
	if err := r.auditor.LogCall(context.WithoutCancel(ctx), typ, orgID, sv.SurveyID, contactID, callID, msg); err != nil {
		r.log.Warn("audit append failed", "error", err, "type", string(typ))
	}
}

func eventForStatus(s callrecord.Status) audit.EventType {
	switch s {
	case callrecord.StatusCompleted:
		return audit.EventTypeCallCompleted
	case callrecord.StatusDeclined:
		return audit.EventTypeConsentDeclined
	case callrecord.StatusIncomplete:
		return audit.EventTypeCallIncomplete
	default:
		return audit.EventTypeCallFailed
	}
}

func countReconciled(final map[string]extract.ExtractedAnswer) int {
	n := 0
	for _, a := range final {
		if a.Source == extract.SourceReconciled {
			n++
		}
	}
	return n
}
