package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"voicesurvey-platform/internal/auth"
	"voicesurvey-platform/internal/campaign"
	"voicesurvey-platform/internal/contacts"
	"voicesurvey-platform/internal/rbac"
	"voicesurvey-platform/internal/reporting"
	"voicesurvey-platform/internal/store"
	"voicesurvey-platform/internal/survey"
	"voicesurvey-platform/pkg/logger"
)

// Handlers groups HTTP handlers for dependency injection.
// Keep these thin: parse/validate input, call internal services, return JSON.

type Handlers struct {
	Auth     *auth.Manager
	Surveys  store.SurveyRepository
	Contacts store.ContactRepository
	Calls    store.CallLogRepository
	Runner   *campaign.Runner
	Reports  *reporting.Service
	Progress *campaign.ProgressCache

	// Gate, when set, limits concurrent campaigns per org.
	Gate *campaign.Gate

	// DefaultMaxCallDuration applies when a create request omits the limit.
	DefaultMaxCallDuration time.Duration

	Now func() time.Time
}

func (h Handlers) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

// --- Auth ---

type loginRequest struct {
	UserID string `json:"user_id"`
	OrgID  string `json:"org_id"`
	Role   string `json:"role"`
}

// Login issues a JWT token pair.
//
// NOTE: This is a skeleton-only endpoint. Real systems must validate credentials.
func (h Handlers) Login(c *gin.Context) {
	if h.Auth == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "auth not configured"})
		return
	}
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if req.UserID == "" || req.OrgID == "" || req.Role == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "user_id, org_id, role required"})
		return
	}
	pair, err := h.Auth.IssuePair(h.now(), req.UserID, req.OrgID, req.Role)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "token issuance failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"access_token": pair.AccessToken, "refresh_token": pair.RefreshToken})
}

// --- Surveys ---

type createSurveyRequest struct {
	Title         string             `json:"title"`
	Researcher    string             `json:"researcher_name"`
	ConsentScript string             `json:"consent_script"`
	Voice         survey.VoiceConfig `json:"voice"`
	Questions     []survey.Question  `json:"questions"`

	MaxCallDurationSeconds int `json:"max_call_duration_seconds,omitempty"`
	MaxRetryAttempts       int `json:"max_retry_attempts,omitempty"`
}

func (h Handlers) CreateSurvey(c *gin.Context) {
	orgID, err := auth.OrgID(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "org_id required"})
		return
	}
	var req createSurveyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	qn, err := survey.NewQuestionnaire(req.Title, req.ConsentScript, req.Voice, req.Questions)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	now := h.now().UTC()
	sv := &survey.Survey{
		SurveyID:         uuid.NewString(),
		OrgID:            orgID,
		Title:            req.Title,
		Researcher:       req.Researcher,
		Status:           survey.SurveyStatusDraft,
		Questionnaire:    qn,
		MaxCallDuration:  time.Duration(req.MaxCallDurationSeconds) * time.Second,
		MaxRetryAttempts: req.MaxRetryAttempts,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if sv.MaxCallDuration == 0 {
		sv.MaxCallDuration = h.DefaultMaxCallDuration
	}
	if err := sv.ValidateSettings(); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.Surveys.CreateSurvey(c.Request.Context(), sv); err != nil {
		logger.FromGin(c).Error("create survey", "error", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "create failed"})
		return
	}
	c.JSON(http.StatusCreated, sv)
}

func (h Handlers) GetSurvey(c *gin.Context) {
	sv, ok := h.loadSurvey(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, sv)
}

type surveyStatusRequest struct {
	Status survey.SurveyStatus `json:"status"`
}

// UpdateSurveyStatus moves a survey between draft, active, paused and
// completed. Campaigns only start on active surveys.
func (h Handlers) UpdateSurveyStatus(c *gin.Context) {
	orgID, err := auth.OrgID(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "org_id required"})
		return
	}
	var req surveyStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	switch req.Status {
	case survey.SurveyStatusDraft, survey.SurveyStatusActive, survey.SurveyStatusPaused, survey.SurveyStatusCompleted:
	default:
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "unknown status"})
		return
	}
	if err := h.Surveys.UpdateSurveyStatus(c.Request.Context(), orgID, c.Param("survey_id"), req.Status); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "survey not found"})
			return
		}
		logger.FromGin(c).Error("update survey status", "error", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "update failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": req.Status})
}

// --- Contacts ---

type uploadContactsRequest struct {
	Contacts []struct {
		Name  string `json:"name"`
		Phone string `json:"phone"`
	} `json:"contacts"`
}

func (h Handlers) UploadContacts(c *gin.Context) {
	sv, ok := h.loadSurvey(c)
	if !ok {
		return
	}
	var req uploadContactsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if len(req.Contacts) == 0 {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "contacts required"})
		return
	}

	now := h.now().UTC()
	list := make([]contacts.Contact, 0, len(req.Contacts))
	for _, in := range req.Contacts {
		ct := contacts.Contact{
			ContactID: uuid.NewString(),
			SurveyID:  sv.SurveyID,
			Name:      in.Name,
			Phone:     in.Phone,
			CreatedAt: now,
		}
		ct.Normalize()
		if err := ct.Validate(); err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		list = append(list, ct)
	}

	if err := h.Contacts.AddContacts(c.Request.Context(), list); err != nil {
		if errors.Is(err, store.ErrConflict) {
			c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": "duplicate contact"})
			return
		}
		logger.FromGin(c).Error("add contacts", "error", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "upload failed"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"added": len(list)})
}

// --- Campaign ---

// StartCampaign launches the calling run in the background and returns 202.
// Progress is observable via the progress endpoint and the report.
func (h Handlers) StartCampaign(c *gin.Context) {
	if h.Runner == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "campaign runner not configured"})
		return
	}
	sv, ok := h.loadSurvey(c)
	if !ok {
		return
	}
	if sv.Status != survey.SurveyStatusActive {
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": "survey is not active"})
		return
	}
	list, err := h.Contacts.ListContacts(c.Request.Context(), sv.SurveyID)
	if err != nil {
		logger.FromGin(c).Error("list contacts", "error", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "contact lookup failed"})
		return
	}
	if len(list) == 0 {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "no contacts uploaded"})
		return
	}

	log := logger.FromGin(c)
	if h.Gate != nil {
		ok, err := h.Gate.Acquire(c.Request.Context(), sv.OrgID)
		if err != nil {
			log.Error("campaign gate", "error", err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "campaign gate unavailable"})
			return
		}
		if !ok {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "concurrent campaign limit reached"})
			return
		}
	}
	go func() {
		if h.Gate != nil {
			defer func() {
				if err := h.Gate.Release(context.Background(), sv.OrgID); err != nil {
					log.Error("campaign gate release", "error", err, "org_id", sv.OrgID)
				}
			}()
		}
		// The run outlives the HTTP request on purpose.
		sum, err := h.Runner.Run(context.Background(), sv, list)
		if err != nil {
			log.Error("campaign run", "error", err, "survey_id", sv.SurveyID)
			return
		}
		log.Info("campaign finished", "survey_id", sv.SurveyID,
			"calls_placed", sum.CallsPlaced, "completed", sum.Completed,
			"declined", sum.Declined, "incomplete", sum.Incomplete, "failed", sum.Failed)
	}()

	c.JSON(http.StatusAccepted, gin.H{"survey_id": sv.SurveyID, "contacts": len(list)})
}

func (h Handlers) CampaignProgress(c *gin.Context) {
	if h.Progress == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "progress cache not configured"})
		return
	}
	sv, ok := h.loadSurvey(c)
	if !ok {
		return
	}
	progress, err := h.Progress.Progress(c.Request.Context(), sv.SurveyID)
	if err != nil {
		logger.FromGin(c).Error("progress lookup", "error", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "progress lookup failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"survey_id": sv.SurveyID, "calls": progress})
}

// --- Results ---

func (h Handlers) ListResponses(c *gin.Context) {
	sv, ok := h.loadSurvey(c)
	if !ok {
		return
	}
	results, err := h.Calls.ListResults(c.Request.Context(), sv.SurveyID)
	if err != nil {
		logger.FromGin(c).Error("list results", "error", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "result lookup failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"survey_id": sv.SurveyID, "results": results})
}

func (h Handlers) CampaignReport(c *gin.Context) {
	if h.Reports == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "reporting not configured"})
		return
	}
	orgID, err := auth.OrgID(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "org_id required"})
		return
	}
	sum, err := h.Reports.CampaignSummary(c.Request.Context(), reporting.CampaignSummaryRequest{
		OrgID:    orgID,
		SurveyID: c.Param("survey_id"),
	})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "survey not found"})
			return
		}
		if errors.Is(err, reporting.ErrInvalidRequest) {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}
		logger.FromGin(c).Error("campaign report", "error", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "report failed"})
		return
	}
	c.JSON(http.StatusOK, sum)
}

// loadSurvey resolves :survey_id under the caller's org, writing the error
// response itself when the lookup fails.
func (h Handlers) loadSurvey(c *gin.Context) (*survey.Survey, bool) {
	orgID, err := auth.OrgID(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "org_id required"})
		return nil, false
	}
	surveyID := c.Param("survey_id")
	if surveyID == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "survey_id required"})
		return nil, false
	}
	sv, err := h.Surveys.GetSurvey(c.Request.Context(), orgID, surveyID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "survey not found"})
			return nil, false
		}
		logger.FromGin(c).Error("survey lookup", "error", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "survey lookup failed"})
		return nil, false
	}
	return sv, true
}

// Convenience middleware bundles.

func RequireOrgAndAnyRole(roles ...string) []gin.HandlerFunc {
	return []gin.HandlerFunc{rbac.RequireOrg(), rbac.RequireAnyRole(roles...)}
}
