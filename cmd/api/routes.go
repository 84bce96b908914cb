package main

import (
	"github.com/gin-gonic/gin"

	"voicesurvey-platform/internal/httpapi"
	"voicesurvey-platform/internal/rbac"
	"voicesurvey-platform/internal/telephony"
)

// registerRoutes wires HTTP routes to handlers.
// Keep this file free of business logic. Handlers delegate to internal modules.
func registerRoutes(r *gin.Engine, h httpapi.Handlers, status telephony.StatusWebhookHandler, transcript telephony.TranscriptWebhookHandler, authMW gin.HandlerFunc) {
	// public
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// Gateway webhooks (public).
	// NOTE: These endpoints should be protected by gateway signature
	// validation in production.
	r.POST("/webhooks/telephony/status", status.HandleStatus)
	r.POST("/webhooks/telephony/transcript", transcript.HandleTranscript)

	// protected API group
	v1 := r.Group("/v1")
	v1.Use(authMW)
	{
		// AUTH routes (token issuance).
		// NOTE: placeholder login; real credential validation is not implemented.
		v1.POST("/auth/login", h.Login)

		surveys := v1.Group("/surveys")
		surveys.Use(rbac.RequireOrg())
		{
			// Survey authoring: owners and researchers.
			authoring := surveys.Group("")
			authoring.Use(rbac.RequireAnyRole(rbac.RoleOwner, rbac.RoleResearcher))
			{
				authoring.POST("", h.CreateSurvey)
				authoring.PATCH("/:survey_id/status", h.UpdateSurveyStatus)
				authoring.POST("/:survey_id/contacts", h.UploadContacts)
			}

			// Campaign operation: operators may run and observe, too.
			ops := surveys.Group("")
			ops.Use(rbac.RequireAnyRole(rbac.RoleOwner, rbac.RoleResearcher, rbac.RoleOperator))
			{
				ops.GET("/:survey_id", h.GetSurvey)
				ops.POST("/:survey_id/campaign/start", h.StartCampaign)
				ops.GET("/:survey_id/campaign/progress", h.CampaignProgress)
				ops.GET("/:survey_id/responses", h.ListResponses)
				ops.GET("/:survey_id/report", h.CampaignReport)
			}
		}
	}
}
