package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/logger"

	"giveaway/internal/config"
	"giveaway/internal/services"
	"giveaway/internal/store"
)

// HTTPHandler holds the dependencies for the HTTP handlers.
type HTTPHandler struct {
	workflow *services.WorkflowService
	store    *store.Store
	cfg      *config.Config
}

// NewHTTPHandler creates a new HTTPHandler.
func NewHTTPHandler(workflow *services.WorkflowService, st *store.Store, cfg *config.Config) *HTTPHandler {
	return &HTTPHandler{workflow: workflow, store: st, cfg: cfg}
}

// RegisterRoutes registers the participant flow and admin routes.
func (h *HTTPHandler) RegisterRoutes(router *gin.Engine) {
	p := router.Group("/participants/:identity")
	p.POST("/start", h.Start)
	p.POST("/name", h.SetName)
	p.POST("/contact", h.SetContact)
	p.POST("/engagement/check", h.CheckEngagement)
	p.POST("/proof", h.SubmitProof)
	p.POST("/claim", h.Claim)
	p.GET("", h.GetParticipant)

	admin := router.Group("/admin")
	admin.Use(h.AdminMiddleware())
	admin.GET("/stats", h.GetStats)
	admin.GET("/export.csv", h.ExportCSV)
	admin.POST("/purge", h.Purge)
}

// AdminMiddleware rejects admin requests without the configured token.
// An unset token disables the admin surface entirely.
func (h *HTTPHandler) AdminMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if h.cfg.AdminToken == "" || c.GetHeader("X-Admin-Token") != h.cfg.AdminToken {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "admin access denied"})
			return
		}
		c.Next()
	}
}

// Start handles first contact.
func (h *HTTPHandler) Start(c *gin.Context) {
	p, err := h.workflow.Start(c.Request.Context(), c.Param("identity"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// SetName handles the name step.
func (h *HTTPHandler) SetName(c *gin.Context) {
	var body struct {
		Name string `json:"name" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name is required"})
		return
	}
	if err := h.workflow.SetName(c.Request.Context(), c.Param("identity"), body.Name); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"stage": "NAME_SET"})
}

// SetContact handles the phone step.
func (h *HTTPHandler) SetContact(c *gin.Context) {
	var body struct {
		Phone      string `json:"phone" binding:"required"`
		Structured bool   `json:"structured"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "phone is required"})
		return
	}
	if err := h.workflow.SetContact(c.Request.Context(), c.Param("identity"), body.Phone, body.Structured); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"stage": "CONTACT_SET"})
}

// CheckEngagement triggers the external engagement verification.
func (h *HTTPHandler) CheckEngagement(c *gin.Context) {
	verified, err := h.workflow.CheckEngagement(c.Request.Context(), c.Param("identity"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"verified": verified})
}

// maxProofBytes caps proof uploads.
const maxProofBytes = 20 << 20

// SubmitProof accepts the proof image as a multipart "photo" field.
func (h *HTTPHandler) SubmitProof(c *gin.Context) {
	file, _, err := c.Request.FormFile("photo")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "photo file is required"})
		return
	}
	defer file.Close()

	// Read one byte past the cap so an oversized upload is rejected rather
	// than stored truncated.
	payload, err := io.ReadAll(io.LimitReader(file, maxProofBytes+1))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "could not read photo"})
		return
	}
	if len(payload) > maxProofBytes {
		c.JSON(http.StatusBadRequest, gin.H{"error": "photo exceeds the 20 MB limit"})
		return
	}
	if err := h.workflow.SubmitProof(c.Request.Context(), c.Param("identity"), payload); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"stage": "PROOF_SUBMITTED"})
}

// Claim settles the participant's prize outcome.
func (h *HTTPHandler) Claim(c *gin.Context) {
	result, err := h.workflow.Claim(c.Request.Context(), c.Param("identity"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// GetParticipant returns the participant's current state.
func (h *HTTPHandler) GetParticipant(c *gin.Context) {
	p, err := h.store.GetParticipant(c.Request.Context(), c.Param("identity"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// GetStats returns today's counters.
func (h *HTTPHandler) GetStats(c *gin.Context) {
	date := c.Query("date")
	if date == "" {
		date = store.DateKey(h.workflow.Now())
	}
	stats, err := h.store.GetDailyStats(c.Request.Context(), date)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// ExportCSV streams all participants as a CSV download.
func (h *HTTPHandler) ExportCSV(c *gin.Context) {
	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", "attachment;filename=participants.csv")

	// BOM keeps Excel happy with UTF-8 names.
	c.Writer.Write([]byte("\xef\xbb\xbf"))

	if err := services.ExportParticipantsCSV(c.Request.Context(), h.store, c.Writer); err != nil {
		logger.Errorf("export: %v", err)
	}
}

// Purge wipes all participants and counters.
func (h *HTTPHandler) Purge(c *gin.Context) {
	if err := h.store.Purge(c.Request.Context()); err != nil {
		h.respondError(c, err)
		return
	}
	logger.Infof("admin purge completed")
	c.JSON(http.StatusOK, gin.H{"purged": true})
}

// respondError maps workflow errors onto HTTP statuses. Recoverable errors
// carry the guidance message so the client can reprompt.
func (h *HTTPHandler) respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrStateViolation):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrDuplicateContact):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, store.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "participant not found"})
	case errors.Is(err, services.ErrExternalUnavailable):
		c.JSON(http.StatusBadGateway, gin.H{"error": "external service unavailable, try again"})
	default:
		logger.Errorf("request failed: %v", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "temporary failure, try again"})
	}
}
