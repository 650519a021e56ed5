package session

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mbd888/botdesk/internal/auth"
	"github.com/mbd888/botdesk/internal/bots"
	"github.com/mbd888/botdesk/internal/plan"
	"github.com/mbd888/botdesk/internal/quota"
	"github.com/mbd888/botdesk/internal/validation"
)

const (
	maxBotNameLen     = 100
	maxWelcomeLen     = 500
	maxMessageLen     = 4000
	maxPagesPerUpload = 10000
)

// PlanAssigner changes a user's plan.
type PlanAssigner interface {
	SetPlan(ctx context.Context, userID string, p plan.Plan) error
}

// Handler provides HTTP endpoints for the dashboard session.
type Handler struct {
	service *Service
	plans   PlanAssigner
}

// NewHandler creates a new session handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// WithPlanAssigner enables the admin plan endpoint.
func (h *Handler) WithPlanAssigner(p PlanAssigner) *Handler {
	h.plans = p
	return h
}

// RegisterRoutes sets up session routes. The group must require a user.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/session", h.GetSession)
	r.GET("/session/bots", h.ListBots)
	r.POST("/session/bots", h.CreateBot)
	r.POST("/session/bots/:id/activate", h.SwitchBot)
	r.PATCH("/session/bots/:id", h.UpdateBot)
	r.DELETE("/session/bots/:id", h.DeleteBot)
	r.GET("/session/bot", h.GetActiveBot)
	r.PATCH("/session/bot", h.UpdateActiveBot)
	r.GET("/session/usage", h.GetUsage)
	r.POST("/session/messages", h.SendMessage)
	r.POST("/session/pages", h.AddPages)
}

// RegisterAdminRoutes sets up operator routes. The group must require admin.
func (h *Handler) RegisterAdminRoutes(r *gin.RouterGroup) {
	if h.plans != nil {
		r.PUT("/sessions/:userId/plan", h.SetPlan)
	}
	r.POST("/sessions/:userId/reset", h.ResetMonthly)
	r.POST("/sessions/reset", h.ResetAllMonthly)
}

// GetSession handles GET /v1/session
func (h *Handler) GetSession(c *gin.Context) {
	snap, err := h.service.Get(c.Request.Context(), auth.GetUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

// ListBots handles GET /v1/session/bots
func (h *Handler) ListBots(c *gin.Context) {
	snap, err := h.service.Get(c.Request.Context(), auth.GetUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"bots": snap.AllBots, "count": len(snap.AllBots)})
}

// GetActiveBot handles GET /v1/session/bot
func (h *Handler) GetActiveBot(c *gin.Context) {
	snap, err := h.service.Get(c.Request.Context(), auth.GetUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	if snap.BotConfig == nil {
		respondError(c, ErrNoActiveBot)
		return
	}
	c.JSON(http.StatusOK, gin.H{"bot": snap.BotConfig})
}

// CreateBot handles POST /v1/session/bots
func (h *Handler) CreateBot(c *gin.Context) {
	var req CreateBotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c)
		return
	}
	if errs := validateFields(&req.Name, req.WelcomeMessage, req.Tone, true); len(errs) > 0 {
		validationFailed(c, errs)
		return
	}

	rec, snap, err := h.service.CreateBot(c.Request.Context(), auth.GetUserID(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"bot": rec, "userTier": snap.UserTier})
}

// SwitchBot handles POST /v1/session/bots/:id/activate
func (h *Handler) SwitchBot(c *gin.Context) {
	snap, err := h.service.SwitchBot(c.Request.Context(), auth.GetUserID(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"bot": snap.BotConfig})
}

// UpdateBot handles PATCH /v1/session/bots/:id
func (h *Handler) UpdateBot(c *gin.Context) {
	patch, ok := bindPatch(c)
	if !ok {
		return
	}
	rec, _, err := h.service.UpdateBot(c.Request.Context(), auth.GetUserID(c), c.Param("id"), patch)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"bot": rec})
}

// UpdateActiveBot handles PATCH /v1/session/bot
func (h *Handler) UpdateActiveBot(c *gin.Context) {
	patch, ok := bindPatch(c)
	if !ok {
		return
	}
	rec, _, err := h.service.UpdateActiveBot(c.Request.Context(), auth.GetUserID(c), patch)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"bot": rec})
}

// DeleteBot handles DELETE /v1/session/bots/:id
func (h *Handler) DeleteBot(c *gin.Context) {
	removed, snap, err := h.service.DeleteBot(c.Request.Context(), auth.GetUserID(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"deleted":   removed,
		"botConfig": snap.BotConfig,
		"userTier":  snap.UserTier,
	})
}

// GetUsage handles GET /v1/session/usage
func (h *Handler) GetUsage(c *gin.Context) {
	report, err := h.service.Usage(c.Request.Context(), auth.GetUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

type sendMessageRequest struct {
	Text string `json:"text"`
}

// SendMessage handles POST /v1/session/messages
func (h *Handler) SendMessage(c *gin.Context) {
	var req sendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c)
		return
	}
	if errs := validation.Validate(
		validation.Required("text", req.Text),
		validation.MaxLength("text", req.Text, maxMessageLen),
	); len(errs) > 0 {
		validationFailed(c, errs)
		return
	}

	reply, snap, err := h.service.SendMessage(c.Request.Context(), auth.GetUserID(c), req.Text)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"accepted": true,
		"reply":    reply,
		"userTier": snap.UserTier,
	})
}

type addPagesRequest struct {
	Count int `json:"count"`
}

// AddPages handles POST /v1/session/pages
func (h *Handler) AddPages(c *gin.Context) {
	var req addPagesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c)
		return
	}
	if req.Count > maxPagesPerUpload {
		validationFailed(c, validation.ValidationErrors{{Field: "count", Message: "too many pages in one request"}})
		return
	}

	snap, err := h.service.AddPages(c.Request.Context(), auth.GetUserID(c), req.Count)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"userTier": snap.UserTier})
}

type setPlanRequest struct {
	Plan string `json:"plan"`
}

// SetPlan handles PUT /v1/admin/sessions/:userId/plan
func (h *Handler) SetPlan(c *gin.Context) {
	var req setPlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c)
		return
	}
	p, err := plan.Parse(req.Plan)
	if err != nil {
		respondError(c, err)
		return
	}
	userID := c.Param("userId")
	if err := validateUserID(userID); err != nil {
		respondError(c, err)
		return
	}

	if err := h.plans.SetPlan(c.Request.Context(), userID, p); err != nil {
		respondError(c, err)
		return
	}
	snap, err := h.service.Get(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

// ResetMonthly handles POST /v1/admin/sessions/:userId/reset
func (h *Handler) ResetMonthly(c *gin.Context) {
	snap, err := h.service.ResetMonthly(c.Request.Context(), c.Param("userId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"userTier": snap.UserTier})
}

// ResetAllMonthly handles POST /v1/admin/sessions/reset
func (h *Handler) ResetAllMonthly(c *gin.Context) {
	n, err := h.service.ResetAllMonthly(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   CodeInternal,
			"message": err.Error(),
			"reset":   n,
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"reset": n})
}

func bindPatch(c *gin.Context) (bots.Patch, bool) {
	var patch bots.Patch
	if err := c.ShouldBindJSON(&patch); err != nil {
		badRequest(c)
		return bots.Patch{}, false
	}
	if errs := validateFields(patch.Name, patch.WelcomeMessage, patch.Tone, false); len(errs) > 0 {
		validationFailed(c, errs)
		return bots.Patch{}, false
	}
	return patch, true
}

// validateFields checks the constraints shared by create and update. A nil
// name is only allowed when nameRequired is false. A welcome message may be
// omitted but never sent blank.
func validateFields(name, welcome *string, tone *bots.Tone, nameRequired bool) validation.ValidationErrors {
	var checks []func() *validation.ValidationError
	if name != nil {
		if nameRequired {
			checks = append(checks, validation.Required("name", *name))
		}
		checks = append(checks, validation.MaxLength("name", *name, maxBotNameLen))
	}
	if welcome != nil {
		checks = append(checks,
			validation.Required("welcomeMessage", *welcome),
			validation.MaxLength("welcomeMessage", *welcome, maxWelcomeLen))
	}
	if tone != nil {
		checks = append(checks, validation.OneOf("tone", string(*tone),
			string(bots.ToneFriendly), string(bots.ToneFormal), string(bots.ToneNeutral)))
	}
	return validation.Validate(checks...)
}

func badRequest(c *gin.Context) {
	c.JSON(http.StatusBadRequest, gin.H{
		"error":   "invalid_request",
		"message": "Invalid request body",
	})
}

func validationFailed(c *gin.Context, errs validation.ValidationErrors) {
	c.JSON(http.StatusBadRequest, gin.H{
		"error":   CodeValidation,
		"message": errs.Error(),
		"details": errs,
	})
}

// StatusFor maps an error code to its HTTP status.
func StatusFor(code string) int {
	switch code {
	case CodeValidation:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	case CodeQuotaExceeded:
		return http.StatusForbidden
	case CodeLastBot, CodeConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, err error) {
	code := ErrorCode(err)
	body := gin.H{"error": code, "message": err.Error()}
	if code == CodeInternal {
		body["message"] = "Internal error"
	}

	var exceeded *quota.ExceededError
	if errors.As(err, &exceeded) {
		body["resource"] = exceeded.Resource
		body["used"] = exceeded.Used
		body["limit"] = exceeded.Limit
		if exceeded.Resource == quota.ResourceMessages {
			body["accepted"] = false
		}
	}
	c.JSON(StatusFor(code), body)
}
