package auth

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mbd888/botdesk/internal/plan"
)

// Handler provides identity endpoints.
type Handler struct {
	directory Directory
}

// NewHandler creates a new auth handler
func NewHandler(d Directory) *Handler {
	return &Handler{directory: d}
}

// RegisterRoutes sets up identity routes. The group must require a user.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/me", h.Me)
}

// Me handles GET /v1/me
func (h *Handler) Me(c *gin.Context) {
	userID := GetUserID(c)
	p, err := h.directory.PlanFor(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": "Failed to resolve plan",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"userId":   userID,
		"plan":     p,
		"ceilings": plan.CeilingsFor(p),
	})
}
