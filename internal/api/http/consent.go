package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/GriffinCanCode/opencode-tui/internal/domain/consent"
	"github.com/GriffinCanCode/opencode-tui/internal/shared/apperr"
)

// ErrNoPrompts is returned when consent prompts are not configured
var ErrNoPrompts = apperr.Sentinel(apperr.KindCapability, "consent prompts are not configured")

// AnswerRequest carries a consent decision
type AnswerRequest struct {
	Decision string `json:"decision" binding:"required"`
}

// ListPrompts returns the prompts waiting for an answer
func (h *Handlers) ListPrompts(c *gin.Context) {
	prompts := []consent.Request{}
	if h.deps.Prompts != nil {
		prompts = append(prompts, h.deps.Prompts.Pending()...)
	}
	c.JSON(http.StatusOK, gin.H{"prompts": prompts})
}

// AnswerPrompt resolves one waiting prompt
func (h *Handlers) AnswerPrompt(c *gin.Context) {
	if h.deps.Prompts == nil {
		h.respondError(c, ErrNoPrompts)
		return
	}

	var req AnswerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	decision, err := consent.ParseDecision(req.Decision)
	if err != nil {
		h.respondError(c, err)
		return
	}
	if err := h.deps.Prompts.Answer(c.Param("id"), decision); err != nil {
		h.respondError(c, err)
		return
	}

	if h.deps.Metrics != nil {
		h.deps.Metrics.RecordConsent(string(decision))
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "decision": decision})
}
