package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/GriffinCanCode/opencode-tui/internal/providers/filelink"
	"github.com/GriffinCanCode/opencode-tui/internal/shared/apperr"
	"github.com/GriffinCanCode/opencode-tui/internal/shared/utils"
)

// ErrNoResolver is returned when link resolution is not configured
var ErrNoResolver = apperr.Sentinel(apperr.KindCapability, "file resolution is not configured")

// FindLinksRequest carries terminal output to scan
type FindLinksRequest struct {
	Text string `json:"text"`
}

// ResolveRequest carries one reference
type ResolveRequest struct {
	Ref  string `json:"ref" binding:"required"`
	Open bool   `json:"open,omitempty"`
}

// FindLinks returns the file references detected in text. It never fails
// on odd input; unparseable candidates are skipped.
func (h *Handlers) FindLinks(c *gin.Context) {
	var req FindLinksRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if err := utils.ValidateSize([]byte(req.Text), utils.MaxFrameSize); err != nil {
		badRequest(c, err)
		return
	}

	links := filelink.FindLinks(req.Text)
	if links == nil {
		links = []filelink.Link{}
	}
	c.JSON(http.StatusOK, gin.H{"links": links})
}

// Resolve resolves a reference against the workspace and opens it on request
func (h *Handlers) Resolve(c *gin.Context) {
	var req ResolveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if h.deps.Resolver == nil {
		h.respondError(c, ErrNoResolver)
		return
	}

	loc, err := h.deps.Resolver.ResolveString(c.Request.Context(), req.Ref)
	h.recordResolution(loc, err)
	if err != nil {
		h.respondError(c, err)
		return
	}

	opened := false
	if req.Open {
		if h.deps.Opener == nil {
			h.respondError(c, ErrNoResolver)
			return
		}
		if err := h.deps.Opener.OpenFile(c.Request.Context(), loc); err != nil {
			h.respondError(c, err)
			return
		}
		opened = true
	}

	c.JSON(http.StatusOK, gin.H{"location": loc, "opened": opened})
}

func (h *Handlers) recordResolution(loc filelink.Location, err error) {
	if h.deps.Metrics == nil {
		return
	}
	outcome := "exact"
	switch {
	case errors.Is(err, filelink.ErrNotFound):
		outcome = "miss"
	case err != nil:
		outcome = "invalid"
	case loc.Fuzzy:
		outcome = "fuzzy"
	}
	h.deps.Metrics.RecordLinkResolution(outcome)
}
