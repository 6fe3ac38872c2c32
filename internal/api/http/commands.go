package http

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/GriffinCanCode/opencode-tui/internal/commands"
)

// ExecuteCommand runs the palette command named in the path. The body is
// optional for commands that take no arguments.
func (h *Handlers) ExecuteCommand(c *gin.Context) {
	name := c.Param("name")

	var req commands.Request
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		badRequest(c, err)
		return
	}

	res, err := h.deps.Commands.Execute(c.Request.Context(), name, req)
	if h.deps.Metrics != nil {
		status := "success"
		if err != nil {
			status = "error"
		}
		h.deps.Metrics.RecordCommand(name, status)
	}
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
