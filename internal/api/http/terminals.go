package http

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/GriffinCanCode/opencode-tui/internal/app"
	"github.com/GriffinCanCode/opencode-tui/internal/providers/discovery"
	"github.com/GriffinCanCode/opencode-tui/internal/providers/terminal"
	"github.com/GriffinCanCode/opencode-tui/internal/shared/apperr"
	"github.com/GriffinCanCode/opencode-tui/internal/shared/id"
	"github.com/GriffinCanCode/opencode-tui/internal/shared/utils"
)

var (
	ErrSessionNotFound = apperr.Sentinel(apperr.KindResolution, "session not found")
	ErrOwnedSession    = apperr.Sentinel(apperr.KindValidation, "the OpenCode session is managed by the restart command")
)

// OpenTerminalRequest describes a plain shell session
type OpenTerminalRequest struct {
	Name    string   `json:"name"`
	Command string   `json:"command,omitempty"`
	Shell   string   `json:"shell,omitempty"`
	Args    []string `json:"args,omitempty"`
	Cwd     string   `json:"cwd,omitempty"`
	Cols    int      `json:"cols,omitempty"`
	Rows    int      `json:"rows,omitempty"`
}

// ListTerminals returns the session table and the foreign terminal view
func (h *Handlers) ListTerminals(c *gin.Context) {
	foreign := []discovery.Terminal{}
	if h.deps.Foreign != nil {
		foreign = append(foreign, h.deps.Foreign.Terminals()...)
	}
	c.JSON(http.StatusOK, gin.H{
		"sessions": h.deps.Terminals.List(),
		"foreign":  foreign,
	})
}

// OpenTerminal spawns a shell session that OpenCode does not own
func (h *Handlers) OpenTerminal(c *gin.Context) {
	var req OpenTerminalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if err := utils.ValidateName(req.Name); err != nil {
		badRequest(c, err)
		return
	}
	if req.Name == app.TerminalName || req.Name == app.TerminalID {
		h.respondError(c, ErrOwnedSession)
		return
	}
	if req.Cols < 0 || req.Rows < 0 {
		badRequest(c, fmt.Errorf("cols and rows must not be negative"))
		return
	}

	shell := req.Shell
	if shell == "" {
		shell = h.deps.Shell
	}
	dir := req.Cwd
	if dir == "" {
		dir = h.deps.DefaultDir
	}

	s, err := h.deps.Terminals.Create(terminal.SessionOptions{
		ID:      id.NewTerminalID().String(),
		Name:    req.Name,
		Command: req.Command,
		Shell:   shell,
		Args:    req.Args,
		Dir:     dir,
		Cols:    req.Cols,
		Rows:    req.Rows,
	})
	if err != nil {
		h.respondError(c, apperr.New(apperr.KindProcess, err))
		return
	}
	c.JSON(http.StatusCreated, s.Info())
}

// KillTerminal ends a session opened over REST
func (h *Handlers) KillTerminal(c *gin.Context) {
	sessionID := c.Param("id")
	if err := utils.ValidateID(sessionID, "id"); err != nil {
		badRequest(c, err)
		return
	}
	if sessionID == app.TerminalID {
		h.respondError(c, ErrOwnedSession)
		return
	}
	if _, ok := h.deps.Terminals.Get(sessionID); !ok {
		h.respondError(c, fmt.Errorf("%s: %w", sessionID, ErrSessionNotFound))
		return
	}

	h.deps.Terminals.Kill(sessionID)
	c.JSON(http.StatusOK, gin.H{"success": true, "id": sessionID})
}
