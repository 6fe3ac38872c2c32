package http

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/opencode-tui/internal/commands"
	"github.com/GriffinCanCode/opencode-tui/internal/domain/consent"
	"github.com/GriffinCanCode/opencode-tui/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/opencode-tui/internal/providers/discovery"
	"github.com/GriffinCanCode/opencode-tui/internal/providers/filelink"
	"github.com/GriffinCanCode/opencode-tui/internal/providers/terminal"
	"github.com/GriffinCanCode/opencode-tui/internal/shared/apperr"
)

// Version is reported by the info endpoint
const Version = "0.1.0"

// Status is the owned OpenCode session as seen by the API
type Status interface {
	Started() bool
	Port() int
	Views() int
	Context() string
	FocusedTerminal() string
}

// Commands runs palette commands
type Commands interface {
	Names() []string
	Execute(ctx context.Context, name string, req commands.Request) (commands.Result, error)
}

// Terminals is the session table
type Terminals interface {
	Create(opts terminal.SessionOptions) (*terminal.Session, error)
	Kill(id string)
	Get(id string) (*terminal.Session, bool)
	List() []terminal.SessionInfo
}

// Foreign lists terminals OpenCode does not own
type Foreign interface {
	Terminals() []discovery.Terminal
}

// Resolver resolves file references
type Resolver interface {
	ResolveString(ctx context.Context, raw string) (filelink.Location, error)
}

// Opener opens resolved files
type Opener interface {
	OpenFile(ctx context.Context, loc filelink.Location) error
}

// Prompts answers consent prompts
type Prompts interface {
	Pending() []consent.Request
	Answer(promptID string, d consent.Decision) error
}

// Deps are the collaborators behind the routes. Resolver, Opener, Foreign
// and Prompts are optional.
type Deps struct {
	Status    Status
	Commands  Commands
	Terminals Terminals
	Foreign   Foreign
	Resolver  Resolver
	Opener    Opener
	Prompts   Prompts
	Metrics   *monitoring.Metrics
	Logger    *zap.Logger
	// Shell and DefaultDir seed sessions opened over REST
	Shell      string
	DefaultDir string
}

// Handlers contains all HTTP handlers
type Handlers struct {
	deps   Deps
	logger *zap.Logger
}

// NewHandlers creates a new handler set
func NewHandlers(deps Deps) *Handlers {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	return &Handlers{deps: deps, logger: deps.Logger.Named("api")}
}

// Register mounts every route on r
func (h *Handlers) Register(r gin.IRoutes) {
	r.GET("/", h.Root)
	r.GET("/health", h.Health)

	r.POST("/commands/:name", h.ExecuteCommand)

	r.GET("/terminals", h.ListTerminals)
	r.POST("/terminals", h.OpenTerminal)
	r.DELETE("/terminals/:id", h.KillTerminal)

	r.POST("/links", h.FindLinks)
	r.POST("/resolve", h.Resolve)

	r.GET("/consent", h.ListPrompts)
	r.POST("/consent/:id", h.AnswerPrompt)
}

// Root handles the info endpoint
func (h *Handlers) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":   "online",
		"service":  "opencode-tui",
		"version":  Version,
		"commands": h.deps.Commands.Names(),
	})
}

// Health handles detailed health check
func (h *Handlers) Health(c *gin.Context) {
	s := h.deps.Status
	body := gin.H{
		"status": "healthy",
		"opencode": gin.H{
			"started": s.Started(),
			"port":    s.Port(),
			"views":   s.Views(),
			"context": s.Context(),
			"focused": s.FocusedTerminal(),
		},
		"sessions": len(h.deps.Terminals.List()),
	}
	if h.deps.Metrics != nil {
		body["metrics"] = h.deps.Metrics.Snapshot()
	}
	c.JSON(http.StatusOK, body)
}

// respondError writes err with the status its kind implies
func (h *Handlers) respondError(c *gin.Context, err error) {
	status := apperr.HTTPStatus(err)
	if status >= http.StatusInternalServerError && !apperr.Warning(err) {
		h.logger.Error("Request failed",
			zap.String("path", c.FullPath()),
			zap.Error(err))
	}
	_ = c.Error(err)
	c.JSON(status, gin.H{
		"error": err.Error(),
		"kind":  apperr.KindOf(err).String(),
	})
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{
		"error": err.Error(),
		"kind":  apperr.KindValidation.String(),
	})
}
