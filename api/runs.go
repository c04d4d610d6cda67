package api

import (
	"context"
	"net/http"

	"github.com/Domenick1991/farehunter/internal/domain"
	"github.com/Domenick1991/farehunter/internal/service/rules"
	"github.com/Domenick1991/farehunter/internal/service/runs"
	"github.com/Domenick1991/farehunter/internal/service/search"
	"github.com/Domenick1991/farehunter/pkg/logger"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ReportRenderer renders a finished run in one of the report formats.
type ReportRenderer interface {
	Render(ctx context.Context, rule *domain.SearchRule, run *domain.Run, format string) (string, error)
}

type RunHandler struct {
	rules          rules.RuleUseCase
	runs           runs.RunUseCase
	search         search.SearchUseCase
	reports        ReportRenderer
	defaultSources []string
	logger         logger.Logger
	async          func(func())
}

type startRunRequest struct {
	RuleID  int64    `json:"rule_id"`
	Sources []string `json:"sources"`
}

func NewRunHandler(
	rules rules.RuleUseCase,
	runs runs.RunUseCase,
	search search.SearchUseCase,
	reports ReportRenderer,
	defaultSources []string,
	log logger.Logger,
) *RunHandler {
	return &RunHandler{
		rules:          rules,
		runs:           runs,
		search:         search,
		reports:        reports,
		defaultSources: defaultSources,
		logger:         log,
		async:          func(f func()) { go f() },
	}
}

func (h *RunHandler) Register(router *gin.RouterGroup) {
	router.POST("/", h.start)
	router.GET("/:id", h.get)
	router.GET("/:id/quotes", h.quotes)
	router.GET("/:id/report", h.report)
}

// start persists a pending run and executes it in the background; clients
// poll GET /runs/:id for the outcome.
func (h *RunHandler) start(c *gin.Context) {
	var req startRunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	ctx := c.Request.Context()
	rule, err := h.rules.Resolve(ctx, req.RuleID)
	if err != nil {
		writeError(c, err)
		return
	}
	names := req.Sources
	if len(names) == 0 {
		names = h.defaultSources
	}
	run, err := h.search.Start(ctx, rule, names)
	if err != nil {
		writeError(c, err)
		return
	}

	execCtx := context.WithoutCancel(ctx)
	h.async(func() {
		if _, err := h.search.Execute(execCtx, rule, run); err != nil {
			h.logger.Error("run failed", "run_id", run.ID.String(), "error", err)
		}
	})
	c.JSON(http.StatusAccepted, run)
}

func parseRunID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid run id"})
		return uuid.Nil, false
	}
	return id, true
}

func (h *RunHandler) get(c *gin.Context) {
	id, ok := parseRunID(c)
	if !ok {
		return
	}
	run, err := h.runs.Get(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, run)
}

func (h *RunHandler) quotes(c *gin.Context) {
	id, ok := parseRunID(c)
	if !ok {
		return
	}
	limit, ok := queryInt(c, "limit", 50)
	if !ok {
		return
	}
	list, err := h.runs.Quotes(c.Request.Context(), id, limit)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *RunHandler) report(c *gin.Context) {
	id, ok := parseRunID(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	run, err := h.runs.Get(ctx, id)
	if err != nil {
		writeError(c, err)
		return
	}
	if run.Status != domain.RunStatusCompleted {
		c.JSON(http.StatusConflict, gin.H{"error": "run is " + string(run.Status)})
		return
	}
	rule, err := h.rules.Get(ctx, run.RuleID)
	if err != nil {
		writeError(c, err)
		return
	}
	text, err := h.reports.Render(ctx, rule, run, c.DefaultQuery("format", "full"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.String(http.StatusOK, text)
}
