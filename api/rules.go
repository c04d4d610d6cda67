package api

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Domenick1991/farehunter/internal/domain"
	"github.com/Domenick1991/farehunter/internal/service/rules"
	"github.com/Domenick1991/farehunter/internal/service/runs"
	"github.com/gin-gonic/gin"
)

const dateLayout = "2006-01-02"

// SourceExpander resolves requested source names, "all" included.
type SourceExpander interface {
	Expand(names []string) ([]string, error)
}

type RuleHandler struct {
	rules          rules.RuleUseCase
	runs           runs.RunUseCase
	sources        SourceExpander
	defaultSources []string
}

type createRuleRequest struct {
	Name            string   `json:"name" binding:"required"`
	Description     string   `json:"description"`
	DepartureFrom   string   `json:"departure_from" binding:"required"`
	DepartureTo     string   `json:"departure_to" binding:"required"`
	ReturnFrom      string   `json:"return_from" binding:"required"`
	ReturnTo        string   `json:"return_to" binding:"required"`
	MinNights       *int     `json:"min_nights"`
	MaxNights       *int     `json:"max_nights"`
	Origins         []string `json:"origins" binding:"required"`
	Destinations    []string `json:"destinations" binding:"required"`
	Passengers      *int     `json:"passengers"`
	Cabin           string   `json:"cabin"`
	MaxConnections  *int     `json:"max_connections"`
	BaggageRequired *bool    `json:"baggage_required"`
	Priority        int      `json:"priority"`
}

func NewRuleHandler(rules rules.RuleUseCase, runs runs.RunUseCase, sources SourceExpander, defaultSources []string) *RuleHandler {
	return &RuleHandler{rules: rules, runs: runs, sources: sources, defaultSources: defaultSources}
}

func (h *RuleHandler) Register(router *gin.RouterGroup) {
	router.POST("/", h.create)
	router.GET("/", h.list)
	router.GET("/:id", h.get)
	router.GET("/:id/combinations", h.combinations)
	router.GET("/:id/best-prices", h.bestPrices)
	router.GET("/:id/runs", h.listRuns)
}

func (r createRuleRequest) toRule() (*domain.SearchRule, error) {
	rule := domain.NewSearchRule(r.Name)
	rule.Description = r.Description
	dates := []struct {
		field string
		raw   string
		dst   *time.Time
	}{
		{"departure_from", r.DepartureFrom, &rule.Departure.From},
		{"departure_to", r.DepartureTo, &rule.Departure.To},
		{"return_from", r.ReturnFrom, &rule.Return.From},
		{"return_to", r.ReturnTo, &rule.Return.To},
	}
	for _, d := range dates {
		t, err := time.Parse(dateLayout, d.raw)
		if err != nil {
			return nil, &domain.ValidationError{Field: d.field, Message: "expected YYYY-MM-DD"}
		}
		*d.dst = t
	}
	if r.MinNights != nil {
		rule.Nights.Min = *r.MinNights
	}
	if r.MaxNights != nil {
		rule.Nights.Max = *r.MaxNights
	}
	rule.Origins = upper(r.Origins)
	rule.Destinations = upper(r.Destinations)
	if r.Passengers != nil {
		rule.Passengers = *r.Passengers
	}
	if r.Cabin != "" {
		rule.Cabin = domain.CabinClass(r.Cabin)
	}
	if r.MaxConnections != nil {
		rule.MaxConnections = *r.MaxConnections
	}
	if r.BaggageRequired != nil {
		rule.BaggageRequired = *r.BaggageRequired
	}
	rule.Priority = r.Priority
	return rule, nil
}

func upper(codes []string) []string {
	out := make([]string, len(codes))
	for i, c := range codes {
		out[i] = strings.ToUpper(strings.TrimSpace(c))
	}
	return out
}

func (h *RuleHandler) create(c *gin.Context) {
	var req createRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	rule, err := req.toRule()
	if err != nil {
		writeError(c, err)
		return
	}
	created, err := h.rules.Create(c.Request.Context(), rule)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

func (h *RuleHandler) list(c *gin.Context) {
	activeOnly := c.Query("active") == "true"
	list, err := h.rules.List(c.Request.Context(), activeOnly)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func parseID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return id, true
}

func (h *RuleHandler) get(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	rule, err := h.rules.Get(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, rule)
}

// combinations previews a run; id 0 selects the highest priority active rule.
func (h *RuleHandler) combinations(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	names := h.defaultSources
	if raw := c.Query("sources"); raw != "" {
		names = strings.Split(raw, ",")
	}
	expanded, err := h.sources.Expand(names)
	if err != nil {
		writeError(c, err)
		return
	}
	combos, err := h.rules.Combinations(c.Request.Context(), id, len(expanded))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, combos)
}

func (h *RuleHandler) bestPrices(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	limit, ok := queryInt(c, "limit", 20)
	if !ok {
		return
	}
	best, err := h.runs.BestPrices(c.Request.Context(), id, c.Query("all") == "true", limit)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, best)
}

func (h *RuleHandler) listRuns(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	limit, ok := queryInt(c, "limit", 20)
	if !ok {
		return
	}
	list, err := h.runs.ListByRule(c.Request.Context(), id, limit)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}
