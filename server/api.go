package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/lexcodex/orchestrate/agents"
	"github.com/lexcodex/orchestrate/framework"
	"github.com/lexcodex/orchestrate/persistence"
)

// APIServer exposes agents over HTTP.
type APIServer struct {
	Registry     *agents.Registry
	Tools        *framework.ToolManager
	Runs         persistence.RunStore
	DefaultAgent string
	Timeout      time.Duration
	CORSOrigins  []string
	Logger       *slog.Logger
}

// RunRequest is the body of POST /api/run.
type RunRequest struct {
	Task          string `json:"task" binding:"required"`
	Agent         string `json:"agent"`
	MaxIterations int    `json:"max_iterations"`
}

// RunResponse wraps a run result. Error is set when the run failed, in
// which case Result may be partial.
type RunResponse struct {
	Agent  string               `json:"agent"`
	Result *framework.RunResult `json:"result,omitempty"`
	Error  string               `json:"error,omitempty"`
}

// PlanRequest is the body of POST /api/plan.
type PlanRequest struct {
	Task string `json:"task" binding:"required"`
}

// ToolInfo describes a registered tool.
type ToolInfo struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"input_schema,omitempty"`
}

type planner interface {
	PlanDetailed(ctx context.Context, task string) (*framework.PlanResult, error)
}

// Serve starts listening on the provided address.
func (s *APIServer) Serve(addr string) error {
	return s.ServeContext(context.Background(), addr)
}

// ServeContext allows the caller to control shutdown via context cancellation.
func (s *APIServer) ServeContext(ctx context.Context, addr string) error {
	server := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()
	s.logger().Info("API listening", "addr", addr)
	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
		return ctx.Err()
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// Handler builds the gin engine serving the API routes.
func (s *APIServer) Handler() http.Handler {
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger())
	if len(s.CORSOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins: s.CORSOrigins,
			AllowMethods: []string{"GET", "POST", "OPTIONS"},
			AllowHeaders: []string{"Origin", "Content-Type", "Accept"},
			MaxAge:       12 * time.Hour,
		}))
	}
	api := r.Group("/api")
	{
		api.POST("/run", s.handleRun)
		api.POST("/plan", s.handlePlan)
		api.GET("/agents", s.handleAgents)
		api.GET("/tools", s.handleTools)
		api.GET("/runs", s.handleRuns)
		api.GET("/runs/:id", s.handleRunByID)
	}
	return r
}

func (s *APIServer) handleRun(c *gin.Context) {
	var req RunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	tag := req.Agent
	if tag == "" {
		tag = s.defaultAgent()
	}
	agent, err := s.Registry.Create(tag, agents.Options{MaxIterations: req.MaxIterations})
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, agents.ErrUnknownAgentType) {
			status = http.StatusBadRequest
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), s.timeout())
	defer cancel()

	var handler framework.StreamHandler
	streaming := wantsStream(c)
	if streaming {
		c.Header("Content-Type", "text/event-stream")
		c.Header("Cache-Control", "no-cache")
		handler = func(event framework.StreamEvent) {
			c.SSEvent(string(event.Type), event)
			c.Writer.Flush()
		}
	}
	result, runErr := agent.Run(ctx, req.Task, handler)
	s.record(c.Request.Context(), tag, result)

	resp := RunResponse{Agent: tag, Result: result}
	if runErr != nil {
		resp.Error = runErr.Error()
	}
	if streaming {
		c.SSEvent("result", resp)
		c.Writer.Flush()
		return
	}
	status := http.StatusOK
	if runErr != nil {
		status = http.StatusInternalServerError
	}
	c.JSON(status, resp)
}

func (s *APIServer) handlePlan(c *gin.Context) {
	var req PlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	agent, err := s.Registry.Create(agents.TypePlanner, agents.Options{})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	p, ok := agent.(planner)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "planner agent cannot decompose tasks"})
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), s.timeout())
	defer cancel()
	plan, err := p.PlanDetailed(ctx, req.Task)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, plan)
}

func (s *APIServer) handleAgents(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"agents": s.Registry.ListTypes(), "default": s.defaultAgent()})
}

func (s *APIServer) handleTools(c *gin.Context) {
	infos := []ToolInfo{}
	if s.Tools != nil {
		for _, tool := range s.Tools.List() {
			infos = append(infos, ToolInfo{
				Name:        tool.Name(),
				Description: tool.Description(),
				InputSchema: tool.InputSchema(),
			})
		}
	}
	c.JSON(http.StatusOK, gin.H{"tools": infos})
}

func (s *APIServer) handleRuns(c *gin.Context) {
	if s.Runs == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "run history disabled"})
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	runs, err := s.Runs.List(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if runs == nil {
		runs = []persistence.RunRecord{}
	}
	c.JSON(http.StatusOK, gin.H{"runs": runs})
}

func (s *APIServer) handleRunByID(c *gin.Context) {
	if s.Runs == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "run history disabled"})
		return
	}
	record, err := s.Runs.Get(c.Request.Context(), c.Param("id"))
	if errors.Is(err, persistence.ErrRunNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, record)
}

func (s *APIServer) record(ctx context.Context, tag string, result *framework.RunResult) {
	if s.Runs == nil || result == nil {
		return
	}
	if _, err := s.Runs.Save(ctx, tag, result); err != nil {
		s.logger().Warn("saving run failed", "run_id", result.ID, "error", err)
	}
}

func (s *APIServer) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger().Info("request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}
}

func wantsStream(c *gin.Context) bool {
	switch strings.ToLower(c.Query("stream")) {
	case "1", "true", "yes":
		return true
	}
	return strings.Contains(c.GetHeader("Accept"), "text/event-stream")
}

func (s *APIServer) defaultAgent() string {
	if s.DefaultAgent != "" {
		return s.DefaultAgent
	}
	return agents.TypeComposite
}

func (s *APIServer) timeout() time.Duration {
	if s.Timeout > 0 {
		return s.Timeout
	}
	return 5 * time.Minute
}

func (s *APIServer) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return framework.DiscardLogger()
}
