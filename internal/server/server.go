// Package server exposes the engine over a localhost HTTP API: status and
// stats endpoints, source management, filtered line queries, and a WebSocket
// live tail.
package server

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/pprof"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/r0tifer/Centralized-Log-Viewer/internal/engine"
	"github.com/r0tifer/Centralized-Log-Viewer/internal/filter"
	"github.com/r0tifer/Centralized-Log-Viewer/internal/model"
	"github.com/r0tifer/Centralized-Log-Viewer/internal/registry"
)

// Server holds the Gin engine and its dependencies.
type Server struct {
	router *gin.Engine
	eng    *engine.Engine
	addr   string
}

// New creates an HTTP server over the given engine. addr is host:port;
// binding to localhost keeps the read boundary local.
func New(eng *engine.Engine, addr string) *Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	router.RedirectTrailingSlash = false
	router.RedirectFixedPath = false

	s := &Server{router: router, eng: eng, addr: addr}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	// Health check.
	s.router.GET("/healthz", func(c *gin.Context) {
		snap := s.eng.Stats()
		c.JSON(http.StatusOK, gin.H{
			"status":          "ok",
			"uptime":          snap.Uptime,
			"sources_tracked": snap.SourcesTracked,
			"total_lines":     snap.TotalLines,
		})
	})

	// Metrics.
	s.router.GET("/api/stats", func(c *gin.Context) {
		c.JSON(http.StatusOK, s.eng.Stats())
	})

	// Source set and discovery summary.
	s.router.GET("/api/sources", s.handleSources)
	s.router.POST("/api/sources", s.handleAddSource)
	s.router.DELETE("/api/sources", s.handleRemoveSource)

	// Filtered window of one source.
	s.router.GET("/api/lines", s.handleLines)

	// Filter management: swap the active spec, or score a candidate against
	// a bounded sample without touching the active filter.
	s.router.PUT("/api/filter", s.handleSetFilter)
	s.router.POST("/api/filter/validate", s.handleValidateFilter)

	// Live tail.
	s.router.GET("/api/tail", s.handleTail)

	// pprof profiling endpoints.
	s.router.GET("/debug/pprof/", gin.WrapF(pprof.Index))
	s.router.GET("/debug/pprof/cmdline", gin.WrapF(pprof.Cmdline))
	s.router.GET("/debug/pprof/profile", gin.WrapF(pprof.Profile))
	s.router.GET("/debug/pprof/symbol", gin.WrapF(pprof.Symbol))
	s.router.GET("/debug/pprof/trace", gin.WrapF(pprof.Trace))
	s.router.GET("/debug/pprof/allocs", gin.WrapH(pprof.Handler("allocs")))
	s.router.GET("/debug/pprof/heap", gin.WrapH(pprof.Handler("heap")))
	s.router.GET("/debug/pprof/goroutine", gin.WrapH(pprof.Handler("goroutine")))
}

type sourceView struct {
	Path         string `json:"path"`
	Root         string `json:"root,omitempty"`
	Kind         string `json:"kind"`
	Liveness     string `json:"liveness"`
	SessionAdded bool   `json:"session_added,omitempty"`
}

func (s *Server) handleSources(c *gin.Context) {
	sources := s.eng.ListSources()
	views := make([]sourceView, 0, len(sources))
	for _, src := range sources {
		views = append(views, sourceView{
			Path:         src.Path,
			Root:         src.Root,
			Kind:         src.Kind.String(),
			Liveness:     src.Liveness.String(),
			SessionAdded: src.SessionAdded,
		})
	}
	summary := s.eng.Summary()
	c.JSON(http.StatusOK, gin.H{
		"sources":   views,
		"roots":     summary.Roots,
		"folders":   summary.Folders,
		"log_files": summary.LogFiles,
		"warnings":  summary.Warnings,
	})
}

func (s *Server) handleAddSource(c *gin.Context) {
	var req struct {
		Path string `json:"path" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "path is required"})
		return
	}

	src, warnings, err := s.eng.AddSource(req.Path)
	switch {
	case errors.Is(err, registry.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, registry.ErrPermissionDenied):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusOK, gin.H{"path": src.Path, "warnings": warnings})
	}
}

func (s *Server) handleRemoveSource(c *gin.Context) {
	path := c.Query("path")
	if path == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "path is required"})
		return
	}
	if !s.eng.RemoveSource(path) {
		c.JSON(http.StatusNotFound, gin.H{"error": "source not tracked"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"removed": path})
}

func (s *Server) handleLines(c *gin.Context) {
	path := c.Query("path")
	if path == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "path is required"})
		return
	}
	window := 0
	if raw := c.Query("window"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "window must be an integer"})
			return
		}
		window = n
	}

	lines, err := s.eng.VisibleLines(path, window)
	if errors.Is(err, registry.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"lines": lines, "count": len(lines)})
}

type filterRequest struct {
	Pattern    string   `json:"pattern"`
	Severities []string `json:"severities"`
	Since      string   `json:"since"`
	RangeStart string   `json:"range_start"`
	RangeEnd   string   `json:"range_end"`
}

func (r filterRequest) spec() (filter.Spec, error) {
	spec := filter.Spec{Pattern: r.Pattern}
	for _, name := range r.Severities {
		sev := model.ParseSeverity(name)
		if sev == model.SeverityUnknown && !strings.EqualFold(name, "unknown") {
			return filter.Spec{}, fmt.Errorf("unknown severity %q", name)
		}
		spec.Severities = append(spec.Severities, sev)
	}
	switch {
	case r.Since != "":
		if _, err := filter.ParsePreset(r.Since); err != nil {
			return filter.Spec{}, err
		}
		spec.Window = filter.Window{Preset: r.Since}
	case r.RangeStart != "" || r.RangeEnd != "":
		w, err := filter.ParseRange(r.RangeStart + " to " + r.RangeEnd)
		if err != nil {
			return filter.Spec{}, err
		}
		spec.Window = w
	}
	return spec, nil
}

func (s *Server) handleSetFilter(c *gin.Context) {
	var req filterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid filter body"})
		return
	}
	spec, err := req.spec()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := s.eng.SetFilterSpec(spec); err != nil {
		// The previous filter stays active.
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"applied": true})
}

func (s *Server) handleValidateFilter(c *gin.Context) {
	var req filterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid filter body"})
		return
	}
	spec, err := req.spec()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	res := s.eng.ValidateFilter(spec)
	body := gin.H{
		"match_count": res.MatchCount,
		"sample_size": res.SampleSize,
	}
	if res.CompileErr != nil {
		body["compile_error"] = res.CompileErr.Error()
	}
	c.JSON(http.StatusOK, body)
}

// Start runs the server. Blocks until the server is stopped.
func (s *Server) Start() error {
	return s.router.Run(s.addr)
}
