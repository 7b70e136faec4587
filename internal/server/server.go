// Package server exposes region ranking and persistence over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ppiankov/regioncost/internal/analyzer"
	"github.com/ppiankov/regioncost/internal/ranker"
	"github.com/ppiankov/regioncost/internal/source"
	"github.com/ppiankov/regioncost/internal/store"
)

// Notifier delivers a saved selection downstream.
type Notifier interface {
	Notify(ctx context.Context, sel store.SelectionRecord) error
}

// Config wires the server's collaborators. Notifier and Registry are optional.
type Config struct {
	Source   source.Source
	Ranker   *ranker.Ranker
	Store    store.Store
	Notifier Notifier
	Top      int
	Version  string
	Registry *prometheus.Registry
}

// Server is the HTTP API.
type Server struct {
	cfg     Config
	echo    *echo.Echo
	metrics *metrics
	started time.Time
}

// New builds the router. It does not start listening.
func New(cfg Config) *Server {
	if cfg.Ranker == nil {
		cfg.Ranker = ranker.New("")
	}
	if cfg.Top <= 0 {
		cfg.Top = analyzer.DefaultTop
	}
	if cfg.Registry == nil {
		cfg.Registry = prometheus.NewRegistry()
		cfg.Registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	s := &Server{
		cfg:     cfg,
		echo:    e,
		metrics: newMetrics(cfg.Registry),
		started: time.Now(),
	}

	e.Use(middleware.Recover())
	e.Use(s.metrics.middleware)
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogValuesFunc: func(_ echo.Context, v middleware.RequestLoggerValues) error {
			slog.Debug("HTTP request", "method", v.Method, "uri", v.URI, "status", v.Status, "latency", v.Latency)
			return nil
		},
	}))

	e.GET("/health", s.handleHealth)
	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(cfg.Registry, promhttp.HandlerOpts{})))
	e.POST("/rank", s.handleRank)
	e.POST("/save", s.handleSave)
	e.POST("/final", s.handleFinal)

	return s
}

// Handler returns the router for use with httptest or a custom listener.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Run serves on addr until ctx is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	errCh := make(chan error, 1)
	go func() {
		slog.Info("Starting server", "addr", addr, "source", s.cfg.Source.Location())
		errCh <- s.echo.Start(addr)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve %s: %w", addr, err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	slog.Info("Shutting down server")
	if err := s.echo.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"status":     "healthy",
		"service":    "regioncost",
		"version":    s.cfg.Version,
		"convention": string(s.cfg.Ranker.Convention()),
		"uptime":     time.Since(s.started).Truncate(time.Second).String(),
		"timestamp":  time.Now().UTC().Format(time.RFC3339),
	})
}

type rankRequest struct {
	ID      string `json:"id"`
	UserID  string `json:"userId"`
	EC2     any    `json:"ec2"`
	EC2Type string `json:"ec2type"`
	S3      any    `json:"s3"`
	RDS     any    `json:"rds"`
}

type regionTotal struct {
	Region string  `json:"region"`
	Total  float64 `json:"total"`
}

type rankResponse struct {
	Cheapest   *regionTotal  `json:"cheapest"`
	Top3       []string      `json:"top3"`
	Regions    []regionTotal `json:"regions"`
	Warnings   []string      `json:"warnings"`
	Convention string        `json:"convention"`
	Saved      string        `json:"saved,omitempty"`
}

func (s *Server) handleRank(c echo.Context) error {
	var body rankRequest
	if err := c.Bind(&body); err != nil {
		return errorJSON(c, http.StatusBadRequest, "invalid request body: "+err.Error())
	}

	req := ranker.Request{
		EC2Count: ranker.ParseQuantity(body.EC2),
		EC2Type:  strings.TrimSpace(body.EC2Type),
		S3Count:  ranker.ParseQuantity(body.S3),
		RDSCount: ranker.ParseQuantity(body.RDS),
	}

	if s.cfg.Source == nil {
		return errorJSON(c, http.StatusServiceUnavailable, "no pricing source configured")
	}
	ctx := c.Request().Context()
	table, err := s.cfg.Source.Fetch(ctx)
	if err != nil {
		s.metrics.fetchErrors.Inc()
		slog.Error("Pricing fetch failed", "source", s.cfg.Source.Location(), "error", err)
		return errorJSON(c, http.StatusBadGateway, err.Error())
	}

	result := analyzer.Analyze(table, req, s.cfg.Ranker, analyzer.AnalyzerConfig{Top: s.cfg.Top})
	s.metrics.rankings.Inc()

	resp := rankResponse{
		Top3:       ranker.Regions(result.Top),
		Regions:    make([]regionTotal, 0, len(result.Ranking)),
		Warnings:   result.Warnings,
		Convention: string(s.cfg.Ranker.Convention()),
	}
	if resp.Top3 == nil {
		resp.Top3 = []string{}
	}
	if resp.Warnings == nil {
		resp.Warnings = []string{}
	}
	for _, rc := range result.Ranking {
		resp.Regions = append(resp.Regions, regionTotal{Region: rc.Region, Total: rc.Total.InexactFloat64()})
	}
	if len(resp.Regions) > 0 {
		resp.Cheapest = &resp.Regions[0]
	}

	if s.cfg.Store != nil {
		ref, err := s.cfg.Store.SaveInput(ctx, store.InputRecord{
			ID:         firstNonEmpty(body.ID, body.UserID),
			EC2:        req.EC2Count,
			EC2Type:    req.EC2Type,
			S3:         req.S3Count,
			RDS:        req.RDSCount,
			Top3Region: resp.Top3,
		})
		s.metrics.saves.WithLabelValues("input", outcome(err)).Inc()
		if err != nil {
			slog.Warn("Failed to persist ranking input", "error", err)
		} else {
			resp.Saved = ref
		}
	}

	return c.JSON(http.StatusOK, resp)
}

type saveRequest struct {
	ID             string   `json:"id"`
	UserID         string   `json:"userId"`
	EC2            any      `json:"ec2"`
	EC2Type        string   `json:"ec2type"`
	S3             any      `json:"s3"`
	RDS            any      `json:"rds"`
	Top3Region     []string `json:"top3_region"`
	SelectedRegion *string  `json:"selectedRegion"`
	RepoURL        string   `json:"githubUrl"`
	AccessKey      string   `json:"accessKey"`
}

func (r saveRequest) selection() store.SelectionRecord {
	sel := store.SelectionRecord{
		ID:        firstNonEmpty(r.ID, r.UserID),
		RepoURL:   strings.TrimSpace(r.RepoURL),
		AccessKey: strings.TrimSpace(r.AccessKey),
	}
	if r.SelectedRegion != nil {
		sel.SelectedRegion = strings.TrimSpace(*r.SelectedRegion)
	}
	return sel
}

// handleSave persists a ranking input, or a final selection when the body
// carries selectedRegion.
func (s *Server) handleSave(c echo.Context) error {
	var body saveRequest
	if err := c.Bind(&body); err != nil {
		return errorJSON(c, http.StatusBadRequest, "invalid request body: "+err.Error())
	}
	if body.SelectedRegion != nil {
		return s.saveSelection(c, body.selection())
	}
	if s.cfg.Store == nil {
		return errorJSON(c, http.StatusServiceUnavailable, "no store configured")
	}

	ref, err := s.cfg.Store.SaveInput(c.Request().Context(), store.InputRecord{
		ID:         firstNonEmpty(body.ID, body.UserID),
		EC2:        ranker.ParseQuantity(body.EC2),
		EC2Type:    strings.TrimSpace(body.EC2Type),
		S3:         ranker.ParseQuantity(body.S3),
		RDS:        ranker.ParseQuantity(body.RDS),
		Top3Region: body.Top3Region,
	})
	s.metrics.saves.WithLabelValues("input", outcome(err)).Inc()
	if err != nil {
		slog.Error("Failed to save input", "error", err)
		return errorJSON(c, http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]any{"message": ref + " saved", "ref": ref})
}

// handleFinal always treats the body as a final selection.
func (s *Server) handleFinal(c echo.Context) error {
	var body saveRequest
	if err := c.Bind(&body); err != nil {
		return errorJSON(c, http.StatusBadRequest, "invalid request body: "+err.Error())
	}
	return s.saveSelection(c, body.selection())
}

func (s *Server) saveSelection(c echo.Context, sel store.SelectionRecord) error {
	if err := sel.Validate(); err != nil {
		return errorJSON(c, http.StatusBadRequest, err.Error())
	}
	if s.cfg.Store == nil {
		return errorJSON(c, http.StatusServiceUnavailable, "no store configured")
	}

	ctx := c.Request().Context()
	ref, err := s.cfg.Store.SaveSelection(ctx, sel)
	s.metrics.saves.WithLabelValues("selection", outcome(err)).Inc()
	if err != nil {
		if errors.Is(err, store.ErrInvalidSelection) {
			return errorJSON(c, http.StatusBadRequest, err.Error())
		}
		slog.Error("Failed to save selection", "error", err)
		return errorJSON(c, http.StatusInternalServerError, err.Error())
	}
	slog.Info("Selection saved", "id", sel.ID, "region", sel.SelectedRegion, "access_key", store.MaskKey(sel.AccessKey))

	resp := map[string]any{"message": ref + " saved", "ref": ref}
	if s.cfg.Notifier != nil {
		err := s.cfg.Notifier.Notify(ctx, sel)
		s.metrics.notifications.WithLabelValues(outcome(err)).Inc()
		resp["notified"] = err == nil
		if err != nil {
			slog.Warn("Webhook notification failed", "id", sel.ID, "error", err)
			resp["notify_error"] = err.Error()
		}
	}
	return c.JSON(http.StatusOK, resp)
}

func errorJSON(c echo.Context, status int, msg string) error {
	return c.JSON(status, map[string]string{"error": msg})
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
