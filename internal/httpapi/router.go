// Package httpapi serves the transcript and summary operations over REST.
package httpapi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/anatolykoptev/go_ytsum/internal/archive"
	"github.com/anatolykoptev/go_ytsum/internal/engine"
	"github.com/anatolykoptev/go_ytsum/internal/service"
)

type handler struct {
	svc *service.Service
}

type urlRequest struct {
	URL      string `json:"url" binding:"required"`
	Language string `json:"language"`
}

type textRequest struct {
	Text string `json:"text" binding:"required"`
}

// NewRouter builds the gin engine with every route registered.
func NewRouter(svc *service.Service) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger())

	h := &handler{svc: svc}
	r.GET("/healthz", h.health)
	r.GET("/metrics", h.metrics)

	v1 := r.Group("/v1")
	v1.POST("/transcripts", h.transcript)
	v1.POST("/summaries", h.summarize)
	v1.POST("/summaries/text", h.summarizeText)
	v1.GET("/summaries", h.history)
	v1.GET("/summaries/:id", h.get)
	v1.GET("/summaries/:id/download", h.download)
	return r
}

// Serve runs the router on addr until ctx is cancelled.
func Serve(ctx context.Context, addr string, svc *service.Service) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           NewRouter(svc),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		slog.Info("http api listening", slog.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()
	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (h *handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "models": h.svc.Models()})
}

func (h *handler) metrics(c *gin.Context) {
	c.String(http.StatusOK, engine.FormatMetrics())
}

func (h *handler) transcript(c *gin.Context) {
	var req urlRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	out, err := h.svc.Transcript(c.Request.Context(), req.URL, req.Language)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *handler) summarize(c *gin.Context) {
	var req urlRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	out, err := h.svc.SummarizeURL(c.Request.Context(), req.URL, req.Language)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *handler) summarizeText(c *gin.Context) {
	var req textRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	out, err := h.svc.SummarizeText(c.Request.Context(), req.Text)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *handler) history(c *gin.Context) {
	limit := 0
	if s := c.Query("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be an integer"})
			return
		}
		limit = n
	}
	entries, err := h.svc.History(c.Request.Context(), limit)
	if err != nil {
		respondError(c, err)
		return
	}
	if entries == nil {
		entries = []archive.Entry{}
	}
	c.JSON(http.StatusOK, gin.H{"summaries": entries})
}

func (h *handler) get(c *gin.Context) {
	e, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, e)
}

func (h *handler) download(c *gin.Context) {
	e, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	format := strings.ToLower(c.DefaultQuery("format", service.FormatText))
	body, err := service.Render(e, format)
	if err != nil {
		respondError(c, err)
		return
	}
	contentType := "text/plain; charset=utf-8"
	if format == service.FormatMarkdown {
		contentType = "text/markdown; charset=utf-8"
	}
	c.Header("Content-Disposition", `attachment; filename="`+service.Filename(e, format)+`"`)
	c.Data(http.StatusOK, contentType, body)
}

// statusFor maps an error kind to its HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, engine.ErrInvalidURL), errors.Is(err, service.ErrUnknownFormat):
		return http.StatusBadRequest
	case errors.Is(err, engine.ErrNoTranscript), errors.Is(err, archive.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, engine.ErrEmptyInput):
		return http.StatusUnprocessableEntity
	case errors.Is(err, engine.ErrNetwork), errors.Is(err, engine.ErrAllModelsExhausted):
		return http.StatusBadGateway
	case errors.Is(err, service.ErrArchiveDisabled):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

func respondError(c *gin.Context, err error) {
	status := statusFor(err)
	msg := engine.UserMessage(err)
	switch {
	case errors.Is(err, archive.ErrNotFound), errors.Is(err, service.ErrArchiveDisabled),
		errors.Is(err, service.ErrUnknownFormat):
		msg = err.Error()
	}
	if status >= http.StatusInternalServerError {
		slog.Warn("http api: request failed", slog.String("path", c.FullPath()), slog.Int("status", status), slog.Any("error", err))
	}
	c.JSON(status, gin.H{"error": msg, "detail": err.Error()})
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		slog.Debug("http api",
			slog.String("method", c.Request.Method),
			slog.String("path", c.Request.URL.Path),
			slog.Int("status", c.Writer.Status()),
			slog.Duration("took", time.Since(start)))
	}
}
