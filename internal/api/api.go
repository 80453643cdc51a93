// Package api exposes classification and extraction over HTTP.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spigell/job-inbox/internal/classifier"
	"github.com/spigell/job-inbox/internal/exporter"
	"github.com/spigell/job-inbox/internal/extractor"
	"github.com/spigell/job-inbox/internal/tracker"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

// Applications lists stored records.
type Applications interface {
	Applications(ctx context.Context) ([]tracker.Application, error)
}

type Options struct {
	Logger *zap.Logger
	// Store is optional. Without it the /v1/applications routes are not registered.
	Store Applications
}

type classifyResponse struct {
	Category tracker.Category `json:"category"`
	Status   tracker.Status   `json:"status"`
	Pattern  string           `json:"pattern,omitempty"`
}

type extractRequest struct {
	tracker.Email
	// Category overrides classification when set.
	Category string `json:"category"`
}

type reportResponse struct {
	Total     int                            `json:"total"`
	ByStatus  map[tracker.Status]int         `json:"by_status"`
	ByCompany map[string][]map[string]string `json:"by_company"`
}

func NewRouter(opts Options) *gin.Engine {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(logger))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := r.Group("/v1")
	{
		v1.POST("/classify", handleClassify)
		v1.POST("/extract", handleExtract)
		if opts.Store != nil {
			v1.GET("/applications", handleApplications(opts.Store))
			v1.GET("/applications/report", handleReport(opts.Store))
		}
	}

	return r
}

func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("http request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
		)
	}
}

func handleClassify(c *gin.Context) {
	var email tracker.Email
	if err := c.ShouldBindJSON(&email); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result := classifier.Explain(email)
	c.JSON(http.StatusOK, classifyResponse{
		Category: result.Category,
		Status:   tracker.StatusFor(result.Category),
		Pattern:  result.Pattern,
	})
}

func handleExtract(c *gin.Context) {
	var req extractRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	category := classifier.Classify(req.Email)
	if req.Category != "" {
		parsed, ok := tracker.ParseCategory(req.Category)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("unknown category %q", req.Category)})
			return
		}
		category = parsed
	}

	c.JSON(http.StatusOK, extractor.Extract(req.Email, category))
}

func handleApplications(st Applications) gin.HandlerFunc {
	return func(c *gin.Context) {
		apps, err := st.Applications(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		switch format := c.DefaultQuery("format", exporter.FormatJSON); format {
		case exporter.FormatJSON:
			if apps == nil {
				apps = []tracker.Application{}
			}
			c.JSON(http.StatusOK, apps)
		case exporter.FormatCSV:
			c.Header("Content-Type", "text/csv; charset=utf-8")
			c.Status(http.StatusOK)
			if err := exporter.Export(c.Writer, apps, format); err != nil {
				_ = c.Error(err)
			}
		default:
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("unsupported format %q", format)})
		}
	}
}

func handleReport(st Applications) gin.HandlerFunc {
	return func(c *gin.Context) {
		apps, err := st.Applications(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		list := &tracker.Applications{}
		for idx := range apps {
			list.Add(&apps[idx])
		}

		c.JSON(http.StatusOK, reportResponse{
			Total:     list.Len(),
			ByStatus:  list.CountByStatus(),
			ByCompany: list.ReportByCompany(),
		})
	}
}

// Serve runs the HTTP server until ctx is canceled.
func Serve(ctx context.Context, addr string, handler http.Handler, logger *zap.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		logger.Info("shutting down http server")
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http server shutdown: %w", err)
		}
		return nil
	}
}
