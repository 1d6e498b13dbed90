// Package api provides the REST API server for stepseq
package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/gin-gonic/gin"
	"github.com/james-see/stepseq/pkg/export"
	"github.com/james-see/stepseq/pkg/pattern"
	"github.com/james-see/stepseq/pkg/scheduler"
	"github.com/sirupsen/logrus"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// maxTimingSteps caps the number of durations /timing returns
const maxTimingSteps = 1024

// @title stepseq API
// @version 1.0
// @description API for editing drum step patterns and rendering them to MIDI
// @host localhost:8080
// @BasePath /api/v1

// Server holds the dependencies shared by the handlers
type Server struct {
	exporter *export.Exporter
	log      logrus.FieldLogger
}

// NewServer creates a server. A nil logger uses the logrus standard logger.
func NewServer(exporter *export.Exporter, logger logrus.FieldLogger) *Server {
	if exporter == nil {
		exporter = export.New()
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Server{exporter: exporter, log: logger.WithField("component", "api")}
}

// Router builds the gin engine with every route registered
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(s.requestLogger())

	// CORS middleware
	r.Use(corsMiddleware())

	// Health check
	r.GET("/health", healthCheck)

	// API v1 routes
	v1 := r.Group("/api/v1")
	{
		v1.GET("/health", healthCheck)
		v1.GET("/pattern/default", handleDefaultPattern)
		v1.POST("/pattern/randomize", handleRandomize)
		v1.POST("/pattern/humanize", handleHumanize)
		v1.POST("/pattern/copy", handleCopyBar)
		v1.POST("/pattern/resize", handleResize)
		v1.POST("/export", s.handleExport)
		v1.GET("/timing", handleTiming)
		v1.GET("/formats", listFormats)
	}

	// Swagger docs
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	return r
}

// StartServer starts the API server on the specified port
func StartServer(port int, logger logrus.FieldLogger) error {
	return NewServer(export.New(), logger).Router().Run(fmt.Sprintf(":%d", port))
}

// InitSentry enables error reporting when dsn is set. The returned func
// flushes buffered events and must be called before exit.
func InitSentry(dsn string) (func(), error) {
	if dsn == "" {
		return func() {}, nil
	}
	err := sentry.Init(sentry.ClientOptions{
		Dsn:              dsn,
		EnableTracing:    true,
		TracesSampleRate: 1.0,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to init sentry: %w", err)
	}
	return func() { sentry.Flush(2 * time.Second) }, nil
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.log.WithFields(logrus.Fields{
			"method":   c.Request.Method,
			"path":     c.Request.URL.Path,
			"status":   c.Writer.Status(),
			"duration": time.Since(start),
		}).Debug("request")
	}
}

// healthCheck godoc
// @Summary Health check endpoint
// @Description Returns the health status of the API
// @Tags health
// @Produce json
// @Success 200 {object} map[string]string
// @Router /health [get]
func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "stepseq",
	})
}

// listFormats godoc
// @Summary List supported formats
// @Description Returns the file formats and conversion paths
// @Tags info
// @Produce json
// @Success 200 {object} map[string][]string
// @Router /api/v1/formats [get]
func listFormats(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"formats":     []string{string(export.FormatPattern), string(export.FormatMIDI)},
		"conversions": export.SupportedConversions(),
	})
}

// handleDefaultPattern godoc
// @Summary Create an empty pattern
// @Description Returns an empty pattern record with the requested dimensions
// @Tags pattern
// @Produce json
// @Param rows query int false "Rows (default 8, max 128)"
// @Param bars query int false "Bars (default 4, max 256)"
// @Param steps query int false "Steps per bar (default 16, max 256)"
// @Success 200 {object} pattern.Record
// @Failure 400 {object} map[string]string
// @Router /api/v1/pattern/default [get]
func handleDefaultPattern(c *gin.Context) {
	var rows, bars, steps int
	err := errors.Join(
		queryInt(c, "rows", pattern.DefaultRows, &rows),
		queryInt(c, "bars", pattern.DefaultBars, &bars),
		queryInt(c, "steps", pattern.DefaultStepsPerBar, &steps),
	)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, pattern.New(rows, bars, steps).Record())
}

// handleRandomize godoc
// @Summary Randomize a bar
// @Description Fills a bar with random hits and returns the updated pattern
// @Tags pattern
// @Accept json
// @Produce json
// @Param pattern body pattern.Record true "Pattern"
// @Param bar query int false "Bar index (default 0)"
// @Param density query number false "Hit probability 0-1 (default 0.5)"
// @Param min query int false "Minimum velocity (default 60)"
// @Param max query int false "Maximum velocity (default 127)"
// @Param seed query int false "Random seed"
// @Success 200 {object} pattern.Record
// @Failure 400 {object} map[string]string
// @Router /api/v1/pattern/randomize [post]
func handleRandomize(c *gin.Context) {
	var bar, minVel, maxVel int
	var density float64
	err := errors.Join(
		queryInt(c, "bar", 0, &bar),
		queryFloat(c, "density", 0.5, &density),
		queryInt(c, "min", 60, &minVel),
		queryInt(c, "max", pattern.MaxVelocity, &maxVel),
	)
	rng, seedErr := querySeed(c)
	if err = errors.Join(err, seedErr); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	p, ok := bindPattern(c)
	if !ok {
		return
	}
	p.RandomizeBar(bar, density, minVel, maxVel, rng)
	c.JSON(http.StatusOK, p.Record())
}

// handleHumanize godoc
// @Summary Humanize a bar
// @Description Nudges the velocities of a bar's hits and returns the updated pattern
// @Tags pattern
// @Accept json
// @Produce json
// @Param pattern body pattern.Record true "Pattern"
// @Param bar query int false "Bar index (default 0)"
// @Param amount query int false "Maximum velocity offset (default 10)"
// @Param seed query int false "Random seed"
// @Success 200 {object} pattern.Record
// @Failure 400 {object} map[string]string
// @Router /api/v1/pattern/humanize [post]
func handleHumanize(c *gin.Context) {
	var bar, amount int
	err := errors.Join(
		queryInt(c, "bar", 0, &bar),
		queryInt(c, "amount", 10, &amount),
	)
	rng, seedErr := querySeed(c)
	if err = errors.Join(err, seedErr); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	p, ok := bindPattern(c)
	if !ok {
		return
	}
	p.HumanizeBar(bar, amount, rng)
	c.JSON(http.StatusOK, p.Record())
}

// handleCopyBar godoc
// @Summary Copy a bar
// @Description Copies one bar over another and returns the updated pattern
// @Tags pattern
// @Accept json
// @Produce json
// @Param pattern body pattern.Record true "Pattern"
// @Param from query int true "Source bar"
// @Param to query int true "Destination bar"
// @Success 200 {object} pattern.Record
// @Failure 400 {object} map[string]string
// @Router /api/v1/pattern/copy [post]
func handleCopyBar(c *gin.Context) {
	if c.Query("from") == "" || c.Query("to") == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "from and to are required"})
		return
	}
	var from, to int
	if err := errors.Join(queryInt(c, "from", 0, &from), queryInt(c, "to", 0, &to)); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	p, ok := bindPattern(c)
	if !ok {
		return
	}
	p.CopyBar(from)
	p.PasteBar(to)
	c.JSON(http.StatusOK, p.Record())
}

// handleResize godoc
// @Summary Resize a pattern
// @Description Changes the bar count and/or bar resolution and returns the updated pattern
// @Tags pattern
// @Accept json
// @Produce json
// @Param pattern body pattern.Record true "Pattern"
// @Param bars query int false "New bar count (max 256)"
// @Param steps query int false "New steps per bar (max 256)"
// @Success 200 {object} pattern.Record
// @Failure 400 {object} map[string]string
// @Router /api/v1/pattern/resize [post]
func handleResize(c *gin.Context) {
	var bars, steps int
	if err := errors.Join(queryInt(c, "bars", 0, &bars), queryInt(c, "steps", 0, &steps)); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	p, ok := bindPattern(c)
	if !ok {
		return
	}
	if bars > 0 {
		p.SetBars(bars)
	}
	if steps > 0 {
		p.SetStepsPerBar(steps)
	}
	c.JSON(http.StatusOK, p.Record())
}

// handleExport godoc
// @Summary Export a pattern to MIDI
// @Description Renders a pattern as a Standard MIDI File
// @Tags export
// @Accept json
// @Produce audio/midi
// @Param pattern body pattern.Record true "Pattern"
// @Param bpm query number false "Tempo (default 120)"
// @Success 200 {file} binary
// @Failure 400 {object} map[string]string
// @Failure 500 {object} map[string]string
// @Router /api/v1/export [post]
func (s *Server) handleExport(c *gin.Context) {
	transaction := sentry.StartTransaction(c.Request.Context(), "api.export")
	defer transaction.Finish()

	var bpm float64
	if err := queryFloat(c, "bpm", pattern.DefaultBPM, &bpm); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	p, ok := bindPattern(c)
	if !ok {
		transaction.SetTag("success", "false")
		return
	}

	data, err := s.exporter.Export(p, bpm)
	if err != nil {
		transaction.SetTag("success", "false")
		sentry.CaptureException(err)
		s.log.WithError(err).Error("export failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	transaction.SetTag("success", "true")

	c.Header("Content-Disposition", "attachment; filename=pattern.mid")
	c.Data(http.StatusOK, "audio/midi", data)
}

// timingResponse lists the swing-adjusted duration of consecutive steps
type timingResponse struct {
	BPM         float64 `json:"bpm"`
	StepsPerBar int     `json:"stepsPerBar"`
	Swing       float64 `json:"swing"`
	DurationsMs []int64 `json:"durationsMs"`
}

// handleTiming godoc
// @Summary Step durations
// @Description Returns the duration of consecutive steps for a tempo, resolution and swing
// @Tags timing
// @Produce json
// @Param bpm query number false "Tempo (default 120)"
// @Param steps query int false "Steps per bar (default 16)"
// @Param swing query number false "Swing 0-0.5 (default 0)"
// @Param count query int false "Number of steps (default one bar)"
// @Success 200 {object} timingResponse
// @Failure 400 {object} map[string]string
// @Router /api/v1/timing [get]
func handleTiming(c *gin.Context) {
	var bpm, swing float64
	var steps, count int
	err := errors.Join(
		queryFloat(c, "bpm", pattern.DefaultBPM, &bpm),
		queryInt(c, "steps", pattern.DefaultStepsPerBar, &steps),
		queryFloat(c, "swing", 0, &swing),
		queryInt(c, "count", 0, &count),
	)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	steps = max(1, steps)
	if count <= 0 {
		count = steps
	}
	count = min(count, maxTimingSteps)

	resp := timingResponse{
		BPM:         pattern.ClampBPM(bpm),
		StepsPerBar: steps,
		Swing:       pattern.ClampSwing(swing),
		DurationsMs: make([]int64, count),
	}
	for i := range resp.DurationsMs {
		resp.DurationsMs[i] = scheduler.StepDuration(bpm, steps, swing, i).Milliseconds()
	}
	c.JSON(http.StatusOK, resp)
}

// bindPattern decodes the request body, answering 400 on failure
func bindPattern(c *gin.Context) (*pattern.Pattern, bool) {
	p, err := pattern.Decode(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return nil, false
	}
	return p, true
}

func queryInt(c *gin.Context, name string, def int, dst *int) error {
	raw := c.Query(name)
	if raw == "" {
		*dst = def
		return nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fmt.Errorf("invalid %s: %q", name, raw)
	}
	*dst = v
	return nil
}

func queryFloat(c *gin.Context, name string, def float64, dst *float64) error {
	raw := c.Query(name)
	if raw == "" {
		*dst = def
		return nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fmt.Errorf("invalid %s: %q", name, raw)
	}
	*dst = v
	return nil
}

// querySeed returns a seeded generator when ?seed is set, nil otherwise
func querySeed(c *gin.Context) (pattern.Rand, error) {
	raw := c.Query("seed")
	if raw == "" {
		return nil, nil
	}
	seed, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid seed: %q", raw)
	}
	return pattern.NewRand(seed), nil
}
