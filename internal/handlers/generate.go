package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/CharlieDigital/dn8-sk-llama3-fireworks/internal/generator"
	"github.com/CharlieDigital/dn8-sk-llama3-fireworks/internal/middleware"
	"github.com/CharlieDigital/dn8-sk-llama3-fireworks/internal/models"
	"github.com/CharlieDigital/dn8-sk-llama3-fireworks/internal/stream"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RecipeGenerator produces a recipe as a stream of fragments
type RecipeGenerator interface {
	Generate(ctx context.Context, req models.GenerationRequest, sink generator.Sink) error
}

// GenerateHandler streams generated recipes as server-sent events
type GenerateHandler struct {
	generator RecipeGenerator
	breaker   *middleware.CircuitBreaker
	timeout   time.Duration
	logger    *zap.Logger
}

// NewGenerateHandler creates a new generate handler; breaker may be nil
func NewGenerateHandler(gen RecipeGenerator, breaker *middleware.CircuitBreaker, timeout time.Duration, logger *zap.Logger) *GenerateHandler {
	return &GenerateHandler{
		generator: gen,
		breaker:   breaker,
		timeout:   timeout,
		logger:    logger,
	}
}

// Generate handles POST /generate
func (h *GenerateHandler) Generate(c *gin.Context) {
	var req models.GenerationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.BadRequest(c, err.Error())
		return
	}

	ctx := c.Request.Context()
	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}

	// streaming responses outlive the server's WriteTimeout
	rc := http.NewResponseController(c.Writer)
	if err := rc.SetWriteDeadline(time.Time{}); err != nil {
		h.logger.Debug("could not disable write deadline", zap.Error(err))
	}

	started := false
	sink := func(_ context.Context, f models.Fragment) error {
		if !started {
			startEventStream(c)
			started = true
		}
		if err := stream.WriteFragment(c.Writer, string(f.Part), f.Content); err != nil {
			return err
		}
		c.Writer.Flush()
		return nil
	}

	err := h.generator.Generate(ctx, req, sink)
	if h.breaker != nil {
		h.breaker.Record(err)
	}
	if err == nil {
		return
	}

	code := models.ErrorCode(err)
	h.logger.Warn("generation ended with error",
		zap.String("request_id", middleware.GetRequestID(c)),
		zap.String("code", code),
		zap.Bool("streaming", started),
		zap.Error(err),
	)
	_ = c.Error(err)

	if !started {
		status := middleware.StatusFor(err)
		if code == models.ErrCodeCancelled && c.Request.Context().Err() == nil {
			// GENERATION_TIMEOUT expired while the client was still waiting
			status = http.StatusGatewayTimeout
		}
		middleware.RespondError(c, status, code, err.Error())
		return
	}
	if c.Request.Context().Err() != nil {
		// the client is gone; nobody is left to read a terminal event
		return
	}
	if werr := stream.WriteError(c.Writer, code, err.Error()); werr == nil {
		c.Writer.Flush()
	}
}

func startEventStream(c *gin.Context) {
	header := c.Writer.Header()
	header.Set("Content-Type", stream.ContentType)
	header.Set("Cache-Control", "no-cache")
	header.Set("Connection", "keep-alive")
	header.Set("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)
	c.Writer.WriteHeaderNow()
}
