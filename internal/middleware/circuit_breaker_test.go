package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/CharlieDigital/dn8-sk-llama3-fireworks/internal/models"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

var providerFailure = &models.ProviderError{Part: models.PartSides, Model: "m", Err: errors.New("503")}

func TestCircuitBreaker_OpensAfterProviderFailures(t *testing.T) {
	clock := &fakeClock{t: time.Now()}
	cb := NewCircuitBreakerWithConfig(3, 2, 30*time.Second)
	cb.now = clock.now

	var transitions []string
	cb.OnStateChange = func(from, to CircuitState) {
		transitions = append(transitions, from.String()+"->"+to.String())
	}

	for range 3 {
		assert.True(t, cb.Allow())
		cb.Record(providerFailure)
	}
	assert.Equal(t, CircuitOpen, cb.State())
	assert.False(t, cb.Allow())

	clock.advance(31 * time.Second)
	assert.True(t, cb.Allow())
	assert.Equal(t, CircuitHalfOpen, cb.State())

	cb.Record(nil)
	assert.Equal(t, CircuitHalfOpen, cb.State())
	cb.Record(nil)
	assert.Equal(t, CircuitClosed, cb.State())

	assert.Equal(t, []string{"closed->open", "open->half-open", "half-open->closed"}, transitions)
}

func TestCircuitBreaker_HalfOpenFailureReopens(t *testing.T) {
	clock := &fakeClock{t: time.Now()}
	cb := NewCircuitBreakerWithConfig(1, 2, time.Second)
	cb.now = clock.now

	cb.Record(providerFailure)
	clock.advance(2 * time.Second)
	assert.True(t, cb.Allow())

	cb.Record(fmt.Errorf("wrapped: %w", providerFailure))
	assert.Equal(t, CircuitOpen, cb.State())
	assert.False(t, cb.Allow())
}

func TestCircuitBreaker_IgnoresNonProviderErrors(t *testing.T) {
	cb := NewCircuitBreakerWithConfig(1, 1, time.Minute)

	cb.Record(&models.CancelledError{Err: context.Canceled})
	cb.Record(&models.ContentFormatError{Part: models.PartSeed, Err: errors.New("bad json")})
	cb.Record(&models.SelectionError{})
	cb.Record(errors.New("deliver fragment: broken pipe"))

	assert.Equal(t, CircuitClosed, cb.State())
}

func TestCircuitBreaker_SuccessResetsFailures(t *testing.T) {
	cb := NewCircuitBreakerWithConfig(2, 1, time.Minute)

	cb.Record(providerFailure)
	cb.Record(nil)
	cb.Record(providerFailure)
	assert.Equal(t, CircuitClosed, cb.State())
}

func TestCircuitBreakerMiddleware(t *testing.T) {
	cb := NewCircuitBreakerWithConfig(1, 1, 30*time.Second)
	router := gin.New()
	router.POST("/generate", CircuitBreakerMiddleware(cb), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/generate", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	cb.RecordFailure()

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/generate", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "30", w.Header().Get("Retry-After"))
	assert.Contains(t, w.Body.String(), ErrCodeCircuitOpen)
}
