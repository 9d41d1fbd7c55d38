package handlers

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/CharlieDigital/dn8-sk-llama3-fireworks/internal/completion/completiontest"
	"github.com/CharlieDigital/dn8-sk-llama3-fireworks/internal/generator"
	"github.com/CharlieDigital/dn8-sk-llama3-fireworks/internal/middleware"
	"github.com/CharlieDigital/dn8-sk-llama3-fireworks/internal/models"
	"github.com/CharlieDigital/dn8-sk-llama3-fireworks/internal/stream"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func init() {
	gin.SetMode(gin.TestMode)
}

const validBody = `{"ingredientsOnHand":"chicken, rice","prepTime":"30"}`

func recipeProvider() *completiontest.Provider {
	return completiontest.New().
		On("think of 3 recipes", completiontest.Response{Deltas: []string{
			`[{"name":"Chicken Fried Rice","intro":"Fast."},{"name":"Congee","intro":"Comforting."}]`,
		}}).
		On("Write a list of the entire list of ingredients", completiontest.Response{Deltas: []string{"2 cups rice⮑", "1 lb chicken"}}).
		On("paragraph introducing the recipe", completiontest.Response{Deltas: []string{"A takeout classic."}}).
		On("nutritional information", completiontest.Response{Deltas: []string{"Chicken⮑Lean protein.⮑⮑"}}).
		On("writing out the steps", completiontest.Response{Deltas: []string{"1. Cook the rice.⮑⮑"}}).
		On("suggested side dishes", completiontest.Response{Deltas: []string{"Egg drop soup"}})
}

func newGenerateRouter(t *testing.T, provider *completiontest.Provider, breaker *middleware.CircuitBreaker, timeout time.Duration) *gin.Engine {
	t.Helper()
	logger := zaptest.NewLogger(t)
	gen := generator.New(provider, generator.Config{Model: "big"}, logger,
		generator.WithPicker(func(int) int { return 0 }))

	router := gin.New()
	router.Use(middleware.RequestID())
	router.POST("/generate", NewGenerateHandler(gen, breaker, timeout, logger).Generate)
	return router
}

func post(router http.Handler, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/generate", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func readEvents(t *testing.T, body io.Reader) []stream.Event {
	t.Helper()
	r := stream.NewReader(body)
	var events []stream.Event
	for {
		ev, err := r.Next()
		if errors.Is(err, io.EOF) {
			return events
		}
		require.NoError(t, err)
		events = append(events, ev)
	}
}

func TestGenerate_StreamsFragments(t *testing.T) {
	breaker := middleware.NewCircuitBreakerWithConfig(1, 1, time.Minute)
	router := newGenerateRouter(t, recipeProvider(), breaker, time.Minute)

	w := post(router, validBody)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, stream.ContentType, w.Header().Get("Content-Type"))
	assert.Equal(t, "no-cache", w.Header().Get("Cache-Control"))
	assert.NotEmpty(t, w.Header().Get(middleware.RequestIDHeader))
	assert.True(t, w.Flushed)

	contents := make(map[string]string)
	counts := make(map[string]int)
	for _, ev := range readEvents(t, bytes.NewReader(w.Body.Bytes())) {
		require.Empty(t, ev.Name, "unexpected %s event: %s", ev.Name, ev.Data)
		part, content, err := stream.ParsePayload(ev.Data)
		require.NoError(t, err)
		contents[part] += content
		counts[part]++
	}

	assert.Len(t, counts, 6)
	assert.Equal(t, 1, counts["alt"])
	assert.Equal(t, "<li><b>Congee</b> &nbsp;<i>Comforting.</i></li>", contents["alt"])
	assert.Equal(t, "2 cups rice⮑1 lb chicken", contents["add"])
	assert.Equal(t, "1. Cook the rice.⮑⮑", contents["ste"])
	assert.Equal(t, "Egg drop soup", contents["sde"])
	assert.Equal(t, middleware.CircuitClosed, breaker.State())
}

func TestGenerate_BadRequest(t *testing.T) {
	provider := recipeProvider()
	router := newGenerateRouter(t, provider, nil, time.Minute)

	for _, body := range []string{`{"ingredientsOnHand":"rice"}`, `not json`, `{}`} {
		w := post(router, body)
		assert.Equal(t, http.StatusBadRequest, w.Code, body)
		assert.Contains(t, w.Body.String(), middleware.ErrCodeBadRequest)
	}
	assert.Empty(t, provider.Calls())
}

func TestGenerate_FailureBeforeStreaming(t *testing.T) {
	provider := recipeProvider().On("think of 3 recipes", completiontest.Response{Deltas: []string{"I cannot help"}})
	breaker := middleware.NewCircuitBreakerWithConfig(1, 1, time.Minute)
	router := newGenerateRouter(t, provider, breaker, time.Minute)

	w := post(router, validBody)
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "application/json")
	assert.Contains(t, w.Body.String(), models.ErrCodeContentFormat)
	assert.Equal(t, middleware.CircuitClosed, breaker.State())
}

func TestGenerate_FailureWhileStreaming(t *testing.T) {
	provider := recipeProvider().On("suggested side dishes", completiontest.Response{
		Deltas:  []string{"Egg"},
		RecvErr: errors.New("connection reset"),
		// fail once streaming is under way
		Delay: 50 * time.Millisecond,
	})
	breaker := middleware.NewCircuitBreakerWithConfig(1, 1, time.Minute)
	router := newGenerateRouter(t, provider, breaker, time.Minute)

	w := post(router, validBody)
	require.Equal(t, http.StatusOK, w.Code)

	events := readEvents(t, bytes.NewReader(w.Body.Bytes()))
	require.NotEmpty(t, events)
	last := events[len(events)-1]
	assert.Equal(t, stream.EventError, last.Name)
	assert.True(t, strings.HasPrefix(last.Data, models.ErrCodeProvider+"|"), last.Data)

	for _, ev := range events[:len(events)-1] {
		assert.Empty(t, ev.Name)
	}
	assert.Equal(t, middleware.CircuitOpen, breaker.State())
}

func TestGenerate_Timeout(t *testing.T) {
	provider := recipeProvider().On("think of 3 recipes", completiontest.Response{Hang: true})
	router := newGenerateRouter(t, provider, nil, 50*time.Millisecond)

	w := post(router, validBody)
	assert.Equal(t, http.StatusGatewayTimeout, w.Code)
	assert.Contains(t, w.Body.String(), models.ErrCodeCancelled)
}

func TestGenerate_ClientGone(t *testing.T) {
	provider := recipeProvider().On("paragraph introducing the recipe", completiontest.Response{Hang: true})
	logger := zaptest.NewLogger(t)
	gen := generator.New(provider, generator.Config{Model: "big"}, logger)
	handler := NewGenerateHandler(gen, nil, time.Minute, logger)

	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodPost, "/generate", strings.NewReader(validBody)).WithContext(ctx)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = req

	done := make(chan struct{})
	go func() {
		handler.Generate(c)
		close(done)
	}()

	// the hanging intro keeps the generation open until the client leaves
	require.Eventually(t, func() bool {
		_, ok := provider.CallFor("paragraph introducing the recipe")
		return ok
	}, 2*time.Second, 5*time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("handler did not return after the client went away")
	}
	assert.NotContains(t, w.Body.String(), "event: error")
}
