package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/CharlieDigital/dn8-sk-llama3-fireworks/internal/models"
	"github.com/CharlieDigital/dn8-sk-llama3-fireworks/internal/stream"
)

// Client calls the recipe API
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

// Generate starts a generation and returns the event stream body
func (c *Client) Generate(ctx context.Context, ingredients, prepTime string) (io.ReadCloser, error) {
	payload, err := json.Marshal(models.GenerationRequest{
		IngredientsOnHand: ingredients,
		PrepTime:          prepTime,
	})
	if err != nil {
		return nil, err
	}

	url := strings.TrimSuffix(c.BaseURL, "/") + "/generate"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")

	httpClient := c.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", url, err)
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("generate failed with status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return resp.Body, nil
}

// StreamError is a terminal error event sent by the server mid-stream
type StreamError struct {
	Code    string
	Message string
}

func (e *StreamError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Recipe is the assembled content of every part of a generation
type Recipe struct {
	Parts map[models.Part]string
}

// printOrder lays the recipe out the way it reads, not the way it arrives
var printOrder = []struct {
	part  models.Part
	title string
}{
	{models.PartAlternates, "Alternates"},
	{models.PartIntro, "Introduction"},
	{models.PartIngredients, "Ingredients"},
	{models.PartIngredientNotes, "Ingredient notes"},
	{models.PartSteps, "Steps"},
	{models.PartSides, "Sides"},
}

// Assemble reads fragments until the stream ends, concatenating the
// content of each part in arrival order
func Assemble(r io.Reader) (*Recipe, error) {
	recipe := &Recipe{Parts: make(map[models.Part]string)}
	builders := make(map[models.Part]*strings.Builder)

	err := forEachFragment(r, func(part, content string) {
		b, ok := builders[models.Part(part)]
		if !ok {
			b = &strings.Builder{}
			builders[models.Part(part)] = b
		}
		b.WriteString(content)
	})
	for part, b := range builders {
		recipe.Parts[part] = stream.Render(b.String())
	}
	return recipe, err
}

// Print writes the recipe section by section
func (r *Recipe) Print(w io.Writer) error {
	for _, section := range printOrder {
		content, ok := r.Parts[section.part]
		if !ok {
			continue
		}
		if _, err := fmt.Fprintf(w, "## %s\n\n%s\n\n", section.title, strings.TrimSpace(content)); err != nil {
			return err
		}
	}
	return nil
}

func printRaw(r io.Reader, w io.Writer) error {
	var werr error
	err := forEachFragment(r, func(part, content string) {
		if werr == nil {
			_, werr = fmt.Fprintf(w, "%s|%s\n", part, content)
		}
	})
	return errors.Join(err, werr)
}

func forEachFragment(r io.Reader, fn func(part, content string)) error {
	reader := stream.NewReader(r)
	for {
		event, err := reader.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		if event.Name == stream.EventError {
			code, message, _ := strings.Cut(event.Data, "|")
			return &StreamError{Code: code, Message: message}
		}

		part, content, err := stream.ParsePayload(event.Data)
		if err != nil {
			return err
		}
		fn(part, content)
	}
}
