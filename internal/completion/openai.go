package completion

import (
	"context"
	"net/http"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIConfig configures an OpenAI-compatible chat completion endpoint
type OpenAIConfig struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
	// StripNullFields lists response fields removed when they are null
	StripNullFields []string
}

// OpenAI streams chat completions from any OpenAI-compatible API
// (Fireworks, Together, Groq, OpenAI)
type OpenAI struct {
	client *openai.Client
}

// NewOpenAI creates a provider for the given endpoint
func NewOpenAI(cfg OpenAIConfig) *OpenAI {
	config := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		config.BaseURL = cfg.BaseURL
	}
	if cfg.HTTPClient != nil {
		config.HTTPClient = cfg.HTTPClient
	}
	if len(cfg.StripNullFields) > 0 {
		var base http.RoundTripper
		if cfg.HTTPClient != nil {
			base = cfg.HTTPClient.Transport
		}
		rewrites := make([]func([]byte) []byte, 0, len(cfg.StripNullFields))
		for _, field := range cfg.StripNullFields {
			rewrites = append(rewrites, StripNullField(field))
		}
		config.HTTPClient = &http.Client{Transport: &PayloadFilter{
			Base: base,
			Rewrite: func(line []byte) []byte {
				for _, rewrite := range rewrites {
					line = rewrite(line)
				}
				return line
			},
		}}
	}
	return &OpenAI{client: openai.NewClientWithConfig(config)}
}

// Stream sends the prompt as a single user message and streams the reply
func (o *OpenAI) Stream(ctx context.Context, req Request) (Stream, error) {
	stream, err := o.client.CreateChatCompletionStream(ctx, openai.ChatCompletionRequest{
		Model: req.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: req.Prompt},
		},
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
		TopP:        req.TopP,
		Stream:      true,
	})
	if err != nil {
		return nil, err
	}
	return &openAIStream{stream: stream}, nil
}

type openAIStream struct {
	stream *openai.ChatCompletionStream
}

func (s *openAIStream) Recv() (string, error) {
	for {
		res, err := s.stream.Recv()
		if err != nil {
			return "", err
		}
		// usage-only chunks and role announcements carry no text
		if len(res.Choices) == 0 {
			continue
		}
		if delta := res.Choices[0].Delta.Content; delta != "" {
			return delta, nil
		}
	}
}

func (s *openAIStream) Close() error {
	return s.stream.Close()
}
