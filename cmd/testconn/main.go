package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/CharlieDigital/dn8-sk-llama3-fireworks/internal/completion"
	"github.com/CharlieDigital/dn8-sk-llama3-fireworks/internal/config"
	"github.com/CharlieDigital/dn8-sk-llama3-fireworks/internal/database"
	"github.com/CharlieDigital/dn8-sk-llama3-fireworks/internal/eventbus"
)

func main() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cfg := config.Load()
	failed := false

	if cfg.RedisURL != "" {
		fmt.Println("Connecting to redis:", cfg.RedisURL)
		rdb, err := database.NewRedis(ctx, cfg.RedisURL)
		if err != nil {
			fmt.Printf("Error connecting to redis: %v\n", err)
			failed = true
		} else {
			rdb.Close()
			fmt.Println("Redis connection successful!")
		}
	}

	if cfg.NATSURL != "" {
		fmt.Println("Connecting to nats:", cfg.NATSURL)
		nc, err := eventbus.ConnectNATS(cfg.NATSURL, nil)
		if err != nil {
			fmt.Printf("Error connecting to nats: %v\n", err)
			failed = true
		} else {
			if err := nc.Ping(ctx); err != nil {
				fmt.Printf("Error pinging nats: %v\n", err)
				failed = true
			} else {
				fmt.Println("NATS connection successful!")
			}
			nc.Close()
		}
	}

	if err := cfg.Validate(); err != nil {
		fmt.Printf("Skipping provider check: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Streaming from %s (%s)\n", cfg.Provider, cfg.FastModel)
	openAIConfig := completion.OpenAIConfig{BaseURL: cfg.BaseURL, APIKey: cfg.APIKey}
	if cfg.Preset().StripNullToolCalls {
		openAIConfig.StripNullFields = []string{"tool_calls"}
	}
	provider := completion.NewOpenAI(openAIConfig)

	s, err := provider.Stream(ctx, completion.Request{
		Model:       cfg.FastModel,
		Prompt:      "Reply with the single word: ready",
		MaxTokens:   8,
		Temperature: 0,
		TopP:        1,
	})
	if err != nil {
		fmt.Printf("Error opening stream: %v\n", err)
		os.Exit(1)
	}
	defer s.Close()

	deltas := 0
	for {
		delta, err := s.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			fmt.Printf("\nError streaming: %v\n", err)
			os.Exit(1)
		}
		deltas++
		fmt.Print(delta)
	}
	fmt.Printf("\nProvider stream successful! (%d deltas)\n", deltas)

	if failed {
		os.Exit(1)
	}
}
