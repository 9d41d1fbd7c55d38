package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v3"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := &cli.Command{
		Name:  "generate",
		Usage: "Generate a recipe from the ingredients on hand",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "url",
				Aliases: []string{"u"},
				Value:   "http://localhost:5174",
				Usage:   "base URL of the recipe API",
				Sources: cli.EnvVars("RECIPE_API_URL"),
			},
			&cli.StringFlag{
				Name:     "ingredients",
				Aliases:  []string{"i"},
				Usage:    "ingredients on hand, e.g. \"chicken, rice, scallions\"",
				Required: true,
			},
			&cli.StringFlag{
				Name:    "prep-time",
				Aliases: []string{"p"},
				Value:   "30 minutes",
				Usage:   "time available to prepare the meal",
			},
			&cli.BoolFlag{
				Name:  "raw",
				Usage: "print every fragment as it arrives instead of the assembled recipe",
			},
			&cli.DurationFlag{
				Name:  "timeout",
				Value: 3 * time.Minute,
				Usage: "give up after this long",
			},
		},
		Action: handleGenerate,
	}

	if err := cmd.Run(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func handleGenerate(ctx context.Context, cmd *cli.Command) error {
	ctx, cancel := context.WithTimeout(ctx, cmd.Duration("timeout"))
	defer cancel()

	client := &Client{BaseURL: cmd.String("url")}
	body, err := client.Generate(ctx, cmd.String("ingredients"), cmd.String("prep-time"))
	if err != nil {
		return err
	}
	defer body.Close()

	if cmd.Bool("raw") {
		return printRaw(body, os.Stdout)
	}

	recipe, err := Assemble(body)
	if err != nil {
		return err
	}
	return recipe.Print(os.Stdout)
}
