package generator

import (
	"encoding/json"
	"errors"
	"html"
	"strings"

	"github.com/CharlieDigital/dn8-sk-llama3-fireworks/internal/models"
)

var errEmptySeed = errors.New("seed output is empty")

// parseCandidates decodes the seed output. Field names match case-insensitively;
// anything that is not a JSON array of {name, intro} objects is rejected.
func parseCandidates(text string) ([]models.RecipeCandidate, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, &models.ContentFormatError{Part: models.PartSeed, Err: errEmptySeed}
	}

	var candidates []models.RecipeCandidate
	if err := json.Unmarshal([]byte(text), &candidates); err != nil {
		return nil, &models.ContentFormatError{Part: models.PartSeed, Err: err}
	}
	return candidates, nil
}

// selectCandidate picks one candidate with pick, which must return a value in [0,n)
func selectCandidate(candidates []models.RecipeCandidate, pick func(n int) int) (int, error) {
	n := len(candidates)
	if n == 0 {
		return 0, &models.SelectionError{}
	}
	i := pick(n)
	if i < 0 || i >= n {
		return 0, &models.SelectionError{Count: n, Index: i}
	}
	return i, nil
}

// renderAlternates lists every candidate except the selected one as markup,
// keeping their original order
func renderAlternates(candidates []models.RecipeCandidate, selected int) string {
	var b strings.Builder
	for i, c := range candidates {
		if i == selected {
			continue
		}
		b.WriteString("<li><b>")
		b.WriteString(html.EscapeString(c.Name))
		b.WriteString("</b> &nbsp;<i>")
		b.WriteString(html.EscapeString(c.Intro))
		b.WriteString("</i></li>")
	}
	return b.String()
}
