package models

// GenerationRequest is the request body for generating a recipe
type GenerationRequest struct {
	IngredientsOnHand string `json:"ingredientsOnHand" binding:"required"`
	PrepTime          string `json:"prepTime" binding:"required"`
}

// RecipeCandidate is one of the recipes proposed by the seed call
type RecipeCandidate struct {
	Name  string `json:"name"`
	Intro string `json:"intro"`
}

// Part identifies the sub-document a fragment belongs to
type Part string

const (
	PartSeed            Part = "init" // never forwarded to the sink
	PartAlternates      Part = "alt"
	PartIngredients     Part = "add"
	PartSteps           Part = "ste"
	PartIntro           Part = "int"
	PartIngredientNotes Part = "ing"
	PartSides           Part = "sde"
)

// StreamedParts lists every part a successful generation delivers
var StreamedParts = []Part{
	PartAlternates,
	PartIntro,
	PartIngredients,
	PartIngredientNotes,
	PartSteps,
	PartSides,
}

// Fragment is one incremental piece of text for a part
type Fragment struct {
	Part    Part   `json:"part"`
	Content string `json:"content"`
}

// ExecutionSettings holds the sampling configuration of a single prompt
type ExecutionSettings struct {
	MaxTokens   int
	Temperature float32
	TopP        float32
	// Model overrides the generator's default model when set
	Model string
}
