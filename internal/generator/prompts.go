package generator

import (
	"fmt"

	"github.com/CharlieDigital/dn8-sk-llama3-fireworks/internal/models"
)

// LineBreak is the sentinel the prompts ask the model to use for line
// breaks. Clients turn it into "\n" and a doubled sentinel into a
// paragraph break.
const LineBreak = "⮑"

const persona = "You are a writer for America's Test Kitchen"

var (
	seedSettings            = models.ExecutionSettings{MaxTokens: 500, Temperature: 0.25}
	ingredientsSettings     = models.ExecutionSettings{MaxTokens: 200, Temperature: 0.25}
	introSettings           = models.ExecutionSettings{MaxTokens: 250, Temperature: 0.55}
	ingredientNotesSettings = models.ExecutionSettings{MaxTokens: 200, Temperature: 0.25}
	stepsSettings           = models.ExecutionSettings{MaxTokens: 400, Temperature: 0.25}
	sidesSettings           = models.ExecutionSettings{MaxTokens: 72, Temperature: 0.25}
)

func seedPrompt(ingredientsOnHand, prepTime string) string {
	return fmt.Sprintf(`%s
You have been given a list of ingredients and prep time
Your job is to think of 3 recipes that we can make with these ingredients within the prep time
Here is a list of ingredients we have already: %s
These are just the ingredients we already have on hand
You can include recipes that have more ingredients
The ideal prep time is %s minutes or less; pick recipes that can be prepared in this time limit
WRITE ONLY THE JSON DO NOT WRITE A PROLOGUE; JUST WRITE THE CONTENT
DO NOT WASTE TOKENS ON WHITESPACE WRITE THE JSON AS A SINGLE LINE
Write your output as JSON using the format:

[
 {
   "name": "(the name of the recipe)",
   "intro": "(a sentence describing this recipe)"
 },
]`, persona, ingredientsOnHand, prepTime)
}

func ingredientsPrompt(recipe models.RecipeCandidate, ingredientsOnHand string) string {
	return fmt.Sprintf(`%s
We are making the recipe: %s
Here is the description: %s
Here are the ingredients we already have: %s
Write a list of the entire list of ingredients that we need
Write each ingredient followed by a "%s"
Example: 1/2 teaspoon salt%s
Write the entire list as a single line
WRITE ONLY THE LIST OF INGREDIENTS DO NOT WRITE A PROLOGUE; JUST WRITE THE CONTENT`,
		persona, recipe.Name, recipe.Intro, ingredientsOnHand, LineBreak, LineBreak)
}

func introPrompt(recipe models.RecipeCandidate) string {
	return fmt.Sprintf(`%s
We are making the recipe: %s
Here is the description: %s
Write a 3 to 5 sentence paragraph introducing the recipe
Write about topics like the origin of the recipe, the flavor profile, and best occasions for this recipe.
WRITE ONLY THE PARAGRAPH DO NOT WRITE A PROLOGUE; JUST WRITE THE CONTENT`,
		persona, recipe.Name, recipe.Intro)
}

func ingredientNotesPrompt(ingredientsOnHand string) string {
	return fmt.Sprintf(`%s
You are writing about the nutritional information about food
Here are some ingredients we are working with: %s
Write each ingredient followed by a "%s"
Then write a short sentence about the ingredient focusing on nutritional information followed by two "%s"
Write your entire output as a single line
WRITE ONLY THE LIST OF INGREDIENTS DO NOT WRITE A PROLOGUE; JUST WRITE THE CONTENT

EXAMPLE:
Bell peppers%sBell peppers are high in vitamin C and add color, flavor, and texture to any dish.%s%s`,
		persona, ingredientsOnHand, LineBreak, LineBreak, LineBreak, LineBreak, LineBreak)
}

func stepsPrompt(recipe models.RecipeCandidate, ingredients, prepTime string) string {
	return fmt.Sprintf(`%s
You are writing out the steps for the recipe: %s
Here is the description of the recipe: %s
Our target prep time is %s minutes
Write each step starting with a number like "1."
End each step with "%s%s"
Write your entire output as a single line
WRITE ONLY THE RECIPE STEPS DO NOT WRITE A PROLOGUE; JUST WRITE THE CONTENT
Here are the ingredients:

<INGREDIENTS>
%s
<END INGREDIENTS>`,
		persona, recipe.Name, recipe.Intro, prepTime, LineBreak, LineBreak, ingredients)
}

func sidesPrompt(recipe models.RecipeCandidate) string {
	return fmt.Sprintf(`%s
I am making this recipe as my main dish: %s
Here is the description of the recipe: %s
Write a list of only 3 suggested side dishes to go with this recipe
Separate each suggestion with a comma
Example: French Fries, Cole Slaw, Baked Beans
WRITE ONLY THE SIDE DISHES DO NOT WRITE A PROLOGUE; JUST WRITE THE CONTENT`,
		persona, recipe.Name, recipe.Intro)
}
