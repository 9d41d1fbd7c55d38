package config

// Supported completion providers
const (
	ProviderFireworks = "fireworks"
	ProviderTogether  = "together"
	ProviderGroq      = "groq"
)

// Preset holds the defaults of an OpenAI-compatible provider
type Preset struct {
	BaseURL   string
	Model     string
	FastModel string
	// KeyEnv is the provider-specific API key variable
	KeyEnv string
	// StripNullToolCalls removes `"tool_calls":null` from streamed chunks
	StripNullToolCalls bool
}

// Presets maps provider names to their defaults
var Presets = map[string]Preset{
	ProviderFireworks: {
		BaseURL:   "https://api.fireworks.ai/inference/v1",
		Model:     "accounts/fireworks/models/llama-v3-70b-instruct",
		FastModel: "accounts/fireworks/models/llama-v3-8b-instruct",
		KeyEnv:    "FIREWORKS_KEY",
	},
	ProviderTogether: {
		BaseURL:            "https://api.together.xyz/v1",
		Model:              "meta-llama/Llama-3-70b-chat-hf",
		FastModel:          "meta-llama/Llama-3-8b-chat-hf",
		KeyEnv:             "TOGETHER_KEY",
		StripNullToolCalls: true,
	},
	ProviderGroq: {
		BaseURL:   "https://api.groq.com/openai/v1",
		Model:     "llama3-70b-8192",
		FastModel: "llama3-8b-8192",
		KeyEnv:    "GROQ_KEY",
	},
}
