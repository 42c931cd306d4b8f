package cmd

import (
	"os"

	"github.com/spf13/viper"

	"github.com/joescharf/curate/internal/llm"
)

// newLLMClient returns the description assessor, or nil when no API key is
// configured in anthropic.api_key or ANTHROPIC_API_KEY.
func newLLMClient() *llm.Client {
	apiKey := viper.GetString("anthropic.api_key")
	if apiKey == "" {
		apiKey = os.Getenv("ANTHROPIC_API_KEY")
	}
	if apiKey == "" {
		ui.VerboseLog("No Anthropic API key; description check uses heuristics only")
		return nil
	}
	model := viper.GetString("anthropic.model")
	if model == "" {
		model = llm.DefaultModel
	}
	ui.VerboseLog("Assessing descriptions with %s", model)
	return llm.NewClient(apiKey, model)
}
