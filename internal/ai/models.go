package ai

import "sort"

// Model metadata and simple pricing helpers used for usage logging.
// Prices are illustrative and should be verified against provider pricing.

type ModelInfo struct {
	Name          string
	ContextTokens int     // approximate context window
	InputPerK     float64 // USD per 1K input tokens
	OutputPerK    float64 // USD per 1K output tokens
}

var models = map[string]ModelInfo{
	"gpt-4o-mini": {
		Name:          "gpt-4o-mini",
		ContextTokens: 128000,
		InputPerK:     0.00015,
		OutputPerK:    0.0006,
	},
	"gpt-4o": {
		Name:          "gpt-4o",
		ContextTokens: 128000,
		InputPerK:     0.0025,
		OutputPerK:    0.01,
	},
	"gpt-4.1-mini": {
		Name:          "gpt-4.1-mini",
		ContextTokens: 1000000,
		InputPerK:     0.0004,
		OutputPerK:    0.0016,
	},
	"gpt-4.1": {
		Name:          "gpt-4.1",
		ContextTokens: 1000000,
		InputPerK:     0.002,
		OutputPerK:    0.008,
	},
	"gpt-3.5-turbo": {
		Name:          "gpt-3.5-turbo",
		ContextTokens: 16385,
		InputPerK:     0.0005,
		OutputPerK:    0.0015,
	},
}

// LookupModel returns ModelInfo and ok flag.
func LookupModel(name string) (ModelInfo, bool) {
	mi, ok := models[name]
	return mi, ok
}

// EstimateCostUSD estimates total cost in USD for given tokens using model pricing.
// If the model is unknown, returns 0 and ok=false.
func EstimateCostUSD(model string, promptTokens, completionTokens int) (float64, bool) {
	mi, ok := LookupModel(model)
	if !ok {
		return 0, false
	}
	inCost := (float64(promptTokens) / 1000.0) * mi.InputPerK
	outCost := (float64(completionTokens) / 1000.0) * mi.OutputPerK
	return inCost + outCost, true
}

// ModelNames returns the known model names in sorted order.
func ModelNames() []string {
	out := make([]string, 0, len(models))
	for k := range models {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
