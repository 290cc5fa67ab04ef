package insight

import "github.com/KaramelBytes/ainsight/internal/ai"

const probeMessage = "Test message to validate the token."

const summaryPrompt = "Analyze the following dataset summary for trends, patterns, outliers, and actionable insights:\n"

const analystSystem = "You are a helpful data analysis assistant. Please focus on ensuring that your output is well-structured and easy to read. Avoid unnecessary breaks or word concatenation. Provide insights in a clear and professional manner."

const analystPrompt = `You are AInsightBuddy, a data analyst specializing in uncovering trends and actionable insights.
Analyze the following dataset and provide:
- Trends
- Outliers
- Patterns
- Recommended visualizations and their purposes

Please focus on ensuring that your output is well-structured and easy to read. Avoid unnecessary breaks or word concatenation. Provide insights in a clear and professional manner.

Dataset:
`

func probeRequest(model string) ai.GenerateRequest {
	return ai.GenerateRequest{
		Model:     model,
		Messages:  []ai.Message{{Role: "system", Content: probeMessage}},
		MaxTokens: 1,
	}
}

// summaryRequest leaves temperature unset so the endpoint default applies.
func summaryRequest(model, summary string) ai.GenerateRequest {
	return ai.GenerateRequest{
		Model:    model,
		Messages: []ai.Message{{Role: "user", Content: summaryPrompt + summary}},
	}
}

func dataRequest(model string, temperature float64, csv string) ai.GenerateRequest {
	return ai.GenerateRequest{
		Model: model,
		Messages: []ai.Message{
			{Role: "system", Content: analystSystem},
			{Role: "user", Content: analystPrompt + csv},
		},
		Temperature: &temperature,
	}
}
