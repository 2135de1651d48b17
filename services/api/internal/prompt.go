package internal

import (
	"fmt"
	"strings"
)

const (
	defaultLanguage       = "js"
	defaultCodegenPrompt  = "Enhance this code with best practices and optimizations"
	defaultAnalysisPrompt = "Analyze this code and provide recommendations"
)

// GenerateRequest is the body of POST /generate-code.
type GenerateRequest struct {
	Language string `json:"language"`
	HTMLCode string `json:"htmlCode"`
	CSSCode  string `json:"cssCode"`
	JSCode   string `json:"jsCode"`
	Prompt   string `json:"prompt"`
}

func (r *GenerateRequest) applyDefaults() {
	if r.Language == "" {
		r.Language = defaultLanguage
	}
	if r.Prompt == "" {
		r.Prompt = defaultCodegenPrompt
	}
}

// AnalyzeRequest is the body of POST /analyze-text.
type AnalyzeRequest struct {
	Prompt string `json:"prompt"`
}

func (r *AnalyzeRequest) applyDefaults() {
	if r.Prompt == "" {
		r.Prompt = defaultAnalysisPrompt
	}
}

// buildPrompt renders the enhancement instructions for one language,
// carrying all three snippets so the model sees the whole page.
func buildPrompt(r GenerateRequest) string {
	lang := strings.ToUpper(r.Language)

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Enhance this %s code. No external images and no external links.\n", lang))
	sb.WriteString("Everything should be in one worker code. Create your own SVGs and provide the full code.\n\n")
	sb.WriteString(fmt.Sprintf("Current HTML: %s\n", r.HTMLCode))
	sb.WriteString(fmt.Sprintf("Current CSS: %s\n", r.CSSCode))
	sb.WriteString(fmt.Sprintf("Current JS: %s\n\n", r.JSCode))
	sb.WriteString(fmt.Sprintf("User instructions: %s\n\n", r.Prompt))
	sb.WriteString(fmt.Sprintf("Please improve the %s code specifically.\n", lang))
	sb.WriteString("Only return the improved code without explanations or markdown formatting.\n")
	return sb.String()
}
