package brain

import (
	"context"
	"fmt"
	"strings"

	"threatfeed/internal/logging"
)

// RiskLevel is the discrete risk classification extracted from an
// analysis text.
type RiskLevel string

const (
	RiskCritical RiskLevel = "Critical"
	RiskHigh     RiskLevel = "High"
	RiskMedium   RiskLevel = "Medium"
	RiskLow      RiskLevel = "Low"
	RiskUnknown  RiskLevel = "Unknown"
)

// riskPriority is the extraction scan order. A text mentioning both
// "Medium" and "Critical" resolves to Critical.
var riskPriority = []RiskLevel{RiskCritical, RiskHigh, RiskMedium, RiskLow}

// UnavailableMessage is stored as the analysis text whenever the
// collaborator call fails for any reason.
const UnavailableMessage = "AI analysis is currently unavailable. Please try again later."

// Analyzer obtains a free-text risk analysis for a news item from an AI
// provider. Collaborator failures never propagate: the analyzer degrades
// to a fixed unavailability message so one failed enrichment cannot
// abort the pipeline for other items.
type Analyzer struct {
	provider  Provider
	maxTokens int
}

// NewAnalyzer creates an Analyzer over the given provider.
func NewAnalyzer(p Provider, maxTokens int) *Analyzer {
	if maxTokens <= 0 {
		maxTokens = 1024
	}
	return &Analyzer{provider: p, maxTokens: maxTokens}
}

// Analyze requests a structured risk analysis for the given article.
// It always returns usable text; on any provider failure the fixed
// unavailability message is returned instead.
func (a *Analyzer) Analyze(ctx context.Context, title, summary string) string {
	if a.provider == nil || !a.provider.Available() {
		logging.Warn("Enrichment provider not configured")
		return UnavailableMessage
	}

	resp, err := a.provider.Generate(ctx, Request{
		UserPrompt: buildPrompt(title, summary),
		MaxTokens:  a.maxTokens,
	})
	if err != nil {
		logging.Error("Enrichment call failed", "provider", a.provider.Name(), "error", err)
		return UnavailableMessage
	}

	return resp.Content
}

// buildPrompt produces the analysis prompt for a single article.
func buildPrompt(title, summary string) string {
	return fmt.Sprintf(`Analyze this security news and provide:
1. A concise summary of the key points
2. Potential impact assessment
3. Recommended actions for security teams
4. Risk level (Low/Medium/High/Critical)

Title: %s
Summary: %s

Please format the response in a clear, structured way.`, title, summary)
}

// ExtractRiskLevel scans an analysis text for risk-level tokens in
// priority order (Critical, High, Medium, Low) and returns the first one
// found, or Unknown when none is present.
func ExtractRiskLevel(analysis string) RiskLevel {
	lower := strings.ToLower(analysis)
	for _, level := range riskPriority {
		if strings.Contains(lower, strings.ToLower(string(level))) {
			return level
		}
	}
	return RiskUnknown
}
