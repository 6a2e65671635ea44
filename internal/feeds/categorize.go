package feeds

import "strings"

// Category names. The declaration order in Categories is the tie-break
// for equal keyword scores, so it must stay stable.
const (
	CategoryVulnerabilities = "Vulnerabilities"
	CategoryBreaches        = "Breaches"
	CategoryThreatIntel     = "Threat Intelligence"
	CategoryCompliance      = "Compliance"
	CategoryCloudSecurity   = "Cloud Security"
	CategoryPrivacy         = "Privacy"
	CategoryIdentityAccess  = "Identity & Access"
)

// FallbackCategory is assigned when no keyword matches at all.
const FallbackCategory = CategoryThreatIntel

// CategoryRule pairs a category with its keyword list.
type CategoryRule struct {
	Name     string
	Keywords []string
}

// Categories is the fixed, ordered classification scheme. First-declared
// wins on score ties.
var Categories = []CategoryRule{
	{CategoryVulnerabilities, []string{"vulnerability", "exploit", "CVE", "patch", "security flaw", "zero-day"}},
	{CategoryBreaches, []string{"breach", "leak", "hack", "stolen", "exposed", "compromised"}},
	{CategoryThreatIntel, []string{"malware", "ransomware", "phishing", "APT", "threat actor", "campaign"}},
	{CategoryCompliance, []string{"GDPR", "compliance", "regulation", "standard", "framework", "audit"}},
	{CategoryCloudSecurity, []string{"cloud", "AWS", "Azure", "GCP", "container", "kubernetes"}},
	{CategoryPrivacy, []string{"privacy", "data protection", "encryption", "PII", "personal data"}},
	{CategoryIdentityAccess, []string{"authentication", "authorization", "IAM", "identity", "access control", "SSO"}},
}

// Categorize assigns exactly one category to a title+summary pair using
// weighted keyword scoring: title matches count double. Deterministic for
// a given input.
func Categorize(title, summary string) string {
	titleLower := strings.ToLower(title)
	summaryLower := strings.ToLower(summary)

	best := ""
	bestScore := 0
	for _, rule := range Categories {
		score := 0
		for _, kw := range rule.Keywords {
			kwLower := strings.ToLower(kw)
			if strings.Contains(titleLower, kwLower) {
				score += 2
			}
			if strings.Contains(summaryLower, kwLower) {
				score++
			}
		}
		// Strictly greater: earlier-declared categories win ties.
		if score > bestScore {
			best = rule.Name
			bestScore = score
		}
	}

	if bestScore == 0 {
		return FallbackCategory
	}
	return best
}

// DefaultCriticalKeywords flag titles the presentation layer should
// highlight as urgent.
var DefaultCriticalKeywords = []string{
	"zero-day", "critical", "urgent", "emergency", "actively exploited",
}

// IsCritical reports whether the title contains any of the given critical
// keywords, case-insensitively. An empty keyword list uses the defaults.
func IsCritical(title string, keywords []string) bool {
	if len(keywords) == 0 {
		keywords = DefaultCriticalKeywords
	}
	titleLower := strings.ToLower(title)
	for _, kw := range keywords {
		if strings.Contains(titleLower, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}
