package feeds

import "testing"

func TestCategorizeVulnerability(t *testing.T) {
	got := Categorize("Critical vulnerability CVE-2024-1234 exploited", "Attackers are exploiting a flaw")
	if got != CategoryVulnerabilities {
		t.Errorf("got %q, want %q", got, CategoryVulnerabilities)
	}
}

func TestCategorizeTitleWeighting(t *testing.T) {
	// "breach" in the title (2 points) should beat "malware" in the
	// summary (1 point).
	got := Categorize("Major breach at retailer", "Investigators suspect malware")
	if got != CategoryBreaches {
		t.Errorf("got %q, want %q", got, CategoryBreaches)
	}
}

func TestCategorizeFallback(t *testing.T) {
	got := Categorize("Quarterly industry roundup", "Nothing notable happened")
	if got != FallbackCategory {
		t.Errorf("got %q, want fallback %q", got, FallbackCategory)
	}
}

func TestCategorizeTieBreakDeclarationOrder(t *testing.T) {
	// One title keyword from Vulnerabilities ("exploit") and one from
	// Breaches ("leak"): equal scores, first-declared category wins.
	got := Categorize("Exploit used in data leak", "")
	if got != CategoryVulnerabilities {
		t.Errorf("got %q, want %q (declaration order tie-break)", got, CategoryVulnerabilities)
	}
}

func TestCategorizeCaseInsensitive(t *testing.T) {
	got := Categorize("RANSOMWARE gang returns", "")
	if got != CategoryThreatIntel {
		t.Errorf("got %q, want %q", got, CategoryThreatIntel)
	}
}

func TestCategorizeDeterministic(t *testing.T) {
	title := "Cloud IAM misconfiguration exposed data"
	summary := "AWS and Azure tenants affected by access control gaps"
	first := Categorize(title, summary)
	for i := 0; i < 10; i++ {
		if got := Categorize(title, summary); got != first {
			t.Fatalf("run %d: got %q, want %q", i, got, first)
		}
	}
}

func TestIsCritical(t *testing.T) {
	tests := []struct {
		title string
		want  bool
	}{
		{"Zero-day actively exploited in the wild", true},
		{"CRITICAL flaw in router firmware", true},
		{"Vendor ships routine maintenance update", false},
	}
	for _, tt := range tests {
		if got := IsCritical(tt.title, nil); got != tt.want {
			t.Errorf("IsCritical(%q) = %v, want %v", tt.title, got, tt.want)
		}
	}
}

func TestIsCriticalCustomKeywords(t *testing.T) {
	if !IsCritical("Supply chain incident reported", []string{"supply chain"}) {
		t.Error("expected custom keyword to match")
	}
	if IsCritical("Zero-day found", []string{"supply chain"}) {
		t.Error("custom keywords should replace defaults")
	}
}
