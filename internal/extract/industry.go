package extract

import "strings"

// DefaultIndustry is used when no keyword rule matches the headline.
const DefaultIndustry = "Professional Services"

// industryRule maps headline keywords to an industry label. Rules are
// checked in order and the first match wins, so more specific keyword sets
// sit above broader ones.
type industryRule struct {
	keywords []string
	label    string
}

var industryRules = []industryRule{
	{[]string{"recruiter", "talent acquisition", "people ops", "human resources"}, "Human Resources"},
	{[]string{"software", "engineer", "developer", "devops", "sre", "architect", "data scientist", "programmer"}, "Technology"},
	{[]string{"marketing", "seo", "growth", "brand", "content strateg"}, "Marketing & Advertising"},
	{[]string{"sales", "account executive", "business development", "revenue"}, "Sales"},
	{[]string{"finance", "accountant", "investment", "banking", "analyst"}, "Financial Services"},
	{[]string{"designer", "ux", "ui", "creative director"}, "Design"},
	{[]string{"founder", "ceo", "entrepreneur", "co-founder"}, "Entrepreneurship"},
	{[]string{"consultant", "advisor", "coach"}, "Consulting"},
	{[]string{"professor", "teacher", "researcher", "phd"}, "Education & Research"},
	{[]string{"nurse", "physician", "doctor", "healthcare"}, "Healthcare"},
	{[]string{"attorney", "lawyer", "legal", "counsel"}, "Legal"},
}

// InferIndustry derives an industry label from a headline when the source
// exposes no explicit industry field. Deterministic keyword matching, not a
// classifier: first rule whose any keyword appears (case-insensitive) wins.
func InferIndustry(headline string) string {
	h := strings.ToLower(headline)
	if strings.TrimSpace(h) == "" {
		return DefaultIndustry
	}
	for _, rule := range industryRules {
		for _, kw := range rule.keywords {
			if strings.Contains(h, kw) {
				return rule.label
			}
		}
	}
	return DefaultIndustry
}
