// Package policy decides which text-analysis findings escalate to visual
// verification.
package policy

import (
	"strings"

	"github.com/hazyhaar/adcheck/rules"
)

const (
	// EscalationThreshold: a flagged finding below this confidence goes to
	// visual verification.
	EscalationThreshold = 0.85

	// CacheSkipThreshold: a cached decision at or above this confidence
	// replaces a visual call.
	CacheSkipThreshold = 0.85
)

// Homepage contact check, forced when a homepage selects nothing else.
const (
	HomepageContactRuleKey = "homepage_contact_visibility"
	HomepageContactRule    = "Physical address, phone number, and business hours must be conspicuous and easily accessible"
)

// Finding is the part of a text-analysis violation the policy looks at.
type Finding struct {
	RuleKey                 string
	Rule                    string
	Confidence              float64
	NeedsVisualVerification bool
}

// Check is one rule selected for visual verification.
type Check struct {
	RuleKey string
	Rule    string
	// Forced marks checks added by policy rather than selected from findings.
	Forced bool
}

// Select returns the findings to verify visually, in input order. Findings
// are selected when flagged and below EscalationThreshold. A finding without
// a rule key is keyed by its rule text; repeated keys are verified once. A
// homepage with no selection gets the forced contact-visibility check.
func Select(findings []Finding, urlType string) []Check {
	return SelectWithThreshold(findings, urlType, EscalationThreshold)
}

// SelectWithThreshold is Select with a configured escalation threshold.
func SelectWithThreshold(findings []Finding, urlType string, threshold float64) []Check {
	var out []Check
	seen := make(map[string]bool)
	for _, f := range findings {
		if !f.NeedsVisualVerification || f.Confidence >= threshold {
			continue
		}
		key := strings.TrimSpace(f.RuleKey)
		if key == "" {
			key = RuleKey(f.Rule)
		}
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, Check{RuleKey: key, Rule: f.Rule})
	}
	if len(out) == 0 && rules.NormalizePageType(urlType) == rules.PageHomepage {
		out = append(out, Check{RuleKey: HomepageContactRuleKey, Rule: HomepageContactRule, Forced: true})
	}
	return out
}

const maxRuleKey = 64

// RuleKey derives a stable cache key from rule text: lowercase ASCII
// letters and digits joined by underscores.
func RuleKey(rule string) string {
	var b strings.Builder
	sep := false
	for _, r := range strings.ToLower(rule) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			if sep && b.Len() > 0 {
				if b.Len()+2 > maxRuleKey {
					break
				}
				b.WriteByte('_')
			}
			sep = false
			b.WriteRune(r)
			if b.Len() >= maxRuleKey {
				break
			}
			continue
		}
		sep = true
	}
	return b.String()
}
