// Package rules supplies jurisdiction rule sets and page-type context for
// compliance analysis. Built-in sample rule sets cover CA, TX, NY and OK;
// more states, or replacements, load from YAML.
package rules

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// Jurisdiction is the rule set of one state.
type Jurisdiction struct {
	Code                string   `json:"code" yaml:"code"`
	State               string   `json:"state" yaml:"state"`
	RequiredDisclosures []string `json:"required_disclosures" yaml:"required_disclosures"`
	PricingRules        []string `json:"pricing_rules" yaml:"pricing_rules"`
	FinancingRules      []string `json:"financing_rules" yaml:"financing_rules"`
}

// Empty reports whether the jurisdiction carries no rules at all.
func (j Jurisdiction) Empty() bool {
	return len(j.RequiredDisclosures)+len(j.PricingRules)+len(j.FinancingRules) == 0
}

// ErrUnknownState is returned for state codes with no rule set.
var ErrUnknownState = errors.New("rules: unknown state")

// Provider looks up jurisdiction rules by state code. It is safe for
// concurrent use.
type Provider struct {
	mu     sync.RWMutex
	states map[string]Jurisdiction
}

// NewProvider returns a Provider preloaded with the built-in rule sets.
func NewProvider() *Provider {
	p := &Provider{states: make(map[string]Jurisdiction)}
	for _, j := range builtin() {
		p.states[j.Code] = j
	}
	return p
}

// Rules returns the rule set for stateCode ("ok" and "OK" are equivalent).
func (p *Provider) Rules(stateCode string) (Jurisdiction, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	j, ok := p.states[strings.ToUpper(strings.TrimSpace(stateCode))]
	if !ok {
		return Jurisdiction{}, fmt.Errorf("%w: %q", ErrUnknownState, stateCode)
	}
	return j, nil
}

// States returns the known state codes, sorted.
func (p *Provider) States() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]string, 0, len(p.states))
	for k := range p.states {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Set adds or replaces a rule set.
func (p *Provider) Set(j Jurisdiction) error {
	j.Code = strings.ToUpper(strings.TrimSpace(j.Code))
	if j.Code == "" {
		return fmt.Errorf("rules: jurisdiction without code")
	}
	if j.State == "" {
		j.State = j.Code
	}
	if j.Empty() {
		return fmt.Errorf("rules: %s has no rules", j.Code)
	}
	p.mu.Lock()
	p.states[j.Code] = j
	p.mu.Unlock()
	return nil
}

// LoadFile merges rule sets from a YAML file of the form
//
//	jurisdictions:
//	  - code: AZ
//	    state: Arizona
//	    required_disclosures: [...]
//	    pricing_rules: [...]
//	    financing_rules: [...]
func (p *Provider) LoadFile(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("rules: read %s: %w", path, err)
	}
	var f struct {
		Jurisdictions []Jurisdiction `yaml:"jurisdictions"`
	}
	if err := yaml.Unmarshal(data, &f); err != nil {
		return 0, fmt.Errorf("rules: parse %s: %w", path, err)
	}
	for _, j := range f.Jurisdictions {
		if err := p.Set(j); err != nil {
			return 0, fmt.Errorf("rules: %s: %w", path, err)
		}
	}
	return len(f.Jurisdictions), nil
}

// Markdown renders the rule set as the prompt section for the text model.
func (j Jurisdiction) Markdown() string {
	var b strings.Builder
	fmt.Fprintf(&b, "# State-Specific Requirements for %s\n\n", j.State)
	writeList(&b, "Required Disclosures", j.RequiredDisclosures)
	writeList(&b, "Pricing Rules", j.PricingRules)
	writeList(&b, "Financing Rules", j.FinancingRules)
	return b.String()
}

func writeList(b *strings.Builder, title string, items []string) {
	fmt.Fprintf(b, "## %s\n", title)
	for _, it := range items {
		fmt.Fprintf(b, "- %s\n", it)
	}
	b.WriteByte('\n')
}
