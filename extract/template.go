// Package extract turns rendered dealership pages into LLM-ready text.
//
// A Template names the page sections to pull (vehicle heading, pricing,
// disclaimers...) and, for each one, an ordered list of CSS selectors; the
// first selector that matches wins. When a template yields nothing the
// package falls back to a sanitised markdown rendition of the cleaned page
// with keyword-driven section windows.
package extract

import (
	"errors"
	"fmt"
	"sort"

	"github.com/andybalholm/cascadia"
)

// Template is a typed extraction template. Values returned by a registry
// are copies; mutating one does not affect the stored template.
type Template struct {
	ID           string              `json:"template_id" yaml:"template_id"`
	Platform     string              `json:"platform" yaml:"platform"`
	SectionOrder []string            `json:"extraction_order" yaml:"extraction_order"`
	Selectors    map[string][]string `json:"selectors" yaml:"selectors"`
	Cleanup      Cleanup             `json:"cleanup_rules" yaml:"cleanup_rules"`
}

// Cleanup controls how the page is reduced before fallback conversion.
type Cleanup struct {
	RemoveSelectors     []string `json:"remove_selectors,omitempty" yaml:"remove_selectors"`
	MainContentOnly     bool     `json:"keep_only_main_content,omitempty" yaml:"keep_only_main_content"`
	RemoveDuplicateText bool     `json:"remove_duplicate_text,omitempty" yaml:"remove_duplicate_text"`
}

// MainContentSelectors are tried in order when Cleanup.MainContentOnly is set.
var MainContentSelectors = []string{"main", ".main-content", "#main", ".vehicle-details", ".vdp-container"}

// ErrInvalidTemplate is wrapped by every Validate failure.
var ErrInvalidTemplate = errors.New("extract: invalid template")

// Validate checks the template is usable: it has an ID, every ordered
// section has at least one selector, and every selector compiles.
func (t *Template) Validate() error {
	if t == nil {
		return fmt.Errorf("%w: nil", ErrInvalidTemplate)
	}
	if t.ID == "" {
		return fmt.Errorf("%w: empty template_id", ErrInvalidTemplate)
	}
	if len(t.SectionOrder) == 0 {
		return fmt.Errorf("%w: %s: empty extraction_order", ErrInvalidTemplate, t.ID)
	}
	seen := make(map[string]bool, len(t.SectionOrder))
	for _, name := range t.SectionOrder {
		if seen[name] {
			return fmt.Errorf("%w: %s: section %q listed twice", ErrInvalidTemplate, t.ID, name)
		}
		seen[name] = true
		sels := t.Selectors[name]
		if len(sels) == 0 {
			return fmt.Errorf("%w: %s: section %q has no selectors", ErrInvalidTemplate, t.ID, name)
		}
		for _, s := range sels {
			if _, err := cascadia.Compile(s); err != nil {
				return fmt.Errorf("%w: %s: section %q selector %q: %v", ErrInvalidTemplate, t.ID, name, s, err)
			}
		}
	}
	for _, s := range t.Cleanup.RemoveSelectors {
		if _, err := cascadia.Compile(s); err != nil {
			return fmt.Errorf("%w: %s: remove selector %q: %v", ErrInvalidTemplate, t.ID, s, err)
		}
	}
	return nil
}

// Clone returns a deep copy.
func (t *Template) Clone() *Template {
	if t == nil {
		return nil
	}
	c := &Template{
		ID:           t.ID,
		Platform:     t.Platform,
		SectionOrder: append([]string(nil), t.SectionOrder...),
		Selectors:    make(map[string][]string, len(t.Selectors)),
		Cleanup: Cleanup{
			RemoveSelectors:     append([]string(nil), t.Cleanup.RemoveSelectors...),
			MainContentOnly:     t.Cleanup.MainContentOnly,
			RemoveDuplicateText: t.Cleanup.RemoveDuplicateText,
		},
	}
	for k, v := range t.Selectors {
		c.Selectors[k] = append([]string(nil), v...)
	}
	return c
}

// OrderFromSelectors returns the selector keys sorted, for templates built
// from a bare selector map.
func OrderFromSelectors(selectors map[string][]string) []string {
	order := make([]string, 0, len(selectors))
	for k := range selectors {
		order = append(order, k)
	}
	sort.Strings(order)
	return order
}
