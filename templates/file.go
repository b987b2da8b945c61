package templates

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/hazyhaar/adcheck/extract"
)

// File is the YAML layout of a templates file:
//
//	templates:
//	  - template_id: url_allstar_example_com
//	    platform: dealer.com
//	    extraction_order: [vehicle_heading, price_section]
//	    selectors:
//	      vehicle_heading: [".vdp-title h1", "h1"]
//	      price_section: [".pricing-module"]
//	    cleanup_rules:
//	      remove_selectors: [nav, script, style]
//	      keep_only_main_content: true
type File struct {
	Templates []*extract.Template `yaml:"templates"`
}

// LoadFile reads and validates a templates YAML file.
func LoadFile(path string) ([]*extract.Template, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("templates: read %s: %w", path, err)
	}
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("templates: parse %s: %w", path, err)
	}
	for _, t := range f.Templates {
		if err := t.Validate(); err != nil {
			return nil, fmt.Errorf("templates: %s: %w", path, err)
		}
	}
	return f.Templates, nil
}

// LoadSelectors reads a bare selector map for CreateURLOverride:
//
//	vehicle_heading: [".vdp-title h1", "h1"]
//	price_section: [".pricing-module"]
func LoadSelectors(path string) (map[string][]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("templates: read %s: %w", path, err)
	}
	var sels map[string][]string
	if err := yaml.Unmarshal(data, &sels); err != nil {
		return nil, fmt.Errorf("templates: parse %s: %w", path, err)
	}
	if len(sels) == 0 {
		return nil, fmt.Errorf("templates: %s: no selectors", path)
	}
	return sels, nil
}
