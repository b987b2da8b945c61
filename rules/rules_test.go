package rules

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestBuiltinStates(t *testing.T) {
	p := NewProvider()
	got := strings.Join(p.States(), ",")
	if got != "CA,NY,OK,TX" {
		t.Errorf("States: got %s", got)
	}

	ok, err := p.Rules("ok")
	if err != nil {
		t.Fatalf("Rules(ok): %v", err)
	}
	if ok.State != "Oklahoma" || len(ok.PricingRules) == 0 {
		t.Errorf("OK rules: %+v", ok)
	}

	if _, err := p.Rules("ZZ"); !errors.Is(err, ErrUnknownState) {
		t.Errorf("Rules(ZZ): got %v, want ErrUnknownState", err)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	os.WriteFile(path, []byte(`
jurisdictions:
  - code: az
    state: Arizona
    required_disclosures: ["Dealer license number"]
    pricing_rules: ["Doc fee disclosed"]
  - code: CA
    state: California
    pricing_rules: ["Replaced rule"]
`), 0o644)

	p := NewProvider()
	n, err := p.LoadFile(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if n != 2 {
		t.Errorf("loaded %d, want 2", n)
	}
	az, err := p.Rules("AZ")
	if err != nil || az.RequiredDisclosures[0] != "Dealer license number" {
		t.Errorf("AZ: %+v %v", az, err)
	}
	ca, _ := p.Rules("CA")
	if len(ca.PricingRules) != 1 || len(ca.RequiredDisclosures) != 0 {
		t.Errorf("CA should be replaced wholesale: %+v", ca)
	}
}

func TestSetRejectsEmpty(t *testing.T) {
	p := NewProvider()
	if err := p.Set(Jurisdiction{Code: "XX"}); err == nil {
		t.Error("empty rule set accepted")
	}
	if err := p.Set(Jurisdiction{PricingRules: []string{"x"}}); err == nil {
		t.Error("missing code accepted")
	}
}

func TestMarkdown(t *testing.T) {
	j := Jurisdiction{Code: "TX", State: "Texas", PricingRules: []string{"Doc fee"}}
	md := j.Markdown()
	for _, want := range []string{"# State-Specific Requirements for Texas", "## Pricing Rules\n- Doc fee\n", "## Financing Rules\n"} {
		if !strings.Contains(md, want) {
			t.Errorf("markdown missing %q:\n%s", want, md)
		}
	}
}

func TestPreambleFallsBackToVDP(t *testing.T) {
	if Preamble("blog") != Preamble(PageVDP) {
		t.Error("unknown page type should use the VDP preamble")
	}
	if Preamble("homepage") == Preamble(PageVDP) {
		t.Error("homepage should have its own preamble")
	}
	if PageTypeName("financing") != "Financing Page" {
		t.Errorf("name: %s", PageTypeName("financing"))
	}
	if PageTypeName("BLOG") != "BLOG" {
		t.Errorf("unknown name: %s", PageTypeName("BLOG"))
	}
	if !KnownPageType(" vdp ") || KnownPageType("blog") {
		t.Error("KnownPageType wrong")
	}
}
