package extract

import (
	"errors"
	"strconv"
	"strings"
	"testing"
	"unicode/utf8"
)

const vdpPage = `<!DOCTYPE html>
<html>
<head><title>2022 Silverado 1500 | Allstar Motors</title></head>
<body>
  <nav class="main-menu"><a href="/">Home</a> <a href="/new">New Inventory</a></nav>
  <main>
    <h1>Allstar Motors</h1>
    <div class="vehicle-title"><h1>2022 Chevrolet Silverado 1500</h1></div>
    <span class="stock-number">Stock # A1234</span>
    <div class="pricing-module">
      <span class="price">$41,995</span>
      <p>Internet Price</p>
    </div>
    <div class="vehicle-description">  Clean   Carfax.&nbsp;One owner. </div>
    <div class="legal-disclaimers"><p>Price excludes tax, title, license and a $150 doc fee.</p></div>
    <script>var tracking = 1;</script>
  </main>
  <footer class="site-footer">Call us 555-0100</footer>
</body>
</html>`

func vdpTemplate(t *testing.T) *Template {
	t.Helper()
	for _, tpl := range Defaults() {
		if tpl.ID == "vdp_default" {
			return tpl
		}
	}
	t.Fatal("vdp_default missing from defaults")
	return nil
}

func TestExtractFirstSelectorWins(t *testing.T) {
	c, err := Extract([]byte(vdpPage), vdpTemplate(t))
	if err != nil {
		t.Fatalf("extract: %v", err)
	}

	heading, ok := c.Get("vehicle_heading")
	if !ok {
		t.Fatal("vehicle_heading not extracted")
	}
	// ".vehicle-title h1" precedes the bare "h1" selector.
	if heading != "2022 Chevrolet Silverado 1500" {
		t.Errorf("vehicle_heading: got %q", heading)
	}

	stock, _ := c.Get("stock_number")
	if stock != "Stock # A1234" {
		t.Errorf("stock_number: got %q", stock)
	}

	price, _ := c.Get("price_section")
	if price != "$41,995\nInternet Price" {
		t.Errorf("price_section: got %q", price)
	}

	desc, _ := c.Get("description")
	if desc != "Clean Carfax. One owner." {
		t.Errorf("description: got %q", desc)
	}
}

func TestExtractOrderAndMissingSections(t *testing.T) {
	c, err := Extract([]byte(vdpPage), vdpTemplate(t))
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	var names []string
	for _, s := range c.Sections {
		names = append(names, s.Name)
	}
	want := "vehicle_heading,stock_number,price_section,description,disclaimers"
	if got := strings.Join(names, ","); got != want {
		t.Errorf("sections: got %s, want %s", got, want)
	}
	if _, ok := c.Get("vin"); ok {
		t.Error("vin should be absent: no selector matches")
	}
}

func TestExtractRemoveDuplicateText(t *testing.T) {
	page := `<html><body><div class="a">Same text</div><div class="b">Same text</div><div class="c">Other</div></body></html>`
	tpl := &Template{
		ID:           "dup",
		SectionOrder: []string{"first", "second", "third"},
		Selectors: map[string][]string{
			"first":  {".a"},
			"second": {".b"},
			"third":  {".c"},
		},
	}

	c, _ := Extract([]byte(page), tpl)
	if len(c.Sections) != 3 {
		t.Fatalf("without dedup: got %d sections, want 3", len(c.Sections))
	}

	tpl.Cleanup.RemoveDuplicateText = true
	c, _ = Extract([]byte(page), tpl)
	if len(c.Sections) != 2 {
		t.Fatalf("with dedup: got %d sections, want 2", len(c.Sections))
	}
	if c.Sections[1].Name != "third" {
		t.Errorf("second kept section: got %s, want third", c.Sections[1].Name)
	}
}

func TestExtractNoMatch(t *testing.T) {
	c, err := Extract([]byte(`<html><body><p>nothing useful</p></body></html>`), vdpTemplate(t))
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if !c.Empty() {
		t.Errorf("expected empty content, got %+v", c.Sections)
	}
}

func TestContentMarkdown(t *testing.T) {
	c := &Content{Sections: []Section{
		{Name: "vehicle_heading", Text: "2022 Silverado"},
		{Name: "price_section", Text: "$41,995"},
	}}
	want := "# Vehicle Detail Page Content\n\n## Vehicle Heading\n2022 Silverado\n\n## Price Section\n$41,995\n\n"
	if got := c.Markdown(); got != want {
		t.Errorf("Markdown:\ngot  %q\nwant %q", got, want)
	}
}

func TestCleanHTMLMainContentOnly(t *testing.T) {
	out, err := CleanHTML([]byte(vdpPage), vdpTemplate(t))
	if err != nil {
		t.Fatalf("clean: %v", err)
	}
	if strings.Contains(out, "New Inventory") {
		t.Error("nav should be removed")
	}
	if strings.Contains(out, "555-0100") {
		t.Error("footer outside main should be dropped")
	}
	if strings.Contains(out, "tracking") {
		t.Error("script should be removed")
	}
	if !strings.Contains(out, "$41,995") {
		t.Error("main content lost")
	}
	if strings.Contains(out, "<main>") {
		t.Error("expected inner html of main, not the element itself")
	}
}

func TestCleanHTMLKeepsFullPage(t *testing.T) {
	var home *Template
	for _, tpl := range Defaults() {
		if tpl.ID == "homepage_default" {
			home = tpl
		}
	}
	out, err := CleanHTML([]byte(vdpPage), home)
	if err != nil {
		t.Fatalf("clean: %v", err)
	}
	if !strings.Contains(out, "555-0100") {
		t.Error("homepage cleanup must keep the footer")
	}
	if strings.Contains(out, "tracking") {
		t.Error("script should be removed")
	}
}

func TestCleanText(t *testing.T) {
	cases := map[string]string{
		"  hello   world  ":      "hello world",
		"zero\u200bwidth":        "zerowidth",
		"non\u00a0breaking":      "non breaking",
		"tabs\tand\nnewlines\n": "tabs and newlines",
	}
	for in, want := range cases {
		if got := CleanText(in); got != want {
			t.Errorf("CleanText(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSectionTitle(t *testing.T) {
	if got := SectionTitle("price_section"); got != "Price Section" {
		t.Errorf("got %q", got)
	}
	if got := SectionTitle("vin"); got != "Vin" {
		t.Errorf("got %q", got)
	}
}

func TestDefaultsValidate(t *testing.T) {
	ids := map[string]bool{}
	for _, tpl := range Defaults() {
		if err := tpl.Validate(); err != nil {
			t.Errorf("%s: %v", tpl.ID, err)
		}
		ids[tpl.ID] = true
	}
	for _, id := range []string{
		"vdp_default", "dealer.com_vdp", "homepage_default", "inventory_default",
		"specials_default", "service_default", "financing_default", GenericFallbackID,
	} {
		if !ids[id] {
			t.Errorf("default %s missing", id)
		}
	}
}

func TestValidateRejects(t *testing.T) {
	cases := []struct {
		name string
		tpl  *Template
	}{
		{"nil", nil},
		{"no id", &Template{SectionOrder: []string{"a"}, Selectors: map[string][]string{"a": {"h1"}}}},
		{"no order", &Template{ID: "x"}},
		{"no selectors", &Template{ID: "x", SectionOrder: []string{"a"}}},
		{"bad selector", &Template{ID: "x", SectionOrder: []string{"a"}, Selectors: map[string][]string{"a": {"div[["}}}},
		{"bad remove", &Template{ID: "x", SectionOrder: []string{"a"}, Selectors: map[string][]string{"a": {"h1"}},
			Cleanup: Cleanup{RemoveSelectors: []string{">>>"}}}},
	}
	for _, c := range cases {
		if err := c.tpl.Validate(); !errors.Is(err, ErrInvalidTemplate) {
			t.Errorf("%s: got %v, want ErrInvalidTemplate", c.name, err)
		}
	}
}

func TestCloneIsDeep(t *testing.T) {
	orig := vdpTemplate(t)
	c := orig.Clone()
	c.Selectors["vin"][0] = "changed"
	c.SectionOrder[0] = "changed"
	if orig.Selectors["vin"][0] == "changed" || orig.SectionOrder[0] == "changed" {
		t.Error("Clone shares state with original")
	}
}

func TestKeywordWindowLineCap(t *testing.T) {
	lines := []string{"intro", "The price is great"}
	for i := 1; i <= 30; i++ {
		lines = append(lines, "filler "+strconv.Itoa(i))
	}
	got := keywordWindow(strings.Join(lines, "\n"), PricingKeywords)
	if !strings.HasPrefix(got, "The price is great") {
		t.Errorf("window should start at the keyword line: %q", got)
	}
	if !strings.HasSuffix(got, "filler 20") {
		t.Error("window should include 20 lines after the hit")
	}
	if strings.Contains(got, "filler 21") {
		t.Error("window should close after 21 lines")
	}
}

func TestKeywordWindowHeaderStop(t *testing.T) {
	md := strings.Join([]string{"price here", "l1", "l2", "l3", "l4", "l5", "# Next Header", "after"}, "\n")
	got := keywordWindow(md, PricingKeywords)
	if !strings.HasSuffix(got, "# Next Header") {
		t.Errorf("window should end at header: %q", got)
	}
}

func TestPrepareForLLMLimits(t *testing.T) {
	meta := PageMeta{URL: "https://example.com", Title: "ABC Motors"}
	w := Windows{Pricing: "Price: $28,999", Disclaimers: "Plus taxes", Contact: "ignored in priority list"}

	short := PrepareForLLM(meta, w, "short body", MaxLLMInput)
	if !strings.HasPrefix(short, "# Website Analysis\nURL: https://example.com\nTitle: ABC Motors\nPlatform: unknown") {
		t.Errorf("header: %q", short)
	}
	pi := strings.Index(short, "## Pricing")
	di := strings.Index(short, "## Disclaimers")
	if pi < 0 || di < 0 || pi > di {
		t.Errorf("pricing must precede disclaimers: %q", short)
	}
	if !strings.Contains(short, "## Full Page Content\nshort body") {
		t.Error("full content missing")
	}

	long := PrepareForLLM(meta, w, strings.Repeat("x", 40000), MaxLLMInput)
	if n := utf8.RuneCountInString(long); n != MaxLLMInput {
		t.Errorf("length: got %d, want %d", n, MaxLLMInput)
	}

	crowded := PrepareForLLM(meta, Windows{Pricing: strings.Repeat("p", 14500)}, "body", MaxLLMInput)
	if strings.Contains(crowded, "## Full Page Content") {
		t.Error("full content must be skipped when 1000 or fewer characters remain")
	}
}

func TestConverterFallback(t *testing.T) {
	page := `<html><body>
	<h1>Welcome to ABC Motors</h1>
	<div class="pricing"><h2>2024 Toyota Camry</h2><p>Price: $28,999</p><p>Plus taxes and fees</p></div>
	<div class="disclaimer"><p>All prices subject to change. See dealer for details.</p></div>
	<script>alert(1)</script>
	</body></html>`

	out, err := NewConverter().Fallback(page, PageMeta{URL: "https://abc.example", Title: "ABC Motors"})
	if err != nil {
		t.Fatalf("fallback: %v", err)
	}
	if !strings.Contains(out, "## Pricing") {
		t.Errorf("pricing window missing:\n%s", out)
	}
	if !strings.Contains(out, "28,999") {
		t.Errorf("price text lost:\n%s", out)
	}
	if strings.Contains(out, "alert(1)") {
		t.Error("script content leaked into markdown")
	}
}

func TestMetadata(t *testing.T) {
	page := []byte(`<html><head><title>2022 Silverado | Allstar Motors</title></head><body><article><p>` +
		strings.Repeat("A clean one owner truck with low miles and a full service history. ", 20) +
		`</p></article></body></html>`)
	meta := Metadata(page, "https://www.allstar.example/used/1")
	if meta.URL != "https://www.allstar.example/used/1" {
		t.Errorf("url: %q", meta.URL)
	}
	if meta.Title == "" {
		t.Error("title not extracted")
	}
}
