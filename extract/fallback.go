package extract

import (
	"bytes"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	"github.com/go-shiori/go-readability"
	"github.com/microcosm-cc/bluemonday"
)

// MaxLLMInput caps the fallback document handed to the text model.
const MaxLLMInput = 15000

const (
	windowMaxLines    = 20
	windowHeaderAfter = 5
	minFullContent    = 1000
)

// Keyword groups for the fallback section windows. A line containing any
// keyword (case-insensitive) opens or restarts the window.
var (
	PricingKeywords     = []string{"price", "pricing", "payment", "finance", "lease", "msrp"}
	InventoryKeywords   = []string{"inventory", "vehicle", "stock", "vin"}
	DisclaimerKeywords  = []string{"disclaimer", "disclosure", "terms", "conditions"}
	ContactKeywords     = []string{"contact", "location", "hours", "phone"}
	prioritySectionList = []string{"pricing", "disclaimers", "inventory"}
)

// PageMeta describes the page in the fallback document header.
type PageMeta struct {
	URL      string
	Title    string
	Platform string
	SiteName string
}

// Windows holds the keyword-driven excerpts of a markdown page.
type Windows struct {
	Pricing     string
	Inventory   string
	Disclaimers string
	Contact     string
}

func (w Windows) get(name string) string {
	switch name {
	case "pricing":
		return w.Pricing
	case "inventory":
		return w.Inventory
	case "disclaimers":
		return w.Disclaimers
	case "contact":
		return w.Contact
	}
	return ""
}

// Converter renders cleaned HTML to markdown for the fallback path.
// It is safe for concurrent use.
type Converter struct {
	md     *converter.Converter
	policy *bluemonday.Policy
}

// NewConverter builds the sanitising markdown converter.
func NewConverter() *Converter {
	return &Converter{
		md: converter.NewConverter(
			converter.WithPlugins(
				base.NewBasePlugin(),
				commonmark.NewCommonmarkPlugin(),
				table.NewTablePlugin(),
			),
		),
		policy: bluemonday.UGCPolicy(),
	}
}

// Markdown sanitises the HTML, converts it and strips boilerplate lines.
func (c *Converter) Markdown(cleanHTML, pageURL string) (string, error) {
	safe := c.policy.Sanitize(cleanHTML)
	md, err := c.md.ConvertString(safe, converter.WithDomain(pageURL))
	if err != nil {
		return "", fmt.Errorf("extract: markdown: %w", err)
	}
	return cleanMarkdown(md), nil
}

// Fallback produces the model input when a template extracted nothing.
func (c *Converter) Fallback(cleanHTML string, meta PageMeta) (string, error) {
	md, err := c.Markdown(cleanHTML, meta.URL)
	if err != nil {
		return "", err
	}
	return PrepareForLLM(meta, KeywordWindows(md), md, MaxLLMInput), nil
}

var (
	noisePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)(Skip to|Jump to) (main content|navigation)`),
		regexp.MustCompile(`(?i)Copyright \d{4}.*`),
		regexp.MustCompile(`(?i)All rights reserved`),
		regexp.MustCompile(`(?i)Privacy Policy.*Terms.*`),
		regexp.MustCompile(`!\[[^\]]*\]\([^)]*\)`),
		regexp.MustCompile(`\* \* \*`),
		regexp.MustCompile(`var \w+\s*=.*?;`),
		regexp.MustCompile(`(?s)function.*?\{.*?\}`),
	}
	blankRunRe   = regexp.MustCompile(`\n{3,}`)
	spaceRunRe   = regexp.MustCompile(` +`)
	lineIndentRe = regexp.MustCompile(`\n `)
)

func cleanMarkdown(md string) string {
	md = blankRunRe.ReplaceAllString(md, "\n\n")
	for _, re := range noisePatterns {
		md = re.ReplaceAllString(md, "")
	}
	md = spaceRunRe.ReplaceAllString(md, " ")
	md = lineIndentRe.ReplaceAllString(md, "\n")
	return strings.TrimSpace(md)
}

// KeywordWindows extracts the four keyword sections from markdown.
func KeywordWindows(md string) Windows {
	return Windows{
		Pricing:     keywordWindow(md, PricingKeywords),
		Inventory:   keywordWindow(md, InventoryKeywords),
		Disclaimers: keywordWindow(md, DisclaimerKeywords),
		Contact:     keywordWindow(md, ContactKeywords),
	}
}

// keywordWindow collects lines following each keyword hit. A window closes
// after more than 20 lines, or at a top-level header once more than 5 lines
// have been captured.
func keywordWindow(md string, keywords []string) string {
	var out []string
	in := false
	count := 0
	for _, line := range strings.Split(md, "\n") {
		lower := strings.ToLower(line)
		for _, k := range keywords {
			if strings.Contains(lower, k) {
				in = true
				count = 0
				break
			}
		}
		if !in {
			continue
		}
		out = append(out, line)
		count++
		if count > windowMaxLines || (count > windowHeaderAfter && strings.HasPrefix(line, "# ")) {
			in = false
		}
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}

// PrepareForLLM assembles the fallback document: a header, the priority
// windows (pricing, disclaimers, inventory), then as much of the full page
// as fits when more than 1000 characters remain.
func PrepareForLLM(meta PageMeta, w Windows, full string, max int) string {
	platform := meta.Platform
	if platform == "" {
		platform = "unknown"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "# Website Analysis\nURL: %s\nTitle: %s\nPlatform: %s\n\n", meta.URL, meta.Title, platform)

	for _, name := range prioritySectionList {
		if text := w.get(name); text != "" {
			fmt.Fprintf(&b, "## %s\n%s\n\n", SectionTitle(name), text)
		}
	}

	remaining := max - utf8.RuneCountInString(b.String())
	if remaining > minFullContent {
		if utf8.RuneCountInString(full) > remaining {
			full = truncateRunes(full, remaining) + "\n\n[Content truncated...]"
		}
		fmt.Fprintf(&b, "## Full Page Content\n%s\n", full)
	}
	return truncateRunes(b.String(), max)
}

func truncateRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}

// Metadata reads the page title and site name with a readability pass.
// Errors are swallowed: metadata only decorates the fallback header.
func Metadata(page []byte, pageURL string) PageMeta {
	meta := PageMeta{URL: pageURL}
	u, err := url.Parse(pageURL)
	if err != nil {
		return meta
	}
	rp := readability.NewParser()
	article, err := rp.Parse(bytes.NewReader(page), u)
	if err != nil {
		return meta
	}
	meta.Title = CleanText(article.Title)
	meta.SiteName = CleanText(article.SiteName)
	return meta
}
