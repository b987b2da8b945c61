package extract

import (
	"bytes"
	"fmt"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// Section is one named block of extracted page text.
type Section struct {
	Name string
	Text string
}

// Content is the ordered output of a template extraction. Sections follow
// the template's SectionOrder; sections with no matching selector are absent.
type Content struct {
	TemplateID string
	Sections   []Section
}

// Empty reports whether no section matched.
func (c *Content) Empty() bool { return c == nil || len(c.Sections) == 0 }

// Get returns the text of a named section.
func (c *Content) Get(name string) (string, bool) {
	if c == nil {
		return "", false
	}
	for _, s := range c.Sections {
		if s.Name == name {
			return s.Text, true
		}
	}
	return "", false
}

// Names lists the extracted section names in order.
func (c *Content) Names() []string {
	if c == nil {
		return nil
	}
	out := make([]string, len(c.Sections))
	for i, s := range c.Sections {
		out[i] = s.Name
	}
	return out
}

// Markdown renders the sections as the model input document.
func (c *Content) Markdown() string {
	var b strings.Builder
	b.WriteString("# Vehicle Detail Page Content\n\n")
	for _, s := range c.Sections {
		fmt.Fprintf(&b, "## %s\n%s\n\n", SectionTitle(s.Name), s.Text)
	}
	return b.String()
}

// Extract applies t to a page. For every section in order, the selectors are
// tried in turn and the first matching element's visible text wins.
func Extract(page []byte, t *Template) (*Content, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page))
	if err != nil {
		return nil, fmt.Errorf("extract: parse html: %w", err)
	}
	return ExtractDocument(doc, t), nil
}

// ExtractDocument is Extract over an already parsed document.
func ExtractDocument(doc *goquery.Document, t *Template) *Content {
	out := &Content{TemplateID: t.ID}
	seen := make(map[string]bool)

	for _, name := range t.SectionOrder {
		text := firstMatch(doc.Selection, t.Selectors[name])
		if text == "" {
			continue
		}
		if t.Cleanup.RemoveDuplicateText {
			if seen[text] {
				continue
			}
			seen[text] = true
		}
		out.Sections = append(out.Sections, Section{Name: name, Text: text})
	}
	return out
}

func firstMatch(root *goquery.Selection, selectors []string) string {
	for _, sel := range selectors {
		m := root.Find(sel).First()
		if m.Length() == 0 {
			continue
		}
		if text := VisibleText(m); text != "" {
			return text
		}
		// Matched but empty: the element exists, so later selectors are
		// not consulted.
		return ""
	}
	return ""
}

// VisibleText approximates innerText: block elements start new lines,
// script/style/noscript content is skipped, runs of spaces collapse.
func VisibleText(s *goquery.Selection) string {
	var b strings.Builder
	for _, n := range s.Nodes {
		writeText(&b, n)
	}
	lines := strings.Split(b.String(), "\n")
	kept := lines[:0]
	for _, l := range lines {
		if l = CleanText(l); l != "" {
			kept = append(kept, l)
		}
	}
	return strings.Join(kept, "\n")
}

func writeText(b *strings.Builder, n *html.Node) {
	switch n.Type {
	case html.TextNode:
		b.WriteString(n.Data)
		return
	case html.ElementNode:
		switch n.Data {
		case "script", "style", "noscript", "template":
			return
		case "br":
			b.WriteByte('\n')
			return
		}
	}
	block := n.Type == html.ElementNode && blockElements[n.Data]
	if block {
		b.WriteByte('\n')
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		writeText(b, c)
	}
	if block {
		b.WriteByte('\n')
	}
}

var blockElements = map[string]bool{
	"address": true, "article": true, "aside": true, "blockquote": true, "dd": true,
	"div": true, "dl": true, "dt": true, "fieldset": true, "figcaption": true,
	"figure": true, "footer": true, "form": true, "h1": true, "h2": true, "h3": true,
	"h4": true, "h5": true, "h6": true, "header": true, "hr": true, "li": true,
	"main": true, "nav": true, "ol": true, "p": true, "pre": true, "section": true,
	"table": true, "tr": true, "ul": true,
}

// SectionTitle turns "price_section" into "Price Section".
func SectionTitle(name string) string {
	words := strings.Fields(strings.ReplaceAll(name, "_", " "))
	for i, w := range words {
		r := []rune(strings.ToLower(w))
		r[0] = unicode.ToUpper(r[0])
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}
