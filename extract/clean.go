package extract

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// CleanHTML removes the template's noise selectors from a private copy of
// the page. With MainContentOnly set, it returns the inner HTML of the first
// main-content container found; otherwise, or when none exists, the whole
// cleaned document.
func CleanHTML(page []byte, t *Template) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page))
	if err != nil {
		return "", fmt.Errorf("extract: parse html: %w", err)
	}
	for _, sel := range t.Cleanup.RemoveSelectors {
		doc.Find(sel).Remove()
	}

	if t.Cleanup.MainContentOnly {
		for _, sel := range MainContentSelectors {
			m := doc.Find(sel).First()
			if m.Length() == 0 {
				continue
			}
			inner, err := m.Html()
			if err != nil {
				return "", fmt.Errorf("extract: render %s: %w", sel, err)
			}
			return inner, nil
		}
	}

	out, err := goquery.OuterHtml(doc.Selection)
	if err != nil {
		return "", fmt.Errorf("extract: render document: %w", err)
	}
	return out, nil
}

// CleanText strips zero-width characters, collapses whitespace and trims.
func CleanText(text string) string {
	text = strings.Map(func(r rune) rune {
		switch r {
		case '\u200b', '\u200c', '\u200d', '\ufeff', '\u00ad':
			return -1
		case '\u00a0':
			return ' '
		}
		return r
	}, text)
	return strings.TrimSpace(multiSpaceRe.ReplaceAllString(text, " "))
}

var multiSpaceRe = regexp.MustCompile(`\s+`)
