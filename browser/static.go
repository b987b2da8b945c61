package browser

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/net/html"
)

// StaticFetcher loads pages with a single HTTP GET. Its pages have no
// screenshot, so it only serves checks that skip visual verification.
type StaticFetcher struct {
	client *http.Client
	ua     string
	logger *slog.Logger
}

// StaticOption configures a StaticFetcher.
type StaticOption func(*StaticFetcher)

// WithClient sets the HTTP client.
func WithClient(c *http.Client) StaticOption {
	return func(f *StaticFetcher) { f.client = c }
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) StaticOption {
	return func(f *StaticFetcher) { f.ua = ua }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) StaticOption {
	return func(f *StaticFetcher) { f.logger = l }
}

// NewStaticFetcher returns a fetcher with a 30s timeout.
func NewStaticFetcher(opts ...StaticOption) *StaticFetcher {
	f := &StaticFetcher{
		client: &http.Client{Timeout: 30 * time.Second},
		ua:     DefaultUserAgent,
		logger: slog.Default(),
	}
	for _, o := range opts {
		o(f)
	}
	return f
}

var _ Opener = (*StaticFetcher)(nil)

const maxBody = 10 << 20

// Open GETs pageURL. It returns ErrNeedsBrowser when the response is not
// a 2xx HTML page with enough server-rendered text.
func (f *StaticFetcher) Open(ctx context.Context, pageURL string) (Page, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("browser: new request: %w", err)
	}
	req.Header.Set("User-Agent", f.ua)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("browser: GET %s: %w", pageURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: HTTP %d", ErrNeedsBrowser, resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, fmt.Errorf("browser: read body: %w", err)
	}
	if !IsSufficient(body) {
		return nil, fmt.Errorf("%w: too little server-rendered text", ErrNeedsBrowser)
	}

	f.logger.Debug("browser: static fetch", "url", pageURL, "status", resp.StatusCode, "size", len(body))
	return &StaticPage{url: resp.Request.URL.String(), body: body}, nil
}

// StaticPage is an HTTP response body.
type StaticPage struct {
	url  string
	body []byte
}

var _ Page = (*StaticPage)(nil)

// NewStaticPage wraps already fetched HTML.
func NewStaticPage(pageURL string, body []byte) *StaticPage {
	return &StaticPage{url: pageURL, body: body}
}

func (p *StaticPage) URL() string { return p.url }

func (p *StaticPage) HTML(context.Context) ([]byte, error) { return p.body, nil }

func (p *StaticPage) Screenshot(context.Context) ([]byte, error) { return nil, ErrNoScreenshot }

func (p *StaticPage) Close() error { return nil }

var spaShells = [][]byte{
	[]byte(`<div id="root"></div>`),
	[]byte(`<div id="app"></div>`),
	[]byte(`<div id="__next"></div>`),
	[]byte(`<noscript>you need to enable javascript`),
	[]byte(`<noscript>enable javascript`),
}

// IsSufficient reports whether an HTML body carries enough visible text to
// be checked without running its scripts.
func IsSufficient(body []byte) bool {
	if len(body) < 256 {
		return false
	}
	text, markup := textMarkupRatio(body)
	if text < 200 || float64(text)/float64(text+markup) < 0.10 {
		return false
	}
	lower := bytes.ToLower(body)
	for _, shell := range spaShells {
		if bytes.Contains(lower, shell) {
			return false
		}
	}
	return true
}

// textMarkupRatio counts non-whitespace bytes of visible text against all
// other bytes. Script and style bodies count as markup.
func textMarkupRatio(body []byte) (text, markup int) {
	z := html.NewTokenizer(bytes.NewReader(body))
	skip := 0
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			return text, markup
		}
		raw := len(z.Raw())
		switch tt {
		case html.StartTagToken:
			if name, _ := z.TagName(); isRawText(name) {
				skip++
			}
			markup += raw
		case html.EndTagToken:
			if name, _ := z.TagName(); isRawText(name) && skip > 0 {
				skip--
			}
			markup += raw
		case html.TextToken:
			if skip > 0 {
				markup += raw
				continue
			}
			n := 0
			for _, c := range z.Raw() {
				if c != ' ' && c != '\t' && c != '\n' && c != '\r' {
					n++
				}
			}
			text += n
		default:
			markup += raw
		}
	}
}

func isRawText(name []byte) bool {
	return string(name) == "script" || string(name) == "style"
}
