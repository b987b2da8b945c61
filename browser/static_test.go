package browser

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

var dealerPage = `<!DOCTYPE html>
<html>
<head><title>2021 Jeep Wrangler | Allstar Motors</title><style>body{font:14px sans-serif}</style></head>
<body>
<main>
<h1>2021 Jeep Wrangler Unlimited Sahara</h1>
<p>Stock #J4421, VIN 1C4HJXEG5MW123456. Price $38,995 plus tax, title and license.
Documentary fee of $499 not included. See dealer for details. Offer ends 03/31.
Financing available with approved credit, 4.9% APR for 60 months on select models.</p>
<p>Allstar Motors, 100 Main Street, Muskogee OK. Open Monday through Saturday 9am to 7pm.</p>
</main>
</body>
</html>`

func TestIsSufficientStaticPage(t *testing.T) {
	if !IsSufficient([]byte(dealerPage)) {
		t.Error("expected sufficient for a server-rendered dealer page")
	}
}

func TestIsSufficientSPAShell(t *testing.T) {
	html := `<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>Inventory</title></head>
<body>
<div id="root"></div>
<script src="/static/js/main.chunk.js"></script>
<script>window.__STATE__ = {"inventory": [` + strings.Repeat(`{"vin":"1C4HJXEG5MW123456"},`, 40) + `]}</script>
</body>
</html>`
	if IsSufficient([]byte(html)) {
		t.Error("expected insufficient for SPA shell")
	}
}

func TestIsSufficientTooShort(t *testing.T) {
	if IsSufficient([]byte(`<html><body>hi</body></html>`)) {
		t.Error("expected insufficient for very short content")
	}
}

func TestTextMarkupRatioIgnoresScripts(t *testing.T) {
	text, markup := textMarkupRatio([]byte(`<div>Hello World</div><script>var x = "lots of text here";</script>`))
	if text != len("HelloWorld") {
		t.Errorf("text: got %d", text)
	}
	if markup <= len(`<div></div>`) {
		t.Errorf("markup should include the script body, got %d", markup)
	}
}

func TestStaticFetcherOpen(t *testing.T) {
	var ua string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ua = r.Header.Get("User-Agent")
		switch r.URL.Path {
		case "/vdp":
			io.WriteString(w, dealerPage)
		case "/spa":
			io.WriteString(w, `<html><body><div id="app"></div></body></html>`)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	f := NewStaticFetcher(WithClient(srv.Client()))
	ctx := context.Background()

	page, err := f.Open(ctx, srv.URL+"/vdp")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer page.Close()
	if ua != DefaultUserAgent {
		t.Errorf("user agent: %q", ua)
	}
	if page.URL() != srv.URL+"/vdp" {
		t.Errorf("url: %s", page.URL())
	}
	body, _ := page.HTML(ctx)
	if !strings.Contains(string(body), "Wrangler") {
		t.Error("body not returned")
	}
	if _, err := page.Screenshot(ctx); !errors.Is(err, ErrNoScreenshot) {
		t.Errorf("screenshot: got %v", err)
	}

	for _, path := range []string{"/spa", "/missing"} {
		if _, err := f.Open(ctx, srv.URL+path); !errors.Is(err, ErrNeedsBrowser) {
			t.Errorf("%s: got %v, want ErrNeedsBrowser", path, err)
		}
	}
}

func TestResourceTypes(t *testing.T) {
	for _, name := range []string{"images", "fonts", "media", "stylesheets"} {
		if _, ok := resourceTypes[name]; !ok {
			t.Errorf("resource type %q not mapped", name)
		}
	}
}
