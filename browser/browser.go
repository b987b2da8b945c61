// Package browser loads dealership pages for checking. A Manager drives a
// stealth headless Chrome through Rod and yields pages that can be read
// and screenshotted; StaticFetcher serves plain HTTP loads for pages that
// need no JavaScript and no screenshot.
package browser

import (
	"context"
	"errors"
	"time"
)

// Page is one loaded URL. A Page is owned by a single check and must be
// closed by it.
type Page interface {
	// URL is the final URL after redirects.
	URL() string
	// HTML returns the current serialized document.
	HTML(ctx context.Context) ([]byte, error)
	// Screenshot returns a full-page PNG.
	Screenshot(ctx context.Context) ([]byte, error)
	Close() error
}

// Opener loads URLs into Pages.
type Opener interface {
	Open(ctx context.Context, pageURL string) (Page, error)
}

const (
	// DefaultUserAgent is sent by both the browser and the HTTP path.
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

	// NavigationTimeout bounds page navigation and load.
	NavigationTimeout = 60 * time.Second

	// ScreenshotTimeout bounds one full-page capture.
	ScreenshotTimeout = 30 * time.Second
)

var (
	// ErrNoScreenshot is returned by pages that were not rendered.
	ErrNoScreenshot = errors.New("browser: page was not rendered, no screenshot")

	// ErrNeedsBrowser is returned by StaticFetcher when the HTTP response
	// is not usable without a browser.
	ErrNeedsBrowser = errors.New("browser: page needs a browser")
)
