package browser

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
)

// Tab is a stealth Rod page navigated to one URL.
type Tab struct {
	page    *rod.Page
	router  *rod.HijackRouter
	url     string
	mgr     *Manager
	closeMu sync.Once
}

var _ Page = (*Tab)(nil)

// Open creates a tab, applies stealth and resource blocking, navigates to
// pageURL and waits for the page to settle.
func (m *Manager) Open(ctx context.Context, pageURL string) (Page, error) {
	b, err := m.acquire(ctx)
	if err != nil {
		return nil, err
	}
	t := &Tab{url: pageURL, mgr: m}

	t.page, err = stealth.Page(b)
	if err != nil {
		m.release()
		return nil, fmt.Errorf("browser: create tab: %w", err)
	}
	if err := t.setup(ctx); err != nil {
		t.Close()
		return nil, err
	}
	return t, nil
}

func (t *Tab) setup(ctx context.Context) error {
	cfg := t.mgr.cfg
	if err := t.page.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: cfg.UserAgent}); err != nil {
		cfg.Logger.Warn("browser: set user agent", "error", err)
	}
	if err := t.page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width: cfg.ViewportWidth, Height: cfg.ViewportHeight, DeviceScaleFactor: 1,
	}); err != nil {
		cfg.Logger.Warn("browser: set viewport", "error", err)
	}
	if len(cfg.ResourceBlocking) > 0 {
		t.router = blockResources(t.page, cfg.ResourceBlocking)
	}

	navCtx, cancel := context.WithTimeout(ctx, cfg.NavigationTimeout)
	defer cancel()
	p := t.page.Context(navCtx)
	if err := p.Navigate(t.url); err != nil {
		return fmt.Errorf("browser: navigate %s: %w", t.url, err)
	}
	if err := p.WaitLoad(); err != nil {
		if lerr := loadError(navCtx, t.url, err); lerr != nil {
			return lerr
		}
		cfg.Logger.Warn("browser: wait load", "url", t.url, "error", err)
	}
	// Late pricing widgets render after load.
	if err := p.WaitIdle(cfg.Settle); err != nil {
		cfg.Logger.Debug("browser: wait idle", "url", t.url, "error", err)
	}
	if info, err := t.page.Info(); err == nil && info.URL != "" {
		t.url = info.URL
	}
	return nil
}

// loadError returns a non-nil error when a failed load wait was caused by
// the navigation deadline or cancellation.
func loadError(navCtx context.Context, pageURL string, err error) error {
	if err == nil {
		return nil
	}
	if navCtx.Err() != nil {
		return fmt.Errorf("browser: load %s: %w", pageURL, navCtx.Err())
	}
	return nil
}

func (t *Tab) URL() string { return t.url }

// HTML serializes the live DOM.
func (t *Tab) HTML(ctx context.Context) ([]byte, error) {
	s, err := t.page.Context(ctx).HTML()
	if err != nil {
		return nil, fmt.Errorf("browser: get DOM: %w", err)
	}
	return []byte(s), nil
}

// Screenshot captures the full page as PNG.
func (t *Tab) Screenshot(ctx context.Context) ([]byte, error) {
	sctx, cancel := context.WithTimeout(ctx, t.mgr.cfg.ScreenshotTimeout)
	defer cancel()
	png, err := t.page.Context(sctx).Screenshot(true, &proto.PageCaptureScreenshot{
		Format: proto.PageCaptureScreenshotFormatPng,
	})
	if err != nil {
		return nil, fmt.Errorf("browser: screenshot %s: %w", t.url, err)
	}
	return png, nil
}

// Close closes the tab. It is safe to call more than once.
func (t *Tab) Close() error {
	var err error
	t.closeMu.Do(func() {
		if t.router != nil {
			t.router.Stop()
		}
		if t.page != nil {
			err = t.page.Close()
		}
		t.mgr.release()
	})
	return err
}

// blockResources fails requests of the given resource types.
func blockResources(page *rod.Page, types []string) *rod.HijackRouter {
	block := make(map[proto.NetworkResourceType]bool, len(types))
	for _, name := range types {
		if rt, ok := resourceTypes[strings.ToLower(name)]; ok {
			block[rt] = true
		}
	}
	router := page.HijackRequests()
	router.MustAdd("*", func(h *rod.Hijack) {
		if block[h.Request.Type()] {
			h.Response.Fail(proto.NetworkErrorReasonBlockedByClient)
			return
		}
		h.ContinueRequest(&proto.FetchContinueRequest{})
	})
	go router.Run()
	return router
}

var resourceTypes = map[string]proto.NetworkResourceType{
	"images":      proto.NetworkResourceTypeImage,
	"image":       proto.NetworkResourceTypeImage,
	"fonts":       proto.NetworkResourceTypeFont,
	"font":        proto.NetworkResourceTypeFont,
	"media":       proto.NetworkResourceTypeMedia,
	"stylesheets": proto.NetworkResourceTypeStylesheet,
	"stylesheet":  proto.NetworkResourceTypeStylesheet,
	"websocket":   proto.NetworkResourceTypeWebSocket,
	"ping":        proto.NetworkResourceTypePing,
}
