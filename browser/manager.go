package browser

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
)

// StealthLevel controls the browser automation mode.
type StealthLevel int

const (
	LevelHeadless StealthLevel = 1 // Rod headless + stealth
	LevelHeadful  StealthLevel = 2 // Rod headful on Xvfb
)

// Config configures the browser manager.
type Config struct {
	// RemoteURL is the DevTools WebSocket URL of an external Chrome.
	// Empty launches a local Chrome.
	RemoteURL string

	// Stealth sets the automation mode. Default: LevelHeadless.
	Stealth StealthLevel

	// ResourceBlocking lists resource types to block (fonts, media, ...).
	// Blocking images or stylesheets degrades screenshots.
	ResourceBlocking []string

	// MemoryLimit in bytes of JS heap before Chrome is recycled. Default: 1GB.
	MemoryLimit int64

	// RecycleInterval is the maximum lifetime of a Chrome process. Default: 4h.
	RecycleInterval time.Duration

	NavigationTimeout time.Duration
	ScreenshotTimeout time.Duration

	// Settle is how long to wait for the page to go idle after load. Default: 3s.
	Settle time.Duration

	UserAgent      string
	ViewportWidth  int
	ViewportHeight int

	// XvfbDisplay for headful mode. Default: ":99".
	XvfbDisplay string

	Logger *slog.Logger
}

func (c *Config) defaults() {
	if c.Stealth == 0 {
		c.Stealth = LevelHeadless
	}
	if c.MemoryLimit <= 0 {
		c.MemoryLimit = 1 << 30
	}
	if c.RecycleInterval <= 0 {
		c.RecycleInterval = 4 * time.Hour
	}
	if c.NavigationTimeout <= 0 {
		c.NavigationTimeout = NavigationTimeout
	}
	if c.ScreenshotTimeout <= 0 {
		c.ScreenshotTimeout = ScreenshotTimeout
	}
	if c.Settle <= 0 {
		c.Settle = 3 * time.Second
	}
	if c.UserAgent == "" {
		c.UserAgent = DefaultUserAgent
	}
	if c.ViewportWidth <= 0 || c.ViewportHeight <= 0 {
		c.ViewportWidth, c.ViewportHeight = 1920, 1080
	}
	if c.XvfbDisplay == "" {
		c.XvfbDisplay = ":99"
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Manager owns the Chrome process. Chrome starts on the first Open and is
// recycled on age or heap size, but only while no tab is open.
type Manager struct {
	cfg     Config
	mu      sync.Mutex
	browser *rod.Browser
	lnch    *launcher.Launcher
	xvfb    *exec.Cmd
	startAt time.Time
	tabs    int
	closed  bool
	stop    context.CancelFunc
}

var _ Opener = (*Manager)(nil)

// NewManager returns a Manager. Chrome is not started until needed.
func NewManager(cfg Config) *Manager {
	cfg.defaults()
	return &Manager{cfg: cfg}
}

// acquire returns the running browser, launching it if needed, and counts
// one more open tab.
func (m *Manager) acquire(ctx context.Context) (*rod.Browser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, fmt.Errorf("browser: manager is closed")
	}
	if m.browser == nil {
		b, err := m.launch()
		if err != nil {
			return nil, err
		}
		m.browser = b
		m.startAt = time.Now()
		if m.stop == nil {
			mctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
			m.stop = cancel
			go m.monitorLoop(mctx)
		}
	}
	m.tabs++
	return m.browser, nil
}

func (m *Manager) release() {
	m.mu.Lock()
	m.tabs--
	m.mu.Unlock()
}

// Close shuts down Chrome and Xvfb.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	if m.stop != nil {
		m.stop()
	}
	m.cleanup()
	return nil
}

func (m *Manager) launch() (*rod.Browser, error) {
	log := m.cfg.Logger

	if m.cfg.Stealth == LevelHeadful {
		if err := m.startXvfb(); err != nil {
			return nil, fmt.Errorf("browser: xvfb: %w", err)
		}
	}

	wsURL := m.cfg.RemoteURL
	if wsURL != "" {
		log.Info("browser: connecting to remote", "url", wsURL)
	} else {
		l := launcher.New().Headless(m.cfg.Stealth != LevelHeadful)
		if m.cfg.Stealth == LevelHeadful {
			l = l.Env("DISPLAY=" + m.cfg.XvfbDisplay)
		}
		l = l.Set("disable-blink-features", "AutomationControlled").
			Set("window-size", fmt.Sprintf("%d,%d", m.cfg.ViewportWidth, m.cfg.ViewportHeight))

		u, err := l.Launch()
		if err != nil {
			return nil, fmt.Errorf("browser: launch: %w", err)
		}
		wsURL = u
		m.lnch = l
		log.Info("browser: launched local chrome", "url", wsURL, "stealth", m.cfg.Stealth)
	}

	b := rod.New().ControlURL(wsURL)
	if err := b.Connect(); err != nil {
		return nil, fmt.Errorf("browser: connect: %w", err)
	}
	if err := b.IgnoreCertErrors(true); err != nil {
		log.Warn("browser: ignore cert errors failed", "error", err)
	}
	return b, nil
}

func (m *Manager) cleanup() {
	if m.browser != nil {
		m.browser.Close()
		m.browser = nil
	}
	if m.lnch != nil {
		m.lnch.Cleanup()
		m.lnch = nil
	}
	m.stopXvfb()
}

// recycleIfIdle restarts Chrome on next use. It does nothing while tabs are
// open so running checks keep their pages.
func (m *Manager) recycleIfIdle(reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed || m.browser == nil || m.tabs > 0 {
		return
	}
	m.cfg.Logger.Info("browser: recycling", "reason", reason, "uptime", time.Since(m.startAt))
	m.cleanup()
}

func (m *Manager) monitorLoop(ctx context.Context) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		m.mu.Lock()
		b, startAt := m.browser, m.startAt
		m.mu.Unlock()
		if b == nil {
			continue
		}

		if time.Since(startAt) > m.cfg.RecycleInterval {
			m.recycleIfIdle("interval")
			continue
		}

		heap, err := jsHeapUsage(b)
		if err != nil {
			m.cfg.Logger.Debug("browser: heap check failed", "error", err)
			continue
		}
		if heap > m.cfg.MemoryLimit {
			m.recycleIfIdle("memory")
		}
	}
}

// jsHeapUsage sums the JS heap of all open pages.
func jsHeapUsage(b *rod.Browser) (int64, error) {
	pages, err := b.Pages()
	if err != nil {
		return 0, err
	}
	var total int64
	for _, p := range pages {
		res, err := p.Eval(`() => performance.memory ? performance.memory.usedJSHeapSize : 0`)
		if err != nil {
			continue
		}
		total += int64(res.Value.Int())
	}
	return total, nil
}
