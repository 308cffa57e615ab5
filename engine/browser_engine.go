package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/stealth"
)

// BrowserConfig controls the headless-browser engine.
type BrowserConfig struct {
	// Proxy routes browser traffic through a proxy (same formats as the
	// HTTP engine).
	Proxy string

	// NoSandbox disables Chrome's sandbox (needed in Docker).
	NoSandbox bool

	// Bin overrides the Chromium binary path.
	Bin string

	// Timeout is the deadline for one navigation.
	Timeout time.Duration
}

// BrowserEngine renders pages in headless Chrome with stealth evasions.
// It is the escalation tier for targets that reject even fingerprinted
// plain HTTP. The browser launches lazily on first use, so runs that never
// escalate pay no startup cost.
type BrowserEngine struct {
	cfg BrowserConfig

	once    sync.Once
	browser *rod.Browser
	launch  error
}

// NewBrowserEngine creates a BrowserEngine. The browser process is not
// started until the first Fetch.
func NewBrowserEngine(cfg BrowserConfig) *BrowserEngine {
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}
	return &BrowserEngine{cfg: cfg}
}

func (e *BrowserEngine) Name() string { return "browser" }

// connect launches headless Chrome exactly once.
func (e *BrowserEngine) connect() error {
	e.once.Do(func() {
		l := launcher.New().
			Headless(true).
			NoSandbox(e.cfg.NoSandbox)

		if e.cfg.Bin != "" {
			l = l.Bin(e.cfg.Bin)
		}
		if e.cfg.Proxy != "" {
			l = l.Proxy(e.cfg.Proxy)
		}

		l.Set(flags.Flag("disable-blink-features"), "AutomationControlled")
		l.Delete(flags.Flag("enable-automation"))
		l.Set(flags.Flag("disable-dev-shm-usage"))
		l.Set(flags.Flag("disable-extensions"))
		l.Set(flags.Flag("no-first-run"))

		controlURL, err := l.Launch()
		if err != nil {
			e.launch = fmt.Errorf("browser_engine: launch: %w", err)
			return
		}
		slog.Info("browser launched", "controlURL", controlURL)

		browser := rod.New().ControlURL(controlURL)
		if err := browser.Connect(); err != nil {
			e.launch = fmt.Errorf("browser_engine: connect: %w", err)
			return
		}
		e.browser = browser
	})
	return e.launch
}

func (e *BrowserEngine) Fetch(ctx context.Context, req *FetchRequest) (*FetchResult, error) {
	if err := e.connect(); err != nil {
		return nil, err
	}

	timeout := e.cfg.Timeout
	if req.Timeout > 0 {
		timeout = req.Timeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	page, err := stealth.Page(e.browser)
	if err != nil {
		return nil, fmt.Errorf("browser_engine: open page: %w", err)
	}
	defer page.Close()
	page = page.Context(ctx)

	if err := page.Navigate(req.URL); err != nil {
		return nil, fmt.Errorf("browser_engine: navigate %s: %w", req.URL, err)
	}
	if err := page.WaitLoad(); err != nil {
		return nil, fmt.Errorf("browser_engine: wait load: %w", err)
	}

	html, err := page.HTML()
	if err != nil {
		return nil, fmt.Errorf("browser_engine: read html: %w", err)
	}

	info, err := page.Info()
	finalURL := req.URL
	if err == nil && info.URL != "" {
		finalURL = info.URL
	}

	// CDP does not surface the document status without network hijacking;
	// a page that rendered is reported as 200.
	return &FetchResult{
		Body:       html,
		StatusCode: 200,
		FinalURL:   finalURL,
		EngineName: e.Name(),
	}, nil
}

// Close kills the browser process if it was ever launched.
func (e *BrowserEngine) Close() {
	if e.browser != nil {
		e.browser.MustClose()
	}
}
