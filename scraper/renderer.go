package scraper

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/playwright-community/playwright-go"

	"avitowatch/config"
)

const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// hideWebdriver runs before any page script so the site never observes the
// automation flag.
const hideWebdriver = `Object.defineProperty(navigator, 'webdriver', { get: () => undefined });`

// RenderErrorKind classifies why a render attempt produced no usable page.
type RenderErrorKind string

const (
	RenderTimeout          RenderErrorKind = "timeout"
	RenderBlocked          RenderErrorKind = "blocked"
	RenderNavigationFailed RenderErrorKind = "navigation_failed"
)

type RenderError struct {
	Kind RenderErrorKind
	URL  string
	Err  error
}

func (e *RenderError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("render %s: %s: %v", e.URL, e.Kind, e.Err)
	}
	return fmt.Sprintf("render %s: %s", e.URL, e.Kind)
}

func (e *RenderError) Unwrap() error {
	return e.Err
}

// Renderer produces a parsed document for a search-results URL.
type Renderer interface {
	Render(ctx context.Context, url string) (*goquery.Document, error)
}

// BrowserRenderer drives a headless Chromium session through Playwright.
// The Playwright runtime is started once and reused; every Render call gets
// its own browser context, closed on every exit path.
type BrowserRenderer struct {
	cfg      *config.RendererConfig
	site     *config.SiteConfig
	proxyURL string

	mu sync.Mutex
	pw *playwright.Playwright
}

func NewBrowserRenderer(cfg *config.RendererConfig, site *config.SiteConfig, proxyURL string) *BrowserRenderer {
	return &BrowserRenderer{cfg: cfg, site: site, proxyURL: proxyURL}
}

func (r *BrowserRenderer) ensurePlaywright() (*playwright.Playwright, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.pw != nil {
		return r.pw, nil
	}
	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("start playwright: %w", err)
	}
	r.pw = pw
	return pw, nil
}

// Stop tears down the shared Playwright runtime.
func (r *BrowserRenderer) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.pw != nil {
		r.pw.Stop()
		r.pw = nil
	}
}

func (r *BrowserRenderer) Render(ctx context.Context, url string) (*goquery.Document, error) {
	pw, err := r.ensurePlaywright()
	if err != nil {
		return nil, &RenderError{Kind: RenderNavigationFailed, URL: url, Err: err}
	}

	launchOpts := playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(r.cfg.Headless),
		Args: []string{
			"--no-sandbox",
			"--disable-setuid-sandbox",
			"--disable-blink-features=AutomationControlled",
			"--disable-features=VizDisplayCompositor",
			"--disable-dev-shm-usage",
		},
	}
	if r.proxyURL != "" {
		launchOpts.Proxy = &playwright.Proxy{Server: r.proxyURL}
	}

	browser, err := pw.Chromium.Launch(launchOpts)
	if err != nil {
		return nil, &RenderError{Kind: RenderNavigationFailed, URL: url, Err: err}
	}
	defer browser.Close()

	browserCtx, err := browser.NewContext(playwright.BrowserNewContextOptions{
		UserAgent: playwright.String(userAgent),
		Viewport:  &playwright.Size{Width: 1366, Height: 768},
	})
	if err != nil {
		return nil, &RenderError{Kind: RenderNavigationFailed, URL: url, Err: err}
	}
	defer browserCtx.Close()

	if err := browserCtx.AddInitScript(playwright.Script{Content: playwright.String(hideWebdriver)}); err != nil {
		log.Printf("Warning: could not install init script: %v", err)
	}

	page, err := browserCtx.NewPage()
	if err != nil {
		return nil, &RenderError{Kind: RenderNavigationFailed, URL: url, Err: err}
	}

	_, err = page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateNetworkidle,
		Timeout:   playwright.Float(float64(r.cfg.NavigationTimeout.Milliseconds())),
	})
	if err != nil {
		return nil, &RenderError{Kind: RenderNavigationFailed, URL: url, Err: err}
	}

	matched := ""
	for _, selector := range r.site.WaitSelectors {
		_, err := page.WaitForSelector(selector, playwright.PageWaitForSelectorOptions{
			Timeout: playwright.Float(float64(r.cfg.SelectorTimeout.Milliseconds())),
		})
		if err == nil {
			matched = selector
			break
		}
		log.Printf("Selector not found: %s", selector)
	}

	content, err := page.Content()
	if err != nil {
		return nil, &RenderError{Kind: RenderNavigationFailed, URL: url, Err: err}
	}

	if matched == "" {
		r.captureArtifact(page, url)

		if marker := r.detectBlock(content); marker != "" {
			return nil, &RenderError{Kind: RenderBlocked, URL: url, Err: fmt.Errorf("block marker %q", marker)}
		}
		return nil, &RenderError{Kind: RenderTimeout, URL: url}
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		return nil, &RenderError{Kind: RenderNavigationFailed, URL: url, Err: err}
	}
	return doc, nil
}

func (r *BrowserRenderer) detectBlock(content string) string {
	lower := strings.ToLower(content)
	for _, marker := range r.site.BlockMarkers {
		if strings.Contains(lower, strings.ToLower(marker)) {
			return marker
		}
	}
	return ""
}

// captureArtifact saves a screenshot for later diagnosis. Best effort: a
// failed screenshot must not mask the render failure itself.
func (r *BrowserRenderer) captureArtifact(page playwright.Page, url string) {
	if r.cfg.ArtifactDir == "" {
		return
	}
	if err := os.MkdirAll(r.cfg.ArtifactDir, 0755); err != nil {
		log.Printf("Warning: artifact dir: %v", err)
		return
	}

	name := fmt.Sprintf("debug-%s.png", time.Now().Format("20060102-150405"))
	path := filepath.Join(r.cfg.ArtifactDir, name)
	if _, err := page.Screenshot(playwright.PageScreenshotOptions{
		Path:     playwright.String(path),
		FullPage: playwright.Bool(true),
	}); err != nil {
		log.Printf("Warning: screenshot failed for %s: %v", url, err)
		return
	}
	log.Printf("Saved diagnostic screenshot: %s", path)
}
