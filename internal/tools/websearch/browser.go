package websearch

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"
)

// HeadlessExtractor is the second scrape tier: a real headless Chrome
// instance for pages the lightweight HTTP fetch can't render (client-side
// JS apps, paywalled pages that gate content behind a script). It is only
// invoked when the primary tier's output is empty or too thin to be
// useful, since spinning up a browser tab is far more expensive than an
// HTTP GET.
type HeadlessExtractor struct {
	allocatorOpts []chromedp.ExecAllocatorOption
	navTimeout    time.Duration
}

// NewHeadlessExtractor creates a headless extractor running Chrome with a
// minimal, sandboxed flag set suitable for a server process (no GPU, no
// sandbox namespace dependency inside containers).
func NewHeadlessExtractor() *HeadlessExtractor {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.DisableGPU,
		chromedp.NoSandbox,
		chromedp.Flag("disable-dev-shm-usage", true),
	)
	return &HeadlessExtractor{
		allocatorOpts: opts,
		navTimeout:    20 * time.Second,
	}
}

// Extract navigates to targetURL in a fresh headless tab, waits for the
// document to settle, and returns the rendered page's visible text. The
// caller is responsible for SSRF validation before calling this (mirrors
// the primary tier's contract in ContentExtractor.Extract).
func (h *HeadlessExtractor) Extract(ctx context.Context, targetURL string) (string, error) {
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, h.allocatorOpts...)
	defer cancelAlloc()

	tabCtx, cancelTab := chromedp.NewContext(allocCtx)
	defer cancelTab()

	runCtx, cancelRun := context.WithTimeout(tabCtx, h.navTimeout)
	defer cancelRun()

	var title, bodyText string
	err := chromedp.Run(runCtx,
		chromedp.Navigate(targetURL),
		chromedp.Title(&title),
		chromedp.Text("body", &bodyText, chromedp.ByQuery, chromedp.NodeVisible),
	)
	if err != nil {
		return "", fmt.Errorf("headless render failed: %w", err)
	}

	if title != "" {
		return "Title: " + title + "\n\n" + bodyText, nil
	}
	return bodyText, nil
}
