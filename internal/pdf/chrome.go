// Package pdf prints report markup to PDF with a headless Chrome driven over
// the DevTools protocol.
//
// One ChromeLauncher is shared by the process. Each Launch starts a browser
// for a single report; every PrintPDF call opens its own tab on that
// browser, so one engine can print several students in parallel.
package pdf

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"

	"github.com/JonMunkholm/gradereports/internal/core"
)

// A4 in inches, which is what the print API expects.
const (
	paperWidthIn  = 8.27
	paperHeightIn = 11.69
)

// Options configures the browser.
type Options struct {
	// ExecPath overrides browser discovery. Empty searches the usual names.
	ExecPath string

	// NoSandbox disables the Chrome sandbox. Needed when running as root in
	// most containers.
	NoSandbox bool

	// MarginInches is applied to every side of the page.
	MarginInches float64
}

// ChromeLauncher starts headless Chrome instances.
type ChromeLauncher struct {
	opts Options
}

// NewChromeLauncher creates a launcher. No browser is started until Launch.
func NewChromeLauncher(opts Options) *ChromeLauncher {
	return &ChromeLauncher{opts: opts}
}

func (l *ChromeLauncher) allocatorOptions() []chromedp.ExecAllocatorOption {
	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	opts = append(opts,
		chromedp.Headless,
		chromedp.DisableGPU,
		chromedp.Flag("font-render-hinting", "none"),
	)
	if l.opts.NoSandbox {
		opts = append(opts, chromedp.NoSandbox)
	}
	if l.opts.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(l.opts.ExecPath))
	}
	return opts
}

// Launch starts a browser and waits until it accepts commands.
// ctx bounds only the startup; the browser lives until Close.
func (l *ChromeLauncher) Launch(ctx context.Context) (core.RenderEngine, error) {
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), l.allocatorOptions()...)
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx,
		chromedp.WithErrorf(func(format string, args ...any) {
			slog.Warn("chrome devtools error", "message", fmt.Sprintf(format, args...))
		}),
	)

	// Abandon startup if the caller gives up first.
	stop := context.AfterFunc(ctx, cancelBrowser)
	err := chromedp.Run(browserCtx)
	stop()
	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		cancelBrowser()
		cancelAlloc()
		return nil, fmt.Errorf("start chrome: %w", err)
	}

	return &chromeEngine{
		browserCtx:    browserCtx,
		cancelBrowser: cancelBrowser,
		cancelAlloc:   cancelAlloc,
		margin:        l.opts.MarginInches,
	}, nil
}

type chromeEngine struct {
	browserCtx    context.Context
	cancelBrowser context.CancelFunc
	cancelAlloc   context.CancelFunc
	margin        float64

	closeOnce sync.Once
	closeErr  error
}

// PrintPDF loads html into a fresh tab and prints it to A4 with backgrounds.
func (e *chromeEngine) PrintPDF(ctx context.Context, html string) ([]byte, error) {
	if err := e.browserCtx.Err(); err != nil {
		return nil, errors.New("render engine closed")
	}

	tabCtx, cancelTab := chromedp.NewContext(e.browserCtx)
	defer cancelTab()
	stop := context.AfterFunc(ctx, cancelTab)
	defer stop()

	var pdf []byte
	err := chromedp.Run(tabCtx,
		chromedp.Navigate("about:blank"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			tree, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return fmt.Errorf("frame tree: %w", err)
			}
			return page.SetDocumentContent(tree.Frame.ID, html).Do(ctx)
		}),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.ActionFunc(func(ctx context.Context) error {
			data, _, err := page.PrintToPDF().
				WithPrintBackground(true).
				WithPaperWidth(paperWidthIn).
				WithPaperHeight(paperHeightIn).
				WithMarginTop(e.margin).
				WithMarginBottom(e.margin).
				WithMarginLeft(e.margin).
				WithMarginRight(e.margin).
				WithPreferCSSPageSize(false).
				Do(ctx)
			if err != nil {
				return fmt.Errorf("print: %w", err)
			}
			pdf = data
			return nil
		}),
	)
	if err != nil {
		// Report the caller's reason rather than the tab teardown it caused.
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, err
	}
	return pdf, nil
}

// Close shuts the browser down. Safe to call more than once.
func (e *chromeEngine) Close() error {
	e.closeOnce.Do(func() {
		e.closeErr = chromedp.Cancel(e.browserCtx)
		e.cancelBrowser()
		e.cancelAlloc()
		if errors.Is(e.closeErr, context.Canceled) {
			e.closeErr = nil
		}
	})
	return e.closeErr
}
