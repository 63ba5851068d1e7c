package browser

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/playwright-community/playwright-go"
)

// contextDestroyedMessage is how the driver reports a script evaluation cut
// short by navigation.
const contextDestroyedMessage = "Execution context was destroyed"

// NewPlaywrightDriver installs the playwright driver and browsers if
// needed and starts it. Output is discarded so it never interleaves with
// the outcome text on stdout.
func NewPlaywrightDriver() (Driver, error) {
	opts := &playwright.RunOptions{
		Browsers: []string{"chromium"},
		Verbose:  false,
		Stdout:   io.Discard,
		Stderr:   io.Discard,
	}

	if err := playwright.Install(opts); err != nil {
		return nil, fmt.Errorf("failed to install playwright: %w", err)
	}

	pw, err := playwright.Run(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to start playwright: %w", err)
	}

	return &playwrightDriver{pw: pw}, nil
}

type playwrightDriver struct {
	pw *playwright.Playwright
}

func (d *playwrightDriver) Launch(opts LaunchOptions) (Browser, error) {
	browser, err := d.pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(opts.Headless),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}
	return &playwrightBrowser{browser: browser}, nil
}

func (d *playwrightDriver) Stop() error {
	if err := d.pw.Stop(); err != nil {
		return fmt.Errorf("failed to stop playwright: %w", err)
	}
	return nil
}

type playwrightBrowser struct {
	browser playwright.Browser
}

func (b *playwrightBrowser) NewContext(opts ContextOptions) (BrowsingContext, error) {
	ctx, err := b.browser.NewContext(playwright.BrowserNewContextOptions{
		IgnoreHttpsErrors: playwright.Bool(opts.IgnoreHTTPSErrors),
		Viewport: &playwright.Size{
			Width:  opts.Viewport.Width,
			Height: opts.Viewport.Height,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create context: %w", err)
	}
	return &playwrightContext{ctx: ctx}, nil
}

func (b *playwrightBrowser) Close() error {
	return b.browser.Close()
}

type playwrightContext struct {
	ctx playwright.BrowserContext
}

func (c *playwrightContext) NewTab() (Tab, error) {
	page, err := c.ctx.NewPage()
	if err != nil {
		return nil, fmt.Errorf("failed to create page: %w", err)
	}
	return &playwrightTab{page: page}, nil
}

func (c *playwrightContext) AddInitScript(script string) error {
	return c.ctx.AddInitScript(playwright.Script{Content: playwright.String(script)})
}

func (c *playwrightContext) Close() error {
	return c.ctx.Close()
}

type playwrightTab struct {
	page playwright.Page
}

func (t *playwrightTab) URL() string    { return t.page.URL() }
func (t *playwrightTab) IsClosed() bool { return t.page.IsClosed() }
func (t *playwrightTab) Close() error   { return classifyError(t.page.Close()) }

func (t *playwrightTab) OnPopup(fn func(Tab)) {
	t.page.OnPopup(func(popup playwright.Page) {
		fn(&playwrightTab{page: popup})
	})
}

func (t *playwrightTab) Goto(url string, timeout float64) (int, error) {
	resp, err := t.page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
		Timeout:   playwright.Float(timeout),
	})
	if err != nil {
		return 0, classifyError(err)
	}
	if resp == nil {
		return 0, nil
	}
	return resp.Status(), nil
}

func (t *playwrightTab) WaitForLoad() error {
	return classifyError(t.page.WaitForLoadState(playwright.PageWaitForLoadStateOptions{
		State: playwright.LoadStateDomcontentloaded,
	}))
}

func (t *playwrightTab) WaitForURL(url string) error {
	return classifyError(t.page.WaitForURL(url, playwright.PageWaitForURLOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
	}))
}

func (t *playwrightTab) Count(selector string) (int, error) {
	n, err := t.page.Locator(selector).Count()
	return n, classifyError(err)
}

func (t *playwrightTab) Click(selector string, timeout float64) error {
	return classifyError(t.page.Locator(selector).Click(playwright.LocatorClickOptions{
		Timeout: playwright.Float(timeout),
	}))
}

func (t *playwrightTab) Fill(selector, value string, timeout float64) error {
	return classifyError(t.page.Locator(selector).Fill(value, playwright.LocatorFillOptions{
		Timeout: playwright.Float(timeout),
	}))
}

func (t *playwrightTab) TextContents(selector string) ([]string, error) {
	texts, err := t.page.Locator(selector).AllTextContents()
	return texts, classifyError(err)
}

func (t *playwrightTab) Evaluate(expression string, args ...interface{}) (interface{}, error) {
	v, err := t.page.Evaluate(expression, args...)
	return v, classifyError(err)
}

func (t *playwrightTab) Content() (string, error) {
	html, err := t.page.Content()
	return html, classifyError(err)
}

func (t *playwrightTab) Screenshot(timeout float64) ([]byte, error) {
	buf, err := t.page.Screenshot(playwright.PageScreenshotOptions{
		FullPage: playwright.Bool(true),
		Timeout:  playwright.Float(timeout),
	})
	return buf, classifyError(err)
}

// classifyError tags driver errors with the package's error kinds so
// callers can branch with errors.Is instead of matching messages.
func classifyError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, playwright.ErrTimeout):
		return fmt.Errorf("%w: %w", ErrTimeout, err)
	case strings.Contains(err.Error(), contextDestroyedMessage):
		return fmt.Errorf("%w: %w", ErrContextDestroyed, err)
	default:
		return err
	}
}
