package browser

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/entrhq/qa-browser/pkg/logging"
)

// recorder keeps the order of lifecycle calls across the fakes.
type recorder struct {
	events []string
}

func (r *recorder) add(format string, args ...interface{}) {
	r.events = append(r.events, fmt.Sprintf(format, args...))
}

type fakeDriver struct {
	rec       *recorder
	browser   *fakeBrowser
	launchErr error
	stopErr   error
	launches  int
}

func (d *fakeDriver) Launch(opts LaunchOptions) (Browser, error) {
	d.launches++
	d.rec.add("launch headless=%v", opts.Headless)
	if d.launchErr != nil {
		return nil, d.launchErr
	}
	return d.browser, nil
}

func (d *fakeDriver) Stop() error {
	d.rec.add("stop driver")
	return d.stopErr
}

type fakeBrowser struct {
	rec        *recorder
	ctx        *fakeContext
	contextErr error
	closeErr   error
	lastOpts   ContextOptions
}

func (b *fakeBrowser) NewContext(opts ContextOptions) (BrowsingContext, error) {
	b.lastOpts = opts
	b.rec.add("new context")
	if b.contextErr != nil {
		return nil, b.contextErr
	}
	return b.ctx, nil
}

func (b *fakeBrowser) Close() error {
	b.rec.add("close browser")
	return b.closeErr
}

type fakeContext struct {
	rec         *recorder
	opened      []*fakeTab
	queued      []*fakeTab
	newTabErr   error
	closeErr    error
	initScripts []string
}

func (c *fakeContext) NewTab() (Tab, error) {
	if c.newTabErr != nil {
		return nil, c.newTabErr
	}
	var tab *fakeTab
	if len(c.queued) > 0 {
		tab, c.queued = c.queued[0], c.queued[1:]
	} else {
		tab = newFakeTab(c.rec, fmt.Sprintf("tab%d", len(c.opened)+1))
	}
	c.opened = append(c.opened, tab)
	c.rec.add("new tab %s", tab.name)
	return tab, nil
}

func (c *fakeContext) AddInitScript(script string) error {
	c.initScripts = append(c.initScripts, script)
	return nil
}

func (c *fakeContext) Close() error {
	c.rec.add("close context")
	return c.closeErr
}

// fakeTab scripts the answers of one tab. Selector keyed maps use the
// policy-adjusted selector.
type fakeTab struct {
	rec  *recorder
	name string

	url      string
	closed   bool
	closeErr error
	html     string

	counts   map[string]int
	countErr error
	texts    func(selector string, call int) []string
	textErr  error
	clickErr error
	fillErr  error

	gotoStatus int
	gotoErr    error

	// annotateErrs are returned by successive annotation passes.
	annotateErrs []error
	annotations  int
	waitedURLs   []string

	screenshotFailures int
	screenshotCalls    int
	screenshotTimeout  float64
	screenshot         []byte
	onScreenshotFail   func()

	selectorAt string

	clicks     []string
	fills      map[string]string
	textCalls  int
	countCalls int
	popupFns   []func(Tab)
	onClick    func()
	loadWaited bool
}

func newFakeTab(rec *recorder, name string) *fakeTab {
	return &fakeTab{
		rec:        rec,
		name:       name,
		url:        blankURL,
		counts:     map[string]int{},
		fills:      map[string]string{},
		screenshot: []byte("png:" + name),
	}
}

func (t *fakeTab) URL() string    { return t.url }
func (t *fakeTab) IsClosed() bool { return t.closed }

func (t *fakeTab) Close() error {
	t.rec.add("close tab %s", t.name)
	if t.closeErr != nil {
		return t.closeErr
	}
	t.closed = true
	return nil
}

func (t *fakeTab) OnPopup(fn func(Tab)) {
	t.popupFns = append(t.popupFns, fn)
}

// openPopup fires the popup event the way the driver would.
func (t *fakeTab) openPopup(popup *fakeTab) {
	for _, fn := range t.popupFns {
		fn(popup)
	}
}

func (t *fakeTab) Goto(url string, timeout float64) (int, error) {
	if t.gotoErr != nil {
		return 0, t.gotoErr
	}
	t.url = url
	return t.gotoStatus, nil
}

func (t *fakeTab) WaitForLoad() error {
	t.loadWaited = true
	return nil
}

func (t *fakeTab) WaitForURL(url string) error {
	t.waitedURLs = append(t.waitedURLs, url)
	return nil
}

func (t *fakeTab) Count(selector string) (int, error) {
	t.countCalls++
	if t.countErr != nil {
		return 0, t.countErr
	}
	return t.counts[selector], nil
}

func (t *fakeTab) Click(selector string, timeout float64) error {
	t.clicks = append(t.clicks, selector)
	if t.onClick != nil {
		t.onClick()
	}
	return t.clickErr
}

func (t *fakeTab) Fill(selector, value string, timeout float64) error {
	if t.fillErr != nil {
		return t.fillErr
	}
	t.fills[selector] = value
	return nil
}

func (t *fakeTab) TextContents(selector string) ([]string, error) {
	t.textCalls++
	if t.textErr != nil {
		return nil, t.textErr
	}
	if t.texts == nil {
		return nil, nil
	}
	return t.texts(selector, t.textCalls), nil
}

func (t *fakeTab) Evaluate(expression string, args ...interface{}) (interface{}, error) {
	switch expression {
	case annotateScript:
		t.annotations++
		if len(t.annotateErrs) > 0 {
			err := t.annotateErrs[0]
			t.annotateErrs = t.annotateErrs[1:]
			return nil, err
		}
		return nil, nil
	case selectorAtScript:
		return t.selectorAt, nil
	}
	return nil, errors.New("unexpected script")
}

func (t *fakeTab) Content() (string, error) {
	return t.html, nil
}

func (t *fakeTab) Screenshot(timeout float64) ([]byte, error) {
	t.screenshotCalls++
	t.screenshotTimeout = timeout
	if t.screenshotCalls <= t.screenshotFailures {
		if t.onScreenshotFail != nil {
			t.onScreenshotFail()
		}
		return nil, errors.New("target page, context or browser has been closed")
	}
	return t.screenshot, nil
}

// harness wires a fake driver stack into a session.
type harness struct {
	rec     *recorder
	driver  *fakeDriver
	browser *fakeBrowser
	ctx     *fakeContext

	factoryErr   error
	factoryCalls int
}

func newHarness() *harness {
	rec := &recorder{}
	ctx := &fakeContext{rec: rec}
	browser := &fakeBrowser{rec: rec, ctx: ctx}
	return &harness{
		rec:     rec,
		ctx:     ctx,
		browser: browser,
		driver:  &fakeDriver{rec: rec, browser: browser},
	}
}

func (h *harness) factory() (Driver, error) {
	h.factoryCalls++
	if h.factoryErr != nil {
		return nil, h.factoryErr
	}
	return h.driver, nil
}

// firstTab queues the tab the session will open first.
func (h *harness) firstTab(url, html string) *fakeTab {
	tab := newFakeTab(h.rec, "main")
	tab.url = url
	tab.html = html
	h.ctx.queued = append(h.ctx.queued, tab)
	return tab
}

func testOptions() SessionOptions {
	return SessionOptions{
		Headless:           true,
		Timeout:            250 * time.Millisecond,
		AssertTimeout:      40 * time.Millisecond,
		PollInterval:       5 * time.Millisecond,
		ScreenshotAttempts: DefaultScreenshotAttempts,
		CaptureScreenshots: true,
	}
}

func testDistillerConfig() DistillerConfig {
	return DistillerConfig{Logger: logging.Discard("distiller")}
}

func (h *harness) session(t *testing.T, variant Variant, opts SessionOptions) *Session {
	t.Helper()
	s, err := NewSession(opts, variant,
		WithDriverFactory(h.factory),
		WithLogger(logging.Discard("browser")),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}
