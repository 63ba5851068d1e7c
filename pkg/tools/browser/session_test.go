package browser

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/entrhq/qa-browser/pkg/config"
	"github.com/entrhq/qa-browser/pkg/logging"
)

func TestSessionStartsLazily(t *testing.T) {
	h := newHarness()
	h.firstTab(blankURL, "")
	opts := testOptions()
	opts.Viewport = Viewport{Width: 800, Height: 600}

	s := h.session(t, FullVariant(testDistillerConfig()), opts)
	assert.Zero(t, h.factoryCalls)

	_, err := s.Navigate("https://shop.test/")
	require.NoError(t, err)

	assert.Equal(t, 1, h.factoryCalls)
	assert.Equal(t, []string{"launch headless=true", "new context", "new tab main"}, h.rec.events)
	assert.Equal(t, Viewport{Width: 800, Height: 600}, h.browser.lastOpts.Viewport)
	assert.True(t, h.browser.lastOpts.IgnoreHTTPSErrors)
	assert.Empty(t, h.ctx.initScripts)
}

func TestSessionInstallsStealthScript(t *testing.T) {
	h := newHarness()
	opts := testOptions()
	opts.Stealth = true

	s := h.session(t, FullVariant(testDistillerConfig()), opts)
	_, err := s.CountElements("a")
	require.NoError(t, err)

	require.Len(t, h.ctx.initScripts, 1)
	assert.Equal(t, stealthScript, h.ctx.initScripts[0])
	assert.Contains(t, h.ctx.initScripts[0], "webdriver")
}

func TestCloseIsIdempotent(t *testing.T) {
	defer goleak.VerifyNone(t)

	h := newHarness()
	s, err := NewSession(testOptions(), FullVariant(testDistillerConfig()),
		WithDriverFactory(h.factory), WithLogger(logging.Discard("browser")))
	require.NoError(t, err)

	// Nothing was ever opened.
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())
	assert.Zero(t, h.factoryCalls)

	_, err = s.Navigate("https://shop.test/")
	require.NoError(t, err)

	require.NoError(t, s.Close())
	require.NoError(t, s.Close())
	assert.Equal(t, []string{
		"launch headless=true", "new context", "new tab tab1",
		"close tab tab1", "close context", "close browser", "stop driver",
	}, h.rec.events)
}

func TestTeardownContinuesPastFailures(t *testing.T) {
	h := newHarness()
	tab := h.firstTab("https://shop.test/", "")
	tab.closeErr = errors.New("tab gone")
	h.ctx.closeErr = errors.New("context gone")
	h.browser.closeErr = errors.New("browser gone")

	s := h.session(t, FullVariant(testDistillerConfig()), testOptions())
	_, err := s.CountElements("a")
	require.NoError(t, err)

	err = s.Close()
	require.Error(t, err)
	for _, want := range []string{"tab gone", "context gone", "browser gone"} {
		assert.Contains(t, err.Error(), want)
	}
	assert.Equal(t, []string{
		"close tab main", "close context", "close browser", "stop driver",
	}, h.rec.events[3:])

	require.NoError(t, s.Close())
}

func TestFailedStartReleasesPartialResources(t *testing.T) {
	h := newHarness()
	h.browser.contextErr = errors.New("no context for you")

	s := h.session(t, FullVariant(testDistillerConfig()), testOptions())
	_, err := s.Navigate("https://shop.test/")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no context for you")
	assert.Equal(t, []string{"launch headless=true", "new context", "close browser", "stop driver"}, h.rec.events)

	// The next call starts again from scratch.
	h.browser.contextErr = nil
	got, err := s.Navigate("https://shop.test/")
	require.NoError(t, err)
	assert.Contains(t, got, "Navigating to https://shop.test/")
	assert.Equal(t, 2, h.factoryCalls)
}

func TestLostBrowserIsRelaunched(t *testing.T) {
	h := newHarness()
	tab := h.firstTab(blankURL, "")

	s := h.session(t, FullVariant(testDistillerConfig()), testOptions())
	_, err := s.Navigate("https://shop.test/")
	require.NoError(t, err)

	// The browser dies: the only tab is gone and no new one can be opened.
	tab.closed = true
	h.ctx.newTabErr = errors.New("browser has been closed")
	_, err = s.Navigate("https://shop.test/cart")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "browser has been closed")
	assert.Contains(t, h.rec.events, "close context")
	assert.Contains(t, h.rec.events, "stop driver")

	h.ctx.newTabErr = nil
	h.firstTab(blankURL, "")
	got, err := s.Navigate("https://shop.test/cart")
	require.NoError(t, err)
	assert.Contains(t, got, "Navigating to https://shop.test/cart")
	assert.Equal(t, 2, h.factoryCalls)
	assert.Equal(t, 2, h.driver.launches)
}

func TestDriverFailureIsFatal(t *testing.T) {
	h := newHarness()
	h.factoryErr = errors.New("playwright missing")

	s := h.session(t, FullVariant(testDistillerConfig()), testOptions())
	_, err := s.Click("#go")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "playwright missing")
}

func TestFinishThenLazyRelaunch(t *testing.T) {
	defer goleak.VerifyNone(t)

	h := newHarness()
	h.firstTab(blankURL, "")
	s, err := NewSession(testOptions(), VisibleOnlyVariant(testDistillerConfig()),
		WithDriverFactory(h.factory), WithLogger(logging.Discard("browser")))
	require.NoError(t, err)

	_, err = s.Navigate("https://shop.test/")
	require.NoError(t, err)

	got, err := s.Finish()
	require.NoError(t, err)
	assert.Equal(t, "Session finished.", got)
	assert.Contains(t, h.rec.events, "stop driver")

	got, err = s.Navigate("https://shop.test/again")
	require.NoError(t, err)
	assert.Contains(t, got, "https://shop.test/again")
	assert.Equal(t, 2, h.factoryCalls)
	require.Len(t, h.ctx.opened, 2)
	assert.Equal(t, "https://shop.test/again", h.ctx.opened[1].url)

	require.NoError(t, s.Close())
}

func TestFinishUnsupportedOnFullVariant(t *testing.T) {
	h := newHarness()
	s := h.session(t, FullVariant(testDistillerConfig()), testOptions())

	_, err := s.Finish()
	assert.Error(t, err)
}

func TestContextSnapshotWithoutPage(t *testing.T) {
	h := newHarness()
	h.firstTab(blankURL, "")

	s := h.session(t, VisibleOnlyVariant(testDistillerConfig()), testOptions())
	snap, err := s.ContextSnapshot()
	require.NoError(t, err)

	assert.Nil(t, snap.Page)
	assert.Contains(t, snap.Text, "No page loaded yet.")
	assert.Contains(t, snap.Text, "The browser is empty")
}

func TestContextSnapshotFollowsPopupDuringClick(t *testing.T) {
	h := newHarness()
	main := h.firstTab("https://shop.test/", `<html><body><a id="help">Help</a><p>Main page</p></body></html>`)
	main.counts["#help"] = 1

	popup := newFakeTab(h.rec, "popup")
	popup.url = "https://shop.test/help"
	popup.html = `<html><body><h1>Help center</h1></body></html>`
	main.onClick = func() { main.openPopup(popup) }

	s := h.session(t, FullVariant(testDistillerConfig()), testOptions())

	got, err := s.Click("#help")
	require.NoError(t, err)
	assert.Equal(t, outcomeClicked, got)

	snap, err := s.ContextSnapshot()
	require.NoError(t, err)
	assert.Contains(t, snap.Text, "Help center")
	assert.Equal(t, "https://shop.test/help", snap.Page.URL)
	assert.Equal(t, []byte("png:popup"), snap.Screenshot)

	popup.closed = true

	snap, err = s.ContextSnapshot()
	require.NoError(t, err)
	assert.Contains(t, snap.Text, "Main page")
	assert.NotContains(t, snap.Text, "Help center")
	assert.Equal(t, []byte("png:main"), s.Screenshot())
}

func TestScreenshotGivesUpSilently(t *testing.T) {
	h := newHarness()
	tab := h.firstTab("https://shop.test/", "<html><body>ok</body></html>")
	tab.screenshotFailures = 1000

	s := h.session(t, FullVariant(testDistillerConfig()), testOptions())
	snap, err := s.ContextSnapshot()
	require.NoError(t, err)

	assert.Equal(t, DefaultScreenshotAttempts, tab.screenshotCalls)
	assert.Equal(t, 250.0, tab.screenshotTimeout)
	assert.Nil(t, snap.Screenshot)
	assert.Nil(t, s.Screenshot())
	assert.Contains(t, snap.Text, "ok")
}

func TestScreenshotRetriesOnReplacementTab(t *testing.T) {
	h := newHarness()
	tab := h.firstTab("https://shop.test/", "")
	tab.screenshotFailures = 1000
	tab.onScreenshotFail = func() { tab.closed = true }

	s := h.session(t, FullVariant(testDistillerConfig()), testOptions())
	require.NoError(t, s.CaptureScreenshot())

	assert.Equal(t, 1, tab.screenshotCalls)
	require.Len(t, h.ctx.opened, 2)
	assert.Equal(t, []byte("png:tab2"), s.Screenshot())

	// The returned buffer is a copy.
	buf := s.Screenshot()
	buf[0] = 'X'
	assert.Equal(t, []byte("png:tab2"), s.Screenshot())
}

func TestConcurrentCallsAreSerialized(t *testing.T) {
	h := newHarness()
	tab := h.firstTab("https://shop.test/", "")
	tab.counts["li"] = 2

	s := h.session(t, FullVariant(testDistillerConfig()), testOptions())

	const callers = 20
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			n, err := s.CountElements("li")
			assert.NoError(t, err)
			assert.Equal(t, 2, n)
		}()
	}
	wg.Wait()

	assert.Equal(t, callers, tab.countCalls)
}

func TestOptionsFromConfig(t *testing.T) {
	settings := config.NewBrowserSection().Snapshot()
	settings.AllowedHosts = []string{"*.shop.test"}

	opts := OptionsFromConfig(settings)
	assert.Equal(t, settings.Headless, opts.Headless)
	assert.Equal(t, Viewport{Width: settings.ViewportWidth, Height: settings.ViewportHeight}, opts.Viewport)
	assert.Equal(t, settings.ActionTimeout, opts.Timeout)
	assert.Equal(t, settings.ScreenshotAttempts, opts.ScreenshotAttempts)
	assert.Equal(t, []string{"*.shop.test"}, opts.AllowedHosts)
	assert.True(t, opts.Stealth)
}

func TestNewSessionRequiresCompleteVariant(t *testing.T) {
	_, err := NewSession(testOptions(), Variant{Name: "empty"})
	assert.Error(t, err)
}
