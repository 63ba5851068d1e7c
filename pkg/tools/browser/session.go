package browser

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gobwas/glob"

	"github.com/entrhq/qa-browser/pkg/config"
	"github.com/entrhq/qa-browser/pkg/logging"
)

// Default values for session configuration
const (
	DefaultViewportWidth      = 1280
	DefaultViewportHeight     = 720
	DefaultActionTimeout      = 5 * time.Second
	DefaultNavigationTimeout  = 30 * time.Second
	DefaultAssertTimeout      = 5 * time.Second
	DefaultPollInterval       = 100 * time.Millisecond
	DefaultScreenshotAttempts = 50
)

// SessionOptions configures a browser session.
type SessionOptions struct {
	// Headless controls whether the browser runs without a visible window
	Headless bool

	// Viewport sets the viewport size of every tab
	Viewport Viewport

	// Timeout bounds a single click, fill or screenshot attempt
	Timeout time.Duration

	// NavigationTimeout bounds a navigation until DOMContentLoaded
	NavigationTimeout time.Duration

	// AssertTimeout bounds the polling of a text assertion
	AssertTimeout time.Duration
	PollInterval  time.Duration

	// ScreenshotAttempts bounds the retries of a screenshot racing a tab
	// replacement
	ScreenshotAttempts int
	CaptureScreenshots bool

	// AllowedHosts holds glob patterns ("*.example.com"); empty allows all
	AllowedHosts []string

	// Stealth installs the automation fingerprint evasions in every tab
	Stealth bool
}

// OptionsFromConfig maps the browser config section onto session options.
func OptionsFromConfig(settings config.BrowserSettings) SessionOptions {
	return SessionOptions{
		Headless: settings.Headless,
		Viewport: Viewport{
			Width:  settings.ViewportWidth,
			Height: settings.ViewportHeight,
		},
		Timeout:            settings.ActionTimeout,
		NavigationTimeout:  settings.NavigationTimeout,
		AssertTimeout:      settings.AssertTimeout,
		PollInterval:       settings.PollInterval,
		ScreenshotAttempts: settings.ScreenshotAttempts,
		CaptureScreenshots: settings.CaptureScreenshots,
		AllowedHosts:       settings.AllowedHosts,
		Stealth:            settings.Stealth,
	}
}

func (o *SessionOptions) applyDefaults() {
	if o.Viewport.Width <= 0 || o.Viewport.Height <= 0 {
		o.Viewport = Viewport{Width: DefaultViewportWidth, Height: DefaultViewportHeight}
	}
	if o.Timeout <= 0 {
		o.Timeout = DefaultActionTimeout
	}
	if o.NavigationTimeout <= 0 {
		o.NavigationTimeout = DefaultNavigationTimeout
	}
	if o.AssertTimeout <= 0 {
		o.AssertTimeout = DefaultAssertTimeout
	}
	if o.PollInterval <= 0 {
		o.PollInterval = DefaultPollInterval
	}
	if o.ScreenshotAttempts <= 0 {
		o.ScreenshotAttempts = DefaultScreenshotAttempts
	}
}

// SessionOption is a function that configures a session
type SessionOption func(*Session)

// WithDriverFactory replaces the playwright driver, mainly for tests.
func WithDriverFactory(factory DriverFactory) SessionOption {
	return func(s *Session) {
		s.newDriver = factory
	}
}

// WithLogger sets the logger used by the session and its stack.
func WithLogger(logger *logging.Logger) SessionOption {
	return func(s *Session) {
		s.logger = logger
	}
}

// Session owns one browser and the tabs opened in it. Resources are
// created lazily by the first operation and released by Close or Finish;
// a later operation starts over with a fresh browser.
//
// Every public method is safe for concurrent use. Operations are run one
// at a time on the session's own goroutine and the caller blocks until
// its operation completes.
type Session struct {
	opts      SessionOptions
	variant   Variant
	newDriver DriverFactory
	logger    *logging.Logger
	hosts     []glob.Glob

	mu   sync.Mutex
	loop *loop

	// Owned by the loop goroutine.
	driver  Driver
	browser Browser
	context BrowsingContext
	stack   *SessionStack

	bufMu  sync.Mutex
	buffer []byte
}

// NewSession creates a session. No browser is started until the first
// operation.
func NewSession(opts SessionOptions, variant Variant, options ...SessionOption) (*Session, error) {
	if variant.Policy == nil || variant.Distiller == nil {
		return nil, fmt.Errorf("variant %q is missing a selector policy or distiller", variant.Name)
	}

	opts.applyDefaults()

	s := &Session{
		opts:      opts,
		variant:   variant,
		newDriver: NewPlaywrightDriver,
	}
	for _, opt := range options {
		opt(s)
	}

	if s.logger == nil {
		// NewLogger falls back to stderr on error.
		s.logger, _ = NewSessionLogger()
	}

	for _, pattern := range opts.AllowedHosts {
		g, err := glob.Compile(pattern, '.')
		if err != nil {
			return nil, fmt.Errorf("invalid allowed host pattern %q: %w", pattern, err)
		}
		s.hosts = append(s.hosts, g)
	}

	return s, nil
}

// NewSessionLogger returns the file logger sessions use by default.
func NewSessionLogger() (*logging.Logger, error) {
	return logging.NewLogger("browser")
}

// Variant returns the session's variant.
func (s *Session) Variant() Variant {
	return s.variant
}

// Close releases every browser resource of the session. It is safe to call
// any number of times, including when nothing was ever started.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.loop == nil {
		return nil
	}

	var err error
	s.loop.do(func() {
		err = s.teardown()
	})
	s.loop.stop()
	s.loop = nil
	return err
}

// submit runs fn on the session loop, starting the loop if needed.
func (s *Session) submit(fn func()) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.loop == nil {
		s.loop = newLoop()
	}
	if !s.loop.do(fn) {
		return ErrSessionClosed
	}
	return nil
}

// runOn runs fn on the session loop and returns its results.
func runOn[T any](s *Session, fn func() (T, error)) (T, error) {
	var (
		result T
		err    error
	)
	if submitErr := s.submit(func() {
		result, err = fn()
	}); submitErr != nil {
		return result, submitErr
	}
	return result, err
}

// ensure starts whatever part of driver, browser, context and first tab
// is missing. On failure everything started so far is released so the
// next call begins from scratch.
func (s *Session) ensure() (*SessionStack, error) {
	if s.stack != nil {
		return s.stack, nil
	}

	if err := s.start(); err != nil {
		if teardownErr := s.teardown(); teardownErr != nil {
			s.logger.Warnf("cleanup after failed start: %v", teardownErr)
		}
		return nil, err
	}
	return s.stack, nil
}

func (s *Session) start() error {
	s.logger.Infof("starting browser (headless=%v, variant=%s)", s.opts.Headless, s.variant.Name)

	driver, err := s.newDriver()
	if err != nil {
		return fmt.Errorf("failed to start browser driver: %w", err)
	}
	s.driver = driver

	browser, err := driver.Launch(LaunchOptions{Headless: s.opts.Headless})
	if err != nil {
		return fmt.Errorf("failed to launch browser: %w", err)
	}
	s.browser = browser

	ctx, err := browser.NewContext(ContextOptions{
		Viewport:          s.opts.Viewport,
		IgnoreHTTPSErrors: true,
	})
	if err != nil {
		return fmt.Errorf("failed to create browsing context: %w", err)
	}
	s.context = ctx

	if s.opts.Stealth {
		if err := ctx.AddInitScript(stealthScript); err != nil {
			return fmt.Errorf("failed to install stealth script: %w", err)
		}
	}

	tab, err := ctx.NewTab()
	if err != nil {
		return fmt.Errorf("failed to open first tab: %w", err)
	}

	s.stack = NewSessionStack(tab, ctx.NewTab, s.logger.With("stack"))
	return nil
}

// teardown releases tabs, context, browser and driver in that order. Every
// step runs even when an earlier one failed; the failures are joined.
func (s *Session) teardown() error {
	var errs []error

	if s.stack != nil {
		if err := s.stack.CloseAll(); err != nil {
			errs = append(errs, fmt.Errorf("close tabs: %w", err))
		}
	}
	if s.context != nil {
		if err := s.context.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close context: %w", err))
		}
	}
	if s.browser != nil {
		if err := s.browser.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close browser: %w", err))
		}
	}
	if s.driver != nil {
		if err := s.driver.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("stop driver: %w", err))
		}
	}

	s.stack = nil
	s.context = nil
	s.browser = nil
	s.driver = nil
	s.setBuffer(nil)

	err := errors.Join(errs...)
	if err != nil {
		s.logger.Warnf("teardown finished with errors: %v", err)
	} else {
		s.logger.Infof("browser session released")
	}
	return err
}

// current returns the active tab, starting the session if needed. When no
// tab can be opened the browser is considered lost and is released, so the
// next call relaunches it.
func (s *Session) current() (Tab, error) {
	stack, err := s.ensure()
	if err != nil {
		return nil, err
	}

	tab, err := stack.Current()
	if err != nil {
		s.logger.Errorf("browser lost, releasing session: %v", err)
		if teardownErr := s.teardown(); teardownErr != nil {
			s.logger.Warnf("cleanup after lost browser: %v", teardownErr)
		}
		return nil, err
	}
	return tab, nil
}

func (s *Session) setBuffer(buf []byte) {
	s.bufMu.Lock()
	defer s.bufMu.Unlock()
	s.buffer = buf
}

// milliseconds converts d to the driver's timeout unit.
func milliseconds(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
