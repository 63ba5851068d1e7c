package browser

// blankURL is the address of a tab that has not navigated anywhere.
const blankURL = "about:blank"

// LaunchOptions configures the browser process.
type LaunchOptions struct {
	Headless bool
}

// ContextOptions configures a browsing context.
type ContextOptions struct {
	Viewport          Viewport
	IgnoreHTTPSErrors bool
}

// Viewport represents the browser viewport dimensions.
type Viewport struct {
	Width  int
	Height int
}

// Driver is the browser-automation capability the session is built on.
// The playwright-go adapter is the production implementation.
type Driver interface {
	Launch(opts LaunchOptions) (Browser, error)
	Stop() error
}

// Browser is a running browser process.
type Browser interface {
	NewContext(opts ContextOptions) (BrowsingContext, error)
	Close() error
}

// BrowsingContext is an isolated set of tabs sharing cookies and storage.
type BrowsingContext interface {
	NewTab() (Tab, error)
	AddInitScript(script string) error
	Close() error
}

// Tab is one browser tab or popup. Timeouts are in milliseconds.
//
// Errors returned by a Tab wrap ErrTimeout or ErrContextDestroyed when the
// driver reports those conditions.
type Tab interface {
	URL() string
	IsClosed() bool
	Close() error

	// OnPopup registers fn to be called with every tab this tab opens.
	// fn may run on a driver goroutine.
	OnPopup(fn func(Tab))

	// Goto navigates and waits for DOMContentLoaded. It returns the HTTP
	// status of the main response, or 0 when there was none.
	Goto(url string, timeout float64) (int, error)
	WaitForLoad() error
	WaitForURL(url string) error

	Count(selector string) (int, error)
	Click(selector string, timeout float64) error
	Fill(selector, value string, timeout float64) error
	TextContents(selector string) ([]string, error)

	Evaluate(expression string, args ...interface{}) (interface{}, error)
	Content() (string, error)
	Screenshot(timeout float64) ([]byte, error)
}

// DriverFactory starts a Driver. It is called lazily on first use and
// again after every teardown.
type DriverFactory func() (Driver, error)
