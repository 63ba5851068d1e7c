package browser

import "errors"

var (
	// ErrPageNotLoaded is returned when content is requested while the
	// current tab still shows the blank placeholder.
	ErrPageNotLoaded = errors.New("no page loaded yet")

	// ErrContextDestroyed marks a script evaluation aborted because the
	// page navigated and destroyed its execution context.
	ErrContextDestroyed = errors.New("execution context destroyed")

	// ErrTimeout marks a driver operation that exceeded its timeout.
	ErrTimeout = errors.New("browser operation timed out")

	// ErrSessionClosed is returned when an operation is submitted to a
	// loop that stopped before accepting it.
	ErrSessionClosed = errors.New("browser session closed")
)
