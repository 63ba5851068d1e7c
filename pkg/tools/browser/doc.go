// Package browser drives a real browser on behalf of a QA agent and turns
// the live page into compact, annotated HTML the agent can reason over.
//
// # Architecture
//
// The package is built around a single Session:
//
//  1. SessionStack: tracks the open tabs; popups are pushed on top of the
//     tab that opened them and closed tabs are popped off
//  2. ContentDistiller: annotates the DOM with visibility, scrollability,
//     focus and value markers, then strips it down to a bounded size
//  3. Actions: navigate, click, fill, assert and finish, each reported as
//     text rather than as an error
//  4. Variant: the selector policy and distiller pair that separates the
//     "full" session from the "visible_only" one
//
// # Session Lifecycle
//
// Nothing is started when a session is created. The first operation
// launches the driver, a Chromium browser, a browsing context and a tab.
// Close (or the finish action) releases them again, tabs first and the
// driver last, and the next operation starts over.
//
// # Concurrency
//
// Every operation runs on a goroutine owned by the session, one at a
// time, while the caller waits for its result. Popup events from the
// driver are queued and applied to the stack by the next operation.
//
// # Example Usage
//
//	variant := browser.VisibleOnlyVariant(browser.DistillerConfig{MaxTokens: 16000})
//	session, err := browser.NewSession(browser.SessionOptions{Headless: true}, variant)
//	if err != nil {
//	    return err
//	}
//	defer session.Close()
//
//	outcome, err := session.Navigate("https://example.com")
//	outcome, err = session.Click("text=More information")
//	snapshot, err := session.ContextSnapshot()
package browser
