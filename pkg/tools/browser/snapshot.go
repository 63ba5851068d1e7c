package browser

import (
	"errors"
	"fmt"
)

const contextTemplate = "Here is the HTML of the current page:\n\n```html\n%s\n```\n\nAnd here is a description of the page:\n```text\n%s\n```"

const (
	noPageHTML        = "No page loaded yet."
	noPageDescription = "The browser is empty"
)

// Snapshot is what the agent sees of the browser before its next step.
type Snapshot struct {
	// Text is the distilled page wrapped in the context template.
	Text string

	// Screenshot is the screenshot captured with this snapshot, if any.
	Screenshot []byte

	// Page is nil when no page has been loaded yet.
	Page *DistilledPage
}

// ContextSnapshot captures a screenshot (best effort) and distils the
// current tab. A blank tab yields the "No page loaded yet." text rather
// than an error.
func (s *Session) ContextSnapshot() (*Snapshot, error) {
	return runOn(s, s.contextSnapshot)
}

func (s *Session) contextSnapshot() (*Snapshot, error) {
	if s.opts.CaptureScreenshots {
		if err := s.captureScreenshot(); err != nil {
			return nil, err
		}
	}

	tab, err := s.current()
	if err != nil {
		return nil, err
	}

	page, err := s.variant.Distiller.Distill(tab)
	if errors.Is(err, ErrPageNotLoaded) {
		return &Snapshot{
			Text:       formatContext(noPageHTML, noPageDescription),
			Screenshot: s.Screenshot(),
		}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to distil %s: %w", tab.URL(), err)
	}

	return &Snapshot{
		Text:       formatContext(page.HTML, describePage(page)),
		Screenshot: s.Screenshot(),
		Page:       page,
	}, nil
}

func describePage(page *DistilledPage) string {
	if page.Title == "" {
		return fmt.Sprintf("Page at %s", page.URL)
	}
	return fmt.Sprintf("%s (%s)", page.Title, page.URL)
}

func formatContext(html, description string) string {
	return fmt.Sprintf(contextTemplate, html, description)
}
