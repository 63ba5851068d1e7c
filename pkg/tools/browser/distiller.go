package browser

import (
	"fmt"

	"github.com/entrhq/qa-browser/pkg/llm/tokenizer"
	"github.com/entrhq/qa-browser/pkg/logging"
)

// truncationNotice ends a document cut to the token budget.
const truncationNotice = "\n[Content truncated to %d tokens. Scroll or narrow the page to see more.]"

// DistilledPage is the cleaned form of one tab's DOM. It is derived fresh
// on every request.
type DistilledPage struct {
	URL       string
	Title     string
	HTML      string
	Tokens    int
	Truncated bool
}

// ContentDistiller turns the live DOM of a tab into compact annotated HTML.
type ContentDistiller struct {
	visibleOnly bool
	tokenizer   *tokenizer.Tokenizer
	maxTokens   int
	logger      *logging.Logger
}

// NewContentDistiller creates a distiller. A visibleOnly distiller
// annotates the page and keeps only marked elements. MaxTokens of zero
// disables the token bound.
func NewContentDistiller(visibleOnly bool, cfg DistillerConfig) *ContentDistiller {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Discard("distiller")
	}
	return &ContentDistiller{
		visibleOnly: visibleOnly,
		tokenizer:   cfg.Tokenizer,
		maxTokens:   cfg.MaxTokens,
		logger:      logger,
	}
}

// Annotate refreshes the DOM markers on tab. It is a no-op for the full
// distiller.
func (d *ContentDistiller) Annotate(tab Tab) error {
	if !d.visibleOnly {
		return nil
	}
	return annotate(tab, d.logger)
}

// Distill annotates, extracts and cleans the document shown in tab.
// It returns ErrPageNotLoaded while tab is still blank.
func (d *ContentDistiller) Distill(tab Tab) (*DistilledPage, error) {
	url := tab.URL()
	if url == blankURL {
		return nil, ErrPageNotLoaded
	}

	if err := d.Annotate(tab); err != nil {
		return nil, err
	}

	raw, err := tab.Content()
	if err != nil {
		return nil, fmt.Errorf("failed to read page content: %w", err)
	}

	cleaned, err := cleanHTML(raw, d.visibleOnly)
	if err != nil {
		return nil, err
	}

	page := &DistilledPage{
		URL:   url,
		Title: cleaned.Title,
		HTML:  cleaned.HTML,
	}

	if d.maxTokens > 0 {
		text, truncated := d.tokenizer.Truncate(page.HTML, d.maxTokens)
		if truncated {
			d.logger.Infof("distilled %s truncated to %d tokens", url, d.maxTokens)
			text += fmt.Sprintf(truncationNotice, d.maxTokens)
			page.Truncated = true
		}
		page.HTML = text
	}
	page.Tokens = d.tokenizer.CountTokens(page.HTML)

	return page, nil
}
