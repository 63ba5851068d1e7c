package browser

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Outcome texts the agent reads back as observations.
const (
	outcomeClicked      = "Element clicked successfully."
	outcomeFilled       = "Text input was successfully performed."
	outcomeAsserted     = "Successfully validated the assertion."
	outcomeFinished     = "Session finished."
	clickFailedPrefix   = "Unable to click on element. "
	fillFailedPrefix    = "Unable to fill element. "
	assertFailedPrefix  = "Unable to validate the assertion. "
	msgAmbiguous        = "Selector returned more than one element."
	msgNotFoundTemplate = "No element found for selector: %s"
)

// defaultAssertSelector makes an assertion consider the whole document.
const defaultAssertSelector = "html"

// Navigate loads url in the current tab and waits for the DOM to be
// parsed. Failures are reported in the returned text; the error is only
// set when the browser itself could not be started.
func (s *Session) Navigate(rawURL string) (string, error) {
	return runOn(s, func() (string, error) {
		return s.navigate(rawURL)
	})
}

func (s *Session) navigate(rawURL string) (string, error) {
	if !s.hostAllowed(rawURL) {
		s.logger.Warnf("navigation to %s blocked by allowed hosts", rawURL)
		return fmt.Sprintf("Unable to navigate to %s. The host is not in the allowed hosts list.", rawURL), nil
	}

	tab, err := s.current()
	if err != nil {
		return "", err
	}

	status, err := tab.Goto(rawURL, milliseconds(s.opts.NavigationTimeout))
	if err != nil {
		s.logger.Warnf("navigation to %s failed: %v", rawURL, err)
		return fmt.Sprintf("Unable to navigate to %s.", rawURL), nil
	}

	code := "unknown"
	if status > 0 {
		code = strconv.Itoa(status)
	}
	s.logger.Infof("navigated to %s (status %s)", rawURL, code)
	return fmt.Sprintf("Navigating to %s returned status code %s", rawURL, code), nil
}

// hostAllowed checks rawURL against the allowed host patterns.
func (s *Session) hostAllowed(rawURL string) bool {
	if len(s.hosts) == 0 {
		return true
	}
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return false
	}
	host := strings.ToLower(u.Hostname())
	for _, g := range s.hosts {
		if g.Match(host) {
			return true
		}
	}
	return false
}

// Click clicks the single element matching selector. It never clicks when
// the selector matches no element or more than one.
func (s *Session) Click(selector string) (string, error) {
	return runOn(s, func() (string, error) {
		return s.click(selector)
	})
}

func (s *Session) click(selector string) (string, error) {
	tab, err := s.current()
	if err != nil {
		return "", err
	}

	selector = s.resolve(tab, selector)
	if problem := s.requireSingle(tab, selector); problem != "" {
		return clickFailedPrefix + problem, nil
	}

	err = tab.Click(selector, milliseconds(s.opts.Timeout))
	switch {
	case errors.Is(err, ErrTimeout):
		return fmt.Sprintf("Element did not become clickable within %.0fms. It might be obscured by another element.",
			milliseconds(s.opts.Timeout)), nil
	case err != nil:
		s.logger.Warnf("click on %s failed: %v", selector, err)
		return clickFailedPrefix + err.Error(), nil
	}
	return outcomeClicked, nil
}

// FillText sets the value of the single element matching selector.
func (s *Session) FillText(selector, text string) (string, error) {
	return runOn(s, func() (string, error) {
		return s.fillText(selector, text)
	})
}

func (s *Session) fillText(selector, text string) (string, error) {
	tab, err := s.current()
	if err != nil {
		return "", err
	}

	selector = s.resolve(tab, selector)
	if problem := s.requireSingle(tab, selector); problem != "" {
		return fillFailedPrefix + problem, nil
	}

	if err := tab.Fill(selector, text, milliseconds(s.opts.Timeout)); err != nil {
		s.logger.Warnf("fill on %s failed: %v", selector, err)
		return fillFailedPrefix + err.Error(), nil
	}
	return outcomeFilled, nil
}

// AssertText polls until an element matching selector contains text, or
// the assertion timeout elapses. An empty selector means the whole
// document. Whitespace is collapsed on both sides before comparing.
func (s *Session) AssertText(text, selector string) (string, error) {
	return runOn(s, func() (string, error) {
		return s.assertText(text, selector)
	})
}

func (s *Session) assertText(text, selector string) (string, error) {
	if selector == "" {
		selector = defaultAssertSelector
	}

	tab, err := s.current()
	if err != nil {
		return "", err
	}

	want := normalizeSpace(text)
	deadline := time.Now().Add(s.opts.AssertTimeout)

	var (
		resolved string
		matched  int
		lastErr  error
	)
	for {
		resolved = s.resolve(tab, selector)
		texts, err := tab.TextContents(resolved)
		lastErr = err
		matched = len(texts)
		for _, got := range texts {
			if strings.Contains(normalizeSpace(got), want) {
				return outcomeAsserted, nil
			}
		}

		if !time.Now().Before(deadline) {
			break
		}
		time.Sleep(s.opts.PollInterval)
	}

	switch {
	case lastErr != nil:
		return assertFailedPrefix + lastErr.Error(), nil
	case matched == 0:
		return assertFailedPrefix + fmt.Sprintf(msgNotFoundTemplate, resolved), nil
	default:
		return assertFailedPrefix + fmt.Sprintf("Text %q was not found in %d element(s) matching %s within %v.",
			text, matched, resolved, s.opts.AssertTimeout), nil
	}
}

// Finish tears the session down and reports completion. The next
// operation starts a fresh browser. Only finishable variants support it.
func (s *Session) Finish() (string, error) {
	if !s.variant.Finishable {
		return "", fmt.Errorf("finish is not supported by the %s variant", s.variant.Name)
	}
	if err := s.Close(); err != nil {
		s.logger.Warnf("finish: %v", err)
	}
	return outcomeFinished, nil
}

// SelectorAt returns a CSS path for the element at viewport point (x, y),
// or an empty string when there is none.
func (s *Session) SelectorAt(x, y float64) (string, error) {
	return runOn(s, func() (string, error) {
		tab, err := s.current()
		if err != nil {
			return "", err
		}
		v, err := tab.Evaluate(selectorAtScript, []float64{x, y})
		if err != nil {
			return "", fmt.Errorf("failed to resolve element at (%v, %v): %w", x, y, err)
		}
		selector, _ := v.(string)
		return selector, nil
	})
}

// CountElements returns how many elements the policy-adjusted selector
// matches.
func (s *Session) CountElements(selector string) (int, error) {
	return runOn(s, func() (int, error) {
		tab, err := s.current()
		if err != nil {
			return 0, err
		}
		return tab.Count(s.resolve(tab, selector))
	})
}

// resolve applies the selector policy. Visible-only sessions refresh the
// markers first so they describe the document as it is now.
func (s *Session) resolve(tab Tab, selector string) string {
	if s.variant.VisibleOnly() && tab.URL() != blankURL {
		if err := s.variant.Distiller.Annotate(tab); err != nil {
			s.logger.Warnf("refreshing markers before action: %v", err)
		}
	}
	return s.variant.Policy.Apply(selector)
}

// requireSingle returns a description of why selector does not identify
// exactly one element, or "" when it does.
func (s *Session) requireSingle(tab Tab, selector string) string {
	count, err := tab.Count(selector)
	switch {
	case err != nil:
		return err.Error()
	case count == 0:
		return fmt.Sprintf(msgNotFoundTemplate, selector)
	case count > 1:
		return msgAmbiguous
	}
	return ""
}

func normalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
