package browser

import (
	"errors"
	"fmt"

	"github.com/go-rod/stealth"

	"github.com/entrhq/qa-browser/pkg/logging"
)

// DOM markers written by the annotation pass.
const (
	attrVisible    = "data-playwright-visible"
	attrScrollable = "data-playwright-scrollable"
	attrValue      = "data-playwright-value"
	attrFocused    = "data-playwright-focused"
)

// annotateScript re-marks the document from scratch on every run, so two
// runs over an unchanged DOM leave identical markers.
const annotateScript = `() => {
  const VISIBLE = 'data-playwright-visible';
  const SCROLLABLE = 'data-playwright-scrollable';
  const VALUE = 'data-playwright-value';
  const FOCUSED = 'data-playwright-focused';

  for (const attr of [VISIBLE, SCROLLABLE, FOCUSED]) {
    document.querySelectorAll('[' + attr + ']').forEach(el => el.removeAttribute(attr));
  }

  const viewH = window.innerHeight || document.documentElement.clientHeight;
  const viewW = window.innerWidth || document.documentElement.clientWidth;

  const isVisible = (el) => {
    const rect = el.getBoundingClientRect();
    if (rect.width <= 0 || rect.height <= 0) return false;
    const vertical = rect.bottom >= 0 && rect.top <= viewH;
    const horizontal = rect.right >= 0 && rect.left <= viewW;
    if (!vertical || !horizontal) return false;
    const style = window.getComputedStyle(el);
    return style.opacity !== '0' && style.visibility !== 'hidden';
  };

  const isScrollable = (el) => {
    if (el === document.body) {
      return document.documentElement.scrollHeight > window.innerHeight;
    }
    if (el.scrollHeight <= el.clientHeight) return false;
    const style = window.getComputedStyle(el);
    return /(auto|scroll)/.test(style.overflow + style.overflowY);
  };

  document.querySelectorAll('*').forEach(el => {
    if (isVisible(el)) el.setAttribute(VISIBLE, 'true');
  });

  document.querySelectorAll('[' + VISIBLE + ']').forEach(el => {
    if (isScrollable(el)) el.setAttribute(SCROLLABLE, 'true');
  });

  document.querySelectorAll('input, textarea, select').forEach(el => {
    el.setAttribute(VALUE, el.value);
  });

  const active = document.activeElement;
  if (active && active !== document.body && active !== document.documentElement) {
    active.setAttribute(FOCUSED, 'true');
  }
}`

// selectorAtScript builds a CSS path for the element at a viewport point.
const selectorAtScript = `([x, y]) => {
  const element = document.elementFromPoint(x, y);
  if (!element) return '';

  let path = '';
  for (let current = element; current && current !== document.body; current = current.parentElement) {
    let selector = current.localName;
    if (current.id) {
      selector += '#' + CSS.escape(current.id);
    }
    if (current.className && typeof current.className === 'string') {
      const classes = current.className.trim().split(/\s+/).map(c => CSS.escape(c)).join('.');
      if (classes) selector += '.' + classes;
    }
    const testId = current.getAttribute('data-test-id');
    if (testId) {
      selector += "[data-test-id='" + testId + "']";
    }
    path = selector + (path ? ' > ' + path : '');
  }
  return 'body' + (path ? ' > ' + path : '');
}`

// stealthScript hides the automation fingerprint (navigator.webdriver and
// friends) from every document in the context.
var stealthScript = stealth.JS

// annotate runs the marker pass on tab. A pass aborted by navigation is
// retried exactly once after the new document at the same URL has loaded.
func annotate(tab Tab, logger *logging.Logger) error {
	_, err := tab.Evaluate(annotateScript)
	if err == nil {
		return nil
	}
	if !errors.Is(err, ErrContextDestroyed) {
		return fmt.Errorf("annotation failed: %w", err)
	}

	logger.Warnf("execution context destroyed during annotation of %s, waiting for navigation", tab.URL())
	if err := tab.WaitForURL(tab.URL()); err != nil {
		return fmt.Errorf("waiting for navigation after context loss: %w", err)
	}
	if _, err := tab.Evaluate(annotateScript); err != nil {
		return fmt.Errorf("annotation failed after retry: %w", err)
	}
	return nil
}
