package browser

import (
	"errors"
	"fmt"
	"sync"

	"github.com/entrhq/qa-browser/pkg/logging"
)

// popupInbox collects tabs reported by popup events. Events arrive on
// driver goroutines; the stack only reads the inbox from the session loop.
type popupInbox struct {
	mu     sync.Mutex
	popups []Tab
}

func (in *popupInbox) add(tab Tab) {
	in.mu.Lock()
	defer in.mu.Unlock()
	in.popups = append(in.popups, tab)
}

func (in *popupInbox) drain() []Tab {
	in.mu.Lock()
	defer in.mu.Unlock()
	popups := in.popups
	in.popups = nil
	return popups
}

// SessionStack tracks the open tabs of a session. The last element is the
// current tab; a popup is pushed above the tab that opened it so closing
// the popup reveals its opener again.
//
// SessionStack is not safe for concurrent use; the session loop owns it.
type SessionStack struct {
	tabs   []Tab
	open   func() (Tab, error)
	inbox  *popupInbox
	logger *logging.Logger
}

// NewSessionStack creates a stack whose first tab is first. open creates a
// fresh tab when every tracked tab has closed.
func NewSessionStack(first Tab, open func() (Tab, error), logger *logging.Logger) *SessionStack {
	s := &SessionStack{
		open:   open,
		inbox:  &popupInbox{},
		logger: logger,
	}
	s.push(first)
	return s
}

// Current returns the active tab. Pending popups are applied first, then
// closed tabs are popped off the top; if none remain a new tab is opened.
// It only fails when a new tab cannot be created.
func (s *SessionStack) Current() (Tab, error) {
	for _, popup := range s.inbox.drain() {
		s.PushPopup(popup)
	}

	for len(s.tabs) > 0 {
		top := s.tabs[len(s.tabs)-1]
		if !top.IsClosed() {
			return top, nil
		}
		s.tabs = s.tabs[:len(s.tabs)-1]
		s.logger.Debugf("popped closed tab, depth now %d", len(s.tabs))
	}

	tab, err := s.open()
	if err != nil {
		return nil, fmt.Errorf("failed to replace closed tabs: %w", err)
	}
	s.logger.Infof("all tabs closed, opened a new one")
	s.push(tab)
	return tab, nil
}

// PushPopup makes tab the current tab, keeping the previous one below it.
// A popup that already closed is ignored.
func (s *SessionStack) PushPopup(tab Tab) {
	if tab.IsClosed() {
		s.logger.Debugf("ignoring popup that closed before it was tracked")
		return
	}
	if err := tab.WaitForLoad(); err != nil {
		s.logger.Warnf("popup did not finish loading: %v", err)
	}
	s.push(tab)
	s.logger.Infof("popup opened at %s, depth now %d", tab.URL(), len(s.tabs))
}

// CloseAll closes every tracked tab from the top down. Tabs that already
// report closed are skipped; a failure never stops the remaining closes.
func (s *SessionStack) CloseAll() error {
	// Popups that arrived since the last lookup are still open tabs.
	for _, popup := range s.inbox.drain() {
		s.tabs = append(s.tabs, popup)
	}

	var errs []error
	for i := len(s.tabs) - 1; i >= 0; i-- {
		tab := s.tabs[i]
		if tab.IsClosed() {
			continue
		}
		if err := tab.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close tab %d: %w", i, err))
		}
	}
	s.tabs = nil
	return errors.Join(errs...)
}

// Depth returns the number of tracked tabs, including closed ones not yet
// popped.
func (s *SessionStack) Depth() int {
	return len(s.tabs)
}

func (s *SessionStack) push(tab Tab) {
	tab.OnPopup(s.inbox.add)
	s.tabs = append(s.tabs, tab)
}
