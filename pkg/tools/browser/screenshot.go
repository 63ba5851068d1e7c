package browser

// Screenshot returns a copy of the last captured screenshot, or nil when
// none was captured since the session started.
func (s *Session) Screenshot() []byte {
	s.bufMu.Lock()
	defer s.bufMu.Unlock()
	if len(s.buffer) == 0 {
		return nil
	}
	return append([]byte(nil), s.buffer...)
}

// CaptureScreenshot takes a full-page screenshot of the current tab and
// keeps it as the session's last screenshot.
func (s *Session) CaptureScreenshot() error {
	return s.submit(func() {
		if err := s.captureScreenshot(); err != nil {
			s.logger.Warnf("screenshot skipped: %v", err)
		}
	})
}

// captureScreenshot retries while the active tab is being replaced, then
// gives up without an error; the previous screenshot is kept. Each attempt
// is bounded by the action timeout. Only a failure to resolve a tab at all
// is returned.
func (s *Session) captureScreenshot() error {
	tab, err := s.current()
	if err != nil {
		return err
	}

	for attempt := 1; attempt <= s.opts.ScreenshotAttempts; attempt++ {
		buf, shotErr := tab.Screenshot(milliseconds(s.opts.Timeout))
		if shotErr == nil {
			s.setBuffer(buf)
			return nil
		}
		s.logger.Debugf("screenshot attempt %d failed: %v", attempt, shotErr)

		if tab, err = s.current(); err != nil {
			return err
		}
	}

	s.logger.Warnf("giving up on screenshot after %d attempts", s.opts.ScreenshotAttempts)
	return nil
}
