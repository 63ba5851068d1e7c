package config

import (
	"fmt"
	"sync"
	"time"
)

const (
	// SectionIDBrowser is the identifier for the browser settings section
	SectionIDBrowser = "browser"

	// VariantFull distils the whole document and targets any element.
	VariantFull = "full"

	// VariantVisibleOnly distils and targets only on-screen elements.
	VariantVisibleOnly = "visible_only"

	defaultHeadless           = true
	defaultViewportWidth      = 1280
	defaultViewportHeight     = 720
	defaultActionTimeout      = 5 * time.Second
	defaultNavigationTimeout  = 30 * time.Second
	defaultAssertTimeout      = 5 * time.Second
	defaultPollInterval       = 100 * time.Millisecond
	defaultVariant            = VariantVisibleOnly
	defaultMaxTokens          = 16000
	defaultScreenshotAttempts = 50
	defaultCaptureScreenshots = true
	defaultStealth            = true
)

// BrowserSection holds the settings of a browser session.
type BrowserSection struct {
	Headless           bool          `json:"headless"`
	ViewportWidth      int           `json:"viewport_width"`
	ViewportHeight     int           `json:"viewport_height"`
	ActionTimeout      time.Duration `json:"action_timeout"`
	NavigationTimeout  time.Duration `json:"navigation_timeout"`
	AssertTimeout      time.Duration `json:"assert_timeout"`
	PollInterval       time.Duration `json:"poll_interval"`
	Variant            string        `json:"variant"`
	MaxTokens          int           `json:"max_tokens"`
	ScreenshotAttempts int           `json:"screenshot_attempts"`
	CaptureScreenshots bool          `json:"capture_screenshots"`
	AllowedHosts       []string      `json:"allowed_hosts"`
	Stealth            bool          `json:"stealth"`
	mu                 sync.RWMutex
}

// NewBrowserSection creates a browser section with default settings.
func NewBrowserSection() *BrowserSection {
	s := &BrowserSection{}
	s.Reset()
	return s
}

// ID returns the section identifier.
func (s *BrowserSection) ID() string {
	return SectionIDBrowser
}

// Title returns the section title.
func (s *BrowserSection) Title() string {
	return "Browser Settings"
}

// Description returns the section description.
func (s *BrowserSection) Description() string {
	return "Configure the automated browser: launch mode, viewport, action timeouts, distillation variant and token budget."
}

// Data returns the current configuration data.
func (s *BrowserSection) Data() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	hosts := make([]any, 0, len(s.AllowedHosts))
	for _, h := range s.AllowedHosts {
		hosts = append(hosts, h)
	}

	return map[string]any{
		"headless":            s.Headless,
		"viewport_width":      s.ViewportWidth,
		"viewport_height":     s.ViewportHeight,
		"action_timeout":      s.ActionTimeout.String(),
		"navigation_timeout":  s.NavigationTimeout.String(),
		"assert_timeout":      s.AssertTimeout.String(),
		"poll_interval":       s.PollInterval.String(),
		"variant":             s.Variant,
		"max_tokens":          s.MaxTokens,
		"screenshot_attempts": s.ScreenshotAttempts,
		"capture_screenshots": s.CaptureScreenshots,
		"allowed_hosts":       hosts,
		"stealth":             s.Stealth,
	}
}

// SetData updates the configuration from the provided data. Values may
// come from YAML (ints) or JSON (float64); durations may be strings like
// "5s" or raw nanosecond counts.
func (s *BrowserSection) SetData(data map[string]any) error {
	if data == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for key, value := range data {
		var err error
		switch key {
		case "headless":
			err = setBool(&s.Headless, key, value)
		case "capture_screenshots":
			err = setBool(&s.CaptureScreenshots, key, value)
		case "stealth":
			err = setBool(&s.Stealth, key, value)
		case "viewport_width":
			err = setInt(&s.ViewportWidth, key, value)
		case "viewport_height":
			err = setInt(&s.ViewportHeight, key, value)
		case "max_tokens":
			err = setInt(&s.MaxTokens, key, value)
		case "screenshot_attempts":
			err = setInt(&s.ScreenshotAttempts, key, value)
		case "action_timeout":
			err = setDuration(&s.ActionTimeout, key, value)
		case "navigation_timeout":
			err = setDuration(&s.NavigationTimeout, key, value)
		case "assert_timeout":
			err = setDuration(&s.AssertTimeout, key, value)
		case "poll_interval":
			err = setDuration(&s.PollInterval, key, value)
		case "variant":
			v, ok := value.(string)
			if !ok {
				return fmt.Errorf("invalid value type for variant: expected string, got %T", value)
			}
			s.Variant = v
		case "allowed_hosts":
			err = setStrings(&s.AllowedHosts, key, value)
		default:
			// Ignore unknown keys for forward compatibility
			continue
		}
		if err != nil {
			return err
		}
	}

	return nil
}

// Validate validates the current configuration.
func (s *BrowserSection) Validate() error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.Variant != VariantFull && s.Variant != VariantVisibleOnly {
		return fmt.Errorf("variant must be %q or %q, got %q", VariantFull, VariantVisibleOnly, s.Variant)
	}
	if s.ViewportWidth <= 0 || s.ViewportHeight <= 0 {
		return fmt.Errorf("viewport must be positive, got %dx%d", s.ViewportWidth, s.ViewportHeight)
	}
	for name, d := range map[string]time.Duration{
		"action_timeout":     s.ActionTimeout,
		"navigation_timeout": s.NavigationTimeout,
		"assert_timeout":     s.AssertTimeout,
		"poll_interval":      s.PollInterval,
	} {
		if d <= 0 {
			return fmt.Errorf("%s must be positive, got %v", name, d)
		}
	}
	if s.PollInterval > s.AssertTimeout {
		return fmt.Errorf("poll_interval (%v) must not exceed assert_timeout (%v)", s.PollInterval, s.AssertTimeout)
	}
	if s.MaxTokens < 0 {
		return fmt.Errorf("max_tokens must not be negative, got %d", s.MaxTokens)
	}
	if s.ScreenshotAttempts < 1 {
		return fmt.Errorf("screenshot_attempts must be at least 1, got %d", s.ScreenshotAttempts)
	}

	return nil
}

// Reset resets the section to default configuration.
func (s *BrowserSection) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.Headless = defaultHeadless
	s.ViewportWidth = defaultViewportWidth
	s.ViewportHeight = defaultViewportHeight
	s.ActionTimeout = defaultActionTimeout
	s.NavigationTimeout = defaultNavigationTimeout
	s.AssertTimeout = defaultAssertTimeout
	s.PollInterval = defaultPollInterval
	s.Variant = defaultVariant
	s.MaxTokens = defaultMaxTokens
	s.ScreenshotAttempts = defaultScreenshotAttempts
	s.CaptureScreenshots = defaultCaptureScreenshots
	s.AllowedHosts = nil
	s.Stealth = defaultStealth
}

// Snapshot returns a copy of the settings safe to read without locking.
func (s *BrowserSection) Snapshot() BrowserSettings {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return BrowserSettings{
		Headless:           s.Headless,
		ViewportWidth:      s.ViewportWidth,
		ViewportHeight:     s.ViewportHeight,
		ActionTimeout:      s.ActionTimeout,
		NavigationTimeout:  s.NavigationTimeout,
		AssertTimeout:      s.AssertTimeout,
		PollInterval:       s.PollInterval,
		Variant:            s.Variant,
		MaxTokens:          s.MaxTokens,
		ScreenshotAttempts: s.ScreenshotAttempts,
		CaptureScreenshots: s.CaptureScreenshots,
		AllowedHosts:       append([]string(nil), s.AllowedHosts...),
		Stealth:            s.Stealth,
	}
}

// SetVariant overrides the distillation variant.
func (s *BrowserSection) SetVariant(variant string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Variant = variant
}

// SetHeadless overrides the launch mode.
func (s *BrowserSection) SetHeadless(headless bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Headless = headless
}

// BrowserSettings is an immutable copy of a BrowserSection.
type BrowserSettings struct {
	Headless           bool
	ViewportWidth      int
	ViewportHeight     int
	ActionTimeout      time.Duration
	NavigationTimeout  time.Duration
	AssertTimeout      time.Duration
	PollInterval       time.Duration
	Variant            string
	MaxTokens          int
	ScreenshotAttempts int
	CaptureScreenshots bool
	AllowedHosts       []string
	Stealth            bool
}

func setBool(dst *bool, key string, value any) error {
	v, ok := value.(bool)
	if !ok {
		return fmt.Errorf("invalid value type for %s: expected bool, got %T", key, value)
	}
	*dst = v
	return nil
}

func setInt(dst *int, key string, value any) error {
	switch v := value.(type) {
	case int:
		*dst = v
	case int64:
		*dst = int(v)
	case float64:
		// JSON numbers come as float64
		if v != float64(int(v)) {
			return fmt.Errorf("invalid value for %s: expected integer, got %v", key, v)
		}
		*dst = int(v)
	default:
		return fmt.Errorf("invalid value type for %s: expected integer, got %T", key, value)
	}
	return nil
}

func setDuration(dst *time.Duration, key string, value any) error {
	switch v := value.(type) {
	case string:
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid duration string for %s: %w", key, err)
		}
		*dst = d
	case int:
		*dst = time.Duration(v)
	case int64:
		*dst = time.Duration(v)
	case float64:
		*dst = time.Duration(v)
	default:
		return fmt.Errorf("invalid value type for %s: expected string or number, got %T", key, value)
	}
	return nil
}

func setStrings(dst *[]string, key string, value any) error {
	switch v := value.(type) {
	case nil:
		*dst = nil
	case []string:
		*dst = append([]string(nil), v...)
	case []any:
		out := make([]string, 0, len(v))
		for i, item := range v {
			str, ok := item.(string)
			if !ok {
				return fmt.Errorf("invalid value type for %s[%d]: expected string, got %T", key, i, item)
			}
			out = append(out, str)
		}
		*dst = out
	default:
		return fmt.Errorf("invalid value type for %s: expected list of strings, got %T", key, value)
	}
	return nil
}
