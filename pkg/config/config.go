package config

import (
	"fmt"
	"sync"
)

var (
	// globalBrowser is the browser section loaded by Initialize
	globalBrowser *BrowserSection
	globalStore   *FileStore
	globalMu      sync.Mutex
)

// Load reads the browser section from the config file at path and
// validates it. Missing files and missing keys fall back to defaults.
func Load(path string) (*BrowserSection, *FileStore, error) {
	store, err := NewFileStore(path)
	if err != nil {
		return nil, nil, err
	}

	data, err := store.GetSection(SectionIDBrowser)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read %s section: %w", SectionIDBrowser, err)
	}

	section := NewBrowserSection()
	if err := section.SetData(data); err != nil {
		return nil, nil, fmt.Errorf("invalid %s section: %w", SectionIDBrowser, err)
	}
	if err := section.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid %s section: %w", SectionIDBrowser, err)
	}

	return section, store, nil
}

// Initialize loads the configuration file into the process-wide settings.
// This should be called once at application startup.
func Initialize(configPath string) error {
	section, store, err := Load(configPath)
	if err != nil {
		return err
	}

	globalMu.Lock()
	defer globalMu.Unlock()
	globalBrowser = section
	globalStore = store
	return nil
}

// IsInitialized returns true if the global configuration has been initialized.
func IsInitialized() bool {
	globalMu.Lock()
	defer globalMu.Unlock()
	return globalBrowser != nil
}

// GetBrowser returns the browser section from global config.
// Returns nil if config is not initialized.
func GetBrowser() *BrowserSection {
	globalMu.Lock()
	defer globalMu.Unlock()
	return globalBrowser
}

// SaveBrowser writes the global browser section back to its config file.
func SaveBrowser() error {
	globalMu.Lock()
	section, store := globalBrowser, globalStore
	globalMu.Unlock()

	if section == nil || store == nil {
		return fmt.Errorf("config not initialized: call config.Initialize first")
	}
	if err := store.SetSection(section.ID(), section.Data()); err != nil {
		return err
	}
	return store.Save()
}
