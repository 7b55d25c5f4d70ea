package plugin

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// ErrPluginNotFound is returned by Get and Find when no plugin matches.
var ErrPluginNotFound = errors.New("plugin: not found")

// manifestFile is the manifest name looked up in each plugin directory.
const manifestFile = "plugin.json"

// Manager discovers plugins in a directory and hands them out by name or action.
type Manager struct {
	pluginDir string
	plugins   map[string]*Plugin
	mu        sync.RWMutex
}

// NewManager creates a Manager for pluginDir. Call Discover before Get or Find.
func NewManager(pluginDir string) *Manager {
	return &Manager{pluginDir: pluginDir, plugins: map[string]*Plugin{}}
}

// Discover replaces the known plugins with those found in the plugin directory.
// Each subdirectory holding a readable plugin.json is one plugin; others are skipped.
// A missing plugin directory is not an error.
func (m *Manager) Discover() error {
	found := make(map[string]*Plugin)

	entries, err := os.ReadDir(m.pluginDir)
	if err != nil && !os.IsNotExist(err) {
		return err
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		if p, ok := loadPlugin(filepath.Join(m.pluginDir, entry.Name())); ok {
			found[p.Manifest.Name] = p
		}
	}

	m.mu.Lock()
	m.plugins = found
	m.mu.Unlock()
	return nil
}

// loadPlugin reads the manifest in dir. It reports false for a missing or invalid manifest.
func loadPlugin(dir string) (*Plugin, bool) {
	data, err := os.ReadFile(filepath.Join(dir, manifestFile))
	if err != nil {
		return nil, false
	}

	var manifest Manifest
	if err := json.Unmarshal(data, &manifest); err != nil || manifest.Name == "" {
		return nil, false
	}

	return &Plugin{
		Manifest:   manifest,
		Path:       dir,
		Executable: filepath.Join(dir, manifest.Executable),
	}, true
}

// Get returns the plugin called name.
func (m *Manager) Get(name string) (*Plugin, error) {
	m.mu.RLock()
	p, ok := m.plugins[name]
	m.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %q in %s", ErrPluginNotFound, name, m.pluginDir)
	}
	return p, nil
}

// Find returns the first plugin, by name, that declares every given action.
func (m *Manager) Find(actions ...string) (*Plugin, error) {
next:
	for _, p := range m.List() {
		for _, a := range actions {
			if !p.Manifest.Supports(a) {
				continue next
			}
		}
		return p, nil
	}
	return nil, fmt.Errorf("%w: no plugin in %s supports %s", ErrPluginNotFound, m.pluginDir, strings.Join(actions, ", "))
}

// List returns all discovered plugins sorted by name.
func (m *Manager) List() []*Plugin {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*Plugin, 0, len(m.plugins))
	for _, p := range m.plugins {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Manifest.Name < out[j].Manifest.Name })
	return out
}

// PluginDir returns the plugin directory path.
func (m *Manager) PluginDir() string {
	return m.pluginDir
}
