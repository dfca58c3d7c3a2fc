package livesql

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Manager is a named registry of live data streams. It exists for programs
// that juggle several sources at once and want one place to look them up
// and one call to shut them all down.
type Manager struct {
	mu      sync.RWMutex
	streams map[string]*managedStream
	closed  bool
}

// managedStream pairs a stream with the opaque ID it was registered under.
type managedStream struct {
	id   string
	data *LiveData
}

// NewManager creates an empty manager.
func NewManager() *Manager {
	return &Manager{
		streams: make(map[string]*managedStream),
	}
}

// Add registers an already running stream under a name and returns the ID
// assigned to it. Registering a second stream under an existing name fails;
// Remove the old one first.
func (m *Manager) Add(name string, data *LiveData) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return "", ErrStopped
	}
	if _, exists := m.streams[name]; exists {
		return "", fmt.Errorf("livesql: stream %q already registered", name)
	}

	id := uuid.NewString()
	m.streams[name] = &managedStream{id: id, data: data}
	return id, nil
}

// OpenSource starts a stream for a location and registers it in one step.
func (m *Manager) OpenSource(ctx context.Context, name, location string, interval time.Duration) (*LiveData, error) {
	data, err := Open(ctx, location, interval)
	if err != nil {
		return nil, err
	}
	if _, err := m.Add(name, data); err != nil {
		data.Stop()
		return nil, err
	}
	return data, nil
}

// Get returns the stream registered under name.
func (m *Manager) Get(name string) (*LiveData, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.streams[name]
	if !ok {
		return nil, false
	}
	return s.data, true
}

// ID returns the opaque ID a stream was registered with.
func (m *Manager) ID(name string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.streams[name]
	if !ok {
		return "", false
	}
	return s.id, true
}

// Names returns the registered stream names, sorted.
func (m *Manager) Names() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, 0, len(m.streams))
	for name := range m.streams {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of registered streams.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.streams)
}

// Remove stops the named stream and drops it from the registry.
func (m *Manager) Remove(name string) bool {
	m.mu.Lock()
	s, ok := m.streams[name]
	if ok {
		delete(m.streams, name)
	}
	m.mu.Unlock()

	if ok {
		s.data.Stop()
	}
	return ok
}

// CloseAll stops every registered stream and marks the manager closed.
// Further Add calls fail with ErrStopped.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	streams := make([]*managedStream, 0, len(m.streams))
	for _, s := range m.streams {
		streams = append(streams, s)
	}
	m.streams = make(map[string]*managedStream)
	m.closed = true
	m.mu.Unlock()

	for _, s := range streams {
		s.data.Stop()
	}
}
