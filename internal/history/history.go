// Package history models the session history stack: push and replace
// entries, and pop events when the user moves back or forward.
package history

import (
	"slices"
	"sync"

	"github.com/google/uuid"
)

// History is the stack the router mirrors its current path into.
type History interface {
	// Push adds an entry after the current one, discarding forward entries.
	Push(path string)
	// Replace overwrites the current entry.
	Replace(path string)
	// Location returns the current entry's path.
	Location() string
	// Back moves one entry back and emits a pop event. It reports false at
	// the start of the stack.
	Back() bool
	// Forward moves one entry forward and emits a pop event. It reports
	// false at the end of the stack.
	Forward() bool
	// Listen registers fn for pop events and returns a function that
	// removes it.
	Listen(fn func(path string)) (unlisten func())
}

type listener struct {
	id string
	fn func(path string)
}

// Memory is an in-process History.
type Memory struct {
	mu        sync.Mutex
	entries   []string
	index     int
	listeners []listener
}

// NewMemory creates a stack holding one entry for initial.
func NewMemory(initial string) *Memory {
	if initial == "" {
		initial = "/"
	}
	return &Memory{entries: []string{initial}}
}

// Push implements History.
func (m *Memory) Push(path string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries[:m.index+1], path)
	m.index++
}

// Replace implements History.
func (m *Memory) Replace(path string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[m.index] = path
}

// Location implements History.
func (m *Memory) Location() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.entries[m.index]
}

// Back implements History.
func (m *Memory) Back() bool {
	return m.move(-1)
}

// Forward implements History.
func (m *Memory) Forward() bool {
	return m.move(1)
}

func (m *Memory) move(delta int) bool {
	m.mu.Lock()
	next := m.index + delta
	if next < 0 || next >= len(m.entries) {
		m.mu.Unlock()
		return false
	}
	m.index = next
	path := m.entries[next]
	listeners := slices.Clone(m.listeners)
	m.mu.Unlock()

	for _, l := range listeners {
		l.fn(path)
	}
	return true
}

// Listen implements History.
func (m *Memory) Listen(fn func(path string)) func() {
	id := uuid.NewString()
	m.mu.Lock()
	m.listeners = append(m.listeners, listener{id: id, fn: fn})
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		m.listeners = slices.DeleteFunc(m.listeners, func(l listener) bool { return l.id == id })
	}
}

// Entries returns a copy of the stack and the current index.
func (m *Memory) Entries() ([]string, int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.entries), m.index
}

// Len returns the number of entries.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}
