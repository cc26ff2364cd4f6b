// Package mock provides an in-memory slot.Store used by tests, the sandbox
// server and mock runtime mode.
package mock

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"unicode/utf8"

	"github.com/Ratio1/slotstore_sdk_go/internal/seed"
	"github.com/Ratio1/slotstore_sdk_go/pkg/slot"
)

// FaultFunc is consulted before every write. write counts SetSlot calls
// across the whole store starting at 1. A non-nil error aborts the write.
type FaultFunc func(key string, write int) error

// Mock is an in-memory slot store. The zero value is not usable; call New.
type Mock struct {
	mu       sync.RWMutex
	slots    map[string]string
	capacity int
	fault    FaultFunc
	writes   int
	perRead  map[string]int
	perWrite map[string]int
}

// Option configures the mock instance.
type Option func(*Mock)

// WithCapacity rejects writes holding more than n characters. Zero disables
// the check.
func WithCapacity(n int) Option {
	return func(m *Mock) {
		if n > 0 {
			m.capacity = n
		}
	}
}

// WithFault installs a write fault injector.
func WithFault(fn FaultFunc) Option {
	return func(m *Mock) {
		m.fault = fn
	}
}

// FailAfter returns a FaultFunc that lets n writes through and fails every
// write after that.
func FailAfter(n int, err error) FaultFunc {
	return func(key string, write int) error {
		if write > n {
			return fmt.Errorf("mock slot: write %d to %q: %w", write, key, err)
		}
		return nil
	}
}

// New creates an empty store.
func New(opts ...Option) *Mock {
	m := &Mock{
		slots:    make(map[string]string),
		perRead:  make(map[string]int),
		perWrite: make(map[string]int),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Seed writes raw slot entries, bypassing capacity and fault checks.
func (m *Mock) Seed(entries []seed.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, e := range entries {
		if err := slot.ValidateKey(e.Key); err != nil {
			return fmt.Errorf("mock slot: seed entry: %w", err)
		}
		m.slots[e.Key] = e.Value
	}
	return nil
}

// GetSlot implements slot.Store.
func (m *Mock) GetSlot(ctx context.Context, key string) (string, error) {
	if err := slot.ValidateKey(key); err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.perRead[key]++
	return m.slots[key], nil
}

// SetSlot implements slot.Store. Writing "" keeps the key listed, matching
// hosts that have no delete primitive.
func (m *Mock) SetSlot(ctx context.Context, key, value string) error {
	if err := slot.ValidateKey(key); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.writes++
	if m.fault != nil {
		if err := m.fault(key, m.writes); err != nil {
			return err
		}
	}
	if m.capacity > 0 {
		if n := utf8.RuneCountInString(value); n > m.capacity {
			return slot.TooLarge(key, n, m.capacity)
		}
	}
	m.perWrite[key]++
	m.slots[key] = value
	return nil
}

// Keys implements slot.Lister. Keys are returned sorted.
func (m *Mock) Keys(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	if len(m.slots) == 0 {
		return nil, nil
	}
	keys := make([]string, 0, len(m.slots))
	for key := range m.slots {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys, nil
}

// Peek returns a slot without counting it as a read.
func (m *Mock) Peek(key string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.slots[key]
	return v, ok
}

// Reads returns how many times key was read through GetSlot.
func (m *Mock) Reads(key string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.perRead[key]
}

// TotalReads returns the number of GetSlot calls across all keys.
func (m *Mock) TotalReads() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	total := 0
	for _, n := range m.perRead {
		total += n
	}
	return total
}

// Writes returns how many successful writes key received.
func (m *Mock) Writes(key string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.perWrite[key]
}

// Len returns the number of keys ever written.
func (m *Mock) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.slots)
}

// Snapshot copies every slot.
func (m *Mock) Snapshot() map[string]string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]string, len(m.slots))
	for k, v := range m.slots {
		out[k] = v
	}
	return out
}
