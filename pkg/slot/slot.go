package slot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	// ErrKeyRequired is returned when a slot operation receives a blank key.
	ErrKeyRequired = errors.New("slot: key is required")
	// ErrSlotTooLarge is returned by stores that enforce a per-slot capacity.
	ErrSlotTooLarge = errors.New("slot: value exceeds slot capacity")
)

// Store is the host slot store.
type Store interface {
	// GetSlot returns the stored string or "" when the key was never set.
	GetSlot(ctx context.Context, key string) (string, error)
	// SetSlot overwrites the slot at key.
	SetSlot(ctx context.Context, key, value string) error
}

// Lister is implemented by stores that can enumerate their keys.
type Lister interface {
	Keys(ctx context.Context) ([]string, error)
}

// ChunkKey returns the key of the i-th indexed slot belonging to id.
func ChunkKey(id string, i int) string {
	return id + "[" + strconv.Itoa(i) + "]"
}

// ParseChunkKey splits an indexed slot key into its base id and index.
func ParseChunkKey(key string) (id string, index int, ok bool) {
	if !strings.HasSuffix(key, "]") {
		return "", 0, false
	}
	open := strings.LastIndexByte(key, '[')
	if open <= 0 {
		return "", 0, false
	}
	digits := key[open+1 : len(key)-1]
	if digits == "" {
		return "", 0, false
	}
	for _, r := range digits {
		if r < '0' || r > '9' {
			return "", 0, false
		}
	}
	n, err := strconv.Atoi(digits)
	if err != nil {
		return "", 0, false
	}
	return key[:open], n, true
}

// IsChunkKey reports whether key addresses an indexed slot.
func IsChunkKey(key string) bool {
	_, _, ok := ParseChunkKey(key)
	return ok
}

// ValidateKey rejects blank keys.
func ValidateKey(key string) error {
	if strings.TrimSpace(key) == "" {
		return ErrKeyRequired
	}
	return nil
}

// TooLarge builds an ErrSlotTooLarge error carrying the offending size.
func TooLarge(key string, size, capacity int) error {
	return fmt.Errorf("%w: key %q holds %d characters, capacity %d", ErrSlotTooLarge, key, size, capacity)
}
