package cstore

import (
	"context"
	"fmt"
	"net/url"
	"sort"

	"github.com/Ratio1/slotstore_sdk_go/internal/envelope"
	"github.com/Ratio1/slotstore_sdk_go/pkg/slot"
)

// HashStore keeps every slot as a field of one CStore hash key.
type HashStore struct {
	client  *Client
	hashKey string
}

// HashKey returns the hash key backing the store.
func (h *HashStore) HashKey() string {
	return h.hashKey
}

// GetSlot implements slot.Store.
func (h *HashStore) GetSlot(ctx context.Context, key string) (string, error) {
	if err := slot.ValidateKey(key); err != nil {
		return "", err
	}
	body, err := h.client.get(ctx, "hget", url.Values{"hkey": {h.hashKey}, "key": {key}})
	if err != nil {
		return "", fmt.Errorf("cstore: hget %q/%q: %w", h.hashKey, key, err)
	}
	value, err := envelope.Slot(body)
	if err != nil {
		return "", fmt.Errorf("cstore: hget %q/%q: %w", h.hashKey, key, err)
	}
	return value, nil
}

// SetSlot implements slot.Store.
func (h *HashStore) SetSlot(ctx context.Context, key, value string) error {
	if err := slot.ValidateKey(key); err != nil {
		return err
	}
	err := h.client.post(ctx, "hset", map[string]any{
		"hkey":             h.hashKey,
		"key":              key,
		"value":            value,
		"chainstore_peers": []string{},
	})
	if err != nil {
		return fmt.Errorf("cstore: hset %q/%q: %w", h.hashKey, key, err)
	}
	return nil
}

// All returns every field of the hash key.
func (h *HashStore) All(ctx context.Context) (map[string]string, error) {
	body, err := h.client.get(ctx, "hgetall", url.Values{"hkey": {h.hashKey}})
	if err != nil {
		return nil, fmt.Errorf("cstore: hgetall %q: %w", h.hashKey, err)
	}
	fields, err := envelope.SlotMap(body)
	if err != nil {
		return nil, fmt.Errorf("cstore: hgetall %q: %w", h.hashKey, err)
	}
	return fields, nil
}

// Keys implements slot.Lister.
func (h *HashStore) Keys(ctx context.Context) ([]string, error) {
	fields, err := h.All(ctx)
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return nil, nil
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}
