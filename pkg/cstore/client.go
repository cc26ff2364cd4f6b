package cstore

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"github.com/Ratio1/slotstore_sdk_go/internal/envelope"
	"github.com/Ratio1/slotstore_sdk_go/internal/httpx"
	"github.com/Ratio1/slotstore_sdk_go/pkg/slot"
)

// Client provides slot access to the upstream CStore REST API.
type Client struct {
	http *httpx.Client
}

// Status mirrors the /get_status payload.
type Status struct {
	Keys []string `json:"keys"`
}

// New constructs a Client bound to the provided base URL.
func New(baseURL string, opts ...httpx.Option) (*Client, error) {
	cl, err := httpx.NewClient(baseURL, opts...)
	if err != nil {
		return nil, fmt.Errorf("cstore: %w", err)
	}
	return NewWithHTTPClient(cl), nil
}

// NewWithHTTPClient wraps an existing httpx.Client.
func NewWithHTTPClient(httpClient *httpx.Client) *Client {
	return &Client{http: httpClient}
}

// GetSlot implements slot.Store.
func (c *Client) GetSlot(ctx context.Context, key string) (string, error) {
	if err := slot.ValidateKey(key); err != nil {
		return "", err
	}
	body, err := c.get(ctx, "get", url.Values{"key": {key}})
	if err != nil {
		return "", fmt.Errorf("cstore: get %q: %w", key, err)
	}
	value, err := envelope.Slot(body)
	if err != nil {
		return "", fmt.Errorf("cstore: get %q: %w", key, err)
	}
	return value, nil
}

// SetSlot implements slot.Store.
func (c *Client) SetSlot(ctx context.Context, key, value string) error {
	if err := slot.ValidateKey(key); err != nil {
		return err
	}
	err := c.post(ctx, "set", map[string]any{
		"key":              key,
		"value":            value,
		"chainstore_peers": []string{},
	})
	if err != nil {
		return fmt.Errorf("cstore: set %q: %w", key, err)
	}
	return nil
}

// Keys implements slot.Lister using /get_status.
func (c *Client) Keys(ctx context.Context) ([]string, error) {
	status, err := c.GetStatus(ctx)
	if err != nil {
		return nil, err
	}
	keys := append([]string(nil), status.Keys...)
	sort.Strings(keys)
	return keys, nil
}

// GetStatus returns the raw service status.
func (c *Client) GetStatus(ctx context.Context) (*Status, error) {
	body, err := c.get(ctx, "get_status", nil)
	if err != nil {
		return nil, fmt.Errorf("cstore: get_status: %w", err)
	}
	var status Status
	if err := envelope.Decode(body, &status); err != nil {
		return nil, fmt.Errorf("cstore: decode get_status response: %w", err)
	}
	return &status, nil
}

// Hash returns a slot store whose slots are fields of hashKey.
func (c *Client) Hash(hashKey string) (*HashStore, error) {
	if strings.TrimSpace(hashKey) == "" {
		return nil, fmt.Errorf("cstore: hash key is required")
	}
	return &HashStore{client: c, hashKey: hashKey}, nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values) ([]byte, error) {
	if c == nil || c.http == nil {
		return nil, fmt.Errorf("cstore: client is not configured")
	}
	resp, err := c.http.Do(ctx, &httpx.Request{
		Method: http.MethodGet,
		Path:   path,
		Query:  query,
	})
	if err != nil {
		return nil, err
	}
	return httpx.ReadAllAndClose(resp.Body)
}

func (c *Client) post(ctx context.Context, path string, payload any) error {
	if c == nil || c.http == nil {
		return fmt.Errorf("cstore: client is not configured")
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(ctx, &httpx.Request{
		Method: http.MethodPost,
		Path:   path,
		Header: http.Header{"Content-Type": []string{"application/json"}},
		Body:   body,
	})
	if err != nil {
		return err
	}
	_, err = httpx.ReadAllAndClose(resp.Body)
	return err
}
