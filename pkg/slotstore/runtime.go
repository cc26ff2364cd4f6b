package slotstore

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Ratio1/slotstore_sdk_go/internal/httpx"
	"github.com/Ratio1/slotstore_sdk_go/internal/seed"
	"github.com/Ratio1/slotstore_sdk_go/pkg/cstore"
	"github.com/Ratio1/slotstore_sdk_go/pkg/slot"
	"github.com/Ratio1/slotstore_sdk_go/pkg/slot/mock"
	"github.com/Ratio1/slotstore_sdk_go/pkg/storage"
)

// Option configures Open.
type Option func(*openOptions)

type openOptions struct {
	logger *slog.Logger
}

// WithLogger is handed to the HTTP transport and to seeded records.
func WithLogger(logger *slog.Logger) Option {
	return func(o *openOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// NewFromEnv resolves the store from environment variables and returns the
// resolved mode ("http" or "mock").
func NewFromEnv(opts ...Option) (slot.Store, string, error) {
	return Open(context.Background(), ConfigFromEnv(), opts...)
}

// Open builds the store described by cfg.
func Open(ctx context.Context, cfg Config, opts ...Option) (slot.Store, string, error) {
	o := openOptions{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}

	mode, err := cfg.resolveMode()
	if err != nil {
		return nil, "", err
	}
	switch mode {
	case ModeHTTP:
		store, err := openHTTP(cfg, o)
		if err != nil {
			return nil, "", err
		}
		return store, ModeHTTP, nil
	default:
		store, err := openMock(ctx, cfg, o)
		if err != nil {
			return nil, "", err
		}
		return store, ModeMock, nil
	}
}

func openHTTP(cfg Config, o openOptions) (slot.Store, error) {
	client, err := cstore.New(cfg.URL,
		httpx.WithTimeout(cfg.Timeout),
		httpx.WithRetryPolicy(cfg.retryPolicy()),
		httpx.WithLogger(o.logger),
	)
	if err != nil {
		return nil, fmt.Errorf("slotstore: init HTTP store: %w", err)
	}
	if cfg.HashKey == "" {
		return client, nil
	}
	hs, err := client.Hash(cfg.HashKey)
	if err != nil {
		return nil, fmt.Errorf("slotstore: init HTTP store: %w", err)
	}
	return hs, nil
}

func openMock(ctx context.Context, cfg Config, o openOptions) (*mock.Mock, error) {
	m := mock.New(mock.WithCapacity(cfg.Capacity))
	if cfg.Seed == "" {
		return m, nil
	}
	f, err := seed.Load(cfg.Seed)
	if err != nil {
		return nil, fmt.Errorf("slotstore: load mock seed: %w", err)
	}
	if err := m.Seed(f.Slots); err != nil {
		return nil, fmt.Errorf("slotstore: apply mock seed: %w", err)
	}
	if err := SeedRecords(ctx, m, f.Records, storage.WithLogger(o.logger)); err != nil {
		return nil, fmt.Errorf("slotstore: apply mock seed: %w", err)
	}
	return m, nil
}

// SeedRecords saves every record through the storage codec.
func SeedRecords(ctx context.Context, store slot.Store, records []seed.Record, opts ...storage.Option) error {
	for _, r := range records {
		rec, err := storage.Open[any](store, r.ID, opts...)
		if err != nil {
			return err
		}
		if err := rec.Put(ctx, r.Value, r.Version); err != nil {
			return fmt.Errorf("record %s: %w", r.ID, err)
		}
	}
	return nil
}
