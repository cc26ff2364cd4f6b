package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/Ratio1/slotstore_sdk_go/pkg/slot"
)

// Record reads and writes one value of type T under a fixed id.
type Record[T any] struct {
	store  slot.Store
	id     string
	logger *slog.Logger
}

// Option configures a Record.
type Option func(*options)

type options struct {
	logger *slog.Logger
}

// WithLogger routes save failures and swallowed decode failures to logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// Open binds a Record to store under id.
func Open[T any](store slot.Store, id string, opts ...Option) (*Record[T], error) {
	if store == nil {
		return nil, errors.New("storage: slot store is nil")
	}
	if err := ValidateID(id); err != nil {
		return nil, err
	}
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	return &Record[T]{
		store:  store,
		id:     id,
		logger: o.logger.With("record", id),
	}, nil
}

// MustOpen is like Open but panics on error.
func MustOpen[T any](store slot.Store, id string, opts ...Option) *Record[T] {
	r, err := Open[T](store, id, opts...)
	if err != nil {
		panic(err)
	}
	return r
}

// ID returns the record id.
func (r *Record[T]) ID() string {
	return r.id
}

// Save stores value and reports whether every required write was issued.
// An empty version is omitted from the header.
func (r *Record[T]) Save(ctx context.Context, value T, version string) bool {
	if err := r.Put(ctx, value, version); err != nil {
		r.logger.Error("storage: save failed", "err", err)
		return false
	}
	return true
}

// Put stores value, returning ErrEncode, ErrOversizedPayload or ErrSlotWrite
// on failure. Nothing is written when the value is rejected before layout.
func (r *Record[T]) Put(ctx context.Context, value T, version string) error {
	raw, err := encode(value)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrEncode, err)
	}
	size := runeLen(raw)
	if size > MaxTotalSize {
		return fmt.Errorf("%w: %d characters, limit %d", ErrOversizedPayload, size, MaxTotalSize)
	}

	probe, err := encode(sizeHeader{Version: version, Size: size})
	if err != nil {
		return fmt.Errorf("%w: header: %v", ErrEncode, err)
	}
	if runeLen(probe)+size <= MaxChunkLen {
		return r.putInline(ctx, raw, size, version)
	}
	return r.putChunked(ctx, raw, size, version)
}

func (r *Record[T]) putInline(ctx context.Context, raw string, size int, version string) error {
	primary, err := encode(header{Version: version, Chunks: 0, Size: size, Payload: &raw})
	if err != nil {
		return fmt.Errorf("%w: header: %v", ErrEncode, err)
	}
	return r.write(ctx, r.id, primary)
}

func (r *Record[T]) putChunked(ctx context.Context, raw string, size int, version string) error {
	chunks := split(raw, MaxChunkLen)
	primary, err := encode(header{Version: version, Chunks: len(chunks), Size: size})
	if err != nil {
		return fmt.Errorf("%w: header: %v", ErrEncode, err)
	}
	if err := r.write(ctx, r.id, primary); err != nil {
		return err
	}
	// Every indexed slot is rewritten; the blank tail erases fragments of
	// earlier, larger saves.
	for i := 0; i < MaxChunks; i++ {
		fragment := ""
		if i < len(chunks) {
			fragment = chunks[i]
		}
		if err := r.write(ctx, slot.ChunkKey(r.id, i), fragment); err != nil {
			return err
		}
	}
	return nil
}

func (r *Record[T]) write(ctx context.Context, key, value string) error {
	if err := r.store.SetSlot(ctx, key, value); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrSlotWrite, key, err)
	}
	return nil
}

// Load returns the stored value, or false when the record is missing or
// cannot be reconstructed.
func (r *Record[T]) Load(ctx context.Context) (T, bool) {
	value, err := r.Fetch(ctx)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			r.logger.Warn("storage: discarding unreadable record", "err", err)
		}
		var zero T
		return zero, false
	}
	return value, true
}

// Fetch returns the stored value or an error wrapping ErrNotFound or ErrDecode.
func (r *Record[T]) Fetch(ctx context.Context) (T, error) {
	var zero T
	primary, err := r.store.GetSlot(ctx, r.id)
	if err != nil {
		return zero, fmt.Errorf("%w: read %s: %w", ErrDecode, r.id, err)
	}
	if primary == "" {
		return zero, ErrNotFound
	}
	h, err := parseHeader(primary)
	if err != nil {
		return zero, err
	}

	var payload string
	if h.Payload != nil {
		payload = *h.Payload
	} else {
		var b strings.Builder
		for i := 0; i < h.Chunks; i++ {
			key := slot.ChunkKey(r.id, i)
			fragment, err := r.store.GetSlot(ctx, key)
			if err != nil {
				return zero, fmt.Errorf("%w: read %s: %w", ErrDecode, key, err)
			}
			b.WriteString(fragment)
		}
		payload = b.String()
	}

	var value T
	if err := json.Unmarshal([]byte(payload), &value); err != nil {
		return zero, fmt.Errorf("%w: payload: %v", ErrDecode, err)
	}
	return value, nil
}

// Metadata reads the primary slot only and summarizes the stored record.
// Missing and unreadable records both report zero chunks and zero size.
func (r *Record[T]) Metadata(ctx context.Context) Metadata {
	primary, err := r.store.GetSlot(ctx, r.id)
	if err != nil {
		r.logger.Warn("storage: metadata read failed", "err", err)
		return Metadata{}
	}
	if primary == "" {
		return Metadata{}
	}
	h, err := parseHeader(primary)
	if err != nil {
		r.logger.Warn("storage: discarding unreadable header", "err", err)
		return Metadata{}
	}
	return Metadata{Version: h.Version, Chunks: h.Chunks, Size: h.Size}
}

// parseHeader extracts header fields without decoding the inline payload.
func parseHeader(raw string) (header, error) {
	if !gjson.Valid(raw) {
		return header{}, fmt.Errorf("%w: header is not valid JSON", ErrDecode)
	}
	doc := gjson.Parse(raw)
	if !doc.IsObject() {
		return header{}, fmt.Errorf("%w: header is not an object", ErrDecode)
	}
	fields := doc.Map()

	var h header
	if v, ok := fields["v"]; ok && v.Type != gjson.Null {
		if v.Type != gjson.String {
			return header{}, fmt.Errorf("%w: version is not a string", ErrDecode)
		}
		h.Version = v.Str
	}
	if c, ok := fields["c"]; ok && c.Type != gjson.Null {
		n, err := count(c, "chunk count")
		if err != nil {
			return header{}, err
		}
		if n > MaxChunks {
			return header{}, fmt.Errorf("%w: chunk count %d exceeds %d", ErrDecode, n, MaxChunks)
		}
		h.Chunks = n
	}
	if s, ok := fields["s"]; ok && s.Type != gjson.Null {
		n, err := count(s, "size")
		if err != nil {
			return header{}, err
		}
		h.Size = n
	}
	if p, ok := fields["p"]; ok && p.Type != gjson.Null {
		if p.Type != gjson.String {
			return header{}, fmt.Errorf("%w: inline payload is not a string", ErrDecode)
		}
		payload := p.Str
		h.Payload = &payload
	}
	if h.Payload == nil && h.Chunks == 0 && h.Size > 0 {
		return header{}, fmt.Errorf("%w: header has neither inline payload nor chunks", ErrDecode)
	}
	return h, nil
}

func count(field gjson.Result, name string) (int, error) {
	if field.Type != gjson.Number {
		return 0, fmt.Errorf("%w: %s is not a number", ErrDecode, name)
	}
	n := field.Int()
	if float64(n) != field.Num || n < 0 {
		return 0, fmt.Errorf("%w: %s %s is not a non-negative integer", ErrDecode, name, field.Raw)
	}
	return int(n), nil
}
