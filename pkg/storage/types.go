package storage

import "errors"

const (
	// MaxChunkLen is the number of characters stored per slot.
	MaxChunkLen = 1000
	// MaxChunks is the number of indexed slots a record may use.
	MaxChunks = 60
	// MaxTotalSize bounds the serialized payload of one record.
	MaxTotalSize = MaxChunkLen * MaxChunks
)

var (
	// ErrNotFound is returned by Fetch when the primary slot is empty.
	ErrNotFound = errors.New("storage: record not found")
	// ErrOversizedPayload is returned by Put when the serialized value exceeds MaxTotalSize.
	ErrOversizedPayload = errors.New("storage: oversized payload")
	// ErrEncode is returned by Put when the value cannot be serialized.
	ErrEncode = errors.New("storage: encode value")
	// ErrDecode is returned by Fetch when slot content cannot be reconstructed.
	ErrDecode = errors.New("storage: decode record")
	// ErrSlotWrite is returned by Put when the slot store rejects a write.
	ErrSlotWrite = errors.New("storage: slot write failed")
	// ErrInvalidID is returned by Open for ids not shaped like "@namespace/name".
	ErrInvalidID = errors.New("storage: invalid record id")
)

// Metadata summarizes a stored record without decoding its payload.
type Metadata struct {
	Version string `json:"version,omitempty"`
	Chunks  int    `json:"chunks"`
	Size    int    `json:"size"`
}

// Inline reports whether the payload sits in the primary slot.
func (m Metadata) Inline() bool {
	return m.Size > 0 && m.Chunks == 0
}

// header is the primary slot record. Field order is part of the wire format.
type header struct {
	Version string  `json:"v,omitempty"`
	Chunks  int     `json:"c"`
	Size    int     `json:"s"`
	Payload *string `json:"p,omitempty"`
}

// sizeHeader is the header used to decide whether a payload fits inline.
type sizeHeader struct {
	Version string `json:"v,omitempty"`
	Size    int    `json:"s"`
}
