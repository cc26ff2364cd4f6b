package slot

import "testing"

func TestChunkKey(t *testing.T) {
	if got := ChunkKey("@game/board", 7); got != "@game/board[7]" {
		t.Fatalf("ChunkKey mismatch: %q", got)
	}
}

func TestParseChunkKey(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		id    string
		index int
		ok    bool
	}{
		{name: "first chunk", key: "@game/board[0]", id: "@game/board", index: 0, ok: true},
		{name: "last chunk", key: "@game/board[59]", id: "@game/board", index: 59, ok: true},
		{name: "nested brackets", key: "@a/b[x][3]", id: "@a/b[x]", index: 3, ok: true},
		{name: "primary", key: "@game/board", ok: false},
		{name: "empty index", key: "@game/board[]", ok: false},
		{name: "non numeric", key: "@game/board[a]", ok: false},
		{name: "bare index", key: "[1]", ok: false},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			id, index, ok := ParseChunkKey(tc.key)
			if ok != tc.ok {
				t.Fatalf("ParseChunkKey(%q) ok=%v, want %v", tc.key, ok, tc.ok)
			}
			if !ok {
				return
			}
			if id != tc.id || index != tc.index {
				t.Fatalf("ParseChunkKey(%q) = (%q, %d), want (%q, %d)", tc.key, id, index, tc.id, tc.index)
			}
		})
	}
}

func TestValidateKey(t *testing.T) {
	if err := ValidateKey("  "); err != ErrKeyRequired {
		t.Fatalf("expected ErrKeyRequired, got %v", err)
	}
	if err := ValidateKey("@a/b"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
