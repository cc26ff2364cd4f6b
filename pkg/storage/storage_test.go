package storage_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ratio1/slotstore_sdk_go/internal/seed"
	"github.com/Ratio1/slotstore_sdk_go/pkg/slot"
	"github.com/Ratio1/slotstore_sdk_go/pkg/slot/mock"
	"github.com/Ratio1/slotstore_sdk_go/pkg/storage"
)

const recordID = "@game/board"

type board struct {
	Turn    int               `json:"turn"`
	Players []string          `json:"players"`
	Cells   map[string]string `json:"cells,omitempty"`
	Done    bool              `json:"done"`
}

// payloadOfSize returns a string whose JSON encoding is exactly n characters.
func payloadOfSize(n int, fill string) string {
	return strings.Repeat(fill, n-2)
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
}

func openString(t *testing.T, store slot.Store) *storage.Record[string] {
	t.Helper()
	rec, err := storage.Open[string](store, recordID, storage.WithLogger(quietLogger()))
	require.NoError(t, err)
	return rec
}

func TestSaveLoadSmallValueInline(t *testing.T) {
	ctx := context.Background()
	m := mock.New()
	rec, err := storage.Open[board](m, recordID, storage.WithLogger(quietLogger()))
	require.NoError(t, err)

	value := board{Turn: 3, Players: []string{"ann", "bob"}, Cells: map[string]string{"a1": "x", "b2": "o"}}
	require.True(t, rec.Save(ctx, value, ""))

	got, ok := rec.Load(ctx)
	require.True(t, ok)
	assert.Equal(t, value, got)

	meta := rec.Metadata(ctx)
	assert.Equal(t, 0, meta.Chunks)
	assert.True(t, meta.Inline())
	assert.Equal(t, 1, m.Len(), "inline layout must only touch the primary slot")
}

func TestInlineWireFormat(t *testing.T) {
	ctx := context.Background()
	m := mock.New()
	rec, err := storage.Open[map[string]int](m, recordID)
	require.NoError(t, err)

	require.True(t, rec.Save(ctx, map[string]int{"a": 1}, "1.0"))

	primary, ok := m.Peek(recordID)
	require.True(t, ok)
	assert.Equal(t, `{"v":"1.0","c":0,"s":7,"p":"{\"a\":1}"}`, primary)
}

func TestChunkedWireFormat(t *testing.T) {
	ctx := context.Background()
	m := mock.New()
	rec := openString(t, m)

	require.True(t, rec.Save(ctx, payloadOfSize(1500, "x"), ""))

	primary, _ := m.Peek(recordID)
	assert.Equal(t, `{"c":2,"s":1500}`, primary)

	first, _ := m.Peek(slot.ChunkKey(recordID, 0))
	second, _ := m.Peek(slot.ChunkKey(recordID, 1))
	assert.Len(t, first, 1000)
	assert.Len(t, second, 500)
	assert.True(t, strings.HasPrefix(first, `"x`))
	assert.True(t, strings.HasSuffix(second, `x"`))
}

func TestSaveLoadLargeValueChunked(t *testing.T) {
	ctx := context.Background()
	m := mock.New()
	rec := openString(t, m)

	value := payloadOfSize(45000, "q")
	require.True(t, rec.Save(ctx, value, "v2"))

	meta := rec.Metadata(ctx)
	assert.Equal(t, storage.Metadata{Version: "v2", Chunks: 45, Size: 45000}, meta)
	assert.False(t, meta.Inline())

	got, ok := rec.Load(ctx)
	require.True(t, ok)
	assert.Equal(t, value, got)

	for i := 0; i < storage.MaxChunks; i++ {
		assert.Equal(t, 1, m.Writes(slot.ChunkKey(recordID, i)), "indexed slot %d must be written exactly once", i)
	}
	last, _ := m.Peek(slot.ChunkKey(recordID, 44))
	assert.Len(t, last, 1000)
	tail, _ := m.Peek(slot.ChunkKey(recordID, 45))
	assert.Empty(t, tail)
}

func TestInlineThreshold(t *testing.T) {
	ctx := context.Background()

	// {"s":991} is 9 characters, so 991 payload characters fill the slot.
	m := mock.New()
	rec := openString(t, m)
	require.True(t, rec.Save(ctx, payloadOfSize(991, "i"), ""))
	assert.Equal(t, storage.Metadata{Chunks: 0, Size: 991}, rec.Metadata(ctx))
	assert.Equal(t, 1, m.Len())

	m = mock.New()
	rec = openString(t, m)
	require.True(t, rec.Save(ctx, payloadOfSize(992, "i"), ""))
	assert.Equal(t, storage.Metadata{Chunks: 1, Size: 992}, rec.Metadata(ctx))
	assert.Equal(t, 1+storage.MaxChunks, m.Len())

	got, ok := rec.Load(ctx)
	require.True(t, ok)
	assert.Equal(t, payloadOfSize(992, "i"), got)
}

func TestVersionCountsTowardsInlineThreshold(t *testing.T) {
	ctx := context.Background()
	m := mock.New()
	rec := openString(t, m)

	// {"v":"abc","s":991} is 19 characters.
	require.True(t, rec.Save(ctx, payloadOfSize(991, "i"), "abc"))
	assert.Equal(t, 1, rec.Metadata(ctx).Chunks)

	require.True(t, rec.Save(ctx, payloadOfSize(981, "i"), "abc"))
	meta := rec.Metadata(ctx)
	assert.Equal(t, 0, meta.Chunks)
	assert.Equal(t, "abc", meta.Version)
}

func TestRejectionBoundary(t *testing.T) {
	ctx := context.Background()
	m := mock.New()
	rec := openString(t, m)

	atLimit := payloadOfSize(storage.MaxTotalSize, "z")
	require.True(t, rec.Save(ctx, atLimit, "max"))
	assert.Equal(t, storage.Metadata{Version: "max", Chunks: 60, Size: 60000}, rec.Metadata(ctx))

	before := m.Snapshot()
	assert.False(t, rec.Save(ctx, payloadOfSize(storage.MaxTotalSize+1, "y"), "over"))
	assert.Equal(t, before, m.Snapshot(), "a rejected save must not modify any slot")

	err := rec.Put(ctx, payloadOfSize(storage.MaxTotalSize+1, "y"), "over")
	require.ErrorIs(t, err, storage.ErrOversizedPayload)

	got, ok := rec.Load(ctx)
	require.True(t, ok)
	assert.Equal(t, atLimit, got)
}

func TestShrinkThenResaveClearsStaleChunks(t *testing.T) {
	ctx := context.Background()
	m := mock.New()
	rec := openString(t, m)

	require.True(t, rec.Save(ctx, payloadOfSize(50000, "a"), ""))
	assert.Equal(t, 50, rec.Metadata(ctx).Chunks)

	second := payloadOfSize(5000, "b")
	require.True(t, rec.Save(ctx, second, ""))
	assert.Equal(t, 5, rec.Metadata(ctx).Chunks)

	for i := 5; i < storage.MaxChunks; i++ {
		v, _ := m.Peek(slot.ChunkKey(recordID, i))
		assert.Empty(t, v, "indexed slot %d must be blanked", i)
	}

	got, ok := rec.Load(ctx)
	require.True(t, ok)
	assert.Equal(t, second, got)
}

func TestChunkedThenInlineLeavesIndexedSlots(t *testing.T) {
	ctx := context.Background()
	m := mock.New()
	rec := openString(t, m)

	require.True(t, rec.Save(ctx, payloadOfSize(3000, "a"), ""))
	require.True(t, rec.Save(ctx, "tiny", ""))

	got, ok := rec.Load(ctx)
	require.True(t, ok)
	assert.Equal(t, "tiny", got)

	// The inline path never touches indexed slots, the header alone decides.
	stale, _ := m.Peek(slot.ChunkKey(recordID, 0))
	assert.NotEmpty(t, stale)
	assert.Equal(t, 0, rec.Metadata(ctx).Chunks)
}

func TestMissingRecord(t *testing.T) {
	ctx := context.Background()
	rec := openString(t, mock.New())

	got, ok := rec.Load(ctx)
	assert.False(t, ok)
	assert.Empty(t, got)
	assert.Equal(t, storage.Metadata{Chunks: 0, Size: 0}, rec.Metadata(ctx))

	_, err := rec.Fetch(ctx)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestCorruptPrimarySlot(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name    string
		primary string
	}{
		{name: "not json", primary: "definitely {not json"},
		{name: "array", primary: `[1,2,3]`},
		{name: "negative chunk count", primary: `{"c":-1,"s":10}`},
		{name: "fractional chunk count", primary: `{"c":1.5,"s":10}`},
		{name: "chunk count above limit", primary: `{"c":61,"s":10}`},
		{name: "string size", primary: `{"c":0,"s":"10","p":"1"}`},
		{name: "numeric payload", primary: `{"c":0,"s":1,"p":1}`},
		{name: "numeric version", primary: `{"v":2,"c":0,"s":1,"p":"1"}`},
		{name: "no payload no chunks", primary: `{"c":0,"s":10}`},
		{name: "inline payload not json", primary: `{"c":0,"s":3,"p":"{{{"}`},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			m := mock.New()
			require.NoError(t, m.Seed([]seed.Entry{{Key: recordID, Value: tc.primary}}))
			rec := openString(t, m)

			var (
				got string
				ok  bool
			)
			require.NotPanics(t, func() { got, ok = rec.Load(ctx) })
			assert.False(t, ok)
			assert.Empty(t, got)

			_, err := rec.Fetch(ctx)
			assert.ErrorIs(t, err, storage.ErrDecode)
		})
	}
}

func TestMetadataOfCorruptHeaderIsEmpty(t *testing.T) {
	m := mock.New()
	require.NoError(t, m.Seed([]seed.Entry{{Key: recordID, Value: "{oops"}}))
	rec := openString(t, m)
	assert.Equal(t, storage.Metadata{}, rec.Metadata(context.Background()))
}

func TestCorruptChunkIsAbsent(t *testing.T) {
	ctx := context.Background()
	m := mock.New()
	rec := openString(t, m)
	require.True(t, rec.Save(ctx, payloadOfSize(2500, "c"), ""))

	require.NoError(t, m.SetSlot(ctx, slot.ChunkKey(recordID, 2), "garbage"))
	_, ok := rec.Load(ctx)
	assert.False(t, ok)
}

func TestMetadataReadsOnlyPrimarySlot(t *testing.T) {
	ctx := context.Background()
	m := mock.New()
	rec := openString(t, m)
	require.True(t, rec.Save(ctx, payloadOfSize(30000, "m"), "7"))

	before := m.TotalReads()
	meta := rec.Metadata(ctx)
	assert.Equal(t, storage.Metadata{Version: "7", Chunks: 30, Size: 30000}, meta)
	assert.Equal(t, before+1, m.TotalReads())
	assert.Equal(t, 0, m.Reads(slot.ChunkKey(recordID, 0)))
}

func TestLoadReadsOnlyUsedChunks(t *testing.T) {
	ctx := context.Background()
	m := mock.New()
	rec := openString(t, m)
	require.True(t, rec.Save(ctx, payloadOfSize(3500, "r"), ""))

	_, ok := rec.Load(ctx)
	require.True(t, ok)
	for i := 0; i < 4; i++ {
		assert.Equal(t, 1, m.Reads(slot.ChunkKey(recordID, i)))
	}
	assert.Equal(t, 0, m.Reads(slot.ChunkKey(recordID, 4)))
}

func TestMultiByteCharactersChunkOnRuneBoundaries(t *testing.T) {
	ctx := context.Background()
	m := mock.New(mock.WithCapacity(storage.MaxChunkLen))
	rec := openString(t, m)

	value := strings.Repeat("é漢🙂", 700)
	require.True(t, rec.Save(ctx, value, ""))

	meta := rec.Metadata(ctx)
	assert.Equal(t, 2102, meta.Size)
	assert.Equal(t, 3, meta.Chunks)
	for i := 0; i < meta.Chunks; i++ {
		fragment, _ := m.Peek(slot.ChunkKey(recordID, i))
		assert.True(t, utf8.ValidString(fragment), "fragment %d must be valid UTF-8", i)
		assert.LessOrEqual(t, utf8.RuneCountInString(fragment), storage.MaxChunkLen)
	}

	got, ok := rec.Load(ctx)
	require.True(t, ok)
	assert.Equal(t, value, got)
}

func TestHTMLCharactersAreNotEscaped(t *testing.T) {
	ctx := context.Background()
	m := mock.New()
	rec := openString(t, m)
	require.True(t, rec.Save(ctx, "<a&b>", ""))
	assert.Equal(t, 7, rec.Metadata(ctx).Size)
}

func TestNullValueRoundTrips(t *testing.T) {
	ctx := context.Background()
	m := mock.New()
	rec, err := storage.Open[*board](m, recordID)
	require.NoError(t, err)

	require.True(t, rec.Save(ctx, nil, ""))
	got, ok := rec.Load(ctx)
	require.True(t, ok)
	assert.Nil(t, got)
	assert.Equal(t, 4, rec.Metadata(ctx).Size)
}

func TestGenericValuesRoundTrip(t *testing.T) {
	ctx := context.Background()
	m := mock.New()
	rec, err := storage.Open[any](m, recordID)
	require.NoError(t, err)

	value := map[string]any{
		"n":     1.5,
		"s":     "text",
		"b":     true,
		"null":  nil,
		"list":  []any{"a", 2.0, false},
		"inner": map[string]any{"k": "v"},
	}
	require.True(t, rec.Save(ctx, value, ""))
	got, ok := rec.Load(ctx)
	require.True(t, ok)
	assert.Equal(t, value, got)
}

func TestLoadIntoMismatchedTypeIsAbsent(t *testing.T) {
	ctx := context.Background()
	m := mock.New()
	require.True(t, openString(t, m).Save(ctx, "not a number", ""))

	rec, err := storage.Open[int](m, recordID, storage.WithLogger(quietLogger()))
	require.NoError(t, err)
	_, ok := rec.Load(ctx)
	assert.False(t, ok)
}

func TestUnencodableValueIsRejected(t *testing.T) {
	ctx := context.Background()
	m := mock.New()
	rec, err := storage.Open[any](m, recordID, storage.WithLogger(quietLogger()))
	require.NoError(t, err)

	assert.False(t, rec.Save(ctx, make(chan int), ""))
	assert.ErrorIs(t, rec.Put(ctx, make(chan int), ""), storage.ErrEncode)
	assert.Equal(t, 0, m.Len())
}

func TestTornWriteDuringShrinkIsAbsent(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("host refused write")
	// First save: primary + 60 indexed slots. Second save: primary + 10 indexed slots, then failure.
	m := mock.New(mock.WithFault(mock.FailAfter(1+storage.MaxChunks+1+10, boom)))
	rec := openString(t, m)

	require.True(t, rec.Save(ctx, payloadOfSize(50000, "a"), "1"))

	err := rec.Put(ctx, payloadOfSize(30000, "b"), "2")
	require.ErrorIs(t, err, storage.ErrSlotWrite)
	require.ErrorIs(t, err, boom)

	assert.Equal(t, storage.Metadata{Version: "2", Chunks: 30, Size: 30000}, rec.Metadata(ctx))
	var ok bool
	require.NotPanics(t, func() { _, ok = rec.Load(ctx) })
	assert.False(t, ok, "mixed fragments must not decode")
}

func TestTornWriteCanDecodeStaleFragments(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("host refused write")
	// Second save only gets its primary slot written.
	m := mock.New(mock.WithFault(mock.FailAfter(1+storage.MaxChunks+1, boom)))
	rec := openString(t, m)

	first := payloadOfSize(5000, "a")
	require.True(t, rec.Save(ctx, first, "1"))
	assert.False(t, rec.Save(ctx, payloadOfSize(5000, "b"), "2"))

	assert.Equal(t, "2", rec.Metadata(ctx).Version)
	got, ok := rec.Load(ctx)
	require.True(t, ok)
	assert.Equal(t, first, got, "a torn save with an unchanged chunk count reads back the previous fragments")
}

func TestInlineWriteFailure(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("host refused write")
	m := mock.New(mock.WithFault(mock.FailAfter(0, boom)))
	rec := openString(t, m)

	assert.False(t, rec.Save(ctx, "small", ""))
	_, ok := rec.Load(ctx)
	assert.False(t, ok)
}

func TestSaveFailureIsLogged(t *testing.T) {
	ctx := context.Background()
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	rec, err := storage.Open[string](mock.New(), recordID, storage.WithLogger(logger))
	require.NoError(t, err)

	require.False(t, rec.Save(ctx, payloadOfSize(storage.MaxTotalSize+1, "o"), ""))
	assert.Contains(t, buf.String(), "oversized payload")
	assert.Contains(t, buf.String(), "record=@game/board")
}

func TestDecodeFailureIsLoggedButMissingIsNot(t *testing.T) {
	ctx := context.Background()
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	m := mock.New()
	rec, err := storage.Open[string](m, recordID, storage.WithLogger(logger))
	require.NoError(t, err)

	_, ok := rec.Load(ctx)
	require.False(t, ok)
	assert.Empty(t, buf.String())

	require.NoError(t, m.SetSlot(ctx, recordID, "nope"))
	_, ok = rec.Load(ctx)
	require.False(t, ok)
	assert.Contains(t, buf.String(), "level=WARN")
}

func TestOpenValidation(t *testing.T) {
	_, err := storage.Open[string](nil, recordID)
	assert.Error(t, err)

	for _, id := range []string{"", "game/board", "@", "@game", "@/board", "@game/", "@ /x"} {
		_, err := storage.Open[string](mock.New(), id)
		assert.ErrorIs(t, err, storage.ErrInvalidID, "id %q", id)
	}

	rec, err := storage.Open[string](mock.New(), "@ns/with/slashes")
	require.NoError(t, err)
	assert.Equal(t, "@ns/with/slashes", rec.ID())

	assert.Panics(t, func() { storage.MustOpen[string](mock.New(), "bad") })
}

func TestRecordsDoNotInterfere(t *testing.T) {
	ctx := context.Background()
	m := mock.New()
	a := storage.MustOpen[string](m, "@game/a")
	b := storage.MustOpen[string](m, "@game/b")

	require.True(t, a.Save(ctx, payloadOfSize(4000, "a"), ""))
	require.True(t, b.Save(ctx, "bee", ""))

	gotA, ok := a.Load(ctx)
	require.True(t, ok)
	assert.Equal(t, payloadOfSize(4000, "a"), gotA)
	gotB, ok := b.Load(ctx)
	require.True(t, ok)
	assert.Equal(t, "bee", gotB)
}
