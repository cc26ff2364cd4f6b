// Package storage persists JSON-representable values into a slot.Store whose
// slots are capacity-limited strings.
//
// A record lives under a namespaced id such as "@game/board". Its primary
// slot holds a small JSON header:
//
//	{"v":"<version>","c":<chunk count>,"s":<payload size>,"p":"<payload>"}
//
// Small payloads are stored inline in "p" with c == 0. Larger payloads are
// split positionally into MaxChunkLen-character fragments stored at
// "<id>[0]" .. "<id>[c-1]", and every chunked save rewrites all MaxChunks
// indexed slots, blanking the unused tail so fragments left by an earlier,
// larger save can never be read back.
//
// Sizes and chunk boundaries are counted in Unicode code points.
//
// Save reports failure as false and Load reports every failure as absence;
// both send the reason to the record's *slog.Logger. Put and Fetch expose the
// same operations with errors for callers that want them.
//
// Saves are not atomic: the primary slot is written before the indexed slots,
// so an interrupted chunked save leaves a torn record. Callers writing the same
// id from several goroutines must serialize those calls themselves.
package storage
