package storage

import (
	"bytes"
	"encoding/json"
	"unicode/utf8"
)

// encode produces the canonical payload for v.
func encode(v any) (string, error) {
	buf := &bytes.Buffer{}
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return "", err
	}
	return string(bytes.TrimRight(buf.Bytes(), "\n")), nil
}

func runeLen(s string) int {
	return utf8.RuneCountInString(s)
}

// split cuts s into fragments of at most size characters. Boundaries are
// positional and always fall between code points.
func split(s string, size int) []string {
	if s == "" || size <= 0 {
		return nil
	}
	chunks := make([]string, 0, (runeLen(s)+size-1)/size)
	start, count := 0, 0
	for i := range s {
		if count == size {
			chunks = append(chunks, s[start:i])
			start, count = i, 0
		}
		count++
	}
	return append(chunks, s[start:])
}
