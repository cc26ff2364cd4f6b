package storage

import (
	"fmt"
	"strings"
)

// ValidateID checks that id has the form "@namespace/name" with both parts
// non-empty.
func ValidateID(id string) error {
	if !strings.HasPrefix(id, "@") {
		return fmt.Errorf("%w: %q must start with '@'", ErrInvalidID, id)
	}
	ns, name, ok := strings.Cut(id[1:], "/")
	if !ok || strings.TrimSpace(ns) == "" || strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: %q must look like @namespace/name", ErrInvalidID, id)
	}
	return nil
}
