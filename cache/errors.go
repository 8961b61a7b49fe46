package cache

import (
	"errors"
	"fmt"
)

// ErrCorruptEntry anchors errors.Is checks for local cache corruption.
var ErrCorruptEntry = errors.New("corrupt cache entry")

// CorruptEntryError indicates a registry record whose blob is missing or
// disagrees with the recorded size. This is local data corruption, not a
// cache miss, and callers must treat it as a hard failure.
type CorruptEntryError struct {
	SourceURL string
	Reason    string
}

func (e *CorruptEntryError) Error() string {
	return fmt.Sprintf("corrupt cache entry for %s: %s", e.SourceURL, e.Reason)
}

// Is implements error matching for errors.Is checks.
func (e *CorruptEntryError) Is(target error) bool {
	return target == ErrCorruptEntry
}
