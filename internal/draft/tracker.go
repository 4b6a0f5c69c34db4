// Package draft tracks the difference between a settings panel's working
// value and the last value known to be persisted on the server.
//
// The tracker stores a structurally independent snapshot of the last-saved
// value and compares it against the live working value to derive a dirty
// flag. Comparison and copying go through JSON serialization, so T must be a
// plain value type: no functions, no cyclic references, no non-finite
// numbers. Equality is by value over the serialized form; key order is
// irrelevant and two values that marshal identically are equal regardless of
// whether they share storage.
package draft

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Tracker holds the last-saved baseline for one settings section.
// The zero value is ready to use and means "not yet loaded".
type Tracker[T any] struct {
	baseline []byte // canonical JSON of the last-saved value, nil until set
}

// HasUnsavedChanges reports whether current differs structurally from the
// baseline. Returns false when no baseline has been set or current is nil:
// a panel that has not loaded cannot be dirty.
func (t *Tracker[T]) HasUnsavedChanges(current *T) bool {
	if t.baseline == nil || current == nil {
		return false
	}
	data, err := json.Marshal(current)
	if err != nil {
		// T violated the serializable-value precondition; treat as dirty so
		// the problem surfaces instead of silently dropping edits.
		return true
	}
	return !bytes.Equal(t.baseline, data)
}

// ResetOriginal stores an independent deep copy of v as the new baseline.
// Call after every successful load and after every successful save.
func (t *Tracker[T]) ResetOriginal(v T) {
	data, err := json.Marshal(v)
	if err != nil {
		panic(fmt.Sprintf("draft: unserializable baseline value: %v", err))
	}
	t.baseline = data
}

// DiscardChanges returns an independent deep copy of the baseline for the
// panel to adopt as its working value, or nil when no baseline is set.
// Mutating the returned value never affects the stored baseline.
func (t *Tracker[T]) DiscardChanges() *T {
	if t.baseline == nil {
		return nil
	}
	var v T
	if err := json.Unmarshal(t.baseline, &v); err != nil {
		panic(fmt.Sprintf("draft: corrupt baseline: %v", err))
	}
	return &v
}

// Loaded reports whether a baseline has been set.
func (t *Tracker[T]) Loaded() bool {
	return t.baseline != nil
}
