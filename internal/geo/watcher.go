package geo

import (
	"context"
	"sync"
)

// Watcher re-runs the eligibility check whenever the tracked address or its
// selected flag changes, and keeps the result of the newest address only. A
// lookup that finishes after the address has moved on is dropped: last write
// wins by address identity, not by completion order.
type Watcher struct {
	checker *Checker

	mu       sync.Mutex
	current  string
	selected bool
	result   Eligibility
	checked  bool
}

func NewWatcher(checker *Checker) *Watcher {
	return &Watcher{checker: checker}
}

// Update records the new candidate address and runs the check. The returned
// Eligibility always reflects this call's address; the stored result is only
// replaced when the address is still current once the lookup returns.
func (w *Watcher) Update(ctx context.Context, address string, selected bool) Eligibility {
	w.mu.Lock()
	w.current = address
	w.selected = selected
	w.mu.Unlock()

	res := w.checker.CheckEligibility(ctx, address, selected)

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.current == address && w.selected == selected {
		w.result = res
		w.checked = true
	}
	return res
}

// Latest returns the stored result for the currently tracked address.
func (w *Watcher) Latest() (string, Eligibility, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.current, w.result, w.checked
}

// Eligible reports whether the current address passes, treating an unchecked
// address as passing (the short-circuit policy applies until a qualifying
// address is selected).
func (w *Watcher) Eligible() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.checked {
		return true
	}
	return w.result.Eligible
}

// Reset clears the tracked address and result.
func (w *Watcher) Reset() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.current = ""
	w.selected = false
	w.result = Eligibility{}
	w.checked = false
}
