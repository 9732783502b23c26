package kb

import "github.com/amigazen/insight/internal/alert"

// Result is a successful lookup.
//
// The description is borrowed from the knowledge base row and lives as long
// as the Base. The expanded hint belongs to this Result alone; releasing
// another Result for the same code does not touch it.
type Result struct {
	Code alert.Code

	entry *Entry // borrowed
	hint  string // owned
	size  int64
	owner *Base
}

// Description returns the row's description.
func (r *Result) Description() string {
	return r.entry.Description
}

// Hint returns the expanded hint. It is empty after Release.
func (r *Result) Hint() string {
	return r.hint
}

// Group returns the section the matched row was declared under.
func (r *Result) Group() string {
	return r.entry.Group
}

// Entry returns a copy of the matched (unexpanded) row.
func (r *Result) Entry() Entry {
	return *r.entry
}

// IsFatal reports whether the matched code has the dead-end bit set.
func (r *Result) IsFatal() bool {
	return r.Code.IsFatal()
}

// Released reports whether Release has been called.
func (r *Result) Released() bool {
	return r.owner == nil
}

// Release gives the result's reservations back to its Base. Calling it on
// nil or on a released result does nothing.
func (r *Result) Release() {
	if r == nil || r.owner == nil {
		return
	}
	r.owner.results.release(1)
	r.owner.hintBytes.release(r.size)
	r.owner = nil
	r.hint = ""
	r.size = 0
}
