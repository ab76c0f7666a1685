package circuit

import "time"

// DefaultActivityCapacity is how many activity lines are retained.
const DefaultActivityCapacity = 10

// ActivityLog is an append-only log that evicts its oldest entries beyond a
// fixed capacity.
type ActivityLog struct {
	entries  []ActivityEntry
	capacity int
	now      func() time.Time
}

// NewActivityLog creates a log holding at most capacity entries.
func NewActivityLog(capacity int) *ActivityLog {
	if capacity <= 0 {
		capacity = DefaultActivityCapacity
	}
	return &ActivityLog{
		entries:  make([]ActivityEntry, 0, capacity),
		capacity: capacity,
		now:      time.Now,
	}
}

// Append records message and returns the stored entry.
func (l *ActivityLog) Append(message string) ActivityEntry {
	entry := ActivityEntry{Time: l.now(), Message: message}
	if len(l.entries) == l.capacity {
		copy(l.entries, l.entries[1:])
		l.entries = l.entries[:l.capacity-1]
	}
	l.entries = append(l.entries, entry)
	return entry
}

// Entries returns a copy of the retained entries, oldest first.
func (l *ActivityLog) Entries() []ActivityEntry {
	return append([]ActivityEntry(nil), l.entries...)
}

// Len returns the number of retained entries.
func (l *ActivityLog) Len() int {
	return len(l.entries)
}
