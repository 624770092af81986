package store

import "sync"

// Logger delivers each Event exactly once to a listener callback, even if
// Flush is called repeatedly over overlapping event windows: it tracks a
// monotonic high-water mark and only ever delivers events past it.
type Logger struct {
	mu         sync.Mutex
	eventCount uint64
	listener   func(Event)
}

// NewLogger returns a Logger that delivers undelivered events to listener.
func NewLogger(listener func(Event)) *Logger {
	return &Logger{listener: listener}
}

// Deliver delivers any events in events beyond what has already been sent,
// treating events as the full, ordered log observed so far.
func (l *Logger) Deliver(events []Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if uint64(len(events)) <= l.eventCount {
		return
	}
	fresh := events[l.eventCount:]
	l.eventCount = uint64(len(events))
	for _, e := range fresh {
		l.listener(e)
	}
}

// EventCount returns the number of events delivered so far.
func (l *Logger) EventCount() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.eventCount
}
