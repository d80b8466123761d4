package analysis

import (
	"context"
	"sync"
)

// DoneSentinel is the reserved message that terminates every progress
// stream. It is appended exactly once by Close.
const DoneSentinel = "DONE"

// ProgressLog is a per-job append-only sequence of human-readable
// messages. History is retained so late subscribers replay from the
// start; the DONE sentinel ends every subscription.
type ProgressLog struct {
	mu      sync.Mutex
	cond    *sync.Cond
	entries []string
	closed  bool
}

// NewProgressLog constructs an empty log.
func NewProgressLog() *ProgressLog {
	l := &ProgressLog{}
	l.cond = sync.NewCond(&l.mu)
	return l
}

// Append adds one message. Appends after Close are no-ops.
func (l *ProgressLog) Append(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return
	}
	l.entries = append(l.entries, msg)
	l.cond.Broadcast()
}

// Close appends the DONE sentinel and seals the log. Safe to call more
// than once.
func (l *ProgressLog) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return
	}
	l.entries = append(l.entries, DoneSentinel)
	l.closed = true
	l.cond.Broadcast()
}

// Subscribe replays history from the start and then streams new messages
// until the sentinel is delivered or ctx is cancelled. The returned
// channel is closed when the subscription ends.
func (l *ProgressLog) Subscribe(ctx context.Context) <-chan string {
	out := make(chan string)

	// Wake the reader loop when the subscriber goes away.
	stop := context.AfterFunc(ctx, func() {
		l.mu.Lock()
		l.cond.Broadcast()
		l.mu.Unlock()
	})

	go func() {
		defer close(out)
		defer stop()

		next := 0
		for {
			l.mu.Lock()
			for next >= len(l.entries) && !l.closed && ctx.Err() == nil {
				l.cond.Wait()
			}
			if ctx.Err() != nil {
				l.mu.Unlock()
				return
			}
			if next >= len(l.entries) {
				// Closed with everything already delivered.
				l.mu.Unlock()
				return
			}
			msg := l.entries[next]
			next++
			l.mu.Unlock()

			select {
			case out <- msg:
			case <-ctx.Done():
				return
			}
			if msg == DoneSentinel {
				return
			}
		}
	}()
	return out
}

// Snapshot returns a copy of all messages appended so far.
func (l *ProgressLog) Snapshot() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.entries...)
}
