package room

import "time"

// caller is the armed number-calling scheduler for one round. The goroutine
// it owns never touches room state: it only delivers tickMsg values into the
// room inbox, stamped with the round they belong to, so they serialize with
// participant actions.
type caller struct {
	round int
	stop  chan struct{}
}

// armCaller starts the scheduler for the current round. Must only be called
// from the actor goroutine.
func (r *Room) armCaller() {
	c := &caller{round: r.round, stop: make(chan struct{})}
	r.caller = c

	go func() {
		ticker := time.NewTicker(r.cfg.CallInterval)
		defer ticker.Stop()
		for {
			select {
			case <-c.stop:
				return
			case <-ticker.C:
				select {
				case r.inbox <- tickMsg{round: c.round}:
				case <-c.stop:
					return
				case <-r.done:
					return
				}
			}
		}
	}()
}

// disarmCaller cancels the scheduler synchronously with whatever transition
// is ending the round. A tick already queued behind this event carries a
// stale round number and is discarded by handleTick.
func (r *Room) disarmCaller() {
	if r.caller == nil {
		return
	}
	close(r.caller.stop)
	r.caller = nil
}
