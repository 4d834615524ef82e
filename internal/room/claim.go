package room

import "github.com/ndtvumkp-dev/loto-mien-tay/internal/deck"

// Covered reports whether every number on the ticket has been called.
//
// This is the traditional "kinh" rule: the whole ticket must be covered, not
// just a single row. Pure function; the room calls it exactly once per claim.
func Covered(t deck.Ticket, called []int) bool {
	calledSet := make(map[int]bool, len(called))
	for _, n := range called {
		calledSet[n] = true
	}
	for _, n := range t.Numbers() {
		if !calledSet[n] {
			return false
		}
	}
	return true
}
