package room

import (
	"errors"

	"github.com/ndtvumkp-dev/loto-mien-tay/internal/deck"
)

// Kind buckets every domain error for the boundary layer; it becomes the
// notice code sent back to the acting participant.
type Kind string

const (
	KindInvalidInput       Kind = "invalid-input"
	KindNotFound           Kind = "not-found"
	KindConflict           Kind = "conflict"
	KindForbidden          Kind = "forbidden"
	KindPreconditionFailed Kind = "precondition-failed"
)

var (
	ErrInvalidPlayerName = errors.New("player name must be 1-24 characters")
	ErrInvalidRoomName   = errors.New("room name must not be empty")
	ErrInvalidCapacity   = errors.New("room capacity must be between 2 and 10")
	ErrEmptyChatMessage  = errors.New("chat message is empty")

	ErrRoomNotFound    = errors.New("room not found")
	ErrNotAParticipant = errors.New("not a participant of this room")

	ErrTicketTaken     = errors.New("ticket already held by another participant")
	ErrRoomFull        = errors.New("room is full")
	ErrRoomNotJoinable = errors.New("room is not accepting participants")

	ErrNotHost         = errors.New("only the host may do that")
	ErrEliminated      = errors.New("eliminated for the rest of this round")
	ErrRoomNotWaiting  = errors.New("room is not in the waiting state")
	ErrRoomNotPlaying  = errors.New("no round is in progress")
	ErrCannotKickHost  = errors.New("the host cannot be kicked")
	ErrTicketCommitted = errors.New("participant already committed to a ticket")

	ErrNotEnoughParticipants = errors.New("at least two participants are required")
	ErrTicketsNotSelected    = errors.New("every participant must hold a ticket first")
	ErrRoundNotEnded         = errors.New("round has not ended")
	ErrNoTicketAssigned      = errors.New("no ticket assigned")
)

// KindOf maps a domain error to its taxonomy bucket. Unrecognized errors
// count as invalid input: they can only come from malformed requests.
func KindOf(err error) Kind {
	switch {
	case errors.Is(err, ErrRoomNotFound),
		errors.Is(err, ErrNotAParticipant),
		errors.Is(err, deck.ErrTicketNotFound):
		return KindNotFound
	case errors.Is(err, ErrTicketTaken),
		errors.Is(err, ErrRoomFull),
		errors.Is(err, ErrRoomNotJoinable):
		return KindConflict
	case errors.Is(err, ErrNotHost),
		errors.Is(err, ErrEliminated),
		errors.Is(err, ErrRoomNotWaiting),
		errors.Is(err, ErrRoomNotPlaying),
		errors.Is(err, ErrCannotKickHost),
		errors.Is(err, ErrTicketCommitted):
		return KindForbidden
	case errors.Is(err, ErrNotEnoughParticipants),
		errors.Is(err, ErrTicketsNotSelected),
		errors.Is(err, ErrRoundNotEnded),
		errors.Is(err, ErrNoTicketAssigned):
		return KindPreconditionFailed
	default:
		return KindInvalidInput
	}
}
