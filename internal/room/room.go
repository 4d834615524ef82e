package room

import (
	"context"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"github.com/ndtvumkp-dev/loto-mien-tay/internal/deck"
	"github.com/ndtvumkp-dev/loto-mien-tay/internal/types"
)

type Status string

const (
	StatusWaiting Status = "waiting"
	StatusPlaying Status = "playing"
	StatusEnded   Status = "ended"
)

const (
	// Capacity bounds for a room.
	MinCapacity = 2
	MaxCapacity = 10

	// MaxChatRunes caps a relayed chat message.
	MaxChatRunes = 200

	maxNameRunes = 24
)

// Config holds per-room tunables.
type Config struct {
	// CallInterval is the pause between number calls.
	CallInterval time.Duration
	// ClearTicketsOnReset forces a fresh ticket-selection phase after every
	// round instead of keeping assignments for a quick restart.
	ClearTicketsOnReset bool
}

func DefaultConfig() Config {
	return Config{CallInterval: 10 * time.Second}
}

// Profile identifies a connecting participant.
type Profile struct {
	ID   string
	Name string
}

// Event is a room's report to the registry: an updated summary, or Closed
// when the room emptied and shut down.
type Event struct {
	RoomID  string
	Summary types.RoomSummary
	Closed  bool
}

type participant struct {
	id         string
	name       string
	ticketID   string // "" while unselected
	score      int
	eliminated bool
}

// Room is one session's authoritative state. All mutation happens on the
// actor goroutine started by New; the exported methods deliver messages into
// its inbox and wait for the reply.
type Room struct {
	id       string
	name     string
	capacity int
	hostID   string
	status   Status

	participants []*participant
	held         map[string]string // ticket id -> participant id
	called       []int
	current      int // 0 = none yet
	remaining    []int
	round        int // generation counter, bumps on every start
	caller       *caller

	deck    *deck.Deck
	cfg     Config
	rng     *rand.Rand
	clients map[string]chan<- types.ServerMessage

	inbox  chan message
	done   chan struct{}
	closed bool
	ctx    context.Context
	events chan<- Event
	log    *zap.SugaredLogger
}

type message interface{ isRoomMsg() }

type joinMsg struct {
	p      Profile
	outbox chan<- types.ServerMessage
	reply  chan joinReply
}

type joinReply struct {
	snap types.RoomSnapshot
	err  error
}

type leaveMsg struct {
	pid   string
	reply chan error
}

type selectTicketMsg struct {
	pid      string
	ticketID string
	reply    chan error
}

type kickMsg struct {
	pid      string
	targetID string
	reply    chan error
}

type startMsg struct {
	pid   string
	reply chan error
}

type resetMsg struct {
	pid   string
	reply chan error
}

type claimMsg struct {
	pid   string
	reply chan error
}

type chatMsg struct {
	pid   string
	text  string
	reply chan error
}

type tickMsg struct{ round int }

type viewMsg struct{ reply chan types.RoomSnapshot }

func (joinMsg) isRoomMsg()         {}
func (leaveMsg) isRoomMsg()        {}
func (selectTicketMsg) isRoomMsg() {}
func (kickMsg) isRoomMsg()         {}
func (startMsg) isRoomMsg()        {}
func (resetMsg) isRoomMsg()        {}
func (claimMsg) isRoomMsg()        {}
func (chatMsg) isRoomMsg()         {}
func (tickMsg) isRoomMsg()         {}
func (viewMsg) isRoomMsg()         {}

// New creates a room in the waiting state with the creator as sole
// participant and host, and starts its actor goroutine. The returned
// snapshot reflects that initial state. The room reports state changes on
// events and shuts down when it empties or ctx is canceled.
func New(
	ctx context.Context,
	id, name string,
	capacity int,
	host Profile,
	hostOutbox chan<- types.ServerMessage,
	d *deck.Deck,
	cfg Config,
	events chan<- Event,
	log *zap.SugaredLogger,
) (*Room, types.RoomSnapshot) {
	if cfg.CallInterval <= 0 {
		cfg.CallInterval = DefaultConfig().CallInterval
	}
	r := &Room{
		id:       id,
		name:     name,
		capacity: capacity,
		hostID:   host.ID,
		status:   StatusWaiting,
		held:     make(map[string]string),
		deck:     d,
		cfg:      cfg,
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
		clients:  make(map[string]chan<- types.ServerMessage),
		inbox:    make(chan message, 64),
		done:     make(chan struct{}),
		ctx:      ctx,
		events:   events,
		log:      log.With("room", id),
	}
	r.participants = append(r.participants, &participant{id: host.ID, name: host.Name})
	r.clients[host.ID] = hostOutbox
	snap := r.snapshot()

	go r.loop()
	return r, snap
}

func (r *Room) loop() {
	for !r.closed {
		select {
		case <-r.ctx.Done():
			r.disarmCaller()
			r.closed = true
		case m := <-r.inbox:
			r.dispatch(m)
		}
	}
	close(r.done)
	r.drainInbox()
	if r.events != nil {
		select {
		case r.events <- Event{RoomID: r.id, Closed: true}:
		case <-r.ctx.Done():
		}
	}
	r.log.Infow("room closed")
}

func (r *Room) dispatch(m message) {
	switch msg := m.(type) {
	case joinMsg:
		snap, err := r.handleJoin(msg.p, msg.outbox)
		msg.reply <- joinReply{snap: snap, err: err}
	case leaveMsg:
		msg.reply <- r.handleLeave(msg.pid)
	case selectTicketMsg:
		msg.reply <- r.handleSelectTicket(msg.pid, msg.ticketID)
	case kickMsg:
		msg.reply <- r.handleKick(msg.pid, msg.targetID)
	case startMsg:
		msg.reply <- r.handleStart(msg.pid)
	case resetMsg:
		msg.reply <- r.handleReset(msg.pid)
	case claimMsg:
		msg.reply <- r.handleClaim(msg.pid)
	case chatMsg:
		msg.reply <- r.handleChat(msg.pid, msg.text)
	case tickMsg:
		r.handleTick(msg)
	case viewMsg:
		msg.reply <- r.snapshot()
	}
}

// drainInbox answers everything still queued after shutdown so no caller
// hangs on a reply.
func (r *Room) drainInbox() {
	for {
		select {
		case m := <-r.inbox:
			switch msg := m.(type) {
			case joinMsg:
				msg.reply <- joinReply{err: ErrRoomNotFound}
			case leaveMsg:
				msg.reply <- ErrRoomNotFound
			case selectTicketMsg:
				msg.reply <- ErrRoomNotFound
			case kickMsg:
				msg.reply <- ErrRoomNotFound
			case startMsg:
				msg.reply <- ErrRoomNotFound
			case resetMsg:
				msg.reply <- ErrRoomNotFound
			case claimMsg:
				msg.reply <- ErrRoomNotFound
			case chatMsg:
				msg.reply <- ErrRoomNotFound
			case viewMsg:
				msg.reply <- types.RoomSnapshot{}
			}
		default:
			return
		}
	}
}

// ID returns the room code.
func (r *Room) ID() string { return r.id }

// Join appends a participant and registers their outbox for broadcasts.
func (r *Room) Join(p Profile, outbox chan<- types.ServerMessage) (types.RoomSnapshot, error) {
	reply := make(chan joinReply, 1)
	if err := r.send(joinMsg{p: p, outbox: outbox, reply: reply}); err != nil {
		return types.RoomSnapshot{}, err
	}
	select {
	case res := <-reply:
		return res.snap, res.err
	case <-r.done:
		select {
		case res := <-reply:
			return res.snap, res.err
		default:
			return types.RoomSnapshot{}, ErrRoomNotFound
		}
	}
}

// Leave removes a participant, releasing their ticket and reassigning the
// host if needed. The room shuts down when its last participant leaves.
// Disconnects go through here too.
func (r *Room) Leave(pid string) error {
	reply := make(chan error, 1)
	return r.call(leaveMsg{pid: pid, reply: reply}, reply)
}

// SelectTicket assigns or reassigns a deck ticket to a participant.
func (r *Room) SelectTicket(pid, ticketID string) error {
	reply := make(chan error, 1)
	return r.call(selectTicketMsg{pid: pid, ticketID: ticketID, reply: reply}, reply)
}

// Kick lets the host remove a participant who has not committed to a ticket.
func (r *Room) Kick(pid, targetID string) error {
	reply := make(chan error, 1)
	return r.call(kickMsg{pid: pid, targetID: targetID, reply: reply}, reply)
}

// Start begins a round: waiting -> playing.
func (r *Room) Start(pid string) error {
	reply := make(chan error, 1)
	return r.call(startMsg{pid: pid, reply: reply}, reply)
}

// Reset returns an ended room to waiting for the next round.
func (r *Room) Reset(pid string) error {
	reply := make(chan error, 1)
	return r.call(resetMsg{pid: pid, reply: reply}, reply)
}

// Claim asserts the participant's ticket is fully covered. A wrong claim is
// not an error: the claimant is eliminated and the room told, and Claim
// returns nil.
func (r *Room) Claim(pid string) error {
	reply := make(chan error, 1)
	return r.call(claimMsg{pid: pid, reply: reply}, reply)
}

// Chat relays a trimmed, length-capped message to the whole room.
func (r *Room) Chat(pid, text string) error {
	reply := make(chan error, 1)
	return r.call(chatMsg{pid: pid, text: text, reply: reply}, reply)
}

// Snapshot returns the current public state.
func (r *Room) Snapshot() (types.RoomSnapshot, error) {
	reply := make(chan types.RoomSnapshot, 1)
	if err := r.send(viewMsg{reply: reply}); err != nil {
		return types.RoomSnapshot{}, err
	}
	select {
	case snap := <-reply:
		return snap, nil
	case <-r.done:
		select {
		case snap := <-reply:
			return snap, nil
		default:
			return types.RoomSnapshot{}, ErrRoomNotFound
		}
	}
}

func (r *Room) send(m message) error {
	select {
	case r.inbox <- m:
		return nil
	case <-r.done:
		return ErrRoomNotFound
	}
}

func (r *Room) call(m message, reply chan error) error {
	if err := r.send(m); err != nil {
		return err
	}
	select {
	case err := <-reply:
		return err
	case <-r.done:
		// The actor exited; it may still have answered our message first.
		select {
		case err := <-reply:
			return err
		default:
			return ErrRoomNotFound
		}
	}
}
