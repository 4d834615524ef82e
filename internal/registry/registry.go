package registry

import (
	"context"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/ndtvumkp-dev/loto-mien-tay/internal/deck"
	"github.com/ndtvumkp-dev/loto-mien-tay/internal/room"
	"github.com/ndtvumkp-dev/loto-mien-tay/internal/types"
)

// Registry is the process-wide directory of live rooms. It is its own actor:
// the map of rooms, the summary index behind the room list, and the set of
// connected clients are touched only on its goroutine. Rooms report their
// own occupancy/status changes on the shared events channel; a room's Closed
// report is the last thing the registry ever observes for that id.
type Registry struct {
	inbox  chan command
	events chan room.Event

	rooms     map[string]*room.Room
	summaries map[string]types.RoomSummary
	clients   map[string]chan<- types.ServerMessage

	deck *deck.Deck
	cfg  room.Config
	log  *zap.SugaredLogger

	ctx    context.Context
	cancel context.CancelFunc
}

type command interface{ isRegistryCmd() }

type registerClient struct {
	id     string
	outbox chan<- types.ServerMessage
	done   chan struct{}
}

type unregisterClient struct {
	id   string
	done chan struct{}
}

type createRoom struct {
	host     room.Profile
	roomName string
	capacity int
	outbox   chan<- types.ServerMessage
	reply    chan createReply
}

type createReply struct {
	rm   *room.Room
	snap types.RoomSnapshot
	err  error
}

type lookupRoom struct {
	id    string
	reply chan *room.Room
}

type listRooms struct {
	reply chan []types.RoomSummary
}

func (registerClient) isRegistryCmd()   {}
func (unregisterClient) isRegistryCmd() {}
func (createRoom) isRegistryCmd()       {}
func (lookupRoom) isRegistryCmd()       {}
func (listRooms) isRegistryCmd()        {}

// New starts the registry actor. Canceling parent shuts down the registry
// and every room it owns.
func New(parent context.Context, d *deck.Deck, cfg room.Config, log *zap.SugaredLogger) *Registry {
	ctx, cancel := context.WithCancel(parent)
	r := &Registry{
		inbox:     make(chan command, 64),
		events:    make(chan room.Event, 64),
		rooms:     make(map[string]*room.Room),
		summaries: make(map[string]types.RoomSummary),
		clients:   make(map[string]chan<- types.ServerMessage),
		deck:      d,
		cfg:       cfg,
		log:       log,
		ctx:       ctx,
		cancel:    cancel,
	}
	go r.loop()
	return r
}

func (r *Registry) loop() {
	for {
		select {
		case <-r.ctx.Done():
			r.drainInbox()
			return
		case ev := <-r.events:
			r.handleEvent(ev)
		case c := <-r.inbox:
			r.handleCommand(c)
		}
	}
}

// drainInbox answers commands queued behind the shutdown so no caller hangs.
func (r *Registry) drainInbox() {
	for {
		select {
		case c := <-r.inbox:
			switch cmd := c.(type) {
			case registerClient:
				close(cmd.done)
			case unregisterClient:
				close(cmd.done)
			case createRoom:
				cmd.reply <- createReply{err: r.ctx.Err()}
			case lookupRoom:
				cmd.reply <- nil
			case listRooms:
				cmd.reply <- nil
			}
		default:
			return
		}
	}
}

func (r *Registry) handleEvent(ev room.Event) {
	if ev.Closed {
		delete(r.rooms, ev.RoomID)
		delete(r.summaries, ev.RoomID)
		r.log.Infow("room removed", "room", ev.RoomID)
	} else {
		r.summaries[ev.RoomID] = ev.Summary
	}
	r.broadcastRoomList()
}

func (r *Registry) handleCommand(c command) {
	switch cmd := c.(type) {
	case registerClient:
		r.clients[cmd.id] = cmd.outbox
		r.pushTo(cmd.outbox, types.ServerMessage{Type: types.MsgDeck, Deck: r.deck.Tickets()})
		r.pushTo(cmd.outbox, types.ServerMessage{Type: types.MsgRoomList, Rooms: r.roomList()})
		close(cmd.done)

	case unregisterClient:
		delete(r.clients, cmd.id)
		close(cmd.done)

	case createRoom:
		cmd.reply <- r.handleCreate(cmd)

	case lookupRoom:
		cmd.reply <- r.rooms[normalizeCode(cmd.id)]

	case listRooms:
		cmd.reply <- r.roomList()
	}
}

func (r *Registry) handleCreate(cmd createRoom) createReply {
	hostName, err := room.ValidatePlayerName(cmd.host.Name)
	if err != nil {
		return createReply{err: err}
	}
	roomName, err := room.ValidateRoomName(cmd.roomName)
	if err != nil {
		return createReply{err: err}
	}
	if err := room.ValidateCapacity(cmd.capacity); err != nil {
		return createReply{err: err}
	}

	var code string
	for {
		c, err := generateCode()
		if err != nil {
			return createReply{err: err}
		}
		if _, exists := r.rooms[c]; !exists {
			code = c
			break
		}
		r.log.Infow("room code collision, regenerating", "code", c)
	}

	host := room.Profile{ID: cmd.host.ID, Name: hostName}
	rm, snap := room.New(r.ctx, code, roomName, cmd.capacity, host, cmd.outbox, r.deck, r.cfg, r.events, r.log)
	r.rooms[code] = rm
	r.summaries[code] = types.RoomSummary{
		ID:        code,
		Name:      roomName,
		Capacity:  cmd.capacity,
		Occupancy: 1,
		Status:    string(room.StatusWaiting),
	}
	r.broadcastRoomList()
	r.log.Infow("room created", "room", code, "host", host.ID)
	return createReply{rm: rm, snap: snap}
}

func (r *Registry) roomList() []types.RoomSummary {
	list := make([]types.RoomSummary, 0, len(r.summaries))
	for _, s := range r.summaries {
		list = append(list, s)
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].Name != list[j].Name {
			return list[i].Name < list[j].Name
		}
		return list[i].ID < list[j].ID
	})
	return list
}

func (r *Registry) broadcastRoomList() {
	msg := types.ServerMessage{Type: types.MsgRoomList, Rooms: r.roomList()}
	for _, ch := range r.clients {
		r.pushTo(ch, msg)
	}
}

// pushTo never blocks the registry actor.
func (r *Registry) pushTo(ch chan<- types.ServerMessage, msg types.ServerMessage) {
	select {
	case ch <- msg:
	default:
		r.log.Warnw("dropping registry message for slow client", "msg", msg.Type)
	}
}

// RegisterClient adds a connection to the global broadcast set and pushes it
// the deck and the current room list.
func (r *Registry) RegisterClient(id string, outbox chan<- types.ServerMessage) {
	done := make(chan struct{})
	select {
	case r.inbox <- registerClient{id: id, outbox: outbox, done: done}:
		r.await(done)
	case <-r.ctx.Done():
	}
}

// UnregisterClient removes a connection. After it returns the registry will
// not touch the outbox again.
func (r *Registry) UnregisterClient(id string) {
	done := make(chan struct{})
	select {
	case r.inbox <- unregisterClient{id: id, done: done}:
		r.await(done)
	case <-r.ctx.Done():
	}
}

// await waits for the actor's acknowledgment, giving up on shutdown.
func (r *Registry) await(done <-chan struct{}) {
	select {
	case <-done:
	case <-r.ctx.Done():
	}
}

// CreateRoom makes a fresh room with the creator as host and sole member.
func (r *Registry) CreateRoom(host room.Profile, roomName string, capacity int, outbox chan<- types.ServerMessage) (*room.Room, types.RoomSnapshot, error) {
	reply := make(chan createReply, 1)
	select {
	case r.inbox <- createRoom{host: host, roomName: roomName, capacity: capacity, outbox: outbox, reply: reply}:
	case <-r.ctx.Done():
		return nil, types.RoomSnapshot{}, r.ctx.Err()
	}
	select {
	case res := <-reply:
		return res.rm, res.snap, res.err
	case <-r.ctx.Done():
		select {
		case res := <-reply:
			return res.rm, res.snap, res.err
		default:
			return nil, types.RoomSnapshot{}, r.ctx.Err()
		}
	}
}

// Lookup finds a live room by code, case-insensitively.
func (r *Registry) Lookup(id string) (*room.Room, error) {
	reply := make(chan *room.Room, 1)
	select {
	case r.inbox <- lookupRoom{id: id, reply: reply}:
	case <-r.ctx.Done():
		return nil, room.ErrRoomNotFound
	}
	var rm *room.Room
	select {
	case rm = <-reply:
	case <-r.ctx.Done():
		select {
		case rm = <-reply:
		default:
		}
	}
	if rm == nil {
		return nil, room.ErrRoomNotFound
	}
	return rm, nil
}

// ListRooms recomputes the current summaries on demand.
func (r *Registry) ListRooms() []types.RoomSummary {
	reply := make(chan []types.RoomSummary, 1)
	select {
	case r.inbox <- listRooms{reply: reply}:
	case <-r.ctx.Done():
		return nil
	}
	select {
	case list := <-reply:
		return list
	case <-r.ctx.Done():
		select {
		case list := <-reply:
			return list
		default:
			return nil
		}
	}
}

// Shutdown stops the registry and every room.
func (r *Registry) Shutdown() {
	r.cancel()
}

func normalizeCode(id string) string {
	return strings.ToUpper(strings.TrimSpace(id))
}
