package ws

import (
	"errors"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/ndtvumkp-dev/loto-mien-tay/internal/registry"
	"github.com/ndtvumkp-dev/loto-mien-tay/internal/room"
	"github.com/ndtvumkp-dev/loto-mien-tay/internal/types"
)

// session tracks one connection's participant identity and current room.
// Only the reader goroutine touches it, so no locking.
type session struct {
	id          string
	reg         *registry.Registry
	outbox      chan types.ServerMessage
	cur         *room.Room
	log         *zap.SugaredLogger
	chatLimiter *rate.Limiter
}

// dispatch validates the tagged union at the boundary and routes the command.
// Every failure becomes a notice to this connection only.
func (s *session) dispatch(m types.ClientMessage) {
	var err error
	switch m.Type {
	case types.MsgCreateRoom:
		err = s.createRoom(m)
	case types.MsgJoinRoom:
		err = s.joinRoom(m)
	case types.MsgLeaveRoom:
		err = s.leaveRoom(m)
	case types.MsgSelectTicket:
		err = s.inRoom(m, func(rm *room.Room) error {
			return rm.SelectTicket(s.id, m.TicketID)
		})
	case types.MsgKick:
		err = s.inRoom(m, func(rm *room.Room) error {
			return rm.Kick(s.id, m.TargetID)
		})
	case types.MsgStartGame:
		err = s.inRoom(m, func(rm *room.Room) error {
			return rm.Start(s.id)
		})
	case types.MsgResetRound:
		err = s.inRoom(m, func(rm *room.Room) error {
			return rm.Reset(s.id)
		})
	case types.MsgClaim:
		err = s.inRoom(m, func(rm *room.Room) error {
			return rm.Claim(s.id)
		})
	case types.MsgSendChat:
		err = s.sendChat(m)
	default:
		s.notice("error", string(room.KindInvalidInput), fmt.Sprintf("unknown message type %q", m.Type))
		return
	}
	if err != nil {
		s.notifyErr(err)
	}
}

func (s *session) createRoom(m types.ClientMessage) error {
	rm, snap, err := s.reg.CreateRoom(
		room.Profile{ID: s.id, Name: m.PlayerName},
		m.RoomName,
		m.Capacity,
		s.outbox,
	)
	if err != nil {
		return err
	}
	// Only a successful create costs us the old seat. Holding two seats for
	// the moment between Join and Leave is harmless: the id is
	// connection-scoped and ticket exclusivity is per room.
	s.leaveCurrent()
	s.cur = rm
	s.push(types.ServerMessage{Type: types.MsgJoined, Room: &snap, SelfID: s.id})
	return nil
}

func (s *session) joinRoom(m types.ClientMessage) error {
	rm, err := s.reg.Lookup(m.RoomID)
	if err != nil {
		return err
	}
	snap, err := rm.Join(room.Profile{ID: s.id, Name: m.PlayerName}, s.outbox)
	if err != nil {
		// A failed join must leave the current membership untouched.
		return err
	}
	if s.cur != nil && s.cur.ID() != rm.ID() {
		s.leaveCurrent()
	}
	s.cur = rm
	s.push(types.ServerMessage{Type: types.MsgJoined, Room: &snap, SelfID: s.id})
	return nil
}

func (s *session) leaveRoom(m types.ClientMessage) error {
	rm, err := s.reg.Lookup(m.RoomID)
	if err != nil {
		return err
	}
	if s.cur != nil && rm.ID() == s.cur.ID() {
		s.cur = nil
	}
	return rm.Leave(s.id)
}

func (s *session) sendChat(m types.ClientMessage) error {
	if !s.chatLimiter.Allow() {
		s.notice("error", string(room.KindInvalidInput), "sending messages too fast")
		return nil
	}
	return s.inRoom(m, func(rm *room.Room) error {
		return rm.Chat(s.id, m.Text)
	})
}

func (s *session) inRoom(m types.ClientMessage, op func(*room.Room) error) error {
	rm, err := s.reg.Lookup(m.RoomID)
	if err != nil {
		return err
	}
	err = op(rm)
	// The room may have kicked us or shut down since we joined.
	if errors.Is(err, room.ErrRoomNotFound) && s.cur != nil && s.cur.ID() == rm.ID() {
		s.cur = nil
	}
	return err
}

// leaveCurrent detaches from the room this connection is in, if any. Used on
// disconnect and before joining another room.
func (s *session) leaveCurrent() {
	if s.cur == nil {
		return
	}
	rm := s.cur
	s.cur = nil
	if err := rm.Leave(s.id); err != nil && !errors.Is(err, room.ErrRoomNotFound) &&
		!errors.Is(err, room.ErrNotAParticipant) {
		s.log.Warnw("leave failed", "room", rm.ID(), "error", err)
	}
}

func (s *session) notifyErr(err error) {
	s.notice("error", string(room.KindOf(err)), err.Error())
}

func (s *session) notice(severity, code, message string) {
	s.push(types.ServerMessage{Type: types.MsgNotice, Notice: &types.Notice{
		Severity: severity,
		Code:     code,
		Message:  message,
	}})
}

func (s *session) push(msg types.ServerMessage) {
	select {
	case s.outbox <- msg:
	default:
		s.log.Warnw("own outbox full, dropping", "msg", msg.Type)
	}
}
