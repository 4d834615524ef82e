package ws

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/ndtvumkp-dev/loto-mien-tay/internal/deck"
	"github.com/ndtvumkp-dev/loto-mien-tay/internal/registry"
	"github.com/ndtvumkp-dev/loto-mien-tay/internal/room"
	"github.com/ndtvumkp-dev/loto-mien-tay/internal/types"
)

func newTestRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	d := deck.Build(rand.New(rand.NewSource(7)))
	return registry.New(ctx, d, room.Config{CallInterval: time.Hour}, zap.NewNop().Sugar())
}

func newTestSession(t *testing.T, reg *registry.Registry, id string) *session {
	t.Helper()
	return &session{
		id:          id,
		reg:         reg,
		outbox:      make(chan types.ServerMessage, 64),
		log:         zap.NewNop().Sugar(),
		chatLimiter: rate.NewLimiter(rate.Every(500*time.Millisecond), 5),
	}
}

func recvOfType(t *testing.T, ch <-chan types.ServerMessage, msgType string) types.ServerMessage {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case m := <-ch:
			if m.Type == msgType {
				return m
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %s", msgType)
			return types.ServerMessage{}
		}
	}
}

// createVia drives a create-room through dispatch and returns the room code.
func createVia(t *testing.T, s *session, playerName, roomName string, capacity int) string {
	t.Helper()
	s.dispatch(types.ClientMessage{
		Type:       types.MsgCreateRoom,
		PlayerName: playerName,
		RoomName:   roomName,
		Capacity:   capacity,
	})
	joined := recvOfType(t, s.outbox, types.MsgJoined)
	require.NotNil(t, joined.Room)
	require.Equal(t, s.id, joined.SelfID)
	return joined.Room.ID
}

func TestDispatch_UnknownTypeBecomesNotice(t *testing.T) {
	reg := newTestRegistry(t)
	s := newTestSession(t, reg, "alice")

	s.dispatch(types.ClientMessage{Type: "bingo"})

	msg := recvOfType(t, s.outbox, types.MsgNotice)
	assert.Equal(t, "error", msg.Notice.Severity)
	assert.Equal(t, string(room.KindInvalidInput), msg.Notice.Code)
	assert.Contains(t, msg.Notice.Message, "unknown message type")
}

func TestDispatch_ErrorsAreNoticesToSenderOnly(t *testing.T) {
	reg := newTestRegistry(t)
	s := newTestSession(t, reg, "alice")

	s.dispatch(types.ClientMessage{Type: types.MsgJoinRoom, PlayerName: "An", RoomID: "NOHERE"})

	msg := recvOfType(t, s.outbox, types.MsgNotice)
	assert.Equal(t, string(room.KindNotFound), msg.Notice.Code)
}

func TestSendChat_RateLimited(t *testing.T) {
	reg := newTestRegistry(t)
	s := newTestSession(t, reg, "alice")
	s.chatLimiter = rate.NewLimiter(rate.Every(time.Hour), 1)
	createVia(t, s, "An", "Bàn A", 4)

	s.dispatch(types.ClientMessage{Type: types.MsgSendChat, RoomID: s.cur.ID(), Text: "chào"})
	chat := recvOfType(t, s.outbox, types.MsgChat)
	assert.Equal(t, "chào", chat.Chat.Text)

	// The burst is spent; the next message bounces without reaching the room.
	s.dispatch(types.ClientMessage{Type: types.MsgSendChat, RoomID: s.cur.ID(), Text: "chào nữa"})
	notice := recvOfType(t, s.outbox, types.MsgNotice)
	assert.Contains(t, notice.Notice.Message, "too fast")
}

func TestJoinFailure_KeepsCurrentSeat(t *testing.T) {
	reg := newTestRegistry(t)
	s := newTestSession(t, reg, "alice")
	roomA := createVia(t, s, "An", "Bàn A", 2)

	// A second room filled to capacity by two other connections.
	rmB, snapB, err := reg.CreateRoom(room.Profile{ID: "b1", Name: "Bé"}, "Bàn B", 2,
		make(chan types.ServerMessage, 64))
	require.NoError(t, err)
	_, err = rmB.Join(room.Profile{ID: "b2", Name: "Bi"}, make(chan types.ServerMessage, 64))
	require.NoError(t, err)

	s.dispatch(types.ClientMessage{Type: types.MsgJoinRoom, PlayerName: "An", RoomID: snapB.ID})
	notice := recvOfType(t, s.outbox, types.MsgNotice)
	assert.Equal(t, string(room.KindConflict), notice.Notice.Code)

	// The failed join must not have cost the caller their seat; as sole
	// member, losing it would have destroyed the room outright.
	rmA, err := reg.Lookup(roomA)
	require.NoError(t, err)
	snap, err := rmA.Snapshot()
	require.NoError(t, err)
	require.Len(t, snap.Participants, 1)
	assert.Equal(t, "alice", snap.Participants[0].ID)
}

func TestCreateFailure_KeepsCurrentSeat(t *testing.T) {
	reg := newTestRegistry(t)
	s := newTestSession(t, reg, "alice")
	roomA := createVia(t, s, "An", "Bàn A", 2)

	s.dispatch(types.ClientMessage{Type: types.MsgCreateRoom, PlayerName: "An", RoomName: "Bàn B", Capacity: 99})
	notice := recvOfType(t, s.outbox, types.MsgNotice)
	assert.Equal(t, string(room.KindInvalidInput), notice.Notice.Code)

	rmA, err := reg.Lookup(roomA)
	require.NoError(t, err)
	snap, err := rmA.Snapshot()
	require.NoError(t, err)
	require.Len(t, snap.Participants, 1)
}

func TestJoin_MovesBetweenRooms(t *testing.T) {
	reg := newTestRegistry(t)
	s := newTestSession(t, reg, "alice")
	roomA := createVia(t, s, "An", "Bàn A", 2)

	_, snapB, err := reg.CreateRoom(room.Profile{ID: "b1", Name: "Bé"}, "Bàn B", 4,
		make(chan types.ServerMessage, 64))
	require.NoError(t, err)

	s.dispatch(types.ClientMessage{Type: types.MsgJoinRoom, PlayerName: "An", RoomID: snapB.ID})
	joined := recvOfType(t, s.outbox, types.MsgJoined)
	assert.Equal(t, snapB.ID, joined.Room.ID)

	// The old seat is given up only after the new join succeeded; room A had
	// no one else, so it winds down.
	require.Eventually(t, func() bool {
		_, err := reg.Lookup(roomA)
		return err != nil
	}, 2*time.Second, 5*time.Millisecond)
}

func TestLeaveCurrent_OnDisconnect(t *testing.T) {
	reg := newTestRegistry(t)
	s := newTestSession(t, reg, "alice")
	roomA := createVia(t, s, "An", "Bàn A", 2)

	// The handler defers this when the connection drops.
	s.leaveCurrent()
	require.Nil(t, s.cur)

	require.Eventually(t, func() bool {
		_, err := reg.Lookup(roomA)
		return err != nil
	}, 2*time.Second, 5*time.Millisecond)
}
