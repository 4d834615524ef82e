package registry

import (
	"context"
	"math/rand"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ndtvumkp-dev/loto-mien-tay/internal/deck"
	"github.com/ndtvumkp-dev/loto-mien-tay/internal/room"
	"github.com/ndtvumkp-dev/loto-mien-tay/internal/types"
)

var codePattern = regexp.MustCompile(`^[ABCDEFGHJKMNPQRSTUVWXYZ23456789]{6}$`)

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	d := deck.Build(rand.New(rand.NewSource(11)))
	cfg := room.Config{CallInterval: time.Hour}
	return New(ctx, d, cfg, zap.NewNop().Sugar())
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

func TestRegisterClient_PushesDeckAndRoomList(t *testing.T) {
	reg := newTestRegistry(t)
	outbox := make(chan types.ServerMessage, 32)

	reg.RegisterClient("c1", outbox)

	deckMsg := recvOfType(t, outbox, types.MsgDeck)
	require.Len(t, deckMsg.Deck, 10)

	list := recvOfType(t, outbox, types.MsgRoomList)
	assert.Empty(t, list.Rooms)
}

func TestCreateRoom_ValidatesInput(t *testing.T) {
	reg := newTestRegistry(t)
	outbox := make(chan types.ServerMessage, 32)

	_, _, err := reg.CreateRoom(room.Profile{ID: "c1", Name: ""}, "Bàn 1", 4, outbox)
	require.ErrorIs(t, err, room.ErrInvalidPlayerName)

	_, _, err = reg.CreateRoom(room.Profile{ID: "c1", Name: "Hòa"}, "  ", 4, outbox)
	require.ErrorIs(t, err, room.ErrInvalidRoomName)

	_, _, err = reg.CreateRoom(room.Profile{ID: "c1", Name: "Hòa"}, "Bàn 1", 1, outbox)
	require.ErrorIs(t, err, room.ErrInvalidCapacity)

	_, _, err = reg.CreateRoom(room.Profile{ID: "c1", Name: "Hòa"}, "Bàn 1", 11, outbox)
	require.ErrorIs(t, err, room.ErrInvalidCapacity)
}

func TestCreateRoom_CreatorIsHost(t *testing.T) {
	reg := newTestRegistry(t)
	outbox := make(chan types.ServerMessage, 32)

	rm, snap, err := reg.CreateRoom(room.Profile{ID: "c1", Name: "Hòa"}, "Bàn 1", 4, outbox)
	require.NoError(t, err)
	require.NotNil(t, rm)

	assert.Regexp(t, codePattern, snap.ID)
	assert.Equal(t, "c1", snap.HostID)
	assert.Equal(t, string(room.StatusWaiting), snap.Status)
	require.Len(t, snap.Participants, 1)
	assert.True(t, snap.Participants[0].IsHost)
}

func TestLookup_CaseInsensitive(t *testing.T) {
	reg := newTestRegistry(t)
	outbox := make(chan types.ServerMessage, 32)

	rm, snap, err := reg.CreateRoom(room.Profile{ID: "c1", Name: "Hòa"}, "Bàn 1", 4, outbox)
	require.NoError(t, err)

	got, err := reg.Lookup("  " + snap.ID + " ")
	require.NoError(t, err)
	assert.Same(t, rm, got)

	got, err = reg.Lookup(snap.ID)
	require.NoError(t, err)
	assert.Same(t, rm, got)

	_, err = reg.Lookup("NOHERE")
	require.ErrorIs(t, err, room.ErrRoomNotFound)
}

func TestRoomList_BroadcastOnRegistryChanges(t *testing.T) {
	reg := newTestRegistry(t)
	watcher := make(chan types.ServerMessage, 64)
	reg.RegisterClient("watcher", watcher)
	recvOfType(t, watcher, types.MsgRoomList) // initial empty list

	hostOut := make(chan types.ServerMessage, 64)
	_, snap, err := reg.CreateRoom(room.Profile{ID: "host", Name: "Hòa"}, "Bàn 1", 4, hostOut)
	require.NoError(t, err)

	list := recvOfType(t, watcher, types.MsgRoomList)
	require.Len(t, list.Rooms, 1)
	assert.Equal(t, snap.ID, list.Rooms[0].ID)
	assert.Equal(t, "Bàn 1", list.Rooms[0].Name)
	assert.Equal(t, 1, list.Rooms[0].Occupancy)
	assert.Equal(t, string(room.StatusWaiting), list.Rooms[0].Status)

	// Occupancy changes rebroadcast the list too.
	rm, err := reg.Lookup(snap.ID)
	require.NoError(t, err)
	guestOut := make(chan types.ServerMessage, 64)
	_, err = rm.Join(room.Profile{ID: "p2", Name: "Khách"}, guestOut)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		select {
		case m := <-watcher:
			return m.Type == types.MsgRoomList && len(m.Rooms) == 1 && m.Rooms[0].Occupancy == 2
		default:
			return false
		}
	}, 2*time.Second, 5*time.Millisecond)
}

func TestRoomList_SortedByName(t *testing.T) {
	reg := newTestRegistry(t)
	out := make(chan types.ServerMessage, 64)

	_, _, err := reg.CreateRoom(room.Profile{ID: "c1", Name: "Một"}, "Xổ khuya", 4, out)
	require.NoError(t, err)
	_, _, err = reg.CreateRoom(room.Profile{ID: "c2", Name: "Hai"}, "Bàn sớm", 4, out)
	require.NoError(t, err)

	list := reg.ListRooms()
	require.Len(t, list, 2)
	assert.Equal(t, "Bàn sớm", list[0].Name)
	assert.Equal(t, "Xổ khuya", list[1].Name)
}

func TestRoom_DestroyedWhenLastParticipantLeaves(t *testing.T) {
	reg := newTestRegistry(t)
	hostOut := make(chan types.ServerMessage, 64)

	rm, snap, err := reg.CreateRoom(room.Profile{ID: "host", Name: "Hòa"}, "Bàn 1", 4, hostOut)
	require.NoError(t, err)

	require.NoError(t, rm.Leave("host"))

	// Deletion is the last thing observed for the id: the code stops
	// resolving and the room list empties.
	require.Eventually(t, func() bool {
		_, err := reg.Lookup(snap.ID)
		return err != nil
	}, 2*time.Second, 5*time.Millisecond)
	assert.Empty(t, reg.ListRooms())

	// A join racing the shutdown fails cleanly rather than reviving the room.
	_, err = rm.Join(room.Profile{ID: "late", Name: "Trễ"}, make(chan types.ServerMessage, 1))
	require.ErrorIs(t, err, room.ErrRoomNotFound)
}

func TestDisconnect_IsALeave(t *testing.T) {
	reg := newTestRegistry(t)
	hostOut := make(chan types.ServerMessage, 64)
	guestOut := make(chan types.ServerMessage, 64)

	rm, snap, err := reg.CreateRoom(room.Profile{ID: "host", Name: "Hòa"}, "Bàn 1", 4, hostOut)
	require.NoError(t, err)
	_, err = rm.Join(room.Profile{ID: "p2", Name: "Khách"}, guestOut)
	require.NoError(t, err)

	// The boundary layer translates a dropped connection into Leave; the
	// host hand-off is the same as an explicit departure.
	require.NoError(t, rm.Leave("host"))

	got, err := rm.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, "p2", got.HostID)
	assert.Equal(t, snap.ID, got.ID)
}
