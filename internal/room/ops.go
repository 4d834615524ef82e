package room

import (
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/ndtvumkp-dev/loto-mien-tay/internal/deck"
	"github.com/ndtvumkp-dev/loto-mien-tay/internal/types"
)

// All handlers below run on the actor goroutine only.

func (r *Room) handleJoin(p Profile, outbox chan<- types.ServerMessage) (types.RoomSnapshot, error) {
	// Re-joining a seat already held just refreshes the outbox.
	if r.find(p.ID) != nil {
		r.clients[p.ID] = outbox
		return r.snapshot(), nil
	}
	name, err := ValidatePlayerName(p.Name)
	if err != nil {
		return types.RoomSnapshot{}, err
	}
	if r.status != StatusWaiting {
		return types.RoomSnapshot{}, ErrRoomNotJoinable
	}
	if len(r.participants) >= r.capacity {
		return types.RoomSnapshot{}, ErrRoomFull
	}

	r.participants = append(r.participants, &participant{id: p.ID, name: name})
	r.clients[p.ID] = outbox

	snap := r.snapshot()
	r.broadcast(types.ServerMessage{Type: types.MsgLobbyUpdate, Room: &snap})
	r.reportChange()
	r.log.Infow("participant joined", "participant", p.ID, "occupancy", len(r.participants))
	return snap, nil
}

func (r *Room) handleLeave(pid string) error {
	idx := r.indexOf(pid)
	if idx < 0 {
		return ErrNotAParticipant
	}
	leaving := r.participants[idx]
	if leaving.ticketID != "" {
		delete(r.held, leaving.ticketID)
	}
	r.participants = append(r.participants[:idx], r.participants[idx+1:]...)
	delete(r.clients, pid)

	if len(r.participants) == 0 {
		r.disarmCaller()
		r.closed = true
		r.log.Infow("last participant left", "participant", pid)
		return nil
	}

	if r.hostID == pid {
		r.hostID = r.participants[0].id
		r.log.Infow("host reassigned", "host", r.hostID)
	}

	r.broadcastUpdate()
	r.reportChange()
	return nil
}

func (r *Room) handleSelectTicket(pid, ticketID string) error {
	p := r.find(pid)
	if p == nil {
		return ErrNotAParticipant
	}
	if r.status != StatusWaiting {
		return ErrRoomNotWaiting
	}
	if p.eliminated {
		return ErrEliminated
	}
	if _, err := r.deck.TicketByID(ticketID); err != nil {
		return err
	}
	if holder, taken := r.held[ticketID]; taken && holder != pid {
		return ErrTicketTaken
	}

	if p.ticketID != "" && p.ticketID != ticketID {
		delete(r.held, p.ticketID)
	}
	p.ticketID = ticketID
	r.held[ticketID] = pid

	snap := r.snapshot()
	r.broadcast(types.ServerMessage{Type: types.MsgLobbyUpdate, Room: &snap})
	return nil
}

func (r *Room) handleKick(pid, targetID string) error {
	if pid != r.hostID {
		return ErrNotHost
	}
	if r.status != StatusWaiting {
		return ErrRoomNotWaiting
	}
	idx := r.indexOf(targetID)
	if idx < 0 {
		return ErrNotAParticipant
	}
	if targetID == r.hostID {
		return ErrCannotKickHost
	}
	target := r.participants[idx]
	if target.ticketID != "" {
		return ErrTicketCommitted
	}

	outbox := r.clients[targetID]
	r.participants = append(r.participants[:idx], r.participants[idx+1:]...)
	delete(r.clients, targetID)

	if outbox != nil {
		r.sendOn(targetID, outbox, types.ServerMessage{
			Type: types.MsgKicked,
			Notice: &types.Notice{
				Severity: "info",
				Message:  "removed by the host for not selecting a ticket",
			},
		})
	}

	snap := r.snapshot()
	r.broadcast(types.ServerMessage{Type: types.MsgLobbyUpdate, Room: &snap})
	r.reportChange()
	r.log.Infow("participant kicked", "participant", targetID)
	return nil
}

func (r *Room) handleStart(pid string) error {
	if pid != r.hostID {
		return ErrNotHost
	}
	if r.status != StatusWaiting {
		return ErrRoomNotWaiting
	}
	if len(r.participants) < MinCapacity {
		return ErrNotEnoughParticipants
	}
	for _, p := range r.participants {
		if p.ticketID == "" {
			return ErrTicketsNotSelected
		}
	}

	for _, p := range r.participants {
		p.eliminated = false
	}
	r.called = nil
	r.current = 0
	r.remaining = r.shuffledPool()
	r.round++
	r.status = StatusPlaying
	r.armCaller()

	snap := r.snapshot()
	r.broadcast(types.ServerMessage{Type: types.MsgGameUpdate, Room: &snap})
	r.reportChange()
	r.log.Infow("round started", "round", r.round)
	return nil
}

func (r *Room) handleReset(pid string) error {
	if pid != r.hostID {
		return ErrNotHost
	}
	if r.status != StatusEnded {
		return ErrRoundNotEnded
	}

	r.disarmCaller()
	r.status = StatusWaiting
	r.called = nil
	r.current = 0
	r.remaining = nil
	for _, p := range r.participants {
		p.eliminated = false
		if r.cfg.ClearTicketsOnReset {
			p.ticketID = ""
		}
	}
	if r.cfg.ClearTicketsOnReset {
		r.held = make(map[string]string)
	}

	snap := r.snapshot()
	r.broadcast(types.ServerMessage{Type: types.MsgLobbyUpdate, Room: &snap})
	r.reportChange()
	return nil
}

func (r *Room) handleClaim(pid string) error {
	if r.status != StatusPlaying {
		return ErrRoomNotPlaying
	}
	p := r.find(pid)
	if p == nil {
		return ErrNotAParticipant
	}
	if p.eliminated {
		return ErrEliminated
	}
	if p.ticketID == "" {
		return ErrNoTicketAssigned
	}
	ticket, err := r.deck.TicketByID(p.ticketID)
	if err != nil {
		return err
	}

	if Covered(ticket, r.called) {
		p.score++
		r.log.Infow("claim accepted", "participant", pid, "calls", len(r.called))
		r.endRound(p.name)
		return nil
	}

	p.eliminated = true
	snap := r.snapshot()
	r.broadcast(types.ServerMessage{Type: types.MsgGameUpdate, Room: &snap})
	r.broadcast(types.ServerMessage{Type: types.MsgNotice, Notice: &types.Notice{
		Severity: "info",
		Message:  fmt.Sprintf("%s called a false win and is out for this round", p.name),
	}})
	r.log.Infow("claim rejected", "participant", pid, "calls", len(r.called))
	return nil
}

func (r *Room) handleChat(pid, text string) error {
	p := r.find(pid)
	if p == nil {
		return ErrNotAParticipant
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return ErrEmptyChatMessage
	}
	if utf8.RuneCountInString(text) > MaxChatRunes {
		runes := []rune(text)
		text = string(runes[:MaxChatRunes])
	}

	r.broadcast(types.ServerMessage{Type: types.MsgChat, Chat: &types.ChatMessage{
		From: p.name,
		Text: text,
		At:   time.Now().UnixMilli(),
	}})
	return nil
}

func (r *Room) handleTick(m tickMsg) {
	// A tick from a finished round must never revive it.
	if r.status != StatusPlaying || m.round != r.round {
		return
	}
	if len(r.remaining) == 0 {
		r.endRound("")
		return
	}
	n := r.remaining[0]
	r.remaining = r.remaining[1:]
	r.current = n
	r.called = append(r.called, n)

	snap := r.snapshot()
	r.broadcast(types.ServerMessage{Type: types.MsgGameUpdate, Room: &snap})
}

// endRound transitions playing -> ended and cancels the caller in the same
// event, so no further tick can land in this round.
func (r *Room) endRound(winnerName string) {
	r.status = StatusEnded
	r.disarmCaller()

	snap := r.snapshot()
	r.broadcast(types.ServerMessage{Type: types.MsgGameUpdate, Room: &snap})
	r.broadcast(types.ServerMessage{
		Type:   types.MsgRoundEnded,
		Room:   &snap,
		Reason: &types.RoundEndReason{WinnerName: winnerName},
	})
	r.reportChange()
	r.log.Infow("round ended", "winner", winnerName, "calls", len(r.called))
}

func (r *Room) find(pid string) *participant {
	for _, p := range r.participants {
		if p.id == pid {
			return p
		}
	}
	return nil
}

func (r *Room) indexOf(pid string) int {
	for i, p := range r.participants {
		if p.id == pid {
			return i
		}
	}
	return -1
}

func (r *Room) shuffledPool() []int {
	pool := make([]int, deck.NumberMax)
	for i := range pool {
		pool[i] = i + 1
	}
	r.rng.Shuffle(len(pool), func(i, j int) {
		pool[i], pool[j] = pool[j], pool[i]
	})
	return pool
}

func (r *Room) snapshot() types.RoomSnapshot {
	views := make([]types.ParticipantView, 0, len(r.participants))
	for _, p := range r.participants {
		views = append(views, types.ParticipantView{
			ID:         p.id,
			Name:       p.name,
			IsHost:     p.id == r.hostID,
			TicketID:   p.ticketID,
			Score:      p.score,
			Eliminated: p.eliminated,
		})
	}
	used := make([]string, 0, len(r.held))
	for id := range r.held {
		used = append(used, id)
	}
	sort.Strings(used)

	return types.RoomSnapshot{
		ID:            r.id,
		Name:          r.name,
		Capacity:      r.capacity,
		HostID:        r.hostID,
		Status:        string(r.status),
		Participants:  views,
		UsedTicketIDs: used,
		CalledNumbers: append([]int(nil), r.called...),
		CurrentNumber: r.current,
	}
}

func (r *Room) summary() types.RoomSummary {
	return types.RoomSummary{
		ID:        r.id,
		Name:      r.name,
		Capacity:  r.capacity,
		Occupancy: len(r.participants),
		Status:    string(r.status),
	}
}

// broadcastUpdate picks the update kind the clients expect for the current
// status.
func (r *Room) broadcastUpdate() {
	kind := types.MsgLobbyUpdate
	if r.status != StatusWaiting {
		kind = types.MsgGameUpdate
	}
	snap := r.snapshot()
	r.broadcast(types.ServerMessage{Type: kind, Room: &snap})
}

func (r *Room) broadcast(msg types.ServerMessage) {
	for pid, ch := range r.clients {
		r.sendOn(pid, ch, msg)
	}
}

// sendOn never blocks the actor; a full outbox drops the message and the
// client catches up on the next snapshot.
func (r *Room) sendOn(pid string, ch chan<- types.ServerMessage, msg types.ServerMessage) {
	select {
	case ch <- msg:
	default:
		r.log.Warnw("dropping message for slow client", "participant", pid, "msg", msg.Type)
	}
}

func (r *Room) reportChange() {
	if r.events == nil {
		return
	}
	select {
	case r.events <- Event{RoomID: r.id, Summary: r.summary()}:
	case <-r.ctx.Done():
	}
}

// ValidatePlayerName trims and bounds a display name.
func ValidatePlayerName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" || utf8.RuneCountInString(name) > maxNameRunes {
		return "", ErrInvalidPlayerName
	}
	return name, nil
}

// ValidateRoomName trims a room display name and rejects empty ones.
func ValidateRoomName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", ErrInvalidRoomName
	}
	return name, nil
}

// ValidateCapacity bounds the participant limit.
func ValidateCapacity(capacity int) error {
	if capacity < MinCapacity || capacity > MaxCapacity {
		return ErrInvalidCapacity
	}
	return nil
}
