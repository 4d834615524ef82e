package types

import "github.com/ndtvumkp-dev/loto-mien-tay/internal/deck"

// Client -> Server message kinds.
const (
	MsgCreateRoom   = "create-room"
	MsgJoinRoom     = "join-room"
	MsgLeaveRoom    = "leave-room"
	MsgSelectTicket = "select-ticket"
	MsgKick         = "kick"
	MsgStartGame    = "start-game"
	MsgResetRound   = "reset-round"
	MsgClaim        = "claim"
	MsgSendChat     = "send-chat"
)

// Server -> Client message kinds.
const (
	MsgDeck        = "deck"
	MsgRoomList    = "room-list"
	MsgJoined      = "joined"
	MsgLobbyUpdate = "lobby-update"
	MsgGameUpdate  = "game-update"
	MsgRoundEnded  = "round-ended"
	MsgKicked      = "kicked"
	MsgNotice      = "notice"
	MsgChat        = "chat-message"
)

// ClientMessage is the inbound tagged union. Type selects the command; the
// remaining fields are read per command and validated before they reach room
// logic.
type ClientMessage struct {
	Type       string `json:"type"`
	PlayerName string `json:"playerName,omitempty"`
	RoomName   string `json:"roomName,omitempty"`
	Capacity   int    `json:"capacity,omitempty"`
	RoomID     string `json:"roomId,omitempty"`
	TicketID   string `json:"ticketId,omitempty"`
	TargetID   string `json:"targetId,omitempty"`
	Text       string `json:"text,omitempty"`
}

// ServerMessage is the outbound envelope; only the fields relevant to Type
// are populated.
type ServerMessage struct {
	Type   string          `json:"type"`
	Deck   []deck.Ticket   `json:"deck,omitempty"`
	Rooms  []RoomSummary   `json:"rooms,omitempty"`
	Room   *RoomSnapshot   `json:"room,omitempty"`
	SelfID string          `json:"selfId,omitempty"`
	Reason *RoundEndReason `json:"reason,omitempty"`
	Notice *Notice         `json:"notice,omitempty"`
	Chat   *ChatMessage    `json:"chat,omitempty"`
}

// ParticipantView is the public shape of one room member.
type ParticipantView struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	IsHost     bool   `json:"isHost"`
	TicketID   string `json:"ticketId,omitempty"`
	Score      int    `json:"score"`
	Eliminated bool   `json:"eliminated"`
}

// RoomSnapshot is the full public state of a room, rebroadcast on every
// in-room change.
type RoomSnapshot struct {
	ID            string            `json:"id"`
	Name          string            `json:"name"`
	Capacity      int               `json:"capacity"`
	HostID        string            `json:"hostId"`
	Status        string            `json:"status"`
	Participants  []ParticipantView `json:"participants"`
	UsedTicketIDs []string          `json:"usedTicketIds"`
	CalledNumbers []int             `json:"calledNumbers"`
	CurrentNumber int               `json:"currentNumber,omitempty"`
}

// RoomSummary is one row of the global room list.
type RoomSummary struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Capacity  int    `json:"capacity"`
	Occupancy int    `json:"occupancy"`
	Status    string `json:"status"`
}

// RoundEndReason carries the winner's name, or empty when the pool ran dry
// with no valid claim.
type RoundEndReason struct {
	WinnerName string `json:"winnerName,omitempty"`
}

type Notice struct {
	Severity string `json:"severity"` // "error" | "info"
	Code     string `json:"code,omitempty"`
	Message  string `json:"message"`
}

type ChatMessage struct {
	From string `json:"from"`
	Text string `json:"text"`
	At   int64  `json:"at"` // unix millis
}
