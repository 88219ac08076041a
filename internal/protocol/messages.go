// Package protocol defines the websocket event stream: a JSON envelope with
// a message tag, a tag-specific payload and a server timestamp. Chip amounts
// cross the wire as decimal strings; cards as {suit, rank} records; card
// positions as integers in [0, 52).
package protocol

import (
	"github.com/onfelt/holdemd/internal/deck"
)

// Inbound tags.
const (
	TypeTableJoin     = "table:join"
	TypeTableLeave    = "table:leave"
	TypeTableSitOut   = "table:sit-out"
	TypeTableSitIn    = "table:sit-in"
	TypeTableAddChips = "table:add-chips"
	TypeGameAction    = "game:action"
	TypeGameShowCards = "game:show-cards"
	TypeMPCommit      = "mental-poker:commit"
	TypeMPShuffle     = "mental-poker:shuffle"
	TypeMPRevealKey   = "mental-poker:reveal-key"
	TypeChatSend      = "chat:send"
)

// Outbound tags.
const (
	TypeReply         = "reply"
	TypeGameState     = "game:state"
	TypeGameStarted   = "game:started"
	TypePhaseChange   = "game:phase-change"
	TypeGameTurn      = "game:turn"
	TypePlayerAction  = "game:player-action"
	TypeHandResult    = "game:hand-result"
	TypePlayerCards   = "player:cards"
	TypeMPPhase       = "mental-poker:phase"
	TypeMPCommitment  = "mental-poker:commitment-received"
	TypeMPShuffleTurn = "mental-poker:shuffle-turn"
	TypeMPShuffleDone = "mental-poker:shuffle-complete"
	TypeMPRequestKey  = "mental-poker:request-key"
	TypeMPKeyRevealed = "mental-poker:key-revealed"
	TypeMPCardReveal  = "mental-poker:card-revealed"
	TypeTableChat     = "table:chat"
	TypeError         = "error"
	TypeNotification  = "notification"
)

// Error codes surfaced to clients.
const (
	CodeInvalidAction   = "invalid-action"
	CodeInvalidMessage  = "invalid-message"
	CodeSeatTaken       = "seat-taken"
	CodeTableFull       = "table-full"
	CodeBuyInOutOfRange = "buy-in-out-of-range"
	CodeNotSeated       = "not-seated"
	CodeWrongPhase      = "wrong-phase"
	CodeEscrowFailure   = "escrow-failure"
	CodeChatTooLong     = "chat-too-long"
	CodeInternal        = "internal"
)

// Client -> server payloads.

// JoinRequest seats the authenticated wallet. Seat -1 asks for any free
// seat; BuyIn is a decimal chip amount.
type JoinRequest struct {
	TableID string `json:"tableId"`
	Seat    int    `json:"seat"`
	BuyIn   string `json:"buyIn"`
}

// AddChipsRequest tops up the stack between hands.
type AddChipsRequest struct {
	Amount string `json:"amount"`
}

// ActionRequest is a betting action. Amount is the total round bet for
// bet/raise and ignored for fold/check/call/all-in.
type ActionRequest struct {
	Action string `json:"action"`
	Amount string `json:"amount,omitempty"`
}

// ShowCardsRequest reveals a seat's hole cards at a mental poker showdown,
// together with the board the client decrypted.
type ShowCardsRequest struct {
	HoleCards []deck.Card `json:"holeCards"`
	Board     []deck.Card `json:"board"`
}

// CommitRequest carries the player's key-commitment hash (hex).
type CommitRequest struct {
	Commitment string `json:"commitment"`
}

// ShuffleRequest carries the player's shuffled, re-encrypted deck.
type ShuffleRequest struct {
	Deck []string `json:"deck"`
}

// RevealKeyRequest discloses the player's per-hand key for one position.
type RevealKeyRequest struct {
	Position int    `json:"cardPosition"`
	Key      string `json:"key"`
	Salt     string `json:"salt"`
}

// ChatRequest is a table chat line.
type ChatRequest struct {
	Message string `json:"message"`
}

// Server -> client payloads.

// Reply acknowledges an inbound message.
type Reply struct {
	Success bool   `json:"success"`
	Code    string `json:"code,omitempty"`
	Error   string `json:"error,omitempty"`
	Seat    *int   `json:"seat,omitempty"` // set on successful join
}

// SeatState is one seat's public view in a snapshot.
type SeatState struct {
	Seat       int    `json:"seat"`
	PlayerID   string `json:"playerId"`
	Name       string `json:"name"`
	Stack      string `json:"stack"`
	RoundBet   string `json:"roundBet"`
	Folded     bool   `json:"folded,omitempty"`
	AllIn      bool   `json:"allIn,omitempty"`
	SittingOut bool   `json:"sittingOut,omitempty"`
	Dealer     bool   `json:"dealer,omitempty"`
	SmallBlind bool   `json:"smallBlind,omitempty"`
	BigBlind   bool   `json:"bigBlind,omitempty"`
	Connected  bool   `json:"connected"`
}

// GameState is the full table snapshot sent on join, reconnect and major
// transitions. HoleCards is populated only for the receiving seat.
type GameState struct {
	TableID        string      `json:"tableId"`
	Phase          string      `json:"phase"`
	Pot            string      `json:"pot"`
	CurrentBet     string      `json:"currentBet"`
	DealerSeat     int         `json:"dealerSeat"`
	TurnSeat       int         `json:"turnSeat"`
	HandNumber     uint64      `json:"handNumber"`
	Seats          []SeatState `json:"seats"`
	CommunityCards []deck.Card `json:"communityCards"`
	HoleCards      []deck.Card `json:"holeCards,omitempty"`
}

// GameStarted announces a new hand.
type GameStarted struct {
	HandNumber uint64 `json:"handNumber"`
	DealerSeat int    `json:"dealerSeat"`
}

// PhaseChange announces a street advance.
type PhaseChange struct {
	Phase          string      `json:"phase"`
	CommunityCards []deck.Card `json:"communityCards"`
	Positions      []int       `json:"cardPositions,omitempty"`
}

// AvailableAction is one legal action with its amount bounds.
type AvailableAction struct {
	Type string `json:"type"`
	Min  string `json:"min,omitempty"`
	Max  string `json:"max,omitempty"`
}

// Turn announces the seat on turn with its remaining time budget.
type Turn struct {
	Seat             int               `json:"seatId"`
	TimeRemaining    float64           `json:"timeRemaining"` // seconds
	AvailableActions []AvailableAction `json:"availableActions"`
}

// ActionInfo describes one applied action.
type ActionInfo struct {
	Type      string `json:"type"`
	Amount    string `json:"amount"`
	Timestamp int64  `json:"timestamp"` // unix milliseconds
}

// PlayerAction is broadcast after every accepted action.
type PlayerAction struct {
	Seat   int        `json:"seatId"`
	Action ActionInfo `json:"action"`
	Pot    string     `json:"pot"`
}

// Winner is one seat's winnings in a hand result.
type Winner struct {
	Seat   int         `json:"seatId"`
	Amount string      `json:"amount"`
	Label  string      `json:"label,omitempty"`
	Cards  []deck.Card `json:"cards,omitempty"`
	Pot    string      `json:"potType"`
}

// PotResult is one pot in a hand result.
type PotResult struct {
	Amount   string `json:"amount"`
	Eligible []int  `json:"eligibleSeats"`
	Type     string `json:"type"`
}

// HandResult is broadcast at settlement.
type HandResult struct {
	HandNumber uint64      `json:"handNumber"`
	Winners    []Winner    `json:"winners"`
	Pots       []PotResult `json:"pots"`
	Aborted    bool        `json:"aborted,omitempty"`
	Reason     string      `json:"reason,omitempty"`
}

// PlayerCards delivers a seat's private hole cards (local-deal mode) or
// their deck positions (mental poker mode).
type PlayerCards struct {
	Cards     []deck.Card `json:"cards,omitempty"`
	Positions []int       `json:"cardPositions,omitempty"`
}

// MPPhase announces a coordinator phase change.
type MPPhase struct {
	Phase           string `json:"phase"`
	CurrentShuffler *int   `json:"currentShuffler,omitempty"`
}

// MPCommitmentReceived is broadcast per accepted commitment.
type MPCommitmentReceived struct {
	Seat  int `json:"seatId"`
	Count int `json:"count"`
	Total int `json:"total"`
}

// MPShuffleTurn hands the running deck to the next shuffler.
type MPShuffleTurn struct {
	EncryptedDeck []string `json:"encryptedDeck"`
}

// MPShuffleComplete is broadcast after the final shuffle contribution.
type MPShuffleComplete struct {
	EncryptedDeck []string `json:"encryptedDeck"`
}

// MPRequestKey asks the receiving player for its key for one position.
type MPRequestKey struct {
	Position  int    `json:"cardPosition"`
	CardType  string `json:"cardType"`
	Recipient *int   `json:"recipientSeat,omitempty"`
}

// MPKeyRevealed is broadcast per accepted key.
type MPKeyRevealed struct {
	Seat          int   `json:"seatId"`
	Position      int   `json:"cardPosition"`
	Complete      bool  `json:"complete"`
	PlayersNeeded []int `json:"playersNeeded"`
}

// RevealEntry is one disclosed (key, salt) pair.
type RevealEntry struct {
	Seat int    `json:"seatId"`
	Key  string `json:"key"`
	Salt string `json:"salt"`
}

// MPCardRevealed is broadcast when a position's reveal set is complete.
type MPCardRevealed struct {
	Position  int           `json:"cardPosition"`
	CardType  string        `json:"cardType"`
	Recipient *int          `json:"recipientSeat,omitempty"`
	Keys      []RevealEntry `json:"keys"`
}

// Chat is a broadcast chat line.
type Chat struct {
	Seat      int    `json:"seatId"`
	PlayerID  string `json:"playerId"`
	Message   string `json:"message"`
	Timestamp int64  `json:"timestamp"`
}

// ErrorMessage is sent to the offending client only.
type ErrorMessage struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Notification is informational, per-recipient.
type Notification struct {
	Kind    string `json:"type"`
	Message string `json:"message"`
}
