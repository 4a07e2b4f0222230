package models

import "github.com/google/uuid"

// PlayerStatus is the per-player sub-state within a turn.
type PlayerStatus string

const (
	StatusWaiting        PlayerStatus = "waiting"
	StatusReady          PlayerStatus = "ready"
	StatusDrawingCard    PlayerStatus = "drawing_card"
	StatusPlayingCard    PlayerStatus = "playing_card"
	StatusSameRankWindow PlayerStatus = "same_rank_window"
	StatusQueenPeek      PlayerStatus = "queen_peek"
	StatusJackSwap       PlayerStatus = "jack_swap"
	StatusPeeking        PlayerStatus = "peeking"
	StatusFinished       PlayerStatus = "finished"
	StatusDisconnected   PlayerStatus = "disconnected"
	StatusWinner         PlayerStatus = "winner"
)

// PlayerStatuses is the allowed-value set for the update schema.
var PlayerStatuses = []PlayerStatus{
	StatusWaiting, StatusReady, StatusDrawingCard, StatusPlayingCard,
	StatusSameRankWindow, StatusQueenPeek, StatusJackSwap, StatusPeeking,
	StatusFinished, StatusDisconnected, StatusWinner,
}

// ValidPlayerStatus reports whether s is a recognized status code.
func ValidPlayerStatus(s string) bool {
	for _, st := range PlayerStatuses {
		if string(st) == s {
			return true
		}
	}
	return false
}

// Player is the per-room mutable player aggregate. It is owned by the
// room's GameState and mutated only through the round's update pipeline.
type Player struct {
	ID          uuid.UUID    `json:"id"`
	DisplayName string       `json:"displayName"`
	IsComputer  bool         `json:"isComputer"`
	Hand        []uuid.UUID  `json:"hand"`  // ordered card ids
	Known       KnownCards   `json:"known"` // cards legitimately seen by this player
	Score       int          `json:"score"`
	Status      PlayerStatus `json:"status"`

	HasCalledFinalRound bool `json:"hasCalledFinalRound"`

	// CollectionRank is set in clear-and-collect mode: collecting all four
	// cards of this rank wins immediately.
	CollectionRank Rank `json:"collectionRank,omitempty"`
}

// KnownCards is the set of card ids a player has legitimately seen.
type KnownCards map[uuid.UUID]bool

// Add marks a card as seen.
func (k KnownCards) Add(id uuid.UUID) { k[id] = true }

// Has reports whether the player has seen the card.
func (k KnownCards) Has(id uuid.UUID) bool { return k[id] }

// NewPlayer creates a player in the waiting status with an empty hand.
func NewPlayer(id uuid.UUID, name string, computer bool) *Player {
	return &Player{
		ID:          id,
		DisplayName: name,
		IsComputer:  computer,
		Hand:        []uuid.UUID{},
		Known:       make(KnownCards),
		Status:      StatusWaiting,
	}
}

// HandIndex returns the position of cardID in the hand, or -1.
func (p *Player) HandIndex(cardID uuid.UUID) int {
	for i, id := range p.Hand {
		if id == cardID {
			return i
		}
	}
	return -1
}

// RemoveFromHand removes cardID from the hand, preserving order.
// Returns the index it occupied, or -1 if absent.
func (p *Player) RemoveFromHand(cardID uuid.UUID) int {
	idx := p.HandIndex(cardID)
	if idx >= 0 {
		p.Hand = append(p.Hand[:idx], p.Hand[idx+1:]...)
	}
	return idx
}
