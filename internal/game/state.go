// Package game implements the authoritative turn/round state machine for
// the Recall card game and its synchronized state-broadcast pipeline.
//
// One Round per room; all mutation-causing inputs (player actions, timer
// expirations, bot moves) are serialized through the round and applied to
// the GameState only via the update pipeline.
package game

import (
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/sil-vella/recall-sub014/internal/models"
)

// TurnEvent is an ephemeral animation hint consumed by clients. The list
// is cleared after every broadcast cycle; it is not persistent state.
type TurnEvent struct {
	Type     string    `json:"type"` // card_drawn, card_played, cards_swapped, ...
	PlayerID uuid.UUID `json:"playerId,omitempty"`
	CardID   uuid.UUID `json:"cardId,omitempty"`
	TargetID uuid.UUID `json:"targetId,omitempty"` // second player in a swap
	Extra    string    `json:"extra,omitempty"`
}

// SameRankWindowData is the transient state of an open same-rank window.
type SameRankWindowData struct {
	Open      bool        `json:"open"`
	Rank      models.Rank `json:"rank"`
	OpenedBy  uuid.UUID   `json:"openedBy"`
	ClaimedBy uuid.UUID   `json:"claimedBy,omitempty"`
	OpenedAt  time.Time   `json:"openedAt"`
}

// SpecialCardData is the transient state of an open power window.
type SpecialCardData struct {
	Power    models.Power `json:"power"` // queen or jack
	PlayerID uuid.UUID    `json:"playerId"`
	CardID   uuid.UUID    `json:"cardId"`
}

// GameState is the per-room aggregate. It is created with the room, reset
// for each new round, and destroyed when the room closes. Mutation happens
// exclusively through the Pipeline.
type GameState struct {
	RoomID uuid.UUID
	Phase  models.Phase

	Players     []*models.Player
	CurrentIdx  int
	CurrentID   uuid.UUID
	DrawPile    []uuid.UUID   // card ids, top is the last element
	DiscardPile []models.Card // ordered, top is the last element
	Deck        map[uuid.UUID]models.Card

	TurnCount  int
	RoundCount int

	SameRank   *SameRankWindowData
	Special    *SpecialCardData
	TurnEvents []TurnEvent
	Winners    []uuid.UUID

	FinalRoundCallerID uuid.UUID
	RoundStartedAt     time.Time
}

// NewGameState creates a fresh state in the waiting_for_players phase.
func NewGameState(roomID uuid.UUID) *GameState {
	return &GameState{
		RoomID: roomID,
		Phase:  models.PhaseWaitingForPlayers,
		Deck:   make(map[uuid.UUID]models.Card),
	}
}

// AddPlayer registers a player while the room is still waiting.
func (s *GameState) AddPlayer(p *models.Player) {
	s.Players = append(s.Players, p)
}

// PlayerByID returns the player with the given id, or nil.
func (s *GameState) PlayerByID(id uuid.UUID) *models.Player {
	for _, p := range s.Players {
		if p.ID == id {
			return p
		}
	}
	return nil
}

// CardByID looks up a card in the tracked deck.
func (s *GameState) CardByID(id uuid.UUID) (models.Card, bool) {
	c, ok := s.Deck[id]
	return c, ok
}

// DiscardTop returns the top discard card, or false if the pile is empty.
func (s *GameState) DiscardTop() (models.Card, bool) {
	if len(s.DiscardPile) == 0 {
		return models.Card{}, false
	}
	return s.DiscardPile[len(s.DiscardPile)-1], true
}

// DeckSize returns the number of cards tracked in the shared deck.
func (s *GameState) DeckSize() int { return len(s.Deck) }

// CardsInPlay counts draw pile + discard pile + all hands. Card
// conservation requires this to equal DeckSize at every observable state.
func (s *GameState) CardsInPlay() int {
	n := len(s.DrawPile) + len(s.DiscardPile)
	for _, p := range s.Players {
		n += len(p.Hand)
	}
	return n
}

// CurrentPlayer returns the player whose turn it is, or nil outside a turn.
func (s *GameState) CurrentPlayer() *models.Player {
	if s.CurrentID == uuid.Nil {
		return nil
	}
	return s.PlayerByID(s.CurrentID)
}

// buildDeal shuffles a fresh deck, fills the draw pile, deals cardsEach
// cards to every player, and flips one card onto the discard pile. The
// returned hands/piles are applied through the pipeline by the round.
func buildDeal(s *GameState, rng *rand.Rand, cardsEach int) (hands map[uuid.UUID][]uuid.UUID, drawPile []uuid.UUID, first models.Card) {
	deck := models.NewDeck()
	rng.Shuffle(len(deck), func(i, j int) { deck[i], deck[j] = deck[j], deck[i] })

	s.Deck = make(map[uuid.UUID]models.Card, len(deck))
	for _, c := range deck {
		s.Deck[c.ID] = c
	}

	hands = make(map[uuid.UUID][]uuid.UUID, len(s.Players))
	idx := 0
	for round := 0; round < cardsEach; round++ {
		for _, p := range s.Players {
			hands[p.ID] = append(hands[p.ID], deck[idx].ID)
			idx++
		}
	}

	first = deck[idx]
	idx++

	drawPile = make([]uuid.UUID, 0, len(deck)-idx)
	for _, c := range deck[idx:] {
		drawPile = append(drawPile, c.ID)
	}
	return hands, drawPile, first
}

// assignCollectionRanks gives each player a distinct collection rank in
// clear-and-collect mode.
func assignCollectionRanks(s *GameState, rng *rand.Rand) {
	perm := rng.Perm(len(models.Ranks))
	for i, p := range s.Players {
		p.CollectionRank = models.Ranks[perm[i%len(models.Ranks)]]
	}
}
