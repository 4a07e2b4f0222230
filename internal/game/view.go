package game

import (
	"time"

	"github.com/google/uuid"

	"github.com/sil-vella/recall-sub014/internal/models"
)

// ViewCard is one hand slot as a given observer may see it. Face fields
// are populated only when the observer has legitimately seen the card.
type ViewCard struct {
	ID    uuid.UUID   `json:"id"`
	Idx   int         `json:"idx"`
	Known bool        `json:"known"`
	Rank  models.Rank `json:"rank,omitempty"`
	Suit  models.Suit `json:"suit,omitempty"`
	Value int         `json:"value,omitempty"`
}

// ViewPlayer is a player as seen by a given observer.
type ViewPlayer struct {
	ID                  uuid.UUID           `json:"id"`
	DisplayName         string              `json:"displayName"`
	IsComputer          bool                `json:"isComputer"`
	Status              models.PlayerStatus `json:"status"`
	HandSize            int                 `json:"handSize"`
	Hand                []ViewCard          `json:"hand"`
	HasCalledFinalRound bool                `json:"hasCalledFinalRound"`
	IsCurrent           bool                `json:"isCurrent"`

	// CollectionRank is disclosed to its owner only.
	CollectionRank models.Rank `json:"collectionRank,omitempty"`
}

// RoomView is the full room state filtered for one observer: card faces
// appear only where that observer's known set allows. Used for resync on
// reconnect and for practice-mode rendering.
type RoomView struct {
	RoomID             uuid.UUID    `json:"roomId"`
	Phase              models.Phase `json:"phase"`
	CurrentPlayerID    uuid.UUID    `json:"currentPlayerId"`
	TurnCount          int          `json:"turnCount"`
	RoundCount         int          `json:"roundCount"`
	DrawPileSize       int          `json:"drawPileSize"`
	DiscardPileSize    int          `json:"discardPileSize"`
	DiscardTop         *models.Card `json:"discardTop,omitempty"`
	Players            []ViewPlayer `json:"players"`
	Winners            []uuid.UUID  `json:"winners,omitempty"`
	FinalRoundCallerID uuid.UUID    `json:"finalRoundCallerId,omitempty"`

	SameRank *SameRankWindowData `json:"sameRankWindow,omitempty"`
	Special  *SpecialCardData    `json:"specialWindow,omitempty"`

	Timestamp int64 `json:"timestamp"`
}

// BuildRoomView projects the state for one observer. The observer's own
// known cards are revealed; everyone else's hands come back as opaque
// slots with ids and positions only.
func BuildRoomView(s *GameState, forPlayer uuid.UUID) RoomView {
	observer := s.PlayerByID(forPlayer)

	view := RoomView{
		RoomID:             s.RoomID,
		Phase:              s.Phase,
		CurrentPlayerID:    s.CurrentID,
		TurnCount:          s.TurnCount,
		RoundCount:         s.RoundCount,
		DrawPileSize:       len(s.DrawPile),
		DiscardPileSize:    len(s.DiscardPile),
		Winners:            s.Winners,
		FinalRoundCallerID: s.FinalRoundCallerID,
		SameRank:           s.SameRank,
		Special:            s.Special,
		Timestamp:          time.Now().UnixMilli(),
	}
	if top, ok := s.DiscardTop(); ok {
		c := top
		view.DiscardTop = &c
	}

	view.Players = make([]ViewPlayer, 0, len(s.Players))
	for _, p := range s.Players {
		vp := ViewPlayer{
			ID:                  p.ID,
			DisplayName:         p.DisplayName,
			IsComputer:          p.IsComputer,
			Status:              p.Status,
			HandSize:            len(p.Hand),
			Hand:                make([]ViewCard, 0, len(p.Hand)),
			HasCalledFinalRound: p.HasCalledFinalRound,
			IsCurrent:           p.ID == s.CurrentID,
		}
		if p.ID == forPlayer {
			vp.CollectionRank = p.CollectionRank
		}
		for i, id := range p.Hand {
			vc := ViewCard{ID: id, Idx: i}
			if observer != nil && observer.Known.Has(id) {
				if card, ok := s.CardByID(id); ok {
					vc.Known = true
					vc.Rank = card.Rank
					vc.Suit = card.Suit
					vc.Value = card.Value()
				}
			}
			vp.Hand = append(vp.Hand, vc)
		}
		view.Players = append(view.Players, vp)
	}
	return view
}
