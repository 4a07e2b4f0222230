package game

import (
	"github.com/google/uuid"

	"github.com/sil-vella/recall-sub014/internal/models"
)

// WinResolver computes end-of-round scores and winners.
type WinResolver struct{}

// Scores sums the point values of the cards left in each player's hand.
func (WinResolver) Scores(s *GameState) map[uuid.UUID]int {
	scores := make(map[uuid.UUID]int, len(s.Players))
	for _, p := range s.Players {
		total := 0
		for _, id := range p.Hand {
			if c, ok := s.CardByID(id); ok {
				total += c.Value()
			}
		}
		scores[p.ID] = total
	}
	return scores
}

// Resolve determines the round winners.
//
// Resolution order:
//  1. any player with zero cards wins immediately, regardless of points;
//  2. otherwise the lowest total score wins;
//  3. tie broken by fewest cards in hand;
//  4. still tied, the final-round caller wins if among the tied;
//  5. still tied, all tied players share the win.
func (WinResolver) Resolve(s *GameState, scores map[uuid.UUID]int) []uuid.UUID {
	if len(s.Players) == 0 {
		return nil
	}

	var empty []uuid.UUID
	for _, p := range s.Players {
		if len(p.Hand) == 0 {
			empty = append(empty, p.ID)
		}
	}
	if len(empty) > 0 {
		return empty
	}

	lowest := -1
	for _, p := range s.Players {
		if sc := scores[p.ID]; lowest < 0 || sc < lowest {
			lowest = sc
		}
	}
	var tied []*models.Player
	for _, p := range s.Players {
		if scores[p.ID] == lowest {
			tied = append(tied, p)
		}
	}
	if len(tied) == 1 {
		return []uuid.UUID{tied[0].ID}
	}

	fewest := -1
	for _, p := range tied {
		if fewest < 0 || len(p.Hand) < fewest {
			fewest = len(p.Hand)
		}
	}
	var byCount []*models.Player
	for _, p := range tied {
		if len(p.Hand) == fewest {
			byCount = append(byCount, p)
		}
	}
	if len(byCount) == 1 {
		return []uuid.UUID{byCount[0].ID}
	}

	if s.FinalRoundCallerID != uuid.Nil {
		for _, p := range byCount {
			if p.ID == s.FinalRoundCallerID {
				return []uuid.UUID{p.ID}
			}
		}
	}

	shared := make([]uuid.UUID, len(byCount))
	for i, p := range byCount {
		shared[i] = p.ID
	}
	return shared
}

// CollectionWinner returns the player who holds all four cards of their
// assigned collection rank, or uuid.Nil. Only meaningful in
// clear-and-collect mode, where such a player wins immediately.
func (WinResolver) CollectionWinner(s *GameState) uuid.UUID {
	for _, p := range s.Players {
		if p.CollectionRank == "" {
			continue
		}
		count := 0
		for _, id := range p.Hand {
			if c, ok := s.CardByID(id); ok && c.Rank == p.CollectionRank {
				count++
			}
		}
		if count == 4 {
			return p.ID
		}
	}
	return uuid.Nil
}

// HoldsCollectionCard reports whether the player still holds at least one
// card of their collection rank. A jack swap that removes the last one
// clears the player's collection eligibility.
func (WinResolver) HoldsCollectionCard(s *GameState, p *models.Player) bool {
	if p.CollectionRank == "" {
		return false
	}
	for _, id := range p.Hand {
		if c, ok := s.CardByID(id); ok && c.Rank == p.CollectionRank {
			return true
		}
	}
	return false
}
