package game

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/sil-vella/recall-sub014/internal/models"
)

// CardRef addresses one face-down card by owner and hand position. Power
// selections may target any hand, including the acting player's own.
type CardRef struct {
	PlayerID  uuid.UUID `json:"playerId"`
	HandIndex int       `json:"handIndex"`
}

// SpecialPowerResolver validates and computes the outcome of the Queen
// peek and Jack swap power windows and of same-rank out-of-turn claims.
// It never mutates state itself; it returns the values the round feeds
// through the update pipeline.
type SpecialPowerResolver struct{}

func (SpecialPowerResolver) resolveRef(s *GameState, ref CardRef) (*models.Player, models.Card, *ActionError) {
	target := s.PlayerByID(ref.PlayerID)
	if target == nil {
		return nil, models.Card{}, actionErr(ErrInvalidTarget, "target player not in room", map[string]any{"playerId": ref.PlayerID})
	}
	if ref.HandIndex < 0 || ref.HandIndex >= len(target.Hand) {
		return nil, models.Card{}, actionErr(ErrInvalidTarget,
			fmt.Sprintf("hand index %d out of range", ref.HandIndex),
			map[string]any{"playerId": ref.PlayerID, "handIndex": ref.HandIndex})
	}
	card, ok := s.CardByID(target.Hand[ref.HandIndex])
	if !ok {
		return nil, models.Card{}, actionErr(ErrInvalidTarget, "card not tracked in deck", nil)
	}
	return target, card, nil
}

// QueenPeek validates a queen-peek selection and returns the card to be
// revealed privately to the acting player only.
func (r SpecialPowerResolver) QueenPeek(s *GameState, actorID uuid.UUID, ref CardRef) (models.Card, *ActionError) {
	if s.Special == nil || s.Special.Power != models.PowerQueen {
		return models.Card{}, actionErr(ErrWindowClosed, "no queen peek window open", nil)
	}
	if s.Special.PlayerID != actorID {
		return models.Card{}, actionErr(ErrWrongTurn, "queen peek belongs to another player", nil)
	}
	_, card, err := r.resolveRef(s, ref)
	if err != nil {
		return models.Card{}, err
	}
	return card, nil
}

// JackSwapResult carries a computed jack swap: the two hands after the
// swap, and any players whose collection eligibility the swap cleared.
type JackSwapResult struct {
	Hands             map[uuid.UUID][]uuid.UUID
	CardA, CardB      uuid.UUID
	CollectionCleared []uuid.UUID
}

// JackSwap validates a jack-swap selection across any two hands and
// computes the swapped hands. In clear-and-collect mode, a swap that
// removes a player's last collection-rank card clears their eligibility.
func (r SpecialPowerResolver) JackSwap(s *GameState, actorID uuid.UUID, refA, refB CardRef, clearAndCollect bool) (JackSwapResult, *ActionError) {
	if s.Special == nil || s.Special.Power != models.PowerJack {
		return JackSwapResult{}, actionErr(ErrWindowClosed, "no jack swap window open", nil)
	}
	if s.Special.PlayerID != actorID {
		return JackSwapResult{}, actionErr(ErrWrongTurn, "jack swap belongs to another player", nil)
	}
	if refA.PlayerID == refB.PlayerID && refA.HandIndex == refB.HandIndex {
		return JackSwapResult{}, actionErr(ErrInvalidTarget, "cannot swap a card with itself", nil)
	}
	ownerA, cardA, err := r.resolveRef(s, refA)
	if err != nil {
		return JackSwapResult{}, err
	}
	ownerB, cardB, err := r.resolveRef(s, refB)
	if err != nil {
		return JackSwapResult{}, err
	}

	handA := append([]uuid.UUID(nil), ownerA.Hand...)
	var handB []uuid.UUID
	if ownerA.ID == ownerB.ID {
		handB = handA
	} else {
		handB = append([]uuid.UUID(nil), ownerB.Hand...)
	}
	handA[refA.HandIndex], handB[refB.HandIndex] = handB[refB.HandIndex], handA[refA.HandIndex]

	res := JackSwapResult{
		Hands: map[uuid.UUID][]uuid.UUID{ownerA.ID: handA, ownerB.ID: handB},
		CardA: cardA.ID,
		CardB: cardB.ID,
	}

	if clearAndCollect && ownerA.ID != ownerB.ID {
		for _, pair := range []struct {
			owner *models.Player
			out   models.Card
			in    models.Card
		}{
			{ownerA, cardA, cardB},
			{ownerB, cardB, cardA},
		} {
			if pair.owner.CollectionRank == "" || pair.out.Rank != pair.owner.CollectionRank {
				continue
			}
			if pair.in.Rank == pair.owner.CollectionRank {
				continue // swapped one collection card for another
			}
			remaining := 0
			for _, id := range pair.owner.Hand {
				if c, ok := s.CardByID(id); ok && c.Rank == pair.owner.CollectionRank {
					remaining++
				}
			}
			if remaining == 1 {
				res.CollectionCleared = append(res.CollectionCleared, pair.owner.ID)
			}
		}
	}
	return res, nil
}

// SameRankClaim carries an accepted out-of-turn play: the claimant's hand
// after removing the card, and the card to push onto the discard pile.
type SameRankClaim struct {
	Hand map[uuid.UUID][]uuid.UUID
	Card models.Card
}

// ClaimSameRank validates an out-of-turn play against the open same-rank
// window. The first valid claim wins; later claims in the same window are
// rejected, as are claims whose rank does not match the discard top.
func (SpecialPowerResolver) ClaimSameRank(s *GameState, claimantID, cardID uuid.UUID) (SameRankClaim, *ActionError) {
	if s.SameRank == nil || !s.SameRank.Open {
		return SameRankClaim{}, actionErr(ErrWindowClosed, "no same-rank window open", nil)
	}
	if s.SameRank.ClaimedBy != uuid.Nil {
		return SameRankClaim{}, actionErr(ErrWindowClosed, "window already claimed",
			map[string]any{"claimedBy": s.SameRank.ClaimedBy})
	}
	claimant := s.PlayerByID(claimantID)
	if claimant == nil {
		return SameRankClaim{}, actionErr(ErrInvalidTarget, "claimant not in room", nil)
	}
	idx := claimant.HandIndex(cardID)
	if idx < 0 {
		return SameRankClaim{}, actionErr(ErrCardNotInHand, "card not in claimant's hand",
			map[string]any{"cardId": cardID})
	}
	card, ok := s.CardByID(cardID)
	if !ok {
		return SameRankClaim{}, actionErr(ErrInvalidTarget, "card not tracked in deck", nil)
	}
	top, hasTop := s.DiscardTop()
	if !hasTop || card.Rank != top.Rank {
		return SameRankClaim{}, actionErr(ErrRankMismatch,
			fmt.Sprintf("card rank %s does not match discard top", card.Rank),
			map[string]any{"cardId": cardID})
	}

	hand := append([]uuid.UUID(nil), claimant.Hand...)
	hand = append(hand[:idx], hand[idx+1:]...)
	return SameRankClaim{
		Hand: map[uuid.UUID][]uuid.UUID{claimantID: hand},
		Card: card,
	}, nil
}
