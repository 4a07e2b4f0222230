package game

import (
	"github.com/google/uuid"

	"github.com/sil-vella/recall-sub014/internal/models"
)

// botTakeTurnLocked plays a computer player's full turn through the same
// handlers a human uses. It runs synchronously inside the turn transition
// so the broadcast order matches a human turn exactly.
func (r *Round) botTakeTurnLocked(p *models.Player) {
	if err := r.handleDrawLocked(p.ID, DrawFromDeck); err != nil {
		return
	}
	if err := r.handlePlayLocked(p.ID, r.botChooseCard(p)); err != nil {
		return
	}
	r.botResolvePowerLocked(p)
}

// botChooseCard discards the highest-point card the bot has actually
// seen, falling back to the drawn card. Unseen hand cards are never
// played blind.
func (r *Round) botChooseCard(p *models.Player) uuid.UUID {
	best := r.drawnCardID
	bestVal := -1
	if c, ok := r.state.CardByID(best); ok {
		bestVal = c.Value()
	}
	for _, id := range p.Hand {
		if !p.Known.Has(id) {
			continue
		}
		c, ok := r.state.CardByID(id)
		if !ok {
			continue
		}
		if c.Value() > bestVal {
			best, bestVal = id, c.Value()
		}
	}
	return best
}

// botResolvePowerLocked resolves a power window the bot's own play just
// opened. Same-rank windows are left to run their timer so human
// opponents keep their claim chance.
func (r *Round) botResolvePowerLocked(p *models.Player) {
	if r.state.Special == nil || r.state.Special.PlayerID != p.ID {
		return
	}
	switch r.state.Special.Power {
	case models.PowerQueen:
		_ = r.queenPeekLocked(p.ID, r.botPickPeekTarget(p))
	case models.PowerJack:
		a, b, ok := r.botPickSwapTargets(p)
		if !ok {
			r.handlePowerTimeout(p.ID)
			return
		}
		_ = r.jackSwapLocked(p.ID, a, b)
	}
}

// botPickPeekTarget prefers the bot's own first unseen card, falling back
// to slot zero.
func (r *Round) botPickPeekTarget(p *models.Player) CardRef {
	for i, id := range p.Hand {
		if !p.Known.Has(id) {
			return CardRef{PlayerID: p.ID, HandIndex: i}
		}
	}
	return CardRef{PlayerID: p.ID, HandIndex: 0}
}

// botPickSwapTargets trades the bot's highest known card for an
// opponent's unseen one.
func (r *Round) botPickSwapTargets(p *models.Player) (CardRef, CardRef, bool) {
	ownIdx := -1
	ownVal := -1
	for i, id := range p.Hand {
		if !p.Known.Has(id) {
			continue
		}
		if c, ok := r.state.CardByID(id); ok && c.Value() > ownVal {
			ownIdx, ownVal = i, c.Value()
		}
	}
	if ownIdx < 0 {
		if len(p.Hand) == 0 {
			return CardRef{}, CardRef{}, false
		}
		ownIdx = 0
	}
	for _, other := range r.state.Players {
		if other.ID == p.ID || len(other.Hand) == 0 {
			continue
		}
		if other.Status == models.StatusDisconnected || other.Status == models.StatusFinished {
			continue
		}
		return CardRef{PlayerID: p.ID, HandIndex: ownIdx},
			CardRef{PlayerID: other.ID, HandIndex: r.rng.Intn(len(other.Hand))},
			true
	}
	return CardRef{}, CardRef{}, false
}
