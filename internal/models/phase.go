package models

// Phase is the room-level state of the round state machine.
type Phase string

const (
	PhaseWaitingForPlayers Phase = "waiting_for_players"
	PhaseDealingCards      Phase = "dealing_cards"
	PhaseInitialPeek       Phase = "initial_peek"
	PhasePlayerTurn        Phase = "player_turn"
	PhaseSameRankWindow    Phase = "same_rank_window"
	PhaseSpecialPlayWindow Phase = "special_play_window"
	PhaseQueenPeekWindow   Phase = "queen_peek_window"
	PhaseTurnPendingEvents Phase = "turn_pending_events"
	PhaseEndingTurn        Phase = "ending_turn"
	PhaseEndingRound       Phase = "ending_round"
	PhaseGameEnded         Phase = "game_ended"
)

// Phases is the allowed-value set for the update schema.
var Phases = []Phase{
	PhaseWaitingForPlayers, PhaseDealingCards, PhaseInitialPeek,
	PhasePlayerTurn, PhaseSameRankWindow, PhaseSpecialPlayWindow,
	PhaseQueenPeekWindow, PhaseTurnPendingEvents, PhaseEndingTurn,
	PhaseEndingRound, PhaseGameEnded,
}

// legacyPhaseAliases maps phase names emitted by older clients to their
// current equivalents. Inbound values are normalized before validation.
var legacyPhaseAliases = map[string]Phase{
	"waiting":  PhaseWaitingForPlayers,
	"playing":  PhasePlayerTurn,
	"finished": PhaseGameEnded,
}

// NormalizePhase resolves legacy aliases and reports whether the input is a
// recognized phase.
func NormalizePhase(s string) (Phase, bool) {
	if p, ok := legacyPhaseAliases[s]; ok {
		return p, true
	}
	for _, p := range Phases {
		if string(p) == s {
			return p, true
		}
	}
	return "", false
}
