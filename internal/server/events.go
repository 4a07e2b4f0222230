package server

import (
	"github.com/google/uuid"

	"github.com/sil-vella/recall-sub014/internal/game"
)

// Outbound event names.
const (
	evGameStateUpdated = "game_state_updated"
	evDiscardUpdated   = "discard_pile_updated"
	evPrivateState     = "private_state_updated"
	evActionError      = "action_error"
	evGameEnded        = "game_ended"
	evRoomJoined       = "room_joined"
)

// outbound is the envelope for every server-to-client message.
type outbound struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// inbound is the envelope for every client-to-server message. Fields are
// a union across actions; each handler reads the ones it needs.
type inbound struct {
	Action string `json:"action"`

	Source   string    `json:"source,omitempty"`   // draw_card: "deck" | "discard"
	CardID   uuid.UUID `json:"cardId,omitempty"`   // play_card, play_out_of_turn
	CardRef  *cardRef  `json:"cardRef,omitempty"`  // queen_peek_select
	CardRefA *cardRef  `json:"cardRefA,omitempty"` // jack_swap_select
	CardRefB *cardRef  `json:"cardRefB,omitempty"`
}

type cardRef struct {
	PlayerID  uuid.UUID `json:"playerId"`
	HandIndex int       `json:"handIndex"`
}

func (c *cardRef) toGame() game.CardRef {
	return game.CardRef{PlayerID: c.PlayerID, HandIndex: c.HandIndex}
}

// Inbound action names.
const (
	actStartGame      = "start_game"
	actDrawCard       = "draw_card"
	actPlayCard       = "play_card"
	actPlayOutOfTurn  = "play_out_of_turn"
	actCallFinalRound = "call_final_round"
	actQueenPeek      = "queen_peek_select"
	actJackSwap       = "jack_swap_select"
	actResync         = "resync"
)
