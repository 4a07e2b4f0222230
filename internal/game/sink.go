package game

import (
	"github.com/google/uuid"

	"github.com/sil-vella/recall-sub014/internal/models"
)

// Update is a validated, broadcastable state delta keyed by schema field
// names. Private fields are stripped before room-wide delivery.
type Update map[string]any

// StateSink is the delivery boundary of the game core. The multiplayer
// server wires a network-broadcasting implementation; practice mode wires
// a local one. The Round never knows which.
//
// Implementations are invoked from inside the round's critical section and
// must not call back into the round synchronously.
type StateSink interface {
	// OnStateChanged delivers a validated delta to the whole room.
	OnStateChanged(roomID uuid.UUID, update Update)
	// SendToPlayer delivers a delta privately to one player (drawn-card
	// reveal, queen-peek result).
	SendToPlayer(roomID, playerID uuid.UUID, update Update)
	// BroadcastExcept delivers a delta to all but one player.
	BroadcastExcept(roomID, excludedID uuid.UUID, update Update)
	// OnDiscardUpdated fires after any delta that changed the discard
	// pile, carrying the public projection (top card, size).
	OnDiscardUpdated(roomID uuid.UUID, update Update)
	// OnActionError reports a rejected action; no state was mutated.
	OnActionError(roomID, playerID uuid.UUID, message string, data map[string]any)
	// TriggerLeaveRoom asks the room layer to remove an unresponsive player.
	TriggerLeaveRoom(roomID, playerID uuid.UUID)
	// OnGameEnded is the terminal notification for stats and persistence.
	OnGameEnded(roomID uuid.UUID, winners []uuid.UUID, players []*models.Player, pot int)
}

// LocalListener receives deliveries from a LocalSink. The practice-mode UI
// implements this directly; all callbacks run on the round's goroutine.
type LocalListener interface {
	StateChanged(update Update)
	DiscardChanged(update Update)
	PrivateUpdate(playerID uuid.UUID, update Update)
	ActionError(playerID uuid.UUID, message string, data map[string]any)
	GameEnded(winners []uuid.UUID, players []*models.Player, pot int)
}

// LocalSink adapts a LocalListener to the StateSink contract for embedded
// (practice) deployments. Room-wide and excepted deliveries both surface
// as StateChanged; there is only one human observer.
type LocalSink struct {
	Listener LocalListener
}

func (l *LocalSink) OnStateChanged(roomID uuid.UUID, update Update) {
	if l.Listener != nil {
		l.Listener.StateChanged(update)
	}
}

func (l *LocalSink) SendToPlayer(roomID, playerID uuid.UUID, update Update) {
	if l.Listener != nil {
		l.Listener.PrivateUpdate(playerID, update)
	}
}

func (l *LocalSink) BroadcastExcept(roomID, excludedID uuid.UUID, update Update) {
	if l.Listener != nil {
		l.Listener.StateChanged(update)
	}
}

func (l *LocalSink) OnDiscardUpdated(roomID uuid.UUID, update Update) {
	if l.Listener != nil {
		l.Listener.DiscardChanged(update)
	}
}

func (l *LocalSink) OnActionError(roomID, playerID uuid.UUID, message string, data map[string]any) {
	if l.Listener != nil {
		l.Listener.ActionError(playerID, message, data)
	}
}

func (l *LocalSink) TriggerLeaveRoom(roomID, playerID uuid.UUID) {}

func (l *LocalSink) OnGameEnded(roomID uuid.UUID, winners []uuid.UUID, players []*models.Player, pot int) {
	if l.Listener != nil {
		l.Listener.GameEnded(winners, players, pot)
	}
}
