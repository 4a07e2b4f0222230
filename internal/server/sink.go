package server

import (
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/sil-vella/recall-sub014/internal/database"
	"github.com/sil-vella/recall-sub014/internal/game"
	"github.com/sil-vella/recall-sub014/internal/models"
)

// BroadcastSink is the networked StateSink: validated deltas fan out to
// the room's websockets, terminal results go to the database. It is
// invoked from inside a round's critical section, so anything that needs
// to re-enter the round runs on its own goroutine.
type BroadcastSink struct {
	hub *Hub
	db  *database.DB
	log *logrus.Entry

	// leave receives unresponsive-player signals; the server wires this to
	// its room-removal path.
	leave func(roomID, playerID uuid.UUID)
}

// NewBroadcastSink builds the networked sink. db may be nil.
func NewBroadcastSink(hub *Hub, db *database.DB, leave func(roomID, playerID uuid.UUID)) *BroadcastSink {
	return &BroadcastSink{
		hub:   hub,
		db:    db,
		log:   logrus.WithField("component", "sink"),
		leave: leave,
	}
}

func (b *BroadcastSink) OnStateChanged(roomID uuid.UUID, update game.Update) {
	b.hub.Broadcast(roomID, outbound{Event: evGameStateUpdated, Data: update})
}

func (b *BroadcastSink) SendToPlayer(roomID, playerID uuid.UUID, update game.Update) {
	b.hub.SendTo(roomID, playerID, outbound{Event: evPrivateState, Data: update})
}

func (b *BroadcastSink) BroadcastExcept(roomID, excludedID uuid.UUID, update game.Update) {
	b.hub.BroadcastExcept(roomID, excludedID, outbound{Event: evGameStateUpdated, Data: update})
}

func (b *BroadcastSink) OnDiscardUpdated(roomID uuid.UUID, update game.Update) {
	b.hub.Broadcast(roomID, outbound{Event: evDiscardUpdated, Data: update})
}

func (b *BroadcastSink) OnActionError(roomID, playerID uuid.UUID, message string, data map[string]any) {
	b.hub.SendTo(roomID, playerID, outbound{Event: evActionError, Data: map[string]any{
		"message": message,
		"data":    data,
	}})
}

func (b *BroadcastSink) TriggerLeaveRoom(roomID, playerID uuid.UUID) {
	b.log.WithFields(logrus.Fields{"room": roomID, "player": playerID}).Info("auto-leave triggered")
	if b.leave != nil {
		go b.leave(roomID, playerID)
	}
}

func (b *BroadcastSink) OnGameEnded(roomID uuid.UUID, winners []uuid.UUID, players []*models.Player, pot int) {
	results := make([]map[string]any, 0, len(players))
	for _, p := range players {
		results = append(results, map[string]any{
			"playerId":    p.ID,
			"displayName": p.DisplayName,
			"score":       p.Score,
			"cardsLeft":   len(p.Hand),
		})
	}
	b.hub.Broadcast(roomID, outbound{Event: evGameEnded, Data: map[string]any{
		"winners": winners,
		"players": results,
		"pot":     pot,
	}})
	if b.db != nil {
		snapshot := make([]*models.Player, len(players))
		copy(snapshot, players)
		go b.db.SaveGameResult(roomID, winners, snapshot, pot)
	}
}
