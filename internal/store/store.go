// Package store holds the in-memory room registry. Rounds are created
// and looked up here; each room's state is owned by its Round and the
// registry never reaches into it.
package store

import (
	"sync"

	"github.com/google/uuid"

	"github.com/sil-vella/recall-sub014/internal/game"
	"github.com/sil-vella/recall-sub014/internal/models"
)

// Store maps room ids to live rounds. Safe for concurrent use.
type Store struct {
	mu    sync.RWMutex
	rooms map[uuid.UUID]*game.Round
}

// New returns an empty registry.
func New() *Store {
	return &Store{rooms: make(map[uuid.UUID]*game.Round)}
}

// Put registers a round under its room id, replacing any previous entry.
func (s *Store) Put(r *game.Round) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rooms[r.State().RoomID] = r
}

// Get returns the round for a room, or nil.
func (s *Store) Get(roomID uuid.UUID) *game.Round {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rooms[roomID]
}

// Delete removes a room from the registry.
func (s *Store) Delete(roomID uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rooms, roomID)
}

// Len reports the number of live rooms.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rooms)
}

// GetCurrentState returns the state aggregate for a room, or nil.
func (s *Store) GetCurrentState(roomID uuid.UUID) *game.GameState {
	if r := s.Get(roomID); r != nil {
		return r.State()
	}
	return nil
}

// GetCardByID resolves a card id within a room's deck.
func (s *Store) GetCardByID(roomID, cardID uuid.UUID) (models.Card, bool) {
	st := s.GetCurrentState(roomID)
	if st == nil {
		return models.Card{}, false
	}
	return st.CardByID(cardID)
}
