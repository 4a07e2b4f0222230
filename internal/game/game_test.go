package game

import (
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/sil-vella/recall-sub014/internal/config"
	"github.com/sil-vella/recall-sub014/internal/models"
)

// mockSink captures every delivery for test assertions.
type mockSink struct {
	mu             sync.Mutex
	broadcasts     []Update
	discardUpdates []Update
	playerUpdates  map[uuid.UUID][]Update
	actionErrors   map[uuid.UUID][]string
	leaves         []uuid.UUID
	endedWinners   []uuid.UUID
	ended          bool
}

func newMockSink() *mockSink {
	return &mockSink{
		playerUpdates: make(map[uuid.UUID][]Update),
		actionErrors:  make(map[uuid.UUID][]string),
	}
}

func (m *mockSink) OnStateChanged(roomID uuid.UUID, update Update) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.broadcasts = append(m.broadcasts, update)
}

func (m *mockSink) SendToPlayer(roomID, playerID uuid.UUID, update Update) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.playerUpdates[playerID] = append(m.playerUpdates[playerID], update)
}

func (m *mockSink) BroadcastExcept(roomID, excludedID uuid.UUID, update Update) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.broadcasts = append(m.broadcasts, update)
}

func (m *mockSink) OnDiscardUpdated(roomID uuid.UUID, update Update) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.discardUpdates = append(m.discardUpdates, update)
}

func (m *mockSink) OnActionError(roomID, playerID uuid.UUID, message string, data map[string]any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.actionErrors[playerID] = append(m.actionErrors[playerID], message)
}

func (m *mockSink) TriggerLeaveRoom(roomID, playerID uuid.UUID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.leaves = append(m.leaves, playerID)
}

func (m *mockSink) OnGameEnded(roomID uuid.UUID, winners []uuid.UUID, players []*models.Player, pot int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ended = true
	m.endedWinners = winners
}

func (m *mockSink) clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.broadcasts = nil
	m.discardUpdates = nil
	m.playerUpdates = make(map[uuid.UUID][]Update)
	m.actionErrors = make(map[uuid.UUID][]string)
}

func (m *mockSink) broadcastCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.broadcasts)
}

func (m *mockSink) lastBroadcast() Update {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.broadcasts) == 0 {
		return nil
	}
	return m.broadcasts[len(m.broadcasts)-1]
}

func (m *mockSink) discardUpdateCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.discardUpdates)
}

func (m *mockSink) lastDiscardUpdate() Update {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.discardUpdates) == 0 {
		return nil
	}
	return m.discardUpdates[len(m.discardUpdates)-1]
}

func (m *mockSink) lastPlayerUpdate(playerID uuid.UUID) Update {
	m.mu.Lock()
	defer m.mu.Unlock()
	ups := m.playerUpdates[playerID]
	if len(ups) == 0 {
		return nil
	}
	return ups[len(ups)-1]
}

func (m *mockSink) playerUpdateCount(playerID uuid.UUID) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.playerUpdates[playerID])
}

func (m *mockSink) errorCount(playerID uuid.UUID) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.actionErrors[playerID])
}

func (m *mockSink) leaveCount(playerID uuid.UUID) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, id := range m.leaves {
		if id == playerID {
			n++
		}
	}
	return n
}

// phaseTrail returns the phases carried by broadcasts, in order.
func (m *mockSink) phaseTrail() []models.Phase {
	m.mu.Lock()
	defer m.mu.Unlock()
	var trail []models.Phase
	for _, u := range m.broadcasts {
		if ph, ok := u[FieldPhase].(models.Phase); ok {
			trail = append(trail, ph)
		}
	}
	return trail
}

func (m *mockSink) gameEnded() ([]uuid.UUID, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.endedWinners, m.ended
}

// testConfig returns a config whose timers are far too long to fire
// during a test. Individual tests shorten the duration fields on the
// Round directly when they exercise expiry behavior.
func testConfig() config.Config {
	cfg := config.Default()
	cfg.Timers = config.Timers{
		InitialPeekSec: 300,
		DrawSec:        300,
		PlaySec:        300,
		SameRankSec:    300,
		PowerWindowSec: 300,
	}
	return cfg
}

// setupTestRound builds a round with n human players, not yet dealt.
func setupTestRound(t *testing.T, n int, mutate func(*config.Config)) (*Round, []*models.Player, *mockSink) {
	t.Helper()
	cfg := testConfig()
	if mutate != nil {
		mutate(&cfg)
	}
	sink := newMockSink()
	round := NewRound(NewGameState(uuid.New()), sink, cfg, WithSeed(42))

	players := make([]*models.Player, n)
	for i := 0; i < n; i++ {
		players[i] = models.NewPlayer(uuid.New(), "Player"+string(rune('A'+i)), false)
		if err := round.AddPlayer(players[i]); err != nil {
			t.Fatalf("AddPlayer: %v", err)
		}
	}
	return round, players, sink
}

func testCard(rank models.Rank, suit models.Suit) models.Card {
	return models.Card{ID: uuid.New(), Suit: suit, Rank: rank}
}

// primeTurn puts the round mid-game with fully controlled hands and
// piles, bypassing the shuffle. The last drawPile card is the next draw.
func primeTurn(r *Round, hands map[uuid.UUID][]models.Card, drawPile, discard []models.Card, currentID uuid.UUID) {
	s := r.state
	s.Deck = make(map[uuid.UUID]models.Card)
	track := func(cards []models.Card) []uuid.UUID {
		ids := make([]uuid.UUID, len(cards))
		for i, c := range cards {
			s.Deck[c.ID] = c
			ids[i] = c.ID
		}
		return ids
	}

	for _, p := range s.Players {
		p.Hand = track(hands[p.ID])
		p.Known = make(models.KnownCards)
		for _, id := range p.Hand {
			p.Known.Add(id)
		}
		p.Status = models.StatusWaiting
	}
	s.DrawPile = track(drawPile)
	s.DiscardPile = append([]models.Card(nil), discard...)
	track(discard)

	s.Phase = models.PhasePlayerTurn
	s.CurrentID = currentID
	for i, p := range s.Players {
		if p.ID == currentID {
			s.CurrentIdx = i
			p.Status = models.StatusDrawingCard
		}
	}
	r.roundStarted = true
	r.drawnCardID = uuid.Nil
}
