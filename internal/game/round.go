package game

import (
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/sil-vella/recall-sub014/internal/config"
	"github.com/sil-vella/recall-sub014/internal/models"
)

// DrawSource selects which pile a draw takes from.
type DrawSource string

const (
	DrawFromDeck    DrawSource = "deck"
	DrawFromDiscard DrawSource = "discard"
)

// ActionRecorder receives an ordered record of every applied action for
// the historian service. Implementations must not block the game; a nil
// recorder disables history.
type ActionRecorder interface {
	Record(roomID uuid.UUID, actionIndex int, actorID uuid.UUID, action string, payload map[string]any)
}

// Round owns one room's turn/round state machine. All public methods are
// serialized on one mutex; timer expirations and bot moves funnel through
// the same critical section, so within a room nothing runs concurrently
// with anything else. Cross-room rounds are fully independent.
type Round struct {
	mu sync.Mutex

	cfg      config.Config
	log      *logrus.Entry
	state    *GameState
	sink     StateSink
	pipeline *Pipeline
	timers   *TimerScheduler
	powers   SpecialPowerResolver
	wins     WinResolver
	rng      *rand.Rand
	recorder ActionRecorder

	// Timer durations, initialized from config. Overridable in tests.
	InitialPeekDur time.Duration
	DrawDur        time.Duration
	PlayDur        time.Duration
	SameRankDur    time.Duration
	PowerWindowDur time.Duration

	roundStarted bool
	gameOver     bool
	drawnCardID  uuid.UUID
	missed       map[uuid.UUID]int
	actionIndex  int
}

// RoundOption configures a Round at construction time.
type RoundOption func(*Round)

// WithRecorder wires an action-history recorder.
func WithRecorder(rec ActionRecorder) RoundOption {
	return func(r *Round) { r.recorder = rec }
}

// WithSeed fixes the shuffle RNG seed, for deterministic tests.
func WithSeed(seed int64) RoundOption {
	return func(r *Round) { r.rng = rand.New(rand.NewSource(seed)) }
}

// NewRound builds the state machine for one room. The sink decides the
// deployment: a network broadcaster for multiplayer, a local sink for
// practice mode; the round is agnostic.
func NewRound(state *GameState, sink StateSink, cfg config.Config, opts ...RoundOption) *Round {
	r := &Round{
		cfg:    cfg,
		log:    logrus.WithField("room", state.RoomID),
		state:  state,
		sink:   sink,
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
		missed: make(map[uuid.UUID]int),

		InitialPeekDur: cfg.Timers.InitialPeek(),
		DrawDur:        cfg.Timers.Draw(),
		PlayDur:        cfg.Timers.Play(),
		SameRankDur:    cfg.Timers.SameRank(),
		PowerWindowDur: cfg.Timers.PowerWindow(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.pipeline = NewPipeline(state, sink, r.log)
	r.timers = NewTimerScheduler(r.dispatch, r.log)
	return r
}

// dispatch serializes timer expirations with player actions.
func (r *Round) dispatch(f func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	f()
}

// State returns the room's state aggregate. Reads of mutable fields must
// happen while no action is in flight; prefer View for observers.
func (r *Round) State() *GameState { return r.state }

// Timers exposes the scheduler for property tests.
func (r *Round) Timers() *TimerScheduler { return r.timers }

// AddPlayer registers a player while the room is still waiting.
func (r *Round) AddPlayer(p *models.Player) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state.Phase != models.PhaseWaitingForPlayers {
		return actionErr(ErrRoundState, "cannot join after the round has started", nil)
	}
	r.state.AddPlayer(p)
	return nil
}

// record pushes an ordered action record to the historian, if wired.
func (r *Round) record(actorID uuid.UUID, action string, payload map[string]any) {
	r.actionIndex++
	if r.recorder != nil {
		r.recorder.Record(r.state.RoomID, r.actionIndex, actorID, action, payload)
	}
}

// reject surfaces an action error without mutating state.
func (r *Round) reject(playerID uuid.UUID, err *ActionError) error {
	r.log.WithFields(logrus.Fields{"player": playerID, "code": err.Code}).Warn(err.Message)
	r.sink.OnActionError(r.state.RoomID, playerID, err.Message, err.Data)
	return err
}

// ---------------------------------------------------------------------------
// Round initialization
// ---------------------------------------------------------------------------

// StartTurn initializes the round: records the start time, deals, opens
// the initial-peek window, and logs the round start. It runs exactly once
// per round; calling it mid-round is a programming error and is rejected.
// It does not touch per-player turn statuses or per-turn timers; every
// per-turn transition goes through MoveToNextPlayer.
func (r *Round) StartTurn() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.roundStarted || r.state.Phase != models.PhaseWaitingForPlayers {
		return r.reject(uuid.Nil, actionErr(ErrRoundState, "round already started", nil))
	}
	if len(r.state.Players) < 2 {
		return r.reject(uuid.Nil, actionErr(ErrRoundState, "need at least two players", nil))
	}

	r.roundStarted = true
	r.gameOver = false
	r.state.RoundStartedAt = time.Now()

	if r.cfg.Rules.ClearAndCollect {
		assignCollectionRanks(r.state, r.rng)
	}

	hands, drawPile, first := buildDeal(r.state, r.rng, r.cfg.Rules.CardsPerPlayer)
	r.pipeline.Process(Update{
		FieldPhase:       models.PhaseDealingCards,
		FieldHands:       hands,
		FieldDrawPile:    drawPile,
		FieldDiscardPile: []models.Card{first},
		FieldRoundCount:  r.state.RoundCount + 1,
		FieldTurnEvents:  []TurnEvent{{Type: "cards_dealt"}},
	})

	r.pipeline.Process(Update{FieldPhase: models.PhaseInitialPeek})
	for _, p := range r.state.Players {
		n := r.cfg.Rules.InitialPeekSize
		if n > len(p.Hand) {
			n = len(p.Hand)
		}
		for i := 0; i < n; i++ {
			card, _ := r.state.CardByID(p.Hand[i])
			r.pipeline.ProcessToPlayer(p.ID, Update{
				FieldRevealed: card,
				FieldKnownAdd: map[uuid.UUID][]uuid.UUID{p.ID: {card.ID}},
			})
		}
	}

	r.timers.Start(TimerPeek, r.InitialPeekDur, func() {
		r.moveToNextPlayerLocked()
	})

	r.log.WithField("players", len(r.state.Players)).Info("round started")
	r.record(uuid.Nil, "round_start", map[string]any{"players": len(r.state.Players)})
	return nil
}

// ---------------------------------------------------------------------------
// Turn transition
// ---------------------------------------------------------------------------

// MoveToNextPlayer is the single atomic turn-transition primitive.
func (r *Round) MoveToNextPlayer() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.moveToNextPlayerLocked()
}

// moveToNextPlayerLocked performs the turn transition as one indivisible
// unit: cancel timers, clear windows, rotate the current player, start the
// incoming draw timer, and emit exactly one broadcast carrying all of it.
// Nothing is observable between the outgoing player losing the turn and
// the incoming player gaining it.
func (r *Round) moveToNextPlayerLocked() {
	if r.gameOver {
		return
	}

	// (a) every live timer for the room dies with the old turn
	r.timers.CancelAll()

	outgoing := r.state.CurrentPlayer()
	incoming := r.nextActivePlayer()
	if incoming == nil {
		r.endRoundLocked()
		return
	}

	// final-round lap complete: the caller would be up again
	if r.state.FinalRoundCallerID != uuid.Nil && incoming.ID == r.state.FinalRoundCallerID {
		r.endRoundLocked()
		return
	}

	// (c)-(e) one status map, one current-player change
	statuses := make(map[uuid.UUID]models.PlayerStatus, len(r.state.Players))
	for _, p := range r.state.Players {
		switch p.Status {
		case models.StatusDisconnected, models.StatusFinished, models.StatusWinner:
			// sticky statuses survive turn rotation
		default:
			statuses[p.ID] = models.StatusWaiting
		}
	}
	if outgoing != nil && outgoing.Status != models.StatusDisconnected {
		statuses[outgoing.ID] = models.StatusReady
	}
	statuses[incoming.ID] = models.StatusDrawingCard
	r.drawnCardID = uuid.Nil

	// (f) the incoming player's draw clock
	r.timers.Start(TimerDraw, r.DrawDur, func() {
		r.handleDrawTimeout(incoming.ID)
	})

	// (b)+(g) windows cleared and everything above in exactly one broadcast
	r.pipeline.Process(Update{
		FieldPhase:      models.PhasePlayerTurn,
		FieldCurrent:    incoming.ID,
		FieldStatuses:   statuses,
		FieldTurnCount:  r.state.TurnCount + 1,
		FieldSameRank:   nil,
		FieldSpecial:    nil,
		FieldTurnEvents: []TurnEvent{{Type: "turn_started", PlayerID: incoming.ID}},
	})
	r.record(incoming.ID, "turn_started", map[string]any{"turn": r.state.TurnCount})

	// (h) computer players act synchronously, through the same handlers
	if incoming.IsComputer {
		r.botTakeTurnLocked(incoming)
	}
}

// nextActivePlayer returns the next player in seat order who can act, or
// nil when fewer than one remains.
func (r *Round) nextActivePlayer() *models.Player {
	n := len(r.state.Players)
	if n == 0 {
		return nil
	}
	start := 0
	if r.state.CurrentID != uuid.Nil {
		start = r.state.CurrentIdx + 1
	}
	for i := 0; i < n; i++ {
		p := r.state.Players[(start+i)%n]
		if p.Status == models.StatusDisconnected || p.Status == models.StatusFinished {
			continue
		}
		return p
	}
	return nil
}

// ---------------------------------------------------------------------------
// Player actions
// ---------------------------------------------------------------------------

// HandleDraw processes a draw from the deck or the discard pile. The
// drawn card is revealed privately to the drawing player only. A
// successful draw from the player themselves clears their missed-action
// count; timer fallbacks enter through handleDrawLocked and do not.
func (r *Round) HandleDraw(playerID uuid.UUID, source DrawSource) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	err := r.handleDrawLocked(playerID, source)
	if err == nil {
		r.missed[playerID] = 0
	}
	return err
}

func (r *Round) handleDrawLocked(playerID uuid.UUID, source DrawSource) error {
	if r.gameOver || r.state.Phase != models.PhasePlayerTurn {
		return r.reject(playerID, actionErr(ErrWrongPhase, "no turn in progress", nil))
	}
	if playerID != r.state.CurrentID {
		return r.reject(playerID, actionErr(ErrWrongTurn, "not your turn", nil))
	}
	player := r.state.PlayerByID(playerID)
	if player.Status != models.StatusDrawingCard {
		return r.reject(playerID, actionErr(ErrWrongStatus, "not in the draw phase of your turn", nil))
	}

	delta := Update{}
	var drawn models.Card
	switch source {
	case DrawFromDeck:
		drawPile := append([]uuid.UUID(nil), r.state.DrawPile...)
		if len(drawPile) == 0 {
			var reshuffled []models.Card
			drawPile, reshuffled = r.reshuffle()
			if drawPile == nil {
				return r.reject(playerID, actionErr(ErrEmptyPile, "draw pile is empty", nil))
			}
			delta[FieldDiscardPile] = reshuffled
			delta[FieldTurnEvents] = []TurnEvent{{Type: "deck_reshuffled"}}
		}
		topID := drawPile[len(drawPile)-1]
		drawPile = drawPile[:len(drawPile)-1]
		drawn, _ = r.state.CardByID(topID)
		delta[FieldDrawPile] = drawPile
	case DrawFromDiscard:
		top, ok := r.state.DiscardTop()
		if !ok {
			return r.reject(playerID, actionErr(ErrEmptyPile, "discard pile is empty", nil))
		}
		drawn = top
		delta[FieldDiscardPile] = append([]models.Card(nil), r.state.DiscardPile[:len(r.state.DiscardPile)-1]...)
	default:
		return r.reject(playerID, actionErr(ErrInvalidTarget, "unknown draw source", map[string]any{"source": source}))
	}

	r.drawnCardID = drawn.ID

	delta[FieldStatuses] = map[uuid.UUID]models.PlayerStatus{playerID: models.StatusPlayingCard}
	events, _ := delta[FieldTurnEvents].([]TurnEvent)
	delta[FieldTurnEvents] = append(events, TurnEvent{Type: "card_drawn", PlayerID: playerID, CardID: drawn.ID, Extra: string(source)})

	r.timers.Cancel(TimerDraw)
	r.timers.Start(TimerPlay, r.PlayDur, func() {
		r.handlePlayTimeout(playerID)
	})

	r.pipeline.Process(delta)
	r.pipeline.ProcessToPlayer(playerID, Update{
		FieldRevealed: drawn,
		FieldKnownAdd: map[uuid.UUID][]uuid.UUID{playerID: {drawn.ID}},
	})
	r.record(playerID, "draw_card", map[string]any{"source": source, "cardId": drawn.ID})
	return nil
}

// reshuffle turns the discard pile (minus its top card) back into a draw
// pile. Returns (nil, nil) if there is nothing to reshuffle.
func (r *Round) reshuffle() ([]uuid.UUID, []models.Card) {
	if len(r.state.DiscardPile) <= 1 {
		return nil, nil
	}
	top := r.state.DiscardPile[len(r.state.DiscardPile)-1]
	rest := append([]models.Card(nil), r.state.DiscardPile[:len(r.state.DiscardPile)-1]...)
	r.rng.Shuffle(len(rest), func(i, j int) { rest[i], rest[j] = rest[j], rest[i] })
	pile := make([]uuid.UUID, len(rest))
	for i, c := range rest {
		pile[i] = c.ID
	}
	return pile, []models.Card{top}
}

// HandlePlay discards a card from the current player: either the card
// just drawn, or a hand card (the drawn card then takes its slot). The
// play may open a power window or a same-rank window; otherwise the turn
// advances.
func (r *Round) HandlePlay(playerID, cardID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	err := r.handlePlayLocked(playerID, cardID)
	if err == nil {
		r.missed[playerID] = 0
	}
	return err
}

func (r *Round) handlePlayLocked(playerID, cardID uuid.UUID) error {
	if r.gameOver || r.state.Phase != models.PhasePlayerTurn {
		return r.reject(playerID, actionErr(ErrWrongPhase, "no turn in progress", nil))
	}
	if playerID != r.state.CurrentID {
		return r.reject(playerID, actionErr(ErrWrongTurn, "not your turn", nil))
	}
	player := r.state.PlayerByID(playerID)
	if player.Status != models.StatusPlayingCard {
		return r.reject(playerID, actionErr(ErrWrongStatus, "you must draw before playing", nil))
	}

	played, ok := r.state.CardByID(cardID)
	if !ok {
		return r.reject(playerID, actionErr(ErrCardNotInHand, "unknown card", map[string]any{"cardId": cardID}))
	}

	delta := Update{FieldDiscardPush: played}
	knownAdd := map[uuid.UUID][]uuid.UUID{}
	switch {
	case cardID == r.drawnCardID:
		// drawn card goes straight to the discard; hand unchanged
	case player.HandIndex(cardID) >= 0:
		if r.drawnCardID == uuid.Nil {
			return r.reject(playerID, actionErr(ErrWrongStatus, "no drawn card to swap in", nil))
		}
		hand := append([]uuid.UUID(nil), player.Hand...)
		hand[player.HandIndex(cardID)] = r.drawnCardID
		delta[FieldHands] = map[uuid.UUID][]uuid.UUID{playerID: hand}
		knownAdd[playerID] = []uuid.UUID{r.drawnCardID}
	default:
		return r.reject(playerID, actionErr(ErrCardNotInHand, "card is neither in hand nor drawn", map[string]any{"cardId": cardID}))
	}
	if len(knownAdd) > 0 {
		delta[FieldKnownAdd] = knownAdd
	}
	delta[FieldTurnEvents] = []TurnEvent{{Type: "card_played", PlayerID: playerID, CardID: cardID}}

	r.drawnCardID = uuid.Nil
	r.timers.Cancel(TimerPlay)
	r.pipeline.Process(delta)
	r.record(playerID, "play_card", map[string]any{"cardId": cardID, "rank": played.Rank})

	if r.checkImmediateWinLocked(player) {
		return nil
	}

	switch played.PowerTag() {
	case models.PowerQueen:
		r.openPowerWindowLocked(player, played, models.PowerQueen)
	case models.PowerJack:
		r.openPowerWindowLocked(player, played, models.PowerJack)
	default:
		if r.cfg.Rules.SameRankWindow {
			r.openSameRankWindowLocked(player, played)
		} else {
			r.moveToNextPlayerLocked()
		}
	}
	return nil
}

// openPowerWindowLocked opens the queen-peek or jack-swap window for the
// acting player and arms the window timer.
func (r *Round) openPowerWindowLocked(player *models.Player, card models.Card, power models.Power) {
	phase := models.PhaseQueenPeekWindow
	status := models.StatusQueenPeek
	if power == models.PowerJack {
		phase = models.PhaseSpecialPlayWindow
		status = models.StatusJackSwap
	}
	r.pipeline.Process(Update{
		FieldPhase:    phase,
		FieldSpecial:  &SpecialCardData{Power: power, PlayerID: player.ID, CardID: card.ID},
		FieldStatuses: map[uuid.UUID]models.PlayerStatus{player.ID: status},
		FieldTurnEvents: []TurnEvent{
			{Type: "power_window_opened", PlayerID: player.ID, CardID: card.ID, Extra: string(power)},
		},
	})
	r.timers.Start(TimerPeek, r.PowerWindowDur, func() {
		r.handlePowerTimeout(player.ID)
	})
}

// openSameRankWindowLocked opens the out-of-turn claim window on the
// just-played rank.
func (r *Round) openSameRankWindowLocked(player *models.Player, card models.Card) {
	r.pipeline.Process(Update{
		FieldPhase: models.PhaseSameRankWindow,
		FieldSameRank: &SameRankWindowData{
			Open:     true,
			Rank:     card.Rank,
			OpenedBy: player.ID,
			OpenedAt: time.Now(),
		},
	})
	r.timers.Start(TimerSameRank, r.SameRankDur, func() {
		r.moveToNextPlayerLocked()
	})
}

// HandlePlayOutOfTurn processes a same-rank claim from any player. The
// first valid claim wins the window; later or mismatched claims are
// rejected with no state change.
func (r *Round) HandlePlayOutOfTurn(playerID, cardID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.gameOver || r.state.Phase != models.PhaseSameRankWindow {
		return r.reject(playerID, actionErr(ErrWindowClosed, "no same-rank window open", nil))
	}
	claim, aerr := r.powers.ClaimSameRank(r.state, playerID, cardID)
	if aerr != nil {
		return r.reject(playerID, aerr)
	}

	r.timers.Cancel(TimerSameRank)
	window := *r.state.SameRank
	window.Open = false
	window.ClaimedBy = playerID

	r.pipeline.Process(Update{
		FieldPhase:       models.PhaseTurnPendingEvents,
		FieldHands:       claim.Hand,
		FieldDiscardPush: claim.Card,
		FieldSameRank:    &window,
		FieldTurnEvents:  []TurnEvent{{Type: "card_played_out_of_turn", PlayerID: playerID, CardID: cardID}},
	})
	r.missed[playerID] = 0
	r.record(playerID, "play_out_of_turn", map[string]any{"cardId": cardID})

	if r.checkImmediateWinLocked(r.state.PlayerByID(playerID)) {
		return nil
	}
	r.moveToNextPlayerLocked()
	return nil
}

// HandleCallFinalRound lets the current player declare the final round.
// Valid once per game, for the current player, at the start of their
// turn. The declaration consumes the caller's turn; the round ends when
// every other player has had one more turn.
func (r *Round) HandleCallFinalRound(playerID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.gameOver || r.state.Phase != models.PhasePlayerTurn {
		return r.reject(playerID, actionErr(ErrWrongPhase, "no turn in progress", nil))
	}
	if playerID != r.state.CurrentID {
		return r.reject(playerID, actionErr(ErrWrongTurn, "only the current player may call", nil))
	}
	player := r.state.PlayerByID(playerID)
	if player.Status != models.StatusDrawingCard {
		return r.reject(playerID, actionErr(ErrWrongStatus, "call before drawing", nil))
	}
	if r.state.FinalRoundCallerID != uuid.Nil || player.HasCalledFinalRound {
		return r.reject(playerID, actionErr(ErrAlreadyCalled, "final round already called", nil))
	}

	r.pipeline.Process(Update{
		FieldFinalCaller: playerID,
		FieldTurnEvents:  []TurnEvent{{Type: "final_round_called", PlayerID: playerID}},
	})
	r.missed[playerID] = 0
	r.record(playerID, "call_final_round", nil)
	r.log.WithField("player", playerID).Info("final round called")

	r.moveToNextPlayerLocked()
	return nil
}

// QueenPeekSelect resolves the queen power: the acting player picks any
// one face-down card and it is revealed to them privately, never
// broadcast.
func (r *Round) QueenPeekSelect(playerID uuid.UUID, ref CardRef) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.queenPeekLocked(playerID, ref)
}

func (r *Round) queenPeekLocked(playerID uuid.UUID, ref CardRef) error {
	if r.gameOver || r.state.Phase != models.PhaseQueenPeekWindow {
		return r.reject(playerID, actionErr(ErrWrongPhase, "no queen peek window open", nil))
	}
	card, aerr := r.powers.QueenPeek(r.state, playerID, ref)
	if aerr != nil {
		return r.reject(playerID, aerr)
	}

	r.timers.Cancel(TimerPeek)
	r.pipeline.ProcessToPlayer(playerID, Update{
		FieldRevealed: card,
		FieldKnownAdd: map[uuid.UUID][]uuid.UUID{playerID: {card.ID}},
	})
	r.pipeline.Process(Update{
		FieldSpecial: nil,
		FieldTurnEvents: []TurnEvent{
			{Type: "queen_peek_used", PlayerID: playerID, TargetID: ref.PlayerID},
		},
	})
	r.missed[playerID] = 0
	r.record(playerID, "queen_peek_select", map[string]any{"target": ref.PlayerID, "idx": ref.HandIndex})

	r.moveToNextPlayerLocked()
	return nil
}

// JackSwapSelect resolves the jack power: the acting player picks two
// card positions across any hands and they are swapped in place.
func (r *Round) JackSwapSelect(playerID uuid.UUID, refA, refB CardRef) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.jackSwapLocked(playerID, refA, refB)
}

func (r *Round) jackSwapLocked(playerID uuid.UUID, refA, refB CardRef) error {
	if r.gameOver || r.state.Phase != models.PhaseSpecialPlayWindow {
		return r.reject(playerID, actionErr(ErrWrongPhase, "no jack swap window open", nil))
	}
	res, aerr := r.powers.JackSwap(r.state, playerID, refA, refB, r.cfg.Rules.ClearAndCollect)
	if aerr != nil {
		return r.reject(playerID, aerr)
	}

	r.timers.Cancel(TimerPeek)
	delta := Update{
		FieldHands:   res.Hands,
		FieldSpecial: nil,
		FieldTurnEvents: []TurnEvent{
			{Type: "cards_swapped", PlayerID: refA.PlayerID, TargetID: refB.PlayerID},
		},
	}
	if len(res.CollectionCleared) > 0 {
		delta[FieldCollectionCleared] = res.CollectionCleared
	}
	r.pipeline.Process(delta)
	r.missed[playerID] = 0
	r.record(playerID, "jack_swap_select", map[string]any{
		"a": refA.PlayerID, "aIdx": refA.HandIndex, "b": refB.PlayerID, "bIdx": refB.HandIndex,
	})

	// a swap can complete someone's collection
	if r.cfg.Rules.ClearAndCollect {
		if winner := r.wins.CollectionWinner(r.state); winner != uuid.Nil {
			r.endRoundWithCollectionWinnerLocked(winner)
			return nil
		}
	}
	r.moveToNextPlayerLocked()
	return nil
}

// ---------------------------------------------------------------------------
// Timer fallbacks: the designed recovery path, not errors
// ---------------------------------------------------------------------------

func (r *Round) handleDrawTimeout(playerID uuid.UUID) {
	if r.gameOver || r.state.CurrentID != playerID {
		return
	}
	r.log.WithField("player", playerID).Info("draw timer expired, auto-drawing")
	r.noteMissedAction(playerID)
	_ = r.handleDrawLocked(playerID, DrawFromDeck)
}

func (r *Round) handlePlayTimeout(playerID uuid.UUID) {
	if r.gameOver || r.state.CurrentID != playerID {
		return
	}
	r.log.WithField("player", playerID).Info("play timer expired, auto-playing")
	r.noteMissedAction(playerID)
	_ = r.handlePlayLocked(playerID, r.lowestValuePlayable(playerID))
}

func (r *Round) handlePowerTimeout(playerID uuid.UUID) {
	if r.gameOver || r.state.Special == nil || r.state.Special.PlayerID != playerID {
		return
	}
	r.log.WithField("player", playerID).Info("power window expired unresolved")
	r.noteMissedAction(playerID)
	r.pipeline.Process(Update{
		FieldSpecial:    nil,
		FieldTurnEvents: []TurnEvent{{Type: "power_window_expired", PlayerID: playerID}},
	})
	r.moveToNextPlayerLocked()
}

// lowestValuePlayable picks the lowest-point card among the drawn card
// and the hand, the default play when the play timer expires.
func (r *Round) lowestValuePlayable(playerID uuid.UUID) uuid.UUID {
	player := r.state.PlayerByID(playerID)
	best := r.drawnCardID
	bestVal := -1
	if c, ok := r.state.CardByID(r.drawnCardID); ok {
		bestVal = c.Value()
	}
	for _, id := range player.Hand {
		c, ok := r.state.CardByID(id)
		if !ok {
			continue
		}
		if bestVal < 0 || c.Value() < bestVal {
			best, bestVal = id, c.Value()
		}
	}
	return best
}

// noteMissedAction counts consecutive timer fallbacks per player; at the
// configured limit the room layer is signalled to remove the player.
func (r *Round) noteMissedAction(playerID uuid.UUID) {
	r.missed[playerID]++
	if r.missed[playerID] < r.cfg.Rules.MissedActionLimit {
		return
	}
	r.log.WithField("player", playerID).Warn("player unresponsive, signalling auto-leave")
	r.sink.TriggerLeaveRoom(r.state.RoomID, playerID)
}

// ---------------------------------------------------------------------------
// Disconnect / reconnect
// ---------------------------------------------------------------------------

// HandleDisconnect marks a player disconnected. If it was their turn the
// turn advances; if fewer than two active players remain the round ends.
func (r *Round) HandleDisconnect(playerID uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	player := r.state.PlayerByID(playerID)
	if player == nil || player.Status == models.StatusDisconnected {
		return
	}
	r.pipeline.Process(Update{
		FieldStatuses:   map[uuid.UUID]models.PlayerStatus{playerID: models.StatusDisconnected},
		FieldTurnEvents: []TurnEvent{{Type: "player_disconnected", PlayerID: playerID}},
	})
	r.record(playerID, "player_disconnect", nil)

	if r.gameOver || !r.roundStarted {
		return
	}
	active := 0
	for _, p := range r.state.Players {
		if p.Status != models.StatusDisconnected && p.Status != models.StatusFinished {
			active++
		}
	}
	if active <= 1 {
		r.endRoundLocked()
		return
	}
	if r.state.CurrentID == playerID {
		r.moveToNextPlayerLocked()
	}
}

// HandleReconnect restores a disconnected player and resyncs them with a
// private full-state view.
func (r *Round) HandleReconnect(playerID uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	player := r.state.PlayerByID(playerID)
	if player == nil {
		return
	}
	if player.Status == models.StatusDisconnected {
		r.pipeline.Process(Update{
			FieldStatuses:   map[uuid.UUID]models.PlayerStatus{playerID: models.StatusWaiting},
			FieldTurnEvents: []TurnEvent{{Type: "player_reconnected", PlayerID: playerID}},
		})
	}
	r.missed[playerID] = 0
	r.sink.SendToPlayer(r.state.RoomID, playerID, Update{
		"sync_state": BuildRoomView(r.state, playerID),
		"timestamp":  time.Now().UnixMilli(),
	})
	r.record(playerID, "player_reconnect", nil)
}

// ---------------------------------------------------------------------------
// Round end
// ---------------------------------------------------------------------------

// checkImmediateWinLocked ends the round if the player just emptied their
// hand or completed their collection. Returns true if the round ended.
func (r *Round) checkImmediateWinLocked(player *models.Player) bool {
	if len(player.Hand) == 0 {
		r.endRoundLocked()
		return true
	}
	if r.cfg.Rules.ClearAndCollect {
		if winner := r.wins.CollectionWinner(r.state); winner != uuid.Nil {
			r.endRoundWithCollectionWinnerLocked(winner)
			return true
		}
	}
	return false
}

func (r *Round) endRoundWithCollectionWinnerLocked(winner uuid.UUID) {
	r.endRoundWithWinnersLocked([]uuid.UUID{winner})
}

func (r *Round) endRoundLocked() {
	scores := r.wins.Scores(r.state)
	winners := r.wins.Resolve(r.state, scores)
	r.endRoundScoredLocked(winners, scores)
}

func (r *Round) endRoundWithWinnersLocked(winners []uuid.UUID) {
	r.endRoundScoredLocked(winners, r.wins.Scores(r.state))
}

func (r *Round) endRoundScoredLocked(winners []uuid.UUID, scores map[uuid.UUID]int) {
	if r.gameOver {
		return
	}
	r.gameOver = true
	r.timers.CancelAll()

	// the closing turn settles before scoring begins
	r.pipeline.Process(Update{
		FieldPhase:    models.PhaseEndingTurn,
		FieldSameRank: nil,
		FieldSpecial:  nil,
	})
	r.pipeline.Process(Update{
		FieldPhase:  models.PhaseEndingRound,
		FieldScores: scores,
	})

	statuses := make(map[uuid.UUID]models.PlayerStatus, len(r.state.Players))
	for _, p := range r.state.Players {
		if p.Status == models.StatusDisconnected {
			continue
		}
		statuses[p.ID] = models.StatusFinished
	}
	for _, w := range winners {
		statuses[w] = models.StatusWinner
	}
	r.pipeline.Process(Update{
		FieldPhase:      models.PhaseGameEnded,
		FieldCurrent:    uuid.Nil,
		FieldWinners:    winners,
		FieldStatuses:   statuses,
		FieldTurnEvents: []TurnEvent{{Type: "game_ended"}},
	})

	r.log.WithFields(logrus.Fields{"winners": winners, "scores": scores}).Info("round ended")
	r.record(uuid.Nil, "game_ended", map[string]any{"winners": winners})

	// downstream stats/persistence; failures there never touch the game
	r.sink.OnGameEnded(r.state.RoomID, winners, r.state.Players, 0)
}

// Reset prepares the room for a new round: fresh piles and hands, same
// players, cumulative scores kept. The final-round flag is per game and
// survives only on players who already used it.
func (r *Round) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.timers.CancelAll()
	r.roundStarted = false
	r.gameOver = false
	r.drawnCardID = uuid.Nil
	r.missed = make(map[uuid.UUID]int)

	s := r.state
	s.Phase = models.PhaseWaitingForPlayers
	s.CurrentID = uuid.Nil
	s.CurrentIdx = 0
	s.DrawPile = nil
	s.DiscardPile = nil
	s.Deck = make(map[uuid.UUID]models.Card)
	s.SameRank = nil
	s.Special = nil
	s.TurnEvents = nil
	s.Winners = nil
	s.FinalRoundCallerID = uuid.Nil
	for _, p := range s.Players {
		p.Hand = []uuid.UUID{}
		p.Known = make(models.KnownCards)
		if p.Status != models.StatusDisconnected {
			p.Status = models.StatusWaiting
		}
		p.CollectionRank = ""
	}
}
