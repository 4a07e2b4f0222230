package game

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/sil-vella/recall-sub014/internal/models"
)

// Schema field names. Structural fields mutate piles and hands and are
// stripped from room-wide payloads; public fields are broadcast as-is.
const (
	// Structural (applied, never broadcast raw).
	FieldHands       = "hands"         // map[uuid.UUID][]uuid.UUID
	FieldDrawPile    = "draw_pile"     // []uuid.UUID, full replacement
	FieldDiscardPush = "discard_push"  // models.Card appended to discard
	FieldDiscardPile = "discard_pile"  // []models.Card, full replacement
	FieldKnownAdd    = "known_add"     // map[uuid.UUID][]uuid.UUID
	FieldRevealed    = "revealed_card" // models.Card, private deliveries only

	// Public.
	FieldPhase             = "phase"                 // models.Phase
	FieldCurrent           = "current_player_id"     // uuid.UUID
	FieldStatuses          = "player_statuses"       // map[uuid.UUID]models.PlayerStatus
	FieldTurnCount         = "turn_count"            // int
	FieldRoundCount        = "round_count"           // int
	FieldTurnEvents        = "turn_events"           // []TurnEvent
	FieldWinners           = "winners"               // []uuid.UUID
	FieldFinalCaller       = "final_round_caller_id" // uuid.UUID
	FieldSameRank          = "same_rank_window"      // *SameRankWindowData (nil closes)
	FieldSpecial           = "special_window"        // *SpecialCardData (nil closes)
	FieldScores            = "scores"                // map[uuid.UUID]int
	FieldPot               = "pot"                   // int
	FieldCollectionCleared = "collection_cleared"    // []uuid.UUID, clears collection eligibility
)

// Derived fields attached to outgoing payloads.
const (
	payloadDrawPileSize = "draw_pile_size"
	payloadDiscardSize  = "discard_pile_size"
	payloadDiscardTop   = "discard_top"
	payloadHandCounts   = "hand_counts"
	payloadTimestamp    = "timestamp"
)

// fieldKind is the value type a schema field accepts.
type fieldKind uint8

const (
	kindPhase fieldKind = iota
	kindUUID
	kindInt
	kindCard
	kindStatusMap
	kindHandsMap
	kindUUIDList
	kindEventList
	kindSameRank
	kindSpecial
	kindScoreMap
	kindCardList
)

// fieldSpec describes one recognized field: its type, whether it must be
// present, an optional numeric range, and the default used when building
// payloads. Deltas are partial by design, so no production field is
// required; the flag exists for schema completeness and tests.
type fieldSpec struct {
	Kind     fieldKind
	Required bool
	Min, Max int
	HasRange bool
	Default  any
}

// updateSchema is the fixed schema for state deltas. Unknown fields are
// rejected outright, never dropped.
var updateSchema = map[string]fieldSpec{
	FieldHands:             {Kind: kindHandsMap},
	FieldDrawPile:          {Kind: kindUUIDList},
	FieldDiscardPush:       {Kind: kindCard},
	FieldDiscardPile:       {Kind: kindCardList},
	FieldKnownAdd:          {Kind: kindHandsMap},
	FieldRevealed:          {Kind: kindCard},
	FieldPhase:             {Kind: kindPhase},
	FieldCurrent:           {Kind: kindUUID},
	FieldStatuses:          {Kind: kindStatusMap},
	FieldTurnCount:         {Kind: kindInt, Min: 0, Max: 1 << 20, HasRange: true, Default: 0},
	FieldRoundCount:        {Kind: kindInt, Min: 0, Max: 1 << 20, HasRange: true, Default: 0},
	FieldTurnEvents:        {Kind: kindEventList},
	FieldWinners:           {Kind: kindUUIDList},
	FieldFinalCaller:       {Kind: kindUUID},
	FieldSameRank:          {Kind: kindSameRank},
	FieldSpecial:           {Kind: kindSpecial},
	FieldScores:            {Kind: kindScoreMap},
	FieldPot:               {Kind: kindInt, Min: 0, Max: 1 << 30, HasRange: true, Default: 0},
	FieldCollectionCleared: {Kind: kindUUIDList},
}

// deliveryScope selects how a validated delta leaves the pipeline.
type deliveryScope uint8

const (
	scopeBroadcast deliveryScope = iota
	scopePlayer
	scopeExcept
)

type queuedUpdate struct {
	delta  Update
	scope  deliveryScope
	target uuid.UUID // player for scopePlayer, excluded for scopeExcept
}

// Pipeline is the single mutation path for a room's GameState: a fixed
// schema validator in front of a FIFO queue with single-consumer drain
// semantics. One update is validated, applied, and delivered end-to-end
// before the next starts, so no observer ever sees a partially-applied
// multi-field update. A failed validation drops only its own delta.
type Pipeline struct {
	mu       sync.Mutex
	queue    []queuedUpdate
	draining bool

	state *GameState
	sink  StateSink
	log   *logrus.Entry
}

// NewPipeline builds the update pipeline for one room.
func NewPipeline(state *GameState, sink StateSink, log *logrus.Entry) *Pipeline {
	return &Pipeline{state: state, sink: sink, log: log}
}

// Process validates and applies a delta, then broadcasts it room-wide.
func (p *Pipeline) Process(delta Update) { p.submit(queuedUpdate{delta: delta, scope: scopeBroadcast}) }

// ProcessToPlayer validates and applies a delta, then delivers it to one
// player only.
func (p *Pipeline) ProcessToPlayer(playerID uuid.UUID, delta Update) {
	p.submit(queuedUpdate{delta: delta, scope: scopePlayer, target: playerID})
}

// ProcessExcept validates and applies a delta, then delivers it to all
// players but one.
func (p *Pipeline) ProcessExcept(excludedID uuid.UUID, delta Update) {
	p.submit(queuedUpdate{delta: delta, scope: scopeExcept, target: excludedID})
}

// submit appends to the queue and, unless another drain is in flight,
// drains it. Reentrant submissions from sink callbacks or apply hooks
// land on the queue and are handled by the running drain loop in order.
func (p *Pipeline) submit(q queuedUpdate) {
	p.mu.Lock()
	p.queue = append(p.queue, q)
	if p.draining {
		p.mu.Unlock()
		return
	}
	p.draining = true
	for len(p.queue) > 0 {
		item := p.queue[0]
		p.queue = p.queue[1:]
		p.mu.Unlock()
		p.processOne(item)
		p.mu.Lock()
	}
	p.draining = false
	p.mu.Unlock()
}

func (p *Pipeline) processOne(q queuedUpdate) {
	if err := ValidateUpdate(q.delta); err != nil {
		p.log.WithError(err).Warn("state update rejected")
		return
	}
	p.apply(q.delta)
	payload := p.buildPayload(q.delta, q.scope)

	switch q.scope {
	case scopeBroadcast:
		p.sink.OnStateChanged(p.state.RoomID, payload)
		// turn events are consumed by exactly one broadcast cycle
		p.state.TurnEvents = nil
	case scopePlayer:
		p.sink.SendToPlayer(p.state.RoomID, q.target, payload)
	case scopeExcept:
		p.sink.BroadcastExcept(p.state.RoomID, q.target, payload)
		p.state.TurnEvents = nil
	}

	if q.scope != scopePlayer {
		p.notifyDiscardChange(q.delta)
	}
}

// notifyDiscardChange emits the dedicated discard event for deltas that
// touched the pile, carrying only the public projection.
func (p *Pipeline) notifyDiscardChange(delta Update) {
	_, pushed := delta[FieldDiscardPush]
	_, replaced := delta[FieldDiscardPile]
	if !pushed && !replaced {
		return
	}
	out := Update{
		payloadDiscardSize: len(p.state.DiscardPile),
		payloadTimestamp:   time.Now().UnixMilli(),
	}
	if top, ok := p.state.DiscardTop(); ok {
		out[payloadDiscardTop] = top
	}
	p.sink.OnDiscardUpdated(p.state.RoomID, out)
}

// ValidateUpdate checks a delta against the fixed schema. Any unknown
// field, wrong type, disallowed value, or out-of-range number rejects the
// whole delta with a ValidationError naming the field.
func ValidateUpdate(delta Update) error {
	for name, spec := range updateSchema {
		if spec.Required {
			if _, ok := delta[name]; !ok {
				return &ValidationError{Field: name, Reason: "required field missing"}
			}
		}
	}
	for name, value := range delta {
		spec, known := updateSchema[name]
		if !known {
			return &ValidationError{Field: name, Reason: "unknown field"}
		}
		if err := validateField(name, spec, value); err != nil {
			return err
		}
	}
	return nil
}

func validateField(name string, spec fieldSpec, value any) error {
	wrongType := func(want string) error {
		return &ValidationError{Field: name, Reason: fmt.Sprintf("expected %s, got %T", want, value)}
	}
	switch spec.Kind {
	case kindCardList:
		if _, ok := value.([]models.Card); !ok {
			return wrongType("[]models.Card")
		}
	case kindPhase:
		var raw string
		switch v := value.(type) {
		case models.Phase:
			raw = string(v)
		case string:
			raw = v
		default:
			return wrongType("models.Phase")
		}
		if _, valid := models.NormalizePhase(raw); !valid {
			return &ValidationError{Field: name, Reason: fmt.Sprintf("disallowed phase %q", raw)}
		}
	case kindUUID:
		if _, ok := value.(uuid.UUID); !ok {
			return wrongType("uuid.UUID")
		}
	case kindInt:
		n, ok := value.(int)
		if !ok {
			return wrongType("int")
		}
		if spec.HasRange && (n < spec.Min || n > spec.Max) {
			return &ValidationError{Field: name, Reason: fmt.Sprintf("value %d outside [%d,%d]", n, spec.Min, spec.Max)}
		}
	case kindCard:
		if _, ok := value.(models.Card); !ok {
			return wrongType("models.Card")
		}
	case kindStatusMap:
		m, ok := value.(map[uuid.UUID]models.PlayerStatus)
		if !ok {
			return wrongType("map[uuid.UUID]models.PlayerStatus")
		}
		for _, st := range m {
			if !models.ValidPlayerStatus(string(st)) {
				return &ValidationError{Field: name, Reason: fmt.Sprintf("disallowed status %q", st)}
			}
		}
	case kindHandsMap:
		if _, ok := value.(map[uuid.UUID][]uuid.UUID); !ok {
			return wrongType("map[uuid.UUID][]uuid.UUID")
		}
	case kindUUIDList:
		if _, ok := value.([]uuid.UUID); !ok {
			return wrongType("[]uuid.UUID")
		}
	case kindEventList:
		if _, ok := value.([]TurnEvent); !ok {
			return wrongType("[]TurnEvent")
		}
	case kindSameRank:
		if value != nil {
			if _, ok := value.(*SameRankWindowData); !ok {
				return wrongType("*SameRankWindowData")
			}
		}
	case kindSpecial:
		if value != nil {
			if _, ok := value.(*SpecialCardData); !ok {
				return wrongType("*SpecialCardData")
			}
		}
	case kindScoreMap:
		m, ok := value.(map[uuid.UUID]int)
		if !ok {
			return wrongType("map[uuid.UUID]int")
		}
		for id, sc := range m {
			if sc < 0 {
				return &ValidationError{Field: name, Reason: fmt.Sprintf("negative score %d for %s", sc, id)}
			}
		}
	}
	return nil
}

// applyOrder fixes the order fields are written in, so deltas carrying
// both a pile replacement and a push resolve the same way every time.
var applyOrder = []string{
	FieldPhase, FieldCurrent, FieldStatuses,
	FieldHands, FieldDrawPile, FieldDiscardPile, FieldDiscardPush,
	FieldKnownAdd, FieldTurnCount, FieldRoundCount,
	FieldSameRank, FieldSpecial, FieldFinalCaller,
	FieldScores, FieldCollectionCleared, FieldWinners,
	FieldTurnEvents, FieldPot, FieldRevealed,
}

// apply writes a validated delta onto the GameState. Called only from the
// drain loop, one delta at a time.
func (p *Pipeline) apply(delta Update) {
	s := p.state
	for _, name := range applyOrder {
		value, present := delta[name]
		if !present {
			continue
		}
		switch name {
		case FieldHands:
			for pid, hand := range value.(map[uuid.UUID][]uuid.UUID) {
				if pl := s.PlayerByID(pid); pl != nil {
					pl.Hand = hand
				}
			}
		case FieldDrawPile:
			s.DrawPile = value.([]uuid.UUID)
		case FieldDiscardPush:
			s.DiscardPile = append(s.DiscardPile, value.(models.Card))
		case FieldDiscardPile:
			s.DiscardPile = value.([]models.Card)
		case FieldKnownAdd:
			for pid, ids := range value.(map[uuid.UUID][]uuid.UUID) {
				if pl := s.PlayerByID(pid); pl != nil {
					for _, id := range ids {
						pl.Known.Add(id)
					}
				}
			}
		case FieldPhase:
			switch v := value.(type) {
			case models.Phase:
				norm, _ := models.NormalizePhase(string(v))
				s.Phase = norm
			case string:
				norm, _ := models.NormalizePhase(v)
				s.Phase = norm
			}
		case FieldCurrent:
			s.CurrentID = value.(uuid.UUID)
			for i, pl := range s.Players {
				if pl.ID == s.CurrentID {
					s.CurrentIdx = i
				}
			}
		case FieldStatuses:
			for pid, st := range value.(map[uuid.UUID]models.PlayerStatus) {
				if pl := s.PlayerByID(pid); pl != nil {
					pl.Status = st
				}
			}
		case FieldTurnCount:
			s.TurnCount = value.(int)
		case FieldRoundCount:
			s.RoundCount = value.(int)
		case FieldTurnEvents:
			s.TurnEvents = append(s.TurnEvents, value.([]TurnEvent)...)
		case FieldWinners:
			s.Winners = value.([]uuid.UUID)
		case FieldFinalCaller:
			s.FinalRoundCallerID = value.(uuid.UUID)
			if pl := s.PlayerByID(s.FinalRoundCallerID); pl != nil {
				pl.HasCalledFinalRound = true
			}
		case FieldSameRank:
			if value == nil {
				s.SameRank = nil
			} else {
				s.SameRank = value.(*SameRankWindowData)
			}
		case FieldSpecial:
			if value == nil {
				s.Special = nil
			} else {
				s.Special = value.(*SpecialCardData)
			}
		case FieldScores:
			// round scores add onto the player's cumulative total
			for pid, sc := range value.(map[uuid.UUID]int) {
				if pl := s.PlayerByID(pid); pl != nil {
					pl.Score += sc
				}
			}
		case FieldCollectionCleared:
			for _, pid := range value.([]uuid.UUID) {
				if pl := s.PlayerByID(pid); pl != nil {
					pl.CollectionRank = ""
				}
			}
		}
	}
}

// buildPayload derives the outgoing payload from a validated delta:
// structural fields are replaced with their public projections (sizes,
// hand counts, discard top); the revealed card survives only in private
// deliveries.
func (p *Pipeline) buildPayload(delta Update, scope deliveryScope) Update {
	s := p.state
	out := make(Update, len(delta)+5)
	for name, value := range delta {
		switch name {
		case FieldHands, FieldDrawPile, FieldDiscardPile, FieldDiscardPush, FieldKnownAdd:
			// structural; projected below
		case FieldRevealed:
			if scope == scopePlayer {
				out[name] = value
			}
		default:
			out[name] = value
		}
	}
	out[payloadDrawPileSize] = len(s.DrawPile)
	out[payloadDiscardSize] = len(s.DiscardPile)
	if top, ok := s.DiscardTop(); ok {
		out[payloadDiscardTop] = top
	}
	counts := make(map[uuid.UUID]int, len(s.Players))
	for _, pl := range s.Players {
		counts[pl.ID] = len(pl.Hand)
	}
	out[payloadHandCounts] = counts
	if len(s.TurnEvents) > 0 {
		out[FieldTurnEvents] = append([]TurnEvent(nil), s.TurnEvents...)
	}
	out[payloadTimestamp] = time.Now().UnixMilli()
	return out
}
