package game

import (
	"testing"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sil-vella/recall-sub014/internal/models"
)

func newTestPipeline(t *testing.T, players ...*models.Player) (*Pipeline, *GameState, *mockSink) {
	t.Helper()
	s := NewGameState(uuid.New())
	for _, p := range players {
		s.AddPlayer(p)
	}
	sink := newMockSink()
	return NewPipeline(s, sink, logrus.WithField("test", true)), s, sink
}

func TestValidateUpdateRejectsUnknownField(t *testing.T) {
	err := ValidateUpdate(Update{"no_such_field": 1})
	require.Error(t, err)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "no_such_field", verr.Field)
}

func TestValidateUpdateRejectsWrongType(t *testing.T) {
	err := ValidateUpdate(Update{FieldCurrent: "not-a-uuid"})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, FieldCurrent, verr.Field)
}

func TestValidateUpdateRejectsDisallowedValues(t *testing.T) {
	err := ValidateUpdate(Update{FieldPhase: models.Phase("limbo")})
	require.Error(t, err)

	err = ValidateUpdate(Update{FieldStatuses: map[uuid.UUID]models.PlayerStatus{
		uuid.New(): "afk",
	}})
	require.Error(t, err)
}

func TestValidateUpdateRejectsOutOfRange(t *testing.T) {
	err := ValidateUpdate(Update{FieldTurnCount: -1})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, FieldTurnCount, verr.Field)
}

func TestValidateUpdateAcceptsLegacyPhaseAliases(t *testing.T) {
	require.NoError(t, ValidateUpdate(Update{FieldPhase: models.Phase("waiting")}))
	require.NoError(t, ValidateUpdate(Update{FieldPhase: models.Phase("playing")}))
	require.NoError(t, ValidateUpdate(Update{FieldPhase: models.Phase("finished")}))
}

func TestPipelineDropsBadDeltaKeepsDraining(t *testing.T) {
	p1 := models.NewPlayer(uuid.New(), "A", false)
	pipe, s, sink := newTestPipeline(t, p1)

	pipe.Process(Update{"bogus": true})
	pipe.Process(Update{FieldPhase: models.PhasePlayerTurn, FieldCurrent: p1.ID})

	assert.Equal(t, 1, sink.broadcastCount(), "the bad delta is dropped, the good one delivered")
	assert.Equal(t, models.PhasePlayerTurn, s.Phase)
	assert.Equal(t, p1.ID, s.CurrentID)
}

func TestPipelineAppliesLegacyPhaseAsCanonical(t *testing.T) {
	pipe, s, sink := newTestPipeline(t)

	pipe.Process(Update{FieldPhase: models.Phase("playing")})

	assert.Equal(t, models.PhasePlayerTurn, s.Phase, "aliases normalize on apply")
	assert.Equal(t, models.Phase("playing"), sink.lastBroadcast()[FieldPhase],
		"the delta itself is broadcast unmodified")
}

func TestPipelineStripsStructuralFieldsFromBroadcast(t *testing.T) {
	p1 := models.NewPlayer(uuid.New(), "A", false)
	pipe, s, sink := newTestPipeline(t, p1)

	c := testCard(models.RankFive, models.SuitHearts)
	s.Deck[c.ID] = c
	pipe.Process(Update{
		FieldHands:       map[uuid.UUID][]uuid.UUID{p1.ID: {c.ID}},
		FieldDiscardPush: testCard(models.RankThree, models.SuitClubs),
	})

	b := sink.lastBroadcast()
	_, hasHands := b[FieldHands]
	_, hasPush := b[FieldDiscardPush]
	assert.False(t, hasHands, "raw hands never leave the pipeline")
	assert.False(t, hasPush)
	assert.Equal(t, map[uuid.UUID]int{p1.ID: 1}, b["hand_counts"])
	assert.Equal(t, 1, b["discard_pile_size"])
	assert.NotNil(t, b["discard_top"])

	// the state did change
	require.Len(t, p1.Hand, 1)
	assert.Equal(t, c.ID, p1.Hand[0])
}

func TestPipelineRevealedCardOnlyInPrivateDelivery(t *testing.T) {
	p1 := models.NewPlayer(uuid.New(), "A", false)
	pipe, _, sink := newTestPipeline(t, p1)

	c := testCard(models.RankNine, models.SuitDiamonds)
	pipe.ProcessToPlayer(p1.ID, Update{FieldRevealed: c})
	priv := sink.lastPlayerUpdate(p1.ID)
	assert.Equal(t, c, priv[FieldRevealed])

	pipe.Process(Update{FieldRevealed: c})
	_, leaked := sink.lastBroadcast()[FieldRevealed]
	assert.False(t, leaked, "revealed_card is stripped from room-wide payloads")
}

func TestPipelineReentrantSubmitPreservesFIFO(t *testing.T) {
	pipe, s, sink := newTestPipeline(t)

	// a sink callback that enqueues from inside the drain loop
	reentered := false
	sink2 := &reentrantSink{mockSink: sink, onFirst: func() {
		if !reentered {
			reentered = true
			pipe.Process(Update{FieldTurnCount: 2})
		}
	}}
	pipe.sink = sink2

	pipe.Process(Update{FieldTurnCount: 1})

	assert.Equal(t, 2, s.TurnCount, "the reentrant delta runs after the current one completes")
	assert.Equal(t, 2, sink.broadcastCount())
}

type reentrantSink struct {
	*mockSink
	onFirst func()
}

func (r *reentrantSink) OnStateChanged(roomID uuid.UUID, update Update) {
	r.mockSink.OnStateChanged(roomID, update)
	r.onFirst()
}

func TestPipelineFinalCallerSetsPlayerFlag(t *testing.T) {
	p1 := models.NewPlayer(uuid.New(), "A", false)
	pipe, s, _ := newTestPipeline(t, p1)

	pipe.Process(Update{FieldFinalCaller: p1.ID})

	assert.Equal(t, p1.ID, s.FinalRoundCallerID)
	assert.True(t, p1.HasCalledFinalRound)
}

func TestPipelineEmitsDiscardEventOnPileChange(t *testing.T) {
	p1 := models.NewPlayer(uuid.New(), "A", false)
	pipe, _, sink := newTestPipeline(t, p1)

	c := testCard(models.RankFive, models.SuitHearts)
	pipe.Process(Update{FieldDiscardPush: c})

	require.Equal(t, 1, sink.discardUpdateCount())
	ev := sink.lastDiscardUpdate()
	assert.Equal(t, c, ev[payloadDiscardTop])
	assert.Equal(t, 1, ev[payloadDiscardSize])

	pipe.Process(Update{FieldDiscardPile: []models.Card{c}})
	assert.Equal(t, 2, sink.discardUpdateCount(), "pile replacement is a discard change too")

	pipe.Process(Update{FieldTurnCount: 1})
	assert.Equal(t, 2, sink.discardUpdateCount(), "non-discard deltas stay on the state event")

	pipe.ProcessToPlayer(p1.ID, Update{FieldRevealed: c})
	assert.Equal(t, 2, sink.discardUpdateCount(), "private deliveries never change the pile")
}

func TestPipelineScoresAccumulate(t *testing.T) {
	p1 := models.NewPlayer(uuid.New(), "A", false)
	pipe, _, _ := newTestPipeline(t, p1)

	pipe.Process(Update{FieldScores: map[uuid.UUID]int{p1.ID: 7}})
	pipe.Process(Update{FieldScores: map[uuid.UUID]int{p1.ID: 5}})

	assert.Equal(t, 12, p1.Score, "round scores add onto the cumulative total")
}
