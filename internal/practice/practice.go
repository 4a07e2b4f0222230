// Package practice runs a single-human game fully in-process: the same
// round logic as the multiplayer server, with a LocalSink in place of the
// network and computer opponents filling the table.
package practice

import (
	"github.com/google/uuid"

	"github.com/sil-vella/recall-sub014/internal/config"
	"github.com/sil-vella/recall-sub014/internal/game"
	"github.com/sil-vella/recall-sub014/internal/models"
)

// Session is one practice game: a human, some bots, and a local round.
type Session struct {
	HumanID uuid.UUID
	Round   *game.Round
}

// New creates a practice session with bots computer opponents. The
// listener receives every state change on the calling goroutine.
func New(cfg config.Config, humanName string, bots int, listener game.LocalListener, opts ...game.RoundOption) (*Session, error) {
	humanID := uuid.New()
	round := game.NewRound(
		game.NewGameState(uuid.New()),
		&game.LocalSink{Listener: listener},
		cfg,
		opts...,
	)
	if err := round.AddPlayer(models.NewPlayer(humanID, humanName, false)); err != nil {
		return nil, err
	}
	for i := 0; i < bots; i++ {
		if err := round.AddPlayer(models.NewPlayer(uuid.New(), botName(i), true)); err != nil {
			return nil, err
		}
	}
	return &Session{HumanID: humanID, Round: round}, nil
}

func botName(i int) string {
	names := []string{"Botty", "Cardbot", "Dealer"}
	return names[i%len(names)]
}

// Start begins the round.
func (s *Session) Start() error { return s.Round.StartTurn() }

// Draw forwards the human's draw.
func (s *Session) Draw(source game.DrawSource) error {
	return s.Round.HandleDraw(s.HumanID, source)
}

// Play forwards the human's card play.
func (s *Session) Play(cardID uuid.UUID) error {
	return s.Round.HandlePlay(s.HumanID, cardID)
}

// PlayOutOfTurn forwards a same-rank claim.
func (s *Session) PlayOutOfTurn(cardID uuid.UUID) error {
	return s.Round.HandlePlayOutOfTurn(s.HumanID, cardID)
}

// CallFinalRound forwards the final-round declaration.
func (s *Session) CallFinalRound() error {
	return s.Round.HandleCallFinalRound(s.HumanID)
}

// QueenPeek forwards the queen-power selection.
func (s *Session) QueenPeek(ref game.CardRef) error {
	return s.Round.QueenPeekSelect(s.HumanID, ref)
}

// JackSwap forwards the jack-power selection.
func (s *Session) JackSwap(a, b game.CardRef) error {
	return s.Round.JackSwapSelect(s.HumanID, a, b)
}

// View returns the human's filtered view of the table.
func (s *Session) View() game.RoomView {
	return game.BuildRoomView(s.Round.State(), s.HumanID)
}
