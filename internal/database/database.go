// Package database persists finished-game results to Postgres. Writes
// are best-effort: the round outcome has already been broadcast by the
// time anything lands here, and a database failure never propagates back
// into the game.
package database

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/sil-vella/recall-sub014/internal/models"
)

const schema = `
CREATE TABLE IF NOT EXISTS game_results (
    id          BIGSERIAL PRIMARY KEY,
    room_id     UUID        NOT NULL,
    player_id   UUID        NOT NULL,
    display_name TEXT       NOT NULL,
    score       INT         NOT NULL,
    cards_left  INT         NOT NULL,
    is_winner   BOOLEAN     NOT NULL,
    pot         INT         NOT NULL DEFAULT 0,
    finished_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS game_results_room_idx ON game_results (room_id);
`

// DB wraps a pgx connection pool.
type DB struct {
	pool *pgxpool.Pool
	log  *logrus.Entry
}

// Connect opens a pool against dsn and ensures the results table exists.
func Connect(ctx context.Context, dsn string) (*DB, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, err
	}
	return &DB{pool: pool, log: logrus.WithField("component", "database")}, nil
}

// Close releases the pool.
func (d *DB) Close() {
	if d != nil && d.pool != nil {
		d.pool.Close()
	}
}

// SaveGameResult records one row per player for a finished round. Errors
// are logged and swallowed.
func (d *DB) SaveGameResult(roomID uuid.UUID, winners []uuid.UUID, players []*models.Player, pot int) {
	if d == nil || d.pool == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	winSet := make(map[uuid.UUID]bool, len(winners))
	for _, w := range winners {
		winSet[w] = true
	}
	for _, p := range players {
		_, err := d.pool.Exec(ctx,
			`INSERT INTO game_results (room_id, player_id, display_name, score, cards_left, is_winner, pot)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			roomID, p.ID, p.DisplayName, p.Score, len(p.Hand), winSet[p.ID], pot,
		)
		if err != nil {
			d.log.WithError(err).WithFields(logrus.Fields{
				"room": roomID, "player": p.ID,
			}).Error("failed to persist game result")
		}
	}
}
