// Package server exposes the multiplayer deployment: an HTTP API for
// room management and a websocket endpoint that feeds player actions
// into each room's round and fans state updates back out.
package server

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/sil-vella/recall-sub014/internal/config"
	"github.com/sil-vella/recall-sub014/internal/database"
	"github.com/sil-vella/recall-sub014/internal/game"
	"github.com/sil-vella/recall-sub014/internal/history"
	"github.com/sil-vella/recall-sub014/internal/models"
	"github.com/sil-vella/recall-sub014/internal/store"
)

// Server wires rooms, sockets, and the game core together.
type Server struct {
	cfg     config.Config
	store   *store.Store
	hub     *Hub
	db      *database.DB
	history *history.Publisher
	log     *logrus.Entry
}

// New builds the server. db and hist may be nil for deployments without
// Postgres or Redis.
func New(cfg config.Config, st *store.Store, db *database.DB, hist *history.Publisher) *Server {
	return &Server{
		cfg:     cfg,
		store:   st,
		hub:     NewHub(),
		db:      db,
		history: hist,
		log:     logrus.WithField("component", "server"),
	}
}

// Routes returns the HTTP mux.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/rooms", s.handleCreateRoom)
	mux.HandleFunc("GET /ws/{roomID}", s.handleWS)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return mux
}

type createRoomRequest struct {
	Bots int `json:"bots"`
}

type createRoomResponse struct {
	RoomID uuid.UUID `json:"roomId"`
}

func (s *Server) handleCreateRoom(w http.ResponseWriter, r *http.Request) {
	var req createRoomRequest
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req)
	}
	if req.Bots < 0 || req.Bots > 3 {
		http.Error(w, "bots must be between 0 and 3", http.StatusBadRequest)
		return
	}

	roomID := uuid.New()
	sink := NewBroadcastSink(s.hub, s.db, s.removePlayer)
	opts := []game.RoundOption{}
	if s.history != nil {
		opts = append(opts, game.WithRecorder(s.history))
	}
	round := game.NewRound(game.NewGameState(roomID), sink, s.cfg, opts...)
	for i := 0; i < req.Bots; i++ {
		bot := models.NewPlayer(uuid.New(), botName(i), true)
		if err := round.AddPlayer(bot); err != nil {
			break
		}
	}
	s.store.Put(round)

	s.log.WithFields(logrus.Fields{"room": roomID, "bots": req.Bots}).Info("room created")
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(createRoomResponse{RoomID: roomID})
}

func botName(i int) string {
	names := []string{"Botty", "Cardbot", "Dealer"}
	return names[i%len(names)]
}

// handleWS upgrades the connection and runs the player's read loop until
// disconnect.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	roomID, err := uuid.Parse(r.PathValue("roomID"))
	if err != nil {
		http.Error(w, "bad room id", http.StatusBadRequest)
		return
	}
	round := s.store.Get(roomID)
	if round == nil {
		http.Error(w, "room not found", http.StatusNotFound)
		return
	}

	playerID, err := uuid.Parse(r.URL.Query().Get("playerId"))
	if err != nil {
		playerID = uuid.New()
	}
	name := r.URL.Query().Get("name")
	if name == "" {
		name = "Player"
	}

	ws, err := websocket.Accept(w, r, nil)
	if err != nil {
		s.log.WithError(err).Warn("websocket accept failed")
		return
	}

	reconnecting := round.State().PlayerByID(playerID) != nil
	if !reconnecting {
		if err := round.AddPlayer(models.NewPlayer(playerID, name, false)); err != nil {
			_ = ws.Close(websocket.StatusPolicyViolation, "room already started")
			return
		}
	}
	if old := s.hub.Register(roomID, playerID, ws); old != nil {
		_ = old.Close(websocket.StatusPolicyViolation, "replaced by new connection")
	}

	log := s.log.WithFields(logrus.Fields{"room": roomID, "player": playerID})
	log.Info("player connected")

	s.hub.SendTo(roomID, playerID, outbound{Event: evRoomJoined, Data: map[string]any{
		"roomId":   roomID,
		"playerId": playerID,
	}})
	if reconnecting {
		round.HandleReconnect(playerID)
	} else {
		s.hub.SendTo(roomID, playerID, outbound{
			Event: evPrivateState,
			Data:  map[string]any{"sync_state": game.BuildRoomView(round.State(), playerID)},
		})
	}

	s.readLoop(r.Context(), ws, round, playerID, log)

	s.hub.Unregister(roomID, playerID, ws)
	round.HandleDisconnect(playerID)
	log.Info("player disconnected")
}

func (s *Server) readLoop(ctx context.Context, ws *websocket.Conn, round *game.Round, playerID uuid.UUID, log *logrus.Entry) {
	for {
		_, data, err := ws.Read(ctx)
		if err != nil {
			return
		}
		var msg inbound
		if err := json.Unmarshal(data, &msg); err != nil {
			log.WithError(err).Debug("dropping malformed message")
			continue
		}
		s.dispatch(round, playerID, msg, log)
	}
}

// dispatch routes one inbound action into the round. Game-rule rejections
// surface to the player through the sink's action_error path; the return
// values here are only logged.
func (s *Server) dispatch(round *game.Round, playerID uuid.UUID, msg inbound, log *logrus.Entry) {
	var err error
	switch msg.Action {
	case actStartGame:
		err = round.StartTurn()
	case actDrawCard:
		err = round.HandleDraw(playerID, game.DrawSource(msg.Source))
	case actPlayCard:
		err = round.HandlePlay(playerID, msg.CardID)
	case actPlayOutOfTurn:
		err = round.HandlePlayOutOfTurn(playerID, msg.CardID)
	case actCallFinalRound:
		err = round.HandleCallFinalRound(playerID)
	case actQueenPeek:
		if msg.CardRef == nil {
			log.Warn("queen_peek_select without cardRef")
			return
		}
		err = round.QueenPeekSelect(playerID, msg.CardRef.toGame())
	case actJackSwap:
		if msg.CardRefA == nil || msg.CardRefB == nil {
			log.Warn("jack_swap_select without card refs")
			return
		}
		err = round.JackSwapSelect(playerID, msg.CardRefA.toGame(), msg.CardRefB.toGame())
	case actResync:
		round.HandleReconnect(playerID)
	default:
		log.WithField("action", msg.Action).Warn("unknown action")
		return
	}
	if err != nil {
		log.WithError(err).WithField("action", msg.Action).Debug("action rejected")
	}
}

// removePlayer is the auto-leave path for unresponsive players.
func (s *Server) removePlayer(roomID, playerID uuid.UUID) {
	round := s.store.Get(roomID)
	if round == nil {
		return
	}
	round.HandleDisconnect(playerID)
	s.log.WithFields(logrus.Fields{"room": roomID, "player": playerID}).Info("player removed for inactivity")
}
