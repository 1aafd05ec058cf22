// service/game_manager.go
package service

import (
	"encoding/json"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"

	"github.com/benbeisheim/chess-backend/internal/model"
)

// ManagerConfig configures a GameManager.
type ManagerConfig struct {
	// Game is the template for every new game.
	Game model.GameConfig
	// MatchInterval is how often the matchmaking queue is polled. Zero
	// disables the background matcher.
	MatchInterval time.Duration
	// HistoryDir receives the move log of each finished game. Empty
	// disables saving.
	HistoryDir string
}

type GameManager struct {
	games            map[string]*model.Game
	saved            map[string]bool
	queue            *model.Queue
	matchingChannels map[string]chan string
	cfg              ManagerConfig
	mu               sync.RWMutex
	stop             chan struct{}
	stopOnce         sync.Once
}

func NewGameManager(cfg ManagerConfig) *GameManager {
	gm := &GameManager{
		games:            make(map[string]*model.Game),
		saved:            make(map[string]bool),
		queue:            model.NewQueue(),
		matchingChannels: make(map[string]chan string),
		cfg:              cfg,
		stop:             make(chan struct{}),
	}

	if cfg.MatchInterval > 0 {
		go gm.processMatchmaking(cfg.MatchInterval)
	}

	return gm
}

func (gm *GameManager) RegisterMatchmakingChannel(playerID string, ch chan string) error {
	gm.mu.Lock()
	defer gm.mu.Unlock()
	log.Debugf("registering matchmaking channel for player %s", playerID)

	// replace a previous channel of the same player
	if existingCh, exists := gm.matchingChannels[playerID]; exists {
		delete(gm.matchingChannels, playerID)
		close(existingCh)
	}

	gm.matchingChannels[playerID] = ch
	return nil
}

func (gm *GameManager) processMatchmaking(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			gm.matchPlayers()
		case <-gm.stop:
			return
		}
	}
}

// matchPlayers pairs queued players into new games and notifies them on
// their matchmaking channels.
func (gm *GameManager) matchPlayers() {
	gm.mu.Lock()
	defer gm.mu.Unlock()

	for {
		player1, player2, ok := gm.queue.GetNextPair()
		if !ok {
			return
		}

		gameID := uuid.New().String()
		game, err := model.NewGame(gameID, gm.cfg.Game)
		if err != nil {
			log.Errorf("matchmaking: failed to create game: %v", err)
			return
		}

		p1Color, err := game.AddPlayer(player1.ID)
		if err != nil {
			log.Errorf("matchmaking: failed to add player %s: %v", player1.ID, err)
			continue
		}
		p2Color, err := game.AddPlayer(player2.ID)
		if err != nil {
			log.Errorf("matchmaking: failed to add player %s: %v", player2.ID, err)
			continue
		}
		gm.games[gameID] = game

		sendEventAndCleanup := func(playerID string, event model.MatchFoundEvent) bool {
			if ch, ok := gm.matchingChannels[playerID]; ok {
				select {
				case ch <- mustJSON(event):
					log.Infof("sent match found event to player %s", playerID)
					delete(gm.matchingChannels, playerID)
					close(ch)
					return true
				default:
					log.Warnf("failed to send match found event to player %s", playerID)
					return false
				}
			}
			return false
		}

		sent1 := sendEventAndCleanup(player1.ID, model.MatchFoundEvent{GameID: gameID, Color: p1Color})
		sent2 := sendEventAndCleanup(player2.ID, model.MatchFoundEvent{GameID: gameID, Color: p2Color})
		if !sent1 || !sent2 {
			// TODO: requeue the players who never heard about the match
			log.Warnf("game %s: not all players were notified of the match", gameID)
		}
	}
}

func (gm *GameManager) UnregisterMatchmakingChannel(playerID string) {
	gm.mu.Lock()
	defer gm.mu.Unlock()
	log.Debugf("unregistering matchmaking channel for player %s", playerID)

	// The creator of the channel closes it.
	delete(gm.matchingChannels, playerID)
	gm.queue.RemovePlayer(playerID)
}

func mustJSON(v interface{}) string {
	bytes, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return string(bytes)
}

func (gm *GameManager) CreateGame(gameID string, layout string) error {
	gm.mu.Lock()
	defer gm.mu.Unlock()

	if _, exists := gm.games[gameID]; exists {
		return ErrGameExists
	}

	cfg := gm.cfg.Game
	if layout != "" {
		cfg.Layout = layout
	}
	game, err := model.NewGame(gameID, cfg)
	if err != nil {
		return err
	}
	gm.games[gameID] = game
	return nil
}

func (gm *GameManager) GetGame(gameID string) (*model.Game, error) {
	gm.mu.RLock()
	defer gm.mu.RUnlock()

	game, exists := gm.games[gameID]
	if !exists {
		return nil, ErrGameNotFound
	}

	return game, nil
}

func (gm *GameManager) AddPlayerToGame(gameID string, playerID string) (model.Color, error) {
	game, err := gm.GetGame(gameID)
	if err != nil {
		return "", err
	}
	return game.AddPlayer(playerID)
}

func (gm *GameManager) JoinMatchmaking(playerID string) error {
	if err := gm.queue.AddPlayer(model.Player{ID: playerID}); err != nil {
		log.Warnf("player %s could not join matchmaking: %v", playerID, err)
		return err
	}
	return nil
}

func (gm *GameManager) GetGameState(gameID string) (model.GameState, error) {
	game, err := gm.GetGame(gameID)
	if err != nil {
		return model.GameState{}, err
	}
	return game.GetState(), nil
}

// withGame runs fn on the game and saves its log once the game is over.
func (gm *GameManager) withGame(gameID string, fn func(game *model.Game) error) error {
	game, err := gm.GetGame(gameID)
	if err != nil {
		return err
	}
	if err := fn(game); err != nil {
		return err
	}
	gm.saveIfOver(game)
	return nil
}

func (gm *GameManager) MakeMove(gameID string, playerID string, move model.WSMove) error {
	return gm.withGame(gameID, func(game *model.Game) error {
		return game.MakeMove(playerID, move)
	})
}

func (gm *GameManager) Click(gameID string, playerID string, pos model.Position) (bool, error) {
	var accepted bool
	err := gm.withGame(gameID, func(game *model.Game) error {
		var err error
		accepted, err = game.Click(playerID, pos)
		return err
	})
	return accepted, err
}

func (gm *GameManager) Promote(gameID string, playerID string, kind model.PieceType) error {
	return gm.withGame(gameID, func(game *model.Game) error {
		return game.Promote(playerID, kind)
	})
}

func (gm *GameManager) Resign(gameID string, playerID string) error {
	return gm.withGame(gameID, func(game *model.Game) error {
		return game.Resign(playerID)
	})
}

func (gm *GameManager) saveIfOver(game *model.Game) {
	if gm.cfg.HistoryDir == "" || !game.IsOver() {
		return
	}
	gm.mu.Lock()
	if gm.saved[game.ID] {
		gm.mu.Unlock()
		return
	}
	gm.saved[game.ID] = true
	gm.mu.Unlock()

	path := filepath.Join(gm.cfg.HistoryDir, game.ID+".txt")
	if err := game.SaveHistory(path); err != nil {
		log.Errorf("game %s: failed to save history to %s: %v", game.ID, path, err)
		return
	}
	log.Infof("game %s: history saved to %s", game.ID, path)
}

func (gm *GameManager) RegisterConnection(gameID string, playerID string, conn model.Conn) error {
	game, err := gm.GetGame(gameID)
	if err != nil {
		return err
	}
	return game.RegisterConnection(playerID, conn)
}

func (gm *GameManager) UnregisterConnection(gameID string, playerID string, conn model.Conn) {
	game, err := gm.GetGame(gameID)
	if err != nil {
		return
	}
	game.UnregisterConnection(playerID, conn)
}

// Close stops matchmaking and closes every game connection.
func (gm *GameManager) Close() error {
	gm.stopOnce.Do(func() { close(gm.stop) })

	gm.mu.RLock()
	defer gm.mu.RUnlock()

	var result *multierror.Error
	for id, game := range gm.games {
		if err := game.Close(); err != nil {
			result = multierror.Append(result, errors.Wrapf(err, "game %s", id))
		}
	}
	return result.ErrorOrNil()
}
