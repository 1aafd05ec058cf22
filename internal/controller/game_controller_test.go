package controller

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/benbeisheim/chess-backend/internal/middleware"
	"github.com/benbeisheim/chess-backend/internal/model"
	"github.com/benbeisheim/chess-backend/internal/service"
)

func newTestApp(t *testing.T) (*fiber.App, *service.GameService) {
	t.Helper()
	manager := service.NewGameManager(service.ManagerConfig{})
	t.Cleanup(func() { manager.Close() })
	gs := service.NewGameService(manager)
	gc := NewGameController(gs)

	app := fiber.New()
	game := app.Group("/api", middleware.EnsurePlayerID()).Group("/game")
	game.Post("/matchmaking/join", gc.JoinMatchmaking)
	game.Post("/create", gc.CreateGame)
	game.Post("/join/:gameId", gc.JoinGame)
	game.Post("/:gameId/move", gc.MakeMove)
	game.Get("/:gameId/history", gc.GetHistory)
	game.Get("/:gameId/turns", gc.GetTurns)
	game.Get("/:gameId", gc.GetGameState)
	return app, gs
}

func do(t *testing.T, app *fiber.App, method, path, player string, body string) (int, []byte, http.Header) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	if player != "" {
		req.Header.Set("X-Player-ID", player)
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, data, resp.Header
}

func createGame(t *testing.T, app *fiber.App, body string) string {
	t.Helper()
	status, data, _ := do(t, app, fiber.MethodPost, "/api/game/create", "alice", body)
	require.Equal(t, fiber.StatusOK, status, string(data))
	var created struct {
		GameID string `json:"game_id"`
	}
	require.NoError(t, json.Unmarshal(data, &created))
	require.NotEmpty(t, created.GameID)
	return created.GameID
}

func TestGameLifecycleOverREST(t *testing.T) {
	app, _ := newTestApp(t)
	gameID := createGame(t, app, "")

	status, data, _ := do(t, app, fiber.MethodPost, "/api/game/join/"+gameID, "alice", "")
	require.Equal(t, fiber.StatusOK, status)
	assert.JSONEq(t, `{"message":"Game joined","color":"white"}`, string(data))
	status, data, _ = do(t, app, fiber.MethodPost, "/api/game/join/"+gameID, "bob", "")
	require.Equal(t, fiber.StatusOK, status)
	assert.JSONEq(t, `{"message":"Game joined","color":"black"}`, string(data))
	status, _, _ = do(t, app, fiber.MethodPost, "/api/game/join/"+gameID, "carol", "")
	assert.Equal(t, fiber.StatusConflict, status)

	status, data, _ = do(t, app, fiber.MethodPost, "/api/game/"+gameID+"/move", "alice",
		`{"from":{"x":4,"y":6},"to":{"x":4,"y":4}}`)
	require.Equal(t, fiber.StatusOK, status, string(data))
	var st model.GameState
	require.NoError(t, json.Unmarshal(data, &st))
	assert.Equal(t, model.Black, st.ToMove)
	assert.Equal(t, "rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR", st.Layout)

	status, _, _ = do(t, app, fiber.MethodPost, "/api/game/"+gameID+"/move", "alice",
		`{"from":{"x":3,"y":6},"to":{"x":3,"y":4}}`)
	assert.Equal(t, fiber.StatusForbidden, status)
	status, _, _ = do(t, app, fiber.MethodPost, "/api/game/"+gameID+"/move", "bob",
		`{"from":{"x":4,"y":1},"to":{"x":4,"y":4}}`)
	assert.Equal(t, fiber.StatusBadRequest, status)
	status, _, _ = do(t, app, fiber.MethodPost, "/api/game/"+gameID+"/move", "bob", `{"from":`)
	assert.Equal(t, fiber.StatusBadRequest, status)

	status, data, header := do(t, app, fiber.MethodGet, "/api/game/"+gameID+"/history", "carol", "")
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "Pe2-e4 ", string(data))
	assert.Contains(t, header.Get(fiber.HeaderContentType), "text/plain")

	status, data, _ = do(t, app, fiber.MethodGet, "/api/game/"+gameID+"/turns", "carol", "")
	require.Equal(t, fiber.StatusOK, status)
	var turns struct {
		Turns []model.Turn `json:"turns"`
	}
	require.NoError(t, json.Unmarshal(data, &turns))
	require.Len(t, turns.Turns, 1)
	assert.Equal(t, "Pe2-e4", turns.Turns[0].Notation)

	status, data, _ = do(t, app, fiber.MethodGet, "/api/game/"+gameID, "carol", "")
	require.Equal(t, fiber.StatusOK, status)
	require.NoError(t, json.Unmarshal(data, &st))
	assert.Equal(t, "Pe2-e4 ", st.Log)
}

func TestCreateGameWithLayout(t *testing.T) {
	app, gs := newTestApp(t)

	gameID := createGame(t, app, `{"layout":"4k3/8/8/8/8/8/8/4K3"}`)
	st, err := gs.GetGameState(gameID)
	require.NoError(t, err)
	assert.Equal(t, "4k3/8/8/8/8/8/8/4K3", st.Layout)

	status, data, _ := do(t, app, fiber.MethodPost, "/api/game/create", "alice", `{"layout":"9/8"}`)
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Contains(t, string(data), "invalid layout")

	status, _, _ = do(t, app, fiber.MethodPost, "/api/game/create", "alice", `{"layout":"8/8/8/8/8/8/8/8"}`)
	assert.Equal(t, fiber.StatusBadRequest, status)

	status, _, _ = do(t, app, fiber.MethodPost, "/api/game/create", "alice", `{"layout":`)
	assert.Equal(t, fiber.StatusBadRequest, status)
}

func TestMissingGame(t *testing.T) {
	app, _ := newTestApp(t)

	for _, path := range []string{"/api/game/nope", "/api/game/nope/history", "/api/game/nope/turns"} {
		status, data, _ := do(t, app, fiber.MethodGet, path, "alice", "")
		assert.Equal(t, fiber.StatusNotFound, status, path)
		assert.JSONEq(t, `{"error":"game not found"}`, string(data), path)
	}
	status, _, _ := do(t, app, fiber.MethodPost, "/api/game/join/nope", "alice", "")
	assert.Equal(t, fiber.StatusNotFound, status)
}

func TestPlayerIDRequired(t *testing.T) {
	app, _ := newTestApp(t)

	status, _, _ := do(t, app, fiber.MethodPost, "/api/game/create", "", "")
	assert.Equal(t, fiber.StatusUnauthorized, status)
}

func TestJoinMatchmakingOverREST(t *testing.T) {
	app, _ := newTestApp(t)

	status, data, _ := do(t, app, fiber.MethodPost, "/api/game/matchmaking/join", "alice", "")
	require.Equal(t, fiber.StatusOK, status)
	assert.JSONEq(t, `{"status":"queued"}`, string(data))

	status, _, _ = do(t, app, fiber.MethodPost, "/api/game/matchmaking/join", "alice", "")
	assert.Equal(t, fiber.StatusConflict, status)
}
