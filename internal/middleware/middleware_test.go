package middleware

import (
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func echoPlayer(c *fiber.Ctx) error {
	return c.SendString(c.Locals("playerID").(string))
}

func TestEnsurePlayerID(t *testing.T) {
	app := fiber.New()
	app.Get("/", EnsurePlayerID(), echoPlayer)

	tests := []struct {
		name   string
		target string
		header string
		status int
		body   string
	}{
		{"header", "/", "alice", fiber.StatusOK, "alice"},
		{"query", "/?playerId=bob", "", fiber.StatusOK, "bob"},
		{"header wins", "/?playerId=bob", "alice", fiber.StatusOK, "alice"},
		{"missing", "/", "", fiber.StatusUnauthorized, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(fiber.MethodGet, tt.target, nil)
			if tt.header != "" {
				req.Header.Set("X-Player-ID", tt.header)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			defer resp.Body.Close()

			assert.Equal(t, tt.status, resp.StatusCode)
			if tt.body != "" {
				data, err := io.ReadAll(resp.Body)
				require.NoError(t, err)
				assert.Equal(t, tt.body, string(data))
			}
		})
	}
}

func TestWebSocketUpgradeRequiresUpgrade(t *testing.T) {
	app := fiber.New()
	app.Get("/ws", EnsurePlayerID(), WebSocketUpgrade(), echoPlayer)

	req := httptest.NewRequest(fiber.MethodGet, "/ws", nil)
	req.Header.Set("X-Player-ID", "alice")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUpgradeRequired, resp.StatusCode)
}

func TestWebSocketUpgradeRequiresPlayer(t *testing.T) {
	app := fiber.New()
	app.Get("/ws", WebSocketUpgrade(), echoPlayer)

	req := httptest.NewRequest(fiber.MethodGet, "/ws", nil)
	req.Header.Set("Connection", "Upgrade")
	req.Header.Set("Upgrade", "websocket")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}
