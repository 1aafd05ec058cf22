package service

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/benbeisheim/chess-backend/internal/model"
)

func TestGameServiceFlow(t *testing.T) {
	gs := NewGameService(newManager(t, ManagerConfig{}))

	gameID, err := gs.CreateGame("")
	require.NoError(t, err)
	_, err = uuid.Parse(gameID)
	assert.NoError(t, err)

	color, err := gs.JoinGame(gameID, "alice")
	require.NoError(t, err)
	assert.Equal(t, model.White, color)
	color, err = gs.JoinGame(gameID, "bob")
	require.NoError(t, err)
	assert.Equal(t, model.Black, color)
	_, err = gs.JoinGame(gameID, "carol")
	assert.ErrorIs(t, err, model.ErrGameFull)

	require.NoError(t, gs.HandleMove(gameID, "alice", model.WSMove{
		From: model.MustPosition("e2"),
		To:   model.MustPosition("e4"),
	}))
	assert.ErrorIs(t, gs.HandleMove(gameID, "alice", model.WSMove{
		From: model.MustPosition("d2"),
		To:   model.MustPosition("d4"),
	}), model.ErrNotYourTurn)

	ok, err := gs.HandleClick(gameID, "bob", model.MustPosition("e7"))
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = gs.HandleClick(gameID, "bob", model.MustPosition("e5"))
	require.NoError(t, err)
	assert.True(t, ok)

	history, err := gs.GetHistory(gameID)
	require.NoError(t, err)
	assert.Equal(t, "Pe2-e4 pe7-e5 \n", history)

	turns, err := gs.GetTurns(gameID)
	require.NoError(t, err)
	require.Len(t, turns, 2)
	assert.Equal(t, model.MustPosition("e7"), turns[1].Start)

	assert.ErrorIs(t, gs.HandlePromotion(gameID, "alice", model.Queen), model.ErrNoPromotionPending)
	require.NoError(t, gs.HandleResign(gameID, "alice"))

	st, err := gs.GetGameState(gameID)
	require.NoError(t, err)
	require.NotNil(t, st.Resolve)
	assert.Equal(t, model.ResultResignation, *st.Resolve)
	assert.Equal(t, model.Black, st.Winner)
}

func TestGameServiceCreateGameInvalidLayout(t *testing.T) {
	gs := NewGameService(newManager(t, ManagerConfig{}))

	_, err := gs.CreateGame("rnbqkbnr/ppppppppp")
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrInvalidLayout)
	assert.Contains(t, err.Error(), "failed to create game")
}

func TestGameServiceMissingGame(t *testing.T) {
	gs := NewGameService(newManager(t, ManagerConfig{}))

	_, err := gs.GetHistory("nope")
	assert.ErrorIs(t, err, ErrGameNotFound)
	_, err = gs.GetTurns("nope")
	assert.ErrorIs(t, err, ErrGameNotFound)
}
