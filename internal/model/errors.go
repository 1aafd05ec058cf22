package model

import "errors"

var (
	ErrInvalidLayout      = errors.New("invalid layout")
	ErrNoPromotionPending = errors.New("no promotion pending")
	ErrInvalidPromotion   = errors.New("invalid promotion piece")
	ErrIllegalMove        = errors.New("illegal move")
	ErrNotYourTurn        = errors.New("not your turn")
	ErrGameFull           = errors.New("game is full")
	ErrGameOver           = errors.New("game is over")
	ErrNotInGame          = errors.New("player not in game")
	ErrPlayerQueued       = errors.New("player already in queue")
	ErrNotAuthorized      = errors.New("not authorized to join this game")
	ErrMissingKing        = errors.New("missing king")
)
