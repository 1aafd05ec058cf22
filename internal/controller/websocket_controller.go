package controller

import (
	"encoding/json"
	"fmt"

	"github.com/gofiber/fiber/v2/log"
	"github.com/gofiber/websocket/v2"

	"github.com/benbeisheim/chess-backend/internal/model"
	"github.com/benbeisheim/chess-backend/internal/service"
	"github.com/benbeisheim/chess-backend/internal/ws"
)

type WebSocketController struct {
	gameService *service.GameService
}

func NewWebSocketController(gameService *service.GameService) *WebSocketController {
	return &WebSocketController{
		gameService: gameService,
	}
}

// HandleConnection is called when a new WebSocket connection is established
func (wsc *WebSocketController) HandleConnection(c *websocket.Conn) {
	gameID := c.Params("gameId")
	playerID := c.Locals("playerID").(string)
	// broadcasts and error replies share this writer
	conn := model.NewSafeConn(c)

	if err := wsc.gameService.RegisterConnection(gameID, playerID, conn); err != nil {
		log.Warnf("game %s: failed to register connection of %s: %v", gameID, playerID, err)
		wsc.sendError(conn, err.Error())
		conn.Close()
		return
	}

	for {
		messageType, message, err := c.ReadMessage()
		if err != nil {
			log.Debugf("game %s: read error from %s: %v", gameID, playerID, err)
			break
		}

		if messageType != websocket.TextMessage {
			continue
		}
		var msg ws.Message
		if err := json.Unmarshal(message, &msg); err != nil {
			log.Warnf("game %s: parse error from %s: %v", gameID, playerID, err)
			wsc.sendError(conn, "invalid message")
			continue
		}

		if err := wsc.handleMessage(gameID, playerID, msg); err != nil {
			log.Infof("game %s: %s from %s rejected: %v", gameID, msg.Type, playerID, err)
			wsc.sendError(conn, err.Error())
		}
	}

	wsc.gameService.UnregisterConnection(gameID, playerID, conn)
}

func (wsc *WebSocketController) handleMessage(gameID, playerID string, msg ws.Message) error {
	switch msg.Type {
	case ws.MessageTypeMove:
		var move model.WSMove
		if err := json.Unmarshal(msg.Payload, &move); err != nil {
			return err
		}
		return wsc.gameService.HandleMove(gameID, playerID, move)

	case ws.MessageTypeClick:
		var click model.WSClick
		if err := json.Unmarshal(msg.Payload, &click); err != nil {
			return err
		}
		_, err := wsc.gameService.HandleClick(gameID, playerID, click.Position)
		return err

	case ws.MessageTypePromote:
		var promotion model.WSPromotion
		if err := json.Unmarshal(msg.Payload, &promotion); err != nil {
			return err
		}
		kind, err := model.ParsePieceType(string(promotion.Piece))
		if err != nil {
			return err
		}
		return wsc.gameService.HandlePromotion(gameID, playerID, kind)

	case ws.MessageTypeResign:
		return wsc.gameService.HandleResign(gameID, playerID)

	default:
		return fmt.Errorf("unknown message type: %s", msg.Type)
	}
}

// HandleMatchmaking queues the player and blocks until a match is found or
// the connection closes.
func (wsc *WebSocketController) HandleMatchmaking(c *websocket.Conn) {
	playerID := c.Locals("playerID").(string)

	ch := make(chan string, 1)
	if err := wsc.gameService.RegisterMatchmakingChannel(playerID, ch); err != nil {
		wsc.sendError(c, err.Error())
		c.Close()
		return
	}
	if err := wsc.gameService.JoinMatchmaking(playerID); err != nil {
		wsc.gameService.UnregisterMatchmakingChannel(playerID)
		wsc.sendError(c, err.Error())
		c.Close()
		return
	}

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := c.ReadMessage(); err != nil {
				return
			}
		}
	}()

	select {
	case event, ok := <-ch:
		if !ok {
			// replaced by a newer matchmaking connection
			return
		}
		if err := c.WriteJSON(ws.Message{
			Type:    ws.MessageTypeMatchFound,
			Payload: json.RawMessage(event),
		}); err != nil {
			log.Warnf("failed to send match to player %s: %v", playerID, err)
		}
	case <-closed:
		log.Infof("player %s left matchmaking", playerID)
		wsc.gameService.UnregisterMatchmakingChannel(playerID)
	}
}

func (wsc *WebSocketController) sendError(c model.Conn, errorMsg string) {
	if err := c.WriteJSON(ws.NewError(errorMsg)); err != nil {
		log.Debugf("failed to send error: %v", err)
	}
}
