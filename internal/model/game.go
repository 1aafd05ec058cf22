package model

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/benbeisheim/chess-backend/internal/ws"
	"github.com/gofiber/fiber/v2/log"
	"github.com/gofiber/websocket/v2"
	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
)

const DefaultClockTime = 600 * time.Second

// Result values reported in GameState.Resolve.
const (
	ResultKingCaptured = "kingCaptured"
	ResultResignation  = "resignation"
	ResultTimeout      = "timeout"
)

// Conn is the part of a websocket connection a game writes to.
type Conn interface {
	WriteJSON(v interface{}) error
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// SafeConn allows one writer at a time on a connection. Game states are
// numbered and a state older than the last one written is dropped.
type SafeConn struct {
	conn Conn
	mu   sync.Mutex
	seq  uint64
}

func NewSafeConn(conn Conn) *SafeConn {
	if sc, ok := conn.(*SafeConn); ok {
		return sc
	}
	return &SafeConn{conn: conn}
}

func (c *SafeConn) WriteJSON(v interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(v)
}

func (c *SafeConn) WriteMessage(messageType int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteMessage(messageType, data)
}

// Close does not wait for a pending write.
func (c *SafeConn) Close() error {
	return c.conn.Close()
}

func (c *SafeConn) wraps(conn Conn) bool {
	return c == conn || c.conn == conn
}

// writeState writes msg unless a newer state went out already.
func (c *SafeConn) writeState(seq uint64, msg ws.Message) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if seq <= c.seq {
		return false, nil
	}
	c.seq = seq
	return true, c.conn.WriteJSON(msg)
}

// The connections for a specific game
type GameConnections struct {
	connections map[string]*SafeConn // playerID -> connection
	mu          sync.RWMutex
}

func NewGameConnections() *GameConnections {
	return &GameConnections{
		connections: make(map[string]*SafeConn),
	}
}

// GameConfig holds the settings of a new game. Zero values select the
// standard start position, White to move and DefaultClockTime.
type GameConfig struct {
	Layout    string
	ToMove    Color
	ClockTime time.Duration

	// UnderpromotedCastling lets a rook gained by promotion castle.
	UnderpromotedCastling bool
}

// Game is one chess session: the board, its history, the side to move, the
// players and their clocks. All board access goes through the game mutex,
// so every select/place/promote sequence is applied as one unit.
type Game struct {
	ID          string
	mu          sync.Mutex
	board       *Board
	history     *History
	toMove      Color
	players     players
	captured    CapturedPieces
	isCheck     bool
	sound       string
	lastMove    *SimpleMove
	resolve     *string
	winner      Color
	connections *GameConnections // Connections just for this game
	stateSeq    uint64
	whiteClock  *Clock
	blackClock  *Clock
}

type players struct {
	White ClientPlayer `json:"white"`
	Black ClientPlayer `json:"black"`
}

type GameState struct {
	Sound           string         `json:"sound"`
	Board           [][]*Piece     `json:"board"`
	Layout          string         `json:"layout"`
	ToMove          Color          `json:"toMove"`
	MoveHistory     []Move         `json:"moveHistory"`
	Log             string         `json:"log"`
	CapturedPieces  CapturedPieces `json:"capturedPieces"`
	IsCheck         bool           `json:"isCheck"`
	SelectedSquare  *Position      `json:"selectedSquare"`
	LegalMoves      []Position     `json:"legalMoves"`
	Resolve         *string        `json:"resolve"`
	Winner          Color          `json:"winner,omitempty"`
	Players         players        `json:"players"`
	PromotionSquare *Position      `json:"promotionSquare"`
	LastMove        *SimpleMove    `json:"lastMove"`
}

type CapturedPieces struct {
	White []Piece `json:"white"`
	Black []Piece `json:"black"`
}

// gameRecorder feeds the game history and the captured piece lists.
type gameRecorder struct {
	g *Game
}

func (r gameRecorder) Record(piece Piece, from, to Position, captured *Piece, promotion bool) {
	r.g.history.Record(piece, from, to, captured, promotion)
	switch {
	case captured != nil:
		r.g.sound = "capture"
		if piece.Color == White {
			r.g.captured.White = append(r.g.captured.White, *captured)
		} else {
			r.g.captured.Black = append(r.g.captured.Black, *captured)
		}
	case piece.CastlesWith != nil:
		r.g.sound = "castle"
	case promotion:
		r.g.sound = "promote"
	default:
		r.g.sound = "move"
	}
}

func NewGame(id string, cfg GameConfig) (*Game, error) {
	if cfg.Layout == "" {
		cfg.Layout = StartLayout
	}
	if cfg.ToMove == "" {
		cfg.ToMove = White
	}
	if !cfg.ToMove.Valid() {
		return nil, errors.Errorf("invalid color %q", cfg.ToMove)
	}
	if cfg.ClockTime <= 0 {
		cfg.ClockTime = DefaultClockTime
	}

	g := &Game{
		ID:          id,
		history:     NewHistory(),
		toMove:      cfg.ToMove,
		captured:    newCapturedPieces(),
		connections: NewGameConnections(),
		whiteClock:  NewClock(cfg.ClockTime),
		blackClock:  NewClock(cfg.ClockTime),
	}
	g.board = NewBoard(gameRecorder{g: g})
	g.board.UnderpromotedCastling = cfg.UnderpromotedCastling
	if err := g.board.LoadLayout(cfg.Layout); err != nil {
		return nil, err
	}
	var missing *multierror.Error
	for _, color := range []Color{White, Black} {
		if !g.board.HasKing(color) {
			missing = multierror.Append(missing, fmt.Errorf("no %s king", color))
		}
	}
	if err := missing.ErrorOrNil(); err != nil {
		return nil, errors.Wrapf(ErrMissingKing, "layout %q: %v", cfg.Layout, err)
	}
	g.isCheck = g.board.InCheck(g.toMove)
	return g, nil
}

func newCapturedPieces() CapturedPieces {
	return CapturedPieces{
		White: make([]Piece, 0),
		Black: make([]Piece, 0),
	}
}

// AddPlayer seats a player and returns its color. A player already seated
// gets its color back. The game clock starts once both seats are taken.
func (g *Game) AddPlayer(playerID string) (Color, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if color, ok := g.colorOf(playerID); ok {
		return color, nil
	}
	log.Infof("game %s: adding player %s", g.ID, playerID)

	var color Color
	switch {
	case g.players.White.ID == "":
		g.players.White = ClientPlayer{ID: playerID, Color: White}
		color = White
	case g.players.Black.ID == "":
		g.players.Black = ClientPlayer{ID: playerID, Color: Black}
		color = Black
	default:
		return "", ErrGameFull
	}
	if g.players.White.ID != "" && g.players.Black.ID != "" && g.resolve == nil {
		g.clock(g.toMove).Start()
	}
	return color, nil
}

func (g *Game) colorOf(playerID string) (Color, bool) {
	if playerID == "" {
		return "", false
	}
	switch playerID {
	case g.players.White.ID:
		return White, true
	case g.players.Black.ID:
		return Black, true
	}
	return "", false
}

// ColorOf returns the color the player plays.
func (g *Game) ColorOf(playerID string) (Color, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	return g.colorOf(playerID)
}

func (g *Game) IsPlayerInGame(playerID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	_, ok := g.colorOf(playerID)
	return ok
}

func (g *Game) isPlayerInGame(playerID string) bool {
	_, ok := g.colorOf(playerID)
	return ok
}

func (g *Game) CanSpectate() bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	return g.canSpectate()
}

func (g *Game) canSpectate() bool {
	return g.players.White.ID == "" || g.players.Black.ID == ""
}

func (g *Game) IsOver() bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	return g.resolve != nil
}

func (g *Game) clock(color Color) *Clock {
	if color == White {
		return g.whiteClock
	}
	return g.blackClock
}

// authorize checks that playerID may act for the side to move.
func (g *Game) authorize(playerID string) error {
	if g.resolve != nil {
		return ErrGameOver
	}
	color, ok := g.colorOf(playerID)
	if !ok {
		return ErrNotInGame
	}
	if color != g.toMove {
		return ErrNotYourTurn
	}
	if g.clock(color).Expired() {
		g.end(ResultTimeout, color.Opponent())
		return ErrGameOver
	}
	return nil
}

// Click forwards a click on a square: it selects a piece when none is
// selected and places the selected piece otherwise. The returned bool
// reports whether the selection or placement was accepted; rejected clicks
// are not errors.
func (g *Game) Click(playerID string, pos Position) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.authorize(playerID); err != nil {
		return false, err
	}
	accepted := g.click(pos)
	g.broadcastLocked()
	return accepted, nil
}

func (g *Game) click(pos Position) bool {
	if !pos.OnBoard() {
		return false
	}
	if _, pending := g.board.PromotionPending(); pending {
		return false
	}
	from, selected := g.board.Selected()
	if !selected {
		return g.board.SelectPiece(pos, g.toMove)
	}
	if !g.board.PlacePiece(pos) {
		// clicking another own piece moves the selection there
		return g.board.SelectPiece(pos, g.toMove)
	}
	g.afterPlace(from, pos)
	return true
}

func (g *Game) afterPlace(from, to Position) {
	g.lastMove = &SimpleMove{From: from, To: to}
	if _, pending := g.board.PromotionPending(); pending {
		return
	}
	g.finishTurn()
}

// MakeMove applies a complete move. Promotion is required when a pawn
// reaches the last rank and ignored otherwise. Nothing changes when the move
// is rejected.
func (g *Game) MakeMove(playerID string, move WSMove) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.authorize(playerID); err != nil {
		return err
	}
	if _, pending := g.board.PromotionPending(); pending {
		return errors.Wrap(ErrIllegalMove, "promotion pending")
	}
	if !move.From.OnBoard() || !move.To.OnBoard() {
		return errors.Wrap(ErrIllegalMove, "out of bounds")
	}
	piece, ok := g.board.PieceAt(move.From)
	if !ok || piece.Color != g.toMove {
		return errors.Wrapf(ErrIllegalMove, "no %s piece on %s", g.toMove, move.From)
	}
	if !piece.IsMoveAllowed(g.board, move.To) {
		return errors.Wrapf(ErrIllegalMove, "%s to %s", piece.String(), move.To)
	}
	promotes := piece.Type == Pawn && move.To.Y == piece.lastRank()
	if promotes && !validPromotion(move.Promotion) {
		return errors.Wrapf(ErrInvalidPromotion, "%q", move.Promotion)
	}

	g.board.SelectPiece(move.From, g.toMove)
	if !g.board.PlacePiece(move.To) {
		return errors.Wrapf(ErrIllegalMove, "%s to %s", piece.String(), move.To)
	}
	g.lastMove = &SimpleMove{From: move.From, To: move.To}
	if promotes {
		if err := g.board.ResolvePromotion(move.Promotion); err != nil {
			return err
		}
	}
	g.finishTurn()
	g.broadcastLocked()
	return nil
}

func validPromotion(kind PieceType) bool {
	switch kind {
	case Queen, Rook, Bishop, Knight:
		return true
	}
	return false
}

// Promote resolves a pending promotion for the side to move.
func (g *Game) Promote(playerID string, kind PieceType) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.authorize(playerID); err != nil {
		return err
	}
	if err := g.board.ResolvePromotion(kind); err != nil {
		return err
	}
	g.finishTurn()
	g.broadcastLocked()
	return nil
}

// Resign ends the game in favour of the opponent.
func (g *Game) Resign(playerID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.resolve != nil {
		return ErrGameOver
	}
	color, ok := g.colorOf(playerID)
	if !ok {
		return ErrNotInGame
	}
	g.end(ResultResignation, color.Opponent())
	g.broadcastLocked()
	return nil
}

func (g *Game) finishTurn() {
	mover := g.toMove
	g.clock(mover).Stop()
	g.toMove = mover.Opponent()

	if over, winner := g.board.GameOver(); over {
		g.isCheck = false
		g.end(ResultKingCaptured, winner)
		return
	}
	g.clock(g.toMove).Start()
	g.isCheck = g.board.InCheck(g.toMove)
	if g.isCheck {
		g.sound = "check"
	}
}

func (g *Game) end(result string, winner Color) {
	g.whiteClock.Stop()
	g.blackClock.Stop()
	g.resolve = &result
	g.winner = winner
	log.Infof("game %s over: %s, %s wins", g.ID, result, winner)
}

// GetState returns a snapshot of the game.
func (g *Game) GetState() GameState {
	g.mu.Lock()
	defer g.mu.Unlock()

	return g.state()
}

func (g *Game) state() GameState {
	st := GameState{
		Sound:          g.sound,
		Board:          g.board.Squares(),
		Layout:         g.board.Layout(),
		ToMove:         g.toMove,
		MoveHistory:    g.history.Moves(),
		Log:            g.history.Log(),
		CapturedPieces: CapturedPieces{White: append([]Piece{}, g.captured.White...), Black: append([]Piece{}, g.captured.Black...)},
		IsCheck:        g.isCheck,
		LegalMoves:     []Position{},
		Winner:         g.winner,
		Players:        g.players,
	}
	st.Players.White.TimeLeft = g.whiteClock.tenths()
	st.Players.Black.TimeLeft = g.blackClock.tenths()
	if sel, ok := g.board.Selected(); ok {
		st.SelectedSquare = &sel
		st.LegalMoves = g.board.AllowedMoves(sel)
	}
	if at, ok := g.board.PromotionPending(); ok {
		st.PromotionSquare = &at
	}
	if g.resolve != nil {
		result := *g.resolve
		st.Resolve = &result
	}
	if g.lastMove != nil {
		last := *g.lastMove
		st.LastMove = &last
	}
	return st
}

// Turns returns the recorded turns.
func (g *Game) Turns() []Turn {
	g.mu.Lock()
	defer g.mu.Unlock()

	return g.history.Replay()
}

// HistoryLog returns the text move log.
func (g *Game) HistoryLog() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	return g.history.Log()
}

// SaveHistory writes the text move log to path.
func (g *Game) SaveHistory(path string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	return g.history.Save(path)
}

func (g *Game) RegisterConnection(playerID string, conn Conn) error {
	connID := fmt.Sprintf("%p", conn)
	log.Debugf("game %s: registering connection %s for player %s", g.ID, connID, playerID)

	g.mu.Lock()
	isAuthorized := g.isPlayerInGame(playerID) || g.canSpectate()
	g.mu.Unlock()

	if !isAuthorized {
		return ErrNotAuthorized
	}

	g.connections.mu.Lock()
	if _, exists := g.connections.connections[playerID]; exists {
		// keep the existing connection and reject the new one
		g.connections.mu.Unlock()
		conn.WriteMessage(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(
				websocket.CloseNormalClosure,
				"Connection already exists",
			),
		)
		conn.Close()
		return nil
	}

	g.connections.connections[playerID] = NewSafeConn(conn)
	g.connections.mu.Unlock()
	log.Infof("game %s: registered connection %s for player %s", g.ID, connID, playerID)

	g.mu.Lock()
	g.broadcastLocked()
	g.mu.Unlock()
	return nil
}

// UnregisterConnection drops the player's connection if it is still conn.
func (g *Game) UnregisterConnection(playerID string, conn Conn) {
	g.connections.mu.Lock()
	defer g.connections.mu.Unlock()

	if current, exists := g.connections.connections[playerID]; exists {
		if current.wraps(conn) {
			log.Debugf("game %s: unregistering connection %p for player %s", g.ID, conn, playerID)
			delete(g.connections.connections, playerID)
		} else {
			log.Debugf("game %s: ignoring unregister of old connection %p for player %s", g.ID, conn, playerID)
		}
	}
}

// broadcastLocked sends a snapshot of the state to every connection. The
// caller holds g.mu; the writes happen on a separate goroutine.
func (g *Game) broadcastLocked() {
	st := g.state()
	g.stateSeq++
	go g.broadcastState(g.stateSeq, st)
}

func (g *Game) broadcastState(seq uint64, st GameState) {
	payload, err := json.Marshal(st)
	if err != nil {
		log.Errorf("game %s: failed to marshal state: %v", g.ID, err)
		return
	}

	g.connections.mu.RLock()
	activeConnections := make(map[string]*SafeConn, len(g.connections.connections))
	for playerID, conn := range g.connections.connections {
		activeConnections[playerID] = conn
	}
	g.connections.mu.RUnlock()

	for playerID, conn := range activeConnections {
		sent, err := conn.writeState(seq, ws.Message{
			Type:    ws.MessageTypeGameState,
			Payload: json.RawMessage(payload),
		})
		if !sent && err == nil {
			log.Debugf("game %s: skipped stale state %d for player %s", g.ID, seq, playerID)
		}
		if err != nil {
			log.Warnf("game %s: failed to send state to player %s: %v", g.ID, playerID, err)
			g.connections.mu.Lock()
			if g.connections.connections[playerID] == conn {
				delete(g.connections.connections, playerID)
			}
			g.connections.mu.Unlock()
		}
	}
}

// Close closes every connection of the game.
func (g *Game) Close() error {
	g.connections.mu.Lock()
	defer g.connections.mu.Unlock()

	var result *multierror.Error
	for playerID, conn := range g.connections.connections {
		if err := conn.Close(); err != nil {
			result = multierror.Append(result, errors.Wrapf(err, "close connection of %s", playerID))
		}
		delete(g.connections.connections, playerID)
	}
	return result.ErrorOrNil()
}
