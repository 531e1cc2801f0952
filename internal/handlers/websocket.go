package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"rush-miniapp-backend/internal/services"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// WebSocketHandler pushes round events to connected players. It is the
// Publisher the round manager writes to; the hub goroutine owns the client
// map, so registration, disconnects and deliveries never race.
type WebSocketHandler struct {
	redisService *services.RedisService
	log          *zap.Logger
	hub          *webSocketHub
}

type webSocketHub struct {
	clients    map[int64]*websocket.Conn
	register   chan *wsClient
	unregister chan *wsClient
	deliver    chan *wsDelivery
	log        *zap.Logger
}

type wsClient struct {
	PlayerID int64
	Conn     *websocket.Conn
}

type wsDelivery struct {
	PlayerID int64
	Msg      wsMessage
}

type wsMessage struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

func NewWebSocketHandler(redisService *services.RedisService, log *zap.Logger) *WebSocketHandler {
	hub := &webSocketHub{
		clients:    make(map[int64]*websocket.Conn),
		register:   make(chan *wsClient),
		unregister: make(chan *wsClient),
		deliver:    make(chan *wsDelivery, 256),
		log:        log,
	}

	go hub.run()

	return &WebSocketHandler{
		redisService: redisService,
		log:          log,
		hub:          hub,
	}
}

// Publish implements services.Publisher. A full delivery buffer drops the
// event rather than stalling the round tick; the client resyncs from the
// round state endpoint.
func (h *WebSocketHandler) Publish(playerID int64, event services.RoundEvent) {
	h.enqueue(playerID, wsMessage{Type: event.Type, Data: event})
}

// enqueue hands a message to the hub goroutine. All writes to a connection go
// through the hub; reader goroutines never write, which is what the websocket
// library requires of concurrent use.
func (h *WebSocketHandler) enqueue(playerID int64, msg wsMessage) {
	select {
	case h.hub.deliver <- &wsDelivery{PlayerID: playerID, Msg: msg}:
	default:
		h.log.Warn("websocket delivery buffer full, dropping message",
			zap.Int64("player_id", playerID),
			zap.String("type", msg.Type))
	}
}

func (h *WebSocketHandler) HandleWebSocket(c *gin.Context) {
	playerID := c.GetInt64("user_id")

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error("failed to upgrade to websocket", zap.Error(err))
		return
	}

	client := &wsClient{
		PlayerID: playerID,
		Conn:     conn,
	}

	h.hub.register <- client

	defer func() {
		h.hub.unregister <- client
		conn.Close()
	}()

	h.sendBalance(client)

	for {
		var msg wsMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.log.Warn("websocket read error", zap.Int64("player_id", playerID), zap.Error(err))
			}
			break
		}

		h.handleMessage(client, &msg)
	}
}

func (h *WebSocketHandler) handleMessage(client *wsClient, msg *wsMessage) {
	switch msg.Type {
	case "PING":
		h.sendPong(client)
	case "BALANCE":
		h.sendBalance(client)
	}
}

func (h *WebSocketHandler) sendBalance(client *wsClient) {
	wallet, err := h.redisService.GetWallet(client.PlayerID)
	if err != nil {
		h.log.Warn("failed to load wallet for websocket", zap.Int64("player_id", client.PlayerID), zap.Error(err))
		return
	}

	h.enqueue(client.PlayerID, wsMessage{
		Type: "BALANCE_UPDATE",
		Data: gin.H{
			"balance":       wallet.Balance,
			"available":     wallet.Balance - wallet.LockedBalance,
			"total_wagered": wallet.TotalWagered,
			"total_won":     wallet.TotalWon,
		},
	})
}

func (h *WebSocketHandler) sendPong(client *wsClient) {
	h.enqueue(client.PlayerID, wsMessage{
		Type: "PONG",
		Data: gin.H{"timestamp": time.Now().Unix()},
	})
}

func (hub *webSocketHub) run() {
	for {
		select {
		case client := <-hub.register:
			// A reconnect replaces the previous socket.
			if old, ok := hub.clients[client.PlayerID]; ok {
				old.Close()
			}
			hub.clients[client.PlayerID] = client.Conn
			hub.log.Info("websocket client registered", zap.Int64("player_id", client.PlayerID))

		case client := <-hub.unregister:
			if conn, ok := hub.clients[client.PlayerID]; ok && conn == client.Conn {
				delete(hub.clients, client.PlayerID)
				hub.log.Info("websocket client unregistered", zap.Int64("player_id", client.PlayerID))
			}

		case d := <-hub.deliver:
			conn, ok := hub.clients[d.PlayerID]
			if !ok {
				continue
			}
			if err := conn.WriteJSON(d.Msg); err != nil {
				hub.log.Warn("websocket write failed", zap.Int64("player_id", d.PlayerID), zap.Error(err))
			}
		}
	}
}
