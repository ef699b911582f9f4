package server

import (
	"encoding/json"
	"net/http"
	"strings"

	"usage-watch/src/metrics"
	"usage-watch/src/models"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// -----------------------------------------------------------------------------
// Hub Pattern Implementation
// -----------------------------------------------------------------------------

// handleWebsockets is the main Hub loop. It owns the clients map.
func (s *APIServer) handleWebsockets() {
	for {
		select {
		case <-s.quit:
			for client := range s.clients {
				s.dropClient(client)
			}
			return

		case client := <-s.register:
			s.clients[client] = struct{}{}
			s.connections.Add(1)
			metrics.WebSocketConnectionsActive.Inc()

			// Send initial state on connect
			s.stateMutex.RLock()
			initial := filterState(s.latestState, client.Subscription(), "INITIAL")
			s.stateMutex.RUnlock()
			client.trySend(initial)

		case client := <-s.unregister:
			if _, ok := s.clients[client]; ok {
				s.dropClient(client)
			}

		case message := <-s.broadcast:
			for client := range s.clients {
				filtered := filterState(message, client.Subscription(), message.Type)
				if len(filtered.Records) == 0 && len(message.Records) > 0 {
					// Nothing this client subscribed to
					continue
				}
				if !client.trySend(filtered) {
					// Client too slow, disconnect to prevent Hub blocking
					s.dropClient(client)
				}
			}
		}
	}
}

// -----------------------------------------------------------------------------

func (s *APIServer) dropClient(client *Client) {
	delete(s.clients, client)
	client.closeSend()
	s.connections.Add(-1)
	metrics.WebSocketConnectionsActive.Dec()
}

// -----------------------------------------------------------------------------
// Data Exchange Interface Implementation
// -----------------------------------------------------------------------------

// UpdateLatest replaces the cached state without pushing it.
func (s *APIServer) UpdateLatest(update models.MLatestData) {
	s.stateMutex.Lock()
	defer s.stateMutex.Unlock()

	if update.Records == nil {
		update.Records = []models.MAnomalyRecord{}
	}
	s.latestState = &update
}

// -----------------------------------------------------------------------------

// Broadcast caches update as the latest state and queues it for every
// connected client. A full queue drops the push; clients still get the
// cached state on their next subscribe.
func (s *APIServer) Broadcast(update models.MLatestData) {
	if update.Type == "" {
		update.Type = "UPDATE"
	}
	s.UpdateLatest(update)

	s.stateMutex.RLock()
	state := s.latestState
	s.stateMutex.RUnlock()

	select {
	case s.broadcast <- state:
	default:
		s.Logger.Warning("Broadcast queue full, dropping update of run %s", update.Summary.RunID)
	}
}

// -----------------------------------------------------------------------------
// WebSocket Handlers
// -----------------------------------------------------------------------------

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// -----------------------------------------------------------------------------

func (s *APIServer) handleWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.Logger.Info("Failed to upgrade websocket: %v", err)
		return
	}

	client := &Client{
		hub:  s,
		conn: conn,
		// Buffered channel to prevent blocking the Hub loop
		send: make(chan *models.MLatestData, 256),
	}

	select {
	case s.register <- client:
	case <-s.quit:
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}

// -----------------------------------------------------------------------------
// Client Message Handling
// -----------------------------------------------------------------------------

// HandleClientMessage applies a subscribe command and answers with the
// cached state filtered through it. Malformed commands close the connection.
func (s *APIServer) HandleClientMessage(client *Client, message []byte) {
	var cmd models.MSubscribeCommand
	if err := json.Unmarshal(message, &cmd); err != nil {
		s.Logger.Info("Failed to parse client command: %v, disconnecting client", err)
		client.conn.Close()
		return
	}

	if cmd.Command != "subscribe" {
		return
	}

	sub, err := subscriptionFromCommand(cmd)
	if err != nil {
		s.Logger.Info("Rejected subscription: %v", err)
		return
	}
	client.SetSubscription(sub)

	s.stateMutex.RLock()
	response := filterState(s.latestState, sub, "INITIAL")
	s.stateMutex.RUnlock()

	// A full queue is pruned by the hub on the next broadcast; a dropped
	// client simply gets nothing.
	client.trySend(response)
}

// -----------------------------------------------------------------------------

func subscriptionFromCommand(cmd models.MSubscribeCommand) (models.MRecordSubscription, error) {
	sub := models.MRecordSubscription{CustomerIDs: cmd.CustomerIDs}

	if cmd.Utility != "" {
		u, err := models.ParseUtilityType(cmd.Utility)
		if err != nil {
			return sub, err
		}
		sub.Utility = u
	}
	if cmd.MinSeverity != "" {
		sev, err := models.ParseSeverity(strings.ToLower(cmd.MinSeverity))
		if err != nil {
			return sub, err
		}
		sub.MinSeverity = sev
	}
	return sub, nil
}
