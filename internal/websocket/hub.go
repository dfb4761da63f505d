package chatws

import (
	"encoding/json"
	"log"
	"strconv"
	"time"

	"github.com/talenthub/backend/internal/chat"
)

// Hub tracks connected clients per user and fans out inbox notifications.
type Hub struct {
	clients    map[string]map[*Client]struct{}
	register   chan *Client
	unregister chan *Client
	broadcast  chan *Message
}

type Message struct {
	Type           string         `json:"type"`
	ConversationID string         `json:"conversation_id,omitempty"`
	Content        string         `json:"content,omitempty"`
	View           *chat.Snapshot `json:"view,omitempty"`
	Timestamp      string         `json:"timestamp"`

	recipients []string
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[string]map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *Message, 64),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			set, ok := h.clients[client.userID]
			if !ok {
				set = make(map[*Client]struct{})
				h.clients[client.userID] = set
			}
			set[client] = struct{}{}
		case client := <-h.unregister:
			set, ok := h.clients[client.userID]
			if !ok {
				continue
			}
			if _, exists := set[client]; exists {
				delete(set, client)
				client.closeSend()
			}
			if len(set) == 0 {
				delete(h.clients, client.userID)
			}
		case message := <-h.broadcast:
			h.deliver(message)
		}
	}
}

func (h *Hub) Register(client *Client) {
	h.register <- client
}

func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

// NotifyConversation pings every participant connection that does not have
// the conversation open. Open views already receive the new snapshot.
func (h *Hub) NotifyConversation(conversationID int64, participantIDs []int64) {
	recipients := make([]string, 0, len(participantIDs))
	for _, id := range participantIDs {
		recipients = append(recipients, strconv.FormatInt(id, 10))
	}

	message := &Message{
		Type:           "conversation_updated",
		ConversationID: strconv.FormatInt(conversationID, 10),
		Timestamp:      formatTimestamp(time.Now()),
		recipients:     recipients,
	}

	select {
	case h.broadcast <- message:
	default:
		log.Printf("chat hub broadcast queue full, dropping update for conversation %d", conversationID)
	}
}

func (h *Hub) deliver(message *Message) {
	encoded, err := encodeMessage(message)
	if err != nil {
		log.Printf("chat hub encode message: %v", err)
		return
	}

	conversationID, _ := strconv.ParseInt(message.ConversationID, 10, 64)
	for _, userID := range message.recipients {
		h.sendToUser(userID, conversationID, encoded)
	}
}

func (h *Hub) sendToUser(userID string, conversationID int64, payload []byte) {
	set, ok := h.clients[userID]
	if !ok {
		return
	}

	for client := range set {
		if client.isViewing(conversationID) {
			continue
		}
		if !client.enqueue(payload) {
			delete(set, client)
			client.closeSend()
		}
	}
	if len(set) == 0 {
		delete(h.clients, userID)
	}
}

func encodeMessage(message *Message) ([]byte, error) {
	return json.Marshal(message)
}

func formatTimestamp(ts time.Time) string {
	return ts.UTC().Format(time.RFC3339)
}
