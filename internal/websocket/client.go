package chatws

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"strconv"
	"sync"
	"time"

	websocket "github.com/gofiber/contrib/websocket"
	"github.com/talenthub/backend/internal/chat"
	"github.com/talenthub/backend/internal/metrics"
	"github.com/talenthub/backend/internal/models"
)

const maxOpenViews = 20

// Backend is what a connection needs from the chat service.
type Backend interface {
	chat.MessageStore
	chat.UserDirectory
	GetConversation(ctx context.Context, actorID int64, role string, conversationID int64) (*models.Conversation, error)
}

type Limiter interface {
	Allow(key string) bool
}

type ClientOptions struct {
	Limiter         Limiter
	Location        *time.Location
	RefreshInterval time.Duration
	Now             func() time.Time
}

type Client struct {
	hub     *Hub
	conn    *websocket.Conn
	userID  string
	actorID int64
	role    string
	backend Backend
	opts    ClientOptions

	sendMu sync.Mutex
	send   chan []byte
	closed bool

	viewsMu sync.Mutex
	views   map[int64]*chat.View
}

func NewClient(hub *Hub, conn *websocket.Conn, userID, role string, backend Backend, opts ClientOptions) *Client {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	actorID, _ := strconv.ParseInt(userID, 10, 64)
	return &Client{
		hub:     hub,
		conn:    conn,
		userID:  userID,
		actorID: actorID,
		role:    role,
		backend: backend,
		opts:    opts,
		send:    make(chan []byte, 32),
		views:   make(map[int64]*chat.View),
	}
}

func (c *Client) enqueue(payload []byte) bool {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- payload:
		return true
	default:
		return false
	}
}

func (c *Client) closeSend() {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

func (c *Client) isViewing(conversationID int64) bool {
	c.viewsMu.Lock()
	defer c.viewsMu.Unlock()
	_, ok := c.views[conversationID]
	return ok
}

func (c *Client) ReadPump() {
	ctx, cancel := context.WithCancel(context.Background())
	metrics.WSConnections.Inc()
	defer func() {
		cancel()
		c.closeViews()
		metrics.WSConnections.Dec()
		c.hub.Unregister(c)
		_ = c.conn.Close()
	}()

	if c.actorID <= 0 {
		writeError(c, "invalid user")
		return
	}

	for {
		_, payload, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		c.handle(ctx, payload)
	}
}

func (c *Client) handle(ctx context.Context, payload []byte) {
	frame, err := normalizeFrame(payload)
	if err != nil {
		writeError(c, err.Error())
		return
	}

	if frame.Type != frameClose && c.opts.Limiter != nil && !c.opts.Limiter.Allow(c.userID) {
		writeError(c, "rate limit exceeded")
		return
	}

	switch frame.Type {
	case frameOpen:
		c.openView(ctx, frame.ConversationID)
	case frameClose:
		c.closeView(frame.ConversationID)
	case frameCompose:
		view, ok := c.view(frame.ConversationID)
		if !ok {
			writeError(c, "conversation is not open")
			return
		}
		view.SetComposer(frame.Content, frame.ReplyTo)
	case frameSend:
		view, ok := c.view(frame.ConversationID)
		if !ok {
			writeError(c, "conversation is not open")
			return
		}
		c.sendFromView(ctx, view)
	case frameMessage:
		c.sendMessage(ctx, frame)
	case frameReact:
		view, ok := c.view(frame.ConversationID)
		if !ok {
			writeError(c, "conversation is not open")
			return
		}
		if err := view.ToggleReaction(ctx, frame.MessageID, frame.Emoji); err != nil {
			switch {
			case errors.Is(err, chat.ErrMessageNotFound):
				writeError(c, "message not found")
			case errors.Is(err, chat.ErrInvalidEmoji):
				writeError(c, "invalid emoji")
			}
		}
	}
}

func (c *Client) view(conversationID int64) (*chat.View, bool) {
	c.viewsMu.Lock()
	defer c.viewsMu.Unlock()
	view, ok := c.views[conversationID]
	return view, ok
}

func (c *Client) openView(ctx context.Context, conversationID int64) {
	if view, ok := c.view(conversationID); ok {
		c.pushView(view.Render())
		return
	}

	c.viewsMu.Lock()
	tooMany := len(c.views) >= maxOpenViews
	c.viewsMu.Unlock()
	if tooMany {
		writeError(c, "too many open conversations")
		return
	}

	conversation, err := c.backend.GetConversation(ctx, c.actorID, c.role, conversationID)
	if err != nil {
		writeError(c, "conversation not found")
		return
	}

	view := chat.NewView(*conversation, chat.Viewer{UserID: c.actorID, Location: c.opts.Location}, chat.ViewConfig{
		Store:           c.backend,
		Directory:       c.backend,
		Notifier:        chat.NotifierFunc(c.notice),
		OnRender:        c.pushView,
		Order:           chat.OrderAsc,
		RefreshInterval: c.opts.RefreshInterval,
		Now:             c.opts.Now,
	})

	c.viewsMu.Lock()
	c.views[conversationID] = view
	c.viewsMu.Unlock()

	if err := view.Open(ctx); err != nil {
		c.viewsMu.Lock()
		delete(c.views, conversationID)
		c.viewsMu.Unlock()
		log.Printf("chat: open conversation %d for user %s: %v", conversationID, c.userID, err)
		writeError(c, "failed to open conversation")
		return
	}
	metrics.OpenViews.Inc()
}

func (c *Client) closeView(conversationID int64) {
	c.viewsMu.Lock()
	view, ok := c.views[conversationID]
	delete(c.views, conversationID)
	c.viewsMu.Unlock()

	if ok {
		view.Close()
		metrics.OpenViews.Dec()
	}
}

func (c *Client) closeViews() {
	c.viewsMu.Lock()
	views := c.views
	c.views = make(map[int64]*chat.View)
	c.viewsMu.Unlock()

	for _, view := range views {
		view.Close()
		metrics.OpenViews.Dec()
	}
}

func (c *Client) sendFromView(ctx context.Context, view *chat.View) {
	err := view.Send(ctx)
	switch {
	case errors.Is(err, chat.ErrEmptyMessage):
		writeError(c, "message is empty")
	case errors.Is(err, chat.ErrSendInProgress):
		writeError(c, "a message is already being sent")
	}
}

// sendMessage handles a one-shot send. With the conversation open it goes
// through the view so the composer state stays consistent.
func (c *Client) sendMessage(ctx context.Context, frame inboundFrame) {
	if view, ok := c.view(frame.ConversationID); ok {
		view.SetComposer(frame.Content, frame.ReplyTo)
		c.sendFromView(ctx, view)
		return
	}

	draft := chat.Draft{SenderID: c.actorID, Content: frame.Content, ReplyTo: frame.ReplyTo}
	if _, err := c.backend.AppendMessage(ctx, frame.ConversationID, draft, c.opts.Now().UTC()); err != nil {
		log.Printf("chat: send message to conversation %d: %v", frame.ConversationID, err)
		writeError(c, "failed to send message")
	}
}

func (c *Client) pushView(snapshot chat.Snapshot) {
	payload, err := json.Marshal(Message{
		Type:           "view",
		ConversationID: strconv.FormatInt(snapshot.ConversationID, 10),
		View:           &snapshot,
		Timestamp:      formatTimestamp(c.opts.Now()),
	})
	if err != nil {
		log.Printf("chat: encode view: %v", err)
		return
	}
	c.enqueue(payload)
}

func (c *Client) notice(n chat.Notice) {
	payload, err := json.Marshal(Message{
		Type:           "notice",
		ConversationID: strconv.FormatInt(n.ConversationID, 10),
		Content:        n.Message,
		Timestamp:      formatTimestamp(c.opts.Now()),
	})
	if err != nil {
		return
	}
	c.enqueue(payload)
}

func (c *Client) WritePump() {
	defer func() {
		_ = c.conn.Close()
	}()

	for payload := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			return
		}
	}
}

func writeError(client *Client, message string) {
	payload, err := json.Marshal(Message{
		Type:      "error",
		Content:   message,
		Timestamp: formatTimestamp(time.Now()),
	})
	if err != nil {
		return
	}
	if !client.enqueue(payload) {
		go client.hub.Unregister(client)
	}
}
