package chat

import (
	"context"
	"log"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/talenthub/backend/internal/models"
)

// Viewer is the user a view renders for.
type Viewer struct {
	UserID   int64
	Location *time.Location
}

type Composer struct {
	Content string  `json:"content"`
	ReplyTo *string `json:"reply_to,omitempty"`
}

type Snapshot struct {
	ConversationID int64    `json:"conversation_id"`
	Type           string   `json:"type"`
	Name           *string  `json:"name,omitempty"`
	Items          []Item   `json:"items"`
	Composer       Composer `json:"composer"`
	Sending        bool     `json:"sending"`
}

type ViewConfig struct {
	Store     MessageStore
	Directory UserDirectory
	Notifier  Notifier
	// OnRender receives every new snapshot. It may be called from the store's
	// goroutine, the refresh ticker or the caller of Send/ToggleReaction.
	OnRender        func(Snapshot)
	Order           Order
	RefreshInterval time.Duration
	Now             func() time.Time
}

// View is one open conversation for one viewer. It holds the latest message
// snapshot from the store, the composer state and a ticker that re-renders
// relative timestamps.
type View struct {
	conversation models.Conversation
	viewer       Viewer
	cfg          ViewConfig

	mu           sync.Mutex
	messages     []models.ChatMessage
	participants map[int64]models.DirectoryEntry
	composer     Composer
	sending      bool
	opened       bool
	closed       bool
	ticking      bool
	unsubscribe  func()
	stop         chan struct{}
	done         chan struct{}
}

func NewView(conversation models.Conversation, viewer Viewer, cfg ViewConfig) *View {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Order == "" {
		cfg.Order = OrderAsc
	}
	if viewer.Location == nil {
		viewer.Location = time.Local
	}

	participants := make(map[int64]models.DirectoryEntry, len(conversation.ParticipantDetails))
	for id, entry := range conversation.ParticipantDetails {
		participants[id] = entry
	}

	return &View{
		conversation: conversation,
		viewer:       viewer,
		cfg:          cfg,
		participants: participants,
		stop:         make(chan struct{}),
		done:         make(chan struct{}),
	}
}

func (v *View) ConversationID() int64 {
	return v.conversation.ID
}

// Open resolves participant details, subscribes to the message feed and
// starts the label refresh ticker. Opening an open view is a no-op.
func (v *View) Open(ctx context.Context) error {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return ErrViewClosed
	}
	if v.opened {
		v.mu.Unlock()
		return nil
	}
	v.opened = true
	v.mu.Unlock()

	v.loadParticipants(ctx)

	unsubscribe, err := v.cfg.Store.Subscribe(ctx, v.conversation.ID, v.cfg.Order, v.onSnapshot)
	if err != nil {
		v.mu.Lock()
		v.opened = false
		v.mu.Unlock()
		return err
	}

	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		unsubscribe()
		return ErrViewClosed
	}
	v.unsubscribe = unsubscribe
	if v.cfg.RefreshInterval > 0 {
		v.ticking = true
		go v.refreshLoop(v.cfg.RefreshInterval)
	}
	v.mu.Unlock()

	return nil
}

// Close unsubscribes from the feed and stops the ticker. It is safe to call
// more than once.
func (v *View) Close() {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return
	}
	v.closed = true
	unsubscribe := v.unsubscribe
	v.unsubscribe = nil
	ticking := v.ticking
	v.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
	close(v.stop)
	if ticking {
		<-v.done
	}
}

func (v *View) loadParticipants(ctx context.Context) {
	if v.cfg.Directory == nil {
		return
	}
	for _, id := range v.conversation.Participants {
		v.mu.Lock()
		_, known := v.participants[id]
		v.mu.Unlock()
		if known {
			continue
		}

		entry, err := v.cfg.Directory.GetUser(ctx, id)
		if err != nil {
			log.Printf("chat: resolve participant %d: %v", id, err)
			continue
		}
		v.mu.Lock()
		v.participants[id] = *entry
		v.mu.Unlock()
	}
}

func (v *View) onSnapshot(messages []models.ChatMessage) {
	copied := append([]models.ChatMessage(nil), messages...)

	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return
	}
	v.messages = copied
	v.mu.Unlock()

	v.emit()
}

func (v *View) refreshLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer func() {
		ticker.Stop()
		close(v.done)
	}()

	for {
		select {
		case <-ticker.C:
			v.emit()
		case <-v.stop:
			return
		}
	}
}

func (v *View) emit() {
	if v.cfg.OnRender == nil {
		return
	}
	v.mu.Lock()
	closed := v.closed
	v.mu.Unlock()
	if closed {
		return
	}
	v.cfg.OnRender(v.Render())
}

// Render builds a snapshot of the current state.
func (v *View) Render() Snapshot {
	v.mu.Lock()
	messages := append([]models.ChatMessage(nil), v.messages...)
	participants := make(map[int64]models.DirectoryEntry, len(v.participants))
	for id, entry := range v.participants {
		participants[id] = entry
	}
	composer := v.composer
	sending := v.sending
	v.mu.Unlock()

	return Snapshot{
		ConversationID: v.conversation.ID,
		Type:           v.conversation.Type,
		Name:           v.conversation.Name,
		Items: Render(messages, RenderOptions{
			ViewerID:         v.viewer.UserID,
			ConversationType: v.conversation.Type,
			Participants:     participants,
			Now:              v.cfg.Now(),
			Location:         v.viewer.Location,
		}),
		Composer: composer,
		Sending:  sending,
	}
}

func (v *View) Messages() []models.ChatMessage {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]models.ChatMessage(nil), v.messages...)
}

func (v *View) Composer() Composer {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.composer
}

// Sending reports whether a send is in flight.
func (v *View) Sending() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.sending
}

// SetComposer replaces the draft text and the message being replied to.
func (v *View) SetComposer(content string, replyTo *string) {
	v.mu.Lock()
	v.composer = Composer{Content: content, ReplyTo: replyTo}
	v.mu.Unlock()
}

// Send submits the composer. On success the composer is cleared; on failure it
// is left intact and a notice is raised. Only one send runs at a time.
func (v *View) Send(ctx context.Context) error {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return ErrViewClosed
	}
	if v.sending {
		v.mu.Unlock()
		return ErrSendInProgress
	}
	draft := Draft{
		SenderID: v.viewer.UserID,
		Content:  strings.TrimSpace(v.composer.Content),
		ReplyTo:  v.composer.ReplyTo,
	}
	if draft.Content == "" {
		v.mu.Unlock()
		return ErrEmptyMessage
	}
	v.sending = true
	v.mu.Unlock()

	defer func() {
		v.mu.Lock()
		v.sending = false
		v.mu.Unlock()
		v.emit()
	}()
	v.emit()

	if _, err := v.cfg.Store.AppendMessage(ctx, v.conversation.ID, draft, v.cfg.Now().UTC()); err != nil {
		log.Printf("chat: send message to conversation %d: %v", v.conversation.ID, err)
		v.notify("Failed to send message")
		return err
	}

	v.mu.Lock()
	v.composer = Composer{}
	v.mu.Unlock()
	return nil
}

// ToggleReaction flips the viewer's reaction on a loaded message. The local
// snapshot changes immediately and is rolled back if the store rejects the
// update.
func (v *View) ToggleReaction(ctx context.Context, messageID, emoji string) error {
	emoji = strings.TrimSpace(emoji)
	if emoji == "" {
		return ErrInvalidEmoji
	}

	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return ErrViewClosed
	}
	if v.indexOf(messageID) < 0 {
		v.mu.Unlock()
		return ErrMessageNotFound
	}
	v.mu.Unlock()

	user := strconv.FormatInt(v.viewer.UserID, 10)
	var previous, next models.Reactions
	applied := false

	err := Execute(ctx, Command{
		Apply: func() {
			applied = v.patchReactions(messageID, func(current models.Reactions) models.Reactions {
				previous = current
				next = ToggleReaction(current, emoji, user)
				return next
			})
			v.emit()
		},
		Commit: func(ctx context.Context) error {
			if !applied {
				return ErrMessageNotFound
			}
			return v.cfg.Store.UpdateMessageFields(ctx, v.conversation.ID, messageID, MessageFields{
				Reactions: next,
				Reaction: &ReactionChange{
					Emoji:   emoji,
					UserID:  user,
					Present: HasReacted(next, emoji, user),
				},
			})
		},
		Revert: func() {
			if !applied {
				return
			}
			if v.restoreReactions(messageID, next, previous) {
				v.emit()
			}
		},
	})
	if err != nil {
		log.Printf("chat: toggle reaction on message %s: %v", messageID, err)
		v.notify("Failed to update reaction")
		return err
	}
	return nil
}

func (v *View) patchReactions(messageID string, patch func(models.Reactions) models.Reactions) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	idx := v.indexOf(messageID)
	if idx < 0 {
		return false
	}
	v.messages[idx].Reactions = patch(v.messages[idx].Reactions)
	return true
}

// restoreReactions puts previous back only while the message still carries
// the optimistic map. A snapshot delivered since then comes from the store
// and is left alone.
func (v *View) restoreReactions(messageID string, optimistic, previous models.Reactions) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	idx := v.indexOf(messageID)
	if idx < 0 || !sameReactions(v.messages[idx].Reactions, optimistic) {
		return false
	}
	v.messages[idx].Reactions = previous
	return true
}

func (v *View) indexOf(messageID string) int {
	for i := range v.messages {
		if v.messages[i].ID == messageID {
			return i
		}
	}
	return -1
}

func (v *View) notify(message string) {
	if v.cfg.Notifier == nil {
		return
	}
	v.cfg.Notifier.Notify(Notice{ConversationID: v.conversation.ID, Message: message})
}
