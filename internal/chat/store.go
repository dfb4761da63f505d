// Package chat turns a live stream of conversation messages into a grouped,
// threaded view and mediates sends and reaction toggles against the store.
package chat

import (
	"context"
	"errors"
	"time"

	"github.com/talenthub/backend/internal/models"
)

var (
	ErrEmptyMessage    = errors.New("message is empty")
	ErrSendInProgress  = errors.New("a send is already in progress")
	ErrMessageNotFound = errors.New("message not found")
	ErrInvalidEmoji    = errors.New("invalid emoji")
	ErrViewClosed      = errors.New("view is closed")
)

type Order string

const (
	OrderAsc  Order = "asc"
	OrderDesc Order = "desc"
)

// Draft is a message before the store has assigned it an id.
type Draft struct {
	SenderID int64
	Content  string
	ReplyTo  *string
}

// MessageFields is a partial message update. Reactions is the full map the
// view computed. Reaction, when set, names the single change behind it so a
// store can replay it against the current row.
type MessageFields struct {
	Reactions models.Reactions
	Reaction  *ReactionChange
}

type ReactionChange struct {
	Emoji   string
	UserID  string
	Present bool
}

// MessageStore is the persistence and live feed behind a view. Subscribe
// delivers the current snapshot and then one snapshot per change until the
// returned function is called.
type MessageStore interface {
	Subscribe(ctx context.Context, conversationID int64, order Order, onData func([]models.ChatMessage)) (func(), error)
	AppendMessage(ctx context.Context, conversationID int64, draft Draft, timestamp time.Time) (string, error)
	UpdateMessageFields(ctx context.Context, conversationID int64, messageID string, fields MessageFields) error
}

type UserDirectory interface {
	GetUser(ctx context.Context, userID int64) (*models.DirectoryEntry, error)
}

// Notice is a transient, user-facing failure report.
type Notice struct {
	ConversationID int64  `json:"conversation_id"`
	Message        string `json:"message"`
}

type Notifier interface {
	Notify(Notice)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(Notice)

func (f NotifierFunc) Notify(n Notice) { f(n) }
