package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"github.com/talenthub/backend/internal/models"
)

const messageColumns = `id::text, conversation_id, sender_id, content, reply_to::text, reactions, is_read, created_at`

type MessageRepository struct {
	db DBTX
}

func NewMessageRepository(db DBTX) *MessageRepository {
	return &MessageRepository{db: db}
}

type CreateMessageInput struct {
	ID             string
	ConversationID int64
	SenderID       int64
	Content        string
	ReplyTo        *string
	CreatedAt      time.Time
}

func scanMessage(row rowScanner) (*models.ChatMessage, error) {
	var message models.ChatMessage
	var replyTo sql.NullString
	var rawReactions []byte
	err := row.Scan(
		&message.ID,
		&message.ConversationID,
		&message.SenderID,
		&message.Content,
		&replyTo,
		&rawReactions,
		&message.IsRead,
		&message.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if replyTo.Valid {
		value := replyTo.String
		message.ReplyTo = &value
	}
	message.Reactions = decodeReactions(rawReactions)
	return &message, nil
}

// decodeReactions is the single parse point for the reactions document. It
// fails closed: malformed JSON yields an empty map, empty emoji keys and
// blank or repeated user ids are dropped, and emptied entries are removed.
func decodeReactions(raw []byte) models.Reactions {
	reactions := models.Reactions{}
	if len(raw) == 0 {
		return reactions
	}

	var decoded map[string][]string
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return reactions
	}

	for emoji, users := range decoded {
		if strings.TrimSpace(emoji) == "" {
			continue
		}
		seen := make(map[string]struct{}, len(users))
		cleaned := make([]string, 0, len(users))
		for _, user := range users {
			if user == "" {
				continue
			}
			if _, ok := seen[user]; ok {
				continue
			}
			seen[user] = struct{}{}
			cleaned = append(cleaned, user)
		}
		if len(cleaned) > 0 {
			reactions[emoji] = cleaned
		}
	}
	return reactions
}

func encodeReactions(reactions models.Reactions) (string, error) {
	if reactions == nil {
		reactions = models.Reactions{}
	}
	encoded, err := json.Marshal(reactions)
	if err != nil {
		return "", err
	}
	return string(encoded), nil
}

func (r *MessageRepository) Create(ctx context.Context, input CreateMessageInput) (*models.ChatMessage, error) {
	query := `
		INSERT INTO messages (id, conversation_id, sender_id, content, reply_to, is_read, created_at)
		VALUES ($1::uuid, $2, $3, $4, $5::uuid, FALSE, $6)
		RETURNING ` + messageColumns
	return scanMessage(r.db.QueryRow(ctx, query,
		input.ID,
		input.ConversationID,
		input.SenderID,
		input.Content,
		input.ReplyTo,
		input.CreatedAt,
	))
}

func (r *MessageRepository) GetByID(ctx context.Context, conversationID int64, messageID string) (*models.ChatMessage, error) {
	query := `SELECT ` + messageColumns + ` FROM messages WHERE conversation_id = $1 AND id = $2::uuid`
	return scanMessage(r.db.QueryRow(ctx, query, conversationID, messageID))
}

// GetForUpdate locks the message row until the surrounding transaction ends.
func (r *MessageRepository) GetForUpdate(ctx context.Context, conversationID int64, messageID string) (*models.ChatMessage, error) {
	query := `SELECT ` + messageColumns + ` FROM messages WHERE conversation_id = $1 AND id = $2::uuid FOR UPDATE`
	return scanMessage(r.db.QueryRow(ctx, query, conversationID, messageID))
}

func (r *MessageRepository) UpdateReactions(
	ctx context.Context,
	conversationID int64,
	messageID string,
	reactions models.Reactions,
) (*models.ChatMessage, error) {
	encoded, err := encodeReactions(reactions)
	if err != nil {
		return nil, err
	}
	query := `
		UPDATE messages
		SET reactions = $3::jsonb
		WHERE conversation_id = $1 AND id = $2::uuid
		RETURNING ` + messageColumns
	return scanMessage(r.db.QueryRow(ctx, query, conversationID, messageID, encoded))
}

func (r *MessageRepository) ListByConversation(
	ctx context.Context,
	conversationID int64,
	limit int,
	offset int,
	ascending bool,
) ([]models.ChatMessage, int, error) {
	totalQuery := `
		SELECT COUNT(*)
		FROM messages
		WHERE conversation_id = $1
	`

	var total int
	if err := r.db.QueryRow(ctx, totalQuery, conversationID).Scan(&total); err != nil {
		return nil, 0, err
	}

	direction := "DESC"
	if ascending {
		direction = "ASC"
	}
	query := `
		SELECT ` + messageColumns + `
		FROM messages
		WHERE conversation_id = $1
		ORDER BY created_at ` + direction + `, id ` + direction + `
		LIMIT $2 OFFSET $3
	`

	messages, err := r.collect(ctx, query, conversationID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	return messages, total, nil
}

// ListWindow returns the newest limit messages in the requested order.
func (r *MessageRepository) ListWindow(
	ctx context.Context,
	conversationID int64,
	limit int,
	ascending bool,
) ([]models.ChatMessage, error) {
	query := `
		SELECT ` + messageColumns + `
		FROM messages
		WHERE conversation_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`
	if ascending {
		query = `SELECT * FROM (` + query + `) recent ORDER BY created_at ASC, id ASC`
	}
	return r.collect(ctx, query, conversationID, limit)
}

func (r *MessageRepository) collect(ctx context.Context, query string, args ...any) ([]models.ChatMessage, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	messages := make([]models.ChatMessage, 0)
	for rows.Next() {
		message, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		messages = append(messages, *message)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return messages, nil
}

func (r *MessageRepository) MarkMessagesRead(
	ctx context.Context,
	messageIDs []string,
	readerID int64,
) error {
	if len(messageIDs) == 0 {
		return nil
	}
	_, err := r.db.Exec(ctx, `
		UPDATE messages
		SET is_read = TRUE
		WHERE id = ANY($1::uuid[])
		  AND sender_id <> $2
		  AND is_read = FALSE
	`, messageIDs, readerID)
	return err
}
