package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/talenthub/backend/internal/models"
)

const conversationColumns = `
			c.id,
			c.type,
			c.name,
			c.created_by,
			COALESCE((
				SELECT array_agg(cp.user_id ORDER BY cp.user_id)
				FROM conversation_participants cp
				WHERE cp.conversation_id = c.id
			), '{}'::bigint[]),
			c.created_at,
			c.updated_at`

type ConversationRepository struct {
	db DBTX
}

func NewConversationRepository(db DBTX) *ConversationRepository {
	return &ConversationRepository{db: db}
}

func scanConversation(row rowScanner) (*models.Conversation, error) {
	var conversation models.Conversation
	err := row.Scan(
		&conversation.ID,
		&conversation.Type,
		&conversation.Name,
		&conversation.CreatedBy,
		&conversation.Participants,
		&conversation.CreatedAt,
		&conversation.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &conversation, nil
}

func pairKey(a, b int64) string {
	if a > b {
		a, b = b, a
	}
	return fmt.Sprintf("%d:%d", a, b)
}

// CreateOrGetIndividual returns the two-party conversation between creatorID
// and otherID, creating it on first use. Callers run it inside a transaction.
func (r *ConversationRepository) CreateOrGetIndividual(
	ctx context.Context,
	creatorID int64,
	otherID int64,
) (*models.Conversation, error) {
	var conversationID int64
	err := r.db.QueryRow(ctx, `
		INSERT INTO conversations (type, created_by, pair_key)
		VALUES ('individual', $1, $2)
		ON CONFLICT (pair_key)
		DO UPDATE SET updated_at = conversations.updated_at
		RETURNING id
	`, creatorID, pairKey(creatorID, otherID)).Scan(&conversationID)
	if err != nil {
		return nil, err
	}

	if err := r.AddParticipants(ctx, conversationID, []int64{creatorID, otherID}); err != nil {
		return nil, err
	}

	return r.GetByID(ctx, conversationID)
}

func (r *ConversationRepository) CreateGroup(
	ctx context.Context,
	creatorID int64,
	name string,
	participantIDs []int64,
) (*models.Conversation, error) {
	var conversationID int64
	err := r.db.QueryRow(ctx, `
		INSERT INTO conversations (type, name, created_by)
		VALUES ('group', $1, $2)
		RETURNING id
	`, name, creatorID).Scan(&conversationID)
	if err != nil {
		return nil, err
	}

	if err := r.AddParticipants(ctx, conversationID, append([]int64{creatorID}, participantIDs...)); err != nil {
		return nil, err
	}

	return r.GetByID(ctx, conversationID)
}

func (r *ConversationRepository) AddParticipants(ctx context.Context, conversationID int64, userIDs []int64) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO conversation_participants (conversation_id, user_id)
		SELECT $1, UNNEST($2::bigint[])
		ON CONFLICT DO NOTHING
	`, conversationID, userIDs)
	return err
}

func (r *ConversationRepository) GetByID(ctx context.Context, conversationID int64) (*models.Conversation, error) {
	query := `SELECT ` + conversationColumns + ` FROM conversations c WHERE c.id = $1`
	return scanConversation(r.db.QueryRow(ctx, query, conversationID))
}

func (r *ConversationRepository) GetByIDForParticipant(
	ctx context.Context,
	conversationID int64,
	participantID int64,
) (*models.Conversation, error) {
	query := `
		SELECT ` + conversationColumns + `
		FROM conversations c
		WHERE c.id = $1
		  AND EXISTS (
			SELECT 1 FROM conversation_participants cp
			WHERE cp.conversation_id = c.id AND cp.user_id = $2
		  )
	`
	return scanConversation(r.db.QueryRow(ctx, query, conversationID, participantID))
}

func (r *ConversationRepository) ListForParticipant(
	ctx context.Context,
	participantID int64,
) ([]models.ConversationSummary, error) {
	query := `
		SELECT ` + conversationColumns + `,
			lm.id::text,
			lm.sender_id,
			lm.content,
			lm.reply_to::text,
			lm.is_read,
			lm.created_at,
			COALESCE(uc.unread_count, 0)
		FROM conversations c
		JOIN conversation_participants me
		  ON me.conversation_id = c.id AND me.user_id = $1
		LEFT JOIN LATERAL (
			SELECT id, sender_id, content, reply_to, is_read, created_at
			FROM messages
			WHERE conversation_id = c.id
			ORDER BY created_at DESC, id DESC
			LIMIT 1
		) lm ON TRUE
		LEFT JOIN LATERAL (
			SELECT COUNT(*) AS unread_count
			FROM messages
			WHERE conversation_id = c.id
			  AND sender_id <> $1
			  AND is_read = FALSE
		) uc ON TRUE
		ORDER BY COALESCE(lm.created_at, c.updated_at, c.created_at) DESC, c.id DESC
	`

	rows, err := r.db.Query(ctx, query, participantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	summaries := make([]models.ConversationSummary, 0)
	for rows.Next() {
		var summary models.ConversationSummary
		var messageID sql.NullString
		var messageSenderID sql.NullInt64
		var messageContent sql.NullString
		var messageReplyTo sql.NullString
		var messageIsRead sql.NullBool
		var messageCreatedAt sql.NullTime

		if err := rows.Scan(
			&summary.ID,
			&summary.Type,
			&summary.Name,
			&summary.CreatedBy,
			&summary.Participants,
			&summary.CreatedAt,
			&summary.UpdatedAt,
			&messageID,
			&messageSenderID,
			&messageContent,
			&messageReplyTo,
			&messageIsRead,
			&messageCreatedAt,
			&summary.UnreadCount,
		); err != nil {
			return nil, err
		}

		if messageID.Valid {
			summary.LastMessage = &models.ChatMessage{
				ID:             messageID.String,
				ConversationID: summary.ID,
				SenderID:       messageSenderID.Int64,
				Content:        messageContent.String,
				IsRead:         messageIsRead.Bool,
				CreatedAt:      messageCreatedAt.Time,
			}
			if messageReplyTo.Valid {
				replyTo := messageReplyTo.String
				summary.LastMessage.ReplyTo = &replyTo
			}
		}

		summaries = append(summaries, summary)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return summaries, nil
}

func (r *ConversationRepository) Touch(ctx context.Context, conversationID int64) error {
	_, err := r.db.Exec(ctx, `
		UPDATE conversations
		SET updated_at = NOW()
		WHERE id = $1
	`, conversationID)
	return err
}
