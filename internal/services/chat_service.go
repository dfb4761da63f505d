package services

import (
	"context"
	"errors"
	"log"
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/talenthub/backend/internal/chat"
	"github.com/talenthub/backend/internal/metrics"
	"github.com/talenthub/backend/internal/models"
	"github.com/talenthub/backend/internal/repository"
)

const (
	defaultFeedWindow   = 100
	maxGroupNameLength  = 100
	maxEmojiLength      = 32
	maxMessageRuneCount = 10000
)

type directoryReader interface {
	GetByID(ctx context.Context, id int64) (*models.User, error)
	GetDirectoryEntry(ctx context.Context, id int64) (*models.DirectoryEntry, error)
}

// ChatService owns conversations and messages. It is also the MessageStore
// and UserDirectory behind chat views.
type ChatService struct {
	db               *pgxpool.Pool
	conversationRepo *repository.ConversationRepository
	messageRepo      *repository.MessageRepository
	userRepo         directoryReader
	feed             *messageFeed
	now              func() time.Time

	listenersMu sync.RWMutex
	listeners   []func(*ChatDelivery)
}

// ChatDelivery describes a stored message and who else should hear about it.
type ChatDelivery struct {
	Conversation *models.Conversation
	Message      *models.ChatMessage
	RecipientIDs []int64
}

func NewChatService(
	db *pgxpool.Pool,
	conversationRepo *repository.ConversationRepository,
	messageRepo *repository.MessageRepository,
	userRepo directoryReader,
) *ChatService {
	s := &ChatService{
		db:               db,
		conversationRepo: conversationRepo,
		messageRepo:      messageRepo,
		userRepo:         userRepo,
		now:              time.Now,
	}
	s.feed = newMessageFeed(func(ctx context.Context, conversationID int64, ascending bool) ([]models.ChatMessage, error) {
		return s.messageRepo.ListWindow(ctx, conversationID, defaultFeedWindow, ascending)
	})
	return s
}

// OnDelivery registers fn to be called after every stored message.
func (s *ChatService) OnDelivery(fn func(*ChatDelivery)) {
	s.listenersMu.Lock()
	s.listeners = append(s.listeners, fn)
	s.listenersMu.Unlock()
}

func isChatRole(role string) bool {
	return role == models.RoleFreelancer || role == models.RoleBusiness
}

func (s *ChatService) ListConversations(
	ctx context.Context,
	actorID int64,
	role string,
) ([]models.ConversationSummary, error) {
	if !isChatRole(role) {
		return nil, ErrForbidden
	}

	return s.conversationRepo.ListForParticipant(ctx, actorID)
}

func (s *ChatService) CreateIndividual(
	ctx context.Context,
	actorID int64,
	role string,
	participantID int64,
) (*models.Conversation, error) {
	if !isChatRole(role) {
		return nil, ErrForbidden
	}
	if participantID <= 0 || participantID == actorID {
		return nil, ErrInvalidInput
	}
	if err := s.requireUser(ctx, participantID); err != nil {
		return nil, err
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	conversation, err := repository.NewConversationRepository(tx).CreateOrGetIndividual(ctx, actorID, participantID)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	return s.withParticipantDetails(ctx, conversation)
}

func (s *ChatService) CreateGroup(
	ctx context.Context,
	actorID int64,
	role string,
	name string,
	participantIDs []int64,
) (*models.Conversation, error) {
	if !isChatRole(role) {
		return nil, ErrForbidden
	}

	name = strings.TrimSpace(name)
	if name == "" || utf8.RuneCountInString(name) > maxGroupNameLength {
		return nil, ErrInvalidInput
	}

	members := make([]int64, 0, len(participantIDs))
	seen := map[int64]struct{}{actorID: {}}
	for _, id := range participantIDs {
		if id <= 0 {
			return nil, ErrInvalidInput
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		members = append(members, id)
	}
	if len(members) == 0 {
		return nil, ErrInvalidInput
	}
	for _, id := range members {
		if err := s.requireUser(ctx, id); err != nil {
			return nil, err
		}
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	conversation, err := repository.NewConversationRepository(tx).CreateGroup(ctx, actorID, name, members)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	return s.withParticipantDetails(ctx, conversation)
}

// GetConversation returns the conversation with participant details when
// actorID takes part in it.
func (s *ChatService) GetConversation(
	ctx context.Context,
	actorID int64,
	role string,
	conversationID int64,
) (*models.Conversation, error) {
	if !isChatRole(role) {
		return nil, ErrForbidden
	}
	if conversationID <= 0 {
		return nil, ErrInvalidInput
	}

	conversation, err := s.conversationRepo.GetByIDForParticipant(ctx, conversationID, actorID)
	if err != nil {
		return nil, err
	}
	return s.withParticipantDetails(ctx, conversation)
}

func (s *ChatService) ListMessages(
	ctx context.Context,
	actorID int64,
	role string,
	conversationID int64,
	page int,
	limit int,
	ascending bool,
) ([]models.ChatMessage, int, error) {
	if !isChatRole(role) {
		return nil, 0, ErrForbidden
	}
	if conversationID <= 0 || page <= 0 || limit <= 0 {
		return nil, 0, ErrInvalidInput
	}

	if _, err := s.conversationRepo.GetByIDForParticipant(ctx, conversationID, actorID); err != nil {
		return nil, 0, err
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, 0, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	txMessageRepo := repository.NewMessageRepository(tx)

	messages, total, err := txMessageRepo.ListByConversation(
		ctx,
		conversationID,
		limit,
		(page-1)*limit,
		ascending,
	)
	if err != nil {
		return nil, 0, err
	}

	messageIDs := make([]string, 0, len(messages))
	for _, message := range messages {
		messageIDs = append(messageIDs, message.ID)
	}

	if err := txMessageRepo.MarkMessagesRead(ctx, messageIDs, actorID); err != nil {
		return nil, 0, err
	}

	for i := range messages {
		if messages[i].SenderID != actorID {
			messages[i].IsRead = true
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, 0, err
	}

	return messages, total, nil
}

func (s *ChatService) SendMessage(
	ctx context.Context,
	actorID int64,
	role string,
	conversationID int64,
	content string,
	replyTo *string,
) (*ChatDelivery, error) {
	if !isChatRole(role) {
		return nil, ErrForbidden
	}
	return s.send(ctx, conversationID, chat.Draft{SenderID: actorID, Content: content, ReplyTo: replyTo}, s.now())
}

// ToggleReaction flips actorID's reaction on a message inside a transaction
// that holds the message row lock.
func (s *ChatService) ToggleReaction(
	ctx context.Context,
	actorID int64,
	role string,
	conversationID int64,
	messageID string,
	emoji string,
) (message *models.ChatMessage, err error) {
	if !isChatRole(role) {
		return nil, ErrForbidden
	}
	emoji = strings.TrimSpace(emoji)
	if conversationID <= 0 || emoji == "" || len(emoji) > maxEmojiLength {
		return nil, ErrInvalidInput
	}
	if _, parseErr := uuid.Parse(messageID); parseErr != nil {
		return nil, ErrMessageNotFound
	}

	defer func() {
		metrics.ReactionsToggled.WithLabelValues(metrics.Result(err)).Inc()
	}()

	if _, err := s.conversationRepo.GetByIDForParticipant(ctx, conversationID, actorID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrForbidden
		}
		return nil, err
	}

	user := strconv.FormatInt(actorID, 10)
	return s.patchReactions(ctx, conversationID, messageID, func(current models.Reactions) models.Reactions {
		return chat.ToggleReaction(current, emoji, user)
	})
}

// patchReactions rewrites a message's reactions from the row read under
// FOR UPDATE, so concurrent changes to other emoji are kept.
func (s *ChatService) patchReactions(
	ctx context.Context,
	conversationID int64,
	messageID string,
	patch func(models.Reactions) models.Reactions,
) (*models.ChatMessage, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	txMessageRepo := repository.NewMessageRepository(tx)
	current, err := txMessageRepo.GetForUpdate(ctx, conversationID, messageID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrMessageNotFound
		}
		return nil, err
	}

	updated, err := txMessageRepo.UpdateReactions(ctx, conversationID, messageID, patch(current.Reactions))
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	s.feed.publish(ctx, conversationID)
	return updated, nil
}

// Subscribe implements chat.MessageStore.
func (s *ChatService) Subscribe(
	ctx context.Context,
	conversationID int64,
	order chat.Order,
	onData func([]models.ChatMessage),
) (func(), error) {
	return s.feed.subscribe(ctx, conversationID, order, onData)
}

// AppendMessage implements chat.MessageStore.
func (s *ChatService) AppendMessage(
	ctx context.Context,
	conversationID int64,
	draft chat.Draft,
	timestamp time.Time,
) (string, error) {
	delivery, err := s.send(ctx, conversationID, draft, timestamp)
	if err != nil {
		return "", err
	}
	return delivery.Message.ID, nil
}

// UpdateMessageFields implements chat.MessageStore. A named reaction change is
// replayed on the locked row; otherwise the reaction map replaces the stored
// one.
func (s *ChatService) UpdateMessageFields(
	ctx context.Context,
	conversationID int64,
	messageID string,
	fields chat.MessageFields,
) (err error) {
	defer func() {
		metrics.ReactionsToggled.WithLabelValues(metrics.Result(err)).Inc()
	}()

	if _, parseErr := uuid.Parse(messageID); parseErr != nil {
		return ErrMessageNotFound
	}
	for emoji := range fields.Reactions {
		if strings.TrimSpace(emoji) == "" || len(emoji) > maxEmojiLength {
			return ErrInvalidInput
		}
	}

	if change := fields.Reaction; change != nil {
		emoji := strings.TrimSpace(change.Emoji)
		if emoji == "" || len(emoji) > maxEmojiLength || change.UserID == "" {
			return ErrInvalidInput
		}
		_, err = s.patchReactions(ctx, conversationID, messageID, func(current models.Reactions) models.Reactions {
			return chat.SetReaction(current, emoji, change.UserID, change.Present)
		})
		return err
	}

	if _, err := s.messageRepo.UpdateReactions(ctx, conversationID, messageID, fields.Reactions); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrMessageNotFound
		}
		return err
	}

	s.feed.publish(ctx, conversationID)
	return nil
}

// GetUser implements chat.UserDirectory.
func (s *ChatService) GetUser(ctx context.Context, userID int64) (*models.DirectoryEntry, error) {
	entry, err := s.userRepo.GetDirectoryEntry(ctx, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return entry, nil
}

func (s *ChatService) send(
	ctx context.Context,
	conversationID int64,
	draft chat.Draft,
	timestamp time.Time,
) (delivery *ChatDelivery, err error) {
	defer func() {
		metrics.MessagesSent.WithLabelValues(metrics.Result(err)).Inc()
	}()

	if conversationID <= 0 {
		return nil, ErrInvalidInput
	}

	content := strings.TrimSpace(draft.Content)
	if content == "" || utf8.RuneCountInString(content) > maxMessageRuneCount {
		return nil, ErrInvalidInput
	}

	replyTo, err := normalizeReplyTo(draft.ReplyTo)
	if err != nil {
		return nil, err
	}

	conversation, err := s.conversationRepo.GetByIDForParticipant(ctx, conversationID, draft.SenderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrForbidden
		}
		return nil, err
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	txMessageRepo := repository.NewMessageRepository(tx)
	txConversationRepo := repository.NewConversationRepository(tx)

	message, err := txMessageRepo.Create(ctx, repository.CreateMessageInput{
		ID:             uuid.NewString(),
		ConversationID: conversationID,
		SenderID:       draft.SenderID,
		Content:        content,
		ReplyTo:        replyTo,
		CreatedAt:      timestamp.UTC(),
	})
	if err != nil {
		return nil, err
	}

	if err := txConversationRepo.Touch(ctx, conversationID); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	delivery = &ChatDelivery{
		Conversation: conversation,
		Message:      message,
		RecipientIDs: recipients(conversation, draft.SenderID),
	}

	s.feed.publish(ctx, conversationID)
	s.notifyListeners(delivery)
	return delivery, nil
}

func (s *ChatService) notifyListeners(delivery *ChatDelivery) {
	s.listenersMu.RLock()
	listeners := append(([]func(*ChatDelivery))(nil), s.listeners...)
	s.listenersMu.RUnlock()

	for _, listener := range listeners {
		listener(delivery)
	}
}

func (s *ChatService) requireUser(ctx context.Context, userID int64) error {
	if _, err := s.userRepo.GetByID(ctx, userID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrUserNotFound
		}
		return err
	}
	return nil
}

func (s *ChatService) withParticipantDetails(ctx context.Context, conversation *models.Conversation) (*models.Conversation, error) {
	details := make(map[int64]models.DirectoryEntry, len(conversation.Participants))
	for _, id := range conversation.Participants {
		entry, err := s.userRepo.GetDirectoryEntry(ctx, id)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				log.Printf("chat: participant %d of conversation %d has no directory entry", id, conversation.ID)
				continue
			}
			return nil, err
		}
		details[id] = *entry
	}
	conversation.ParticipantDetails = details
	return conversation, nil
}

// normalizeReplyTo treats a blank reference as no reference. Anything else
// must be a message id; whether it still exists is not checked.
func normalizeReplyTo(replyTo *string) (*string, error) {
	if replyTo == nil {
		return nil, nil
	}
	trimmed := strings.TrimSpace(*replyTo)
	if trimmed == "" {
		return nil, nil
	}
	if _, err := uuid.Parse(trimmed); err != nil {
		return nil, ErrInvalidInput
	}
	return &trimmed, nil
}

func recipients(conversation *models.Conversation, senderID int64) []int64 {
	out := make([]int64, 0, len(conversation.Participants))
	for _, id := range conversation.Participants {
		if id != senderID {
			out = append(out, id)
		}
	}
	return out
}
