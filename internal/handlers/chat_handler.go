package handlers

import (
	"context"
	"errors"
	"log"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	websocket "github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
	"github.com/talenthub/backend/internal/chat"
	"github.com/talenthub/backend/internal/middleware"
	"github.com/talenthub/backend/internal/models"
	"github.com/talenthub/backend/internal/services"
	chatws "github.com/talenthub/backend/internal/websocket"
)

const viewWindow = 50

type chatApplicationService interface {
	chatws.Backend
	ListConversations(ctx context.Context, actorID int64, role string) ([]models.ConversationSummary, error)
	CreateIndividual(ctx context.Context, actorID int64, role string, participantID int64) (*models.Conversation, error)
	CreateGroup(ctx context.Context, actorID int64, role string, name string, participantIDs []int64) (*models.Conversation, error)
	ListMessages(ctx context.Context, actorID int64, role string, conversationID int64, page int, limit int, ascending bool) ([]models.ChatMessage, int, error)
	SendMessage(ctx context.Context, actorID int64, role string, conversationID int64, content string, replyTo *string) (*services.ChatDelivery, error)
	ToggleReaction(ctx context.Context, actorID int64, role string, conversationID int64, messageID string, emoji string) (*models.ChatMessage, error)
}

// ChatOptions carries the presentation and socket settings of the chat
// endpoints.
type ChatOptions struct {
	Storage         services.StorageService
	Limiter         chatws.Limiter
	Location        *time.Location
	RefreshInterval time.Duration
	Now             func() time.Time
}

type ChatHandler struct {
	service   chatApplicationService
	hub       *chatws.Hub
	jwtSecret string
	opts      ChatOptions
}

type createConversationRequest struct {
	ParticipantID int64 `json:"participant_id"`
}

type createGroupRequest struct {
	Name           string  `json:"name"`
	ParticipantIDs []int64 `json:"participant_ids"`
}

type sendMessageRequest struct {
	Content string  `json:"content"`
	ReplyTo *string `json:"reply_to"`
}

type toggleReactionRequest struct {
	Emoji string `json:"emoji"`
}

func NewChatHandler(service chatApplicationService, hub *chatws.Hub, jwtSecret string, opts ChatOptions) *ChatHandler {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	return &ChatHandler{
		service:   service,
		hub:       hub,
		jwtSecret: jwtSecret,
		opts:      opts,
	}
}

func chatActor(c *fiber.Ctx) (int64, string, bool) {
	userID, role, err := actorFromLocals(c)
	if err != nil {
		_ = c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
		return 0, "", false
	}
	if role != models.RoleFreelancer && role != models.RoleBusiness {
		_ = c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
		return 0, "", false
	}
	return userID, role, true
}

func conversationIDParam(c *fiber.Ctx) (int64, bool) {
	conversationID, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || conversationID <= 0 {
		_ = c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid conversation id"})
		return 0, false
	}
	return conversationID, true
}

func (h *ChatHandler) ListConversations(c *fiber.Ctx) error {
	userID, role, ok := chatActor(c)
	if !ok {
		return nil
	}

	conversations, err := h.service.ListConversations(c.Context(), userID, role)
	if err != nil {
		return mapChatError(c, err)
	}

	return c.JSON(fiber.Map{"conversations": conversations})
}

func (h *ChatHandler) CreateConversation(c *fiber.Ctx) error {
	userID, role, ok := chatActor(c)
	if !ok {
		return nil
	}

	var req createConversationRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	conversation, err := h.service.CreateIndividual(c.Context(), userID, role, req.ParticipantID)
	if err != nil {
		return mapChatError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"conversation": conversation})
}

func (h *ChatHandler) CreateGroup(c *fiber.Ctx) error {
	userID, role, ok := chatActor(c)
	if !ok {
		return nil
	}

	var req createGroupRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	conversation, err := h.service.CreateGroup(c.Context(), userID, role, req.Name, req.ParticipantIDs)
	if err != nil {
		return mapChatError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"conversation": conversation})
}

func (h *ChatHandler) GetConversation(c *fiber.Ctx) error {
	userID, role, ok := chatActor(c)
	if !ok {
		return nil
	}
	conversationID, ok := conversationIDParam(c)
	if !ok {
		return nil
	}

	conversation, err := h.service.GetConversation(c.Context(), userID, role, conversationID)
	if err != nil {
		return mapChatError(c, err)
	}

	return c.JSON(fiber.Map{"conversation": conversation})
}

func (h *ChatHandler) GetMessages(c *fiber.Ctx) error {
	userID, role, ok := chatActor(c)
	if !ok {
		return nil
	}
	conversationID, ok := conversationIDParam(c)
	if !ok {
		return nil
	}

	page, limit, err := parsePaging(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "page and limit must be positive integers"})
	}

	var ascending bool
	switch strings.ToLower(strings.TrimSpace(c.Query("order"))) {
	case "", string(chat.OrderDesc):
	case string(chat.OrderAsc):
		ascending = true
	default:
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "order must be asc or desc"})
	}

	messages, total, err := h.service.ListMessages(c.Context(), userID, role, conversationID, page, limit, ascending)
	if err != nil {
		return mapChatError(c, err)
	}

	return c.JSON(fiber.Map{
		"messages":   messages,
		"pagination": buildPaginationMeta(page, limit, total),
	})
}

// GetView renders the newest messages of a conversation the way an open
// chat window shows them.
func (h *ChatHandler) GetView(c *fiber.Ctx) error {
	userID, role, ok := chatActor(c)
	if !ok {
		return nil
	}
	conversationID, ok := conversationIDParam(c)
	if !ok {
		return nil
	}

	conversation, err := h.service.GetConversation(c.Context(), userID, role, conversationID)
	if err != nil {
		return mapChatError(c, err)
	}

	messages, _, err := h.service.ListMessages(c.Context(), userID, role, conversationID, 1, viewWindow, false)
	if err != nil {
		return mapChatError(c, err)
	}
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}

	items := chat.Render(messages, chat.RenderOptions{
		ViewerID:         userID,
		ConversationType: conversation.Type,
		Participants:     conversation.ParticipantDetails,
		Now:              h.opts.Now(),
		Location:         h.opts.Location,
	})

	return c.JSON(fiber.Map{
		"view": chat.Snapshot{
			ConversationID: conversation.ID,
			Type:           conversation.Type,
			Name:           conversation.Name,
			Items:          items,
		},
	})
}

func (h *ChatHandler) SendMessage(c *fiber.Ctx) error {
	userID, role, ok := chatActor(c)
	if !ok {
		return nil
	}
	conversationID, ok := conversationIDParam(c)
	if !ok {
		return nil
	}

	var req sendMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	delivery, err := h.service.SendMessage(c.Context(), userID, role, conversationID, req.Content, req.ReplyTo)
	if err != nil {
		return mapChatError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": delivery.Message})
}

func (h *ChatHandler) ToggleReaction(c *fiber.Ctx) error {
	userID, role, ok := chatActor(c)
	if !ok {
		return nil
	}
	conversationID, ok := conversationIDParam(c)
	if !ok {
		return nil
	}

	var req toggleReactionRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	message, err := h.service.ToggleReaction(c.Context(), userID, role, conversationID, c.Params("messageId"), req.Emoji)
	if err != nil {
		return mapChatError(c, err)
	}

	return c.JSON(fiber.Map{
		"message_id": message.ID,
		"reactions":  message.Reactions,
	})
}

// UploadAttachment stores a file for a conversation the caller belongs to
// and returns the URL to send as message content.
func (h *ChatHandler) UploadAttachment(c *fiber.Ctx) error {
	userID, role, ok := chatActor(c)
	if !ok {
		return nil
	}
	conversationID, ok := conversationIDParam(c)
	if !ok {
		return nil
	}
	if h.opts.Storage == nil {
		return mapChatError(c, services.ErrStorageUnavailable)
	}

	if _, err := h.service.GetConversation(c.Context(), userID, role, conversationID); err != nil {
		return mapChatError(c, err)
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "file is required"})
	}
	if fileHeader.Size <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "file is empty"})
	}
	if fileHeader.Size > services.MaxUploadBytes {
		return c.Status(fiber.StatusRequestEntityTooLarge).JSON(fiber.Map{"error": "file exceeds 10MB limit"})
	}

	kind := chat.Classify(strings.ToLower("upload" + filepath.Ext(fileHeader.Filename)))
	if kind != chat.KindImage && kind != chat.KindFile {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "unsupported file type"})
	}

	file, err := fileHeader.Open()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to open file"})
	}
	defer file.Close()

	folder := "attachments/" + strconv.FormatInt(conversationID, 10)
	fileURL, err := h.opts.Storage.UploadFile(c.Context(), file, fileHeader.Filename, folder)
	if err != nil {
		if errors.Is(err, services.ErrUploadTooLarge) {
			return c.Status(fiber.StatusRequestEntityTooLarge).JSON(fiber.Map{"error": "file exceeds 10MB limit"})
		}
		log.Printf("chat: upload attachment to conversation %d: %v", conversationID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to upload file"})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"url":       fileURL,
		"kind":      chat.Classify(fileURL),
		"file_name": chat.AttachmentName(fileURL),
	})
}

func (h *ChatHandler) WebSocketAuth(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return c.Status(fiber.StatusUpgradeRequired).JSON(fiber.Map{"error": "WebSocket upgrade required"})
	}

	claims, err := middleware.WebSocketClaims(c, h.jwtSecret)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid or expired token"})
	}

	c.Locals("user_id", claims.UserID)
	c.Locals("role", claims.Role)
	return c.Next()
}

func (h *ChatHandler) HandleWebSocket(conn *websocket.Conn) {
	userID, _ := conn.Locals("user_id").(string)
	role, _ := conn.Locals("role").(string)
	client := chatws.NewClient(h.hub, conn, userID, role, h.service, chatws.ClientOptions{
		Limiter:         h.opts.Limiter,
		Location:        h.opts.Location,
		RefreshInterval: h.opts.RefreshInterval,
		Now:             h.opts.Now,
	})

	h.hub.Register(client)
	go client.WritePump()
	client.ReadPump()
}

func mapChatError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, services.ErrForbidden):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	case errors.Is(err, services.ErrInvalidInput):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request"})
	case errors.Is(err, services.ErrUserNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "User not found"})
	case errors.Is(err, services.ErrMessageNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Message not found"})
	case errors.Is(err, services.ErrStorageUnavailable):
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "Storage service is not configured"})
	case errors.Is(err, pgx.ErrNoRows):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Conversation not found"})
	default:
		log.Printf("chat request failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to process chat request"})
	}
}
