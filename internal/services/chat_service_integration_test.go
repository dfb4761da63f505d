package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/talenthub/backend/internal/chat"
	"github.com/talenthub/backend/internal/models"
	"github.com/talenthub/backend/internal/repository"
)

var (
	testDBOnce sync.Once
	testDBPool *pgxpool.Pool
	testDBErr  error
)

func TestChatServiceIndividualConversationIsUniquePerPair(t *testing.T) {
	ctx := context.Background()
	pool := integrationTestPool(t)
	service := newIntegrationChatService(pool)

	freelancerID := createTestAccount(t, ctx, pool, models.RoleFreelancer)
	businessID := createTestAccount(t, ctx, pool, models.RoleBusiness)
	t.Cleanup(func() { cleanupTestUsers(t, ctx, pool, freelancerID, businessID) })

	first, err := service.CreateIndividual(ctx, businessID, models.RoleBusiness, freelancerID)
	if err != nil {
		t.Fatalf("CreateIndividual: %v", err)
	}
	second, err := service.CreateIndividual(ctx, freelancerID, models.RoleFreelancer, businessID)
	if err != nil {
		t.Fatalf("CreateIndividual reversed: %v", err)
	}

	if first.ID != second.ID {
		t.Fatalf("expected the same conversation, got %d and %d", first.ID, second.ID)
	}
	if len(first.Participants) != 2 || first.Type != models.ConversationIndividual {
		t.Fatalf("expected two-party individual conversation, got %+v", first)
	}
	if _, ok := first.ParticipantDetails[freelancerID]; !ok {
		t.Fatalf("expected participant details for %d", freelancerID)
	}
}

func TestChatServiceSendReplyAndToggleReaction(t *testing.T) {
	ctx := context.Background()
	pool := integrationTestPool(t)
	service := newIntegrationChatService(pool)

	freelancerID := createTestAccount(t, ctx, pool, models.RoleFreelancer)
	businessID := createTestAccount(t, ctx, pool, models.RoleBusiness)
	t.Cleanup(func() { cleanupTestUsers(t, ctx, pool, freelancerID, businessID) })

	conversation, err := service.CreateIndividual(ctx, businessID, models.RoleBusiness, freelancerID)
	if err != nil {
		t.Fatalf("CreateIndividual: %v", err)
	}

	var delivered []*ChatDelivery
	service.OnDelivery(func(d *ChatDelivery) { delivered = append(delivered, d) })

	var snapshots [][]models.ChatMessage
	unsubscribe, err := service.Subscribe(ctx, conversation.ID, chat.OrderAsc, func(messages []models.ChatMessage) {
		snapshots = append(snapshots, messages)
	})
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	defer unsubscribe()

	first, err := service.SendMessage(ctx, businessID, models.RoleBusiness, conversation.ID, "<p>Are you available?</p>", nil)
	if err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	replyTo := first.Message.ID
	reply, err := service.SendMessage(ctx, freelancerID, models.RoleFreelancer, conversation.ID, "Yes", &replyTo)
	if err != nil {
		t.Fatalf("SendMessage reply: %v", err)
	}

	if reply.Message.ReplyTo == nil || *reply.Message.ReplyTo != replyTo {
		t.Fatalf("expected reply reference %s, got %v", replyTo, reply.Message.ReplyTo)
	}
	if len(delivered) != 2 || len(delivered[0].RecipientIDs) != 1 || delivered[0].RecipientIDs[0] != freelancerID {
		t.Fatalf("unexpected deliveries: %+v", delivered)
	}
	if len(snapshots) != 3 || len(snapshots[2]) != 2 {
		t.Fatalf("expected initial plus two updated snapshots, got %d", len(snapshots))
	}

	updated, err := service.ToggleReaction(ctx, freelancerID, models.RoleFreelancer, conversation.ID, first.Message.ID, "👍")
	if err != nil {
		t.Fatalf("ToggleReaction: %v", err)
	}
	if !chat.HasReacted(updated.Reactions, "👍", fmt.Sprint(freelancerID)) {
		t.Fatalf("expected reaction to be stored, got %+v", updated.Reactions)
	}

	reverted, err := service.ToggleReaction(ctx, freelancerID, models.RoleFreelancer, conversation.ID, first.Message.ID, "👍")
	if err != nil {
		t.Fatalf("ToggleReaction again: %v", err)
	}
	if len(reverted.Reactions) != 0 {
		t.Fatalf("expected empty reactions after second toggle, got %+v", reverted.Reactions)
	}
}

func TestChatServiceReactionChangeKeepsConcurrentReactions(t *testing.T) {
	ctx := context.Background()
	pool := integrationTestPool(t)
	service := newIntegrationChatService(pool)

	freelancerID := createTestAccount(t, ctx, pool, models.RoleFreelancer)
	businessID := createTestAccount(t, ctx, pool, models.RoleBusiness)
	t.Cleanup(func() { cleanupTestUsers(t, ctx, pool, freelancerID, businessID) })

	conversation, err := service.CreateIndividual(ctx, businessID, models.RoleBusiness, freelancerID)
	if err != nil {
		t.Fatalf("CreateIndividual: %v", err)
	}
	sent, err := service.SendMessage(ctx, businessID, models.RoleBusiness, conversation.ID, "Kickoff Monday?", nil)
	if err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	messageID := sent.Message.ID

	business := fmt.Sprint(businessID)
	freelancer := fmt.Sprint(freelancerID)

	// The business reacts while the freelancer's view still holds the empty map.
	if _, err := service.ToggleReaction(ctx, businessID, models.RoleBusiness, conversation.ID, messageID, "❤"); err != nil {
		t.Fatalf("ToggleReaction: %v", err)
	}
	stale := chat.ToggleReaction(models.Reactions{}, "👍", freelancer)
	err = service.UpdateMessageFields(ctx, conversation.ID, messageID, chat.MessageFields{
		Reactions: stale,
		Reaction:  &chat.ReactionChange{Emoji: "👍", UserID: freelancer, Present: true},
	})
	if err != nil {
		t.Fatalf("UpdateMessageFields: %v", err)
	}

	stored, err := repository.NewMessageRepository(pool).GetByID(ctx, conversation.ID, messageID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if !chat.HasReacted(stored.Reactions, "❤", business) || !chat.HasReacted(stored.Reactions, "👍", freelancer) {
		t.Fatalf("expected both reactions to be stored, got %+v", stored.Reactions)
	}
}

func TestChatServiceRejectsOutsiders(t *testing.T) {
	ctx := context.Background()
	pool := integrationTestPool(t)
	service := newIntegrationChatService(pool)

	freelancerID := createTestAccount(t, ctx, pool, models.RoleFreelancer)
	businessID := createTestAccount(t, ctx, pool, models.RoleBusiness)
	outsiderID := createTestAccount(t, ctx, pool, models.RoleFreelancer)
	t.Cleanup(func() { cleanupTestUsers(t, ctx, pool, freelancerID, businessID, outsiderID) })

	conversation, err := service.CreateIndividual(ctx, businessID, models.RoleBusiness, freelancerID)
	if err != nil {
		t.Fatalf("CreateIndividual: %v", err)
	}

	_, err = service.SendMessage(ctx, outsiderID, models.RoleFreelancer, conversation.ID, "hello", nil)
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}

func integrationTestPool(t *testing.T) *pgxpool.Pool {
	t.Helper()

	testDBOnce.Do(func() {
		_ = godotenv.Load(".env")
		_ = godotenv.Load(filepath.Join("..", "..", ".env"))

		dbURL := os.Getenv("DB_URL")
		if dbURL == "" {
			testDBErr = fmt.Errorf("DB_URL is not set")
			return
		}

		cfg, err := pgxpool.ParseConfig(dbURL)
		if err != nil {
			testDBErr = err
			return
		}

		testDBPool, testDBErr = pgxpool.NewWithConfig(context.Background(), cfg)
		if testDBErr != nil {
			return
		}
		testDBErr = testDBPool.Ping(context.Background())
	})

	if testDBErr != nil {
		t.Skipf("skipping integration test: %v", testDBErr)
	}
	return testDBPool
}

func newIntegrationChatService(pool *pgxpool.Pool) *ChatService {
	return NewChatService(
		pool,
		repository.NewConversationRepository(pool),
		repository.NewMessageRepository(pool),
		repository.NewUserRepository(pool),
	)
}

func createTestAccount(t *testing.T, ctx context.Context, pool *pgxpool.Pool, role string) int64 {
	t.Helper()

	userRepo := repository.NewUserRepository(pool)
	user := &models.User{
		Email:        fmt.Sprintf("chat-test-%s-%d@example.com", role, time.Now().UnixNano()),
		PasswordHash: "test-hash",
		Role:         role,
	}
	if err := userRepo.CreateUser(ctx, user); err != nil {
		t.Fatalf("CreateUser(%s): %v", role, err)
	}

	if role == models.RoleFreelancer {
		if err := repository.NewFreelancerProfileRepository(pool).CreateEmpty(ctx, user.ID); err != nil {
			t.Fatalf("CreateEmpty freelancer profile: %v", err)
		}
		return user.ID
	}

	if err := repository.NewBusinessProfileRepository(pool).CreateEmpty(ctx, user.ID); err != nil {
		t.Fatalf("CreateEmpty business profile: %v", err)
	}
	return user.ID
}

func cleanupTestUsers(t *testing.T, ctx context.Context, pool *pgxpool.Pool, userIDs ...int64) {
	t.Helper()

	if len(userIDs) == 0 {
		return
	}

	if _, err := pool.Exec(ctx, "DELETE FROM conversations WHERE id IN (SELECT conversation_id FROM conversation_participants WHERE user_id = ANY($1))", userIDs); err != nil {
		t.Fatalf("cleanup conversations: %v", err)
	}
	if _, err := pool.Exec(ctx, "DELETE FROM users WHERE id = ANY($1)", userIDs); err != nil {
		t.Fatalf("cleanup users: %v", err)
	}
}
