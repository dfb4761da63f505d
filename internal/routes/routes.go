package routes

import (
	"fmt"
	"log"

	websocket "github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/talenthub/backend/internal/ats"
	"github.com/talenthub/backend/internal/config"
	"github.com/talenthub/backend/internal/handlers"
	"github.com/talenthub/backend/internal/metrics"
	"github.com/talenthub/backend/internal/middleware"
	"github.com/talenthub/backend/internal/models"
	"github.com/talenthub/backend/internal/repository"
	"github.com/talenthub/backend/internal/services"
	chatws "github.com/talenthub/backend/internal/websocket"
)

// RegisterRoutes wires repositories, services and handlers onto app. The
// returned func releases background workers started here.
func RegisterRoutes(app *fiber.App, cfg *config.Config, db *pgxpool.Pool) (func(), error) {
	userRepo := repository.NewUserRepository(db)
	freelancerRepo := repository.NewFreelancerProfileRepository(db)
	businessRepo := repository.NewBusinessProfileRepository(db)
	conversationRepo := repository.NewConversationRepository(db)
	messageRepo := repository.NewMessageRepository(db)
	var storageService services.StorageService
	if cfg.StorageConfigured() {
		storageService = services.NewSupabaseStorageService(cfg.SupabaseURL, cfg.SupabaseBucket, cfg.SupabaseServiceKey)
	} else {
		log.Println("Supabase storage not configured; uploads disabled")
	}

	scoringConfig := ats.DefaultConfig()
	if cfg.ATSConfigPath != "" {
		loaded, err := ats.LoadConfig(cfg.ATSConfigPath)
		if err != nil {
			return nil, fmt.Errorf("load ats config: %w", err)
		}
		scoringConfig = loaded
	}

	authHandler := handlers.NewAuthHandler(
		db,
		userRepo,
		freelancerRepo,
		businessRepo,
		cfg.JWTSecret,
	)
	profileService := services.NewProfileService(freelancerRepo, businessRepo)
	profileHandler := handlers.NewProfileHandler(profileService, freelancerRepo, businessRepo, storageService)
	talentHandler := handlers.NewTalentHandler(services.NewTalentService(freelancerRepo))
	resumeHandler := handlers.NewResumeHandler(ats.NewScorer(scoringConfig))

	chatHub := chatws.NewHub()
	go chatHub.Run()
	chatService := services.NewChatService(db, conversationRepo, messageRepo, userRepo)
	chatService.OnDelivery(func(delivery *services.ChatDelivery) {
		chatHub.NotifyConversation(delivery.Conversation.ID, delivery.RecipientIDs)
	})
	limiters := middleware.NewLimiterPool(cfg.ChatRatePerSecond, cfg.ChatRateBurst)
	chatHandler := handlers.NewChatHandler(chatService, chatHub, cfg.JWTSecret, handlers.ChatOptions{
		Storage:         storageService,
		Limiter:         limiters,
		Location:        cfg.ChatLocation,
		RefreshInterval: cfg.ChatLabelRefresh,
	})

	if cfg.EnableMetrics {
		app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler()))
	}

	api := app.Group("/api")

	auth := api.Group("/auth")
	auth.Post("/register", authHandler.Register)
	auth.Post("/login", authHandler.Login)
	auth.Get("/me", middleware.AuthRequired(cfg.JWTSecret), authHandler.Me)

	// The socket authenticates from its query token, so it is mounted before
	// the header-authenticated group.
	api.Use("/v1/ws", chatHandler.WebSocketAuth)
	api.Get("/v1/ws", websocket.New(chatHandler.HandleWebSocket))

	authProtected := api.Group("/v1",
		middleware.AuthRequired(cfg.JWTSecret),
		middleware.RequireRole(models.RoleFreelancer, models.RoleBusiness),
	)

	freelancers := authProtected.Group("/freelancers")
	freelancers.Get("", talentHandler.ListFreelancers)
	freelancers.Get("/profile", profileHandler.GetFreelancerProfile)
	freelancers.Put("/profile", profileHandler.UpdateFreelancerProfile)
	freelancers.Post("/profile/avatar", profileHandler.UploadFreelancerAvatar)
	freelancers.Get("/recommended", talentHandler.GetRecommendedFreelancers)
	freelancers.Get("/:id", talentHandler.GetFreelancerDetail)

	businesses := authProtected.Group("/businesses")
	businesses.Get("/profile", profileHandler.GetBusinessProfile)
	businesses.Put("/profile", profileHandler.UpdateBusinessProfile)
	businesses.Post("/profile/avatar", profileHandler.UploadBusinessAvatar)

	resume := authProtected.Group("/resume")
	resume.Post("/analyze", resumeHandler.Analyze)
	resume.Get("/config", resumeHandler.GetConfig)

	chatLimit := middleware.RateLimit(limiters)
	conversations := authProtected.Group("/conversations")
	conversations.Get("", chatHandler.ListConversations)
	conversations.Post("", chatHandler.CreateConversation)
	conversations.Post("/group", chatHandler.CreateGroup)
	conversations.Get("/:id", chatHandler.GetConversation)
	conversations.Get("/:id/messages", chatHandler.GetMessages)
	conversations.Post("/:id/messages", chatLimit, chatHandler.SendMessage)
	conversations.Get("/:id/view", chatHandler.GetView)
	conversations.Put("/:id/messages/:messageId/reactions", chatLimit, chatHandler.ToggleReaction)
	conversations.Post("/:id/attachments", chatLimit, chatHandler.UploadAttachment)

	if err := registerDocsRoutes(app, cfg); err != nil {
		limiters.Shutdown()
		return nil, err
	}

	return limiters.Shutdown, nil
}
