package server

import (
	"log"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/meilisearch/meilisearch-go"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"linkfeed.io/backend/internal/config"
	"linkfeed.io/backend/internal/handler"
	"linkfeed.io/backend/internal/middleware"
	"linkfeed.io/backend/internal/realtime"
	"linkfeed.io/backend/internal/repository"
	"linkfeed.io/backend/internal/service"
	"linkfeed.io/backend/pkg/storage"
	"linkfeed.io/backend/pkg/token"
)

type Server struct {
	engine      *gin.Engine
	db          *gorm.DB
	redisClient *redis.Client
	registry    *realtime.Registry
}

func NewServer(cfg *config.Config, db *gorm.DB, redisClient *redis.Client) *Server {
	imageStorage, err := storage.NewCloudinaryStorage()
	if err != nil {
		log.Fatalf("failed to initialize cloudinary storage: %v", err)
	}

	meiliClient := meilisearch.New(cfg.MeiliSearchHost, meilisearch.WithAPIKey(cfg.MeiliMasterKey))
	searchSvc := service.NewSearchService(meiliClient)

	tokens := token.NewManager(cfg.JWTSecret, cfg.JWTTTL)

	registry := realtime.NewRegistry()
	gateway := realtime.NewGateway(registry, tokens)

	userRepo := repository.NewUserRepository(db)
	followRepo := repository.NewFollowRepository(db)
	postRepo := repository.NewPostRepository(db)
	commentRepo := repository.NewCommentRepository(db)
	likeRepo := repository.NewLikeRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)

	notificationSvc := service.NewNotificationService(notificationRepo, userRepo, postRepo, gateway)
	authSvc := service.NewAuthService(userRepo, tokens, searchSvc)
	userSvc := service.NewUserService(userRepo, followRepo, notificationSvc, imageStorage, searchSvc)
	postSvc := service.NewPostService(postRepo, userRepo, likeRepo, followRepo, notificationSvc, imageStorage, searchSvc)
	commentSvc := service.NewCommentService(commentRepo, postRepo, userRepo, notificationSvc)

	authHandler := handler.NewAuthHandler(authSvc)
	userHandler := handler.NewUserHandler(userSvc)
	postHandler := handler.NewPostHandler(postSvc)
	commentHandler := handler.NewCommentHandler(commentSvc)
	notificationHandler := handler.NewNotificationHandler(notificationSvc)
	searchHandler := handler.NewSearchHandler(searchSvc)

	router := gin.New()
	setupCORS(router, cfg.AllowedOrigins)
	router.Use(gin.Recovery())
	router.Use(gin.Logger())

	authMiddleware := middleware.NewAuthMiddleware(tokens, userRepo)

	api := router.Group("/api")

	// Public routes
	api.POST("/users", authHandler.Register)
	api.POST("/users/login", authHandler.Login)
	api.GET("/ws", gateway.HandleWebSocket)

	// Public reads. Optional auth so liked/following flags resolve when a
	// token is present.
	public := api.Group("")
	public.Use(authMiddleware.OptionalAuth())
	{
		public.GET("/profiles/:username", userHandler.GetProfile)
		public.GET("/posts", postHandler.List)
		public.GET("/posts/:id", postHandler.Get)
		public.GET("/posts/:id/comments", commentHandler.List)
		public.GET("/users/:id/followers", userHandler.Followers)
		public.GET("/users/:id/following", userHandler.Following)
		public.GET("/search", searchHandler.Search)
	}

	protected := api.Group("")
	protected.Use(authMiddleware.RequireAuth())
	{
		protected.GET("/user", userHandler.CurrentUser)
		protected.PUT("/user", userHandler.UpdateProfile)

		protected.POST("/users/:id/follow", userHandler.Follow)
		protected.DELETE("/users/:id/follow", userHandler.Unfollow)

		protected.POST("/posts", middleware.RateLimit(redisClient, "post", cfg.RateLimitPost), postHandler.Create)
		protected.PUT("/posts/:id", postHandler.Update)
		protected.DELETE("/posts/:id", postHandler.Delete)
		protected.POST("/posts/:id/like", postHandler.Like)
		protected.DELETE("/posts/:id/like", postHandler.Unlike)
		protected.GET("/feed", postHandler.Feed)

		protected.POST("/posts/:id/comments", middleware.RateLimit(redisClient, "comment", cfg.RateLimitComment), commentHandler.Create)
		protected.DELETE("/comments/:id", commentHandler.Delete)

		admin := protected.Group("/admin")
		admin.Use(authMiddleware.RequireAdmin())
		{
			admin.DELETE("/users/:id", userHandler.DeleteUser)
		}

		protected.GET("/notifications", notificationHandler.List)
		protected.GET("/notifications/unread-count", notificationHandler.UnreadCount)
		protected.PATCH("/notifications/:id/read", notificationHandler.MarkAsRead)
		protected.POST("/notifications/read-all", notificationHandler.MarkAllAsRead)
	}

	return &Server{
		engine:      router,
		db:          db,
		redisClient: redisClient,
		registry:    registry,
	}
}

func (s *Server) Run(addr string) error {
	return s.engine.Run(addr)
}

// Close drops every live websocket connection.
func (s *Server) Close() {
	s.registry.Close()
}

func setupCORS(router *gin.Engine, allowedOrigins string) {
	origins := []string{"http://localhost:3000"}
	if allowedOrigins != "" {
		origins = strings.Split(allowedOrigins, ",")
	}

	router.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
}
