package main

import (
	"log"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"linkfeed.io/backend/internal/config"
	"linkfeed.io/backend/internal/model"
	"linkfeed.io/backend/internal/server"
	"linkfeed.io/backend/pkg/database"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	if cfg.AppEnv == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	db := database.Connect()
	if err := migrate(db); err != nil {
		log.Fatalf("migration failed: %v", err)
	}

	if cfg.AppEnv == "development" {
		if err := seedAdminUser(db); err != nil {
			log.Fatalf("failed to seed admin user: %v", err)
		}
	}

	redisClient := connectRedis(cfg.RedisURL)

	srv := server.NewServer(cfg, db, redisClient)
	defer srv.Close()

	log.Printf("listening on :%s", cfg.Port)
	if err := srv.Run(":" + cfg.Port); err != nil {
		log.Fatalf("server exited with error: %v", err)
	}
}

func migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&model.User{},
		&model.Follow{},
		&model.Post{},
		&model.Comment{},
		&model.Like{},
		&model.Notification{},
	)
}

func seedAdminUser(db *gorm.DB) error {
	var count int64
	if err := db.Model(&model.User{}).
		Where("email = ?", "admin@linkfeed.local").
		Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte("admin123"), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	admin := model.User{
		Username:     "admin",
		Email:        "admin@linkfeed.local",
		PasswordHash: string(hashed),
		Role:         model.RoleAdmin,
	}
	if err := db.Create(&admin).Error; err != nil {
		return err
	}

	log.Println("admin user seeded (admin@linkfeed.local / admin123)")
	return nil
}

// connectRedis returns nil when REDIS_URL is unset or unreachable; rate
// limiting degrades to allow-all in that case.
func connectRedis(redisURL string) *redis.Client {
	if redisURL == "" {
		log.Println("REDIS_URL not set, rate limiting disabled")
		return nil
	}

	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		log.Printf("invalid REDIS_URL, rate limiting disabled: %v", err)
		return nil
	}

	return redis.NewClient(opts)
}
