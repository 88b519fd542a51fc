package main // Entry point package

import (
	"log" // Logging library

	"github.com/joho/godotenv" // .env loader for local development
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/auth-service/internal/config"
	"github.com/iliyamo/auth-service/internal/database"
	"github.com/iliyamo/auth-service/internal/handler"
	"github.com/iliyamo/auth-service/internal/queue"
	"github.com/iliyamo/auth-service/internal/repository"
	"github.com/iliyamo/auth-service/internal/router"
	"github.com/iliyamo/auth-service/internal/service"
)

func main() {
	_ = godotenv.Load() // Load .env if present; real env wins

	cfg := config.Load() // Load environment config

	// Open the MySQL pool and fail fast if the database is unreachable.
	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName, database.PoolOptions{
		MaxOpenConns:    cfg.DBMaxOpenConns,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		ConnMaxLifetime: cfg.DBConnMaxLifetime,
	})
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	// Repositories over the shared pool.
	userRepo := repository.NewUserRepo(db)
	tokenRepo := repository.NewTokenRepo(db)
	rbacRepo := repository.NewRBACRepo(db)

	// Services: user lifecycle, permission resolution, token plumbing,
	// and the auth orchestrator on top.
	users := service.NewUsersService(userRepo, cfg.BcryptCost)
	perms := service.NewPermissionsService(rbacRepo)
	tokens := service.NewTokensService(tokenRepo, users)

	notifier := queue.NewPublisher(cfg.RabbitMQURL) // Fire-and-forget mail events
	go queue.StartMailConsumer(cfg.RabbitMQURL)     // In-process mail worker

	auth := service.NewAuthService(users, tokens, perms, notifier, service.AuthOptions{
		AccessPrivateKey: cfg.AccessPrivateKey,
		AccessPublicKey:  cfg.AccessPublicKey,
		AccessTTLMin:     cfg.AccessTTLMin,
		RefreshTTLDays:   cfg.RefreshTTLDays,
		VerifyTTL:        cfg.VerifyTTL,
		VerifyBaseURL:    cfg.VerifyBaseURL,
	})

	rdb := config.NewRedisClient() // nil when Redis is absent; limiter degrades to pass-through

	e := echo.New() // Create Echo instance
	router.RegisterRoutes(e, cfg, handler.NewAuthHandler(cfg, auth), rdb)

	addr := ":" + cfg.Port                                // Address string with port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env) // Print startup info

	if err := e.Start(addr); err != nil { // Start HTTP server
		log.Fatal(err) // Log and exit if server fails
	}
}
