package main // Entry point package

import (
	"log" // Logging library

	"github.com/joho/godotenv"    // loads .env files in development
	"github.com/labstack/echo/v4" // Echo web framework

	"github.com/iliyamo/blog-platform/internal/config"     // Internal config loader
	"github.com/iliyamo/blog-platform/internal/database"   // MySQL connection helper
	"github.com/iliyamo/blog-platform/internal/handler"    // HTTP handlers
	"github.com/iliyamo/blog-platform/internal/middleware" // response cache middleware
	"github.com/iliyamo/blog-platform/internal/queue"      // background event consumer
	"github.com/iliyamo/blog-platform/internal/repository" // DB repositories
	"github.com/iliyamo/blog-platform/internal/router"     // Internal router setup
	"github.com/iliyamo/blog-platform/internal/search"     // post search backends
	"github.com/iliyamo/blog-platform/internal/service"    // session service
)

func main() {
	// Load a local .env when present; real deployments set the environment
	// directly and the file is simply absent.
	_ = godotenv.Load()

	cfg := config.Load() // Load environment config

	// Open the database once here and hand the pool to every repository;
	// nothing opens connections as an import side effect.
	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	// Redis is optional: a nil client disables the response cache and
	// forces the SQL search backend.
	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Println("redis unavailable; response cache disabled")
	}

	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	oauth := repository.NewOAuthRepo(db)
	posts := repository.NewPostRepo(db)
	comments := repository.NewCommentRepo(db)
	likes := repository.NewLikeRepo(db)

	engine := search.New(cfg.SearchEngine, db, rdb)

	auth := service.NewAuthService(users, tokens, oauth,
		cfg.JWTSecret, cfg.AccessTTLMin, cfg.RefreshTTLDays, cfg.BcryptCost, cfg.AdminCode)

	authH := handler.NewAuthHandler(auth)
	postH := handler.NewPostHandler(posts, comments, likes, engine)

	cacheMW := middleware.NewRedisCache(config.LoadCacheConfig(), rdb)

	e := echo.New() // Create Echo instance
	router.RegisterRoutes(e)
	router.RegisterAuth(e, authH, cfg.JWTSecret)
	router.RegisterBlog(e, postH, cfg.JWTSecret, cacheMW)

	// Drain post.published events in the background; the consumer has its
	// own reconnect loop and never takes the server down.
	go func() {
		if err := queue.StartPostConsumer(); err != nil {
			log.Printf("post-consumer stopped: %v", err)
		}
	}()

	addr := ":" + cfg.Port                                // Address string with port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env) // Print startup info

	if err := e.Start(addr); err != nil { // Start HTTP server
		log.Fatal(err) // Log and exit if server fails
	}
}
