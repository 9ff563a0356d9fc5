package main

import (
	"collaborative-review-editor/auth"
	"collaborative-review-editor/internal/approval"
	"collaborative-review-editor/internal/change"
	"collaborative-review-editor/internal/collab"
	"collaborative-review-editor/internal/config"
	"collaborative-review-editor/internal/content"
	"collaborative-review-editor/internal/db"
	"collaborative-review-editor/internal/diff"
	"collaborative-review-editor/internal/middleware"
	"collaborative-review-editor/internal/room"
	"collaborative-review-editor/internal/worker"
	"collaborative-review-editor/redis"
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// roomRealtimeSender fans one editor's coalesced buffer out to their room.
type roomRealtimeSender struct {
	registry   *room.Registry
	documentID string
	userID     uint64
	userName   string
}

func (s *roomRealtimeSender) SendRealtime(text string) {
	s.registry.Inject(s.documentID, room.Envelope{
		Type:     room.EventRealtimeContentUpdate,
		UserID:   s.userID,
		UserName: s.userName,
		Data:     map[string]interface{}{"content": text},
	})
}

// consolidatingSaver persists one auto-save window as a single change.
type consolidatingSaver struct {
	changes change.Service
}

func (s *consolidatingSaver) SaveWindow(ctx context.Context, documentID string, authorID uint64, authorName string, periodStart, periodEnd string, startedAt time.Time) error {
	_, err := s.changes.Consolidate(ctx, documentID, periodStart, periodEnd, authorID, authorName, startedAt)
	return err
}

// contentObserver feeds content events arriving on websocket connections
// into the coordinators of every other editor of the same document.
type contentObserver struct {
	manager *collab.Manager
}

func (o *contentObserver) ObserveInbound(conn *room.Connection, env room.Envelope) {
	if env.Type != room.EventContentUpdated && env.Type != room.EventRealtimeContentUpdate {
		return
	}
	data, ok := env.Data.(map[string]interface{})
	if !ok {
		return
	}
	text, ok := data["content"].(string)
	if !ok {
		return
	}
	preserve, _ := data["preserveEditingState"].(bool)
	o.manager.ApplyRemote(conn.DocumentID, conn.UserID, text, preserve)
}

func initialLoader(store content.Store) collab.InitialLoader {
	return func(documentID string) string {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()

		if value, err := store.Get(ctx, content.ProposedKey(documentID)); err == nil {
			return value
		}
		if value, err := store.Get(ctx, content.CanonicalKey(documentID)); err == nil {
			return value
		}
		return ""
	}
}

func main() {
	// Load configuration
	config.LoadConfig()

	// Connect to database
	if err := db.ConnectDb(); err != nil {
		log.Fatalf("Database connection failed: %v", err)
	}
	defer db.CloseDb()

	// Migrate database schema
	db.Migrate()

	// Initialize Redis
	redis.InitRedis()
	presence := redis.NewPresenceCache(redis.RedisClient, config.AppConfig.PresenceTTL)

	// Initialize registry and stores
	registry := room.NewRegistry(presence)
	contentStore := content.NewStore(db.AppDb)
	engine := diff.NewEngine(config.AppConfig.DiffWordThreshold)

	// Initialize repository and services
	changeRepo := change.NewRepository(db.AppDb)
	changeService := change.NewService(changeRepo, contentStore, engine, registry)

	pool := worker.NewWorkerPool(10)
	workflow := approval.NewWorkflow(changeService, registry, pool)

	manager := collab.NewManager(
		collab.Options{
			Throttle:       config.AppConfig.RealtimeThrottle,
			Debounce:       config.AppConfig.AutosaveDebounce,
			Sweep:          config.AppConfig.FallbackSweep,
			PreserveWindow: config.AppConfig.PreserveWindow,
		},
		func(documentID string, userID uint64, userName string) collab.RealtimeSender {
			return &roomRealtimeSender{
				registry:   registry,
				documentID: documentID,
				userID:     userID,
				userName:   userName,
			}
		},
		&consolidatingSaver{changes: changeService},
		initialLoader(contentStore),
	)

	// Initialize handlers
	changeHandler := change.NewHandler(changeService)
	approvalHandler := approval.NewHandler(workflow, changeService)
	collabHandler := collab.NewHandler(manager)
	roomHandler := room.NewHandler(registry, &contentObserver{manager: manager})

	authMiddleware := &auth.Auth{InternalSecret: config.AppConfig.InternalSecret}

	// Initialize Gin router
	router := gin.Default()
	router.Use(middleware.ErrorHandler())

	// cors setting
	corsConfig := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: false,
	}

	if config.AppConfig.Environment == "development" {
		// Allow all origins in development
		corsConfig.AllowAllOrigins = true
	} else {
		// Restrict origins in production
		corsConfig.AllowOrigins = []string{"https://production-frontend.com"}
	}
	router.Use(cors.New(corsConfig))

	// Change ledger routes
	router.POST("/documents/:id/changes", authMiddleware.AuthMiddleWare(), changeHandler.Create)
	router.GET("/documents/:id/changes", authMiddleware.AuthMiddleWare(), changeHandler.List)
	router.POST("/changes/:id/comments", authMiddleware.AuthMiddleWare(), changeHandler.AddComment)

	// Approval workflow routes
	router.PUT("/changes/:id/status", authMiddleware.AuthMiddleWare(), approvalHandler.SetStatus)
	router.POST("/changes/:id/undo", authMiddleware.AuthMiddleWare(), approvalHandler.Undo)

	// Collaboration routes
	router.POST("/documents/:id/content", authMiddleware.AuthMiddleWare(), collabHandler.Edit)
	router.GET("/ws", roomHandler.ServeWS)

	// internal use routes
	router.GET("/internal/rooms/:id", authMiddleware.InternalAuthMiddleware(), roomHandler.ShowRoom)
	router.POST("/internal/rooms/:id/broadcast", authMiddleware.InternalAuthMiddleware(), roomHandler.InjectBroadcast)

	// Server configuration
	serverPort := config.AppConfig.ServerPort
	server := &http.Server{
		Addr:    fmt.Sprintf(":%s", serverPort),
		Handler: router.Handler(),
	}

	// Start server
	go func() {
		log.Printf("Server listening on port %s", serverPort)
		err := server.ListenAndServe()
		if err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Println("Server shutdown error:", err)
	}

	manager.CloseAll()
	pool.Shutdown()

	log.Println("Server shutdown complete")
}
