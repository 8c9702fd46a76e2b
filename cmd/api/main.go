// main.go
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aurora-ops/aurora-backend/internal/api/handlers"
	"github.com/aurora-ops/aurora-backend/internal/api/middleware"
	"github.com/aurora-ops/aurora-backend/internal/config"
	"github.com/aurora-ops/aurora-backend/internal/cron"
	"github.com/aurora-ops/aurora-backend/internal/db"
	"github.com/aurora-ops/aurora-backend/internal/jobs"
	"github.com/aurora-ops/aurora-backend/internal/repository"
	"github.com/aurora-ops/aurora-backend/internal/service"
	"github.com/aurora-ops/aurora-backend/internal/socket"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	// ============================================
	// Load environment variables
	// ============================================
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := config.Load()

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	// ============================================
	// Run database migrations first
	// ============================================
	log.Println("[DB] Running migrations...")
	migrationsPath := "./internal/db/migrations"
	if err := db.RunMigrations(cfg.DatabaseURL, migrationsPath); err != nil {
		log.Fatalf("[DB] Migration failed: %v", err)
	}
	log.Println("[DB] Migrations completed")

	// ============================================
	// Initialize PostgreSQL
	// ============================================
	postgres, err := db.NewPostgresDB(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("[DB] Failed to connect: %v", err)
	}
	defer postgres.Close()
	log.Println("[DB] Connected to PostgreSQL")

	repos := repository.NewRepositories(postgres.Pool, postgres.DB)

	// ============================================
	// Initialize Redis (optional)
	// ============================================
	var redisDB *db.RedisDB
	if cfg.RedisURL != "" {
		redisDB, err = db.NewRedisDB(cfg.RedisURL)
		if err != nil {
			log.Printf("[Redis] Unavailable: %v (continuing without cache)", err)
			redisDB = nil
		} else {
			defer redisDB.Close()
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ============================================
	// Initialize WebSocket hub
	// ============================================
	resolver := service.NewPermissionService(repos.OrganizationRepo, redisDB)
	projects := service.NewProjectDirectory(repos.ProjectRepo)
	hub := socket.NewHub(socket.NewConnectionRegistry(), resolver, projects)
	go hub.Run(ctx)
	broadcaster := socket.NewBroadcaster(hub)
	log.Println("[Socket] Hub started")

	// ============================================
	// Initialize background job queue
	// ============================================
	queue := jobs.NewQueue(256)
	go queue.Run(ctx)

	// ============================================
	// Initialize services and handlers
	// ============================================
	services := service.NewServices(&service.ServiceDeps{
		Config:      cfg,
		Repos:       repos,
		Redis:       redisDB,
		Jobs:        queue,
		Broadcaster: broadcaster,
	})

	h := handlers.NewHandlers(services)
	wsHandler := socket.NewHandler(hub, cfg.JWTSecret, services.Notification)

	// ============================================
	// Start cron scheduler
	// ============================================
	scheduler := cron.NewScheduler(cfg, repos, services.Notification)
	scheduler.Start()
	defer scheduler.Stop()

	// ============================================
	// Create Gin router
	// ============================================
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger())

	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{cfg.FrontendURL},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":     "healthy",
			"timestamp":  time.Now(),
			"cache":      redisDB != nil,
			"ws_clients": hub.ConnectedClients(),
		})
	})

	api := r.Group("/api")
	{
		// Public routes
		auth := api.Group("/auth")
		{
			auth.POST("/register", h.Auth.Register)
			auth.POST("/login", h.Auth.Login)
			auth.POST("/refresh", h.Auth.RefreshToken)
			auth.POST("/logout", h.Auth.Logout)
		}

		// WebSocket route authenticates itself from the token
		api.GET("/ws", wsHandler.HandleWebSocket)

		// Protected routes
		protected := api.Group("")
		protected.Use(middleware.AuthMiddleware(services.Auth))
		{
			protected.GET("/me", h.Auth.Me)
			protected.GET("/tasks/mine", h.Task.ListMine)

			orgs := protected.Group("/organizations")
			{
				orgs.GET("", h.Organization.List)
				orgs.POST("", h.Organization.Create)
				orgs.GET("/:id", h.Organization.Get)
				orgs.PUT("/:id", h.Organization.Update)
				orgs.DELETE("/:id", h.Organization.Delete)

				// Members
				orgs.GET("/:id/members", h.Member.List)
				orgs.POST("/:id/members", h.Member.Invite)
				orgs.POST("/:id/members/accept", h.Member.AcceptInvite)
				orgs.PUT("/:id/members/:userId/role", h.Member.UpdateRole)
				orgs.POST("/:id/members/:userId/suspend", h.Member.Suspend)
				orgs.POST("/:id/members/:userId/reactivate", h.Member.Reactivate)
				orgs.DELETE("/:id/members/:userId", h.Member.Remove)

				// Projects
				orgs.GET("/:id/projects", h.Project.ListByOrganization)
				orgs.POST("/:id/projects", h.Project.Create)

				// API keys
				orgs.GET("/:id/apikeys", h.APIKey.List)
				orgs.POST("/:id/apikeys", h.APIKey.Create)
				orgs.DELETE("/:id/apikeys/:keyId", h.APIKey.Revoke)

				// Invoices
				orgs.GET("/:id/invoices", h.Invoice.List)
				orgs.POST("/:id/invoices", h.Invoice.Create)
				orgs.GET("/:id/invoices/:invoiceId", h.Invoice.Get)
				orgs.POST("/:id/invoices/:invoiceId/issue", h.Invoice.Issue)
				orgs.POST("/:id/invoices/:invoiceId/pay", h.Invoice.MarkPaid)
			}

			projects := protected.Group("/projects")
			{
				projects.GET("/:id", h.Project.Get)
				projects.PUT("/:id", h.Project.Update)
				projects.POST("/:id/archive", h.Project.Archive)
				projects.DELETE("/:id", h.Project.Delete)

				projects.GET("/:id/tasks", h.Task.ListByProject)
				projects.POST("/:id/tasks", h.Task.Create)
			}

			tasks := protected.Group("/tasks")
			{
				tasks.GET("/:id", h.Task.Get)
				tasks.PUT("/:id", h.Task.Update)
				tasks.POST("/:id/assign", h.Task.Assign)
				tasks.DELETE("/:id", h.Task.Delete)

				tasks.GET("/:id/comments", h.Task.ListComments)
				tasks.POST("/:id/comments", h.Task.AddComment)
			}

			comments := protected.Group("/comments")
			{
				comments.PUT("/:id", h.Task.UpdateComment)
				comments.DELETE("/:id", h.Task.DeleteComment)
			}

			notifications := protected.Group("/notifications")
			{
				notifications.GET("", h.Notification.List)
				notifications.POST("/read-all", h.Notification.MarkAllRead)
				notifications.POST("/:id/read", h.Notification.MarkRead)
				notifications.DELETE("", h.Notification.DeleteAll)
				notifications.DELETE("/:id", h.Notification.Delete)
			}
		}
	}

	// ============================================
	// Start server with graceful shutdown
	// ============================================
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	go func() {
		log.Printf("[API] Listening on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("[API] Server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("[API] Shutting down...")

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("[API] Forced shutdown: %v", err)
	}
	log.Println("[API] Stopped")
}
