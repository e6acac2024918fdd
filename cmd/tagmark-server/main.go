package main

import (
	"os"
	"path/filepath"

	"github.com/gin-gonic/gin"
	"github.com/mikepea/tagmark/pkg/tagmark/auth"
	"github.com/mikepea/tagmark/pkg/tagmark/bookmarks"
	"github.com/mikepea/tagmark/pkg/tagmark/config"
	"github.com/mikepea/tagmark/pkg/tagmark/database"
	"github.com/mikepea/tagmark/pkg/tagmark/importexport"
	"github.com/mikepea/tagmark/pkg/tagmark/links"
	"github.com/mikepea/tagmark/pkg/tagmark/logger"
	"github.com/mikepea/tagmark/pkg/tagmark/models"
	"github.com/mikepea/tagmark/pkg/tagmark/progress"
	"github.com/mikepea/tagmark/pkg/tagmark/store"
	"github.com/mikepea/tagmark/pkg/tagmark/tags"
	"gorm.io/gorm"
)

// @title Tagmark API
// @version 1.0
// @description A personal bookmark manager with tag search and Netscape import/export.

// @BasePath /api

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description JWT token. Format: "Bearer {token}"

func main() {
	cfg := config.Load()
	logger.Init(cfg.Env)

	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
		if cfg.JWTSecret == "" {
			logger.Log.Warn().Msg("JWT_SECRET is not set; using the development secret")
		}
	}
	auth.SetSecret(cfg.JWTSecret)

	err := database.Connect(database.Options{
		Driver: cfg.DBDriver,
		Path:   cfg.DBPath,
		DSN:    cfg.DBDSN,
		Debug:  cfg.IsDevelopment(),
	})
	if err != nil {
		logger.Log.Fatal().Err(err).Str("driver", cfg.DBDriver).Msg("failed to connect to database")
	}

	if err := models.AutoMigrate(database.GetDB()); err != nil {
		logger.Log.Fatal().Err(err).Msg("failed to run migrations")
	}
	logger.Log.Info().Msg("database migrations completed")

	hub := progress.NewHub()
	socketServer := progress.NewSocketServer(hub, auth.TokenUserID)
	go func() {
		if err := socketServer.Serve(); err != nil {
			logger.Log.Error().Err(err).Msg("socket server stopped")
		}
	}()
	defer socketServer.Close()

	r := setupRouter(database.GetDB(), hub, cfg)
	r.GET("/socket.io/*any", gin.WrapH(socketServer))
	r.POST("/socket.io/*any", gin.WrapH(socketServer))

	serveFrontend(r, "./web/dist")

	logger.Log.Info().Str("port", cfg.Port).Msg("starting tagmark server")
	if err := r.Run(":" + cfg.Port); err != nil {
		logger.Log.Fatal().Err(err).Msg("failed to start server")
	}
}

// setupRouter builds the engine with every API route. The socket.io endpoint
// is mounted by the caller since it needs a running server.
func setupRouter(db *gorm.DB, hub *progress.Hub, cfg *config.Config) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), logger.Middleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	svc := bookmarks.NewService(store.New(db), hub, cfg.PageSize)

	api := r.Group("/api")
	{
		api.GET("/health", func(c *gin.Context) {
			c.JSON(200, gin.H{
				"status":      "ok",
				"service":     "tagmark",
				"connections": hub.Count(),
			})
		})

		// Auth routes (public except /me)
		authHandler := auth.NewHandler(db)
		authHandler.RegisterRoutes(api.Group("/auth"))

		// Links: reads accept anonymous callers, writes need a token
		linksHandler := links.NewHandler(svc)
		linksHandler.RegisterRoutes(api.Group("/links"))

		tagsHandler := tags.NewHandler(svc)
		tagsHandler.RegisterRoutes(api)

		importExportHandler := importexport.NewHandler(svc)
		importExportHandler.RegisterRoutes(api)
	}

	return r
}

// serveFrontend serves a built single-page app from dir when it exists
func serveFrontend(r *gin.Engine, dir string) {
	if _, err := os.Stat(dir); err != nil {
		logger.Log.Info().Str("dir", dir).Msg("no frontend build found - API only mode")
		return
	}

	r.Static("/assets", filepath.Join(dir, "assets"))
	r.StaticFile("/favicon.ico", filepath.Join(dir, "favicon.ico"))

	// SPA fallback for every route the API does not own
	indexHTML := filepath.Join(dir, "index.html")
	r.NoRoute(func(c *gin.Context) {
		c.File(indexHTML)
	})

	logger.Log.Info().Str("dir", dir).Msg("serving frontend")
}
