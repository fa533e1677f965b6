package main

import (
	"net/http"
	"slices"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/djkaif/Scribble-bot/codes"
	"github.com/djkaif/Scribble-bot/game"
	"github.com/djkaif/Scribble-bot/notify"
	"github.com/djkaif/Scribble-bot/session"
	"github.com/djkaif/Scribble-bot/shared/configs"
	"github.com/djkaif/Scribble-bot/shared/logger"
	"github.com/djkaif/Scribble-bot/words"
)

func CreateServer(allowedOrigins []string) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/health", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.Use(func(ctx *gin.Context) {
		origin := ctx.Request.Header.Get("Origin")
		if origin == "" || slices.Contains(allowedOrigins, origin) {
			ctx.Next()
			return
		}
		ctx.JSON(http.StatusForbidden, gin.H{"error": "forbidden origin"})
		ctx.Abort()
	})

	r.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowCredentials: true,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", "Origin"},
	}))

	return r
}

func main() {
	if configs.Envs.GIN_MODE == "release" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		logger.SetDebug()
	}

	wordsFile := configs.Envs.WORDS_FILE
	if wordsFile == "" {
		wordsFile = "./words.txt"
	}
	list, err := words.Load(wordsFile)
	if err != nil {
		logger.Fatalf("Couldn't load wordlist: %v", err)
	}

	var notifier notify.Notifier = notify.Nop{}
	if url := configs.Envs.NOTIFY_WEBHOOK_URL; url != "" {
		notifier = notify.NewWebhook(url)
	}

	registry := codes.NewRegistry()
	store := game.NewStore(registry, list, notifier)
	hub := session.NewHub()
	handler := session.NewHandler(store, registry, hub)

	stop := make(chan struct{})
	defer close(stop)
	go registry.RunSweeper(stop)
	go handler.RunTicker(stop)

	var allowedOrigins []string
	if configs.Envs.GIN_MODE == "release" {
		allowedOrigins = append(allowedOrigins, "https://"+configs.Envs.FRONTEND_ORIGIN)
		allowedOrigins = append(allowedOrigins, "https://www."+configs.Envs.FRONTEND_ORIGIN)
	} else {
		allowedOrigins = append(allowedOrigins, "http://"+configs.Envs.FRONTEND_ORIGIN)
	}

	r := CreateServer(allowedOrigins)
	handler.RegisterRoutes(r)

	port := configs.Envs.PORT
	if port == "" {
		port = "3000"
	}

	logger.Infof("Server listening on port %s", port)
	if err := r.Run(":" + port); err != nil {
		logger.Fatalf("Couldn't start server: %v", err)
	}
}
