package http

import (
	"time"

	"github.com/gin-gonic/gin"

	"notesage/internal/ai"
	appsvc "notesage/internal/app"
	"notesage/internal/bootstrap"
	"notesage/internal/cache"
	"notesage/internal/platform/rabbitmq"
	"notesage/internal/transport/http/handler"
	"notesage/internal/transport/http/middleware"
)

func NewRouter(app *bootstrap.App) *gin.Engine {
	gin.SetMode(app.Config.App.GinMode)
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())
	router.Use(middleware.CORS(app.Config.CORS.AllowedOrigins))

	llmClient := ai.NewOpenAICompatibleClient(app.Config.Ingest.EmbedRatePerSec)
	embCfg := ai.EmbeddingConfig{
		BaseURL: app.Config.LLM.BaseURL,
		APIKey:  app.Config.LLM.APIKey,
		Model:   app.Config.LLM.EmbeddingModel,
		Dim:     app.Config.LLM.EmbeddingDim,
	}
	chatCfg := ai.ChatConfig{
		BaseURL:     app.Config.LLM.BaseURL,
		APIKey:      app.Config.LLM.APIKey,
		Model:       app.Config.LLM.Model,
		Temperature: app.Config.LLM.Temperature,
		MaxTokens:   app.Config.LLM.MaxTokens,
	}

	historyCache := cache.NewHistoryCache(
		app.Redis,
		time.Duration(app.Config.Redis.HistoryTTLSeconds)*time.Second,
		app.Config.Redis.HistoryMaxTurns,
	)
	retirePublisher := rabbitmq.NewRetirePublisher(app.MQConn, app.Config.RabbitMQ.RetireBatchQueue)

	ingestService := appsvc.NewIngestService(
		app.VectorStore,
		llmClient,
		embCfg,
		retirePublisher,
		historyCache,
		appsvc.IngestConfig{
			ChunkSize:        app.Config.Ingest.ChunkSize,
			ChunkOverlap:     app.Config.Ingest.ChunkOverlap,
			MaxChunksPerFile: app.Config.Ingest.MaxChunksPerFile,
			EmbedWorkers:     app.Config.Ingest.EmbedWorkers,
			TempDir:          app.Config.Ingest.TempDir,
		},
	)
	answerService := appsvc.NewAnswerService(
		app.VectorStore,
		llmClient,
		llmClient,
		historyCache,
		embCfg,
		chatCfg,
		appsvc.RetrievalConfig{
			TopK:               app.Config.Retrieval.TopK,
			Threshold:          float32(app.Config.Retrieval.Threshold),
			ChunkContextChars:  app.Config.Retrieval.ChunkContextChars,
			TotalContextChars:  app.Config.Retrieval.TotalContextChars,
			HistoryTurns:       app.Config.Retrieval.HistoryTurns,
			SourceCount:        app.Config.Retrieval.SourceCount,
			SourceExcerptChars: app.Config.Retrieval.SourceExcerptChars,
		},
	)
	cleanupService := appsvc.NewCleanupService(app.VectorStore, historyCache)

	production := app.Config.IsProduction()
	documentsHandler := handler.NewDocumentsHandler(ingestService, cleanupService, production)
	askHandler := handler.NewAskHandler(answerService, production)
	healthHandler := handler.NewHealthHandler(app.Config.App.Env)

	router.GET("/health", healthHandler.Check)

	api := router.Group("/api")
	api.Use(middleware.VerifyToken(app.Config.Auth.JWTSecret, !production))
	api.POST("/process", documentsHandler.Process)
	api.POST("/ask", askHandler.Ask)
	api.POST("/cleanup", documentsHandler.Cleanup)

	return router
}
