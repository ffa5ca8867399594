package main

import (
	"database/sql"
	stdlog "log"
	"os"
	"runtime"
	"runtime/debug"

	"github.com/cleberrangel/wbs-stabilizer-api/internal/cache"
	"github.com/cleberrangel/wbs-stabilizer-api/internal/client"
	"github.com/cleberrangel/wbs-stabilizer-api/internal/config"
	"github.com/cleberrangel/wbs-stabilizer-api/internal/database"
	"github.com/cleberrangel/wbs-stabilizer-api/internal/handler"
	"github.com/cleberrangel/wbs-stabilizer-api/internal/logger"
	"github.com/cleberrangel/wbs-stabilizer-api/internal/metrics"
	"github.com/cleberrangel/wbs-stabilizer-api/internal/middleware"
	"github.com/cleberrangel/wbs-stabilizer-api/internal/repository"
	"github.com/cleberrangel/wbs-stabilizer-api/internal/rules"
	"github.com/cleberrangel/wbs-stabilizer-api/internal/schedule"
	"github.com/cleberrangel/wbs-stabilizer-api/internal/service"
	"github.com/cleberrangel/wbs-stabilizer-api/internal/stabilizer"
	"github.com/cleberrangel/wbs-stabilizer-api/internal/validator"
	"github.com/cleberrangel/wbs-stabilizer-api/internal/ws"
	"github.com/gin-gonic/gin"
)

const Version = "1.0.0"

func main() {
	// Carrega configurações
	cfg, err := config.Load()
	if err != nil {
		stdlog.Fatalf("Erro ao carregar configurações: %v", err)
	}

	// Inicializa logger estruturado
	logger.Init(cfg.LogLevel, cfg.LogJSON)
	log := logger.Global()
	log.Info().
		Str("version", Version).
		Str("port", cfg.Port).
		Str("log_level", cfg.LogLevel).
		Bool("log_json", cfg.LogJSON).
		Msg("WBS Stabilizer API iniciando")

	metrics.Init()

	// Regras de estimativa (arquivo opcional, senão padrão embutido)
	ruleSet := rules.Load(cfg.RulesPath)

	// Núcleo: validador, motor de consenso e scheduler
	wbsValidator := validator.New(ruleSet)
	engine := stabilizer.NewEngine(ruleSet, wbsValidator)
	scheduler := schedule.New()

	// PostgreSQL opcional para histórico de runs
	var historyRepo *repository.HistoryRepository
	sqlDB := openDatabase(cfg)
	if sqlDB != nil {
		defer database.Close(sqlDB)
		historyRepo = repository.NewHistoryRepository(sqlDB)
	}

	// Hub WebSocket para progresso de runs
	hub := ws.NewHub()
	go hub.Run()

	// Cliente de geração opcional
	var ensemble *service.EnsembleService
	if cfg.GeneratorEnabled() {
		generator := client.NewGenerator(client.Config{
			BaseURL:     cfg.LLMBaseURL,
			APIKey:      cfg.LLMAPIKey,
			Model:       cfg.LLMModel,
			Temperature: cfg.LLMTemperature,
		})
		ensemble = service.NewEnsembleService(generator, hub, cfg.MaxParallel, cfg.AttemptTimeout)
	} else {
		log.Warn().Msg("Cliente de geração não configurado; endpoint /analyze desabilitado")
	}

	// Retenção de resultados em memória
	store := cache.New[*service.AnalysisResult](cfg.ResultTTL)
	defer store.Stop()

	analysis := service.NewAnalysisService(
		ensemble, engine, wbsValidator, scheduler,
		store, historyRepo, hub, cfg.EnsembleIterations)

	excelGen := service.NewExcelGenerator()

	wbsHandler := handler.NewWBSHandler(analysis, wbsValidator, scheduler)
	analyzeHandler := handler.NewAnalyzeHandler(analysis, excelGen, historyRepo)
	rulesHandler := handler.NewRulesHandler(ruleSet)
	healthHandler := handler.NewHealthHandler(sqlDB, hub, Version)

	// Configura modo do Gin
	gin.SetMode(cfg.GinMode)

	// Inicializa router
	r := gin.New()
	r.Use(middleware.RequestID()) // Request ID + logging estruturado
	r.Use(middleware.MetricsMiddleware())
	r.Use(gin.Recovery())

	// Health e métricas (públicos)
	r.GET("/health", healthHandler.DetailedHealthCheck)
	r.GET("/health/live", healthHandler.LivenessCheck)
	r.GET("/health/ready", healthHandler.ReadinessCheck)
	r.GET("/metrics", healthHandler.GetMetrics)
	r.GET("/metrics/summary", healthHandler.GetMetricsSummary)

	// Debug memory endpoint (público)
	r.GET("/debug/memory", func(c *gin.Context) {
		var m runtime.MemStats
		runtime.ReadMemStats(&m)

		c.JSON(200, gin.H{
			"alloc_mb":       m.Alloc / 1024 / 1024,
			"total_alloc_mb": m.TotalAlloc / 1024 / 1024,
			"sys_mb":         m.Sys / 1024 / 1024,
			"heap_alloc_mb":  m.HeapAlloc / 1024 / 1024,
			"heap_inuse_mb":  m.HeapInuse / 1024 / 1024,
			"heap_objects":   m.HeapObjects,
			"goroutines":     runtime.NumGoroutine(),
			"gc_runs":        m.NumGC,
			"gc_pause_total": m.PauseTotalNs / 1000000, // ms
		})
	})

	// Force GC endpoint (público)
	r.POST("/debug/gc", func(c *gin.Context) {
		runtime.GC()
		debug.FreeOSMemory()
		c.JSON(200, gin.H{"status": "gc_completed"})
	})

	// Progresso de runs via WebSocket (público; exige run_id)
	r.GET("/ws", hub.ServeWS)

	// Grupo de rotas protegidas
	api := r.Group("/api/v1")
	api.Use(middleware.BearerAuth(middleware.AuthConfig{
		TokenAPI: cfg.TokenAPI,
	}))
	{
		api.POST("/stabilize", wbsHandler.Stabilize)
		api.POST("/validate", wbsHandler.Validate)
		api.POST("/normalize", wbsHandler.Normalize)
		api.POST("/schedule", wbsHandler.Schedule)
		api.POST("/analyze", analyzeHandler.Analyze)
		api.GET("/results/:id", analyzeHandler.GetResult)
		api.GET("/results/:id/excel", analyzeHandler.DownloadExcel)
		api.GET("/history", analyzeHandler.ListHistory)
		api.GET("/rules", rulesHandler.GetRules)
	}

	// Inicia servidor
	port := cfg.Port
	log.Info().Str("port", port).Msg("Servidor iniciando")

	if err := r.Run(":" + port); err != nil {
		log.Fatal().Err(err).Msg("Erro ao iniciar servidor")
		os.Exit(1)
	}
}

// openDatabase conecta ao PostgreSQL quando o histórico está habilitado.
// Falha de conexão não derruba o serviço: o histórico é opcional.
func openDatabase(cfg *config.Config) *sql.DB {
	log := logger.Global()

	if !cfg.HistoryEnabled() {
		log.Info().Msg("Histórico em PostgreSQL desabilitado")
		return nil
	}

	db, err := database.Connect(database.Config{
		Host:     cfg.DBHost,
		Port:     cfg.DBPort,
		User:     cfg.DBUser,
		Password: cfg.DBPassword,
		DBName:   cfg.DBName,
		SSLMode:  cfg.DBSSLMode,
	})
	if err != nil {
		log.Error().Err(err).Msg("Erro ao conectar ao PostgreSQL; seguindo sem histórico")
		return nil
	}

	if err := database.EnsureSchema(db); err != nil {
		log.Error().Err(err).Msg("Erro ao preparar schema; seguindo sem histórico")
		database.Close(db)
		return nil
	}

	return db
}
