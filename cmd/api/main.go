// @title Lingo Quiz API
// @version 1.0
// @description Phrase translation with spaced-repetition quizzes.
// @termsOfService http://swagger.io/terms/
// @contact.name API Support
// @contact.url http://www.swagger.io/support
// @contact.email support@swagger.io
// @license.name Apache 2.0
// @license.url http://www.apache.org/licenses/LICENSE-2.0.html
// @host localhost:8090
// @BasePath /api
// @schemes http https
// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name Authorization
// @description Type 'Bearer YOUR_JWT_TOKEN' to authorize.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	_ "lingo-quiz/cmd/api/docs"
	"lingo-quiz/internal/adapter"
	"lingo-quiz/internal/adapter/llm"
	"lingo-quiz/internal/cache"
	"lingo-quiz/internal/config"
	"lingo-quiz/internal/database"
	"lingo-quiz/internal/domain"
	"lingo-quiz/internal/handler"
	"lingo-quiz/internal/logger"
	"lingo-quiz/internal/middleware"
	"lingo-quiz/internal/repository"
	"lingo-quiz/internal/service"
	"lingo-quiz/internal/validation"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/swagger"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := logger.Initialize(cfg.Logger); err != nil {
		panic(err)
	}
	appLogger := logger.Get()
	defer logger.Sync()

	db, err := database.NewDB(cfg)
	if err != nil {
		appLogger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	userRepository := repository.NewSQLXUserRepository(db)
	phraseRepository := repository.NewSQLXPhraseRepository(db)
	translationRepository := repository.NewSQLXTranslationRepository(db)
	recordRepository := repository.NewSQLXLearningRecordRepository(db)
	attemptRepository := repository.NewSQLXQuizAttemptRepository(db)
	txManager := repository.NewTransactionManagerAdapter(db)

	// The translation cache is optional; without Redis every lookup reads the database.
	var cacheAdapter domain.Cache
	startupCtx, cancelStartup := context.WithTimeout(context.Background(), 5*time.Second)
	redisClient, err := cache.NewRedisClient(startupCtx, cfg.Redis)
	cancelStartup()
	if err != nil {
		appLogger.Warn("Redis unavailable, running without translation cache", zap.Error(err))
	} else {
		defer redisClient.Close()
		cacheAdapter = adapter.NewRedisCacheAdapter(redisClient)
		appLogger.Info("Successfully connected to Redis")
	}

	completer, err := llm.NewCompleter(cfg.LLM)
	if err != nil {
		appLogger.Fatal("Failed to create LLM client", zap.Error(err))
	}

	stages := domain.NewStageModel(domain.StagePolicy{Thresholds: map[domain.Stage]int{
		domain.StageBasic:        cfg.Quiz.Thresholds.Basic,
		domain.StageIntermediate: cfg.Quiz.Thresholds.Intermediate,
		domain.StageAdvanced:     cfg.Quiz.Thresholds.Advanced,
	}})
	scheduler := domain.NewReviewScheduler(stages, domain.IntervalPolicy{
		BasicCorrect:          cfg.Quiz.Intervals.BasicCorrect,
		BasicIncorrect:        cfg.Quiz.Intervals.BasicIncorrect,
		IntermediateCorrect:   cfg.Quiz.Intervals.IntermediateCorrect,
		IntermediateIncorrect: cfg.Quiz.Intervals.IntermediateIncorrect,
		AdvancedFirstCorrect:  cfg.Quiz.Intervals.AdvancedFirstCorrect,
		AdvancedRepeatCorrect: cfg.Quiz.Intervals.AdvancedRepeatCorrect,
		AdvancedIncorrect:     cfg.Quiz.Intervals.AdvancedIncorrect,
	})
	retry := service.NewBackoffPolicy(cfg.Quiz.Retry)

	translationService := service.NewTranslationService(translationRepository, cacheAdapter, completer, retry, cfg.LLM, cfg.Redis.TranslationTTL)
	quizService := service.NewQuizService(service.QuizServiceDeps{
		Users:                 userRepository,
		Phrases:               phraseRepository,
		Records:               recordRepository,
		Attempts:              attemptRepository,
		Translations:          translationService,
		Trigger:               service.NewQuizTrigger(recordRepository, cfg.Quiz.DefaultFrequency),
		Selector:              service.NewQuestionTypeSelector(nil),
		Generator:             service.NewQuestionGenerator(completer, retry, cfg.LLM),
		Evaluator:             service.NewAnswerEvaluator(completer, retry, cfg.LLM),
		Progress:              service.NewProgressUpdater(recordRepository, txManager, stages, scheduler),
		TxManager:             txManager,
		DefaultNativeLanguage: cfg.Quiz.DefaultNativeLanguage,
	})
	searchService := service.NewSearchService(userRepository, phraseRepository, translationService, quizService, cfg.Quiz.DefaultNativeLanguage)

	authService, err := service.NewAuthService(userRepository, cfg)
	if err != nil {
		appLogger.Fatal("Failed to create AuthService", zap.Error(err))
	}
	userService := service.NewUserService(userRepository, recordRepository, attemptRepository)
	appLogger.Info("Services initialized")

	validator := validation.NewValidator()

	app := fiber.New(fiber.Config{
		ErrorHandler: middleware.ErrorHandler(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
		BodyLimit:    1 * 1024 * 1024,
	})

	app.Use(recover.New())
	app.Use(middleware.RequestLogger())
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.Server.AllowOrigins,
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization",
		MaxAge:       300,
	}))

	app.Get("/swagger/*", swagger.HandlerDefault)
	app.Get("/healthz", func(c *fiber.Ctx) error {
		if err := db.PingContext(c.Context()); err != nil {
			return domain.NewPersistenceError("database unreachable", err)
		}
		cacheStatus := "disabled"
		if cacheAdapter != nil {
			cacheStatus = "ok"
			if err := cacheAdapter.Ping(c.Context()); err != nil {
				appLogger.Warn("Cache ping failed", zap.Error(err))
				cacheStatus = "unreachable"
			}
		}
		return c.JSON(fiber.Map{"status": "ok", "cache": cacheStatus})
	})

	handler.RegisterRoutes(app, authService, validator, handler.Handlers{
		Auth:   handler.NewAuthHandler(authService, validator),
		Search: handler.NewSearchHandler(searchService, validator),
		Quiz:   handler.NewQuizHandler(quizService, validator),
		User:   handler.NewUserHandler(userService, validator),
	})

	go func() {
		appLogger.Info("Starting server", zap.Int("port", cfg.Server.Port), zap.String("env", cfg.Env))
		if err := app.Listen(":" + strconv.Itoa(cfg.Server.Port)); err != nil {
			appLogger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	appLogger.Info("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := app.ShutdownWithContext(ctx); err != nil {
		appLogger.Error("Server forced to shutdown", zap.Error(err))
	}
	appLogger.Info("Server exited gracefully")
}
