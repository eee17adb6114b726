package main

import (
	"context"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/UnifiedAI-ONeID/verbatim/config"
	"github.com/UnifiedAI-ONeID/verbatim/internal/api/handlers"
	"github.com/UnifiedAI-ONeID/verbatim/internal/api/middleware"
	"github.com/UnifiedAI-ONeID/verbatim/internal/api/routes"
	"github.com/UnifiedAI-ONeID/verbatim/internal/cache"
	"github.com/UnifiedAI-ONeID/verbatim/internal/capabilities"
	"github.com/UnifiedAI-ONeID/verbatim/internal/logger"
	"github.com/UnifiedAI-ONeID/verbatim/internal/models"
	"github.com/UnifiedAI-ONeID/verbatim/internal/providers/llm"
	"github.com/UnifiedAI-ONeID/verbatim/internal/providers/stt"
	"github.com/UnifiedAI-ONeID/verbatim/internal/recorder"
	mongorepo "github.com/UnifiedAI-ONeID/verbatim/internal/repositories/mongo"
	pgrepo "github.com/UnifiedAI-ONeID/verbatim/internal/repositories/postgres"
	"github.com/UnifiedAI-ONeID/verbatim/internal/services"
	"github.com/UnifiedAI-ONeID/verbatim/internal/storage"
	"github.com/UnifiedAI-ONeID/verbatim/internal/workers"
)

func main() {
	_ = godotenv.Load()

	log := logger.New()
	app := config.LoadApp()

	// Init MongoDB
	if err := config.InitMongo(); err != nil {
		log.Fatalf("MongoDB init error: %v", err)
	}
	if err := config.EnsureMongoIndexes(); err != nil {
		log.Fatalf("MongoDB index error: %v", err)
	}
	log.Info("MongoDB connected")

	// Init PostgreSQL
	if err := config.InitPostgres(); err != nil {
		log.Fatalf("PostgreSQL init error: %v", err)
	}
	if err := config.PostgresDB.AutoMigrate(
		&models.User{},
		&models.ActionInvocation{},
		&models.MeetingDigest{},
	); err != nil {
		log.Fatalf("PostgreSQL migrate error: %v", err)
	}
	log.Info("PostgreSQL connected")

	// Init Redis
	if err := config.InitRedis(); err != nil {
		log.Fatalf("Redis init error: %v", err)
	}
	log.Info("Redis connected")

	ctx := context.Background()

	blobs, err := storage.NewGCSStore(ctx, app.GCSBucket)
	if err != nil {
		log.Fatalf("GCS init error: %v", err)
	}
	defer blobs.Close()

	gateway, err := llm.NewVertexGemini(ctx, app.VertexProject, app.VertexLocation, app.VertexModel)
	if err != nil {
		log.Fatalf("Vertex init error: %v", err)
	}
	defer gateway.Close()

	if app.UseSTTPrePass {
		speech, serr := stt.NewGoogleSpeech(ctx)
		if serr != nil {
			log.Fatalf("Speech init error: %v", serr)
		}
		defer speech.Close()
		gateway.WithSTT(speech)
	}

	dbName := os.Getenv("MONGO_DB")
	if dbName == "" {
		dbName = "verbatim"
	}
	mongoDB := config.MongoClient.Database(dbName)

	sessionRepo := mongorepo.NewSessionRepo(mongoDB)
	userRepo := pgrepo.NewUserRepo(config.PostgresDB)
	actionRepo := pgrepo.NewActionRepo(config.PostgresDB)
	digestRepo := pgrepo.NewDigestRepo(config.PostgresDB)

	redisCache := cache.NewRedisCache(config.RedisClient)
	eventPub := services.NewRedisEventPublisher(config.RedisClient)

	sessionSvc := services.NewSessionService(sessionRepo, digestRepo, blobs, redisCache, eventPub, log)
	userSvc := services.NewUserService(userRepo, os.Getenv("VERBATIM_JWT_SECRET"))
	actionSvc := services.NewActionService(sessionSvc, gateway, actionRepo, log)

	pool := &workers.AnalysisWorkerPool{
		Redis:      config.RedisClient,
		Sessions:   sessionSvc,
		Blobs:      blobs,
		Gateway:    gateway,
		NumWorkers: app.AnalysisWorkers,
		Logger:     log,
		JobTimeout: app.AnalysisTimeout,
	}
	if err := pool.Start(ctx); err != nil {
		log.Fatalf("worker pool error: %v", err)
	}

	geocoder := capabilities.NewHTTPGeocoder(app.GeocodeEndpoint, app.GeocodeTimeout, log)
	manager := recorder.NewManager()

	captureCfg := handlers.CaptureConfig{
		MinDuration:     time.Duration(app.MinRecordingSeconds) * time.Second,
		TooShortPolicy:  app.TooShortPolicy,
		AnalysisTimeout: app.AnalysisTimeout,
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(log))

	routes.RegisterRoutes(r, routes.Deps{
		Auth:    handlers.NewAuthHandler(userSvc),
		Session: handlers.NewSessionHandler(sessionSvc, config.RedisClient),
		Action:  handlers.NewActionHandler(actionSvc, sessionSvc),
		Capture: handlers.NewCaptureHandler(userSvc, sessionSvc, blobs, gateway, geocoder, config.RedisClient, manager, captureCfg, log),
		Pip:     handlers.NewPipHandler(config.RedisClient, log),
		Watch:   handlers.NewWatchHandler(config.RedisClient),
	})

	log.WithField("port", app.Port).Info("starting server")
	if err := r.Run(":" + app.Port); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
