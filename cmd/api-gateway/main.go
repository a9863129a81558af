package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/academic-scheduler/api/swagger"
	schema "github.com/noah-isme/academic-scheduler/db"
	"github.com/noah-isme/academic-scheduler/internal/handler"
	internalmiddleware "github.com/noah-isme/academic-scheduler/internal/middleware"
	"github.com/noah-isme/academic-scheduler/internal/repository"
	"github.com/noah-isme/academic-scheduler/internal/scheduling"
	"github.com/noah-isme/academic-scheduler/internal/service"
	"github.com/noah-isme/academic-scheduler/pkg/cache"
	"github.com/noah-isme/academic-scheduler/pkg/config"
	"github.com/noah-isme/academic-scheduler/pkg/database"
	"github.com/noah-isme/academic-scheduler/pkg/jobs"
	"github.com/noah-isme/academic-scheduler/pkg/lock"
	"github.com/noah-isme/academic-scheduler/pkg/logger"
	corsmiddleware "github.com/noah-isme/academic-scheduler/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/academic-scheduler/pkg/middleware/requestid"
)

// @title Academic Scheduler API
// @version 1.0.0
// @description Timetable validation, generation and conflict resolution for rooms, teachers and student groups.
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

type redisPinger struct{ client *redis.Client }

func (p redisPinger) PingContext(ctx context.Context) error {
	return p.client.Ping(ctx).Err()
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer db.Close()

	if cfg.Database.AutoMigrate {
		versions, err := database.Migrate(context.Background(), db, schema.Migrations, "migrations")
		if err != nil {
			logr.Fatal("failed to apply migrations", zap.Error(err))
		}
		logr.Info("schema up to date", zap.Strings("applied", versions))
	}

	var redisClient *redis.Client
	if cfg.Cache.Enabled || cfg.Locks.Backend == config.LockBackendRedis {
		redisClient, err = cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Fatal("failed to connect to redis", zap.Error(err))
		}
		defer redisClient.Close()
	}

	var locker lock.Locker
	if cfg.Locks.Backend == config.LockBackendRedis {
		locker = lock.NewRedisLocker(redisClient, cfg.Locks.TTL, cfg.Locks.WaitTimeout)
	} else {
		locker = lock.NewLocalLocker(cfg.Locks.WaitTimeout)
	}

	metrics := service.NewMetricsService()
	validate := validator.New()

	userRepo := repository.NewUserRepository(db)
	roomRepo := repository.NewRoomRepository(db)
	groupRepo := repository.NewGroupRepository(db)
	teacherRepo := repository.NewTeacherRepository(db)
	sessionRepo := repository.NewSessionRepository(db)
	makeupRepo := repository.NewMakeupRepository(db)
	reservationRepo := repository.NewReservationRepository(db)
	blockRepo := repository.NewAvailabilityBlockRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	occupationRepo := repository.NewOccupationRepository(db)

	var cacheSvc *service.CacheService
	if redisClient != nil {
		cacheSvc = service.NewCacheService(repository.NewCacheRepository(redisClient), metrics, cfg.Cache.RoomsTTL, logr, cfg.Cache.Enabled)
	}

	slots := make([]scheduling.Interval, 0, len(cfg.Scheduling.Slots))
	for _, slot := range cfg.Scheduling.Slots {
		slots = append(slots, scheduling.Interval{Start: slot.Start, End: slot.End})
	}
	planner := service.NewPlanner(occupationRepo, blockRepo, teacherRepo, groupRepo, service.SchedulingOptions{
		PauseMinutes: cfg.Scheduling.PauseMinutes,
		Template:     scheduling.NewSlotTemplate(slots),
		Limits: scheduling.Limits{
			MinSessionMinutes: cfg.Scheduling.MinSessionMinutes,
			MaxSessionMinutes: cfg.Scheduling.MaxSessionMinutes,
			DailyCapMinutes:   cfg.Scheduling.DailyCapMinutes,
			ReservationNotice: cfg.Scheduling.ReservationNotice,
		},
		WeeklyCap: cfg.Scheduling.GeneratorWeeklyCapMinutes,
		Algorithm: cfg.Scheduling.Algorithm,
	})
	planner.UseMetrics(metrics)

	notificationSvc := service.NewNotificationService(notificationRepo, userRepo, metrics, logr)
	if cfg.Notifications.Async {
		queue := jobs.NewQueue("notifications", notificationSvc.HandleJob, jobs.QueueConfig{
			Workers:     cfg.Notifications.Workers,
			MaxRetries:  cfg.Notifications.Retries,
			RetryDelay:  cfg.Notifications.RetryDelay,
			Logger:      logr,
			OnExhausted: notificationSvc.HandleExhausted,
		})
		queue.Start(context.Background())
		defer queue.Stop()
		notificationSvc.UseQueue(queue)
	}

	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             cfg.JWT.Issuer,
	})
	roomSvc := service.NewRoomService(roomRepo, planner, cacheSvc, validate, logr, cfg.Cache.RoomsTTL)
	sessionSvc := service.NewSessionService(sessionRepo, planner, roomSvc, db, locker, metrics, validate, logr)
	generatorSvc := service.NewGeneratorService(sessionRepo, planner, roomSvc, db, locker, metrics, validate, logr)
	absenceSvc := service.NewAbsenceService(sessionRepo, blockRepo, teacherRepo, notificationSvc, db, locker, metrics, validate, logr)
	makeupSvc := service.NewMakeupService(makeupRepo, planner, roomSvc, notificationSvc, db, locker, metrics, validate, logr)
	reservationSvc := service.NewReservationService(reservationRepo, planner, roomSvc, notificationSvc, db, locker, metrics, validate, logr)
	exportSvc := service.NewExportService(occupationRepo, roomSvc, validate, logr)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins, cfg.CORS.MaxAge))
	r.Use(internalmiddleware.Metrics(metrics))
	r.Use(internalmiddleware.WithResponseMeta())

	deps := map[string]handler.Pinger{"postgres": db}
	if redisClient != nil {
		deps["redis"] = redisPinger{client: redisClient}
	}
	metricsHandler := handler.NewMetricsHandler(metrics, deps)
	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	handler.Register(r.Group(cfg.APIPrefix), handler.Handlers{
		Auth:          handler.NewAuthHandler(authSvc),
		Rooms:         handler.NewRoomHandler(roomSvc),
		Sessions:      handler.NewSessionHandler(sessionSvc),
		Generator:     handler.NewGeneratorHandler(generatorSvc),
		Absences:      handler.NewAbsenceHandler(absenceSvc),
		Makeups:       handler.NewMakeupHandler(makeupSvc),
		Reservations:  handler.NewReservationHandler(reservationSvc),
		Notifications: handler.NewNotificationHandler(notificationSvc),
		Export:        handler.NewExportHandler(exportSvc),
	}, internalmiddleware.JWT(authSvc), userRepo)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env), zap.String("lock_backend", cfg.Locks.Backend))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
	logr.Info("server stopped")
}
