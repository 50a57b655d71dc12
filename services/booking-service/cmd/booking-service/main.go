package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/slotline/slotline/libs/auth"
	"github.com/slotline/slotline/libs/config"
	"github.com/slotline/slotline/libs/db"
	"github.com/slotline/slotline/libs/httpx"
	"github.com/slotline/slotline/libs/otelx"
	"github.com/slotline/slotline/libs/runtime"
	"github.com/slotline/slotline/migrations"
	"github.com/slotline/slotline/services/booking-service/internal/booking"
	"github.com/slotline/slotline/services/booking-service/internal/handlers"
	"github.com/slotline/slotline/services/booking-service/internal/metrics"
	"github.com/slotline/slotline/services/booking-service/internal/model"
	"github.com/slotline/slotline/services/booking-service/internal/outbox"
	"github.com/slotline/slotline/services/booking-service/internal/storage"
)

func main() {
	config.LoadDotenv()

	service := config.String("SERVICE_NAME", "booking-service")
	port, err := config.Port("PORT", "8080")
	if err != nil {
		panic(err)
	}
	logger := runtime.NewLogger(service)

	ctx, stop := runtime.SignalContext()
	defer stop()

	otelShutdown, err := otelx.Setup(ctx, otelx.ConfigFromEnv(service))
	if err != nil {
		logger.Error("otel setup failed", "err", err)
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = otelShutdown(shutdownCtx)
		}()
	}

	dbURL, err := config.RequiredString("DATABASE_URL")
	if err != nil {
		panic(err)
	}
	tokenSecret, err := config.RequiredString("SESSION_SECRET")
	if err != nil {
		panic(err)
	}

	pool, err := db.Open(ctx, dbURL, db.Options{
		MaxConns: int32(config.Int("DB_MAX_CONNS", 10)),
	})
	if err != nil {
		logger.Error("db connection failed", "err", err)
		panic(err)
	}
	defer pool.Close()

	if err := db.Migrate(ctx, pool, migrations.FS); err != nil {
		logger.Error("migrations failed", "err", err)
		panic(err)
	}

	metrics.Register()

	outboxRepo := outbox.NewRepository(pool)
	scheduleRepo := storage.NewScheduleRepository(pool)
	appointmentRepo := storage.NewAppointmentRepository(pool, outboxRepo)
	blockRepo := storage.NewBlockRepository(pool)
	staffRepo := storage.NewStaffRepository(pool)

	svc := booking.NewService(scheduleRepo, appointmentRepo, blockRepo, logger)

	if email := config.String("BOOTSTRAP_OWNER_EMAIL", ""); email != "" {
		if err := bootstrapOwner(ctx, scheduleRepo, staffRepo, email,
			config.String("BOOTSTRAP_OWNER_PASSWORD", ""),
			config.String("BOOTSTRAP_LOCATION_NAME", "Main"),
			config.Int("BOOTSTRAP_LOCATION_CAPACITY", 10)); err != nil {
			logger.Error("owner bootstrap failed", "err", err)
			panic(err)
		}
	}

	publisher := outbox.NewPublisher(pool, outboxRepo, logger, outbox.PublisherConfig{
		Brokers:   config.String("KAFKA_BROKERS", ""),
		PollEvery: config.Duration("OUTBOX_POLL_EVERY", 2*time.Second),
		BatchSize: config.Int("OUTBOX_BATCH_SIZE", 50),
	})
	go publisher.Run(ctx)

	var limiter *httpx.RedisRateLimiter
	if redisAddr := config.String("REDIS_ADDR", ""); redisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: redisAddr})
		defer func() { _ = rdb.Close() }()
		limiter = httpx.NewRedisRateLimiter(rdb,
			config.Int("RATE_LIMIT_PER_MINUTE", 60), time.Minute, service)
	}

	h := handlers.NewHandler(svc, scheduleRepo, staffRepo, logger, tokenSecret)
	router := handlers.NewRouter(h, handlers.RouterConfig{
		AllowedOrigins: []string{config.String("CORS_ORIGIN", "*")},
		RateLimit:      limiter,
		Ready: []runtime.ReadyCheck{
			{Name: "db", Check: db.ReadyCheck(pool)},
		},
	})

	httpHandler := httpx.Chain(router,
		httpx.WithAccessLog(logger),
		httpx.WithBodyLimit(1<<20),
		httpx.WithTimeout(30*time.Second),
	)
	httpHandler = otelhttp.NewHandler(httpHandler, "booking")

	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           httpHandler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("http server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server error", "err", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "err", err)
	}
	logger.Info("http server stopped")
}

// bootstrapOwner seeds the first location and owner account so a fresh
// install can log in. It does nothing when the owner already exists.
func bootstrapOwner(ctx context.Context, schedules *storage.ScheduleRepository, staff *storage.StaffRepository, email, password, locationName string, capacity int) error {
	if password == "" {
		return errors.New("BOOTSTRAP_OWNER_PASSWORD is required when BOOTSTRAP_OWNER_EMAIL is set")
	}
	existing, err := staff.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	if existing != nil {
		return nil
	}
	locationID, err := schedules.CreateLocation(ctx, locationName, capacity)
	if err != nil {
		return err
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}
	_, err = staff.Create(ctx, &model.StaffUser{
		LocationID:   locationID,
		Email:        email,
		PasswordHash: hash,
		Role:         "owner",
	})
	return err
}
