package main

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/slotline/slotline/libs/config"
	"github.com/slotline/slotline/libs/db"
	"github.com/slotline/slotline/libs/httpx"
	"github.com/slotline/slotline/libs/kafkax"
	"github.com/slotline/slotline/libs/otelx"
	"github.com/slotline/slotline/libs/runtime"
	"github.com/slotline/slotline/services/notification-service/internal/consumer"
	"github.com/slotline/slotline/services/notification-service/internal/email"
	"github.com/slotline/slotline/services/notification-service/internal/inbox"
	"github.com/slotline/slotline/services/notification-service/internal/message"
	"github.com/slotline/slotline/services/notification-service/internal/storage"
)

func main() {
	config.LoadDotenv()

	service := config.String("SERVICE_NAME", "notification-service")
	port, err := config.Port("PORT", "8081")
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
	pool, err := db.Open(ctx, dbURL, db.Options{})
	if err != nil {
		logger.Error("db connection failed", "err", err)
		panic(err)
	}
	defer pool.Close()

	sender := email.NewSMTPSender(
		config.String("SMTP_HOST", "localhost"),
		config.String("SMTP_PORT", "1025"),
		config.String("SMTP_FROM", ""),
		float64(config.Int("EMAIL_RATE_PER_SECOND", 5)),
	)
	notifications := storage.NewRepository(pool)
	inboxRepo := inbox.NewRepository(pool)
	brokers := config.String("KAFKA_BROKERS", "localhost:9092")
	groupID := config.String("KAFKA_GROUP_ID", "notification-service")

	record := func(ctx context.Context, n storage.Notification) {
		if err := notifications.Insert(ctx, n); err != nil {
			logger.Error("notification record failed", "err", err, "appointment_id", n.AppointmentID)
		}
	}

	onBooked := func(ctx context.Context, msg kafka.Message) error {
		var p message.Booked
		if err := json.Unmarshal(msg.Value, &p); err != nil {
			logger.Error("invalid booked payload", "err", err)
			return nil
		}
		if p.ClientEmail == "" {
			return nil
		}
		subject, body := message.BookedEmail(p)
		status := "sent"
		if err := sender.Send(ctx, p.ClientEmail, subject, body); err != nil {
			logger.Error("email send failed", "err", err, "appointment_id", p.AppointmentID)
			status = "failed"
		}
		record(ctx, storage.Notification{
			AppointmentID: p.AppointmentID,
			LocationID:    p.LocationID,
			Channel:       "email",
			Recipient:     p.ClientEmail,
			Payload:       map[string]any{"subject": subject, "day": p.Day, "start": p.Start},
			Status:        status,
		})
		return nil
	}

	onCancelled := func(ctx context.Context, msg kafka.Message) error {
		var p message.Cancelled
		if err := json.Unmarshal(msg.Value, &p); err != nil {
			logger.Error("invalid cancelled payload", "err", err)
			return nil
		}
		recipient, err := lookupClientEmail(ctx, pool, p.AppointmentID)
		if err != nil {
			return err
		}
		if recipient == "" {
			return nil
		}
		subject, body := message.CancelledEmail(p)
		status := "sent"
		if err := sender.Send(ctx, recipient, subject, body); err != nil {
			logger.Error("email send failed", "err", err, "appointment_id", p.AppointmentID)
			status = "failed"
		}
		record(ctx, storage.Notification{
			AppointmentID: p.AppointmentID,
			LocationID:    p.LocationID,
			Channel:       "email",
			Recipient:     recipient,
			Payload:       map[string]any{"subject": subject, "day": p.Day, "start": p.Start},
			Status:        status,
		})
		return nil
	}

	startConsumer := func(topic string, handler consumer.Handler) {
		c := consumer.New(logger, inboxRepo, consumer.Config{
			Brokers: brokers,
			GroupID: groupID,
			Topic:   topic,
		}, handler)
		go c.Run(ctx)
	}
	startConsumer("appointment.booked", onBooked)
	startConsumer("appointment.cancelled", onCancelled)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", runtime.HealthHandler())
	mux.HandleFunc("/readyz", runtime.ReadyHandler(
		runtime.ReadyCheck{Name: "db", Check: db.ReadyCheck(pool)},
		runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(brokers)},
	))
	httpHandler := httpx.Chain(mux,
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
	)
	httpHandler = otelhttp.NewHandler(httpHandler, "notification")

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

// lookupClientEmail resolves the recipient for cancellations, whose payload
// carries no contact details.
func lookupClientEmail(ctx context.Context, pool *db.Pool, appointmentID string) (string, error) {
	var emailAddr string
	err := pool.QueryRow(ctx, `
		SELECT COALESCE(c.email, '')
		FROM appointments a
		LEFT JOIN clients c ON c.id = a.client_id
		WHERE a.id = $1
	`, appointmentID).Scan(&emailAddr)
	if err != nil {
		return "", err
	}
	return emailAddr, nil
}
