package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/Domenick1991/flightbooking/config"
	"github.com/Domenick1991/flightbooking/internal/email"
	"github.com/Domenick1991/flightbooking/internal/kafka"
	"github.com/Domenick1991/flightbooking/internal/logger"
	"github.com/Domenick1991/flightbooking/internal/repository"
	"github.com/Domenick1991/flightbooking/internal/service/booking"
	"github.com/Domenick1991/flightbooking/internal/service/pricing"
	"github.com/Domenick1991/flightbooking/internal/worker"
)

func main() {
	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config.yaml"
	}

	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logg, err := logger.New(cfg.Log)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer logg.Sync()

	if cfg.Storage.Driver != "postgres" {
		logg.Fatal("worker requires postgres storage", zap.String("driver", cfg.Storage.Driver))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.Database.DSN())
	if err != nil {
		logg.Fatal("connect postgres", zap.Error(err))
	}
	defer pool.Close()

	producer := kafka.NewProducer(cfg.Kafka.Brokers, logg.Named("kafka"))
	defer producer.Close()
	checkCtx, cancelCheck := context.WithTimeout(ctx, 5*time.Second)
	if err := producer.CheckConnection(checkCtx); err != nil {
		logg.Warn("kafka unavailable at startup", zap.Error(err))
	}
	cancelCheck()

	flightRepo := repository.NewFlightRepository(pool)
	walletLedger := repository.NewWalletLedger(pool)
	bookingService := booking.NewBookingService(
		repository.NewBookingRepository(pool),
		flightRepo,
		repository.NewSeatLedger(pool),
		walletLedger,
		repository.NewTxManager(pool),
		pricing.NewCalculator(cfg.Booking),
		cfg.Booking,
		logg.Named("booking"),
		booking.WithProducer(producer, cfg.Kafka.BookingEventsTopic, cfg.Kafka.NotificationsTopic),
	)

	scheduler := worker.NewScheduler(bookingService, logg.Named("scheduler"))
	if err := scheduler.Start(ctx, cfg.Worker.CompletionSchedule); err != nil {
		logg.Fatal("start scheduler", zap.Error(err))
	}
	defer scheduler.Stop()

	consumer := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.GroupID, cfg.Kafka.NotificationsTopic, logg.Named("consumer"))
	defer consumer.Close()

	emailSender := email.NewSender(logg.Named("email"))

	logg.Info("worker started", zap.String("topic", cfg.Kafka.NotificationsTopic))
	if err := consumer.Consume(ctx, emailSender.Send); err != nil {
		logg.Error("consumer stopped", zap.Error(err))
	}
	logg.Info("worker stopped")
}
