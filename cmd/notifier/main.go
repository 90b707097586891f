package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	mongoadapter "github.com/robertarktes/rail-seat-booking/internal/adapters/mongo"
	"github.com/robertarktes/rail-seat-booking/internal/adapters/rabbit"
	"github.com/robertarktes/rail-seat-booking/internal/config"
	"github.com/robertarktes/rail-seat-booking/internal/notify"
	"github.com/robertarktes/rail-seat-booking/internal/observability"
)

const queue = "rail.notifications"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	shutdownOtel, err := observability.SetupOTel(context.Background(), cfg, "rail-notifier")
	if err != nil {
		log.Fatalf("failed to setup otel: %v", err)
	}
	defer shutdownOtel()

	logger := observability.NewLogger(cfg.LogLevel)

	mongoClient, err := mongo.Connect(context.Background(), options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		log.Fatalf("failed to connect to mongo: %v", err)
	}
	defer mongoClient.Disconnect(context.Background())
	store := mongoadapter.NewNotificationStore(mongoClient.Database(cfg.MongoDB), logger)

	conn, err := amqp.Dial(cfg.RabbitURL)
	if err != nil {
		log.Fatalf("failed to connect to rabbitmq: %v", err)
	}
	defer conn.Close()
	consumer, err := rabbit.NewConsumer(conn, queue, notify.Patterns...)
	if err != nil {
		log.Fatalf("failed to create consumer: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	deliveries, err := consumer.Consume(ctx)
	if err != nil {
		log.Fatalf("failed to consume %s: %v", queue, err)
	}

	logger.WithField("queue", queue).Info("Notifier started")
	notify.NewNotifier(store, logger).Run(ctx, deliveries)
	logger.Info("Shutdown notifier")
}
