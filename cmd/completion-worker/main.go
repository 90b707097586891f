package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/robertarktes/rail-seat-booking/internal/adapters/crdb"
	mongoadapter "github.com/robertarktes/rail-seat-booking/internal/adapters/mongo"
	"github.com/robertarktes/rail-seat-booking/internal/completion"
	"github.com/robertarktes/rail-seat-booking/internal/config"
	"github.com/robertarktes/rail-seat-booking/internal/observability"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	shutdownOtel, err := observability.SetupOTel(context.Background(), cfg, "rail-completion-worker")
	if err != nil {
		log.Fatalf("failed to setup otel: %v", err)
	}
	defer shutdownOtel()

	logger := observability.NewLogger(cfg.LogLevel)

	pool, err := pgxpool.New(context.Background(), cfg.CRDBDSN)
	if err != nil {
		log.Fatalf("failed to connect to crdb: %v", err)
	}
	defer pool.Close()
	repo := crdb.NewRepository(pool)

	mongoClient, err := mongo.Connect(context.Background(), options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		log.Fatalf("failed to connect to mongo: %v", err)
	}
	defer mongoClient.Disconnect(context.Background())
	mongoDB := mongoClient.Database(cfg.MongoDB)
	audit := mongoadapter.NewAuditLogger(mongoDB, logger)
	notes := mongoadapter.NewNotificationStore(mongoDB, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.WithField("interval", cfg.CompletionInterval.String()).Info("Completion worker started")
	completion.NewWorker(repo, audit, notes, logger).Run(ctx, cfg.CompletionInterval)
	logger.Info("Shutdown completion worker")
}
