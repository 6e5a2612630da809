package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/oksasatya/go-blog/config"
	"github.com/oksasatya/go-blog/internal/application"
	pginfra "github.com/oksasatya/go-blog/internal/infrastructure/postgres"
	"github.com/oksasatya/go-blog/internal/infrastructure/search"
	"github.com/oksasatya/go-blog/pkg/helpers"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	logger := helpers.NewLogger(cfg.AppName+"-worker", cfg.Env)
	if cfg.RabbitMQURL == "" || cfg.RabbitMQEventsQueue == "" {
		log.Fatal("RabbitMQ not configured")
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := pginfra.NewPool(ctx, cfg.PostgresDSN(), cfg.DBMaxConns, cfg.DBMinConns, cfg.DBMaxConnLife)
	if err != nil {
		log.Fatalf("failed to connect to postgres: %v", err)
	}
	defer pool.Close()

	es, err := helpers.NewESClient(cfg.ESAddrs(), cfg.ElasticsearchUser, cfg.ElasticsearchPass)
	if err != nil {
		log.Fatalf("elasticsearch client: %v", err)
	}
	index := search.NewPostIndex(es, cfg.ESPostsIndex, logger)
	if err := index.EnsureIndex(ctx); err != nil {
		logger.WithError(err).Warn("ensure posts index failed")
	}

	var indexer application.PostIndexer
	if index.Enabled() {
		indexer = index
	}
	consumer := application.NewEventConsumer(
		pginfra.NewPostRepository(pool),
		indexer,
		application.NewProfileProvisioner(pginfra.NewProfileRepository(pool), cfg.DefaultAvatarKey, logger),
		logger,
	)

	conn, err := amqp.Dial(cfg.RabbitMQURL)
	if err != nil {
		log.Fatalf("amqp dial: %v", err)
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		log.Fatalf("amqp channel: %v", err)
	}
	defer func() { _ = ch.Close() }()

	// prefetch for fair dispatch across workers
	if err := ch.Qos(16, 0, false); err != nil {
		log.Fatalf("qos: %v", err)
	}
	if err := helpers.DeclareQueue(ch, cfg.RabbitMQEventsQueue); err != nil {
		log.Fatalf("queue declare: %v", err)
	}
	msgs, err := ch.Consume(cfg.RabbitMQEventsQueue, "", false, false, false, false, nil)
	if err != nil {
		log.Fatalf("consume: %v", err)
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	done := make(chan struct{})

	go func() {
		for msg := range msgs {
			c, cancelMsg := context.WithTimeout(ctx, 15*time.Second)
			err := consumer.Handle(c, msg.Body)
			cancelMsg()
			switch {
			case err == nil:
				_ = msg.Ack(false)
			case errors.Is(err, application.ErrBadEvent):
				logger.WithError(err).Warn("dropping bad message")
				_ = msg.Nack(false, false)
			default:
				logger.WithError(err).Warn("event failed, requeueing")
				_ = msg.Nack(false, !msg.Redelivered)
			}
		}
		close(done)
	}()

	logger.Infof("event worker listening on queue=%s", cfg.RabbitMQEventsQueue)
	<-stop
	logger.Info("shutting down...")
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
	}
}
