package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/iliyamo/booking-service/internal/config"
	"github.com/iliyamo/booking-service/internal/logger"
	"github.com/iliyamo/booking-service/internal/queue"
)

// The notifier consumes booking events and turns them into mail.
func main() {
	_ = godotenv.Load()
	log := logger.New(os.Getenv("APP_ENV"))
	defer func() { _ = log.Sync() }()

	nc := config.LoadNotifyConfig()
	mailPath := os.Getenv("NOTIFY_MAIL_LOG")
	if mailPath == "" {
		mailPath = filepath.Join("logs", "notifications.log")
	}

	consumer := queue.NewConsumer(queue.ConsumerConfig{
		URL:      nc.RabbitURL,
		Exchange: nc.Exchange,
		Queue:    nc.Queue,
	}, queue.NewFileMailer(mailPath), log.With("component", "notifier"))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info("notifier starting", "exchange", nc.Exchange, "queue", nc.Queue, "mailLog", mailPath)
	if err := consumer.Run(ctx); err != nil {
		log.Error("notifier stopped", "error", err)
	}
	log.Info("notifier exited")
}
