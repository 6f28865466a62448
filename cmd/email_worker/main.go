package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/library-catalog/config"
	"github.com/oksasatya/library-catalog/pkg/helpers"
	"github.com/oksasatya/library-catalog/pkg/mailer"
	mailtpl "github.com/oksasatya/library-catalog/pkg/mailer/templates"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	logger := helpers.NewLogger(cfg.AppName+"-email-worker", cfg.Env, cfg.LogLevel)
	for _, w := range cfg.Warnings {
		logger.Warn(w)
	}

	if cfg.RabbitMQURL == "" || cfg.RabbitMQEmailQueue == "" {
		log.Fatal("RabbitMQ not configured")
	}

	var sender mailer.Sender = mailer.LogSender{Logger: logger}
	mg := mailer.NewMailgun(cfg.MailgunDomain, cfg.MailgunAPIKey, cfg.MailgunSender, cfg.MailgunAPIBase)
	switch {
	case !cfg.MailSendEnabled:
		logger.Warn("MAIL_SEND_ENABLED=false; emails are logged, not sent")
	case !mg.Configured():
		log.Fatal("Mailgun not configured")
	default:
		sender = mg
	}

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

	h := handler{sender: sender, branding: mailtpl.BrandingFromConfig(cfg)}
	queues := map[string]func(context.Context, []byte) error{
		cfg.RabbitMQEmailQueue: h.handleEmail,
	}
	if cfg.RabbitMQEventsQueue != "" {
		queues[cfg.RabbitMQEventsQueue] = h.handleEvent
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup
	for queue, fn := range queues {
		msgs, err := helpers.ConsumeQueue(ch, queue, cfg.WorkerPrefetch)
		if err != nil {
			log.Fatalf("%v", err)
		}
		wg.Add(1)
		go func(queue string, fn func(context.Context, []byte) error) {
			defer wg.Done()
			consume(ctx, logger, queue, msgs, fn)
		}(queue, fn)
		helpers.LogInfo(logger, "email worker listening", logrus.Fields{"queue": queue})
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	logger.Info("shutting down...")
	cancel()
	_ = ch.Close()

	done := make(chan struct{})
	go func() { wg.Wait(); close(done) }()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
	}
}

func consume(ctx context.Context, logger *logrus.Logger, queue string, msgs <-chan amqp.Delivery, fn func(context.Context, []byte) error) {
	for msg := range msgs {
		c, cancel := context.WithTimeout(ctx, 15*time.Second)
		err := fn(c, msg.Body)
		cancel()

		switch {
		case err == nil:
			_ = msg.Ack(false)
		case errors.Is(err, errPermanent):
			helpers.LogError(logger, "dropping message", err, logrus.Fields{"queue": queue})
			_ = msg.Nack(false, false)
		default:
			logger.WithError(err).WithField("queue", queue).Warn("send failed, requeueing")
			_ = msg.Nack(false, true)
		}
	}
}
