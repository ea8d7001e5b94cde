package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"go.uber.org/zap"

	"github.com/imrishuroy/go-paidbooking-reconciler/internal/app"
	"github.com/imrishuroy/go-paidbooking-reconciler/internal/aws"
	"github.com/imrishuroy/go-paidbooking-reconciler/internal/config"
	"github.com/imrishuroy/go-paidbooking-reconciler/internal/logging"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	logger, err := logging.New(cfg.LogLevel, cfg.AppEnv)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	clients, err := aws.NewAWSClients(ctx, aws.Options{Region: cfg.AWSRegion, Endpoint: cfg.AWSEndpoint})
	if err != nil {
		logger.Fatal("failed to init aws clients", zap.Error(err))
	}

	store, closeStore, err := app.OpenBookingStore(ctx, cfg, clients, logger)
	if err != nil {
		logger.Fatal("failed to open booking store", zap.Error(err))
	}
	defer closeStore()

	var archiver ReceiptArchiver
	a, err := app.NewArchiver(cfg)
	if err != nil {
		logger.Fatal("failed to init receipt archiver", zap.Error(err))
	}
	if a != nil {
		archiver = a
	}

	p := NewProcessor(store, aws.NewMetricsEmitter(clients.CloudWatch, cfg.MetricsNamespace), archiver, logger)

	// RUN_LOCAL=true long-polls the queue instead of running as a Lambda.
	if cfg.RunLocal {
		if cfg.EventsQueueURL == "" {
			logger.Fatal("EVENTS_QUEUE_URL is required to poll locally")
		}
		pollCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		poll(pollCtx, clients.SQS, cfg.EventsQueueURL, p, logger)
		return
	}

	lambda.Start(p.Handle)
}

// poll feeds received messages through Processor.Handle and deletes the
// ones that succeeded.
func poll(ctx context.Context, q aws.SQSAPI, queueURL string, p *Processor, logger *zap.Logger) {
	logger.Info("polling queue", zap.String("queue_url", queueURL))
	for ctx.Err() == nil {
		out, err := q.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
			QueueUrl:              &queueURL,
			MaxNumberOfMessages:   10,
			MessageAttributeNames: []string{aws.AttrEventType},
			WaitTimeSeconds:       20,
		})
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Error("receive message failed", zap.Error(err))
			time.Sleep(2 * time.Second)
			continue
		}
		if len(out.Messages) == 0 {
			continue
		}

		batch, handles := toSQSEvent(out.Messages)
		resp, _ := p.Handle(ctx, batch)
		failed := make(map[string]struct{}, len(resp.BatchItemFailures))
		for _, f := range resp.BatchItemFailures {
			failed[f.ItemIdentifier] = struct{}{}
		}
		for id, handle := range handles {
			if _, ok := failed[id]; ok {
				continue
			}
			handle := handle
			if _, err := q.DeleteMessage(ctx, &sqs.DeleteMessageInput{QueueUrl: &queueURL, ReceiptHandle: &handle}); err != nil {
				logger.Warn("delete message failed", zap.String("message_id", id), zap.Error(err))
			}
		}
	}
}
