package main

import (
	"context"
	"log"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	ginadapter "github.com/awslabs/aws-lambda-go-api-proxy/gin"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/imrishuroy/go-paidbooking-reconciler/internal/app"
	"github.com/imrishuroy/go-paidbooking-reconciler/internal/aws"
	"github.com/imrishuroy/go-paidbooking-reconciler/internal/bookings"
	"github.com/imrishuroy/go-paidbooking-reconciler/internal/config"
	"github.com/imrishuroy/go-paidbooking-reconciler/internal/guard"
	"github.com/imrishuroy/go-paidbooking-reconciler/internal/handlers"
	"github.com/imrishuroy/go-paidbooking-reconciler/internal/intent"
	"github.com/imrishuroy/go-paidbooking-reconciler/internal/logging"
	"github.com/imrishuroy/go-paidbooking-reconciler/internal/reconcile"
	"github.com/imrishuroy/go-paidbooking-reconciler/internal/sentinel"
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

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	var clients *aws.AWSClients
	if app.NeedsAWS(cfg) {
		clients, err = aws.NewAWSClients(ctx, aws.Options{Region: cfg.AWSRegion, Endpoint: cfg.AWSEndpoint})
		if err != nil {
			logger.Fatal("failed to init aws clients", zap.Error(err))
		}
	}

	store, closeStore, err := app.OpenBookingStore(ctx, cfg, clients, logger)
	if err != nil {
		logger.Fatal("failed to open booking store", zap.String("store", cfg.BookingStore), zap.Error(err))
	}
	defer closeStore()

	sessions, closeSessions, err := app.OpenSessionStore(ctx, cfg)
	if err != nil {
		logger.Fatal("failed to open session store", zap.String("store", cfg.SessionStore), zap.Error(err))
	}
	defer closeSessions()

	verifier, err := app.NewVerifier(cfg)
	if err != nil {
		logger.Fatal("failed to init gateway verifier", zap.String("driver", cfg.GatewayDriver), zap.Error(err))
	}

	var publisher bookings.EventPublisher
	var metrics sentinel.Counter
	if clients != nil {
		if cfg.EventsQueueURL != "" {
			publisher = aws.NewPublisher(clients.SQS, cfg.EventsQueueURL)
		}
		metrics = aws.NewMetricsEmitter(clients.CloudWatch, cfg.MetricsNamespace)
	}

	intents := intent.NewStore(sessions, cfg.SessionTTL)
	writer := bookings.NewWriter(store, intents, publisher, logger)
	reconciler := reconcile.New(sessions, cfg.SessionTTL, intents, guard.NewStore(sessions, cfg.SessionTTL), verifier, writer, store, logger)

	r := handlers.NewRouter(handlers.HandlerConfig{
		Reconciler:     reconciler,
		Intents:        intents,
		Bookings:       store,
		Sentinel:       sentinel.NewService(store, metrics, logger),
		Logger:         logger,
		AdminJWTSecret: cfg.AdminJWTSecret,
		SessionTTL:     cfg.SessionTTL,
		SecureCookies:  cfg.IsProduction(),
	}, cfg.CORSAllowOrigins)

	// RUN_LOCAL=true runs a plain HTTP server for development.
	if cfg.RunLocal {
		logger.Info("running local server", zap.String("addr", cfg.HTTPAddr))
		if err := r.Run(cfg.HTTPAddr); err != nil {
			logger.Fatal("failed to run local server", zap.Error(err))
		}
		return
	}

	// lambda adapter
	adapter := ginadapter.New(r)

	lambda.Start(func(ctx context.Context, req events.APIGatewayProxyRequest) (interface{}, error) {
		return adapter.ProxyWithContext(ctx, req)
	})
}
