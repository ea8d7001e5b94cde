// Package app wires configuration into the concrete stores and clients
// shared by the api and worker binaries.
package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/imrishuroy/go-paidbooking-reconciler/internal/aws"
	"github.com/imrishuroy/go-paidbooking-reconciler/internal/bookings"
	"github.com/imrishuroy/go-paidbooking-reconciler/internal/config"
	"github.com/imrishuroy/go-paidbooking-reconciler/internal/gateway"
	"github.com/imrishuroy/go-paidbooking-reconciler/internal/receipt"
	"github.com/imrishuroy/go-paidbooking-reconciler/internal/session"
)

// OpenBookingStore returns the configured store and a close func.
func OpenBookingStore(ctx context.Context, cfg config.Config, clients *aws.AWSClients, logger *zap.Logger) (bookings.Store, func(), error) {
	noop := func() {}

	switch cfg.BookingStore {
	case config.StoreDynamoDB:
		if clients == nil {
			return nil, noop, fmt.Errorf("dynamodb store requires aws clients")
		}
		return bookings.NewDynamoStore(clients.DynamoDB, cfg.BookingsTable, cfg.PaymentClaimsTable, cfg.BookingsPaymentIndex), noop, nil

	case config.StorePostgres:
		db, err := bookings.OpenPostgres(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, noop, err
		}
		store := bookings.NewPostgresStore(db)
		if err := store.Migrate(ctx); err != nil {
			_ = db.Close()
			return nil, noop, err
		}
		return store, func() { _ = db.Close() }, nil

	case config.StoreMongo:
		client, err := bookings.NewMongoClient(ctx, cfg.MongoURI)
		if err != nil {
			return nil, noop, err
		}
		store := bookings.NewMongoStore(client, cfg.MongoDatabase)
		if err := store.EnsureIndexes(ctx); err != nil {
			_ = client.Disconnect(ctx)
			return nil, noop, err
		}
		return store, func() { _ = client.Disconnect(context.Background()) }, nil

	case config.StoreMemory:
		logger.Warn("using in-memory booking store; bookings are lost on restart")
		return bookings.NewMemoryStore(), noop, nil
	}
	return nil, noop, fmt.Errorf("unknown booking store %q", cfg.BookingStore)
}

// OpenSessionStore returns the configured session backend and a close func.
func OpenSessionStore(ctx context.Context, cfg config.Config) (session.Store, func(), error) {
	if cfg.SessionStore == config.SessionMemory {
		return session.NewMemoryStore(), func() {}, nil
	}
	client, err := session.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword)
	if err != nil {
		return nil, func() {}, err
	}
	return session.NewRedisStore(client), func() { _ = client.Close() }, nil
}

// NewVerifier returns the configured gateway driver.
func NewVerifier(cfg config.Config) (gateway.Verifier, error) {
	if cfg.GatewayDriver == config.GatewayOmise {
		client, err := gateway.NewOmiseClient(cfg.OmisePublicKey, cfg.OmiseSecretKey)
		if err != nil {
			return nil, err
		}
		return gateway.NewOmiseVerifier(client, cfg.GatewayTimeout), nil
	}
	return gateway.NewHTTPVerifier(cfg.GatewayBaseURL, cfg.GatewayAppKey, cfg.GatewayAPIToken, cfg.GatewayTimeout), nil
}

// NewArchiver returns nil when no MinIO endpoint is configured.
func NewArchiver(cfg config.Config) (*receipt.Archiver, error) {
	if cfg.MinioEndpoint == "" {
		return nil, nil
	}
	client, err := receipt.NewMinioClient(cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey, cfg.MinioUseSSL)
	if err != nil {
		return nil, err
	}
	return receipt.NewArchiver(client, cfg.ReceiptBucket), nil
}

// NeedsAWS reports whether any configured component talks to AWS.
func NeedsAWS(cfg config.Config) bool {
	return cfg.BookingStore == config.StoreDynamoDB || cfg.EventsQueueURL != ""
}
