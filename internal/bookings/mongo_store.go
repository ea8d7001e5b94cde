package bookings

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const mongoCollectionBookings = "paid_bookings"

type MongoStore struct {
	Collection *mongo.Collection
	nowFunc    func() time.Time
}

// NewMongoClient connects and pings.
func NewMongoClient(ctx context.Context, uri string) (*mongo.Client, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	return client, nil
}

func NewMongoStore(client *mongo.Client, dbName string) *MongoStore {
	return &MongoStore{
		Collection: client.Database(dbName).Collection(mongoCollectionBookings),
		nowFunc:    time.Now,
	}
}

// EnsureIndexes creates the unique indexes InsertIfAbsent depends on.
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.Collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "payment_id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "booking_reference", Value: 1}}, Options: options.Index().SetUnique(true)},
	})
	if err != nil {
		return fmt.Errorf("create booking indexes: %w", err)
	}
	return nil
}

func (s *MongoStore) InsertIfAbsent(ctx context.Context, b PaidBooking) (*PaidBooking, bool, error) {
	if b.CreatedAt.IsZero() {
		b.CreatedAt = s.nowFunc()
	}
	// BSON keeps millisecond precision; truncate so the returned row matches a re-read.
	b.CreatedAt = b.CreatedAt.UTC().Truncate(time.Millisecond)
	b.VerifiedAt = b.VerifiedAt.UTC().Truncate(time.Millisecond)

	_, err := s.Collection.InsertOne(ctx, b)
	if err == nil {
		return &b, true, nil
	}
	if !mongo.IsDuplicateKeyError(err) {
		return nil, false, fmt.Errorf("insert booking: %w", err)
	}

	existing, err := s.FindByPaymentID(ctx, b.PaymentID)
	if err != nil {
		return nil, false, fmt.Errorf("re-read after conflict: %w", err)
	}
	if existing == nil {
		return nil, false, errReferenceCollision(b.BookingReference)
	}
	return existing, false, nil
}

func (s *MongoStore) FindByPaymentID(ctx context.Context, paymentID string) (*PaidBooking, error) {
	opts := options.FindOne().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "booking_reference", Value: 1}})
	return s.findOne(ctx, bson.M{"payment_id": paymentID}, opts)
}

func (s *MongoStore) FindByReference(ctx context.Context, reference string) (*PaidBooking, error) {
	return s.findOne(ctx, bson.M{"booking_reference": reference})
}

func (s *MongoStore) ListByPaymentID(ctx context.Context, paymentID string) ([]PaidBooking, error) {
	return s.find(ctx, bson.M{"payment_id": paymentID})
}

func (s *MongoStore) ListAll(ctx context.Context) ([]PaidBooking, error) {
	return s.find(ctx, bson.M{})
}

func (s *MongoStore) Delete(ctx context.Context, reference string) error {
	res, err := s.Collection.DeleteOne(ctx, bson.M{"booking_reference": reference})
	if err != nil {
		return fmt.Errorf("delete booking: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoStore) findOne(ctx context.Context, filter bson.M, opts ...*options.FindOneOptions) (*PaidBooking, error) {
	var b PaidBooking
	err := s.Collection.FindOne(ctx, filter, opts...).Decode(&b)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("find booking: %w", err)
	}
	return &b, nil
}

func (s *MongoStore) find(ctx context.Context, filter bson.M) ([]PaidBooking, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "booking_reference", Value: 1}})
	cur, err := s.Collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("find bookings: %w", err)
	}
	var out []PaidBooking
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode bookings: %w", err)
	}
	return out, nil
}
