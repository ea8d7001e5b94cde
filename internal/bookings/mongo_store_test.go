package bookings

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/mongodb"
)

func newMongoStore(t *testing.T) *MongoStore {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping mongo container test in -short mode")
	}
	ctx := context.Background()

	ctr, err := mongodb.Run(ctx, "mongo:7")
	if err != nil {
		t.Skipf("mongo container unavailable: %v", err)
	}
	t.Cleanup(func() { _ = testcontainers.TerminateContainer(ctr) })

	uri, err := ctr.ConnectionString(ctx)
	require.NoError(t, err)
	client, err := NewMongoClient(ctx, uri)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Disconnect(context.Background()) })

	store := NewMongoStore(client, "bookings_test")
	require.NoError(t, store.EnsureIndexes(ctx))
	require.NoError(t, store.EnsureIndexes(ctx), "index creation is repeatable")
	return store
}

func TestMongoStore_InsertIfAbsent(t *testing.T) {
	store := newMongoStore(t)
	ctx := context.Background()
	now := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)

	first, created, err := store.InsertIfAbsent(ctx, sampleBooking("BK-1", "P1", now))
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, StatusConfirmed, first.Status)

	// duplicate payment_id: the stored row comes back, no second row
	again, created, err := store.InsertIfAbsent(ctx, sampleBooking("BK-2", "P1", now.Add(time.Second)))
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, "BK-1", again.BookingReference)

	missing, err := store.FindByReference(ctx, "BK-2")
	require.NoError(t, err)
	assert.Nil(t, missing)

	rows, err := store.ListByPaymentID(ctx, "P1")
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestMongoStore_ReferenceCollision(t *testing.T) {
	store := newMongoStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	_, _, err := store.InsertIfAbsent(ctx, sampleBooking("BK-SAME", "P1", now))
	require.NoError(t, err)

	_, created, err := store.InsertIfAbsent(ctx, sampleBooking("BK-SAME", "P2", now))
	require.Error(t, err)
	assert.False(t, created)
	assert.Contains(t, err.Error(), "BK-SAME")

	b, err := store.FindByPaymentID(ctx, "P2")
	require.NoError(t, err)
	assert.Nil(t, b)
}

func TestMongoStore_TimesRoundTripAtMillisecondPrecision(t *testing.T) {
	store := newMongoStore(t)
	ctx := context.Background()
	created := time.Date(2026, 5, 1, 10, 0, 0, 123456789, time.UTC)

	inserted, _, err := store.InsertIfAbsent(ctx, sampleBooking("BK-MS", "P-MS", created))
	require.NoError(t, err)

	stored, err := store.FindByPaymentID(ctx, "P-MS")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.True(t, inserted.CreatedAt.Equal(stored.CreatedAt), "returned %v, stored %v", inserted.CreatedAt, stored.CreatedAt)
	assert.True(t, inserted.VerifiedAt.Equal(stored.VerifiedAt))
	assert.Equal(t, 123*time.Millisecond, time.Duration(stored.CreatedAt.Nanosecond()))
}

func TestMongoStore_ConcurrentInserts(t *testing.T) {
	store := newMongoStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	const n = 10
	var wg sync.WaitGroup
	refs := make([]string, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			b, _, err := store.InsertIfAbsent(ctx, sampleBooking(NewReference(now), "P-RACE", now))
			if assert.NoError(t, err) {
				refs[i] = b.BookingReference
			}
		}(i)
	}
	wg.Wait()

	rows, err := store.ListByPaymentID(ctx, "P-RACE")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	for _, r := range refs {
		assert.Equal(t, rows[0].BookingReference, r)
	}
}

func TestMongoStore_ListAllAndDelete(t *testing.T) {
	store := newMongoStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	_, _, err := store.InsertIfAbsent(ctx, sampleBooking("BK-A", "P-A", now))
	require.NoError(t, err)
	_, _, err = store.InsertIfAbsent(ctx, sampleBooking("BK-B", "P-B", now.Add(time.Second)))
	require.NoError(t, err)

	all, err := store.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "BK-A", all[0].BookingReference)

	require.NoError(t, store.Delete(ctx, "BK-A"))
	assert.ErrorIs(t, store.Delete(ctx, "BK-A"), ErrNotFound)
}
