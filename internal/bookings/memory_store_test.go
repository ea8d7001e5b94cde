package bookings

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_UniqueByPayment(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	now := time.Now().UTC()

	_, created, err := s.InsertIfAbsent(ctx, sampleBooking("BK-1", "P1", now))
	require.NoError(t, err)
	assert.True(t, created)

	got, created, err := s.InsertIfAbsent(ctx, sampleBooking("BK-2", "P1", now))
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, "BK-1", got.BookingReference)
}

func TestMemoryStore_WithoutUniqueIndexAllowsDrift(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStoreWithoutUniqueIndex()
	now := time.Now().UTC()

	_, _, err := s.InsertIfAbsent(ctx, sampleBooking("BK-1", "P1", now))
	require.NoError(t, err)
	_, created, err := s.InsertIfAbsent(ctx, sampleBooking("BK-2", "P1", now.Add(time.Second)))
	require.NoError(t, err)
	assert.True(t, created)

	rows, err := s.ListByPaymentID(ctx, "P1")
	require.NoError(t, err)
	assert.Len(t, rows, 2)

	first, err := s.FindByPaymentID(ctx, "P1")
	require.NoError(t, err)
	assert.Equal(t, "BK-1", first.BookingReference)
}

func TestMemoryStore_Delete(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	s.Seed(sampleBooking("BK-1", "P1", time.Now().UTC()))

	require.NoError(t, s.Delete(ctx, "BK-1"))
	assert.True(t, errors.Is(s.Delete(ctx, "BK-1"), ErrNotFound))

	got, err := s.FindByReference(ctx, "BK-1")
	require.NoError(t, err)
	assert.Nil(t, got)
}
