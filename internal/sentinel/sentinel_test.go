package sentinel

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/imrishuroy/go-paidbooking-reconciler/internal/bookings"
	"github.com/imrishuroy/go-paidbooking-reconciler/internal/exceptions"
)

func rowsFor(ids ...string) []bookings.PaidBooking {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	out := make([]bookings.PaidBooking, len(ids))
	for i, id := range ids {
		out[i] = bookings.PaidBooking{
			BookingReference: fmt.Sprintf("BK-%02d", i),
			PaymentID:        id,
			TransactionID:    "T-" + id,
			CreatedAt:        base.Add(time.Duration(i) * time.Minute),
		}
	}
	return out
}

func TestScan(t *testing.T) {
	got := Scan(rowsFor("A", "A", "B", "C", "C", "C"))
	assert.Equal(t, map[string]struct{}{"A": {}, "C": {}}, got)
	assert.NotContains(t, got, "B")

	assert.Empty(t, Scan(nil))
	assert.Empty(t, Scan(rowsFor("A", "B", "C")))
}

func TestBuildReport_FlagsEveryDuplicateRow(t *testing.T) {
	report := BuildReport(rowsFor("A", "A", "B", "C", "C", "C"), time.Now())

	assert.Equal(t, 6, report.Total)
	assert.Equal(t, []string{"A", "C"}, report.Duplicates)
	flagged := 0
	for _, r := range report.Rows {
		if r.Flagged {
			flagged++
			assert.NotEqual(t, "B", r.PaymentID)
		}
	}
	assert.Equal(t, 5, flagged)
}

type recordingCounter struct {
	values []float64
}

func (c *recordingCounter) Count(ctx context.Context, name string, value float64, dims map[string]string) error {
	c.values = append(c.values, value)
	return nil
}

func TestService_ReportEmitsMetric(t *testing.T) {
	store := bookings.NewMemoryStoreWithoutUniqueIndex()
	store.Seed(rowsFor("A", "A", "B")...)
	counter := &recordingCounter{}
	svc := NewService(store, counter, zap.NewNop())

	report, err := svc.Report(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"A"}, report.Duplicates)
	assert.Equal(t, []float64{1}, counter.values)
}

func TestService_Remediate(t *testing.T) {
	ctx := context.Background()
	store := bookings.NewMemoryStoreWithoutUniqueIndex()
	store.Seed(rowsFor("A", "A", "B")...)
	svc := NewService(store, nil, zap.NewNop())

	err := svc.Remediate(ctx, "BK-02")
	assert.Equal(t, exceptions.KindInvalidRequest, exceptions.KindOf(err), "sole row for B is protected")

	require.NoError(t, svc.Remediate(ctx, "BK-01"))
	rows, err := store.ListByPaymentID(ctx, "A")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "BK-00", rows[0].BookingReference)

	err = svc.Remediate(ctx, "BK-00")
	assert.Equal(t, exceptions.KindInvalidRequest, exceptions.KindOf(err), "invariant restored, last row kept")

	err = svc.Remediate(ctx, "BK-99")
	assert.Equal(t, exceptions.KindNotFound, exceptions.KindOf(err))

	report, err := svc.Report(ctx)
	require.NoError(t, err)
	assert.Empty(t, report.Duplicates)
}
