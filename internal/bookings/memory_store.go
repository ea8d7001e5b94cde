package bookings

import (
	"context"
	"sync"
)

// MemoryStore keeps bookings in process. With enforceUnique=false it behaves
// like a store whose payment_id index is missing, which is what the duplicate
// sentinel exists to catch.
type MemoryStore struct {
	mu            sync.Mutex
	rows          map[string]PaidBooking
	enforceUnique bool
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{rows: map[string]PaidBooking{}, enforceUnique: true}
}

// NewMemoryStoreWithoutUniqueIndex models legacy data written before the
// uniqueness constraint existed.
func NewMemoryStoreWithoutUniqueIndex() *MemoryStore {
	return &MemoryStore{rows: map[string]PaidBooking{}}
}

func (s *MemoryStore) FindByPaymentID(ctx context.Context, paymentID string) (*PaidBooking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows := s.byPayment(paymentID)
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

func (s *MemoryStore) InsertIfAbsent(ctx context.Context, b PaidBooking) (*PaidBooking, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.enforceUnique {
		if rows := s.byPayment(b.PaymentID); len(rows) > 0 {
			return &rows[0], false, nil
		}
	}
	if existing, ok := s.rows[b.BookingReference]; ok {
		// reference collision: report the stored row only if it is the same payment
		if existing.PaymentID == b.PaymentID {
			return &existing, false, nil
		}
		return nil, false, errReferenceCollision(b.BookingReference)
	}
	s.rows[b.BookingReference] = b
	out := b
	return &out, true, nil
}

func (s *MemoryStore) FindByReference(ctx context.Context, reference string) (*PaidBooking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.rows[reference]
	if !ok {
		return nil, nil
	}
	return &b, nil
}

func (s *MemoryStore) ListByPaymentID(ctx context.Context, paymentID string) ([]PaidBooking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.byPayment(paymentID), nil
}

func (s *MemoryStore) ListAll(ctx context.Context) ([]PaidBooking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]PaidBooking, 0, len(s.rows))
	for _, b := range s.rows {
		out = append(out, b)
	}
	sortByCreation(out)
	return out, nil
}

func (s *MemoryStore) Delete(ctx context.Context, reference string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rows[reference]; !ok {
		return ErrNotFound
	}
	delete(s.rows, reference)
	return nil
}

// Seed writes rows unconditionally, bypassing uniqueness. Used to load
// legacy data and in tests.
func (s *MemoryStore) Seed(rows ...PaidBooking) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, b := range rows {
		s.rows[b.BookingReference] = b
	}
}

// byPayment must be called with mu held.
func (s *MemoryStore) byPayment(paymentID string) []PaidBooking {
	var out []PaidBooking
	for _, b := range s.rows {
		if b.PaymentID == paymentID {
			out = append(out, b)
		}
	}
	sortByCreation(out)
	return out
}
