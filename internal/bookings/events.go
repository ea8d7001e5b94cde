package bookings

import (
	"time"

	"github.com/goccy/go-json"
)

const EventBookingConfirmed = "booking.confirmed"

// ConfirmedEvent is published once per newly inserted booking.
type ConfirmedEvent struct {
	EventType        string    `json:"event_type"`
	BookingReference string    `json:"booking_reference"`
	PaymentID        string    `json:"payment_id"`
	TransactionID    string    `json:"transaction_id"`
	Amount           float64   `json:"amount"`
	OccurredAt       time.Time `json:"occurred_at"`
}

func NewConfirmedEvent(b PaidBooking, now time.Time) ConfirmedEvent {
	return ConfirmedEvent{
		EventType:        EventBookingConfirmed,
		BookingReference: b.BookingReference,
		PaymentID:        b.PaymentID,
		TransactionID:    b.TransactionID,
		Amount:           b.Amount,
		OccurredAt:       now.UTC(),
	}
}

// Type and GroupKey let the event go through aws.Publisher.
func (e ConfirmedEvent) Type() string { return e.EventType }

func (e ConfirmedEvent) GroupKey() string { return e.PaymentID }

func (e ConfirmedEvent) Marshal() (string, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func UnmarshalConfirmedEvent(body string) (ConfirmedEvent, error) {
	var e ConfirmedEvent
	err := json.Unmarshal([]byte(body), &e)
	return e, err
}
