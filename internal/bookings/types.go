package bookings

import (
	"errors"
	"time"
)

// Status of a paid booking. Only StatusConfirmed is written here; the other
// transitions belong to administrative workflows.
type Status string

const (
	StatusConfirmed Status = "confirmed"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// ErrNotFound is returned by Delete when no row has the given reference.
var ErrNotFound = errors.New("booking not found")

// PaidBooking is the durable record. For every payment_id exactly one row
// must exist in steady state.
type PaidBooking struct {
	BookingReference string    `dynamodbav:"booking_reference" bson:"booking_reference" json:"booking_reference"` // PK
	PaymentID        string    `dynamodbav:"payment_id" bson:"payment_id" json:"payment_id"`                      // unique
	TransactionID    string    `dynamodbav:"transaction_id" bson:"transaction_id" json:"transaction_id"`
	Amount           float64   `dynamodbav:"amount" bson:"amount" json:"amount"`
	Currency         string    `dynamodbav:"currency,omitempty" bson:"currency,omitempty" json:"currency,omitempty"`
	Status           Status    `dynamodbav:"status" bson:"status" json:"status"`
	Fee              float64   `dynamodbav:"fee" bson:"fee" json:"fee"`
	DoctorID         string    `dynamodbav:"doctor_id" bson:"doctor_id" json:"doctor_id"`
	DoctorName       string    `dynamodbav:"doctor_name" bson:"doctor_name" json:"doctor_name"`
	DoctorSpecialty  string    `dynamodbav:"doctor_specialty,omitempty" bson:"doctor_specialty,omitempty" json:"doctor_specialty,omitempty"`
	DoctorChamber    string    `dynamodbav:"doctor_chamber,omitempty" bson:"doctor_chamber,omitempty" json:"doctor_chamber,omitempty"`
	ScheduleDate     string    `dynamodbav:"schedule_date" bson:"schedule_date" json:"schedule_date"`
	ScheduleSlot     string    `dynamodbav:"schedule_slot" bson:"schedule_slot" json:"schedule_slot"`
	PatientName      string    `dynamodbav:"patient_name" bson:"patient_name" json:"patient_name"`
	PatientAge       int       `dynamodbav:"patient_age" bson:"patient_age" json:"patient_age"`
	PatientGender    string    `dynamodbav:"patient_gender" bson:"patient_gender" json:"patient_gender"`
	PatientPhone     string    `dynamodbav:"patient_phone" bson:"patient_phone" json:"patient_phone"`
	Division         string    `dynamodbav:"division,omitempty" bson:"division,omitempty" json:"division,omitempty"`
	District         string    `dynamodbav:"district,omitempty" bson:"district,omitempty" json:"district,omitempty"`
	Address          string    `dynamodbav:"address,omitempty" bson:"address,omitempty" json:"address,omitempty"`
	Problem          string    `dynamodbav:"problem,omitempty" bson:"problem,omitempty" json:"problem,omitempty"`
	VerifiedAt       time.Time `dynamodbav:"verified_at" bson:"verified_at" json:"verified_at"`
	CreatedAt        time.Time `dynamodbav:"created_at" bson:"created_at" json:"created_at"`
}

// PaymentClaim is the uniqueness record for a payment identifier in stores
// that cannot index it uniquely on the bookings table itself.
type PaymentClaim struct {
	PaymentID        string    `dynamodbav:"payment_id"` // PK
	BookingReference string    `dynamodbav:"booking_reference"`
	CreatedAt        time.Time `dynamodbav:"created_at"`
}
