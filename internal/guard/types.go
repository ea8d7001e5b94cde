package guard

import "time"

// State of a payment identifier within one session.
type State string

const (
	StateUnseen     State = "unseen"
	StateProcessing State = "processing"
	StateCompleted  State = "completed"
)

// Record is the shape persisted in the session store.
type Record struct {
	PaymentID string    `json:"payment_id"`
	State     State     `json:"state"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Decision is the result of Begin.
type Decision struct {
	Proceed bool
	// State is the state observed when Proceed is false.
	State State
}
