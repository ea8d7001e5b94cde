package validation

import "github.com/imrishuroy/go-paidbooking-reconciler/internal/intent"

// PendingIntentRequest is the payload for POST /bookings/intents.
type PendingIntentRequest struct {
	DoctorID        string  `json:"doctor_id" validate:"required"`
	DoctorName      string  `json:"doctor_name" validate:"required"`
	DoctorSpecialty string  `json:"doctor_specialty,omitempty"`
	DoctorChamber   string  `json:"doctor_chamber,omitempty"`
	ScheduleDate    string  `json:"schedule_date" validate:"required,datetime=2006-01-02"` // YYYY-MM-DD
	ScheduleSlot    string  `json:"schedule_slot" validate:"required"`                     // HH:MM-HH:MM
	PatientName     string  `json:"patient_name" validate:"required,max=120"`
	PatientAge      int     `json:"patient_age" validate:"min=0,max=130"`
	PatientGender   string  `json:"patient_gender" validate:"required,oneof=male female other"`
	PatientPhone    string  `json:"patient_phone" validate:"required"`
	Division        string  `json:"division,omitempty"`
	District        string  `json:"district,omitempty"`
	Address         string  `json:"address,omitempty" validate:"max=500"`
	Problem         string  `json:"problem,omitempty" validate:"max=1000"`
	Fee             float64 `json:"fee" validate:"required,gt=0"`
}

// ToIntent copies the request into the stored shape.
func (r PendingIntentRequest) ToIntent() intent.PendingIntent {
	return intent.PendingIntent{
		DoctorID:        r.DoctorID,
		DoctorName:      r.DoctorName,
		DoctorSpecialty: r.DoctorSpecialty,
		DoctorChamber:   r.DoctorChamber,
		ScheduleDate:    r.ScheduleDate,
		ScheduleSlot:    r.ScheduleSlot,
		PatientName:     r.PatientName,
		PatientAge:      r.PatientAge,
		PatientGender:   r.PatientGender,
		PatientPhone:    r.PatientPhone,
		Division:        r.Division,
		District:        r.District,
		Address:         r.Address,
		Problem:         r.Problem,
		Fee:             r.Fee,
	}
}

// CallbackQuery is the gateway redirect's query string.
type CallbackQuery struct {
	PaymentID string `form:"paymentID" validate:"required,max=128"`
	Status    string `form:"status" validate:"required,oneof=success failure cancel"`
}
