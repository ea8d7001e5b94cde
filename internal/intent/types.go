package intent

import "time"

// PendingIntent is what the patient entered before being sent to the gateway.
// It is never mutated after Save.
type PendingIntent struct {
	DoctorID        string    `json:"doctor_id"`
	DoctorName      string    `json:"doctor_name"`
	DoctorSpecialty string    `json:"doctor_specialty,omitempty"`
	DoctorChamber   string    `json:"doctor_chamber,omitempty"`
	ScheduleDate    string    `json:"schedule_date"` // YYYY-MM-DD
	ScheduleSlot    string    `json:"schedule_slot"` // e.g. "17:00-17:15"
	PatientName     string    `json:"patient_name"`
	PatientAge      int       `json:"patient_age"`
	PatientGender   string    `json:"patient_gender"`
	PatientPhone    string    `json:"patient_phone"`
	Division        string    `json:"division,omitempty"`
	District        string    `json:"district,omitempty"`
	Address         string    `json:"address,omitempty"`
	Problem         string    `json:"problem,omitempty"`
	Fee             float64   `json:"fee"`
	CreatedAt       time.Time `json:"created_at"`
}
