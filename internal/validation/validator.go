package validation

import (
	"math"
	"regexp"
	"time"

	validatorv10 "github.com/go-playground/validator/v10"
)

var (
	slotPattern  = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d-([01]\d|2[0-3]):[0-5]\d$`)
	phonePattern = regexp.MustCompile(`^(\+?880|0)1[3-9]\d{8}$`)
)

// New returns a configured validator with custom struct-level validation registered.
func New() *validatorv10.Validate {
	v := validatorv10.New()
	v.RegisterStructValidation(pendingIntentStructValidation, PendingIntentRequest{})
	return v
}

// pendingIntentStructValidation checks what tags cannot express: the slot
// must be a forward time range, the phone a local mobile number and the fee
// a whole number of minor units.
func pendingIntentStructValidation(sl validatorv10.StructLevel) {
	req := sl.Current().Interface().(PendingIntentRequest)

	if req.ScheduleSlot != "" {
		if !slotPattern.MatchString(req.ScheduleSlot) {
			sl.ReportError(req.ScheduleSlot, "ScheduleSlot", "schedule_slot", "slot", "")
		} else {
			start, _ := time.Parse("15:04", req.ScheduleSlot[:5])
			end, _ := time.Parse("15:04", req.ScheduleSlot[6:])
			if !end.After(start) {
				sl.ReportError(req.ScheduleSlot, "ScheduleSlot", "schedule_slot", "slot_order", "")
			}
		}
	}

	if req.PatientPhone != "" && !phonePattern.MatchString(req.PatientPhone) {
		sl.ReportError(req.PatientPhone, "PatientPhone", "patient_phone", "phone", "")
	}

	cents := req.Fee * 100
	if math.Abs(cents-math.Round(cents)) > 1e-6 {
		sl.ReportError(req.Fee, "Fee", "fee", "fee_precision", "")
	}
}
