// Package receipt renders a stored booking as the patient-facing receipt
// and archives it in object storage.
package receipt

import (
	"fmt"
	"strings"

	"github.com/imrishuroy/go-paidbooking-reconciler/internal/bookings"
)

// Render returns a plain-text receipt. Every field the patient needs to
// reconcile a payment with support is present.
func Render(b bookings.PaidBooking) string {
	var sb strings.Builder
	line := func(label, value string) {
		if value == "" {
			return
		}
		fmt.Fprintf(&sb, "%-18s %s\n", label+":", value)
	}

	sb.WriteString("PAID APPOINTMENT RECEIPT\n")
	sb.WriteString(strings.Repeat("=", 40) + "\n")
	line("Booking reference", b.BookingReference)
	line("Status", string(b.Status))
	line("Booked at", b.CreatedAt.UTC().Format("2006-01-02 15:04 MST"))
	sb.WriteString("\n")

	line("Doctor", b.DoctorName)
	line("Specialty", b.DoctorSpecialty)
	line("Chamber", b.DoctorChamber)
	line("Date", b.ScheduleDate)
	line("Time", b.ScheduleSlot)
	sb.WriteString("\n")

	line("Patient", b.PatientName)
	line("Age", fmt.Sprintf("%d", b.PatientAge))
	line("Gender", b.PatientGender)
	line("Phone", b.PatientPhone)
	line("Address", joinNonEmpty(", ", b.Address, b.District, b.Division))
	line("Problem", b.Problem)
	sb.WriteString("\n")

	line("Fee", formatAmount(b.Fee, b.Currency))
	line("Paid", formatAmount(b.Amount, b.Currency))
	line("Payment ID", b.PaymentID)
	line("Transaction ID", b.TransactionID)
	return sb.String()
}

func formatAmount(v float64, currency string) string {
	if currency == "" {
		return fmt.Sprintf("%.2f", v)
	}
	return fmt.Sprintf("%.2f %s", v, strings.ToUpper(currency))
}

func joinNonEmpty(sep string, parts ...string) string {
	out := parts[:0:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, sep)
}
