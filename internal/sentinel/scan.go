// Package sentinel reports payment identifiers that own more than one
// booking row and offers a guarded manual delete to restore the invariant.
package sentinel

import (
	"sort"
	"time"

	"github.com/imrishuroy/go-paidbooking-reconciler/internal/bookings"
)

// Scan returns every payment identifier that appears more than once in rows.
func Scan(rows []bookings.PaidBooking) map[string]struct{} {
	counts := make(map[string]int, len(rows))
	for _, b := range rows {
		counts[b.PaymentID]++
	}
	dups := map[string]struct{}{}
	for id, n := range counts {
		if n > 1 {
			dups[id] = struct{}{}
		}
	}
	return dups
}

// Row is a booking as shown on the admin report.
type Row struct {
	bookings.PaidBooking
	Flagged bool `json:"flagged"`
}

type Report struct {
	GeneratedAt time.Time `json:"generated_at"`
	Total       int       `json:"total"`
	Duplicates  []string  `json:"duplicates"`
	Rows        []Row     `json:"rows"`
}

// BuildReport flags every row whose payment identifier Scan returned.
func BuildReport(rows []bookings.PaidBooking, now time.Time) Report {
	dups := Scan(rows)

	ids := make([]string, 0, len(dups))
	for id := range dups {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := make([]Row, len(rows))
	for i, b := range rows {
		_, flagged := dups[b.PaymentID]
		out[i] = Row{PaidBooking: b, Flagged: flagged}
	}
	return Report{GeneratedAt: now.UTC(), Total: len(rows), Duplicates: ids, Rows: out}
}
