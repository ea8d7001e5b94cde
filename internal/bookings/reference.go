package bookings

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// NewReference returns a human-readable booking reference such as
// BK-20260314-3F9A1C0B.
func NewReference(now time.Time) string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	return "BK-" + now.UTC().Format("20060102") + "-" + strings.ToUpper(id[:8])
}
