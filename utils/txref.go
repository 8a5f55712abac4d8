package utils

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// GenerateTxRef mints the merchant transaction reference sent to the gateway.
// The random suffix keeps repeated attempts on the same booking distinct; the
// payments table enforces uniqueness.
func GenerateTxRef(userID, bookingID uint) string {
	suffix := strings.SplitN(uuid.NewString(), "-", 2)[0]
	return fmt.Sprintf("TRV-%d-%d-%s", userID, bookingID, suffix)
}
