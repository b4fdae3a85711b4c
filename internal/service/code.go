package service

import (
	"crypto/rand"
	"encoding/hex"
	"strings"

	"github.com/google/uuid"
)

// Coupon code prefixes by origin.
const (
	codePrefixSpin  = "SPIN"
	codePrefixEvent = "EVT"
)

// generateCouponCode creates a coupon code from a prefix and 8 random hex
// characters. Example: "SPIN-3F2A9C1B". Codes are unique by the coupons
// table constraint; 4 random bytes keep accidental collisions rare enough
// that the insert failing is acceptable.
func generateCouponCode(prefix string) string {
	b := make([]byte, 4)
	if _, err := rand.Read(b); err != nil {
		// Extremely unlikely; fall back to a UUID fragment.
		return prefix + "-" + strings.ToUpper(strings.ReplaceAll(uuid.New().String()[:9], "-", ""))
	}
	return prefix + "-" + strings.ToUpper(hex.EncodeToString(b))
}
