package privacy

import (
	"strings"

	"walletbridge/internal/constants"
)

// MaskToken masks a device token or credential, keeping the last few
// characters so log lines remain correlatable.
// Example: "a1b2c3d4e5f6a7b8" -> "**********f6a7b8"
func MaskToken(token string) string {
	if token == "" {
		return ""
	}
	keep := constants.DefaultTokenMaskLength
	if len(token) <= keep {
		return strings.Repeat("*", len(token))
	}
	return strings.Repeat("*", len(token)-keep) + token[len(token)-keep:]
}

// MaskSerial masks a pass serial number while preserving the prefix used
// for debugging.
// Example: "PASS-1700000000000-deadbeef" -> "PASS-****adbeef"
func MaskSerial(serial string) string {
	if serial == "" {
		return ""
	}
	if idx := strings.Index(serial, "-"); idx > 0 && len(serial) > idx+1 {
		return serial[:idx+1] + "****" + lastN(serial, constants.DefaultTokenMaskLength)
	}
	return MaskToken(serial)
}

func lastN(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
