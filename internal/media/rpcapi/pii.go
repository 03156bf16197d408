package rpcapi

import "strings"

// maskPII redacts all but the first 5 and last 2 digits of a phone
// number for logging, e.g. "905548777858" -> "90554***58". Inputs with
// fewer than 10 digits are fully masked.
func maskPII(input string) string {
	var digits strings.Builder
	for _, r := range input {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	cleaned := digits.String()
	if len(cleaned) < 10 {
		return "****"
	}
	return cleaned[:5] + "***" + cleaned[len(cleaned)-2:]
}
