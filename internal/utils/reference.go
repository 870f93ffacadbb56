package utils

import (
	"fmt"
	"math/rand"
	"time"
)

const loyaltyCodeCharset = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// GenerateLoyaltyCode generates a human-readable membership code. The
// charset drops easily-confused characters (0/O, 1/I) since the code
// is read aloud and typed at the till. Uniqueness is enforced by the
// database; callers retry on collision.
func GenerateLoyaltyCode() string {
	result := make([]byte, 10)
	for i := range result {
		result[i] = loyaltyCodeCharset[rand.Intn(len(loyaltyCodeCharset))]
	}
	return fmt.Sprintf("LYL-%s-%s", result[:5], result[5:])
}

// GenerateReference generates a unique reference for internal events
func GenerateReference(prefix string) string {
	const charset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	result := make([]byte, 8)
	for i := range result {
		result[i] = charset[rand.Intn(len(charset))]
	}
	timestamp := time.Now().Format("20060102")
	return fmt.Sprintf("%s_%s_%s", prefix, timestamp, result)
}
