package utils

import (
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerateLoyaltyCode(t *testing.T) {
	pattern := regexp.MustCompile(`^LYL-[A-HJ-NP-Z2-9]{5}-[A-HJ-NP-Z2-9]{5}$`)
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		code := GenerateLoyaltyCode()
		assert.Regexp(t, pattern, code)
		assert.NotContains(t, code, "0")
		assert.NotContains(t, code, "O")
		assert.NotContains(t, code, "1")
		assert.NotContains(t, code, "I")
		seen[code] = true
	}
	// 32^10 combinations; 100 draws colliding would mean a broken generator
	assert.Len(t, seen, 100)
}

func TestGenerateReference(t *testing.T) {
	ref := GenerateReference("EXPIRY")
	parts := strings.Split(ref, "_")
	assert.Len(t, parts, 3)
	assert.Equal(t, "EXPIRY", parts[0])
	assert.Len(t, parts[1], 8)
	assert.Len(t, parts[2], 8)
}
