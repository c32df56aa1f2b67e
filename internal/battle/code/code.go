// Package code generates short, human-typeable battle room codes.
package code

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
)

// Length is the number of characters in a room code.
const Length = 6

// Generate creates a new room code of Length uppercase hex characters.
// Example: 3FA9C1
func Generate() string {
	random := make([]byte, Length/2)
	if _, err := rand.Read(random); err != nil {
		// Fallback to the low bits of the clock if crypto/rand fails
		return fmt.Sprintf("%06X", time.Now().UnixNano()&0xFFFFFF)
	}
	return strings.ToUpper(hex.EncodeToString(random))
}

// Valid reports whether s has the shape of a room code.
func Valid(s string) bool {
	if len(s) != Length {
		return false
	}
	for _, r := range s {
		if (r < '0' || r > '9') && (r < 'A' || r > 'F') {
			return false
		}
	}
	return true
}
