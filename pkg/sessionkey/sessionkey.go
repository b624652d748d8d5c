package sessionkey

import (
	"crypto/rand"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	alphabet     = "abcdefghijklmnopqrstuvwxyz0123456789"
	suffixLength = 9

	// MinLength and MaxLength bound the keys this package produces and accepts.
	MinLength = 15
	MaxLength = 25
)

// New generates a short lowercase URL-safe session key: a base36 millisecond
// timestamp prefix followed by a random suffix. Keys are sortable by creation
// time and carry no user-identifying information.
func New() (string, error) {
	return NewAt(time.Now())
}

// NewAt generates a key using the supplied creation time.
func NewAt(now time.Time) (string, error) {
	prefix := strconv.FormatInt(now.UnixMilli(), 36)

	buf := make([]byte, suffixLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("sessionkey: read random: %w", err)
	}
	for i, b := range buf {
		buf[i] = alphabet[int(b)%len(alphabet)]
	}

	return prefix + string(buf), nil
}

// Valid reports whether the supplied string looks like a key produced by New.
func Valid(key string) bool {
	if len(key) < MinLength || len(key) > MaxLength {
		return false
	}
	for _, r := range key {
		if !strings.ContainsRune(alphabet, r) {
			return false
		}
	}
	return true
}
