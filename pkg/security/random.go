package security

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
)

// RandomHex returns n uppercase hexadecimal characters from crypto/rand.
func RandomHex(n int) (string, error) {
	if n <= 0 {
		return "", fmt.Errorf("length must be positive")
	}
	buf := make([]byte, (n+1)/2)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random: %w", err)
	}
	return strings.ToUpper(hex.EncodeToString(buf))[:n], nil
}

// PrefixedCode builds identifiers such as "COM1A2B3C4D" or "TX_9F00AB12".
func PrefixedCode(prefix string, n int) (string, error) {
	suffix, err := RandomHex(n)
	if err != nil {
		return "", err
	}
	return prefix + suffix, nil
}
