package security

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

// shareTokenBytes gives 192 bits of entropy; tokens must not be guessable
// or enumerable since they are the sole credential for a share link.
const shareTokenBytes = 24

// GenerateShareToken returns an opaque URL-safe token string.
func GenerateShareToken() (string, error) {
	buf := make([]byte, shareTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate share token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
