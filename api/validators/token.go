package validators

import (
	"strings"

	pkgerrors "github.com/mcastellanos/fotoescolar-backend/pkg/errors"
)

const shareTokenLength = 32

// ShareToken checks the opaque gallery token format before any lookup runs.
// Tokens are base64url without padding, so anything else is rejected cheaply.
func ShareToken(raw string) (string, error) {
	token := strings.TrimSpace(raw)
	if token == "" {
		return "", pkgerrors.New(pkgerrors.CodeShareNotFound, "share not found")
	}
	if len(token) != shareTokenLength || !isBase64URL(token) {
		return "", pkgerrors.New(pkgerrors.CodeShareNotFound, "share not found")
	}
	return token, nil
}

func isBase64URL(s string) bool {
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
		case r == '-' || r == '_':
		default:
			return false
		}
	}
	return true
}
