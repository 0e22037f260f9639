package mercadopagowebhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	pkgerrors "github.com/mcastellanos/fotoescolar-backend/pkg/errors"
)

// SignatureParts holds the pieces of the x-signature header.
type SignatureParts struct {
	Timestamp string
	Hash      string
}

// ParseSignatureHeader splits an x-signature value of the form
// "ts=1704908010,v1=618c85..." into its parts.
func ParseSignatureHeader(header string) (SignatureParts, error) {
	parts := SignatureParts{}
	if strings.TrimSpace(header) == "" {
		return parts, pkgerrors.New(pkgerrors.CodeValidation, "signature header required")
	}
	for _, segment := range strings.Split(header, ",") {
		key, value, found := strings.Cut(strings.TrimSpace(segment), "=")
		if !found {
			return SignatureParts{}, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("malformed signature segment %q", segment))
		}
		switch strings.TrimSpace(key) {
		case "ts":
			parts.Timestamp = strings.TrimSpace(value)
		case "v1":
			parts.Hash = strings.TrimSpace(value)
		}
	}
	if parts.Timestamp == "" || parts.Hash == "" {
		return SignatureParts{}, pkgerrors.New(pkgerrors.CodeValidation, "signature header missing ts or v1")
	}
	return parts, nil
}

// Verifier checks MercadoPago webhook signatures.
type Verifier struct {
	secret []byte
}

func NewVerifier(secret string) (*Verifier, error) {
	if secret == "" {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "webhook secret required")
	}
	return &Verifier{secret: []byte(secret)}, nil
}

// manifest builds the signed template exactly as MercadoPago documents it.
func manifest(dataID, requestID, ts string) string {
	return fmt.Sprintf("id:%s;request-id:%s;ts:%s;", dataID, requestID, ts)
}

// Verify recomputes the HMAC over the notification manifest and compares it
// against the header in constant time.
func (v *Verifier) Verify(dataID, requestID, header string) error {
	if dataID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "data id required")
	}
	parts, err := ParseSignatureHeader(header)
	if err != nil {
		return err
	}
	expected, err := hex.DecodeString(parts.Hash)
	if err != nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "signature hash is not hex")
	}

	mac := hmac.New(sha256.New, v.secret)
	mac.Write([]byte(manifest(dataID, requestID, parts.Timestamp)))
	if !hmac.Equal(mac.Sum(nil), expected) {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "signature mismatch")
	}
	return nil
}
