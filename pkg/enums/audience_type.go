package enums

import "fmt"

// AudienceType classifies a named recipient attached to a share.
type AudienceType string

const (
	AudienceTypeFamily AudienceType = "family"
	AudienceTypeManual AudienceType = "manual"
)

var validAudienceTypes = []AudienceType{
	AudienceTypeFamily,
	AudienceTypeManual,
}

func (a AudienceType) String() string {
	return string(a)
}

// IsValid reports whether the audience type is known.
func (a AudienceType) IsValid() bool {
	for _, candidate := range validAudienceTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseAudienceType converts raw input into an AudienceType.
func ParseAudienceType(value string) (AudienceType, error) {
	for _, candidate := range validAudienceTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid audience type %q", value)
}
