package enums

import "fmt"

// ShareScope defines which photos a share token grants access to.
type ShareScope string

const (
	ShareScopeFolder ShareScope = "folder"
	ShareScopeEvent  ShareScope = "event"
	ShareScopePhotos ShareScope = "photos"
)

var validShareScopes = []ShareScope{
	ShareScopeFolder,
	ShareScopeEvent,
	ShareScopePhotos,
}

// String returns the literal string for the scope.
func (s ShareScope) String() string {
	return string(s)
}

// IsValid reports whether the scope is known.
func (s ShareScope) IsValid() bool {
	for _, candidate := range validShareScopes {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseShareScope converts raw input into a ShareScope.
func ParseShareScope(value string) (ShareScope, error) {
	for _, candidate := range validShareScopes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid share scope %q", value)
}
