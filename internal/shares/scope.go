package shares

import (
	"bytes"
	"encoding/json"

	"github.com/google/uuid"

	"github.com/mcastellanos/fotoescolar-backend/pkg/enums"
	pkgerrors "github.com/mcastellanos/fotoescolar-backend/pkg/errors"
)

// ScopeFilters narrow the resolved photo set after structural resolution.
type ScopeFilters struct {
	ApprovedOnly bool               `json:"approved_only,omitempty"`
	Status       *enums.PhotoStatus `json:"status,omitempty"`
}

// ScopeConfig is the tagged variant describing which photos a share grants
// access to. It is persisted on the token as normalized JSON so that the
// stored shape is stable and re-parseable.
//
// The explicit id list of a photos-scoped share lives on the token row, not
// in the persisted config; it is attached in memory before resolution.
type ScopeConfig struct {
	Scope              enums.ShareScope `json:"scope"`
	AnchorID           *uuid.UUID       `json:"anchor_id"`
	IncludeDescendants bool             `json:"include_descendants"`
	Filters            ScopeFilters     `json:"filters"`

	PhotoIDs []uuid.UUID `json:"-"`
}

// Validate checks the config's structural invariants.
func (c ScopeConfig) Validate() error {
	if !c.Scope.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "unknown share scope")
	}
	switch c.Scope {
	case enums.ShareScopeFolder:
		if c.AnchorID == nil || *c.AnchorID == uuid.Nil {
			return pkgerrors.New(pkgerrors.CodeValidation, "folder scope requires an anchor folder id")
		}
	case enums.ShareScopeEvent:
		if c.AnchorID == nil || *c.AnchorID == uuid.Nil {
			return pkgerrors.New(pkgerrors.CodeValidation, "event scope requires the event id as anchor")
		}
	case enums.ShareScopePhotos:
		if len(c.PhotoIDs) == 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "photos scope requires a photo id list")
		}
		if c.IncludeDescendants {
			return pkgerrors.New(pkgerrors.CodeValidation, "include_descendants does not apply to a photos scope")
		}
	}
	return nil
}

// Normalize serializes the config into its stored JSON shape.
func (c ScopeConfig) Normalize() (json.RawMessage, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	raw, err := json.Marshal(c)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encoding scope config")
	}
	return raw, nil
}

// ParseScopeConfig decodes a stored scope config. Unknown keys and malformed
// shapes are validation errors, never silently defaulted.
func ParseScopeConfig(raw json.RawMessage) (ScopeConfig, error) {
	if len(raw) == 0 {
		return ScopeConfig{}, pkgerrors.New(pkgerrors.CodeValidation, "scope config is empty")
	}
	decoder := json.NewDecoder(bytes.NewReader(raw))
	decoder.DisallowUnknownFields()

	var cfg ScopeConfig
	if err := decoder.Decode(&cfg); err != nil {
		return ScopeConfig{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "malformed scope config")
	}
	if !cfg.Scope.IsValid() {
		return ScopeConfig{}, pkgerrors.New(pkgerrors.CodeValidation, "unknown share scope")
	}
	return cfg, nil
}
