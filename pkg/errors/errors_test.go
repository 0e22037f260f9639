package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"
)

func TestMetadataForKnownCode(t *testing.T) {
	meta := MetadataFor(CodeShareExpired)
	if meta.HTTPStatus != http.StatusGone {
		t.Fatalf("expected 410 for expired share, got %d", meta.HTTPStatus)
	}
	if meta.Retryable {
		t.Fatal("expired share must not be retryable")
	}
}

func TestMetadataForUnknownCodeFallsBackToInternal(t *testing.T) {
	meta := MetadataFor(Code("SOMETHING_ELSE"))
	if meta.HTTPStatus != http.StatusInternalServerError {
		t.Fatalf("expected internal fallback, got %d", meta.HTTPStatus)
	}
}

func TestShareCodesAreDistinct(t *testing.T) {
	codes := []Code{
		CodeShareNotFound,
		CodeShareRevoked,
		CodeShareExpired,
		CodeShareViewLimit,
		CodeShareUnauthorized,
	}
	seen := map[Code]bool{}
	for _, code := range codes {
		if seen[code] {
			t.Fatalf("duplicate share code %s", code)
		}
		seen[code] = true
		if _, ok := metadataByCode[code]; !ok {
			t.Fatalf("share code %s has no metadata", code)
		}
	}
}

func TestWrapPreservesCause(t *testing.T) {
	cause := stdErrors.New("boom")
	err := Wrap(CodeDependency, cause, "query share token")

	if !stdErrors.Is(err, cause) {
		t.Fatal("expected wrapped cause to be reachable via errors.Is")
	}
	if err.Code() != CodeDependency {
		t.Fatalf("expected dependency code, got %s", err.Code())
	}
}

func TestAsFindsTypedErrorInChain(t *testing.T) {
	inner := New(CodeShareRevoked, "share revoked")
	wrapped := fmt.Errorf("outer: %w", inner)

	typed := As(wrapped)
	if typed == nil {
		t.Fatal("expected typed error in chain")
	}
	if typed.Code() != CodeShareRevoked {
		t.Fatalf("expected revoked code, got %s", typed.Code())
	}
}

func TestWithDetails(t *testing.T) {
	err := New(CodeScopeNotFound, "anchor folder missing").
		WithDetails(map[string]string{"anchor_id": "abc"})

	details, ok := err.Details().(map[string]string)
	if !ok {
		t.Fatalf("expected map details, got %T", err.Details())
	}
	if details["anchor_id"] != "abc" {
		t.Fatalf("unexpected details %v", details)
	}
}

func TestDumpCollectsChain(t *testing.T) {
	cause := stdErrors.New("db down")
	err := Wrap(CodeDependency, cause, "load contents")

	d := Dump(err)
	if d.Code != CodeDependency {
		t.Fatalf("expected dependency code, got %s", d.Code)
	}
	if len(d.Chain) < 2 {
		t.Fatalf("expected chain to include cause, got %v", d.Chain)
	}
}
