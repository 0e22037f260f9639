package webhooks

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	mercadopagowebhook "github.com/mcastellanos/fotoescolar-backend/internal/webhooks/mercadopago"
	pkgerrors "github.com/mcastellanos/fotoescolar-backend/pkg/errors"
)

type stubWebhookService struct {
	err     error
	handled []*mercadopagowebhook.Notification
}

func (s *stubWebhookService) HandleNotification(_ context.Context, notification *mercadopagowebhook.Notification) error {
	if s.err != nil {
		return s.err
	}
	s.handled = append(s.handled, notification)
	return nil
}

type stubGuard struct {
	seen    bool
	err     error
	marked  []string
	deleted []string
}

func (s *stubGuard) CheckAndMark(_ context.Context, id string) (bool, error) {
	if s.err != nil {
		return false, s.err
	}
	s.marked = append(s.marked, id)
	return s.seen, nil
}

func (s *stubGuard) Delete(_ context.Context, id string) error {
	s.deleted = append(s.deleted, id)
	return nil
}

type stubVerifier struct {
	err      error
	dataIDs  []string
	requests []string
}

func (s *stubVerifier) Verify(dataID, requestID, _ string) error {
	if s.err != nil {
		return s.err
	}
	s.dataIDs = append(s.dataIDs, dataID)
	s.requests = append(s.requests, requestID)
	return nil
}

func webhookRequest(body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/webhooks/mercadopago", bytes.NewReader([]byte(body)))
	req.Header.Set("X-Request-Id", "req-1")
	req.Header.Set("X-Signature", "ts=1710000000,v1=deadbeef")
	return req
}

const paymentNotification = `{"action":"payment.updated","type":"payment","data":{"id":"777"}}`

func TestMercadoPagoWebhookSuccess(t *testing.T) {
	svc := &stubWebhookService{}
	verifier := &stubVerifier{}
	guard := &stubGuard{}
	handler := MercadoPagoWebhook(svc, verifier, guard, nil)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, webhookRequest(paymentNotification))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", rec.Code, rec.Body.String())
	}
	if len(svc.handled) != 1 {
		t.Fatalf("expected 1 handled notification got %d", len(svc.handled))
	}
	if verifier.dataIDs[0] != "777" || verifier.requests[0] != "req-1" {
		t.Fatalf("verifier saw %q / %q", verifier.dataIDs[0], verifier.requests[0])
	}
	if guard.marked[0] != "777:req-1" {
		t.Fatalf("unexpected delivery key %q", guard.marked[0])
	}
}

func TestMercadoPagoWebhookRejectsBadSignature(t *testing.T) {
	svc := &stubWebhookService{}
	verifier := &stubVerifier{err: pkgerrors.New(pkgerrors.CodeUnauthorized, "signature mismatch")}
	handler := MercadoPagoWebhook(svc, verifier, &stubGuard{}, nil)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, webhookRequest(paymentNotification))

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", rec.Code)
	}
	if len(svc.handled) != 0 {
		t.Fatal("service must not run on signature failure")
	}
}

func TestMercadoPagoWebhookReplayAcksWithoutProcessing(t *testing.T) {
	svc := &stubWebhookService{}
	guard := &stubGuard{seen: true}
	handler := MercadoPagoWebhook(svc, &stubVerifier{}, guard, nil)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, webhookRequest(paymentNotification))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	if len(svc.handled) != 0 {
		t.Fatal("replayed delivery must not reach the service")
	}
}

func TestMercadoPagoWebhookReleasesMarkOnFailure(t *testing.T) {
	svc := &stubWebhookService{err: pkgerrors.New(pkgerrors.CodeDependency, "payment lookup failed")}
	guard := &stubGuard{}
	handler := MercadoPagoWebhook(svc, &stubVerifier{}, guard, nil)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, webhookRequest(paymentNotification))

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 got %d", rec.Code)
	}
	if len(guard.deleted) != 1 || guard.deleted[0] != "777:req-1" {
		t.Fatalf("expected mark released, got %v", guard.deleted)
	}
}

func TestMercadoPagoWebhookRejectsMissingDataID(t *testing.T) {
	handler := MercadoPagoWebhook(&stubWebhookService{}, &stubVerifier{}, &stubGuard{}, nil)

	for _, body := range []string{`{"type":"payment","data":{}}`, `{"type":"payment"}`} {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, webhookRequest(body))

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("body %s: expected 400 got %d", body, rec.Code)
		}
	}
}
