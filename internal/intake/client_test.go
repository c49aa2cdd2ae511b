package intake

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/ehr/healthreport/internal/domain/healthrecord"
	"github.com/ehr/healthreport/internal/domain/healthreport"
)

// newTestServer serves the real record and report handlers over a memory
// store.
func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	e := echo.New()
	api := e.Group("/api/v1")
	records := healthrecord.NewService(healthrecord.NewMemoryRepo())
	healthrecord.NewHandler(records).RegisterRoutes(api)
	healthreport.NewHandler(healthreport.NewService(records, nil)).RegisterRoutes(api)
	srv := httptest.NewServer(e)
	t.Cleanup(srv.Close)
	return srv
}

func TestClient_CreateAndGenerate(t *testing.T) {
	srv := newTestServer(t)
	c := NewClient(srv.URL, "")
	ctx := context.Background()

	form := validForm()
	w := 150.0
	h := 68.0
	form.Weight = &w
	form.Height = &h

	id, err := c.CreateRecord(ctx, form)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if id == "" {
		t.Fatal("expected a record id")
	}

	report, err := c.GenerateReport(ctx, id)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if report.Filename != "health-report-"+id+".pdf" {
		t.Errorf("unexpected filename %q", report.Filename)
	}
	if !bytes.HasPrefix(report.Content, []byte("%PDF-")) {
		t.Error("expected PDF content")
	}
}

func TestClient_CreateRecord_ValidatesBeforeSending(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, "").CreateRecord(context.Background(), Form{})
	var missing *MissingFieldsError
	if !errors.As(err, &missing) {
		t.Fatalf("expected MissingFieldsError, got %v", err)
	}
	if n := atomic.LoadInt32(&hits); n != 0 {
		t.Errorf("expected no request, got %d", n)
	}
}

func TestClient_CreateRecord_ServerValidation(t *testing.T) {
	srv := newTestServer(t)
	form := validForm()
	form.Gender = "unknown"

	_, err := NewClient(srv.URL, "").CreateRecord(context.Background(), form)
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Status != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", apiErr.Status)
	}
	if _, ok := apiErr.Fields["gender"]; !ok {
		t.Errorf("expected gender field error, got %v", apiErr.Fields)
	}
}

func TestClient_GenerateReport_NotFound(t *testing.T) {
	srv := newTestServer(t)
	_, err := NewClient(srv.URL, "").GenerateReport(context.Background(), "6f1c7c56-0d7e-4c1c-9d2a-6a0b6c7c1b11")
	if !IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
	var apiErr *APIError
	errors.As(err, &apiErr)
	if apiErr.Message != "Health record not found" {
		t.Errorf("unexpected message %q", apiErr.Message)
	}
}

func TestClient_NoRetries(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"error":"unavailable"}`))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, "").CreateRecord(context.Background(), validForm())
	if err == nil {
		t.Fatal("expected error")
	}
	if n := atomic.LoadInt32(&hits); n != 1 {
		t.Errorf("expected exactly one request, got %d", n)
	}
}

func TestClient_SendsBearerToken(t *testing.T) {
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":"abc"}`))
	}))
	defer srv.Close()

	id, err := NewClient(srv.URL, "tok").CreateRecord(context.Background(), validForm())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id != "abc" {
		t.Errorf("expected id abc, got %q", id)
	}
	if auth != "Bearer tok" {
		t.Errorf("expected bearer header, got %q", auth)
	}
}

func TestAttachmentName(t *testing.T) {
	if got := attachmentName(`attachment; filename="health-report-1.pdf"`); got != "health-report-1.pdf" {
		t.Errorf("unexpected name %q", got)
	}
	if got := attachmentName(""); got != "" {
		t.Errorf("expected empty name, got %q", got)
	}
}
