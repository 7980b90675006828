package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/aprsa/phoebe-lab/internal/types"
)

func TestClientSetValueSendsEnvelopeRequest(t *testing.T) {
	var seenPath, seenMethod string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenPath = r.URL.Path
		seenMethod = r.Method
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success":true,"result":null,"error":null}`))
	}))
	defer server.Close()

	c := New(server.URL)
	if err := c.SetValue(context.Background(), "sess-1", "requiv@primary@component", 1.5); err != nil {
		t.Fatalf("SetValue error: %v", err)
	}
	if seenMethod != http.MethodPut {
		t.Fatalf("unexpected method: %s", seenMethod)
	}
	if seenPath != "/v1/sessions/sess-1/parameters/value" {
		t.Fatalf("unexpected path: %s", seenPath)
	}
}

func TestClientSurfacesRemoteErrorMessageUnchanged(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"success":false,"result":null,"error":"value out of limits"}`))
	}))
	defer server.Close()

	c := New(server.URL)
	err := c.SetValue(context.Background(), "sess-1", "ecc@binary@orbit@component", 3.0)
	remote := AsRemoteError(err)
	if remote == nil {
		t.Fatalf("expected RemoteError, got %v", err)
	}
	if remote.Message != "value out of limits" {
		t.Fatalf("server message not preserved: %q", remote.Message)
	}
}

func TestClientMapsUnknownSessionToExpired(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"success":false,"result":null,"error":"session not found"}`))
	}))
	defer server.Close()

	c := New(server.URL)
	_, err := c.GetSession(context.Background(), "sess-123")
	if !errors.Is(err, ErrSessionExpired) {
		t.Fatalf("expected ErrSessionExpired, got %v", err)
	}
}

func TestClientMapsTransportFailureToDisconnected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	c := New(server.URL)
	_, err := c.GetSessions(context.Background())
	if !errors.Is(err, ErrDisconnected) {
		t.Fatalf("expected ErrDisconnected, got %v", err)
	}
}

func TestClientAddDatasetDecodesResult(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success":true,"result":{"dataset_id":"ds-42"},"error":null}`))
	}))
	defer server.Close()

	c := New(server.URL)
	id, err := c.AddDataset(context.Background(), "sess-1", types.DefaultDatasetSpec())
	if err != nil {
		t.Fatalf("AddDataset error: %v", err)
	}
	if id != "ds-42" {
		t.Fatalf("unexpected dataset id: %s", id)
	}
}

func TestClientGetParameterDecodesMeta(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("twig"); got != "teff@primary@star@component" {
			t.Errorf("unexpected twig query: %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success":true,"result":{
			"twig":"teff@primary@star@component",
			"uniqueid":"uid-7",
			"kind":"numeric",
			"value":6000,
			"limits":{"min":3500,"max":50000},
			"constrained":false
		},"error":null}`))
	}))
	defer server.Close()

	c := New(server.URL)
	meta, err := c.GetParameter(context.Background(), "sess-1", "teff@primary@star@component")
	if err != nil {
		t.Fatalf("GetParameter error: %v", err)
	}
	if meta.UniqueID != "uid-7" || meta.Kind != "numeric" {
		t.Fatalf("unexpected meta: %+v", meta)
	}
	if meta.Limits.Min == nil || *meta.Limits.Min != 3500 {
		t.Fatalf("limits not decoded: %+v", meta.Limits)
	}
}
