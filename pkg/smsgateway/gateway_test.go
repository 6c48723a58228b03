package smsgateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestHTTPGatewaySendSMS(t *testing.T) {
	t.Parallel()

	var got map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer key-1" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		_, _ = w.Write([]byte(`{"messageId":"abc-123"}`))
	}))
	defer server.Close()

	gw := NewHTTPGateway(server.URL, "key-1", "RIFA")
	id, err := gw.SendSMS(context.Background(), "+584121234567", "hola")
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if id != "abc-123" {
		t.Fatalf("expected message id abc-123, got %q", id)
	}
	if got["to"] != "+584121234567" || got["from"] != "RIFA" || got["message"] != "hola" {
		t.Fatalf("unexpected request body %v", got)
	}
}

func TestHTTPGatewayErrors(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer server.Close()

	gw := NewHTTPGateway(server.URL, "key-1", "RIFA")
	if _, err := gw.SendSMS(context.Background(), "+58412", "x"); err == nil || !strings.Contains(err.Error(), "429") {
		t.Fatalf("expected status error, got %v", err)
	}
	if _, err := gw.SendSMS(context.Background(), "", "x"); err == nil {
		t.Fatalf("expected error for empty phone number")
	}
}

func TestMockGateway(t *testing.T) {
	t.Parallel()

	id, err := NewMockGateway("RIFA").SendSMS(context.Background(), "+58412", "x")
	if err != nil || !strings.HasPrefix(id, "RIFA-MOCK-MSG-") {
		t.Fatalf("unexpected mock result %q %v", id, err)
	}
}
