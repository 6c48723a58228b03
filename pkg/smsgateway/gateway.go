package smsgateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/exp/slog"
)

// Gateway represents an SMS gateway interface
type Gateway interface {
	SendSMS(ctx context.Context, phoneNumber, message string) (string, error)
}

// HTTPGateway posts messages to a JSON SMS API authenticated by a bearer key.
type HTTPGateway struct {
	BaseURL    string
	APIKey     string
	Sender     string
	httpClient *http.Client
}

// MockGateway logs messages instead of sending them.
type MockGateway struct {
	Name string
}

// NewHTTPGateway creates a new HTTPGateway
func NewHTTPGateway(baseURL, apiKey, sender string) *HTTPGateway {
	return &HTTPGateway{
		BaseURL: baseURL,
		APIKey:  apiKey,
		Sender:  sender,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// NewMockGateway creates a new Mock SMS gateway
func NewMockGateway(name string) *MockGateway {
	return &MockGateway{Name: name}
}

// SendSMS sends an SMS through the HTTP gateway and returns its message id.
func (g *HTTPGateway) SendSMS(ctx context.Context, phoneNumber, message string) (string, error) {
	if phoneNumber == "" {
		return "", errors.New("phone number is required")
	}
	requestBody := map[string]interface{}{
		"to":      phoneNumber,
		"from":    g.Sender,
		"message": message,
	}
	jsonBody, err := json.Marshal(requestBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.BaseURL, bytes.NewBuffer(jsonBody))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", g.APIKey))

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("request failed with status %d: %s", resp.StatusCode, string(body))
	}

	var response struct {
		MessageID string `json:"messageId"`
	}
	if err := json.Unmarshal(body, &response); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}
	return response.MessageID, nil
}

// SendSMS sends an SMS using the Mock gateway
func (g *MockGateway) SendSMS(_ context.Context, phoneNumber, message string) (string, error) {
	msgID := fmt.Sprintf("%s-MOCK-MSG-%d", g.Name, time.Now().UnixNano())
	slog.Info("mock sms sent", "gateway", g.Name, "to", phoneNumber, "messageId", msgID, "message", message)
	return msgID, nil
}
