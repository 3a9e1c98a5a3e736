package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// SendClient is the delivery capability the sweep consumes. Any error is
// treated as a failed delivery for the one message being processed.
type SendClient interface {
	Send(ctx context.Context, recipient, content string) (gatewayMessageID string, err error)
}

// GatewayClient posts messages to an HTTP SMS gateway. The gateway's own
// timeout and retry policy is its business; anything other than a timely
// 202 with a messageId counts as a failed send here.
type GatewayClient struct {
	url    string
	apiKey string
	client *http.Client
}

func NewGatewayClient(url, apiKey string) *GatewayClient {
	return &GatewayClient{
		url:    url,
		apiKey: apiKey,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type sendRequest struct {
	PhoneNumber string `json:"phoneNumber"`
	Message     string `json:"message"`
}

type sendResponse struct {
	Message   string `json:"message"`
	MessageID string `json:"messageId"`
}

func (c *GatewayClient) Send(ctx context.Context, recipient, content string) (string, error) {
	reqBody, err := json.Marshal(sendRequest{
		PhoneNumber: recipient,
		Message:     content,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(reqBody))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusAccepted {
		return "", fmt.Errorf("unexpected status code: %d body=%q", resp.StatusCode, string(body))
	}

	var sr sendResponse
	if err := json.Unmarshal(body, &sr); err != nil {
		return "", fmt.Errorf("failed to decode json: %w body=%q", err, string(body))
	}
	if sr.MessageID == "" {
		return "", fmt.Errorf("missing messageId in response body=%q", string(body))
	}

	return sr.MessageID, nil
}
