// Package whatsapp is the thin HTTP client for the companion WhatsApp
// bridge daemon. Only writes go through the daemon — it owns the live
// protocol session required to originate a message. All reads go straight
// to the daemon's SQLite store via dbread, accepting whatever sync cadence
// the daemon keeps.
package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/HendryAvila/macbridge/internal/errs"
)

// serviceName appears in every ServiceUnavailable error this client raises.
const serviceName = "WhatsApp bridge"

// Client talks to the bridge daemon's HTTP surface.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a client for the daemon at baseURL
// (e.g. "http://localhost:8080").
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 15 * time.Second},
	}
}

// HealthStatus is the daemon's health payload.
type HealthStatus struct {
	Status string `json:"status"`
	User   string `json:"user,omitempty"`
}

// Health checks the daemon's /health endpoint.
func (c *Client) Health(ctx context.Context) (*HealthStatus, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return nil, errs.Unavailablef(serviceName, err.Error())
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errs.Unavailablef(serviceName, "not reachable: "+err.Error())
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, errs.Unavailablef(serviceName, fmt.Sprintf("health returned HTTP %d", resp.StatusCode))
	}

	var status HealthStatus
	if err := json.Unmarshal(body, &status); err != nil {
		return nil, errs.Unavailablef(serviceName, "unparseable health response")
	}
	if status.Status == "" {
		return nil, errs.Unavailablef(serviceName, "health response missing status")
	}
	return &status, nil
}

type sendRequest struct {
	Recipient string `json:"recipient"`
	Message   string `json:"message"`
}

type sendResponse struct {
	Success bool   `json:"success"`
	ID      string `json:"id,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Send asks the daemon to originate a message and returns the message id.
// Recipient is a phone number or JID; the daemon decides.
func (c *Client) Send(ctx context.Context, recipient, message string) (string, error) {
	payload, err := json.Marshal(sendRequest{Recipient: recipient, Message: message})
	if err != nil {
		return "", errs.Unavailablef(serviceName, err.Error())
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/send", bytes.NewReader(payload))
	if err != nil {
		return "", errs.Unavailablef(serviceName, err.Error())
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", errs.Unavailablef(serviceName, "not reachable: "+err.Error())
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", errs.Unavailablef(serviceName, fmt.Sprintf("send returned HTTP %d", resp.StatusCode))
	}

	var result sendResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return "", errs.Unavailablef(serviceName, "unparseable send response")
	}
	if !result.Success {
		reason := result.Error
		if reason == "" {
			reason = "send rejected without a reason"
		}
		return "", errs.Unavailablef(serviceName, reason)
	}
	if result.ID == "" {
		return "", errs.Unavailablef(serviceName, "send response missing message id")
	}
	return result.ID, nil
}
