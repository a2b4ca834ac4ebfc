package backendapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/nuansasolution/portal/internal/domain"
)

// Config holds subscription backend API configuration
type Config struct {
	BaseURL string
	Timeout time.Duration
}

// Client is the HTTP client for the subscription backend. The backend is the
// system of record for orders; this client never caches its responses.
type Client struct {
	config     Config
	httpClient *http.Client
}

// NewClient creates a new backend API client
func NewClient(cfg Config) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Client{
		config: cfg,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// envelope is the backend's standard response wrapper
type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// do performs a JSON request with bearer auth and decodes the envelope.
// A nil return with ok=false means the backend answered but rejected the
// operation; the message carries its reason.
func (c *Client) do(ctx context.Context, method, path, token string, body any) (data json.RawMessage, ok bool, message string, err error) {
	var bodyReader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, false, "", fmt.Errorf("failed to marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.config.BaseURL+path, bodyReader)
	if err != nil {
		return nil, false, "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, false, "", &domain.NetworkError{Op: method + " " + path, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return nil, false, "", domain.ErrAuthExpired
	}
	if resp.StatusCode == http.StatusNotFound {
		return nil, false, "", fmt.Errorf("%w: %s", domain.ErrNotFound, path)
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, false, "", &domain.NetworkError{Op: method + " " + path, Err: err}
	}

	var env envelope
	if err := json.Unmarshal(respBody, &env); err != nil {
		return nil, false, "", fmt.Errorf("failed to decode backend response (status %d): %w", resp.StatusCode, err)
	}
	return env.Data, env.Success, env.Message, nil
}

// CreatePaymentRequest is the body for POST /payment/create
type CreatePaymentRequest struct {
	UserID        string `json:"user_id"`
	PackageName   string `json:"package_name"`
	GrossAmount   int64  `json:"gross_amount"`
	PaymentMethod string `json:"payment_method"`
}

// CreatePaymentResponse carries the server-assigned order ID and the
// single-use gateway token for the payment widget.
type CreatePaymentResponse struct {
	OrderID   string `json:"order_id"`
	SnapToken string `json:"snap_token"`
}

// CreatePayment creates an order and obtains a gateway token.
func (c *Client) CreatePayment(ctx context.Context, token string, req CreatePaymentRequest) (*CreatePaymentResponse, error) {
	data, ok, message, err := c.do(ctx, http.MethodPost, "/payment/create", token, req)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, &domain.OrderCreationError{Reason: message}
	}

	var out CreatePaymentResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("failed to decode create payment response: %w", err)
	}
	if out.OrderID == "" || out.SnapToken == "" {
		return nil, &domain.OrderCreationError{Reason: "backend returned no order id or gateway token"}
	}
	return &out, nil
}

// GetStatus returns the authoritative transaction status for an order.
func (c *Client) GetStatus(ctx context.Context, token, orderID string) (string, error) {
	data, ok, message, err := c.do(ctx, http.MethodGet, "/payment/status/"+orderID, token, nil)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", fmt.Errorf("status check rejected: %s", message)
	}

	var out struct {
		TransactionStatus string `json:"transaction_status"`
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return "", fmt.Errorf("failed to decode status response: %w", err)
	}
	return out.TransactionStatus, nil
}

// VerifyPayment asks the backend to reconcile the order against the payment
// gateway's record. Best-effort: callers treat failures as non-fatal.
func (c *Client) VerifyPayment(ctx context.Context, token, orderID string) error {
	_, ok, message, err := c.do(ctx, http.MethodPost, "/payment/verify/"+orderID, token, nil)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("verification rejected: %s", message)
	}
	return nil
}

// ResumePayment requests a fresh gateway token for a pending order.
// Any previously issued token for the order is superseded.
func (c *Client) ResumePayment(ctx context.Context, token, orderID string) (string, error) {
	data, ok, message, err := c.do(ctx, http.MethodPost, "/payment/resume/"+orderID, token, nil)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", fmt.Errorf("resume rejected: %s", message)
	}

	var out struct {
		SnapToken string `json:"snap_token"`
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return "", fmt.Errorf("failed to decode resume response: %w", err)
	}
	if out.SnapToken == "" {
		return "", fmt.Errorf("resume returned no gateway token")
	}
	return out.SnapToken, nil
}

// CancelPayment cancels a pending order.
func (c *Client) CancelPayment(ctx context.Context, token, orderID string) error {
	_, ok, message, err := c.do(ctx, http.MethodPost, "/payment/cancel/"+orderID, token, nil)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("cancel rejected: %s", message)
	}
	return nil
}

// GetAccess returns the backend's own entitlement flag for a user.
func (c *Client) GetAccess(ctx context.Context, token, userID string) (bool, error) {
	data, ok, message, err := c.do(ctx, http.MethodGet, "/user/"+userID+"/access", token, nil)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, fmt.Errorf("access check rejected: %s", message)
	}

	var out struct {
		Access bool `json:"access"`
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return false, fmt.Errorf("failed to decode access response: %w", err)
	}
	return out.Access, nil
}

// GetProfile returns the user record, active order and order history.
func (c *Client) GetProfile(ctx context.Context, token, userID string) (*domain.Profile, error) {
	data, ok, message, err := c.do(ctx, http.MethodGet, "/user/"+userID+"/profile", token, nil)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("profile fetch rejected: %s", message)
	}

	var out domain.Profile
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("failed to decode profile response: %w", err)
	}
	return &out, nil
}
