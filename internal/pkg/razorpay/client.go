package razorpay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Config holds Razorpay API configuration
type Config struct {
	BaseURL   string
	KeyID     string
	KeySecret string
	Timeout   time.Duration
}

// Client represents Razorpay payment gateway client
type Client struct {
	httpClient *http.Client
	config     Config
}

// CreateOrderRequest represents order creation request
type CreateOrderRequest struct {
	Amount   int64             `json:"amount"` // minor units (paise)
	Currency string            `json:"currency"`
	Receipt  string            `json:"receipt"`
	Notes    map[string]string `json:"notes,omitempty"`
}

// Order represents a gateway-side order
type Order struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
	Status   string `json:"status"`
}

// NewClient creates new Razorpay API client
func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		config:     cfg,
	}
}

// KeyID returns the public key identifier handed to the client-side checkout.
func (c *Client) KeyID() string {
	return c.config.KeyID
}

// VerifySignature checks a checkout receipt against the merchant secret.
func (c *Client) VerifySignature(orderID, paymentID, signature string) bool {
	return VerifyPaymentSignature(orderID, paymentID, signature, c.config.KeySecret)
}

// CreateOrder creates a gateway order for the given amount in minor units.
// Network errors and 5xx responses map to ErrGatewayUnavailable; 4xx
// responses map to ErrOrderRejected.
func (c *Client) CreateOrder(ctx context.Context, req CreateOrderRequest) (*Order, error) {
	if req.Amount <= 0 {
		return nil, fmt.Errorf("validation error: amount must be > 0")
	}
	if req.Currency == "" {
		return nil, fmt.Errorf("validation error: currency must be non-empty")
	}
	if c == nil || c.httpClient == nil {
		return nil, fmt.Errorf("razorpay client is not initialized")
	}
	if strings.TrimSpace(c.config.KeyID) == "" || strings.TrimSpace(c.config.KeySecret) == "" {
		return nil, fmt.Errorf("razorpay config error: key credentials are empty")
	}

	jsonData, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to encode razorpay request: %w", err)
	}

	base := strings.TrimRight(c.config.BaseURL, "/")
	if base == "" {
		base = "https://api.razorpay.com"
	}
	url := base + "/v1/orders"

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("razorpay api call failed: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.SetBasicAuth(c.config.KeyID, c.config.KeySecret)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading response: %v", ErrGatewayUnavailable, err)
	}

	switch {
	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("%w: status %d", ErrGatewayUnavailable, resp.StatusCode)
	case resp.StatusCode >= 400:
		return nil, fmt.Errorf("%w: status %d, body: %s", ErrOrderRejected, resp.StatusCode, string(body))
	}

	var out Order
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("failed to parse razorpay response: %w", err)
	}

	return &out, nil
}
