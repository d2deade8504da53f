package services

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

var razorpayHTTPClient = &http.Client{Timeout: 15 * time.Second}

const defaultRazorpayBaseURL = "https://api.razorpay.com/v1"

// RazorpayClient talks to the Razorpay Orders API. Calls are synchronous and
// never retried; callers retry the whole operation.
type RazorpayClient struct {
	keyID     string
	keySecret string
	// BaseURL can be overridden in tests.
	BaseURL string
}

// NewRazorpayClient constructs a client from merchant credentials.
func NewRazorpayClient(keyID, keySecret string) *RazorpayClient {
	return &RazorpayClient{
		keyID:     keyID,
		keySecret: keySecret,
		BaseURL:   defaultRazorpayBaseURL,
	}
}

// RazorpayOrder is the provider-side order created for a payment.
type RazorpayOrder struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
	Status   string `json:"status"`
}

type createOrderPayload struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
}

// CreateOrder creates a provider order for the given amount in minor units.
func (c *RazorpayClient) CreateOrder(amount int64, currency, receipt string) (*RazorpayOrder, error) {
	if c.keyID == "" || c.keySecret == "" {
		return nil, errors.New("razorpay credentials are not configured")
	}

	payload, err := json.Marshal(createOrderPayload{
		Amount:   amount,
		Currency: currency,
		Receipt:  receipt,
	})
	if err != nil {
		return nil, fmt.Errorf("razorpay order payload: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, c.BaseURL+"/orders", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("razorpay order request build: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(c.keyID, c.keySecret)

	resp, err := razorpayHTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("razorpay order request: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("razorpay order failed: status %d, body: %s", resp.StatusCode, string(body))
	}

	var order RazorpayOrder
	if err := json.Unmarshal(body, &order); err != nil {
		return nil, fmt.Errorf("razorpay order unmarshal: %w", err)
	}

	if order.ID == "" {
		return nil, errors.New("razorpay order: empty order id")
	}

	return &order, nil
}
