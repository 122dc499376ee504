package lib

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"festreg/src/config"
	"festreg/src/models"
	"festreg/src/types"
)

// RetryPolicy is the single retry-with-backoff abstraction shared by
// every backend call. Exponential backoff doubles the delay per attempt
// and caps it at MaxDelay; each attempt gets its own timeout.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	Timeout     time.Duration
	Retryable   func(status int, err error) bool
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		BaseDelay:   500 * time.Millisecond,
		MaxDelay:    5 * time.Second,
		Timeout:     15 * time.Second,
		Retryable:   DefaultRetryable,
	}
}

// DefaultRetryable retries transport errors, 5xx and 429; anything else
// is a terminal answer from the backend.
func DefaultRetryable(status int, err error) bool {
	if err != nil {
		return true
	}
	return status >= http.StatusInternalServerError || status == http.StatusTooManyRequests
}

// BackendClient talks to the festival REST API. All calls forward the
// caller's cookie so the backend sees the same credentials as a direct
// browser request.
type BackendClient struct {
	BaseURL string
	Client  *http.Client
}

var backendClient *BackendClient

func GetBackendClient() *BackendClient {
	if backendClient != nil {
		return backendClient
	}
	bc := &BackendClient{
		BaseURL: config.BackendBaseURL(),
		Client:  &http.Client{},
	}
	backendClient = bc
	return bc
}

// NewBackendClient Replace backend instance with custom client implementation
func NewBackendClient(c *BackendClient) *BackendClient {
	backendClient = c
	return backendClient
}

// Do runs one request body through the retry policy. The payload is kept
// as bytes so every attempt gets a fresh reader.
func (c *BackendClient) Do(ctx context.Context, policy RetryPolicy, method, path, contentType, cookie string, payload []byte) ([]byte, int, error) {
	var lastErr error
	lastStatus := 0
	delay := policy.BaseDelay
	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return nil, lastStatus, ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
			if delay > policy.MaxDelay {
				delay = policy.MaxDelay
			}
		}
		body, status, err := c.attempt(ctx, policy.Timeout, method, path, contentType, cookie, payload)
		if err == nil {
			if !policy.Retryable(status, nil) {
				return body, status, nil
			}
			lastErr = fmt.Errorf("backend answered %d for %s %s", status, method, path)
		} else {
			lastErr = err
		}
		lastStatus = status
		log.Printf("[backend] Attempt %d/%d for %s %s failed: %s\n", attempt, policy.MaxAttempts, method, path, lastErr.Error())
	}
	return nil, lastStatus, lastErr
}

func (c *BackendClient) attempt(ctx context.Context, timeout time.Duration, method, path, contentType, cookie string, payload []byte) ([]byte, int, error) {
	actx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(actx, method, c.BaseURL+path, reader)
	if err != nil {
		return nil, 0, err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if cookie != "" {
		req.Header.Set("Cookie", cookie)
	}
	res, err := c.Client.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer res.Body.Close()
	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, res.StatusCode, err
	}
	return body, res.StatusCode, nil
}

func (c *BackendClient) PostJSON(ctx context.Context, policy RetryPolicy, path, cookie string, body any) ([]byte, int, error) {
	raw, err := json.Marshal(body)
	if err != nil {
		return nil, 0, err
	}
	return c.Do(ctx, policy, http.MethodPost, path, "application/json", cookie, raw)
}

// FetchCatalog loads the read-only event catalog.
func (c *BackendClient) FetchCatalog(ctx context.Context) (models.Catalog, error) {
	body, status, err := c.Do(ctx, DefaultRetryPolicy(), http.MethodGet, "/api/events", "", "", nil)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("catalog request answered %d", status)
	}
	var catalog models.Catalog
	if err := json.Unmarshal(body, &catalog); err != nil {
		return nil, err
	}
	return catalog, nil
}

// ValidatePromo is an idempotent read and safe to retry.
func (c *BackendClient) ValidatePromo(ctx context.Context, cookie string, req types.PromoValidateRequestBody) (*types.PromoValidateResponse, error) {
	body, status, err := c.PostJSON(ctx, DefaultRetryPolicy(), "/admin/promo-codes/validate", cookie, req)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("promo validation answered %d", status)
	}
	var out types.PromoValidateResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Register submits the assembled multipart registration payload.
func (c *BackendClient) Register(ctx context.Context, cookie, contentType string, payload []byte) ([]byte, error) {
	body, status, err := c.Do(ctx, DefaultRetryPolicy(), http.MethodPost, "/register", contentType, cookie, payload)
	if err != nil {
		return nil, err
	}
	if status < http.StatusOK || status >= http.StatusMultipleChoices {
		return body, fmt.Errorf("registration failed with status %d: %s", status, string(body))
	}
	return body, nil
}

// CreateOrder asks the backend to open a payment order. The raw response
// is returned untouched; the orchestrator has to tolerate several
// historical response shapes.
func (c *BackendClient) CreateOrder(ctx context.Context, cookie string, req types.CreateOrderRequestBody) ([]byte, error) {
	body, status, err := c.PostJSON(ctx, DefaultRetryPolicy(), "/api/payments/create-order", cookie, req)
	if err != nil {
		return nil, err
	}
	if status < http.StatusOK || status >= http.StatusMultipleChoices {
		return body, fmt.Errorf("order creation failed with status %d: %s", status, string(body))
	}
	return body, nil
}

// QRCodePNG fetches a participant's entry QR image.
func (c *BackendClient) QRCodePNG(ctx context.Context, cookie string, id uint) ([]byte, error) {
	body, status, err := c.Do(ctx, DefaultRetryPolicy(), http.MethodGet, fmt.Sprintf("/api/qrcode/%d", id), "", cookie, nil)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("qrcode request answered %d", status)
	}
	return body, nil
}

// Forward proxies an arbitrary call, used by the ticket portal and the
// admin dashboards. No retries: most of these are not idempotent.
func (c *BackendClient) Forward(ctx context.Context, method, path, cookie string, body any) ([]byte, int, error) {
	var raw []byte
	if body != nil {
		var err error
		raw, err = json.Marshal(body)
		if err != nil {
			return nil, 0, err
		}
	}
	policy := DefaultRetryPolicy()
	policy.MaxAttempts = 1
	contentType := ""
	if raw != nil {
		contentType = "application/json"
	}
	return c.Do(ctx, policy, method, path, contentType, cookie, raw)
}
