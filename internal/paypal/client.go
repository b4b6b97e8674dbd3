package paypal

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"shopora/internal/domain"
	"shopora/internal/logger"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"
	"golang.org/x/sync/singleflight"
)

// tokenSlack is subtracted from the provider-reported expiry so a token is
// refreshed before it actually lapses mid-request.
const tokenSlack = 60 * time.Second

// GatewayError carries a non-2xx provider response, body included, so the
// caller can log and surface the provider's own error detail.
type GatewayError struct {
	StatusCode int
	Body       string
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("gateway error: status %d: %s", e.StatusCode, e.Body)
}

// Intent is the provider-side payment object created before capture.
type Intent struct {
	ID     string
	Status string
}

// Capture is the finalized payment record extracted from the provider's
// capture response.
type Capture struct {
	TransactionID string
	Status        string
	PayerEmail    string
}

// Client talks to the PayPal checkout API. The access token is process-wide
// state: cached until expiry, refreshed via single-flight so concurrent
// callers collapse into one token request. No lock is held during HTTP
// calls.
type Client struct {
	baseURL    string
	clientID   string
	secret     string
	httpClient *http.Client

	mu          sync.RWMutex
	token       string
	tokenExpiry time.Time
	sf          singleflight.Group
}

func New(baseURL, clientID, secret string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		clientID:   clientID,
		secret:     secret,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// CreateOrder creates a provider payment intent for the given amount.
func (c *Client) CreateOrder(ctx context.Context, totalCents int64, currency string) (*Intent, error) {
	body := map[string]interface{}{
		"intent": "CAPTURE",
		"purchase_units": []map[string]interface{}{
			{"amount": map[string]string{
				"currency_code": currency,
				"value":         CentsToValue(totalCents),
			}},
		},
	}

	var out struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	if err := c.doAuthorized(ctx, "/v2/checkout/orders", body, &out); err != nil {
		return nil, err
	}
	return &Intent{ID: out.ID, Status: out.Status}, nil
}

// CaptureOrder finalizes a previously approved payment intent. A 2xx
// response without the expected nested capture record fails with
// domain.ErrCaptureMissing; the order must not be marked paid on it.
func (c *Client) CaptureOrder(ctx context.Context, intentID string) (*Capture, error) {
	var out struct {
		Status        string `json:"status"`
		PurchaseUnits []struct {
			Payments struct {
				Captures []struct {
					ID     string `json:"id"`
					Status string `json:"status"`
				} `json:"captures"`
			} `json:"payments"`
		} `json:"purchase_units"`
		Payer struct {
			Email string `json:"email_address"`
		} `json:"payer"`
	}
	path := "/v2/checkout/orders/" + url.PathEscape(intentID) + "/capture"
	if err := c.doAuthorized(ctx, path, nil, &out); err != nil {
		return nil, err
	}

	if len(out.PurchaseUnits) == 0 || len(out.PurchaseUnits[0].Payments.Captures) == 0 {
		return nil, domain.ErrCaptureMissing
	}
	capture := out.PurchaseUnits[0].Payments.Captures[0]
	return &Capture{
		TransactionID: capture.ID,
		Status:        capture.Status,
		PayerEmail:    out.Payer.Email,
	}, nil
}

func (c *Client) doAuthorized(ctx context.Context, path string, body interface{}, out interface{}) error {
	token, err := c.accessToken(ctx)
	if err != nil {
		return err
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("PayPal-Request-Id", uuid.NewString())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return mapTransportError(err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		logger.Warn("paypal: provider error", "path", path, "status", resp.StatusCode, "body", string(raw))
		return &GatewayError{StatusCode: resp.StatusCode, Body: string(raw)}
	}
	return json.Unmarshal(raw, out)
}

// accessToken returns the cached token or performs a client-credentials
// exchange. Concurrent callers observing an expired token wait on a single
// in-flight refresh.
func (c *Client) accessToken(ctx context.Context) (string, error) {
	c.mu.RLock()
	if c.token != "" && time.Now().Before(c.tokenExpiry) {
		token := c.token
		c.mu.RUnlock()
		return token, nil
	}
	c.mu.RUnlock()

	v, err, _ := c.sf.Do("token", func() (interface{}, error) {
		return c.exchangeToken(ctx)
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// exchangeToken performs the OAuth client-credentials exchange with one
// bounded retry on transient failure, then updates the cache.
func (c *Client) exchangeToken(ctx context.Context) (string, error) {
	var (
		token     string
		expiresIn int64
	)

	backoff := retry.WithMaxRetries(1, retry.NewConstant(time.Second))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost,
			c.baseURL+"/v1/oauth2/token",
			strings.NewReader("grant_type=client_credentials"))
		if err != nil {
			return err
		}
		req.SetBasicAuth(c.clientID, c.secret)
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return retry.RetryableError(mapTransportError(err))
		}
		defer resp.Body.Close()

		raw, err := io.ReadAll(resp.Body)
		if err != nil {
			return retry.RetryableError(err)
		}
		if resp.StatusCode >= 500 {
			return retry.RetryableError(fmt.Errorf("%w: status %d: %s", domain.ErrGatewayAuth, resp.StatusCode, string(raw)))
		}
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("%w: status %d: %s", domain.ErrGatewayAuth, resp.StatusCode, string(raw))
		}

		var out struct {
			AccessToken string `json:"access_token"`
			ExpiresIn   int64  `json:"expires_in"`
		}
		if err := json.Unmarshal(raw, &out); err != nil {
			return fmt.Errorf("%w: %v", domain.ErrGatewayAuth, err)
		}
		if out.AccessToken == "" {
			return fmt.Errorf("%w: empty access token", domain.ErrGatewayAuth)
		}
		token = out.AccessToken
		expiresIn = out.ExpiresIn
		return nil
	})
	if err != nil {
		return "", err
	}

	expiry := time.Now().Add(time.Duration(expiresIn) * time.Second)
	if slacked := expiry.Add(-tokenSlack); slacked.After(time.Now()) {
		expiry = slacked
	}

	c.mu.Lock()
	c.token = token
	c.tokenExpiry = expiry
	c.mu.Unlock()

	return token, nil
}

func mapTransportError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", domain.ErrGatewayTimeout, err)
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Timeout() {
		return fmt.Errorf("%w: %v", domain.ErrGatewayTimeout, err)
	}
	return err
}

// CentsToValue renders an amount of cents as the provider's decimal string,
// e.g. 16000 -> "160.00".
func CentsToValue(cents int64) string {
	return fmt.Sprintf("%d.%02d", cents/100, cents%100)
}
