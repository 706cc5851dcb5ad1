package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/safar/go-storefront/internal/apperr"
	"github.com/safar/go-storefront/internal/config"
)

var errNotConfigured = apperr.External("Card payments are not configured", nil)

// StripeClient creates and inspects Stripe Checkout sessions over the REST API.
type StripeClient struct {
	baseURL   string
	secretKey string
	currency  string
	http      *http.Client
}

func NewStripeClient(cfg config.PaymentConfig, httpClient *http.Client) *StripeClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &StripeClient{
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		secretKey: cfg.SecretKey,
		currency:  strings.ToLower(cfg.Currency),
		http:      httpClient,
	}
}

type checkoutSession struct {
	ID            string `json:"id"`
	URL           string `json:"url"`
	Status        string `json:"status"`
	PaymentStatus string `json:"payment_status"`
}

type stripeError struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// minorUnits converts a decimal amount to the smallest currency unit.
func minorUnits(amount decimal.Decimal) int64 {
	return amount.Shift(2).Round(0).IntPart()
}

func (c *StripeClient) CreateSession(ctx context.Context, req SessionRequest) (*Session, error) {
	if c.secretKey == "" {
		return nil, errNotConfigured
	}

	form := url.Values{}
	form.Set("mode", "payment")
	form.Set("success_url", req.SuccessURL)
	form.Set("cancel_url", req.CancelURL)
	form.Set("client_reference_id", strconv.FormatInt(req.OrderID, 10))
	form.Set("metadata[order_id]", strconv.FormatInt(req.OrderID, 10))
	form.Set("metadata[order_number]", req.OrderNumber)

	items := req.Items
	if req.DeliveryFee.IsPositive() {
		items = append(items[:len(items):len(items)], SessionItem{
			Name:      "Delivery Charges",
			UnitPrice: req.DeliveryFee,
			Quantity:  1,
		})
	}
	for i, item := range items {
		prefix := fmt.Sprintf("line_items[%d]", i)
		form.Set(prefix+"[price_data][currency]", c.currency)
		form.Set(prefix+"[price_data][product_data][name]", item.Name)
		form.Set(prefix+"[price_data][unit_amount]", strconv.FormatInt(minorUnits(item.UnitPrice), 10))
		form.Set(prefix+"[quantity]", strconv.Itoa(item.Quantity))
	}

	var session checkoutSession
	err := c.do(ctx, http.MethodPost, "/v1/checkout/sessions", form, "order-"+req.OrderNumber, &session)
	if err != nil {
		return nil, err
	}
	if session.ID == "" || session.URL == "" {
		return nil, apperr.External("Payment provider returned an incomplete session", nil)
	}

	return &Session{ID: session.ID, URL: session.URL}, nil
}

func (c *StripeClient) SessionStatus(ctx context.Context, sessionID string) (Status, error) {
	if c.secretKey == "" {
		return "", errNotConfigured
	}

	var session checkoutSession
	path := "/v1/checkout/sessions/" + url.PathEscape(sessionID)
	if err := c.do(ctx, http.MethodGet, path, nil, "", &session); err != nil {
		return "", err
	}

	switch {
	case session.PaymentStatus == "paid" || session.PaymentStatus == "no_payment_required":
		return StatusPaid, nil
	case session.Status == "expired":
		return StatusFailed, nil
	default:
		return StatusOpen, nil
	}
}

func (c *StripeClient) do(ctx context.Context, method, path string, form url.Values, idempotencyKey string, out interface{}) error {
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build payment request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	if idempotencyKey != "" {
		req.Header.Set("Idempotency-Key", idempotencyKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return apperr.External("Payment provider unavailable", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return apperr.External("Payment provider unavailable", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var se stripeError
		msg := http.StatusText(resp.StatusCode)
		if json.Unmarshal(raw, &se) == nil && se.Error.Message != "" {
			msg = se.Error.Message
		}
		return apperr.External("Payment provider rejected the request",
			fmt.Errorf("stripe %s %s: %d %s", method, path, resp.StatusCode, msg))
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return apperr.External("Payment provider returned an invalid response", err)
	}
	return nil
}
