package payments

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
)

const lineItemsPageSize = 100

// ProviderError wraps a failed call to the payment provider. The webhook
// handler maps it to a 502 so the provider redelivers the event later.
type ProviderError struct {
	Op         string
	StatusCode int
	Err        error
}

func (e *ProviderError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("payments: %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("payments: %s: status %d", e.Op, e.StatusCode)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// Session is the canonical checkout session as returned by the provider.
type Session struct {
	ID              string           `json:"id"`
	URL             string           `json:"url"`
	Mode            string           `json:"mode"`
	PaymentStatus   string           `json:"payment_status"`
	PaymentIntent   *string          `json:"payment_intent"`
	AmountTotal     *int64           `json:"amount_total"`
	Currency        *string          `json:"currency"`
	CustomerDetails *CustomerDetails `json:"customer_details"`
}

type CustomerDetails struct {
	Email *string `json:"email"`
	Name  *string `json:"name"`
	Phone *string `json:"phone"`
}

type LineItem struct {
	ID       string `json:"id"`
	Quantity int    `json:"quantity"`
	Price    struct {
		ID string `json:"id"`
	} `json:"price"`
}

type lineItemPage struct {
	Data    []LineItem `json:"data"`
	HasMore bool       `json:"has_more"`
}

// Client talks to the provider's REST API with a bearer credential. The base
// URL is injectable so tests can point it at an httptest server.
type Client struct {
	baseURL   string
	secretKey string
	http      *http.Client
}

func NewClient(baseURL, secretKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		secretKey: secretKey,
		http:      &http.Client{Timeout: timeout},
	}
}

func (c *Client) GetCheckoutSession(ctx context.Context, sessionID string) (*Session, error) {
	var session Session
	path := "/v1/checkout/sessions/" + url.PathEscape(sessionID)
	if err := c.getJSON(ctx, "fetch session", path, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// ListLineItems follows the provider's cursor pagination until has_more is
// false.
func (c *Client) ListLineItems(ctx context.Context, sessionID string) ([]LineItem, error) {
	var items []LineItem
	startingAfter := ""

	for {
		path := fmt.Sprintf("/v1/checkout/sessions/%s/line_items?limit=%d",
			url.PathEscape(sessionID), lineItemsPageSize)
		if startingAfter != "" {
			path += "&starting_after=" + url.QueryEscape(startingAfter)
		}

		var page lineItemPage
		if err := c.getJSON(ctx, "fetch line items", path, &page); err != nil {
			return nil, err
		}

		items = append(items, page.Data...)
		if !page.HasMore || len(page.Data) == 0 {
			break
		}
		startingAfter = page.Data[len(page.Data)-1].ID
	}
	return items, nil
}

// CreateSessionParams carries everything the hosted checkout session needs.
type CreateSessionParams struct {
	PriceID           string
	Quantity          int
	SuccessURL        string
	CancelURL         string
	ClientReferenceID string
	Metadata          map[string]string
	AllowedCountries  []string
	CollectPhone      bool
}

func (c *Client) CreateCheckoutSession(ctx context.Context, p CreateSessionParams) (*Session, error) {
	form := url.Values{}
	form.Set("mode", "payment")
	form.Set("success_url", p.SuccessURL)
	form.Set("cancel_url", p.CancelURL)
	form.Set("line_items[0][price]", p.PriceID)
	form.Set("line_items[0][quantity]", strconv.Itoa(p.Quantity))
	for i, country := range p.AllowedCountries {
		form.Set(fmt.Sprintf("shipping_address_collection[allowed_countries][%d]", i), country)
	}
	if p.CollectPhone {
		form.Set("phone_number_collection[enabled]", "true")
	}
	for k, v := range p.Metadata {
		form.Set(fmt.Sprintf("metadata[%s]", k), v)
	}
	if p.ClientReferenceID != "" {
		form.Set("client_reference_id", p.ClientReferenceID)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/v1/checkout/sessions", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, &ProviderError{Op: "create session", Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	var session Session
	if err := c.do(req, "create session", &session); err != nil {
		return nil, err
	}
	return &session, nil
}

func (c *Client) getJSON(ctx context.Context, op, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return &ProviderError{Op: op, Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	return c.do(req, op, out)
}

func (c *Client) do(req *http.Request, op string, out interface{}) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return &ProviderError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &ProviderError{Op: op, StatusCode: resp.StatusCode, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &ProviderError{Op: op, StatusCode: resp.StatusCode}
	}
	if err := json.Unmarshal(body, out); err != nil {
		return &ProviderError{Op: op, StatusCode: resp.StatusCode, Err: err}
	}
	return nil
}
