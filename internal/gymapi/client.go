package gymapi

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

	"github.com/tidwall/gjson"

	"github.com/five82/gymsync/internal/livesync"
)

// Source defines the reads the sync controllers need from the backend.
// It is implemented by *Client and can be faked in tests.
type Source interface {
	FetchCustomer(ctx context.Context, id string) (Customer, error)
	ListCustomers(ctx context.Context, query CustomerQuery) (CustomerPage, error)
	FetchPayments(ctx context.Context, customerID string) ([]Payment, error)
}

// Ensure Client implements Source at compile time.
var _ Source = (*Client)(nil)

// Client talks to the gym management HTTP API.
type Client struct {
	baseURL   *url.URL
	http      *http.Client
	userAgent string
}

const (
	defaultAPIBase   = "127.0.0.1:8080"
	defaultUserAgent = "gymsync/0.1"
	requestTimeout   = 10 * time.Second
	maxErrorBody     = 64 << 10
)

// NewClient builds a Client for the apiBase host:port or URL.
func NewClient(apiBase string) (*Client, error) {
	base, err := parseBaseURL(apiBase)
	if err != nil {
		return nil, err
	}
	return &Client{
		baseURL: base,
		http: &http.Client{
			Timeout: requestTimeout,
		},
		userAgent: defaultUserAgent,
	}, nil
}

// BaseURL returns the normalized API root.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// EndpointURL resolves path against the API root, e.g. the event stream path.
func (c *Client) EndpointURL(path string) string {
	return c.baseURL.ResolveReference(&url.URL{Path: path}).String()
}

// FetchCustomer retrieves one customer with their current contract.
func (c *Client) FetchCustomer(ctx context.Context, id string) (Customer, error) {
	if c == nil {
		return Customer{}, fmt.Errorf("client is nil")
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return Customer{}, fmt.Errorf("customer id required")
	}
	var payload Customer
	if err := c.do(ctx, http.MethodGet, "/api/customers/"+id, &payload); err != nil {
		return Customer{}, err
	}
	return payload, nil
}

// CustomerQuery configures /api/customers requests.
type CustomerQuery struct {
	Page     int
	PageSize int
	Status   string
	Search   string
	Branch   string
}

// ListCustomers retrieves one page of the customer directory.
func (c *Client) ListCustomers(ctx context.Context, query CustomerQuery) (CustomerPage, error) {
	if c == nil {
		return CustomerPage{}, fmt.Errorf("client is nil")
	}
	values := url.Values{}
	if query.Page > 0 {
		values.Set("page", strconv.Itoa(query.Page))
	}
	if query.PageSize > 0 {
		values.Set("page_size", strconv.Itoa(query.PageSize))
	}
	if status := strings.TrimSpace(query.Status); status != "" {
		values.Set("status", status)
	}
	if search := strings.TrimSpace(query.Search); search != "" {
		values.Set("search", search)
	}
	if branch := strings.TrimSpace(query.Branch); branch != "" {
		values.Set("branch", branch)
	}
	rel := &url.URL{Path: "/api/customers", RawQuery: values.Encode()}
	var payload CustomerPage
	if err := c.doURL(ctx, http.MethodGet, rel, &payload); err != nil {
		return CustomerPage{}, err
	}
	return payload, nil
}

// FetchPayments retrieves a customer's payment history, newest first.
func (c *Client) FetchPayments(ctx context.Context, customerID string) ([]Payment, error) {
	if c == nil {
		return nil, fmt.Errorf("client is nil")
	}
	customerID = strings.TrimSpace(customerID)
	if customerID == "" {
		return nil, fmt.Errorf("customer id required")
	}
	var payload PaymentListResponse
	if err := c.do(ctx, http.MethodGet, "/api/customers/"+customerID+"/payments", &payload); err != nil {
		return nil, err
	}
	return payload.Items, nil
}

func (c *Client) do(ctx context.Context, method, path string, dest any) error {
	rel := &url.URL{Path: path}
	return c.doURL(ctx, method, rel, dest)
}

func (c *Client) doURL(ctx context.Context, method string, rel *url.URL, dest any) error {
	reqURL := c.baseURL.ResolveReference(rel)
	req, err := http.NewRequestWithContext(ctx, method, reqURL.String(), nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if id := livesync.RequestIDFrom(ctx); id != "" {
		req.Header.Set("X-Request-ID", id)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return newAPIError(rel.Path, resp.StatusCode, body)
	}
	if dest == nil {
		return nil
	}
	decoder := json.NewDecoder(resp.Body)
	if err := decoder.Decode(dest); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func parseBaseURL(apiBase string) (*url.URL, error) {
	trimmed := strings.TrimSpace(apiBase)
	if trimmed == "" {
		trimmed = defaultAPIBase
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "http://" + trimmed
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("parse api_base %q: %w", apiBase, err)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("parse api_base %q: missing host", apiBase)
	}
	u.Path = ""
	u.RawQuery = ""
	u.Fragment = ""
	return u, nil
}

// APIError is returned for HTTP error statuses.
type APIError struct {
	Path    string
	Status  int
	Message string
}

func newAPIError(path string, status int, body []byte) *APIError {
	e := &APIError{Path: path, Status: status}
	if gjson.ValidBytes(body) {
		for _, field := range []string{"message", "error", "error.message"} {
			if res := gjson.GetBytes(body, field); res.Type == gjson.String && res.String() != "" {
				e.Message = res.String()
				break
			}
		}
	}
	return e
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api %s returned status %d", e.Path, e.Status)
	}
	return fmt.Sprintf("api %s returned status %d: %s", e.Path, e.Status, e.Message)
}

// UserMessage returns the server's explanation, falling back to the HTTP
// status text.
func (e *APIError) UserMessage() string {
	if e.Message != "" {
		return e.Message
	}
	if text := http.StatusText(e.Status); text != "" {
		return fmt.Sprintf("%s (%d)", text, e.Status)
	}
	return fmt.Sprintf("request failed with status %d", e.Status)
}

// NotFound reports whether the resource does not exist.
func (e *APIError) NotFound() bool {
	return e.Status == http.StatusNotFound
}
