package client

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// Record mirrors the API's record payload.
type Record struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"createdAt"`
}

type Health struct {
	Status    string `json:"status"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

type messageBody struct {
	Message string `json:"message"`
}

type errorBody struct {
	Error string `json:"error"`
}

// APIError is a non-2xx answer from the board API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("client: unexpected status %d", e.StatusCode)
	}
	return fmt.Sprintf("client: status %d: %s", e.StatusCode, e.Message)
}

// IsNotFound reports whether err is a 404 from the API.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == 404
}

// Client talks to the board API over HTTP.
type Client struct {
	r *resty.Client
}

func New(baseURL string, timeout time.Duration) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, errors.New("client: base URL must not be empty")
	}
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, fmt.Errorf("client: invalid base URL %q: %w", baseURL, err)
	}
	r := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")
	return &Client{r: r}, nil
}

func (c *Client) Health(ctx context.Context) (Health, error) {
	var out Health
	if err := c.do(ctx, "GET", "/health", nil, &out); err != nil {
		return Health{}, err
	}
	return out, nil
}

// Probe calls the diagnostic endpoint and returns its message.
func (c *Client) Probe(ctx context.Context) (string, error) {
	var out messageBody
	if err := c.do(ctx, "GET", "/api/message", nil, &out); err != nil {
		return "", err
	}
	return out.Message, nil
}

func (c *Client) List(ctx context.Context) ([]Record, error) {
	out := make([]Record, 0)
	if err := c.do(ctx, "GET", "/api/data", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Create(ctx context.Context, name, message string) (Record, error) {
	var out Record
	body := map[string]string{"name": name, "message": message}
	if err := c.do(ctx, "POST", "/api/data", body, &out); err != nil {
		return Record{}, err
	}
	return out, nil
}

func (c *Client) Get(ctx context.Context, id string) (Record, error) {
	var out Record
	if err := c.do(ctx, "GET", "/api/data/"+url.PathEscape(id), nil, &out); err != nil {
		return Record{}, err
	}
	return out, nil
}

func (c *Client) Delete(ctx context.Context, id string) error {
	var out messageBody
	return c.do(ctx, "DELETE", "/api/data/"+url.PathEscape(id), nil, &out)
}

func (c *Client) do(ctx context.Context, method, path string, body, result any) error {
	var apiErr errorBody
	req := c.r.R().
		SetContext(ctx).
		SetResult(result).
		SetError(&apiErr)
	if body != nil {
		req.SetHeader("Content-Type", "application/json").SetBody(body)
	}

	resp, err := req.Execute(method, path)
	if err != nil {
		return fmt.Errorf("client: %s %s: %w", method, path, err)
	}
	if resp.IsError() {
		return &APIError{StatusCode: resp.StatusCode(), Message: apiErr.Error}
	}
	return nil
}
