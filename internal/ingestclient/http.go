// Package ingestclient pushes commit history and seed records to a running
// ConnectHub server over its HTTP API.
package ingestclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	service "github.com/okian/connecthub/internal/app"
	"github.com/okian/connecthub/internal/domain/model"
)

// StatusError is a non-2xx answer from the server.
type StatusError struct {
	Status     int
	Code       string
	Message    string
	RetryAfter time.Duration
}

func (e *StatusError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("server answered %d", e.Status)
	}
	return fmt.Sprintf("server answered %d %s: %s", e.Status, e.Code, e.Message)
}

// Retryable reports whether the request may succeed if sent again later.
func (e *StatusError) Retryable() bool {
	return e.Status == http.StatusTooManyRequests || e.Status == http.StatusServiceUnavailable
}

// Client talks to one server.
type Client struct {
	baseURL string
	http    *http.Client
	token   string
}

// NewClient creates a client with the given request timeout.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// SetToken sets the bearer token sent on every request.
func (c *Client) SetToken(token string) { c.token = token }

// Health checks that the server answers GET /healthz.
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/healthz", nil, nil)
}

// Login exchanges credentials for a session token and keeps it for later
// requests. The token is empty when the server runs without authentication.
func (c *Client) Login(ctx context.Context, email, password string) (string, error) {
	var session service.Session
	body := map[string]string{"email": email, "password": password}
	if err := c.do(ctx, http.MethodPost, "/login", body, &session); err != nil {
		return "", err
	}
	c.token = session.Token
	return session.Token, nil
}

// ingestAnswer covers both the 202 body and the 429 backpressure body.
type ingestAnswer struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	service.IngestResult
}

// PostCommits sends one batch. On a backpressure answer the returned result
// still carries the counts the server reported for the part it took.
func (c *Client) PostCommits(ctx context.Context, commits []model.Commit) (service.IngestResult, error) {
	var ans ingestAnswer
	err := c.do(ctx, http.MethodPost, "/ingest", map[string]any{"commits": commits}, &ans)
	return ans.IngestResult, err
}

// PostEmployee creates or updates an employee.
func (c *Client) PostEmployee(ctx context.Context, in service.EmployeeInput) (model.Employee, error) {
	var out model.Employee
	err := c.do(ctx, http.MethodPost, "/employees", in, &out)
	return out, err
}

// PostProject creates or updates a project.
func (c *Client) PostProject(ctx context.Context, p model.Project) (model.Project, error) {
	var out model.Project
	err := c.do(ctx, http.MethodPost, "/projects", p, &out)
	return out, err
}

// do sends body as JSON and decodes the answer into out. Error answers are
// still decoded into out before the StatusError is returned.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader = http.NoBody
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	ok := resp.StatusCode >= 200 && resp.StatusCode < 300
	if out != nil && len(data) > 0 && isJSON(resp) {
		if err := json.Unmarshal(data, out); err != nil && ok {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	if ok {
		return nil
	}

	se := &StatusError{Status: resp.StatusCode, RetryAfter: retryAfter(resp.Header.Get("Retry-After"))}
	var eb struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	if isJSON(resp) && json.Unmarshal(data, &eb) == nil {
		se.Code, se.Message = eb.Code, eb.Message
	}
	return se
}

func isJSON(resp *http.Response) bool {
	return strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json")
}

func retryAfter(v string) time.Duration {
	secs, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || secs < 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}

// IsStatus reports whether err is a StatusError with the given status.
func IsStatus(err error, status int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Status == status
}
