package client

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

	"coachgate/internal/gate"
)

const defaultTimeout = 10 * time.Second

// ErrMalformedResponse is returned when the server answers with a body that
// does not have the expected shape.
var ErrMalformedResponse = errors.New("malformed response")

// HTTPError is a non-2xx answer from the API.
type HTTPError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *HTTPError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("api: %d %s: %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("api: %d: %s", e.StatusCode, e.Message)
}

// User is the account returned by the API.
type User struct {
	ID     string   `json:"id"`
	Email  string   `json:"email"`
	Name   string   `json:"name"`
	Roles  []string `json:"roles"`
	Active bool     `json:"active"`
}

// Session converts u into the session the gate decides for.
func (u *User) Session() *gate.Session {
	return &gate.Session{UserID: u.ID, Email: u.Email, Name: u.Name, Roles: u.Roles}
}

// Workout is a workout returned by the API.
type Workout struct {
	ID          string    `json:"id"`
	OwnerID     string    `json:"owner_id"`
	CreatedByID string    `json:"created_by_id"`
	Name        string    `json:"name"`
	Notes       string    `json:"notes,omitempty"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithToken sets the bearer access token.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// Client talks to the coachgate HTTP API. It implements gate.Counter.
type Client struct {
	baseURL string
	http    *http.Client

	mu    sync.RWMutex
	token string
}

var _ gate.Counter = (*Client)(nil)

// New creates a client for the API served at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetToken replaces the bearer access token.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

// Token returns the current bearer access token.
func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

type loginResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	User         *User  `json:"user"`
}

// Login authenticates and keeps the access token for later calls.
func (c *Client) Login(ctx context.Context, email, password string) (*User, error) {
	var resp loginResponse
	body := map[string]string{"email": email, "password": password}
	if err := c.do(ctx, http.MethodPost, "/api/auth/login", body, &resp); err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	if resp.AccessToken == "" || resp.User == nil {
		return nil, fmt.Errorf("login: %w: missing token or user", ErrMalformedResponse)
	}
	c.SetToken(resp.AccessToken)
	return resp.User, nil
}

// Me returns the authenticated user.
func (c *Client) Me(ctx context.Context) (*User, error) {
	var u User
	if err := c.do(ctx, http.MethodGet, "/api/me", nil, &u); err != nil {
		return nil, fmt.Errorf("me: %w", err)
	}
	return &u, nil
}

type countResponse struct {
	Count *json.Number `json:"count"`
}

// CountWorkouts returns the number of active workouts userID created for
// themself. A missing or non-integer count is ErrMalformedResponse.
func (c *Client) CountWorkouts(ctx context.Context, userID string) (int, error) {
	q := url.Values{}
	q.Set("count", "user")
	q.Set("userId", userID)

	var resp countResponse
	if err := c.do(ctx, http.MethodGet, "/api/workout?"+q.Encode(), nil, &resp); err != nil {
		return 0, fmt.Errorf("count workouts: %w", err)
	}
	if resp.Count == nil {
		return 0, fmt.Errorf("count workouts: %w: missing count", ErrMalformedResponse)
	}
	n, err := resp.Count.Int64()
	if err != nil || n < 0 {
		return 0, fmt.Errorf("count workouts: %w: count %q", ErrMalformedResponse, resp.Count.String())
	}
	return int(n), nil
}

// Limit returns the server-side creation decision for the caller.
func (c *Client) Limit(ctx context.Context) (gate.Decision, error) {
	var d gate.Decision
	if err := c.do(ctx, http.MethodGet, "/api/workout/limit", nil, &d); err != nil {
		return gate.Decision{}, fmt.Errorf("workout limit: %w", err)
	}
	return d, nil
}

// CreateWorkout creates a workout owned by the caller.
func (c *Client) CreateWorkout(ctx context.Context, name, notes string) (*Workout, error) {
	var w Workout
	body := map[string]string{"name": name, "notes": notes}
	if err := c.do(ctx, http.MethodPost, "/api/workouts", body, &w); err != nil {
		return nil, fmt.Errorf("create workout: %w", err)
	}
	return &w, nil
}

// ListWorkouts returns the caller's workouts, optionally filtered by status.
func (c *Client) ListWorkouts(ctx context.Context, status string) ([]Workout, error) {
	path := "/api/workouts"
	if status != "" {
		path += "?status=" + url.QueryEscape(status)
	}
	var ws []Workout
	if err := c.do(ctx, http.MethodGet, path, nil, &ws); err != nil {
		return nil, fmt.Errorf("list workouts: %w", err)
	}
	return ws, nil
}

type errorBody struct {
	Error   string          `json:"error"`
	Code    string          `json:"code"`
	Message json.RawMessage `json:"message"`
}

func (c *Client) do(ctx context.Context, method, path string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp.StatusCode, raw)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return nil
}

// decodeError understands both ErrorResponse bodies and echo's
// {"message": ...} wrapper around them.
func decodeError(status int, raw []byte) error {
	httpErr := &HTTPError{StatusCode: status, Message: http.StatusText(status)}

	var eb errorBody
	if err := json.Unmarshal(raw, &eb); err != nil {
		return httpErr
	}
	if eb.Code != "" || eb.Error != "" {
		httpErr.Code, httpErr.Message = eb.Code, eb.Error
		return httpErr
	}
	if len(eb.Message) > 0 {
		var inner errorBody
		if err := json.Unmarshal(eb.Message, &inner); err == nil && (inner.Code != "" || inner.Error != "") {
			httpErr.Code, httpErr.Message = inner.Code, inner.Error
			return httpErr
		}
		var msg string
		if err := json.Unmarshal(eb.Message, &msg); err == nil {
			httpErr.Message = msg
		}
	}
	return httpErr
}
