// Package rest implements service.Service against the todd REST backend.
package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"todd/internal/logging"
	"todd/internal/service"
)

const (
	// DefaultTimeout is the timeout for a single API call.
	DefaultTimeout = 15 * time.Second

	// maxBodySize bounds how much of a response body is read.
	maxBodySize = 4 << 20

	requestIDHeader = "X-Request-ID"
)

// Client implements service.Service over HTTP.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	timeout    time.Duration
	logger     *slog.Logger
}

// Options allows overriding the client's dependencies.
type Options struct {
	HTTPClient *http.Client
	Timeout    time.Duration
	Logger     *slog.Logger
}

// New creates a client for the backend at baseURL.
func New(baseURL string, opts Options) (*Client, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, fmt.Errorf("api url is empty")
	}
	parsed, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse api url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("api url must be http or https: %s", baseURL)
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	return &Client{baseURL: parsed, httpClient: httpClient, timeout: timeout, logger: logger}, nil
}

// Login implements service.Service.
func (c *Client) Login(ctx context.Context, creds service.Credentials) (string, error) {
	const op = "login"
	body, err := c.call(ctx, op, http.MethodPost, "/login", "", loginRequest{Email: creds.Email, Password: creds.Password})
	if err != nil {
		// Unknown users and bad passwords come back as 400/404 from some deployments.
		return "", reclassify(err, service.KindAuth, service.KindValidation, service.KindConflict)
	}
	var resp loginResponse
	if err := json.Unmarshal(unwrap(body, "data"), &resp); err != nil {
		return "", malformed(op, err)
	}
	if strings.TrimSpace(resp.Token) == "" {
		return "", malformed(op, errors.New("empty token"))
	}
	return resp.Token, nil
}

// Register implements service.Service.
func (c *Client) Register(ctx context.Context, reg service.Registration) (service.User, error) {
	const op = "register"
	body, err := c.call(ctx, op, http.MethodPost, "/register", "", registerRequest{
		Username: reg.Username,
		Email:    reg.Email,
		Password: reg.Password,
	})
	if err != nil {
		return service.User{}, err
	}
	var dto userDTO
	if err := json.Unmarshal(unwrap(body, "data", "user"), &dto); err != nil {
		return service.User{}, malformed(op, err)
	}
	return dto.toUser(), nil
}

// CurrentUser implements service.Service.
func (c *Client) CurrentUser(ctx context.Context, token string) (service.User, error) {
	const op = "current user"
	body, err := c.call(ctx, op, http.MethodGet, "/current-user", token, nil)
	if err != nil {
		return service.User{}, err
	}
	var dto userDTO
	if err := json.Unmarshal(unwrap(body, "data", "user"), &dto); err != nil {
		return service.User{}, malformed(op, err)
	}
	return dto.toUser(), nil
}

// ListTasks implements service.Service.
func (c *Client) ListTasks(ctx context.Context, token string) ([]service.Task, error) {
	const op = "list"
	body, err := c.call(ctx, op, http.MethodGet, "/todos", token, nil)
	if err != nil {
		return nil, reclassify(err, service.KindTransport, service.KindConflict)
	}
	var dtos []todoDTO
	if err := json.Unmarshal(unwrapList(body), &dtos); err != nil {
		return nil, malformed(op, err)
	}
	result := make([]service.Task, 0, len(dtos))
	for _, dto := range dtos {
		task, err := dto.toTask()
		if err != nil {
			return nil, malformed(op, err)
		}
		result = append(result, task)
	}
	return result, nil
}

// GetTask implements service.Service.
func (c *Client) GetTask(ctx context.Context, token, id string) (service.Task, error) {
	const op = "get"
	body, err := c.call(ctx, op, http.MethodGet, taskPath(id), token, nil)
	if err != nil {
		return service.Task{}, err
	}
	return decodeTask(op, body)
}

// CreateTask implements service.Service.
func (c *Client) CreateTask(ctx context.Context, token string, draft service.Draft) (service.Task, error) {
	const op = "create"
	body, err := c.call(ctx, op, http.MethodPost, "/todos", token, newCreateRequest(draft))
	if err != nil {
		return service.Task{}, err
	}
	return decodeTask(op, body)
}

// UpdateTask implements service.Service.
func (c *Client) UpdateTask(ctx context.Context, token, id string, update service.Update) (service.Task, error) {
	const op = "update"
	body, err := c.call(ctx, op, http.MethodPut, taskPath(id), token, newUpdateRequest(update))
	if err != nil {
		return service.Task{}, err
	}
	return decodeTask(op, body)
}

// DeleteTask implements service.Service.
func (c *Client) DeleteTask(ctx context.Context, token, id string) error {
	_, err := c.call(ctx, "delete", http.MethodDelete, taskPath(id), token, nil)
	return err
}

func taskPath(id string) string {
	return "/todos/" + url.PathEscape(id)
}

func decodeTask(op string, body []byte) (service.Task, error) {
	var dto todoDTO
	if err := json.Unmarshal(unwrap(body, "data"), &dto); err != nil {
		return service.Task{}, malformed(op, err)
	}
	task, err := dto.toTask()
	if err != nil {
		return service.Task{}, malformed(op, err)
	}
	return task, nil
}

// unwrapList returns the array inside {"data": [...]}, or body itself.
func unwrapList(body []byte) []byte {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		return trimmed
	}
	var env map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &env); err == nil {
		if inner, ok := env["data"]; ok {
			return inner
		}
	}
	return trimmed
}

// call performs one request with its own timeout and returns the response body
// of a 2xx response. Every failure is returned as a *service.Error.
func (c *Client) call(ctx context.Context, op, method, path, token string, payload any) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var reqBody io.Reader
	if payload != nil {
		buf := &bytes.Buffer{}
		if err := json.NewEncoder(buf).Encode(payload); err != nil {
			return nil, service.Transport(op, err)
		}
		reqBody = buf
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL.String()+path, reqBody)
	if err != nil {
		return nil, service.Transport(op, err)
	}
	requestID := uuid.New().String()
	req.Header.Set("Accept", "application/json")
	req.Header.Set(requestIDHeader, requestID)
	if reqBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		// The backend expects the bare token, without a scheme.
		req.Header.Set("Authorization", token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Debug("request failed", slog.String("op", op), slog.String("request_id", requestID), logging.Err(err))
		return nil, service.Transport(op, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, service.Transport(op, err)
	}
	c.logger.Debug("request",
		slog.String("op", op),
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status", resp.StatusCode),
		slog.String("request_id", requestID),
		slog.Duration("elapsed", time.Since(start)),
	)

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return body, nil
	}
	return nil, statusError(op, resp.StatusCode, body)
}

// statusError maps a non-2xx response onto the error taxonomy.
func statusError(op string, status int, body []byte) error {
	var er errorResponse
	_ = json.Unmarshal(body, &er)
	msg := strings.TrimSpace(er.text())

	e := &service.Error{Op: op, Status: status, Message: msg}
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		e.Kind = service.KindAuth
		if msg == "" {
			e.Message = "token expired or revoked (run: todd login)"
		}
	case status == http.StatusNotFound || status == http.StatusConflict || status == http.StatusGone:
		e.Kind = service.KindConflict
		if msg == "" {
			e.Message = "not found"
		}
	case status == http.StatusBadRequest || status == http.StatusUnprocessableEntity:
		e.Kind = service.KindValidation
		if msg == "" {
			e.Message = "rejected by server"
		}
	default:
		e.Kind = service.KindTransport
		if msg == "" {
			e.Message = fmt.Sprintf("unexpected status %d", status)
		}
	}
	return e
}

// reclassify changes the kind of err to kind if it currently is one of from.
func reclassify(err error, kind service.Kind, from ...service.Kind) error {
	var e *service.Error
	if !errors.As(err, &e) {
		return err
	}
	for _, k := range from {
		if e.Kind == k {
			out := *e
			out.Kind = kind
			return &out
		}
	}
	return err
}

func malformed(op string, err error) error {
	return &service.Error{Op: op, Kind: service.KindTransport, Message: "malformed response", Err: err}
}
