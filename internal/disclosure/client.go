package disclosure

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sozercan/disclosure-ui/apimodels"
)

const (
	OpListCategories = "list_categories"
	OpListQuestions  = "list_questions"
	OpGenerateAnswer = "generate_answer"
	OpHealth         = "health"

	// errorBodyLimit caps how much of a failed response body ends up in errors.
	errorBodyLimit = 512
)

// Client talks to the disclosure answering backend over REST.
type Client struct {
	baseURL    string
	httpClient *http.Client
	log        *slog.Logger
	metrics    *Metrics
}

type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.log = l }
}

func WithMetrics(m *Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

func NewClient(baseURL string, timeout time.Duration, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("disclosure API URL cannot be empty")
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid disclosure API URL %q: %w", baseURL, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid disclosure API URL %q: scheme and host are required", baseURL)
	}

	c := &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		log:        slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.log = c.log.With("component", "disclosure_client")
	c.log.Info("Creating disclosure client", "endpoint", c.baseURL)
	return c, nil
}

// BaseURL returns the backend address the client was built with.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// ListCategories fetches the whole catalog. Categories keep the order in
// which the backend lists them.
func (c *Client) ListCategories(ctx context.Context) ([]apimodels.Category, error) {
	var categories []apimodels.Category
	err := c.do(ctx, OpListCategories, http.MethodGet, "/questions", nil, func(r io.Reader) error {
		var err error
		categories, err = decodeCatalog(r)
		return err
	})
	if err != nil {
		return nil, err
	}
	return categories, nil
}

// categoryDetail accepts both "name" and the older "category" key.
type categoryDetail struct {
	Name      string                `json:"name"`
	Category  string                `json:"category"`
	Questions *[]apimodels.Question `json:"questions"`
	Count     *int                  `json:"count"`
}

// ListQuestions fetches a single category by name.
func (c *Client) ListQuestions(ctx context.Context, category string) (*apimodels.Category, error) {
	var detail categoryDetail
	path := "/questions/" + url.PathEscape(category)
	err := c.do(ctx, OpListQuestions, http.MethodGet, path, nil, func(r io.Reader) error {
		if err := json.NewDecoder(r).Decode(&detail); err != nil {
			return err
		}
		if detail.Questions == nil {
			return fmt.Errorf("missing questions field")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	name := detail.Name
	if name == "" {
		name = detail.Category
	}
	if name == "" {
		name = category
	}
	result := apimodels.NewCategory(name, *detail.Questions)
	if detail.Count != nil && *detail.Count != result.Count {
		c.log.Warn("backend category count disagrees with question list",
			"category", name, "reported", *detail.Count, "actual", result.Count)
	}
	return &result, nil
}

// GenerateAnswer asks the backend to answer req. Omitted optional fields are
// sent with their defaults.
func (c *Client) GenerateAnswer(ctx context.Context, req apimodels.QuestionRequest) (*apimodels.QuestionResponse, error) {
	payload := req.WithDefaults()

	var resp apimodels.QuestionResponse
	err := c.do(ctx, OpGenerateAnswer, http.MethodPost, "/answer", payload, func(r io.Reader) error {
		return json.NewDecoder(r).Decode(&resp)
	})
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// Health reports the backend's own health view.
func (c *Client) Health(ctx context.Context) (*apimodels.HealthResponse, error) {
	var resp apimodels.HealthResponse
	err := c.do(ctx, OpHealth, http.MethodGet, "/health", nil, func(r io.Reader) error {
		return json.NewDecoder(r).Decode(&resp)
	})
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) do(ctx context.Context, op, method, path string, body any, decode func(io.Reader) error) (err error) {
	target := c.baseURL + path
	start := time.Now()
	defer func() {
		outcome := outcomeSuccess
		switch {
		case IsDecodeError(err):
			outcome = outcomeDecodeError
		case err != nil:
			outcome = outcomeNetworkError
		}
		c.metrics.observe(op, outcome, time.Since(start))

		if err != nil {
			c.log.Error("Backend request failed", "operation", op, "method", method, "target", target, "error", err)
		}
	}()

	var reqBody io.Reader
	if body != nil {
		data, merr := json.Marshal(body)
		if merr != nil {
			return fmt.Errorf("%s: failed to marshal request: %w", op, merr)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reqBody)
	if err != nil {
		return &NetworkError{Op: op, Target: target, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	c.log.Debug("Sending backend request", "operation", op, "method", method, "target", target)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &NetworkError{Op: op, Target: target, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyLimit))
		return &NetworkError{
			Op:         op,
			Target:     target,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("unexpected response: %s", strings.TrimSpace(string(snippet))),
		}
	}

	if err := decode(resp.Body); err != nil {
		return &DecodeError{Op: op, Target: target, Err: err}
	}

	c.log.Debug("Backend request completed", "operation", op, "duration", time.Since(start))
	return nil
}
