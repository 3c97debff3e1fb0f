package subgraph

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// TransportError is any failure talking to the endpoint: network, HTTP status,
// malformed body or GraphQL errors.
type TransportError struct {
	Endpoint string
	Status   int
	GraphQL  bool
	Err      error
}

func (e *TransportError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("subgraph %s: status %d: %v", e.Endpoint, e.Status, e.Err)
	}
	return fmt.Sprintf("subgraph %s: %v", e.Endpoint, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Recorder observes every round trip.
type Recorder interface {
	ObserveRequest(endpoint string, duration time.Duration, err error)
}

// Client is a GraphQL-over-HTTP QueryService for one subgraph endpoint.
type Client struct {
	endpoint     string
	httpClient   *http.Client
	maxRetries   int
	retryBackoff time.Duration
	recorder     Recorder
	logger       *zap.Logger
}

// Option configures Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.httpClient = c }
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(cl *Client) {
		if d > 0 {
			cl.httpClient.Timeout = d
		}
	}
}

// WithRetry enables retries of transient failures. Zero disables them.
func WithRetry(maxRetries int, backoff time.Duration) Option {
	return func(cl *Client) {
		cl.maxRetries = maxRetries
		cl.retryBackoff = backoff
	}
}

func WithRecorder(r Recorder) Option {
	return func(cl *Client) { cl.recorder = r }
}

func WithLogger(l *zap.Logger) Option {
	return func(cl *Client) {
		if l != nil {
			cl.logger = l
		}
	}
}

// NewClient creates a client for endpoint.
func NewClient(endpoint string, opts ...Option) *Client {
	c := &Client{
		endpoint: endpoint,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 20,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		retryBackoff: 500 * time.Millisecond,
		logger:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Endpoint returns the URL the client posts to.
func (c *Client) Endpoint() string {
	return c.endpoint
}

type graphQLRequest struct {
	Query string `json:"query"`
}

type graphQLError struct {
	Message string `json:"message"`
}

type graphQLResponse struct {
	Data   map[string]json.RawMessage `json:"data"`
	Errors []graphQLError             `json:"errors"`
}

// Query sends the batch and returns the records of every request keyed by name.
// A single object where a list is expected is returned as a one-element list.
func (c *Client) Query(ctx context.Context, requests []Request) (map[string][]Record, error) {
	if len(requests) == 0 {
		return map[string][]Record{}, nil
	}
	query, err := BuildQuery(requests)
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var out map[string][]Record
	err = withRetry(ctx, c.maxRetries, c.retryBackoff, func(ctx context.Context) error {
		start := time.Now()
		var err error
		out, err = c.do(ctx, query, requests)
		if c.recorder != nil {
			c.recorder.ObserveRequest(c.endpoint, time.Since(start), err)
		}
		if err != nil {
			c.logger.Warn("subgraph request failed", zap.String("endpoint", c.endpoint), zap.Error(err))
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) do(ctx context.Context, query string, requests []Request) (map[string][]Record, error) {
	body, err := json.Marshal(graphQLRequest{Query: query})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, &TransportError{Endpoint: c.endpoint, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &TransportError{Endpoint: c.endpoint, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &TransportError{
			Endpoint: c.endpoint,
			Status:   resp.StatusCode,
			Err:      fmt.Errorf("unexpected response: %s", strings.TrimSpace(string(snippet))),
		}
	}

	var result graphQLResponse
	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	if err := dec.Decode(&result); err != nil {
		return nil, &TransportError{Endpoint: c.endpoint, Status: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
	}
	if len(result.Errors) > 0 {
		msgs := make([]string, 0, len(result.Errors))
		for _, e := range result.Errors {
			msgs = append(msgs, e.Message)
		}
		return nil, &TransportError{
			Endpoint: c.endpoint,
			Status:   resp.StatusCode,
			GraphQL:  true,
			Err:      fmt.Errorf("graphql errors: %s", strings.Join(msgs, "; ")),
		}
	}

	out := make(map[string][]Record, len(requests))
	for _, r := range requests {
		records, err := decodeRecords(result.Data[r.Name])
		if err != nil {
			return nil, &TransportError{Endpoint: c.endpoint, Status: resp.StatusCode, Err: fmt.Errorf("decode %s: %w", r.Name, err)}
		}
		out[r.Name] = records
	}
	return out, nil
}

func decodeRecords(raw json.RawMessage) ([]Record, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return []Record{}, nil
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()
	if trimmed[0] == '[' {
		var records []Record
		if err := dec.Decode(&records); err != nil {
			return nil, err
		}
		return records, nil
	}

	var single Record
	if err := dec.Decode(&single); err != nil {
		return nil, err
	}
	return []Record{single}, nil
}
