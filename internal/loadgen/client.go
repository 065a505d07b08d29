package loadgen

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
	"time"

	"github.com/okian/doppel/internal/adapters/repository"
	"github.com/okian/doppel/internal/domain/model"
	"github.com/okian/doppel/internal/domain/scoring"
)

// Errors reported by Client.
var (
	ErrBackpressure = errors.New("server applied backpressure")
	ErrStatus       = errors.New("unexpected status")
)

// Client talks to the doppel HTTP API.
type Client struct {
	baseURL string
	client  *http.Client
}

// NewClient creates a client for baseURL with the given request timeout.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

// wireComparison mirrors the API request body.
type wireComparison struct {
	ID        string           `json:"id,omitempty"`
	First     *model.Detection `json:"first"`
	Second    *model.Detection `json:"second"`
	Threshold *float64         `json:"threshold,omitempty"`
}

// Ack is the response to an asynchronous submit.
type Ack struct {
	ID        string `json:"id"`
	Status    string `json:"status"`
	Duplicate bool   `json:"duplicate"`
}

// Health checks that the service answers on /healthz.
func (c *Client) Health(ctx context.Context) error {
	resp, err := c.do(ctx, http.MethodGet, "/healthz", nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: healthz returned %d", ErrStatus, resp.StatusCode)
	}
	return nil
}

// Compare posts req to /compare and returns the verdict.
func (c *Client) Compare(ctx context.Context, req model.Comparison) (scoring.Result, error) { //nolint:gocritic // hugeParam: request value
	var res scoring.Result
	err := c.postJSON(ctx, "/compare", toWire(req), &res, http.StatusOK)
	return res, err
}

// Submit posts req to /comparisons.
func (c *Client) Submit(ctx context.Context, req model.Comparison) (Ack, error) { //nolint:gocritic // hugeParam: request value
	var ack Ack
	err := c.postJSON(ctx, "/comparisons", toWire(req), &ack, http.StatusAccepted, http.StatusOK)
	return ack, err
}

// Result fetches the stored record for id.
func (c *Client) Result(ctx context.Context, id string) (repository.Record, error) {
	var rec repository.Record
	resp, err := c.do(ctx, http.MethodGet, "/comparisons/"+url.PathEscape(id), nil)
	if err != nil {
		return rec, err
	}
	if err := decode(resp, &rec, http.StatusOK); err != nil {
		return rec, err
	}
	return rec, nil
}

func toWire(req model.Comparison) wireComparison { //nolint:gocritic // hugeParam: request value
	return wireComparison{ID: req.ID, First: req.First, Second: req.Second, Threshold: req.Threshold}
}

func (c *Client) postJSON(ctx context.Context, path string, body, out any, want ...int) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request body: %w", err)
	}
	resp, err := c.do(ctx, http.MethodPost, path, data)
	if err != nil {
		return err
	}
	return decode(resp, out, want...)
}

func (c *Client) do(ctx context.Context, method, path string, body []byte) (*http.Response, error) {
	var r io.Reader
	if body != nil {
		r = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, r)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	return resp, nil
}

// decode closes resp and unmarshals its body into out when the status is one of want.
func decode(resp *http.Response, out any, want ...int) error {
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}
	for _, w := range want {
		if resp.StatusCode == w {
			if err := json.Unmarshal(body, out); err != nil {
				return fmt.Errorf("failed to decode response: %w", err)
			}
			return nil
		}
	}
	if resp.StatusCode == http.StatusTooManyRequests {
		return ErrBackpressure
	}
	return fmt.Errorf("%w %d: %s", ErrStatus, resp.StatusCode, strings.TrimSpace(string(body)))
}
