// Package billing talks to the hosted billing functions and keeps the local
// copy of each user's subscription.
package billing

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"
)

var (
	ErrUnauthorized      = errors.New("billing API key rejected")
	ErrFunctionNotFound  = errors.New("billing function not found")
	ErrFunctionsDisabled = errors.New("billing functions URL is not configured")
)

// FunctionError is a non-retryable error answer from a function
type FunctionError struct {
	Name   string
	Status int
	Body   string
}

func (e *FunctionError) Error() string {
	return fmt.Sprintf("billing function %s failed (status %d): %s", e.Name, e.Status, e.Body)
}

type Client struct {
	baseURL    string
	apiKey     string
	client     *http.Client
	maxRetries uint64
	interval   time.Duration
	logger     *logrus.Logger
}

func NewClient(baseURL, apiKey string, maxRetries int, logger *logrus.Logger) *Client {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	if maxRetries < 0 {
		maxRetries = 0
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		client:     &http.Client{Timeout: 10 * time.Second},
		maxRetries: uint64(maxRetries),
		interval:   500 * time.Millisecond,
		logger:     logger,
	}
}

// Invoke calls the named function with body as JSON and decodes the answer
// into out. Transport errors and 5xx answers are retried with exponential
// backoff. Anything else fails at once.
func (c *Client) Invoke(ctx context.Context, name string, body, out interface{}) error {
	if c.baseURL == "" {
		return ErrFunctionsDisabled
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal %s payload: %w", name, err)
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = c.interval
	retry := backoff.WithContext(backoff.WithMaxRetries(policy, c.maxRetries), ctx)

	var answer []byte
	op := func() error {
		answer, err = c.call(ctx, name, payload)
		return err
	}
	notify := func(err error, wait time.Duration) {
		c.logger.WithError(err).WithFields(logrus.Fields{
			"function": name,
			"wait":     wait.String(),
		}).Warn("Billing function call failed, retrying")
	}
	if err := backoff.RetryNotify(op, retry, notify); err != nil {
		return err
	}

	if out == nil || len(answer) == 0 {
		return nil
	}
	if err := json.Unmarshal(answer, out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", name, err)
	}
	return nil
}

func (c *Client) call(ctx context.Context, name string, payload []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/"+name, bytes.NewReader(payload))
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("failed to build request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, backoff.Permanent(ctx.Err())
		}
		return nil, fmt.Errorf("failed to call billing function %s: %w", name, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s response: %w", name, err)
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return body, nil
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		return nil, backoff.Permanent(ErrUnauthorized)
	case resp.StatusCode == http.StatusNotFound:
		return nil, backoff.Permanent(fmt.Errorf("%w: %s", ErrFunctionNotFound, name))
	case resp.StatusCode >= 500:
		return nil, &FunctionError{Name: name, Status: resp.StatusCode, Body: string(body)}
	default:
		return nil, backoff.Permanent(&FunctionError{Name: name, Status: resp.StatusCode, Body: string(body)})
	}
}
