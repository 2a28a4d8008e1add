package auditClient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Layr-Labs/eigenx-storage-audit/pkg/persistence"
	"github.com/Layr-Labs/eigenx-storage-audit/pkg/types"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

var (
	// ErrNotFound is returned when the holder answers 404
	ErrNotFound = errors.New("not found on holder")

	// ErrRejected is returned for any other 4xx answer; those are never retried
	ErrRejected = errors.New("request rejected by holder")
)

// RetryConfig configures retry behavior
type RetryConfig struct {
	MaxAttempts     int
	InitialBackoff  time.Duration
	MaxBackoff      time.Duration
	BackoffMultiple float64
}

// DefaultRetryConfig provides default retry settings
var DefaultRetryConfig = RetryConfig{
	MaxAttempts:     5,
	InitialBackoff:  100 * time.Millisecond,
	MaxBackoff:      5 * time.Second,
	BackoffMultiple: 2.0,
}

// Client talks to a holder's audit endpoints
type Client struct {
	baseURL     string
	httpClient  *http.Client
	retryConfig RetryConfig
	logger      *zap.Logger
}

// NewClient creates a client for the holder at baseURL (e.g. http://localhost:8100)
func NewClient(baseURL string, logger *zap.Logger) (*Client, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("holder URL is required")
	}
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, fmt.Errorf("invalid holder URL: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		httpClient:  &http.Client{Timeout: 5 * time.Minute},
		retryConfig: DefaultRetryConfig,
		logger:      logger,
	}, nil
}

// WithRetryConfig replaces the retry settings
func (c *Client) WithRetryConfig(cfg RetryConfig) *Client {
	c.retryConfig = cfg
	return c
}

// SubmitCommitment hands the audit leaves of a shard to the holder
func (c *Client) SubmitCommitment(ctx context.Context, commitment *types.AuditCommitment) (*types.AuditCommitment, error) {
	var stored types.AuditCommitment
	if err := c.do(ctx, http.MethodPost, "/audit/commitments", nil, commitment, &stored); err != nil {
		return nil, err
	}
	return &stored, nil
}

// GetCommitment fetches the commitment the holder keeps for a shard
func (c *Client) GetCommitment(ctx context.Context, shardHash string) (*types.AuditCommitment, error) {
	var commitment types.AuditCommitment
	query := url.Values{"shardHash": {shardHash}}
	if err := c.do(ctx, http.MethodGet, "/audit/commitments", query, nil, &commitment); err != nil {
		return nil, err
	}
	return &commitment, nil
}

// DeleteCommitment drops a commitment and its history from the holder
func (c *Client) DeleteCommitment(ctx context.Context, shardHash string) error {
	query := url.Values{"shardHash": {shardHash}}
	return c.do(ctx, http.MethodDelete, "/audit/commitments", query, nil, nil)
}

// RequestProof sends a challenge and returns the holder's proof
func (c *Client) RequestProof(ctx context.Context, shardHash, challengeHex string) (*types.ProofResponse, error) {
	req := &types.ProveRequest{ShardHash: shardHash, Challenge: challengeHex}

	var resp types.ProofResponse
	if err := c.do(ctx, http.MethodPost, "/audit/prove", nil, req, &resp); err != nil {
		return nil, err
	}
	if resp.Proof == nil {
		return nil, fmt.Errorf("holder returned no proof for audit %s", resp.AuditID)
	}

	c.logger.Sugar().Debugw("Received proof", "audit_id", resp.AuditID, "shard_hash", shardHash)
	return &resp, nil
}

// AuditHistory lists the audits the holder answered for a shard
func (c *Client) AuditHistory(ctx context.Context, shardHash string) ([]*persistence.AuditRecord, error) {
	var records []*persistence.AuditRecord
	query := url.Values{"shardHash": {shardHash}}
	if err := c.do(ctx, http.MethodGet, "/audit/history", query, nil, &records); err != nil {
		return nil, err
	}
	return records, nil
}

// do sends one request with retries. Transport failures and 5xx answers are
// retried with backoff; 4xx answers fail immediately.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out interface{}) error {
	var data []byte
	if body != nil {
		var err error
		data, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
	}

	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	attempts := c.retryConfig.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	backoff := c.retryConfig.InitialBackoff
	for attempt := 0; attempt < attempts; attempt++ {
		retry, err := c.attempt(ctx, method, target, data, out)
		if err == nil {
			return nil
		}
		lastErr = err
		if !retry {
			return err
		}

		c.logger.Sugar().Debugw("Holder request failed",
			"method", method,
			"url", target,
			"attempt", attempt+1,
			"error", err)

		if attempt < attempts-1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
			backoff = time.Duration(float64(backoff) * c.retryConfig.BackoffMultiple)
			if backoff > c.retryConfig.MaxBackoff {
				backoff = c.retryConfig.MaxBackoff
			}
		}
	}

	return fmt.Errorf("%s %s failed after %d attempts: %w", method, path, attempts, lastErr)
}

func (c *Client) attempt(ctx context.Context, method, target string, data []byte, out interface{}) (bool, error) {
	var reqBody io.Reader
	if data != nil {
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reqBody)
	if err != nil {
		return false, fmt.Errorf("failed to build request: %w", err)
	}
	if data != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		return true, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		msg := readErrorMessage(resp.Body)
		switch {
		case resp.StatusCode == http.StatusNotFound:
			return false, errors.Wrap(ErrNotFound, msg)
		case resp.StatusCode < 500:
			return false, errors.Wrapf(ErrRejected, "status %d: %s", resp.StatusCode, msg)
		default:
			return true, fmt.Errorf("holder returned status %d: %s", resp.StatusCode, msg)
		}
	}

	if out == nil {
		return false, nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return false, fmt.Errorf("failed to decode response: %w", err)
	}
	return false, nil
}

func readErrorMessage(r io.Reader) string {
	raw, _ := io.ReadAll(io.LimitReader(r, 4096))

	var errResp types.ErrorResponse
	if err := json.Unmarshal(raw, &errResp); err == nil && errResp.Error != "" {
		return errResp.Error
	}
	return strings.TrimSpace(string(raw))
}
