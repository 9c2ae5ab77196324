package syncarbiter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/dotsetlabs/axion/httputil"
	"github.com/dotsetlabs/axion/identity"
	"github.com/dotsetlabs/axion/logging"
	"github.com/dotsetlabs/axion/resilience"
	"github.com/dotsetlabs/axion/utils"
)

// Config configures an HTTPRemoteClient.
type Config struct {
	BaseURL    string
	Token      string // falls back to the SERVICE_TOKEN environment variable
	CLIVersion string
	Timeout    time.Duration

	// MaxBodyBytes caps every response body read. Zero uses a 1MiB default.
	MaxBodyBytes int64

	Breaker resilience.Config
	Retry   resilience.RetryConfig
}

// HTTPRemoteClient is the concrete RemoteClient implementation against the
// cloud API of spec.md §6, grounded on sdk/go/client/client.go's
// typed-request pattern and generalized to this core's five opaque
// operations.
type HTTPRemoteClient struct {
	baseURL      string
	token        string
	cliVersion   string
	httpClient   *http.Client
	breaker      *resilience.CircuitBreaker
	retryConfig  resilience.RetryConfig
	maxBodyBytes int64
}

// NewHTTPRemoteClient builds a RemoteClient bound to cfg.BaseURL. Every call
// runs through a circuit breaker, so a flapping remote degrades to fast
// local failures instead of hanging every operation, and each attempt that
// makes it past the breaker gets its own bounded retry with exponential
// backoff for the transient failures a breaker alone wouldn't smooth over.
func NewHTTPRemoteClient(cfg Config) (*HTTPRemoteClient, error) {
	maxBodyBytes := httputil.ResolveMaxBodyBytes(cfg.MaxBodyBytes, 1<<20)

	httpClient, normalizedURL, err := httputil.NewClientWithBaseURL(
		httputil.ClientConfig{BaseURL: cfg.BaseURL, Timeout: cfg.Timeout, MaxBodyBytes: maxBodyBytes},
		httputil.ClientDefaults{
			Timeout:          resolveTimeout(cfg.Timeout),
			MaxBodyBytes:     maxBodyBytes,
			NormalizeBaseURL: true,
			RequireHTTPS:     false,
		},
	)
	if err != nil {
		return nil, fmt.Errorf("build remote client: %w", err)
	}

	token := strings.TrimSpace(cfg.Token)
	if token == "" {
		token = utils.GetEnvOptional("SERVICE_TOKEN")
	}

	retryConfig := cfg.Retry
	if retryConfig.MaxAttempts <= 0 {
		retryConfig = resilience.DefaultRetryConfig()
	}

	return &HTTPRemoteClient{
		baseURL:      normalizedURL,
		token:        token,
		cliVersion:   cfg.CLIVersion,
		httpClient:   httpClient,
		breaker:      resilience.New(cfg.Breaker), // New() fills in sensible defaults for zero fields
		retryConfig:  retryConfig,
		maxBodyBytes: maxBodyBytes,
	}, nil
}

func resolveTimeout(d time.Duration) time.Duration {
	if d <= 0 {
		return 30 * time.Second
	}
	return d
}

func (c *HTTPRemoteClient) request(ctx context.Context, method, path string, body, result interface{}) (err error) {
	start := time.Now()
	defer func() {
		logging.Default().LogServiceCall(ctx, "axion-cloud", method+" "+path, time.Since(start), err)
	}()

	var bodyBytes []byte
	if body != nil {
		data, marshalErr := json.Marshal(body)
		if marshalErr != nil {
			return fmt.Errorf("marshal request body: %w", marshalErr)
		}
		bodyBytes = data
	}

	return c.breaker.Execute(ctx, func() error {
		return resilience.Retry(ctx, c.retryConfig, func() error {
			var reader io.Reader
			if bodyBytes != nil {
				reader = bytes.NewReader(bodyBytes)
			}

			req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
			if err != nil {
				return backoff.Permanent(fmt.Errorf("build request: %w", err))
			}
			req.Header.Set("Content-Type", "application/json")
			if c.token != "" {
				req.Header.Set("Authorization", "Bearer "+c.token)
			}
			if header, err := identity.Metadata(c.cliVersion).Header(); err == nil {
				req.Header.Set("X-Axion-Metadata", header)
			}

			resp, err := c.httpClient.Do(req)
			if err != nil {
				return fmt.Errorf("do request: %w", err)
			}
			defer resp.Body.Close()

			if resp.StatusCode >= 400 {
				respBody, readErr := httputil.ReadAllStrict(resp.Body, c.maxBodyBytes)
				if readErr != nil {
					respBody = []byte(readErr.Error())
				}
				apiErr := fmt.Errorf("remote API error %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
				if resp.StatusCode < 500 {
					// 4xx responses won't change on retry; only 5xx and
					// transport-level failures are worth another attempt.
					return backoff.Permanent(apiErr)
				}
				return apiErr
			}
			if resp.StatusCode == http.StatusNoContent || result == nil {
				return nil
			}

			respBody, err := httputil.ReadAllStrict(resp.Body, c.maxBodyBytes)
			if err != nil {
				return backoff.Permanent(fmt.Errorf("read response body: %w", err))
			}
			if err := json.Unmarshal(respBody, result); err != nil {
				return backoff.Permanent(fmt.Errorf("decode response: %w", err))
			}
			return nil
		})
	})
}

type manifestEnvelopeWire struct {
	EncryptedData  string    `json:"encryptedData"`
	Version        int64     `json:"version"`
	UpdatedAt      time.Time `json:"updatedAt"`
	UpdatedBy      string    `json:"updatedBy"`
	KeyFingerprint string    `json:"keyFingerprint,omitempty"`
}

type fetchManifestResponse struct {
	Manifest manifestEnvelopeWire `json:"manifest"`
}

// FetchManifest implements GET /projects/{id}/manifest.
func (c *HTTPRemoteClient) FetchManifest(ctx context.Context, projectID string) (*CloudRecord, error) {
	var resp fetchManifestResponse
	if err := c.request(ctx, http.MethodGet, "/projects/"+projectID+"/manifest", nil, &resp); err != nil {
		return nil, err
	}
	return &CloudRecord{
		EncryptedData:  resp.Manifest.EncryptedData,
		Version:        resp.Manifest.Version,
		UpdatedAt:      resp.Manifest.UpdatedAt,
		UpdatedBy:      resp.Manifest.UpdatedBy,
		KeyFingerprint: resp.Manifest.KeyFingerprint,
	}, nil
}

type uploadManifestRequest struct {
	ProjectID      string `json:"projectId"`
	EncryptedData  string `json:"encryptedData"`
	KeyFingerprint string `json:"keyFingerprint"`
}

// UploadManifest implements PUT /projects/{id}/manifest.
func (c *HTTPRemoteClient) UploadManifest(ctx context.Context, projectID string, rec CloudRecord) error {
	reqBody := uploadManifestRequest{
		ProjectID:      projectID,
		EncryptedData:  rec.EncryptedData,
		KeyFingerprint: rec.KeyFingerprint,
	}
	return c.request(ctx, http.MethodPut, "/projects/"+projectID+"/manifest", reqBody, nil)
}

type pulseResponse struct {
	Token string `json:"token"`
}

// Heartbeat implements POST /projects/{id}/pulse.
func (c *HTTPRemoteClient) Heartbeat(ctx context.Context, projectID string) error {
	var resp pulseResponse
	return c.request(ctx, http.MethodPost, "/projects/"+projectID+"/pulse", nil, &resp)
}

type historyEntryWire struct {
	Version        int64     `json:"version"`
	UpdatedAt      time.Time `json:"updatedAt"`
	UpdatedBy      string    `json:"updatedBy"`
	KeyFingerprint string    `json:"keyFingerprint"`
}

// FetchHistory implements GET /projects/{id}/history.
func (c *HTTPRemoteClient) FetchHistory(ctx context.Context, projectID string) ([]HistoryEntry, error) {
	var wire []historyEntryWire
	if err := c.request(ctx, http.MethodGet, "/projects/"+projectID+"/history", nil, &wire); err != nil {
		return nil, err
	}
	history := make([]HistoryEntry, len(wire))
	for i, e := range wire {
		history[i] = HistoryEntry{
			Version:        e.Version,
			UpdatedAt:      e.UpdatedAt,
			UpdatedBy:      e.UpdatedBy,
			KeyFingerprint: e.KeyFingerprint,
		}
	}
	return history, nil
}

type rollbackRequest struct {
	Version int64 `json:"version"`
}

// Rollback implements POST /projects/{id}/rollback.
func (c *HTTPRemoteClient) Rollback(ctx context.Context, projectID string, version int64) error {
	return c.request(ctx, http.MethodPost, "/projects/"+projectID+"/rollback", rollbackRequest{Version: version}, nil)
}
