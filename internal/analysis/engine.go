package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/frahmantamala/integration-hub/internal"
)

// EngineClient talks to the payroll risk engine over HTTP. The response body
// is passed through untouched as the job's result payload.
type EngineClient struct {
	engineURL  string
	apiKey     string
	httpClient *http.Client
	logger     *slog.Logger
}

func NewEngineClient(cfg internal.AnalysisConfig, logger *slog.Logger) *EngineClient {
	timeout := cfg.RunTimeout
	if timeout <= 0 {
		timeout = 10 * time.Minute
	}

	return &EngineClient{
		engineURL:  cfg.EngineURL,
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

type runRequest struct {
	AccessToken      string `json:"access_token"`
	ExternalTenantID string `json:"external_tenant_id"`
}

func (c *EngineClient) Run(ctx context.Context, accessToken, externalTenantID string) ([]byte, error) {
	payload, err := json.Marshal(runRequest{
		AccessToken:      accessToken,
		ExternalTenantID: externalTenantID,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal run request: %w", err)
	}

	url := c.engineURL + "/v1/payroll-risk/run"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build run request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	c.logger.Info("dispatching analysis run", "external_tenant_id", externalTenantID)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("analysis engine request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read analysis response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var engineErr struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(body, &engineErr) == nil && engineErr.Error != "" {
			return nil, fmt.Errorf("analysis engine returned %d: %s", resp.StatusCode, engineErr.Error)
		}
		return nil, fmt.Errorf("analysis engine returned %d", resp.StatusCode)
	}

	return body, nil
}
