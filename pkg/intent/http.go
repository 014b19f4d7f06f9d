package intent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// HTTPClassifier calls an external classification service: POST free text,
// receive the typed payload.
type HTTPClassifier struct {
	baseURL    string
	httpClient *http.Client
}

// NewHTTPClassifier creates a classifier client for the given service URL.
func NewHTTPClassifier(baseURL string) *HTTPClassifier {
	return &HTTPClassifier{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Classify posts the user's text and validates the structured answer.
func (c *HTTPClassifier) Classify(ctx context.Context, text string) (*Intent, error) {
	payload, err := json.Marshal(map[string]string{"question": text})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal classification request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/classify", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("classification request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read classification response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("classifier returned status %d: %s", resp.StatusCode, string(body))
	}

	var result Intent
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to parse classification: %w", err)
	}
	if err := result.Validate(); err != nil {
		return nil, fmt.Errorf("classifier produced an incomplete intent: %w", err)
	}
	return &result, nil
}
