package consumer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/VytasKer/Fintegrate/internal/model"
)

// HTTPConfirmer posts delivery receipts to the platform's confirm-delivery
// endpoint.
type HTTPConfirmer struct {
	URL          string
	APIKey       string
	ConsumerName string
	Client       *http.Client
}

func NewHTTPConfirmer(url, apiKey, consumerName string, timeout time.Duration) *HTTPConfirmer {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &HTTPConfirmer{
		URL:          url,
		APIKey:       apiKey,
		ConsumerName: consumerName,
		Client:       &http.Client{Timeout: timeout},
	}
}

var _ Confirmer = (*HTTPConfirmer)(nil)

type confirmRequest struct {
	EventID       string  `json:"event_id"`
	Status        string  `json:"status"`
	ReceivedAt    string  `json:"received_at"`
	FailureReason *string `json:"failure_reason,omitempty"`
	ConsumerName  string  `json:"consumer_name"`
}

func (c *HTTPConfirmer) Confirm(ctx context.Context, eventID string, status model.ProcessingStatus, failureReason *string) error {
	body, err := json.Marshal(confirmRequest{
		EventID:       eventID,
		Status:        status.String(),
		ReceivedAt:    time.Now().UTC().Format(time.RFC3339),
		FailureReason: failureReason,
		ConsumerName:  c.ConsumerName,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.APIKey != "" {
		req.Header.Set("X-API-Key", c.APIKey)
	}

	resp, err := c.Client.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("confirm-delivery: unexpected status %d", resp.StatusCode)
	}
	return nil
}
