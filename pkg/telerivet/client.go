package telerivet

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	apperrors "smsgate/internal/errors"
	"smsgate/pkg/telerivet/types"

	"github.com/sirupsen/logrus"
)

const maxErrorBody = 4 * 1024

type Client interface {
	Send(ctx context.Context, to, content string) error
}

type TelerivetClient struct {
	baseURL   string
	apiKey    string
	projectID string
	phoneID   string
	client    *http.Client
	logger    *logrus.Logger
}

// NewClient creates a Telerivet REST client. A nil httpClient gets a client
// with the given per-request timeout.
func NewClient(baseURL, apiKey, projectID, phoneID string, timeout time.Duration, httpClient *http.Client, logger *logrus.Logger) *TelerivetClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}
	if logger == nil {
		logger = logrus.New()
		logger.SetLevel(logrus.WarnLevel)
	}

	return &TelerivetClient{
		baseURL:   strings.TrimSuffix(baseURL, "/"),
		apiKey:    apiKey,
		projectID: projectID,
		phoneID:   phoneID,
		client:    httpClient,
		logger:    logger,
	}
}

func (c *TelerivetClient) endpoint() string {
	return fmt.Sprintf("%s/v1/projects/%s/messages/send", c.baseURL, url.PathEscape(c.projectID))
}

// Send makes one send attempt. Network failures and timeouts come back as
// retryable TRANSPORT/TIMEOUT errors; any non-2xx status is a terminal
// TRANSPORT error.
func (c *TelerivetClient) Send(ctx context.Context, to, content string) error {
	payload := types.SendMessageRequest{
		PhoneID:  c.phoneID,
		ToNumber: to,
		Content:  content,
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	endpoint := c.endpoint()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(c.apiKey, "")

	c.logger.WithField("endpoint", endpoint).Debug("Sending Telerivet message request")

	resp, err := c.client.Do(req)
	if err != nil {
		if isTimeout(err) {
			return apperrors.NewTimeoutError("telerivet send", err)
		}
		return apperrors.NewTransportError(endpoint, 0, err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return apperrors.NewTransportError(endpoint, resp.StatusCode, fmt.Errorf("telerivet: %s", errorMessage(resp.StatusCode, body)))
	}

	var msg types.Message
	if err := json.Unmarshal(body, &msg); err == nil && msg.ID != "" {
		c.logger.WithFields(logrus.Fields{
			"message_id": msg.ID,
			"status":     msg.Status,
		}).Debug("Telerivet accepted message")
	}
	return nil
}

func errorMessage(status int, body []byte) string {
	var errResp types.ErrorResponse
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error.Message != "" {
		return errResp.Error.Message
	}
	return http.StatusText(status)
}

func isTimeout(err error) bool {
	if stderrors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return stderrors.As(err, &netErr) && netErr.Timeout()
}
