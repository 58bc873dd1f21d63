package mailer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/openvenue/mailroom/internal/pkg/logger"
)

// HTTPClient talks to the provider's REST API.
type HTTPClient struct {
	baseURL   string
	apiKey    string
	fromEmail string
	fromName  string
	client    *http.Client
}

// NewHTTPClient creates a provider client. baseURL is the API root without a
// trailing slash.
func NewHTTPClient(baseURL, apiKey, fromEmail, fromName string) *HTTPClient {
	return &HTTPClient{
		baseURL:   baseURL,
		apiKey:    apiKey,
		fromEmail: fromEmail,
		fromName:  fromName,
		client:    &http.Client{Timeout: 30 * time.Second},
	}
}

type sendRequest struct {
	From    fromAddress `json:"from"`
	To      []toAddress `json:"to"`
	Subject string      `json:"subject"`
	HTML    string      `json:"html,omitempty"`
	Text    string      `json:"text,omitempty"`
	Tags    []Tag       `json:"tags,omitempty"`
}

type fromAddress struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type toAddress struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

// Send dispatches one email. A transport-level failure maps to
// ErrUnavailable; a provider rejection (4xx/5xx) is returned as a regular
// error with the provider's message.
func (c *HTTPClient) Send(ctx context.Context, msg Message) error {
	body, err := json.Marshal(sendRequest{
		From:    fromAddress{Email: c.fromEmail, Name: c.fromName},
		To:      []toAddress{{Email: msg.To, Name: msg.ToName}},
		Subject: msg.Subject,
		HTML:    msg.HTML,
		Text:    msg.Text,
		Tags:    msg.Tags,
	})
	if err != nil {
		return fmt.Errorf("marshal send request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/emails", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build send request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		logger.Error("provider unreachable", "error", err.Error())
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	var apiErr struct {
		Message string `json:"message"`
		Errors  []struct {
			Message string `json:"message"`
		} `json:"errors"`
	}
	json.NewDecoder(resp.Body).Decode(&apiErr)
	detail := apiErr.Message
	if detail == "" && len(apiErr.Errors) > 0 {
		detail = apiErr.Errors[0].Message
	}
	if detail == "" {
		detail = http.StatusText(resp.StatusCode)
	}
	return fmt.Errorf("provider rejected send (status %d): %s", resp.StatusCode, detail)
}
