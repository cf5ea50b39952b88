package mail

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/resend/resend-go/v2"
)

// Message is one transactional email.
type Message struct {
	From    string            `json:"from"`
	To      []string          `json:"to"`
	Subject string            `json:"subject"`
	HTML    string            `json:"html,omitempty"`
	Text    string            `json:"text,omitempty"`
	ReplyTo string            `json:"reply_to,omitempty"`
	Headers map[string]string `json:"headers,omitempty"`
	Tags    []Tag             `json:"tags,omitempty"`
}

// Tag labels a message for filtering in the provider dashboard.
type Tag struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// SendResult is the provider's acknowledgement.
type SendResult struct {
	ID string `json:"id"`
}

// ProviderError is a failure returned while talking to the provider.
type ProviderError struct {
	StatusCode int
	Name       string
	Message    string
	Err        error
}

func (e *ProviderError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("mail provider error: %s", e.Message)
	}
	return fmt.Sprintf("mail provider error %d (%s): %s", e.StatusCode, e.Name, e.Message)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// Client sends email through the Resend API.
type Client struct {
	apiKey string
	resend *resend.Client
}

// NewClient creates a client for apiKey. baseURL overrides the provider
// host and is meant for tests and compatible gateways.
func NewClient(apiKey, baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	rc := resend.NewCustomClient(&http.Client{Timeout: timeout}, apiKey)
	if baseURL != "" {
		if u, err := url.Parse(strings.TrimSuffix(baseURL, "/") + "/"); err == nil {
			rc.BaseURL = u
		}
	}

	return &Client{apiKey: apiKey, resend: rc}
}

// Send delivers msg and returns the provider message id.
func (c *Client) Send(ctx context.Context, msg Message) (*SendResult, error) {
	if c.apiKey == "" {
		return nil, errors.New("mail API key not configured")
	}
	if len(msg.To) == 0 {
		return nil, errors.New("mail has no recipients")
	}

	req := &resend.SendEmailRequest{
		From:    msg.From,
		To:      msg.To,
		Subject: msg.Subject,
		Html:    msg.HTML,
		Text:    msg.Text,
		ReplyTo: msg.ReplyTo,
		Headers: msg.Headers,
	}
	for _, t := range msg.Tags {
		req.Tags = append(req.Tags, resend.Tag{Name: t.Name, Value: t.Value})
	}

	sent, err := c.resend.Emails.SendWithContext(ctx, req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("mail API call aborted: %w", ctxErr)
		}
		return nil, &ProviderError{Message: providerMessage(err), Err: err}
	}
	if sent == nil || sent.Id == "" {
		return nil, errors.New("mail API returned no message id")
	}

	return &SendResult{ID: sent.Id}, nil
}

// providerMessage strips the SDK's severity prefix.
func providerMessage(err error) string {
	msg := strings.TrimSpace(err.Error())
	if rest, ok := strings.CutPrefix(msg, "[ERROR]:"); ok {
		return strings.TrimSpace(rest)
	}
	return msg
}

func (c *Client) IsConfigured() bool {
	return c.apiKey != ""
}
