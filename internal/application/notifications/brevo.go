package notifications

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	brevoAPI         = "https://api.brevo.com/v3/smtp/email"
	defaultMailFrom  = "noreply@somosrentable.com"
	defaultFromName  = "SomosRentable"
	supportReplyTo   = "soporte@somosrentable.com"
	brevoRetryPause  = 2 * time.Second
	brevoHTTPTimeout = 15 * time.Second
)

// Mailer delivers one rendered email.
type Mailer interface {
	Send(ctx context.Context, toEmail, toName, subject, html string) error
}

type brevoAddress struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

// brevoEmail is the v3 transactional body.
type brevoEmail struct {
	Sender      brevoAddress   `json:"sender"`
	To          []brevoAddress `json:"to"`
	ReplyTo     *brevoAddress  `json:"replyTo,omitempty"`
	Subject     string         `json:"subject"`
	HTMLContent string         `json:"htmlContent"`
	Tags        []string       `json:"tags,omitempty"`
}

// BrevoClient sends through the Brevo (ex Sendinblue) API. Without an API key
// every send is a no-op, which is how local environments run.
type BrevoClient struct {
	APIKey   string
	MailFrom string
	Endpoint string
	Client   *http.Client
}

// Send posts the email once more after a 429 or 5xx answer.
func (c *BrevoClient) Send(ctx context.Context, toEmail, toName, subject, html string) error {
	if c.APIKey == "" {
		return nil
	}
	from := c.MailFrom
	if from == "" {
		from = defaultMailFrom
	}
	payload, err := json.Marshal(brevoEmail{
		Sender:      brevoAddress{Email: from, Name: defaultFromName},
		To:          []brevoAddress{{Email: toEmail, Name: toName}},
		ReplyTo:     &brevoAddress{Email: supportReplyTo, Name: defaultFromName + " Soporte"},
		Subject:     subject,
		HTMLContent: html,
		Tags:        []string{"funnel"},
	})
	if err != nil {
		return err
	}

	retry, err := c.post(ctx, payload)
	if retry {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(brevoRetryPause):
		}
		_, err = c.post(ctx, payload)
	}
	return err
}

// post reports whether a failure is worth one retry.
func (c *BrevoClient) post(ctx context.Context, payload []byte) (bool, error) {
	endpoint := c.Endpoint
	if endpoint == "" {
		endpoint = brevoAPI
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return false, err
	}
	req.Header.Set("api-key", c.APIKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	hc := c.Client
	if hc == nil {
		hc = &http.Client{Timeout: brevoHTTPTimeout}
	}
	resp, err := hc.Do(req)
	if err != nil {
		return true, fmt.Errorf("brevo: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 == 2 {
		return false, nil
	}

	var apiErr struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
	_ = json.Unmarshal(raw, &apiErr)
	retry := resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500
	return retry, fmt.Errorf("brevo: status %d %s %s", resp.StatusCode, apiErr.Code, apiErr.Message)
}
