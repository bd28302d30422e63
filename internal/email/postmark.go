package email

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
)

const postmarkURL = "https://api.postmarkapp.com/email"

type Client struct {
	serverToken string
	fromEmail   string
	baseURL     string
	apiURL      string
	httpClient  *http.Client
}

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		cl.httpClient = c
	}
}

// WithAPIURL overrides the Postmark endpoint. Used in tests.
func WithAPIURL(url string) Option {
	return func(cl *Client) {
		cl.apiURL = url
	}
}

func NewClient(serverToken, fromEmail, baseURL string, opts ...Option) *Client {
	c := &Client{
		serverToken: serverToken,
		fromEmail:   fromEmail,
		baseURL:     baseURL,
		apiURL:      postmarkURL,
		httpClient:  http.DefaultClient,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Configured returns true if the server token is set.
func (c *Client) Configured() bool {
	return c.serverToken != ""
}

type postmarkEmail struct {
	From     string `json:"From"`
	To       string `json:"To"`
	Subject  string `json:"Subject"`
	HtmlBody string `json:"HtmlBody"`
	TextBody string `json:"TextBody"`
}

// SendVerification emails a confirmation link for a freshly registered or
// still-unverified account.
func (c *Client) SendVerification(toEmail, name, token string) error {
	link := fmt.Sprintf("%s/verify-email?token=%s", c.baseURL, token)
	textBody := fmt.Sprintf(
		"Hello %s,\n\nClick the link below to confirm your email:\n%s\n\nThe link expires in 30 minutes. If you didn't sign up, ignore this email.",
		name, link,
	)
	htmlBody := fmt.Sprintf(
		`<p>Hello %s,</p><p>Click the link below to confirm your email:</p><p><a href="%s">Confirm your email</a></p><p>The link expires in 30 minutes. If you didn't sign up, ignore this email.</p>`,
		name, link,
	)
	return c.send(toEmail, "Please confirm your email", htmlBody, textBody)
}

// SendPasswordReset emails a password reset link.
func (c *Client) SendPasswordReset(toEmail, name, token string) error {
	link := fmt.Sprintf("%s/reset-password?token=%s", c.baseURL, token)
	textBody := fmt.Sprintf(
		"Hello %s,\n\nTo reset your password, visit the following link:\n%s\n\nThe link expires in 30 minutes. If you did not make this request, ignore this email.",
		name, link,
	)
	htmlBody := fmt.Sprintf(
		`<p>Hello %s,</p><p>To reset your password, visit the following link:</p><p><a href="%s">Reset your password</a></p><p>The link expires in 30 minutes. If you did not make this request, ignore this email.</p>`,
		name, link,
	)
	return c.send(toEmail, "Password Reset Request", htmlBody, textBody)
}

func (c *Client) send(toEmail, subject, htmlBody, textBody string) error {
	if !c.Configured() {
		return fmt.Errorf("email client not configured: missing server token")
	}

	payload := postmarkEmail{
		From:     c.fromEmail,
		To:       toEmail,
		Subject:  subject,
		HtmlBody: htmlBody,
		TextBody: textBody,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal email: %w", err)
	}

	req, err := http.NewRequest("POST", c.apiURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Postmark-Server-Token", c.serverToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("postmark API error: status %d", resp.StatusCode)
	}

	return nil
}
