// Package sms delivers outbound text messages through the Textbelt REST API.
package sms

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/go-querystring/query"

	"github.com/playdaycuts/booking-api/internal/domain"
)

// Result reports a send outcome. A returned error means the provider was
// unreachable (transport failure); Delivered=false with Err set means the
// provider answered but refused the message (e.g. invalid number). The two
// take different recovery paths in the booking flow.
type Result struct {
	Delivered bool   `json:"delivered"`
	TextID    string `json:"text_id,omitempty"`
	Err       string `json:"error,omitempty"`
}

type Channel interface {
	Send(ctx context.Context, toNumber, body string) (Result, error)
}

type TextbeltClient struct {
	key        string
	baseURL    string
	httpClient *http.Client
}

func NewTextbeltClient(key, baseURL string) *TextbeltClient {
	return &TextbeltClient{
		key:        key,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

// WithHTTPClient swaps the underlying client, for tests.
func (c *TextbeltClient) WithHTTPClient(hc *http.Client) *TextbeltClient {
	c.httpClient = hc
	return c
}

type textbeltRequest struct {
	Phone   string `url:"phone"`
	Message string `url:"message"`
	Key     string `url:"key"`
}

type textbeltResponse struct {
	Success bool   `json:"success"`
	TextID  any    `json:"textId"`
	Error   string `json:"error"`
}

func (c *TextbeltClient) Send(ctx context.Context, toNumber, body string) (Result, error) {
	if c.key == "" {
		return Result{}, fmt.Errorf("sms channel: %w", domain.ErrNotConfigured)
	}

	form, err := query.Values(textbeltRequest{Phone: toNumber, Message: body, Key: c.key})
	if err != nil {
		return Result{}, fmt.Errorf("encode sms request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/text", strings.NewReader(form.Encode()))
	if err != nil {
		return Result{}, fmt.Errorf("build sms request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("sms http post: %w", err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Result{}, fmt.Errorf("textbelt returned %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var tr textbeltResponse
	if err := json.Unmarshal(raw, &tr); err != nil {
		return Result{}, fmt.Errorf("decode textbelt response: %w", err)
	}

	res := Result{Delivered: tr.Success, Err: tr.Error}
	if tr.TextID != nil {
		res.TextID = fmt.Sprint(tr.TextID)
	}
	return res, nil
}

var _ Channel = (*TextbeltClient)(nil)

// DevChannel logs instead of sending, for local development without a
// Textbelt key.
type DevChannel struct {
	Logf func(format string, args ...any)
}

func (d DevChannel) Send(_ context.Context, toNumber, body string) (Result, error) {
	if d.Logf != nil {
		d.Logf("dev sms to %s: %s", toNumber, body)
	}
	return Result{Delivered: true, TextID: "dev"}, nil
}

var _ Channel = DevChannel{}
