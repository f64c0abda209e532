package webhook

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-resty/resty/v2"
)

// Event types.
const (
	EventSearchCompleted = "search.completed"
	EventSearchFailed    = "search.failed"
)

// SignatureHeader carries "sha256=<hex>" of the body when a secret is set.
const SignatureHeader = "X-Placescout-Signature"

// Event is the payload sent to webhook endpoints.
type Event struct {
	Type      string `json:"type"`
	Timestamp int64  `json:"timestamp"`
	Data      any    `json:"data"`
}

// NewEvent stamps an event with the current time.
func NewEvent(eventType string, data any) *Event {
	return &Event{Type: eventType, Timestamp: time.Now().Unix(), Data: data}
}

// Notifier delivers events to one endpoint, retrying failed deliveries.
type Notifier struct {
	url    string
	secret string
	client *resty.Client
}

// NewNotifier returns a Notifier, or nil when url is empty; a nil Notifier
// ignores every event.
func NewNotifier(url, secret string) *Notifier {
	if url == "" {
		return nil
	}
	client := resty.New().
		SetTimeout(10*time.Second).
		SetHeader("User-Agent", "Placescout-Webhook/1.0").
		SetRetryCount(3).
		SetRetryWaitTime(1*time.Second).
		SetRetryMaxWaitTime(10*time.Second).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return err != nil || r.StatusCode() >= 500
		})
	return &Notifier{url: url, secret: secret, client: client}
}

// Deliver sends event and waits for the outcome, retries included.
func (n *Notifier) Deliver(ctx context.Context, event *Event) error {
	if n == nil {
		return nil
	}
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("webhook: marshal event: %w", err)
	}

	req := n.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(body)
	if n.secret != "" {
		req.SetHeader(SignatureHeader, "sha256="+Sign(n.secret, body))
	}

	res, err := req.Post(n.url)
	if err != nil {
		return fmt.Errorf("webhook: deliver: %w", err)
	}
	if res.StatusCode() >= 400 {
		return fmt.Errorf("webhook: endpoint returned status %d", res.StatusCode())
	}
	slog.Info("webhook delivered", "url", n.url, "event", event.Type)
	return nil
}

// DeliverAsync sends event in the background, logging the final failure.
func (n *Notifier) DeliverAsync(event *Event) {
	if n == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		if err := n.Deliver(ctx, event); err != nil {
			slog.Error("webhook delivery failed", "url", n.url, "event", event.Type, "error", err)
		}
	}()
}

// Sign returns the hex HMAC-SHA256 of body under secret.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}
