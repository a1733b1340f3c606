// Package notify delivers vendor notifications through an external messaging
// gateway over HTTP.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"salvage-auction-engine/internal/core/ports"
)

// retryIntervals is the delivery backoff ladder. Notifications are reminders
// and status pings, so the ladder is short; anything still failing after the
// last rung is dropped.
var retryIntervals = []time.Duration{
	15 * time.Second,
	60 * time.Second,
	5 * time.Minute,
}

// HTTPClient interface for testability.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// gatewayPayload is the JSON structure posted to the messaging gateway.
type gatewayPayload struct {
	Channel   string         `json:"channel"`
	VendorID  string         `json:"vendor_id"`
	Event     string         `json:"event"`
	Payload   map[string]any `json:"payload,omitempty"`
	Timestamp int64          `json:"timestamp"`
}

// HTTPNotifier implements ports.Notifier against a messaging gateway URL.
type HTTPNotifier struct {
	gatewayURL string
	apiKey     string
	httpClient HTTPClient
	log        zerolog.Logger
}

func NewHTTPNotifier(gatewayURL, apiKey string, httpClient HTTPClient, log zerolog.Logger) *HTTPNotifier {
	return &HTTPNotifier{
		gatewayURL: gatewayURL,
		apiKey:     apiKey,
		httpClient: httpClient,
		log:        log.With().Str("component", "notifier").Logger(),
	}
}

// Notify delivers asynchronously. Failures are logged and swallowed; no
// caller state transition ever depends on delivery.
func (n *HTTPNotifier) Notify(_ context.Context, msg ports.Notification) {
	if n.gatewayURL == "" {
		n.log.Debug().Str("event", msg.Event).Msg("no gateway configured, notification skipped")
		return
	}

	body := gatewayPayload{
		Channel:   string(msg.Channel),
		VendorID:  msg.VendorID.String(),
		Event:     msg.Event,
		Payload:   msg.Payload,
		Timestamp: time.Now().Unix(),
	}

	go n.deliverWithRetries(body)
}

func (n *HTTPNotifier) deliverWithRetries(body gatewayPayload) {
	payloadBytes, err := json.Marshal(body)
	if err != nil {
		n.log.Error().Err(err).Str("event", body.Event).Msg("failed to marshal notification")
		return
	}

	for attempt := 0; attempt <= len(retryIntervals); attempt++ {
		if attempt > 0 {
			time.Sleep(retryIntervals[attempt-1])
		}

		req, err := http.NewRequest(http.MethodPost, n.gatewayURL, bytes.NewReader(payloadBytes))
		if err != nil {
			n.log.Error().Err(err).Str("event", body.Event).Msg("failed to create notification request")
			return
		}
		req.Header.Set("Content-Type", "application/json")
		if n.apiKey != "" {
			req.Header.Set("Authorization", "Bearer "+n.apiKey)
		}

		resp, err := n.httpClient.Do(req)
		if err != nil {
			n.log.Warn().Err(err).Str("event", body.Event).Int("attempt", attempt+1).Msg("notification delivery failed")
			continue
		}
		resp.Body.Close()

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			n.log.Info().Str("event", body.Event).Str("vendor_id", body.VendorID).Int("attempt", attempt+1).Msg("notification delivered")
			return
		}

		n.log.Warn().Str("event", body.Event).Int("attempt", attempt+1).Int("status", resp.StatusCode).Msg("non-2xx from gateway, retrying")
	}

	n.log.Error().Str("event", body.Event).Str("vendor_id", body.VendorID).Msg("notification retries exhausted")
}
