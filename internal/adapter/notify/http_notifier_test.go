package notify

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"salvage-auction-engine/internal/core/ports"
)

func TestHTTPNotifier_Delivers(t *testing.T) {
	received := make(chan gatewayPayload, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer key-123", r.Header.Get("Authorization"))
		body, _ := io.ReadAll(r.Body)
		var p gatewayPayload
		require.NoError(t, json.Unmarshal(body, &p))
		received <- p
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	vendorID := uuid.New()
	n := NewHTTPNotifier(srv.URL, "key-123", srv.Client(), zerolog.Nop())
	n.Notify(context.Background(), ports.Notification{
		Channel:  ports.ChannelSMS,
		VendorID: vendorID,
		Event:    "payment_reminder",
		Payload:  map[string]any{"hours_remaining": 12},
	})

	select {
	case p := <-received:
		assert.Equal(t, "sms", p.Channel)
		assert.Equal(t, vendorID.String(), p.VendorID)
		assert.Equal(t, "payment_reminder", p.Event)
	case <-time.After(2 * time.Second):
		t.Fatal("notification never reached gateway")
	}
}

func TestHTTPNotifier_SkipsWithoutGateway(t *testing.T) {
	var calls atomic.Int32
	client := &countingClient{calls: &calls}

	n := NewHTTPNotifier("", "", client, zerolog.Nop())
	n.Notify(context.Background(), ports.Notification{
		Channel:  ports.ChannelPush,
		VendorID: uuid.New(),
		Event:    "auction_closed",
	})

	time.Sleep(50 * time.Millisecond)
	assert.Zero(t, calls.Load())
}

type countingClient struct {
	calls *atomic.Int32
}

func (c *countingClient) Do(req *http.Request) (*http.Response, error) {
	c.calls.Add(1)
	return nil, http.ErrHandlerTimeout
}
