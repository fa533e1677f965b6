package notify

import (
	"bytes"
	"encoding/json"
	"net/http"
	"time"

	"github.com/djkaif/Scribble-bot/shared/logger"
)

// Webhook POSTs announcements as JSON to a bot frontend endpoint.
type Webhook struct {
	url    string
	client *http.Client
}

func NewWebhook(url string) *Webhook {
	return &Webhook{
		url:    url,
		client: &http.Client{Timeout: 5 * time.Second},
	}
}

func (w *Webhook) Announce(channel, text string) {
	body, err := json.Marshal(map[string]string{
		"channel": channel,
		"text":    text,
	})
	if err != nil {
		logger.Criticalf("[Notify] Failed to marshal announcement: %v", err)
		return
	}

	resp, err := w.client.Post(w.url, "application/json", bytes.NewReader(body))
	if err != nil {
		logger.Warningf("[Notify] Delivery to %s failed: %v", w.url, err)
		return
	}
	resp.Body.Close()
	if resp.StatusCode >= 300 {
		logger.Warningf("[Notify] Frontend answered %d for channel %s", resp.StatusCode, channel)
	}
}
