package notify

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/golang/glog"
)

// Webhook POSTs the same JSON message shape to a configured URL,
// supplementing the distilled spec's stdout-only notifier with the
// handshake-style sink the original implementation also ships.
type Webhook struct {
	URL    string
	Client *http.Client
}

func (w Webhook) Notify(m Message) error {
	client := w.Client
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	payload, err := jsoniter.ConfigCompatibleWithStandardLibrary.Marshal(m)
	if err != nil {
		return fmt.Errorf("notify: marshal: %w", err)
	}
	resp, err := client.Post(w.URL, "application/json", bytes.NewReader(payload))
	if err != nil {
		glog.Warningf("notify: webhook post to %s failed: %v", w.URL, err)
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		glog.Warningf("notify: webhook %s returned status %d", w.URL, resp.StatusCode)
		return fmt.Errorf("notify: webhook returned status %d", resp.StatusCode)
	}
	return nil
}
