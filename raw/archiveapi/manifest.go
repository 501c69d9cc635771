package archiveapi

import (
	"context"
	"fmt"
	"net/http"
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/nwp-consumer/core/ncerr"
)

// manifestEntry is the wire shape of one line in an order manifest.
type manifestEntry struct {
	RemotePath string `json:"remote_path"`
	Size       int64  `json:"size"`
}

// HTTPManifestLister returns an OrderLister that fetches the manifest for
// one init-time from urlTemplate, a fmt.Sprintf-style pattern taking the
// init-time formatted as "20060102T1504" (e.g.
// "https://archive.example/orders/%s/manifest.json").
func HTTPManifestLister(client *http.Client, urlTemplate string) OrderLister {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return func(ctx context.Context, it time.Time) ([]OrderItem, error) {
		url := fmt.Sprintf(urlTemplate, it.UTC().Format("20060102T1504"))
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, err
		}
		resp, err := client.Do(req)
		if err != nil {
			return nil, &ncerr.NetworkError{URL: url, Transient: true, Cause: err}
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return nil, &ncerr.NetworkError{URL: url, Transient: resp.StatusCode >= 500, Cause: fmt.Errorf("status %d", resp.StatusCode)}
		}

		var entries []manifestEntry
		if err := jsoniter.ConfigCompatibleWithStandardLibrary.NewDecoder(resp.Body).Decode(&entries); err != nil {
			return nil, &ncerr.NetworkError{URL: url, Transient: false, Cause: err}
		}

		items := make([]OrderItem, len(entries))
		for i, e := range entries {
			items[i] = OrderItem{RemotePath: e.RemotePath, Size: e.Size}
		}
		return items, nil
	}
}
