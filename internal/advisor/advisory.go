package advisor

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
)

// StatusHarmful is the advisory status that triggers an alert dispatch.
// Any other status means the storage/weather combination is acceptable.
const StatusHarmful = "harmful"

// Advisory is a storage-advisory classification result. A nil Advisory
// (JSON null from the service) means the classifier had nothing to say.
type Advisory struct {
	Status       string `json:"status"`
	AlertMessage string `json:"alert_message"`
}

// Harmful reports whether this advisory should trigger an alert.
func (a *Advisory) Harmful() bool {
	return a != nil && a.Status == StatusHarmful
}

// AdvisoryClient talks to the storage-advisory classifier.
type AdvisoryClient struct {
	client
}

// NewAdvisoryClient creates an AdvisoryClient for the given service base URL.
func NewAdvisoryClient(baseURL string, httpClient *http.Client, logger *slog.Logger) *AdvisoryClient {
	return &AdvisoryClient{client: newClient(baseURL, httpClient, logger)}
}

// StorageAdvisory classifies one batch's storage situation against current
// weather. Returns (nil, nil) when the classifier declines to advise.
func (a *AdvisoryClient) StorageAdvisory(ctx context.Context, storageType, cropType, location, weatherDesc string) (*Advisory, error) {
	query := url.Values{
		"storage":  {storageType},
		"crop":     {cropType},
		"location": {location},
		"weather":  {weatherDesc},
	}

	var adv *Advisory
	if err := a.getJSON(ctx, "/storage-advisory", query, &adv); err != nil {
		return nil, err
	}

	if adv == nil {
		return nil, nil
	}

	if adv.Status == "" {
		return nil, fmt.Errorf("%w: advisory missing status", ErrMalformedResponse)
	}

	a.logger.Debug("storage advisory received",
		slog.String("crop", cropType),
		slog.String("status", adv.Status),
	)

	return adv, nil
}
