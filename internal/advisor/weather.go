package advisor

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
)

// Snapshot is a point-in-time weather reading for one location. Only the
// fields the engine consumes are decoded; the service returns more.
type Snapshot struct {
	Condition  string  `json:"condition"`
	Temp       float64 `json:"temp"`
	Humidity   float64 `json:"humidity"`
	RainChance float64 `json:"rain_chance"`
	Location   string  `json:"location"`
}

// Description renders the short weather summary passed to the storage
// advisory classifier, e.g. "Rainy, Temp: 31C".
func (s *Snapshot) Description() string {
	return fmt.Sprintf("%s, Temp: %gC", s.Condition, s.Temp)
}

// WeatherClient talks to the weather/shelf-life service. It serves both the
// scheduler's shared per-cycle snapshot and the resynchronizer's per-batch
// shelf-life estimates.
type WeatherClient struct {
	client
}

// NewWeatherClient creates a WeatherClient for the given service base URL.
func NewWeatherClient(baseURL string, httpClient *http.Client, logger *slog.Logger) *WeatherClient {
	return &WeatherClient{client: newClient(baseURL, httpClient, logger)}
}

// Weather fetches the current snapshot for a location.
func (w *WeatherClient) Weather(ctx context.Context, location string) (*Snapshot, error) {
	query := url.Values{"location": {location}}

	var snap Snapshot
	if err := w.getJSON(ctx, "/weather", query, &snap); err != nil {
		return nil, err
	}

	if snap.Condition == "" {
		return nil, fmt.Errorf("%w: weather snapshot missing condition", ErrMalformedResponse)
	}

	w.logger.Debug("weather snapshot fetched",
		slog.String("location", location),
		slog.String("condition", snap.Condition),
		slog.Float64("temp", snap.Temp),
	)

	return &snap, nil
}

// shelfLifeResponse is the wire shape of a shelf-life estimate.
type shelfLifeResponse struct {
	HoursToCriticalLoss *float64 `json:"hours_to_critical_loss"`
}

// ShelfLife requests a fresh hours-to-critical-loss estimate for a crop
// batch, keyed by crop type, division, and ISO harvest date.
func (w *WeatherClient) ShelfLife(ctx context.Context, cropType, division, harvestDate string) (float64, error) {
	query := url.Values{
		"crop":         {cropType},
		"division":     {division},
		"harvest_date": {harvestDate},
	}

	var resp shelfLifeResponse
	if err := w.getJSON(ctx, "/shelf-life", query, &resp); err != nil {
		return 0, err
	}

	if resp.HoursToCriticalLoss == nil {
		return 0, fmt.Errorf("%w: shelf-life estimate missing hours", ErrMalformedResponse)
	}

	return *resp.HoursToCriticalLoss, nil
}
