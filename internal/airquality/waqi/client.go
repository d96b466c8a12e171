// Package waqi provides a client for the World Air Quality Index feed API.
package waqi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/airaware/airaware/internal/airquality"
	"github.com/airaware/airaware/internal/provider/resilience"
)

const (
	// DefaultBaseURL is the base URL for the WAQI API.
	DefaultBaseURL = "https://api.waqi.info"

	// ProviderName identifies this provider.
	ProviderName = "waqi"

	// TargetHere asks WAQI to locate the caller by IP.
	TargetHere = "here"
)

// APIError is returned when WAQI answers with a non-ok status.
type APIError struct {
	Status  string
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("waqi: status %q", e.Status)
	}
	return fmt.Sprintf("waqi: status %q: %s", e.Status, e.Message)
}

// ClientConfig holds configuration for the WAQI client.
type ClientConfig struct {
	// BaseURL is the API base URL (defaults to DefaultBaseURL).
	BaseURL string

	// Token is the WAQI API token.
	Token string

	// HTTPClient is the HTTP client to use (must implement HTTPDoer).
	// If nil, a default resilient client will be created.
	HTTPClient HTTPDoer

	// Timeout for individual API requests (default: 10s).
	Timeout time.Duration

	// Registry receives health updates from the default client.
	Registry *resilience.Registry
}

// HTTPDoer abstracts HTTP request execution.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client is a WAQI API client.
type Client struct {
	baseURL    string
	token      string
	httpClient HTTPDoer
}

// NewClient creates a new WAQI client.
func NewClient(cfg ClientConfig) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout == 0 {
			timeout = 10 * time.Second
		}
		httpClient = resilience.NewClient(resilience.ClientConfig{
			Name:           ProviderName,
			Timeout:        timeout,
			DisableRetries: true,
			Registry:       cfg.Registry,
		})
	}

	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		token:      cfg.Token,
		httpClient: httpClient,
	}
}

// Name returns the provider name.
func (c *Client) Name() string {
	return ProviderName
}

// TargetForCoordinates returns the feed target for a position. The origin
// (0, 0) stands for "unknown" and maps to IP-based lookup.
func TargetForCoordinates(lat, lon float64) string {
	if lat == 0 && lon == 0 {
		return TargetHere
	}
	return "geo:" + strconv.FormatFloat(lat, 'f', -1, 64) + ";" + strconv.FormatFloat(lon, 'f', -1, 64)
}

// CityTarget returns the feed target for a city key such as "new-delhi".
func CityTarget(key string) string {
	return key
}

// FetchByCoordinates fetches the feed for the station nearest to lat/lon.
func (c *Client) FetchByCoordinates(ctx context.Context, lat, lon float64) (airquality.Record, error) {
	return c.FetchFeed(ctx, TargetForCoordinates(lat, lon))
}

// FetchFeed fetches and normalizes /feed/{target}/.
func (c *Client) FetchFeed(ctx context.Context, target string) (airquality.Record, error) {
	endpoint := fmt.Sprintf("%s/feed/%s/?token=%s", c.baseURL, target, url.QueryEscape(c.token))

	body, err := c.get(ctx, endpoint, "feed")
	if err != nil {
		return airquality.Record{}, err
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return airquality.Record{}, fmt.Errorf("decode feed envelope: %w: %w", airquality.ErrMalformedResponse, err)
	}
	if env.Status != "ok" {
		return airquality.Record{}, env.apiError()
	}

	var data feedData
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return airquality.Record{}, fmt.Errorf("decode feed data: %w: %w", airquality.ErrMalformedResponse, err)
	}

	return toRecord(&data), nil
}

// Location is a station returned by Search.
type Location struct {
	Name string  `json:"name"`
	Lat  float64 `json:"lat"`
	Lon  float64 `json:"lon"`
}

// Search looks up stations by name.
func (c *Client) Search(ctx context.Context, keyword string) ([]Location, error) {
	endpoint := fmt.Sprintf("%s/search/?token=%s&keyword=%s",
		c.baseURL, url.QueryEscape(c.token), url.QueryEscape(keyword))

	body, err := c.get(ctx, endpoint, "search")
	if err != nil {
		return nil, err
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("decode search envelope: %w: %w", airquality.ErrMalformedResponse, err)
	}
	if env.Status != "ok" {
		return nil, env.apiError()
	}

	var results []searchResult
	if err := json.Unmarshal(env.Data, &results); err != nil {
		return nil, fmt.Errorf("decode search data: %w: %w", airquality.ErrMalformedResponse, err)
	}

	locations := make([]Location, 0, len(results))
	for _, r := range results {
		if len(r.Station.Geo) < 2 {
			continue
		}
		locations = append(locations, Location{
			Name: r.Station.Name,
			Lat:  r.Station.Geo[0],
			Lon:  r.Station.Geo[1],
		})
	}
	return locations, nil
}

func (c *Client) get(ctx context.Context, endpoint, operation string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s request: %w: %w", operation, airquality.ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d from %s endpoint: %w",
			resp.StatusCode, operation, airquality.ErrProviderUnavailable)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s response: %w: %w", operation, airquality.ErrProviderUnavailable, err)
	}
	return body, nil
}

// API response types (from the WAQI API).

type envelope struct {
	Status string          `json:"status"`
	Data   json.RawMessage `json:"data"`
}

func (e *envelope) apiError() *APIError {
	apiErr := &APIError{Status: e.Status}
	var msg string
	if err := json.Unmarshal(e.Data, &msg); err == nil {
		apiErr.Message = msg
	}
	return apiErr
}

type feedData struct {
	AQI          flexibleAQI            `json:"aqi"`
	Idx          int                    `json:"idx"`
	Attributions []attributionData      `json:"attributions"`
	Attribution  []attributionData      `json:"attribution"`
	City         cityData               `json:"city"`
	DominentPol  string                 `json:"dominentpol"`
	IAQI         map[string]iaqiReading `json:"iaqi"`
	Time         timeData               `json:"time"`
	Forecast     struct {
		Daily map[string][]forecastDay `json:"daily"`
	} `json:"forecast"`
}

type attributionData struct {
	URL  string `json:"url"`
	Name string `json:"name"`
}

type cityData struct {
	Geo  []float64 `json:"geo"`
	Name string    `json:"name"`
	URL  string    `json:"url"`
}

type iaqiReading struct {
	V *float64 `json:"v"`
}

type timeData struct {
	S   string `json:"s"`
	TZ  string `json:"tz"`
	ISO string `json:"iso"`
}

type forecastDay struct {
	Avg float64 `json:"avg"`
	Day string  `json:"day"`
	Max float64 `json:"max"`
	Min float64 `json:"min"`
}

type searchResult struct {
	UID     int         `json:"uid"`
	AQI     flexibleAQI `json:"aqi"`
	Station struct {
		Name string    `json:"name"`
		Geo  []float64 `json:"geo"`
		URL  string    `json:"url"`
	} `json:"station"`
}

// flexibleAQI accepts a number, a numeric string, or "-" for no data.
type flexibleAQI int

func (a *flexibleAQI) UnmarshalJSON(b []byte) error {
	var n float64
	if err := json.Unmarshal(b, &n); err == nil {
		*a = clampAQI(n)
		return nil
	}

	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("aqi: %w", err)
	}
	n, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		*a = 0
		return nil
	}
	*a = clampAQI(n)
	return nil
}

func clampAQI(n float64) flexibleAQI {
	if n < 0 {
		return 0
	}
	return flexibleAQI(n)
}

func toRecord(data *feedData) airquality.Record {
	rec := airquality.Record{
		AQI:               int(data.AQI),
		City:              data.City.Name,
		StationName:       data.City.Name,
		StationURL:        data.City.URL,
		DominantPollutant: airquality.Pollutant(data.DominentPol),
		ObservedText:      data.Time.S,
		Source:            airquality.SourceWAQI,
		Measurements:      make(map[airquality.Pollutant]float64, len(data.IAQI)),
	}

	for key, reading := range data.IAQI {
		if reading.V == nil {
			continue
		}
		rec.Measurements[airquality.Pollutant(key)] = *reading.V
	}

	if data.Time.ISO != "" {
		if t, err := time.Parse(time.RFC3339, data.Time.ISO); err == nil {
			rec.ObservedAt = &t
		}
	}

	if len(data.City.Geo) >= 2 {
		rec.Coordinates = &airquality.Coordinates{
			Latitude:  data.City.Geo[0],
			Longitude: data.City.Geo[1],
		}
	}

	attributions := data.Attributions
	if len(attributions) == 0 {
		attributions = data.Attribution
	}
	for _, a := range attributions {
		rec.Attributions = append(rec.Attributions, airquality.Attribution{Name: a.Name, URL: a.URL})
	}

	if len(data.Forecast.Daily) > 0 {
		rec.Forecast = make(map[airquality.Pollutant][]airquality.ForecastDay, len(data.Forecast.Daily))
		for key, days := range data.Forecast.Daily {
			out := make([]airquality.ForecastDay, 0, len(days))
			for _, d := range days {
				out = append(out, airquality.ForecastDay{Day: d.Day, Avg: d.Avg, Min: d.Min, Max: d.Max})
			}
			rec.Forecast[airquality.Pollutant(key)] = out
		}
	}

	return rec
}
