// Package fivetenone provides a client for the 511.org SF Bay transit
// API. It speaks the SIRI JSON dialect the 511 open data portal
// serves and exposes realtime vehicle positions and stop arrival
// predictions for San Francisco Muni.
package fivetenone

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/sfmobility/sfmobility/internal/prediction"
	"github.com/sfmobility/sfmobility/internal/provider/resilience"
)

const (
	// ProviderName identifies this prediction provider.
	ProviderName = "fivetenone"

	// DefaultBaseURL is the 511.org transit API base URL.
	DefaultBaseURL = "https://api.511.org/transit"

	// DefaultAgency is the SF Muni operator code.
	DefaultAgency = "SF"

	// DefaultTimeout is the default request timeout.
	DefaultTimeout = 10 * time.Second

	// Realtime delays outside this window are treated as data noise.
	minDelaySeconds = -600
	maxDelaySeconds = 3600
)

// HTTPDoer is an interface for executing HTTP requests.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// ClientConfig holds configuration for the 511 client.
type ClientConfig struct {
	// APIKey is the 511.org API key (required).
	APIKey string

	// BaseURL is the API base URL (optional, defaults to 511.org).
	BaseURL string

	// Agency is the transit operator code (optional, defaults to SF Muni).
	Agency string

	// HTTPClient is the HTTP client to use (optional).
	// If nil, uses a resilient client with defaults.
	HTTPClient HTTPDoer

	// Timeout is the request timeout (optional, defaults to 10s).
	Timeout time.Duration

	// Registry is the provider registry for health tracking (optional).
	Registry *resilience.Registry

	// Logger for client operations.
	Logger zerolog.Logger
}

// Client is a 511.org SF Bay transit API client.
type Client struct {
	apiKey     string
	baseURL    string
	agency     string
	httpClient HTTPDoer
	logger     zerolog.Logger
}

// NewClient creates a new 511 client.
func NewClient(cfg ClientConfig) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	agency := cfg.Agency
	if agency == "" {
		agency = DefaultAgency
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		clientCfg := resilience.DefaultClientConfig(ProviderName)
		clientCfg.Timeout = timeout
		if cfg.Registry != nil {
			clientCfg.Registry = cfg.Registry
		}
		httpClient = resilience.NewClient(clientCfg)
	}

	return &Client{
		apiKey:     cfg.APIKey,
		baseURL:    baseURL,
		agency:     agency,
		httpClient: httpClient,
		logger:     cfg.Logger,
	}
}

// Name returns the provider name.
func (c *Client) Name() string {
	return ProviderName
}

// GetVehicleActivity retrieves current vehicle positions for the agency.
func (c *Client) GetVehicleActivity(ctx context.Context) ([]VehicleActivity, error) {
	resp, err := c.get(ctx, "VehicleMonitoring", nil)
	if err != nil {
		return nil, err
	}

	delivery := resp.Siri.ServiceDelivery.VehicleMonitoringDelivery
	if delivery == nil {
		return nil, &prediction.Error{
			Provider: ProviderName,
			Code:     "EMPTY_DELIVERY",
			Message:  "response contained no vehicle monitoring delivery",
			Err:      prediction.ErrNoData,
		}
	}

	activities := make([]VehicleActivity, 0, len(delivery.VehicleActivity))
	for i := range delivery.VehicleActivity {
		entry := &delivery.VehicleActivity[i]
		journey := &entry.MonitoredVehicleJourney
		if journey.LineRef == "" {
			continue
		}

		activity := VehicleActivity{
			LineRef:    journey.LineRef,
			VehicleRef: journey.VehicleRef,
		}

		if t, err := time.Parse(time.RFC3339, entry.RecordedAtTime); err == nil {
			activity.RecordedAt = t
		}
		if loc := journey.VehicleLocation; loc != nil {
			activity.Lat, _ = strconv.ParseFloat(loc.Latitude, 64)
			activity.Lon, _ = strconv.ParseFloat(loc.Longitude, 64)
		}
		if journey.Delay != "" {
			if d, err := parseSIRIDuration(journey.Delay); err == nil {
				activity.DelaySeconds = d.Seconds()
				activity.HasDelay = true
			}
		}

		activities = append(activities, activity)
	}

	c.logger.Debug().
		Int("vehicle_count", len(activities)).
		Msg("received vehicle activity from 511")

	return activities, nil
}

// GetStopVisits retrieves upcoming arrivals. An empty stopCode returns
// visits for all monitored stops in the agency.
func (c *Client) GetStopVisits(ctx context.Context, stopCode string) ([]StopVisit, error) {
	params := url.Values{}
	if stopCode != "" {
		params.Set("stopcode", stopCode)
	}

	resp, err := c.get(ctx, "StopMonitoring", params)
	if err != nil {
		return nil, err
	}

	delivery := resp.Siri.ServiceDelivery.StopMonitoringDelivery
	if delivery == nil {
		return nil, &prediction.Error{
			Provider: ProviderName,
			Code:     "EMPTY_DELIVERY",
			Message:  "response contained no stop monitoring delivery",
			Err:      prediction.ErrNoData,
		}
	}

	visits := make([]StopVisit, 0, len(delivery.MonitoredStopVisit))
	for i := range delivery.MonitoredStopVisit {
		entry := &delivery.MonitoredStopVisit[i]
		journey := &entry.MonitoredVehicleJourney
		call := journey.MonitoredCall
		if journey.LineRef == "" || call == nil {
			continue
		}

		aimed, aimedErr := time.Parse(time.RFC3339, call.AimedArrivalTime)
		expected, expectedErr := time.Parse(time.RFC3339, call.ExpectedArrivalTime)
		if aimedErr != nil || expectedErr != nil {
			continue
		}

		visits = append(visits, StopVisit{
			LineRef:      journey.LineRef,
			StopRef:      call.StopPointRef,
			VehicleRef:   journey.VehicleRef,
			Aimed:        aimed,
			Expected:     expected,
			DelaySeconds: expected.Sub(aimed).Seconds(),
		})
	}

	c.logger.Debug().
		Int("visit_count", len(visits)).
		Str("stop_code", stopCode).
		Msg("received stop visits from 511")

	return visits, nil
}

// Forecast implements prediction.Provider by averaging realtime
// arrival delays across the line's monitored stops.
func (c *Client) Forecast(ctx context.Context, req prediction.Request) (*prediction.Forecast, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	visits, err := c.GetStopVisits(ctx, "")
	if err != nil {
		return nil, err
	}

	sum := 0.0
	count := 0
	for _, v := range visits {
		if v.LineRef != req.RouteID {
			continue
		}
		if v.DelaySeconds < minDelaySeconds || v.DelaySeconds > maxDelaySeconds {
			continue
		}
		sum += v.DelaySeconds
		count++
	}

	if count == 0 {
		return nil, &prediction.Error{
			Provider: ProviderName,
			Code:     "NO_VISITS",
			Message:  fmt.Sprintf("no monitored arrivals for line %s", req.RouteID),
			Err:      prediction.ErrNoData,
		}
	}

	mean := sum / float64(count)
	mean = math.Max(minDelaySeconds, math.Min(maxDelaySeconds, mean))

	return &prediction.Forecast{
		Mode:         req.Mode,
		RouteID:      req.RouteID,
		DelaySeconds: mean,
		Confidence:   realtimeConfidence(count),
		Source:       "realtime",
		SampleCount:  count,
		GeneratedAt:  time.Now(),
	}, nil
}

// realtimeConfidence grows with the number of monitored arrivals but
// never reaches certainty.
func realtimeConfidence(sampleCount int) float64 {
	conf := float64(sampleCount) / float64(sampleCount+3)
	return math.Min(conf, 0.95)
}

// get executes a GET against the given 511 endpoint and decodes the
// SIRI envelope.
func (c *Client) get(ctx context.Context, endpoint string, params url.Values) (*siriResponse, error) {
	if params == nil {
		params = url.Values{}
	}
	params.Set("api_key", c.apiKey)
	params.Set("agency", c.agency)
	params.Set("format", "json")

	reqURL := fmt.Sprintf("%s/%s?%s", c.baseURL, endpoint, params.Encode())
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, &prediction.Error{
			Provider: ProviderName,
			Code:     "REQUEST_FAILED",
			Message:  "failed to reach 511 API",
			Err:      prediction.ErrProviderUnavailable,
		}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, c.handleErrorResponse(resp.StatusCode)
	}

	// 511 serves JSON with a UTF-8 BOM.
	body = bytes.TrimPrefix(body, []byte{0xEF, 0xBB, 0xBF})

	var siri siriResponse
	if err := json.Unmarshal(body, &siri); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	return &siri, nil
}

// handleErrorResponse maps 511 error statuses to domain errors.
func (c *Client) handleErrorResponse(statusCode int) error {
	switch {
	case statusCode == http.StatusTooManyRequests:
		return &prediction.Error{
			Provider: ProviderName,
			Code:     "RATE_LIMIT",
			Message:  "511 API rate limit exceeded, please try again later",
			Err:      prediction.ErrRateLimitExceeded,
		}
	case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden:
		return &prediction.Error{
			Provider: ProviderName,
			Code:     "FORBIDDEN",
			Message:  "511 API access denied - check API key configuration",
			Err:      prediction.ErrProviderUnavailable,
		}
	case statusCode >= 500:
		return &prediction.Error{
			Provider: ProviderName,
			Code:     fmt.Sprintf("SERVER_%d", statusCode),
			Message:  "511 API is temporarily unavailable",
			Err:      prediction.ErrProviderUnavailable,
		}
	default:
		return &prediction.Error{
			Provider: ProviderName,
			Code:     fmt.Sprintf("HTTP_%d", statusCode),
			Message:  fmt.Sprintf("511 API returned status %d", statusCode),
			Err:      prediction.ErrProviderUnavailable,
		}
	}
}

// siriDurationPattern matches ISO 8601 durations as SIRI emits them,
// e.g. "PT3M20S" or "-PT1M".
var siriDurationPattern = regexp.MustCompile(`^(-)?P(?:(\d+)D)?T?(?:(\d+)H)?(?:(\d+)M)?(?:(\d+(?:\.\d+)?)S)?$`)

// parseSIRIDuration parses the ISO 8601 duration strings the SIRI
// feed uses for the Delay field.
func parseSIRIDuration(s string) (time.Duration, error) {
	m := siriDurationPattern.FindStringSubmatch(s)
	if m == nil {
		return 0, fmt.Errorf("invalid SIRI duration %q", s)
	}

	var total float64
	if m[2] != "" {
		days, _ := strconv.ParseFloat(m[2], 64)
		total += days * 86400
	}
	if m[3] != "" {
		hours, _ := strconv.ParseFloat(m[3], 64)
		total += hours * 3600
	}
	if m[4] != "" {
		minutes, _ := strconv.ParseFloat(m[4], 64)
		total += minutes * 60
	}
	if m[5] != "" {
		seconds, _ := strconv.ParseFloat(m[5], 64)
		total += seconds
	}
	if m[1] == "-" {
		total = -total
	}

	return time.Duration(total * float64(time.Second)), nil
}
