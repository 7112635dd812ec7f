package weather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/teemow/mindfulday/internal/apperrors"
	"github.com/teemow/mindfulday/internal/instrumentation"
	"github.com/teemow/mindfulday/internal/logging"
)

// DefaultBaseURL is the weatherapi.com v1 API.
const DefaultBaseURL = "http://api.weatherapi.com/v1"

// Default planning window, inclusive on both ends.
const (
	DefaultStartHour = 8
	DefaultEndHour   = 22
)

const (
	service   = instrumentation.ServiceWeather
	operation = instrumentation.OperationForecast

	maxErrorBody = 64 << 10
)

// ErrMissingAPIKey is wrapped in the AuthError returned when no key is configured.
var ErrMissingAPIKey = errors.New("WEATHERAPI_API_KEY is not set")

// Client fetches daily forecasts from weatherapi.com.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	startHour  int
	endHour    int
	logger     *slog.Logger
	metrics    *instrumentation.Metrics
}

// Option customizes a Client.
type Option func(*Client)

// WithBaseURL overrides the API base URL.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

// WithHTTPClient sets the HTTP client requests are sent through.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithHours sets the planning window; hours outside [start, end] are dropped.
func WithHours(start, end int) Option {
	return func(c *Client) {
		c.startHour = start
		c.endHour = end
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m *instrumentation.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// NewClient creates a weather client. An empty apiKey is accepted here and
// reported as an AuthError by FetchForecast.
func NewClient(apiKey string, opts ...Option) *Client {
	c := &Client{
		apiKey:     apiKey,
		baseURL:    DefaultBaseURL,
		httpClient: &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)},
		startHour:  DefaultStartHour,
		endHour:    DefaultEndHour,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FetchForecast returns the forecast for city on date, keeping only the
// hours of the planning window. A response without a forecast day is an
// APIError: the plan cannot be made without weather.
func (c *Client) FetchForecast(ctx context.Context, city string, date time.Time) (forecast *Forecast, err error) {
	start := time.Now()
	ctx, span := instrumentation.StartAPISpan(ctx, service, operation)
	defer func() {
		c.metrics.RecordAPIOperation(ctx, service, operation, instrumentation.StatusFromError(err), time.Since(start))
		instrumentation.EndSpan(span, err)
	}()

	if c.apiKey == "" {
		return nil, apperrors.NewAuth(service, operation, ErrMissingAPIKey)
	}
	if strings.TrimSpace(city) == "" {
		return nil, fmt.Errorf("weather: city is required")
	}

	day := date.Format("2006-01-02")
	q := url.Values{}
	q.Set("key", c.apiKey)
	q.Set("q", city)
	q.Set("dt", day)
	q.Set("days", "1")
	q.Set("aqi", "yes")
	q.Set("alerts", "yes")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/forecast.json?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("weather: failed to build request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// The URL carries the key; report the failure without it.
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			err = urlErr.Err
		}
		return nil, &apperrors.APIError{Service: service, Op: operation, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, apperrors.NewAPI(service, operation, resp.StatusCode, errorMessage(resp.Body))
	}

	var body forecastResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, &apperrors.APIError{Service: service, Op: operation, Status: resp.StatusCode,
			Message: "invalid response body", Err: err}
	}

	if len(body.Forecast.ForecastDay) == 0 {
		return nil, apperrors.NewAPI(service, operation, resp.StatusCode,
			fmt.Sprintf("no forecast available for %s on %s", city, day))
	}

	forecast = c.toForecast(&body, date)
	c.logger.Debug("weather forecast fetched",
		logging.Service(service),
		logging.City(forecast.City),
		logging.Count(len(forecast.Hours)),
		logging.Duration(time.Since(start)))

	return forecast, nil
}

func (c *Client) toForecast(body *forecastResponse, date time.Time) *Forecast {
	loc := date.Location()
	if body.Location.TzID != "" {
		if l, err := time.LoadLocation(body.Location.TzID); err == nil {
			loc = l
		}
	}

	fd := body.Forecast.ForecastDay[0]
	f := &Forecast{
		City:         body.Location.Name,
		Region:       body.Location.Region,
		Country:      body.Location.Country,
		Date:         date,
		Condition:    fd.Day.Condition.Text,
		MinTempC:     fd.Day.MinTempC,
		MaxTempC:     fd.Day.MaxTempC,
		ChanceOfRain: fd.Day.DailyChanceOfRain,
		Hours:        []HourlyWeather{},
	}
	if d, err := time.ParseInLocation("2006-01-02", fd.Date, loc); err == nil {
		f.Date = d
	}

	for _, h := range fd.Hour {
		t, err := time.ParseInLocation("2006-01-02 15:04", h.Time, loc)
		if err != nil {
			c.logger.Warn("skipping forecast hour with invalid time", slog.String("time", h.Time))
			continue
		}
		if t.Hour() < c.startHour || t.Hour() > c.endHour {
			continue
		}
		f.Hours = append(f.Hours, toHourly(h, t))
	}

	return f
}

func toHourly(h forecastHour, t time.Time) HourlyWeather {
	hw := HourlyWeather{
		Time:         t,
		Condition:    h.Condition.Text,
		TempC:        h.TempC,
		WindMS:       kphToMS(h.WindKPH),
		GustMS:       kphToMS(h.GustKPH),
		VisibilityKM: h.VisKM,
		Cloud:        h.Cloud,
		Humidity:     h.Humidity,
		PressureMB:   h.PressureMB,
		UV:           h.UV,
		ChanceOfRain: h.ChanceOfRain,
		ChanceOfSnow: h.ChanceOfSnow,
	}
	if h.AirQuality != nil {
		hw.USEPAIndex = h.AirQuality.USEPAIndex
	}
	return hw
}

// kphToMS converts km/h to m/s rounded to one decimal.
func kphToMS(kph float64) float64 {
	return math.Round(kph/3.6*10) / 10
}

// errorMessage extracts weatherapi's error.message, falling back to the raw body.
func errorMessage(r io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(r, maxErrorBody))
	if err != nil || len(data) == 0 {
		return ""
	}
	var er errorResponse
	if json.Unmarshal(data, &er) == nil && er.Error.Message != "" {
		return er.Error.Message
	}
	return strings.TrimSpace(string(data))
}
