package weather

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/mindfulday/internal/apperrors"
)

// forecastJSON builds a forecast.json body with all 24 hours of 2026-10-15.
func forecastJSON() string {
	var hours []string
	for h := 0; h < 24; h++ {
		hours = append(hours, fmt.Sprintf(`{
			"time": "2026-10-15 %02d:00",
			"temp_c": %d.5,
			"condition": {"text": "Partly cloudy"},
			"wind_kph": 18.0,
			"gust_kph": 25.2,
			"vis_km": 10.0,
			"cloud": 40,
			"humidity": 70,
			"pressure_mb": 1015.0,
			"uv": 2.0,
			"chance_of_rain": %d,
			"chance_of_snow": 0,
			"air_quality": {"us-epa-index": 1}
		}`, h, h, h))
	}
	return `{
		"location": {"name": "Warsaw", "region": "", "country": "Poland", "tz_id": "Europe/Warsaw"},
		"forecast": {"forecastday": [{
			"date": "2026-10-15",
			"day": {"maxtemp_c": 16.2, "mintemp_c": 7.9, "daily_chance_of_rain": 30, "condition": {"text": "Partly cloudy"}},
			"hour": [` + strings.Join(hours, ",") + `]
		}]}
	}`
}

func TestFetchForecast(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/forecast.json", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "test-key", q.Get("key"))
		assert.Equal(t, "Warsaw", q.Get("q"))
		assert.Equal(t, "2026-10-15", q.Get("dt"))
		assert.Equal(t, "1", q.Get("days"))
		assert.Equal(t, "yes", q.Get("aqi"))
		assert.Equal(t, "yes", q.Get("alerts"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(forecastJSON()))
	}))
	defer srv.Close()

	client := NewClient("test-key", WithBaseURL(srv.URL+"/"))
	f, err := client.FetchForecast(context.Background(), "Warsaw", time.Date(2026, 10, 15, 6, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	assert.Equal(t, "Warsaw", f.City)
	assert.Equal(t, "Warsaw, Poland", f.Place())
	assert.Equal(t, "Partly cloudy", f.Condition)
	assert.Equal(t, 16.2, f.MaxTempC)
	assert.Equal(t, 7.9, f.MinTempC)
	assert.Equal(t, 30, f.ChanceOfRain)
	assert.Equal(t, "2026-10-15", f.Date.Format("2006-01-02"))

	require.Len(t, f.Hours, 15, "08:00 through 22:00 inclusive")
	first, last := f.Hours[0], f.Hours[len(f.Hours)-1]
	assert.Equal(t, 8, first.Hour())
	assert.Equal(t, 22, last.Hour())
	assert.Equal(t, "Europe/Warsaw", first.Time.Location().String())

	assert.Equal(t, 5.0, first.WindMS, "18 km/h is 5 m/s")
	assert.Equal(t, 7.0, first.GustMS, "25.2 km/h is 7 m/s")
	assert.Equal(t, 8.5, first.TempC)
	assert.Equal(t, 8, first.ChanceOfRain)
	assert.Equal(t, 1, first.USEPAIndex)
	assert.Equal(t, 10.0, first.VisibilityKM)
}

func TestFetchForecast_CustomWindow(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(forecastJSON()))
	}))
	defer srv.Close()

	f, err := NewClient("k", WithBaseURL(srv.URL), WithHours(6, 9)).
		FetchForecast(context.Background(), "Warsaw", time.Date(2026, 10, 15, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, f.Hours, 4)
	assert.Equal(t, 6, f.Hours[0].Hour())
}

func TestFetchForecast_MissingKeyMakesNoRequest(t *testing.T) {
	var requests int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&requests, 1)
	}))
	defer srv.Close()

	_, err := NewClient("", WithBaseURL(srv.URL)).FetchForecast(context.Background(), "Warsaw", time.Now())
	require.Error(t, err)

	var authErr *apperrors.AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, "weather", authErr.Service)
	assert.ErrorIs(t, err, ErrMissingAPIKey)
	assert.Zero(t, atomic.LoadInt32(&requests))
}

func TestFetchForecast_ErrorStatuses(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantMsg string
	}{
		{
			name:    "invalid key",
			status:  http.StatusUnauthorized,
			body:    `{"error":{"code":2006,"message":"API key is invalid."}}`,
			wantMsg: "API key is invalid.",
		},
		{
			name:    "unknown city",
			status:  http.StatusBadRequest,
			body:    `{"error":{"code":1006,"message":"No matching location found."}}`,
			wantMsg: "No matching location found.",
		},
		{
			name:    "plain body",
			status:  http.StatusBadGateway,
			body:    "upstream down\n",
			wantMsg: "upstream down",
		},
		{
			name:    "empty body",
			status:  http.StatusUnauthorized,
			wantMsg: "Unauthorized",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := NewClient("bad-key", WithBaseURL(srv.URL)).FetchForecast(context.Background(), "Atlantis", time.Now())

			var apiErr *apperrors.APIError
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, "weather", apiErr.Service)
			assert.Equal(t, tt.status, apiErr.Status)
			assert.Equal(t, tt.wantMsg, apiErr.Message)
			assert.False(t, apperrors.IsAuth(err), "a rejected key is reported by the API, not by the credential store")
		})
	}
}

func TestFetchForecast_NoForecastDay(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"location":{"name":"Warsaw"},"forecast":{"forecastday":[]}}`))
	}))
	defer srv.Close()

	_, err := NewClient("k", WithBaseURL(srv.URL)).
		FetchForecast(context.Background(), "Warsaw", time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC))

	var apiErr *apperrors.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusOK, apiErr.Status)
	assert.Contains(t, apiErr.Message, "2030-01-01")
}

func TestFetchForecast_TransportErrorHidesKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	_, err := NewClient("super-secret", WithBaseURL(srv.URL)).FetchForecast(context.Background(), "Warsaw", time.Now())
	require.Error(t, err)
	assert.True(t, apperrors.IsAPI(err))
	assert.NotContains(t, err.Error(), "super-secret")
}

func TestFetchForecast_InvalidJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"forecast":`))
	}))
	defer srv.Close()

	_, err := NewClient("k", WithBaseURL(srv.URL)).FetchForecast(context.Background(), "Warsaw", time.Now())
	assert.True(t, apperrors.IsAPI(err))
}

func TestKphToMS(t *testing.T) {
	tests := []struct {
		kph  float64
		want float64
	}{
		{0, 0},
		{3.6, 1},
		{10, 2.8},
		{36.7, 10.2},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, kphToMS(tt.kph), "kph=%v", tt.kph)
	}
}
