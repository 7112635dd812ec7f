package weather

import "time"

// HourlyWeather is the forecast for one hour of the planning window.
type HourlyWeather struct {
	Time         time.Time
	Condition    string
	TempC        float64
	WindMS       float64 // m/s, rounded to 0.1
	GustMS       float64 // m/s, rounded to 0.1
	VisibilityKM float64
	Cloud        int // percent
	Humidity     int // percent
	PressureMB   float64
	UV           float64
	USEPAIndex   int // 1 (good) to 6 (hazardous), 0 when unknown
	ChanceOfRain int // percent
	ChanceOfSnow int // percent
}

// Hour returns the hour of day, 0-23.
func (h HourlyWeather) Hour() int {
	return h.Time.Hour()
}

// Forecast is the weather for one city on one day.
type Forecast struct {
	City         string
	Region       string
	Country      string
	Date         time.Time
	Condition    string
	MinTempC     float64
	MaxTempC     float64
	ChanceOfRain int
	Hours        []HourlyWeather
}

// Place returns "City, Country" or just the city when the country is unknown.
func (f *Forecast) Place() string {
	if f.Country == "" {
		return f.City
	}
	return f.City + ", " + f.Country
}

// forecastResponse mirrors the parts of weatherapi.com's forecast.json we use.
type forecastResponse struct {
	Location struct {
		Name    string `json:"name"`
		Region  string `json:"region"`
		Country string `json:"country"`
		TzID    string `json:"tz_id"`
	} `json:"location"`
	Forecast struct {
		ForecastDay []forecastDay `json:"forecastday"`
	} `json:"forecast"`
}

type forecastDay struct {
	Date string `json:"date"`
	Day  struct {
		MaxTempC          float64   `json:"maxtemp_c"`
		MinTempC          float64   `json:"mintemp_c"`
		DailyChanceOfRain int       `json:"daily_chance_of_rain"`
		Condition         condition `json:"condition"`
	} `json:"day"`
	Hour []forecastHour `json:"hour"`
}

type forecastHour struct {
	Time         string    `json:"time"` // "2006-01-02 15:04" in the location's zone
	TempC        float64   `json:"temp_c"`
	Condition    condition `json:"condition"`
	WindKPH      float64   `json:"wind_kph"`
	GustKPH      float64   `json:"gust_kph"`
	VisKM        float64   `json:"vis_km"`
	Cloud        int       `json:"cloud"`
	Humidity     int       `json:"humidity"`
	PressureMB   float64   `json:"pressure_mb"`
	UV           float64   `json:"uv"`
	ChanceOfRain int       `json:"chance_of_rain"`
	ChanceOfSnow int       `json:"chance_of_snow"`
	AirQuality   *struct {
		USEPAIndex int `json:"us-epa-index"`
	} `json:"air_quality"`
}

type condition struct {
	Text string `json:"text"`
}

// errorResponse is the body weatherapi.com sends with non-2xx statuses.
type errorResponse struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}
