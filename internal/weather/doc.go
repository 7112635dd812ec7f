// Package weather fetches the day's forecast from weatherapi.com.
//
// Only the hours of the planning window (08:00 to 22:00 by default) are
// kept. Wind and gust speeds are converted to m/s.
package weather
