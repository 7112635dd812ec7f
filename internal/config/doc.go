// Package config loads the mindfulday configuration.
//
// Values come from defaults, an optional YAML file (mindfulday.yaml in the
// XDG config directory or the working directory, or the file given with
// --config) and the environment. Environment variables use the MINDFULDAY_
// prefix, for example MINDFULDAY_CITY and MINDFULDAY_RECIPIENT, except for
// the API keys which are read as WEATHERAPI_API_KEY and GENAI_API_KEY. A
// .env file in the working directory is loaded first and never overrides
// variables that are already set.
//
// Example mindfulday.yaml:
//
//	city: Warsaw
//	recipient: me@example.com
//	timezone: Europe/Warsaw
//	request_timeout: 30s
//	log:
//	  level: debug
package config
