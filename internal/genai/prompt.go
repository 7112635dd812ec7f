package genai

import (
	"bytes"
	_ "embed"
	"fmt"
	"strings"
	"text/template"
	"time"

	"github.com/teemow/mindfulday/internal/apperrors"
	"github.com/teemow/mindfulday/internal/calendar"
	"github.com/teemow/mindfulday/internal/tasks"
	"github.com/teemow/mindfulday/internal/weather"
)

// PromptInput is everything the plan is generated from.
type PromptInput struct {
	Date     time.Time
	City     string
	Events   []calendar.Event
	Tasks    []tasks.Task
	Forecast *weather.Forecast

	// StartHour and EndHour bound the planned day. Zero values mean 8 and 22.
	StartHour int
	EndHour   int
}

//go:embed prompt.tmpl
var promptTemplate string

var prompt = template.Must(template.New("prompt").Funcs(template.FuncMap{
	"clock": func(t time.Time) string { return t.Format("15:04") },
	"day":   func(t time.Time) string { return t.Format("2006-01-02") },
	"due": func(t *time.Time) string {
		if t == nil {
			return "none"
		}
		return t.Format("2006-01-02")
	},
	"orNone": func(s string) string {
		s = strings.Join(strings.Fields(s), " ")
		if s == "" {
			return "none"
		}
		return s
	},
}).Parse(promptTemplate))

// BuildPrompt renders the planning prompt. Events and tasks may be empty;
// a forecast without hourly data is a GenerationError because the model
// would have nothing to base the outdoor recommendations on.
func BuildPrompt(in PromptInput) (string, error) {
	if in.Forecast == nil || len(in.Forecast.Hours) == 0 {
		return "", apperrors.NewGeneration("no hourly weather data", nil)
	}
	if in.StartHour == 0 && in.EndHour == 0 {
		in.StartHour, in.EndHour = weather.DefaultStartHour, weather.DefaultEndHour
	}
	if in.City == "" {
		in.City = in.Forecast.City
	}

	var buf bytes.Buffer
	if err := prompt.Execute(&buf, in); err != nil {
		return "", fmt.Errorf("failed to render prompt: %w", err)
	}
	return buf.String(), nil
}
