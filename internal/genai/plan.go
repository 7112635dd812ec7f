package genai

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/kaptinlin/jsonrepair"

	"github.com/teemow/mindfulday/internal/apperrors"
)

// HourPlan is the activity planned for one hour of the day.
type HourPlan struct {
	Hour     int
	Activity string
}

// Label formats the hour as "08:00".
func (h HourPlan) Label() string {
	return fmt.Sprintf("%02d:00", h.Hour)
}

// BreakRecommendation is a short break the model suggests, typically to
// drink a glass of water.
type BreakRecommendation struct {
	Time     string `json:"time"`
	Duration string `json:"duration"`
	Activity string `json:"activity"`
}

// DailyPlan is the structured plan produced for one day.
type DailyPlan struct {
	Date      time.Time
	City      string
	Summary   string
	TodayFact string
	Hours     []HourPlan // ascending by hour
	Breaks    []BreakRecommendation

	// Raw is the model output the plan was decoded from.
	Raw string
}

// Text renders the plan as plain text. It is never empty for a plan
// returned by ParsePlan.
func (p *DailyPlan) Text() string {
	if p == nil {
		return ""
	}

	var b strings.Builder
	if !p.Date.IsZero() || p.City != "" {
		b.WriteString("Mindful Day plan")
		if !p.Date.IsZero() {
			fmt.Fprintf(&b, " for %s", p.Date.Format("Monday, 2 January 2006"))
		}
		if p.City != "" {
			fmt.Fprintf(&b, " in %s", p.City)
		}
		b.WriteString("\n\n")
	}

	if p.Summary != "" {
		b.WriteString(p.Summary)
		b.WriteString("\n\n")
	}
	if p.TodayFact != "" {
		fmt.Fprintf(&b, "Today: %s\n\n", p.TodayFact)
	}

	if len(p.Hours) > 0 {
		b.WriteString("Schedule\n")
		for _, h := range p.Hours {
			fmt.Fprintf(&b, "  %s  %s\n", h.Label(), h.Activity)
		}
		b.WriteString("\n")
	}

	if len(p.Breaks) > 0 {
		b.WriteString("Breaks\n")
		for _, br := range p.Breaks {
			switch {
			case br.Duration != "":
				fmt.Fprintf(&b, "  - %s (%s): %s\n", br.Time, br.Duration, br.Activity)
			default:
				fmt.Fprintf(&b, "  - %s: %s\n", br.Time, br.Activity)
			}
		}
	}

	return strings.TrimRight(b.String(), "\n") + "\n"
}

// planResponse is the JSON shape the prompt asks the model to answer with.
// Scalar fields accept numbers and booleans as well as strings.
type planResponse struct {
	Summary   looseString `json:"summary"`
	TodayFact looseString `json:"today_fact"`
	Plan      struct {
		Hours map[string]looseString `json:"hours"`
	} `json:"plan"`
	BreakRecommendations []breakResponse `json:"break_recommendations"`
}

type breakResponse struct {
	Time     looseString `json:"time"`
	Duration looseString `json:"duration"`
	Activity looseString `json:"activity"`
}

// looseString decodes any JSON scalar into its text. Objects and arrays
// keep their compact JSON form; null is empty.
type looseString string

func (s *looseString) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err == nil {
		*s = looseString(str)
		return nil
	}

	text := strings.TrimSpace(string(data))
	if text == "null" {
		*s = ""
		return nil
	}
	if !json.Valid(data) {
		return fmt.Errorf("invalid JSON value %q", text)
	}
	*s = looseString(text)
	return nil
}

func (s looseString) trimmed() string {
	return strings.TrimSpace(string(s))
}

// ParsePlan decodes a model answer into a DailyPlan. Code fences around the
// JSON are ignored and slightly malformed JSON (trailing commas, single
// quotes, unterminated strings) is repaired first. An answer wrapped in an
// array uses its first element. Anything that still does not decode, or a
// plan with neither a summary nor an hourly schedule, is a GenerationError.
func ParsePlan(raw string) (*DailyPlan, error) {
	text := stripCodeFence(raw)
	if text == "" {
		return nil, apperrors.NewGeneration("empty response", nil)
	}

	resp, err := decodePlan(text)
	if err != nil {
		repaired, rerr := jsonrepair.JSONRepair(text)
		if rerr != nil {
			return nil, apperrors.NewGeneration("malformed plan JSON", err)
		}
		if resp, err = decodePlan(repaired); err != nil {
			return nil, apperrors.NewGeneration("malformed plan JSON", err)
		}
	}

	plan := &DailyPlan{
		Summary:   resp.Summary.trimmed(),
		TodayFact: resp.TodayFact.trimmed(),
		Hours:     toHours(resp.Plan.Hours),
		Raw:       raw,
	}
	for _, br := range resp.BreakRecommendations {
		plan.Breaks = append(plan.Breaks, BreakRecommendation{
			Time:     br.Time.trimmed(),
			Duration: br.Duration.trimmed(),
			Activity: br.Activity.trimmed(),
		})
	}

	if plan.Summary == "" && len(plan.Hours) == 0 {
		return nil, apperrors.NewGeneration("plan has no summary and no schedule", nil)
	}

	return plan, nil
}

func decodePlan(text string) (*planResponse, error) {
	if strings.HasPrefix(text, "[") {
		var list []planResponse
		if err := json.Unmarshal([]byte(text), &list); err != nil {
			return nil, err
		}
		if len(list) == 0 {
			return nil, fmt.Errorf("answer is an empty array")
		}
		return &list[0], nil
	}

	var resp planResponse
	if err := json.Unmarshal([]byte(text), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// toHours converts the "hour" -> activity map into a sorted slice. Keys
// like "8", "08" and "8:00" are accepted; anything else is dropped.
func toHours(m map[string]looseString) []HourPlan {
	hours := make([]HourPlan, 0, len(m))
	for key, activity := range m {
		h, ok := parseHour(key)
		if !ok {
			continue
		}
		hours = append(hours, HourPlan{Hour: h, Activity: activity.trimmed()})
	}
	sort.Slice(hours, func(i, j int) bool { return hours[i].Hour < hours[j].Hour })
	return hours
}

func parseHour(key string) (int, bool) {
	key = strings.TrimSpace(key)
	if i := strings.IndexByte(key, ':'); i >= 0 {
		key = key[:i]
	}
	h, err := strconv.Atoi(key)
	if err != nil || h < 0 || h > 23 {
		return 0, false
	}
	return h, true
}

// stripCodeFence removes a surrounding ``` or ```json fence.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	} else {
		s = ""
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
