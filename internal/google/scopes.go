package google

import (
	"fmt"
	"strings"
)

// Service identifies one Google API the planner talks to. Each service is
// authorized separately, with its own scope and its own token file.
type Service string

const (
	ServiceCalendar Service = "calendar"
	ServiceTasks    Service = "tasks"
	ServiceGmail    Service = "gmail"
)

// Scopes requested per service. Only the narrowest grant each step needs.
var serviceScopes = map[Service][]string{
	ServiceCalendar: {"https://www.googleapis.com/auth/calendar.readonly"},
	ServiceTasks:    {"https://www.googleapis.com/auth/tasks.readonly"},
	ServiceGmail:    {"https://www.googleapis.com/auth/gmail.send"},
}

// AllServices returns every service in the order credentials are resolved.
func AllServices() []Service {
	return []Service{ServiceCalendar, ServiceTasks, ServiceGmail}
}

// Scopes returns the OAuth scopes for the service.
func (s Service) Scopes() []string {
	scopes := serviceScopes[s]
	out := make([]string, len(scopes))
	copy(out, scopes)
	return out
}

// TokenFile returns the file name the service's token is persisted under.
func (s Service) TokenFile() string {
	return "token_" + string(s) + ".json"
}

// Valid reports whether s is a known service.
func (s Service) Valid() bool {
	_, ok := serviceScopes[s]
	return ok
}

func (s Service) String() string {
	return string(s)
}

// ParseService converts a user supplied name into a Service.
func ParseService(name string) (Service, error) {
	s := Service(strings.ToLower(strings.TrimSpace(name)))
	if !s.Valid() {
		return "", fmt.Errorf("unknown service %q (expected one of: calendar, tasks, gmail)", name)
	}
	return s, nil
}
