package cmd

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/mindfulday/internal/google"
)

func TestParseServices(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		expected []google.Service
		wantErr  bool
	}{
		{
			name:     "no args means all",
			args:     nil,
			expected: []google.Service{google.ServiceCalendar, google.ServiceTasks, google.ServiceGmail},
		},
		{
			name:     "single service",
			args:     []string{"gmail"},
			expected: []google.Service{google.ServiceGmail},
		},
		{
			name:     "mixed case",
			args:     []string{"Calendar", "TASKS"},
			expected: []google.Service{google.ServiceCalendar, google.ServiceTasks},
		},
		{
			name:    "unknown service",
			args:    []string{"drive"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseServices(tt.args)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestPrintStatus(t *testing.T) {
	var out bytes.Buffer
	err := printStatus(&out, "/tokens", []google.ServiceStatus{
		{Service: google.ServiceCalendar, State: google.StateValid, Expiry: time.Date(2026, 10, 15, 10, 0, 0, 0, time.UTC), HasRefresh: true},
		{Service: google.ServiceTasks, State: google.StateExpired, Expiry: time.Date(2026, 10, 14, 10, 0, 0, 0, time.UTC)},
		{Service: google.ServiceGmail, State: google.StateUnauthorized},
	})
	require.NoError(t, err)

	lines := bytes.Split(bytes.TrimSpace(out.Bytes()), []byte("\n"))
	require.Len(t, lines, 6)
	assert.Equal(t, "Token directory: /tokens", string(lines[0]))
	assert.Contains(t, string(lines[2]), "SERVICE")
	assert.Regexp(t, `^calendar\s+valid\s+\S+\s+yes$`, string(lines[3]))
	assert.Regexp(t, `^tasks\s+expired\s+\S+\s+no$`, string(lines[4]))
	assert.Regexp(t, `^gmail\s+unauthorized\s+-\s+-$`, string(lines[5]))
}

func TestFormatExpiry(t *testing.T) {
	assert.Equal(t, "never", formatExpiry(time.Time{}))
	assert.NotEqual(t, "never", formatExpiry(time.Now()))
}
