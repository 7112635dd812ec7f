package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootRunsPipelineWithGlobalFlags(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"no arguments", nil},
		{"log level", []string{"--log-level", "debug"}},
		{"config and format", []string{"--config=mindfulday.yaml", "--log-format", "json"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, _, err := rootCmd.Find(tt.args)
			require.NoError(t, err)
			assert.Same(t, rootCmd, cmd)
			assert.True(t, cmd.Runnable())
		})
	}
}

func TestRootRejectsUnknownArguments(t *testing.T) {
	require.NotNil(t, rootCmd.Args)
	assert.Error(t, rootCmd.Args(rootCmd, []string{"tomorrow"}))
	assert.NoError(t, rootCmd.Args(rootCmd, nil))
}

func TestRootSubcommands(t *testing.T) {
	for _, name := range []string{"run", "plan", "auth", "version"} {
		cmd, _, err := rootCmd.Find([]string{name})
		require.NoError(t, err, name)
		assert.Equal(t, name, cmd.Name())
	}
}
