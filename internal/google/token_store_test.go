package google

import (
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestFileTokenStore_RoundTrip(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "tokens")
	store := NewFileTokenStore(dir)

	_, err := store.LoadToken(ServiceCalendar)
	assert.ErrorIs(t, err, ErrTokenNotFound)

	expiry := time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)
	require.NoError(t, store.SaveToken(ServiceCalendar, &oauth2.Token{
		AccessToken:  "access",
		TokenType:    "Bearer",
		RefreshToken: "refresh",
		Expiry:       expiry,
	}))

	tok, err := store.LoadToken(ServiceCalendar)
	require.NoError(t, err)
	assert.Equal(t, "access", tok.AccessToken)
	assert.Equal(t, "refresh", tok.RefreshToken)
	assert.True(t, tok.Expiry.Equal(expiry))

	info, err := os.Stat(store.Path(ServiceCalendar))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	_, err = os.Stat(store.Path(ServiceCalendar) + ".tmp")
	assert.True(t, os.IsNotExist(err), "temporary file must be renamed away")
}

func TestFileTokenStore_FilePerServiceWithScopes(t *testing.T) {
	dir := t.TempDir()
	store := NewFileTokenStore(dir)

	require.NoError(t, store.SaveToken(ServiceGmail, &oauth2.Token{AccessToken: "g"}))
	require.NoError(t, store.SaveToken(ServiceTasks, &oauth2.Token{AccessToken: "t"}))

	assert.FileExists(t, filepath.Join(dir, "token_gmail.json"))
	assert.FileExists(t, filepath.Join(dir, "token_tasks.json"))
	assert.NoFileExists(t, filepath.Join(dir, "token_calendar.json"))

	data, err := os.ReadFile(filepath.Join(dir, "token_gmail.json"))
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, "g", raw["access_token"])
	assert.Equal(t, []any{"https://www.googleapis.com/auth/gmail.send"}, raw["scopes"])
}

func TestFileTokenStore_LastWriteWins(t *testing.T) {
	store := NewFileTokenStore(t.TempDir())

	require.NoError(t, store.SaveToken(ServiceTasks, &oauth2.Token{AccessToken: "first"}))
	require.NoError(t, store.SaveToken(ServiceTasks, &oauth2.Token{AccessToken: "second"}))

	tok, err := store.LoadToken(ServiceTasks)
	require.NoError(t, err)
	assert.Equal(t, "second", tok.AccessToken)
}

func TestFileTokenStore_CorruptFile(t *testing.T) {
	dir := t.TempDir()
	store := NewFileTokenStore(dir)
	require.NoError(t, os.WriteFile(store.Path(ServiceCalendar), []byte("not json"), 0o600))

	_, err := store.LoadToken(ServiceCalendar)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrTokenNotFound)
}

func TestFileTokenStore_ReadsTokenWithoutScopes(t *testing.T) {
	dir := t.TempDir()
	store := NewFileTokenStore(dir)
	content := `{"access_token":"ya29.x","refresh_token":"1//r","token_type":"Bearer","expiry":"2026-10-15T10:00:00Z"}`
	require.NoError(t, os.WriteFile(store.Path(ServiceCalendar), []byte(content), 0o600))

	tok, err := store.LoadToken(ServiceCalendar)
	require.NoError(t, err)
	assert.Equal(t, "ya29.x", tok.AccessToken)
	assert.Equal(t, "1//r", tok.RefreshToken)
}

func TestMemoryTokenStore_ReturnsCopies(t *testing.T) {
	store := NewMemoryTokenStore()
	orig := &oauth2.Token{AccessToken: "a"}
	require.NoError(t, store.SaveToken(ServiceGmail, orig))

	orig.AccessToken = "mutated"
	tok, err := store.LoadToken(ServiceGmail)
	require.NoError(t, err)
	assert.Equal(t, "a", tok.AccessToken)

	tok.AccessToken = "mutated again"
	tok2, err := store.LoadToken(ServiceGmail)
	require.NoError(t, err)
	assert.Equal(t, "a", tok2.AccessToken)
}

func TestParseService(t *testing.T) {
	tests := []struct {
		in      string
		want    Service
		wantErr bool
	}{
		{"calendar", ServiceCalendar, false},
		{" Tasks ", ServiceTasks, false},
		{"GMAIL", ServiceGmail, false},
		{"drive", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseService(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestServiceScopesAreCopies(t *testing.T) {
	scopes := ServiceCalendar.Scopes()
	scopes[0] = "tampered"
	assert.Equal(t, "https://www.googleapis.com/auth/calendar.readonly", ServiceCalendar.Scopes()[0])
}

func TestLoadOAuthConfig(t *testing.T) {
	dir := t.TempDir()
	secret := filepath.Join(dir, "secret.json")
	require.NoError(t, os.WriteFile(secret, []byte(`{"installed":{
		"client_id":"id.apps.googleusercontent.com",
		"client_secret":"shh",
		"auth_uri":"https://accounts.google.com/o/oauth2/auth",
		"token_uri":"https://oauth2.googleapis.com/token",
		"redirect_uris":["http://localhost"]}}`), 0o600))

	conf, err := LoadOAuthConfig(secret)
	require.NoError(t, err)
	assert.Equal(t, "id.apps.googleusercontent.com", conf.ClientID)
	assert.Equal(t, "http://localhost", conf.RedirectURL)
	assert.Empty(t, conf.Scopes)

	scoped := configForService(conf, ServiceTasks)
	assert.Equal(t, ServiceTasks.Scopes(), scoped.Scopes)
	assert.Empty(t, conf.Scopes, "base config must not be mutated")

	_, err = LoadOAuthConfig(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)
}
