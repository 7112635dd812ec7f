package google

import (
	"fmt"
	"os"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// LoadOAuthConfig reads the OAuth client secret downloaded from the Google
// Cloud console ("installed" or "web" application). The returned config has
// no scopes; the credential store sets them per service.
func LoadOAuthConfig(secretFile string) (*oauth2.Config, error) {
	data, err := os.ReadFile(secretFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read OAuth client secret %s: %w", secretFile, err)
	}

	conf, err := google.ConfigFromJSON(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse OAuth client secret %s: %w", secretFile, err)
	}

	return conf, nil
}

// configForService returns a copy of base restricted to the service's scopes.
func configForService(base *oauth2.Config, svc Service) *oauth2.Config {
	conf := *base
	conf.Scopes = svc.Scopes()
	return &conf
}
