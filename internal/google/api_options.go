package google

import (
	"context"
	"errors"
	"net/http"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/oauth2"
	"google.golang.org/api/option"

	"github.com/teemow/mindfulday/internal/apperrors"
)

// Transport holds the overrides shared by the Calendar, Tasks and Gmail clients.
// The zero value talks to the production endpoints through an otelhttp
// instrumented transport.
type Transport struct {
	// Endpoint replaces the API base URL, e.g. with an httptest server.
	Endpoint string
	// HTTPClient is the base client the OAuth transport wraps.
	HTTPClient *http.Client
}

// ClientOptions returns the options for building a google.golang.org/api
// service that authorizes every request with cred.
func (t Transport) ClientOptions(ctx context.Context, svc Service, cred *Credential) ([]option.ClientOption, error) {
	if cred == nil {
		return nil, apperrors.NewAuth(svc.String(), "authorize", errors.New("no credential"))
	}
	if cred.Service != svc {
		return nil, apperrors.NewAuth(svc.String(), "authorize", errors.New("credential issued for "+cred.Service.String()))
	}

	base := t.HTTPClient
	if base == nil {
		base = &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)}
	}
	ctx = context.WithValue(ctx, oauth2.HTTPClient, base)

	opts := []option.ClientOption{option.WithHTTPClient(cred.HTTPClient(ctx))}
	if t.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(t.Endpoint))
	}
	return opts, nil
}
