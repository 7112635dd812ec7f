package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"golang.org/x/oauth2"

	"github.com/teemow/mindfulday/internal/apperrors"
	"github.com/teemow/mindfulday/internal/instrumentation"
	"github.com/teemow/mindfulday/internal/logging"
)

// TokenState describes where a service is in its authorization lifecycle.
type TokenState string

const (
	StateUnauthorized TokenState = "unauthorized"
	StateValid        TokenState = "valid"
	StateExpired      TokenState = "expired"
)

// Credential is an authorized token for one service.
type Credential struct {
	Service Service
	Scopes  []string
	Token   *oauth2.Token

	source oauth2.TokenSource
}

// NewStaticCredential wraps a fixed token. It never refreshes and is meant
// for tests and callers that manage tokens themselves.
func NewStaticCredential(svc Service, tok *oauth2.Token) *Credential {
	return &Credential{
		Service: svc,
		Scopes:  svc.Scopes(),
		Token:   tok,
		source:  oauth2.StaticTokenSource(tok),
	}
}

// TokenSource returns the source API clients should authorize requests with.
// Tokens it refreshes are persisted by the store that issued the credential.
func (c *Credential) TokenSource() oauth2.TokenSource {
	if c.source == nil {
		return oauth2.StaticTokenSource(c.Token)
	}
	return c.source
}

// HTTPClient returns an HTTP client that authorizes every request with the
// credential. A base client can be supplied through ctx using oauth2.HTTPClient.
func (c *Credential) HTTPClient(ctx context.Context) *http.Client {
	return oauth2.NewClient(ctx, c.TokenSource())
}

// ServiceStatus is the persisted token state of one service.
type ServiceStatus struct {
	Service    Service
	State      TokenState
	Expiry     time.Time
	HasRefresh bool
}

// CredentialStore resolves credentials per service: it loads persisted
// tokens, refreshes expired ones, falls back to interactive consent when
// nothing usable is stored, and persists every new token before returning it.
type CredentialStore struct {
	config     *oauth2.Config
	tokens     TokenStore
	authorizer InteractiveAuthorizer
	timeout    time.Duration
	logger     *slog.Logger
	metrics    *instrumentation.Metrics
}

// DefaultTokenRequestTimeout bounds a single round trip to the token endpoint.
const DefaultTokenRequestTimeout = 30 * time.Second

// CredentialStoreOption customizes a CredentialStore.
type CredentialStoreOption func(*CredentialStore)

// WithAuthorizer sets the consent fallback. Without one, a service that has
// no usable token fails with an AuthError.
func WithAuthorizer(a InteractiveAuthorizer) CredentialStoreOption {
	return func(s *CredentialStore) { s.authorizer = a }
}

// WithRequestTimeout bounds every token endpoint request: refreshes, later
// refreshes made by the credential's token source and code exchanges. Time
// spent waiting for the user to paste a code is not limited.
func WithRequestTimeout(d time.Duration) CredentialStoreOption {
	return func(s *CredentialStore) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) CredentialStoreOption {
	return func(s *CredentialStore) { s.logger = l }
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m *instrumentation.Metrics) CredentialStoreOption {
	return func(s *CredentialStore) { s.metrics = m }
}

// NewCredentialStore creates a store issuing credentials for the OAuth client
// described by conf, persisting tokens in tokens.
func NewCredentialStore(conf *oauth2.Config, tokens TokenStore, opts ...CredentialStoreOption) (*CredentialStore, error) {
	if conf == nil {
		return nil, fmt.Errorf("oauth config cannot be nil")
	}
	if tokens == nil {
		return nil, fmt.Errorf("token store cannot be nil")
	}

	s := &CredentialStore{
		config: conf,
		tokens:  tokens,
		timeout: DefaultTokenRequestTimeout,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Credential returns a valid credential for svc.
//
// A valid stored token is returned untouched. An expired token with a
// refresh token is refreshed and saved first. Anything else goes through
// the interactive authorizer; if none is available the call fails with an
// AuthError.
func (s *CredentialStore) Credential(ctx context.Context, svc Service) (*Credential, error) {
	if !svc.Valid() {
		return nil, fmt.Errorf("unknown service %q", svc)
	}
	ctx = s.tokenContext(ctx)
	logger := logging.WithService(s.logger, svc.String())
	conf := configForService(s.config, svc)

	tok, err := s.tokens.LoadToken(svc)
	switch {
	case errors.Is(err, ErrTokenNotFound):
		logger.Info("no stored token, interactive authorization required")
		return s.authorize(ctx, svc, conf, logger)
	case err != nil:
		return nil, apperrors.NewAuth(svc.String(), "load token", err)
	}

	if tok.Valid() {
		logger.Debug("using stored token", slog.Time("expiry", tok.Expiry))
		return s.newCredential(ctx, svc, conf, tok), nil
	}

	if tok.RefreshToken == "" {
		logger.Info("stored token expired and has no refresh token, interactive authorization required")
		return s.authorize(ctx, svc, conf, logger)
	}

	return s.refresh(ctx, svc, conf, tok, logger)
}

// Login forces interactive consent for svc, replacing any stored token.
func (s *CredentialStore) Login(ctx context.Context, svc Service) (*Credential, error) {
	if !svc.Valid() {
		return nil, fmt.Errorf("unknown service %q", svc)
	}
	logger := logging.WithService(s.logger, svc.String())
	return s.authorize(s.tokenContext(ctx), svc, configForService(s.config, svc), logger)
}

// Status reports the persisted token state of every service.
func (s *CredentialStore) Status() ([]ServiceStatus, error) {
	var out []ServiceStatus
	for _, svc := range AllServices() {
		st := ServiceStatus{Service: svc, State: StateUnauthorized}

		tok, err := s.tokens.LoadToken(svc)
		switch {
		case errors.Is(err, ErrTokenNotFound):
		case err != nil:
			return nil, fmt.Errorf("failed to load %s token: %w", svc, err)
		default:
			st.Expiry = tok.Expiry
			st.HasRefresh = tok.RefreshToken != ""
			if tok.Valid() {
				st.State = StateValid
			} else {
				st.State = StateExpired
			}
		}
		out = append(out, st)
	}
	return out, nil
}

// tokenContext returns ctx carrying an HTTP client whose requests time out
// after s.timeout. The oauth2 package uses it for every token endpoint call.
func (s *CredentialStore) tokenContext(ctx context.Context) context.Context {
	hc := &http.Client{}
	if base, ok := ctx.Value(oauth2.HTTPClient).(*http.Client); ok && base != nil {
		c := *base
		hc = &c
	}
	if hc.Timeout == 0 || hc.Timeout > s.timeout {
		hc.Timeout = s.timeout
	}
	return context.WithValue(ctx, oauth2.HTTPClient, hc)
}

func (s *CredentialStore) refresh(ctx context.Context, svc Service, conf *oauth2.Config, tok *oauth2.Token, logger *slog.Logger) (*Credential, error) {
	logger.Info("refreshing expired token", slog.Time("expiry", tok.Expiry))

	// Only the refresh token matters here; clearing the access token makes
	// the source refresh even if the clock moved since Valid was checked.
	stale := *tok
	stale.AccessToken = ""

	fresh, err := conf.TokenSource(ctx, &stale).Token()
	if err != nil {
		s.metrics.RecordOAuthTokenRefresh(ctx, svc.String(), instrumentation.OAuthResultFailure)
		logger.Error("token refresh failed", logging.Err(err))
		return nil, apperrors.NewAuth(svc.String(), "refresh token", err)
	}

	if err := s.tokens.SaveToken(svc, fresh); err != nil {
		s.metrics.RecordOAuthTokenRefresh(ctx, svc.String(), instrumentation.OAuthResultFailure)
		return nil, apperrors.NewAuth(svc.String(), "persist token", err)
	}

	s.metrics.RecordOAuthTokenRefresh(ctx, svc.String(), instrumentation.OAuthResultSuccess)
	logger.Info("token refreshed", slog.Time("expiry", fresh.Expiry))
	return s.newCredential(ctx, svc, conf, fresh), nil
}

func (s *CredentialStore) authorize(ctx context.Context, svc Service, conf *oauth2.Config, logger *slog.Logger) (*Credential, error) {
	if s.authorizer == nil {
		s.metrics.RecordOAuthAuth(ctx, svc.String(), instrumentation.OAuthResultFailure)
		return nil, apperrors.NewAuth(svc.String(), "authorize", ErrNotInteractive)
	}

	tok, err := s.authorizer.Authorize(ctx, conf)
	if err != nil {
		s.metrics.RecordOAuthAuth(ctx, svc.String(), instrumentation.OAuthResultFailure)
		logger.Error("interactive authorization failed", logging.Err(err))
		return nil, apperrors.NewAuth(svc.String(), "authorize", err)
	}

	if err := s.tokens.SaveToken(svc, tok); err != nil {
		s.metrics.RecordOAuthAuth(ctx, svc.String(), instrumentation.OAuthResultFailure)
		return nil, apperrors.NewAuth(svc.String(), "persist token", err)
	}

	s.metrics.RecordOAuthAuth(ctx, svc.String(), instrumentation.OAuthResultSuccess)
	logger.Info("authorization stored", logging.Status(logging.StatusSuccess))
	return s.newCredential(ctx, svc, conf, tok), nil
}

func (s *CredentialStore) newCredential(ctx context.Context, svc Service, conf *oauth2.Config, tok *oauth2.Token) *Credential {
	// The source outlives the call that created it; later refreshes must not
	// fail because the resolving context was cancelled.
	base := conf.TokenSource(context.WithoutCancel(ctx), tok)
	return &Credential{
		Service: svc,
		Scopes:  conf.Scopes,
		Token:   tok,
		source: &persistingTokenSource{
			base:    base,
			svc:     svc,
			store:   s.tokens,
			logger:  s.logger,
			metrics: s.metrics,
			current: tok.AccessToken,
		},
	}
}

// persistingTokenSource saves every token its base source refreshes.
type persistingTokenSource struct {
	base    oauth2.TokenSource
	svc     Service
	store   TokenStore
	logger  *slog.Logger
	metrics *instrumentation.Metrics

	mu      sync.Mutex
	current string
}

func (p *persistingTokenSource) Token() (*oauth2.Token, error) {
	ctx := context.Background()

	tok, err := p.base.Token()
	if err != nil {
		p.metrics.RecordOAuthTokenRefresh(ctx, p.svc.String(), instrumentation.OAuthResultFailure)
		return nil, apperrors.NewAuth(p.svc.String(), "refresh token", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if tok.AccessToken != p.current {
		if err := p.store.SaveToken(p.svc, tok); err != nil {
			p.metrics.RecordOAuthTokenRefresh(ctx, p.svc.String(), instrumentation.OAuthResultFailure)
			return nil, apperrors.NewAuth(p.svc.String(), "persist token", err)
		}
		p.current = tok.AccessToken
		p.metrics.RecordOAuthTokenRefresh(ctx, p.svc.String(), instrumentation.OAuthResultSuccess)
		p.logger.Info("persisted refreshed token",
			logging.Service(p.svc.String()),
			slog.String("access_token", logging.SanitizeToken(tok.AccessToken)),
			slog.Time("expiry", tok.Expiry))
	}

	return tok, nil
}
