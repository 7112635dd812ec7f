package google

import (
	"bufio"
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/term"
)

// ErrNotInteractive is returned by an InteractiveAuthorizer that has no way
// to ask the user for consent, e.g. when running headless from cron.
var ErrNotInteractive = errors.New("interactive authorization required but no terminal is available")

// InteractiveAuthorizer obtains a brand new token through user consent.
type InteractiveAuthorizer interface {
	Authorize(ctx context.Context, conf *oauth2.Config) (*oauth2.Token, error)
}

// ConsoleAuthorizer runs the installed-app flow on the terminal: it prints
// the consent URL and reads back the authorization code (or the whole
// redirect URL the browser ended up on).
type ConsoleAuthorizer struct {
	In  io.Reader
	Out io.Writer

	// Interactive reports whether a user can answer. Defaults to checking
	// whether stdin is a terminal.
	Interactive func() bool
}

// NewConsoleAuthorizer returns an authorizer bound to stdin and the given writer.
func NewConsoleAuthorizer(out io.Writer) *ConsoleAuthorizer {
	return &ConsoleAuthorizer{In: os.Stdin, Out: out}
}

func (a *ConsoleAuthorizer) interactive() bool {
	if a.Interactive != nil {
		return a.Interactive()
	}
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// Authorize walks the user through consent and exchanges the code for a token.
func (a *ConsoleAuthorizer) Authorize(ctx context.Context, conf *oauth2.Config) (*oauth2.Token, error) {
	if !a.interactive() {
		return nil, ErrNotInteractive
	}

	state, err := randomState()
	if err != nil {
		return nil, err
	}
	verifier := oauth2.GenerateVerifier()

	authURL := conf.AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.ApprovalForce,
		oauth2.S256ChallengeOption(verifier),
	)

	fmt.Fprintf(a.Out, "Authorize access to %s by visiting:\n\n  %s\n\n", strings.Join(conf.Scopes, ", "), authURL)
	fmt.Fprint(a.Out, "Paste the authorization code or the full redirect URL: ")

	line, err := bufio.NewReader(a.In).ReadString('\n')
	if err != nil && (err != io.EOF || strings.TrimSpace(line) == "") {
		return nil, fmt.Errorf("failed to read authorization code: %w", err)
	}

	code, err := extractCode(strings.TrimSpace(line), state)
	if err != nil {
		return nil, err
	}

	tok, err := conf.Exchange(ctx, code, oauth2.VerifierOption(verifier))
	if err != nil {
		return nil, fmt.Errorf("failed to exchange auth code: %w", err)
	}

	return tok, nil
}

// extractCode accepts either a bare code or a redirect URL carrying
// code and state query parameters.
func extractCode(input, wantState string) (string, error) {
	if input == "" {
		return "", errors.New("empty authorization code")
	}
	if !strings.Contains(input, "://") {
		return input, nil
	}

	u, err := url.Parse(input)
	if err != nil {
		return "", fmt.Errorf("invalid redirect URL: %w", err)
	}
	q := u.Query()
	if e := q.Get("error"); e != "" {
		return "", fmt.Errorf("authorization denied: %s", e)
	}
	if got := q.Get("state"); got != wantState {
		return "", errors.New("state mismatch in redirect URL")
	}
	code := q.Get("code")
	if code == "" {
		return "", errors.New("redirect URL has no code parameter")
	}
	return code, nil
}

func randomState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate state: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// StaticAuthorizer hands out pre-seeded tokens instead of asking a user.
// Services without a seeded token fail with ErrNotInteractive.
type StaticAuthorizer struct {
	Tokens map[Service]*oauth2.Token
	calls  int
}

// Authorize returns the seeded token for the service the config's scopes belong to.
func (a *StaticAuthorizer) Authorize(_ context.Context, conf *oauth2.Config) (*oauth2.Token, error) {
	a.calls++
	for svc, tok := range a.Tokens {
		if sameScopes(svc.Scopes(), conf.Scopes) {
			cp := *tok
			return &cp, nil
		}
	}
	return nil, ErrNotInteractive
}

// Calls returns how many times Authorize was invoked.
func (a *StaticAuthorizer) Calls() int {
	return a.calls
}

func sameScopes(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
